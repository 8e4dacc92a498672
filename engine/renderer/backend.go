package renderer

import (
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
	"github.com/spaghettifunk/vecsandbox/engine/resources"
)

type RendererType uint8

const (
	Vulkan RendererType = iota
	Headless
)

func (t RendererType) String() string {
	if t == Headless {
		return "headless"
	}
	return "vulkan"
}

// Backend is a graphics API implementation. Every call happens on the render
// thread; draw and bind calls are only valid between BeginFrame and EndFrame.
type Backend interface {
	resources.Device

	Initialize(appName string, appWidth, appHeight uint32) error
	Shutdown() error
	Resized(width, height uint32) error
	// BeginFrame returns core.ErrSwapchainBooting when the frame must be skipped.
	BeginFrame(deltaTime float64) error
	EndFrame(deltaTime float64) error

	UpdateCamera(camera metadata.SharedCameraData) error
	BindPipeline(pipeline metadata.PipelineHandle) error
	BindGeometry(vertices, indices metadata.BufferHandle) error
	BindObject(buffer metadata.BufferHandle) error
	BindInstance(buffer metadata.BufferHandle, view metadata.ViewHandle) error
	DrawIndexed(indexCount, firstIndex uint32, vertexOffset int32) error
	DrawIndexedInstanced(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error
}
