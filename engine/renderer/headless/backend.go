// Package headless implements a graphics backend that keeps every buffer in
// host memory and records each call it receives. It backs tests and windowless runs.
package headless

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
)

type Op string

const (
	OpCreateBuffer    Op = "create_buffer"
	OpWriteBuffer     Op = "write_buffer"
	OpDestroyBuffer   Op = "destroy_buffer"
	OpCreateView      Op = "create_view"
	OpDestroyView     Op = "destroy_view"
	OpCreatePipeline  Op = "create_pipeline"
	OpDestroyPipeline Op = "destroy_pipeline"
	OpResize          Op = "resize"
	OpBeginFrame      Op = "begin_frame"
	OpEndFrame        Op = "end_frame"
	OpUpdateCamera    Op = "update_camera"
	OpBindPipeline    Op = "bind_pipeline"
	OpBindGeometry    Op = "bind_geometry"
	OpBindObject      Op = "bind_object"
	OpBindInstance    Op = "bind_instance"
	OpDraw            Op = "draw_indexed"
	OpDrawInstanced   Op = "draw_indexed_instanced"
)

var errNotInFrame = errors.New("call outside of BeginFrame/EndFrame")

// Call is one recorded backend call. Only the fields relevant to Op are set.
type Call struct {
	Op            Op
	Buffer        metadata.BufferHandle
	IndexBuffer   metadata.BufferHandle
	View          metadata.ViewHandle
	Pipeline      metadata.PipelineHandle
	Offset        uint64
	Size          int
	Mode          metadata.WriteMode
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	VertexOffset  int32
	FirstInstance uint32
}

type Buffer struct {
	Desc metadata.RenderBufferDesc
	Data []byte
}

type Backend struct {
	appName  string
	width    uint32
	height   uint32
	nextID   uint32
	inFrame  bool
	frames   uint64
	calls    []Call
	failures map[Op]error

	buffers   map[metadata.BufferHandle]*Buffer
	views     map[metadata.ViewHandle]metadata.BufferHandle
	pipelines map[metadata.PipelineHandle]*metadata.PipelineConfig

	bound  metadata.PipelineHandle
	camera metadata.SharedCameraData
}

func New() *Backend {
	return &Backend{
		failures:  make(map[Op]error),
		buffers:   make(map[metadata.BufferHandle]*Buffer),
		views:     make(map[metadata.ViewHandle]metadata.BufferHandle),
		pipelines: make(map[metadata.PipelineHandle]*metadata.PipelineConfig),
	}
}

func (b *Backend) Initialize(appName string, appWidth, appHeight uint32) error {
	b.appName = appName
	b.width = appWidth
	b.height = appHeight
	core.LogInfo("Headless renderer initialized for `%s` (%dx%d).", appName, appWidth, appHeight)
	return nil
}

func (b *Backend) Shutdown() error {
	if n := len(b.buffers); n > 0 {
		core.LogWarn("headless renderer shut down with %d live buffers", n)
	}
	b.buffers = make(map[metadata.BufferHandle]*Buffer)
	b.views = make(map[metadata.ViewHandle]metadata.BufferHandle)
	b.pipelines = make(map[metadata.PipelineHandle]*metadata.PipelineConfig)
	return nil
}

func (b *Backend) Resized(width, height uint32) error {
	b.width = width
	b.height = height
	b.record(Call{Op: OpResize})
	return nil
}

func (b *Backend) BeginFrame(deltaTime float64) error {
	if err := b.fail(OpBeginFrame); err != nil {
		return err
	}
	if b.inFrame {
		return fmt.Errorf("begin frame while a frame is open: %w", core.ErrBackend)
	}
	b.inFrame = true
	b.record(Call{Op: OpBeginFrame})
	return nil
}

func (b *Backend) EndFrame(deltaTime float64) error {
	if !b.inFrame {
		return fmt.Errorf("end frame: %w", errNotInFrame)
	}
	b.inFrame = false
	b.frames++
	b.record(Call{Op: OpEndFrame})
	return nil
}

func (b *Backend) CreateBuffer(desc metadata.RenderBufferDesc) (metadata.BufferHandle, error) {
	if err := b.fail(OpCreateBuffer); err != nil {
		return 0, err
	}
	if desc.Size == 0 {
		return 0, fmt.Errorf("%s buffer `%s` of size 0: %w", desc.Type, desc.Name, core.ErrBackend)
	}
	b.nextID++
	handle := metadata.BufferHandle(b.nextID)
	b.buffers[handle] = &Buffer{Desc: desc, Data: make([]byte, desc.Size)}
	b.record(Call{Op: OpCreateBuffer, Buffer: handle, Size: int(desc.Size)})
	return handle, nil
}

func (b *Backend) WriteBuffer(buffer metadata.BufferHandle, offset uint64, data []byte, mode metadata.WriteMode) error {
	if err := b.fail(OpWriteBuffer); err != nil {
		return err
	}
	buf, ok := b.buffers[buffer]
	if !ok {
		return fmt.Errorf("write to unknown buffer %d: %w", buffer, core.ErrBackend)
	}
	if offset+uint64(len(data)) > uint64(len(buf.Data)) {
		return fmt.Errorf("write [%d, %d) past %d bytes of buffer %d: %w", offset, offset+uint64(len(data)), len(buf.Data), buffer, core.ErrBackend)
	}
	copy(buf.Data[offset:], data)
	b.record(Call{Op: OpWriteBuffer, Buffer: buffer, Offset: offset, Size: len(data), Mode: mode})
	return nil
}

func (b *Backend) DestroyBuffer(buffer metadata.BufferHandle) error {
	if _, ok := b.buffers[buffer]; !ok {
		return fmt.Errorf("destroy unknown buffer %d: %w", buffer, core.ErrBackend)
	}
	delete(b.buffers, buffer)
	b.record(Call{Op: OpDestroyBuffer, Buffer: buffer})
	return nil
}

func (b *Backend) CreateStorageView(buffer metadata.BufferHandle, stride, count uint32) (metadata.ViewHandle, error) {
	if err := b.fail(OpCreateView); err != nil {
		return 0, err
	}
	buf, ok := b.buffers[buffer]
	if !ok {
		return 0, fmt.Errorf("view over unknown buffer %d: %w", buffer, core.ErrBackend)
	}
	if uint64(stride)*uint64(count) > uint64(len(buf.Data)) {
		return 0, fmt.Errorf("view of %d x %d bytes over %d bytes: %w", count, stride, len(buf.Data), core.ErrBackend)
	}
	b.nextID++
	view := metadata.ViewHandle(b.nextID)
	b.views[view] = buffer
	b.record(Call{Op: OpCreateView, Buffer: buffer, View: view})
	return view, nil
}

func (b *Backend) DestroyStorageView(view metadata.ViewHandle) error {
	if _, ok := b.views[view]; !ok {
		return fmt.Errorf("destroy unknown view %d: %w", view, core.ErrBackend)
	}
	delete(b.views, view)
	b.record(Call{Op: OpDestroyView, View: view})
	return nil
}

func (b *Backend) CreatePipeline(config *metadata.PipelineConfig) (metadata.PipelineHandle, error) {
	if err := b.fail(OpCreatePipeline); err != nil {
		return 0, err
	}
	if len(config.VertexCode) == 0 || len(config.FragmentCode) == 0 {
		return 0, fmt.Errorf("pipeline `%s` without shader code: %w", config.Desc.Name, core.ErrBackend)
	}
	b.nextID++
	handle := metadata.PipelineHandle(b.nextID)
	b.pipelines[handle] = config
	b.record(Call{Op: OpCreatePipeline, Pipeline: handle})
	return handle, nil
}

func (b *Backend) DestroyPipeline(pipeline metadata.PipelineHandle) error {
	if _, ok := b.pipelines[pipeline]; !ok {
		return fmt.Errorf("destroy unknown pipeline %d: %w", pipeline, core.ErrBackend)
	}
	delete(b.pipelines, pipeline)
	if b.bound == pipeline {
		b.bound = 0
	}
	b.record(Call{Op: OpDestroyPipeline, Pipeline: pipeline})
	return nil
}

func (b *Backend) UpdateCamera(camera metadata.SharedCameraData) error {
	b.camera = camera
	b.record(Call{Op: OpUpdateCamera, Size: metadata.SharedCameraDataSize})
	return nil
}

func (b *Backend) BindPipeline(pipeline metadata.PipelineHandle) error {
	if !b.inFrame {
		return errNotInFrame
	}
	if _, ok := b.pipelines[pipeline]; !ok {
		return fmt.Errorf("bind unknown pipeline %d: %w", pipeline, core.ErrBackend)
	}
	b.bound = pipeline
	b.record(Call{Op: OpBindPipeline, Pipeline: pipeline})
	return nil
}

func (b *Backend) BindGeometry(vertices, indices metadata.BufferHandle) error {
	if !b.inFrame {
		return errNotInFrame
	}
	if _, ok := b.buffers[vertices]; !ok {
		return fmt.Errorf("bind unknown vertex buffer %d: %w", vertices, core.ErrBackend)
	}
	if _, ok := b.buffers[indices]; !ok {
		return fmt.Errorf("bind unknown index buffer %d: %w", indices, core.ErrBackend)
	}
	b.record(Call{Op: OpBindGeometry, Buffer: vertices, IndexBuffer: indices})
	return nil
}

func (b *Backend) BindObject(buffer metadata.BufferHandle) error {
	if !b.inFrame {
		return errNotInFrame
	}
	if _, ok := b.buffers[buffer]; !ok {
		return fmt.Errorf("bind unknown object buffer %d: %w", buffer, core.ErrBackend)
	}
	b.record(Call{Op: OpBindObject, Buffer: buffer})
	return nil
}

func (b *Backend) BindInstance(buffer metadata.BufferHandle, view metadata.ViewHandle) error {
	if !b.inFrame {
		return errNotInFrame
	}
	if owner, ok := b.views[view]; !ok || owner != buffer {
		return fmt.Errorf("bind view %d that does not cover buffer %d: %w", view, buffer, core.ErrBackend)
	}
	b.record(Call{Op: OpBindInstance, Buffer: buffer, View: view})
	return nil
}

func (b *Backend) DrawIndexed(indexCount, firstIndex uint32, vertexOffset int32) error {
	if err := b.checkDraw(); err != nil {
		return err
	}
	b.record(Call{Op: OpDraw, IndexCount: indexCount, FirstIndex: firstIndex, VertexOffset: vertexOffset})
	return nil
}

func (b *Backend) DrawIndexedInstanced(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	if err := b.checkDraw(); err != nil {
		return err
	}
	b.record(Call{
		Op:            OpDrawInstanced,
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    firstIndex,
		VertexOffset:  vertexOffset,
		FirstInstance: firstInstance,
	})
	return nil
}

func (b *Backend) checkDraw() error {
	if !b.inFrame {
		return errNotInFrame
	}
	if b.bound == 0 {
		return fmt.Errorf("draw without a bound pipeline: %w", core.ErrBackend)
	}
	return nil
}

func (b *Backend) record(c Call) {
	b.calls = append(b.calls, c)
}

func (b *Backend) fail(op Op) error {
	if err, ok := b.failures[op]; ok {
		delete(b.failures, op)
		return err
	}
	return nil
}
