package vulkan

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vecsandbox/engine/containers"
	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/platform"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
)

type deferredDestroy struct {
	frame   uint64
	destroy func()
}

type VulkanRenderer struct {
	platform                *platform.Platform
	FrameNumber             uint64
	context                 *VulkanContext
	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	debug bool

	descriptors *VulkanDescriptors
	camera      *VulkanBuffer
	buffers     map[metadata.BufferHandle]*VulkanBuffer
	views       map[metadata.ViewHandle]*VulkanStorageView
	pipelines   map[metadata.PipelineHandle]*VulkanPipeline
	nextHandle  uint32

	// Last bound pipeline. It stays bound across frames.
	bound   *VulkanPipeline
	inFrame bool

	pendingDestroy *containers.RingQueue[deferredDestroy]
}

func New(p *platform.Platform, debug bool) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		context: &VulkanContext{
			Allocator: nil,
			Device:    &VulkanDevice{GraphicsQueueIndex: -1, PresentQueueIndex: -1, TransferQueueIndex: -1},
			locks:     NewVulkanLockPool(),
		},
		debug:          debug,
		buffers:        make(map[metadata.BufferHandle]*VulkanBuffer),
		views:          make(map[metadata.ViewHandle]*VulkanStorageView),
		pipelines:      make(map[metadata.PipelineHandle]*VulkanPipeline),
		pendingDestroy: containers.NewRingQueue[deferredDestroy](VULKAN_DEFERRED_DESTROY_COUNT),
	}
}

func (vr *VulkanRenderer) Initialize(appName string, appWidth, appHeight uint32) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return fmt.Errorf("GetInstanceProcAddress is nil: %w", core.ErrBackend)
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return fmt.Errorf("failed to initialize vk: %s: %w", err, core.ErrBackend)
	}

	vr.context.FramebufferWidth = appWidth
	vr.context.FramebufferHeight = appHeight

	// Setup Vulkan instance.
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Vector Sandbox"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := vr.platform.GetRequiredExtensionNames()
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1 // VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	}

	var requiredValidationLayerNames []string
	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		core.LogDebug("Required extensions: %v", requiredExtensions)

		// If validation should be done, get a list of the required validation layer names
		// and make sure they exist.
		requiredValidationLayerNames = []string{"VK_LAYER_KHRONOS_validation"}
		if err := checkValidationLayers(requiredValidationLayerNames); err != nil {
			return err
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(requiredValidationLayerNames))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredValidationLayerNames)

	if err := vulkanError("vkCreateInstance", vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance)); err != nil {
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		return fmt.Errorf("%s: %w", err, core.ErrBackend)
	}
	core.LogInfo("Vulkan Instance created.")

	if vr.debug {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vulkanError("vkCreateDebugReportCallbackEXT", vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError(err.Error())
			return err
		}
		vr.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.platform.CreateSurface(vr.context.Instance)
	if err != nil {
		return fmt.Errorf("failed to create platform surface: %s: %w", err, core.ErrBackend)
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vr.context); err != nil {
		core.LogError("Failed to create device!")
		return err
	}

	sc, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc
	vr.context.FramebufferWidth = sc.Extent.Width
	vr.context.FramebufferHeight = sc.Extent.Height

	rp, err := RenderpassCreate(
		vr.context,
		0, 0, float32(vr.context.FramebufferWidth), float32(vr.context.FramebufferHeight),
		0.0, 0.0, 0.2, 1.0,
		1.0,
		0)
	if err != nil {
		return err
	}
	vr.context.MainRenderpass = rp

	if err := vr.regenerateFramebuffers(); err != nil {
		return err
	}
	if err := vr.createCommandBuffers(); err != nil {
		return err
	}
	if err := vr.createSyncObjects(); err != nil {
		return err
	}

	vr.descriptors, err = NewDescriptors(vr.context, uint32(vr.bufferVersions()))
	if err != nil {
		return err
	}

	// The camera is a uniform buffer like any other, bound to set 0 instead of set 1.
	vr.camera, err = NewVulkanBuffer(vr.context, metadata.RenderBufferDesc{
		Name: "camera",
		Type: metadata.RENDERBUFFER_TYPE_UNIFORM,
		Size: metadata.SharedCameraDataSize,
	}, vr.bufferVersions())
	if err != nil {
		return err
	}
	vr.camera.Sets, err = vr.descriptors.AllocateBufferSets(vr.context, DESCRIPTOR_SET_CAMERA, bufferHandles(vr.camera), vr.camera.Desc.Size)
	if err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) Shutdown() error {
	if vr.context.Device.LogicalDevice == nil {
		return nil
	}
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	vr.flushDeferred(math.MaxUint64)

	// Destroy in the opposite order of creation.
	for h, p := range vr.pipelines {
		p.Destroy(vr.context)
		delete(vr.pipelines, h)
	}
	for h := range vr.views {
		delete(vr.views, h)
	}
	for h, b := range vr.buffers {
		b.Destroy(vr.context)
		delete(vr.buffers, h)
	}
	if vr.camera != nil {
		vr.camera.Destroy(vr.context)
		vr.camera = nil
	}
	// Destroying the pool frees every descriptor set.
	if vr.descriptors != nil {
		vr.descriptors.Destroy(vr.context)
		vr.descriptors = nil
	}
	vr.bound = nil

	// Sync objects
	for i := range vr.context.InFlightFences {
		vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.context.ImageAvailableSemaphores[i], vr.context.Allocator)
		vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.context.QueueCompleteSemaphores[i], vr.context.Allocator)
		vr.context.InFlightFences[i].FenceDestroy(vr.context)
	}
	vr.context.ImageAvailableSemaphores = nil
	vr.context.QueueCompleteSemaphores = nil
	vr.context.InFlightFences = nil
	vr.context.ImagesInFlight = nil

	vr.freeCommandBuffers()
	vr.destroyFramebuffers()

	if vr.context.MainRenderpass != nil {
		vr.context.MainRenderpass.RenderpassDestroy(vr.context)
	}
	if vr.context.Swapchain != nil {
		vr.context.Swapchain.SwapchainDestroy(vr.context)
	}

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vr.context)

	core.LogDebug("Destroying Vulkan surface...")
	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}

	if vr.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		vr.context.debugMessenger = vk.NullDebugReportCallback
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
	return nil
}

func (vr *VulkanRenderer) Resized(width, height uint32) error {
	// Update the "framebuffer size generation", a counter which indicates when the
	// framebuffer size has been updated.
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferSizeGeneration++

	core.LogInfo("Vulkan renderer backend->resized: w/h/gen: %d/%d/%d", width, height, vr.context.FramebufferSizeGeneration)
	return nil
}

func (vr *VulkanRenderer) BeginFrame(deltaTime float64) error {
	device := vr.context.Device
	// Check if recreating swap chain and boot out.
	if vr.context.RecreatingSwapchain {
		if err := vulkanError("vkDeviceWaitIdle", vk.DeviceWaitIdle(device.LogicalDevice)); err != nil {
			return err
		}
		core.LogInfo("Recreating swapchain, booting.")
		return core.ErrSwapchainBooting
	}

	// Check if the framebuffer has been resized. If so, a new swapchain must be created.
	if vr.context.FramebufferSizeGeneration != vr.context.FramebufferSizeLastGeneration {
		if err := vulkanError("vkDeviceWaitIdle", vk.DeviceWaitIdle(device.LogicalDevice)); err != nil {
			return err
		}
		// If the swapchain recreation failed (because, for example, the window was minimized),
		// boot out before unsetting the flag.
		if err := vr.recreateSwapchain(); err != nil {
			return err
		}
		core.LogInfo("Resized, booting.")
		return core.ErrSwapchainBooting
	}

	// Wait for the execution of the current frame to complete. The fence being free will allow this one to move on.
	if err := vr.context.InFlightFences[vr.context.CurrentFrame].FenceWait(vr.context, math.MaxUint64); err != nil {
		core.LogWarn("In-flight fence wait failure: %s", err)
		return err
	}

	// Every frame up to FrameNumber-MaxFramesInFlight has now retired.
	if vr.FrameNumber >= uint64(vr.context.Swapchain.MaxFramesInFlight) {
		vr.flushDeferred(vr.FrameNumber - uint64(vr.context.Swapchain.MaxFramesInFlight))
	}

	// Acquire the next image from the swap chain. Pass along the semaphore that should signaled when this completes.
	// This same semaphore will later be waited on by the queue submission to ensure this image is available.
	imageIndex, outOfDate, err := vr.context.Swapchain.SwapchainAcquireNextImageIndex(vr.context, math.MaxUint64, vr.context.ImageAvailableSemaphores[vr.context.CurrentFrame], vk.NullFence)
	if err != nil {
		core.LogError("Failed to acquire swapchain image: %s", err)
		return err
	}
	if outOfDate {
		vr.requestSwapchainRecreate()
		return core.ErrSwapchainBooting
	}
	vr.context.ImageIndex = imageIndex

	// Begin recording commands.
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	commandBuffer.Reset()
	if err := commandBuffer.Begin(false, false, false); err != nil {
		return err
	}

	// Dynamic state
	viewport := vk.Viewport{
		X:        0.0,
		Y:        0.0,
		Width:    float32(vr.context.FramebufferWidth),
		Height:   float32(vr.context.FramebufferHeight),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: vr.context.FramebufferWidth, Height: vr.context.FramebufferHeight},
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})
	vk.CmdSetLineWidth(commandBuffer.Handle, 1.0)

	vr.context.MainRenderpass.W = float32(vr.context.FramebufferWidth)
	vr.context.MainRenderpass.H = float32(vr.context.FramebufferHeight)
	vr.context.MainRenderpass.RenderpassBegin(commandBuffer, vr.context.Swapchain.Framebuffers[vr.context.ImageIndex].Handle)
	vr.inFrame = true

	// A new command buffer starts with nothing bound; restore the pipeline the caller believes is bound.
	if vr.bound != nil {
		vr.bindPipeline(commandBuffer, vr.bound)
	}
	return nil
}

func (vr *VulkanRenderer) EndFrame(deltaTime float64) error {
	if !vr.inFrame {
		return fmt.Errorf("EndFrame outside of a frame: %w", core.ErrBackend)
	}
	vr.inFrame = false
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]

	vr.context.MainRenderpass.RenderpassEnd(commandBuffer)
	if err := commandBuffer.End(); err != nil {
		return err
	}

	// Make sure the previous frame is not using this image (i.e. its fence is being waited on)
	if fence := vr.context.ImagesInFlight[vr.context.ImageIndex]; fence != nil {
		if err := fence.FenceWait(vr.context, math.MaxUint64); err != nil {
			return err
		}
	}

	// Mark the image fence as in-use by this frame.
	inFlight := vr.context.InFlightFences[vr.context.CurrentFrame]
	vr.context.ImagesInFlight[vr.context.ImageIndex] = inFlight

	// Reset the fence for use on the next frame
	if err := inFlight.FenceReset(vr.context); err != nil {
		return err
	}

	// Each semaphore waits on the corresponding pipeline stage to complete. 1:1 ratio.
	// VK_PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT prevents subsequent colour attachment
	// writes from executing until the semaphore signals (i.e. one frame is presented at a time)
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{vr.context.QueueCompleteSemaphores[vr.context.CurrentFrame]},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{vr.context.ImageAvailableSemaphores[vr.context.CurrentFrame]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	}

	if err := vr.context.locks.SafeQueueCall(uint32(vr.context.Device.GraphicsQueueIndex), func() error {
		return vulkanError("vkQueueSubmit", vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, inFlight.Handle))
	}); err != nil {
		core.LogError(err.Error())
		return err
	}
	commandBuffer.UpdateSubmitted()
	vr.FrameNumber++

	// Give the image back to the swapchain.
	outOfDate, err := vr.context.Swapchain.SwapchainPresent(
		vr.context,
		vr.context.Device.PresentQueue,
		vr.context.QueueCompleteSemaphores[vr.context.CurrentFrame],
		vr.context.ImageIndex)
	if err != nil {
		return err
	}
	if outOfDate {
		vr.requestSwapchainRecreate()
	}
	return nil
}

func (vr *VulkanRenderer) UpdateCamera(camera metadata.SharedCameraData) error {
	return vr.camera.Write(0, camera.Bytes(), metadata.WRITE_MODE_DISCARD, vr.FrameNumber)
}

func (vr *VulkanRenderer) BindPipeline(pipeline metadata.PipelineHandle) error {
	commandBuffer, err := vr.recording()
	if err != nil {
		return err
	}
	p, ok := vr.pipelines[pipeline]
	if !ok {
		return fmt.Errorf("unknown pipeline %d: %w", pipeline, core.ErrBackend)
	}
	vr.bindPipeline(commandBuffer, p)
	vr.bound = p
	return nil
}

func (vr *VulkanRenderer) bindPipeline(commandBuffer *VulkanCommandBuffer, p *VulkanPipeline) {
	p.Bind(commandBuffer, vk.PipelineBindPointGraphics)
	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics, p.PipelineLayout,
		DESCRIPTOR_SET_CAMERA, 1, []vk.DescriptorSet{vr.camera.Sets[vr.camera.Current]}, 0, nil)
}

func (vr *VulkanRenderer) BindGeometry(vertices, indices metadata.BufferHandle) error {
	commandBuffer, err := vr.recording()
	if err != nil {
		return err
	}
	vb, err := vr.buffer(vertices, metadata.RENDERBUFFER_TYPE_VERTEX)
	if err != nil {
		return err
	}
	ib, err := vr.buffer(indices, metadata.RENDERBUFFER_TYPE_INDEX)
	if err != nil {
		return err
	}
	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{vb.current().Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(commandBuffer.Handle, ib.current().Handle, 0, vk.IndexTypeUint32)
	return nil
}

func (vr *VulkanRenderer) BindObject(buffer metadata.BufferHandle) error {
	commandBuffer, err := vr.recording()
	if err != nil {
		return err
	}
	if vr.bound == nil {
		return fmt.Errorf("object bound before any pipeline: %w", core.ErrBackend)
	}
	b, err := vr.buffer(buffer, metadata.RENDERBUFFER_TYPE_UNIFORM)
	if err != nil {
		return err
	}
	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics, vr.bound.PipelineLayout,
		DESCRIPTOR_SET_OBJECT, 1, []vk.DescriptorSet{b.Sets[b.Current]}, 0, nil)
	return nil
}

func (vr *VulkanRenderer) BindInstance(buffer metadata.BufferHandle, view metadata.ViewHandle) error {
	commandBuffer, err := vr.recording()
	if err != nil {
		return err
	}
	if vr.bound == nil {
		return fmt.Errorf("instance bound before any pipeline: %w", core.ErrBackend)
	}
	b, err := vr.buffer(buffer, metadata.RENDERBUFFER_TYPE_STORAGE)
	if err != nil {
		return err
	}
	v, ok := vr.views[view]
	if !ok || v.Buffer != buffer {
		return fmt.Errorf("view %d does not belong to buffer %d: %w", view, buffer, core.ErrBackend)
	}
	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics, vr.bound.PipelineLayout,
		DESCRIPTOR_SET_INSTANCE, 1, []vk.DescriptorSet{v.Sets[b.Current]}, 0, nil)
	if vr.bound.VertexInput.HasInstanceBinding() {
		vk.CmdBindVertexBuffers(commandBuffer.Handle, VERTEX_BINDING_INSTANCE, 1, []vk.Buffer{b.current().Handle}, []vk.DeviceSize{0})
	}
	return nil
}

func (vr *VulkanRenderer) DrawIndexed(indexCount, firstIndex uint32, vertexOffset int32) error {
	return vr.DrawIndexedInstanced(indexCount, 1, firstIndex, vertexOffset, 0)
}

func (vr *VulkanRenderer) DrawIndexedInstanced(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	commandBuffer, err := vr.recording()
	if err != nil {
		return err
	}
	if vr.bound == nil {
		return fmt.Errorf("draw without a pipeline: %w", core.ErrBackend)
	}
	vk.CmdDrawIndexed(commandBuffer.Handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	return nil
}

func (vr *VulkanRenderer) CreateBuffer(desc metadata.RenderBufferDesc) (metadata.BufferHandle, error) {
	b, err := NewVulkanBuffer(vr.context, desc, vr.bufferVersions())
	if err != nil {
		return metadata.InvalidHandle, err
	}
	if desc.Type == metadata.RENDERBUFFER_TYPE_UNIFORM {
		if b.Sets, err = vr.descriptors.AllocateBufferSets(vr.context, DESCRIPTOR_SET_OBJECT, bufferHandles(b), desc.Size); err != nil {
			b.Destroy(vr.context)
			return metadata.InvalidHandle, err
		}
	}
	vr.nextHandle++
	handle := metadata.BufferHandle(vr.nextHandle)
	vr.buffers[handle] = b
	core.LogDebug("Created %s buffer `%s` (%d bytes x %d versions).", desc.Type, desc.Name, desc.Size, len(b.Versions))
	return handle, nil
}

func (vr *VulkanRenderer) WriteBuffer(buffer metadata.BufferHandle, offset uint64, data []byte, mode metadata.WriteMode) error {
	b, ok := vr.buffers[buffer]
	if !ok {
		return fmt.Errorf("unknown buffer %d: %w", buffer, core.ErrBackend)
	}
	return b.Write(offset, data, mode, vr.FrameNumber)
}

func (vr *VulkanRenderer) DestroyBuffer(buffer metadata.BufferHandle) error {
	b, ok := vr.buffers[buffer]
	if !ok {
		return fmt.Errorf("unknown buffer %d: %w", buffer, core.ErrBackend)
	}
	delete(vr.buffers, buffer)
	vr.deferDestroy(func() {
		if len(b.Sets) > 0 {
			vr.descriptors.FreeSets(vr.context, b.Sets)
		}
		b.Destroy(vr.context)
	})
	return nil
}

func (vr *VulkanRenderer) CreateStorageView(buffer metadata.BufferHandle, stride, count uint32) (metadata.ViewHandle, error) {
	b, err := vr.buffer(buffer, metadata.RENDERBUFFER_TYPE_STORAGE)
	if err != nil {
		return metadata.InvalidHandle, err
	}
	size := uint64(stride) * uint64(count)
	if size == 0 || size > b.Desc.Size {
		return metadata.InvalidHandle, fmt.Errorf("view of %d x %d bytes does not fit `%s` (%d bytes): %w", count, stride, b.Desc.Name, b.Desc.Size, core.ErrBackend)
	}
	sets, err := vr.descriptors.AllocateBufferSets(vr.context, DESCRIPTOR_SET_INSTANCE, bufferHandles(b), size)
	if err != nil {
		return metadata.InvalidHandle, err
	}
	vr.nextHandle++
	handle := metadata.ViewHandle(vr.nextHandle)
	vr.views[handle] = &VulkanStorageView{
		Buffer: buffer,
		Stride: stride,
		Count:  count,
		Sets:   sets,
	}
	return handle, nil
}

func (vr *VulkanRenderer) DestroyStorageView(view metadata.ViewHandle) error {
	v, ok := vr.views[view]
	if !ok {
		return fmt.Errorf("unknown view %d: %w", view, core.ErrBackend)
	}
	delete(vr.views, view)
	vr.deferDestroy(func() {
		vr.descriptors.FreeSets(vr.context, v.Sets)
	})
	return nil
}

func (vr *VulkanRenderer) CreatePipeline(config *metadata.PipelineConfig) (metadata.PipelineHandle, error) {
	vertex, err := NewShaderStage(vr.context, config.VertexCode, vk.ShaderStageVertexBit)
	if err != nil {
		return metadata.InvalidHandle, fmt.Errorf("pipeline `%s` vertex stage: %w", config.Desc.Name, err)
	}
	defer vertex.Destroy(vr.context)
	fragment, err := NewShaderStage(vr.context, config.FragmentCode, vk.ShaderStageFragmentBit)
	if err != nil {
		return metadata.InvalidHandle, fmt.Errorf("pipeline `%s` fragment stage: %w", config.Desc.Name, err)
	}
	defer fragment.Destroy(vr.context)

	// Viewport and scissor are dynamic; these only seed the create info.
	width, height := vr.context.FramebufferWidth, vr.context.FramebufferHeight
	p, err := NewGraphicsPipeline(vr.context, &VulkanPipelineConfig{
		Renderpass:           vr.context.MainRenderpass,
		VertexInput:          config.Desc.VertexInput,
		DescriptorSetLayouts: vr.descriptors.Layouts[:],
		Stages: []vk.PipelineShaderStageCreateInfo{
			vertex.ShaderStageCreateInfo,
			fragment.ShaderStageCreateInfo,
		},
		Viewport: vk.Viewport{
			Width:    float32(width),
			Height:   float32(height),
			MinDepth: 0.0,
			MaxDepth: 1.0,
		},
		Scissor: vk.Rect2D{
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		CullMode: config.Desc.CullMode,
		Topology: config.Desc.Topology,
	})
	if err != nil {
		return metadata.InvalidHandle, fmt.Errorf("pipeline `%s`: %w", config.Desc.Name, err)
	}
	vr.nextHandle++
	handle := metadata.PipelineHandle(vr.nextHandle)
	vr.pipelines[handle] = p
	core.LogDebug("Created pipeline `%s` (%s).", config.Desc.Name, config.Desc.VertexInput)
	return handle, nil
}

func (vr *VulkanRenderer) DestroyPipeline(pipeline metadata.PipelineHandle) error {
	p, ok := vr.pipelines[pipeline]
	if !ok {
		return fmt.Errorf("unknown pipeline %d: %w", pipeline, core.ErrBackend)
	}
	delete(vr.pipelines, pipeline)
	if vr.bound == p {
		vr.bound = nil
	}
	vr.deferDestroy(func() {
		p.Destroy(vr.context)
	})
	return nil
}

func (vr *VulkanRenderer) buffer(handle metadata.BufferHandle, kind metadata.RenderBufferType) (*VulkanBuffer, error) {
	b, ok := vr.buffers[handle]
	if !ok {
		return nil, fmt.Errorf("unknown buffer %d: %w", handle, core.ErrBackend)
	}
	if b.Desc.Type != kind {
		return nil, fmt.Errorf("buffer `%s` is a %s buffer, not %s: %w", b.Desc.Name, b.Desc.Type, kind, core.ErrBackend)
	}
	return b, nil
}

func (vr *VulkanRenderer) recording() (*VulkanCommandBuffer, error) {
	if !vr.inFrame {
		return nil, fmt.Errorf("command recorded outside of a frame: %w", core.ErrBackend)
	}
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	if !commandBuffer.InRenderPass() {
		return nil, fmt.Errorf("command buffer is not in a render pass: %w", core.ErrBackend)
	}
	return commandBuffer, nil
}

func (vr *VulkanRenderer) bufferVersions() int {
	return int(vr.context.Swapchain.MaxFramesInFlight) + 1
}

func (vr *VulkanRenderer) requestSwapchainRecreate() {
	vr.cachedFramebufferWidth = vr.context.FramebufferWidth
	vr.cachedFramebufferHeight = vr.context.FramebufferHeight
	vr.context.FramebufferSizeGeneration++
}

// deferDestroy queues destroy until every frame recorded so far has retired.
func (vr *VulkanRenderer) deferDestroy(destroy func()) {
	if vr.pendingDestroy.IsFull() {
		vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
		vr.flushDeferred(math.MaxUint64)
	}
	_ = vr.pendingDestroy.Enqueue(deferredDestroy{frame: vr.FrameNumber, destroy: destroy})
}

// flushDeferred runs every queued destroy recorded at or before frame.
func (vr *VulkanRenderer) flushDeferred(frame uint64) {
	for !vr.pendingDestroy.IsEmpty() {
		next, _ := vr.pendingDestroy.Peek()
		if next.frame > frame {
			return
		}
		_, _ = vr.pendingDestroy.Dequeue()
		next.destroy()
	}
}

func (vr *VulkanRenderer) createSyncObjects() error {
	maxFrames := int(vr.context.Swapchain.MaxFramesInFlight)
	vr.context.ImageAvailableSemaphores = make([]vk.Semaphore, maxFrames)
	vr.context.QueueCompleteSemaphores = make([]vk.Semaphore, maxFrames)
	vr.context.InFlightFences = make([]*VulkanFence, maxFrames)
	vr.context.InFlightFenceCount = uint32(maxFrames)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := 0; i < maxFrames; i++ {
		if err := vulkanError("vkCreateSemaphore", vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.ImageAvailableSemaphores[i])); err != nil {
			return err
		}
		if err := vulkanError("vkCreateSemaphore", vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.QueueCompleteSemaphores[i])); err != nil {
			return err
		}
		// Create the fence in a signaled state, indicating that the first frame has already been "rendered".
		// This will prevent the application from waiting indefinitely for the first frame to render since it
		// cannot be rendered until a frame is "rendered" before it.
		f, err := NewFence(vr.context, true)
		if err != nil {
			return err
		}
		vr.context.InFlightFences[i] = f
	}

	// Fences owned by InFlightFences, nil while the image is unused.
	vr.context.ImagesInFlight = make([]*VulkanFence, vr.context.Swapchain.ImageCount)
	return nil
}

func (vr *VulkanRenderer) createCommandBuffers() error {
	vr.context.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, vr.context.Swapchain.ImageCount)
	for i := range vr.context.GraphicsCommandBuffers {
		cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		vr.context.GraphicsCommandBuffers[i] = cb
	}
	core.LogDebug("Vulkan command buffers created.")
	return nil
}

func (vr *VulkanRenderer) freeCommandBuffers() {
	for _, cb := range vr.context.GraphicsCommandBuffers {
		if cb != nil {
			cb.Free(vr.context, vr.context.Device.GraphicsCommandPool)
		}
	}
	vr.context.GraphicsCommandBuffers = nil
}

func (vr *VulkanRenderer) regenerateFramebuffers() error {
	swapchain := vr.context.Swapchain
	swapchain.Framebuffers = make([]*VulkanFramebuffer, swapchain.ImageCount)
	for i := range swapchain.Framebuffers {
		attachments := []vk.ImageView{
			swapchain.Views[i],
			swapchain.DepthAttachment.View,
		}
		fb, err := FramebufferCreate(vr.context, vr.context.MainRenderpass, vr.context.FramebufferWidth, vr.context.FramebufferHeight, attachments)
		if err != nil {
			core.LogError("failed to execute framebuffer create function")
			return err
		}
		swapchain.Framebuffers[i] = fb
	}
	return nil
}

func (vr *VulkanRenderer) destroyFramebuffers() {
	if vr.context.Swapchain == nil {
		return
	}
	for _, fb := range vr.context.Swapchain.Framebuffers {
		if fb != nil {
			fb.Destroy(vr.context)
		}
	}
	vr.context.Swapchain.Framebuffers = nil
}

func (vr *VulkanRenderer) recreateSwapchain() error {
	// If already being recreated, do not try again.
	if vr.context.RecreatingSwapchain {
		core.LogDebug("recreate_swapchain called when already recreating. Booting.")
		return nil
	}

	// Detect if the window is too small to be drawn to
	if vr.cachedFramebufferWidth == 0 || vr.cachedFramebufferHeight == 0 {
		core.LogDebug("recreate_swapchain called when window is < 1 in a dimension. Booting.")
		return nil
	}

	vr.context.RecreatingSwapchain = true
	defer func() { vr.context.RecreatingSwapchain = false }()

	// Wait for any operations to complete.
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	for i := range vr.context.ImagesInFlight {
		vr.context.ImagesInFlight[i] = nil
	}

	// Requery support
	if err := DeviceQuerySwapchainSupport(vr.context.Device.PhysicalDevice, vr.context.Surface, &vr.context.Device.SwapchainSupport); err != nil {
		return err
	}
	DeviceDetectDepthFormat(vr.context.Device)

	vr.freeCommandBuffers()
	vr.destroyFramebuffers()

	sc, err := vr.context.Swapchain.SwapchainRecreate(vr.context, vr.cachedFramebufferWidth, vr.cachedFramebufferHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	// Sync the framebuffer size with the cached sizes.
	vr.context.FramebufferWidth = sc.Extent.Width
	vr.context.FramebufferHeight = sc.Extent.Height
	vr.context.MainRenderpass.X = 0
	vr.context.MainRenderpass.Y = 0
	vr.context.MainRenderpass.W = float32(vr.context.FramebufferWidth)
	vr.context.MainRenderpass.H = float32(vr.context.FramebufferHeight)
	vr.cachedFramebufferWidth = 0
	vr.cachedFramebufferHeight = 0

	// Update framebuffer size generation.
	vr.context.FramebufferSizeLastGeneration = vr.context.FramebufferSizeGeneration

	if err := vr.regenerateFramebuffers(); err != nil {
		return err
	}
	if err := vr.createCommandBuffers(); err != nil {
		return err
	}
	vr.context.ImagesInFlight = make([]*VulkanFence, sc.ImageCount)
	return nil
}

func checkValidationLayers(required []string) error {
	core.LogInfo("Validation layers enabled. Enumerating...")

	var availableLayerCount uint32
	if err := vulkanError("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil)); err != nil {
		return err
	}
	availableLayers := make([]vk.LayerProperties, availableLayerCount)
	if err := vulkanError("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers)); err != nil {
		return err
	}

	// Verify all required layers are available.
	for _, name := range required {
		found := false
		for j := range availableLayers {
			availableLayers[j].Deref()
			if name == cString(availableLayers[j].LayerName[:]) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("required validation layer is missing: %s: %w", name, core.ErrBackend)
		}
	}
	core.LogInfo("All required validation layers are present.")
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
