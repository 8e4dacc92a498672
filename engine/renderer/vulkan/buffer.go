package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
)

var bufferUsages = map[metadata.RenderBufferType]vk.BufferUsageFlagBits{
	metadata.RENDERBUFFER_TYPE_VERTEX:  vk.BufferUsageVertexBufferBit,
	metadata.RENDERBUFFER_TYPE_INDEX:   vk.BufferUsageIndexBufferBit,
	metadata.RENDERBUFFER_TYPE_UNIFORM: vk.BufferUsageUniformBufferBit,
	// Instance data is read both as a storage buffer and as vertex binding 1.
	metadata.RENDERBUFFER_TYPE_STORAGE: vk.BufferUsageStorageBufferBit | vk.BufferUsageVertexBufferBit,
}

const hostMemoryFlags = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit

type bufferVersion struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	// Persistently mapped pointer into host memory.
	Mapped unsafe.Pointer
}

/**
 * @brief A host-visible buffer kept in several versions so a discard write never
 * touches memory a frame in flight is still reading.
 */
type VulkanBuffer struct {
	Desc     metadata.RenderBufferDesc
	Versions []bufferVersion
	Current  int
	// Descriptor sets for uniform buffers, one per version.
	Sets []vk.DescriptorSet

	// Frame number of the last rotation. A buffer rotates at most once per frame.
	rotatedAt uint64
	rotated   bool
}

// NewBuffer makes a buffer of given size, usage
func NewBuffer(context *VulkanContext, size uint64, usage vk.BufferUsageFlagBits) (vk.Buffer, error) {
	var buffer vk.Buffer
	err := vulkanError("vkCreateBuffer", vk.CreateBuffer(context.Device.LogicalDevice, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Usage:       vk.BufferUsageFlags(usage),
		Size:        vk.DeviceSize(size),
		SharingMode: vk.SharingModeExclusive,
	}, context.Allocator, &buffer))
	return buffer, err
}

// AllocBuffMem allocates memory for given buffer, with given properties, and binds it.
func AllocBuffMem(context *VulkanContext, buffer vk.Buffer, props vk.MemoryPropertyFlagBits) (vk.DeviceMemory, error) {
	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer, &memReqs)
	memReqs.Deref()

	memType := context.FindMemoryIndex(memReqs.MemoryTypeBits, uint32(props))
	if memType < 0 {
		return vk.NullDeviceMemory, fmt.Errorf("no memory type with flags %#x: %w", uint32(props), core.ErrBackend)
	}

	var memory vk.DeviceMemory
	if err := vulkanError("vkAllocateMemory", vk.AllocateMemory(context.Device.LogicalDevice, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: uint32(memType),
	}, context.Allocator, &memory)); err != nil {
		return vk.NullDeviceMemory, err
	}
	if err := vulkanError("vkBindBufferMemory", vk.BindBufferMemory(context.Device.LogicalDevice, buffer, memory, 0)); err != nil {
		FreeBuffMem(context, &memory)
		return vk.NullDeviceMemory, err
	}
	return memory, nil
}

// MapMemory maps the buffer memory, returning a pointer into start of buffer memory
func MapMemory(context *VulkanContext, mem vk.DeviceMemory, size uint64) (unsafe.Pointer, error) {
	var buffPtr unsafe.Pointer
	if err := vulkanError("vkMapMemory", vk.MapMemory(context.Device.LogicalDevice, mem, 0, vk.DeviceSize(size), 0, &buffPtr)); err != nil {
		return nil, err
	}
	return buffPtr, nil
}

// FreeBuffMem frees given device memory to nil
func FreeBuffMem(context *VulkanContext, memory *vk.DeviceMemory) {
	if *memory == vk.NullDeviceMemory {
		return
	}
	vk.FreeMemory(context.Device.LogicalDevice, *memory, context.Allocator)
	*memory = vk.NullDeviceMemory
}

// DestroyBuffer destroys given buffer and nils the pointer
func DestroyBuffer(context *VulkanContext, buff *vk.Buffer) {
	if *buff == vk.NullBuffer {
		return
	}
	vk.DestroyBuffer(context.Device.LogicalDevice, *buff, context.Allocator)
	*buff = vk.NullBuffer
}

func NewVulkanBuffer(context *VulkanContext, desc metadata.RenderBufferDesc, versions int) (*VulkanBuffer, error) {
	usage, ok := bufferUsages[desc.Type]
	if !ok {
		return nil, fmt.Errorf("buffer `%s` has unsupported type %s: %w", desc.Name, desc.Type, core.ErrBackend)
	}
	if desc.Size == 0 {
		return nil, fmt.Errorf("buffer `%s` has zero size: %w", desc.Name, core.ErrBackend)
	}

	b := &VulkanBuffer{
		Desc:     desc,
		Versions: make([]bufferVersion, versions),
	}
	for i := range b.Versions {
		v := &b.Versions[i]
		var err error
		if v.Handle, err = NewBuffer(context, desc.Size, usage); err != nil {
			b.Destroy(context)
			return nil, err
		}
		if v.Memory, err = AllocBuffMem(context, v.Handle, hostMemoryFlags); err != nil {
			b.Destroy(context)
			return nil, err
		}
		if v.Mapped, err = MapMemory(context, v.Memory, desc.Size); err != nil {
			b.Destroy(context)
			return nil, err
		}
	}
	return b, nil
}

func (b *VulkanBuffer) current() *bufferVersion {
	return &b.Versions[b.Current]
}

// Write copies data at offset. A discard moves to the next version first, unless
// the buffer already moved during this frame.
func (b *VulkanBuffer) Write(offset uint64, data []byte, mode metadata.WriteMode, frame uint64) error {
	if offset+uint64(len(data)) > b.Desc.Size {
		return fmt.Errorf("write [%d, %d) past %d bytes of `%s`: %w", offset, offset+uint64(len(data)), b.Desc.Size, b.Desc.Name, core.ErrUpdateOutOfRange)
	}
	if mode == metadata.WRITE_MODE_DISCARD && len(b.Versions) > 1 && (!b.rotated || b.rotatedAt != frame) {
		b.Current = (b.Current + 1) % len(b.Versions)
		b.rotatedAt = frame
		b.rotated = true
	}
	dst := unsafe.Slice((*byte)(b.current().Mapped), b.Desc.Size)
	copy(dst[offset:], data)
	return nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	for i := range b.Versions {
		v := &b.Versions[i]
		if v.Mapped != nil {
			vk.UnmapMemory(context.Device.LogicalDevice, v.Memory)
			v.Mapped = nil
		}
		DestroyBuffer(context, &v.Handle)
		FreeBuffMem(context, &v.Memory)
	}
}

/**
 * @brief A shader-readable range over a storage buffer, with a descriptor set per buffer version.
 */
type VulkanStorageView struct {
	Buffer metadata.BufferHandle
	Stride uint32
	Count  uint32
	Sets   []vk.DescriptorSet
}
