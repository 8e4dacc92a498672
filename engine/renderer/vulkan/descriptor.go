package vulkan

import (
	vk "github.com/goki/vulkan"
)

/**
 * @brief The descriptor pool and the set layouts every pipeline layout is built from.
 * Set 0 is the camera uniform, set 1 the object uniform, set 2 the instance storage buffer.
 */
type VulkanDescriptors struct {
	Pool    vk.DescriptorPool
	Layouts [DESCRIPTOR_SET_COUNT]vk.DescriptorSetLayout
}

var descriptorTypes = [DESCRIPTOR_SET_COUNT]vk.DescriptorType{
	DESCRIPTOR_SET_CAMERA:   vk.DescriptorTypeUniformBuffer,
	DESCRIPTOR_SET_OBJECT:   vk.DescriptorTypeUniformBuffer,
	DESCRIPTOR_SET_INSTANCE: vk.DescriptorTypeStorageBuffer,
}

var descriptorStages = [DESCRIPTOR_SET_COUNT]vk.ShaderStageFlagBits{
	DESCRIPTOR_SET_CAMERA:   vk.ShaderStageVertexBit,
	DESCRIPTOR_SET_OBJECT:   vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit,
	DESCRIPTOR_SET_INSTANCE: vk.ShaderStageVertexBit,
}

func NewDescriptors(context *VulkanContext, versions uint32) (*VulkanDescriptors, error) {
	d := &VulkanDescriptors{}

	pools := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: VULKAN_MAX_UNIFORM_COUNT * versions},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: VULKAN_MAX_STORAGE_COUNT * versions},
	}
	if err := vulkanError("vkCreateDescriptorPool", vk.CreateDescriptorPool(context.Device.LogicalDevice, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       (VULKAN_MAX_UNIFORM_COUNT + VULKAN_MAX_STORAGE_COUNT) * versions,
		PoolSizeCount: uint32(len(pools)),
		PPoolSizes:    pools,
	}, context.Allocator, &d.Pool)); err != nil {
		return nil, err
	}

	for set := uint32(0); set < DESCRIPTOR_SET_COUNT; set++ {
		binds := []vk.DescriptorSetLayoutBinding{{
			Binding:         0,
			DescriptorType:  descriptorTypes[set],
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(descriptorStages[set]),
		}}
		if err := vulkanError("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(binds)),
			PBindings:    binds,
		}, context.Allocator, &d.Layouts[set])); err != nil {
			d.Destroy(context)
			return nil, err
		}
	}
	return d, nil
}

// AllocateBufferSets allocates one set per buffer, each pointing at [0, size) of its buffer.
func (d *VulkanDescriptors) AllocateBufferSets(context *VulkanContext, set uint32, buffers []vk.Buffer, size uint64) ([]vk.DescriptorSet, error) {
	sets := make([]vk.DescriptorSet, len(buffers))
	err := context.locks.SafeCall(DescriptorManagement, func() error {
		for i := range sets {
			if err := vulkanError("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(context.Device.LogicalDevice, &vk.DescriptorSetAllocateInfo{
				SType:              vk.StructureTypeDescriptorSetAllocateInfo,
				DescriptorPool:     d.Pool,
				DescriptorSetCount: 1,
				PSetLayouts:        []vk.DescriptorSetLayout{d.Layouts[set]},
			}, &sets[i])); err != nil {
				d.freeSets(context, sets[:i])
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	writes := make([]vk.WriteDescriptorSet, len(sets))
	for i := range sets {
		writes[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          sets[i],
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  descriptorTypes[set],
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: buffers[i],
				Offset: 0,
				Range:  vk.DeviceSize(size),
			}},
		}
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return sets, nil
}

func (d *VulkanDescriptors) FreeSets(context *VulkanContext, sets []vk.DescriptorSet) {
	_ = context.locks.SafeCall(DescriptorManagement, func() error {
		d.freeSets(context, sets)
		return nil
	})
}

func (d *VulkanDescriptors) freeSets(context *VulkanContext, sets []vk.DescriptorSet) {
	if len(sets) == 0 {
		return
	}
	vk.FreeDescriptorSets(context.Device.LogicalDevice, d.Pool, uint32(len(sets)), sets)
}

func (d *VulkanDescriptors) Destroy(context *VulkanContext) {
	for i := range d.Layouts {
		if d.Layouts[i] != vk.NullDescriptorSetLayout {
			vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, d.Layouts[i], context.Allocator)
			d.Layouts[i] = vk.NullDescriptorSetLayout
		}
	}
	if d.Pool != vk.NullDescriptorPool {
		// Destroying the pool frees every set allocated from it.
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, d.Pool, context.Allocator)
		d.Pool = vk.NullDescriptorPool
	}
}

func bufferHandles(b *VulkanBuffer) []vk.Buffer {
	handles := make([]vk.Buffer, len(b.Versions))
	for i := range b.Versions {
		handles[i] = b.Versions[i].Handle
	}
	return handles
}
