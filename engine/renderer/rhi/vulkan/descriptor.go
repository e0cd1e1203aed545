package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/TQwan/SpartanEngine/engine/renderer/rhi"
)

// createDescriptorSetLayout translates the portable binding list into a
// descriptor set layout.
func (c *Context) createDescriptorSetLayout(bindings []rhi.DescriptorBinding) (vk.DescriptorSetLayout, error) {
	layoutBindings := make([]vk.DescriptorSetLayoutBinding, 0, len(bindings))
	for _, binding := range bindings {
		descriptorType, ok := vulkanDescriptorType[binding.Type]
		if !ok {
			return vk.NullDescriptorSetLayout, fmt.Errorf("vulkan: unsupported descriptor type %d", binding.Type)
		}
		layoutBindings = append(layoutBindings, vk.DescriptorSetLayoutBinding{
			Binding:         binding.Slot,
			DescriptorType:  descriptorType,
			DescriptorCount: 1,
			StageFlags:      vulkanStageFlags(binding.Stages),
		})
	}

	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}

	var layout vk.DescriptorSetLayout
	var result vk.Result
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		result = vk.CreateDescriptorSetLayout(c.device, &createInfo, nil, &layout)
		return nil
	}); err != nil {
		return vk.NullDescriptorSetLayout, err
	}
	if result != vk.Success {
		return vk.NullDescriptorSetLayout, fmt.Errorf("vulkan: creating descriptor set layout: %s", ResultString(result))
	}
	return layout, nil
}

func (c *Context) allocateDescriptorSet(layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     c.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}

	sets := make([]vk.DescriptorSet, 1)
	var result vk.Result
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		result = vk.AllocateDescriptorSets(c.device, &allocateInfo, &sets[0])
		return nil
	}); err != nil {
		return vk.NullDescriptorSet, err
	}
	if result != vk.Success {
		return vk.NullDescriptorSet, fmt.Errorf("vulkan: allocating descriptor set: %s", ResultString(result))
	}
	return sets[0], nil
}

func (c *Context) freeDescriptorSet(set vk.DescriptorSet) error {
	if set == vk.NullDescriptorSet {
		return nil
	}
	return lockPool.SafeCall(DescriptorManagement, func() error {
		vk.FreeDescriptorSets(c.device, c.descriptorPool, 1, []vk.DescriptorSet{set})
		return nil
	})
}

// UpdateConstantBufferDescriptor points one uniform binding of a descriptor
// set at a constant buffer. Dynamic buffers bind their full range at offset
// zero; the per-draw offset arrives through vkCmdBindDescriptorSets.
func (c *Context) UpdateConstantBufferDescriptor(set vk.DescriptorSet, binding rhi.DescriptorBinding, buffer *rhi.ConstantBuffer) error {
	resource, ok := buffer.Resource().(*Buffer)
	if !ok {
		return fmt.Errorf("vulkan: constant buffer '%s' has no backing storage", buffer.Name)
	}
	descriptorType, ok := vulkanDescriptorType[binding.Type]
	if !ok {
		return fmt.Errorf("vulkan: unsupported descriptor type %d", binding.Type)
	}

	bufferInfo := []vk.DescriptorBufferInfo{{
		Buffer: resource.Handle,
		Offset: 0,
		Range:  vk.DeviceSize(buffer.Stride()),
	}}
	write := []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding.Slot,
		DescriptorCount: 1,
		DescriptorType:  descriptorType,
		PBufferInfo:     bufferInfo,
	}}

	return lockPool.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(c.device, 1, write, 0, nil)
		return nil
	})
}
