package vulkan

import (
	"fmt"
	"hash/fnv"

	vk "github.com/goki/vulkan"

	"github.com/TQwan/SpartanEngine/engine/core"
	"github.com/TQwan/SpartanEngine/engine/renderer/rhi"
)

const descriptorPoolMaxSets = 1024

// Context owns the logical device and everything scoped to it. It satisfies
// rhi.Context and rhi.PipelineCompiler, which routes PipelineState.Bind
// through the compiled-pipeline path.
type Context struct {
	backend *Backend
	level   rhi.FeatureLevel

	instance vk.Instance
	surface  vk.Surface

	physicalDevice vk.PhysicalDevice
	properties     vk.PhysicalDeviceProperties
	memory         vk.PhysicalDeviceMemoryProperties
	device         vk.Device

	graphicsQueueIndex uint32
	graphicsQueue      vk.Queue

	commandPool    vk.CommandPool
	descriptorPool vk.DescriptorPool
	commandBuffer  *CommandBuffer

	renderPasses map[uint64]vk.RenderPass
}

// selectPhysicalDevice re-resolves the chosen adapter inside this context's
// instance and captures its properties and graphics queue family.
func (c *Context) selectPhysicalDevice(adapter rhi.Adapter) error {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(c.instance, &count, nil); res != vk.Success || count == 0 {
		return core.ErrNoAdapter
	}
	physicalDevices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(c.instance, &count, physicalDevices); res != vk.Success {
		return fmt.Errorf("vulkan: enumerating physical devices: %s", ResultString(res))
	}

	for _, pd := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()
		properties.Limits.Deref()

		if properties.VendorID != adapter.VendorID || properties.DeviceID != adapter.DeviceID {
			continue
		}

		queueIndex, ok := c.findGraphicsQueueFamily(pd)
		if !ok {
			return fmt.Errorf("vulkan: adapter '%s' has no graphics queue with present support", adapter.Name)
		}

		c.physicalDevice = pd
		c.properties = properties
		c.graphicsQueueIndex = queueIndex
		vk.GetPhysicalDeviceMemoryProperties(pd, &c.memory)
		c.memory.Deref()
		return nil
	}
	return fmt.Errorf("vulkan: adapter '%s' disappeared between enumeration and creation: %w", adapter.Name, core.ErrNoAdapter)
}

func (c *Context) findGraphicsQueueFamily(pd vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, families)

	for i := range families {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		var supported vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(i), c.surface, &supported)
		if supported == vk.True {
			return uint32(i), true
		}
	}
	return 0, false
}

func (c *Context) createLogicalDevice() error {
	queuePriority := []float32{1.0}
	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: c.graphicsQueueIndex,
		QueueCount:       1,
		PQueuePriorities: queuePriority,
	}}

	extensions := []string{"VK_KHR_swapchain"}

	createInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: SafeStrings(extensions),
	}

	var device vk.Device
	var result vk.Result
	if err := lockPool.SafeCall(DeviceManagement, func() error {
		result = vk.CreateDevice(c.physicalDevice, &createInfo, nil, &device)
		return nil
	}); err != nil {
		return err
	}
	if result != vk.Success {
		return fmt.Errorf("vulkan: creating logical device: %s", ResultString(result))
	}
	c.device = device

	var queue vk.Queue
	vk.GetDeviceQueue(c.device, c.graphicsQueueIndex, 0, &queue)
	c.graphicsQueue = queue
	return nil
}

func (c *Context) createPools() error {
	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: c.graphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var commandPool vk.CommandPool
	if res := vk.CreateCommandPool(c.device, &poolInfo, nil, &commandPool); res != vk.Success {
		return fmt.Errorf("vulkan: creating command pool: %s", ResultString(res))
	}
	c.commandPool = commandPool

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: descriptorPoolMaxSets},
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: descriptorPoolMaxSets},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: descriptorPoolMaxSets},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: descriptorPoolMaxSets},
	}
	descriptorPoolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       descriptorPoolMaxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var descriptorPool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(c.device, &descriptorPoolInfo, nil, &descriptorPool); res != vk.Success {
		return fmt.Errorf("vulkan: creating descriptor pool: %s", ResultString(res))
	}
	c.descriptorPool = descriptorPool
	return nil
}

func (c *Context) createCommandBuffer() error {
	commandBuffer, err := NewCommandBuffer(c, true)
	if err != nil {
		return err
	}
	c.commandBuffer = commandBuffer
	return nil
}

func (c *Context) Limits() rhi.Limits {
	return rhi.Limits{
		MaxTextureDimension2D:            uint32(c.properties.Limits.MaxImageDimension2D),
		MaxConstantBufferRange:           uint32(c.properties.Limits.MaxUniformBufferRange),
		MinConstantBufferOffsetAlignment: uint32(c.properties.Limits.MinUniformBufferOffsetAlignment),
	}
}

func (c *Context) WaitIdle() error {
	if c.device == nil {
		return nil
	}
	var result vk.Result
	if err := lockPool.SafeCall(QueueManagement, func() error {
		result = vk.DeviceWaitIdle(c.device)
		return nil
	}); err != nil {
		return err
	}
	if result != vk.Success {
		return fmt.Errorf("vulkan: wait idle: %s", ResultString(result))
	}
	return nil
}

func (c *Context) Destroy() error {
	if c.device != nil {
		if err := c.WaitIdle(); err != nil {
			core.LogWarn("vulkan: wait idle before teardown: %s", err)
		}
	}

	for _, renderPass := range c.renderPasses {
		vk.DestroyRenderPass(c.device, renderPass, nil)
	}
	c.renderPasses = nil

	if c.commandBuffer != nil {
		c.commandBuffer.Free()
		c.commandBuffer = nil
	}
	if c.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(c.device, c.descriptorPool, nil)
		c.descriptorPool = vk.NullDescriptorPool
	}
	if c.commandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(c.device, c.commandPool, nil)
		c.commandPool = vk.NullCommandPool
	}
	if c.device != nil {
		vk.DestroyDevice(c.device, nil)
		c.device = nil
	}
	if c.surface != vk.NullSurface {
		vk.DestroySurface(c.instance, c.surface, nil)
		c.surface = vk.NullSurface
	}
	if c.instance != nil {
		vk.DestroyInstance(c.instance, nil)
		c.instance = nil
	}
	return nil
}

// FindMemoryIndex picks a memory type matching the filter and the requested
// property flags.
func (c *Context) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < c.memory.MemoryTypeCount; i++ {
		c.memory.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) == 0 {
			continue
		}
		if c.memory.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return i, nil
		}
	}
	return 0, fmt.Errorf("vulkan: no memory type matches filter 0x%x flags 0x%x", typeFilter, propertyFlags)
}

// renderPassForFormats returns the render pass compatible with the given
// render-target format set, creating and caching it on first use.
func (c *Context) renderPassForFormats(formats []rhi.Format) (vk.RenderPass, error) {
	if len(formats) == 0 {
		formats = []rhi.Format{rhi.FormatB8G8R8A8Unorm}
	}

	h := fnv.New64a()
	for _, format := range formats {
		h.Write([]byte{byte(format), byte(format >> 8)})
	}
	key := h.Sum64()
	if renderPass, ok := c.renderPasses[key]; ok {
		return renderPass, nil
	}

	var attachments []vk.AttachmentDescription
	var colorRefs []vk.AttachmentReference
	var depthRef *vk.AttachmentReference

	for _, format := range formats {
		vkFormat, ok := vulkanFormat[format]
		if !ok {
			return vk.NullRenderPass, fmt.Errorf("vulkan: unsupported render target format %d", format)
		}
		depth := format == rhi.FormatD32Float || format == rhi.FormatD24UnormS8Uint

		layout := vk.ImageLayoutColorAttachmentOptimal
		if depth {
			layout = vk.ImageLayoutDepthStencilAttachmentOptimal
		}
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         vkFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    layout,
		})

		ref := vk.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     layout,
		}
		if depth {
			depthRef = &ref
		} else {
			colorRefs = append(colorRefs, ref)
		}
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorRefs)),
		PColorAttachments:       colorRefs,
		PDepthStencilAttachment: depthRef,
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}

	var renderPass vk.RenderPass
	var result vk.Result
	if err := lockPool.SafeCall(RenderpassManagement, func() error {
		result = vk.CreateRenderPass(c.device, &createInfo, nil, &renderPass)
		return nil
	}); err != nil {
		return vk.NullRenderPass, err
	}
	if result != vk.Success {
		return vk.NullRenderPass, fmt.Errorf("vulkan: creating render pass: %s", ResultString(result))
	}
	c.renderPasses[key] = renderPass
	return renderPass, nil
}
