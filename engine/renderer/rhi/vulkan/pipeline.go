package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/TQwan/SpartanEngine/engine/core"
	"github.com/TQwan/SpartanEngine/engine/renderer/rhi"
)

// DescriptorBundle carries the descriptor objects owned by one compiled
// pipeline. Stored opaquely in rhi.CompiledPipeline.DescriptorSet.
type DescriptorBundle struct {
	Set      vk.DescriptorSet
	Layout   vk.DescriptorSetLayout
	Bindings []rhi.DescriptorBinding
}

// CompilePipeline freezes a state snapshot into an immutable pipeline
// object. Axes the snapshot leaves undefined (viewport, optionally scissor)
// become dynamic pipeline state supplied at bind time; everything else is
// baked.
func (c *Context) CompilePipeline(state *rhi.PipelineState) (rhi.CompiledPipeline, error) {
	var compiled rhi.CompiledPipeline

	vertexShader := state.VertexShader()
	if vertexShader == nil || !vertexShader.HasVertexStage() {
		return compiled, fmt.Errorf("vulkan: pipeline requires a vertex stage: %w", core.ErrPipelineCompile)
	}

	// Shader stages. The pixel stage is optional (depth-only passes).
	vertexModule, ok := vertexShader.VertexResource.(vk.ShaderModule)
	if !ok {
		return compiled, fmt.Errorf("vulkan: vertex shader '%s' carries no module: %w", vertexShader.Name, core.ErrPipelineCompile)
	}
	stages := []vk.PipelineShaderStageCreateInfo{{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageVertexBit,
		Module: vertexModule,
		PName:  SafeString(vertexShader.EntryPoint),
	}}

	pixelShader := state.PixelShader()
	if pixelShader != nil && pixelShader.HasPixelStage() {
		pixelModule, ok := pixelShader.PixelResource.(vk.ShaderModule)
		if !ok {
			return compiled, fmt.Errorf("vulkan: pixel shader '%s' carries no module: %w", pixelShader.Name, core.ErrPipelineCompile)
		}
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: pixelModule,
			PName:  SafeString(pixelShader.EntryPoint),
		})
	}

	// Vertex input from the reflected layout.
	var bindingDescriptions []vk.VertexInputBindingDescription
	var attributeDescriptions []vk.VertexInputAttributeDescription
	if layout := state.InputLayout(); layout != nil && len(layout.Attributes) > 0 {
		bindingDescriptions = append(bindingDescriptions, vk.VertexInputBindingDescription{
			Binding:   0,
			Stride:    layout.Stride,
			InputRate: vk.VertexInputRateVertex,
		})
		for _, attribute := range layout.Attributes {
			format, ok := vulkanFormat[attribute.Format]
			if !ok {
				return compiled, fmt.Errorf("vulkan: vertex attribute '%s' has unsupported format %d", attribute.Name, attribute.Format)
			}
			attributeDescriptions = append(attributeDescriptions, vk.VertexInputAttributeDescription{
				Location: attribute.Location,
				Binding:  attribute.Binding,
				Format:   format,
				Offset:   attribute.Offset,
			})
		}
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindingDescriptions)),
		PVertexBindingDescriptions:      bindingDescriptions,
		VertexAttributeDescriptionCount: uint32(len(attributeDescriptions)),
		PVertexAttributeDescriptions:    attributeDescriptions,
	}

	topology := state.Topology()
	if topology == rhi.TopologyNotAssigned {
		topology = rhi.TopologyTriangleList
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vulkanTopology[topology],
	}

	// Undefined viewport means per-draw viewport: make the axis dynamic.
	var dynamicStates []vk.DynamicState
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	viewport := state.Viewport()
	if viewport.IsDefined() {
		viewportState.PViewports = []vk.Viewport{{
			X:        viewport.X,
			Y:        viewport.Y,
			Width:    viewport.Width,
			Height:   viewport.Height,
			MinDepth: viewport.DepthMin,
			MaxDepth: viewport.DepthMax,
		}}
	} else {
		dynamicStates = append(dynamicStates, vk.DynamicStateViewport)
	}
	if state.DynamicScissor() {
		dynamicStates = append(dynamicStates, vk.DynamicStateScissor)
	} else {
		// Baked scissor: the given rect, or the viewport extent when unset.
		scissor := state.Scissor()
		if !scissor.IsDefined() {
			scissor = rhi.Rect{Right: viewport.Width, Bottom: viewport.Height}
		}
		viewportState.PScissors = []vk.Rect2D{{
			Offset: vk.Offset2D{X: int32(scissor.Left), Y: int32(scissor.Top)},
			Extent: vk.Extent2D{Width: uint32(scissor.Width()), Height: uint32(scissor.Height())},
		}}
	}

	rasterization := c.rasterizationState(state)
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}
	depthStencil := c.depthStencilState(state)
	colorBlend := c.colorBlendState(state)

	var dynamicState *vk.PipelineDynamicStateCreateInfo
	if len(dynamicStates) > 0 {
		dynamicState = &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(dynamicStates)),
			PDynamicStates:    dynamicStates,
		}
	}

	// Resource interface: descriptor set layout derived from reflection,
	// then the pipeline layout on top of it.
	bindings := rhi.DeriveDescriptorBindings(vertexShader, pixelShader, state.DynamicConstantBufferSlot())
	setLayout, err := c.createDescriptorSetLayout(bindings)
	if err != nil {
		return compiled, err
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{setLayout},
	}
	var pipelineLayout vk.PipelineLayout
	var result vk.Result
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		result = vk.CreatePipelineLayout(c.device, &layoutInfo, nil, &pipelineLayout)
		return nil
	}); err != nil {
		return compiled, err
	}
	if result != vk.Success {
		vk.DestroyDescriptorSetLayout(c.device, setLayout, nil)
		return compiled, fmt.Errorf("vulkan: creating pipeline layout: %s", ResultString(result))
	}

	renderPass, err := c.renderPassForFormats(state.RenderTargetFormats())
	if err != nil {
		c.destroyLayouts(pipelineLayout, setLayout)
		return compiled, err
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterization,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       dynamicState,
		Layout:              pipelineLayout,
		RenderPass:          renderPass,
		Subpass:             0,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		result = vk.CreateGraphicsPipelines(c.device, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines)
		return nil
	}); err != nil {
		c.destroyLayouts(pipelineLayout, setLayout)
		return compiled, err
	}
	if result != vk.Success {
		c.destroyLayouts(pipelineLayout, setLayout)
		return compiled, fmt.Errorf("vulkan: %s: %w", ResultString(result), core.ErrPipelineCompile)
	}

	descriptorSet, err := c.allocateDescriptorSet(setLayout)
	if err != nil {
		vk.DestroyPipeline(c.device, pipelines[0], nil)
		c.destroyLayouts(pipelineLayout, setLayout)
		return compiled, err
	}
	c.writeShaderConstantBuffers(descriptorSet, bindings, vertexShader, pixelShader)

	compiled.Pipeline = pipelines[0]
	compiled.Layout = pipelineLayout
	compiled.DescriptorSet = &DescriptorBundle{
		Set:      descriptorSet,
		Layout:   setLayout,
		Bindings: bindings,
	}
	return compiled, nil
}

func (c *Context) rasterizationState(state *rhi.PipelineState) vk.PipelineRasterizationStateCreateInfo {
	fillMode := state.FillMode()
	cullMode := state.CullMode()
	lineWidth := float32(1)
	if rs := state.RasterizerState(); rs != nil {
		if rs.FillMode() != rhi.FillNotAssigned {
			fillMode = rs.FillMode()
		}
		if rs.CullMode() != rhi.CullNotAssigned {
			cullMode = rs.CullMode()
		}
		if rs.LineWidth() > 0 {
			lineWidth = rs.LineWidth()
		}
	}
	if fillMode == rhi.FillNotAssigned {
		fillMode = rhi.FillSolid
	}
	if cullMode == rhi.CullNotAssigned {
		cullMode = rhi.CullBack
	}

	return vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vulkanPolygonMode[fillMode],
		CullMode:    vk.CullModeFlags(vulkanCullMode[cullMode]),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   lineWidth,
	}
}

func (c *Context) depthStencilState(state *rhi.PipelineState) vk.PipelineDepthStencilStateCreateInfo {
	info := vk.PipelineDepthStencilStateCreateInfo{
		SType: vk.StructureTypePipelineDepthStencilStateCreateInfo,
	}
	ds := state.DepthStencilState()
	if ds == nil {
		return info
	}

	if ds.DepthTestEnabled() {
		info.DepthTestEnable = vk.True
		info.DepthCompareOp = vulkanCompareOp[ds.DepthFunction()]
	}
	if ds.DepthWriteEnabled() {
		info.DepthWriteEnable = vk.True
	}
	if ds.StencilTestEnabled() {
		info.StencilTestEnable = vk.True
		stencilOp := vk.StencilOpState{
			FailOp:      vulkanStencilOp[ds.StencilFailOperation()],
			PassOp:      vulkanStencilOp[ds.StencilPassOperation()],
			DepthFailOp: vulkanStencilOp[ds.StencilDepthFailOperation()],
			CompareOp:   vulkanCompareOp[ds.StencilFunction()],
			CompareMask: 0xff,
			WriteMask:   0xff,
		}
		info.Front = stencilOp
		info.Back = stencilOp
	}
	return info
}

func (c *Context) colorBlendState(state *rhi.PipelineState) vk.PipelineColorBlendStateCreateInfo {
	colorCount := 0
	for _, format := range state.RenderTargetFormats() {
		if format != rhi.FormatD32Float && format != rhi.FormatD24UnormS8Uint {
			colorCount++
		}
	}
	if colorCount == 0 {
		colorCount = 1
	}

	attachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(
			vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	if bs := state.BlendState(); bs != nil && bs.BlendEnabled() {
		attachment.BlendEnable = vk.True
		attachment.SrcColorBlendFactor = vulkanBlendFactor[bs.SourceBlend()]
		attachment.DstColorBlendFactor = vulkanBlendFactor[bs.DestBlend()]
		attachment.ColorBlendOp = vulkanBlendOp[bs.BlendOp()]
		attachment.SrcAlphaBlendFactor = vulkanBlendFactor[bs.SourceBlendAlpha()]
		attachment.DstAlphaBlendFactor = vulkanBlendFactor[bs.DestBlendAlpha()]
		attachment.AlphaBlendOp = vulkanBlendOp[bs.BlendOpAlpha()]
	}

	attachments := make([]vk.PipelineColorBlendAttachmentState, colorCount)
	for i := range attachments {
		attachments[i] = attachment
	}

	info := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
	}
	if bs := state.BlendState(); bs != nil {
		factor := bs.BlendFactor()
		info.BlendConstants = [4]float32{factor, factor, factor, factor}
	}
	return info
}

func (c *Context) writeShaderConstantBuffers(set vk.DescriptorSet, bindings []rhi.DescriptorBinding, shaders ...*rhi.Shader) {
	for _, shader := range shaders {
		if shader == nil || shader.ConstantBuffer == nil {
			continue
		}
		for _, binding := range bindings {
			if binding.Slot != shader.BufferSlot {
				continue
			}
			if binding.Type != rhi.DescriptorConstantBuffer && binding.Type != rhi.DescriptorConstantBufferDynamic {
				continue
			}
			if err := c.UpdateConstantBufferDescriptor(set, binding, shader.ConstantBuffer); err != nil {
				core.LogWarn("vulkan: descriptor write for '%s': %s", shader.Name, err)
			}
		}
	}
}

func (c *Context) destroyLayouts(pipelineLayout vk.PipelineLayout, setLayout vk.DescriptorSetLayout) {
	vk.DestroyPipelineLayout(c.device, pipelineLayout, nil)
	vk.DestroyDescriptorSetLayout(c.device, setLayout, nil)
}

// BindPipeline records the pipeline, its descriptor set with the per-draw
// dynamic offsets, and any dynamic viewport/scissor values into the current
// command buffer.
func (c *Context) BindPipeline(pipeline *rhi.Pipeline, dynamicOffsets []uint32) bool {
	if c.commandBuffer == nil || c.commandBuffer.State != CommandBufferStateRecording {
		core.LogWarn("vulkan: pipeline bind outside command recording")
		return false
	}

	handle, ok := pipeline.Handle().(vk.Pipeline)
	if !ok {
		core.LogWarn("vulkan: pipeline '%s' has a foreign handle", pipeline.Name)
		return false
	}
	vk.CmdBindPipeline(c.commandBuffer.Handle, vk.PipelineBindPointGraphics, handle)

	layout, _ := pipeline.LayoutHandle().(vk.PipelineLayout)
	if bundle, ok := pipeline.DescriptorSet().(*DescriptorBundle); ok && bundle.Set != vk.NullDescriptorSet {
		vk.CmdBindDescriptorSets(c.commandBuffer.Handle, vk.PipelineBindPointGraphics, layout,
			0, 1, []vk.DescriptorSet{bundle.Set}, uint32(len(dynamicOffsets)), dynamicOffsets)
	}

	state := pipeline.State()
	if !state.Viewport().IsDefined() {
		width, height := c.backend.platform.FramebufferSize()
		vk.CmdSetViewport(c.commandBuffer.Handle, 0, 1, []vk.Viewport{{
			Width:    float32(width),
			Height:   float32(height),
			MaxDepth: 1,
		}})
	}
	if state.DynamicScissor() {
		scissor := state.Scissor()
		if !scissor.IsDefined() {
			width, height := c.backend.platform.FramebufferSize()
			scissor = rhi.Rect{Right: float32(width), Bottom: float32(height)}
		}
		vk.CmdSetScissor(c.commandBuffer.Handle, 0, 1, []vk.Rect2D{{
			Offset: vk.Offset2D{X: int32(scissor.Left), Y: int32(scissor.Top)},
			Extent: vk.Extent2D{Width: uint32(scissor.Width()), Height: uint32(scissor.Height())},
		}})
	}
	return true
}

func (c *Context) BindIndexBuffer(buffer *rhi.IndexBuffer) bool {
	if c.commandBuffer == nil || c.commandBuffer.State != CommandBufferStateRecording {
		core.LogWarn("vulkan: index buffer bind outside command recording")
		return false
	}
	resource, ok := buffer.Internal.(*Buffer)
	if !ok {
		core.LogWarn("vulkan: index buffer '%s' has no backing storage", buffer.Name)
		return false
	}
	vk.CmdBindIndexBuffer(c.commandBuffer.Handle, resource.Handle, 0, vulkanIndexType(buffer.Format))
	return true
}

func (c *Context) BindVertexBuffer(buffer *rhi.VertexBuffer) bool {
	if c.commandBuffer == nil || c.commandBuffer.State != CommandBufferStateRecording {
		core.LogWarn("vulkan: vertex buffer bind outside command recording")
		return false
	}
	resource, ok := buffer.Internal.(*Buffer)
	if !ok {
		core.LogWarn("vulkan: vertex buffer '%s' has no backing storage", buffer.Name)
		return false
	}
	vk.CmdBindVertexBuffers(c.commandBuffer.Handle, 0, 1, []vk.Buffer{resource.Handle}, []vk.DeviceSize{0})
	return true
}

// DestroyPipeline releases the pipeline object and its resource-interface
// objects. The caller guarantees the device is idle.
func (c *Context) DestroyPipeline(pipeline *rhi.Pipeline) error {
	return lockPool.SafeCall(PipelineManagement, func() error {
		if bundle, ok := pipeline.DescriptorSet().(*DescriptorBundle); ok {
			if err := c.freeDescriptorSet(bundle.Set); err != nil {
				core.LogWarn("vulkan: freeing descriptor set of '%s': %s", pipeline.Name, err)
			}
			vk.DestroyDescriptorSetLayout(c.device, bundle.Layout, nil)
		}
		if layout, ok := pipeline.LayoutHandle().(vk.PipelineLayout); ok {
			vk.DestroyPipelineLayout(c.device, layout, nil)
		}
		if handle, ok := pipeline.Handle().(vk.Pipeline); ok {
			vk.DestroyPipeline(c.device, handle, nil)
		}
		return nil
	})
}

// BeginFrame opens the context command buffer for this frame's bind and draw
// recording.
func (c *Context) BeginFrame() error {
	return c.commandBuffer.Begin()
}

// EndFrame closes the command buffer and submits it, blocking until the GPU
// retires the work.
func (c *Context) EndFrame() error {
	if err := c.commandBuffer.End(); err != nil {
		return err
	}
	return c.commandBuffer.Submit()
}

// CommandBuffer exposes the recording handle for draw calls issued by the
// renderer.
func (c *Context) CommandBuffer() *CommandBuffer {
	return c.commandBuffer
}
