package rhi

import (
	"github.com/TQwan/SpartanEngine/engine/core"
)

// Per-field dirty bits. A setter is the only Clean->Dirty transition, Bind
// the only Dirty->Clean one; a field never sits in more than one pending
// bind.
type dirtyFlag uint32

const (
	dirtyViewport dirtyFlag = 1 << iota
	dirtyVertexShader
	dirtyPixelShader
	dirtyTopology
	dirtyInputLayout
	dirtyCullMode
	dirtyFillMode
	dirtySamplers
	dirtyTextures
	dirtyIndexBuffer
	dirtyVertexBuffer
	dirtyConstantBuffers
)

// ConstantBufferBinding is one (buffer, slot, scope) triple accumulated
// until the next Bind.
type ConstantBufferBinding struct {
	Buffer *ConstantBuffer
	Slot   uint32
	Scope  BufferScope
}

// PipelineState is the mutable, backend-agnostic aggregate of every
// draw-affecting setting. The renderer mutates it through setters across a
// frame; Bind resolves the dirty fields into backend calls.
type PipelineState struct {
	device *Device

	topology    PrimitiveTopology
	inputLayout *InputLayout
	cullMode    CullMode
	fillMode    FillMode
	viewport    Viewport
	scissor     Rect

	// dynamicScissor asks the explicit backend to keep scissor a per-draw
	// axis instead of baking it into the pipeline object.
	dynamicScissor bool

	vertexShader *Shader
	pixelShader  *Shader

	samplers        []*Sampler
	textures        []*Texture
	constantBuffers []ConstantBufferBinding

	vertexBuffer *VertexBuffer
	indexBuffer  *IndexBuffer

	rasterizerState   *RasterizerState
	blendState        *BlendState
	depthStencilState *DepthStencilState

	renderTargetFormats []Format

	// Slot of the dynamic-offset constant buffer, -1 when none. Part of the
	// descriptor layout on the explicit backend.
	dynamicConstantBufferSlot int32

	dirty dirtyFlag
}

func NewPipelineState(device *Device) *PipelineState {
	return &PipelineState{
		device:                    device,
		topology:                  TopologyNotAssigned,
		cullMode:                  CullNotAssigned,
		fillMode:                  FillNotAssigned,
		dynamicConstantBufferSlot: -1,
	}
}

func (ps *PipelineState) isDirty(flag dirtyFlag) bool {
	return ps.dirty&flag != 0
}

// SetShader sets the shader's stages and cascades: the shader's reflected
// input layout and, when present, its associated constant buffer are set
// alongside.
func (ps *PipelineState) SetShader(shader *Shader) bool {
	if shader == nil {
		core.LogWarn("PipelineState.SetShader: %s", core.ErrInvalidParameter)
		return false
	}

	if shader.InputLayout != nil {
		ps.SetInputLayout(shader.InputLayout)
	}
	if shader.ConstantBuffer != nil {
		ps.SetConstantBuffer(shader.ConstantBuffer, shader.BufferSlot, shader.BufferScope)
	}

	if shader.HasVertexStage() && ps.vertexShader != shader {
		ps.vertexShader = shader
		ps.dirty |= dirtyVertexShader
	}
	if shader.HasPixelStage() && ps.pixelShader != shader {
		ps.pixelShader = shader
		ps.dirty |= dirtyPixelShader
	}
	return true
}

func (ps *PipelineState) SetIndexBuffer(indexBuffer *IndexBuffer) bool {
	if indexBuffer == nil {
		core.LogWarn("PipelineState.SetIndexBuffer: %s", core.ErrInvalidParameter)
		return false
	}
	if ps.indexBuffer == indexBuffer {
		return true
	}

	ps.indexBuffer = indexBuffer
	ps.dirty |= dirtyIndexBuffer
	return true
}

func (ps *PipelineState) SetVertexBuffer(vertexBuffer *VertexBuffer) bool {
	if vertexBuffer == nil {
		core.LogWarn("PipelineState.SetVertexBuffer: %s", core.ErrInvalidParameter)
		return false
	}
	if ps.vertexBuffer == vertexBuffer {
		return true
	}

	ps.vertexBuffer = vertexBuffer
	ps.dirty |= dirtyVertexBuffer
	return true
}

func (ps *PipelineState) SetSampler(sampler *Sampler) bool {
	if sampler == nil {
		core.LogWarn("PipelineState.SetSampler: %s", core.ErrInvalidParameter)
		return false
	}

	ps.samplers = append(ps.samplers, sampler)
	ps.dirty |= dirtySamplers
	return true
}

func (ps *PipelineState) SetTexture(texture *Texture) bool {
	if texture == nil {
		core.LogWarn("PipelineState.SetTexture: %s", core.ErrInvalidParameter)
		return false
	}

	ps.textures = append(ps.textures, texture)
	ps.dirty |= dirtyTextures
	return true
}

func (ps *PipelineState) SetConstantBuffer(constantBuffer *ConstantBuffer, slot uint32, scope BufferScope) bool {
	if constantBuffer == nil {
		core.LogWarn("PipelineState.SetConstantBuffer: %s", core.ErrInvalidParameter)
		return false
	}

	ps.constantBuffers = append(ps.constantBuffers, ConstantBufferBinding{
		Buffer: constantBuffer,
		Slot:   slot,
		Scope:  scope,
	})
	if constantBuffer.IsDynamic() {
		ps.dynamicConstantBufferSlot = int32(slot)
	}
	ps.dirty |= dirtyConstantBuffers
	return true
}

func (ps *PipelineState) SetPrimitiveTopology(topology PrimitiveTopology) {
	if ps.topology == topology {
		return
	}

	ps.topology = topology
	ps.dirty |= dirtyTopology
}

func (ps *PipelineState) SetInputLayout(inputLayout *InputLayout) bool {
	if inputLayout == nil {
		core.LogWarn("PipelineState.SetInputLayout: %s", core.ErrInvalidParameter)
		return false
	}
	if ps.inputLayout == inputLayout {
		return false
	}

	ps.inputLayout = inputLayout
	ps.dirty |= dirtyInputLayout
	return true
}

func (ps *PipelineState) SetCullMode(cullMode CullMode) {
	if ps.cullMode == cullMode {
		return
	}

	ps.cullMode = cullMode
	ps.dirty |= dirtyCullMode
}

func (ps *PipelineState) SetFillMode(fillMode FillMode) {
	if ps.fillMode == fillMode {
		return
	}

	ps.fillMode = fillMode
	ps.dirty |= dirtyFillMode
}

func (ps *PipelineState) SetViewport(width, height float32) {
	if ps.viewport.Width == width && ps.viewport.Height == height {
		return
	}

	ps.viewport = Viewport{X: 0, Y: 0, Width: width, Height: height, DepthMin: 0, DepthMax: 1}
	ps.dirty |= dirtyViewport
}

func (ps *PipelineState) SetScissor(scissor Rect) {
	ps.scissor = scissor
}

func (ps *PipelineState) SetDynamicScissor(dynamic bool) {
	ps.dynamicScissor = dynamic
}

func (ps *PipelineState) SetRasterizerState(state *RasterizerState) bool {
	if state == nil {
		core.LogWarn("PipelineState.SetRasterizerState: %s", core.ErrInvalidParameter)
		return false
	}
	ps.rasterizerState = state
	return true
}

func (ps *PipelineState) SetBlendState(state *BlendState) bool {
	if state == nil {
		core.LogWarn("PipelineState.SetBlendState: %s", core.ErrInvalidParameter)
		return false
	}
	ps.blendState = state
	return true
}

func (ps *PipelineState) SetDepthStencilState(state *DepthStencilState) bool {
	if state == nil {
		core.LogWarn("PipelineState.SetDepthStencilState: %s", core.ErrInvalidParameter)
		return false
	}
	ps.depthStencilState = state
	return true
}

// SetRenderTargetFormats records the attachment format set. Formats, not
// texture identity: re-pointing a render target at a same-format texture
// must not force pipeline recompilation.
func (ps *PipelineState) SetRenderTargetFormats(formats ...Format) {
	ps.renderTargetFormats = append(ps.renderTargetFormats[:0], formats...)
}

// Read accessors, used by backends compiling a frozen snapshot.

func (ps *PipelineState) Topology() PrimitiveTopology         { return ps.topology }
func (ps *PipelineState) InputLayout() *InputLayout           { return ps.inputLayout }
func (ps *PipelineState) CullMode() CullMode                  { return ps.cullMode }
func (ps *PipelineState) FillMode() FillMode                  { return ps.fillMode }
func (ps *PipelineState) Viewport() Viewport                  { return ps.viewport }
func (ps *PipelineState) Scissor() Rect                       { return ps.scissor }
func (ps *PipelineState) DynamicScissor() bool                { return ps.dynamicScissor }
func (ps *PipelineState) VertexShader() *Shader               { return ps.vertexShader }
func (ps *PipelineState) PixelShader() *Shader                { return ps.pixelShader }
func (ps *PipelineState) RasterizerState() *RasterizerState   { return ps.rasterizerState }
func (ps *PipelineState) BlendState() *BlendState             { return ps.blendState }
func (ps *PipelineState) DepthStencilState() *DepthStencilState {
	return ps.depthStencilState
}
func (ps *PipelineState) RenderTargetFormats() []Format    { return ps.renderTargetFormats }
func (ps *PipelineState) DynamicConstantBufferSlot() int32 { return ps.dynamicConstantBufferSlot }
func (ps *PipelineState) ConstantBufferBindings() []ConstantBufferBinding {
	return ps.constantBuffers
}

// Bind resolves all dirty state into backend calls. On the immediate mode
// backend each dirty field becomes one call, in fixed order; on the
// explicit-object backend the whole snapshot resolves to a cached pipeline
// object bound in one operation. The return value is the AND of the index
// and vertex buffer bind results, vacuously true for unset buffers.
func (ps *PipelineState) Bind() bool {
	if !ps.device.IsInitialized() {
		core.LogError("PipelineState.Bind: %s", core.ErrDeviceNotReady)
		return false
	}

	if compiler, ok := ps.device.compiler(); ok {
		return ps.bindCompiled(compiler)
	}

	binder, ok := ps.device.binder()
	if !ok {
		core.LogError("PipelineState.Bind: context implements neither bind capability")
		return false
	}
	return ps.bindIncremental(binder)
}

func (ps *PipelineState) bindIncremental(binder IncrementalBinder) bool {
	profiler := core.Profiler()

	// Viewport
	if ps.isDirty(dirtyViewport) {
		binder.SetViewport(ps.viewport)
		profiler.BindViewportCount++
		ps.dirty &^= dirtyViewport
	}

	// Vertex shader
	if ps.isDirty(dirtyVertexShader) {
		binder.BindVertexShader(ps.vertexShader.VertexResource)
		profiler.BindVertexShaderCount++
		ps.dirty &^= dirtyVertexShader
	}

	// Pixel shader
	if ps.isDirty(dirtyPixelShader) {
		binder.BindPixelShader(ps.pixelShader.PixelResource)
		profiler.BindPixelShaderCount++
		ps.dirty &^= dirtyPixelShader
	}

	// Primitive topology
	if ps.isDirty(dirtyTopology) {
		binder.SetPrimitiveTopology(ps.topology)
		profiler.BindTopologyCount++
		ps.dirty &^= dirtyTopology
	}

	// Input layout
	if ps.isDirty(dirtyInputLayout) {
		binder.SetInputLayout(ps.inputLayout)
		profiler.BindInputLayoutCount++
		ps.dirty &^= dirtyInputLayout
	}

	// Cull mode
	if ps.isDirty(dirtyCullMode) {
		binder.SetCullMode(ps.cullMode)
		profiler.BindCullModeCount++
		ps.dirty &^= dirtyCullMode
	}

	// Fill mode
	if ps.isDirty(dirtyFillMode) {
		binder.SetFillMode(ps.fillMode)
		profiler.BindFillModeCount++
		ps.dirty &^= dirtyFillMode
	}

	// Samplers, batch bound then cleared
	if ps.isDirty(dirtySamplers) {
		if len(ps.samplers) > 0 {
			binder.BindSamplers(0, ps.samplers)
			profiler.BindSamplerCount++
		}
		ps.samplers = nil
		ps.dirty &^= dirtySamplers
	}

	// Textures, batch bound then cleared
	if ps.isDirty(dirtyTextures) {
		if len(ps.textures) > 0 {
			binder.BindTextures(0, ps.textures)
			profiler.BindTextureCount++
		}
		ps.textures = nil
		ps.dirty &^= dirtyTextures
	}

	// Index buffer
	resultIndexBuffer := true
	if ps.isDirty(dirtyIndexBuffer) {
		resultIndexBuffer = binder.BindIndexBuffer(ps.indexBuffer)
		profiler.BindIndexBufferCount++
		ps.dirty &^= dirtyIndexBuffer
	}

	// Vertex buffer
	resultVertexBuffer := true
	if ps.isDirty(dirtyVertexBuffer) {
		resultVertexBuffer = binder.BindVertexBuffer(ps.vertexBuffer)
		profiler.BindVertexBufferCount++
		ps.dirty &^= dirtyVertexBuffer
	}

	// Constant buffers
	if ps.isDirty(dirtyConstantBuffers) {
		for _, binding := range ps.constantBuffers {
			binder.BindConstantBuffers(binding.Slot, binding.Scope, []*ConstantBuffer{binding.Buffer})
			if binding.Scope == ScopeGlobal {
				profiler.BindConstantBufferCount += 2
			} else {
				profiler.BindConstantBufferCount++
			}
		}
		ps.constantBuffers = ps.constantBuffers[:0]
		ps.dirty &^= dirtyConstantBuffers
	}

	return resultIndexBuffer && resultVertexBuffer
}

// bindCompiled resolves the snapshot to a cached pipeline object and binds
// it. The pipeline is re-bound on every call, dirty or not: per-draw dynamic
// constant buffer offsets only reach the backend through the bind. A clean
// re-bind costs no compilation and issues no incremental calls.
func (ps *PipelineState) bindCompiled(compiler PipelineCompiler) bool {
	profiler := core.Profiler()

	pipeline, err := ps.device.Pipelines().Acquire(ps)
	if err != nil {
		core.LogError("PipelineState.Bind: %s", err)
		return false
	}

	if !compiler.BindPipeline(pipeline, ps.dynamicOffsets()) {
		core.LogError("PipelineState.Bind: pipeline bind rejected")
	}
	profiler.BindPipelineCount++

	resultIndexBuffer := true
	if ps.isDirty(dirtyIndexBuffer) {
		resultIndexBuffer = compiler.BindIndexBuffer(ps.indexBuffer)
		profiler.BindIndexBufferCount++
	}

	resultVertexBuffer := true
	if ps.isDirty(dirtyVertexBuffer) {
		resultVertexBuffer = compiler.BindVertexBuffer(ps.vertexBuffer)
		profiler.BindVertexBufferCount++
	}

	ps.samplers = nil
	ps.textures = nil
	ps.constantBuffers = ps.constantBuffers[:0]
	ps.dirty = 0

	return resultIndexBuffer && resultVertexBuffer
}

// dynamicOffsets collects the per-draw offsets of bound dynamic constant
// buffers, in binding order.
func (ps *PipelineState) dynamicOffsets() []uint32 {
	var offsets []uint32
	for _, binding := range ps.constantBuffers {
		if binding.Buffer.IsDynamic() {
			offsets = append(offsets, binding.Buffer.OffsetDynamic())
		}
	}
	return offsets
}
