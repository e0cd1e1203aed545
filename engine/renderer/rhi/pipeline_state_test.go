package rhi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TQwan/SpartanEngine/engine/core"
)

func TestBindIssuesOnlyDirtyFieldsInOrder(t *testing.T) {
	core.Profiler().Reset()
	binder := newFakeBinder()
	device := newBinderDevice(binder)
	state := NewPipelineState(device)

	shader := testShader("quad", StageVertex|StagePixel)
	state.SetPrimitiveTopology(TopologyTriangleList)
	require.True(t, state.SetShader(shader))
	state.SetViewport(1920, 1080)

	assert.True(t, state.Bind())

	// Fixed bind order, and nothing for the untouched fields.
	assert.Equal(t, []string{"viewport", "vertex_shader", "pixel_shader", "topology"}, binder.calls)
	assert.Equal(t, Viewport{Width: 1920, Height: 1080, DepthMax: 1}, binder.lastViewport)

	profiler := core.Profiler()
	assert.Equal(t, uint64(1), profiler.BindViewportCount)
	assert.Equal(t, uint64(1), profiler.BindVertexShaderCount)
	assert.Equal(t, uint64(1), profiler.BindPixelShaderCount)
	assert.Equal(t, uint64(1), profiler.BindTopologyCount)
	assert.Equal(t, uint64(0), profiler.BindSamplerCount)
	assert.Equal(t, uint64(0), profiler.BindTextureCount)
}

func TestRepeatedBindDoesNoWork(t *testing.T) {
	binder := newFakeBinder()
	device := newBinderDevice(binder)
	state := NewPipelineState(device)

	state.SetPrimitiveTopology(TopologyTriangleStrip)
	state.SetViewport(800, 600)
	require.True(t, state.Bind())

	issued := len(binder.calls)
	assert.True(t, state.Bind())
	assert.Len(t, binder.calls, issued, "a clean state must not touch the backend")
}

func TestEqualValueSettersStayClean(t *testing.T) {
	binder := newFakeBinder()
	device := newBinderDevice(binder)
	state := NewPipelineState(device)

	state.SetPrimitiveTopology(TopologyLineList)
	state.SetCullMode(CullBack)
	state.SetFillMode(FillWireframe)
	state.SetViewport(640, 480)
	require.True(t, state.Bind())
	issued := len(binder.calls)

	// Same values again: no dirty bits, next Bind issues nothing.
	state.SetPrimitiveTopology(TopologyLineList)
	state.SetCullMode(CullBack)
	state.SetFillMode(FillWireframe)
	state.SetViewport(640, 480)
	assert.True(t, state.Bind())
	assert.Len(t, binder.calls, issued)
}

func TestSetShaderCascadesLayoutAndBuffer(t *testing.T) {
	binder := newFakeBinder()
	device := newBinderDevice(binder)
	state := NewPipelineState(device)

	buffer := NewConstantBuffer(device, "frame_data", true)
	require.NoError(t, buffer.Create(64, 4))

	shader := testShader("mesh", StageVertex|StagePixel)
	shader.InputLayout = NewInputLayout("mesh_layout", 32, []VertexAttribute{
		{Name: "POSITION", Location: 0, Format: FormatR32G32B32Float, Offset: 0},
	})
	shader.ConstantBuffer = buffer
	shader.BufferSlot = 2
	shader.BufferScope = ScopeVertexShader

	require.True(t, state.SetShader(shader))
	assert.Equal(t, shader.InputLayout, state.InputLayout())
	assert.Equal(t, int32(2), state.DynamicConstantBufferSlot())

	assert.True(t, state.Bind())
	assert.Contains(t, binder.calls, "input_layout")
	assert.Contains(t, binder.calls, "constant_buffers")
	require.Len(t, binder.lastConstantBuffers, 1)
	assert.Equal(t, uint32(2), binder.lastConstantBuffers[0].Slot)
	assert.Equal(t, ScopeVertexShader, binder.lastConstantBuffers[0].Scope)
}

func TestNilResourcesAreRejected(t *testing.T) {
	binder := newFakeBinder()
	device := newBinderDevice(binder)
	state := NewPipelineState(device)

	assert.False(t, state.SetTexture(nil))
	assert.False(t, state.SetSampler(nil))
	assert.False(t, state.SetShader(nil))
	assert.False(t, state.SetIndexBuffer(nil))
	assert.False(t, state.SetVertexBuffer(nil))
	assert.False(t, state.SetConstantBuffer(nil, 0, ScopeGlobal))
	assert.False(t, state.SetInputLayout(nil))
	assert.False(t, state.SetRasterizerState(nil))
	assert.False(t, state.SetBlendState(nil))
	assert.False(t, state.SetDepthStencilState(nil))

	// Nothing was accepted, so a Bind issues nothing.
	assert.True(t, state.Bind())
	assert.Empty(t, binder.calls)
}

func TestSameBufferPointerBindsOnce(t *testing.T) {
	binder := newFakeBinder()
	device := newBinderDevice(binder)
	state := NewPipelineState(device)

	vertexBuffer := &VertexBuffer{Object: NewObject("vb"), Stride: 32, Count: 3}
	indexBuffer := &IndexBuffer{Object: NewObject("ib"), Format: FormatR32Uint, Count: 3}

	require.True(t, state.SetVertexBuffer(vertexBuffer))
	require.True(t, state.SetVertexBuffer(vertexBuffer))
	require.True(t, state.SetIndexBuffer(indexBuffer))
	require.True(t, state.SetIndexBuffer(indexBuffer))

	assert.True(t, state.Bind())
	assert.Equal(t, []string{"index_buffer", "vertex_buffer"}, binder.calls)
}

func TestBindReportsBufferFailures(t *testing.T) {
	binder := newFakeBinder()
	binder.indexResult = false
	device := newBinderDevice(binder)
	state := NewPipelineState(device)

	require.True(t, state.SetIndexBuffer(&IndexBuffer{Object: NewObject("ib"), Format: FormatR32Uint}))
	assert.False(t, state.Bind())

	// The failure is not sticky: with nothing dirty the next Bind is
	// vacuously true.
	assert.True(t, state.Bind())
}

func TestGlobalScopeCountsBothStages(t *testing.T) {
	core.Profiler().Reset()
	binder := newFakeBinder()
	device := newBinderDevice(binder)
	state := NewPipelineState(device)

	buffer := NewConstantBuffer(device, "globals", false)
	require.NoError(t, buffer.Create(16, 1))

	require.True(t, state.SetConstantBuffer(buffer, 0, ScopeGlobal))
	assert.True(t, state.Bind())
	assert.Equal(t, uint64(2), core.Profiler().BindConstantBufferCount)
}

func TestTexturesAndSamplersBatchBind(t *testing.T) {
	core.Profiler().Reset()
	binder := newFakeBinder()
	device := newBinderDevice(binder)
	state := NewPipelineState(device)

	require.True(t, state.SetTexture(&Texture{Object: NewObject("albedo")}))
	require.True(t, state.SetTexture(&Texture{Object: NewObject("normal")}))
	require.True(t, state.SetSampler(&Sampler{Object: NewObject("linear")}))

	assert.True(t, state.Bind())

	// One batched call per collection, then the lists reset.
	assert.Equal(t, []string{"samplers", "textures"}, binder.calls)
	assert.Equal(t, uint64(1), core.Profiler().BindTextureCount)
	assert.Equal(t, uint64(1), core.Profiler().BindSamplerCount)

	assert.True(t, state.Bind())
	assert.Len(t, binder.calls, 2)
}
