package rhi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TQwan/SpartanEngine/engine/core"
)

func TestPipelineRequiresVertexShader(t *testing.T) {
	compiler := newFakeCompiler()
	device := newCompilerDevice(compiler)
	state := NewPipelineState(device)

	_, err := NewPipeline(device, state)
	assert.ErrorIs(t, err, core.ErrPipelineCompile)
	assert.Zero(t, compiler.compileCount, "compilation must not be attempted without a vertex stage")

	// A pixel-only shader is just as invalid.
	require.True(t, state.SetShader(testShader("post", StagePixel)))
	_, err = NewPipeline(device, state)
	assert.ErrorIs(t, err, core.ErrPipelineCompile)
}

func TestPipelineDiagnosticName(t *testing.T) {
	compiler := newFakeCompiler()
	device := newCompilerDevice(compiler)

	state := NewPipelineState(device)
	require.True(t, state.SetShader(testShader("quad_v", StageVertex)))
	require.True(t, state.SetShader(testShader("quad_p", StagePixel)))
	pipeline, err := NewPipeline(device, state)
	require.NoError(t, err)
	assert.Equal(t, "quad_v-quad_p", pipeline.Name)

	depthOnly := NewPipelineState(device)
	require.True(t, depthOnly.SetShader(testShader("depth_v", StageVertex)))
	pipeline, err = NewPipeline(device, depthOnly)
	require.NoError(t, err)
	assert.Equal(t, "depth_v-null", pipeline.Name)
}

func TestPipelineCacheReuse(t *testing.T) {
	core.Profiler().Reset()
	compiler := newFakeCompiler()
	device := newCompilerDevice(compiler)
	cache := device.Pipelines()
	require.NotNil(t, cache)

	shader := testShader("mesh", StageVertex|StagePixel)
	state := NewPipelineState(device)
	require.True(t, state.SetShader(shader))
	state.SetViewport(1280, 720)

	first, err := cache.Acquire(state)
	require.NoError(t, err)
	second, err := cache.Acquire(state)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, compiler.compileCount)
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, uint64(1), core.Profiler().PipelineCacheHits)
	assert.Equal(t, uint64(1), core.Profiler().PipelineCacheMisses)
}

func TestPipelineCacheKeyCoversFixedFunctionValues(t *testing.T) {
	compiler := newFakeCompiler()
	device := newCompilerDevice(compiler)
	cache := device.Pipelines()

	shader := testShader("mesh", StageVertex|StagePixel)
	state := NewPipelineState(device)
	require.True(t, state.SetShader(shader))
	require.True(t, state.SetBlendState(NewBlendState("opaque", false,
		BlendOne, BlendZero, BlendOpAdd, BlendOne, BlendZero, BlendOpAdd, 0)))

	_, err := cache.Acquire(state)
	require.NoError(t, err)

	// Any fixed-function value change is a different pipeline object.
	require.True(t, state.SetBlendState(NewBlendState("alpha", true,
		BlendSrcAlpha, BlendInvSrcAlpha, BlendOpAdd, BlendOne, BlendInvSrcAlpha, BlendOpAdd, 0)))
	_, err = cache.Acquire(state)
	require.NoError(t, err)
	assert.Equal(t, 2, compiler.compileCount)
	assert.Equal(t, 2, cache.Len())
}

func TestPipelineCacheKeyUsesFormatsNotTargets(t *testing.T) {
	shader := testShader("mesh", StageVertex|StagePixel)
	device := newCompilerDevice(newFakeCompiler())

	a := NewPipelineState(device)
	require.True(t, a.SetShader(shader))
	a.SetRenderTargetFormats(FormatR8G8B8A8Unorm, FormatD32Float)

	b := NewPipelineState(device)
	require.True(t, b.SetShader(shader))
	b.SetRenderTargetFormats(FormatR8G8B8A8Unorm, FormatD32Float)

	// Same format set, regardless of which textures back the targets.
	assert.Equal(t, a.ComputeHash(), b.ComputeHash())

	b.SetRenderTargetFormats(FormatR16G16B16A16Float, FormatD32Float)
	assert.NotEqual(t, a.ComputeHash(), b.ComputeHash())
}

func TestPipelineDestroyWaitsForIdle(t *testing.T) {
	compiler := newFakeCompiler()
	device := newCompilerDevice(compiler)

	state := NewPipelineState(device)
	require.True(t, state.SetShader(testShader("mesh", StageVertex)))
	pipeline, err := NewPipeline(device, state)
	require.NoError(t, err)

	*compiler.events = nil
	require.NoError(t, pipeline.Destroy())
	assert.Equal(t, []string{"wait_idle", "destroy_pipeline"}, *compiler.events)
}

func TestBindCompiledUsesCache(t *testing.T) {
	core.Profiler().Reset()
	compiler := newFakeCompiler()
	device := newCompilerDevice(compiler)
	state := NewPipelineState(device)

	buffer := NewConstantBuffer(device, "per_draw", true)
	require.NoError(t, buffer.Create(64, 16))
	require.True(t, buffer.SetOffsetIndexDynamic(5))

	require.True(t, state.SetShader(testShader("mesh", StageVertex|StagePixel)))
	require.True(t, state.SetConstantBuffer(buffer, 0, ScopeVertexShader))
	require.True(t, state.SetIndexBuffer(&IndexBuffer{Object: NewObject("ib"), Format: FormatR32Uint}))
	require.True(t, state.SetVertexBuffer(&VertexBuffer{Object: NewObject("vb"), Stride: 32}))

	assert.True(t, state.Bind())

	require.Len(t, compiler.boundPipelines, 1)
	assert.Equal(t, []uint32{320}, compiler.lastOffsets)
	assert.Equal(t, uint64(1), core.Profiler().BindPipelineCount)

	// Second bind with identical fixed-function state reuses the object, no
	// recompile. The next draw re-registers the buffer with a new dynamic
	// offset, which reaches the backend through the re-bind.
	require.True(t, buffer.SetOffsetIndexDynamic(2))
	require.True(t, state.SetConstantBuffer(buffer, 0, ScopeVertexShader))
	assert.True(t, state.Bind())
	require.Len(t, compiler.boundPipelines, 2)
	assert.Same(t, compiler.boundPipelines[0], compiler.boundPipelines[1])
	assert.Equal(t, []uint32{128}, compiler.lastOffsets)
	assert.Equal(t, 1, compiler.compileCount)
}

func TestInvalidateShaderRetiresPipelines(t *testing.T) {
	compiler := newFakeCompiler()
	device := newCompilerDevice(compiler)
	cache := device.Pipelines()

	meshShader := testShader("mesh", StageVertex|StagePixel)
	skyShader := testShader("sky", StageVertex|StagePixel)

	meshState := NewPipelineState(device)
	require.True(t, meshState.SetShader(meshShader))
	_, err := cache.Acquire(meshState)
	require.NoError(t, err)

	skyState := NewPipelineState(device)
	require.True(t, skyState.SetShader(skyShader))
	_, err = cache.Acquire(skyState)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.InvalidateShader(meshShader.ID))
	assert.Equal(t, 1, cache.Len())
	assert.Zero(t, compiler.destroyedCount, "eviction defers destruction to the drain")

	require.NoError(t, cache.DrainRetired())
	assert.Equal(t, 1, compiler.destroyedCount)

	// Draining again is a no-op.
	*compiler.events = nil
	require.NoError(t, cache.DrainRetired())
	assert.Empty(t, *compiler.events)
}

func TestInvalidateShaderSurvivesConcurrentAcquire(t *testing.T) {
	compiler := newFakeCompiler()
	device := newCompilerDevice(compiler)
	cache := device.Pipelines()

	reload := testShader("reload", StageVertex)
	state := NewPipelineState(device)
	require.True(t, state.SetShader(reload))

	// More entries than the retired queue holds, so eviction spills into
	// immediate destruction.
	total := retiredPipelineQueueSize + 8
	for i := 0; i < total; i++ {
		state.SetViewport(float32(i+1), 720)
		_, err := cache.Acquire(state)
		require.NoError(t, err)
	}

	other := NewPipelineState(device)
	require.True(t, other.SetShader(testShader("steady", StageVertex)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 64; i++ {
			other.SetViewport(float32(i+1), 480)
			if _, err := cache.Acquire(other); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	evicted := cache.InvalidateShader(reload.ID)
	<-done

	assert.Equal(t, total, evicted)
	assert.Equal(t, 8, compiler.destroyedCount, "spill past the retired queue is destroyed immediately")
	assert.Equal(t, 64, cache.Len())

	require.NoError(t, cache.DrainRetired())
	assert.Equal(t, total, compiler.destroyedCount)
}

func TestDeviceDestroyClearsPipelines(t *testing.T) {
	compiler := newFakeCompiler()
	device := newCompilerDevice(compiler)

	state := NewPipelineState(device)
	require.True(t, state.SetShader(testShader("mesh", StageVertex)))
	_, err := device.Pipelines().Acquire(state)
	require.NoError(t, err)

	require.NoError(t, device.Destroy())
	assert.Equal(t, 1, compiler.destroyedCount)
	assert.True(t, compiler.destroyed)
	assert.False(t, device.IsInitialized())
}
