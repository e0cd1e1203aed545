package core

import "sync"

// ProfilerState counts backend calls issued during state binds. All counters
// are incremented on the submission thread; Reset happens between frames or
// between test cases.
type ProfilerState struct {
	BindViewportCount       uint64
	BindVertexShaderCount   uint64
	BindPixelShaderCount    uint64
	BindTopologyCount       uint64
	BindInputLayoutCount    uint64
	BindCullModeCount       uint64
	BindFillModeCount       uint64
	BindSamplerCount        uint64
	BindTextureCount        uint64
	BindIndexBufferCount    uint64
	BindVertexBufferCount   uint64
	BindConstantBufferCount uint64
	BindPipelineCount       uint64

	PipelineCacheHits   uint64
	PipelineCacheMisses uint64
}

var onceProfiler sync.Once
var profilerState *ProfilerState = nil

func Profiler() *ProfilerState {
	onceProfiler.Do(func() {
		profilerState = &ProfilerState{}
	})
	return profilerState
}

func (p *ProfilerState) Reset() {
	*p = ProfilerState{}
}
