package rhi

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"github.com/TQwan/SpartanEngine/engine/containers"
	"github.com/TQwan/SpartanEngine/engine/core"
)

const retiredPipelineQueueSize = 256

// Pipeline wraps one immutable backend pipeline object compiled from a
// frozen PipelineState snapshot. Never mutated after construction.
type Pipeline struct {
	Object

	device   *Device
	state    *PipelineState
	hash     uint64
	compiled CompiledPipeline
}

// NewPipeline compiles the given state into a backend pipeline object. A
// missing vertex shader is a construction-time failure; the instance must
// not be used when an error is returned.
func NewPipeline(device *Device, state *PipelineState) (*Pipeline, error) {
	if !device.IsInitialized() {
		return nil, core.ErrDeviceNotReady
	}
	compiler, ok := device.compiler()
	if !ok {
		return nil, fmt.Errorf("pipeline: backend '%s' has no pipeline compiler", device.Backend().Name())
	}
	if state.VertexShader() == nil || !state.VertexShader().HasVertexStage() {
		return nil, fmt.Errorf("pipeline: vertex shader is invalid: %w", core.ErrPipelineCompile)
	}

	snapshot := state.snapshot()
	pipeline := &Pipeline{
		Object: NewObject(pipelineName(snapshot)),
		device: device,
		state:  snapshot,
		hash:   snapshot.ComputeHash(),
	}

	compiled, err := compiler.CompilePipeline(snapshot)
	if err != nil {
		return nil, fmt.Errorf("pipeline '%s': %w", pipeline.Name, err)
	}
	pipeline.compiled = compiled

	core.LogDebug("pipeline '%s' compiled", pipeline.Name)
	return pipeline, nil
}

// pipelineName builds the diagnostic tag from the two shader names.
func pipelineName(state *PipelineState) string {
	vs := "null"
	if s := state.VertexShader(); s != nil && s.Name != "" {
		vs = s.Name
	}
	px := "null"
	if s := state.PixelShader(); s != nil && s.Name != "" {
		px = s.Name
	}
	return vs + "-" + px
}

func (p *Pipeline) State() *PipelineState       { return p.state }
func (p *Pipeline) Hash() uint64                { return p.hash }
func (p *Pipeline) Compiled() CompiledPipeline  { return p.compiled }
func (p *Pipeline) Handle() interface{}         { return p.compiled.Pipeline }
func (p *Pipeline) LayoutHandle() interface{}   { return p.compiled.Layout }
func (p *Pipeline) DescriptorSet() interface{}  { return p.compiled.DescriptorSet }

// Destroy blocks until the device confirms no in-flight work references the
// object, then releases it. Destroying while in flight is a use-after-free
// at the hardware level.
func (p *Pipeline) Destroy() error {
	compiler, ok := p.device.compiler()
	if !ok {
		return nil
	}
	if err := p.device.WaitIdle(); err != nil {
		return fmt.Errorf("pipeline '%s': wait idle: %w", p.Name, err)
	}
	return compiler.DestroyPipeline(p)
}

// snapshot freezes the fields that participate in pipeline compilation.
func (ps *PipelineState) snapshot() *PipelineState {
	frozen := *ps
	frozen.renderTargetFormats = append([]Format(nil), ps.renderTargetFormats...)
	frozen.samplers = nil
	frozen.textures = nil
	frozen.constantBuffers = nil
	frozen.dirty = 0
	return &frozen
}

// ComputeHash is the pipeline cache identity: shader identities, all
// fixed-function values, and the render-target format set. Render-target
// texture identity is deliberately excluded.
func (ps *PipelineState) ComputeHash() uint64 {
	h := fnv.New64a()
	var scratch [8]byte

	writeU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:4], v)
		h.Write(scratch[:4])
	}
	writeF32 := func(v float32) {
		writeU32(math.Float32bits(v))
	}
	writeBool := func(v bool) {
		if v {
			writeU32(1)
		} else {
			writeU32(0)
		}
	}
	writeString := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}

	if s := ps.vertexShader; s != nil {
		writeString(s.ID)
	}
	if s := ps.pixelShader; s != nil {
		writeString(s.ID)
	}
	if l := ps.inputLayout; l != nil {
		writeString(l.ID)
		writeU32(l.Stride)
	}

	writeU32(uint32(ps.topology))
	writeU32(uint32(ps.cullMode))
	writeU32(uint32(ps.fillMode))

	if rs := ps.rasterizerState; rs != nil {
		writeU32(uint32(rs.FillMode()))
		writeU32(uint32(rs.CullMode()))
		writeF32(rs.LineWidth())
		writeBool(rs.MultiSampleEnabled())
	}
	if bs := ps.blendState; bs != nil {
		writeBool(bs.BlendEnabled())
		writeU32(uint32(bs.SourceBlend()))
		writeU32(uint32(bs.DestBlend()))
		writeU32(uint32(bs.BlendOp()))
		writeU32(uint32(bs.SourceBlendAlpha()))
		writeU32(uint32(bs.DestBlendAlpha()))
		writeU32(uint32(bs.BlendOpAlpha()))
		writeF32(bs.BlendFactor())
	}
	if ds := ps.depthStencilState; ds != nil {
		writeBool(ds.DepthTestEnabled())
		writeBool(ds.DepthWriteEnabled())
		writeU32(uint32(ds.DepthFunction()))
		writeBool(ds.StencilTestEnabled())
		writeU32(uint32(ds.StencilFunction()))
		writeU32(uint32(ds.StencilFailOperation()))
		writeU32(uint32(ds.StencilDepthFailOperation()))
		writeU32(uint32(ds.StencilPassOperation()))
	}

	writeF32(ps.viewport.X)
	writeF32(ps.viewport.Y)
	writeF32(ps.viewport.Width)
	writeF32(ps.viewport.Height)
	writeF32(ps.scissor.Left)
	writeF32(ps.scissor.Top)
	writeF32(ps.scissor.Right)
	writeF32(ps.scissor.Bottom)
	writeBool(ps.dynamicScissor)
	writeU32(uint32(ps.dynamicConstantBufferSlot))

	for _, format := range ps.renderTargetFormats {
		writeU32(uint32(format))
	}

	return h.Sum64()
}

// PipelineCache compiles each distinct state combination once and reuses
// the object thereafter. Owned by the device so that destruction order is
// enforced in one place (wait idle, then release).
type PipelineCache struct {
	device *Device

	mu        sync.Mutex
	pipelines map[uint64]*Pipeline
	retired   *containers.RingQueue[*Pipeline]
}

func newPipelineCache(device *Device) *PipelineCache {
	return &PipelineCache{
		device:    device,
		pipelines: make(map[uint64]*Pipeline),
		retired:   containers.NewRingQueue[*Pipeline](retiredPipelineQueueSize),
	}
}

// Acquire returns the pipeline for the state's identity key, compiling it
// on the first miss.
func (c *PipelineCache) Acquire(state *PipelineState) (*Pipeline, error) {
	hash := state.ComputeHash()

	c.mu.Lock()
	pipeline, ok := c.pipelines[hash]
	c.mu.Unlock()
	if ok {
		core.Profiler().PipelineCacheHits++
		return pipeline, nil
	}

	core.Profiler().PipelineCacheMisses++
	pipeline, err := NewPipeline(c.device, state)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.pipelines[hash] = pipeline
	c.mu.Unlock()
	return pipeline, nil
}

func (c *PipelineCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pipelines)
}

// InvalidateShader retires every cached pipeline built from the given
// shader id. Used by hot reload. Returns how many entries were evicted.
func (c *PipelineCache) InvalidateShader(shaderID string) int {
	// Overflow victims are destroyed only after the lock is released;
	// Acquire may be writing the map from the submission thread.
	var overflow []*Pipeline

	c.mu.Lock()
	evicted := 0
	for hash, pipeline := range c.pipelines {
		state := pipeline.State()
		match := false
		if s := state.VertexShader(); s != nil && s.ID == shaderID {
			match = true
		}
		if s := state.PixelShader(); s != nil && s.ID == shaderID {
			match = true
		}
		if match {
			delete(c.pipelines, hash)
			if err := c.retired.Enqueue(pipeline); err != nil {
				// Queue full: destroy now, paying the idle wait.
				overflow = append(overflow, pipeline)
			}
			evicted++
		}
	}
	c.mu.Unlock()

	for _, pipeline := range overflow {
		if err := pipeline.Destroy(); err != nil {
			core.LogWarn("pipeline cache: destroying '%s': %s", pipeline.Name, err)
		}
	}

	if evicted > 0 {
		core.LogInfo("pipeline cache: evicted %d entries for shader %s", evicted, shaderID)
	}
	return evicted
}

// DrainRetired destroys all retired pipelines, waiting for the device once
// up front. Called at frame end.
func (c *PipelineCache) DrainRetired() error {
	c.mu.Lock()
	if c.retired.IsEmpty() {
		c.mu.Unlock()
		return nil
	}
	var pending []*Pipeline
	for !c.retired.IsEmpty() {
		pipeline, err := c.retired.Dequeue()
		if err != nil {
			break
		}
		pending = append(pending, pipeline)
	}
	c.mu.Unlock()

	if err := c.device.WaitIdle(); err != nil {
		return err
	}
	compiler, ok := c.device.compiler()
	if !ok {
		return nil
	}
	for _, pipeline := range pending {
		if err := compiler.DestroyPipeline(pipeline); err != nil {
			core.LogWarn("pipeline cache: destroying '%s': %s", pipeline.Name, err)
		}
	}
	return nil
}

// Clear destroys every cached pipeline. Used at device teardown.
func (c *PipelineCache) Clear() error {
	if err := c.DrainRetired(); err != nil {
		return err
	}

	c.mu.Lock()
	pipelines := make([]*Pipeline, 0, len(c.pipelines))
	for hash, pipeline := range c.pipelines {
		pipelines = append(pipelines, pipeline)
		delete(c.pipelines, hash)
	}
	c.mu.Unlock()

	for _, pipeline := range pipelines {
		if err := pipeline.Destroy(); err != nil {
			return err
		}
	}
	return nil
}
