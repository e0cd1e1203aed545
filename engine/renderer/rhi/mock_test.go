package rhi

import (
	"fmt"
	"sync"
)

// Test doubles for the backend seam: a recording context implementing each
// bind capability, plus a scriptable backend for device negotiation tests.

type fakeBuffer struct {
	size      uint64
	dynamic   bool
	mapOffset uint64
	mapSize   uint64
	mapped    bool
	flushes   [][2]uint64
	destroyed bool
}

type fakeContext struct {
	mu      sync.Mutex
	limits  Limits
	events  *[]string
	buffers []*fakeBuffer

	waitIdleCount int
	destroyed     bool
}

func (c *fakeContext) record(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.events != nil {
		*c.events = append(*c.events, event)
	}
}

func (c *fakeContext) Limits() Limits { return c.limits }

func (c *fakeContext) WaitIdle() error {
	c.mu.Lock()
	c.waitIdleCount++
	c.mu.Unlock()
	c.record("wait_idle")
	return nil
}

func (c *fakeContext) Destroy() error {
	c.destroyed = true
	return nil
}

func (c *fakeContext) CreateBuffer(size uint64, dynamic bool) (interface{}, error) {
	buffer := &fakeBuffer{size: size, dynamic: dynamic}
	c.buffers = append(c.buffers, buffer)
	return buffer, nil
}

func (c *fakeContext) MapBuffer(buffer interface{}, offset, size uint64) ([]byte, error) {
	b := buffer.(*fakeBuffer)
	b.mapped = true
	b.mapOffset = offset
	b.mapSize = size
	return make([]byte, size), nil
}

func (c *fakeContext) UnmapBuffer(buffer interface{}) error {
	buffer.(*fakeBuffer).mapped = false
	return nil
}

func (c *fakeContext) FlushBuffer(buffer interface{}, offset, size uint64) error {
	b := buffer.(*fakeBuffer)
	b.flushes = append(b.flushes, [2]uint64{offset, size})
	return nil
}

func (c *fakeContext) DestroyBuffer(buffer interface{}) error {
	buffer.(*fakeBuffer).destroyed = true
	return nil
}

// fakeBinder records incremental bind calls in arrival order.
type fakeBinder struct {
	fakeContext
	calls []string

	indexResult  bool
	vertexResult bool

	lastViewport        Viewport
	lastTopology        PrimitiveTopology
	lastConstantBuffers []ConstantBufferBinding
}

func newFakeBinder() *fakeBinder {
	return &fakeBinder{indexResult: true, vertexResult: true}
}

func (b *fakeBinder) call(name string) { b.calls = append(b.calls, name) }

func (b *fakeBinder) SetViewport(v Viewport) bool {
	b.call("viewport")
	b.lastViewport = v
	return true
}

func (b *fakeBinder) BindVertexShader(resource interface{}) bool {
	b.call("vertex_shader")
	return true
}

func (b *fakeBinder) BindPixelShader(resource interface{}) bool {
	b.call("pixel_shader")
	return true
}

func (b *fakeBinder) SetPrimitiveTopology(topology PrimitiveTopology) bool {
	b.call("topology")
	b.lastTopology = topology
	return true
}

func (b *fakeBinder) SetInputLayout(layout *InputLayout) bool {
	b.call("input_layout")
	return true
}

func (b *fakeBinder) SetCullMode(mode CullMode) bool {
	b.call("cull_mode")
	return true
}

func (b *fakeBinder) SetFillMode(mode FillMode) bool {
	b.call("fill_mode")
	return true
}

func (b *fakeBinder) BindSamplers(startSlot uint32, samplers []*Sampler) bool {
	b.call("samplers")
	return true
}

func (b *fakeBinder) BindTextures(startSlot uint32, textures []*Texture) bool {
	b.call("textures")
	return true
}

func (b *fakeBinder) BindIndexBuffer(buffer *IndexBuffer) bool {
	b.call("index_buffer")
	return b.indexResult
}

func (b *fakeBinder) BindVertexBuffer(buffer *VertexBuffer) bool {
	b.call("vertex_buffer")
	return b.vertexResult
}

func (b *fakeBinder) BindConstantBuffers(slot uint32, scope BufferScope, buffers []*ConstantBuffer) bool {
	b.call("constant_buffers")
	for _, buffer := range buffers {
		b.lastConstantBuffers = append(b.lastConstantBuffers, ConstantBufferBinding{Buffer: buffer, Slot: slot, Scope: scope})
	}
	return true
}

// fakeCompiler implements the explicit-object capability without a GPU.
type fakeCompiler struct {
	fakeContext

	compileCount int
	compileErr   error

	boundPipelines []*Pipeline
	lastOffsets    []uint32
	destroyedCount int
}

func newFakeCompiler() *fakeCompiler {
	c := &fakeCompiler{}
	events := []string{}
	c.events = &events
	return c
}

func (c *fakeCompiler) CompilePipeline(state *PipelineState) (CompiledPipeline, error) {
	if c.compileErr != nil {
		return CompiledPipeline{}, c.compileErr
	}
	c.mu.Lock()
	c.compileCount++
	n := c.compileCount
	c.mu.Unlock()
	c.record("compile")
	return CompiledPipeline{Pipeline: fmt.Sprintf("pso-%d", n)}, nil
}

func (c *fakeCompiler) BindPipeline(pipeline *Pipeline, dynamicOffsets []uint32) bool {
	c.boundPipelines = append(c.boundPipelines, pipeline)
	c.lastOffsets = dynamicOffsets
	c.record("bind_pipeline")
	return true
}

func (c *fakeCompiler) BindIndexBuffer(buffer *IndexBuffer) bool {
	c.record("index_buffer")
	return true
}

func (c *fakeCompiler) BindVertexBuffer(buffer *VertexBuffer) bool {
	c.record("vertex_buffer")
	return true
}

func (c *fakeCompiler) DestroyPipeline(pipeline *Pipeline) error {
	c.mu.Lock()
	c.destroyedCount++
	c.mu.Unlock()
	c.record("destroy_pipeline")
	return nil
}

type createAttempt struct {
	level FeatureLevel
	flags ContextFlags
}

// fakeBackend scripts context creation per feature level.
type fakeBackend struct {
	name     string
	adapters []Adapter
	createFn func(level FeatureLevel, flags ContextFlags) (Context, error)
	attempts []createAttempt
}

func (b *fakeBackend) Name() string {
	if b.name == "" {
		return "fake"
	}
	return b.name
}

func (b *fakeBackend) EnumerateAdapters() ([]Adapter, error) {
	return b.adapters, nil
}

func (b *fakeBackend) CreateContext(adapter Adapter, level FeatureLevel, flags ContextFlags) (Context, error) {
	b.attempts = append(b.attempts, createAttempt{level: level, flags: flags})
	return b.createFn(level, flags)
}

func singleAdapter() []Adapter {
	return []Adapter{{Name: "Fake GPU", VendorID: 0x1234, DeviceID: 0x5678, Discrete: true}}
}

func newBinderDevice(binder *fakeBinder) *Device {
	backend := &fakeBackend{
		adapters: singleAdapter(),
		createFn: func(level FeatureLevel, flags ContextFlags) (Context, error) {
			return binder, nil
		},
	}
	device, err := NewDevice(backend, DeviceOptions{})
	if err != nil {
		panic(err)
	}
	return device
}

func newCompilerDevice(compiler *fakeCompiler) *Device {
	backend := &fakeBackend{
		adapters: singleAdapter(),
		createFn: func(level FeatureLevel, flags ContextFlags) (Context, error) {
			return compiler, nil
		},
	}
	device, err := NewDevice(backend, DeviceOptions{})
	if err != nil {
		panic(err)
	}
	return device
}

func testShader(name string, stages ShaderStageFlags) *Shader {
	shader := NewShader(name, "main")
	if stages&StageVertex != 0 {
		shader.VertexResource = name + "_vs"
	}
	if stages&StagePixel != 0 {
		shader.PixelResource = name + "_ps"
	}
	return shader
}
