package rhi

// FeatureLevel is the negotiated minimum capability a device context was
// created against. Backends map levels onto their own versioning (Vulkan
// API versions, GL context versions). The value is informational: beyond
// the resource limits associated with it, it never gates RHI behavior.
type FeatureLevel int

const (
	FeatureLevelUnknown FeatureLevel = iota
	FeatureLevel10
	FeatureLevel11
	FeatureLevel12
	FeatureLevel13
)

// FeatureLevels is the creation order: highest first, walk down until one
// succeeds.
var FeatureLevels = []FeatureLevel{
	FeatureLevel13,
	FeatureLevel12,
	FeatureLevel11,
	FeatureLevel10,
}

func (l FeatureLevel) String() string {
	switch l {
	case FeatureLevel10:
		return "1.0"
	case FeatureLevel11:
		return "1.1"
	case FeatureLevel12:
		return "1.2"
	case FeatureLevel13:
		return "1.3"
	}
	return "unknown"
}

type ContextFlags uint32

const (
	// FlagValidation asks for the backend debug/validation layer. Optional:
	// creation failing only because of it triggers one retry without.
	FlagValidation ContextFlags = 1 << iota
)

// Adapter identifies a physical graphics adapter reported by a backend.
type Adapter struct {
	Name     string
	VendorID uint32
	DeviceID uint32
	Discrete bool
	Native   interface{}
}

// Limits are the resource limits of the created context.
type Limits struct {
	MaxTextureDimension2D            uint32
	MaxConstantBufferRange           uint32
	MinConstantBufferOffsetAlignment uint32
}

// Backend creates device contexts. Implemented by rhi/vulkan and rhi/opengl.
type Backend interface {
	Name() string
	EnumerateAdapters() ([]Adapter, error)
	CreateContext(adapter Adapter, level FeatureLevel, flags ContextFlags) (Context, error)
}

// Context is a logical device connection. Every Context additionally
// implements exactly one of IncrementalBinder or PipelineCompiler; the
// pipeline state dispatches on which one it finds.
type Context interface {
	Limits() Limits

	// WaitIdle blocks until the device retired all submitted work. Required
	// before destroying anything the GPU may still reference.
	WaitIdle() error
	Destroy() error

	// Buffer primitives consumed by ConstantBuffer.
	CreateBuffer(size uint64, dynamic bool) (interface{}, error)
	MapBuffer(buffer interface{}, offset, size uint64) ([]byte, error)
	UnmapBuffer(buffer interface{}) error
	FlushBuffer(buffer interface{}, offset, size uint64) error
	DestroyBuffer(buffer interface{}) error
}

// IncrementalBinder is the immediate-mode capability: each dirty field of a
// pipeline state becomes one direct call against the persistent context.
// Every method reports whether the backend accepted the bind; failures are
// absorbed per field, never fatal for the frame.
type IncrementalBinder interface {
	SetViewport(v Viewport) bool
	BindVertexShader(resource interface{}) bool
	BindPixelShader(resource interface{}) bool
	SetPrimitiveTopology(topology PrimitiveTopology) bool
	SetInputLayout(layout *InputLayout) bool
	SetCullMode(mode CullMode) bool
	SetFillMode(mode FillMode) bool
	BindSamplers(startSlot uint32, samplers []*Sampler) bool
	BindTextures(startSlot uint32, textures []*Texture) bool
	BindIndexBuffer(buffer *IndexBuffer) bool
	BindVertexBuffer(buffer *VertexBuffer) bool
	BindConstantBuffers(slot uint32, scope BufferScope, buffers []*ConstantBuffer) bool
}

// CompiledPipeline is what a PipelineCompiler hands back: opaque backend
// handles owned by the Pipeline wrapper.
type CompiledPipeline struct {
	Pipeline      interface{}
	Layout        interface{}
	DescriptorSet interface{}
}

// PipelineCompiler is the explicit-object capability: the whole state
// snapshot compiles into an immutable object bound in one operation.
type PipelineCompiler interface {
	CompilePipeline(state *PipelineState) (CompiledPipeline, error)
	BindPipeline(pipeline *Pipeline, dynamicOffsets []uint32) bool
	BindIndexBuffer(buffer *IndexBuffer) bool
	BindVertexBuffer(buffer *VertexBuffer) bool
	DestroyPipeline(pipeline *Pipeline) error
}
