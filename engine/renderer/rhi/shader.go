package rhi

import "sync/atomic"

type ShaderStageFlags uint8

const (
	StageVertex ShaderStageFlags = 1 << iota
	StagePixel
)

// VertexAttribute describes one input-layout slot as reflected from a
// vertex shader.
type VertexAttribute struct {
	Name     string
	Location uint32
	Binding  uint32
	Format   Format
	Offset   uint32
}

// InputLayout is the reflected vertex input description of a shader.
// Internal carries the backend object (a VAO id on GL, nothing on Vulkan
// where the description is baked into the pipeline).
type InputLayout struct {
	Object
	Attributes []VertexAttribute
	Stride     uint32
	Internal   interface{}
}

func NewInputLayout(name string, stride uint32, attributes []VertexAttribute) *InputLayout {
	return &InputLayout{
		Object:     NewObject(name),
		Attributes: attributes,
		Stride:     stride,
	}
}

// BufferBindingDesc is a reflected constant buffer declaration.
type BufferBindingDesc struct {
	Name  string
	Slot  uint32
	Size  uint32
	Stage ShaderStageFlags
}

// ResourceBindingDesc is a reflected texture or sampler declaration.
type ResourceBindingDesc struct {
	Name  string
	Slot  uint32
	Stage ShaderStageFlags
}

// ShaderReflection is the binding interface a compiled shader expects.
// The explicit backend derives descriptor set layouts from it.
type ShaderReflection struct {
	ConstantBuffers []BufferBindingDesc
	Textures        []ResourceBindingDesc
	Samplers        []ResourceBindingDesc
}

// Shader is an externally compiled shader object, treated as a collaborator:
// the RHI consumes its stage resources, entry point, input layout and the
// optional constant buffer it wants bound alongside itself.
type Shader struct {
	Object
	EntryPoint string

	// Compiled stage handles. A shader may carry one or both stages.
	VertexResource interface{}
	PixelResource  interface{}

	InputLayout *InputLayout

	// Optional buffer the shader wants bound whenever it is set.
	ConstantBuffer *ConstantBuffer
	BufferSlot     uint32
	BufferScope    BufferScope

	Reflection ShaderReflection

	// SourcePath is where the shader source lives on disk, used by the
	// hot-reload watcher. Empty for baked-in shaders.
	SourcePath string

	stale atomic.Bool
}

func NewShader(name, entryPoint string) *Shader {
	return &Shader{
		Object:     NewObject(name),
		EntryPoint: entryPoint,
	}
}

func (s *Shader) HasVertexStage() bool {
	return s.VertexResource != nil
}

func (s *Shader) HasPixelStage() bool {
	return s.PixelResource != nil
}

// MarkStale flags the shader for recompilation. Called from the watcher
// goroutine, read from the submission thread.
func (s *Shader) MarkStale() {
	s.stale.Store(true)
}

func (s *Shader) ClearStale() {
	s.stale.Store(false)
}

func (s *Shader) IsStale() bool {
	return s.stale.Load()
}
