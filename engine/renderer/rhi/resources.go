package rhi

// Opaque collaborator resources. The RHI binds their backend handles and
// otherwise never looks inside.

type Texture struct {
	Object
	Format   Format
	Width    uint32
	Height   uint32
	Internal interface{}
}

type Sampler struct {
	Object
	Internal interface{}
}

type VertexBuffer struct {
	Object
	Stride   uint32
	Count    uint32
	Internal interface{}
}

type IndexBuffer struct {
	Object
	Format   Format
	Count    uint32
	Internal interface{}
}
