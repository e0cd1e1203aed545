package rhi

type PrimitiveTopology int

const (
	TopologyNotAssigned PrimitiveTopology = iota
	TopologyPointList
	TopologyLineList
	TopologyTriangleList
	TopologyTriangleStrip
)

type CullMode int

const (
	CullNotAssigned CullMode = iota
	CullNone
	CullFront
	CullBack
)

type FillMode int

const (
	FillNotAssigned FillMode = iota
	FillSolid
	FillWireframe
)

// BufferScope tells which shader stages a constant buffer feeds. Global
// buffers bind to both stages, which costs two backend binds on immediate
// mode backends.
type BufferScope int

const (
	ScopeVertexShader BufferScope = iota
	ScopePixelShader
	ScopeGlobal
)

type Format int

const (
	FormatUnknown Format = iota
	FormatR8Unorm
	FormatR8G8B8A8Unorm
	FormatB8G8R8A8Unorm
	FormatR16G16B16A16Float
	FormatR32Uint
	FormatR32Float
	FormatR32G32Float
	FormatR32G32B32Float
	FormatR32G32B32A32Float
	FormatD32Float
	FormatD24UnormS8Uint
)

type CompareOp int

const (
	CompareNever CompareOp = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

type BlendFactor int

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendInvSrcColor
	BlendSrcAlpha
	BlendInvSrcAlpha
	BlendDstColor
	BlendInvDstColor
	BlendDstAlpha
	BlendInvDstAlpha
	BlendBlendFactor
	BlendInvBlendFactor
)

type BlendOp int

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpRevSubtract
	BlendOpMin
	BlendOpMax
)

type StencilOp int

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilIncrSat
	StencilDecrSat
	StencilInvert
	StencilIncr
	StencilDecr
)

// Viewport in framebuffer coordinates. A zero width or height means "not
// assigned": the explicit backend then treats the viewport as a dynamic
// per-draw axis instead of baking it into the pipeline object.
type Viewport struct {
	X        float32
	Y        float32
	Width    float32
	Height   float32
	DepthMin float32
	DepthMax float32
}

func (v Viewport) IsDefined() bool {
	return v.Width != 0 && v.Height != 0
}

type Rect struct {
	Left   float32
	Top    float32
	Right  float32
	Bottom float32
}

func (r Rect) IsDefined() bool {
	return r.Width() != 0 && r.Height() != 0
}

func (r Rect) Width() float32 {
	return r.Right - r.Left
}

func (r Rect) Height() float32 {
	return r.Bottom - r.Top
}
