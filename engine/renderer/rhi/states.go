package rhi

// Fixed-function state objects. The RHI only ever reads them: they are
// constructed once by the renderer and referenced by pipeline states, so
// the fields stay unexported behind get-accessors.

type RasterizerState struct {
	Object
	fillMode    FillMode
	cullMode    CullMode
	lineWidth   float32
	multiSample bool
}

func NewRasterizerState(name string, fillMode FillMode, cullMode CullMode, lineWidth float32, multiSample bool) *RasterizerState {
	return &RasterizerState{
		Object:      NewObject(name),
		fillMode:    fillMode,
		cullMode:    cullMode,
		lineWidth:   lineWidth,
		multiSample: multiSample,
	}
}

func (rs *RasterizerState) FillMode() FillMode       { return rs.fillMode }
func (rs *RasterizerState) CullMode() CullMode       { return rs.cullMode }
func (rs *RasterizerState) LineWidth() float32       { return rs.lineWidth }
func (rs *RasterizerState) MultiSampleEnabled() bool { return rs.multiSample }

type BlendState struct {
	Object
	enabled       bool
	srcBlend      BlendFactor
	dstBlend      BlendFactor
	blendOp       BlendOp
	srcBlendAlpha BlendFactor
	dstBlendAlpha BlendFactor
	blendOpAlpha  BlendOp
	blendFactor   float32
}

func NewBlendState(name string, enabled bool, srcBlend, dstBlend BlendFactor, blendOp BlendOp, srcBlendAlpha, dstBlendAlpha BlendFactor, blendOpAlpha BlendOp, blendFactor float32) *BlendState {
	return &BlendState{
		Object:        NewObject(name),
		enabled:       enabled,
		srcBlend:      srcBlend,
		dstBlend:      dstBlend,
		blendOp:       blendOp,
		srcBlendAlpha: srcBlendAlpha,
		dstBlendAlpha: dstBlendAlpha,
		blendOpAlpha:  blendOpAlpha,
		blendFactor:   blendFactor,
	}
}

func (bs *BlendState) BlendEnabled() bool            { return bs.enabled }
func (bs *BlendState) SourceBlend() BlendFactor      { return bs.srcBlend }
func (bs *BlendState) DestBlend() BlendFactor        { return bs.dstBlend }
func (bs *BlendState) BlendOp() BlendOp              { return bs.blendOp }
func (bs *BlendState) SourceBlendAlpha() BlendFactor { return bs.srcBlendAlpha }
func (bs *BlendState) DestBlendAlpha() BlendFactor   { return bs.dstBlendAlpha }
func (bs *BlendState) BlendOpAlpha() BlendOp         { return bs.blendOpAlpha }
func (bs *BlendState) BlendFactor() float32          { return bs.blendFactor }

type DepthStencilState struct {
	Object
	depthTest        bool
	depthWrite       bool
	depthFunc        CompareOp
	stencilTest      bool
	stencilFunc      CompareOp
	stencilFailOp    StencilOp
	stencilDepthFail StencilOp
	stencilPassOp    StencilOp
}

func NewDepthStencilState(name string, depthTest, depthWrite bool, depthFunc CompareOp, stencilTest bool, stencilFunc CompareOp, stencilFailOp, stencilDepthFail, stencilPassOp StencilOp) *DepthStencilState {
	return &DepthStencilState{
		Object:           NewObject(name),
		depthTest:        depthTest,
		depthWrite:       depthWrite,
		depthFunc:        depthFunc,
		stencilTest:      stencilTest,
		stencilFunc:      stencilFunc,
		stencilFailOp:    stencilFailOp,
		stencilDepthFail: stencilDepthFail,
		stencilPassOp:    stencilPassOp,
	}
}

func (ds *DepthStencilState) DepthTestEnabled() bool               { return ds.depthTest }
func (ds *DepthStencilState) DepthWriteEnabled() bool              { return ds.depthWrite }
func (ds *DepthStencilState) DepthFunction() CompareOp             { return ds.depthFunc }
func (ds *DepthStencilState) StencilTestEnabled() bool             { return ds.stencilTest }
func (ds *DepthStencilState) StencilFunction() CompareOp           { return ds.stencilFunc }
func (ds *DepthStencilState) StencilFailOperation() StencilOp      { return ds.stencilFailOp }
func (ds *DepthStencilState) StencilDepthFailOperation() StencilOp { return ds.stencilDepthFail }
func (ds *DepthStencilState) StencilPassOperation() StencilOp      { return ds.stencilPassOp }
