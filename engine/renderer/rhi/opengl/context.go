package opengl

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/TQwan/SpartanEngine/engine/core"
	"github.com/TQwan/SpartanEngine/engine/renderer/rhi"
)

// Context is the stateful GL device connection. It satisfies rhi.Context and
// rhi.IncrementalBinder, which routes PipelineState.Bind through per-field
// calls instead of compiled pipeline objects.
type Context struct {
	backend *Backend
	level   rhi.FeatureLevel

	programPipeline uint32
	vertexArray     uint32

	// GL has no topology bind point; the mode is latched here and consumed
	// by the draw call.
	topology  rhi.PrimitiveTopology
	layout    *rhi.InputLayout
	indexType uint32
}

func (c *Context) initialize() error {
	gl.GenProgramPipelines(1, &c.programPipeline)
	gl.BindProgramPipeline(c.programPipeline)
	gl.GenVertexArrays(1, &c.vertexArray)
	gl.BindVertexArray(c.vertexArray)
	c.topology = rhi.TopologyTriangleList
	return nil
}

func (c *Context) Limits() rhi.Limits {
	var maxTexture, maxUniformBlock, uniformAlignment int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxTexture)
	gl.GetIntegerv(gl.MAX_UNIFORM_BLOCK_SIZE, &maxUniformBlock)
	gl.GetIntegerv(gl.UNIFORM_BUFFER_OFFSET_ALIGNMENT, &uniformAlignment)
	return rhi.Limits{
		MaxTextureDimension2D:            uint32(maxTexture),
		MaxConstantBufferRange:           uint32(maxUniformBlock),
		MinConstantBufferOffsetAlignment: uint32(uniformAlignment),
	}
}

// WaitIdle blocks until the GL server finished all issued commands.
func (c *Context) WaitIdle() error {
	gl.Finish()
	return nil
}

func (c *Context) Destroy() error {
	if c.programPipeline != 0 {
		gl.DeleteProgramPipelines(1, &c.programPipeline)
		c.programPipeline = 0
	}
	if c.vertexArray != 0 {
		gl.DeleteVertexArrays(1, &c.vertexArray)
		c.vertexArray = 0
	}
	return nil
}

// Buffer is one GL uniform buffer object plus its current mapped range.
type Buffer struct {
	ID   uint32
	Size uint64

	mappedOffset uint64
	mapped       bool
}

func (c *Context) CreateBuffer(size uint64, dynamic bool) (interface{}, error) {
	usage := uint32(gl.STATIC_DRAW)
	if dynamic {
		usage = gl.DYNAMIC_DRAW
	}

	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(gl.UNIFORM_BUFFER, id)
	gl.BufferData(gl.UNIFORM_BUFFER, int(size), nil, usage)
	if err := glError("creating buffer"); err != nil {
		gl.DeleteBuffers(1, &id)
		return nil, err
	}
	return &Buffer{ID: id, Size: size}, nil
}

func (c *Context) MapBuffer(buffer interface{}, offset, size uint64) ([]byte, error) {
	b, ok := buffer.(*Buffer)
	if !ok {
		return nil, fmt.Errorf("opengl: foreign buffer resource %T", buffer)
	}
	if b.mapped {
		return nil, fmt.Errorf("opengl: buffer already mapped")
	}

	gl.BindBuffer(gl.UNIFORM_BUFFER, b.ID)
	ptr := gl.MapBufferRange(gl.UNIFORM_BUFFER, int(offset), int(size),
		gl.MAP_WRITE_BIT|gl.MAP_FLUSH_EXPLICIT_BIT)
	if ptr == nil {
		return nil, fmt.Errorf("opengl: mapping buffer range [%d,%d)", offset, offset+size)
	}
	b.mapped = true
	b.mappedOffset = offset
	return unsafe.Slice((*byte)(ptr), size), nil
}

func (c *Context) UnmapBuffer(buffer interface{}) error {
	b, ok := buffer.(*Buffer)
	if !ok {
		return fmt.Errorf("opengl: foreign buffer resource %T", buffer)
	}
	if !b.mapped {
		return nil
	}
	gl.BindBuffer(gl.UNIFORM_BUFFER, b.ID)
	gl.UnmapBuffer(gl.UNIFORM_BUFFER)
	b.mapped = false
	return nil
}

// FlushBuffer publishes one written range. Only meaningful while the buffer
// is mapped; after unmap GL already guarantees visibility.
func (c *Context) FlushBuffer(buffer interface{}, offset, size uint64) error {
	b, ok := buffer.(*Buffer)
	if !ok {
		return fmt.Errorf("opengl: foreign buffer resource %T", buffer)
	}
	if !b.mapped {
		return nil
	}
	if offset < b.mappedOffset {
		return fmt.Errorf("opengl: flush range [%d,%d) outside mapped range", offset, offset+size)
	}
	gl.BindBuffer(gl.UNIFORM_BUFFER, b.ID)
	gl.FlushMappedBufferRange(gl.UNIFORM_BUFFER, int(offset-b.mappedOffset), int(size))
	return nil
}

func (c *Context) DestroyBuffer(buffer interface{}) error {
	b, ok := buffer.(*Buffer)
	if !ok {
		return fmt.Errorf("opengl: foreign buffer resource %T", buffer)
	}
	if b.ID != 0 {
		gl.DeleteBuffers(1, &b.ID)
		b.ID = 0
	}
	return nil
}

// Incremental binder surface.

func (c *Context) SetViewport(v rhi.Viewport) bool {
	gl.Viewport(int32(v.X), int32(v.Y), int32(v.Width), int32(v.Height))
	gl.DepthRangef(v.DepthMin, v.DepthMax)
	return true
}

func (c *Context) BindVertexShader(resource interface{}) bool {
	program, ok := resource.(uint32)
	if !ok {
		core.LogWarn("opengl: vertex stage resource is %T, want a separable program id", resource)
		return false
	}
	gl.UseProgramStages(c.programPipeline, gl.VERTEX_SHADER_BIT, program)
	return true
}

func (c *Context) BindPixelShader(resource interface{}) bool {
	program, ok := resource.(uint32)
	if !ok {
		core.LogWarn("opengl: pixel stage resource is %T, want a separable program id", resource)
		return false
	}
	gl.UseProgramStages(c.programPipeline, gl.FRAGMENT_SHADER_BIT, program)
	return true
}

func (c *Context) SetPrimitiveTopology(topology rhi.PrimitiveTopology) bool {
	if _, ok := glTopology[topology]; !ok {
		core.LogWarn("opengl: unsupported topology %d", topology)
		return false
	}
	c.topology = topology
	return true
}

// SetInputLayout latches the reflected layout; attribute pointers can only
// be applied once a vertex buffer is bound.
func (c *Context) SetInputLayout(layout *rhi.InputLayout) bool {
	c.layout = layout
	gl.BindVertexArray(c.vertexArray)
	return true
}

func (c *Context) SetCullMode(mode rhi.CullMode) bool {
	switch mode {
	case rhi.CullNone:
		gl.Disable(gl.CULL_FACE)
	case rhi.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	case rhi.CullBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	default:
		return false
	}
	return true
}

func (c *Context) SetFillMode(mode rhi.FillMode) bool {
	switch mode {
	case rhi.FillSolid:
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	case rhi.FillWireframe:
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	default:
		return false
	}
	return true
}

func (c *Context) BindSamplers(startSlot uint32, samplers []*rhi.Sampler) bool {
	ok := true
	for i, sampler := range samplers {
		if sampler == nil {
			continue
		}
		id, valid := sampler.Internal.(uint32)
		if !valid {
			core.LogWarn("opengl: sampler '%s' has no GL object", sampler.Name)
			ok = false
			continue
		}
		gl.BindSampler(startSlot+uint32(i), id)
	}
	return ok
}

func (c *Context) BindTextures(startSlot uint32, textures []*rhi.Texture) bool {
	ok := true
	for i, texture := range textures {
		if texture == nil {
			continue
		}
		id, valid := texture.Internal.(uint32)
		if !valid {
			core.LogWarn("opengl: texture '%s' has no GL object", texture.Name)
			ok = false
			continue
		}
		gl.ActiveTexture(gl.TEXTURE0 + startSlot + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, id)
	}
	return ok
}

func (c *Context) BindIndexBuffer(buffer *rhi.IndexBuffer) bool {
	resource, ok := buffer.Internal.(*Buffer)
	if !ok {
		core.LogWarn("opengl: index buffer '%s' has no GL object", buffer.Name)
		return false
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, resource.ID)
	c.indexType = glIndexType(buffer.Format)
	return true
}

// BindVertexBuffer binds the buffer and replays the latched input layout as
// attribute pointers, the way a 4.1 context expects.
func (c *Context) BindVertexBuffer(buffer *rhi.VertexBuffer) bool {
	resource, ok := buffer.Internal.(*Buffer)
	if !ok {
		core.LogWarn("opengl: vertex buffer '%s' has no GL object", buffer.Name)
		return false
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, resource.ID)

	if c.layout == nil {
		return true
	}
	for _, attribute := range c.layout.Attributes {
		size, componentType, ok := glAttributeFormat(attribute.Format)
		if !ok {
			core.LogWarn("opengl: attribute '%s' has unsupported format %d", attribute.Name, attribute.Format)
			return false
		}
		gl.EnableVertexAttribArray(attribute.Location)
		gl.VertexAttribPointerWithOffset(attribute.Location, size, componentType, false,
			int32(c.layout.Stride), uintptr(attribute.Offset))
	}
	return true
}

func (c *Context) BindConstantBuffers(slot uint32, scope rhi.BufferScope, buffers []*rhi.ConstantBuffer) bool {
	ok := true
	for i, buffer := range buffers {
		if buffer == nil {
			continue
		}
		resource, valid := buffer.Resource().(*Buffer)
		if !valid {
			core.LogWarn("opengl: constant buffer '%s' has no GL object", buffer.Name)
			ok = false
			continue
		}
		offset := buffer.Offset()
		if buffer.IsDynamic() {
			offset = buffer.OffsetDynamic()
		}
		gl.BindBufferRange(gl.UNIFORM_BUFFER, slot+uint32(i), resource.ID,
			int(offset), int(buffer.Stride()))
	}
	return ok
}

// DrawMode is the GL primitive mode of the latched topology, consumed by
// draw calls.
func (c *Context) DrawMode() uint32 {
	return glTopology[c.topology]
}

func (c *Context) IndexType() uint32 {
	return c.indexType
}

var glTopology = map[rhi.PrimitiveTopology]uint32{
	rhi.TopologyPointList:     gl.POINTS,
	rhi.TopologyLineList:      gl.LINES,
	rhi.TopologyTriangleList:  gl.TRIANGLES,
	rhi.TopologyTriangleStrip: gl.TRIANGLE_STRIP,
}

func glIndexType(format rhi.Format) uint32 {
	if format == rhi.FormatR32Uint {
		return gl.UNSIGNED_INT
	}
	return gl.UNSIGNED_SHORT
}

func glAttributeFormat(format rhi.Format) (size int32, componentType uint32, ok bool) {
	switch format {
	case rhi.FormatR32Float:
		return 1, gl.FLOAT, true
	case rhi.FormatR32G32Float:
		return 2, gl.FLOAT, true
	case rhi.FormatR32G32B32Float:
		return 3, gl.FLOAT, true
	case rhi.FormatR32G32B32A32Float:
		return 4, gl.FLOAT, true
	case rhi.FormatR8G8B8A8Unorm:
		return 4, gl.UNSIGNED_BYTE, true
	default:
		return 0, 0, false
	}
}

func glError(operation string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("opengl: %s: GL error 0x%x", operation, code)
	}
	return nil
}
