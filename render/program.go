package render

import (
	"strings"

	"github.com/gogpu/viz"
	"github.com/gogpu/viz/backend"
)

// defaultRestartIndex is used by restart-capable modes when the caller
// never sets one.
const defaultRestartIndex = ^uint32(0)

type uniformState struct {
	set bool
}

type attributeState struct {
	buf      *AttributeBuffer
	external bool
}

type textureState struct {
	buf   *TextureBuffer
	owned bool
}

// ShaderProgram is a bound instance of a compiled program: the compiled
// code plus everything one draw needs. Instances over the same composition
// share the compiled program but never share state.
//
// Setting a value on an eliminated slot (location -1) succeeds and does
// nothing, so callers can feed every slot they declared without tracking
// what the compiler kept.
type ShaderProgram struct {
	eng  *Engine
	comp *CompiledProgram

	uniforms   []uniformState
	attributes []attributeState
	textures   []textureState

	index         *AttributeBuffer
	indexSizeMult int

	instanceCount int
	restartIndex  uint32
	restartSet    bool
}

func newShaderProgram(e *Engine, cp *CompiledProgram) *ShaderProgram {
	return &ShaderProgram{
		eng:           e,
		comp:          cp,
		uniforms:      make([]uniformState, len(cp.uniforms)),
		attributes:    make([]attributeState, len(cp.attributes)),
		textures:      make([]textureState, len(cp.textures)),
		instanceCount: -1,
	}
}

// Compiled returns the shared compiled program.
func (p *ShaderProgram) Compiled() *CompiledProgram { return p.comp }

// HasUniform reports whether the program declares a uniform by this name.
func (p *ShaderProgram) HasUniform(name string) bool {
	_, _, err := p.findUniform(name)
	return err == nil
}

// HasAttribute reports whether the program declares an attribute by this
// name.
func (p *ShaderProgram) HasAttribute(name string) bool {
	_, _, err := p.findAttribute(name)
	return err == nil
}

// HasTexture reports whether the program declares a texture by this name.
func (p *ShaderProgram) HasTexture(name string) bool {
	_, _, err := p.findTexture(name)
	return err == nil
}

func (p *ShaderProgram) findUniform(name string) (*UniformSlot, *uniformState, error) {
	for i := range p.comp.uniforms {
		if p.comp.uniforms[i].Name == name {
			return &p.comp.uniforms[i], &p.uniforms[i], nil
		}
	}
	return nil, nil, viz.Usagef("program has no uniform %q", name)
}

func (p *ShaderProgram) findAttribute(name string) (*AttributeSlot, *attributeState, error) {
	for i := range p.comp.attributes {
		if p.comp.attributes[i].Name == name {
			return &p.comp.attributes[i], &p.attributes[i], nil
		}
	}
	return nil, nil, viz.Usagef("program has no attribute %q", name)
}

func (p *ShaderProgram) findTexture(name string) (*TextureSlot, *textureState, error) {
	for i := range p.comp.textures {
		if p.comp.textures[i].Name == name {
			return &p.comp.textures[i], &p.textures[i], nil
		}
	}
	return nil, nil, viz.Usagef("program has no texture %q", name)
}

// setUniform is the shared path of the typed uniform setters.
func (p *ShaderProgram) setUniform(name string, typ viz.DataType, value any) error {
	slot, st, err := p.findUniform(name)
	if err != nil {
		return err
	}
	if slot.Type != typ {
		return viz.Usagef("uniform %q is %s, not %s", name, slot.Type, typ)
	}
	if slot.Location >= 0 {
		if err := p.eng.dev.SetUniform(p.comp.id, slot.Location, typ, value); err != nil {
			return viz.Fatalf("set uniform %q: %v", name, err)
		}
	}
	st.set = true
	return nil
}

func (p *ShaderProgram) SetUniformFloat(name string, v float32) error {
	return p.setUniform(name, viz.TypeFloat, v)
}

// SetUniformFloat64 narrows to float32; device uniforms are single
// precision.
func (p *ShaderProgram) SetUniformFloat64(name string, v float64) error {
	return p.setUniform(name, viz.TypeFloat, float32(v))
}

func (p *ShaderProgram) SetUniformInt(name string, v int32) error {
	return p.setUniform(name, viz.TypeInt, v)
}

func (p *ShaderProgram) SetUniformUInt(name string, v uint32) error {
	return p.setUniform(name, viz.TypeUInt, v)
}

func (p *ShaderProgram) SetUniformVec2(name string, v viz.Vec2) error {
	return p.setUniform(name, viz.TypeVec2, v)
}

func (p *ShaderProgram) SetUniformVec3(name string, v viz.Vec3) error {
	return p.setUniform(name, viz.TypeVec3, v)
}

func (p *ShaderProgram) SetUniformVec4(name string, v viz.Vec4) error {
	return p.setUniform(name, viz.TypeVec4, v)
}

func (p *ShaderProgram) SetUniformUVec2(name string, v viz.UVec2) error {
	return p.setUniform(name, viz.TypeUVec2, v)
}

func (p *ShaderProgram) SetUniformUVec3(name string, v viz.UVec3) error {
	return p.setUniform(name, viz.TypeUVec3, v)
}

func (p *ShaderProgram) SetUniformUVec4(name string, v viz.UVec4) error {
	return p.setUniform(name, viz.TypeUVec4, v)
}

func (p *ShaderProgram) SetUniformMat4(name string, v viz.Mat4) error {
	return p.setUniform(name, viz.TypeMat4, v)
}

// attributeBuffer returns the slot's buffer, creating an owned one on
// first use.
func (p *ShaderProgram) attributeBuffer(slot *AttributeSlot, st *attributeState) (*AttributeBuffer, error) {
	if st.buf != nil {
		return st.buf, nil
	}
	buf, err := p.eng.NewAttributeBuffer(slot.Type, slot.ArrayCount)
	if err != nil {
		return nil, err
	}
	st.buf = buf
	return buf, nil
}

// setAttribute is the shared path of the typed attribute setters.
func (p *ShaderProgram) setAttribute(name string, fill func(*AttributeBuffer) error) error {
	slot, st, err := p.findAttribute(name)
	if err != nil {
		return err
	}
	buf, err := p.attributeBuffer(slot, st)
	if err != nil {
		return err
	}
	return fill(buf)
}

func (p *ShaderProgram) SetAttributeFloat(name string, data []float32) error {
	return p.setAttribute(name, func(b *AttributeBuffer) error { return b.SetDataFloat(data) })
}

func (p *ShaderProgram) SetAttributeInt(name string, data []int32) error {
	return p.setAttribute(name, func(b *AttributeBuffer) error { return b.SetDataInt(data) })
}

func (p *ShaderProgram) SetAttributeUInt(name string, data []uint32) error {
	return p.setAttribute(name, func(b *AttributeBuffer) error { return b.SetDataUInt(data) })
}

func (p *ShaderProgram) SetAttributeVec2(name string, data []viz.Vec2) error {
	return p.setAttribute(name, func(b *AttributeBuffer) error { return b.SetDataVec2(data) })
}

func (p *ShaderProgram) SetAttributeVec3(name string, data []viz.Vec3) error {
	return p.setAttribute(name, func(b *AttributeBuffer) error { return b.SetDataVec3(data) })
}

func (p *ShaderProgram) SetAttributeVec4(name string, data []viz.Vec4) error {
	return p.setAttribute(name, func(b *AttributeBuffer) error { return b.SetDataVec4(data) })
}

// SetAttributeBuffer binds an externally owned buffer to an attribute
// slot. The slot must not already have a buffer, the buffer must belong to
// the same engine, and its type must be able to feed the slot's type.
func (p *ShaderProgram) SetAttributeBuffer(name string, buf *AttributeBuffer) error {
	slot, st, err := p.findAttribute(name)
	if err != nil {
		return err
	}
	if buf == nil {
		return viz.Usagef("attribute %q: nil buffer", name)
	}
	if st.buf != nil {
		return viz.Usagef("attribute %q already has a buffer", name)
	}
	if buf.eng != p.eng {
		return viz.Usagef("attribute %q: buffer belongs to a different engine", name)
	}
	if slot.Type != buf.typ && viz.CountCompatibility(slot.Type, buf.typ) == 0 {
		return viz.Usagef("attribute %q: %s buffer cannot feed %s attribute", name, buf.typ, slot.Type)
	}
	st.buf = buf
	st.external = true
	return nil
}

// AttributeIsSet reports whether the attribute has data.
func (p *ShaderProgram) AttributeIsSet(name string) bool {
	_, st, err := p.findAttribute(name)
	return err == nil && st.buf != nil && st.buf.dataSize > 0
}

// SetTextureFromBuffer binds an externally owned texture to a slot.
func (p *ShaderProgram) SetTextureFromBuffer(name string, t *TextureBuffer) error {
	slot, st, err := p.findTexture(name)
	if err != nil {
		return err
	}
	if t == nil {
		return viz.Usagef("texture %q: nil buffer", name)
	}
	if t.dim != slot.Dim {
		return viz.Usagef("texture %q is %dD, buffer is %dD", name, slot.Dim, t.dim)
	}
	if st.owned && st.buf != nil {
		st.buf.Destroy()
	}
	st.buf = t
	st.owned = false
	return nil
}

// SetTextureFromColormap fills a 1D texture slot from a registered
// colormap. Re-setting requires allowUpdate.
func (p *ShaderProgram) SetTextureFromColormap(name, colorMapName string, allowUpdate bool) error {
	slot, st, err := p.findTexture(name)
	if err != nil {
		return err
	}
	if slot.Dim != 1 {
		return viz.Usagef("texture %q is %dD, colormaps are 1D", name, slot.Dim)
	}
	if st.buf != nil && !allowUpdate {
		return viz.Usagef("texture %q already set", name)
	}
	t, err := p.eng.NewColorMapTexture(colorMapName)
	if err != nil {
		return err
	}
	if st.owned && st.buf != nil {
		st.buf.Destroy()
	}
	st.buf = t
	st.owned = true
	return nil
}

// setTexture is the shared path of the data-based texture setters. Unlike
// the buffer-based setters, re-setting is an error.
func (p *ShaderProgram) setTexture(name string, dim int, create func() (*TextureBuffer, error)) error {
	slot, st, err := p.findTexture(name)
	if err != nil {
		return err
	}
	if slot.Dim != dim {
		return viz.Usagef("texture %q is %dD", name, slot.Dim)
	}
	if st.buf != nil {
		return viz.Usagef("texture %q already set", name)
	}
	t, err := create()
	if err != nil {
		return err
	}
	st.buf = t
	st.owned = true
	return nil
}

func (p *ShaderProgram) SetTexture1D(name string, format viz.TextureFormat, sizeX int, data []byte) error {
	return p.setTexture(name, 1, func() (*TextureBuffer, error) {
		return p.eng.NewTextureBuffer1D(format, sizeX, data)
	})
}

func (p *ShaderProgram) SetTexture2D(name string, format viz.TextureFormat, sizeX, sizeY int, data []byte) error {
	return p.setTexture(name, 2, func() (*TextureBuffer, error) {
		return p.eng.NewTextureBuffer2D(format, sizeX, sizeY, data)
	})
}

func (p *ShaderProgram) SetTexture3D(name string, format viz.TextureFormat, sizeX, sizeY, sizeZ int, data []byte) error {
	return p.setTexture(name, 3, func() (*TextureBuffer, error) {
		return p.eng.NewTextureBuffer3D(format, sizeX, sizeY, sizeZ, data)
	})
}

// TextureIsSet reports whether the texture slot has a binding.
func (p *ShaderProgram) TextureIsSet(name string) bool {
	_, st, err := p.findTexture(name)
	return err == nil && st.buf != nil
}

// SetIndex binds the index stream. Only unsigned integer family buffers
// created as index buffers can index; wide types carry several indices per
// element (uvec3 carries three).
func (p *ShaderProgram) SetIndex(buf *AttributeBuffer) error {
	if !p.comp.mode.Indexed() {
		return viz.Usagef("draw mode %s does not take an index", p.comp.mode)
	}
	if buf == nil {
		return viz.Usagef("set index: nil buffer")
	}
	mult := viz.IndexSizeMultiplier(buf.typ)
	if mult == 0 {
		return viz.Usagef("set index: type %s cannot index", buf.typ)
	}
	if buf.kind != backend.BufferIndex {
		return viz.Usagef("set index: buffer was not created as an index buffer")
	}
	if buf.eng != p.eng {
		return viz.Usagef("set index: buffer belongs to a different engine")
	}
	p.index = buf
	p.indexSizeMult = mult
	return nil
}

// SetInstanceCount sets the number of instances for instanced modes.
func (p *ShaderProgram) SetInstanceCount(n int) error {
	if n < 0 {
		return viz.Usagef("instance count %d", n)
	}
	p.instanceCount = n
	return nil
}

// SetPrimitiveRestartIndex sets the index value that splits strips.
func (p *ShaderProgram) SetPrimitiveRestartIndex(i uint32) error {
	if !p.comp.mode.UsesPrimitiveRestart() {
		return viz.Usagef("draw mode %s does not use primitive restart", p.comp.mode)
	}
	p.restartIndex = i
	p.restartSet = true
	return nil
}

// ValidateData checks that everything a draw needs is in place: every live
// slot set, attribute vertex counts in agreement, an index stream for
// indexed modes and an instance count for instanced ones.
func (p *ShaderProgram) ValidateData() error {
	var missing []string
	for i := range p.comp.uniforms {
		if p.comp.uniforms[i].Location >= 0 && !p.uniforms[i].set {
			missing = append(missing, "uniform "+p.comp.uniforms[i].Name)
		}
	}

	count := -1
	countName := ""
	for i := range p.comp.attributes {
		slot := &p.comp.attributes[i]
		if slot.Location < 0 {
			continue
		}
		st := &p.attributes[i]
		if st.buf == nil || st.buf.dataSize == 0 {
			missing = append(missing, "attribute "+slot.Name)
			continue
		}
		compat := 1
		if slot.Type != st.buf.typ {
			compat = viz.CountCompatibility(slot.Type, st.buf.typ)
			if compat == 0 {
				return viz.Fatalf("attribute %q: %s buffer cannot feed %s attribute", slot.Name, st.buf.typ, slot.Type)
			}
		}
		vertices := st.buf.dataSize / compat / slot.ArrayCount
		if count < 0 {
			count, countName = vertices, slot.Name
		} else if vertices != count {
			return viz.Fatalf("attribute %q has %d vertices, %q has %d", slot.Name, vertices, countName, count)
		}
	}

	for i := range p.comp.textures {
		if p.comp.textures[i].Location >= 0 && p.textures[i].buf == nil {
			missing = append(missing, "texture "+p.comp.textures[i].Name)
		}
	}

	if len(missing) > 0 {
		return viz.Fatalf("draw with unset slots: %s", strings.Join(missing, ", "))
	}

	if p.comp.mode.Indexed() && p.index == nil {
		return viz.Fatalf("draw mode %s needs an index stream", p.comp.mode)
	}
	if p.comp.mode.Instanced() && p.instanceCount < 0 {
		return viz.Fatalf("draw mode %s needs an instance count", p.comp.mode)
	}
	return nil
}

// drawCount is the number of vertices the draw submits.
func (p *ShaderProgram) drawCount() int {
	if p.comp.mode.Indexed() {
		return p.index.dataSize * p.indexSizeMult
	}
	for i := range p.comp.attributes {
		slot := &p.comp.attributes[i]
		st := &p.attributes[i]
		if slot.Location < 0 || st.buf == nil {
			continue
		}
		compat := 1
		if slot.Type != st.buf.typ {
			compat = viz.CountCompatibility(slot.Type, st.buf.typ)
		}
		return st.buf.dataSize / compat / slot.ArrayCount
	}
	return 0
}

// Draw validates the bound state and submits one draw call to the engine's
// current render target.
func (p *ShaderProgram) Draw() error {
	if err := p.ValidateData(); err != nil {
		return err
	}

	call := &backend.DrawCall{
		Program:     p.comp.id,
		Target:      p.eng.boundTarget,
		Viewport:    p.eng.boundViewport,
		Mode:        p.comp.mode,
		VertexCount: p.drawCount(),
	}
	if p.comp.mode.Instanced() {
		call.InstanceCount = p.instanceCount
	}
	for i := range p.comp.attributes {
		slot := &p.comp.attributes[i]
		st := &p.attributes[i]
		if slot.Location < 0 || st.buf == nil {
			continue
		}
		call.Attributes = append(call.Attributes, backend.AttributeBinding{
			Location:   slot.Location,
			Buffer:     st.buf.id,
			Type:       slot.Type,
			ArrayCount: slot.ArrayCount,
		})
	}
	if p.comp.mode.Indexed() {
		call.Index = &backend.IndexBinding{
			Buffer: p.index.id,
			Type:   p.index.typ,
			Count:  p.index.dataSize * p.indexSizeMult,
		}
	}
	for i := range p.comp.textures {
		slot := &p.comp.textures[i]
		st := &p.textures[i]
		if slot.Location < 0 || st.buf == nil {
			continue
		}
		call.Textures = append(call.Textures, backend.TextureBinding{
			Location: slot.Location,
			Unit:     slot.Unit,
			Texture:  st.buf.id,
		})
	}
	if p.comp.mode.UsesPrimitiveRestart() {
		call.PrimitiveRestartIndex = defaultRestartIndex
		if p.restartSet {
			call.PrimitiveRestartIndex = p.restartIndex
		}
	}

	if err := p.eng.dev.Draw(call); err != nil {
		return viz.Fatalf("draw: %v", err)
	}
	if p.eng.strict {
		if err := p.eng.dev.CheckError(); err != nil {
			return viz.Fatalf("after draw: %v", err)
		}
	}
	return nil
}

// Destroy releases owned buffers and textures. The shared compiled program
// stays alive in the engine cache.
func (p *ShaderProgram) Destroy() {
	for i := range p.attributes {
		if st := &p.attributes[i]; st.buf != nil && !st.external {
			st.buf.Destroy()
			st.buf = nil
		}
	}
	for i := range p.textures {
		if st := &p.textures[i]; st.buf != nil && st.owned {
			st.buf.Destroy()
			st.buf = nil
		}
	}
}
