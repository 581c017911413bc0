package render

import (
	"github.com/gogpu/viz"
	"github.com/gogpu/viz/backend"
	"github.com/gogpu/viz/shader"
)

// UniformSlot is one uniform of a compiled program. Location -1 marks a
// slot the compiler eliminated; sets against it are accepted and ignored.
type UniformSlot struct {
	Name     string
	Type     viz.DataType
	Location int
}

// AttributeSlot is one vertex attribute of a compiled program.
type AttributeSlot struct {
	Name       string
	Type       viz.DataType
	ArrayCount int
	Location   int
}

// TextureSlot is one texture binding of a compiled program. Unit is the
// texture unit the engine assigns at draw time.
type TextureSlot struct {
	Name     string
	Dim      int
	Location int
	Unit     int
}

// CompiledProgram is an immutable device program plus its merged slot
// lists. Instances are shared: every ShaderProgram for the same composition
// points at the same CompiledProgram.
type CompiledProgram struct {
	dev  backend.Device
	id   backend.ProgramID
	mode viz.DrawMode

	uniforms   []UniformSlot
	attributes []AttributeSlot
	textures   []TextureSlot
}

// newCompiledProgram compiles the specialized stages and merges their
// declared slots. Declarations repeated across stages collapse to a single
// slot; a repeat with a different type (or arity, for attributes) is a
// composition bug and fails hard.
func newCompiledProgram(dev backend.Device, stages []shader.StageSpec, mode viz.DrawMode) (*CompiledProgram, error) {
	prog, err := dev.CompileProgram(stages)
	if err != nil {
		return nil, viz.Fatalf("%v", err)
	}

	cp := &CompiledProgram{dev: dev, id: prog.ID, mode: mode}

	lookup := func(m map[string]int, name string) int {
		if loc, ok := m[name]; ok {
			return loc
		}
		return -1
	}

	uniformIdx := make(map[string]int)
	attrIdx := make(map[string]int)
	texIdx := make(map[string]int)

	for _, s := range stages {
		for _, u := range s.Uniforms {
			if i, ok := uniformIdx[u.Name]; ok {
				if cp.uniforms[i].Type != u.Type {
					return nil, viz.Fatalf("uniform %q declared as both %s and %s",
						u.Name, cp.uniforms[i].Type, u.Type)
				}
				continue
			}
			uniformIdx[u.Name] = len(cp.uniforms)
			cp.uniforms = append(cp.uniforms, UniformSlot{
				Name:     u.Name,
				Type:     u.Type,
				Location: lookup(prog.Uniforms, u.Name),
			})
		}
		for _, a := range s.Attributes {
			arrayCount := a.ArrayCount
			if arrayCount < 1 {
				arrayCount = 1
			}
			if i, ok := attrIdx[a.Name]; ok {
				if cp.attributes[i].Type != a.Type || cp.attributes[i].ArrayCount != arrayCount {
					return nil, viz.Fatalf("attribute %q declared with conflicting type or arity", a.Name)
				}
				continue
			}
			attrIdx[a.Name] = len(cp.attributes)
			cp.attributes = append(cp.attributes, AttributeSlot{
				Name:       a.Name,
				Type:       a.Type,
				ArrayCount: arrayCount,
				Location:   lookup(prog.Attributes, a.Name),
			})
		}
		for _, tx := range s.Textures {
			if i, ok := texIdx[tx.Name]; ok {
				if cp.textures[i].Dim != tx.Dim {
					return nil, viz.Fatalf("texture %q declared with conflicting dimension", tx.Name)
				}
				continue
			}
			texIdx[tx.Name] = len(cp.textures)
			cp.textures = append(cp.textures, TextureSlot{
				Name:     tx.Name,
				Dim:      tx.Dim,
				Location: lookup(prog.Textures, tx.Name),
				Unit:     len(cp.textures),
			})
		}
	}

	return cp, nil
}

// DrawMode returns the program's draw mode.
func (cp *CompiledProgram) DrawMode() viz.DrawMode { return cp.mode }

// Uniforms returns the merged uniform slots.
func (cp *CompiledProgram) Uniforms() []UniformSlot { return cp.uniforms }

// Attributes returns the merged attribute slots.
func (cp *CompiledProgram) Attributes() []AttributeSlot { return cp.attributes }

// Textures returns the merged texture slots.
func (cp *CompiledProgram) Textures() []TextureSlot { return cp.textures }
