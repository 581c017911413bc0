// Package shader defines shader stage specifications and the textual
// replacement-rule engine used to assemble specialized program variants.
//
// A base program is a fixed list of stage specifications whose WGSL sources
// contain named insertion points written as
//
//	${ POINT_NAME }$
//
// A replacement rule contributes snippets to one or more insertion points
// and may introduce additional attribute, uniform and texture declarations.
// Applying an ordered rule list to a stage list substitutes the accumulated
// snippets into every insertion point (empty where no rule contributed) and
// unions the introduced declarations into the stages the rule touched.
//
// The engine performs text substitution only; it never analyzes shader
// semantics. Validity of the assembled source is established later, when the
// device compiles it.
package shader

import (
	"strings"

	"github.com/gogpu/viz"
)

// Attribute declares one vertex attribute of a stage: its name as it appears
// in the shader source, its semantic type, and an array count for
// structure-of-arrays attributes that pack several same-typed sub-elements
// per logical vertex (1 for ordinary attributes).
type Attribute struct {
	Name       string
	Type       viz.DataType
	ArrayCount int
}

// Uniform declares one uniform of a stage.
type Uniform struct {
	Name string
	Type viz.DataType
}

// TextureSlot declares one texture binding of a stage with its
// dimensionality (1, 2 or 3).
type TextureSlot struct {
	Name string
	Dim  int
}

// StageSpec is one shader stage's source text plus its declared inputs.
// Immutable once registered with an engine.
type StageSpec struct {
	Kind       viz.StageKind
	Source     string
	Attributes []Attribute
	Uniforms   []Uniform
	Textures   []TextureSlot
}

// Replacement contributes Snippet to the insertion point named Target.
type Replacement struct {
	Target  string
	Snippet string
}

// Rule is a named set of textual substitutions plus the declarations the
// substituted code needs. Rules are immutable once registered; their name
// lives in the engine's rule registry, not in the rule itself.
type Rule struct {
	Replacements []Replacement
	Attributes   []Attribute
	Uniforms     []Uniform
	Textures     []TextureSlot
}

// tokenOpen/tokenClose delimit insertion points in stage source.
const (
	tokenOpen  = "${"
	tokenClose = "}$"
)

// Token returns the insertion-point token for a point name, as it appears
// in stage source.
func Token(name string) string {
	return tokenOpen + " " + name + " " + tokenClose
}

// DedupNames removes empty names and keeps only the first occurrence of each
// remaining name, preserving order. Rule de-duplication must happen on the
// name list before substitution, so that a rule named twice contributes its
// snippets exactly once.
func DedupNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// ApplyReplacements applies rules, in order, to stages and returns the
// specialized stage list. For every insertion point in a stage's source the
// snippets of all rules targeting that point are concatenated in rule order
// and substituted; points no rule targeted are removed. A rule's declared
// attributes, uniforms and textures are unioned into each stage in which at
// least one of its targets was found.
//
// The input stages are not modified.
func ApplyReplacements(stages []StageSpec, rules []Rule) []StageSpec {
	out := make([]StageSpec, len(stages))
	for i, s := range stages {
		out[i] = applyToStage(s, rules)
	}
	return out
}

func applyToStage(s StageSpec, rules []Rule) StageSpec {
	points := scanPoints(s.Source)

	// Accumulate snippets per point, in rule order.
	combined := make(map[string][]string, len(points))
	ns := StageSpec{
		Kind:       s.Kind,
		Attributes: append([]Attribute(nil), s.Attributes...),
		Uniforms:   append([]Uniform(nil), s.Uniforms...),
		Textures:   append([]TextureSlot(nil), s.Textures...),
	}
	for _, r := range rules {
		touched := false
		for _, rep := range r.Replacements {
			if _, ok := points[rep.Target]; !ok {
				continue
			}
			combined[rep.Target] = append(combined[rep.Target], rep.Snippet)
			touched = true
		}
		if !touched {
			continue
		}
		ns.Attributes = append(ns.Attributes, r.Attributes...)
		ns.Uniforms = append(ns.Uniforms, r.Uniforms...)
		ns.Textures = append(ns.Textures, r.Textures...)
	}

	ns.Source = substitute(s.Source, combined)
	return ns
}

// scanPoints returns the set of insertion-point names present in src.
func scanPoints(src string) map[string]struct{} {
	points := make(map[string]struct{})
	for rest := src; ; {
		open := strings.Index(rest, tokenOpen)
		if open < 0 {
			break
		}
		rest = rest[open+len(tokenOpen):]
		end := strings.Index(rest, tokenClose)
		if end < 0 {
			break
		}
		name := strings.TrimSpace(rest[:end])
		if name != "" {
			points[name] = struct{}{}
		}
		rest = rest[end+len(tokenClose):]
	}
	return points
}

// substitute replaces every insertion-point token in src with the joined
// snippets for that point (the empty string if none).
func substitute(src string, combined map[string][]string) string {
	var b strings.Builder
	b.Grow(len(src))
	for {
		open := strings.Index(src, tokenOpen)
		if open < 0 {
			b.WriteString(src)
			break
		}
		end := strings.Index(src[open:], tokenClose)
		if end < 0 {
			b.WriteString(src)
			break
		}
		end += open
		name := strings.TrimSpace(src[open+len(tokenOpen) : end])
		b.WriteString(src[:open])
		if snippets := combined[name]; len(snippets) > 0 {
			b.WriteString(strings.Join(snippets, "\n"))
		}
		src = src[end+len(tokenClose):]
	}
	return b.String()
}
