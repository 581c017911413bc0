package shader

import (
	"reflect"
	"strings"
	"testing"

	"github.com/gogpu/viz"
)

func TestToken(t *testing.T) {
	if got, want := Token("FRAG_SHADE"), "${ FRAG_SHADE }$"; got != want {
		t.Fatalf("Token = %q, want %q", got, want)
	}
}

func TestDedupNames(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, []string{}},
		{"passthrough", []string{"A", "B"}, []string{"A", "B"}},
		{"drops empties", []string{"", "A", "", "B", ""}, []string{"A", "B"}},
		{"first wins", []string{"A", "B", "A", "C", "B"}, []string{"A", "B", "C"}},
		{"all same", []string{"X", "X", "X"}, []string{"X"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DedupNames(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DedupNames(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestApplyReplacementsSubstitution(t *testing.T) {
	src := "head\n${ P1 }$\nmid\n${ P2 }$\ntail\n"
	stage := StageSpec{Kind: viz.StageVertex, Source: src}

	rules := []Rule{
		{Replacements: []Replacement{{Target: "P1", Snippet: "one"}}},
		{Replacements: []Replacement{
			{Target: "P1", Snippet: "two"},
			{Target: "P2", Snippet: "three"},
		}},
	}

	out := ApplyReplacements([]StageSpec{stage}, rules)
	want := "head\none\ntwo\nmid\nthree\ntail\n"
	if out[0].Source != want {
		t.Errorf("substituted source = %q, want %q", out[0].Source, want)
	}
}

func TestApplyReplacementsRemovesUntouchedPoints(t *testing.T) {
	stage := StageSpec{Kind: viz.StageFragment, Source: "a${ UNUSED }$b"}
	out := ApplyReplacements([]StageSpec{stage}, nil)
	if got, want := out[0].Source, "ab"; got != want {
		t.Errorf("source = %q, want %q", got, want)
	}
	if strings.Contains(out[0].Source, tokenOpen) {
		t.Error("unsubstituted token survived")
	}
}

func TestApplyReplacementsOrderMatters(t *testing.T) {
	stage := StageSpec{Kind: viz.StageFragment, Source: "${ P }$"}
	a := Rule{Replacements: []Replacement{{Target: "P", Snippet: "A"}}}
	b := Rule{Replacements: []Replacement{{Target: "P", Snippet: "B"}}}

	ab := ApplyReplacements([]StageSpec{stage}, []Rule{a, b})[0].Source
	ba := ApplyReplacements([]StageSpec{stage}, []Rule{b, a})[0].Source
	if ab == ba {
		t.Fatalf("rule order had no effect: both produced %q", ab)
	}
	if ab != "A\nB" || ba != "B\nA" {
		t.Errorf("got %q and %q, want snippets in rule order", ab, ba)
	}
}

func TestApplyReplacementsDeclarationsFollowTouchedStages(t *testing.T) {
	vert := StageSpec{Kind: viz.StageVertex, Source: "${ VP }$"}
	frag := StageSpec{Kind: viz.StageFragment, Source: "${ FP }$"}

	rule := Rule{
		Replacements: []Replacement{{Target: "FP", Snippet: "x"}},
		Uniforms:     []Uniform{{Name: "u_x", Type: viz.TypeFloat}},
		Attributes:   []Attribute{{Name: "a_x", Type: viz.TypeVec3, ArrayCount: 1}},
	}

	out := ApplyReplacements([]StageSpec{vert, frag}, []Rule{rule})
	if len(out[0].Uniforms) != 0 || len(out[0].Attributes) != 0 {
		t.Errorf("vertex stage gained declarations from a rule that never touched it: %+v", out[0])
	}
	if len(out[1].Uniforms) != 1 || out[1].Uniforms[0].Name != "u_x" {
		t.Errorf("fragment uniforms = %+v, want [u_x]", out[1].Uniforms)
	}
	if len(out[1].Attributes) != 1 || out[1].Attributes[0].Name != "a_x" {
		t.Errorf("fragment attributes = %+v, want [a_x]", out[1].Attributes)
	}
}

func TestApplyReplacementsDoesNotModifyInput(t *testing.T) {
	stage := StageSpec{
		Kind:     viz.StageFragment,
		Source:   "${ P }$",
		Uniforms: []Uniform{{Name: "u_orig", Type: viz.TypeFloat}},
	}
	rule := Rule{
		Replacements: []Replacement{{Target: "P", Snippet: "s"}},
		Uniforms:     []Uniform{{Name: "u_new", Type: viz.TypeFloat}},
	}
	in := []StageSpec{stage}
	_ = ApplyReplacements(in, []Rule{rule})
	if in[0].Source != "${ P }$" || len(in[0].Uniforms) != 1 {
		t.Errorf("input stage mutated: %+v", in[0])
	}
}

func TestBuiltinProgramsWellFormed(t *testing.T) {
	seen := make(map[string]struct{})
	for _, p := range BuiltinPrograms() {
		if p.Name == "" {
			t.Fatal("builtin program with empty name")
		}
		if _, dup := seen[p.Name]; dup {
			t.Fatalf("duplicate builtin program %q", p.Name)
		}
		seen[p.Name] = struct{}{}

		if len(p.Stages) != 2 {
			t.Errorf("%s: %d stages, want vertex+fragment", p.Name, len(p.Stages))
			continue
		}
		if p.Stages[0].Kind != viz.StageVertex || p.Stages[1].Kind != viz.StageFragment {
			t.Errorf("%s: stage kinds %v/%v", p.Name, p.Stages[0].Kind, p.Stages[1].Kind)
		}
		for _, s := range p.Stages {
			if strings.TrimSpace(s.Source) == "" {
				t.Errorf("%s: empty stage source", p.Name)
			}
			// Declared names must show up in the template text.
			for _, a := range s.Attributes {
				if !strings.Contains(s.Source, a.Name) {
					t.Errorf("%s: attribute %s not present in source", p.Name, a.Name)
				}
			}
			for _, u := range s.Uniforms {
				if !strings.Contains(s.Source, u.Name) {
					t.Errorf("%s: uniform %s not present in source", p.Name, u.Name)
				}
			}
		}
	}
}

func TestBuiltinRulesResolveInMesh(t *testing.T) {
	programs := BuiltinPrograms()
	var mesh NamedProgram
	for _, p := range programs {
		if p.Name == "MESH" {
			mesh = p
		}
	}
	if mesh.Name == "" {
		t.Fatal("MESH program missing from builtins")
	}

	for _, nr := range BuiltinRules() {
		t.Run(nr.Name, func(t *testing.T) {
			out := ApplyReplacements(mesh.Stages, []Rule{nr.Rule})
			// Every uniform the rule declares must end up referenced
			// by the assembled source of some stage.
			for _, u := range nr.Rule.Uniforms {
				found := false
				for _, s := range out {
					if strings.Contains(s.Source, u.Name) {
						found = true
					}
				}
				if !found {
					t.Errorf("uniform %s declared but never injected", u.Name)
				}
			}
		})
	}
}

func TestClipPlaneRuleNames(t *testing.T) {
	if got, want := ClipPlaneRuleName("0x1"), "CLIP_PLANE_CULL_0x1"; got != want {
		t.Errorf("ClipPlaneRuleName = %q, want %q", got, want)
	}
	if got, want := ClipPlaneVolumeGridRuleName("0x1"), "CLIP_PLANE_VOLUMEGRID_CULL_0x1"; got != want {
		t.Errorf("ClipPlaneVolumeGridRuleName = %q, want %q", got, want)
	}
	if !IsClipPlaneRuleName(ClipPlaneRuleName("a")) {
		t.Error("generated cull name not recognized as clip plane rule")
	}
	if IsClipPlaneRuleName("SHADE_BASECOLOR") {
		t.Error("ordinary rule name recognized as clip plane rule")
	}
}

func TestClipPlaneRuleCombinesWithCullPos(t *testing.T) {
	programs := BuiltinPrograms()
	var mesh NamedProgram
	for _, p := range programs {
		if p.Name == "MESH" {
			mesh = p
		}
	}
	var cullPos Rule
	for _, nr := range BuiltinRules() {
		if nr.Name == "CULL_POS_FROM_VIEW" {
			cullPos = nr.Rule
		}
	}

	out := ApplyReplacements(mesh.Stages, []Rule{cullPos, ClipPlaneRule("p0")})
	frag := out[1].Source
	if !strings.Contains(frag, "cullPos") {
		t.Fatal("cullPos setup missing from assembled fragment source")
	}
	if !strings.Contains(frag, "u_clipPlane_p0") {
		t.Fatal("clip plane uniform missing from assembled fragment source")
	}
	if !strings.Contains(frag, "discard") {
		t.Fatal("discard filter missing from assembled fragment source")
	}
	// Setup snippet must precede the filter that reads it.
	if strings.Index(frag, "let cullPos") > strings.Index(frag, "u_clipPlane_p0) < 0.0") {
		t.Error("cull position established after the clip filter that uses it")
	}
}
