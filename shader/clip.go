package shader

import (
	"strings"

	viz "github.com/gogpu/viz"
)

// ClipPlaneRulePrefix marks rule names that belong to scene-wide clip
// planes. Names with this prefix are reserved: user rules may not use
// it, and the no-clip default set filters them out.
const ClipPlaneRulePrefix = "CLIP_PLANE_"

// ClipPlaneRuleName returns the object-cull rule name for a clip plane
// with the given unique suffix.
func ClipPlaneRuleName(suffix string) string {
	return ClipPlaneRulePrefix + "CULL_" + suffix
}

// ClipPlaneVolumeGridRuleName returns the whole-cell cull rule name for
// a clip plane with the given unique suffix. Volume grids discard a
// cell only once its entire extent is behind the plane, so the grid
// face stays closed at the cut.
func ClipPlaneVolumeGridRuleName(suffix string) string {
	return ClipPlaneRulePrefix + "VOLUMEGRID_CULL_" + suffix
}

// IsClipPlaneRuleName reports whether name belongs to a clip plane.
func IsClipPlaneRuleName(name string) bool {
	return strings.HasPrefix(name, ClipPlaneRulePrefix)
}

// ClipPlaneRule builds the fragment cull rule for one clip plane. The
// plane is a vec4 in view space (xyz normal, w offset); fragments with
// dot(vec4(cullPos, 1), plane) < 0 are discarded. The rule reads
// cullPos, so it only resolves in programs that also carry a rule
// establishing it, such as CULL_POS_FROM_VIEW.
func ClipPlaneRule(suffix string) Rule {
	u := "u_clipPlane_" + suffix
	return Rule{
		Replacements: []Replacement{
			{Target: PointFragmentUniforms, Snippet: "    " + u + ": vec4<f32>,"},
			{
				Target:  PointFragmentFilter,
				Snippet: "    if (dot(vec4<f32>(cullPos, 1.0), frag." + u + ") < 0.0) { discard; }",
			},
		},
		Uniforms: []Uniform{{Name: u, Type: viz.TypeVec4}},
	}
}

// ClipPlaneVolumeGridRule builds the cell cull rule for one clip
// plane. It keeps a fragment while any part of a cell of radius
// u_clipCellRadius_<suffix> around cullPos is still on the visible
// side of the plane.
func ClipPlaneVolumeGridRule(suffix string) Rule {
	u := "u_clipPlane_" + suffix
	r := "u_clipCellRadius_" + suffix
	return Rule{
		Replacements: []Replacement{
			{
				Target:  PointFragmentUniforms,
				Snippet: "    " + u + ": vec4<f32>,\n    " + r + ": f32,",
			},
			{
				Target:  PointFragmentFilter,
				Snippet: "    if (dot(vec4<f32>(cullPos, 1.0), frag." + u + ") < -frag." + r + ") { discard; }",
			},
		},
		Uniforms: []Uniform{
			{Name: u, Type: viz.TypeVec4},
			{Name: r, Type: viz.TypeFloat},
		},
	}
}
