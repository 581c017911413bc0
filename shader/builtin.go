package shader

import "github.com/gogpu/viz"

// NamedProgram is a base program ready for registration: its stage list and
// the draw mode its vertices assemble under.
type NamedProgram struct {
	Name   string
	Stages []StageSpec
	Mode   viz.DrawMode
}

// NamedRule is a replacement rule ready for registration.
type NamedRule struct {
	Name string
	Rule Rule
}

// == Shared stage sources

const meshVertSrc = `
struct MeshVertexUniforms {
    u_modelView: mat4x4<f32>,
    u_projMatrix: mat4x4<f32>,
${ VERT_UNIFORM_DECLS }$
}

@group(0) @binding(0) var<uniform> vert: MeshVertexUniforms;

struct VertexInput {
    @location(0) a_position: vec3<f32>,
    @location(1) a_normal: vec3<f32>,
    @location(2) a_barycoord: vec3<f32>,
${ VERT_ATTR_DECLS }$
}

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) v_normal: vec3<f32>,
    @location(1) v_barycoord: vec3<f32>,
    @location(2) v_viewPos: vec3<f32>,
${ VERT_OUT_DECLS }$
}

${ VERT_FUNC_DEFS }$

@vertex
fn main(vin: VertexInput) -> VertexOutput {
    var vout: VertexOutput;
    let viewPos4 = vert.u_modelView * vec4<f32>(vin.a_position, 1.0);
    vout.position = vert.u_projMatrix * viewPos4;
    vout.v_normal = normalize((vert.u_modelView * vec4<f32>(vin.a_normal, 0.0)).xyz);
    vout.v_barycoord = vin.a_barycoord;
    vout.v_viewPos = viewPos4.xyz;
${ VERT_ASSIGNMENTS }$
    return vout;
}
`

const meshFragSrc = `
struct MeshShadeUniforms {
    u_alpha: f32,
${ FRAG_UNIFORM_DECLS }$
}

@group(0) @binding(1) var<uniform> frag: MeshShadeUniforms;

${ FRAG_TEXTURE_DECLS }$

struct FragmentInput {
    @location(0) v_normal: vec3<f32>,
    @location(1) v_barycoord: vec3<f32>,
    @location(2) v_viewPos: vec3<f32>,
${ FRAG_IN_DECLS }$
}

${ FRAG_FUNC_DEFS }$

@fragment
fn main(fin: FragmentInput) -> @location(0) vec4<f32> {
    var albedo: vec3<f32> = vec3<f32>(0.8, 0.8, 0.8);
${ FRAG_VALUE_SETUP }$
${ FRAG_FILTER }$
${ FRAG_SHADE }$
    let nDotL = max(dot(normalize(fin.v_normal), normalize(vec3<f32>(0.3, 0.4, 0.8))), 0.0);
    var litColor: vec3<f32> = albedo * (0.2 + 0.8 * nDotL);
${ FRAG_OUTPUT_TWEAK }$
    return vec4<f32>(litColor, frag.u_alpha);
}
`

// flatVertSrc transforms positions only and carries the view position, so
// the cull and clip rules work on flat-shaded geometry too.
const flatVertSrc = `
struct FlatVertexUniforms {
    u_modelView: mat4x4<f32>,
    u_projMatrix: mat4x4<f32>,
${ VERT_UNIFORM_DECLS }$
}

@group(0) @binding(0) var<uniform> vert: FlatVertexUniforms;

struct VertexInput {
    @location(0) a_position: vec3<f32>,
${ VERT_ATTR_DECLS }$
}

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) v_viewPos: vec3<f32>,
${ VERT_OUT_DECLS }$
}

${ VERT_FUNC_DEFS }$

@vertex
fn main(vin: VertexInput) -> VertexOutput {
    var vout: VertexOutput;
    let viewPos4 = vert.u_modelView * vec4<f32>(vin.a_position, 1.0);
    vout.position = vert.u_projMatrix * viewPos4;
    vout.v_viewPos = viewPos4.xyz;
${ VERT_ASSIGNMENTS }$
    return vout;
}
`

const flatFragSrc = `
struct FlatShadeUniforms {
    u_color: vec3<f32>,
    u_alpha: f32,
${ FRAG_UNIFORM_DECLS }$
}

@group(0) @binding(1) var<uniform> frag: FlatShadeUniforms;

${ FRAG_TEXTURE_DECLS }$

struct FragmentInput {
    @location(0) v_viewPos: vec3<f32>,
${ FRAG_IN_DECLS }$
}

${ FRAG_FUNC_DEFS }$

@fragment
fn main(fin: FragmentInput) -> @location(0) vec4<f32> {
    var albedo: vec3<f32> = frag.u_color;
${ FRAG_VALUE_SETUP }$
${ FRAG_FILTER }$
${ FRAG_SHADE }$
    var litColor: vec3<f32> = albedo;
${ FRAG_OUTPUT_TWEAK }$
    return vec4<f32>(litColor, frag.u_alpha);
}
`

const histogramVertSrc = `
struct VertexInput {
    @location(0) a_coord: vec2<f32>,
${ VERT_ATTR_DECLS }$
}

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) v_t: f32,
${ VERT_OUT_DECLS }$
}

@vertex
fn main(vin: VertexInput) -> VertexOutput {
    var vout: VertexOutput;
    vout.v_t = vin.a_coord.x;
    vout.position = vec4<f32>(vin.a_coord * 2.0 - vec2<f32>(1.0, 1.0), 0.0, 1.0);
${ VERT_ASSIGNMENTS }$
    return vout;
}
`

const histogramFragSrc = `
@group(0) @binding(1) var t_colormap: texture_1d<f32>;
@group(0) @binding(2) var s_colormap: sampler;

${ FRAG_TEXTURE_DECLS }$

struct FragmentInput {
    @location(0) v_t: f32,
${ FRAG_IN_DECLS }$
}

@fragment
fn main(fin: FragmentInput) -> @location(0) vec4<f32> {
    var litColor: vec3<f32> = textureSample(t_colormap, s_colormap, fin.v_t).rgb;
${ FRAG_FILTER }$
${ FRAG_OUTPUT_TWEAK }$
    return vec4<f32>(litColor, 1.0);
}
`

const textureDrawVertSrc = `
struct VertexInput {
    @location(0) a_position: vec2<f32>,
${ VERT_ATTR_DECLS }$
}

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) v_tCoord: vec2<f32>,
${ VERT_OUT_DECLS }$
}

@vertex
fn main(vin: VertexInput) -> VertexOutput {
    var vout: VertexOutput;
    vout.v_tCoord = vin.a_position * 0.5 + vec2<f32>(0.5, 0.5);
    vout.position = vec4<f32>(vin.a_position, 0.0, 1.0);
${ VERT_ASSIGNMENTS }$
    return vout;
}
`

const textureDrawPlainFragSrc = `
@group(0) @binding(1) var t_image: texture_2d<f32>;
@group(0) @binding(2) var s_image: sampler;

${ FRAG_TEXTURE_DECLS }$

struct FragmentInput {
    @location(0) v_tCoord: vec2<f32>,
${ FRAG_IN_DECLS }$
}

@fragment
fn main(fin: FragmentInput) -> @location(0) vec4<f32> {
    var litColor: vec3<f32> = textureSample(t_image, s_image, fin.v_tCoord).rgb;
${ FRAG_FILTER }$
${ FRAG_OUTPUT_TWEAK }$
    return vec4<f32>(litColor, 1.0);
}
`

const scalarColormapFragSrc = `
struct ColormapRangeUniforms {
    u_rangeLow: f32,
    u_rangeHigh: f32,
${ FRAG_UNIFORM_DECLS }$
}

@group(0) @binding(1) var<uniform> frag: ColormapRangeUniforms;

@group(0) @binding(2) var t_scalar: texture_2d<f32>;
@group(0) @binding(3) var s_scalar: sampler;
@group(0) @binding(4) var t_colormap: texture_1d<f32>;
@group(0) @binding(5) var s_colormap: sampler;

${ FRAG_TEXTURE_DECLS }$

struct FragmentInput {
    @location(0) v_tCoord: vec2<f32>,
${ FRAG_IN_DECLS }$
}

@fragment
fn main(fin: FragmentInput) -> @location(0) vec4<f32> {
    let value = textureSample(t_scalar, s_scalar, fin.v_tCoord).r;
    let t = clamp((value - frag.u_rangeLow) / (frag.u_rangeHigh - frag.u_rangeLow), 0.0, 1.0);
    var litColor: vec3<f32> = textureSample(t_colormap, s_colormap, t).rgb;
${ FRAG_FILTER }$
${ FRAG_OUTPUT_TWEAK }$
    return vec4<f32>(litColor, 1.0);
}
`

// == Stage spec constructors

func meshStages() []StageSpec {
	return []StageSpec{
		{
			Kind:   viz.StageVertex,
			Source: meshVertSrc,
			Attributes: []Attribute{
				{Name: "a_position", Type: viz.TypeVec3, ArrayCount: 1},
				{Name: "a_normal", Type: viz.TypeVec3, ArrayCount: 1},
				{Name: "a_barycoord", Type: viz.TypeVec3, ArrayCount: 1},
			},
			Uniforms: []Uniform{
				{Name: "u_modelView", Type: viz.TypeMat4},
				{Name: "u_projMatrix", Type: viz.TypeMat4},
			},
		},
		{
			Kind:     viz.StageFragment,
			Source:   meshFragSrc,
			Uniforms: []Uniform{{Name: "u_alpha", Type: viz.TypeFloat}},
		},
	}
}

func flatStages() []StageSpec {
	return []StageSpec{
		{
			Kind:   viz.StageVertex,
			Source: flatVertSrc,
			Attributes: []Attribute{
				{Name: "a_position", Type: viz.TypeVec3, ArrayCount: 1},
			},
			Uniforms: []Uniform{
				{Name: "u_modelView", Type: viz.TypeMat4},
				{Name: "u_projMatrix", Type: viz.TypeMat4},
			},
		},
		{
			Kind:   viz.StageFragment,
			Source: flatFragSrc,
			Uniforms: []Uniform{
				{Name: "u_color", Type: viz.TypeVec3},
				{Name: "u_alpha", Type: viz.TypeFloat},
			},
		},
	}
}

// BuiltinPrograms returns the base program library registered by
// PopulateDefaults. Program names are stable engine-facing identifiers.
func BuiltinPrograms() []NamedProgram {
	return []NamedProgram{
		{Name: "MESH", Stages: meshStages(), Mode: viz.DrawTriangles},
		{Name: "INDEXED_MESH", Stages: meshStages(), Mode: viz.DrawIndexedTriangles},
		{Name: "MESH_INSTANCED", Stages: meshStages(), Mode: viz.DrawTrianglesInstanced},
		{Name: "SIMPLE_MESH", Stages: flatStages(), Mode: viz.DrawIndexedTriangles},
		{Name: "POINT_QUAD", Stages: flatStages(), Mode: viz.DrawPoints},
		{Name: "LINE_STRIP", Stages: flatStages(), Mode: viz.DrawIndexedLineStrip},
		{Name: "CLIP_PLANE_GRID", Stages: flatStages(), Mode: viz.DrawTriangles},
		{
			Name: "HISTOGRAM",
			Stages: []StageSpec{
				{
					Kind:       viz.StageVertex,
					Source:     histogramVertSrc,
					Attributes: []Attribute{{Name: "a_coord", Type: viz.TypeVec2, ArrayCount: 1}},
				},
				{
					Kind:     viz.StageFragment,
					Source:   histogramFragSrc,
					Textures: []TextureSlot{{Name: "t_colormap", Dim: 1}},
				},
			},
			Mode: viz.DrawTriangles,
		},
		{
			Name: "TEXTURE_DRAW_PLAIN",
			Stages: []StageSpec{
				{
					Kind:       viz.StageVertex,
					Source:     textureDrawVertSrc,
					Attributes: []Attribute{{Name: "a_position", Type: viz.TypeVec2, ArrayCount: 1}},
				},
				{
					Kind:     viz.StageFragment,
					Source:   textureDrawPlainFragSrc,
					Textures: []TextureSlot{{Name: "t_image", Dim: 2}},
				},
			},
			Mode: viz.DrawTriangles,
		},
		{
			Name: "SCALAR_TEXTURE_COLORMAP",
			Stages: []StageSpec{
				{
					Kind:       viz.StageVertex,
					Source:     textureDrawVertSrc,
					Attributes: []Attribute{{Name: "a_position", Type: viz.TypeVec2, ArrayCount: 1}},
				},
				{
					Kind:   viz.StageFragment,
					Source: scalarColormapFragSrc,
					Uniforms: []Uniform{
						{Name: "u_rangeLow", Type: viz.TypeFloat},
						{Name: "u_rangeHigh", Type: viz.TypeFloat},
					},
					Textures: []TextureSlot{
						{Name: "t_scalar", Dim: 2},
						{Name: "t_colormap", Dim: 1},
					},
				},
			},
			Mode: viz.DrawTriangles,
		},
	}
}

// BuiltinRules returns the replacement-rule library registered by
// PopulateDefaults.
func BuiltinRules() []NamedRule {
	return []NamedRule{
		{
			// Discards fragments below the global alpha threshold. Part of
			// every scene-object preset.
			Name: "GLOBAL_FRAGMENT_FILTER",
			Rule: Rule{
				Replacements: []Replacement{
					{Target: PointFragmentUniforms, Snippet: "    u_alphaDiscard: f32,"},
					{
						Target:  PointFragmentFilter,
						Snippet: "    if (frag.u_alpha < frag.u_alphaDiscard) { discard; }",
					},
				},
				Uniforms: []Uniform{{Name: "u_alphaDiscard", Type: viz.TypeFloat}},
			},
		},
		{
			// Derives the cull position used by clip-plane rules from the
			// interpolated view-space position.
			Name: "CULL_POS_FROM_VIEW",
			Rule: Rule{
				Replacements: []Replacement{{
					Target:  PointFragmentSetup,
					Snippet: "    let cullPos: vec3<f32> = fin.v_viewPos;",
				}},
			},
		},
		{
			Name: "SHADE_BASECOLOR",
			Rule: Rule{
				Replacements: []Replacement{
					{Target: PointFragmentUniforms, Snippet: "    u_baseColor: vec3<f32>,"},
					{Target: PointFragmentShade, Snippet: "    albedo = frag.u_baseColor;"},
				},
				Uniforms: []Uniform{{Name: "u_baseColor", Type: viz.TypeVec3}},
			},
		},
		{
			// Shades from a per-vertex color; pair with MESH_PROPAGATE_COLOR.
			Name: "SHADE_COLOR",
			Rule: Rule{
				Replacements: []Replacement{{
					Target:  PointFragmentShade,
					Snippet: "    albedo = fin.v_color;",
				}},
			},
		},
		{
			Name: "SHADECOLOR_FROM_UNIFORM",
			Rule: Rule{
				Replacements: []Replacement{
					{Target: PointFragmentUniforms, Snippet: "    u_shadeColor: vec3<f32>,"},
					{Target: PointFragmentShade, Snippet: "    albedo = frag.u_shadeColor;"},
				},
				Uniforms: []Uniform{{Name: "u_shadeColor", Type: viz.TypeVec3}},
			},
		},
		{
			// Shades scalar values through a 1D colormap texture; pair with
			// MESH_PROPAGATE_VALUE.
			Name: "SHADE_COLORMAP_VALUE",
			Rule: Rule{
				Replacements: []Replacement{
					{Target: PointFragmentUniforms, Snippet: "    u_rangeLow: f32,\n    u_rangeHigh: f32,"},
					{
						Target: PointFragmentTextures,
						Snippet: "@group(0) @binding(8) var t_colormap: texture_1d<f32>;\n" +
							"@group(0) @binding(9) var s_colormap: sampler;",
					},
					{
						Target: PointFragmentShade,
						Snippet: "    let cmT = clamp((fin.v_value - frag.u_rangeLow) / (frag.u_rangeHigh - frag.u_rangeLow), 0.0, 1.0);\n" +
							"    albedo = textureSample(t_colormap, s_colormap, cmT).rgb;",
					},
				},
				Uniforms: []Uniform{
					{Name: "u_rangeLow", Type: viz.TypeFloat},
					{Name: "u_rangeHigh", Type: viz.TypeFloat},
				},
				Textures: []TextureSlot{{Name: "t_colormap", Dim: 1}},
			},
		},
		{
			Name: "MESH_PROPAGATE_VALUE",
			Rule: Rule{
				Replacements: []Replacement{
					{Target: PointVertexAttrs, Snippet: "    @location(9) a_value: f32,"},
					{Target: PointVertexOutputs, Snippet: "    @location(9) v_value: f32,"},
					{Target: PointVertexAssign, Snippet: "    vout.v_value = vin.a_value;"},
					{Target: PointFragmentInputs, Snippet: "    @location(9) v_value: f32,"},
				},
				Attributes: []Attribute{{Name: "a_value", Type: viz.TypeFloat, ArrayCount: 1}},
			},
		},
		{
			Name: "MESH_PROPAGATE_COLOR",
			Rule: Rule{
				Replacements: []Replacement{
					{Target: PointVertexAttrs, Snippet: "    @location(8) a_color: vec3<f32>,"},
					{Target: PointVertexOutputs, Snippet: "    @location(8) v_color: vec3<f32>,"},
					{Target: PointVertexAssign, Snippet: "    vout.v_color = vin.a_color;"},
					{Target: PointFragmentInputs, Snippet: "    @location(8) v_color: vec3<f32>,"},
				},
				Attributes: []Attribute{{Name: "a_color", Type: viz.TypeVec3, ArrayCount: 1}},
			},
		},
		{
			// Darkens fragments near triangle edges using the barycentric
			// coordinate attribute of the mesh programs.
			Name: "MESH_WIREFRAME",
			Rule: Rule{
				Replacements: []Replacement{
					{Target: PointFragmentUniforms, Snippet: "    u_edgeWidth: f32,\n    u_edgeColor: vec3<f32>,"},
					{
						Target: PointFragmentTweak,
						Snippet: "    let bcMin = min(fin.v_barycoord.x, min(fin.v_barycoord.y, fin.v_barycoord.z));\n" +
							"    if (bcMin < frag.u_edgeWidth) { litColor = frag.u_edgeColor; }",
					},
				},
				Uniforms: []Uniform{
					{Name: "u_edgeWidth", Type: viz.TypeFloat},
					{Name: "u_edgeColor", Type: viz.TypeVec3},
				},
			},
		},
		{
			// Undoes the display gamma before values land in linear
			// intermediate buffers.
			Name: "INVERSE_TONEMAP",
			Rule: Rule{
				Replacements: []Replacement{{
					Target:  PointFragmentTweak,
					Snippet: "    litColor = litColor * litColor;",
				}},
			},
		},
	}
}
