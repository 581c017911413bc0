package shader

// Insertion-point names used by the built-in program library. Rules that
// target the built-in programs inject at these points; custom programs may
// define their own points, or reuse these names to stay compatible with the
// built-in rules.
//
// The built-in sources follow a few naming conventions the rules rely on:
// the vertex input/output structs are bound to locals vin/vout, the fragment
// input to fin, the per-stage uniform structs to vert/frag, and the fragment
// color under construction is the local litColor (with the pre-lighting
// surface color in albedo).
const (
	// PointVertexUniforms extends the vertex uniform struct.
	PointVertexUniforms = "VERT_UNIFORM_DECLS"
	// PointVertexAttrs extends the vertex input struct.
	PointVertexAttrs = "VERT_ATTR_DECLS"
	// PointVertexOutputs extends the vertex output struct.
	PointVertexOutputs = "VERT_OUT_DECLS"
	// PointVertexFuncs adds module-scope functions to the vertex stage.
	PointVertexFuncs = "VERT_FUNC_DEFS"
	// PointVertexAssign adds statements at the end of the vertex entry point.
	PointVertexAssign = "VERT_ASSIGNMENTS"

	// PointFragmentInputs extends the fragment input struct.
	PointFragmentInputs = "FRAG_IN_DECLS"
	// PointFragmentUniforms extends the fragment uniform struct.
	PointFragmentUniforms = "FRAG_UNIFORM_DECLS"
	// PointFragmentTextures adds module-scope texture/sampler declarations.
	// Rule-injected textures use bindings 8 and up; the built-in programs
	// keep 0-7 for themselves.
	PointFragmentTextures = "FRAG_TEXTURE_DECLS"
	// PointFragmentFuncs adds module-scope functions to the fragment stage.
	PointFragmentFuncs = "FRAG_FUNC_DEFS"
	// PointFragmentSetup adds statements before filtering (value derivation,
	// cull-position setup).
	PointFragmentSetup = "FRAG_VALUE_SETUP"
	// PointFragmentFilter adds discard checks.
	PointFragmentFilter = "FRAG_FILTER"
	// PointFragmentShade adds statements assigning the surface color albedo.
	PointFragmentShade = "FRAG_SHADE"
	// PointFragmentTweak adds final adjustments to litColor.
	PointFragmentTweak = "FRAG_OUTPUT_TWEAK"
)
