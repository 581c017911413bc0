package viz

// DataType is the semantic element type of attribute buffers, uniforms and
// index buffers. It is an abstract enumeration: backends map it to whatever
// native vertex-format and uniform tokens their API uses.
type DataType uint8

const (
	// TypeFloat is a single 32-bit float.
	TypeFloat DataType = iota
	// TypeInt is a single signed 32-bit integer.
	TypeInt
	// TypeUInt is a single unsigned 32-bit integer.
	TypeUInt
	// TypeVec2 is a 2-component float vector.
	TypeVec2
	// TypeVec3 is a 3-component float vector.
	TypeVec3
	// TypeVec4 is a 4-component float vector.
	TypeVec4
	// TypeUVec2 is a 2-component unsigned integer vector.
	TypeUVec2
	// TypeUVec3 is a 3-component unsigned integer vector.
	TypeUVec3
	// TypeUVec4 is a 4-component unsigned integer vector.
	TypeUVec4
	// TypeMat4 is a 4x4 float matrix. Valid for uniforms only.
	TypeMat4
)

// String returns the lowercase name of the data type.
func (t DataType) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeUInt:
		return "uint"
	case TypeVec2:
		return "vec2"
	case TypeVec3:
		return "vec3"
	case TypeVec4:
		return "vec4"
	case TypeUVec2:
		return "uvec2"
	case TypeUVec3:
		return "uvec3"
	case TypeUVec4:
		return "uvec4"
	case TypeMat4:
		return "mat4"
	default:
		return "invalid"
	}
}

// Components returns the number of scalar components in one element
// (16 for TypeMat4).
func (t DataType) Components() int {
	switch t {
	case TypeFloat, TypeInt, TypeUInt:
		return 1
	case TypeVec2, TypeUVec2:
		return 2
	case TypeVec3, TypeUVec3:
		return 3
	case TypeVec4, TypeUVec4:
		return 4
	case TypeMat4:
		return 16
	default:
		return 0
	}
}

// SizeBytes returns the byte size of one element. All scalar components are
// 32 bits wide.
func (t DataType) SizeBytes() int { return 4 * t.Components() }

// IsFloat reports whether the type belongs to the float family.
func (t DataType) IsFloat() bool {
	switch t {
	case TypeFloat, TypeVec2, TypeVec3, TypeVec4, TypeMat4:
		return true
	}
	return false
}

// IsUint reports whether the type belongs to the unsigned-integer family.
func (t DataType) IsUint() bool {
	switch t {
	case TypeUInt, TypeUVec2, TypeUVec3, TypeUVec4:
		return true
	}
	return false
}

// CountCompatibility returns the integer multiplier relating a buffer of
// element type buf to an attribute declared as attr: how many buf elements
// make up one attr element. Identical types give 1; a vec3 attribute fed
// from a plain float buffer gives 3; incompatible pairs give 0.
//
// Compatibility requires the same scalar family (float with float, uint
// with uint, int only with int) and that the buffer's component count
// divides the attribute's.
func CountCompatibility(attr, buf DataType) int {
	if attr == buf {
		return 1
	}
	if attr == TypeMat4 || buf == TypeMat4 {
		return 0
	}
	sameFamily := (attr.IsFloat() && buf.IsFloat()) || (attr.IsUint() && buf.IsUint())
	if !sameFamily {
		return 0
	}
	ac, bc := attr.Components(), buf.Components()
	if bc == 0 || ac%bc != 0 {
		return 0
	}
	return ac / bc
}

// IndexSizeMultiplier returns how many indices one element of an index
// buffer of type t packs: 1 for scalar integer types, 2/3/4 for the small
// unsigned vector types (e.g. a triangle's three corner indices stored as
// one uvec3 element). It returns 0 for float-family types, which are not
// legal index buffers.
func IndexSizeMultiplier(t DataType) int {
	switch t {
	case TypeInt, TypeUInt:
		return 1
	case TypeUVec2:
		return 2
	case TypeUVec3:
		return 3
	case TypeUVec4:
		return 4
	default:
		return 0
	}
}

// DrawMode describes how a program assembles vertices into primitives.
type DrawMode uint8

const (
	// DrawPoints draws one point per vertex.
	DrawPoints DrawMode = iota
	// DrawLines draws a line per vertex pair.
	DrawLines
	// DrawTriangles draws a triangle per vertex triple.
	DrawTriangles
	// DrawLinesAdjacency draws lines with adjacency information.
	DrawLinesAdjacency
	// DrawTrianglesAdjacency draws triangles with adjacency information.
	DrawTrianglesAdjacency
	// DrawIndexedLines draws lines through an index buffer.
	DrawIndexedLines
	// DrawIndexedLineStrip draws a line strip through an index buffer,
	// with primitive restart.
	DrawIndexedLineStrip
	// DrawIndexedLinesAdjacency draws adjacency lines through an index buffer.
	DrawIndexedLinesAdjacency
	// DrawIndexedLineStripAdjacency draws an adjacency line strip through an
	// index buffer, with primitive restart.
	DrawIndexedLineStripAdjacency
	// DrawIndexedTriangles draws triangles through an index buffer.
	DrawIndexedTriangles
	// DrawTrianglesInstanced draws instanced triangles.
	DrawTrianglesInstanced
	// DrawTriangleStripInstanced draws instanced triangle strips.
	DrawTriangleStripInstanced
)

// String returns the name of the draw mode.
func (m DrawMode) String() string {
	switch m {
	case DrawPoints:
		return "points"
	case DrawLines:
		return "lines"
	case DrawTriangles:
		return "triangles"
	case DrawLinesAdjacency:
		return "lines-adjacency"
	case DrawTrianglesAdjacency:
		return "triangles-adjacency"
	case DrawIndexedLines:
		return "indexed-lines"
	case DrawIndexedLineStrip:
		return "indexed-line-strip"
	case DrawIndexedLinesAdjacency:
		return "indexed-lines-adjacency"
	case DrawIndexedLineStripAdjacency:
		return "indexed-line-strip-adjacency"
	case DrawIndexedTriangles:
		return "indexed-triangles"
	case DrawTrianglesInstanced:
		return "triangles-instanced"
	case DrawTriangleStripInstanced:
		return "triangle-strip-instanced"
	default:
		return "invalid"
	}
}

// Indexed reports whether the mode draws through an index buffer.
func (m DrawMode) Indexed() bool {
	switch m {
	case DrawIndexedLines, DrawIndexedLineStrip, DrawIndexedLinesAdjacency,
		DrawIndexedLineStripAdjacency, DrawIndexedTriangles:
		return true
	}
	return false
}

// Instanced reports whether the mode requires an explicit instance count.
func (m DrawMode) Instanced() bool {
	return m == DrawTrianglesInstanced || m == DrawTriangleStripInstanced
}

// UsesPrimitiveRestart reports whether the mode honors a primitive restart
// index while drawing.
func (m DrawMode) UsesPrimitiveRestart() bool {
	return m == DrawIndexedLineStrip || m == DrawIndexedLineStripAdjacency
}

// StageKind identifies a shader stage.
type StageKind uint8

const (
	// StageVertex is the vertex stage.
	StageVertex StageKind = iota
	// StageFragment is the fragment stage.
	StageFragment
)

// String returns the stage name.
func (k StageKind) String() string {
	switch k {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return "invalid"
	}
}

// TextureFormat is the abstract pixel format of a texture. Backends map it
// to native format tokens.
type TextureFormat uint8

const (
	// FormatRGB8 is 8-bit-per-channel RGB.
	FormatRGB8 TextureFormat = iota
	// FormatRGBA8 is 8-bit-per-channel RGBA.
	FormatRGBA8
	// FormatRG16F is 16-bit float RG.
	FormatRG16F
	// FormatRGB16F is 16-bit float RGB.
	FormatRGB16F
	// FormatRGBA16F is 16-bit float RGBA.
	FormatRGBA16F
	// FormatR32F is a single 32-bit float channel.
	FormatR32F
	// FormatR16F is a single 16-bit float channel.
	FormatR16F
	// FormatRGB32F is 32-bit float RGB.
	FormatRGB32F
	// FormatRGBA32F is 32-bit float RGBA.
	FormatRGBA32F
	// FormatDepth24 is a 24-bit depth format.
	FormatDepth24
)

// String returns the format name.
func (f TextureFormat) String() string {
	switch f {
	case FormatRGB8:
		return "rgb8"
	case FormatRGBA8:
		return "rgba8"
	case FormatRG16F:
		return "rg16f"
	case FormatRGB16F:
		return "rgb16f"
	case FormatRGBA16F:
		return "rgba16f"
	case FormatR32F:
		return "r32f"
	case FormatR16F:
		return "r16f"
	case FormatRGB32F:
		return "rgb32f"
	case FormatRGBA32F:
		return "rgba32f"
	case FormatDepth24:
		return "depth24"
	default:
		return "invalid"
	}
}

// Channels returns the number of color channels in the format
// (1 for depth formats).
func (f TextureFormat) Channels() int {
	switch f {
	case FormatRGB8, FormatRGB16F, FormatRGB32F:
		return 3
	case FormatRGBA8, FormatRGBA16F, FormatRGBA32F:
		return 4
	case FormatRG16F:
		return 2
	case FormatR32F, FormatR16F, FormatDepth24:
		return 1
	default:
		return 0
	}
}

// IsDepth reports whether the format stores depth rather than color.
func (f TextureFormat) IsDepth() bool { return f == FormatDepth24 }

// ByteFormat reports whether the format's source data is 8-bit bytes per
// channel (as opposed to floats).
func (f TextureFormat) ByteFormat() bool {
	return f == FormatRGB8 || f == FormatRGBA8
}

// FilterMode selects texture sampling behavior.
type FilterMode uint8

const (
	// FilterNearest samples the nearest texel.
	FilterNearest FilterMode = iota
	// FilterLinear interpolates linearly between texels.
	FilterLinear
)

// String returns the filter name.
func (m FilterMode) String() string {
	if m == FilterLinear {
		return "linear"
	}
	return "nearest"
}

// RenderBufferKind is the logical type of a render buffer attachment.
type RenderBufferKind uint8

const (
	// RenderBufferColorAlpha is a color attachment with alpha.
	RenderBufferColorAlpha RenderBufferKind = iota
	// RenderBufferColor is a color attachment without alpha.
	RenderBufferColor
	// RenderBufferDepth is a depth attachment.
	RenderBufferDepth
	// RenderBufferFloat4 is a high-precision float4 color attachment.
	RenderBufferFloat4
)

// String returns the kind name.
func (k RenderBufferKind) String() string {
	switch k {
	case RenderBufferColorAlpha:
		return "color-alpha"
	case RenderBufferColor:
		return "color"
	case RenderBufferDepth:
		return "depth"
	case RenderBufferFloat4:
		return "float4"
	default:
		return "invalid"
	}
}
