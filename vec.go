package viz

// Small GPU-facing value types. Components are float32/uint32 to match the
// 32-bit scalar width of the buffer and uniform formats; conversions from
// float64 happen at the API edge (SetUniformFloat64 and friends).

// Vec2 is a 2-component float vector.
type Vec2 struct {
	X, Y float32
}

// Vec3 is a 3-component float vector.
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 is a 4-component float vector.
type Vec4 struct {
	X, Y, Z, W float32
}

// UVec2 is a 2-component unsigned integer vector.
type UVec2 struct {
	X, Y uint32
}

// UVec3 is a 3-component unsigned integer vector.
type UVec3 struct {
	X, Y, Z uint32
}

// UVec4 is a 4-component unsigned integer vector.
type UVec4 struct {
	X, Y, Z, W uint32
}

// V2 is a convenience constructor for Vec2.
func V2(x, y float32) Vec2 { return Vec2{X: x, Y: y} }

// V3 is a convenience constructor for Vec3.
func V3(x, y, z float32) Vec3 { return Vec3{X: x, Y: y, Z: z} }

// V4 is a convenience constructor for Vec4.
func V4(x, y, z, w float32) Vec4 { return Vec4{X: x, Y: y, Z: z, W: w} }

// Mat4 is a 4x4 float matrix in column-major order, the layout uniform
// uploads expect.
type Mat4 [16]float32

// Mat4Identity returns the identity matrix.
func Mat4Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// At returns the element at row r, column c.
func (m Mat4) At(r, c int) float32 { return m[c*4+r] }

// Mul returns the matrix product m * n.
func (m Mat4) Mul(n Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m.At(r, k) * n.At(k, c)
			}
			out[c*4+r] = sum
		}
	}
	return out
}

// MulVec4 returns the matrix-vector product m * v.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		X: m.At(0, 0)*v.X + m.At(0, 1)*v.Y + m.At(0, 2)*v.Z + m.At(0, 3)*v.W,
		Y: m.At(1, 0)*v.X + m.At(1, 1)*v.Y + m.At(1, 2)*v.Z + m.At(1, 3)*v.W,
		Z: m.At(2, 0)*v.X + m.At(2, 1)*v.Y + m.At(2, 2)*v.Z + m.At(2, 3)*v.W,
		W: m.At(3, 0)*v.X + m.At(3, 1)*v.Y + m.At(3, 2)*v.Z + m.At(3, 3)*v.W,
	}
}
