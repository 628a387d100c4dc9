package vecmath

import "math"

// Mat2 is a column-major 2x2 matrix.
type Mat2 struct {
	Cols [2]Vec2
}

// Mat3 is a column-major 3x3 matrix.
type Mat3 struct {
	Cols [3]Vec3
}

// Mat4 is a column-major 4x4 matrix.
type Mat4 struct {
	Cols [4]Vec4
}

// Identity3 returns the 3x3 identity matrix.
func Identity3() Mat3 {
	return Mat3{[3]Vec3{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}}
}

// Identity4 returns the 4x4 identity matrix.
func Identity4() Mat4 {
	return Mat4{[4]Vec4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}}
}

// MulVec applies m to v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return m.Cols[0].Scale(v.X).Add(m.Cols[1].Scale(v.Y)).Add(m.Cols[2].Scale(v.Z))
}

// Mul returns m*n.
func (m Mat3) Mul(n Mat3) Mat3 {
	return Mat3{[3]Vec3{
		m.MulVec(n.Cols[0]),
		m.MulVec(n.Cols[1]),
		m.MulVec(n.Cols[2]),
	}}
}

// Transpose returns the transpose of m.
func (m Mat3) Transpose() Mat3 {
	return Mat3{[3]Vec3{
		{m.Cols[0].X, m.Cols[1].X, m.Cols[2].X},
		{m.Cols[0].Y, m.Cols[1].Y, m.Cols[2].Y},
		{m.Cols[0].Z, m.Cols[1].Z, m.Cols[2].Z},
	}}
}

// Row returns row i (0..2) of m.
func (m Mat3) Row(i int) Vec3 {
	return Vec3{m.Cols[0].Component(i), m.Cols[1].Component(i), m.Cols[2].Component(i)}
}

// RotationEuler builds a rotation matrix from Euler angles (radians),
// applied in X, then Y, then Z order, mirroring the original
// rotation_euler() helper.
func RotationEuler(x, y, z float32) Mat3 {
	sx, cx := sincos32(x)
	sy, cy := sincos32(y)
	sz, cz := sincos32(z)

	rx := Mat3{[3]Vec3{
		{1, 0, 0},
		{0, cx, sx},
		{0, -sx, cx},
	}}
	ry := Mat3{[3]Vec3{
		{cy, 0, -sy},
		{0, 1, 0},
		{sy, 0, cy},
	}}
	rz := Mat3{[3]Vec3{
		{cz, sz, 0},
		{-sz, cz, 0},
		{0, 0, 1},
	}}
	return rz.Mul(ry).Mul(rx)
}

// Row returns row i (0..3) of m.
func (m Mat4) Row(i int) Vec4 {
	return Vec4{
		m.Cols[0].Component4(i), m.Cols[1].Component4(i),
		m.Cols[2].Component4(i), m.Cols[3].Component4(i),
	}
}

// Component4 returns the i-th component (0=X, 1=Y, 2=Z, 3=W).
func (a Vec4) Component4(i int) float32 {
	switch i {
	case 0:
		return a.X
	case 1:
		return a.Y
	case 2:
		return a.Z
	default:
		return a.W
	}
}

// MulVec applies m to v.
func (m Mat4) MulVec(v Vec4) Vec4 {
	return m.Cols[0].Scale(v.X).Add(m.Cols[1].Scale(v.Y)).Add(m.Cols[2].Scale(v.Z)).Add(m.Cols[3].Scale(v.W))
}

// MulPoint transforms a 3D point (w=1) by m and returns the first three
// components of the result; w is dropped, not divided through.
func (m Mat4) MulPoint(v Vec3) Vec3 {
	return m.MulVec(Vec4{v.X, v.Y, v.Z, 1}).Vec3()
}

// MulDir transforms a 3D direction (w=0) by m.
func (m Mat4) MulDir(v Vec3) Vec3 {
	return m.MulVec(Vec4{v.X, v.Y, v.Z, 0}).Vec3()
}

// Mul returns m*n.
func (m Mat4) Mul(n Mat4) Mat4 {
	return Mat4{[4]Vec4{
		m.MulVec(n.Cols[0]),
		m.MulVec(n.Cols[1]),
		m.MulVec(n.Cols[2]),
		m.MulVec(n.Cols[3]),
	}}
}

// Transpose returns the transpose of m.
func (m Mat4) Transpose() Mat4 {
	return Mat4{[4]Vec4{
		{m.Cols[0].X, m.Cols[1].X, m.Cols[2].X, m.Cols[3].X},
		{m.Cols[0].Y, m.Cols[1].Y, m.Cols[2].Y, m.Cols[3].Y},
		{m.Cols[0].Z, m.Cols[1].Z, m.Cols[2].Z, m.Cols[3].Z},
		{m.Cols[0].W, m.Cols[1].W, m.Cols[2].W, m.Cols[3].W},
	}}
}

// Scaling builds a scaling matrix.
func Scaling(s Vec3) Mat4 {
	m := Identity4()
	m.Cols[0].X = s.X
	m.Cols[1].Y = s.Y
	m.Cols[2].Z = s.Z
	return m
}

// Translation builds a translation matrix.
func Translation(t Vec3) Mat4 {
	m := Identity4()
	m.Cols[3] = Vec4{t.X, t.Y, t.Z, 1}
	return m
}

// Rotation4 embeds a 3x3 rotation into a 4x4 homogeneous matrix.
func Rotation4(r Mat3) Mat4 {
	m := Identity4()
	for i := 0; i < 3; i++ {
		m.Cols[i] = Vec4{r.Cols[i].X, r.Cols[i].Y, r.Cols[i].Z, 0}
	}
	return m
}

// ExtractMat3 returns the upper-left 3x3 of m, discarding translation --
// the rotation/scale part of a transform, used to carry surface normals
// from local into world space without translating them.
func ExtractMat3(m Mat4) Mat3 {
	return Mat3{[3]Vec3{m.Cols[0].Vec3(), m.Cols[1].Vec3(), m.Cols[2].Vec3()}}
}

// Inverse4 returns the inverse of m using the cofactor-expansion method
// used by GLM (and by the renderer this module descends from). It does not
// guard against singular matrices: a singular m yields an Inf/NaN result,
// matching the original's unchecked inverse4().
func (m Mat4) Inverse4() Mat4 {
	a := [16]float32{}
	for c := 0; c < 4; c++ {
		a[c*4+0] = m.Cols[c].X
		a[c*4+1] = m.Cols[c].Y
		a[c*4+2] = m.Cols[c].Z
		a[c*4+3] = m.Cols[c].W
	}

	c00 := a[2*4+2]*a[3*4+3] - a[3*4+2]*a[2*4+3]
	c02 := a[1*4+2]*a[3*4+3] - a[3*4+2]*a[1*4+3]
	c03 := a[1*4+2]*a[2*4+3] - a[2*4+2]*a[1*4+3]

	c04 := a[2*4+1]*a[3*4+3] - a[3*4+1]*a[2*4+3]
	c06 := a[1*4+1]*a[3*4+3] - a[3*4+1]*a[1*4+3]
	c07 := a[1*4+1]*a[2*4+3] - a[2*4+1]*a[1*4+3]

	c08 := a[2*4+1]*a[3*4+2] - a[3*4+1]*a[2*4+2]
	c10 := a[1*4+1]*a[3*4+2] - a[3*4+1]*a[1*4+2]
	c11 := a[1*4+1]*a[2*4+2] - a[2*4+1]*a[1*4+2]

	c12 := a[2*4+0]*a[3*4+3] - a[3*4+0]*a[2*4+3]
	c14 := a[1*4+0]*a[3*4+3] - a[3*4+0]*a[1*4+3]
	c15 := a[1*4+0]*a[2*4+3] - a[2*4+0]*a[1*4+3]

	c16 := a[2*4+0]*a[3*4+2] - a[3*4+0]*a[2*4+2]
	c18 := a[1*4+0]*a[3*4+2] - a[3*4+0]*a[1*4+2]
	c19 := a[1*4+0]*a[2*4+2] - a[2*4+0]*a[1*4+2]

	c20 := a[2*4+0]*a[3*4+1] - a[3*4+0]*a[2*4+1]
	c22 := a[1*4+0]*a[3*4+1] - a[3*4+0]*a[1*4+1]
	c23 := a[1*4+0]*a[2*4+1] - a[2*4+0]*a[1*4+1]

	fac0 := Vec4{c00, c00, c02, c03}
	fac1 := Vec4{c04, c04, c06, c07}
	fac2 := Vec4{c08, c08, c10, c11}
	fac3 := Vec4{c12, c12, c14, c15}
	fac4 := Vec4{c16, c16, c18, c19}
	fac5 := Vec4{c20, c20, c22, c23}

	v0 := Vec4{a[1*4+0], a[0*4+0], a[0*4+0], a[0*4+0]}
	v1 := Vec4{a[1*4+1], a[0*4+1], a[0*4+1], a[0*4+1]}
	v2 := Vec4{a[1*4+2], a[0*4+2], a[0*4+2], a[0*4+2]}
	v3 := Vec4{a[1*4+3], a[0*4+3], a[0*4+3], a[0*4+3]}

	inv0 := v1.Mul4(fac0).Sub4(v2.Mul4(fac1)).Add(v3.Mul4(fac2))
	inv1 := v0.Mul4(fac0).Sub4(v2.Mul4(fac3)).Add(v3.Mul4(fac4))
	inv2 := v0.Mul4(fac1).Sub4(v1.Mul4(fac3)).Add(v3.Mul4(fac5))
	inv3 := v0.Mul4(fac2).Sub4(v1.Mul4(fac4)).Add(v2.Mul4(fac5))

	signA := Vec4{+1, -1, +1, -1}
	signB := Vec4{-1, +1, -1, +1}

	inverse := Mat4{[4]Vec4{inv0.Mul4(signA), inv1.Mul4(signB), inv2.Mul4(signA), inv3.Mul4(signB)}}

	row0 := Vec4{inverse.Cols[0].X, inverse.Cols[1].X, inverse.Cols[2].X, inverse.Cols[3].X}
	dot0 := Vec4{a[0*4+0], a[0*4+1], a[0*4+2], a[0*4+3]}.Dot4(row0)
	oneOverDet := 1 / dot0

	return Mat4{[4]Vec4{
		inverse.Cols[0].Scale(oneOverDet),
		inverse.Cols[1].Scale(oneOverDet),
		inverse.Cols[2].Scale(oneOverDet),
		inverse.Cols[3].Scale(oneOverDet),
	}}
}

// Mul4 returns the elementwise product a*b.
func (a Vec4) Mul4(b Vec4) Vec4 {
	return Vec4{a.X * b.X, a.Y * b.Y, a.Z * b.Z, a.W * b.W}
}

// Sub4 returns a-b.
func (a Vec4) Sub4(b Vec4) Vec4 {
	return Vec4{a.X - b.X, a.Y - b.Y, a.Z - b.Z, a.W - b.W}
}

// Dot4 returns the dot product a.b.
func (a Vec4) Dot4(b Vec4) float32 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
}

func sincos32(v float32) (float32, float32) {
	s, c := math.Sincos(float64(v))
	return float32(s), float32(c)
}
