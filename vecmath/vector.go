// Package vecmath implements the fixed-width vector and matrix algebra, the
// PCG-4D random number generator, and the small numeric helpers (inverse
// error function, tangent-frame construction) shared by every other package
// in this module.
//
// All vector and matrix types are plain value types so they can be passed
// and returned by value without aliasing surprises, matching the original
// renderer's use of float2/float3/float4/mat3/mat4 as plain structs.
package vecmath

import "math"

// Vec2 is a 2-component float32 vector.
type Vec2 struct {
	X, Y float32
}

// Vec3 is a 3-component float32 vector.
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 is a 4-component float32 vector.
type Vec4 struct {
	X, Y, Z, W float32
}

func NewVec3(x, y, z float32) Vec3 { return Vec3{x, y, z} }

// Add returns a+b.
func (a Vec2) Add(b Vec2) Vec2 { return Vec2{a.X + b.X, a.Y + b.Y} }

// Sub returns a-b.
func (a Vec2) Sub(b Vec2) Vec2 { return Vec2{a.X - b.X, a.Y - b.Y} }

// Scale returns a*s.
func (a Vec2) Scale(s float32) Vec2 { return Vec2{a.X * s, a.Y * s} }

// Dot returns the dot product a.b.
func (a Vec2) Dot(b Vec2) float32 { return a.X*b.X + a.Y*b.Y }

// Add returns a+b.
func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

// Sub returns a-b.
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

// Mul returns the elementwise product a*b.
func (a Vec3) Mul(b Vec3) Vec3 { return Vec3{a.X * b.X, a.Y * b.Y, a.Z * b.Z} }

// Div returns the elementwise quotient a/b.
func (a Vec3) Div(b Vec3) Vec3 { return Vec3{a.X / b.X, a.Y / b.Y, a.Z / b.Z} }

// Scale returns a*s.
func (a Vec3) Scale(s float32) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

// Neg returns -a.
func (a Vec3) Neg() Vec3 { return Vec3{-a.X, -a.Y, -a.Z} }

// Dot returns the dot product a.b.
func (a Vec3) Dot(b Vec3) float32 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

// Cross returns the cross product a x b.
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// Length returns the Euclidean length of a.
func (a Vec3) Length() float32 { return float32(math.Sqrt(float64(a.Dot(a)))) }

// Normalize returns a scaled to unit length. The zero vector is not
// guarded against: its components come out NaN (0 * +Inf), matching the
// C++ source which never guards against it either.
func (a Vec3) Normalize() Vec3 { return a.Scale(1 / a.Length()) }

// Abs returns the elementwise absolute value of a.
func (a Vec3) Abs() Vec3 {
	return Vec3{abs32(a.X), abs32(a.Y), abs32(a.Z)}
}

// Min returns the elementwise minimum of a and b.
func (a Vec3) Min(b Vec3) Vec3 {
	return Vec3{min32(a.X, b.X), min32(a.Y, b.Y), min32(a.Z, b.Z)}
}

// Max returns the elementwise maximum of a and b.
func (a Vec3) Max(b Vec3) Vec3 {
	return Vec3{max32(a.X, b.X), max32(a.Y, b.Y), max32(a.Z, b.Z)}
}

// Component returns the i-th component (0=X, 1=Y, 2=Z).
func (a Vec3) Component(i int) float32 {
	switch i {
	case 0:
		return a.X
	case 1:
		return a.Y
	default:
		return a.Z
	}
}

// Clamp clamps every component of a to [lo, hi].
func (a Vec3) Clamp(lo, hi Vec3) Vec3 {
	return Vec3{
		clamp32(a.X, lo.X, hi.X),
		clamp32(a.Y, lo.Y, hi.Y),
		clamp32(a.Z, lo.Z, hi.Z),
	}
}

// Luminance returns the Rec. 709 relative luminance of an RGB color.
func (a Vec3) Luminance() float32 {
	return a.Dot(Vec3{0.2126, 0.7152, 0.0722})
}

// IsZero reports whether every component of a is exactly zero.
func (a Vec3) IsZero() bool { return a.X == 0 && a.Y == 0 && a.Z == 0 }

// Add returns a+b.
func (a Vec4) Add(b Vec4) Vec4 {
	return Vec4{a.X + b.X, a.Y + b.Y, a.Z + b.Z, a.W + b.W}
}

// Scale returns a*s.
func (a Vec4) Scale(s float32) Vec4 {
	return Vec4{a.X * s, a.Y * s, a.Z * s, a.W * s}
}

// Vec3 drops the W component.
func (a Vec4) Vec3() Vec3 { return Vec3{a.X, a.Y, a.Z} }

// MixVec3 linearly interpolates between a and b by t (0=a, 1=b).
func MixVec3(a, b Vec3, t float32) Vec3 {
	return Vec3{
		Mix(a.X, b.X, t),
		Mix(a.Y, b.Y, t),
		Mix(a.Z, b.Z, t),
	}
}

// MixVec4 linearly interpolates between a and b by t (0=a, 1=b).
func MixVec4(a, b Vec4, t float32) Vec4 {
	return Vec4{
		Mix(a.X, b.X, t),
		Mix(a.Y, b.Y, t),
		Mix(a.Z, b.Z, t),
		Mix(a.W, b.W, t),
	}
}

// Mix linearly interpolates between a and b by t (0=a, 1=b).
func Mix(a, b, t float32) float32 { return a*(1-t) + b*t }

// Clamp clamps v to [lo, hi].
func Clamp(v, lo, hi float32) float32 { return clamp32(v, lo, hi) }

// Sign returns -1, 0 or +1 depending on the sign of v, preserving signed
// zero the way the original `sign()` helper does.
func Sign(v float32) float32 {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return v
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func clamp32(v, lo, hi float32) float32 { return min32(max32(v, lo), hi) }
