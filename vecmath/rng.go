package vecmath

import "math"

// PCG4D is a 4-wide counter-based pseudo-random generator. It takes a
// 4-component unsigned seed and scrambles it in place, following the
// well-known pcg4d mixing function (multiply-add, cross-component mix,
// xorshift, mix again). Being counter-based rather than stateful, it is
// naturally safe to call concurrently from independent pixel samples: each
// call only reads and mutates the four values passed to it.
func PCG4D(v [4]uint32) [4]uint32 {
	v[0] = v[0]*1664525 + 1013904223
	v[1] = v[1]*1664525 + 1013904223
	v[2] = v[2]*1664525 + 1013904223
	v[3] = v[3]*1664525 + 1013904223

	v = crossMix(v)

	v[0] ^= v[0] >> 16
	v[1] ^= v[1] >> 16
	v[2] ^= v[2] >> 16
	v[3] ^= v[3] >> 16

	v = crossMix(v)

	return v
}

// crossMix matches the source's single vector op
// `*seed += (uint4){y,z,x,y} * (uint4){w,x,y,z}` exactly: the two operand
// vectors are built by lane position (y,z,x,y) and (w,x,y,z), multiplied
// elementwise against a single snapshot of v, so no lane's update ever
// reads a sibling lane's already-updated value.
func crossMix(v [4]uint32) [4]uint32 {
	x, y, z, w := v[0], v[1], v[2], v[3]
	return [4]uint32{
		x + y*w,
		y + z*x,
		z + x*y,
		w + y*z,
	}
}

// GenerateUniformRandom4 advances seed through PCG4D and returns four
// independent uniform floats in [0, 1), along with the new seed state so
// callers can chain further draws.
func GenerateUniformRandom4(seed [4]uint32) (Vec4, [4]uint32) {
	next := PCG4D(seed)
	// Only the top 24 bits of each lane are used: float32 holds them
	// exactly, so the result never rounds up to 1.
	const inv = 1.0 / 16777216.0
	return Vec4{
		float32(next[0]>>8) * inv,
		float32(next[1]>>8) * inv,
		float32(next[2]>>8) * inv,
		float32(next[3]>>8) * inv,
	}, next
}

// InvErf approximates the inverse error function using Winitzki's rational
// approximation (the same a=0.147 constant the renderer core uses to turn
// uniform samples into Gaussian ones).
func InvErf(x float32) float32 {
	const a = 0.147
	xf := float64(x)
	ln1mx2 := math.Log(1 - xf*xf)
	term1 := 2/(math.Pi*a) + ln1mx2/2
	inner := term1*term1 - ln1mx2/a
	result := sign64(xf) * math.Sqrt(math.Sqrt(inner)-term1)
	return float32(result)
}

func sign64(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
