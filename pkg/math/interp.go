package math

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// Lerp linearly interpolates between two scalars.
func Lerp(a, b, t float32) float32 {
	return a + t*(b-a)
}

// LerpVec3 performs linear interpolation between two 3D vectors.
func LerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// LerpVec4 performs linear interpolation between two 4D vectors.
func LerpVec4(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}

// hermiteBasis returns the cubic Hermite basis weights at t.
func hermiteBasis(t float32) (h00, h10, h01, h11 float32) {
	t2 := t * t
	t3 := t2 * t
	h00 = 2*t3 - 3*t2 + 1
	h10 = t3 - 2*t2 + t
	h01 = -2*t3 + 3*t2
	h11 = t3 - t2
	return
}

// Hermite evaluates a cubic Hermite segment from p0 (outgoing tangent m0)
// to p1 (incoming tangent m1).
func Hermite(p0, m0, p1, m1, t float32) float32 {
	h00, h10, h01, h11 := hermiteBasis(t)
	return h00*p0 + h10*m0 + h01*p1 + h11*m1
}

// HermiteVec3 is Hermite for vectors.
func HermiteVec3(p0, m0, p1, m1 mgl32.Vec3, t float32) mgl32.Vec3 {
	h00, h10, h01, h11 := hermiteBasis(t)
	return p0.Mul(h00).Add(m0.Mul(h10)).Add(p1.Mul(h01)).Add(m1.Mul(h11))
}

// HermiteVec4 is Hermite for 4-component values such as colors.
func HermiteVec4(p0, m0, p1, m1 mgl32.Vec4, t float32) mgl32.Vec4 {
	h00, h10, h01, h11 := hermiteBasis(t)
	return p0.Mul(h00).Add(m0.Mul(h10)).Add(p1.Mul(h01)).Add(m1.Mul(h11))
}

// TCBTangents computes the Kochanek-Bartels incoming and outgoing tangents at
// cur given its neighbours.
func TCBTangents(prev, cur, next, tension, continuity, bias float32) (in, out float32) {
	d0 := cur - prev
	d1 := next - cur
	oneT := 1 - tension
	in = 0.5 * oneT * ((1-continuity)*(1+bias)*d0 + (1+continuity)*(1-bias)*d1)
	out = 0.5 * oneT * ((1+continuity)*(1+bias)*d0 + (1-continuity)*(1-bias)*d1)
	return
}

// TCBTangentsVec3 is TCBTangents applied per component.
func TCBTangentsVec3(prev, cur, next mgl32.Vec3, tension, continuity, bias float32) (in, out mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		in[i], out[i] = TCBTangents(prev[i], cur[i], next[i], tension, continuity, bias)
	}
	return
}

// Slerp performs spherical linear interpolation along the shorter arc.
func Slerp(q, other mgl32.Quat, t float32) mgl32.Quat {
	dot := q.Dot(other)

	// Negate one quaternion to take the shorter path
	if dot < 0 {
		other = other.Scale(-1)
		dot = -dot
	}

	// Nearly parallel: nlerp avoids dividing by sin(0)
	if dot > 0.9995 {
		return q.Add(other.Sub(q).Scale(t)).Normalize()
	}

	theta0 := float32(gomath.Acos(float64(dot)))
	theta := theta0 * t
	sinTheta := float32(gomath.Sin(float64(theta)))
	sinTheta0 := float32(gomath.Sin(float64(theta0)))

	s0 := float32(gomath.Cos(float64(theta))) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	return q.Scale(s0).Add(other.Scale(s1))
}

// Clamp01 clamps t into [0, 1].
func Clamp01(t float32) float32 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
