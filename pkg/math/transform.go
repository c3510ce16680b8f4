// Package math provides the rigid transform and interpolation helpers shared by
// the NIF decoder and the scene builders. Vector and matrix storage comes from
// mgl32 (column-major, OpenGL compatible).
package math

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a NetImmerse-style similarity transform: a translation, a
// 3x3 rotation and a uniform scale. Points map as R*(s*p) + T.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Mat3
	Scale       float32
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: mgl32.Ident3(), Scale: 1}
}

// NewTransform builds a transform from its components.
func NewTransform(translation mgl32.Vec3, rotation mgl32.Mat3, scale float32) Transform {
	return Transform{Translation: translation, Rotation: rotation, Scale: scale}
}

// IsIdentity reports whether t leaves every point unchanged.
func (t Transform) IsIdentity() bool {
	return t.Translation == (mgl32.Vec3{}) && t.Rotation == mgl32.Ident3() && t.Scale == 1
}

// Mul composes t (parent) with child, returning parent * child.
func (t Transform) Mul(child Transform) Transform {
	return Transform{
		Translation: t.Translation.Add(t.Rotation.Mul3x1(child.Translation.Mul(t.Scale))),
		Rotation:    t.Rotation.Mul3(child.Rotation),
		Scale:       t.Scale * child.Scale,
	}
}

// Apply transforms a point.
func (t Transform) Apply(p mgl32.Vec3) mgl32.Vec3 {
	return t.Rotation.Mul3x1(p.Mul(t.Scale)).Add(t.Translation)
}

// ApplyDirection rotates a direction vector. Scale and translation are
// ignored, which is what normals need under uniform scale.
func (t Transform) ApplyDirection(v mgl32.Vec3) mgl32.Vec3 {
	return t.Rotation.Mul3x1(v)
}

// Inverse returns the inverse transform. The rotation is assumed orthonormal.
// A zero scale yields the identity.
func (t Transform) Inverse() Transform {
	if t.Scale == 0 {
		return Identity()
	}
	inv := 1 / t.Scale
	rt := t.Rotation.Transpose()
	return Transform{
		Translation: rt.Mul3x1(t.Translation).Mul(-inv),
		Rotation:    rt,
		Scale:       inv,
	}
}

// Mat4 returns T * R * S as a 4x4 matrix.
func (t Transform) Mat4() mgl32.Mat4 {
	m := t.Rotation.Mul(t.Scale).Mat4()
	m.SetCol(3, t.Translation.Vec4(1))
	return m
}

// Quat returns the rotation part as a quaternion.
func (t Transform) Quat() mgl32.Quat {
	return mgl32.Mat4ToQuat(t.Rotation.Mat4()).Normalize()
}

// FromMat4 decomposes an affine matrix with uniform scale. The scale is taken
// from the length of the first column.
func FromMat4(m mgl32.Mat4) Transform {
	r := m.Mat3()
	s := r.Col(0).Len()
	if s != 0 {
		r = r.Mul(1 / s)
	}
	return Transform{
		Translation: m.Col(3).Vec3(),
		Rotation:    r,
		Scale:       s,
	}
}

// FromQuat builds a transform from translation, quaternion rotation and scale.
func FromQuat(translation mgl32.Vec3, q mgl32.Quat, scale float32) Transform {
	return Transform{
		Translation: translation,
		Rotation:    q.Normalize().Mat4().Mat3(),
		Scale:       scale,
	}
}

// RotationBetween returns the rotation that maps the unit vector from onto
// the direction of to. Degenerate inputs return the identity.
func RotationBetween(from, to mgl32.Vec3) mgl32.Mat3 {
	if to.Len() < 1e-6 || from.Len() < 1e-6 {
		return mgl32.Ident3()
	}
	q := mgl32.QuatBetweenVectors(from.Normalize(), to.Normalize())
	return q.Mat4().Mat3()
}

// ApproxEqual compares two transforms component-wise within epsilon.
func ApproxEqual(a, b Transform, epsilon float32) bool {
	if !a.Translation.ApproxEqualThreshold(b.Translation, epsilon) {
		return false
	}
	if !a.Rotation.ApproxEqualThreshold(b.Rotation, epsilon) {
		return false
	}
	return gomath.Abs(float64(a.Scale-b.Scale)) <= float64(epsilon)
}
