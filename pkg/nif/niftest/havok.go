package niftest

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// CollisionObject writes a bhkCollisionObject. NiCollisionObject blocks
// carry only the target.
func (w *Writer) CollisionObject(target int, body Link) {
	w.Index(target)
	w.U16(1)
	w.Ref(body)
}

func (w *Writer) havokFilter(layer uint8) {
	w.U8(layer)
	w.U8(0)
	w.U16(0)
}

// RigidBodySpec describes a bhkRigidBody or bhkRigidBodyT.
type RigidBodySpec struct {
	Shape       int
	Layer       uint8
	Translation mgl32.Vec4
	Rotation    mgl32.Quat
	Mass        float32
	Friction    float32
	Restitution float32
	MotionType  uint8
	Constraints []int
}

// RigidBody writes a bhkRigidBody. A zero rotation is written as identity.
func (w *Writer) RigidBody(b RigidBodySpec) {
	w.Index(b.Shape)
	w.havokFilter(b.Layer)
	w.Zero(4)
	w.U8(1)
	w.Zero(3 + 12)

	w.Zero(4)
	w.havokFilter(b.Layer)
	w.Zero(4)
	w.U8(0)
	w.U8(0)
	w.U16(0xFFFF)
	w.Zero(4)
	w.Vec4(b.Translation)
	if b.Rotation == (mgl32.Quat{}) {
		b.Rotation = mgl32.QuatIdent()
	}
	w.HkQuat(b.Rotation)
	w.Vec4(mgl32.Vec4{})
	w.Vec4(mgl32.Vec4{})
	w.Zero(12 * 4)
	w.Vec4(mgl32.Vec4{})
	w.F32(b.Mass)
	w.F32(0.1)
	w.F32(0.05)
	w.F32(b.Friction)
	w.F32(b.Restitution)
	w.F32(104.4)
	w.F32(31.57)
	w.F32(0.15)
	w.U8(b.MotionType)
	w.U8(1)
	w.U8(1)
	w.U8(1)
	w.Zero(12)

	w.Indices(b.Constraints)
	w.U32(0)
}

// SphereShape writes a bhkSphereShape.
func (w *Writer) SphereShape(material uint32, radius float32) {
	w.U32(material)
	w.F32(radius)
}

// BoxShape writes a bhkBoxShape with the given half extents.
func (w *Writer) BoxShape(material uint32, radius float32, dims mgl32.Vec3) {
	w.U32(material)
	w.F32(radius)
	w.Zero(8)
	w.Vec3(dims)
	w.F32(0)
}

// CapsuleShape writes a bhkCapsuleShape.
func (w *Writer) CapsuleShape(material uint32, radius float32, a, b mgl32.Vec3) {
	w.U32(material)
	w.F32(radius)
	w.Zero(8)
	w.Vec3(a)
	w.F32(radius)
	w.Vec3(b)
	w.F32(radius)
}

// MultiSphereShape writes a bhkMultiSphereShape.
func (w *Writer) MultiSphereShape(material uint32, spheres []nif.Sphere) {
	w.U32(material)
	w.Zero(12)
	w.U32(uint32(len(spheres)))
	for _, s := range spheres {
		w.Vec3(s.Center)
		w.F32(s.Radius)
	}
}

// ConvexVerticesShape writes a bhkConvexVerticesShape.
func (w *Writer) ConvexVerticesShape(material uint32, radius float32, vertices, normals []mgl32.Vec4) {
	w.U32(material)
	w.F32(radius)
	w.Zero(24)
	w.U32(uint32(len(vertices)))
	for _, v := range vertices {
		w.Vec4(v)
	}
	w.U32(uint32(len(normals)))
	for _, n := range normals {
		w.Vec4(n)
	}
}

// ListShape writes a bhkListShape.
func (w *Writer) ListShape(material uint32, shapes []int) {
	w.Indices(shapes)
	w.U32(material)
	w.Zero(24)
	w.U32(0)
}

// TransformShape writes a bhkTransformShape or bhkConvexTransformShape.
func (w *Writer) TransformShape(shape int, m mgl32.Mat4) {
	w.Index(shape)
	w.U32(0)
	w.F32(0)
	w.Zero(8)
	w.Mat44(m)
}

// MoppBvTreeShape writes a bhkMoppBvTreeShape with an opaque code blob.
func (w *Writer) MoppBvTreeShape(shape int, code []byte) {
	w.Index(shape)
	w.Zero(12)
	w.F32(1)
	w.U32(uint32(len(code)))
	if w.V().AtLeast(nif.V10_1_0_0) {
		w.Vec4(mgl32.Vec4{})
	}
	w.Raw(code)
}

func (w *Writer) subShapes(n uint32) {
	w.U16(1)
	w.havokFilter(0)
	w.U32(n)
	w.U32(0)
}

// PackedTriStripsShape writes a bhkPackedNiTriStripsShape. A zero scale is
// written as one.
func (w *Writer) PackedTriStripsShape(numVertices uint32, scale mgl32.Vec4, data int) {
	if w.V().AtMost(nif.V20_0_0_5) {
		w.subShapes(numVertices)
	}
	w.U32(0)
	w.U32(0)
	w.F32(0.1)
	w.U32(0)
	if scale == (mgl32.Vec4{}) {
		scale = mgl32.Vec4{1, 1, 1, 0}
	}
	w.Vec4(scale)
	w.F32(0.1)
	w.Vec4(scale)
	w.Index(data)
}

// PackedTriStripsData writes an hkPackedNiTriStripsData.
func (w *Writer) PackedTriStripsData(triangles [][3]uint16, vertices []mgl32.Vec3) {
	v := w.V()
	w.U32(uint32(len(triangles)))
	for _, t := range triangles {
		w.U16(t[0])
		w.U16(t[1])
		w.U16(t[2])
		w.U16(0)
		if v.AtMost(nif.V20_0_0_5) {
			w.Vec3(mgl32.Vec3{0, 0, 1})
		}
	}
	w.U32(uint32(len(vertices)))
	if v.AtLeast(nif.V20_2_0_7) {
		w.U8(0)
	}
	for _, p := range vertices {
		w.Vec3(p)
	}
	if v.AtLeast(nif.V20_2_0_7) {
		w.subShapes(uint32(len(vertices)))
	}
}

// TriStripsShape writes a bhkNiTriStripsShape over NiTriStripsData blocks.
func (w *Writer) TriStripsShape(material uint32, strips []int) {
	w.U32(material)
	w.F32(0.1)
	w.Zero(20)
	w.U32(1)
	if w.V().AtLeast(nif.V10_1_0_0) {
		w.Vec4(mgl32.Vec4{1, 1, 1, 0})
	}
	w.Indices(strips)
	w.U32(uint32(len(strips)))
	for range strips {
		w.U32(0)
	}
}

// ConstraintSpec holds the geometry of a constraint. Only the fields the
// constraint type reads are written.
type ConstraintSpec struct {
	Entities       []int
	PivotA, PivotB mgl32.Vec4
	AxisA, AxisB   mgl32.Vec4
	Length         float32
	MinAngle       float32
	MaxAngle       float32
}

func (w *Writer) constraintHead(c ConstraintSpec) {
	w.U32(uint32(len(c.Entities)))
	for _, e := range c.Entities {
		w.Index(e)
	}
	w.U32(1)
}

func (w *Writer) fo3() bool { return w.V().AtLeast(nif.V20_2_0_7) }

func (w *Writer) vec4s(vs ...mgl32.Vec4) {
	for _, v := range vs {
		w.Vec4(v)
	}
}

// BallAndSocketConstraint writes a bhkBallAndSocketConstraint.
func (w *Writer) BallAndSocketConstraint(c ConstraintSpec) {
	w.constraintHead(c)
	w.vec4s(c.PivotA, c.PivotB)
}

// StiffSpringConstraint writes a bhkStiffSpringConstraint.
func (w *Writer) StiffSpringConstraint(c ConstraintSpec) {
	w.constraintHead(c)
	w.vec4s(c.PivotA, c.PivotB)
	w.F32(c.Length)
}

// HingeConstraint writes a bhkHingeConstraint.
func (w *Writer) HingeConstraint(c ConstraintSpec) {
	var zero mgl32.Vec4
	w.constraintHead(c)
	if w.fo3() {
		w.vec4s(c.AxisA, zero, zero, c.PivotA)
		w.vec4s(c.AxisB, zero, zero, c.PivotB)
		return
	}
	w.vec4s(c.PivotA, zero, zero)
	w.vec4s(c.PivotB, c.AxisB)
}

// LimitedHingeConstraint writes a bhkLimitedHingeConstraint. FO3 files get
// an empty motor.
func (w *Writer) LimitedHingeConstraint(c ConstraintSpec) {
	var zero mgl32.Vec4
	w.constraintHead(c)
	if w.fo3() {
		w.vec4s(c.AxisA, zero, zero, c.PivotA)
		w.vec4s(c.AxisB, zero, zero, c.PivotB)
	} else {
		w.vec4s(c.PivotA, c.AxisA, zero, zero)
		w.vec4s(c.PivotB, c.AxisB, zero)
	}
	w.F32(c.MinAngle)
	w.F32(c.MaxAngle)
	w.F32(0)
	if w.fo3() {
		w.U8(0)
	}
}

// RagdollConstraint writes a bhkRagdollConstraint. FO3 files get an empty
// motor.
func (w *Writer) RagdollConstraint(c ConstraintSpec) {
	var zero mgl32.Vec4
	w.constraintHead(c)
	if w.fo3() {
		w.vec4s(c.AxisA, zero, zero, c.PivotA)
		w.vec4s(c.AxisB, zero, zero, c.PivotB)
	} else {
		w.vec4s(c.PivotA, zero, c.AxisA)
		w.vec4s(c.PivotB, zero, c.AxisB)
	}
	w.F32(c.MaxAngle)
	w.F32(c.MinAngle)
	w.F32(c.MaxAngle)
	w.F32(c.MinAngle)
	w.F32(c.MaxAngle)
	w.F32(0)
	if w.fo3() {
		w.U8(0)
	}
}

