package nif

import "github.com/go-gl/mathgl/mgl32"

// CollisionObject links a node to its rigid body: NiCollisionObject,
// bhkCollisionObject and bhkSPCollisionObject.
type CollisionObject struct {
	Base
	Target Ptr
	Flags  uint16
	Body   Ref
}

func (o *CollisionObject) decode(c *DecodeContext) error {
	o.Target = c.R.Ptr()
	o.Body = None
	if o.Kind() != KindNiCollisionObject {
		o.Flags = c.R.U16()
		o.Body = c.R.Ref()
	}
	return nil
}

func (o *CollisionObject) appendRefs(dst []Ref) []Ref { return append(dst, o.Body) }

// HavokFilter is the collision layer and group of a world object.
type HavokFilter struct {
	Layer uint8
	Flags uint8
	Group uint16
}

func readHavokFilter(r *Reader) HavokFilter {
	return HavokFilter{Layer: r.U8(), Flags: r.U8(), Group: r.U16()}
}

// RigidBody is bhkRigidBody or bhkRigidBodyT. Only the T variant applies
// Translation and Rotation to its shape.
type RigidBody struct {
	Base
	Shape              Ref
	Filter             HavokFilter
	BroadPhase         uint8
	CollisionResponse  uint8
	Translation        mgl32.Vec4 // havok units
	Rotation           mgl32.Quat
	LinearVelocity     mgl32.Vec4
	AngularVelocity    mgl32.Vec4
	Inertia            [12]float32
	Center             mgl32.Vec4
	Mass               float32
	LinearDamping      float32
	AngularDamping     float32
	Friction           float32
	Restitution        float32
	MaxLinearVelocity  float32
	MaxAngularVelocity float32
	PenetrationDepth   float32
	MotionType         uint8
	DeactivatorType    uint8
	SolverDeactivation uint8
	QualityType        uint8
	Constraints        []Ref
	BodyFlags          uint32
}

// Transformed reports whether the body carries a baked transform.
func (b *RigidBody) Transformed() bool { return b.Kind() == KindBhkRigidBodyT }

func (b *RigidBody) decode(c *DecodeContext) error {
	r := c.R
	v := c.V()
	if v.Before(V10_1_0_0) {
		return unsupported("bhkRigidBody before 10.1.0.0 (file is %s)", v.Version)
	}
	// bhkWorldObject
	b.Shape = r.Ref()
	b.Filter = readHavokFilter(r)
	r.Skip(4)
	b.BroadPhase = r.U8()
	r.Skip(3 + 12)

	// bhkRigidBodyCInfo
	r.Skip(4)
	readHavokFilter(r)
	r.Skip(4)
	b.CollisionResponse = r.U8()
	r.Skip(1)
	r.U16() // contact callback delay
	r.Skip(4)
	b.Translation = r.Vec4()
	b.Rotation = r.HkQuat()
	b.LinearVelocity = r.Vec4()
	b.AngularVelocity = r.Vec4()
	for i := range b.Inertia {
		b.Inertia[i] = r.F32()
	}
	b.Center = r.Vec4()
	b.Mass = r.F32()
	b.LinearDamping = r.F32()
	b.AngularDamping = r.F32()
	b.Friction = r.F32()
	b.Restitution = r.F32()
	b.MaxLinearVelocity = r.F32()
	b.MaxAngularVelocity = r.F32()
	b.PenetrationDepth = r.F32()
	b.MotionType = r.U8()
	b.DeactivatorType = r.U8()
	b.SolverDeactivation = r.U8()
	b.QualityType = r.U8()
	r.Skip(12)

	b.Constraints = r.Refs()
	b.BodyFlags = r.U32()
	return nil
}

func (b *RigidBody) appendRefs(dst []Ref) []Ref {
	dst = append(dst, b.Shape)
	return append(dst, b.Constraints...)
}

// SphereShape is bhkSphereShape.
type SphereShape struct {
	Base
	Material uint32
	Radius   float32
}

func (s *SphereShape) decode(c *DecodeContext) error {
	s.Material = c.R.U32()
	s.Radius = c.R.F32()
	return nil
}

// BoxShape is bhkBoxShape.
type BoxShape struct {
	Base
	Material   uint32
	Radius     float32
	Dimensions mgl32.Vec3 // half extents
}

func (s *BoxShape) decode(c *DecodeContext) error {
	r := c.R
	s.Material = r.U32()
	s.Radius = r.F32()
	r.Skip(8)
	s.Dimensions = r.Vec3()
	r.F32()
	return nil
}

// CapsuleShape is bhkCapsuleShape: a swept sphere between two points.
type CapsuleShape struct {
	Base
	Material    uint32
	Radius      float32
	FirstPoint  mgl32.Vec3
	Radius1     float32
	SecondPoint mgl32.Vec3
	Radius2     float32
}

func (s *CapsuleShape) decode(c *DecodeContext) error {
	r := c.R
	s.Material = r.U32()
	s.Radius = r.F32()
	r.Skip(8)
	s.FirstPoint = r.Vec3()
	s.Radius1 = r.F32()
	s.SecondPoint = r.Vec3()
	s.Radius2 = r.F32()
	return nil
}

// Sphere is one sphere of a multi sphere shape.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// MultiSphereShape is bhkMultiSphereShape.
type MultiSphereShape struct {
	Base
	Material uint32
	Spheres  []Sphere
}

func (s *MultiSphereShape) decode(c *DecodeContext) error {
	r := c.R
	s.Material = r.U32()
	r.Skip(12)
	n := r.Count(16)
	s.Spheres = make([]Sphere, n)
	for i := range s.Spheres {
		s.Spheres[i] = Sphere{Center: r.Vec3(), Radius: r.F32()}
	}
	return nil
}

// ConvexVerticesShape is bhkConvexVerticesShape.
type ConvexVerticesShape struct {
	Base
	Material uint32
	Radius   float32
	Vertices []mgl32.Vec4
	Normals  []mgl32.Vec4 // plane equations
}

func (s *ConvexVerticesShape) decode(c *DecodeContext) error {
	r := c.R
	s.Material = r.U32()
	s.Radius = r.F32()
	r.Skip(24)
	s.Vertices = r.Vec4s(r.Count(16))
	s.Normals = r.Vec4s(r.Count(16))
	return nil
}

// ListShape is bhkListShape.
type ListShape struct {
	Base
	SubShapes []Ref
	Material  uint32
}

func (s *ListShape) decode(c *DecodeContext) error {
	r := c.R
	s.SubShapes = r.Refs()
	s.Material = r.U32()
	r.Skip(24)
	r.U32s(r.Count(4))
	return nil
}

func (s *ListShape) appendRefs(dst []Ref) []Ref { return append(dst, s.SubShapes...) }

// TransformShape is bhkTransformShape or bhkConvexTransformShape.
type TransformShape struct {
	Base
	Shape     Ref
	Material  uint32
	Radius    float32
	Transform mgl32.Mat4 // translation in havok units
}

func (s *TransformShape) decode(c *DecodeContext) error {
	r := c.R
	s.Shape = r.Ref()
	s.Material = r.U32()
	s.Radius = r.F32()
	r.Skip(8)
	s.Transform = r.Mat44()
	return nil
}

func (s *TransformShape) appendRefs(dst []Ref) []Ref { return append(dst, s.Shape) }

// MoppBvTreeShape is bhkMoppBvTreeShape. The MOPP code is kept opaque.
type MoppBvTreeShape struct {
	Base
	Shape  Ref
	Scale  float32
	Origin mgl32.Vec4
	Code   []byte
}

func (s *MoppBvTreeShape) decode(c *DecodeContext) error {
	r := c.R
	s.Shape = r.Ref()
	r.Skip(12)
	s.Scale = r.F32()
	n := r.Count(1)
	if c.V().AtLeast(V10_1_0_0) {
		s.Origin = r.Vec4()
	}
	s.Code = r.Bytes(n)
	return nil
}

func (s *MoppBvTreeShape) appendRefs(dst []Ref) []Ref { return append(dst, s.Shape) }

// SubShape describes a run of vertices sharing a material.
type SubShape struct {
	Filter      HavokFilter
	NumVertices uint32
	Material    uint32
}

func readSubShapes(r *Reader) []SubShape {
	n := r.Count16(12)
	out := make([]SubShape, n)
	for i := range out {
		out[i] = SubShape{Filter: readHavokFilter(r), NumVertices: r.U32(), Material: r.U32()}
	}
	return out
}

// PackedTriStripsShape is bhkPackedNiTriStripsShape.
type PackedTriStripsShape struct {
	Base
	SubShapes []SubShape // 20.0.0.5 and earlier
	Radius    float32
	Scale     mgl32.Vec4
	Data      Ref
}

func (s *PackedTriStripsShape) decode(c *DecodeContext) error {
	r := c.R
	if c.V().AtMost(V20_0_0_5) {
		s.SubShapes = readSubShapes(r)
	}
	r.U32() // user data
	r.U32()
	s.Radius = r.F32()
	r.U32()
	s.Scale = r.Vec4()
	r.F32()
	r.Vec4()
	s.Data = r.Ref()
	return nil
}

func (s *PackedTriStripsShape) appendRefs(dst []Ref) []Ref { return append(dst, s.Data) }

// PackedTriangle is one triangle of packed collision data.
type PackedTriangle struct {
	Indices [3]uint16
	Welding uint16
	Normal  mgl32.Vec3 // 20.0.0.5 and earlier
}

// PackedTriStripsData is hkPackedNiTriStripsData. Vertices are in havok
// units.
type PackedTriStripsData struct {
	Base
	Triangles []PackedTriangle
	Vertices  []mgl32.Vec3
	SubShapes []SubShape // 20.2.0.7+
}

func (d *PackedTriStripsData) decode(c *DecodeContext) error {
	r := c.R
	v := c.V()
	size := 8
	if v.AtMost(V20_0_0_5) {
		size = 20
	}
	n := r.Count(size)
	d.Triangles = make([]PackedTriangle, n)
	for i := range d.Triangles {
		t := &d.Triangles[i]
		t.Indices = [3]uint16{r.U16(), r.U16(), r.U16()}
		t.Welding = r.U16()
		if v.AtMost(V20_0_0_5) {
			t.Normal = r.Vec3()
		}
	}
	nv := r.Count(6)
	if v.AtLeast(V20_2_0_7) && r.U8() != 0 {
		return unsupported("compressed packed tri strips vertices")
	}
	d.Vertices = r.Vec3s(nv)
	if v.AtLeast(V20_2_0_7) {
		d.SubShapes = readSubShapes(r)
	}
	return nil
}

// TriStripsShape is bhkNiTriStripsShape: collision from NiTriStripsData
// blocks in node units.
type TriStripsShape struct {
	Base
	Material uint32
	Radius   float32
	Scale    mgl32.Vec4
	Strips   []Ref
	Filters  []uint32
}

func (s *TriStripsShape) decode(c *DecodeContext) error {
	r := c.R
	s.Material = r.U32()
	s.Radius = r.F32()
	r.Skip(20)
	r.U32() // grow by
	s.Scale = mgl32.Vec4{1, 1, 1, 0}
	if c.V().AtLeast(V10_1_0_0) {
		s.Scale = r.Vec4()
	}
	s.Strips = r.Refs()
	s.Filters = r.U32s(r.Count(4))
	return nil
}

func (s *TriStripsShape) appendRefs(dst []Ref) []Ref { return append(dst, s.Strips...) }

// Constraint is one of the bhk*Constraint records. Which geometry fields
// are meaningful depends on Kind.
type Constraint struct {
	Base
	Entities []Ptr // the constrained bodies, normally two
	Priority uint32

	PivotA, PivotB mgl32.Vec4
	AxisA, AxisB   mgl32.Vec4
	PerpA1, PerpA2 mgl32.Vec4
	PerpB1, PerpB2 mgl32.Vec4
	PlaneA, PlaneB mgl32.Vec4
	TwistA, TwistB mgl32.Vec4

	MinAngle, MaxAngle float32
	MaxFriction        float32
	ConeMaxAngle       float32
	PlaneMinAngle      float32
	PlaneMaxAngle      float32
	TwistMinAngle      float32
	TwistMaxAngle      float32
	Length             float32
}

func (k *Constraint) decode(c *DecodeContext) error {
	r := c.R
	n := r.Count(4)
	k.Entities = make([]Ptr, n)
	for i := range k.Entities {
		k.Entities[i] = r.Ptr()
	}
	k.Priority = r.U32()

	fo3 := c.V().AtLeast(V20_2_0_7)
	switch k.Kind() {
	case KindBhkBallAndSocketConstraint:
		k.PivotA, k.PivotB = r.Vec4(), r.Vec4()
	case KindBhkStiffSpringConstraint:
		k.PivotA, k.PivotB = r.Vec4(), r.Vec4()
		k.Length = r.F32()
	case KindBhkHingeConstraint:
		if fo3 {
			k.AxisA, k.PerpA1, k.PerpA2, k.PivotA = r.Vec4(), r.Vec4(), r.Vec4(), r.Vec4()
			k.AxisB, k.PerpB1, k.PerpB2, k.PivotB = r.Vec4(), r.Vec4(), r.Vec4(), r.Vec4()
		} else {
			k.PivotA, k.PerpA1, k.PerpA2 = r.Vec4(), r.Vec4(), r.Vec4()
			k.PivotB, k.AxisB = r.Vec4(), r.Vec4()
		}
	case KindBhkLimitedHingeConstraint:
		if fo3 {
			k.AxisA, k.PerpA1, k.PerpA2, k.PivotA = r.Vec4(), r.Vec4(), r.Vec4(), r.Vec4()
			k.AxisB, k.PerpB1, k.PerpB2, k.PivotB = r.Vec4(), r.Vec4(), r.Vec4(), r.Vec4()
		} else {
			k.PivotA, k.AxisA, k.PerpA1, k.PerpA2 = r.Vec4(), r.Vec4(), r.Vec4(), r.Vec4()
			k.PivotB, k.AxisB, k.PerpB2 = r.Vec4(), r.Vec4(), r.Vec4()
		}
		k.MinAngle, k.MaxAngle, k.MaxFriction = r.F32(), r.F32(), r.F32()
		if fo3 {
			return readMotor(r)
		}
	case KindBhkRagdollConstraint:
		if fo3 {
			k.TwistA, k.PlaneA = r.Vec4(), r.Vec4()
			r.Vec4() // motor axis A
			k.PivotA = r.Vec4()
			k.TwistB, k.PlaneB = r.Vec4(), r.Vec4()
			r.Vec4()
			k.PivotB = r.Vec4()
		} else {
			k.PivotA, k.PlaneA, k.TwistA = r.Vec4(), r.Vec4(), r.Vec4()
			k.PivotB, k.PlaneB, k.TwistB = r.Vec4(), r.Vec4(), r.Vec4()
		}
		k.ConeMaxAngle = r.F32()
		k.PlaneMinAngle, k.PlaneMaxAngle = r.F32(), r.F32()
		k.TwistMinAngle, k.TwistMaxAngle = r.F32(), r.F32()
		k.MaxFriction = r.F32()
		if fo3 {
			return readMotor(r)
		}
	}
	return nil
}

func readMotor(r *Reader) error {
	if t := r.U8(); t != 0 && r.Err() == nil {
		return unsupported("constraint motor type %d", t)
	}
	return nil
}
