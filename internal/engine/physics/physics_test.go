package physics

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/dankdonk/openmw-sub003/pkg/nif"
	"github.com/dankdonk/openmw-sub003/pkg/nif/niftest"
)

func load(t *testing.T, b *niftest.Builder) *nif.File {
	t.Helper()
	f, err := nif.Load(b.Bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return f
}

func build(t *testing.T, f *nif.File) *Scene {
	t.Helper()
	s, err := Build(f, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return s
}

// bodyScene writes a root node with one collision object. The rigid body
// is block 2 and its shape is block 3; add writes block 3 onwards.
func bodyScene(vi nif.VersionInfo, root niftest.AV, body string, spec niftest.RigidBodySpec, add func(b *niftest.Builder)) *niftest.Builder {
	b := niftest.New(vi)
	root.Collision = niftest.To(1)
	b.Add("NiNode", func(w *niftest.Writer) { w.Node(niftest.NodeSpec{AV: root}) })
	b.Add("bhkCollisionObject", func(w *niftest.Writer) { w.CollisionObject(0, niftest.To(2)) })
	spec.Shape = 3
	b.Add(body, func(w *niftest.Writer) { w.RigidBody(spec) })
	add(b)
	return b
}

func single(t *testing.T, s *Scene) *Body {
	t.Helper()
	if len(s.Bodies) != 1 {
		t.Fatalf("bodies = %d, want 1", len(s.Bodies))
	}
	return s.Bodies[0]
}

func near(a, b mgl32.Mat4) bool { return a.ApproxEqualThreshold(b, 1e-4) }

func TestPrimitiveShapes(t *testing.T) {
	offset := niftest.AV{Object: niftest.Object{Name: "Root"}, Translation: mgl32.Vec3{1, 0, 0}}
	world := mgl32.Translate3D(1, 0, 0)

	tests := []struct {
		name      string
		add       func(b *niftest.Builder)
		kind      ShapeKind
		marker    Marker
		transform mgl32.Mat4
		check     func(t *testing.T, s *Shape)
	}{
		{
			name: "box",
			add: func(b *niftest.Builder) {
				b.Add("bhkBoxShape", func(w *niftest.Writer) { w.BoxShape(4, 0.1, mgl32.Vec3{1, 2, 3}) })
			},
			kind:      ShapeBox,
			marker:    MarkerApplied,
			transform: mgl32.Ident4(),
			check: func(t *testing.T, s *Shape) {
				if !s.HalfExtents.ApproxEqual(mgl32.Vec3{7, 14, 21}) {
					t.Errorf("half extents = %v", s.HalfExtents)
				}
				if !near(s.Frame, world) {
					t.Errorf("frame = %v", s.Frame)
				}
				if s.Material != 4 {
					t.Errorf("material = %d", s.Material)
				}
			},
		},
		{
			name: "sphere",
			add: func(b *niftest.Builder) {
				b.Add("bhkSphereShape", func(w *niftest.Writer) { w.SphereShape(0, 2) })
			},
			kind:      ShapeSphere,
			marker:    MarkerNone,
			transform: world,
			check: func(t *testing.T, s *Shape) {
				if s.Radius != 14 {
					t.Errorf("radius = %v", s.Radius)
				}
			},
		},
		{
			name: "multisphere",
			add: func(b *niftest.Builder) {
				b.Add("bhkMultiSphereShape", func(w *niftest.Writer) {
					w.MultiSphereShape(0, []nif.Sphere{{Center: mgl32.Vec3{1, 0, 0}, Radius: 1}})
				})
			},
			kind:      ShapeMultiSphere,
			marker:    MarkerNone,
			transform: world,
			check: func(t *testing.T, s *Shape) {
				want := []nif.Sphere{{Center: mgl32.Vec3{7, 0, 0}, Radius: 7}}
				if !reflect.DeepEqual(s.Spheres, want) {
					t.Errorf("spheres = %v", s.Spheres)
				}
			},
		},
		{
			name: "capsule",
			add: func(b *niftest.Builder) {
				b.Add("bhkCapsuleShape", func(w *niftest.Writer) {
					w.CapsuleShape(0, 0.5, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 2, 0})
				})
			},
			kind:      ShapeCapsule,
			marker:    MarkerOwn,
			transform: mgl32.Translate3D(1, 7, 0),
			check: func(t *testing.T, s *Shape) {
				if s.Radius != 3.5 || s.Height != 14 {
					t.Errorf("radius, height = %v, %v", s.Radius, s.Height)
				}
			},
		},
		{
			name: "convex",
			add: func(b *niftest.Builder) {
				b.Add("bhkConvexVerticesShape", func(w *niftest.Writer) {
					w.ConvexVerticesShape(0, 0.1, []mgl32.Vec4{{1, 0, 0, 0}, {0, 1, 0, 0}}, nil)
				})
			},
			kind:      ShapeConvexHull,
			marker:    MarkerApplied,
			transform: mgl32.Ident4(),
			check: func(t *testing.T, s *Shape) {
				want := []mgl32.Vec3{{8, 0, 0}, {1, 7, 0}}
				if len(s.Points) != 2 || !s.Points[0].ApproxEqual(want[0]) || !s.Points[1].ApproxEqual(want[1]) {
					t.Errorf("points = %v, want %v", s.Points, want)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := load(t, bodyScene(niftest.Oblivion, offset, "bhkRigidBody", niftest.RigidBodySpec{Mass: 5, Friction: 0.3}, tt.add))
			body := single(t, build(t, f))
			if body.Shape.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", body.Shape.Kind, tt.kind)
			}
			if body.Marker != tt.marker {
				t.Errorf("marker = %v, want %v", body.Marker, tt.marker)
			}
			if !near(body.Transform, tt.transform) {
				t.Errorf("transform = %v, want %v", body.Transform, tt.transform)
			}
			if body.Name != "Root" || body.Node != 0 || body.Record != 2 {
				t.Errorf("body = %q node %d record %d", body.Name, body.Node, body.Record)
			}
			if body.Mass != 5 || body.Friction != 0.3 {
				t.Errorf("mass, friction = %v, %v", body.Mass, body.Friction)
			}
			tt.check(t, body.Shape)
		})
	}
}

func TestTransformShapeMarkers(t *testing.T) {
	shift := mgl32.Translate3D(1, 0, 0) // havok units

	tests := []struct {
		name      string
		add       func(b *niftest.Builder)
		marker    Marker
		transform mgl32.Mat4
		frame     mgl32.Mat4
	}{
		{
			name: "capsule",
			add: func(b *niftest.Builder) {
				b.Add("bhkTransformShape", func(w *niftest.Writer) { w.TransformShape(4, shift) })
				b.Add("bhkCapsuleShape", func(w *niftest.Writer) {
					w.CapsuleShape(0, 0.5, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 2, 0})
				})
			},
			marker:    MarkerBoth,
			transform: mgl32.Translate3D(7, 7, 0),
			frame:     mgl32.Ident4(),
		},
		{
			name: "box",
			add: func(b *niftest.Builder) {
				b.Add("bhkConvexTransformShape", func(w *niftest.Writer) { w.TransformShape(4, shift) })
				b.Add("bhkBoxShape", func(w *niftest.Writer) { w.BoxShape(0, 0, mgl32.Vec3{1, 1, 1}) })
			},
			marker:    MarkerApplied,
			transform: mgl32.Ident4(),
			frame:     mgl32.Translate3D(7, 0, 0),
		},
		{
			name: "sphere",
			add: func(b *niftest.Builder) {
				b.Add("bhkTransformShape", func(w *niftest.Writer) { w.TransformShape(4, shift) })
				b.Add("bhkSphereShape", func(w *niftest.Writer) { w.SphereShape(0, 1) })
			},
			marker:    MarkerOwn,
			transform: mgl32.Translate3D(7, 0, 0),
			frame:     mgl32.Ident4(),
		},
		{
			name: "nested capsule",
			add: func(b *niftest.Builder) {
				b.Add("bhkTransformShape", func(w *niftest.Writer) { w.TransformShape(4, shift) })
				b.Add("bhkTransformShape", func(w *niftest.Writer) { w.TransformShape(5, mgl32.Translate3D(0, 0, 1)) })
				b.Add("bhkCapsuleShape", func(w *niftest.Writer) {
					w.CapsuleShape(0, 0.5, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 2, 0})
				})
			},
			marker:    MarkerOwn,
			transform: mgl32.Translate3D(7, 7, 7),
			frame:     mgl32.Ident4(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := load(t, bodyScene(niftest.Oblivion, niftest.AV{}, "bhkRigidBody", niftest.RigidBodySpec{}, tt.add))
			body := single(t, build(t, f))
			if body.Marker != tt.marker {
				t.Errorf("marker = %v, want %v", body.Marker, tt.marker)
			}
			if !near(body.Transform, tt.transform) {
				t.Errorf("transform = %v, want %v", body.Transform, tt.transform)
			}
			if !near(body.Shape.Frame, tt.frame) {
				t.Errorf("frame = %v, want %v", body.Shape.Frame, tt.frame)
			}
		})
	}
}

func TestListShape(t *testing.T) {
	root := niftest.AV{Translation: mgl32.Vec3{1, 0, 0}}
	f := load(t, bodyScene(niftest.Oblivion, root, "bhkRigidBody", niftest.RigidBodySpec{}, func(b *niftest.Builder) {
		b.Add("bhkListShape", func(w *niftest.Writer) { w.ListShape(0, []int{4, 5, 6}) })
		b.Add("bhkSphereShape", func(w *niftest.Writer) { w.SphereShape(0, 1) })
		b.Add("bhkCapsuleShape", func(w *niftest.Writer) {
			w.CapsuleShape(0, 0.5, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 2, 0})
		})
		b.Add("bhkBoxShape", func(w *niftest.Writer) { w.BoxShape(0, 0, mgl32.Vec3{1, 1, 1}) })
	}))
	body := single(t, build(t, f))
	if body.Shape.Kind != ShapeCompound || body.Marker != MarkerApplied {
		t.Fatalf("shape %v marker %v", body.Shape.Kind, body.Marker)
	}
	if !near(body.Transform, mgl32.Ident4()) {
		t.Errorf("transform = %v", body.Transform)
	}

	want := []struct {
		kind      ShapeKind
		transform mgl32.Mat4
	}{
		{ShapeSphere, mgl32.Translate3D(1, 0, 0)},
		{ShapeCapsule, mgl32.Translate3D(1, 7, 0)},
		{ShapeBox, mgl32.Ident4()},
	}
	if len(body.Shape.Children) != len(want) {
		t.Fatalf("children = %d", len(body.Shape.Children))
	}
	for i, w := range want {
		c := body.Shape.Children[i]
		if c.Shape.Kind != w.kind || !near(c.Transform, w.transform) {
			t.Errorf("child %d = %v at %v, want %v at %v", i, c.Shape.Kind, c.Transform, w.kind, w.transform)
		}
	}
	if box := body.Shape.Children[2].Shape; !near(box.Frame, mgl32.Translate3D(1, 0, 0)) {
		t.Errorf("box frame = %v", box.Frame)
	}
}

func TestRigidBodyTransform(t *testing.T) {
	spec := niftest.RigidBodySpec{
		Translation: mgl32.Vec4{1, 0, 0, 0},
		Rotation:    mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1}),
	}
	sphere := func(b *niftest.Builder) {
		b.Add("bhkSphereShape", func(w *niftest.Writer) { w.SphereShape(0, 1) })
	}

	f := load(t, bodyScene(niftest.Oblivion, niftest.AV{}, "bhkRigidBodyT", spec, sphere))
	body := single(t, build(t, f))
	got := mgl32.TransformCoordinate(mgl32.Vec3{1, 0, 0}, body.Transform)
	if !got.ApproxEqualThreshold(mgl32.Vec3{7, 1, 0}, 1e-4) {
		t.Errorf("bhkRigidBodyT maps x to %v", got)
	}

	f = load(t, bodyScene(niftest.Oblivion, niftest.AV{}, "bhkRigidBody", spec, sphere))
	if body := single(t, build(t, f)); !near(body.Transform, mgl32.Ident4()) {
		t.Errorf("bhkRigidBody transform = %v", body.Transform)
	}
}

func TestPackedTriStrips(t *testing.T) {
	verts := []mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for _, vi := range []nif.VersionInfo{niftest.Oblivion, niftest.Fallout3} {
		root := niftest.AV{Translation: mgl32.Vec3{0, 0, 10}}
		f := load(t, bodyScene(vi, root, "bhkRigidBody", niftest.RigidBodySpec{}, func(b *niftest.Builder) {
			b.Add("bhkMoppBvTreeShape", func(w *niftest.Writer) { w.MoppBvTreeShape(4, []byte{1, 2, 3}) })
			b.Add("bhkPackedNiTriStripsShape", func(w *niftest.Writer) {
				w.PackedTriStripsShape(uint32(len(verts)), mgl32.Vec4{}, 5)
			})
			b.Add("hkPackedNiTriStripsData", func(w *niftest.Writer) {
				w.PackedTriStripsData([][3]uint16{{0, 1, 2}}, verts)
			})
		}))
		body := single(t, build(t, f))
		sh := body.Shape
		if sh.Kind != ShapeTriangleMesh || body.Marker != MarkerApplied {
			t.Fatalf("%v: shape %v marker %v", vi.Version, sh.Kind, body.Marker)
		}
		want := []mgl32.Vec3{{7, 0, 10}, {0, 7, 10}, {0, 0, 17}}
		for i, p := range want {
			if !sh.Points[i].ApproxEqual(p) {
				t.Errorf("%v: point %d = %v, want %v", vi.Version, i, sh.Points[i], p)
			}
		}
		if !reflect.DeepEqual(sh.Triangles, [][3]uint32{{0, 1, 2}}) {
			t.Errorf("%v: triangles = %v", vi.Version, sh.Triangles)
		}
	}
}

func TestTriStripsShape(t *testing.T) {
	data := niftest.ShapeData{
		Vertices: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}},
		Radius:   1,
	}
	f := load(t, bodyScene(niftest.Oblivion, niftest.AV{}, "bhkRigidBody", niftest.RigidBodySpec{}, func(b *niftest.Builder) {
		b.Add("bhkNiTriStripsShape", func(w *niftest.Writer) { w.TriStripsShape(2, []int{4}) })
		b.Add("NiTriStripsData", func(w *niftest.Writer) { w.TriStripsData(data, [][]uint16{{0, 1, 2, 3}}) })
	}))
	sh := single(t, build(t, f)).Shape
	if !reflect.DeepEqual(sh.Triangles, [][3]uint32{{0, 1, 2}, {1, 3, 2}}) {
		t.Errorf("triangles = %v", sh.Triangles)
	}
	// Node units: no havok scaling.
	if !sh.Points[3].ApproxEqual(mgl32.Vec3{1, 1, 0}) {
		t.Errorf("point 3 = %v", sh.Points[3])
	}
}

// constraintScene has two bodies; the first carries a constraint whose
// second entity is the given record.
func constraintScene(entity int) *niftest.Builder {
	b := niftest.New(niftest.Oblivion)
	b.Add("NiNode", func(w *niftest.Writer) { w.Node(niftest.NodeSpec{Children: []int{1, 4}}) })
	for _, n := range []struct {
		name  string
		node  int
		cons  []int
		trans mgl32.Vec3
	}{
		{"A", 1, []int{7}, mgl32.Vec3{}},
		{"B", 4, nil, mgl32.Vec3{0, 0, 5}},
	} {
		av := niftest.AV{Object: niftest.Object{Name: n.name}, Translation: n.trans, Collision: niftest.To(n.node + 1)}
		b.Add("NiNode", func(w *niftest.Writer) { w.Node(niftest.NodeSpec{AV: av}) })
		b.Add("bhkCollisionObject", func(w *niftest.Writer) { w.CollisionObject(n.node, niftest.To(n.node+2)) })
		spec := niftest.RigidBodySpec{Shape: 8, Constraints: n.cons}
		b.Add("bhkRigidBody", func(w *niftest.Writer) { w.RigidBody(spec) })
	}
	b.Add("bhkBallAndSocketConstraint", func(w *niftest.Writer) {
		w.BallAndSocketConstraint(niftest.ConstraintSpec{
			Entities: []int{3, entity},
			PivotA:   mgl32.Vec4{1, 0, 0, 0},
			PivotB:   mgl32.Vec4{0, 0, -1, 0},
		})
	})
	b.Add("bhkSphereShape", func(w *niftest.Writer) { w.SphereShape(0, 1) })
	b.Add("bhkRigidBody", func(w *niftest.Writer) { w.RigidBody(niftest.RigidBodySpec{Shape: 8}) })
	b.Roots(0)
	return b
}

func TestConstraintLinking(t *testing.T) {
	s := build(t, load(t, constraintScene(6)))
	if len(s.Bodies) != 2 || len(s.Constraints) != 1 {
		t.Fatalf("bodies %d constraints %d", len(s.Bodies), len(s.Constraints))
	}
	c := s.Constraints[0]
	if c.Kind != ConstraintBallAndSocket || c.Record != 7 {
		t.Errorf("constraint = %v record %d", c.Kind, c.Record)
	}
	if len(c.Bodies) != 2 || c.Bodies[0] != s.Body(3) || c.Bodies[1] != s.Body(6) {
		t.Errorf("bodies not linked: %v", c.Bodies)
	}
	if c.Bodies[1].Name != "B" {
		t.Errorf("second body = %q", c.Bodies[1].Name)
	}
	if !c.PivotA.ApproxEqual(mgl32.Vec3{7, 0, 0}) || !c.PivotB.ApproxEqual(mgl32.Vec3{0, 0, -7}) {
		t.Errorf("pivots = %v %v", c.PivotA, c.PivotB)
	}
}

func TestConstraintForwardBody(t *testing.T) {
	b := niftest.New(niftest.Oblivion)
	b.Add("NiNode", func(w *niftest.Writer) { w.Node(niftest.NodeSpec{Children: []int{1, 5}}) })
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Object: niftest.Object{Name: "A"}, Collision: niftest.To(2)}})
	})
	b.Add("bhkCollisionObject", func(w *niftest.Writer) { w.CollisionObject(1, niftest.To(3)) })
	b.Add("bhkRigidBody", func(w *niftest.Writer) { w.RigidBody(niftest.RigidBodySpec{Shape: 8, Constraints: []int{4}}) })
	// The constraint is decoded before the body at 7 it links to.
	b.Add("bhkBallAndSocketConstraint", func(w *niftest.Writer) {
		w.BallAndSocketConstraint(niftest.ConstraintSpec{Entities: []int{3, 7}})
	})
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Object: niftest.Object{Name: "B"}, Collision: niftest.To(6)}})
	})
	b.Add("bhkCollisionObject", func(w *niftest.Writer) { w.CollisionObject(5, niftest.To(7)) })
	b.Add("bhkRigidBody", func(w *niftest.Writer) { w.RigidBody(niftest.RigidBodySpec{Shape: 8}) })
	b.Add("bhkSphereShape", func(w *niftest.Writer) { w.SphereShape(0, 1) })
	b.Roots(0)

	s := build(t, load(t, b))
	if len(s.Bodies) != 2 || len(s.Constraints) != 1 {
		t.Fatalf("bodies %d constraints %d", len(s.Bodies), len(s.Constraints))
	}
	c := s.Constraints[0]
	if c.Record != 4 || len(c.Bodies) != 2 {
		t.Fatalf("constraint record %d with %d bodies", c.Record, len(c.Bodies))
	}
	if c.Bodies[0] != s.Body(3) || c.Bodies[1] != s.Body(7) || c.Bodies[1].Name != "B" {
		t.Errorf("bodies not linked: %v", c.Bodies)
	}
}

func TestUnresolvedConstraint(t *testing.T) {
	_, err := Build(load(t, constraintScene(9)), Options{})
	if !errors.Is(err, ErrUnresolvedConstraint) {
		t.Fatalf("err = %v, want ErrUnresolvedConstraint", err)
	}
	if !errors.Is(err, nif.ErrStructure) {
		t.Error("unresolved constraint should be structural")
	}
}

func TestMissingShape(t *testing.T) {
	b := niftest.New(niftest.Oblivion)
	b.Add("NiNode", func(w *niftest.Writer) { w.Node(niftest.NodeSpec{AV: niftest.AV{Collision: niftest.To(1)}}) })
	b.Add("bhkCollisionObject", func(w *niftest.Writer) { w.CollisionObject(0, niftest.To(2)) })
	b.Add("bhkRigidBody", func(w *niftest.Writer) { w.RigidBody(niftest.RigidBodySpec{Shape: -1}) })
	_, err := Build(load(t, b), Options{})
	if !errors.Is(err, nif.ErrStructure) {
		t.Fatalf("err = %v, want ErrStructure", err)
	}
}

func TestRootCollisionNode(t *testing.T) {
	b := niftest.New(niftest.Morrowind)
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Translation: mgl32.Vec3{0, 0, 5}}, Children: []int{1}})
	})
	b.Add("RootCollisionNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Object: niftest.Object{Name: "Collision"}}, Children: []int{2}})
	})
	b.Add("NiTriShape", func(w *niftest.Writer) {
		w.Geometry(niftest.GeometrySpec{AV: niftest.AV{Translation: mgl32.Vec3{1, 0, 0}}, Data: niftest.To(3)})
	})
	b.Add("NiTriShapeData", func(w *niftest.Writer) {
		w.TriShapeData(niftest.ShapeData{
			Vertices: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Radius:   1,
		}, [][3]uint16{{0, 1, 2}})
	})
	s := build(t, load(t, b))
	body := single(t, s)
	if body.Record != -1 || body.Node != 1 || body.Mass != 0 || body.Name != "Collision" {
		t.Errorf("body = %+v", body)
	}
	want := []mgl32.Vec3{{1, 0, 5}, {2, 0, 5}, {1, 1, 5}}
	for i, p := range want {
		if !body.Shape.Points[i].ApproxEqual(p) {
			t.Errorf("point %d = %v, want %v", i, body.Shape.Points[i], p)
		}
	}
}

func TestBuildIsRepeatable(t *testing.T) {
	f := load(t, constraintScene(6))
	first := build(t, f)
	second := build(t, f)
	if !reflect.DeepEqual(first, second) {
		t.Error("second build differs from the first")
	}
}

func TestMarkerString(t *testing.T) {
	for m, want := range map[Marker]string{
		MarkerNone: "none", MarkerApplied: "applied", MarkerOwn: "own", MarkerBoth: "both", Marker(7): "marker(7)",
	} {
		if got := m.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(m), got, want)
		}
	}
}
