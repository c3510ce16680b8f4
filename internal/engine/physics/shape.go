// Package physics translates Havok collision records into a physics-engine
// ready shape tree: rigid bodies with composed world transforms, primitive
// and compound shapes in world units, and constraints linked once every
// body is built.
package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/dankdonk/openmw-sub003/internal/engine/model"
	nmath "github.com/dankdonk/openmw-sub003/pkg/math"
	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// HavokScale converts Havok units to NIF units. It is the same for every
// file version.
const HavokScale float32 = 7

// Marker tells the caller how much of the incoming transform a shape build
// has baked into its result.
type Marker int

// Shape build markers.
const (
	// MarkerNone: nothing applied, place the shape at the incoming transform.
	MarkerNone Marker = -1
	// MarkerApplied: the incoming transform is baked into the shape data.
	MarkerApplied Marker = 0
	// MarkerOwn: place the shape at incoming * own.
	MarkerOwn Marker = 1
	// MarkerBoth: own combines a wrapper transform with its child's.
	MarkerBoth Marker = 2
)

func (m Marker) String() string {
	switch m {
	case MarkerNone:
		return "none"
	case MarkerApplied:
		return "applied"
	case MarkerOwn:
		return "own"
	case MarkerBoth:
		return "both"
	default:
		return fmt.Sprintf("marker(%d)", int(m))
	}
}

// Placement returns where a shape built with marker m and own transform
// own goes, given the incoming transform.
func (m Marker) Placement(incoming, own mgl32.Mat4) mgl32.Mat4 {
	switch m {
	case MarkerApplied:
		return mgl32.Ident4()
	case MarkerOwn, MarkerBoth:
		return incoming.Mul4(own)
	default:
		return incoming
	}
}

// ShapeKind names a shape variant.
type ShapeKind int

// Shape kinds.
const (
	ShapeBox ShapeKind = iota
	ShapeSphere
	ShapeCapsule
	ShapeMultiSphere
	ShapeConvexHull
	ShapeTriangleMesh
	ShapeCompound
)

var shapeNames = [...]string{"box", "sphere", "capsule", "multisphere", "convexhull", "trimesh", "compound"}

func (k ShapeKind) String() string {
	if int(k) < len(shapeNames) {
		return shapeNames[k]
	}
	return fmt.Sprintf("shape(%d)", int(k))
}

// Shape is one built collision shape. Dimensions are in NIF units.
type Shape struct {
	Kind     ShapeKind
	Record   int // source record
	Material uint32

	// Frame is the incoming transform a box bakes in; identity otherwise.
	Frame mgl32.Mat4

	HalfExtents mgl32.Vec3   // box
	Radius      float32      // sphere and capsule radius, hull margin
	Height      float32      // capsule segment length along local Y
	Spheres     []nif.Sphere // multi-sphere
	Points      []mgl32.Vec3 // hull and mesh vertices
	Triangles   [][3]uint32  // mesh
	Children    []Child      // compound
}

// Child is one compound member placed relative to the compound.
type Child struct {
	Transform mgl32.Mat4
	Shape     *Shape
}

// built is the result of one shape build step.
type built struct {
	shape  *Shape
	marker Marker
	own    mgl32.Mat4
}

func scaled(v mgl32.Vec4) mgl32.Vec3 { return v.Vec3().Mul(HavokScale) }

// shape builds the shape at ref with the accumulated transform xf.
func (b *builder) shape(ref nif.Ref, xf mgl32.Mat4) (built, error) {
	if b.depth++; b.depth > len(b.f.Records) {
		return built{}, fmt.Errorf("%w: shape %d nests itself", nif.ErrCycle, ref)
	}
	defer func() { b.depth-- }()

	index := ref.Index()
	switch s := b.f.Record(ref).(type) {
	case *nif.BoxShape:
		return built{shape: &Shape{
			Kind:        ShapeBox,
			Record:      index,
			Material:    s.Material,
			Frame:       xf,
			HalfExtents: s.Dimensions.Mul(HavokScale),
			Radius:      s.Radius * HavokScale,
		}, marker: MarkerApplied, own: mgl32.Ident4()}, nil

	case *nif.SphereShape:
		return built{shape: &Shape{
			Kind:     ShapeSphere,
			Record:   index,
			Frame:    mgl32.Ident4(),
			Material: s.Material,
			Radius:   s.Radius * HavokScale,
		}, marker: MarkerNone, own: mgl32.Ident4()}, nil

	case *nif.MultiSphereShape:
		sh := &Shape{Kind: ShapeMultiSphere, Record: index, Material: s.Material, Frame: mgl32.Ident4()}
		for _, sp := range s.Spheres {
			sh.Spheres = append(sh.Spheres, nif.Sphere{
				Center: sp.Center.Mul(HavokScale),
				Radius: sp.Radius * HavokScale,
			})
		}
		return built{shape: sh, marker: MarkerNone, own: mgl32.Ident4()}, nil

	case *nif.CapsuleShape:
		return b.capsule(index, s), nil

	case *nif.ConvexVerticesShape:
		sh := &Shape{Kind: ShapeConvexHull, Record: index, Material: s.Material, Frame: mgl32.Ident4(), Radius: s.Radius * HavokScale}
		for _, v := range s.Vertices {
			sh.Points = append(sh.Points, mgl32.TransformCoordinate(scaled(v), xf))
		}
		return built{shape: sh, marker: MarkerApplied, own: mgl32.Ident4()}, nil

	case *nif.PackedTriStripsShape:
		return b.packed(index, s, xf)

	case *nif.TriStripsShape:
		return b.triStrips(index, s, xf)

	case *nif.MoppBvTreeShape:
		return b.shape(s.Shape, xf)

	case *nif.TransformShape:
		return b.transformShape(s, xf)

	case *nif.ListShape:
		return b.list(index, s, xf)

	case nil:
		return built{}, fmt.Errorf("%w: missing shape %d", nif.ErrStructure, ref)
	default:
		return built{}, fmt.Errorf("%w: shape record %d is %s", nif.ErrUnsupportedFeature, index, s.Kind())
	}
}

// capsule centres the segment at its midpoint and aligns local Y with it.
func (b *builder) capsule(index int, s *nif.CapsuleShape) built {
	a := s.FirstPoint.Mul(HavokScale)
	c := s.SecondPoint.Mul(HavokScale)
	axis := c.Sub(a)
	mid := a.Add(c).Mul(0.5)

	own := mgl32.Translate3D(mid[0], mid[1], mid[2])
	if axis.Len() > 1e-6 {
		own = own.Mul4(nmath.RotationBetween(mgl32.Vec3{0, 1, 0}, axis.Normalize()).Mat4())
	}
	return built{shape: &Shape{
		Kind:     ShapeCapsule,
		Record:   index,
		Frame:    mgl32.Ident4(),
		Material: s.Material,
		Radius:   s.Radius * HavokScale,
		Height:   axis.Len(),
	}, marker: MarkerOwn, own: own}
}

// transformShape builds its child under xf * own and derives its marker
// from the child's.
func (b *builder) transformShape(s *nif.TransformShape, xf mgl32.Mat4) (built, error) {
	own := s.Transform
	own.SetCol(3, scaled(s.Transform.Col(3)).Vec4(1))

	child, err := b.shape(s.Shape, xf.Mul4(own))
	if err != nil {
		return built{}, err
	}
	switch child.marker {
	case MarkerOwn:
		return built{shape: child.shape, marker: MarkerBoth, own: own.Mul4(child.own)}, nil
	case MarkerApplied:
		return built{shape: child.shape, marker: MarkerApplied, own: mgl32.Ident4()}, nil
	case MarkerBoth:
		// Nested wrappers collapse into one own transform.
		return built{shape: child.shape, marker: MarkerOwn, own: own.Mul4(child.own)}, nil
	default:
		return built{shape: child.shape, marker: MarkerOwn, own: own}, nil
	}
}

// list builds every child with the same incoming transform and places each
// according to its marker. The compound is in the incoming frame's parent
// space, so it is always applied.
func (b *builder) list(index int, s *nif.ListShape, xf mgl32.Mat4) (built, error) {
	sh := &Shape{Kind: ShapeCompound, Record: index, Material: s.Material, Frame: mgl32.Ident4()}
	for _, ref := range s.SubShapes {
		if !ref.Valid() {
			continue
		}
		child, err := b.shape(ref, xf)
		if err != nil {
			return built{}, err
		}
		sh.Children = append(sh.Children, Child{
			Transform: child.marker.Placement(xf, child.own),
			Shape:     child.shape,
		})
	}
	return built{shape: sh, marker: MarkerApplied, own: mgl32.Ident4()}, nil
}

// packed builds a triangle mesh from packed strips data in Havok units.
func (b *builder) packed(index int, s *nif.PackedTriStripsShape, xf mgl32.Mat4) (built, error) {
	data, err := nif.Get[*nif.PackedTriStripsData](b.f, s.Data)
	if err != nil {
		return built{}, err
	}
	if data == nil {
		return built{}, fmt.Errorf("%w: packed shape %d has no data", nif.ErrStructure, index)
	}
	sh := &Shape{Kind: ShapeTriangleMesh, Record: index, Frame: mgl32.Ident4()}
	scale := s.Scale.Vec3()
	for _, v := range data.Vertices {
		p := mgl32.Vec3{v[0] * scale[0], v[1] * scale[1], v[2] * scale[2]}.Mul(HavokScale)
		sh.Points = append(sh.Points, mgl32.TransformCoordinate(p, xf))
	}
	for _, t := range data.Triangles {
		tri := [3]uint32{uint32(t.Indices[0]), uint32(t.Indices[1]), uint32(t.Indices[2])}
		if err := checkTriangle(tri, len(sh.Points), index); err != nil {
			return built{}, err
		}
		sh.Triangles = append(sh.Triangles, tri)
	}
	return built{shape: sh, marker: MarkerApplied, own: mgl32.Ident4()}, nil
}

// triStrips builds a triangle mesh from NiTriStripsData blocks in node
// units.
func (b *builder) triStrips(index int, s *nif.TriStripsShape, xf mgl32.Mat4) (built, error) {
	sh := &Shape{Kind: ShapeTriangleMesh, Record: index, Material: s.Material, Frame: mgl32.Ident4()}
	scale := s.Scale.Vec3()
	for _, ref := range s.Strips {
		data, err := nif.Get[*nif.TriStripsData](b.f, ref)
		if err != nil {
			return built{}, err
		}
		if data == nil {
			continue
		}
		base := uint32(len(sh.Points))
		for _, v := range data.Vertices {
			p := mgl32.Vec3{v[0] * scale[0], v[1] * scale[1], v[2] * scale[2]}
			sh.Points = append(sh.Points, mgl32.TransformCoordinate(p, xf))
		}
		for _, strip := range data.Strips {
			for _, t := range model.StripToTriangles(strip) {
				tri := [3]uint32{base + uint32(t[0]), base + uint32(t[1]), base + uint32(t[2])}
				if err := checkTriangle(tri, len(sh.Points), index); err != nil {
					return built{}, err
				}
				sh.Triangles = append(sh.Triangles, tri)
			}
		}
	}
	return built{shape: sh, marker: MarkerApplied, own: mgl32.Ident4()}, nil
}

func checkTriangle(tri [3]uint32, n, index int) error {
	for _, v := range tri {
		if int(v) >= n {
			return fmt.Errorf("%w: shape %d index %d of %d vertices", nif.ErrStructure, index, v, n)
		}
	}
	return nil
}
