package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/dankdonk/openmw-sub003/internal/engine/model"
	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// ErrUnresolvedConstraint reports a constraint whose body was never built.
var ErrUnresolvedConstraint = fmt.Errorf("%w: constraint references an unbuilt body", nif.ErrStructure)

// Body is one rigid body ready for a physics engine.
type Body struct {
	Node   int // owning node
	Record int // rigid body record, -1 for RootCollisionNode meshes
	Name   string
	Shape  *Shape
	Marker Marker

	// Transform places Shape in model space.
	Transform mgl32.Mat4

	Layer          uint8
	Mass           float32
	Friction       float32
	Restitution    float32
	LinearDamping  float32
	AngularDamping float32
	MotionType     uint8
}

// Scene is the collision side of one model file.
type Scene struct {
	Bodies      []*Body
	Constraints []*Constraint
}

// Body returns the body built from the rigid body record, or nil.
func (s *Scene) Body(record int) *Body {
	for _, b := range s.Bodies {
		if b.Record == record {
			return b
		}
	}
	return nil
}

// Options controls a scene build.
type Options struct {
	Log *zap.Logger
}

type builder struct {
	f     *nif.File
	log   *zap.Logger
	depth int

	visited  map[int]bool
	bodies   map[int]int // rigid body record -> index into scene.Bodies
	deferred []nif.Ref
	queued   map[nif.Ref]bool
	scene    *Scene
}

// Build walks every root of f and converts collision objects into bodies.
// Constraints are linked after the walk.
func Build(f *nif.File, opts Options) (*Scene, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	b := &builder{
		f:       f,
		log:     log,
		visited: make(map[int]bool),
		bodies:  make(map[int]int),
		queued:  make(map[nif.Ref]bool),
		scene:   &Scene{},
	}
	for _, root := range f.Roots {
		if _, ok := f.Record(root).(nif.AVRecord); !ok {
			continue
		}
		if err := b.walk(root, mgl32.Ident4()); err != nil {
			return nil, err
		}
	}
	if err := b.link(); err != nil {
		return nil, err
	}
	b.log.Debug("collision built",
		zap.Int("bodies", len(b.scene.Bodies)),
		zap.Int("constraints", len(b.scene.Constraints)))
	return b.scene, nil
}

func (b *builder) walk(ref nif.Ref, parent mgl32.Mat4) error {
	index := ref.Index()
	if b.visited[index] {
		return fmt.Errorf("%w: node %d reached twice", nif.ErrCycle, index)
	}
	b.visited[index] = true

	av, ok := b.f.Record(ref).(nif.AVRecord)
	if !ok {
		return nil
	}
	a := av.AV()
	world := parent.Mul4(a.Transform().Mat4())

	if av.Kind() == nif.KindRootCollisionNode {
		return b.rootCollision(index, av, world)
	}
	if a.CollisionObject.Valid() {
		if err := b.collision(index, av.NET().Name, a.CollisionObject, world); err != nil {
			return fmt.Errorf("node %d: %w", index, err)
		}
	}
	node, ok := av.(nif.NodeRecord)
	if !ok {
		return nil
	}
	for _, child := range node.AsNode().Children {
		if !child.Valid() {
			continue
		}
		if err := b.walk(child, world); err != nil {
			return err
		}
	}
	return nil
}

// collision builds the rigid body behind a node's collision object.
func (b *builder) collision(node int, name string, ref nif.Ref, world mgl32.Mat4) error {
	co, err := nif.Get[*nif.CollisionObject](b.f, ref)
	if err != nil {
		return err
	}
	if !co.Body.Valid() {
		return nil
	}
	rb, err := nif.Get[*nif.RigidBody](b.f, co.Body)
	if err != nil {
		return err
	}
	if _, ok := b.bodies[co.Body.Index()]; ok {
		return nil
	}

	bodyWorld := world
	if rb.Transformed() {
		t := scaled(rb.Translation)
		bodyWorld = bodyWorld.Mul4(mgl32.Translate3D(t[0], t[1], t[2])).Mul4(rb.Rotation.Normalize().Mat4())
	}
	res, err := b.shape(rb.Shape, bodyWorld)
	if err != nil {
		return err
	}

	b.bodies[co.Body.Index()] = len(b.scene.Bodies)
	b.scene.Bodies = append(b.scene.Bodies, &Body{
		Node:           node,
		Record:         co.Body.Index(),
		Name:           name,
		Shape:          res.shape,
		Marker:         res.marker,
		Transform:      res.marker.Placement(bodyWorld, res.own),
		Layer:          rb.Filter.Layer,
		Mass:           rb.Mass,
		Friction:       rb.Friction,
		Restitution:    rb.Restitution,
		LinearDamping:  rb.LinearDamping,
		AngularDamping: rb.AngularDamping,
		MotionType:     rb.MotionType,
	})
	for _, c := range rb.Constraints {
		if c.Valid() && !b.queued[c] {
			b.queued[c] = true
			b.deferred = append(b.deferred, c)
		}
	}
	b.log.Debug("rigid body",
		zap.Int("node", node),
		zap.Int("record", co.Body.Index()),
		zap.Stringer("shape", res.shape.Kind),
		zap.Stringer("marker", res.marker))
	return nil
}

// rootCollision merges every geometry under a RootCollisionNode into one
// static mesh in model space.
func (b *builder) rootCollision(index int, av nif.AVRecord, world mgl32.Mat4) error {
	sh := &Shape{Kind: ShapeTriangleMesh, Record: index, Frame: mgl32.Ident4()}
	if err := b.collectGeometry(av, world, sh); err != nil {
		return err
	}
	if len(sh.Triangles) == 0 {
		return nil
	}
	b.scene.Bodies = append(b.scene.Bodies, &Body{
		Node:      index,
		Record:    -1,
		Name:      av.NET().Name,
		Shape:     sh,
		Marker:    MarkerApplied,
		Transform: mgl32.Ident4(),
	})
	return nil
}

func (b *builder) collectGeometry(av nif.AVRecord, world mgl32.Mat4, sh *Shape) error {
	node, ok := av.(nif.NodeRecord)
	if !ok {
		return nil
	}
	for _, ref := range node.AsNode().Children {
		if !ref.Valid() || b.visited[ref.Index()] {
			continue
		}
		b.visited[ref.Index()] = true
		child, ok := b.f.Record(ref).(nif.AVRecord)
		if !ok {
			continue
		}
		xf := world.Mul4(child.AV().Transform().Mat4())
		if g, ok := child.(*nif.Geometry); ok {
			if err := appendGeometry(b.f, g, xf, sh); err != nil {
				return err
			}
			continue
		}
		if err := b.collectGeometry(child, xf, sh); err != nil {
			return err
		}
	}
	return nil
}

func appendGeometry(f *nif.File, g *nif.Geometry, xf mgl32.Mat4, sh *Shape) error {
	rec, ok := f.Record(g.Data).(nif.GeometryDataRecord)
	if !ok {
		return nil
	}
	base := uint32(len(sh.Points))
	for _, v := range rec.GeomData().Vertices {
		sh.Points = append(sh.Points, mgl32.TransformCoordinate(v, xf))
	}
	var tris [][3]uint16
	switch d := rec.(type) {
	case *nif.TriShapeData:
		tris = d.Triangles
	case *nif.TriStripsData:
		for _, s := range d.Strips {
			tris = append(tris, model.StripToTriangles(s)...)
		}
	}
	for _, t := range tris {
		tri := [3]uint32{base + uint32(t[0]), base + uint32(t[1]), base + uint32(t[2])}
		if err := checkTriangle(tri, len(sh.Points), g.Index()); err != nil {
			return err
		}
		sh.Triangles = append(sh.Triangles, tri)
	}
	return nil
}
