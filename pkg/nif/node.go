package nif

import (
	"github.com/go-gl/mathgl/mgl32"

	nmath "github.com/dankdonk/openmw-sub003/pkg/math"
)

// ObjectNET is the named, extensible part shared by nodes, properties and
// textures.
type ObjectNET struct {
	Base
	Name       string
	ExtraData  []Ref // head of the chain before 10.0.1.0, full list after
	Controller Ref   // first controller in the chain
}

// NET returns the shared ObjectNET fields.
func (o *ObjectNET) NET() *ObjectNET { return o }

func (o *ObjectNET) decodeNET(c *DecodeContext) {
	r := c.R
	v := c.V()
	o.Name = r.String()
	if v.AtMost(V4_2_2_0) {
		if ref := r.Ref(); ref.Valid() {
			o.ExtraData = []Ref{ref}
		}
	} else if v.AtLeast(V10_0_1_0) {
		o.ExtraData = r.Refs()
	}
	o.Controller = r.Ref()
	for _, ref := range o.ExtraData {
		c.State.bindExtraData(c.Index, ref)
	}
}

func (o *ObjectNET) appendRefs(dst []Ref) []Ref {
	dst = append(dst, o.ExtraData...)
	return append(dst, o.Controller)
}

// NETRecord is implemented by every record embedding ObjectNET.
type NETRecord interface {
	Record
	NET() *ObjectNET
}

// Bounding volume kinds.
const (
	BoundSphere    uint32 = 0
	BoundBox       uint32 = 1
	BoundCapsule   uint32 = 2
	BoundLozenge   uint32 = 3
	BoundUnion     uint32 = 4
	BoundHalfSpace uint32 = 5
)

// BoundingVolume is the legacy per-object collision volume (4.2.2.0 and
// earlier).
type BoundingVolume struct {
	Type    uint32
	Center  mgl32.Vec3
	Radius  float32       // sphere, capsule
	Axes    [3]mgl32.Vec3 // box
	Extents mgl32.Vec3    // box
	Origin  mgl32.Vec3    // capsule
	Extent  float32       // capsule half length
	Normal  mgl32.Vec3    // half-space plane normal
	Plane   float32       // half-space plane constant
}

func readBoundingVolume(r *Reader) (*BoundingVolume, error) {
	bv := &BoundingVolume{Type: r.U32()}
	switch bv.Type {
	case BoundSphere:
		bv.Center = r.Vec3()
		bv.Radius = r.F32()
	case BoundBox:
		bv.Center = r.Vec3()
		bv.Axes = [3]mgl32.Vec3{r.Vec3(), r.Vec3(), r.Vec3()}
		bv.Extents = r.Vec3()
	case BoundCapsule:
		bv.Center = r.Vec3()
		bv.Origin = r.Vec3()
		bv.Extent = r.F32()
		bv.Radius = r.F32()
	case BoundHalfSpace:
		bv.Normal = r.Vec3()
		bv.Plane = r.F32()
		bv.Center = r.Vec3()
	default:
		if r.Err() == nil {
			return nil, unsupported("bounding volume type %d", bv.Type)
		}
	}
	return bv, nil
}

// AVObject flag bits.
const (
	FlagHidden uint32 = 0x1
)

// AVObject is a positioned scene object.
type AVObject struct {
	ObjectNET
	Flags           uint32
	Translation     mgl32.Vec3
	Rotation        mgl32.Mat3
	Scale           float32
	Velocity        mgl32.Vec3 // 4.2.2.0 and earlier
	Properties      []Ref
	Bound           *BoundingVolume // 4.2.2.0 and earlier, optional
	CollisionObject Ref             // 10.0.1.0+
}

// AV returns the shared AVObject fields.
func (a *AVObject) AV() *AVObject { return a }

// Hidden reports whether the app-culled flag is set.
func (a *AVObject) Hidden() bool { return a.Flags&FlagHidden != 0 }

// Transform returns the local transform relative to the parent.
func (a *AVObject) Transform() nmath.Transform {
	return nmath.NewTransform(a.Translation, a.Rotation, a.Scale)
}

func (a *AVObject) decodeAV(c *DecodeContext) error {
	r := c.R
	v := c.V()
	a.decodeNET(c)
	if v.BSAbove(26) {
		a.Flags = r.U32()
	} else {
		a.Flags = uint32(r.U16())
	}
	a.Translation = r.Vec3()
	a.Rotation = r.Mat33()
	a.Scale = r.F32()
	if v.AtMost(V4_2_2_0) {
		a.Velocity = r.Vec3()
	}
	if v.BS <= 34 {
		a.Properties = r.Refs()
	}
	if v.AtMost(V4_2_2_0) && r.Bool() {
		bv, err := readBoundingVolume(r)
		if err != nil {
			return err
		}
		a.Bound = bv
	}
	a.CollisionObject = None
	if v.AtLeast(V10_0_1_0) {
		a.CollisionObject = r.Ref()
	}
	return nil
}

func (a *AVObject) appendRefs(dst []Ref) []Ref {
	dst = a.ObjectNET.appendRefs(dst)
	dst = append(dst, a.Properties...)
	return append(dst, a.CollisionObject)
}

// AVRecord is implemented by every record embedding AVObject.
type AVRecord interface {
	NETRecord
	AV() *AVObject
}

// Node is NiNode and its plain subclasses (BSFadeNode, RootCollisionNode,
// NiBSAnimationNode, NiBSParticleNode, AvoidNode).
type Node struct {
	AVObject
	Children []Ref
	Effects  []Ref
}

// AsNode returns the shared node fields.
func (n *Node) AsNode() *Node { return n }

func (n *Node) decode(c *DecodeContext) error {
	return n.decodeNode(c)
}

func (n *Node) decodeNode(c *DecodeContext) error {
	if err := n.decodeAV(c); err != nil {
		return err
	}
	n.Children = c.R.Refs()
	n.Effects = c.R.Refs()
	for _, child := range n.Children {
		if !child.Valid() {
			continue
		}
		if err := c.State.SetParent(child.Index(), c.Index); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) appendRefs(dst []Ref) []Ref {
	dst = n.AVObject.appendRefs(dst)
	dst = append(dst, n.Children...)
	return append(dst, n.Effects...)
}

// NodeRecord is implemented by Node and the node subclasses with extra
// fields.
type NodeRecord interface {
	AVRecord
	AsNode() *Node
}

// SwitchNode shows one child at a time.
type SwitchNode struct {
	Node
	SwitchFlags uint16 // 10.1.0.0+
	Active      uint32
}

func (n *SwitchNode) decode(c *DecodeContext) error {
	if err := n.decodeNode(c); err != nil {
		return err
	}
	if c.V().AtLeast(V10_1_0_0) {
		n.SwitchFlags = c.R.U16()
	}
	n.Active = c.R.U32()
	return nil
}

// BillboardNode faces the camera.
type BillboardNode struct {
	Node
	Mode uint16 // 10.1.0.0+; older files keep the mode in the flags
}

func (n *BillboardNode) decode(c *DecodeContext) error {
	if err := n.decodeNode(c); err != nil {
		return err
	}
	if c.V().AtLeast(V10_1_0_0) {
		n.Mode = c.R.U16()
	}
	return nil
}

// Geometry is NiTriShape or NiTriStrips.
type Geometry struct {
	AVObject
	Data         Ref
	SkinInstance Ref

	// Shader (10.0.1.0 through 20.1.0.3)
	HasShader  bool
	ShaderName string

	// Material data (20.2.0.5+)
	MaterialNames  []string
	MaterialExtra  []int32
	ActiveMaterial int32
	MaterialDirty  bool // 20.2.0.7+
}

func (g *Geometry) decode(c *DecodeContext) error {
	r := c.R
	v := c.V()
	if err := g.decodeAV(c); err != nil {
		return err
	}
	g.Data = r.Ref()
	g.SkinInstance = r.Ref()
	g.ActiveMaterial = -1
	if v.AtLeast(V20_2_0_5) {
		n := r.Count(8)
		g.MaterialNames = make([]string, n)
		for i := range g.MaterialNames {
			g.MaterialNames[i] = r.String()
		}
		g.MaterialExtra = make([]int32, n)
		for i := range g.MaterialExtra {
			g.MaterialExtra[i] = r.I32()
		}
		g.ActiveMaterial = r.I32()
	}
	if v.AtLeast(V20_2_0_7) {
		g.MaterialDirty = r.U8() != 0
	}
	if v.Between(V10_0_1_0, V20_1_0_3) {
		g.HasShader = r.Bool()
		if g.HasShader {
			g.ShaderName = r.String()
			r.I32()
		}
	}
	return nil
}

func (g *Geometry) appendRefs(dst []Ref) []Ref {
	dst = g.AVObject.appendRefs(dst)
	return append(dst, g.Data, g.SkinInstance)
}

// Strips reports whether the geometry is a triangle strip set.
func (g *Geometry) Strips() bool { return g.Kind() == KindNiTriStrips }

// DynamicEffect is the shared part of lights.
type DynamicEffect struct {
	AVObject
	SwitchState   bool  // 10.1.0.106+
	AffectedNodes []Ptr // 10.1.0.0+
}

func (d *DynamicEffect) decodeEffect(c *DecodeContext) error {
	r := c.R
	v := c.V()
	if err := d.decodeAV(c); err != nil {
		return err
	}
	d.SwitchState = true
	if v.AtLeast(V10_1_0_106) {
		d.SwitchState = r.Bool()
	}
	if v.AtMost(V4_0_0_2) {
		r.U32s(r.Count(4))
	}
	if v.AtLeast(V10_1_0_0) {
		d.AffectedNodes = r.Ptrs()
	}
	return nil
}

// Light is NiAmbientLight or NiDirectionalLight.
type Light struct {
	DynamicEffect
	Dimmer   float32
	Ambient  mgl32.Vec3
	Diffuse  mgl32.Vec3
	Specular mgl32.Vec3
}

func (l *Light) decodeLight(c *DecodeContext) error {
	if err := l.decodeEffect(c); err != nil {
		return err
	}
	r := c.R
	l.Dimmer = r.F32()
	l.Ambient = r.Vec3()
	l.Diffuse = r.Vec3()
	l.Specular = r.Vec3()
	return nil
}

func (l *Light) decode(c *DecodeContext) error { return l.decodeLight(c) }

// PointLight is NiPointLight.
type PointLight struct {
	Light
	Constant  float32
	Linear    float32
	Quadratic float32
}

func (l *PointLight) decodePoint(c *DecodeContext) error {
	if err := l.decodeLight(c); err != nil {
		return err
	}
	l.Constant = c.R.F32()
	l.Linear = c.R.F32()
	l.Quadratic = c.R.F32()
	return nil
}

func (l *PointLight) decode(c *DecodeContext) error { return l.decodePoint(c) }

// SpotLight is NiSpotLight.
type SpotLight struct {
	PointLight
	Cutoff   float32
	Exponent float32
}

func (l *SpotLight) decode(c *DecodeContext) error {
	if err := l.decodePoint(c); err != nil {
		return err
	}
	l.Cutoff = c.R.F32()
	if c.V().AtLeast(V20_2_0_5) {
		c.R.F32()
	}
	l.Exponent = c.R.F32()
	return nil
}

// Camera is NiCamera. It is decoded so files containing one load, but
// nothing is built from it.
type Camera struct {
	AVObject
	Frustum  [6]float32 // left, right, top, bottom, near, far
	Ortho    bool
	Viewport [4]float32
	LOD      float32
	Scene    Ref
}

func (cm *Camera) decode(c *DecodeContext) error {
	r := c.R
	v := c.V()
	if err := cm.decodeAV(c); err != nil {
		return err
	}
	if v.AtLeast(V10_1_0_0) {
		r.U16()
	}
	for i := range cm.Frustum {
		cm.Frustum[i] = r.F32()
	}
	if v.AtLeast(V10_1_0_0) {
		cm.Ortho = r.Bool()
	}
	for i := range cm.Viewport {
		cm.Viewport[i] = r.F32()
	}
	cm.LOD = r.F32()
	cm.Scene = r.Ref()
	r.U32()
	if v.AtLeast(V4_2_1_0) {
		r.U32()
	}
	return nil
}

func (cm *Camera) appendRefs(dst []Ref) []Ref {
	dst = cm.AVObject.appendRefs(dst)
	return append(dst, cm.Scene)
}
