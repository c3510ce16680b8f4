package niftest

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// Object is the ObjectNET part of a spec.
type Object struct {
	Name       string
	Extra      []int // only the first is written before 10.0.1.0
	Controller Link
}

// AV is the AVObject part of a spec. A zero Rotation is written as
// identity and a zero Scale as 1.
type AV struct {
	Object
	Flags       uint32
	Translation mgl32.Vec3
	Rotation    mgl32.Mat3
	Scale       float32
	Properties  []int
	Collision   Link // 10.0.1.0+
	Bound       *nif.BoundingVolume
}

// NodeSpec describes an NiNode.
type NodeSpec struct {
	AV
	Children []int
	Effects  []int
}

func (w *Writer) objectNET(o Object) {
	v := w.V()
	w.String(o.Name)
	if v.AtMost(nif.V4_2_2_0) {
		if len(o.Extra) > 0 {
			w.Index(o.Extra[0])
		} else {
			w.I32(-1)
		}
	} else if v.AtLeast(nif.V10_0_1_0) {
		w.Indices(o.Extra)
	}
	w.Ref(o.Controller)
}

func (w *Writer) avObject(a AV) {
	v := w.V()
	w.objectNET(a.Object)
	if v.BSAbove(26) {
		w.U32(a.Flags)
	} else {
		w.U16(uint16(a.Flags))
	}
	w.Vec3(a.Translation)
	w.Mat33(a.Rotation)
	w.F32(orOne(a.Scale))
	if v.AtMost(nif.V4_2_2_0) {
		w.Vec3(mgl32.Vec3{})
	}
	if v.BS <= 34 {
		w.Indices(a.Properties)
	}
	if v.AtMost(nif.V4_2_2_0) {
		w.Bool(a.Bound != nil)
		if bv := a.Bound; bv != nil {
			w.U32(bv.Type)
			switch bv.Type {
			case nif.BoundSphere:
				w.Vec3(bv.Center)
				w.F32(bv.Radius)
			case nif.BoundBox:
				w.Vec3(bv.Center)
				for _, ax := range bv.Axes {
					w.Vec3(ax)
				}
				w.Vec3(bv.Extents)
			case nif.BoundCapsule:
				w.Vec3(bv.Center)
				w.Vec3(bv.Origin)
				w.F32(bv.Extent)
				w.F32(bv.Radius)
			case nif.BoundHalfSpace:
				w.Vec3(bv.Normal)
				w.F32(bv.Plane)
				w.Vec3(bv.Center)
			}
		}
	}
	if v.AtLeast(nif.V10_0_1_0) {
		w.Ref(a.Collision)
	}
}

// Node writes an NiNode (or any plain node subclass).
func (w *Writer) Node(n NodeSpec) {
	w.avObject(n.AV)
	w.Indices(n.Children)
	w.Indices(n.Effects)
}

// SwitchNode writes an NiSwitchNode.
func (w *Writer) SwitchNode(n NodeSpec, active uint32) {
	w.Node(n)
	if w.V().AtLeast(nif.V10_1_0_0) {
		w.U16(0)
	}
	w.U32(active)
}

// GeometrySpec describes an NiTriShape or NiTriStrips.
type GeometrySpec struct {
	AV
	Data Link
	Skin Link
}

// Geometry writes an NiTriShape or NiTriStrips.
func (w *Writer) Geometry(g GeometrySpec) {
	v := w.V()
	w.avObject(g.AV)
	w.Ref(g.Data)
	w.Ref(g.Skin)
	if v.AtLeast(nif.V20_2_0_5) {
		w.U32(0)
		w.I32(-1)
	}
	if v.AtLeast(nif.V20_2_0_7) {
		w.U8(0)
	}
	if v.Between(nif.V10_0_1_0, nif.V20_1_0_3) {
		w.Bool(false)
	}
}

// ShapeData describes the vertex arrays of a geometry data block. UVs is
// the first texture coordinate set.
type ShapeData struct {
	Vertices []mgl32.Vec3
	Normals  []mgl32.Vec3
	Colors   []mgl32.Vec4
	UVs      []mgl32.Vec2
	Center   mgl32.Vec3
	Radius   float32
}

func (w *Writer) geometryData(d ShapeData) {
	v := w.V()
	if v.AtLeast(nif.V10_1_0_114) {
		w.I32(0)
	}
	w.U16(uint16(len(d.Vertices)))
	if v.AtLeast(nif.V10_1_0_0) {
		w.U8(0)
		w.U8(0)
	}
	w.Bool(len(d.Vertices) > 0)
	for _, p := range d.Vertices {
		w.Vec3(p)
	}
	sets := 0
	if len(d.UVs) > 0 {
		sets = 1
	}
	if v.AtLeast(nif.V10_0_1_0) {
		w.U16(uint16(sets))
	}
	w.Bool(len(d.Normals) > 0)
	for _, n := range d.Normals {
		w.Vec3(n)
	}
	w.Vec3(d.Center)
	w.F32(d.Radius)
	w.Bool(len(d.Colors) > 0)
	for _, c := range d.Colors {
		w.Vec4(c)
	}
	if v.Before(nif.V10_0_1_0) {
		w.U16(uint16(sets))
		if v.AtMost(nif.V4_0_0_2) {
			w.Bool(sets > 0)
		}
	}
	for _, uv := range d.UVs {
		w.Vec2(uv)
	}
	if v.AtLeast(nif.V10_0_1_0) {
		w.U16(0)
	}
	if v.AtLeast(nif.V20_0_0_4) {
		w.I32(-1)
	}
}

// TriShapeData writes an NiTriShapeData.
func (w *Writer) TriShapeData(d ShapeData, triangles [][3]uint16) {
	w.geometryData(d)
	w.U16(uint16(len(triangles)))
	w.U32(uint32(len(triangles) * 3))
	if w.V().AtLeast(nif.V10_0_1_0) {
		w.Bool(true)
	}
	for _, t := range triangles {
		w.U16(t[0])
		w.U16(t[1])
		w.U16(t[2])
	}
	w.U16(0)
}

// TriStripsData writes an NiTriStripsData.
func (w *Writer) TriStripsData(d ShapeData, strips [][]uint16) {
	w.geometryData(d)
	tris := 0
	for _, s := range strips {
		if len(s) >= 3 {
			tris += len(s) - 2
		}
	}
	w.U16(uint16(tris))
	w.U16(uint16(len(strips)))
	for _, s := range strips {
		w.U16(uint16(len(s)))
	}
	if w.V().AtLeast(nif.V10_0_1_3) {
		w.Bool(true)
	}
	for _, s := range strips {
		for _, i := range s {
			w.U16(i)
		}
	}
}

// SkinInstance writes an NiSkinInstance.
func (w *Writer) SkinInstance(data, root Link, bones []int) {
	w.Ref(data)
	if w.V().AtLeast(nif.V10_1_0_101) {
		w.I32(-1)
	}
	w.Ref(root)
	w.Indices(bones)
}

// SkinBoneSpec is one bone of an NiSkinData.
type SkinBoneSpec struct {
	Rotation    mgl32.Mat3
	Translation mgl32.Vec3
	Scale       float32
	Weights     []nif.SkinWeight
}

// SkinData writes an NiSkinData with an identity overall transform.
func (w *Writer) SkinData(bones []SkinBoneSpec) {
	v := w.V()
	w.Mat33(mgl32.Ident3())
	w.Vec3(mgl32.Vec3{})
	w.F32(1)
	w.U32(uint32(len(bones)))
	if v.AtLeast(nif.V4_0_0_2) && v.AtMost(nif.V10_1_0_0) {
		w.I32(-1)
	}
	if v.AtLeast(nif.V4_2_1_0) {
		w.U8(1)
	}
	for _, b := range bones {
		w.Mat33(b.Rotation)
		w.Vec3(b.Translation)
		w.F32(orOne(b.Scale))
		w.Vec3(mgl32.Vec3{})
		w.F32(0)
		w.U16(uint16(len(b.Weights)))
		for _, sw := range b.Weights {
			w.U16(sw.Vertex)
			w.F32(sw.Weight)
		}
	}
}

func (w *Writer) extraData(name string, next Link) {
	v := w.V()
	if v.AtLeast(nif.V10_0_1_0) {
		w.String(name)
	}
	if v.AtMost(nif.V4_2_2_0) {
		w.Ref(next)
	}
}

// StringExtraData writes an NiStringExtraData.
func (w *Writer) StringExtraData(name, value string, next Link) {
	w.extraData(name, next)
	if w.V().AtMost(nif.V4_2_2_0) {
		w.U32(uint32(len(value) + 4))
	}
	w.String(value)
}

// IntegerExtraData writes an NiIntegerExtraData or BSXFlags.
func (w *Writer) IntegerExtraData(name string, value uint32, next Link) {
	w.extraData(name, next)
	w.U32(value)
}

// TextKeyExtraData writes an NiTextKeyExtraData.
func (w *Writer) TextKeyExtraData(name string, keys []nif.TextKey, next Link) {
	w.extraData(name, next)
	if w.V().AtMost(nif.V4_2_2_0) {
		w.U32(0)
	}
	w.U32(uint32(len(keys)))
	for _, k := range keys {
		w.F32(k.Time)
		w.String(k.Value)
	}
}

// FurnitureMarker writes a BSFurnitureMarker.
func (w *Writer) FurnitureMarker(name string, positions []nif.FurniturePosition) {
	w.extraData(name, 0)
	w.U32(uint32(len(positions)))
	for _, p := range positions {
		w.Vec3(p.Offset)
		w.U16(p.Orientation)
		w.U8(p.Ref1)
		w.U8(p.Ref2)
	}
}

// MaterialSpec describes an NiMaterialProperty.
type MaterialSpec struct {
	Object
	Ambient    mgl32.Vec3
	Diffuse    mgl32.Vec3
	Specular   mgl32.Vec3
	Emissive   mgl32.Vec3
	Glossiness float32
	Alpha      float32
	EmitMult   float32
}

// MaterialProperty writes an NiMaterialProperty.
func (w *Writer) MaterialProperty(m MaterialSpec) {
	v := w.V()
	w.objectNET(m.Object)
	if v.AtMost(nif.V10_0_1_2) {
		w.U16(0)
	}
	fo3 := v.Version == nif.V20_2_0_7 && v.UserAtLeast(11) && v.BSAbove(21)
	if !fo3 {
		w.Vec3(m.Ambient)
		w.Vec3(m.Diffuse)
	}
	w.Vec3(m.Specular)
	w.Vec3(m.Emissive)
	w.F32(m.Glossiness)
	w.F32(m.Alpha)
	if fo3 {
		w.F32(orOne(m.EmitMult))
	}
}

// TexturingSpec describes an NiTexturingProperty: Slots maps a texture
// slot (nif.TexBase...) to the NiSourceTexture block.
type TexturingSpec struct {
	Object
	ApplyMode uint32
	Slots     map[int]int
}

func (w *Writer) texDesc(source int) {
	v := w.V()
	w.Index(source)
	if v.AtMost(nif.V20_0_0_5) {
		w.U32(3)
		w.U32(2)
	}
	if v.AtLeast(nif.V20_1_0_3) {
		w.U16(3<<12 | 2<<8)
	}
	if v.AtMost(nif.V10_4_0_1) {
		w.U32(0)
	}
	if v.AtMost(nif.V4_1_0_12) {
		w.I16(0)
		w.I16(0)
		w.U16(0)
	}
	if v.AtLeast(nif.V10_1_0_0) {
		w.Bool(false)
	}
}

// TexturingProperty writes an NiTexturingProperty.
func (w *Writer) TexturingProperty(t TexturingSpec) {
	v := w.V()
	w.objectNET(t.Object)
	if v.AtMost(nif.V10_0_1_2) || v.AtLeast(nif.V20_1_0_2) {
		w.U16(0)
	}
	if v.Between(nif.V3_3_0_13, nif.V20_1_0_1) {
		w.U32(t.ApplyMode)
	}
	base := 6
	if v.AtLeast(nif.V20_2_0_5) {
		base = 8
	}
	decals := 0
	for i := 0; i < 4; i++ {
		if _, ok := t.Slots[nif.TexDecal0+i]; ok {
			decals = i + 1
		}
	}
	count := base + decals
	w.U32(uint32(count))
	slot := func(i int) bool {
		src, ok := t.Slots[i]
		w.Bool(ok)
		if ok {
			w.texDesc(src)
		}
		return ok
	}
	for i := nif.TexBase; i <= nif.TexBump; i++ {
		if slot(i) && i == nif.TexBump {
			w.F32(1)
			w.F32(0)
			w.Vec4(mgl32.Vec4{1, 0, 0, 1})
		}
	}
	if v.AtLeast(nif.V20_2_0_5) {
		slot(nif.TexNormal)
		if slot(nif.TexParallax) {
			w.F32(0)
		}
	}
	for i := 0; i < 4; i++ {
		if count > base+i {
			slot(nif.TexDecal0 + i)
		}
	}
	if v.AtLeast(nif.V10_0_1_0) {
		w.U32(0)
	}
}

// SourceTexture writes an external NiSourceTexture.
func (w *Writer) SourceTexture(file string) {
	v := w.V()
	w.objectNET(Object{})
	w.U8(1)
	w.String(file)
	if v.AtLeast(nif.V10_1_0_0) {
		w.I32(-1)
	}
	w.U32(5)
	w.U32(2)
	w.U32(3)
	w.U8(1)
	if v.AtLeast(nif.V10_1_0_103) {
		w.Bool(true)
	}
	if v.AtLeast(nif.V20_2_0_4) {
		w.Bool(false)
	}
}

// AlphaProperty writes an NiAlphaProperty.
func (w *Writer) AlphaProperty(flags uint16, threshold uint8) {
	w.objectNET(Object{})
	w.U16(flags)
	w.U8(threshold)
}

// VertexColorProperty writes an NiVertexColorProperty.
func (w *Writer) VertexColorProperty(vertexMode, lightingMode uint32) {
	w.objectNET(Object{})
	if w.V().AtMost(nif.V20_0_0_5) {
		w.U16(0)
		w.U32(vertexMode)
		w.U32(lightingMode)
		return
	}
	w.U16(uint16(vertexMode<<4 | lightingMode<<3))
}

// ZBufferProperty writes an NiZBufferProperty.
func (w *Writer) ZBufferProperty(flags uint16, function uint32) {
	w.objectNET(Object{})
	w.U16(flags)
	if w.V().Between(nif.V4_1_0_12, nif.V20_0_0_5) {
		w.U32(function)
	}
}

// FlagsProperty writes a flags-only property (specular, wireframe,
// dither, shade).
func (w *Writer) FlagsProperty(flags uint16) {
	w.objectNET(Object{})
	w.U16(flags)
}

// StencilProperty writes an NiStencilProperty.
func (w *Writer) StencilProperty(enabled bool, drawMode uint32) {
	v := w.V()
	w.objectNET(Object{})
	if v.AtMost(nif.V10_0_1_2) {
		w.U16(0)
	}
	if v.AtMost(nif.V20_0_0_5) {
		if enabled {
			w.U8(1)
		} else {
			w.U8(0)
		}
		w.U32(0)
		w.U32(0)
		w.U32(0xFFFFFFFF)
		w.U32(0)
		w.U32(0)
		w.U32(0)
		w.U32(drawMode)
		return
	}
	var flags uint16
	if enabled {
		flags = 1
	}
	flags |= uint16(drawMode) << 11
	w.U16(flags)
	w.U32(0)
	w.U32(0xFFFFFFFF)
}
