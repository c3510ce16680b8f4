package nif

import "github.com/go-gl/mathgl/mgl32"

// Vector flag bits of NiGeometryData (10.0.1.0+).
const (
	vectorUVMask      = 0x3F
	vectorHasTangents = 0x1000
)

// GeometryData holds the vertex arrays shared by triangle lists and strips.
type GeometryData struct {
	Base
	GroupID        int32 // 10.1.0.114+
	NumVertices    int
	KeepFlags      uint8 // 10.1.0.0+
	CompressFlags  uint8 // 10.1.0.0+
	Vertices       []mgl32.Vec3
	VectorFlags    uint16 // 10.0.1.0+
	Normals        []mgl32.Vec3
	Tangents       []mgl32.Vec3
	Bitangents     []mgl32.Vec3
	Center         mgl32.Vec3
	Radius         float32
	Colors         []mgl32.Vec4
	UVSets         [][]mgl32.Vec2
	Consistency    uint16 // 10.0.1.0+
	AdditionalData Ref    // 20.0.0.4+
}

// GeomData returns the shared vertex arrays.
func (d *GeometryData) GeomData() *GeometryData { return d }

func (d *GeometryData) decodeGeometryData(c *DecodeContext) {
	r := c.R
	v := c.V()
	if v.AtLeast(V10_1_0_114) {
		d.GroupID = r.I32()
	}
	d.NumVertices = int(r.U16())
	if v.AtLeast(V10_1_0_0) {
		d.KeepFlags = r.U8()
		d.CompressFlags = r.U8()
	}
	n := d.NumVertices
	if r.Bool() {
		d.Vertices = r.Vec3s(n)
	}
	if v.AtLeast(V10_0_1_0) {
		d.VectorFlags = r.U16()
	}
	if r.Bool() {
		d.Normals = r.Vec3s(n)
		if v.AtLeast(V10_1_0_0) && d.VectorFlags&vectorHasTangents != 0 {
			d.Tangents = r.Vec3s(n)
			d.Bitangents = r.Vec3s(n)
		}
	}
	d.Center = r.Vec3()
	d.Radius = r.F32()
	if r.Bool() {
		d.Colors = r.Vec4s(n)
	}

	var sets int
	if v.Before(V10_0_1_0) {
		sets = int(r.U16())
		if v.AtMost(V4_0_0_2) && !r.Bool() {
			sets = 0
		}
	} else if v.BS > 0 {
		sets = int(d.VectorFlags & 1)
	} else {
		sets = int(d.VectorFlags & vectorUVMask)
	}
	if !r.fits(sets, n*8) {
		return
	}
	d.UVSets = make([][]mgl32.Vec2, sets)
	for i := range d.UVSets {
		d.UVSets[i] = r.Vec2s(n)
	}

	if v.AtLeast(V10_0_1_0) {
		d.Consistency = r.U16()
	}
	d.AdditionalData = None
	if v.AtLeast(V20_0_0_4) {
		d.AdditionalData = r.Ref()
	}
}

func (d *GeometryData) appendRefs(dst []Ref) []Ref {
	return append(dst, d.AdditionalData)
}

// GeometryDataRecord is implemented by TriShapeData and TriStripsData.
type GeometryDataRecord interface {
	Record
	GeomData() *GeometryData
}

// TriShapeData is an indexed triangle list.
type TriShapeData struct {
	GeometryData
	NumTriPoints uint32
	Triangles    [][3]uint16
	MatchGroups  [][]uint16
}

func (d *TriShapeData) decode(c *DecodeContext) error {
	r := c.R
	d.decodeGeometryData(c)
	numTriangles := int(r.U16())
	d.NumTriPoints = r.U32()
	hasTriangles := true
	if c.V().AtLeast(V10_0_1_0) {
		hasTriangles = r.Bool()
	}
	if hasTriangles && r.fits(numTriangles, 6) {
		d.Triangles = make([][3]uint16, numTriangles)
		for i := range d.Triangles {
			d.Triangles[i] = [3]uint16{r.U16(), r.U16(), r.U16()}
		}
	}
	groups := r.Count16(2)
	d.MatchGroups = make([][]uint16, groups)
	for i := range d.MatchGroups {
		d.MatchGroups[i] = r.U16s(int(r.U16()))
	}
	return nil
}

// TriStripsData is a set of triangle strips.
type TriStripsData struct {
	GeometryData
	NumTriangles int
	Strips       [][]uint16
}

func (d *TriStripsData) decode(c *DecodeContext) error {
	r := c.R
	d.decodeGeometryData(c)
	d.NumTriangles = int(r.U16())
	lengths := r.U16s(int(r.U16()))
	hasPoints := true
	if c.V().AtLeast(V10_0_1_3) {
		hasPoints = r.Bool()
	}
	if hasPoints {
		d.Strips = make([][]uint16, len(lengths))
		for i, n := range lengths {
			d.Strips[i] = r.U16s(int(n))
		}
	}
	return nil
}

// SkinInstance binds a geometry to a set of bones.
type SkinInstance struct {
	Base
	Data         Ref
	Partition    Ref // 10.1.0.101+
	SkeletonRoot Ptr
	Bones        []Ptr
}

func (s *SkinInstance) decode(c *DecodeContext) error {
	r := c.R
	s.Data = r.Ref()
	s.Partition = None
	if c.V().AtLeast(V10_1_0_101) {
		s.Partition = r.Ref()
	}
	s.SkeletonRoot = r.Ptr()
	s.Bones = r.Ptrs()
	for _, b := range s.Bones {
		if b.Valid() {
			c.State.AddBoneLeaf(b.Index())
		}
	}
	return nil
}

func (s *SkinInstance) appendRefs(dst []Ref) []Ref {
	return append(dst, s.Data, s.Partition)
}

// SkinWeight is one vertex influence.
type SkinWeight struct {
	Vertex uint16
	Weight float32
}

// SkinBone is the bind data of one bone.
type SkinBone struct {
	Rotation     mgl32.Mat3
	Translation  mgl32.Vec3
	Scale        float32
	SphereCenter mgl32.Vec3
	SphereRadius float32
	Weights      []SkinWeight
}

// SkinData holds per-bone bind transforms and vertex weights.
type SkinData struct {
	Base
	Rotation    mgl32.Mat3
	Translation mgl32.Vec3
	Scale       float32
	Partition   Ref // 10.1.0.0 and earlier
	HasWeights  bool
	Bones       []SkinBone
}

func (s *SkinData) decode(c *DecodeContext) error {
	r := c.R
	v := c.V()
	s.Rotation = r.Mat33()
	s.Translation = r.Vec3()
	s.Scale = r.F32()
	n := r.Count(4)
	s.Partition = None
	if v.AtLeast(V4_0_0_2) && v.AtMost(V10_1_0_0) {
		s.Partition = r.Ref()
	}
	s.HasWeights = true
	if v.AtLeast(V4_2_1_0) {
		s.HasWeights = r.U8() != 0
	}
	s.Bones = make([]SkinBone, n)
	for i := range s.Bones {
		b := &s.Bones[i]
		b.Rotation = r.Mat33()
		b.Translation = r.Vec3()
		b.Scale = r.F32()
		b.SphereCenter = r.Vec3()
		b.SphereRadius = r.F32()
		nw := int(r.U16())
		if !s.HasWeights || !r.fits(nw, 6) {
			continue
		}
		b.Weights = make([]SkinWeight, nw)
		for j := range b.Weights {
			b.Weights[j] = SkinWeight{Vertex: r.U16(), Weight: r.F32()}
		}
	}
	return nil
}

func (s *SkinData) appendRefs(dst []Ref) []Ref {
	return append(dst, s.Partition)
}

// PartitionBlock is one hardware skinning partition.
type PartitionBlock struct {
	Bones       []uint16
	VertexMap   []uint16
	Weights     []float32 // NumVertices * WeightsPerVertex
	Strips      [][]uint16
	Triangles   [][3]uint16
	BoneIndices []byte
	PerVertex   int
}

// SkinPartition is NiSkinPartition. Meshes are built from NiSkinData; the
// partition is decoded so files carrying it load.
type SkinPartition struct {
	Base
	Partitions []PartitionBlock
}

func (s *SkinPartition) decode(c *DecodeContext) error {
	r := c.R
	v := c.V()
	n := r.Count(10)
	s.Partitions = make([]PartitionBlock, n)
	for i := range s.Partitions {
		p := &s.Partitions[i]
		numVerts := int(r.U16())
		numTris := int(r.U16())
		numBones := int(r.U16())
		numStrips := int(r.U16())
		p.PerVertex = int(r.U16())
		p.Bones = r.U16s(numBones)
		if v.Before(V10_1_0_0) || r.Bool() {
			p.VertexMap = r.U16s(numVerts)
		}
		if v.Before(V10_1_0_0) || r.Bool() {
			p.Weights = r.F32s(numVerts * p.PerVertex)
		}
		lengths := r.U16s(numStrips)
		if v.Before(V10_1_0_0) || r.Bool() {
			if numStrips > 0 {
				p.Strips = make([][]uint16, numStrips)
				for j, l := range lengths {
					p.Strips[j] = r.U16s(int(l))
				}
			} else if r.fits(numTris, 6) {
				p.Triangles = make([][3]uint16, numTris)
				for j := range p.Triangles {
					p.Triangles[j] = [3]uint16{r.U16(), r.U16(), r.U16()}
				}
			}
		}
		if r.Bool() {
			p.BoneIndices = r.Bytes(numVerts * p.PerVertex)
		}
		if r.Err() != nil {
			return nil
		}
	}
	return nil
}
