package nif

import (
	"fmt"
	"strings"
	"sync"
)

// BSXFlags bits.
const (
	BSXAnimated     uint32 = 1 << 0
	BSXHavok        uint32 = 1 << 1
	BSXRagdoll      uint32 = 1 << 2
	BSXComplex      uint32 = 1 << 3
	BSXAddon        uint32 = 1 << 4
	BSXEditorMarker uint32 = 1 << 5
	BSXDynamic      uint32 = 1 << 6
	BSXArticulated  uint32 = 1 << 7
)

// boneMarkerPrefix is the user-property convention marking a node as a bone.
const boneMarkerPrefix = "BONE"

// DefaultSkeletonRoots names the canonical skeleton root.
var DefaultSkeletonRoots = []string{"Bip01"}

type extraBinding struct {
	owner int
	ref   Ref
}

// BuildState accumulates facts derived while decoding and building one
// file: parent links, bone candidates, extra data bindings, animation bone
// names and registered sub-meshes.
//
// Decode-time registration is single threaded. Build-time registration is
// guarded so several builds may share one decoded file.
type BuildState struct {
	// SkeletonRoots overrides DefaultSkeletonRoots. It must be set before
	// the bone tree is first derived.
	SkeletonRoots []string

	parents   map[int]int
	leafSet   map[int]struct{}
	leaves    []int
	bindings  []extraBinding
	sequences []int

	extraOwner  map[int]int
	ownerExtras map[int][]int
	bsx         map[int]uint32
	fileBSX     uint32
	textKeys    map[int][]TextKey
	furniture   map[int][]FurniturePosition
	animBones   map[string][]string
	animOrder   []string

	mu       sync.Mutex
	subMesh  map[int][]int
	subSeen  map[int]struct{}
	subNodes []int

	boneOnce sync.Once
	bones    *BoneTree
	bonesErr error
}

// NewBuildState returns an empty side channel.
func NewBuildState() *BuildState {
	return &BuildState{
		parents:     make(map[int]int),
		leafSet:     make(map[int]struct{}),
		extraOwner:  make(map[int]int),
		ownerExtras: make(map[int][]int),
		bsx:         make(map[int]uint32),
		textKeys:    make(map[int][]TextKey),
		furniture:   make(map[int][]FurniturePosition),
		animBones:   make(map[string][]string),
		subMesh:     make(map[int][]int),
		subSeen:     make(map[int]struct{}),
	}
}

// SetParent links child to parent. Registering the same parent again is a
// no-op; a different parent is ErrMultipleParents.
func (s *BuildState) SetParent(child, parent int) error {
	if child == parent {
		return fmt.Errorf("%w: node %d is its own parent", ErrCycle, child)
	}
	if p, ok := s.parents[child]; ok {
		if p == parent {
			return nil
		}
		return fmt.Errorf("%w: node %d claimed by %d and %d", ErrMultipleParents, child, p, parent)
	}
	s.parents[child] = parent
	return nil
}

// Parent returns the registered parent of i.
func (s *BuildState) Parent(i int) (int, bool) {
	p, ok := s.parents[i]
	return p, ok
}

// AddBoneLeaf registers i as a bone leaf candidate. Repeated registration
// is ignored.
func (s *BuildState) AddBoneLeaf(i int) {
	if _, ok := s.leafSet[i]; ok {
		return
	}
	s.leafSet[i] = struct{}{}
	s.leaves = append(s.leaves, i)
}

// BoneLeaves returns the candidates in registration order.
func (s *BuildState) BoneLeaves() []int { return append([]int(nil), s.leaves...) }

// IsBoneLeaf reports whether i was registered as a candidate.
func (s *BuildState) IsBoneLeaf(i int) bool {
	_, ok := s.leafSet[i]
	return ok
}

// bindExtraData records that owner lists ref as extra data. Bindings are
// resolved after every block is decoded so the two may appear in any order.
func (s *BuildState) bindExtraData(owner int, ref Ref) {
	if ref.Valid() {
		s.bindings = append(s.bindings, extraBinding{owner: owner, ref: ref})
	}
}

func (s *BuildState) addSequence(i int) { s.sequences = append(s.sequences, i) }

// finish resolves extra data ownership and sequence bone names once all
// records exist and refs have been validated.
func (s *BuildState) finish(records []Record) error {
	for _, b := range s.bindings {
		cur := b.ref
		for steps := 0; cur.Valid(); steps++ {
			if steps > len(records) {
				return fmt.Errorf("%w: extra data chain from %d", ErrCycle, b.ref)
			}
			if _, seen := s.extraOwner[cur.Index()]; seen {
				if s.extraOwner[cur.Index()] != b.owner {
					return fmt.Errorf("%w: extra data %d owned by %d and %d", ErrMultipleParents, cur, s.extraOwner[cur.Index()], b.owner)
				}
				break
			}
			rec := records[cur]
			s.attachExtra(b.owner, cur.Index(), rec)
			ex, ok := rec.(ExtraDataRecord)
			if !ok {
				break
			}
			cur = ex.AsExtraData().Next
		}
	}

	for _, i := range s.sequences {
		seq := records[i].(*ControllerSequence)
		for j := range seq.Blocks {
			b := &seq.Blocks[j]
			pal := b.Palette
			if !pal.Valid() {
				pal = seq.Palette
			}
			if pal.Valid() {
				if p, ok := records[pal].(*StringPalette); ok {
					b.NodeName = p.At(b.NameOffsets[0])
					b.PropertyType = p.At(b.NameOffsets[1])
					b.ControllerType = p.At(b.NameOffsets[2])
					b.ControllerID = p.At(b.NameOffsets[3])
					b.InterpolatorID = p.At(b.NameOffsets[4])
				}
			}
			if b.NodeName != "" {
				s.addAnimationBone(seq.Name, b.NodeName)
			}
		}
	}
	return nil
}

func (s *BuildState) attachExtra(owner, i int, rec Record) {
	s.extraOwner[i] = owner
	s.ownerExtras[owner] = append(s.ownerExtras[owner], i)
	switch e := rec.(type) {
	case *IntegerExtraData:
		if e.Kind() == KindBSXFlags {
			s.bsx[owner] |= e.Value
			s.fileBSX |= e.Value
		}
	case *TextKeyExtraData:
		s.textKeys[owner] = append(s.textKeys[owner], e.Keys...)
	case *StringExtraData:
		if len(e.Value) >= len(boneMarkerPrefix) && strings.EqualFold(e.Value[:len(boneMarkerPrefix)], boneMarkerPrefix) {
			s.AddBoneLeaf(owner)
		}
	case *FurnitureMarker:
		s.furniture[owner] = append(s.furniture[owner], e.Positions...)
	}
}

func (s *BuildState) addAnimationBone(seq, bone string) {
	list, ok := s.animBones[seq]
	if !ok {
		s.animOrder = append(s.animOrder, seq)
	}
	for _, b := range list {
		if b == bone {
			return
		}
	}
	s.animBones[seq] = append(list, bone)
}

// ExtraData returns the extra data records bound to owner, chain order.
func (s *BuildState) ExtraData(owner int) []int { return s.ownerExtras[owner] }

// ExtraDataOwner returns the record an extra data block is attached to.
func (s *BuildState) ExtraDataOwner(i int) (int, bool) {
	o, ok := s.extraOwner[i]
	return o, ok
}

// BSXFlags returns the merged BSXFlags attached to node.
func (s *BuildState) BSXFlags(node int) uint32 { return s.bsx[node] }

// FileBSXFlags returns every BSXFlags value in the file merged.
func (s *BuildState) FileBSXFlags() uint32 { return s.fileBSX }

// TextKeys returns the text keys attached to node.
func (s *BuildState) TextKeys(node int) []TextKey { return s.textKeys[node] }

// Furniture returns furniture positions keyed by owning node.
func (s *BuildState) Furniture() map[int][]FurniturePosition { return s.furniture }

// AnimationBones returns the bone names a sequence animates.
func (s *BuildState) AnimationBones(seq string) []string { return s.animBones[seq] }

// Sequences returns the names of sequences with bone associations.
func (s *BuildState) Sequences() []string { return append([]string(nil), s.animOrder...) }

// RegisterSubMesh records geom as a sub-mesh of node. The same geometry is
// registered once; the return value reports whether it was new.
func (s *BuildState) RegisterSubMesh(node, geom int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subSeen[geom]; ok {
		return false
	}
	s.subSeen[geom] = struct{}{}
	if _, ok := s.subMesh[node]; !ok {
		s.subNodes = append(s.subNodes, node)
	}
	s.subMesh[node] = append(s.subMesh[node], geom)
	return true
}

// SubMeshes returns the geometry registered under node, in registration
// order.
func (s *BuildState) SubMeshes(node int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.subMesh[node]...)
}

// MeshNodes returns the nodes owning registered geometry.
func (s *BuildState) MeshNodes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.subNodes...)
}

func (s *BuildState) skeletonRoots() []string {
	if len(s.SkeletonRoots) > 0 {
		return s.SkeletonRoots
	}
	return DefaultSkeletonRoots
}
