package model

import (
	"strings"

	nmath "github.com/dankdonk/openmw-sub003/pkg/math"
	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// Bone is one skeleton joint.
type Bone struct {
	Name   string
	Node   int             // record index in the source file
	Parent int             // bone index, -1 for the root
	Bind   nmath.Transform // local bind pose relative to Parent
}

// Skeleton is the bone hierarchy in parent-before-child order.
type Skeleton struct {
	Bones []Bone

	byName map[string]int
	byNode map[int]int
}

// Len returns the number of bones.
func (s *Skeleton) Len() int { return len(s.Bones) }

// Root returns the root bone, or nil for an empty skeleton.
func (s *Skeleton) Root() *Bone {
	if len(s.Bones) == 0 {
		return nil
	}
	return &s.Bones[0]
}

// Lookup finds a bone by name, ignoring case.
func (s *Skeleton) Lookup(name string) (int, bool) {
	i, ok := s.byName[strings.ToLower(name)]
	return i, ok
}

// BoneForNode maps a source record index to its bone. Unnamed nodes map to
// their nearest named ancestor.
func (s *Skeleton) BoneForNode(node int) (int, bool) {
	i, ok := s.byNode[node]
	return i, ok
}

// World returns the bind pose of bone i in skeleton space.
func (s *Skeleton) World(i int) nmath.Transform {
	xf := nmath.Identity()
	for steps := 0; i >= 0 && steps < len(s.Bones); steps++ {
		xf = s.Bones[i].Bind.Mul(xf)
		i = s.Bones[i].Parent
	}
	return xf
}

// BuildSkeleton derives the skeleton of f from its bone tree. A file
// without bone candidates yields nil and no error.
func BuildSkeleton(f *nif.File) (*Skeleton, error) {
	tree, err := f.BoneTree()
	if err != nil {
		return nil, err
	}
	if tree.Root < 0 {
		return nil, nil
	}
	palette := paletteNames(f)

	s := &Skeleton{byName: make(map[string]int), byNode: make(map[int]int)}
	// carry holds the transforms of skipped nodes so their children stay in
	// place relative to the nearest kept ancestor.
	carry := make(map[int]nmath.Transform)
	tree.Walk(func(node, parent int) {
		up := -1
		if p, ok := s.byNode[parent]; ok && parent >= 0 {
			up = p
		}
		av, ok := f.Record(nif.Ref(node)).(nif.AVRecord)
		if !ok {
			return
		}
		bind := av.AV().Transform()
		if c, ok := carry[parent]; ok {
			bind = c.Mul(bind)
		}
		name := av.NET().Name
		if name == "" {
			name = palette[node]
		}
		if name == "" && up >= 0 {
			s.byNode[node] = up
			carry[node] = bind
			return
		}
		s.add(Bone{Name: name, Node: node, Parent: up, Bind: bind})
	})
	return s, nil
}

func (s *Skeleton) add(b Bone) {
	i := len(s.Bones)
	s.Bones = append(s.Bones, b)
	s.byNode[b.Node] = i
	key := strings.ToLower(b.Name)
	if _, dup := s.byName[key]; !dup {
		s.byName[key] = i
	}
}

// paletteNames maps records to the names object palettes give them.
func paletteNames(f *nif.File) map[int]string {
	out := make(map[int]string)
	for _, rec := range f.Records {
		p, ok := rec.(*nif.AVObjectPalette)
		if !ok {
			continue
		}
		for _, obj := range p.Objects {
			if obj.Object.Valid() {
				out[obj.Object.Index()] = obj.Name
			}
		}
	}
	return out
}
