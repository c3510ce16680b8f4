package nif

import (
	"fmt"
	"strings"
)

// BoneTree is the bone hierarchy derived from the bone leaf candidates: the
// parent to children adjacency restricted to nodes visited while walking
// from each candidate toward the skeleton root.
type BoneTree struct {
	Root   int  // skeleton root node, -1 when the file has no candidates
	Marked bool // Root carries a skeleton root marker

	children map[int][]int
	parent   map[int]int
}

// Children returns the bone children of node in insertion order.
func (t *BoneTree) Children(node int) []int { return t.children[node] }

// Parent returns the bone parent of node.
func (t *BoneTree) Parent(node int) (int, bool) {
	p, ok := t.parent[node]
	return p, ok
}

// Contains reports whether node is part of the tree below Root.
func (t *BoneTree) Contains(node int) bool {
	if node == t.Root {
		return t.Root >= 0
	}
	for steps := 0; steps <= len(t.parent); steps++ {
		p, ok := t.parent[node]
		if !ok {
			return false
		}
		if p == t.Root {
			return true
		}
		node = p
	}
	return false
}

// Walk visits Root and its descendants top-down; parent is -1 for Root.
func (t *BoneTree) Walk(fn func(node, parent int)) {
	if t.Root < 0 {
		return
	}
	var visit func(n, p int)
	visit = func(n, p int) {
		fn(n, p)
		for _, c := range t.children[n] {
			visit(c, n)
		}
	}
	visit(t.Root, None)
}

// Len returns the number of nodes below and including Root.
func (t *BoneTree) Len() int {
	n := 0
	t.Walk(func(int, int) { n++ })
	return n
}

// addChild links child under parent once. It reports false when child was
// already linked, meaning the rest of its chain has been walked.
func (t *BoneTree) addChild(parent, child int) bool {
	if _, ok := t.parent[child]; ok {
		return false
	}
	t.parent[child] = parent
	t.children[parent] = append(t.children[parent], child)
	return true
}

// BoneTree derives the bone tree on first use and caches it.
func (f *File) BoneTree() (*BoneTree, error) {
	s := f.State
	s.boneOnce.Do(func() {
		s.bones, s.bonesErr = deriveBoneTree(f)
	})
	return s.bones, s.bonesErr
}

// IsSkeletonRoot reports whether node carries a skeleton root marker: its
// own name or an attached string extra data equal to one of the configured
// root names, ignoring case.
func (f *File) IsSkeletonRoot(node int) bool {
	rec, ok := f.Record(Ref(node)).(NETRecord)
	if !ok {
		return false
	}
	names := f.State.skeletonRoots()
	match := func(s string) bool {
		for _, n := range names {
			if strings.EqualFold(s, n) {
				return true
			}
		}
		return false
	}
	if match(rec.NET().Name) {
		return true
	}
	for _, i := range f.State.ExtraData(node) {
		if e, ok := f.Records[i].(*StringExtraData); ok && match(e.Value) {
			return true
		}
	}
	return false
}

func deriveBoneTree(f *File) (*BoneTree, error) {
	s := f.State
	t := &BoneTree{Root: None, children: make(map[int][]int), parent: make(map[int]int)}

	marker := None
	var ends []int
	leaves := 0
	for _, leaf := range s.leaves {
		if _, ok := f.Record(Ref(leaf)).(AVRecord); !ok {
			continue
		}
		leaves++
		cur := leaf
		for steps := 0; ; steps++ {
			if steps > len(f.Records) {
				return nil, fmt.Errorf("%w: parent chain from node %d", ErrCycle, leaf)
			}
			if f.IsSkeletonRoot(cur) {
				if marker < 0 {
					marker = cur
				}
				break
			}
			p, ok := s.Parent(cur)
			if !ok {
				ends = append(ends, cur)
				break
			}
			if !t.addChild(p, cur) {
				break
			}
			cur = p
		}
	}

	switch {
	case marker >= 0:
		t.Root = marker
		t.Marked = true
	case len(ends) == 0:
	default:
		for _, e := range ends {
			if f.isRoot(e) {
				t.Root = e
				break
			}
		}
		if t.Root < 0 {
			if leaves >= 2 {
				return nil, fmt.Errorf("%w: %d bone candidates, chains end at non-root node %d", ErrMissingSkeletonRoot, leaves, ends[0])
			}
			t.Root = ends[0]
		}
	}
	return t, nil
}
