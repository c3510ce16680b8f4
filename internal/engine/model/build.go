package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	nmath "github.com/dankdonk/openmw-sub003/pkg/math"
	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// editorMarkerPrefix names nodes that only the level editor renders.
const editorMarkerPrefix = "editormarker"

type builder struct {
	f        *nif.File
	opts     Options
	log      *zap.Logger
	skel     *Skeleton
	external bool // skel came from Options.Skeleton

	visited map[int]bool
	geoms   map[int]geomContext
	// meshNodes and subMeshes keep this walk's registration order.
	meshNodes []int
	subMeshes map[int][]int
	worlds    map[int]nmath.Transform
	morphed   bool // the requested morph was found
}

// Build assembles a model from a decoded file.
func Build(f *nif.File, opts Options) (*Model, error) {
	if opts.Root < 0 || opts.Root >= len(f.Roots) {
		return nil, fmt.Errorf("%w: root %d of %d", nif.ErrRefOutOfRange, opts.Root, len(f.Roots))
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	b := &builder{
		f:       f,
		opts:    opts,
		log:     log,
		visited: make(map[int]bool),
		geoms:   make(map[int]geomContext),
		worlds:  make(map[int]nmath.Transform),

		subMeshes: make(map[int][]int),
	}
	root := f.Roots[opts.Root]

	m := &Model{
		Root:     root.Index(),
		Variant:  opts.Variant,
		BSXFlags: f.State.FileBSXFlags(),
		TextKeys: f.State.TextKeys(root.Index()),
		Bounds:   emptyBounds(),
	}

	switch {
	case opts.Variant == VariantSkinned:
		if opts.Skeleton == nil {
			return nil, fmt.Errorf("%w: skinned build without a skeleton", nif.ErrStructure)
		}
		b.skel, b.external = opts.Skeleton, true
	default:
		skel, err := BuildSkeleton(f)
		if err != nil {
			return nil, err
		}
		b.skel = skel
	}
	m.Skeleton = b.skel

	clips, err := BuildClips(f)
	if err != nil {
		return nil, err
	}
	m.Clips = clips

	if opts.Variant == VariantSkeletonOnly {
		return m, nil
	}

	if err := b.walk(root, nmath.Identity(), nil); err != nil {
		return nil, err
	}
	if err := b.assemble(m); err != nil {
		return nil, err
	}
	if opts.Variant == VariantMorphed && !b.morphed {
		return nil, fmt.Errorf("%w: %q", ErrNoMorph, opts.Morph)
	}

	if opts.SkinTexture != "" && m.SubMeshCount() == 1 {
		sub := m.Meshes[0].SubMeshes[0]
		sub.Material.Textures[nif.TexBase].File = opts.SkinTexture
	}

	b.log.Debug("model built",
		zap.Stringer("variant", opts.Variant),
		zap.Int("meshes", len(m.Meshes)),
		zap.Int("submeshes", m.SubMeshCount()),
		zap.Int("clips", len(m.Clips)))
	return m, nil
}

// skip reports whether the walk leaves av and its subtree out.
func (b *builder) skip(index int, av nif.AVRecord) bool {
	if av.AV().Hidden() && !b.opts.IncludeHidden {
		b.log.Debug("skipping hidden node", zap.Int("index", index))
		return true
	}
	name := av.NET().Name
	if !b.opts.IncludeEditorMarkers && strings.HasPrefix(strings.ToLower(name), editorMarkerPrefix) {
		b.log.Debug("skipping editor marker", zap.Int("index", index))
		return true
	}
	return av.Kind() == nif.KindRootCollisionNode
}

// walk visits the node at ref with the parent's world transform and the
// properties inherited from its ancestors.
func (b *builder) walk(ref nif.Ref, parent nmath.Transform, inherited []nif.Ref) error {
	index := ref.Index()
	if b.visited[index] {
		return fmt.Errorf("%w: node %d reached twice", nif.ErrCycle, index)
	}
	b.visited[index] = true

	av, ok := b.f.Record(ref).(nif.AVRecord)
	if !ok || b.skip(index, av) {
		return nil
	}
	a := av.AV()
	world := parent.Mul(a.Transform())
	props := append(inherited[:len(inherited):len(inherited)], a.Properties...)

	if g, ok := av.(*nif.Geometry); ok {
		// A geometry root is its own mesh node.
		b.addGeometry(index, index, g, parent, inherited)
		return nil
	}
	node, ok := av.(nif.NodeRecord)
	if !ok {
		return nil
	}
	b.worlds[index] = world

	children := node.AsNode().Children
	if sw, ok := av.(*nif.SwitchNode); ok {
		if int(sw.Active) >= len(children) {
			return nil
		}
		children = children[sw.Active : sw.Active+1]
	}
	for _, child := range children {
		if !child.Valid() {
			continue
		}
		if g, ok := b.f.Record(child).(*nif.Geometry); ok {
			if b.visited[child.Index()] {
				return fmt.Errorf("%w: geometry %d reached twice", nif.ErrCycle, child.Index())
			}
			b.visited[child.Index()] = true
			if !b.skip(child.Index(), g) {
				b.addGeometry(index, child.Index(), g, world, props)
			}
			continue
		}
		if err := b.walk(child, world, props); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) addGeometry(node, index int, g *nif.Geometry, parent nmath.Transform, inherited []nif.Ref) {
	if _, ok := b.worlds[node]; !ok {
		b.worlds[node] = parent
	}
	if _, dup := b.geoms[index]; dup {
		return
	}
	local := g.Transform()
	b.f.State.RegisterSubMesh(node, index)
	if _, ok := b.subMeshes[node]; !ok {
		b.meshNodes = append(b.meshNodes, node)
	}
	b.subMeshes[node] = append(b.subMeshes[node], index)
	b.geoms[index] = geomContext{
		node:  node,
		world: parent.Mul(local),
		local: local,
		props: append(inherited[:len(inherited):len(inherited)], g.Properties...),
	}
}

// assemble builds meshes in registration order, keeping the geometry this
// walk reached.
func (b *builder) assemble(m *Model) error {
	for _, node := range b.meshNodes {
		var mesh *Mesh
		for _, gi := range b.subMeshes[node] {
			ctx := b.geoms[gi]
			g := b.f.Records[gi].(*nif.Geometry)
			sub, err := b.buildSubMesh(gi, g, ctx)
			if err != nil {
				return err
			}
			if mesh == nil {
				mesh = &Mesh{Node: node, Name: b.f.Name(nif.Ref(node)), Transform: b.worlds[node]}
				m.Meshes = append(m.Meshes, mesh)
			}
			mesh.SubMeshes = append(mesh.SubMeshes, sub)
			for _, p := range sub.Positions {
				m.Bounds.extend(p)
			}
		}
	}
	return nil
}

// applyMorph returns the base vertices with the selected morph applied, or
// base unchanged when the geometry has no such morph.
func (b *builder) applyMorph(g *nif.Geometry, base []mgl32.Vec3) ([]mgl32.Vec3, error) {
	for _, ctrl := range b.f.Controllers(g.Controller) {
		gm, ok := ctrl.(*nif.GeomMorpherController)
		if !ok {
			continue
		}
		data, err := nif.Get[*nif.MorphData](b.f, gm.Data)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}
		i := morphIndex(data, b.opts.Morph)
		if i < 0 {
			continue
		}
		vecs := data.Morphs[i].Vectors
		if len(vecs) != len(base) {
			return nil, fmt.Errorf("%w: morph %d has %d vectors for %d vertices", nif.ErrStructure, i, len(vecs), len(base))
		}
		out := make([]mgl32.Vec3, len(base))
		for j := range base {
			if data.Relative {
				out[j] = base[j].Add(vecs[j])
			} else {
				out[j] = vecs[j]
			}
		}
		b.morphed = true
		return out, nil
	}
	return base, nil
}

// morphIndex resolves a morph selector: a name, or "#n" for the n-th morph.
func morphIndex(data *nif.MorphData, sel string) int {
	for i, m := range data.Morphs {
		if m.Name != "" && strings.EqualFold(m.Name, sel) {
			return i
		}
	}
	if n, ok := strings.CutPrefix(sel, "#"); ok {
		if i, err := strconv.Atoi(n); err == nil && i >= 0 && i < len(data.Morphs) {
			return i
		}
	}
	return -1
}
