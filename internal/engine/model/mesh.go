package model

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	nmath "github.com/dankdonk/openmw-sub003/pkg/math"
	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// StripToTriangles expands a triangle strip. Triangle i takes
// (s[i], s[i+1], s[i+2]) for even i and (s[i], s[i+2], s[i+1]) for odd i so
// every triangle keeps the strip's winding. Strips shorter than three
// indices produce nothing.
func StripToTriangles(strip []uint16) [][3]uint16 {
	if len(strip) < 3 {
		return nil
	}
	out := make([][3]uint16, 0, len(strip)-2)
	for i := 0; i+2 < len(strip); i++ {
		a, b, c := strip[i], strip[i+1], strip[i+2]
		if i%2 == 1 {
			b, c = c, b
		}
		out = append(out, [3]uint16{a, b, c})
	}
	return out
}

// triangles returns the geometry's triangle list.
func triangles(data nif.Record) [][3]uint16 {
	switch d := data.(type) {
	case *nif.TriShapeData:
		return d.Triangles
	case *nif.TriStripsData:
		var out [][3]uint16
		for _, s := range d.Strips {
			out = append(out, StripToTriangles(s)...)
		}
		return out
	}
	return nil
}

// geomContext is what the node walk records for every geometry it keeps.
type geomContext struct {
	node  int
	world nmath.Transform // geometry world transform
	local nmath.Transform // geometry local transform
	props []nif.Ref       // inherited node properties followed by its own
}

func (b *builder) buildSubMesh(index int, g *nif.Geometry, ctx geomContext) (*SubMesh, error) {
	rec := b.f.Record(g.Data)
	data, ok := rec.(nif.GeometryDataRecord)
	if !ok {
		return nil, fmt.Errorf("%w: geometry %d has no data", nif.ErrStructure, index)
	}
	gd := data.GeomData()

	sub := &SubMesh{Geometry: index, Name: g.Name}

	positions := gd.Vertices
	if b.opts.Variant == VariantMorphed {
		morphed, err := b.applyMorph(g, positions)
		if err != nil {
			return nil, err
		}
		positions = morphed
	}

	skinned := g.SkinInstance.Valid()
	xf := ctx.world
	if skinned {
		xf = ctx.local
	}
	sub.Positions = make([]mgl32.Vec3, len(positions))
	for i, p := range positions {
		sub.Positions[i] = xf.Apply(p)
	}
	if len(gd.Normals) > 0 {
		sub.Normals = make([]mgl32.Vec3, len(gd.Normals))
		for i, n := range gd.Normals {
			sub.Normals[i] = normalize(xf.ApplyDirection(n))
		}
	}
	if len(gd.UVSets) > 0 {
		sub.UVs = append([]mgl32.Vec2(nil), gd.UVSets[0]...)
	}
	if len(gd.Colors) > 0 {
		sub.Colors = append([]mgl32.Vec4(nil), gd.Colors...)
	}

	tris := triangles(rec)
	sub.Indices = make([]uint32, 0, len(tris)*3)
	for _, t := range tris {
		for _, v := range t {
			if int(v) >= len(positions) {
				return nil, fmt.Errorf("%w: index %d of %d vertices in geometry %d", ErrBadIndex, v, len(positions), index)
			}
			sub.Indices = append(sub.Indices, uint32(v))
		}
	}

	mat, err := resolveMaterial(b.f, ctx.props)
	if err != nil {
		return nil, fmt.Errorf("geometry %d: %w", index, err)
	}
	sub.Material = mat

	if skinned {
		skin, err := b.buildSkin(index, g)
		if err != nil {
			return nil, err
		}
		sub.Skin = skin
	}
	return sub, nil
}

// buildSkin binds the skin instance's bones against the skeleton this build
// targets: the file's own, or the external one by name.
func (b *builder) buildSkin(index int, g *nif.Geometry) (*Skin, error) {
	inst, err := nif.Get[*nif.SkinInstance](b.f, g.SkinInstance)
	if err != nil {
		return nil, fmt.Errorf("geometry %d skin: %w", index, err)
	}
	data, err := nif.Get[*nif.SkinData](b.f, inst.Data)
	if err != nil {
		return nil, fmt.Errorf("geometry %d skin data: %w", index, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: geometry %d skin has no data", nif.ErrStructure, index)
	}
	if len(data.Bones) != len(inst.Bones) {
		return nil, fmt.Errorf("%w: geometry %d skin has %d bones and %d bone records",
			nif.ErrStructure, index, len(inst.Bones), len(data.Bones))
	}

	skin := &Skin{Root: nmath.NewTransform(data.Translation, data.Rotation, data.Scale)}
	for i, ptr := range inst.Bones {
		name := b.f.Name(nif.Ref(ptr))
		bone := -1
		if b.skel != nil {
			var ok bool
			if b.external {
				bone, ok = b.skel.Lookup(name)
			} else {
				bone, ok = b.skel.BoneForNode(ptr.Index())
			}
			if !ok {
				return nil, fmt.Errorf("%w: %q (geometry %d)", ErrMissingBone, name, index)
			}
		}
		bd := data.Bones[i]
		skin.Bones = append(skin.Bones, SkinBone{
			Name:    name,
			Bone:    bone,
			Offset:  nmath.NewTransform(bd.Translation, bd.Rotation, bd.Scale).Mat4(),
			Weights: bd.Weights,
		})
	}
	return skin, nil
}
