// Package model builds renderable models from decoded NIF files: meshes with
// baked transforms and resolved materials, the skeleton derived from the
// bone leaf candidates, and animation clips bound to node names.
package model

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	nmath "github.com/dankdonk/openmw-sub003/pkg/math"
	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// Build errors. All are structural.
var (
	ErrMissingBone = fmt.Errorf("%w: skin bone not found in skeleton", nif.ErrStructure)
	ErrNoMorph     = fmt.Errorf("%w: morph target not found", nif.ErrStructure)
	ErrBadIndex    = fmt.Errorf("%w: vertex index out of range", nif.ErrStructure)
)

// Variant selects what a build produces.
type Variant int

// Build variants.
const (
	VariantPlain        Variant = iota
	VariantSkinned              // skin bound against Options.Skeleton
	VariantMorphed              // Options.Morph applied to base vertices
	VariantSkeletonOnly         // skeleton and clips, no meshes
)

func (v Variant) String() string {
	switch v {
	case VariantPlain:
		return "plain"
	case VariantSkinned:
		return "skinned"
	case VariantMorphed:
		return "morphed"
	case VariantSkeletonOnly:
		return "skeleton"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Options contains options for model building.
type Options struct {
	Variant Variant
	// Root indexes the file's root list.
	Root int
	// SkinTexture replaces the base texture of single sub-mesh models.
	SkinTexture string
	// Skeleton is the external skeleton skinned meshes bind to by bone name
	// (VariantSkinned).
	Skeleton *Skeleton
	// Morph names the morph target to apply (VariantMorphed). "#n" selects
	// morph n for files without morph names.
	Morph string
	// IncludeHidden keeps app-culled nodes.
	IncludeHidden bool
	// IncludeEditorMarkers keeps EditorMarker nodes.
	IncludeEditorMarkers bool
	// Log receives debug output; nil is silent.
	Log *zap.Logger
}

// Model is the build result.
type Model struct {
	Root     int // root record index
	Variant  Variant
	Meshes   []*Mesh
	Skeleton *Skeleton // nil when the file has no bones
	Clips    []*Clip
	BSXFlags uint32
	TextKeys []nif.TextKey // attached to the root node
	Bounds   Bounds
}

// SubMeshCount returns the number of sub-meshes across all meshes.
func (m *Model) SubMeshCount() int {
	n := 0
	for _, mesh := range m.Meshes {
		n += len(mesh.SubMeshes)
	}
	return n
}

// Clip returns the clip named name.
func (m *Model) Clip(name string) *Clip {
	for _, c := range m.Clips {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Mesh groups the geometry children of one node.
type Mesh struct {
	Node      int
	Name      string
	Transform nmath.Transform // node world transform
	SubMeshes []*SubMesh
}

// SubMesh is one geometry record ready for upload. Static sub-meshes have
// their world transform baked in; skinned ones only their local transform.
type SubMesh struct {
	Geometry  int
	Name      string
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2 // first texture coordinate set
	Colors    []mgl32.Vec4
	Indices   []uint32 // triangle list
	Material  Material
	Skin      *Skin
}

// Triangles returns the number of triangles.
func (s *SubMesh) Triangles() int { return len(s.Indices) / 3 }

// Skin holds the vertex to bone assignment of a skinned sub-mesh.
type Skin struct {
	Root  nmath.Transform // skin to skeleton space
	Bones []SkinBone
}

// SkinBone is one influencing bone.
type SkinBone struct {
	Name    string
	Bone    int        // index into the skeleton the model binds to
	Offset  mgl32.Mat4 // mesh space to bone space
	Weights []nif.SkinWeight
}
