// Package export converts built models to glTF 2.0 documents.
package export

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/dankdonk/openmw-sub003/internal/engine/model"
	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// DefaultSampleRate is the number of animation samples per second.
const DefaultSampleRate = 30

// Options controls a conversion.
type Options struct {
	// SampleRate overrides DefaultSampleRate.
	SampleRate float32
	// TexturePrefix is prepended to texture paths written as image URIs.
	TexturePrefix string
	Log           *zap.Logger
}

type converter struct {
	*gltf.Document
	opts   Options
	log    *zap.Logger
	m      *model.Model
	bones  []uint32 // skeleton bone -> node
	images map[string]uint32
}

// ToGLTF converts m. Static sub-meshes keep their baked world positions;
// each skinned sub-mesh becomes its own skinned node bound to the skeleton
// nodes.
func ToGLTF(m *model.Model, opts Options) (*gltf.Document, error) {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	c := &converter{
		Document: gltf.NewDocument(),
		opts:     opts,
		log:      log,
		m:        m,
		images:   make(map[string]uint32),
	}
	c.addSkeleton()
	for _, mesh := range m.Meshes {
		if err := c.addMesh(mesh); err != nil {
			return nil, err
		}
	}
	for _, clip := range m.Clips {
		c.addClip(clip)
	}
	c.log.Debug("gltf document",
		zap.Int("nodes", len(c.Nodes)),
		zap.Int("meshes", len(c.Meshes)),
		zap.Int("animations", len(c.Animations)))
	return c.Document, nil
}

// Save writes doc to path, binary when the extension is .glb.
func Save(doc *gltf.Document, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".glb") {
		return gltf.SaveBinary(doc, path)
	}
	return gltf.Save(doc, path)
}

func trs(n *gltf.Node, t mgl32.Vec3, q mgl32.Quat, s float32) {
	n.Translation = [3]float32{t[0], t[1], t[2]}
	n.Rotation = [4]float32{q.V[0], q.V[1], q.V[2], q.W}
	n.Scale = [3]float32{s, s, s}
}

func (c *converter) addSkeleton() {
	skel := c.m.Skeleton
	if skel == nil {
		return
	}
	for _, b := range skel.Bones {
		node := &gltf.Node{Name: b.Name}
		trs(node, b.Bind.Translation, b.Bind.Quat(), b.Bind.Scale)
		c.bones = append(c.bones, uint32(len(c.Nodes)))
		c.Nodes = append(c.Nodes, node)
	}
	for i, b := range skel.Bones {
		if b.Parent < 0 {
			c.Scenes[0].Nodes = append(c.Scenes[0].Nodes, c.bones[i])
			continue
		}
		parent := c.Nodes[c.bones[b.Parent]]
		parent.Children = append(parent.Children, c.bones[i])
	}
}

func (c *converter) addMesh(mesh *model.Mesh) error {
	var static []*gltf.Primitive
	for _, sub := range mesh.SubMeshes {
		prim, err := c.primitive(sub)
		if err != nil {
			return fmt.Errorf("sub-mesh %q: %w", sub.Name, err)
		}
		if sub.Skin == nil {
			static = append(static, prim)
			continue
		}
		skin, err := c.addSkin(sub, prim)
		if err != nil {
			return fmt.Errorf("sub-mesh %q: %w", sub.Name, err)
		}
		c.addNode(&gltf.Mesh{Name: sub.Name, Primitives: []*gltf.Primitive{prim}}, gltf.Index(skin))
	}
	if len(static) > 0 {
		c.addNode(&gltf.Mesh{Name: mesh.Name, Primitives: static}, nil)
	}
	return nil
}

func (c *converter) addNode(mesh *gltf.Mesh, skin *uint32) {
	c.Meshes = append(c.Meshes, mesh)
	node := &gltf.Node{
		Name: mesh.Name,
		Mesh: gltf.Index(uint32(len(c.Meshes) - 1)),
		Skin: skin,
	}
	trs(node, mgl32.Vec3{}, mgl32.QuatIdent(), 1)
	c.Nodes = append(c.Nodes, node)
	c.Scenes[0].Nodes = append(c.Scenes[0].Nodes, uint32(len(c.Nodes)-1))
}

func vec3s(vs []mgl32.Vec3) [][3]float32 {
	out := make([][3]float32, len(vs))
	for i, v := range vs {
		out[i] = [3]float32(v)
	}
	return out
}

func (c *converter) primitive(sub *model.SubMesh) (*gltf.Primitive, error) {
	if len(sub.Positions) == 0 || len(sub.Indices) == 0 {
		return nil, fmt.Errorf("%w: empty geometry", nif.ErrStructure)
	}
	n := len(sub.Positions)
	attrs := map[string]uint32{
		"POSITION": modeler.WritePosition(c.Document, vec3s(sub.Positions)),
	}
	if len(sub.Normals) == n {
		attrs["NORMAL"] = modeler.WriteNormal(c.Document, vec3s(sub.Normals))
	}
	if len(sub.UVs) == n {
		uvs := make([][2]float32, n)
		for i, uv := range sub.UVs {
			uvs[i] = [2]float32(uv)
		}
		attrs["TEXCOORD_0"] = modeler.WriteTextureCoord(c.Document, uvs)
	}
	if len(sub.Colors) == n {
		colors := make([][4]float32, n)
		for i, col := range sub.Colors {
			colors[i] = [4]float32(col)
		}
		attrs["COLOR_0"] = modeler.WriteAccessor(c.Document, gltf.TargetArrayBuffer, colors)
	}
	return &gltf.Primitive{
		Attributes: attrs,
		Indices:    gltf.Index(modeler.WriteIndices(c.Document, sub.Indices)),
		Material:   gltf.Index(c.addMaterial(&sub.Material)),
	}, nil
}

func (c *converter) addMaterial(mat *model.Material) uint32 {
	roughness := float32(1)
	if mat.SpecularEnabled && mat.Glossiness > 0 {
		roughness = 1 / (1 + mat.Glossiness/10)
	}
	metallic := float32(0)
	out := &gltf.Material{
		Name: mat.Name,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{mat.Diffuse[0], mat.Diffuse[1], mat.Diffuse[2], mat.Alpha},
			MetallicFactor:  &metallic,
			RoughnessFactor: &roughness,
		},
		DoubleSided: mat.TwoSided,
	}
	e := mat.Emissive.Mul(mat.EmitMult)
	out.EmissiveFactor = [3]float32{min(e[0], 1), min(e[1], 1), min(e[2], 1)}
	switch {
	case mat.AlphaTest:
		cutoff := float32(mat.AlphaRef) / 255
		out.AlphaMode = gltf.AlphaMask
		out.AlphaCutoff = &cutoff
	case mat.AlphaBlend || mat.Alpha < 1:
		out.AlphaMode = gltf.AlphaBlend
	}
	if tex := mat.Textures[nif.TexBase]; tex.File != "" {
		out.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{
			Index:    c.addTexture(tex.File),
			TexCoord: 0,
		}
	}
	c.Materials = append(c.Materials, out)
	return uint32(len(c.Materials) - 1)
}

// addTexture references file by URI; the image bytes stay outside the
// document.
func (c *converter) addTexture(file string) uint32 {
	uri := c.opts.TexturePrefix + strings.ToLower(strings.ReplaceAll(file, "\\", "/"))
	if i, ok := c.images[uri]; ok {
		return i
	}
	c.Images = append(c.Images, &gltf.Image{Name: filepath.Base(uri), URI: uri})
	c.Textures = append(c.Textures, &gltf.Texture{Source: gltf.Index(uint32(len(c.Images) - 1))})
	i := uint32(len(c.Textures) - 1)
	c.images[uri] = i
	return i
}

type influence struct {
	joint  uint16
	weight float32
}

func (c *converter) addSkin(sub *model.SubMesh, prim *gltf.Primitive) (uint32, error) {
	if len(c.bones) == 0 {
		return 0, fmt.Errorf("%w: skinned geometry without skeleton", nif.ErrStructure)
	}
	n := len(sub.Positions)
	per := make([][]influence, n)
	joints := make([]uint32, len(sub.Skin.Bones))
	ibms := make([][4][4]float32, len(sub.Skin.Bones))
	for j, b := range sub.Skin.Bones {
		if b.Bone < 0 || b.Bone >= len(c.bones) {
			return 0, fmt.Errorf("%w: bone %q", model.ErrMissingBone, b.Name)
		}
		joints[j] = c.bones[b.Bone]
		for col := 0; col < 4; col++ {
			ibms[j][col] = [4]float32(b.Offset.Col(col))
		}
		for _, w := range b.Weights {
			if int(w.Vertex) >= n || w.Weight <= 0 {
				continue
			}
			per[w.Vertex] = append(per[w.Vertex], influence{joint: uint16(j), weight: w.Weight})
		}
	}

	js := make([][4]uint16, n)
	ws := make([][4]float32, n)
	for v, list := range per {
		sort.SliceStable(list, func(a, b int) bool { return list[a].weight > list[b].weight })
		if len(list) > 4 {
			list = list[:4]
		}
		var sum float32
		for _, in := range list {
			sum += in.weight
		}
		for k, in := range list {
			js[v][k] = in.joint
			ws[v][k] = in.weight / sum
		}
		if len(list) == 0 {
			ws[v][0] = 1
		}
	}
	prim.Attributes["JOINTS_0"] = modeler.WriteJoints(c.Document, js)
	prim.Attributes["WEIGHTS_0"] = modeler.WriteWeights(c.Document, ws)

	ibm := c.addMatrices(ibms)
	c.Skins = append(c.Skins, &gltf.Skin{
		Name:                sub.Name,
		Joints:              joints,
		Skeleton:            gltf.Index(c.bones[0]),
		InverseBindMatrices: gltf.Index(ibm),
	})
	return uint32(len(c.Skins) - 1), nil
}

// addMatrices writes mat4 data through a vec4 accessor and retypes it.
func (c *converter) addMatrices(mats [][4][4]float32) uint32 {
	cols := make([][4]float32, 0, len(mats)*4)
	for _, m := range mats {
		cols = append(cols, m[0], m[1], m[2], m[3])
	}
	acc := modeler.WriteTangent(c.Document, cols)
	c.Accessors[acc].Type = gltf.AccessorMat4
	c.Accessors[acc].Count /= 4
	c.BufferViews[*c.Accessors[acc].BufferView].ByteStride *= 4
	return acc
}

// addClip samples every transform track bound to a bone.
func (c *converter) addClip(clip *model.Clip) {
	skel := c.m.Skeleton
	if skel == nil || clip.Duration() <= 0 {
		return
	}
	step := 1 / c.opts.SampleRate
	var times []float32
	for t := clip.Start; t < clip.Stop; t += step {
		times = append(times, t)
	}
	times = append(times, clip.Stop)

	rel := make([]float32, len(times))
	for i, t := range times {
		rel[i] = t - clip.Start
	}

	anim := &gltf.Animation{Name: clip.Name}
	var input *uint32
	for _, tr := range clip.Transforms {
		bone, ok := skel.BoneForNode(tr.Node)
		if !ok {
			bone, ok = skel.Lookup(tr.Target)
		}
		if !ok {
			continue
		}
		if input == nil {
			acc := modeler.WriteAccessor(c.Document, gltf.TargetArrayBuffer, rel)
			c.Accessors[acc].Min = []float32{rel[0]}
			c.Accessors[acc].Max = []float32{rel[len(rel)-1]}
			input = gltf.Index(acc)
		}
		bind := skel.Bones[bone].Bind
		translations := make([][3]float32, len(times))
		rotations := make([][4]float32, len(times))
		scales := make([][3]float32, len(times))
		for i, t := range times {
			xf := tr.Evaluate(t).Apply(bind)
			q := xf.Quat()
			translations[i] = [3]float32(xf.Translation)
			rotations[i] = [4]float32{q.V[0], q.V[1], q.V[2], q.W}
			scales[i] = [3]float32{xf.Scale, xf.Scale, xf.Scale}
		}
		node := c.bones[bone]
		c.channel(anim, input, node, gltf.TRSTranslation, translations)
		c.channel(anim, input, node, gltf.TRSRotation, rotations)
		c.channel(anim, input, node, gltf.TRSScale, scales)
	}
	if len(anim.Channels) > 0 {
		c.Animations = append(c.Animations, anim)
	}
}

func (c *converter) channel(anim *gltf.Animation, input *uint32, node uint32, path gltf.TRSProperty, data any) {
	out := modeler.WriteAccessor(c.Document, gltf.TargetArrayBuffer, data)
	anim.Samplers = append(anim.Samplers, &gltf.AnimationSampler{
		Input:         input,
		Output:        gltf.Index(out),
		Interpolation: gltf.InterpolationLinear,
	})
	anim.Channels = append(anim.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(anim.Samplers) - 1)),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(node),
			Path: path,
		},
	})
}
