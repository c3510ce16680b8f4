package export

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/dankdonk/openmw-sub003/internal/engine/model"
	"github.com/dankdonk/openmw-sub003/pkg/nif"
	"github.com/dankdonk/openmw-sub003/pkg/nif/niftest"
)

var triangle = niftest.ShapeData{
	Vertices: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
	Normals:  []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
	UVs:      []mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}},
	Radius:   1,
}

func buildModel(t *testing.T, b *niftest.Builder, opts model.Options) *model.Model {
	t.Helper()
	f, err := nif.Load(b.Bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m, err := model.Build(f, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func convert(t *testing.T, m *model.Model) *gltf.Document {
	t.Helper()
	doc, err := ToGLTF(m, Options{})
	if err != nil {
		t.Fatalf("ToGLTF: %v", err)
	}
	return doc
}

func crateScene() *niftest.Builder {
	b := niftest.New(niftest.Oblivion)
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Object: niftest.Object{Name: "Scene Root"}}, Children: []int{1}})
	})
	b.Add("NiTriShape", func(w *niftest.Writer) {
		w.Geometry(niftest.GeometrySpec{
			AV:   niftest.AV{Object: niftest.Object{Name: "Crate"}, Properties: []int{2, 3}},
			Data: niftest.To(5),
		})
	})
	b.Add("NiMaterialProperty", func(w *niftest.Writer) {
		w.MaterialProperty(niftest.MaterialSpec{
			Object:  niftest.Object{Name: "Wood"},
			Diffuse: mgl32.Vec3{0.5, 0.25, 1},
			Alpha:   0.5,
		})
	})
	b.Add("NiTexturingProperty", func(w *niftest.Writer) {
		w.TexturingProperty(niftest.TexturingSpec{ApplyMode: 2, Slots: map[int]int{nif.TexBase: 4}})
	})
	b.Add("NiSourceTexture", func(w *niftest.Writer) { w.SourceTexture(`Textures\Crate.dds`) })
	b.Add("NiTriShapeData", func(w *niftest.Writer) { w.TriShapeData(triangle, [][3]uint16{{0, 1, 2}}) })
	return b
}

func TestStaticMesh(t *testing.T) {
	doc := convert(t, buildModel(t, crateScene(), model.Options{}))

	if len(doc.Meshes) != 1 || len(doc.Meshes[0].Primitives) != 1 {
		t.Fatalf("meshes = %d", len(doc.Meshes))
	}
	prim := doc.Meshes[0].Primitives[0]
	for _, attr := range []string{"POSITION", "NORMAL", "TEXCOORD_0"} {
		acc, ok := prim.Attributes[attr]
		if !ok {
			t.Errorf("missing %s", attr)
			continue
		}
		if doc.Accessors[acc].Count != 3 {
			t.Errorf("%s count = %d", attr, doc.Accessors[acc].Count)
		}
	}
	if _, ok := prim.Attributes["JOINTS_0"]; ok {
		t.Error("static primitive has joints")
	}
	if doc.Accessors[*prim.Indices].Count != 3 {
		t.Errorf("index count = %d", doc.Accessors[*prim.Indices].Count)
	}

	mat := doc.Materials[*prim.Material]
	if mat.Name != "Wood" || mat.AlphaMode != gltf.AlphaBlend {
		t.Errorf("material %q alpha mode %v", mat.Name, mat.AlphaMode)
	}
	if got := *mat.PBRMetallicRoughness.BaseColorFactor; got != [4]float32{0.5, 0.25, 1, 0.5} {
		t.Errorf("base color = %v", got)
	}
	tex := mat.PBRMetallicRoughness.BaseColorTexture
	if tex == nil {
		t.Fatal("no base color texture")
	}
	if uri := doc.Images[*doc.Textures[tex.Index].Source].URI; uri != "textures/crate.dds" {
		t.Errorf("image uri = %q", uri)
	}
	var meshNodes int
	for _, i := range doc.Scenes[0].Nodes {
		if doc.Nodes[i].Mesh != nil {
			meshNodes++
		}
	}
	if meshNodes != 1 {
		t.Errorf("scene has %d mesh nodes", meshNodes)
	}
}

func TestTexturesShared(t *testing.T) {
	m := buildModel(t, crateScene(), model.Options{})
	m.Meshes[0].SubMeshes = append(m.Meshes[0].SubMeshes, m.Meshes[0].SubMeshes[0])
	doc, err := ToGLTF(m, Options{TexturePrefix: "data/"})
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Images) != 1 || len(doc.Materials) != 2 {
		t.Errorf("images %d materials %d", len(doc.Images), len(doc.Materials))
	}
	if doc.Images[0].URI != "data/textures/crate.dds" {
		t.Errorf("uri = %q", doc.Images[0].URI)
	}
}

func skinnedScene() *niftest.Builder {
	b := niftest.New(niftest.Oblivion)
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Object: niftest.Object{Name: "Scene Root"}}, Children: []int{1, 3}})
	})
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Object: niftest.Object{Name: "Bip01"}}, Children: []int{2}})
	})
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Object: niftest.Object{Name: "Bip01 Head"}, Translation: mgl32.Vec3{0, 0, 1}}})
	})
	b.Add("NiTriShape", func(w *niftest.Writer) {
		w.Geometry(niftest.GeometrySpec{
			AV:   niftest.AV{Object: niftest.Object{Name: "Body"}},
			Data: niftest.To(4),
			Skin: niftest.To(5),
		})
	})
	b.Add("NiTriShapeData", func(w *niftest.Writer) { w.TriShapeData(triangle, [][3]uint16{{0, 1, 2}}) })
	b.Add("NiSkinInstance", func(w *niftest.Writer) { w.SkinInstance(niftest.To(6), niftest.To(1), []int{1, 2}) })
	b.Add("NiSkinData", func(w *niftest.Writer) {
		w.SkinData([]niftest.SkinBoneSpec{
			{Weights: []nif.SkinWeight{{Vertex: 0, Weight: 1}, {Vertex: 1, Weight: 0.25}}},
			{Translation: mgl32.Vec3{0, 0, -1}, Weights: []nif.SkinWeight{{Vertex: 1, Weight: 0.75}, {Vertex: 2, Weight: 1}}},
		})
	})
	return b
}

func TestSkinnedMesh(t *testing.T) {
	doc := convert(t, buildModel(t, skinnedScene(), model.Options{}))

	if doc.Nodes[0].Name != "Bip01" || doc.Nodes[1].Name != "Bip01 Head" {
		t.Fatalf("bone nodes = %q, %q", doc.Nodes[0].Name, doc.Nodes[1].Name)
	}
	if len(doc.Nodes[0].Children) != 1 || doc.Nodes[0].Children[0] != 1 {
		t.Errorf("root children = %v", doc.Nodes[0].Children)
	}
	if doc.Nodes[1].Translation != [3]float32{0, 0, 1} {
		t.Errorf("head translation = %v", doc.Nodes[1].Translation)
	}

	if len(doc.Skins) != 1 {
		t.Fatalf("skins = %d", len(doc.Skins))
	}
	skin := doc.Skins[0]
	if len(skin.Joints) != 2 || skin.Joints[0] != 0 || skin.Joints[1] != 1 {
		t.Errorf("joints = %v", skin.Joints)
	}
	ibm := doc.Accessors[*skin.InverseBindMatrices]
	if ibm.Type != gltf.AccessorMat4 || ibm.Count != 2 {
		t.Errorf("inverse bind matrices: type %v count %d", ibm.Type, ibm.Count)
	}

	var skinned *gltf.Node
	for _, n := range doc.Nodes {
		if n.Skin != nil {
			skinned = n
		}
	}
	if skinned == nil {
		t.Fatal("no skinned node")
	}
	prim := doc.Meshes[*skinned.Mesh].Primitives[0]
	for _, attr := range []string{"JOINTS_0", "WEIGHTS_0"} {
		if acc, ok := prim.Attributes[attr]; !ok || doc.Accessors[acc].Count != 3 {
			t.Errorf("%s missing or wrong count", attr)
		}
	}
}

func TestSkinWithoutSkeleton(t *testing.T) {
	m := buildModel(t, skinnedScene(), model.Options{})
	m.Skeleton = nil
	if _, err := ToGLTF(m, Options{}); err == nil {
		t.Error("expected an error for a skin without skeleton")
	}
}

func TestAnimation(t *testing.T) {
	b := niftest.New(niftest.Morrowind)
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Object: niftest.Object{Name: "Scene Root"}}, Children: []int{1}})
	})
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Object: niftest.Object{Name: "Bip01", Controller: niftest.To(2)}}})
	})
	b.Add("NiKeyframeController", func(w *niftest.Writer) {
		w.KeyframeController(niftest.ControllerSpec{Flags: 8, Stop: 2, Target: niftest.To(1)}, 0, niftest.To(3))
	})
	b.Add("NiKeyframeData", func(w *niftest.Writer) {
		w.KeyframeData(niftest.KeyframeSpec{
			Rotations: []nif.Key[mgl32.Quat]{
				{Time: 0, Value: mgl32.QuatIdent()},
				{Time: 2, Value: mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})},
			},
			Translations: nif.KeyGroup[mgl32.Vec3]{Keys: []nif.Key[mgl32.Vec3]{
				{Time: 0},
				{Time: 2, Value: mgl32.Vec3{10, 0, 0}},
			}},
		})
	})
	m := buildModel(t, b, model.Options{})
	doc, err := ToGLTF(m, Options{SampleRate: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Animations) != 1 {
		t.Fatalf("animations = %d", len(doc.Animations))
	}
	anim := doc.Animations[0]
	if anim.Name != model.DefaultClip || len(anim.Channels) != 3 {
		t.Fatalf("animation %q with %d channels", anim.Name, len(anim.Channels))
	}
	input := doc.Accessors[*anim.Samplers[0].Input]
	if input.Count != 5 || input.Max[0] != 2 {
		t.Errorf("input count %d max %v", input.Count, input.Max)
	}
	paths := map[gltf.TRSProperty]bool{}
	for _, ch := range anim.Channels {
		paths[ch.Target.Path] = true
		if *ch.Target.Node != 0 {
			t.Errorf("channel targets node %d", *ch.Target.Node)
		}
	}
	if !paths[gltf.TRSTranslation] || !paths[gltf.TRSRotation] || !paths[gltf.TRSScale] {
		t.Errorf("paths = %v", paths)
	}
}

func TestSaveBinary(t *testing.T) {
	doc := convert(t, buildModel(t, crateScene(), model.Options{}))
	path := filepath.Join(t.TempDir(), "crate.glb")
	if err := Save(doc, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	st, err := os.Stat(path)
	if err != nil || st.Size() == 0 {
		t.Fatalf("saved file: %v", err)
	}
	back, err := gltf.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(back.Meshes) != 1 {
		t.Errorf("reopened meshes = %d", len(back.Meshes))
	}
}
