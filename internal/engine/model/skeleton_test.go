package model

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/dankdonk/openmw-sub003/pkg/nif/niftest"
)

// chainScene is Bip01 -> unnamed -> Bip01 Head with the head skinned.
func chainScene(palette bool) *niftest.Builder {
	b := niftest.New(niftest.Oblivion)
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Object: niftest.Object{Name: "Scene Root"}}, Children: []int{1}})
	})
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Object: niftest.Object{Name: "Bip01"}}, Children: []int{2}})
	})
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Translation: mgl32.Vec3{0, 0, 1}}, Children: []int{3}})
	})
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{
			Object:      niftest.Object{Name: "Bip01 Head"},
			Translation: mgl32.Vec3{0, 0, 2},
		}})
	})
	b.Add("NiSkinInstance", func(w *niftest.Writer) { w.SkinInstance(0, niftest.To(1), []int{3}) })
	if palette {
		b.Add("NiDefaultAVObjectPalette", func(w *niftest.Writer) {
			w.AVObjectPalette(niftest.To(0), []niftest.PaletteEntry{{Name: "Spine", Object: 2}})
		})
	}
	return b
}

func TestBuildSkeletonUnnamedBone(t *testing.T) {
	skel, err := BuildSkeleton(load(t, chainScene(false)))
	if err != nil {
		t.Fatal(err)
	}
	if skel.Len() != 2 {
		t.Fatalf("bones: got %+v", skel.Bones)
	}
	head := skel.Bones[1]
	if head.Name != "Bip01 Head" || head.Parent != 0 {
		t.Errorf("head: got %+v", head)
	}
	// The skipped node's offset folds into the child.
	if !head.Bind.Translation.ApproxEqual(mgl32.Vec3{0, 0, 3}) {
		t.Errorf("head bind: got %v, want {0 0 3}", head.Bind.Translation)
	}
	if i, ok := skel.BoneForNode(2); !ok || i != 0 {
		t.Errorf("BoneForNode(2): got %d %v", i, ok)
	}
}

func TestBuildSkeletonPaletteName(t *testing.T) {
	skel, err := BuildSkeleton(load(t, chainScene(true)))
	if err != nil {
		t.Fatal(err)
	}
	if skel.Len() != 3 {
		t.Fatalf("bones: got %+v", skel.Bones)
	}
	if skel.Bones[1].Name != "Spine" || skel.Bones[2].Parent != 1 {
		t.Errorf("bones: got %+v", skel.Bones)
	}
	if i, ok := skel.Lookup("SPINE"); !ok || i != 1 {
		t.Errorf("Lookup: got %d %v", i, ok)
	}
	if w := skel.World(2); !w.Translation.ApproxEqual(mgl32.Vec3{0, 0, 3}) {
		t.Errorf("World(2): got %v", w.Translation)
	}
}

func TestBuildSkeletonNone(t *testing.T) {
	b := niftest.New(niftest.Morrowind)
	b.Add("NiNode", func(w *niftest.Writer) { w.Node(niftest.NodeSpec{}) })
	skel, err := BuildSkeleton(load(t, b))
	if err != nil || skel != nil {
		t.Fatalf("got %+v, %v", skel, err)
	}
}

func TestBuildSkeletonRepeatedLeaf(t *testing.T) {
	// Bip01 Head is a skin bone twice and a keyframe target.
	b := niftest.New(niftest.Morrowind)
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Object: niftest.Object{Name: "Scene Root"}}, Children: []int{1}})
	})
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Object: niftest.Object{Name: "Bip01"}}, Children: []int{2}})
	})
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{AV: niftest.AV{Object: niftest.Object{Name: "Bip01 Head", Controller: niftest.To(3)}}})
	})
	b.Add("NiKeyframeController", func(w *niftest.Writer) {
		w.KeyframeController(niftest.ControllerSpec{Stop: 1, Target: niftest.To(2)}, 0, 0)
	})
	b.Add("NiSkinInstance", func(w *niftest.Writer) { w.SkinInstance(0, niftest.To(1), []int{2, 2}) })

	skel, err := BuildSkeleton(load(t, b))
	if err != nil {
		t.Fatal(err)
	}
	if skel.Len() != 2 {
		t.Fatalf("bones: got %+v", skel.Bones)
	}
	if i, ok := skel.BoneForNode(2); !ok || i != 1 {
		t.Errorf("BoneForNode(2): got %d %v", i, ok)
	}
	var heads int
	for _, bone := range skel.Bones {
		if bone.Node == 2 {
			heads++
		}
	}
	if heads != 1 {
		t.Errorf("node 2 has %d bones", heads)
	}
}
