package nif_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dankdonk/openmw-sub003/pkg/nif"
	"github.com/dankdonk/openmw-sub003/pkg/nif/niftest"
)

func parentOf(name string, children ...int) niftest.NodeSpec {
	spec := named(name)
	spec.Children = children
	return spec
}

func addNode(b *niftest.Builder, spec niftest.NodeSpec) int {
	return b.Add("NiNode", func(w *niftest.Writer) { w.Node(spec) })
}

func addSkin(b *niftest.Builder, root niftest.Link, bones ...int) int {
	return b.Add("NiSkinInstance", func(w *niftest.Writer) { w.SkinInstance(0, root, bones) })
}

func TestBoneTreeMarkedRoot(t *testing.T) {
	for _, tt := range versions {
		t.Run(tt.name, func(t *testing.T) {
			b := niftest.New(tt.vi)
			addNode(b, parentOf("Scene Root", 1, 4))
			addNode(b, parentOf("Bip01", 2))
			addNode(b, parentOf("Bip01 Spine", 3))
			addNode(b, parentOf("Bip01 Head"))
			b.Add("NiTriShape", func(w *niftest.Writer) {
				w.Geometry(niftest.GeometrySpec{Skin: niftest.To(5)})
			})
			addSkin(b, niftest.To(1), 2, 3)

			f := load(t, b)
			tree, err := f.BoneTree()
			if err != nil {
				t.Fatal(err)
			}
			if tree.Root != 1 || !tree.Marked {
				t.Fatalf("root: got %d marked=%v, want 1 marked", tree.Root, tree.Marked)
			}
			if got := tree.Children(1); !reflect.DeepEqual(got, []int{2}) {
				t.Errorf("Children(1): got %v", got)
			}
			if got := tree.Children(2); !reflect.DeepEqual(got, []int{3}) {
				t.Errorf("Children(2): got %v", got)
			}
			if tree.Len() != 3 {
				t.Errorf("Len: got %d, want 3", tree.Len())
			}
			if tree.Contains(0) || tree.Contains(4) {
				t.Error("scene root and shape are not bones")
			}
			if !tree.Contains(3) {
				t.Error("head should be in the tree")
			}
			var order []int
			tree.Walk(func(n, p int) { order = append(order, n) })
			if !reflect.DeepEqual(order, []int{1, 2, 3}) {
				t.Errorf("Walk: got %v", order)
			}

			again, _ := f.BoneTree()
			if again != tree {
				t.Error("bone tree should be cached")
			}
		})
	}
}

func TestBoneTreeRootSelection(t *testing.T) {
	tests := []struct {
		name    string
		build   func(b *niftest.Builder)
		root    int
		marked  bool
		wantErr error
	}{
		{
			name: "chain ends at file root",
			build: func(b *niftest.Builder) {
				addNode(b, parentOf("Scene Root", 1))
				addNode(b, parentOf("A", 2))
				addNode(b, parentOf("B"))
				addSkin(b, 0, 1, 2)
			},
			root: 0,
		},
		{
			name: "single candidate off the root",
			build: func(b *niftest.Builder) {
				addNode(b, parentOf("Scene Root"))
				addNode(b, parentOf("A", 2))
				addNode(b, parentOf("B"))
				addSkin(b, 0, 2)
			},
			root: 1,
		},
		{
			name: "no skeleton root",
			build: func(b *niftest.Builder) {
				addNode(b, parentOf("Scene Root"))
				addNode(b, parentOf("A", 2))
				addNode(b, parentOf("B"))
				addSkin(b, 0, 1, 2)
			},
			wantErr: nif.ErrMissingSkeletonRoot,
		},
		{
			name: "marker in string extra data",
			build: func(b *niftest.Builder) {
				addNode(b, parentOf("Scene Root", 1))
				b.Add("NiNode", func(w *niftest.Writer) {
					spec := parentOf("Skeleton", 2)
					spec.Extra = []int{4}
					w.Node(spec)
				})
				addNode(b, parentOf("Arm"))
				addSkin(b, 0, 2)
				b.Add("NiStringExtraData", func(w *niftest.Writer) { w.StringExtraData("", "bip01", 0) })
			},
			root:   1,
			marked: true,
		},
		{
			name: "no candidates",
			build: func(b *niftest.Builder) {
				addNode(b, parentOf("Scene Root", 1))
				addNode(b, parentOf("A"))
			},
			root: -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := niftest.New(niftest.Morrowind)
			tt.build(b)
			f := load(t, b)
			tree, err := f.BoneTree()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tree.Root != tt.root || tree.Marked != tt.marked {
				t.Errorf("root: got %d marked=%v, want %d marked=%v", tree.Root, tree.Marked, tt.root, tt.marked)
			}
		})
	}
}

func TestConfiguredSkeletonRoots(t *testing.T) {
	b := niftest.New(niftest.Oblivion)
	addNode(b, parentOf("Scene Root", 1))
	addNode(b, parentOf("Root Bone", 2))
	addNode(b, parentOf("Finger"))
	addSkin(b, 0, 2)

	d := nif.Decoder{SkeletonRoots: []string{"root bone"}}
	f, err := d.Load(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !f.IsSkeletonRoot(1) || f.IsSkeletonRoot(0) {
		t.Error("IsSkeletonRoot should follow the configured names")
	}
	tree, err := f.BoneTree()
	if err != nil {
		t.Fatal(err)
	}
	if tree.Root != 1 || !tree.Marked {
		t.Errorf("root: got %d marked=%v", tree.Root, tree.Marked)
	}
}

func TestBoneLeavesFromControllers(t *testing.T) {
	b := niftest.New(niftest.Morrowind)
	addNode(b, parentOf("Bip01", 1))
	b.Add("NiNode", func(w *niftest.Writer) {
		spec := parentOf("Bip01 Tail")
		spec.Controller = niftest.To(2)
		w.Node(spec)
	})
	b.Add("NiKeyframeController", func(w *niftest.Writer) {
		w.KeyframeController(niftest.ControllerSpec{Flags: 0x8, Target: niftest.To(1)}, 0, 0)
	})
	f := load(t, b)
	if !f.State.IsBoneLeaf(1) {
		t.Error("keyframe controller target should be a bone leaf")
	}
	ctrls := f.Controllers(f.Records[1].(nif.NETRecord).NET().Controller)
	if len(ctrls) != 1 || !ctrls[0].AsController().Active() {
		t.Errorf("Controllers: got %v", ctrls)
	}
}
