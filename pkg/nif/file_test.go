package nif_test

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/dankdonk/openmw-sub003/pkg/nif"
	"github.com/dankdonk/openmw-sub003/pkg/nif/niftest"
)

var versions = []struct {
	name string
	vi   nif.VersionInfo
}{
	{"morrowind", niftest.Morrowind},
	{"oblivion", niftest.Oblivion},
	{"fallout3", niftest.Fallout3},
}

func load(t *testing.T, b *niftest.Builder) *nif.File {
	t.Helper()
	f, err := nif.Load(b.Bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return f
}

var triangle = niftest.ShapeData{
	Vertices: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
	Normals:  []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
	UVs:      []mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}},
	Radius:   1,
}

// triangleScene builds root -> shape -> data.
func triangleScene(vi nif.VersionInfo) *niftest.Builder {
	b := niftest.New(vi)
	b.Add("NiNode", func(w *niftest.Writer) {
		w.Node(niftest.NodeSpec{
			AV:       niftest.AV{Object: niftest.Object{Name: "Scene Root"}},
			Children: []int{1},
		})
	})
	b.Add("NiTriShape", func(w *niftest.Writer) {
		w.Geometry(niftest.GeometrySpec{
			AV: niftest.AV{
				Object:      niftest.Object{Name: "Tri"},
				Translation: mgl32.Vec3{1, 2, 3},
				Scale:       2,
			},
			Data: niftest.To(2),
		})
	})
	b.Add("NiTriShapeData", func(w *niftest.Writer) {
		w.TriShapeData(triangle, [][3]uint16{{0, 1, 2}})
	})
	return b
}

func TestLoadTriangleScene(t *testing.T) {
	for _, tt := range versions {
		t.Run(tt.name, func(t *testing.T) {
			f := load(t, triangleScene(tt.vi))
			if f.Version() != tt.vi {
				t.Errorf("Version: got %v, want %v", f.Version(), tt.vi)
			}
			if f.Len() != 3 {
				t.Fatalf("Len: got %d, want 3", f.Len())
			}
			if name := f.Name(f.Roots[0]); name != "Scene Root" {
				t.Errorf("root name: got %q", name)
			}
			root, err := f.Node(0)
			if err != nil {
				t.Fatal(err)
			}
			if kids := root.AsNode().Children; len(kids) != 1 || kids[0] != 1 {
				t.Errorf("children: got %v", kids)
			}
			geom, err := f.Geometry(1)
			if err != nil {
				t.Fatal(err)
			}
			if geom.Translation != (mgl32.Vec3{1, 2, 3}) || geom.Scale != 2 {
				t.Errorf("transform: got %v scale %v", geom.Translation, geom.Scale)
			}
			if geom.Strips() {
				t.Error("NiTriShape should not report strips")
			}
			if p, ok := f.State.Parent(1); !ok || p != 0 {
				t.Errorf("Parent(1): got %d, %v", p, ok)
			}
			data, err := nif.Get[*nif.TriShapeData](f, geom.Data)
			if err != nil {
				t.Fatal(err)
			}
			if len(data.Vertices) != 3 || data.Vertices[1] != (mgl32.Vec3{1, 0, 0}) {
				t.Errorf("vertices: got %v", data.Vertices)
			}
			if len(data.UVSets) != 1 || data.UVSets[0][2] != (mgl32.Vec2{0, 1}) {
				t.Errorf("uv sets: got %v", data.UVSets)
			}
			if len(data.Triangles) != 1 || data.Triangles[0] != [3]uint16{0, 1, 2} {
				t.Errorf("triangles: got %v", data.Triangles)
			}
		})
	}
}

func TestLoadTriStrips(t *testing.T) {
	for _, tt := range versions {
		t.Run(tt.name, func(t *testing.T) {
			b := niftest.New(tt.vi)
			b.Add("NiTriStrips", func(w *niftest.Writer) {
				w.Geometry(niftest.GeometrySpec{Data: niftest.To(1)})
			})
			b.Add("NiTriStripsData", func(w *niftest.Writer) {
				d := triangle
				d.Vertices = append(d.Vertices, mgl32.Vec3{1, 1, 0})
				d.Normals = nil
				d.UVs = nil
				w.TriStripsData(d, [][]uint16{{0, 1, 2, 3}})
			})
			f := load(t, b)
			geom, err := f.Geometry(0)
			if err != nil {
				t.Fatal(err)
			}
			if !geom.Strips() {
				t.Error("NiTriStrips should report strips")
			}
			data, err := nif.Get[*nif.TriStripsData](f, geom.Data)
			if err != nil {
				t.Fatal(err)
			}
			if data.NumTriangles != 2 || len(data.Strips) != 1 || len(data.Strips[0]) != 4 {
				t.Errorf("strips: got %d triangles, %v", data.NumTriangles, data.Strips)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() []byte
		want  error
	}{
		{
			name:  "empty",
			build: func() []byte { return nil },
			want:  nif.ErrInvalidHeader,
		},
		{
			name:  "garbage",
			build: func() []byte { return []byte("PK\x03\x04 not a nif at all") },
			want:  nif.ErrInvalidHeader,
		},
		{
			name: "truncated",
			build: func() []byte {
				data := triangleScene(niftest.Oblivion).Bytes()
				return data[:len(data)-20]
			},
			want: nif.ErrTruncated,
		},
		{
			name: "unsupported bs version",
			build: func() []byte {
				return triangleScene(nif.VersionInfo{Version: nif.V20_2_0_7, User: 12, BS: 83}).Bytes()
			},
			want: nif.ErrUnsupportedVersion,
		},
		{
			name: "unknown record type",
			build: func() []byte {
				b := niftest.New(niftest.Oblivion)
				b.AddRaw("NiFancyNewThing", []byte{1, 2, 3, 4})
				return b.Bytes()
			},
			want: nif.ErrUnknownRecordType,
		},
		{
			name: "no roots",
			build: func() []byte {
				b := triangleScene(niftest.Oblivion)
				b.Roots()
				return b.Bytes()
			},
			want: nif.ErrNoRoots,
		},
		{
			name: "root out of range",
			build: func() []byte {
				b := triangleScene(niftest.Morrowind)
				b.Roots(7)
				return b.Bytes()
			},
			want: nif.ErrRefOutOfRange,
		},
		{
			name: "child out of range",
			build: func() []byte {
				b := niftest.New(niftest.Fallout3)
				b.Add("NiNode", func(w *niftest.Writer) {
					w.Node(niftest.NodeSpec{Children: []int{5}})
				})
				return b.Bytes()
			},
			want: nif.ErrRefOutOfRange,
		},
		{
			name: "multiple parents",
			build: func() []byte {
				b := niftest.New(niftest.Oblivion)
				b.Add("NiNode", func(w *niftest.Writer) {
					w.Node(niftest.NodeSpec{Children: []int{1, 2}})
				})
				b.Add("NiNode", func(w *niftest.Writer) {
					w.Node(niftest.NodeSpec{Children: []int{2}})
				})
				b.Add("NiNode", func(w *niftest.Writer) { w.Node(niftest.NodeSpec{}) })
				return b.Bytes()
			},
			want: nif.ErrMultipleParents,
		},
		{
			name: "self parent",
			build: func() []byte {
				b := niftest.New(niftest.Morrowind)
				b.Add("NiNode", func(w *niftest.Writer) {
					w.Node(niftest.NodeSpec{Children: []int{0}})
				})
				return b.Bytes()
			},
			want: nif.ErrCycle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := nif.Load(tt.build())
			if !errors.Is(err, tt.want) {
				t.Fatalf("Load: got %v, want %v", err, tt.want)
			}
			if f != nil {
				t.Error("failed load should not return a file")
			}
		})
	}
}

func TestErrorClasses(t *testing.T) {
	tests := []struct {
		err   error
		class error
	}{
		{nif.ErrInvalidHeader, nif.ErrFormat},
		{nif.ErrUnknownRecordType, nif.ErrFormat},
		{nif.ErrBadBlockTable, nif.ErrFormat},
		{nif.ErrNoRoots, nif.ErrStructure},
		{nif.ErrMultipleParents, nif.ErrStructure},
		{nif.ErrMissingSkeletonRoot, nif.ErrStructure},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.class) {
			t.Errorf("%v should wrap %v", tt.err, tt.class)
		}
	}
}

func TestBlockErrorNamesBlock(t *testing.T) {
	b := niftest.New(niftest.Oblivion)
	b.Add("NiNode", func(w *niftest.Writer) { w.Node(niftest.NodeSpec{}) })
	b.AddRaw("NiFancyNewThing", nil)
	_, err := nif.Load(b.Bytes())
	var be *nif.BlockError
	if !errors.As(err, &be) {
		t.Fatalf("got %v, want a BlockError", err)
	}
	if be.Index != 1 || be.Type != "NiFancyNewThing" {
		t.Errorf("BlockError: got index %d type %q", be.Index, be.Type)
	}
}

func TestBlockSizes(t *testing.T) {
	t.Run("tail skipped", func(t *testing.T) {
		b := niftest.New(niftest.Fallout3)
		b.Add("NiNode", func(w *niftest.Writer) {
			w.Node(niftest.NodeSpec{Children: []int{1}})
			w.Zero(6)
		})
		b.Add("NiNode", func(w *niftest.Writer) {
			w.Node(niftest.NodeSpec{AV: niftest.AV{Object: niftest.Object{Name: "child"}}})
		})
		f := load(t, b)
		if f.Name(1) != "child" {
			t.Errorf("second block misaligned: name %q", f.Name(1))
		}
	})
	t.Run("overrun", func(t *testing.T) {
		b := niftest.New(niftest.Fallout3)
		b.AddRaw("NiNode", []byte{0, 0, 0, 0})
		b.AddRaw("NiNode", make([]byte, 200))
		if _, err := nif.Load(b.Bytes()); !errors.Is(err, nif.ErrBadBlockTable) {
			t.Errorf("got %v, want ErrBadBlockTable", err)
		}
	})
}

func TestGet(t *testing.T) {
	f := load(t, triangleScene(niftest.Oblivion))

	if g, err := nif.Get[*nif.Geometry](f, nif.None); err != nil || g != nil {
		t.Errorf("Get(None): got %v, %v", g, err)
	}
	if _, err := nif.Get[*nif.Geometry](f, 9); !errors.Is(err, nif.ErrRefOutOfRange) {
		t.Errorf("Get(9): got %v, want ErrRefOutOfRange", err)
	}
	if _, err := nif.Get[*nif.Geometry](f, 0); !errors.Is(err, nif.ErrWrongRecordType) {
		t.Errorf("Get(0) as geometry: got %v, want ErrWrongRecordType", err)
	}
	if f.Record(-1) != nil || f.Record(3) != nil {
		t.Error("Record should return nil for invalid refs")
	}
	if f.Lookup(nif.Ptr(2)).Kind() != nif.KindNiTriShapeData {
		t.Error("Lookup(2) should be the shape data")
	}
}

func TestDecoderHook(t *testing.T) {
	calls := 0
	d := nif.Decoder{OnDecode: func(*nif.File) { calls++ }}
	if _, err := d.Load(triangleScene(niftest.Morrowind).Bytes()); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Load(nil); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("OnDecode calls: got %d, want 1", calls)
	}
}

func TestLookupKind(t *testing.T) {
	tests := []struct {
		name string
		want nif.Kind
	}{
		{"NiNode", nif.KindNiNode},
		{"BSFadeNode", nif.KindBSFadeNode},
		{"bhkRigidBodyT", nif.KindBhkRigidBodyT},
		{"NiTriShape", nif.KindNiTriShape},
	}
	for _, tt := range tests {
		k, ok := nif.LookupKind(tt.name)
		if !ok || k != tt.want {
			t.Errorf("LookupKind(%q): got %v, %v", tt.name, k, ok)
		}
		if k.String() != tt.name {
			t.Errorf("String: got %q, want %q", k.String(), tt.name)
		}
	}
	if _, ok := nif.LookupKind("NiNode2"); ok {
		t.Error("unknown names should not resolve")
	}
}
