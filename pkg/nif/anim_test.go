package nif_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/dankdonk/openmw-sub003/pkg/nif"
	"github.com/dankdonk/openmw-sub003/pkg/nif/niftest"
)

func sequenceFile(vi nif.VersionInfo) *niftest.Builder {
	names := []string{"Bip01", "NiTransformController", "Bip01 Head"}
	usePalette := vi.AtLeast(nif.V10_2_0_0) && vi.Before(nif.V20_1_0_1)

	b := niftest.New(vi)
	b.Add("NiControllerSequence", func(w *niftest.Writer) {
		s := niftest.SequenceSpec{
			Name: "Idle",
			Blocks: []niftest.BlockSpec{
				{Interpolator: niftest.To(1), NodeName: "Bip01", ControllerType: "NiTransformController"},
				{Interpolator: niftest.To(1), NodeName: "Bip01 Head", ControllerType: "NiTransformController"},
				{Interpolator: niftest.To(1), NodeName: "Bip01", ControllerType: "NiTransformController"},
			},
			Stop:      2,
			AccumRoot: "Bip01",
		}
		if usePalette {
			s.Palette = niftest.To(3)
			s.PaletteNames = names
		}
		w.ControllerSequence(s)
	})
	b.Add("NiTransformInterpolator", func(w *niftest.Writer) {
		w.TransformInterpolator(mgl32.Vec3{}, mgl32.QuatIdent(), 1, niftest.To(2))
	})
	b.Add("NiTransformData", func(w *niftest.Writer) {
		w.KeyframeData(niftest.KeyframeSpec{
			Rotations: []nif.Key[mgl32.Quat]{
				{Time: 0, Value: mgl32.QuatIdent()},
				{Time: 2, Value: mgl32.QuatRotate(1, mgl32.Vec3{0, 0, 1})},
			},
			Translations: nif.KeyGroup[mgl32.Vec3]{
				Type: nif.KeyLinear,
				Keys: []nif.Key[mgl32.Vec3]{{Time: 0}, {Time: 2, Value: mgl32.Vec3{0, 0, 10}}},
			},
		})
	})
	if usePalette {
		b.Add("NiStringPalette", func(w *niftest.Writer) { w.StringPalette(names) })
	}
	return b
}

func TestControllerSequence(t *testing.T) {
	tests := []struct {
		name string
		vi   nif.VersionInfo
	}{
		{"palette names", niftest.Oblivion},
		{"string names", niftest.Fallout3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := load(t, sequenceFile(tt.vi))
			seq, err := nif.Get[*nif.ControllerSequence](f, 0)
			if err != nil {
				t.Fatal(err)
			}
			if seq.Name != "Idle" || seq.Stop != 2 || len(seq.Blocks) != 3 {
				t.Fatalf("sequence: got %q stop %v with %d blocks", seq.Name, seq.Stop, len(seq.Blocks))
			}
			if b := seq.Blocks[1]; b.NodeName != "Bip01 Head" || b.ControllerType != "NiTransformController" {
				t.Errorf("block 1: got %q / %q", b.NodeName, b.ControllerType)
			}
			if seq.Blocks[0].PropertyType != "" {
				t.Errorf("missing names should be empty, got %q", seq.Blocks[0].PropertyType)
			}
			want := []string{"Bip01", "Bip01 Head"}
			if got := f.State.AnimationBones("Idle"); !reflect.DeepEqual(got, want) {
				t.Errorf("AnimationBones: got %v, want %v", got, want)
			}
			if got := f.State.Sequences(); !reflect.DeepEqual(got, []string{"Idle"}) {
				t.Errorf("Sequences: got %v", got)
			}

			interp, err := nif.Get[*nif.TransformInterpolator](f, seq.Blocks[0].Interpolator)
			if err != nil {
				t.Fatal(err)
			}
			data, err := nif.Get[*nif.KeyframeData](f, interp.Data)
			if err != nil {
				t.Fatal(err)
			}
			if len(data.Rotations) != 2 || data.RotationType != nif.KeyLinear {
				t.Errorf("rotations: got %d of %v", len(data.Rotations), data.RotationType)
			}
			if k := data.Translations.Keys; len(k) != 2 || k[1].Value != (mgl32.Vec3{0, 0, 10}) {
				t.Errorf("translations: got %v", k)
			}
			if data.Scales.Len() != 0 {
				t.Errorf("scales: got %d keys", data.Scales.Len())
			}
		})
	}
}

func TestSequenceUnsupportedBefore10_1_0_106(t *testing.T) {
	b := niftest.New(nif.VersionInfo{Version: nif.V10_0_1_0})
	b.AddRaw("NiControllerSequence", make([]byte, 64))
	_, err := nif.Load(b.Bytes())
	if !errors.Is(err, nif.ErrUnsupportedFeature) {
		t.Errorf("got %v, want ErrUnsupportedFeature", err)
	}
}

func TestStringPaletteAt(t *testing.T) {
	p := &nif.StringPalette{Palette: []byte("abc\x00de\x00f")}
	tests := []struct {
		off  uint32
		want string
	}{
		{0, "abc"},
		{1, "bc"},
		{4, "de"},
		{7, "f"},
		{8, ""},
		{0xFFFFFFFF, ""},
	}
	for _, tt := range tests {
		if got := p.At(tt.off); got != tt.want {
			t.Errorf("At(%d): got %q, want %q", tt.off, got, tt.want)
		}
	}
	if off := niftest.PaletteOffset([]string{"abc", "de"}, "de"); off != 4 {
		t.Errorf("PaletteOffset: got %d, want 4", off)
	}
}

func TestKeyGroups(t *testing.T) {
	b := niftest.New(niftest.Morrowind)
	b.Add("NiKeyframeData", func(w *niftest.Writer) {
		w.KeyframeData(niftest.KeyframeSpec{
			RotationType: nif.KeyXYZ,
			XYZ: [3]nif.KeyGroup[float32]{
				{},
				{},
				{Type: nif.KeyLinear, Keys: []nif.Key[float32]{{Time: 0}, {Time: 1, Value: 1.5}}},
			},
			Scales: nif.KeyGroup[float32]{
				Type: nif.KeyTBC,
				Keys: []nif.Key[float32]{{Time: 0, Value: 1, Tension: 0.5, Bias: -0.5, Continuity: 0.25}},
			},
		})
	})
	b.Add("NiFloatData", func(w *niftest.Writer) {
		w.FloatData(nif.KeyGroup[float32]{
			Type: nif.KeyQuadratic,
			Keys: []nif.Key[float32]{{Time: 1, Value: 2, Forward: 3, Backward: 4}},
		})
	})
	b.Add("NiVisData", func(w *niftest.Writer) {
		w.VisData([]nif.Key[uint8]{{Time: 0, Value: 1}, {Time: 1, Value: 0}})
	})
	b.Add("NiMorphData", func(w *niftest.Writer) {
		w.MorphData(2, true, []niftest.MorphSpec{
			{Vectors: []mgl32.Vec3{{0, 0, 0}, {1, 1, 1}}},
			{Vectors: []mgl32.Vec3{{0, 1, 0}, {0, 0, 0}}},
		})
	})
	b.Roots(0)
	f := load(t, b)

	kf := f.Records[0].(*nif.KeyframeData)
	if kf.RotationType != nif.KeyXYZ || kf.XYZ[2].Len() != 2 || kf.XYZ[0].Len() != 0 {
		t.Errorf("xyz: got %v with %d/%d keys", kf.RotationType, kf.XYZ[0].Len(), kf.XYZ[2].Len())
	}
	if s := kf.Scales.Keys; len(s) != 1 || s[0].Tension != 0.5 || s[0].Continuity != 0.25 {
		t.Errorf("tbc scales: got %+v", s)
	}

	fd := f.Records[1].(*nif.FloatData)
	if k := fd.Keys.Keys[0]; fd.Keys.Type != nif.KeyQuadratic || k.Forward != 3 || k.Backward != 4 {
		t.Errorf("quadratic: got %+v", fd.Keys)
	}

	vis := f.Records[2].(*nif.VisData)
	if len(vis.Keys) != 2 || vis.Keys[0].Value != 1 {
		t.Errorf("vis: got %+v", vis.Keys)
	}

	md := f.Records[3].(*nif.MorphData)
	if !md.Relative || md.NumVertices != 2 || len(md.Morphs) != 2 {
		t.Fatalf("morph data: got %+v", md)
	}
	if md.Morphs[1].Vectors[0] != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("morph vector: got %v", md.Morphs[1].Vectors[0])
	}
}

func TestKeyTypeString(t *testing.T) {
	if nif.KeyTBC.String() != "tbc" || nif.KeyType(42).String() != "unknown" {
		t.Error("KeyType.String")
	}
}
