package niftest

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// ControllerSpec is the NiTimeController part of a controller spec. A zero
// Frequency is written as 1.
type ControllerSpec struct {
	Next      Link
	Flags     uint16
	Frequency float32
	Phase     float32
	Start     float32
	Stop      float32
	Target    Link
}

func (w *Writer) timeController(c ControllerSpec) {
	w.Ref(c.Next)
	w.U16(c.Flags)
	w.F32(orOne(c.Frequency))
	w.F32(c.Phase)
	w.F32(c.Start)
	w.F32(c.Stop)
	w.Ref(c.Target)
}

func (w *Writer) interpController(c ControllerSpec, interp, data Link) {
	v := w.V()
	w.timeController(c)
	if v.Between(nif.V10_1_0_104, nif.V10_1_0_108) {
		w.Bool(false)
	}
	if v.AtLeast(nif.V10_2_0_0) {
		w.Ref(interp)
	}
	if v.AtMost(nif.V10_1_0_103) {
		w.Ref(data)
	}
}

// KeyframeController writes an NiKeyframeController or
// NiTransformController. interp is used from 10.2.0.0 on, data before.
func (w *Writer) KeyframeController(c ControllerSpec, interp, data Link) {
	w.interpController(c, interp, data)
}

// FloatController writes an NiAlphaController or NiVisController.
func (w *Writer) FloatController(c ControllerSpec, interp, data Link) {
	w.interpController(c, interp, data)
}

// GeomMorpherController writes an NiGeomMorpherController.
func (w *Writer) GeomMorpherController(c ControllerSpec, data Link, interps []int) {
	v := w.V()
	w.timeController(c)
	if v.Between(nif.V10_1_0_104, nif.V10_1_0_108) {
		w.Bool(false)
	}
	if v.AtLeast(nif.V10_0_1_2) {
		w.U16(0)
	}
	if v.Version == nif.V10_1_0_106 {
		w.U8(0)
	}
	w.Ref(data)
	if v.AtLeast(nif.V4_0_0_1) {
		w.U8(0)
	}
	if v.AtLeast(nif.V10_1_0_106) {
		w.U32(uint32(len(interps)))
		for _, i := range interps {
			w.Index(i)
			if v.AtLeast(nif.V20_1_0_3) {
				w.F32(1)
			}
		}
	}
	if v.Between(nif.V10_2_0_0, nif.V20_1_0_3) {
		w.U32(0)
	}
}

// MultiTargetTransformController writes an NiMultiTargetTransformController.
func (w *Writer) MultiTargetTransformController(c ControllerSpec, targets []int) {
	w.timeController(c)
	if w.V().Between(nif.V10_1_0_104, nif.V10_1_0_108) {
		w.Bool(false)
	}
	w.U16(uint16(len(targets)))
	for _, t := range targets {
		w.Index(t)
	}
}

// ControllerManager writes an NiControllerManager.
func (w *Writer) ControllerManager(c ControllerSpec, sequences []int, palette Link) {
	w.timeController(c)
	w.Bool(false)
	w.Indices(sequences)
	w.Ref(palette)
}

// BlockSpec is one controlled block of a sequence.
type BlockSpec struct {
	Interpolator   Link
	Controller     Link
	NodeName       string
	ControllerType string
}

// SequenceSpec describes an NiControllerSequence. Between 10.2.0.0 and
// 20.1.0.0 names are written as offsets into Palette, whose names must be
// PaletteNames.
type SequenceSpec struct {
	Name         string
	Blocks       []BlockSpec
	TextKeys     Link
	Start, Stop  float32
	Manager      Link
	AccumRoot    string
	Palette      Link
	PaletteNames []string
}

// PaletteOffset returns the byte offset of name in a palette built from
// names, or 0xFFFFFFFF.
func PaletteOffset(names []string, name string) uint32 {
	off := 0
	for _, n := range names {
		if n == name {
			return uint32(off)
		}
		off += len(n) + 1
	}
	return 0xFFFFFFFF
}

// ControllerSequence writes an NiControllerSequence (10.1.0.106+).
func (w *Writer) ControllerSequence(s SequenceSpec) {
	v := w.V()
	w.String(s.Name)
	w.U32(uint32(len(s.Blocks)))
	w.U32(1)
	for _, b := range s.Blocks {
		w.Ref(b.Interpolator)
		w.Ref(b.Controller)
		if v.Between(nif.V10_1_0_104, nif.V10_1_0_110) {
			w.I32(-1)
			w.U16(0)
		}
		if v.BS > 0 {
			w.U8(0)
		}
		switch {
		case v.AtLeast(nif.V20_1_0_1):
			w.String(b.NodeName)
			w.String("")
			w.String(b.ControllerType)
			w.String("")
			w.String("")
		case v.AtLeast(nif.V10_2_0_0):
			w.Ref(s.Palette)
			w.U32(PaletteOffset(s.PaletteNames, b.NodeName))
			w.U32(0xFFFFFFFF)
			w.U32(PaletteOffset(s.PaletteNames, b.ControllerType))
			w.U32(0xFFFFFFFF)
			w.U32(0xFFFFFFFF)
		default:
			w.String(b.NodeName)
			w.String("")
			w.String(b.ControllerType)
			w.String("")
			w.String("")
		}
	}
	w.F32(1)
	w.Ref(s.TextKeys)
	w.U32(0)
	w.F32(1)
	if v.AtMost(nif.V10_4_0_1) {
		w.F32(0)
	}
	w.F32(s.Start)
	w.F32(s.Stop)
	if v.Version == nif.V10_1_0_106 {
		w.Bool(false)
	}
	w.Ref(s.Manager)
	w.String(s.AccumRoot)
	if v.AtLeast(nif.V10_1_0_113) && v.Before(nif.V20_1_0_1) {
		w.Ref(s.Palette)
	}
	switch {
	case v.BSAtLeast(24) && v.BS <= 28:
		w.I32(-1)
	case v.BSAbove(28):
		w.U16(0)
	}
}

// StringPalette writes an NiStringPalette holding names.
func (w *Writer) StringPalette(names []string) {
	var data []byte
	for _, n := range names {
		data = append(data, n...)
		data = append(data, 0)
	}
	w.U32(uint32(len(data)))
	w.Raw(data)
	w.U32(uint32(len(data)))
}

// PaletteEntry is one NiDefaultAVObjectPalette entry.
type PaletteEntry struct {
	Name   string
	Object int
}

// AVObjectPalette writes an NiDefaultAVObjectPalette.
func (w *Writer) AVObjectPalette(scene Link, entries []PaletteEntry) {
	w.Ref(scene)
	w.U32(uint32(len(entries)))
	for _, e := range entries {
		w.SizedString(e.Name)
		w.Index(e.Object)
	}
}

func writeKeys[T any](w *Writer, g nif.KeyGroup[T], put func(T), typeAlways bool) {
	w.U32(uint32(len(g.Keys)))
	if len(g.Keys) == 0 && !typeAlways {
		return
	}
	typ := g.Type
	if typ == 0 {
		typ = nif.KeyLinear
	}
	w.U32(uint32(typ))
	for _, k := range g.Keys {
		w.F32(k.Time)
		put(k.Value)
		switch typ {
		case nif.KeyQuadratic:
			put(k.Forward)
			put(k.Backward)
		case nif.KeyTBC:
			w.F32(k.Tension)
			w.F32(k.Bias)
			w.F32(k.Continuity)
		}
	}
}

// KeyframeSpec describes an NiKeyframeData / NiTransformData.
type KeyframeSpec struct {
	RotationType nif.KeyType
	Rotations    []nif.Key[mgl32.Quat]
	XYZ          [3]nif.KeyGroup[float32]
	Translations nif.KeyGroup[mgl32.Vec3]
	Scales       nif.KeyGroup[float32]
}

// KeyframeData writes an NiKeyframeData or NiTransformData.
func (w *Writer) KeyframeData(k KeyframeSpec) {
	if k.RotationType == nif.KeyXYZ {
		w.U32(1)
		w.U32(uint32(nif.KeyXYZ))
		if w.V().AtMost(nif.V10_1_0_0) {
			w.F32(0)
		}
		for _, g := range k.XYZ {
			writeKeys(w, g, w.F32, false)
		}
	} else {
		w.U32(uint32(len(k.Rotations)))
		if len(k.Rotations) > 0 {
			typ := k.RotationType
			if typ == 0 {
				typ = nif.KeyLinear
			}
			w.U32(uint32(typ))
			for _, r := range k.Rotations {
				w.F32(r.Time)
				w.Quat(r.Value)
				if typ == nif.KeyTBC {
					w.F32(r.Tension)
					w.F32(r.Bias)
					w.F32(r.Continuity)
				}
			}
		}
	}
	writeKeys(w, k.Translations, w.Vec3, false)
	writeKeys(w, k.Scales, w.F32, false)
}

// FloatData writes an NiFloatData.
func (w *Writer) FloatData(g nif.KeyGroup[float32]) { writeKeys(w, g, w.F32, false) }

// PosData writes an NiPosData.
func (w *Writer) PosData(g nif.KeyGroup[mgl32.Vec3]) { writeKeys(w, g, w.Vec3, false) }

// ColorData writes an NiColorData.
func (w *Writer) ColorData(g nif.KeyGroup[mgl32.Vec4]) { writeKeys(w, g, w.Vec4, false) }

// BoolData writes an NiBoolData.
func (w *Writer) BoolData(g nif.KeyGroup[uint8]) { writeKeys(w, g, w.U8, false) }

// VisData writes an NiVisData.
func (w *Writer) VisData(keys []nif.Key[uint8]) {
	w.U32(uint32(len(keys)))
	for _, k := range keys {
		w.F32(k.Time)
		w.U8(k.Value)
	}
}

// MorphSpec is one morph target.
type MorphSpec struct {
	Name         string
	Keys         nif.KeyGroup[float32]
	Interpolator Link
	Vectors      []mgl32.Vec3
}

// MorphData writes an NiMorphData.
func (w *Writer) MorphData(numVertices int, relative bool, morphs []MorphSpec) {
	v := w.V()
	w.U32(uint32(len(morphs)))
	w.U32(uint32(numVertices))
	if relative {
		w.U8(1)
	} else {
		w.U8(0)
	}
	for _, m := range morphs {
		if v.AtLeast(nif.V10_1_0_106) {
			w.String(m.Name)
		}
		if v.AtMost(nif.V10_1_0_0) {
			writeKeys(w, m.Keys, w.F32, true)
		}
		if v.Between(nif.V10_1_0_104, nif.V20_1_0_2) && v.BS < 10 {
			w.Ref(m.Interpolator)
		}
		if v.Between(nif.V20_0_0_4, nif.V20_0_0_5) && v.BS > 0 {
			w.U32(0)
		}
		for _, vec := range m.Vectors {
			w.Vec3(vec)
		}
	}
}

// TransformInterpolator writes an NiTransformInterpolator. A zero scale is
// written as 1.
func (w *Writer) TransformInterpolator(t mgl32.Vec3, r mgl32.Quat, s float32, data Link) {
	w.Vec3(t)
	w.Quat(r)
	w.F32(orOne(s))
	if w.V().Between(nif.V10_1_0_104, nif.V10_1_0_108) {
		w.Zero(3)
	}
	w.Ref(data)
}

// FloatInterpolator writes an NiFloatInterpolator.
func (w *Writer) FloatInterpolator(value float32, data Link) {
	w.F32(value)
	w.Ref(data)
}

// BoolInterpolator writes an NiBoolInterpolator.
func (w *Writer) BoolInterpolator(value bool, data Link) {
	w.Bool(value)
	w.Ref(data)
}

// Point3Interpolator writes an NiPoint3Interpolator.
func (w *Writer) Point3Interpolator(value mgl32.Vec3, data Link) {
	w.Vec3(value)
	w.Ref(data)
}
