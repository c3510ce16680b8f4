package nif

// TimeController is the shared head of every controller.
type TimeController struct {
	Base
	Next      Ref
	Flags     uint16
	Frequency float32
	Phase     float32
	Start     float32
	Stop      float32
	Target    Ptr
}

// AsController returns the shared controller fields.
func (t *TimeController) AsController() *TimeController { return t }

func (t *TimeController) decodeController(c *DecodeContext) {
	r := c.R
	t.Next = r.Ref()
	t.Flags = r.U16()
	t.Frequency = r.F32()
	t.Phase = r.F32()
	t.Start = r.F32()
	t.Stop = r.F32()
	t.Target = r.Ptr()
}

func (t *TimeController) appendRefs(dst []Ref) []Ref {
	return append(dst, t.Next)
}

// Active reports whether the controller's active flag is set.
func (t *TimeController) Active() bool { return t.Flags&0x8 != 0 }

// ControllerRecord is implemented by every controller.
type ControllerRecord interface {
	Record
	AsController() *TimeController
}

// InterpController adds the interpolator link of 10.2.0.0+ controllers.
type InterpController struct {
	TimeController
	Interpolator Ref // 10.2.0.0+
	Data         Ref // 10.1.0.103 and earlier
}

func (t *InterpController) decodeInterp(c *DecodeContext, hasData bool) {
	t.decodeController(c)
	v := c.V()
	if v.Between(V10_1_0_104, V10_1_0_108) {
		c.R.Bool() // manager controlled
	}
	t.Interpolator = None
	if v.AtLeast(V10_2_0_0) {
		t.Interpolator = c.R.Ref()
	}
	t.Data = None
	if hasData && v.AtMost(V10_1_0_103) {
		t.Data = c.R.Ref()
	}
}

func (t *InterpController) appendRefs(dst []Ref) []Ref {
	dst = t.TimeController.appendRefs(dst)
	return append(dst, t.Interpolator, t.Data)
}

// KeyframeController is NiKeyframeController or NiTransformController.
// Its target is a bone candidate.
type KeyframeController struct {
	InterpController
}

func (k *KeyframeController) decode(c *DecodeContext) error {
	k.decodeInterp(c, true)
	if k.Target.Valid() {
		c.State.AddBoneLeaf(k.Target.Index())
	}
	return nil
}

// FloatController is NiAlphaController or NiVisController.
type FloatController struct {
	InterpController
}

func (f *FloatController) decode(c *DecodeContext) error {
	f.decodeInterp(c, true)
	return nil
}

// MorphWeight pairs a morph interpolator with its weight (20.1.0.3+).
type MorphWeight struct {
	Interpolator Ref
	Weight       float32
}

// GeomMorpherController is NiGeomMorpherController.
type GeomMorpherController struct {
	TimeController
	ExtraFlags    uint16
	Data          Ref
	AlwaysUpdate  bool
	Interpolators []MorphWeight // 10.1.0.106+
}

func (g *GeomMorpherController) decode(c *DecodeContext) error {
	r := c.R
	v := c.V()
	g.decodeController(c)
	if v.Between(V10_1_0_104, V10_1_0_108) {
		r.Bool()
	}
	if v.AtLeast(V10_0_1_2) {
		g.ExtraFlags = r.U16()
	}
	if v.Version == V10_1_0_106 {
		r.U8()
	}
	g.Data = r.Ref()
	if v.AtLeast(V4_0_0_1) {
		g.AlwaysUpdate = r.U8() != 0
	}
	if v.AtLeast(V10_1_0_106) {
		n := r.Count(4)
		g.Interpolators = make([]MorphWeight, n)
		for i := range g.Interpolators {
			g.Interpolators[i].Interpolator = r.Ref()
			if v.AtLeast(V20_1_0_3) {
				g.Interpolators[i].Weight = r.F32()
			}
		}
	}
	if v.Between(V10_2_0_0, V20_1_0_3) {
		r.U32s(r.Count(4))
	}
	return nil
}

func (g *GeomMorpherController) appendRefs(dst []Ref) []Ref {
	dst = g.TimeController.appendRefs(dst)
	dst = append(dst, g.Data)
	for _, w := range g.Interpolators {
		dst = append(dst, w.Interpolator)
	}
	return dst
}

// MultiTargetTransformController is NiMultiTargetTransformController.
type MultiTargetTransformController struct {
	TimeController
	Targets []Ptr
}

func (m *MultiTargetTransformController) decode(c *DecodeContext) error {
	m.decodeController(c)
	if c.V().Between(V10_1_0_104, V10_1_0_108) {
		c.R.Bool()
	}
	n := c.R.Count16(4)
	m.Targets = make([]Ptr, n)
	for i := range m.Targets {
		m.Targets[i] = c.R.Ptr()
		if m.Targets[i].Valid() {
			c.State.AddBoneLeaf(m.Targets[i].Index())
		}
	}
	return nil
}

// ControllerManager is NiControllerManager.
type ControllerManager struct {
	TimeController
	Cumulative bool
	Sequences  []Ref
	Palette    Ref
}

func (m *ControllerManager) decode(c *DecodeContext) error {
	m.decodeController(c)
	m.Cumulative = c.R.Bool()
	m.Sequences = c.R.Refs()
	m.Palette = c.R.Ref()
	return nil
}

func (m *ControllerManager) appendRefs(dst []Ref) []Ref {
	dst = m.TimeController.appendRefs(dst)
	dst = append(dst, m.Sequences...)
	return append(dst, m.Palette)
}

// ControlledBlock binds one interpolator to a named target inside a
// sequence.
type ControlledBlock struct {
	Interpolator   Ref
	Controller     Ref
	Priority       uint8
	NodeName       string
	PropertyType   string
	ControllerType string
	ControllerID   string
	InterpolatorID string

	// Palette form (10.2.0.0 through 20.1.0.0)
	Palette     Ref
	NameOffsets [5]uint32
}

// ControllerSequence is NiControllerSequence (10.1.0.106+).
type ControllerSequence struct {
	Base
	Name           string
	Blocks         []ControlledBlock
	Weight         float32
	TextKeys       Ref
	CycleType      uint32
	Frequency      float32
	Start          float32
	Stop           float32
	Manager        Ptr
	AccumRootName  string
	Palette        Ref // 10.1.0.113 through 20.1.0.0
	AnimNoteArrays []Ref
}

func (s *ControllerSequence) decode(c *DecodeContext) error {
	r := c.R
	v := c.V()
	if v.Before(V10_1_0_106) {
		return unsupported("NiControllerSequence before 10.1.0.106 (file is %s)", v.Version)
	}
	s.Name = r.String()
	n := r.Count(8)
	r.U32() // array grow by
	s.Blocks = make([]ControlledBlock, n)
	for i := range s.Blocks {
		b := &s.Blocks[i]
		b.Interpolator = r.Ref()
		b.Controller = r.Ref()
		if v.Between(V10_1_0_104, V10_1_0_110) {
			r.Ref() // blend interpolator
			r.U16() // blend index
		}
		if v.BS > 0 {
			b.Priority = r.U8()
		}
		b.Palette = None
		switch {
		case v.AtLeast(V20_1_0_1):
			b.NodeName = r.String()
			b.PropertyType = r.String()
			b.ControllerType = r.String()
			b.ControllerID = r.String()
			b.InterpolatorID = r.String()
		case v.AtLeast(V10_2_0_0):
			b.Palette = r.Ref()
			for j := range b.NameOffsets {
				b.NameOffsets[j] = r.U32()
			}
		default:
			b.NodeName = r.String()
			b.PropertyType = r.String()
			b.ControllerType = r.String()
			b.ControllerID = r.String()
			b.InterpolatorID = r.String()
		}
	}
	s.Weight = r.F32()
	s.TextKeys = r.Ref()
	s.CycleType = r.U32()
	s.Frequency = r.F32()
	if v.AtMost(V10_4_0_1) {
		r.F32() // phase
	}
	s.Start = r.F32()
	s.Stop = r.F32()
	if v.Version == V10_1_0_106 {
		r.Bool() // play backwards
	}
	s.Manager = r.Ptr()
	s.AccumRootName = r.String()
	s.Palette = None
	if v.AtLeast(V10_1_0_113) && v.Before(V20_1_0_1) {
		s.Palette = r.Ref()
	}
	switch {
	case v.BSAtLeast(24) && v.BS <= 28:
		s.AnimNoteArrays = []Ref{r.Ref()}
	case v.BSAbove(28):
		n := r.Count16(4)
		s.AnimNoteArrays = make([]Ref, n)
		for i := range s.AnimNoteArrays {
			s.AnimNoteArrays[i] = r.Ref()
		}
	}
	c.State.addSequence(c.Index)
	return nil
}

func (s *ControllerSequence) appendRefs(dst []Ref) []Ref {
	for _, b := range s.Blocks {
		dst = append(dst, b.Interpolator, b.Controller, b.Palette)
	}
	dst = append(dst, s.TextKeys, s.Palette)
	return append(dst, s.AnimNoteArrays...)
}

// StringPalette is NiStringPalette: NUL separated names addressed by byte
// offset.
type StringPalette struct {
	Base
	Palette []byte
}

func (p *StringPalette) decode(c *DecodeContext) error {
	p.Palette = c.R.Bytes(c.R.Count(1))
	c.R.U32() // length, repeated
	return nil
}

// At returns the NUL terminated string at offset off.
func (p *StringPalette) At(off uint32) string {
	if off == 0xFFFFFFFF || int(off) >= len(p.Palette) {
		return ""
	}
	b := p.Palette[off:]
	for i, ch := range b {
		if ch == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// PaletteObject is one name to object entry of the default palette.
type PaletteObject struct {
	Name   string
	Object Ptr
}

// AVObjectPalette is NiDefaultAVObjectPalette.
type AVObjectPalette struct {
	Base
	Scene   Ptr
	Objects []PaletteObject
}

func (p *AVObjectPalette) decode(c *DecodeContext) error {
	r := c.R
	p.Scene = r.Ptr()
	n := r.Count(8)
	p.Objects = make([]PaletteObject, n)
	for i := range p.Objects {
		p.Objects[i] = PaletteObject{Name: r.SizedString(), Object: r.Ptr()}
	}
	return nil
}
