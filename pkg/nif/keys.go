package nif

import "github.com/go-gl/mathgl/mgl32"

// KeyType selects how keys of a group are interpolated.
type KeyType uint32

// Key interpolation kinds.
const (
	KeyLinear    KeyType = 1
	KeyQuadratic KeyType = 2
	KeyTBC       KeyType = 3
	KeyXYZ       KeyType = 4 // rotations only: three float groups
	KeyConstant  KeyType = 5
)

func (t KeyType) String() string {
	switch t {
	case KeyLinear:
		return "linear"
	case KeyQuadratic:
		return "quadratic"
	case KeyTBC:
		return "tbc"
	case KeyXYZ:
		return "xyz"
	case KeyConstant:
		return "constant"
	default:
		return "unknown"
	}
}

// Key is one keyframe. Forward and Backward are set for quadratic keys;
// Tension, Bias and Continuity for TBC keys.
type Key[T any] struct {
	Time       float32
	Value      T
	Forward    T
	Backward   T
	Tension    float32
	Bias       float32
	Continuity float32
}

// KeyGroup is a typed key list sharing one interpolation kind.
type KeyGroup[T any] struct {
	Type KeyType
	Keys []Key[T]
}

// Len returns the number of keys.
func (g *KeyGroup[T]) Len() int { return len(g.Keys) }

// readKeyGroup reads a count, an interpolation kind and the keys. Morph
// targets store the kind even for empty groups.
func readKeyGroup[T any](r *Reader, size int, read func() T, typeAlways bool) KeyGroup[T] {
	var g KeyGroup[T]
	n := r.Count(4 + size)
	if n == 0 && !typeAlways {
		return g
	}
	g.Type = KeyType(r.U32())
	if n == 0 {
		return g
	}
	g.Keys = make([]Key[T], n)
	for i := range g.Keys {
		k := &g.Keys[i]
		k.Time = r.F32()
		k.Value = read()
		switch g.Type {
		case KeyQuadratic:
			k.Forward = read()
			k.Backward = read()
		case KeyTBC:
			k.Tension = r.F32()
			k.Bias = r.F32()
			k.Continuity = r.F32()
		}
	}
	return g
}

func readFloatKeys(r *Reader) KeyGroup[float32]   { return readKeyGroup(r, 4, r.F32, false) }
func readVec3Keys(r *Reader) KeyGroup[mgl32.Vec3] { return readKeyGroup(r, 12, r.Vec3, false) }
func readVec4Keys(r *Reader) KeyGroup[mgl32.Vec4] { return readKeyGroup(r, 16, r.Vec4, false) }
func readByteKeys(r *Reader) KeyGroup[uint8]      { return readKeyGroup(r, 1, r.U8, false) }

// KeyframeData is NiKeyframeData or NiTransformData.
type KeyframeData struct {
	Base
	RotationType KeyType
	Rotations    []Key[mgl32.Quat]    // quaternion keys unless RotationType is KeyXYZ
	XYZ          [3]KeyGroup[float32] // euler angle keys for KeyXYZ
	Translations KeyGroup[mgl32.Vec3]
	Scales       KeyGroup[float32]
}

func (d *KeyframeData) decode(c *DecodeContext) error {
	r := c.R
	n := int(r.U32())
	if n > 0 {
		d.RotationType = KeyType(r.U32())
		if d.RotationType == KeyXYZ {
			if c.V().AtMost(V10_1_0_0) {
				r.F32()
			}
			for i := range d.XYZ {
				d.XYZ[i] = readFloatKeys(r)
			}
		} else if r.fits(n, 20) {
			d.Rotations = make([]Key[mgl32.Quat], n)
			for i := range d.Rotations {
				k := &d.Rotations[i]
				k.Time = r.F32()
				k.Value = r.Quat()
				if d.RotationType == KeyTBC {
					k.Tension = r.F32()
					k.Bias = r.F32()
					k.Continuity = r.F32()
				}
			}
		}
	}
	d.Translations = readVec3Keys(r)
	d.Scales = readFloatKeys(r)
	return nil
}

// FloatData is NiFloatData.
type FloatData struct {
	Base
	Keys KeyGroup[float32]
}

func (d *FloatData) decode(c *DecodeContext) error {
	d.Keys = readFloatKeys(c.R)
	return nil
}

// PosData is NiPosData.
type PosData struct {
	Base
	Keys KeyGroup[mgl32.Vec3]
}

func (d *PosData) decode(c *DecodeContext) error {
	d.Keys = readVec3Keys(c.R)
	return nil
}

// ColorData is NiColorData.
type ColorData struct {
	Base
	Keys KeyGroup[mgl32.Vec4]
}

func (d *ColorData) decode(c *DecodeContext) error {
	d.Keys = readVec4Keys(c.R)
	return nil
}

// BoolData is NiBoolData.
type BoolData struct {
	Base
	Keys KeyGroup[uint8]
}

func (d *BoolData) decode(c *DecodeContext) error {
	d.Keys = readByteKeys(c.R)
	return nil
}

// VisData is NiVisData: untyped visibility keys.
type VisData struct {
	Base
	Keys []Key[uint8]
}

func (d *VisData) decode(c *DecodeContext) error {
	r := c.R
	n := r.Count(5)
	d.Keys = make([]Key[uint8], n)
	for i := range d.Keys {
		d.Keys[i].Time = r.F32()
		d.Keys[i].Value = r.U8()
	}
	return nil
}

// Morph is one morph target.
type Morph struct {
	Name         string // 10.1.0.106+
	Keys         KeyGroup[float32]
	Interpolator Ref
	Vectors      []mgl32.Vec3
}

// MorphData is NiMorphData. The first morph is the base shape.
type MorphData struct {
	Base
	NumVertices int
	Relative    bool
	Morphs      []Morph
}

func (d *MorphData) decode(c *DecodeContext) error {
	r := c.R
	v := c.V()
	n := r.Count(4)
	d.NumVertices = int(r.U32())
	d.Relative = r.U8() != 0
	d.Morphs = make([]Morph, n)
	for i := range d.Morphs {
		m := &d.Morphs[i]
		if v.AtLeast(V10_1_0_106) {
			m.Name = r.String()
		}
		if v.AtMost(V10_1_0_0) {
			m.Keys = readKeyGroup(r, 4, r.F32, true)
		}
		m.Interpolator = None
		if v.Between(V10_1_0_104, V20_1_0_2) && v.BS < 10 {
			m.Interpolator = r.Ref()
		}
		if v.Between(V20_0_0_4, V20_0_0_5) && v.BS > 0 {
			r.U32()
		}
		m.Vectors = r.Vec3s(d.NumVertices)
		if r.Err() != nil {
			return nil
		}
	}
	return nil
}

func (d *MorphData) appendRefs(dst []Ref) []Ref {
	for _, m := range d.Morphs {
		dst = append(dst, m.Interpolator)
	}
	return dst
}

// TransformInterpolator is NiTransformInterpolator.
type TransformInterpolator struct {
	Base
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       float32
	Data        Ref
}

func (t *TransformInterpolator) decode(c *DecodeContext) error {
	r := c.R
	t.Translation = r.Vec3()
	t.Rotation = r.Quat()
	t.Scale = r.F32()
	if c.V().Between(V10_1_0_104, V10_1_0_108) {
		r.Skip(3)
	}
	t.Data = r.Ref()
	return nil
}

func (t *TransformInterpolator) appendRefs(dst []Ref) []Ref { return append(dst, t.Data) }

// FloatInterpolator is NiFloatInterpolator.
type FloatInterpolator struct {
	Base
	Value float32
	Data  Ref
}

func (f *FloatInterpolator) decode(c *DecodeContext) error {
	f.Value = c.R.F32()
	f.Data = c.R.Ref()
	return nil
}

func (f *FloatInterpolator) appendRefs(dst []Ref) []Ref { return append(dst, f.Data) }

// BoolInterpolator is NiBoolInterpolator.
type BoolInterpolator struct {
	Base
	Value bool
	Data  Ref
}

func (b *BoolInterpolator) decode(c *DecodeContext) error {
	b.Value = c.R.Bool()
	b.Data = c.R.Ref()
	return nil
}

func (b *BoolInterpolator) appendRefs(dst []Ref) []Ref { return append(dst, b.Data) }

// Point3Interpolator is NiPoint3Interpolator.
type Point3Interpolator struct {
	Base
	Value mgl32.Vec3
	Data  Ref
}

func (p *Point3Interpolator) decode(c *DecodeContext) error {
	p.Value = c.R.Vec3()
	p.Data = c.R.Ref()
	return nil
}

func (p *Point3Interpolator) appendRefs(dst []Ref) []Ref { return append(dst, p.Data) }
