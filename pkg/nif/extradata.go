package nif

import "github.com/go-gl/mathgl/mgl32"

// ExtraData is the shared header of extra data records.
type ExtraData struct {
	Base
	Name string // 10.0.1.0+
	Next Ref    // chain link, 4.2.2.0 and earlier
}

// AsExtraData returns the shared extra data fields.
func (e *ExtraData) AsExtraData() *ExtraData { return e }

func (e *ExtraData) decodeExtra(c *DecodeContext) {
	v := c.V()
	if v.AtLeast(V10_0_1_0) {
		e.Name = c.R.String()
	}
	e.Next = None
	if v.AtMost(V4_2_2_0) {
		e.Next = c.R.Ref()
	}
}

func (e *ExtraData) appendRefs(dst []Ref) []Ref {
	return append(dst, e.Next)
}

// ExtraDataRecord is implemented by every extra data record.
type ExtraDataRecord interface {
	Record
	AsExtraData() *ExtraData
}

// StringExtraData carries a string tag. Strings beginning with "BONE" mark
// their owner as a bone; others may name the skeleton root.
type StringExtraData struct {
	ExtraData
	Value string
}

func (e *StringExtraData) decode(c *DecodeContext) error {
	e.decodeExtra(c)
	if c.V().AtMost(V4_2_2_0) {
		c.R.U32() // bytes remaining
	}
	e.Value = c.R.String()
	return nil
}

// IntegerExtraData is NiIntegerExtraData or BSXFlags.
type IntegerExtraData struct {
	ExtraData
	Value uint32
}

func (e *IntegerExtraData) decode(c *DecodeContext) error {
	e.decodeExtra(c)
	e.Value = c.R.U32()
	return nil
}

// FloatExtraData is NiFloatExtraData.
type FloatExtraData struct {
	ExtraData
	Value float32
}

func (e *FloatExtraData) decode(c *DecodeContext) error {
	e.decodeExtra(c)
	e.Value = c.R.F32()
	return nil
}

// BinaryExtraData is NiBinaryExtraData.
type BinaryExtraData struct {
	ExtraData
	Data []byte
}

func (e *BinaryExtraData) decode(c *DecodeContext) error {
	e.decodeExtra(c)
	e.Data = c.R.Bytes(c.R.Count(1))
	return nil
}

// TextKey is a named point on an animation timeline.
type TextKey struct {
	Time  float32
	Value string
}

// TextKeyExtraData is NiTextKeyExtraData.
type TextKeyExtraData struct {
	ExtraData
	Keys []TextKey
}

func (e *TextKeyExtraData) decode(c *DecodeContext) error {
	r := c.R
	e.decodeExtra(c)
	if c.V().AtMost(V4_2_2_0) {
		r.U32()
	}
	n := r.Count(8)
	e.Keys = make([]TextKey, n)
	for i := range e.Keys {
		e.Keys[i] = TextKey{Time: r.F32(), Value: r.String()}
	}
	return nil
}

// FurniturePosition is one furniture attachment point.
type FurniturePosition struct {
	Offset      mgl32.Vec3
	Orientation uint16
	Ref1, Ref2  uint8
}

// FurnitureMarker is BSFurnitureMarker.
type FurnitureMarker struct {
	ExtraData
	Positions []FurniturePosition
}

func (e *FurnitureMarker) decode(c *DecodeContext) error {
	r := c.R
	e.decodeExtra(c)
	n := r.Count(16)
	e.Positions = make([]FurniturePosition, n)
	for i := range e.Positions {
		e.Positions[i] = FurniturePosition{Offset: r.Vec3(), Orientation: r.U16(), Ref1: r.U8(), Ref2: r.U8()}
	}
	return nil
}

// BSBound is an explicit bounding box.
type BSBound struct {
	ExtraData
	Center     mgl32.Vec3
	Dimensions mgl32.Vec3
}

func (e *BSBound) decode(c *DecodeContext) error {
	e.decodeExtra(c)
	e.Center = c.R.Vec3()
	e.Dimensions = c.R.Vec3()
	return nil
}
