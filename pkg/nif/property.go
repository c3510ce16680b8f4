package nif

import "github.com/go-gl/mathgl/mgl32"

// MaterialProperty is NiMaterialProperty.
type MaterialProperty struct {
	ObjectNET
	Flags      uint16 // 10.0.1.2 and earlier
	Ambient    mgl32.Vec3
	Diffuse    mgl32.Vec3
	Specular   mgl32.Vec3
	Emissive   mgl32.Vec3
	Glossiness float32
	Alpha      float32
	EmitMult   float32 // bs > 21
}

func (p *MaterialProperty) decode(c *DecodeContext) error {
	r := c.R
	v := c.V()
	p.decodeNET(c)
	if v.AtMost(V10_0_1_2) {
		p.Flags = r.U16()
	}
	// Fallout 3 drops the ambient and diffuse colours.
	fo3 := v.Version == V20_2_0_7 && v.UserAtLeast(11) && v.BSAbove(21)
	p.Ambient = mgl32.Vec3{1, 1, 1}
	p.Diffuse = mgl32.Vec3{1, 1, 1}
	if !fo3 {
		p.Ambient = r.Vec3()
		p.Diffuse = r.Vec3()
	}
	p.Specular = r.Vec3()
	p.Emissive = r.Vec3()
	p.Glossiness = r.F32()
	p.Alpha = r.F32()
	p.EmitMult = 1
	if fo3 {
		p.EmitMult = r.F32()
	}
	return nil
}

// TextureTransform is the optional per-texture UV transform (10.1.0.0+).
type TextureTransform struct {
	Translation mgl32.Vec2
	Scale       mgl32.Vec2
	Rotation    float32
	Method      uint32
	Center      mgl32.Vec2
}

// TexDesc describes one texture slot.
type TexDesc struct {
	Source    Ref
	Clamp     uint32 // packed into Flags from 20.1.0.3
	Filter    uint32
	Flags     uint16 // 20.1.0.3+
	UVSet     uint32
	Transform *TextureTransform
}

func readTexDesc(r *Reader) TexDesc {
	v := r.Version()
	t := TexDesc{Source: r.Ref()}
	if v.AtMost(V20_0_0_5) {
		t.Clamp = r.U32()
		t.Filter = r.U32()
	}
	if v.AtLeast(V20_1_0_3) {
		t.Flags = r.U16()
		t.Clamp = uint32(t.Flags>>12) & 0xF
		t.Filter = uint32(t.Flags>>8) & 0xF
		t.UVSet = uint32(t.Flags) & 0xFF
	}
	if v.AtMost(V10_4_0_1) {
		t.UVSet = r.U32()
	}
	if v.AtMost(V4_1_0_12) {
		r.I16() // PS2 L
		r.I16() // PS2 K
		r.U16()
	}
	if v.AtLeast(V10_1_0_0) && r.Bool() {
		t.Transform = &TextureTransform{
			Translation: r.Vec2(),
			Scale:       r.Vec2(),
			Rotation:    r.F32(),
			Method:      r.U32(),
			Center:      r.Vec2(),
		}
	}
	return t
}

// Texture slots of NiTexturingProperty.
const (
	TexBase = iota
	TexDark
	TexDetail
	TexGloss
	TexGlow
	TexBump
	TexNormal
	TexParallax
	TexDecal0
	TexDecal1
	TexDecal2
	TexDecal3
	NumTexSlots
)

// ShaderTexture is an extra shader map slot (10.0.1.0+).
type ShaderTexture struct {
	Desc  *TexDesc
	MapID uint32
}

// TexturingProperty is NiTexturingProperty.
type TexturingProperty struct {
	ObjectNET
	Flags      uint16
	ApplyMode  uint32
	Count      uint32
	Slots      [NumTexSlots]*TexDesc
	LumaScale  float32
	LumaOffset float32
	BumpMatrix mgl32.Vec4
	Parallax   float32
	Shaders    []ShaderTexture
}

func (p *TexturingProperty) decode(c *DecodeContext) error {
	r := c.R
	v := c.V()
	p.decodeNET(c)
	if v.AtMost(V10_0_1_2) || v.AtLeast(V20_1_0_2) {
		p.Flags = r.U16()
	}
	if v.Between(V3_3_0_13, V20_1_0_1) {
		p.ApplyMode = r.U32()
	}
	p.Count = r.U32()
	slot := func(i int) {
		if r.Bool() {
			d := readTexDesc(r)
			p.Slots[i] = &d
		}
	}
	for i := TexBase; i <= TexBump; i++ {
		slot(i)
		if i == TexBump && p.Slots[i] != nil {
			p.LumaScale = r.F32()
			p.LumaOffset = r.F32()
			p.BumpMatrix = r.Vec4()
		}
	}
	// Decal slots start later once normal and parallax maps exist.
	decalBase := uint32(6)
	if v.AtLeast(V20_2_0_5) {
		slot(TexNormal)
		slot(TexParallax)
		if p.Slots[TexParallax] != nil {
			p.Parallax = r.F32()
		}
		decalBase = 8
	}
	for i := 0; i < 4; i++ {
		if p.Count > decalBase+uint32(i) {
			slot(TexDecal0 + i)
		}
	}
	if v.AtLeast(V10_0_1_0) {
		n := r.Count(4)
		p.Shaders = make([]ShaderTexture, n)
		for i := range p.Shaders {
			if r.Bool() {
				d := readTexDesc(r)
				p.Shaders[i] = ShaderTexture{Desc: &d, MapID: r.U32()}
			}
		}
	}
	return nil
}

func (p *TexturingProperty) appendRefs(dst []Ref) []Ref {
	dst = p.ObjectNET.appendRefs(dst)
	for _, s := range p.Slots {
		if s != nil {
			dst = append(dst, s.Source)
		}
	}
	for _, s := range p.Shaders {
		if s.Desc != nil {
			dst = append(dst, s.Desc.Source)
		}
	}
	return dst
}

// SourceTexture is NiSourceTexture.
type SourceTexture struct {
	ObjectNET
	External    bool
	FileName    string
	PixelData   Ref
	PixelLayout uint32
	Mipmaps     uint32
	AlphaFormat uint32
	Static      bool
}

func (t *SourceTexture) decode(c *DecodeContext) error {
	r := c.R
	v := c.V()
	t.decodeNET(c)
	t.External = r.U8() != 0
	t.PixelData = None
	if t.External {
		t.FileName = r.String()
		if v.AtLeast(V10_1_0_0) {
			r.Ref()
		}
	} else {
		if v.AtMost(V10_0_1_0) {
			r.U8()
		}
		if v.AtLeast(V10_1_0_0) {
			t.FileName = r.String()
		}
		t.PixelData = r.Ref()
	}
	t.PixelLayout = r.U32()
	t.Mipmaps = r.U32()
	t.AlphaFormat = r.U32()
	t.Static = r.U8() != 0
	if v.AtLeast(V10_1_0_103) {
		r.Bool()
	}
	if v.AtLeast(V20_2_0_4) {
		r.Bool()
	}
	return nil
}

func (t *SourceTexture) appendRefs(dst []Ref) []Ref {
	dst = t.ObjectNET.appendRefs(dst)
	return append(dst, t.PixelData)
}

// Alpha property flag bits.
const (
	AlphaBlend     uint16 = 0x0001
	AlphaTest      uint16 = 0x0200
	AlphaSrcShift         = 1
	AlphaDstShift         = 5
	AlphaTestShift        = 10
)

// AlphaProperty is NiAlphaProperty.
type AlphaProperty struct {
	ObjectNET
	Flags     uint16
	Threshold uint8
}

func (p *AlphaProperty) decode(c *DecodeContext) error {
	p.decodeNET(c)
	p.Flags = c.R.U16()
	p.Threshold = c.R.U8()
	return nil
}

// VertexColorProperty is NiVertexColorProperty.
type VertexColorProperty struct {
	ObjectNET
	Flags        uint16
	VertexMode   uint32 // 0 ignore, 1 emissive, 2 ambient+diffuse
	LightingMode uint32
}

func (p *VertexColorProperty) decode(c *DecodeContext) error {
	r := c.R
	p.decodeNET(c)
	p.Flags = r.U16()
	if c.V().AtMost(V20_0_0_5) {
		p.VertexMode = r.U32()
		p.LightingMode = r.U32()
	} else {
		p.VertexMode = uint32(p.Flags>>4) & 0x3
		p.LightingMode = uint32(p.Flags>>3) & 0x1
	}
	return nil
}

// ZBufferProperty is NiZBufferProperty.
type ZBufferProperty struct {
	ObjectNET
	Flags    uint16 // bit 0 test, bit 1 write
	Function uint32
}

func (p *ZBufferProperty) decode(c *DecodeContext) error {
	p.decodeNET(c)
	p.Flags = c.R.U16()
	p.Function = 3
	if c.V().Between(V4_1_0_12, V20_0_0_5) {
		p.Function = c.R.U32()
	}
	return nil
}

// FlagsProperty is a property carrying only flags: NiSpecularProperty,
// NiWireframeProperty, NiDitherProperty and NiShadeProperty.
type FlagsProperty struct {
	ObjectNET
	Flags uint16
}

func (p *FlagsProperty) decode(c *DecodeContext) error {
	p.decodeNET(c)
	p.Flags = c.R.U16()
	return nil
}

// Stencil draw modes.
const (
	DrawCCWOrBoth uint32 = 0
	DrawCCW       uint32 = 1
	DrawCW        uint32 = 2
	DrawBoth      uint32 = 3
)

// StencilProperty is NiStencilProperty.
type StencilProperty struct {
	ObjectNET
	Flags    uint16
	Enabled  bool
	Function uint32
	Ref      uint32
	Mask     uint32
	DrawMode uint32
}

func (p *StencilProperty) decode(c *DecodeContext) error {
	r := c.R
	v := c.V()
	p.decodeNET(c)
	if v.AtMost(V10_0_1_2) {
		p.Flags = r.U16()
	}
	if v.AtMost(V20_0_0_5) {
		p.Enabled = r.U8() != 0
		p.Function = r.U32()
		p.Ref = r.U32()
		p.Mask = r.U32()
		r.U32() // fail action
		r.U32() // z fail action
		r.U32() // pass action
		p.DrawMode = r.U32()
		return nil
	}
	p.Flags = r.U16()
	p.Ref = r.U32()
	p.Mask = r.U32()
	p.Enabled = p.Flags&1 != 0
	p.Function = uint32(p.Flags>>10) & 0x7
	p.DrawMode = uint32(p.Flags>>11) & 0x3
	return nil
}
