package model

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// Texture is one bound texture slot.
type Texture struct {
	File   string // empty for internal or unset slots
	UVSet  uint32
	Clamp  uint32
	Filter uint32
}

// Material is the render state resolved from a property list.
type Material struct {
	Name       string
	Ambient    mgl32.Vec3
	Diffuse    mgl32.Vec3
	Specular   mgl32.Vec3
	Emissive   mgl32.Vec3
	Glossiness float32
	Alpha      float32
	EmitMult   float32

	ApplyMode uint32
	Textures  [nif.NumTexSlots]Texture

	AlphaBlend bool
	SrcBlend   uint8
	DstBlend   uint8
	AlphaTest  bool
	AlphaFunc  uint8
	AlphaRef   uint8

	VertexMode   uint32 // 0 ignore, 1 emissive, 2 ambient and diffuse
	LightingMode uint32

	DepthTest  bool
	DepthWrite bool
	DepthFunc  uint32

	SpecularEnabled bool
	Wireframe       bool
	Dither          bool
	Smooth          bool
	TwoSided        bool
}

// DefaultMaterial returns the state used when no property overrides it.
func DefaultMaterial() Material {
	return Material{
		Ambient:      mgl32.Vec3{1, 1, 1},
		Diffuse:      mgl32.Vec3{1, 1, 1},
		Specular:     mgl32.Vec3{0, 0, 0},
		Glossiness:   10,
		Alpha:        1,
		EmitMult:     1,
		ApplyMode:    2,
		VertexMode:   2,
		LightingMode: 1,
		DepthTest:    true,
		DepthWrite:   true,
		DepthFunc:    3,
		Smooth:       true,
	}
}

// Texture returns the file bound to the base slot.
func (m *Material) Texture() string { return m.Textures[nif.TexBase].File }

// resolveMaterial visits props in order; later properties override earlier
// ones of the same kind.
func resolveMaterial(f *nif.File, props []nif.Ref) (Material, error) {
	m := DefaultMaterial()
	for _, ref := range props {
		if !ref.Valid() {
			continue
		}
		if err := m.apply(f, f.Record(ref)); err != nil {
			return m, err
		}
	}
	return m, nil
}

func (m *Material) apply(f *nif.File, rec nif.Record) error {
	switch p := rec.(type) {
	case *nif.MaterialProperty:
		m.Name = p.Name
		m.Ambient = p.Ambient
		m.Diffuse = p.Diffuse
		m.Specular = p.Specular
		m.Emissive = p.Emissive
		m.Glossiness = p.Glossiness
		m.Alpha = p.Alpha
		m.EmitMult = p.EmitMult
	case *nif.TexturingProperty:
		m.ApplyMode = p.ApplyMode
		for slot, desc := range p.Slots {
			if desc == nil {
				m.Textures[slot] = Texture{}
				continue
			}
			tex := Texture{UVSet: desc.UVSet, Clamp: desc.Clamp, Filter: desc.Filter}
			src, err := nif.Get[*nif.SourceTexture](f, desc.Source)
			if err != nil {
				return fmt.Errorf("texture slot %d: %w", slot, err)
			}
			if src != nil && src.External {
				tex.File = src.FileName
			}
			m.Textures[slot] = tex
		}
	case *nif.AlphaProperty:
		m.AlphaBlend = p.Flags&nif.AlphaBlend != 0
		m.SrcBlend = uint8(p.Flags>>nif.AlphaSrcShift) & 0xF
		m.DstBlend = uint8(p.Flags>>nif.AlphaDstShift) & 0xF
		m.AlphaTest = p.Flags&nif.AlphaTest != 0
		m.AlphaFunc = uint8(p.Flags>>nif.AlphaTestShift) & 0x7
		m.AlphaRef = p.Threshold
	case *nif.VertexColorProperty:
		m.VertexMode = p.VertexMode
		m.LightingMode = p.LightingMode
	case *nif.ZBufferProperty:
		m.DepthTest = p.Flags&1 != 0
		m.DepthWrite = p.Flags&2 != 0
		m.DepthFunc = p.Function
	case *nif.FlagsProperty:
		on := p.Flags&1 != 0
		switch p.Kind() {
		case nif.KindNiSpecularProperty:
			m.SpecularEnabled = on
		case nif.KindNiWireframeProperty:
			m.Wireframe = on
		case nif.KindNiDitherProperty:
			m.Dither = on
		case nif.KindNiShadeProperty:
			m.Smooth = on
		}
	case *nif.StencilProperty:
		m.TwoSided = p.DrawMode == nif.DrawBoth
	}
	return nil
}
