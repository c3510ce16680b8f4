package model

import (
	"fmt"

	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// DefaultClip names the clip gathered from controllers attached directly to
// the scene graph.
const DefaultClip = "default"

// Clip is one named animation.
type Clip struct {
	Name       string
	Start      float32
	Stop       float32
	Frequency  float32
	CycleType  uint32
	TextKeys   []nif.TextKey
	Transforms []*TransformTrack
	Floats     []*FloatTrack
	Visibility []*VisibilityTrack
	Morphs     []*MorphTrack
}

// Duration returns Stop - Start.
func (c *Clip) Duration() float32 { return c.Stop - c.Start }

// Track returns the transform track for target.
func (c *Clip) Track(target string) *TransformTrack {
	for _, tr := range c.Transforms {
		if tr.Target == target {
			return tr
		}
	}
	return nil
}

func (c *Clip) empty() bool {
	return len(c.Transforms)+len(c.Floats)+len(c.Visibility)+len(c.Morphs) == 0
}

// BuildClips gathers every animation in f: one clip per controller
// sequence, then the default clip for directly attached controllers.
func BuildClips(f *nif.File) ([]*Clip, error) {
	cb := &clipBuilder{f: f, nodes: make(map[string]int)}
	for i := len(f.Records) - 1; i >= 0; i-- {
		if av, ok := f.Records[i].(nif.AVRecord); ok && av.NET().Name != "" {
			cb.nodes[av.NET().Name] = i
		}
	}

	var clips []*Clip
	for _, rec := range f.Records {
		seq, ok := rec.(*nif.ControllerSequence)
		if !ok {
			continue
		}
		c, err := cb.sequence(seq)
		if err != nil {
			return nil, fmt.Errorf("sequence %q: %w", seq.Name, err)
		}
		clips = append(clips, c)
	}

	def, err := cb.direct()
	if err != nil {
		return nil, err
	}
	if def != nil {
		clips = append(clips, def)
	}
	return clips, nil
}

type clipBuilder struct {
	f     *nif.File
	nodes map[string]int // first node with a name
}

func (cb *clipBuilder) node(name string) int {
	if i, ok := cb.nodes[name]; ok {
		return i
	}
	return -1
}

func (cb *clipBuilder) sequence(seq *nif.ControllerSequence) (*Clip, error) {
	c := &Clip{
		Name:      seq.Name,
		Start:     seq.Start,
		Stop:      seq.Stop,
		Frequency: seq.Frequency,
		CycleType: seq.CycleType,
	}
	tk, err := nif.Get[*nif.TextKeyExtraData](cb.f, seq.TextKeys)
	if err != nil {
		return nil, err
	}
	if tk != nil {
		c.TextKeys = tk.Keys
	}
	for _, blk := range seq.Blocks {
		if blk.Interpolator.Valid() {
			if err := cb.interpolator(c, blk.NodeName, blk.ControllerType, blk.Interpolator); err != nil {
				return nil, err
			}
			continue
		}
		if ctrl, ok := cb.f.Record(blk.Controller).(nif.ControllerRecord); ok {
			if err := cb.controller(c, blk.NodeName, -1, ctrl); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (cb *clipBuilder) interpolator(c *Clip, target, ctrlType string, ref nif.Ref) error {
	switch ip := cb.f.Record(ref).(type) {
	case *nif.TransformInterpolator:
		data, err := nif.Get[*nif.KeyframeData](cb.f, ip.Data)
		if err != nil {
			return err
		}
		c.Transforms = append(c.Transforms, &TransformTrack{
			Target:  target,
			Node:    cb.node(target),
			Data:    data,
			Default: interpolatorPose(ip),
		})
	case *nif.FloatInterpolator:
		keys, err := cb.floatKeys(ip)
		if err != nil {
			return err
		}
		kind := FloatOther
		if ctrlType == "NiAlphaController" {
			kind = FloatAlpha
		}
		c.Floats = append(c.Floats, &FloatTrack{Target: target, Kind: kind, Keys: keys})
	case *nif.BoolInterpolator:
		data, err := nif.Get[*nif.BoolData](cb.f, ip.Data)
		if err != nil {
			return err
		}
		tr := &VisibilityTrack{Target: target}
		if data != nil {
			tr.Keys = data.Keys.Keys
		} else {
			tr.Keys = []nif.Key[uint8]{{Value: boolByte(ip.Value)}}
		}
		c.Visibility = append(c.Visibility, tr)
	}
	return nil
}

func (cb *clipBuilder) floatKeys(ip *nif.FloatInterpolator) (nif.KeyGroup[float32], error) {
	data, err := nif.Get[*nif.FloatData](cb.f, ip.Data)
	if err != nil {
		return nif.KeyGroup[float32]{}, err
	}
	if data != nil {
		return data.Keys, nil
	}
	return nif.KeyGroup[float32]{Type: nif.KeyConstant, Keys: []nif.Key[float32]{{Value: ip.Value}}}, nil
}

// controller adds the tracks of a directly attached controller. node is the
// owning record when known.
func (cb *clipBuilder) controller(c *Clip, target string, node int, ctrl nif.ControllerRecord) error {
	switch k := ctrl.(type) {
	case *nif.KeyframeController:
		if k.Interpolator.Valid() {
			return cb.interpolator(c, target, k.Kind().String(), k.Interpolator)
		}
		data, err := nif.Get[*nif.KeyframeData](cb.f, k.Data)
		if err != nil {
			return err
		}
		if node < 0 {
			node = cb.node(target)
		}
		c.Transforms = append(c.Transforms, &TransformTrack{Target: target, Node: node, Data: data})
	case *nif.FloatController:
		if k.Interpolator.Valid() {
			return cb.interpolator(c, target, k.Kind().String(), k.Interpolator)
		}
		if k.Kind() == nif.KindNiVisController {
			data, err := nif.Get[*nif.VisData](cb.f, k.Data)
			if err != nil || data == nil {
				return err
			}
			c.Visibility = append(c.Visibility, &VisibilityTrack{Target: target, Keys: data.Keys})
			return nil
		}
		data, err := nif.Get[*nif.FloatData](cb.f, k.Data)
		if err != nil || data == nil {
			return err
		}
		kind := FloatOther
		if k.Kind() == nif.KindNiAlphaController {
			kind = FloatAlpha
		}
		c.Floats = append(c.Floats, &FloatTrack{Target: target, Kind: kind, Keys: data.Keys})
	case *nif.GeomMorpherController:
		return cb.morphs(c, target, node, k)
	}
	return nil
}

// morphs adds one track per morph target after the base shape.
func (cb *clipBuilder) morphs(c *Clip, target string, geom int, k *nif.GeomMorpherController) error {
	data, err := nif.Get[*nif.MorphData](cb.f, k.Data)
	if err != nil || data == nil {
		return err
	}
	for i := 1; i < len(data.Morphs); i++ {
		m := data.Morphs[i]
		keys := m.Keys
		if i < len(k.Interpolators) {
			if ip, ok := cb.f.Record(k.Interpolators[i].Interpolator).(*nif.FloatInterpolator); ok {
				if keys, err = cb.floatKeys(ip); err != nil {
					return err
				}
			}
		}
		c.Morphs = append(c.Morphs, &MorphTrack{
			Target:   target,
			Geometry: geom,
			Morph:    i,
			Name:     m.Name,
			Keys:     keys,
		})
	}
	return nil
}

// direct gathers controllers attached to objects and properties. It
// returns nil when there are none.
func (cb *clipBuilder) direct() (*Clip, error) {
	c := &Clip{Name: DefaultClip, Frequency: 1}
	first := true
	for i, rec := range cb.f.Records {
		net, ok := rec.(nif.NETRecord)
		if !ok {
			continue
		}
		target := net.NET().Name
		if _, isAV := rec.(nif.AVRecord); !isAV {
			// Property controllers drive the objects using the property.
			target = cb.propertyOwner(i)
		}
		for _, ctrl := range cb.f.Controllers(net.NET().Controller) {
			switch ctrl.(type) {
			case *nif.ControllerManager, *nif.MultiTargetTransformController:
				continue
			}
			tc := ctrl.AsController()
			if first {
				c.Start, c.Stop = tc.Start, tc.Stop
				first = false
			} else {
				c.Start = min(c.Start, tc.Start)
				c.Stop = max(c.Stop, tc.Stop)
			}
			if err := cb.controller(c, target, i, ctrl); err != nil {
				return nil, fmt.Errorf("controller %d: %w", ctrl.Index(), err)
			}
		}
	}
	if c.empty() {
		return nil, nil
	}
	if len(cb.f.Roots) > 0 {
		c.TextKeys = cb.f.State.TextKeys(cb.f.Roots[0].Index())
	}
	return c, nil
}

// propertyOwner names the first object listing property i.
func (cb *clipBuilder) propertyOwner(i int) string {
	for _, rec := range cb.f.Records {
		av, ok := rec.(nif.AVRecord)
		if !ok {
			continue
		}
		for _, p := range av.AV().Properties {
			if p.Index() == i {
				return av.NET().Name
			}
		}
	}
	return ""
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
