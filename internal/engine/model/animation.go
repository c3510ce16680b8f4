package model

import (
	gomath "math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	nmath "github.com/dankdonk/openmw-sub003/pkg/math"
	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// segment locates t among keys sorted by time. It returns the key index at
// or before t and the normalized position toward the next key; edge is true
// when t lies outside the key range and keys[i] applies unchanged.
func segment[T any](keys []nif.Key[T], t float32) (i int, u float32, edge bool) {
	n := len(keys)
	if t <= keys[0].Time {
		return 0, 0, true
	}
	if t >= keys[n-1].Time {
		return n - 1, 0, true
	}
	j := sort.Search(n, func(k int) bool { return keys[k].Time > t })
	i = j - 1
	span := keys[j].Time - keys[i].Time
	if span <= 0 {
		return i, 0, true
	}
	return i, (t - keys[i].Time) / span, false
}

// neighbours returns the values around key k, repeating the edge key.
func neighbours[T any](keys []nif.Key[T], k int) (prev, next T) {
	prev, next = keys[k].Value, keys[k].Value
	if k > 0 {
		prev = keys[k-1].Value
	}
	if k+1 < len(keys) {
		next = keys[k+1].Value
	}
	return prev, next
}

// EvalFloat samples a float key group at t.
func EvalFloat(g nif.KeyGroup[float32], t float32) (float32, bool) {
	keys := g.Keys
	if len(keys) == 0 {
		return 0, false
	}
	i, u, edge := segment(keys, t)
	if edge || g.Type == nif.KeyConstant {
		return keys[i].Value, true
	}
	a, b := keys[i], keys[i+1]
	switch g.Type {
	case nif.KeyQuadratic:
		return nmath.Hermite(a.Value, a.Forward, b.Value, b.Backward, u), true
	case nif.KeyTBC:
		prev, next := neighbours(keys, i)
		_, out := nmath.TCBTangents(prev, a.Value, next, a.Tension, a.Continuity, a.Bias)
		prev, next = neighbours(keys, i+1)
		in, _ := nmath.TCBTangents(prev, b.Value, next, b.Tension, b.Continuity, b.Bias)
		return nmath.Hermite(a.Value, out, b.Value, in, u), true
	default:
		return nmath.Lerp(a.Value, b.Value, u), true
	}
}

// EvalVec3 samples a vector key group at t.
func EvalVec3(g nif.KeyGroup[mgl32.Vec3], t float32) (mgl32.Vec3, bool) {
	keys := g.Keys
	if len(keys) == 0 {
		return mgl32.Vec3{}, false
	}
	i, u, edge := segment(keys, t)
	if edge || g.Type == nif.KeyConstant {
		return keys[i].Value, true
	}
	a, b := keys[i], keys[i+1]
	switch g.Type {
	case nif.KeyQuadratic:
		return nmath.HermiteVec3(a.Value, a.Forward, b.Value, b.Backward, u), true
	case nif.KeyTBC:
		prev, next := neighbours(keys, i)
		_, out := nmath.TCBTangentsVec3(prev, a.Value, next, a.Tension, a.Continuity, a.Bias)
		prev, next = neighbours(keys, i+1)
		in, _ := nmath.TCBTangentsVec3(prev, b.Value, next, b.Tension, b.Continuity, b.Bias)
		return nmath.HermiteVec3(a.Value, out, b.Value, in, u), true
	default:
		return nmath.LerpVec3(a.Value, b.Value, u), true
	}
}

// EvalQuat samples quaternion keys at t. Quadratic and TBC rotations are
// slerped between keys.
func EvalQuat(keys []nif.Key[mgl32.Quat], typ nif.KeyType, t float32) (mgl32.Quat, bool) {
	if len(keys) == 0 {
		return mgl32.QuatIdent(), false
	}
	i, u, edge := segment(keys, t)
	if edge || typ == nif.KeyConstant {
		return keys[i].Value, true
	}
	return nmath.Slerp(keys[i].Value, keys[i+1].Value, u), true
}

// EvalVisible samples visibility keys at t. Visibility steps.
func EvalVisible(keys []nif.Key[uint8], t float32) (bool, bool) {
	if len(keys) == 0 {
		return true, false
	}
	i, _, _ := segment(keys, t)
	return keys[i].Value != 0, true
}

// Pose is a sampled node transform. Components whose Has flag is false are
// left to the bind pose.
type Pose struct {
	Translation    mgl32.Vec3
	Rotation       mgl32.Quat
	Scale          float32
	HasTranslation bool
	HasRotation    bool
	HasScale       bool
}

// Apply overrides the animated components of bind.
func (p Pose) Apply(bind nmath.Transform) nmath.Transform {
	out := bind
	if p.HasTranslation {
		out.Translation = p.Translation
	}
	if p.HasRotation {
		out.Rotation = p.Rotation.Normalize().Mat4().Mat3()
	}
	if p.HasScale {
		out.Scale = p.Scale
	}
	return out
}

// TransformTrack animates one node's transform.
type TransformTrack struct {
	Target string
	Node   int // target record, -1 when bound by name only
	Data   *nif.KeyframeData
	// Default pose from the interpolator, used for components without keys.
	Default Pose
}

// Evaluate samples the track at t.
func (tr *TransformTrack) Evaluate(t float32) Pose {
	p := tr.Default
	d := tr.Data
	if d == nil {
		return p
	}
	if v, ok := EvalVec3(d.Translations, t); ok {
		p.Translation, p.HasTranslation = v, true
	}
	if d.RotationType == nif.KeyXYZ {
		var angles [3]float32
		set := false
		for axis := range d.XYZ {
			if v, ok := EvalFloat(d.XYZ[axis], t); ok {
				angles[axis] = v
				set = true
			}
		}
		if set {
			p.Rotation = mgl32.QuatRotate(angles[2], mgl32.Vec3{0, 0, 1}).
				Mul(mgl32.QuatRotate(angles[1], mgl32.Vec3{0, 1, 0})).
				Mul(mgl32.QuatRotate(angles[0], mgl32.Vec3{1, 0, 0}))
			p.HasRotation = true
		}
	} else if q, ok := EvalQuat(d.Rotations, d.RotationType, t); ok {
		p.Rotation, p.HasRotation = q, true
	}
	if v, ok := EvalFloat(d.Scales, t); ok {
		p.Scale, p.HasScale = v, true
	}
	return p
}

// FloatKind names what a float track drives.
type FloatKind int

// Float track kinds.
const (
	FloatAlpha FloatKind = iota
	FloatOther
)

// FloatTrack animates a scalar such as material alpha.
type FloatTrack struct {
	Target string
	Kind   FloatKind
	Keys   nif.KeyGroup[float32]
}

// Evaluate samples the track at t.
func (tr *FloatTrack) Evaluate(t float32) (float32, bool) { return EvalFloat(tr.Keys, t) }

// VisibilityTrack toggles a node.
type VisibilityTrack struct {
	Target string
	Keys   []nif.Key[uint8]
}

// Evaluate samples the track at t.
func (tr *VisibilityTrack) Evaluate(t float32) bool {
	v, _ := EvalVisible(tr.Keys, t)
	return v
}

// MorphTrack weights one morph target of a geometry.
type MorphTrack struct {
	Target   string // geometry name
	Geometry int
	Morph    int
	Name     string
	Keys     nif.KeyGroup[float32]
}

// Evaluate samples the morph weight at t.
func (tr *MorphTrack) Evaluate(t float32) float32 {
	v, _ := EvalFloat(tr.Keys, t)
	return v
}

// unset marks interpolator pose components without a value.
const unset = -gomath.MaxFloat32

func interpolatorPose(ti *nif.TransformInterpolator) Pose {
	var p Pose
	if ti.Translation[0] != unset {
		p.Translation, p.HasTranslation = ti.Translation, true
	}
	if ti.Rotation.W != unset {
		p.Rotation, p.HasRotation = ti.Rotation, true
	}
	if ti.Scale != unset {
		p.Scale, p.HasScale = ti.Scale, true
	}
	return p
}
