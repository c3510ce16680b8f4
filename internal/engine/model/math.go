package model

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func emptyBounds() Bounds {
	inf := float32(gomath.Inf(1))
	return Bounds{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// Empty reports whether no point was added.
func (b Bounds) Empty() bool { return b.Min[0] > b.Max[0] }

// Center returns the box center.
func (b Bounds) Center() mgl32.Vec3 { return b.Min.Add(b.Max).Mul(0.5) }

// Size returns the box extents.
func (b Bounds) Size() mgl32.Vec3 { return b.Max.Sub(b.Min) }

func (b *Bounds) extend(p mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
}

// normalize returns a unit vector in the same direction as v, or v itself
// when it is too short to normalize.
func normalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() < 1e-6 {
		return v
	}
	return v.Normalize()
}
