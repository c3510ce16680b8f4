package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// ConstraintKind names a constraint type.
type ConstraintKind int

// Constraint kinds.
const (
	ConstraintBallAndSocket ConstraintKind = iota
	ConstraintStiffSpring
	ConstraintHinge
	ConstraintLimitedHinge
	ConstraintRagdoll
)

var constraintNames = [...]string{"ballandsocket", "stiffspring", "hinge", "limitedhinge", "ragdoll"}

func (k ConstraintKind) String() string {
	if int(k) < len(constraintNames) {
		return constraintNames[k]
	}
	return fmt.Sprintf("constraint(%d)", int(k))
}

// Constraint joins built bodies. Pivots and lengths are in NIF units and
// relative to each body.
type Constraint struct {
	Kind   ConstraintKind
	Record int
	Bodies []*Body

	PivotA, PivotB mgl32.Vec3
	AxisA, AxisB   mgl32.Vec3

	MinAngle, MaxAngle float32
	Length             float32
}

var constraintKinds = map[nif.Kind]ConstraintKind{
	nif.KindBhkBallAndSocketConstraint: ConstraintBallAndSocket,
	nif.KindBhkStiffSpringConstraint:   ConstraintStiffSpring,
	nif.KindBhkHingeConstraint:         ConstraintHinge,
	nif.KindBhkLimitedHingeConstraint:  ConstraintLimitedHinge,
	nif.KindBhkRagdollConstraint:       ConstraintRagdoll,
}

// link resolves the deferred constraints against the built bodies.
func (b *builder) link() error {
	for _, ref := range b.deferred {
		c, err := nif.Get[*nif.Constraint](b.f, ref)
		if err != nil {
			return err
		}
		kind, ok := constraintKinds[c.Kind()]
		if !ok {
			return fmt.Errorf("%w: constraint %s", nif.ErrUnsupportedFeature, c.Kind())
		}
		out := &Constraint{
			Kind:     kind,
			Record:   ref.Index(),
			PivotA:   scaled(c.PivotA),
			PivotB:   scaled(c.PivotB),
			AxisA:    c.AxisA.Vec3(),
			AxisB:    c.AxisB.Vec3(),
			MinAngle: c.MinAngle,
			MaxAngle: c.MaxAngle,
			Length:   c.Length * HavokScale,
		}
		for _, e := range c.Entities {
			i, ok := b.bodies[e.Index()]
			if !ok {
				return fmt.Errorf("%w: constraint %d entity %d", ErrUnresolvedConstraint, ref.Index(), e)
			}
			out.Bodies = append(out.Bodies, b.scene.Bodies[i])
		}
		b.scene.Constraints = append(b.scene.Constraints, out)
	}
	return nil
}
