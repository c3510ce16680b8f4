package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestHermiteEndpoints(t *testing.T) {
	if got := Hermite(1, 5, 3, -2, 0); got != 1 {
		t.Errorf("Hermite(t=0) = %f, want 1", got)
	}
	if got := Hermite(1, 5, 3, -2, 1); got != 3 {
		t.Errorf("Hermite(t=1) = %f, want 3", got)
	}
}

func TestHermiteZeroTangentsMidpoint(t *testing.T) {
	// With zero tangents the curve is a smoothstep: midpoint is the average.
	if got := Hermite(0, 0, 10, 0, 0.5); got != 5 {
		t.Errorf("Hermite midpoint = %f, want 5", got)
	}
}

func TestTCBTangentsCatmullRom(t *testing.T) {
	// Zero tension/continuity/bias is Catmull-Rom: tangent = (next - prev) / 2.
	in, out := TCBTangents(0, 1, 4, 0, 0, 0)
	if in != 2 || out != 2 {
		t.Errorf("TCBTangents = (%f, %f), want (2, 2)", in, out)
	}

	// Full tension flattens the tangents.
	in, out = TCBTangents(0, 1, 4, 1, 0, 0)
	if in != 0 || out != 0 {
		t.Errorf("TCBTangents tension=1 = (%f, %f), want (0, 0)", in, out)
	}
}

func TestSlerp(t *testing.T) {
	q0 := mgl32.QuatIdent()
	q1 := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})

	mid := Slerp(q0, q1, 0.5)
	want := mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 0, 1})
	if !mid.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("Slerp mid: got %v, want %v", mid, want)
	}

	// Opposite-sign quaternion represents the same rotation; slerp must take
	// the short path and return the endpoint.
	end := Slerp(q0, q1.Scale(-1), 1)
	if !end.Mat4().ApproxEqualThreshold(q1.Mat4(), 1e-5) {
		t.Errorf("Slerp short path: got %v", end)
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct{ in, want float32 }{{-1, 0}, {0.25, 0.25}, {3, 1}}
	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
