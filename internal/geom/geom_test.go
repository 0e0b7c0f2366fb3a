package geom

import (
	"math"
	"testing"
)

const tol = 1e-9

func vecNear(t *testing.T, got, want Vec3, what string) {
	t.Helper()
	if math.Abs(got.X-want.X) > tol || math.Abs(got.Y-want.Y) > tol || math.Abs(got.Z-want.Z) > tol {
		t.Errorf("%s = %+v, want %+v", what, got, want)
	}
}

func quatNear(t *testing.T, got, want Quat, what string) {
	t.Helper()
	// q and -q are the same rotation.
	if got.Dot(want) < 0 {
		want = want.Neg()
	}
	if math.Abs(got.X-want.X) > tol || math.Abs(got.Y-want.Y) > tol ||
		math.Abs(got.Z-want.Z) > tol || math.Abs(got.W-want.W) > tol {
		t.Errorf("%s = %+v, want %+v", what, got, want)
	}
}

// zRotation returns a rotation of angle radians about the Z axis.
func zRotation(angle float64) Quat {
	return Quat{Z: math.Sin(angle / 2), W: math.Cos(angle / 2)}
}

func TestQuatMulIdentity(t *testing.T) {
	q := zRotation(math.Pi / 3)
	quatNear(t, q.Mul(IdentityQuat()), q, "q*identity")
	quatNear(t, IdentityQuat().Mul(q), q, "identity*q")
}

func TestQuatConjugateInverts(t *testing.T) {
	q := zRotation(0.7)
	quatNear(t, q.Mul(q.Conjugate()), IdentityQuat(), "q*q'")
}

func TestQuatRotate(t *testing.T) {
	// 90 degrees about Z maps +X to +Y.
	q := zRotation(math.Pi / 2)
	vecNear(t, q.Rotate(Vec3{X: 1}), Vec3{Y: 1}, "rotate90z(+x)")

	// 180 degrees about Z maps +X to -X.
	q = zRotation(math.Pi)
	vecNear(t, q.Rotate(Vec3{X: 1}), Vec3{X: -1}, "rotate180z(+x)")
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 2, Y: 0, Z: 0, W: 2}.Normalize()
	if math.Abs(q.Norm()-1) > tol {
		t.Errorf("normalized norm = %f, want 1", q.Norm())
	}
	quatNear(t, Quat{}.Normalize(), IdentityQuat(), "zero quat normalizes to identity")
}

func TestSlerpEndpoints(t *testing.T) {
	a := zRotation(0)
	b := zRotation(math.Pi / 2)
	quatNear(t, a.Slerp(b, 0), a, "slerp t=0")
	quatNear(t, a.Slerp(b, 1), b, "slerp t=1")
}

func TestSlerpHalfway(t *testing.T) {
	a := zRotation(0)
	b := zRotation(math.Pi / 2)
	quatNear(t, a.Slerp(b, 0.5), zRotation(math.Pi/4), "slerp t=0.5")
}

func TestSlerpShortestArc(t *testing.T) {
	// b is presented on the far hemisphere; slerp must still take the short
	// way round.
	a := zRotation(0.1)
	b := zRotation(0.3).Neg()
	quatNear(t, a.Slerp(b, 0.5), zRotation(0.2), "slerp across double cover")
}

func TestTransformApply(t *testing.T) {
	tr := Transform{
		Rotation: zRotation(math.Pi / 2),
		Origin:   Vec3{X: 1, Y: 2, Z: 3},
	}
	// Rotate (1,0,0) to (0,1,0), then translate.
	vecNear(t, tr.Apply(Vec3{X: 1}), Vec3{X: 1, Y: 3, Z: 3}, "apply")
}

func TestTransformMulMatchesSequentialApply(t *testing.T) {
	a := Transform{Rotation: zRotation(0.3), Origin: Vec3{X: 1}}
	b := Transform{Rotation: zRotation(-0.8), Origin: Vec3{Y: 2, Z: -1}}
	p := Vec3{X: 0.5, Y: -1.5, Z: 2}

	vecNear(t, a.Mul(b).Apply(p), a.Apply(b.Apply(p)), "composition")
}

func TestTransformInverseRoundTrip(t *testing.T) {
	tr := Transform{Rotation: zRotation(1.1), Origin: Vec3{X: 0.4, Y: -2, Z: 0.7}}
	round := tr.Mul(tr.Inverse())
	quatNear(t, round.Rotation, IdentityQuat(), "inverse rotation")
	vecNear(t, round.Origin, Vec3{}, "inverse origin")

	p := Vec3{X: 3, Y: 1, Z: -2}
	vecNear(t, tr.Inverse().Apply(tr.Apply(p)), p, "inverse apply round trip")
}

func TestVec3Ops(t *testing.T) {
	v := Vec3{X: 1, Y: 2, Z: 3}
	vecNear(t, v.Add(Vec3{X: 1}).Sub(Vec3{X: 1}), v, "add/sub")
	vecNear(t, v.Scale(2), Vec3{X: 2, Y: 4, Z: 6}, "scale")
	if got := v.Dot(Vec3{X: 1, Y: 1, Z: 1}); got != 6 {
		t.Errorf("dot = %f, want 6", got)
	}
	if got := (Vec3{X: 3, Y: 4}).Norm(); math.Abs(got-5) > tol {
		t.Errorf("norm = %f, want 5", got)
	}
}
