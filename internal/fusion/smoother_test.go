package fusion

import (
	"math"
	"testing"
	"time"

	"github.com/banshee-data/frame.fusion/internal/geom"
)

var t0 = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func TestSmootherFirstSampleTakenExactly(t *testing.T) {
	s := NewTemporalSmoother(0.5, 0)
	s.AddScalar(10, t0)
	if got := s.Scalar(); got != 10 {
		t.Errorf("Scalar() after first sample = %f, want exactly 10", got)
	}
}

func TestSmootherScalarEMA(t *testing.T) {
	s := NewTemporalSmoother(0.5, 0)
	s.AddScalar(10, t0)
	s.AddScalar(20, t0.Add(time.Millisecond))
	if got := s.Scalar(); got != 15 {
		t.Errorf("Scalar() = %f, want 15", got)
	}
}

func TestSmootherVectorEMA(t *testing.T) {
	s := NewTemporalSmoother(0.25, 0)
	s.AddVector(geom.Vec3{X: 4}, t0)
	s.AddVector(geom.Vec3{X: 8}, t0.Add(time.Millisecond))
	if got := s.Vector(); math.Abs(got.X-5) > 1e-12 {
		t.Errorf("Vector().X = %f, want 5", got.X)
	}
}

func TestSmootherRotationSlerp(t *testing.T) {
	s := NewTemporalSmoother(0.5, 0)
	s.AddRotation(geom.IdentityQuat(), t0)
	q90 := geom.Quat{Z: math.Sin(math.Pi / 4), W: math.Cos(math.Pi / 4)}
	s.AddRotation(q90, t0.Add(time.Millisecond))

	want := geom.Quat{Z: math.Sin(math.Pi / 8), W: math.Cos(math.Pi / 8)}
	got := s.Rotation()
	if d := math.Abs(got.Dot(want)); math.Abs(d-1) > 1e-9 {
		t.Errorf("Rotation() = %+v, want halfway rotation %+v", got, want)
	}
	if math.Abs(got.Norm()-1) > 1e-9 {
		t.Errorf("Rotation() norm = %f, want 1 (never a linear blend)", got.Norm())
	}
}

func TestSmootherDefaultsBeforeFirstSample(t *testing.T) {
	s := NewTemporalSmoother(0.5, time.Second)
	if got := s.Scalar(); got != 0 {
		t.Errorf("Scalar() = %f, want 0", got)
	}
	if got := s.Vector(); got != (geom.Vec3{}) {
		t.Errorf("Vector() = %+v, want zero", got)
	}
	if got := s.Rotation(); got != geom.IdentityQuat() {
		t.Errorf("Rotation() = %+v, want identity", got)
	}
}

func TestSmootherStalenessExpiry(t *testing.T) {
	s := NewTemporalSmoother(0.5, 100*time.Millisecond)
	s.AddScalar(10, t0)

	// Inside the window: blended.
	s.AddScalar(20, t0.Add(50*time.Millisecond))
	if got := s.Scalar(); got != 15 {
		t.Fatalf("Scalar() = %f, want 15", got)
	}

	// Gap reaches the timeout: history discarded, sample taken exactly.
	s.AddScalar(100, t0.Add(50*time.Millisecond+100*time.Millisecond))
	if got := s.Scalar(); got != 100 {
		t.Errorf("Scalar() after expiry = %f, want exactly 100", got)
	}
}

func TestSmootherExpiryCoversAllChannels(t *testing.T) {
	s := NewTemporalSmoother(0.5, 100*time.Millisecond)
	s.AddScalar(10, t0)
	s.AddVector(geom.Vec3{X: 10}, t0)

	// A fresh rotation sample past the timeout expires scalar and vector
	// history too: the next scalar is taken exactly.
	s.AddRotation(geom.IdentityQuat(), t0.Add(time.Second))
	s.AddScalar(40, t0.Add(time.Second))
	if got := s.Scalar(); got != 40 {
		t.Errorf("Scalar() = %f, want exactly 40 after cross-channel expiry", got)
	}
}

func TestSmootherZeroTimeoutNeverExpires(t *testing.T) {
	s := NewTemporalSmoother(0.5, 0)
	s.AddScalar(10, t0)
	s.AddScalar(20, t0.Add(24*time.Hour))
	if got := s.Scalar(); got != 15 {
		t.Errorf("Scalar() = %f, want 15 (timeout disabled)", got)
	}
}

func TestSmootherReset(t *testing.T) {
	s := NewTemporalSmoother(0.25, time.Second)
	s.AddScalar(10, t0)
	s.AddRotation(geom.Quat{Z: 1}, t0)
	s.Reset()

	if got := s.Scalar(); got != 0 {
		t.Errorf("Scalar() after reset = %f, want 0", got)
	}
	if got := s.Rotation(); got != geom.IdentityQuat() {
		t.Errorf("Rotation() after reset = %+v, want identity", got)
	}
	// Configuration survives a reset.
	if s.Alpha() != 0.25 || s.Timeout() != time.Second {
		t.Errorf("config after reset = (%f, %v), want (0.25, 1s)", s.Alpha(), s.Timeout())
	}

	// First sample after reset is taken exactly.
	s.AddScalar(7, t0.Add(time.Hour))
	if got := s.Scalar(); got != 7 {
		t.Errorf("Scalar() after reset+add = %f, want exactly 7", got)
	}
}

func TestSmootherAddPose(t *testing.T) {
	s := NewTemporalSmoother(0.5, 0)
	pose := geom.Transform{Rotation: geom.IdentityQuat(), Origin: geom.Vec3{X: 2}}
	s.AddPose(pose, t0)

	got := s.Pose()
	if got.Origin != pose.Origin || got.Rotation != pose.Rotation {
		t.Errorf("Pose() = %+v, want %+v", got, pose)
	}
	if !s.LastUpdate().Equal(t0) {
		t.Errorf("LastUpdate() = %v, want %v", s.LastUpdate(), t0)
	}
}

func TestSmootherSetters(t *testing.T) {
	s := NewTemporalSmoother(0.5, 0)
	s.SetAlpha(1)
	s.SetTimeout(time.Minute)

	s.AddScalar(10, t0)
	s.AddScalar(20, t0.Add(time.Millisecond))
	// Alpha 1 trusts the newest sample entirely.
	if got := s.Scalar(); got != 20 {
		t.Errorf("Scalar() with alpha=1 = %f, want 20", got)
	}
	if s.Timeout() != time.Minute {
		t.Errorf("Timeout() = %v, want 1m", s.Timeout())
	}
}
