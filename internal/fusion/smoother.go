package fusion

import (
	"time"

	"github.com/banshee-data/frame.fusion/internal/geom"
)

// TemporalSmoother exponentially smooths a stream of scalar, vector and
// rotation samples. Scalars and vectors use the standard EMA blend; rotations
// interpolate along the shortest arc so the estimate stays a valid rotation.
//
// The caller passes the observation time on every Add, which keeps the
// smoother a pure function of (state, sample, timestamp) and makes expiry
// deterministic under test. If the gap since the previous sample reaches the
// configured timeout, accumulated history is discarded and the new sample
// starts fresh rather than being blended with stale state. A timeout of zero
// disables expiry.
type TemporalSmoother struct {
	alpha   float64
	timeout time.Duration

	scalar     float64
	scalarInit bool

	vec     geom.Vec3
	vecInit bool

	quat     geom.Quat
	quatInit bool

	lastUpdate time.Time
}

// NewTemporalSmoother returns a smoother with the given smoothing factor
// alpha in (0,1] (closer to 1 trusts new samples more) and staleness timeout.
func NewTemporalSmoother(alpha float64, timeout time.Duration) *TemporalSmoother {
	return &TemporalSmoother{alpha: alpha, timeout: timeout}
}

// AddScalar feeds one scalar sample observed at the given time.
func (s *TemporalSmoother) AddScalar(v float64, now time.Time) {
	s.expireIfStale(now)
	if s.scalarInit {
		s.scalar = s.alpha*v + (1-s.alpha)*s.scalar
	} else {
		s.scalar = v
		s.scalarInit = true
	}
	s.lastUpdate = now
}

// AddVector feeds one vector sample observed at the given time.
func (s *TemporalSmoother) AddVector(v geom.Vec3, now time.Time) {
	s.expireIfStale(now)
	if s.vecInit {
		s.vec = v.Scale(s.alpha).Add(s.vec.Scale(1 - s.alpha))
	} else {
		s.vec = v
		s.vecInit = true
	}
	s.lastUpdate = now
}

// AddRotation feeds one rotation sample observed at the given time.
func (s *TemporalSmoother) AddRotation(q geom.Quat, now time.Time) {
	s.expireIfStale(now)
	if s.quatInit {
		s.quat = s.quat.Slerp(q, s.alpha)
	} else {
		s.quat = q
		s.quatInit = true
	}
	s.lastUpdate = now
}

// AddPose feeds the vector and rotation channels from one transform sample.
func (s *TemporalSmoother) AddPose(t geom.Transform, now time.Time) {
	s.AddVector(t.Origin, now)
	s.AddRotation(t.Rotation, now)
}

// Scalar returns the current scalar estimate, zero before the first sample.
func (s *TemporalSmoother) Scalar() float64 {
	return s.scalar
}

// Vector returns the current vector estimate, zero before the first sample.
func (s *TemporalSmoother) Vector() geom.Vec3 {
	return s.vec
}

// Rotation returns the current rotation estimate, identity before the first
// sample.
func (s *TemporalSmoother) Rotation() geom.Quat {
	if !s.quatInit {
		return geom.IdentityQuat()
	}
	return s.quat
}

// Pose returns the current vector and rotation estimates as one transform.
func (s *TemporalSmoother) Pose() geom.Transform {
	return geom.Transform{Rotation: s.Rotation(), Origin: s.Vector()}
}

// LastUpdate returns the timestamp of the most recent sample on any channel.
func (s *TemporalSmoother) LastUpdate() time.Time {
	return s.lastUpdate
}

// Reset discards all channel state. The configured alpha and timeout are
// kept.
func (s *TemporalSmoother) Reset() {
	s.scalarInit = false
	s.vecInit = false
	s.quatInit = false
	s.scalar = 0
	s.vec = geom.Vec3{}
	s.quat = geom.Quat{}
}

// Alpha returns the configured smoothing factor.
func (s *TemporalSmoother) Alpha() float64 {
	return s.alpha
}

// SetAlpha changes the smoothing factor for subsequent samples.
func (s *TemporalSmoother) SetAlpha(alpha float64) {
	s.alpha = alpha
}

// Timeout returns the configured staleness timeout.
func (s *TemporalSmoother) Timeout() time.Duration {
	return s.timeout
}

// SetTimeout changes the staleness timeout for subsequent samples.
func (s *TemporalSmoother) SetTimeout(timeout time.Duration) {
	s.timeout = timeout
}

// expireIfStale resets all channels when the gap since the last sample has
// reached the timeout. Stale history is discarded, never blended.
func (s *TemporalSmoother) expireIfStale(now time.Time) {
	if s.timeout == 0 {
		return
	}
	if !s.scalarInit && !s.vecInit && !s.quatInit {
		return
	}
	if now.Sub(s.lastUpdate) >= s.timeout {
		s.Reset()
	}
}
