// Package service owns the running fusion graph. The graph itself does no
// locking, so the service serializes all access behind a readers-writer
// lock and owns the per-frame-pair temporal smoothers fed by query results.
package service

import (
	"sync"
	"time"

	"github.com/banshee-data/frame.fusion/internal/fusion"
	"github.com/banshee-data/frame.fusion/internal/geom"
	"github.com/banshee-data/frame.fusion/internal/ingest"
	"github.com/banshee-data/frame.fusion/internal/timeutil"
)

// Config carries the fusion tuning knobs resolved from the seed document.
type Config struct {
	Alpha             float64
	StaleTimeout      time.Duration
	DefaultEdgeWeight float64
	Clock             timeutil.Clock // optional, defaults to RealClock
}

// Service wraps a seeded fusion graph for concurrent use by the ingest
// listener and the query API.
type Service struct {
	mu    sync.RWMutex
	graph *fusion.Graph
	clock timeutil.Clock

	alpha         float64
	staleTimeout  time.Duration
	defaultWeight float64

	// One smoother per queried frame pair, created lazily. Guarded by mu
	// (writes to smoothers happen under the write lock).
	smoothers map[string]*fusion.TemporalSmoother
}

// New wraps the given graph. The graph must not be mutated elsewhere after
// this call.
func New(g *fusion.Graph, cfg Config) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	alpha := cfg.Alpha
	if alpha == 0 {
		alpha = 0.5
	}
	weight := cfg.DefaultEdgeWeight
	if weight == 0 {
		weight = fusion.DefaultEdgeWeight
	}
	return &Service{
		graph:         g,
		clock:         clock,
		alpha:         alpha,
		staleTimeout:  cfg.StaleTimeout,
		defaultWeight: weight,
		smoothers:     make(map[string]*fusion.TemporalSmoother),
	}
}

// ApplyMeasurement applies one streaming measurement event to the graph,
// superseding any previous reading with the same key. It implements
// ingest.GraphSink.
func (s *Service) ApplyMeasurement(ev ingest.Event) error {
	weight := ev.Weight
	if weight == 0 {
		weight = s.defaultWeight
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.UpdateMeasurement(ev.From, ev.To, fusion.MeasurementKey(ev.Key), ev.Transform(), weight)
}

// ResolveTransform returns the composed transform and connecting path
// between two frames.
func (s *Service) ResolveTransform(from, to string) (fusion.TransformResult, []string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	path := s.graph.FindPath(from, to)
	res, err := s.graph.ResolveTransform(from, to)
	return res, path, err
}

// CanReach reports whether a chain of measurements connects the two frames.
func (s *Service) CanReach(from, to string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.CanReach(from, to)
}

// Frames returns the registered frame names in sorted order.
func (s *Service) Frames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Frames()
}

// Stats returns the current frame and directed edge counts.
func (s *Service) Stats() (frames, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.graph.Frames()), s.graph.EdgeCount()
}

// RemoveByKey removes every measurement edge carrying the key.
func (s *Service) RemoveByKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.RemoveEdgesByKey(fusion.MeasurementKey(key))
}

// SmoothedPose resolves the transform between two frames and feeds it into
// the pair's temporal smoother, returning the smoothed estimate. The first
// resolution after startup (or after the stale timeout elapses) returns the
// raw transform. Found is false when no path currently connects the pair;
// the smoother then keeps its last state so a momentary sensor dropout does
// not reset the estimate.
func (s *Service) SmoothedPose(from, to string) (pose geom.Transform, found bool, err error) {
	// Takes the write lock: resolving also advances smoother state.
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.graph.ResolveTransform(from, to)
	if err != nil {
		return geom.Transform{}, false, err
	}

	key := from + "\x00" + to
	sm, ok := s.smoothers[key]
	if !ok {
		sm = fusion.NewTemporalSmoother(s.alpha, s.staleTimeout)
		s.smoothers[key] = sm
	}

	if !res.Found {
		return sm.Pose(), false, nil
	}

	sm.AddPose(res.Transform, s.clock.Now())
	return sm.Pose(), true, nil
}

// ResetSmoothing discards all smoother state, e.g. after a deliberate
// re-seeding of the graph.
func (s *Service) ResetSmoothing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sm := range s.smoothers {
		sm.Reset()
	}
}
