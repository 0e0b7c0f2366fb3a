package fusion

import (
	"fmt"
	"sort"

	"github.com/banshee-data/frame.fusion/internal/geom"
)

// DefaultEdgeWeight is used when a measurement source omits a weight.
const DefaultEdgeWeight = 1.0

// MeasurementKey identifies the sensor/observation channel that produced an
// edge. Updating a measurement removes every edge carrying the same key
// before inserting the new reading, so a remounted sensor cannot leave stale
// edges behind.
type MeasurementKey string

// edge is one directed measurement edge. Every stored edge has a mirror in
// the opposite direction carrying the inverse transform and the same key.
type edge struct {
	from, to  string
	key       MeasurementKey
	transform geom.Transform
	weight    float64
	seq       uint64 // insertion order, for deterministic tie-breaking
}

// Graph is the frame multigraph. It owns all frame and edge records; it is
// not safe for concurrent mutation.
type Graph struct {
	adj     map[string][]*edge
	byKey   map[MeasurementKey][]*edge
	nextSeq uint64
}

// NewGraph returns an empty frame graph.
func NewGraph() *Graph {
	return &Graph{
		adj:   make(map[string][]*edge),
		byKey: make(map[MeasurementKey][]*edge),
	}
}

// AddFrame registers a coordinate frame. Adding a frame that already exists
// is a no-op.
func (g *Graph) AddFrame(name string) {
	if _, ok := g.adj[name]; !ok {
		g.adj[name] = nil
	}
}

// HasFrame reports whether the named frame is registered.
func (g *Graph) HasFrame(name string) bool {
	_, ok := g.adj[name]
	return ok
}

// Frames returns all registered frame names in sorted order.
func (g *Graph) Frames() []string {
	names := make([]string, 0, len(g.adj))
	for name := range g.adj {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EdgeCount returns the number of directed edges currently stored. Each
// measurement contributes two (forward and mirror).
func (g *Graph) EdgeCount() int {
	n := 0
	for _, edges := range g.adj {
		n += len(edges)
	}
	return n
}

// UpdateMeasurement records a sensor observation of the transform from one
// frame to another. Any previous edges carrying the same key are removed
// first, even if the sensor's endpoints changed since the last reading. The
// mirror edge to→from with the inverse transform is inserted alongside.
//
// A zero weight means the source omitted it and DefaultEdgeWeight is used.
// Both frames must already be registered.
func (g *Graph) UpdateMeasurement(from, to string, key MeasurementKey, t geom.Transform, weight float64) error {
	if !g.HasFrame(from) {
		return fmt.Errorf("%w: %q", ErrUnknownFrame, from)
	}
	if !g.HasFrame(to) {
		return fmt.Errorf("%w: %q", ErrUnknownFrame, to)
	}
	if weight < 0 {
		return fmt.Errorf("%w: %f", ErrNegativeWeight, weight)
	}
	if weight == 0 {
		weight = DefaultEdgeWeight
	}

	g.RemoveEdgesByKey(key)

	forth := &edge{from: from, to: to, key: key, transform: t, weight: weight, seq: g.nextSeq}
	back := &edge{from: to, to: from, key: key, transform: t.Inverse(), weight: weight, seq: g.nextSeq + 1}
	g.nextSeq += 2

	g.adj[from] = append(g.adj[from], forth)
	g.adj[to] = append(g.adj[to], back)
	g.byKey[key] = []*edge{forth, back}
	return nil
}

// RemoveEdgesBetween removes every edge running from one frame directly to
// another, in that direction only. Callers wanting symmetric removal call it
// once per direction.
func (g *Graph) RemoveEdgesBetween(from, to string) error {
	if !g.HasFrame(from) {
		return fmt.Errorf("%w: %q", ErrUnknownFrame, from)
	}
	if !g.HasFrame(to) {
		return fmt.Errorf("%w: %q", ErrUnknownFrame, to)
	}

	kept := g.adj[from][:0]
	for _, e := range g.adj[from] {
		if e.to == to {
			g.dropKeyIndex(e)
			continue
		}
		kept = append(kept, e)
	}
	g.adj[from] = kept
	return nil
}

// RemoveEdgesByKey removes every edge carrying the key, regardless of
// endpoints. After it returns no edge with the key remains.
func (g *Graph) RemoveEdgesByKey(key MeasurementKey) {
	edges := g.byKey[key]
	if len(edges) == 0 {
		return
	}
	delete(g.byKey, key)

	for _, victim := range edges {
		kept := g.adj[victim.from][:0]
		for _, e := range g.adj[victim.from] {
			if e != victim {
				kept = append(kept, e)
			}
		}
		g.adj[victim.from] = kept
	}
}

// dropKeyIndex removes a single edge from the key index, deleting the key
// entry once no edges remain under it.
func (g *Graph) dropKeyIndex(victim *edge) {
	kept := g.byKey[victim.key][:0]
	for _, e := range g.byKey[victim.key] {
		if e != victim {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(g.byKey, victim.key)
	} else {
		g.byKey[victim.key] = kept
	}
}

// bestEdge returns the lowest-weight edge running from one frame directly to
// another, or nil when no such edge exists. Ties resolve to the earliest
// inserted edge so results are stable for a fixed graph state.
func (g *Graph) bestEdge(from, to string) *edge {
	var best *edge
	for _, e := range g.adj[from] {
		if e.to != to {
			continue
		}
		if best == nil || e.weight < best.weight || (e.weight == best.weight && e.seq < best.seq) {
			best = e
		}
	}
	return best
}
