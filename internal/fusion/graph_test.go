package fusion

import (
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/frame.fusion/internal/geom"
)

func translation(x, y, z float64) geom.Transform {
	return geom.Transform{Rotation: geom.IdentityQuat(), Origin: geom.Vec3{X: x, Y: y, Z: z}}
}

// threeFrameGraph builds A→B→C with one measurement per hop.
func threeFrameGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	g.AddFrame("A")
	g.AddFrame("B")
	g.AddFrame("C")
	if err := g.UpdateMeasurement("A", "B", "s1", translation(1, 0, 0), 1); err != nil {
		t.Fatalf("UpdateMeasurement A->B: %v", err)
	}
	if err := g.UpdateMeasurement("B", "C", "s2", translation(0, 2, 0), 1); err != nil {
		t.Fatalf("UpdateMeasurement B->C: %v", err)
	}
	return g
}

func TestAddFrameIdempotent(t *testing.T) {
	g := NewGraph()
	g.AddFrame("A")
	g.AddFrame("A")
	if got := g.Frames(); len(got) != 1 || got[0] != "A" {
		t.Errorf("Frames() = %v, want [A]", got)
	}
}

func TestUpdateMeasurementCreatesMirrorPair(t *testing.T) {
	g := NewGraph()
	g.AddFrame("A")
	g.AddFrame("B")
	if err := g.UpdateMeasurement("A", "B", "s1", translation(1, 2, 3), 1); err != nil {
		t.Fatal(err)
	}
	if got := g.EdgeCount(); got != 2 {
		t.Fatalf("EdgeCount() = %d, want 2", got)
	}

	// Composing forward and backward single-edge lookups yields identity.
	forth, err := g.ResolveTransform("A", "B")
	if err != nil || !forth.Found {
		t.Fatalf("ResolveTransform(A,B) = %+v, %v", forth, err)
	}
	back, err := g.ResolveTransform("B", "A")
	if err != nil || !back.Found {
		t.Fatalf("ResolveTransform(B,A) = %+v, %v", back, err)
	}
	round := forth.Transform.Mul(back.Transform)
	if round.Origin.Norm() > 1e-9 {
		t.Errorf("round trip origin = %+v, want zero", round.Origin)
	}
	if math.Abs(math.Abs(round.Rotation.Dot(geom.IdentityQuat()))-1) > 1e-9 {
		t.Errorf("round trip rotation = %+v, want identity", round.Rotation)
	}
}

func TestUpdateMeasurementReplacesByKey(t *testing.T) {
	g := threeFrameGraph(t)
	before := g.EdgeCount()

	// Same key, new reading: edge count must not grow.
	if err := g.UpdateMeasurement("A", "B", "s1", translation(5, 0, 0), 1); err != nil {
		t.Fatal(err)
	}
	if got := g.EdgeCount(); got != before {
		t.Errorf("EdgeCount() after replacement = %d, want %d", got, before)
	}

	res, err := g.ResolveTransform("A", "B")
	if err != nil {
		t.Fatal(err)
	}
	if res.Transform.Origin.X != 5 {
		t.Errorf("replaced transform origin.X = %f, want 5", res.Transform.Origin.X)
	}
}

func TestUpdateMeasurementSupersedesAcrossRemount(t *testing.T) {
	// The sensor behind "s1" was remounted: it now observes B→C. The old
	// A→B edges must disappear entirely.
	g := threeFrameGraph(t)
	if err := g.UpdateMeasurement("B", "C", "s1", translation(0, 0, 1), 1); err != nil {
		t.Fatal(err)
	}

	if g.CanReach("A", "B") {
		t.Error("A->B still reachable after s1 remount removed its only edge")
	}
	if !g.CanReach("B", "C") {
		t.Error("B->C should be reachable via remounted s1")
	}
}

func TestUpdateMeasurementUnknownFrame(t *testing.T) {
	g := NewGraph()
	g.AddFrame("A")
	err := g.UpdateMeasurement("A", "ghost", "s1", translation(0, 0, 0), 1)
	if !errors.Is(err, ErrUnknownFrame) {
		t.Errorf("err = %v, want ErrUnknownFrame", err)
	}
	err = g.UpdateMeasurement("ghost", "A", "s1", translation(0, 0, 0), 1)
	if !errors.Is(err, ErrUnknownFrame) {
		t.Errorf("err = %v, want ErrUnknownFrame", err)
	}
	// Unknown frames are never auto-created.
	if g.HasFrame("ghost") {
		t.Error("ghost frame was auto-created")
	}
}

func TestUpdateMeasurementWeights(t *testing.T) {
	g := NewGraph()
	g.AddFrame("A")
	g.AddFrame("B")

	if err := g.UpdateMeasurement("A", "B", "s1", translation(0, 0, 0), -1); !errors.Is(err, ErrNegativeWeight) {
		t.Errorf("negative weight err = %v, want ErrNegativeWeight", err)
	}
	// Zero weight means "omitted" and falls back to the default.
	if err := g.UpdateMeasurement("A", "B", "s1", translation(0, 0, 0), 0); err != nil {
		t.Errorf("zero weight err = %v, want nil", err)
	}
	if e := g.bestEdge("A", "B"); e == nil || e.weight != DefaultEdgeWeight {
		t.Errorf("defaulted edge = %+v, want weight %f", e, DefaultEdgeWeight)
	}
}

func TestRemoveEdgesByKeyIsFixedPoint(t *testing.T) {
	g := threeFrameGraph(t)

	g.RemoveEdgesByKey("s2")
	if got := g.EdgeCount(); got != 2 {
		t.Errorf("EdgeCount() = %d, want 2", got)
	}
	if g.CanReach("A", "C") {
		t.Error("A->C reachable after s2 removal")
	}
	if got := g.FindPath("A", "C"); len(got) != 0 {
		t.Errorf("FindPath(A,C) = %v, want empty", got)
	}

	// Second call is a no-op.
	g.RemoveEdgesByKey("s2")
	if got := g.EdgeCount(); got != 2 {
		t.Errorf("EdgeCount() after repeat removal = %d, want 2", got)
	}
}

func TestRemoveEdgesBetweenIsDirectional(t *testing.T) {
	g := threeFrameGraph(t)

	if err := g.RemoveEdgesBetween("A", "B"); err != nil {
		t.Fatal(err)
	}
	// Only the forward direction is gone; the mirror stays.
	if got := g.EdgeCount(); got != 3 {
		t.Errorf("EdgeCount() = %d, want 3", got)
	}
	if len(g.FindPath("B", "A")) == 0 {
		t.Error("B->A should still be reachable via the mirror edge")
	}

	if err := g.RemoveEdgesBetween("B", "A"); err != nil {
		t.Fatal(err)
	}
	if g.CanReach("B", "A") {
		t.Error("B->A reachable after removing both directions")
	}
}

func TestRemoveEdgesBetweenUnknownFrame(t *testing.T) {
	g := NewGraph()
	g.AddFrame("A")
	if err := g.RemoveEdgesBetween("A", "ghost"); !errors.Is(err, ErrUnknownFrame) {
		t.Errorf("err = %v, want ErrUnknownFrame", err)
	}
}
