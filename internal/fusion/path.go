package fusion

import (
	"container/heap"
	"fmt"

	"github.com/banshee-data/frame.fusion/internal/geom"
)

// TransformResult is the outcome of a transform query. Found is false when
// no connecting path exists; Transform is only meaningful when Found is true.
type TransformResult struct {
	Found     bool
	Transform geom.Transform
}

// pqItem is a priority-queue entry for Dijkstra. seq breaks distance ties so
// pop order is deterministic for a fixed graph state.
type pqItem struct {
	frame string
	dist  float64
	seq   uint64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	return pq[i].seq < pq[j].seq
}
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// FindPath runs a shortest-path search over measurement weights and returns
// the ordered frame names from one frame to the other, both inclusive. The
// result is empty when either frame is unknown or no connecting path exists.
// A query from a frame to itself returns the single-element path.
func (g *Graph) FindPath(from, to string) []string {
	if !g.HasFrame(from) || !g.HasFrame(to) {
		return nil
	}
	if from == to {
		return []string{from}
	}

	dist := map[string]float64{from: 0}
	prev := map[string]string{}
	done := map[string]bool{}

	var seq uint64
	pq := priorityQueue{{frame: from, dist: 0, seq: seq}}
	heap.Init(&pq)

	for pq.Len() > 0 {
		cur := heap.Pop(&pq).(pqItem)
		if done[cur.frame] {
			continue
		}
		done[cur.frame] = true
		if cur.frame == to {
			break
		}

		for _, e := range g.adj[cur.frame] {
			alt := dist[cur.frame] + e.weight
			if d, seen := dist[e.to]; !seen || alt < d {
				dist[e.to] = alt
				prev[e.to] = cur.frame
				seq++
				heap.Push(&pq, pqItem{frame: e.to, dist: alt, seq: seq})
			}
		}
	}

	if !done[to] {
		return nil
	}

	// Walk predecessors back from the goal, then reverse.
	path := []string{to}
	for v := to; v != from; {
		v = prev[v]
		path = append(path, v)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// CanReach reports whether any chain of measurements connects the two frames.
func (g *Graph) CanReach(from, to string) bool {
	return len(g.FindPath(from, to)) > 0
}

// ResolveTransform computes the best-estimate transform from one frame to
// another by finding the cheapest connecting path and composing the stored
// edge transforms along it in traversal order. When several parallel edges
// connect a consecutive pair the lowest-weight one is used.
//
// A missing edge for a consecutive path pair means the graph violated its
// own mirror invariant; that returns ErrInconsistentGraph rather than a
// fabricated transform.
func (g *Graph) ResolveTransform(from, to string) (TransformResult, error) {
	path := g.FindPath(from, to)
	if len(path) == 0 {
		return TransformResult{}, nil
	}

	t := geom.IdentityTransform()
	for i := 0; i+1 < len(path); i++ {
		e := g.bestEdge(path[i], path[i+1])
		if e == nil {
			return TransformResult{}, fmt.Errorf("%w (%q -> %q)", ErrInconsistentGraph, path[i], path[i+1])
		}
		t = t.Mul(e.transform)
	}
	return TransformResult{Found: true, Transform: t}, nil
}
