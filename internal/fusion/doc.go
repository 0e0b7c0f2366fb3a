// Package fusion maintains a weighted multigraph of measured spatial
// relationships between named coordinate frames and computes best-estimate
// relative transforms between any two of them.
//
// Frames are vertices; every sensor observation contributes a directed edge
// pair (forward transform plus its inverse) tagged with a measurement key so
// a newer reading from the same source always supersedes the previous one.
// Queries run Dijkstra over measurement weights and compose the per-edge
// transforms along the reconstructed path, so frames no sensor observes
// directly are still related through intermediaries.
//
// Redundant simultaneous observations are fused with PoseAverager (closed
// form weighted quaternion averaging); streams wanting stability over time
// go through TemporalSmoother (exponential smoothing with staleness expiry).
//
// Nothing in this package locks: all mutation must happen from a single
// logical writer or be serialized externally (the daemon wraps the graph in
// a sync.RWMutex shared by the ingest and query paths).
package fusion
