package fusion

import "errors"

var (
	// ErrUnknownFrame is returned when an operation references a frame that
	// was never registered. Frames are never auto-created on reference.
	ErrUnknownFrame = errors.New("unknown frame")

	// ErrInconsistentGraph is returned when a reconstructed path names a
	// consecutive frame pair with no stored edge between them. This cannot
	// happen while the mirror-edge invariant holds; a query fails loudly
	// rather than returning a fabricated transform.
	ErrInconsistentGraph = errors.New("inconsistent graph: path step has no edge")

	// ErrNoSamples is returned when a mean is requested from an averager
	// that has accumulated no rotation samples.
	ErrNoSamples = errors.New("no samples accumulated")

	// ErrNegativeWeight is returned when a measurement carries a negative
	// weight. Dijkstra requires non-negative edge costs.
	ErrNegativeWeight = errors.New("measurement weight must not be negative")
)
