package fusion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/frame.fusion/internal/geom"
)

// PoseAverager fuses a set of simultaneous weighted position and rotation
// samples into a single estimate. Positions use a plain weighted mean.
// Rotations use the closed-form chordal average: the eigenvector belonging
// to the largest-magnitude eigenvalue of the weighted quaternion outer
// product sum. Averaging quaternion components directly would leave the
// unit sphere and is not meaningful.
//
// The zero value is ready to use. An averager is owned by whatever
// represents one logical fused channel and reset between fusion rounds.
type PoseAverager struct {
	vecSum    geom.Vec3
	weightSum float64

	// Weighted quaternion samples as columns of a growing 4xN matrix.
	quatCols []float64
	quatN    int
}

// AddVector accumulates a weighted position sample.
func (a *PoseAverager) AddVector(v geom.Vec3, weight float64) {
	a.vecSum = a.vecSum.Add(v.Scale(weight))
	a.weightSum += weight
}

// AddRotation accumulates a weighted rotation sample. Samples are taken as
// given; no hemisphere alignment is applied, the eigen solve is insensitive
// to per-sample sign.
func (a *PoseAverager) AddRotation(q geom.Quat, weight float64) {
	a.quatCols = append(a.quatCols, weight*q.X, weight*q.Y, weight*q.Z, weight*q.W)
	a.quatN++
}

// AddPose accumulates both components of a transform under one weight.
func (a *PoseAverager) AddPose(t geom.Transform, weight float64) {
	a.AddVector(t.Origin, weight)
	a.AddRotation(t.Rotation, weight)
}

// MeanVector returns the weighted mean position. With no accumulated weight
// it returns the zero vector; that degenerate case is defined, not an error.
func (a *PoseAverager) MeanVector() geom.Vec3 {
	if a.weightSum == 0 {
		return geom.Vec3{}
	}
	return a.vecSum.Scale(1 / a.weightSum)
}

// MeanRotation returns the weighted average rotation. The result is a unit
// quaternion determined up to sign: q and -q describe the same rotation.
// Calling with zero accumulated rotation samples returns ErrNoSamples.
func (a *PoseAverager) MeanRotation() (geom.Quat, error) {
	if a.quatN == 0 {
		return geom.Quat{}, fmt.Errorf("%w: mean rotation", ErrNoSamples)
	}

	// Samples are stored column-major; Dense wants row-major.
	data := make([]float64, 4*a.quatN)
	for k := 0; k < a.quatN; k++ {
		for i := 0; i < 4; i++ {
			data[i*a.quatN+k] = a.quatCols[4*k+i]
		}
	}
	m := mat.NewDense(4, a.quatN, data)

	var outer mat.SymDense
	outer.SymOuterK(1, m)

	var es mat.EigenSym
	if !es.Factorize(&outer, true) {
		return geom.Quat{}, fmt.Errorf("%w: eigendecomposition failed", ErrNoSamples)
	}

	vals := es.Values(nil)
	best := 0
	for i, v := range vals {
		if math.Abs(v) > math.Abs(vals[best]) {
			best = i
		}
	}

	var vecs mat.Dense
	es.VectorsTo(&vecs)
	q := geom.Quat{
		X: vecs.At(0, best),
		Y: vecs.At(1, best),
		Z: vecs.At(2, best),
		W: vecs.At(3, best),
	}
	return q.Normalize(), nil
}

// Reset clears all accumulators.
func (a *PoseAverager) Reset() {
	a.vecSum = geom.Vec3{}
	a.weightSum = 0
	a.quatCols = nil
	a.quatN = 0
}
