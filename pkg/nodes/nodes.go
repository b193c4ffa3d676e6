// Package nodes implements the producer and transform nodes: input
// adapters for particles, surfaces, cached assets and post-process fog,
// fog combinators, advection, displacement and CSG.
//
// Every producer replaces its output on each Evaluate. A producer whose
// scene object has the wrong type logs a warning and leaves its output
// empty.
package nodes

import (
	"errors"

	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/graph"
	"github.com/chazu/voxgraph/pkg/kernel"
	"github.com/chazu/voxgraph/pkg/reduce"
)

// ErrNoKernel is returned by surface producers when the pass has no mesh
// kernel.
var ErrNoKernel = errors.New("nodes: no mesh kernel configured")

// velocityEpsilon is the squared speed below which advection stops.
const velocityEpsilon = 1e-8

// weightEpsilon is the accumulated weight at or below which a voxel is left
// out of velocity normalization.
const weightEpsilon = 1e-8

func kernelOf(in *graph.Input) (kernel.Kernel, error) {
	if in.Kernel == nil {
		return nil, ErrNoKernel
	}
	return in.Kernel, nil
}

// objectAs returns the pass object as T, or warns on n and reports false.
func objectAs[T graph.Object](in *graph.Input, n graph.Node) (T, bool) {
	o, ok := in.Object.(T)
	if !ok {
		kind := "none"
		if in.Object != nil {
			kind = in.Object.ObjectKind()
		}
		n.Info().WarnOnce(in.Logger(), "invalid scene object, output forced to empty", "object", kind)
	}
	return o, ok
}

// voxelWorker is the private state of one worker in a per-voxel pass: its
// output field and its sample memo.
type voxelWorker = reduce.Accum[*graph.Memo]

// eachVoxel calls fn for every coordinate with a worker-private output
// field and memo, then sums the private fields into dst. Each coordinate
// is written by exactly one worker.
func eachVoxel(in *graph.Input, dst *field.ScalarField, coords []field.Coord,
	fn func(w *voxelWorker, c field.Coord)) error {
	return reduce.Scalars(in.Driver, dst, coords, field.OpSum,
		func(int) *graph.Memo { return in.NewMemo() },
		func(w *voxelWorker, c field.Coord) error {
			fn(w, c)
			return nil
		})
}
