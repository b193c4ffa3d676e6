package reduce

import "github.com/chazu/voxgraph/pkg/field"

// Accum is the private output of one worker: fields laid out like the
// destinations, plus caller state such as a sample memo. Scalar or Vector
// is nil when the reduction has no destination of that kind.
type Accum[S any] struct {
	Scalar *field.ScalarField
	Vector *field.VectorField
	State  S
}

// MergeScalars folds the active voxels of per-worker fields into dst with
// op, in slice order. Nil parts are skipped.
func MergeScalars(dst *field.ScalarField, parts []*field.ScalarField, op field.Op) {
	for _, p := range parts {
		if p == nil || p == dst {
			continue
		}
		field.Fold(dst, p, op)
	}
}

// MergeVectors is MergeScalars for vector fields. Max, min and mul apply
// per component.
func MergeVectors(dst *field.VectorField, parts []*field.VectorField, op field.Op) {
	for _, p := range parts {
		if p == nil || p == dst {
			continue
		}
		field.FoldVectors(dst, p, op)
	}
}

// Scalars calls fn at every voxel in coords with a worker-private
// accumulator, then merges the accumulators into dst with op. fn writes
// into acc.Scalar, typically with Set for point values or sampler.Splat for
// deposits. state, when not nil, builds the per-worker State.
func Scalars[S any](d Driver, dst *field.ScalarField, coords []field.Coord, op field.Op,
	state func(worker int) S, fn func(acc *Accum[S], c field.Coord) error) error {
	return reduceInto(d, dst, nil, len(coords), op, state, func(acc *Accum[S], i int) error {
		return fn(acc, coords[i])
	})
}

// Vectors is Scalars for vector fields; fn writes into acc.Vector.
func Vectors[S any](d Driver, dst *field.VectorField, coords []field.Coord, op field.Op,
	state func(worker int) S, fn func(acc *Accum[S], c field.Coord) error) error {
	return reduceInto(d, nil, dst, len(coords), op, state, func(acc *Accum[S], i int) error {
		return fn(acc, coords[i])
	})
}

// Deposit is the particle form of Scalars: fn is called for every index in
// [0, n) and typically splats into acc.Scalar and acc.Vector. Either
// destination may be nil. Both are merged with op.
func Deposit[S any](d Driver, scalar *field.ScalarField, vector *field.VectorField, n int, op field.Op,
	state func(worker int) S, fn func(acc *Accum[S], i int) error) error {
	return reduceInto(d, scalar, vector, n, op, state, fn)
}

func reduceInto[S any](d Driver, scalar *field.ScalarField, vector *field.VectorField, n int, op field.Op,
	state func(worker int) S, fn func(acc *Accum[S], i int) error) error {
	accs, err := Map(d.For(op), n, func(w int) *Accum[S] {
		acc := &Accum[S]{}
		if scalar != nil {
			acc.Scalar = field.NewScalar(scalar.Transform, scalar.Class, scalar.Background())
		}
		if vector != nil {
			acc.Vector = field.NewVector(vector.Transform)
			acc.Vector.SetBackground(vector.Background())
		}
		if state != nil {
			acc.State = state(w)
		}
		return acc
	}, fn)
	if err != nil {
		return err
	}
	for _, acc := range accs {
		if scalar != nil {
			field.Fold(scalar, acc.Scalar, op)
		}
		if vector != nil {
			field.FoldVectors(vector, acc.Vector, op)
		}
	}
	return nil
}
