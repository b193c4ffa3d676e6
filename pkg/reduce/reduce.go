// Package reduce runs data-parallel loops over index ranges with one private
// accumulator per worker, then folds the accumulators into a shared result.
package reduce

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/chazu/voxgraph/pkg/field"
	"golang.org/x/sync/errgroup"
)

// ErrPanic wraps a panic recovered inside a worker.
var ErrPanic = errors.New("reduce: worker panicked")

// DefaultGrain is the number of indices a worker claims at a time.
const DefaultGrain = 256

// serialThreshold is the item count below which a loop runs on the calling
// goroutine. Fanning out a handful of voxels costs more than it saves.
const serialThreshold = 64

// Driver schedules parallel loops. The zero value uses GOMAXPROCS workers
// and DefaultGrain.
type Driver struct {
	Workers int
	Grain   int
}

// Serial is a driver that runs everything on the calling goroutine.
var Serial = Driver{Workers: 1}

func (d Driver) workers() int {
	if d.Workers > 0 {
		return d.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (d Driver) grain() int {
	if d.Grain > 0 {
		return d.Grain
	}
	return DefaultGrain
}

// For returns the driver to use when the per-worker results will be merged
// with op. Replace is order dependent, so it runs single-worker.
func (d Driver) For(op field.Op) Driver {
	if !op.Commutative() {
		return Driver{Workers: 1, Grain: d.Grain}
	}
	return d
}

// Map calls fn(acc, i) for every i in [0, n). Each worker owns one
// accumulator created by alloc; the accumulators are returned in worker
// order so the caller can merge them deterministically. Work is handed out
// in chunks of the driver's grain size. After the first error no new chunks
// are claimed, workers stop after their current item, and that error
// is returned. A panic inside fn is returned as an error wrapping ErrPanic.
func Map[A any](d Driver, n int, alloc func(worker int) A, fn func(acc A, i int) error) ([]A, error) {
	workers := d.workers()
	if n < serialThreshold || workers == 1 {
		workers = 1
	}
	grain := d.grain()
	if chunks := (n + grain - 1) / grain; workers > chunks && chunks > 0 {
		workers = chunks
	}

	accs := make([]A, workers)
	for w := range accs {
		accs[w] = alloc(w)
	}

	var (
		cursor atomic.Int64
		failed atomic.Bool
		g      errgroup.Group
	)
	for w := 0; w < workers; w++ {
		acc := accs[w]
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					failed.Store(true)
					err = fmt.Errorf("%w: %v", ErrPanic, r)
				}
			}()
			for !failed.Load() {
				start := int(cursor.Add(int64(grain))) - grain
				if start >= n {
					return nil
				}
				end := min(start+grain, n)
				for i := start; i < end && !failed.Load(); i++ {
					if err := fn(acc, i); err != nil {
						failed.Store(true)
						return err
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return accs, err
	}
	return accs, nil
}

// Each is Map without accumulators.
func Each(d Driver, n int, fn func(i int) error) error {
	_, err := Map(d, n, func(int) struct{} { return struct{}{} }, func(_ struct{}, i int) error {
		return fn(i)
	})
	return err
}
