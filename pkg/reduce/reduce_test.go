package reduce

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/sampler"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapVisitsEveryIndexOnce(t *testing.T) {
	for _, n := range []int{0, 1, 63, 64, 1000, 4097} {
		seen := make([]atomic.Int32, n)
		accs, err := Map(Driver{Workers: 4, Grain: 16}, n, func(int) *int { return new(int) },
			func(acc *int, i int) error {
				seen[i].Add(1)
				*acc++
				return nil
			})
		require.NoError(t, err)
		total := 0
		for _, a := range accs {
			total += *a
		}
		assert.Equal(t, n, total)
		for i := range seen {
			require.Equal(t, int32(1), seen[i].Load(), "index %d", i)
		}
	}
}

func TestMapStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	_, err := Map(Driver{Workers: 4, Grain: 8}, 100000, func(int) struct{} { return struct{}{} },
		func(_ struct{}, i int) error {
			calls.Add(1)
			if i == 10 {
				return boom
			}
			return nil
		})
	assert.ErrorIs(t, err, boom)
	assert.Less(t, int(calls.Load()), 100000)
}

func TestMapRecoversPanic(t *testing.T) {
	err := Each(Driver{Workers: 2}, 500, func(i int) error {
		if i == 250 {
			panic("bad voxel")
		}
		return nil
	})
	assert.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "bad voxel")
}

func TestForReplaceIsSingleWorker(t *testing.T) {
	d := Driver{Workers: 8, Grain: 32}
	assert.Equal(t, 1, d.For(field.OpReplace).Workers)
	assert.Equal(t, 8, d.For(field.OpMax).Workers)
	assert.Equal(t, 32, d.For(field.OpReplace).Grain)
}

func depositParticles(t *testing.T, d Driver) *field.ScalarField {
	t.Helper()
	pts := make([]v3.Vec, 2000)
	for i := range pts {
		f := float64(i)
		pts[i] = v3.Vec{X: 0.37 * f / 100, Y: -0.11 * float64(i%50), Z: 0.05 * float64(i%7)}
	}
	dst := field.NewFog(field.Linear(0.2))
	err := Deposit(d, dst, nil, len(pts), field.OpSum, nil, func(acc *Accum[struct{}], i int) error {
		sampler.Splat(acc.Scalar, pts[i], 1)
		return nil
	})
	require.NoError(t, err)
	return dst
}

func TestDepositMatchesSerial(t *testing.T) {
	serial := depositParticles(t, Serial)
	parallel := depositParticles(t, Driver{Workers: 6, Grain: 32})
	require.Equal(t, serial.ActiveCoords(), parallel.ActiveCoords())
	serial.ForEachActive(func(c field.Coord, v float32) {
		assert.InDelta(t, v, parallel.Value(c), 1e-4, "voxel %v", c)
	})
}

func TestScalarsMin(t *testing.T) {
	dst := field.NewScalar(field.Linear(1), field.ClassLevelSet, 5)
	coords := []field.Coord{}
	for x := 0; x < 300; x++ {
		coords = append(coords, field.Coord{X: x % 30})
	}
	err := Scalars(Driver{Workers: 4, Grain: 10}, dst, coords, field.OpMin, nil,
		func(acc *Accum[struct{}], c field.Coord) error {
			acc.Scalar.Set(c, float32(c.X))
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 30, dst.ActiveCount())
	assert.Equal(t, float32(0), dst.Value(field.Coord{}))
	assert.Equal(t, float32(7), dst.Value(field.Coord{X: 7}))
}

func TestVectorsSum(t *testing.T) {
	dst := field.NewVector(field.Linear(1))
	coords := make([]field.Coord, 200)
	err := Vectors(Driver{Workers: 3, Grain: 4}, dst, coords, field.OpSum, nil,
		func(acc *Accum[struct{}], c field.Coord) error {
			acc.Vector.Modify(c, func(v *v3.Vec) { v.X++ })
			return nil
		})
	require.NoError(t, err)
	assert.InDelta(t, 200, dst.Value(field.Coord{}).X, 1e-9)
}

func TestScalarsFirstContributionKept(t *testing.T) {
	values := []float32{-0.5, 1.5, 3.5}
	coords := make([]field.Coord, 0, 300)
	for i := 0; i < 300; i++ {
		coords = append(coords, field.Coord{X: i % len(values)})
	}
	tests := []struct {
		name string
		op   field.Op
		d    Driver
	}{
		{"max serial", field.OpMax, Serial},
		{"max parallel", field.OpMax, Driver{Workers: 3, Grain: 100}},
		{"min serial", field.OpMin, Serial},
		{"min parallel", field.OpMin, Driver{Workers: 3, Grain: 100}},
		{"mul serial", field.OpMul, Serial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := field.NewFog(field.Linear(1))
			err := Scalars(tt.d, dst, coords, tt.op, nil, func(acc *Accum[struct{}], c field.Coord) error {
				acc.Scalar.Set(c, values[c.X])
				return nil
			})
			require.NoError(t, err)
			for i, v := range values {
				assert.InDelta(t, v, dst.Value(field.Coord{X: i}), 1e-6, "voxel %d", i)
			}
		})
	}
}

func TestDepositVectorsMax(t *testing.T) {
	const n = 1000
	run := func(d Driver) *field.VectorField {
		dst := field.NewVector(field.Linear(1))
		err := Deposit(d, nil, dst, n, field.OpMax, nil, func(acc *Accum[struct{}], i int) error {
			c := field.Coord{X: i % 10}
			f := float64(i)
			acc.Vector.Modify(c, func(v *v3.Vec) {
				*v = v3.Vec{X: math.Max(v.X, f), Y: math.Max(v.Y, f/2), Z: 1}
			})
			return nil
		})
		require.NoError(t, err)
		return dst
	}
	for _, d := range []Driver{Serial, {Workers: 4, Grain: 16}} {
		dst := run(d)
		require.Equal(t, 10, dst.ActiveCount())
		for k := 0; k < 10; k++ {
			want := float64(n - 10 + k)
			assert.Equal(t, v3.Vec{X: want, Y: want / 2, Z: 1}, dst.Value(field.Coord{X: k}))
		}
	}
}

func TestReplaceRunsOnOneWorker(t *testing.T) {
	dst := field.NewFog(field.Linear(1))
	coords := make([]field.Coord, 500)
	var workers atomic.Int32
	err := Scalars(Driver{Workers: 8, Grain: 8}, dst, coords, field.OpReplace,
		func(int) struct{} { workers.Add(1); return struct{}{} },
		func(acc *Accum[struct{}], c field.Coord) error {
			acc.Scalar.Set(c, 1)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, int32(1), workers.Load())
	assert.Equal(t, float32(1), dst.Value(field.Coord{}))
}
