package nodes

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/chazu/voxgraph/pkg/asset"
	"github.com/chazu/voxgraph/pkg/engine"
	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/graph"
	"github.com/chazu/voxgraph/pkg/kernel"
	"github.com/chazu/voxgraph/pkg/kernel/sdfx"
	"github.com/chazu/voxgraph/pkg/mesh"
	"github.com/chazu/voxgraph/pkg/reduce"
	"github.com/chazu/voxgraph/pkg/value"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInput(voxel float64, obj graph.Object) (*graph.Input, *bytes.Buffer) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &graph.Input{
		Object:    obj,
		Transform: field.Linear(voxel),
		Kernel:    sdfx.New(reduce.Serial),
		Driver:    reduce.Driver{Workers: 4, Grain: 16},
		Log:       log,
	}, &buf
}

// run evaluates root and everything upstream of it.
func run(t *testing.T, in *graph.Input, root graph.Producer) {
	t.Helper()
	g := graph.New()
	g.AddRoot(root)
	r, err := engine.New(nil).Run(context.Background(), g, in)
	require.NoError(t, err)
	require.NoError(t, r.Err())
}

func vc(x, y, z float64) *value.VectorConst {
	return value.NewVectorConst(v3.Vec{X: x, Y: y, Z: z})
}

func c(v float32) *value.Const {
	return value.NewConst(v)
}

func requireFieldsEqual(t *testing.T, a, b *field.ScalarField, tol float64) {
	t.Helper()
	require.Equal(t, a.ActiveCount(), b.ActiveCount())
	a.ForEachActive(func(at field.Coord, v float32) {
		require.True(t, b.IsActive(at), "voxel %v missing", at)
		require.InDelta(t, v, b.Value(at), tol, "voxel %v", at)
	})
}

func TestParticleSurfaceSingleSphere(t *testing.T) {
	const voxel = 0.25
	ps := &graph.ParticleSystem{Positions: []v3.Vec{{}}}
	in, _ := newInput(voxel, ps)
	n := NewParticleSurface(c(1), c(0.5))
	run(t, in, n)

	fog := n.Output().Scalar
	require.Equal(t, field.ClassFogVolume, fog.Class)
	require.False(t, fog.Empty())

	coords := fog.ActiveCoords()
	active := make(map[field.Coord]bool, len(coords))
	var centroid v3.Vec
	maxR := 0.0
	for _, at := range coords {
		active[at] = true
		p := fog.Transform.IndexToWorld(at)
		centroid = centroid.Add(p)
		maxR = math.Max(maxR, p.Length())
		v := fog.Value(at)
		assert.True(t, v > 0 && v <= 1, "density %g at %v", v, at)
	}
	centroid = centroid.MulScalar(1 / float64(len(coords)))
	assert.InDelta(t, 0, centroid.Length(), 1e-9)
	assert.InDelta(t, 1.0, maxR, voxel)
	assert.Equal(t, float32(1), fog.Value(field.Coord{}))

	// One 6-connected region.
	seen := map[field.Coord]bool{coords[0]: true}
	queue := []field.Coord{coords[0]}
	for len(queue) > 0 {
		q := queue[0]
		queue = queue[1:]
		for _, d := range [][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}} {
			nb := q.Offset(d[0], d[1], d[2])
			if active[nb] && !seen[nb] {
				seen[nb] = true
				queue = append(queue, nb)
			}
		}
	}
	assert.Equal(t, len(coords), len(seen), "active region is not contiguous")
}

func TestParticleSurfaceRadiusOutOfRange(t *testing.T) {
	ps := &graph.ParticleSystem{Positions: []v3.Vec{{X: 1}}}
	in, buf := newInput(0.25, ps)
	n := NewParticleSurface(c(0.01), c(0.5))
	run(t, in, n)
	assert.Contains(t, buf.String(), "outside rasterizer range")
	assert.False(t, n.Output().Scalar.Empty(), "clamped radius should still rasterize")
}

func TestWrongObjectForcesEmpty(t *testing.T) {
	tests := []struct {
		name string
		obj  graph.Object
		n    graph.Producer
	}{
		{"particle surface", &graph.SurfaceObject{}, NewParticleSurface(c(1), c(0.5))},
		{"particle field", &graph.PostFog{}, NewParticleField(nil, nil)},
		{"smoke cache", &graph.ParticleSystem{}, NewSmokeCache()},
		{"fog post", nil, NewFogPostInput()},
		{"surface input", &graph.ParticleSystem{}, NewSurfaceInput()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, buf := newInput(1, tt.obj)
			run(t, in, tt.n)
			out := tt.n.Output()
			if out.Has(graph.OutputScalar) {
				assert.True(t, out.Scalar.Empty())
			}
			if out.Has(graph.OutputMesh) {
				assert.True(t, out.Mesh.IsEmpty())
			}
			assert.Contains(t, buf.String(), "invalid scene object")
		})
	}
}

func TestParticleFieldSingleParticle(t *testing.T) {
	vel := v3.Vec{X: 1, Y: 2, Z: 3}
	ps := &graph.ParticleSystem{
		Positions:  []v3.Vec{{X: 0.3, Y: 0.7, Z: 0.2}},
		Velocities: []v3.Vec{vel},
	}
	in, _ := newInput(1, ps)
	n := NewParticleField(nil, c(2))
	run(t, in, n)

	out := n.Output()
	require.True(t, out.Has(graph.OutputScalar|graph.OutputVector))
	var total float32
	out.Scalar.ForEachActive(func(_ field.Coord, v float32) { total += v })
	assert.InDelta(t, 2, total, 1e-5)
	assert.Equal(t, 8, out.Vector.ActiveCount())
	out.Vector.ForEachActive(func(at field.Coord, v v3.Vec) {
		assert.InDelta(t, 0, v.Sub(vel).Length(), 1e-5, "voxel %v", at)
	})
}

func TestParticleFieldWithoutVelocities(t *testing.T) {
	ps := &graph.ParticleSystem{Positions: []v3.Vec{{X: 0.5, Y: 0.5, Z: 0.5}}}
	in, _ := newInput(1, ps)
	n := NewParticleField(nil, nil)
	run(t, in, n)
	assert.Equal(t, 1, n.Output().Scalar.ActiveCount())
	assert.Equal(t, float32(1), n.Output().Scalar.Value(field.Coord{}))
	assert.True(t, n.Output().Vector.Empty())
}

func TestNormalizeSkipsZeroWeight(t *testing.T) {
	tr := field.Linear(1)
	vel := field.NewVector(tr)
	w := field.NewFog(tr)
	vel.Set(field.Coord{}, v3.Vec{X: 4})
	w.Set(field.Coord{}, 2)
	vel.Set(field.Coord{X: 1}, v3.Vec{X: 4})
	assert.Equal(t, 1, normalize(vel, w))
	assert.Equal(t, v3.Vec{X: 2}, vel.Value(field.Coord{}))
	assert.False(t, vel.IsActive(field.Coord{X: 1}))
}

func randomParticles(n int) *graph.ParticleSystem {
	r := rand.New(rand.NewSource(1))
	ps := &graph.ParticleSystem{}
	for i := 0; i < n; i++ {
		ps.Positions = append(ps.Positions, v3.Vec{X: r.Float64()*4 - 2, Y: r.Float64()*4 - 2, Z: r.Float64()*4 - 2})
		ps.Velocities = append(ps.Velocities, v3.Vec{X: r.Float64(), Y: r.Float64() - 0.5, Z: 1})
	}
	return ps
}

func TestParticleFieldParallelMatchesSerial(t *testing.T) {
	ps := randomParticles(300)
	serial, _ := newInput(0.5, ps)
	serial.Driver = reduce.Serial
	parallel, _ := newInput(0.5, ps)
	parallel.Driver = reduce.Driver{Workers: 8, Grain: 4}

	a, b := NewParticleField(nil, c(1)), NewParticleField(nil, c(1))
	run(t, serial, a)
	run(t, parallel, b)
	requireFieldsEqual(t, a.Output().Scalar, b.Output().Scalar, 1e-4)
	require.Equal(t, a.Output().Vector.ActiveCount(), b.Output().Vector.ActiveCount())
	a.Output().Vector.ForEachActive(func(at field.Coord, v v3.Vec) {
		require.InDelta(t, 0, v.Sub(b.Output().Vector.Value(at)).Length(), 1e-4)
	})
}

func TestParticleFieldAuxiliaryGrid(t *testing.T) {
	vel := v3.Vec{X: 0, Y: 1, Z: 0}
	ps := &graph.ParticleSystem{
		Positions:  []v3.Vec{{X: 0.1, Y: 0.2, Z: 0.3}, {X: -0.4, Y: 0.1, Z: 0.2}},
		Velocities: []v3.Vec{vel, vel},
	}
	in, buf := newInput(0.25, ps)
	n := NewParticleField(c(1), nil)
	run(t, in, n)

	out := n.Output()
	assert.Equal(t, in.Transform, out.Scalar.Transform)
	assert.False(t, out.Scalar.Empty())
	assert.False(t, out.Vector.Empty())
	out.Vector.ForEachActive(func(_ field.Coord, v v3.Vec) {
		assert.InDelta(t, 0, v.X, 1e-6)
		assert.InDelta(t, 0, v.Z, 1e-6)
		assert.LessOrEqual(t, v.Y, 1+1e-6)
	})
	assert.Contains(t, buf.String(), "upsampling particle fog")
}

type countingDensity struct {
	graph.Base
	calls atomic.Int32
}

func (n *countingDensity) Scalar(ctx *graph.Context) float32 {
	n.calls.Add(1)
	return ctx.SampledDensity
}

func newCountingDensity() *countingDensity {
	n := &countingDensity{}
	n.Init("counting-density")
	return n
}

func rowFog(values ...float32) *field.ScalarField {
	f := field.NewFog(field.Linear(1))
	for x, v := range values {
		f.Set(field.Coord{X: x}, v)
	}
	return f
}

func TestAdvectionOverThresholdSkipsTrace(t *testing.T) {
	src := rowFog(0.9)
	in, _ := newInput(1, &graph.PostFog{Fog: src})
	density := newCountingDensity()
	n := NewAdvection(NewFogPostInput(), c(0.5), c(2), c(4), density, vc(1, 0, 0))
	run(t, in, n)

	out := n.Output().Scalar
	assert.True(t, out.IsActive(field.Coord{}))
	assert.Equal(t, float32(0), out.Value(field.Coord{}))
	assert.Equal(t, int32(0), density.calls.Load())
}

func TestAdvectionTrace(t *testing.T) {
	src := rowFog(0, 0.05, 0.1, 0.15, 0.2)
	tests := []struct {
		name      string
		threshold float32
		brk       bool
		want      float32
	}{
		{"full trace", 0.5, false, 0.075},
		{"no break flag", 0.04, false, 0.075},
		{"break at threshold", 0.04, true, 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, _ := newInput(1, &graph.PostFog{Fog: src})
			density := newCountingDensity()
			n := NewAdvection(NewFogPostInput(), c(tt.threshold), c(2), c(4), density, vc(1, 0, 0))
			n.BreakOnThreshold = tt.brk
			run(t, in, n)
			assert.InDelta(t, tt.want, n.Output().Scalar.Value(field.Coord{}), 1e-6)
		})
	}
}

func TestAdvectionStopsWithoutVelocity(t *testing.T) {
	src := rowFog(0.1, 0.3)
	in, _ := newInput(1, &graph.PostFog{Fog: src})
	density := newCountingDensity()
	n := NewAdvection(NewFogPostInput(), c(0.5), c(2), c(10), density, vc(0, 0, 0))
	run(t, in, n)
	assert.InDelta(t, 0.1, n.Output().Scalar.Value(field.Coord{}), 1e-6)
	assert.InDelta(t, 0.3, n.Output().Scalar.Value(field.Coord{X: 1}), 1e-6)
	assert.Equal(t, int32(2), density.calls.Load())
}

func TestAdvectionSkipsSurfaceInterior(t *testing.T) {
	src := rowFog(0.1, 0.2)
	in, _ := newInput(1, &graph.PostFog{Fog: src})
	in.Surface = field.NewScalar(in.Transform, field.ClassLevelSet, -5)
	n := NewAdvection(NewFogPostInput(), c(0.5), c(2), c(4), nil, vc(1, 0, 0))
	run(t, in, n)
	assert.True(t, n.Output().Scalar.Empty())
}

func gridFog(nx, ny int) *field.ScalarField {
	f := field.NewFog(field.Linear(1))
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			f.Set(field.Coord{X: x, Y: y}, float32(x+y)*0.01+0.01)
		}
	}
	return f
}

func TestCompositeScalesDensity(t *testing.T) {
	src := gridFog(15, 15)
	double := value.NewBinary(value.Mul, value.NewAttribute(value.Density), c(2))

	in, _ := newInput(1, &graph.PostFog{Fog: src})
	par := NewComposite(NewFogPostInput(), double)
	run(t, in, par)

	out := par.Output().Scalar
	require.Equal(t, src.ActiveCount(), out.ActiveCount())
	src.ForEachActive(func(at field.Coord, v float32) {
		assert.InDelta(t, 2*v, out.Value(at), 1e-6)
	})

	serialIn, _ := newInput(1, &graph.PostFog{Fog: src})
	serialIn.Driver = reduce.Serial
	ser := NewComposite(NewFogPostInput(), value.NewBinary(value.Mul, value.NewAttribute(value.Density), c(2)))
	run(t, serialIn, ser)
	requireFieldsEqual(t, ser.Output().Scalar, out, 0)
}

func TestCombine(t *testing.T) {
	a := rowFog(0.1, 0.5, 0.9)
	b := rowFog(0.3, 0.3)
	b.Set(field.Coord{X: 5}, 0.7)

	combine := func(op field.Op, x, y *field.ScalarField) *field.ScalarField {
		in, _ := newInput(1, nil)
		n := NewCombine(op, fogLeaf(x), fogLeaf(y))
		run(t, in, n)
		return n.Output().Scalar
	}

	for _, op := range []field.Op{field.OpMax, field.OpMin, field.OpSum, field.OpMul} {
		t.Run(op.String(), func(t *testing.T) {
			requireFieldsEqual(t, combine(op, a, b), combine(op, b, a), 1e-7)
		})
	}

	t.Run("replace idempotent", func(t *testing.T) {
		once := combine(field.OpReplace, a, b)
		twice := combine(field.OpReplace, once, b)
		requireFieldsEqual(t, once, twice, 0)
		assert.Equal(t, float32(0.3), once.Value(field.Coord{X: 1}))
		assert.Equal(t, float32(0.9), once.Value(field.Coord{X: 2}))
	})

	t.Run("inputs untouched", func(t *testing.T) {
		combine(field.OpSum, a, b)
		assert.Equal(t, float32(0.1), a.Value(field.Coord{}))
	})
}

// fixedFog is a producer with a preset fog output.
type fixedFog struct {
	graph.Base
	f *field.ScalarField
}

func (n *fixedFog) Evaluate(*graph.Input) error { return nil }
func (n *fixedFog) Output() graph.Output        { return graph.FogOutput(n.f) }
func (n *fixedFog) Clear()                      {}

func fogLeaf(f *field.ScalarField) *fixedFog {
	n := &fixedFog{f: f}
	n.Init("fixed-fog")
	return n
}

func TestCombineMismatchedInput(t *testing.T) {
	in, buf := newInput(1, nil)
	n := NewCombine(field.OpMax, NewSolidInput(kernel.ShapeCube, nil, nil), fogLeaf(rowFog(0.5)))
	run(t, in, n)
	assert.Equal(t, 1, n.Output().Scalar.ActiveCount())
	assert.Contains(t, buf.String(), "wrong output kind")
}

func TestSmokeCache(t *testing.T) {
	density := gridFog(4, 4)
	density.Name = "density"
	velocity := field.NewVector(field.Linear(1))
	velocity.Name = "vel"
	velocity.Set(field.Coord{X: 1, Y: 1}, v3.Vec{Z: 2})
	arc := asset.NewArchive()
	arc.AddScalar(density)
	arc.AddVector(velocity)

	obj := &graph.SmokeCache{Path: "cache", DensityGrid: "density", VelocityGrid: "vel"}
	in, _ := newInput(1, obj)
	in.Assets = asset.MemStore{"cache": arc}
	n := NewSmokeCache()
	run(t, in, n)

	out := n.Output()
	density.ForEachActive(func(at field.Coord, v float32) {
		assert.InDelta(t, v, out.Scalar.Value(at), 1e-6)
	})
	assert.InDelta(t, 2, out.Vector.Value(field.Coord{X: 1, Y: 1}).Z, 1e-9)

	t.Run("missing file", func(t *testing.T) {
		in, buf := newInput(1, &graph.SmokeCache{Path: "nope", DensityGrid: "density"})
		in.Assets = asset.MemStore{}
		n := NewSmokeCache()
		run(t, in, n)
		assert.True(t, n.Output().Scalar.Empty())
		assert.Contains(t, buf.String(), "open failed")
	})

	t.Run("missing grid", func(t *testing.T) {
		in, buf := newInput(1, &graph.SmokeCache{Path: "cache", DensityGrid: "smoke", VelocityGrid: "vel"})
		in.Assets = asset.MemStore{"cache": arc}
		n := NewSmokeCache()
		run(t, in, n)
		assert.True(t, n.Output().Scalar.Empty())
		assert.False(t, n.Output().Vector.Empty())
		assert.Contains(t, buf.String(), "read density failed")
	})
}

func TestFogPostInputShares(t *testing.T) {
	src := rowFog(0.5)
	in, _ := newInput(1, &graph.PostFog{Fog: src})
	n := NewFogPostInput()
	run(t, in, n)
	assert.Same(t, src, n.Output().Scalar)
	n.Clear()
	assert.Equal(t, 1, src.ActiveCount())
	assert.True(t, n.Output().Scalar.Empty())
}

func TestSolidInputAndTransform(t *testing.T) {
	in, _ := newInput(1, nil)
	solid := NewSolidInput(kernel.ShapeCube, vc(1, 0, 0), vc(2, 1, 1))
	run(t, in, solid)
	lo, hi, ok := solid.Output().Mesh.Bounds()
	require.True(t, ok)
	assert.Equal(t, v3.Vec{X: -1, Y: -1, Z: -1}, lo)
	assert.Equal(t, v3.Vec{X: 3, Y: 1, Z: 1}, hi)
	assert.Equal(t, 6, solid.Output().Mesh.QuadCount())

	moved := NewTransform(solid, vc(0, 0, 5), nil)
	run(t, in, moved)
	lo, hi, _ = moved.Output().Mesh.Bounds()
	assert.Equal(t, v3.Vec{X: -1, Y: -1, Z: 4}, lo)
	assert.Equal(t, v3.Vec{X: 3, Y: 1, Z: 6}, hi)
}

func TestSurfaceInputCopies(t *testing.T) {
	m := kernel.UnitCube()
	in, _ := newInput(1, &graph.SurfaceObject{Mesh: m})
	n := NewSurfaceInput()
	run(t, in, n)
	out := n.Output().Mesh
	assert.Equal(t, m.VertexCount(), out.VertexCount())
	out.Vertices[0] = v3.Vec{X: 9}
	assert.NotEqual(t, out.Vertices[0], m.Vertices[0])
}

func TestSurfaceToFogCube(t *testing.T) {
	in, _ := newInput(0.1, nil)
	solid := NewSolidInput(kernel.ShapeCube, nil, vc(0.5, 0.5, 0.5))
	n := NewSurfaceToFog(solid, 0.2)
	run(t, in, n)

	fog := n.Output().Scalar
	require.Equal(t, field.ClassFogVolume, fog.Class)
	assert.Equal(t, float32(1), fog.Value(field.Coord{}))
	// The deepest band voxel sits 0.45 inside the faces.
	assert.InDelta(t, 0.05/0.45, fog.Value(field.Coord{X: 4}), 1e-4)
	assert.False(t, fog.IsActive(field.Coord{X: 5}))
	fog.ForEachActive(func(at field.Coord, _ float32) {
		p := fog.Transform.IndexToWorld(at)
		assert.LessOrEqual(t, math.Max(math.Abs(p.X), math.Max(math.Abs(p.Y), math.Abs(p.Z))), 0.5)
	})
}

func TestSurfaceToFogRampFollowsCutoff(t *testing.T) {
	// Unit cube [-1,1] at voxel 0.1 with a margin of 4 voxels. Voxel X=i
	// of the +x row sits 0.95-0.1i inside the face. The ramp spans every
	// band voxel, so its depth is the last band voxel inside cutoff+0.4.
	tests := []struct {
		name   string
		cutoff float32
		depth  float64
		ramp   int
	}{
		{"margin only", 0, 0.35, 3},
		{"half unit", 0.5, 0.85, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, _ := newInput(0.1, nil)
			n := NewSurfaceToFog(NewSolidInput(kernel.ShapeCube, nil, nil), tt.cutoff)
			run(t, in, n)
			fog := n.Output().Scalar

			ramp := 0
			for x := 0; x <= 9; x++ {
				inside := 0.95 - 0.1*float64(x)
				want := math.Min(inside/tt.depth, 1)
				got := fog.Value(field.Coord{X: x})
				assert.InDelta(t, want, got, 1e-3, "voxel %d", x)
				if got < 1 {
					ramp++
				}
			}
			assert.Equal(t, tt.ramp, ramp)
			assert.False(t, fog.IsActive(field.Coord{X: 10}))
		})
	}
}

func meshBoundsX(t *testing.T, m *mesh.Mesh) (lo, hi float64) {
	t.Helper()
	require.False(t, m.IsEmpty())
	l, h, ok := m.Bounds()
	require.True(t, ok)
	return l.X, h.X
}

func TestCSG(t *testing.T) {
	tests := []struct {
		op     field.CSGOp
		lo, hi float64
	}{
		{field.CSGUnion, -0.9, 0.9},
		{field.CSGIntersection, -0.1, 0.1},
		{field.CSGDifference, -0.9, -0.1},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			in, _ := newInput(0.1, nil)
			a := NewSolidInput(kernel.ShapeCube, vc(-0.4, 0, 0), vc(0.5, 0.5, 0.5))
			b := NewSolidInput(kernel.ShapeCube, vc(0.4, 0, 0), vc(0.5, 0.5, 0.5))
			n := NewCSG(tt.op, a, b)
			run(t, in, n)
			lo, hi := meshBoundsX(t, n.Output().Mesh)
			assert.InDelta(t, tt.lo, lo, 0.11)
			assert.InDelta(t, tt.hi, hi, 0.11)
		})
	}
}

func TestDisplacementGrowsSurface(t *testing.T) {
	in, _ := newInput(0.1, nil)
	cube := NewSolidInput(kernel.ShapeCube, nil, nil)
	n := NewDisplacement(cube, c(0.2), c(0.2), c(1))
	run(t, in, n)

	out := n.Output()
	require.True(t, out.Has(graph.OutputMesh|graph.OutputScalar))
	lo, hi := meshBoundsX(t, out.Mesh)
	assert.InDelta(t, -1.2, lo, 0.1)
	assert.InDelta(t, 1.2, hi, 0.1)
	require.False(t, out.Scalar.Empty())
	out.Scalar.ForEachActive(func(_ field.Coord, v float32) {
		assert.InDelta(t, 1, v, 1e-6)
	})
}

func TestDisplacementCoarseResolution(t *testing.T) {
	in, _ := newInput(0.1, nil)
	cube := NewSolidInput(kernel.ShapeCube, nil, nil)
	n := NewDisplacement(cube, c(0.2), c(0.2), nil)
	n.Resolution = 0.5
	run(t, in, n)
	assert.InDelta(t, 0.2, n.Output().Scalar.Transform.Voxel(), 1e-12)
	lo, hi := meshBoundsX(t, n.Output().Mesh)
	assert.InDelta(t, -1.2, lo, 0.2)
	assert.InDelta(t, 1.2, hi, 0.2)
}

func TestSurfaceProducersNeedKernel(t *testing.T) {
	in, _ := newInput(0.1, nil)
	in.Kernel = nil
	n := NewCSG(field.CSGUnion, NewSolidInput(kernel.ShapeCube, nil, nil), NewSolidInput(kernel.ShapeCube, nil, nil))
	g := graph.New()
	g.AddRoot(n)
	r, err := engine.New(nil).Run(context.Background(), g, in)
	require.NoError(t, err)
	require.Len(t, r.Errors, 1)
	assert.ErrorIs(t, r.Err(), ErrNoKernel)
	assert.True(t, n.Output().Mesh.IsEmpty())
}

func TestPipeline(t *testing.T) {
	ps := &graph.ParticleSystem{Positions: []v3.Vec{{X: -0.5}, {X: 0.5}}}
	in, _ := newInput(0.25, ps)

	sphere := NewParticleSurface(c(0.75), c(0.5))
	half := NewComposite(sphere, value.NewBinary(value.Mul, value.NewAttribute(value.Density), c(0.5)))
	merged := NewCombine(field.OpMax, half, sphere)
	g := graph.New()
	g.AddRoot(merged)
	r, err := engine.New(nil).Run(context.Background(), g, in)
	require.NoError(t, err)
	require.True(t, r.OK())
	assert.Equal(t, 3, r.Evaluated)

	out := merged.Output().Scalar
	requireFieldsEqual(t, sphere.Output().Scalar, out, 0)
}
