package nodes

import (
	"fmt"
	"math"

	"github.com/chazu/voxgraph/pkg/engine"
	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/graph"
	"github.com/chazu/voxgraph/pkg/sampler"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// SurfaceToFog converts its surface input to a fog volume. The interior
// band reaches Cutoff past the surface plus the background margin, and the
// fog ramps from 0 at the surface to 1 across that whole band.
type SurfaceToFog struct {
	graph.Base
	Cutoff float32
	fog    *field.ScalarField
}

func NewSurfaceToFog(surface graph.Node, cutoff float32) *SurfaceToFog {
	n := &SurfaceToFog{Cutoff: cutoff, fog: field.NewFog(field.Linear(1))}
	n.Init("surface-to-fog", surface)
	return n
}

func (n *SurfaceToFog) Evaluate(in *graph.Input) error {
	n.fog = field.NewFog(in.Transform)
	k, err := kernelOf(in)
	if err != nil {
		return err
	}
	m := engine.SurfaceOf(in, n, 0)
	bvc := in.Margin()
	nvc := math.Ceil(float64(n.Cutoff)/in.Transform.Voxel() + bvc)
	ls, err := k.SignedDistance(m, in.Transform, bvc, nvc)
	if err != nil {
		return fmt.Errorf("surface to fog: %w", err)
	}
	in.Logger().Debug("converting fog volume", "node", n.Label(), "interior_voxels", nvc)
	field.SdfToFog(ls, 0)
	n.fog = ls
	return nil
}

func (n *SurfaceToFog) Output() graph.Output { return graph.FogOutput(n.fog) }
func (n *SurfaceToFog) Clear()               { n.fog.Clear() }

// Input slots of Composite.
const (
	CompositeFog = iota
	CompositeValue
)

// Composite evaluates its value input at every active voxel of its fog
// input, with the voxel density as the context density, and writes the
// result.
type Composite struct {
	graph.Base
	fog *field.ScalarField
}

func NewComposite(fog, value graph.Node) *Composite {
	n := &Composite{fog: field.NewFog(field.Linear(1))}
	n.Init("composite", fog, value)
	return n
}

func (n *Composite) Evaluate(in *graph.Input) error {
	n.fog = field.NewFog(in.Transform)
	src := engine.FogOf(in, n, CompositeFog)
	value := n.Input(CompositeValue)
	in.Logger().Debug("compositing fog volume", "node", n.Label(), "active", src.ActiveCount())
	return eachVoxel(in, n.fog, src.ActiveCoords(), func(w *voxelWorker, c field.Coord) {
		d := src.Value(c)
		ctx := in.Sample(w.State, src.Transform.IndexToWorld(c))
		ctx.Density = d
		ctx.SampledDensity = d
		w.Scalar.Set(c, engine.Scalar(&ctx, value))
	})
}

func (n *Composite) Output() graph.Output { return graph.FogOutput(n.fog) }
func (n *Composite) Clear()               { n.fog.Clear() }

// Input slots of Combine.
const (
	CombineA = iota
	CombineB
)

// Combine applies a voxelwise operator to copies of its two fog inputs.
type Combine struct {
	graph.Base
	Op  field.Op
	fog *field.ScalarField
}

func NewCombine(op field.Op, a, b graph.Node) *Combine {
	n := &Combine{Op: op, fog: field.NewFog(field.Linear(1))}
	n.Init("combine", a, b)
	return n
}

func (n *Combine) Evaluate(in *graph.Input) error {
	a := engine.FogOf(in, n, CombineA).DeepCopy()
	b := engine.FogOf(in, n, CombineB).DeepCopy()
	in.Logger().Debug("combining fog volumes", "node", n.Label(), "op", n.Op.String())
	field.Composite(a, b, n.Op)
	n.fog = a
	return nil
}

func (n *Combine) Output() graph.Output { return graph.FogOutput(n.fog) }
func (n *Combine) Clear()               { n.fog.Clear() }

// Input slots of Advection.
const (
	AdvectionFog = iota
	AdvectionThreshold
	AdvectionDistance
	AdvectionIterations
	AdvectionDensity
	AdvectionVelocity
)

// Advection traces each active voxel of its fog input along the velocity
// input for up to the given number of steps covering the given distance,
// sampling the input fog at each stepped position, and writes the density
// input evaluated at the end of the trace. Voxels deeper than one voxel
// inside the pass surface are skipped; voxels already denser than the
// threshold become 0. An unconnected threshold is 1 and an unconnected
// density input reads the sampled density.
type Advection struct {
	graph.Base
	// BreakOnThreshold stops a trace once the density exceeds the
	// threshold.
	BreakOnThreshold bool
	fog              *field.ScalarField
}

func NewAdvection(fog, threshold, distance, iterations, density, velocity graph.Node) *Advection {
	n := &Advection{fog: field.NewFog(field.Linear(1))}
	n.Init("advection", fog, threshold, distance, iterations, density, velocity)
	return n
}

func (n *Advection) Evaluate(in *graph.Input) error {
	n.fog = field.NewFog(in.Transform)
	src := engine.FogOf(in, n, AdvectionFog)
	vs := float32(in.Transform.Voxel())
	in.Logger().Debug("advecting fog volume", "node", n.Label(), "active", src.ActiveCount())
	return eachVoxel(in, n.fog, src.ActiveCoords(), func(w *voxelWorker, c field.Coord) {
		n.trace(in, w, src, c, vs)
	})
}

func (n *Advection) trace(in *graph.Input, w *voxelWorker, src *field.ScalarField, c field.Coord, vs float32) {
	pos := src.Transform.IndexToWorld(c)
	f := src.Value(c)
	ctx := in.Sample(w.State, pos)
	ctx.SurfacePoint = pos
	ctx.Density = f
	ctx.SampledDensity = f

	if ctx.GlobalDistance(pos) < -vs {
		return
	}
	th := engine.ScalarOr(&ctx, n.Input(AdvectionThreshold), 1)
	if f > th {
		w.Scalar.Set(c, 0)
		return
	}

	iters := engine.Int(&ctx, n.Input(AdvectionIterations))
	var step float64
	if iters > 0 {
		step = float64(engine.Scalar(&ctx, n.Input(AdvectionDistance))) / float64(iters)
	}
	p := f
	rc := pos
	for i := 0; i < iters; i++ {
		p = engine.ScalarOr(&ctx, n.Input(AdvectionDensity), ctx.SampledDensity)
		if p > th && n.BreakOnThreshold {
			break
		}
		v := engine.Vector(&ctx, n.Input(AdvectionVelocity))
		if v.Dot(v) < velocityEpsilon {
			break
		}
		rc = rc.Add(v.MulScalar(step))

		ctx.SurfacePoint = v3.Vec{}
		ctx.SampledPosition = rc
		ctx.SampledDensity = sampler.Scalar(src, rc)
		ctx.Fraction = float32(i+1) / float32(iters)
		ctx.Invalidate()
	}
	w.Scalar.Set(c, p)
}

func (n *Advection) Output() graph.Output { return graph.FogOutput(n.fog) }
func (n *Advection) Clear()               { n.fog.Clear() }
