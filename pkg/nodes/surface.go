package nodes

import (
	"fmt"
	"math"

	"github.com/chazu/voxgraph/pkg/engine"
	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/graph"
	"github.com/chazu/voxgraph/pkg/mesh"
	"github.com/chazu/voxgraph/pkg/sampler"
	"github.com/chewxy/math32"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Input slots of Displacement.
const (
	DisplacementSurface = iota
	DisplacementDistance
	DisplacementMaximum
	DisplacementBillow
)

// Displacement pushes its surface input outward by the magnitude of the
// distance input, evaluated at every narrow-band voxel with the closest
// surface point and the signed distance in the context. The maximum input
// bounds the displacement and sizes the exterior band. A positive billow
// exponent attenuates the displacement by the upstream displacement grid
// raised to that power, so chained displacements billow.
//
// Besides the rebuilt mesh the node exposes its normalized displacement
// (displacement / maximum) as a fog grid.
type Displacement struct {
	graph.Base
	// Resolution below 1 coarsens the working grid by 1/Resolution.
	Resolution float32
	mesh       *mesh.Mesh
	grid       *field.ScalarField
}

func NewDisplacement(surface, distance, maximum, billow graph.Node) *Displacement {
	n := &Displacement{Resolution: 1, mesh: &mesh.Mesh{}, grid: field.NewFog(field.Linear(1))}
	n.Init("displacement", surface, distance, maximum, billow)
	return n
}

func (n *Displacement) Evaluate(in *graph.Input) error {
	n.mesh = &mesh.Mesh{}
	n.grid = field.NewFog(in.Transform)
	k, err := kernelOf(in)
	if err != nil {
		return err
	}

	ctx0 := in.Sample(nil, v3.Vec{})
	amp := engine.Scalar(&ctx0, n.Input(DisplacementMaximum))
	billow := engine.ScalarOr(&ctx0, n.Input(DisplacementBillow), 0)

	tr := in.Transform
	if n.Resolution > 0 && n.Resolution < 1 {
		tr = tr.Scaled(1 / float64(n.Resolution))
	}
	n.grid = field.NewFog(tr)

	bvc := in.Margin()
	nvc := math.Ceil(math.Max(float64(amp), 0)/tr.Voxel() + bvc)
	ls, err := k.SignedDistance(engine.SurfaceOf(in, n, DisplacementSurface), tr, nvc, bvc)
	if err != nil {
		return fmt.Errorf("displacement: %w", err)
	}
	in.Logger().Debug("displacing level-set", "node", n.Label(),
		"amplitude", amp, "band_voxels", nvc, "active", ls.ActiveCount())

	disp := field.NewFog(tr)
	distance := n.Input(DisplacementDistance)
	err = eachVoxel(in, disp, ls.ActiveCoords(), func(w *voxelWorker, c field.Coord) {
		ctx := in.Sample(w.State, tr.IndexToWorld(c))
		ctx.SurfacePoint = sampler.ClosestPoint(ls, c)
		ctx.Distance = ls.Value(c)
		w.Scalar.Set(c, math32.Abs(engine.Scalar(&ctx, distance)))
	})
	if err != nil {
		return fmt.Errorf("displacement: %w", err)
	}

	var prior *field.ScalarField
	if billow > 0 {
		if out, ok := engine.OutputOf(n, DisplacementSurface); ok && out.Has(graph.OutputScalar) {
			prior = out.Scalar
		} else {
			in.Logger().Debug("surface input has no displacement grid, billow skipped", "node", n.Label())
		}
	}
	disp.ForEachActive(func(c field.Coord, f float32) {
		if prior != nil {
			f *= math32.Pow(min(sampler.Scalar(prior, tr.IndexToWorld(c)), 1), billow)
		}
		if amp > 0 {
			n.grid.Set(c, f/amp)
		}
		ls.Set(c, ls.Value(c)-f)
	})

	in.Logger().Debug("rebuilding surface", "node", n.Label())
	m, err := k.MeshFromLevelSet(ls, in.MeshIso)
	if err != nil {
		return fmt.Errorf("displacement: %w", err)
	}
	n.mesh = m
	return nil
}

func (n *Displacement) Output() graph.Output {
	return graph.Output{Kind: graph.OutputMesh | graph.OutputScalar, Mesh: n.mesh, Scalar: n.grid}
}

func (n *Displacement) Clear() {
	n.mesh.Clear()
	n.grid.Clear()
}

// Input slots of CSG.
const (
	CSGA = iota
	CSGB
)

// CSG rasterizes both surface inputs with the same transform and band,
// combines the level-sets and rebuilds the mesh.
type CSG struct {
	graph.Base
	Op   field.CSGOp
	mesh *mesh.Mesh
}

func NewCSG(op field.CSGOp, a, b graph.Node) *CSG {
	n := &CSG{Op: op, mesh: &mesh.Mesh{}}
	n.Init("csg", a, b)
	return n
}

func (n *CSG) Evaluate(in *graph.Input) error {
	n.mesh = &mesh.Mesh{}
	k, err := kernelOf(in)
	if err != nil {
		return err
	}
	bvc := in.Margin()
	a, err := k.SignedDistance(engine.SurfaceOf(in, n, CSGA), in.Transform, bvc, bvc)
	if err != nil {
		return fmt.Errorf("csg: %w", err)
	}
	b, err := k.SignedDistance(engine.SurfaceOf(in, n, CSGB), in.Transform, bvc, bvc)
	if err != nil {
		return fmt.Errorf("csg: %w", err)
	}
	in.Logger().Debug("csg operating surface", "node", n.Label(), "op", n.Op.String())
	field.CSG(a, b, n.Op)
	m, err := k.MeshFromLevelSet(a, in.MeshIso)
	if err != nil {
		return fmt.Errorf("csg: %w", err)
	}
	n.mesh = m
	return nil
}

func (n *CSG) Output() graph.Output { return graph.MeshOutput(n.mesh) }
func (n *CSG) Clear()               { n.mesh.Clear() }
