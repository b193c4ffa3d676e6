package nodes

import (
	"fmt"

	"github.com/chazu/voxgraph/pkg/engine"
	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/graph"
	"github.com/chazu/voxgraph/pkg/kernel"
	"github.com/chazu/voxgraph/pkg/mesh"
	"github.com/chazu/voxgraph/pkg/sampler"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// SmokeCache reads density and velocity grids named by a smoke-cache
// object from the asset reader and resamples them onto the pass
// transform. I/O failures are logged and leave the output empty.
type SmokeCache struct {
	graph.Base
	fog *field.ScalarField
	vel *field.VectorField
}

func NewSmokeCache() *SmokeCache {
	n := &SmokeCache{fog: field.NewFog(field.Linear(1)), vel: field.NewVector(field.Linear(1))}
	n.Init("smoke-cache")
	return n
}

func (n *SmokeCache) Evaluate(in *graph.Input) error {
	n.fog = field.NewFog(in.Transform)
	n.vel = field.NewVector(in.Transform)
	sc, ok := objectAs[*graph.SmokeCache](in, n)
	if !ok {
		return nil
	}
	log := in.Logger().With("node", n.Label(), "path", sc.Path)
	if in.Assets == nil {
		log.Warn("smoke cache: no asset reader configured")
		return nil
	}
	h, err := in.Assets.Open(sc.Path)
	if err != nil {
		log.Warn("smoke cache: open failed", "err", err)
		return nil
	}
	defer h.Close()

	if sc.DensityGrid != "" {
		src, err := h.ReadScalar(sc.DensityGrid)
		if err != nil {
			log.Warn("smoke cache: read density failed", "grid", sc.DensityGrid, "err", err)
		} else {
			log.Debug("resampling smoke cache", "grid", sc.DensityGrid, "active", src.ActiveCount())
			sampler.Resample(src, n.fog, 0)
			field.PruneScalar(n.fog, 0)
		}
	}
	if sc.VelocityGrid != "" {
		src, err := h.ReadVector(sc.VelocityGrid)
		if err != nil {
			log.Warn("smoke cache: read velocity failed", "grid", sc.VelocityGrid, "err", err)
		} else {
			log.Debug("resampling smoke cache", "grid", sc.VelocityGrid, "active", src.ActiveCount())
			sampler.ResampleVector(src, n.vel, 0)
			n.vel.Prune(isZeroVec)
		}
	}
	return nil
}

func (n *SmokeCache) Output() graph.Output {
	return graph.Output{Kind: graph.OutputScalar | graph.OutputVector, Scalar: n.fog, Vector: n.vel}
}

func (n *SmokeCache) Clear() {
	n.fog.Clear()
	n.vel.Clear()
}

func isZeroVec(v v3.Vec) bool {
	return v == v3.Vec{}
}

// FogPostInput exposes the fog of a post-fog object. The field is shared,
// not copied.
type FogPostInput struct {
	graph.Base
	fog *field.ScalarField
}

func NewFogPostInput() *FogPostInput {
	n := &FogPostInput{fog: field.NewFog(field.Linear(1))}
	n.Init("fog-post")
	return n
}

func (n *FogPostInput) Evaluate(in *graph.Input) error {
	n.fog = field.NewFog(in.Transform)
	pf, ok := objectAs[*graph.PostFog](in, n)
	if !ok || pf.Fog == nil {
		return nil
	}
	n.fog = pf.Fog
	return nil
}

func (n *FogPostInput) Output() graph.Output { return graph.FogOutput(n.fog) }

// Clear drops the reference; the shared field is left untouched.
func (n *FogPostInput) Clear() {
	n.fog = field.NewFog(n.fog.Transform)
}

// SurfaceInput copies the mesh of a surface object.
type SurfaceInput struct {
	graph.Base
	mesh *mesh.Mesh
}

func NewSurfaceInput() *SurfaceInput {
	n := &SurfaceInput{mesh: &mesh.Mesh{}}
	n.Init("surface-input")
	return n
}

func (n *SurfaceInput) Evaluate(in *graph.Input) error {
	n.mesh = &mesh.Mesh{}
	so, ok := objectAs[*graph.SurfaceObject](in, n)
	if !ok || so.Mesh == nil {
		return nil
	}
	if err := so.Mesh.Validate(); err != nil {
		return fmt.Errorf("surface input: %w", err)
	}
	n.mesh = so.Mesh.Clone()
	return nil
}

func (n *SurfaceInput) Output() graph.Output { return graph.MeshOutput(n.mesh) }
func (n *SurfaceInput) Clear()               { n.mesh.Clear() }

// Input slots of SolidInput.
const (
	SolidPosition = iota
	SolidScale
)

// SolidInput builds an analytic solid scaled by its scale input and moved
// to its position input. Both are evaluated once at the origin.
type SolidInput struct {
	graph.Base
	Shape kernel.Shape
	mesh  *mesh.Mesh
}

func NewSolidInput(shape kernel.Shape, position, scale graph.Node) *SolidInput {
	n := &SolidInput{Shape: shape, mesh: &mesh.Mesh{}}
	n.Init("solid", position, scale)
	return n
}

func (n *SolidInput) Evaluate(in *graph.Input) error {
	n.mesh = &mesh.Mesh{}
	var (
		m   *mesh.Mesh
		err error
	)
	if n.Shape == kernel.ShapeCube {
		m = kernel.UnitCube()
	} else {
		k, kerr := kernelOf(in)
		if kerr != nil {
			return kerr
		}
		if m, err = k.Solid(n.Shape); err != nil {
			return fmt.Errorf("solid: %w", err)
		}
	}
	ctx := in.Sample(nil, v3.Vec{})
	pos := engine.VectorOr(&ctx, n.Input(SolidPosition), v3.Vec{})
	scale := engine.VectorOr(&ctx, n.Input(SolidScale), v3.Vec{X: 1, Y: 1, Z: 1})
	m.Transform(scale, pos)
	n.mesh = m
	return nil
}

func (n *SolidInput) Output() graph.Output { return graph.MeshOutput(n.mesh) }
func (n *SolidInput) Clear()               { n.mesh.Clear() }

// Input slots of Transform.
const (
	TransformSurface = iota
	TransformTranslate
	TransformScale
)

// Transform scales and then translates the mesh of its surface input. The
// vectors are evaluated once at the origin.
type Transform struct {
	graph.Base
	mesh *mesh.Mesh
}

func NewTransform(surface, translate, scale graph.Node) *Transform {
	n := &Transform{mesh: &mesh.Mesh{}}
	n.Init("transform", surface, translate, scale)
	return n
}

func (n *Transform) Evaluate(in *graph.Input) error {
	m := engine.SurfaceOf(in, n, TransformSurface).Clone()
	ctx := in.Sample(nil, v3.Vec{})
	t := engine.VectorOr(&ctx, n.Input(TransformTranslate), v3.Vec{})
	s := engine.VectorOr(&ctx, n.Input(TransformScale), v3.Vec{X: 1, Y: 1, Z: 1})
	m.Transform(s, t)
	n.mesh = m
	return nil
}

func (n *Transform) Output() graph.Output { return graph.MeshOutput(n.mesh) }
func (n *Transform) Clear()               { n.mesh.Clear() }
