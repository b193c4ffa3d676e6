package value

import (
	"github.com/chazu/voxgraph/pkg/engine"
	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/graph"
	"github.com/chazu/voxgraph/pkg/sampler"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// FieldSample samples the scalar output of its producer input at the
// sampled position, or at the position of its optional vector input.
// Without a producer it falls back to the pass fog.
type FieldSample struct {
	graph.Base
}

func NewFieldSample(src, at graph.Node) *FieldSample {
	n := &FieldSample{}
	n.Init("sample", src, at)
	return n
}

func (n *FieldSample) Scalar(ctx *graph.Context) float32 {
	var f *field.ScalarField
	if n.Input(0) == nil {
		if ctx.Input == nil || ctx.Input.Fog == nil {
			return 0
		}
		f = ctx.Input.Fog
	} else {
		f = engine.FogOf(ctx.Input, n, 0)
	}
	return sampler.Scalar(f, samplePoint(ctx, n.Input(1)))
}

// VectorFieldSample samples the vector output of its producer input, such
// as the velocity of a particle field.
type VectorFieldSample struct {
	graph.Base
}

func NewVectorFieldSample(src, at graph.Node) *VectorFieldSample {
	n := &VectorFieldSample{}
	n.Init("vsample", src, at)
	return n
}

func (n *VectorFieldSample) Vector(ctx *graph.Context) v3.Vec {
	return sampler.Vector(engine.VectorFieldOf(ctx.Input, n, 0), samplePoint(ctx, n.Input(1)))
}

func samplePoint(ctx *graph.Context, at graph.Node) v3.Vec {
	if at == nil {
		return ctx.SampledPosition
	}
	return engine.Vector(ctx, at)
}
