package engine

import (
	"log/slog"
	"math"

	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/graph"
	"github.com/chazu/voxgraph/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func logger(ctx *graph.Context) *slog.Logger {
	if ctx == nil || ctx.Input == nil {
		return slog.Default()
	}
	return ctx.Input.Logger()
}

// AsScalar reports whether n produces per-sample scalars.
func AsScalar(n graph.Node) (graph.ScalarNode, bool) {
	if n == nil {
		return nil, false
	}
	s, ok := n.(graph.ScalarNode)
	return s, ok
}

// AsVector reports whether n produces per-sample vectors.
func AsVector(n graph.Node) (graph.VectorNode, bool) {
	if n == nil {
		return nil, false
	}
	v, ok := n.(graph.VectorNode)
	return v, ok
}

// Scalar evaluates n for ctx. The result is memoized in the context's memo
// under the node's slot until the context is invalidated, so a node shared
// by several consumers runs once per sample. A nil node yields 0; a node
// that does not produce scalars yields 0 and a warning.
func Scalar(ctx *graph.Context, n graph.Node) float32 {
	if n == nil {
		return 0
	}
	s, ok := AsScalar(n)
	if !ok {
		n.Info().WarnOnce(logger(ctx), "node does not produce a scalar")
		return 0
	}
	m := ctx.Memo()
	slot := n.Info().Slot()
	if m != nil {
		if v, hit := m.Scalar(slot); hit {
			return v
		}
	}
	v := s.Scalar(ctx)
	if m != nil {
		m.PutScalar(slot, v)
	}
	return v
}

// ScalarOr is Scalar with a default for an unconnected input.
func ScalarOr(ctx *graph.Context, n graph.Node, def float32) float32 {
	if n == nil {
		return def
	}
	return Scalar(ctx, n)
}

// Int evaluates n as a non-negative count, rounding to the nearest
// integer.
func Int(ctx *graph.Context, n graph.Node) int {
	v := Scalar(ctx, n)
	if !(v > 0) {
		return 0
	}
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v + 0.5)
}

// Vector is Scalar for vector-valued nodes.
func Vector(ctx *graph.Context, n graph.Node) v3.Vec {
	if n == nil {
		return v3.Vec{}
	}
	vn, ok := AsVector(n)
	if !ok {
		n.Info().WarnOnce(logger(ctx), "node does not produce a vector")
		return v3.Vec{}
	}
	m := ctx.Memo()
	slot := n.Info().Slot()
	if m != nil {
		if v, hit := m.Vector(slot); hit {
			return v
		}
	}
	v := vn.Vector(ctx)
	if m != nil {
		m.PutVector(slot, v)
	}
	return v
}

// VectorOr is Vector with a default for an unconnected input.
func VectorOr(ctx *graph.Context, n graph.Node, def v3.Vec) v3.Vec {
	if n == nil {
		return def
	}
	return Vector(ctx, n)
}

// output returns the output of input i of consumer if it is a producer
// exposing kind. Otherwise it warns on the consumer and reports false.
func output(in *graph.Input, consumer graph.Node, i int, kind graph.OutputKind) (graph.Output, bool) {
	b := consumer.Info()
	up := b.Input(i)
	if up == nil {
		b.WarnOnce(in.Logger(), "input not connected", "input", i, "want", kind.String())
		return graph.Output{}, false
	}
	p, ok := up.(graph.Producer)
	if !ok {
		b.WarnOnce(in.Logger(), "input is not a producer", "input", i, "upstream", up.Info().Label())
		return graph.Output{}, false
	}
	out := p.Output()
	if !out.Has(kind) {
		b.WarnOnce(in.Logger(), "input has the wrong output kind", "input", i,
			"upstream", up.Info().Label(), "have", out.Kind.String(), "want", kind.String())
		return graph.Output{}, false
	}
	return out, true
}

// FogOf returns the scalar field produced by input i of consumer. On a
// type mismatch it warns and returns an empty fog volume on the pass
// transform.
func FogOf(in *graph.Input, consumer graph.Node, i int) *field.ScalarField {
	out, ok := output(in, consumer, i, graph.OutputScalar)
	if !ok || out.Scalar == nil {
		return field.NewFog(in.Transform)
	}
	return out.Scalar
}

// VectorFieldOf returns the vector field produced by input i of consumer,
// or an empty one on mismatch.
func VectorFieldOf(in *graph.Input, consumer graph.Node, i int) *field.VectorField {
	out, ok := output(in, consumer, i, graph.OutputVector)
	if !ok || out.Vector == nil {
		return field.NewVector(in.Transform)
	}
	return out.Vector
}

// SurfaceOf returns the mesh produced by input i of consumer, or an empty
// mesh on mismatch.
func SurfaceOf(in *graph.Input, consumer graph.Node, i int) *mesh.Mesh {
	out, ok := output(in, consumer, i, graph.OutputMesh)
	if !ok || out.Mesh == nil {
		return &mesh.Mesh{}
	}
	return out.Mesh
}

// OutputOf returns the full output of input i of consumer without a kind
// check. It reports false when the input is not a producer.
func OutputOf(consumer graph.Node, i int) (graph.Output, bool) {
	p, ok := consumer.Info().Input(i).(graph.Producer)
	if !ok {
		return graph.Output{}, false
	}
	return p.Output(), true
}
