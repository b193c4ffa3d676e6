package graph

import (
	"strings"

	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/mesh"
)

// OutputKind is a bit set of the representations a producer exposes.
type OutputKind uint8

const (
	OutputScalar OutputKind = 1 << iota
	OutputVector
	OutputMesh

	OutputNone OutputKind = 0
)

func (k OutputKind) String() string {
	if k == OutputNone {
		return "none"
	}
	var parts []string
	if k&OutputScalar != 0 {
		parts = append(parts, "scalar")
	}
	if k&OutputVector != 0 {
		parts = append(parts, "vector")
	}
	if k&OutputMesh != 0 {
		parts = append(parts, "mesh")
	}
	return strings.Join(parts, "|")
}

// Output is the tagged result of a producer. Only the members named by Kind
// are meaningful.
type Output struct {
	Kind   OutputKind
	Scalar *field.ScalarField
	Vector *field.VectorField
	Mesh   *mesh.Mesh
}

// Has reports whether every kind in k is present.
func (o Output) Has(k OutputKind) bool {
	return o.Kind&k == k
}

// FogOutput wraps a scalar field.
func FogOutput(f *field.ScalarField) Output {
	return Output{Kind: OutputScalar, Scalar: f}
}

// MeshOutput wraps a mesh.
func MeshOutput(m *mesh.Mesh) Output {
	return Output{Kind: OutputMesh, Mesh: m}
}
