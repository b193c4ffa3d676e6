// Package value provides the per-sample value nodes that parameterize
// producers: constants, accessors for the invocation context, arithmetic,
// field sampling and noise.
package value

import (
	"fmt"
	"strings"

	"github.com/chazu/voxgraph/pkg/graph"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Const is a scalar constant.
type Const struct {
	graph.Base
	Value float32
}

// NewConst returns a scalar constant node.
func NewConst(v float32) *Const {
	n := &Const{Value: v}
	n.Init("const")
	return n
}

func (n *Const) Scalar(*graph.Context) float32 { return n.Value }

// VectorConst is a vector constant.
type VectorConst struct {
	graph.Base
	Value v3.Vec
}

// NewVectorConst returns a vector constant node.
func NewVectorConst(v v3.Vec) *VectorConst {
	n := &VectorConst{Value: v}
	n.Init("vconst")
	return n
}

func (n *VectorConst) Vector(*graph.Context) v3.Vec { return n.Value }

// Attribute names a member of the invocation context.
type Attribute uint8

const (
	Position Attribute = iota
	SurfacePoint
	SampledPosition
	Distance
	Density
	SampledDensity
	Fraction
	// GlobalDistance is the dominant surface distance at the sampled
	// position.
	GlobalDistance
)

var attributeNames = [...]string{
	Position:        "position",
	SurfacePoint:    "surface-point",
	SampledPosition: "sampled-position",
	Distance:        "distance",
	Density:         "density",
	SampledDensity:  "sampled-density",
	Fraction:        "fraction",
	GlobalDistance:  "global-distance",
}

func (a Attribute) String() string {
	if int(a) < len(attributeNames) {
		return attributeNames[a]
	}
	return fmt.Sprintf("Attribute(%d)", a)
}

// IsVector reports whether the attribute is vector valued.
func (a Attribute) IsVector() bool {
	return a <= SampledPosition
}

// ParseAttribute parses an attribute name.
func ParseAttribute(s string) (Attribute, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range attributeNames {
		if name == s {
			return Attribute(i), nil
		}
	}
	return 0, fmt.Errorf("value: unknown attribute %q", s)
}

// ScalarAttribute reads a scalar member of the context.
type ScalarAttribute struct {
	graph.Base
	Attr Attribute
}

func (n *ScalarAttribute) Scalar(ctx *graph.Context) float32 {
	switch n.Attr {
	case Distance:
		return ctx.Distance
	case Density:
		return ctx.Density
	case SampledDensity:
		return ctx.SampledDensity
	case Fraction:
		return ctx.Fraction
	case GlobalDistance:
		return ctx.GlobalDistance(ctx.SampledPosition)
	}
	return 0
}

// VectorAttribute reads a vector member of the context.
type VectorAttribute struct {
	graph.Base
	Attr Attribute
}

func (n *VectorAttribute) Vector(ctx *graph.Context) v3.Vec {
	switch n.Attr {
	case Position:
		return ctx.Position
	case SurfacePoint:
		return ctx.SurfacePoint
	case SampledPosition:
		return ctx.SampledPosition
	}
	return v3.Vec{}
}

// NewAttribute returns a ScalarAttribute or VectorAttribute for a.
func NewAttribute(a Attribute) graph.Node {
	if a.IsVector() {
		n := &VectorAttribute{Attr: a}
		n.Init(a.String())
		return n
	}
	n := &ScalarAttribute{Attr: a}
	n.Init(a.String())
	return n
}
