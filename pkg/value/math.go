package value

import (
	"fmt"
	"strings"

	"github.com/chazu/voxgraph/pkg/engine"
	"github.com/chazu/voxgraph/pkg/graph"
	"github.com/chewxy/math32"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// BinaryOp is a scalar arithmetic operator.
type BinaryOp uint8

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Min
	Max
	Pow
)

var binaryNames = [...]string{Add: "+", Sub: "-", Mul: "*", Div: "/", Min: "min", Max: "max", Pow: "pow"}

func (op BinaryOp) String() string {
	if int(op) < len(binaryNames) {
		return binaryNames[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", op)
}

// ParseBinaryOp accepts the operator symbols and the words add, sub, mul
// and div.
func ParseBinaryOp(s string) (BinaryOp, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "+", "add":
		return Add, nil
	case "-", "sub":
		return Sub, nil
	case "*", "mul":
		return Mul, nil
	case "/", "div":
		return Div, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	case "pow", "^":
		return Pow, nil
	}
	return 0, fmt.Errorf("value: unknown operator %q", s)
}

// Apply computes a op b. Division by zero yields 0, and so does a power
// that is not a real number.
func (op BinaryOp) Apply(a, b float32) float32 {
	switch op {
	case Add:
		return a + b
	case Sub:
		return a - b
	case Mul:
		return a * b
	case Div:
		if b == 0 {
			return 0
		}
		return a / b
	case Min:
		return min(a, b)
	case Max:
		return max(a, b)
	case Pow:
		v := math32.Pow(a, b)
		if math32.IsNaN(v) {
			return 0
		}
		return v
	}
	return 0
}

// Binary combines two scalar inputs.
type Binary struct {
	graph.Base
	Op BinaryOp
}

// NewBinary returns a node computing a op b.
func NewBinary(op BinaryOp, a, b graph.Node) *Binary {
	n := &Binary{Op: op}
	n.Init("math", a, b)
	return n
}

func (n *Binary) Scalar(ctx *graph.Context) float32 {
	return n.Op.Apply(engine.Scalar(ctx, n.Input(0)), engine.Scalar(ctx, n.Input(1)))
}

// Abs is the absolute value of its input.
type Abs struct {
	graph.Base
}

func NewAbs(x graph.Node) *Abs {
	n := &Abs{}
	n.Init("abs", x)
	return n
}

func (n *Abs) Scalar(ctx *graph.Context) float32 {
	return math32.Abs(engine.Scalar(ctx, n.Input(0)))
}

// Clamp limits x to [lo, hi]. Unconnected bounds default to 0 and 1.
type Clamp struct {
	graph.Base
}

func NewClamp(x, lo, hi graph.Node) *Clamp {
	n := &Clamp{}
	n.Init("clamp", x, lo, hi)
	return n
}

func (n *Clamp) Scalar(ctx *graph.Context) float32 {
	x := engine.Scalar(ctx, n.Input(0))
	lo := engine.ScalarOr(ctx, n.Input(1), 0)
	hi := engine.ScalarOr(ctx, n.Input(2), 1)
	return max(lo, min(hi, x))
}

// Length is the Euclidean length of a vector input.
type Length struct {
	graph.Base
}

func NewLength(v graph.Node) *Length {
	n := &Length{}
	n.Init("length", v)
	return n
}

func (n *Length) Scalar(ctx *graph.Context) float32 {
	return float32(engine.Vector(ctx, n.Input(0)).Length())
}

// Component extracts one axis of a vector input; 0 is x.
type Component struct {
	graph.Base
	Axis int
}

func NewComponent(v graph.Node, axis int) *Component {
	n := &Component{Axis: axis}
	n.Init("component", v)
	return n
}

func (n *Component) Scalar(ctx *graph.Context) float32 {
	v := engine.Vector(ctx, n.Input(0))
	switch n.Axis {
	case 0:
		return float32(v.X)
	case 1:
		return float32(v.Y)
	case 2:
		return float32(v.Z)
	}
	n.WarnOnce(ctx.Input.Logger(), "component axis out of range", "axis", n.Axis)
	return 0
}

// Compose builds a vector from three scalar inputs.
type Compose struct {
	graph.Base
}

func NewCompose(x, y, z graph.Node) *Compose {
	n := &Compose{}
	n.Init("compose", x, y, z)
	return n
}

func (n *Compose) Vector(ctx *graph.Context) v3.Vec {
	return v3.Vec{
		X: float64(engine.Scalar(ctx, n.Input(0))),
		Y: float64(engine.Scalar(ctx, n.Input(1))),
		Z: float64(engine.Scalar(ctx, n.Input(2))),
	}
}

// Scale multiplies a vector input by a scalar input.
type Scale struct {
	graph.Base
}

func NewScale(v, s graph.Node) *Scale {
	n := &Scale{}
	n.Init("scale", v, s)
	return n
}

func (n *Scale) Vector(ctx *graph.Context) v3.Vec {
	return engine.Vector(ctx, n.Input(0)).MulScalar(float64(engine.ScalarOr(ctx, n.Input(1), 1)))
}

// VectorSum adds two vector inputs.
type VectorSum struct {
	graph.Base
}

func NewVectorSum(a, b graph.Node) *VectorSum {
	n := &VectorSum{}
	n.Init("vadd", a, b)
	return n
}

func (n *VectorSum) Vector(ctx *graph.Context) v3.Vec {
	return engine.Vector(ctx, n.Input(0)).Add(engine.Vector(ctx, n.Input(1)))
}
