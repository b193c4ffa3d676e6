package field

import (
	"fmt"
	"math"
	"strings"

	"github.com/chewxy/math32"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Op is a voxelwise binary operator used to combine two scalar fields.
type Op int

const (
	OpSum Op = iota
	OpMax
	OpMin
	OpMul
	OpReplace
)

func (op Op) String() string {
	switch op {
	case OpSum:
		return "sum"
	case OpMax:
		return "max"
	case OpMin:
		return "min"
	case OpMul:
		return "mul"
	case OpReplace:
		return "replace"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// Commutative reports whether op(a, b) == op(b, a). Replace is last-writer
// wins and must not be folded across threads.
func (op Op) Commutative() bool {
	return op != OpReplace
}

// ParseOp accepts an operator name or its single-character code
// (M max, m min, + sum, * mul, = replace).
func ParseOp(s string) (Op, error) {
	switch s {
	case "M":
		return OpMax, nil
	case "m":
		return OpMin, nil
	case "+":
		return OpSum, nil
	case "*":
		return OpMul, nil
	case "=":
		return OpReplace, nil
	}
	switch strings.ToLower(s) {
	case "sum", "add":
		return OpSum, nil
	case "max":
		return OpMax, nil
	case "min":
		return OpMin, nil
	case "mul", "multiply":
		return OpMul, nil
	case "replace":
		return OpReplace, nil
	}
	return 0, fmt.Errorf("field: unknown combine operator %q", s)
}

// Apply evaluates the operator on two values.
func (op Op) Apply(a, b float32) float32 {
	switch op {
	case OpSum:
		return a + b
	case OpMax:
		return math32.Max(a, b)
	case OpMin:
		return math32.Min(a, b)
	case OpMul:
		return a * b
	default:
		return b
	}
}

// Composite combines src into dst in place. The result is active wherever
// either operand is active; inactive operands contribute their stored or
// background value. Replace copies the active voxels of src over dst.
func Composite(dst, src *ScalarField, op Op) {
	if op == OpReplace {
		src.ForEachActive(func(c Coord, v float32) {
			dst.Set(c, v)
		})
		return
	}
	dst.ForEachActive(func(c Coord, a float32) {
		if !src.IsActive(c) {
			dst.Set(c, op.Apply(a, src.Value(c)))
		}
	})
	src.ForEachActive(func(c Coord, b float32) {
		dst.Set(c, op.Apply(dst.Value(c), b))
	})
}

// Fold merges only the active voxels of src into dst with op. A voxel not
// yet active in dst takes src's value as is; voxels active only in dst are
// left as they are. Replace copies src's active voxels.
func Fold(dst, src *ScalarField, op Op) {
	src.ForEachActive(func(c Coord, b float32) {
		a, on := dst.Get(c)
		if op == OpReplace || !on {
			dst.Set(c, b)
			return
		}
		dst.Set(c, op.Apply(a, b))
	})
}

// FoldVectors is Fold for vector fields. Max, min and mul apply per
// component.
func FoldVectors(dst, src *VectorField, op Op) {
	src.ForEachActive(func(c Coord, b v3.Vec) {
		a, on := dst.Get(c)
		if op == OpReplace || !on {
			dst.Set(c, b)
			return
		}
		dst.Set(c, v3.Vec{X: op.apply64(a.X, b.X), Y: op.apply64(a.Y, b.Y), Z: op.apply64(a.Z, b.Z)})
	})
}

func (op Op) apply64(a, b float64) float64 {
	switch op {
	case OpSum:
		return a + b
	case OpMax:
		return math.Max(a, b)
	case OpMin:
		return math.Min(a, b)
	case OpMul:
		return a * b
	default:
		return b
	}
}
