package field

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
)

// CSGOp selects a boolean combination of two level-sets.
type CSGOp int

const (
	CSGUnion CSGOp = iota
	CSGIntersection
	CSGDifference
)

func (op CSGOp) String() string {
	switch op {
	case CSGUnion:
		return "union"
	case CSGIntersection:
		return "intersection"
	case CSGDifference:
		return "difference"
	default:
		return fmt.Sprintf("CSGOp(%d)", int(op))
	}
}

// ParseCSGOp accepts an operator name or its code (U, I, D).
func ParseCSGOp(s string) (CSGOp, error) {
	switch strings.ToLower(s) {
	case "union", "u":
		return CSGUnion, nil
	case "intersection", "intersect", "i":
		return CSGIntersection, nil
	case "difference", "subtract", "d":
		return CSGDifference, nil
	}
	return 0, fmt.Errorf("field: unknown csg operator %q", s)
}

// CSG combines level-set b into a in place. Both fields must share a
// transform and should share a narrow-band width. Voxels stay active only
// inside a's band.
func CSG(a, b *ScalarField, op CSGOp) {
	band := math32.Abs(a.background)
	origins := make(map[Coord]struct{}, len(a.leaves)+len(b.leaves))
	for o := range a.leaves {
		origins[o] = struct{}{}
	}
	for o := range b.leaves {
		origins[o] = struct{}{}
	}
	for o := range origins {
		for i := 0; i < leafSize; i++ {
			c := offsetCoord(o, i)
			av, aOn := a.Get(c)
			bv, bOn := b.Get(c)
			var v float32
			switch op {
			case CSGUnion:
				v = math32.Min(av, bv)
			case CSGIntersection:
				v = math32.Max(av, bv)
			case CSGDifference:
				v = math32.Max(av, -bv)
			}
			if (aOn || bOn) && math32.Abs(v) < band {
				a.Set(c, v)
			} else {
				a.SetOff(c, v)
			}
		}
	}
}

// SignedFloodFill marks the interior of a closed narrow-band level-set by
// storing the negative background in inactive voxels that lie between two
// interior band voxels along x.
func SignedFloodFill(f *ScalarField) {
	b := f.Bounds()
	if b.Empty() {
		return
	}
	inside := -math32.Abs(f.background)
	var pending []int
	for z := b.Min.Z; z <= b.Max.Z; z++ {
		for y := b.Min.Y; y <= b.Max.Y; y++ {
			lastNeg := false
			pending = pending[:0]
			for x := b.Min.X; x <= b.Max.X; x++ {
				v, on := f.Get(Coord{x, y, z})
				if !on {
					if lastNeg {
						pending = append(pending, x)
					}
					continue
				}
				if v < 0 && lastNeg {
					for _, px := range pending {
						f.SetOff(Coord{px, y, z}, inside)
					}
				}
				pending = pending[:0]
				lastNeg = v < 0
			}
		}
	}
}

// SdfToFog converts a flood-filled level-set to a fog volume in place.
// Band voxels deeper than cutoff and the flood-filled interior become 1,
// band voxels ramp linearly from 0 at the surface, exterior voxels become
// inactive zeros. A cutoff of zero, or one deeper than the interior band,
// uses the interior band depth.
func SdfToFog(f *ScalarField, cutoff float32) {
	depth := float32(0)
	f.ForEachActive(func(_ Coord, v float32) {
		depth = math32.Max(depth, -v)
	})
	if depth == 0 {
		depth = math32.Abs(f.background)
	}
	if cutoff <= 0 || cutoff > depth {
		cutoff = depth
	}
	for _, l := range f.leaves {
		for i := range l.values {
			v := l.values[i]
			switch {
			case v >= 0:
				l.values[i] = 0
				l.setOff(i)
			case !l.isOn(i) || cutoff <= 0 || v <= -cutoff:
				l.values[i] = 1
				l.setOn(i)
			default:
				l.values[i] = -v / cutoff
				l.setOn(i)
			}
		}
	}
	f.background = 0
	f.Class = ClassFogVolume
	PruneScalar(f, 0)
}

// PruneScalar drops leaves without active voxels whose values lie within tol
// of the background.
func PruneScalar(f *ScalarField, tol float32) {
	bg := f.background
	f.Prune(func(v float32) bool {
		return math32.Abs(v-bg) <= tol
	})
}

// DeactivateBackground turns off active voxels whose value lies within tol of
// the background, then prunes.
func DeactivateBackground(f *ScalarField, tol float32) {
	bg := f.background
	for _, l := range f.leaves {
		for i := range l.values {
			if l.isOn(i) && math32.Abs(l.values[i]-bg) <= tol {
				l.setOff(i)
			}
		}
	}
	PruneScalar(f, tol)
}
