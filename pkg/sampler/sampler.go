// Package sampler reads and writes sparse fields at continuous world-space
// positions using trilinear weights over the 8 surrounding voxel centers.
//
// Reads treat missing and inactive voxels as their stored or background
// value, so sampling never fails. All read functions are safe for concurrent
// use against a field that is not being mutated.
package sampler

import (
	"math"

	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chewxy/math32"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Corner is one of the 8 voxels contributing to a trilinear stencil.
type Corner struct {
	Coord  field.Coord
	Weight float32
}

// Stencil returns the 8 voxels around world position p with their trilinear
// weights. Voxel centers sit at index+0.5, so the base coordinate is
// floor(index-0.5) and the fractional part b weighs the upper neighbour.
// The weights always sum to one.
func Stencil(tr field.Transform, p v3.Vec) [8]Corner {
	g := tr.WorldToIndex(p)
	gx, gy, gz := g.X-0.5, g.Y-0.5, g.Z-0.5
	fx, fy, fz := math.Floor(gx), math.Floor(gy), math.Floor(gz)
	b := [3]float32{float32(gx - fx), float32(gy - fy), float32(gz - fz)}
	base := field.Coord{X: int(fx), Y: int(fy), Z: int(fz)}

	var out [8]Corner
	for i := 0; i < 8; i++ {
		dx, dy, dz := i&1, (i>>1)&1, (i>>2)&1
		w := float32(1)
		for axis, d := range [3]int{dx, dy, dz} {
			if d == 1 {
				w *= b[axis]
			} else {
				w *= 1 - b[axis]
			}
		}
		out[i] = Corner{Coord: base.Offset(dx, dy, dz), Weight: w}
	}
	return out
}

// Scalar interpolates f at world position p.
func Scalar(f *field.ScalarField, p v3.Vec) float32 {
	var sum float32
	for _, c := range Stencil(f.Transform, p) {
		if c.Weight == 0 {
			continue
		}
		sum += c.Weight * f.Value(c.Coord)
	}
	return sum
}

// Vector interpolates f at world position p.
func Vector(f *field.VectorField, p v3.Vec) v3.Vec {
	var sum v3.Vec
	for _, c := range Stencil(f.Transform, p) {
		if c.Weight == 0 {
			continue
		}
		sum = sum.Add(f.Value(c.Coord).MulScalar(float64(c.Weight)))
	}
	return sum
}

// Splat adds v, spread by trilinear weight, into the 8 voxels around p.
// Touched voxels become active.
func Splat(f *field.ScalarField, p v3.Vec, v float32) {
	for _, c := range Stencil(f.Transform, p) {
		w := c.Weight * v
		f.Modify(c.Coord, func(d *float32) { *d += w })
	}
}

// SplatVector adds v, spread by trilinear weight, into the 8 voxels around p.
func SplatVector(f *field.VectorField, p v3.Vec, v v3.Vec) {
	for _, c := range Stencil(f.Transform, p) {
		w := float64(c.Weight)
		f.Modify(c.Coord, func(d *v3.Vec) { *d = d.Add(v.MulScalar(w)) })
	}
}

// Gradient returns the world-space central-difference gradient of f at
// voxel c.
func Gradient(f *field.ScalarField, c field.Coord) v3.Vec {
	vs := f.Transform.VoxelSize
	return v3.Vec{
		X: float64(f.Value(c.Offset(1, 0, 0))-f.Value(c.Offset(-1, 0, 0))) / (2 * vs.X),
		Y: float64(f.Value(c.Offset(0, 1, 0))-f.Value(c.Offset(0, -1, 0))) / (2 * vs.Y),
		Z: float64(f.Value(c.Offset(0, 0, 1))-f.Value(c.Offset(0, 0, -1))) / (2 * vs.Z),
	}
}

// ClosestPoint estimates the nearest zero-crossing of level-set f from the
// center of voxel c by stepping against the normalized gradient. A voxel
// with a vanishing gradient maps to its own center.
func ClosestPoint(f *field.ScalarField, c field.Coord) v3.Vec {
	p := f.Transform.IndexToWorld(c)
	g := Gradient(f, c)
	n := g.Length()
	if n < 1e-12 {
		return p
	}
	d := float64(f.Value(c))
	return p.Sub(g.MulScalar(d / n))
}

// Resample clears dst and fills it with values of src interpolated at the
// centers of dst's voxels, covering the world extent of src's active voxels
// padded by one src voxel. Voxels whose magnitude is at most tol stay
// inactive.
func Resample(src, dst *field.ScalarField, tol float32) {
	dst.Clear()
	for _, c := range resampleRange(src.Transform, src.Bounds(), dst.Transform) {
		v := Scalar(src, dst.Transform.IndexToWorld(c))
		if math32.Abs(v) > tol {
			dst.Set(c, v)
		}
	}
}

// ResampleVector is Resample for vector fields; a voxel stays inactive when
// every component's magnitude is at most tol.
func ResampleVector(src, dst *field.VectorField, tol float64) {
	dst.Clear()
	for _, c := range resampleRange(src.Transform, src.Bounds(), dst.Transform) {
		v := Vector(src, dst.Transform.IndexToWorld(c))
		if math.Abs(v.X) > tol || math.Abs(v.Y) > tol || math.Abs(v.Z) > tol {
			dst.Set(c, v)
		}
	}
}

func resampleRange(srcTr field.Transform, b field.BBox, dstTr field.Transform) []field.Coord {
	if b.Empty() {
		return nil
	}
	b.Min = b.Min.Offset(-1, -1, -1)
	b.Max = b.Max.Offset(1, 1, 1)
	lo, hi := srcTr.WorldBounds(b)
	r := dstTr.CoordRange(lo, hi)
	if r.Empty() {
		return nil
	}
	d := r.Dim()
	coords := make([]field.Coord, 0, d.X*d.Y*d.Z)
	for z := r.Min.Z; z <= r.Max.Z; z++ {
		for y := r.Min.Y; y <= r.Max.Y; y++ {
			for x := r.Min.X; x <= r.Max.X; x++ {
				coords = append(coords, field.Coord{X: x, Y: y, Z: z})
			}
		}
	}
	return coords
}
