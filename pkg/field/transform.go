package field

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Transform maps between index space and world space. Voxel (i,j,k) covers
// the index-space cell [i,i+1)x[j,j+1)x[k,k+1); its center is at i+0.5.
type Transform struct {
	VoxelSize v3.Vec `yaml:"voxel_size"`
	Origin    v3.Vec `yaml:"origin"`
}

// Linear returns a uniform transform with the given voxel edge length and
// the world origin at index-space zero.
func Linear(voxelSize float64) Transform {
	return Transform{VoxelSize: v3.Vec{X: voxelSize, Y: voxelSize, Z: voxelSize}}
}

// Valid reports whether every voxel dimension is positive and finite.
func (t Transform) Valid() bool {
	for _, s := range []float64{t.VoxelSize.X, t.VoxelSize.Y, t.VoxelSize.Z} {
		if !(s > 0) || math.IsInf(s, 0) {
			return false
		}
	}
	return true
}

// Uniform reports whether the voxels are cubes.
func (t Transform) Uniform() bool {
	return t.VoxelSize.X == t.VoxelSize.Y && t.VoxelSize.Y == t.VoxelSize.Z
}

// Voxel returns the voxel edge length along x, which is the reference size
// for narrow-band widths and step lengths.
func (t Transform) Voxel() float64 {
	return t.VoxelSize.X
}

// Scaled returns a transform whose voxels are f times larger.
func (t Transform) Scaled(f float64) Transform {
	t.VoxelSize = t.VoxelSize.MulScalar(f)
	return t
}

// IndexPosToWorld maps a continuous index-space position to world space.
func (t Transform) IndexPosToWorld(p v3.Vec) v3.Vec {
	return v3.Vec{
		X: t.Origin.X + p.X*t.VoxelSize.X,
		Y: t.Origin.Y + p.Y*t.VoxelSize.Y,
		Z: t.Origin.Z + p.Z*t.VoxelSize.Z,
	}
}

// IndexToWorld returns the world-space center of voxel c.
func (t Transform) IndexToWorld(c Coord) v3.Vec {
	return t.IndexPosToWorld(v3.Vec{X: float64(c.X) + 0.5, Y: float64(c.Y) + 0.5, Z: float64(c.Z) + 0.5})
}

// WorldToIndex maps a world position to continuous index space.
func (t Transform) WorldToIndex(p v3.Vec) v3.Vec {
	return v3.Vec{
		X: (p.X - t.Origin.X) / t.VoxelSize.X,
		Y: (p.Y - t.Origin.Y) / t.VoxelSize.Y,
		Z: (p.Z - t.Origin.Z) / t.VoxelSize.Z,
	}
}

// WorldToCoord returns the voxel containing world position p.
func (t Transform) WorldToCoord(p v3.Vec) Coord {
	q := t.WorldToIndex(p)
	return Coord{int(math.Floor(q.X)), int(math.Floor(q.Y)), int(math.Floor(q.Z))}
}

// WorldBounds returns the world-space corners enclosing every voxel in b.
func (t Transform) WorldBounds(b BBox) (lo, hi v3.Vec) {
	lo = t.IndexPosToWorld(v3.Vec{X: float64(b.Min.X), Y: float64(b.Min.Y), Z: float64(b.Min.Z)})
	hi = t.IndexPosToWorld(v3.Vec{X: float64(b.Max.X + 1), Y: float64(b.Max.Y + 1), Z: float64(b.Max.Z + 1)})
	return lo, hi
}

// CoordRange returns the voxels whose centers lie inside the world box
// [lo, hi].
func (t Transform) CoordRange(lo, hi v3.Vec) BBox {
	a := t.WorldToIndex(lo)
	b := t.WorldToIndex(hi)
	return BBox{
		Min: Coord{int(math.Ceil(a.X - 0.5)), int(math.Ceil(a.Y - 0.5)), int(math.Ceil(a.Z - 0.5))},
		Max: Coord{int(math.Floor(b.X - 0.5)), int(math.Floor(b.Y - 0.5)), int(math.Floor(b.Z - 0.5))},
	}
}
