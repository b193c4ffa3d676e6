package field

import "math"

// Coord is an integer voxel coordinate in index space.
type Coord struct {
	X, Y, Z int
}

// Offset returns c translated by (dx, dy, dz).
func (c Coord) Offset(dx, dy, dz int) Coord {
	return Coord{c.X + dx, c.Y + dy, c.Z + dz}
}

// Less orders coordinates by z, then y, then x.
func (c Coord) Less(o Coord) bool {
	if c.Z != o.Z {
		return c.Z < o.Z
	}
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

// BBox is an inclusive index-space bounding box.
type BBox struct {
	Min, Max Coord
}

// EmptyBBox returns a box that contains nothing; expanding it by any
// coordinate yields that coordinate.
func EmptyBBox() BBox {
	return BBox{
		Min: Coord{math.MaxInt, math.MaxInt, math.MaxInt},
		Max: Coord{math.MinInt, math.MinInt, math.MinInt},
	}
}

// Empty reports whether the box contains no coordinates.
func (b BBox) Empty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Expand grows the box to include c.
func (b *BBox) Expand(c Coord) {
	b.Min.X = min(b.Min.X, c.X)
	b.Min.Y = min(b.Min.Y, c.Y)
	b.Min.Z = min(b.Min.Z, c.Z)
	b.Max.X = max(b.Max.X, c.X)
	b.Max.Y = max(b.Max.Y, c.Y)
	b.Max.Z = max(b.Max.Z, c.Z)
}

// Union returns the smallest box containing both b and o.
func (b BBox) Union(o BBox) BBox {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	u := b
	u.Expand(o.Min)
	u.Expand(o.Max)
	return u
}

// Contains reports whether c lies inside the box.
func (b BBox) Contains(c Coord) bool {
	return c.X >= b.Min.X && c.X <= b.Max.X &&
		c.Y >= b.Min.Y && c.Y <= b.Max.Y &&
		c.Z >= b.Min.Z && c.Z <= b.Max.Z
}

// Dim returns the number of voxels spanned along each axis.
func (b BBox) Dim() Coord {
	if b.Empty() {
		return Coord{}
	}
	return Coord{b.Max.X - b.Min.X + 1, b.Max.Y - b.Min.Y + 1, b.Max.Z - b.Min.Z + 1}
}
