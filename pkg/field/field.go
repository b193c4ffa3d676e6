package field

import (
	"fmt"
	"math/bits"
	"slices"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	leafLog2 = 3
	// LeafDim is the edge length of a storage leaf in voxels.
	LeafDim  = 1 << leafLog2
	leafMask = LeafDim - 1
	leafSize = LeafDim * LeafDim * LeafDim
)

// Class tags the meaning of a scalar field's values.
type Class int

const (
	ClassFogVolume Class = iota // non-negative density, valid wherever active
	ClassLevelSet               // signed distance, valid inside the narrow band
	ClassUnknown
)

func (c Class) String() string {
	switch c {
	case ClassFogVolume:
		return "fog-volume"
	case ClassLevelSet:
		return "level-set"
	default:
		return "unknown"
	}
}

type leaf[T any] struct {
	origin Coord
	values [leafSize]T
	active [leafSize / 64]uint64
	count  int
}

func (l *leaf[T]) isOn(i int) bool {
	return l.active[i>>6]&(1<<(uint(i)&63)) != 0
}

func (l *leaf[T]) setOn(i int) {
	if !l.isOn(i) {
		l.active[i>>6] |= 1 << (uint(i) & 63)
		l.count++
	}
}

func (l *leaf[T]) setOff(i int) {
	if l.isOn(i) {
		l.active[i>>6] &^= 1 << (uint(i) & 63)
		l.count--
	}
}

func leafOrigin(c Coord) Coord {
	return Coord{c.X &^ leafMask, c.Y &^ leafMask, c.Z &^ leafMask}
}

func leafOffset(c Coord) int {
	return (c.Z&leafMask)<<(2*leafLog2) | (c.Y&leafMask)<<leafLog2 | (c.X & leafMask)
}

func offsetCoord(origin Coord, i int) Coord {
	return Coord{origin.X + i&leafMask, origin.Y + (i>>leafLog2)&leafMask, origin.Z + i>>(2*leafLog2)}
}

// Field is a sparse voxel container. Every voxel has a value; voxels that
// were never written hold the background. A voxel is active when it carries
// an explicitly stored, meaningful value.
//
// A Field is safe for concurrent reads. Writers need exclusive access.
type Field[T any] struct {
	Name      string
	Class     Class
	Transform Transform

	background T
	leaves     map[Coord]*leaf[T]
}

// ScalarField holds density or signed-distance values.
type ScalarField = Field[float32]

// VectorField holds three-component values such as velocity.
type VectorField = Field[v3.Vec]

// New returns an empty field with the given transform and background.
func New[T any](tr Transform, background T) *Field[T] {
	return &Field[T]{
		Class:      ClassUnknown,
		Transform:  tr,
		background: background,
		leaves:     make(map[Coord]*leaf[T]),
	}
}

// NewScalar returns an empty scalar field.
func NewScalar(tr Transform, class Class, background float32) *ScalarField {
	f := New[float32](tr, background)
	f.Class = class
	return f
}

// NewFog returns an empty fog-volume field with a zero background.
func NewFog(tr Transform) *ScalarField {
	return NewScalar(tr, ClassFogVolume, 0)
}

// NewVector returns an empty vector field with a zero background.
func NewVector(tr Transform) *VectorField {
	f := New[v3.Vec](tr, v3.Vec{})
	f.Class = ClassFogVolume
	return f
}

// Background returns the value of voxels that were never written.
func (f *Field[T]) Background() T {
	return f.background
}

// SetBackground changes the background. Stored voxels are not touched.
func (f *Field[T]) SetBackground(v T) {
	f.background = v
}

func (f *Field[T]) leafFor(c Coord) *leaf[T] {
	o := leafOrigin(c)
	l := f.leaves[o]
	if l == nil {
		l = &leaf[T]{origin: o}
		for i := range l.values {
			l.values[i] = f.background
		}
		f.leaves[o] = l
	}
	return l
}

// Get returns the stored value at c and whether c is active.
func (f *Field[T]) Get(c Coord) (T, bool) {
	l := f.leaves[leafOrigin(c)]
	if l == nil {
		return f.background, false
	}
	i := leafOffset(c)
	return l.values[i], l.isOn(i)
}

// Value returns the value at c regardless of its active state.
func (f *Field[T]) Value(c Coord) T {
	v, _ := f.Get(c)
	return v
}

// IsActive reports whether c holds an active value.
func (f *Field[T]) IsActive(c Coord) bool {
	_, on := f.Get(c)
	return on
}

// Set stores v at c and marks it active.
func (f *Field[T]) Set(c Coord, v T) {
	l := f.leafFor(c)
	i := leafOffset(c)
	l.values[i] = v
	l.setOn(i)
}

// SetOff stores v at c and marks it inactive.
func (f *Field[T]) SetOff(c Coord, v T) {
	l := f.leafFor(c)
	i := leafOffset(c)
	l.values[i] = v
	l.setOff(i)
}

// Deactivate marks c inactive, keeping its stored value.
func (f *Field[T]) Deactivate(c Coord) {
	if l := f.leaves[leafOrigin(c)]; l != nil {
		l.setOff(leafOffset(c))
	}
}

// Modify applies fn to the value at c in place and marks c active.
func (f *Field[T]) Modify(c Coord, fn func(v *T)) {
	l := f.leafFor(c)
	i := leafOffset(c)
	fn(&l.values[i])
	l.setOn(i)
}

// ActiveCount returns the number of active voxels.
func (f *Field[T]) ActiveCount() int {
	n := 0
	for _, l := range f.leaves {
		n += l.count
	}
	return n
}

// LeafCount returns the number of allocated leaves.
func (f *Field[T]) LeafCount() int {
	return len(f.leaves)
}

// Empty reports whether the field has no active voxels.
func (f *Field[T]) Empty() bool {
	return f.ActiveCount() == 0
}

// Leaves returns the allocated leaf origins in z, y, x order.
func (f *Field[T]) Leaves() []Coord {
	origins := make([]Coord, 0, len(f.leaves))
	for o := range f.leaves {
		origins = append(origins, o)
	}
	slices.SortFunc(origins, func(a, b Coord) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return origins
}

// ActiveCoords returns every active coordinate in a deterministic order.
func (f *Field[T]) ActiveCoords() []Coord {
	coords := make([]Coord, 0, f.ActiveCount())
	for _, o := range f.Leaves() {
		l := f.leaves[o]
		for w, word := range l.active {
			for word != 0 {
				b := bits.TrailingZeros64(word)
				coords = append(coords, offsetCoord(o, w*64+b))
				word &= word - 1
			}
		}
	}
	return coords
}

// ForEachActive calls fn for every active voxel in leaf order.
func (f *Field[T]) ForEachActive(fn func(c Coord, v T)) {
	for _, o := range f.Leaves() {
		l := f.leaves[o]
		for i := 0; i < leafSize; i++ {
			if l.isOn(i) {
				fn(offsetCoord(o, i), l.values[i])
			}
		}
	}
}

// ForEachStored calls fn for every voxel of every allocated leaf, active or
// not.
func (f *Field[T]) ForEachStored(fn func(c Coord, v T, active bool)) {
	for _, o := range f.Leaves() {
		l := f.leaves[o]
		for i := 0; i < leafSize; i++ {
			fn(offsetCoord(o, i), l.values[i], l.isOn(i))
		}
	}
}

// Bounds returns the index-space box of the active voxels.
func (f *Field[T]) Bounds() BBox {
	b := EmptyBBox()
	for _, l := range f.leaves {
		if l.count == 0 {
			continue
		}
		for i := 0; i < leafSize; i++ {
			if l.isOn(i) {
				b.Expand(offsetCoord(l.origin, i))
			}
		}
	}
	return b
}

// StoredBounds returns the index-space box of all allocated leaves.
func (f *Field[T]) StoredBounds() BBox {
	b := EmptyBBox()
	for o := range f.leaves {
		b.Expand(o)
		b.Expand(o.Offset(leafMask, leafMask, leafMask))
	}
	return b
}

// Clear removes every voxel. Transform, class and background are kept.
func (f *Field[T]) Clear() {
	f.leaves = make(map[Coord]*leaf[T])
}

// DeepCopy returns an independent copy of the field.
func (f *Field[T]) DeepCopy() *Field[T] {
	c := &Field[T]{
		Name:       f.Name,
		Class:      f.Class,
		Transform:  f.Transform,
		background: f.background,
		leaves:     make(map[Coord]*leaf[T], len(f.leaves)),
	}
	for o, l := range f.leaves {
		cl := *l
		c.leaves[o] = &cl
	}
	return c
}

// Prune drops leaves that have no active voxels and whose stored values all
// satisfy isBackground.
func (f *Field[T]) Prune(isBackground func(T) bool) {
	for o, l := range f.leaves {
		if l.count > 0 {
			continue
		}
		drop := true
		for i := range l.values {
			if !isBackground(l.values[i]) {
				drop = false
				break
			}
		}
		if drop {
			delete(f.leaves, o)
		}
	}
}

func (f *Field[T]) String() string {
	return fmt.Sprintf("field(%q %s, %d active, %d leaves, voxel %g)",
		f.Name, f.Class, f.ActiveCount(), len(f.leaves), f.Transform.Voxel())
}
