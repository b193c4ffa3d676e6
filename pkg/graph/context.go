package graph

import (
	"math"

	"github.com/chazu/voxgraph/pkg/sampler"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Context is the per-sample bundle value nodes read. A producer builds one
// per sample with Input.Sample and may update fields between evaluations;
// it must call Invalidate after doing so. A Context is never shared between
// goroutines.
type Context struct {
	// Position is the world position of the sample.
	Position v3.Vec
	// SurfacePoint is the closest surface point, set by surface-relative
	// producers such as displacement.
	SurfacePoint v3.Vec
	// Distance is the signed distance from the surface at the sample.
	Distance float32
	// Density is the upstream density at the sample.
	Density float32
	// SampledPosition differs from Position during advection substeps.
	SampledPosition v3.Vec
	// SampledDensity is the source density at SampledPosition.
	SampledDensity float32
	// Fraction is the completed fraction of an iterative process.
	Fraction float32

	Input *Input
	memo  *Memo
}

// Invalidate discards memoized values after the context changed.
func (c *Context) Invalidate() {
	if c.memo != nil {
		c.memo.Reset()
	}
}

// Memo returns the per-worker memo the context is bound to, or nil.
func (c *Context) Memo() *Memo {
	return c.memo
}

// GlobalDistance samples the signed distance to the dominant surface of
// the pass at p. Without a surface every point is infinitely far outside.
func (c *Context) GlobalDistance(p v3.Vec) float32 {
	if c.Input == nil || c.Input.Surface == nil {
		return math.MaxFloat32
	}
	return sampler.Scalar(c.Input.Surface, p)
}

// Memo caches value-node results for one sample. Entries are tagged with a
// stamp so Reset is constant time.
type Memo struct {
	stamp   uint32
	sstamps []uint32
	scalars []float32
	vstamps []uint32
	vectors []v3.Vec
}

// NewMemo returns an empty memo sized for n slots. It grows on demand.
func NewMemo(n int) *Memo {
	return &Memo{
		stamp:   1,
		sstamps: make([]uint32, n),
		scalars: make([]float32, n),
		vstamps: make([]uint32, n),
		vectors: make([]v3.Vec, n),
	}
}

// Reset invalidates every entry.
func (m *Memo) Reset() {
	m.stamp++
	if m.stamp == 0 {
		clear(m.sstamps)
		clear(m.vstamps)
		m.stamp = 1
	}
}

func (m *Memo) grow(slot int) {
	if slot < len(m.sstamps) {
		return
	}
	n := max(slot+1, 2*len(m.sstamps))
	m.sstamps = append(m.sstamps, make([]uint32, n-len(m.sstamps))...)
	m.scalars = append(m.scalars, make([]float32, n-len(m.scalars))...)
	m.vstamps = append(m.vstamps, make([]uint32, n-len(m.vstamps))...)
	m.vectors = append(m.vectors, make([]v3.Vec, n-len(m.vectors))...)
}

// Scalar returns the cached scalar for slot.
func (m *Memo) Scalar(slot int) (float32, bool) {
	if slot < 0 || slot >= len(m.sstamps) || m.sstamps[slot] != m.stamp {
		return 0, false
	}
	return m.scalars[slot], true
}

// PutScalar caches v for slot.
func (m *Memo) PutScalar(slot int, v float32) {
	if slot < 0 {
		return
	}
	m.grow(slot)
	m.scalars[slot] = v
	m.sstamps[slot] = m.stamp
}

// Vector returns the cached vector for slot.
func (m *Memo) Vector(slot int) (v3.Vec, bool) {
	if slot < 0 || slot >= len(m.vstamps) || m.vstamps[slot] != m.stamp {
		return v3.Vec{}, false
	}
	return m.vectors[slot], true
}

// PutVector caches v for slot.
func (m *Memo) PutVector(slot int, v v3.Vec) {
	if slot < 0 {
		return
	}
	m.grow(slot)
	m.vectors[slot] = v
	m.vstamps[slot] = m.stamp
}
