package graph

import (
	"log/slog"

	"github.com/chazu/voxgraph/pkg/asset"
	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/kernel"
	"github.com/chazu/voxgraph/pkg/reduce"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultBackgroundVoxels is the fixed narrow-band margin added to every
// data-driven band width.
const DefaultBackgroundVoxels = 4

// Supported particle radius range in voxels when Input leaves it unset.
const (
	DefaultMinRadius = 1.5
	DefaultMaxRadius = 1e5
)

// Input holds the parameters of one evaluation pass over one scene object.
type Input struct {
	// Object is the scene object being evaluated.
	Object Object
	// Transform is the target grid of every producer in the pass.
	Transform field.Transform
	// Surface is the dominant surface level-set used for global distance.
	Surface *field.ScalarField
	// Fog is the fog field sampled by field-sampling value nodes when they
	// have no upstream producer.
	Fog *field.ScalarField

	Kernel kernel.Kernel
	Driver reduce.Driver
	Assets asset.Reader

	// BackgroundVoxels is the narrow-band margin in voxels.
	BackgroundVoxels float64
	// MinRadius and MaxRadius bound particle radii, in voxels.
	MinRadius, MaxRadius float64
	// MeshIso is the iso value at which level-sets become meshes.
	MeshIso float32
	// Slots is the memo size a pass needs, set by the engine.
	Slots int

	Log *slog.Logger
}

// NewMemo returns a memo sized for the pass. Producers allocate one per
// worker.
func (in *Input) NewMemo() *Memo {
	return NewMemo(in.Slots)
}

// Logger returns the pass logger, falling back to the default logger. It
// is safe on a nil Input.
func (in *Input) Logger() *slog.Logger {
	if in != nil && in.Log != nil {
		return in.Log
	}
	return slog.Default()
}

// Margin returns the narrow-band margin in voxels.
func (in *Input) Margin() float64 {
	if in.BackgroundVoxels > 0 {
		return in.BackgroundVoxels
	}
	return DefaultBackgroundVoxels
}

// RadiusRange returns the supported particle radius range in voxels.
func (in *Input) RadiusRange() (lo, hi float64) {
	lo, hi = DefaultMinRadius, DefaultMaxRadius
	if in.MinRadius > 0 {
		lo = in.MinRadius
	}
	if in.MaxRadius > 0 {
		hi = in.MaxRadius
	}
	return lo, max(lo, hi)
}

// Sample returns a context for a sample at world position p, bound to
// memo. Sampled position starts at p. memo may be nil.
func (in *Input) Sample(memo *Memo, p v3.Vec) Context {
	if memo != nil {
		memo.Reset()
	}
	return Context{
		Position:        p,
		SampledPosition: p,
		Input:           in,
		memo:            memo,
	}
}
