package value

import (
	"github.com/chazu/voxgraph/pkg/engine"
	"github.com/chazu/voxgraph/pkg/graph"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/ojrac/opensimplex-go"
)

// NoiseParams shapes a noise lookup. The lookup point is
// (p + Offset) * Frequency and the result is scaled by Amplitude.
type NoiseParams struct {
	Seed      int64
	Frequency float32
	Amplitude float32
	Offset    v3.Vec
	// Octaves, Lacunarity and Gain are used by FBM only.
	Octaves    int
	Lacunarity float32
	Gain       float32
}

// DefaultNoise returns unit frequency and amplitude with four octaves of
// doubling frequency and halving amplitude.
func DefaultNoise() NoiseParams {
	return NoiseParams{
		Frequency:  1,
		Amplitude:  1,
		Octaves:    4,
		Lacunarity: 2,
		Gain:       0.5,
	}
}

func (p NoiseParams) point(v v3.Vec) (x, y, z float32) {
	v = v.Add(p.Offset)
	return float32(v.X) * p.Frequency, float32(v.Y) * p.Frequency, float32(v.Z) * p.Frequency
}

func lookupPoint(ctx *graph.Context, at graph.Node) v3.Vec {
	if at == nil {
		return ctx.Position
	}
	return engine.Vector(ctx, at)
}

// Noise is simplex noise in [-Amplitude, Amplitude] at the sample position
// or at its optional vector input.
type Noise struct {
	graph.Base
	Params NoiseParams
	gen    opensimplex.Noise32
}

func NewNoise(p NoiseParams, at graph.Node) *Noise {
	n := &Noise{Params: p, gen: opensimplex.New32(p.Seed)}
	n.Init("noise", at)
	return n
}

func (n *Noise) Scalar(ctx *graph.Context) float32 {
	x, y, z := n.Params.point(lookupPoint(ctx, n.Input(0)))
	return n.Params.Amplitude * n.gen.Eval3(x, y, z)
}

// FBM sums octaves of simplex noise. The sum is normalized by the total
// octave weight so the range matches Noise.
type FBM struct {
	graph.Base
	Params NoiseParams
	gen    opensimplex.Noise32
}

func NewFBM(p NoiseParams, at graph.Node) *FBM {
	n := &FBM{Params: p, gen: opensimplex.New32(p.Seed)}
	n.Init("fbm", at)
	return n
}

func (n *FBM) Scalar(ctx *graph.Context) float32 {
	x, y, z := n.Params.point(lookupPoint(ctx, n.Input(0)))
	return n.Params.Amplitude * fbm(n.gen, x, y, z, n.Params)
}

func fbm(gen opensimplex.Noise32, x, y, z float32, p NoiseParams) float32 {
	octaves := max(p.Octaves, 1)
	var sum, norm float32
	freq, amp := float32(1), float32(1)
	for i := 0; i < octaves; i++ {
		sum += amp * gen.Eval3(x*freq, y*freq, z*freq)
		norm += amp
		freq *= p.Lacunarity
		amp *= p.Gain
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}

// VectorNoise is a vector of three decorrelated noise lookups, as used for
// turbulent velocity.
type VectorNoise struct {
	graph.Base
	Params NoiseParams
	gen    [3]opensimplex.Noise32
}

func NewVectorNoise(p NoiseParams, at graph.Node) *VectorNoise {
	n := &VectorNoise{Params: p}
	for i := range n.gen {
		n.gen[i] = opensimplex.New32(p.Seed + int64(i)*7919)
	}
	n.Init("vnoise", at)
	return n
}

func (n *VectorNoise) Vector(ctx *graph.Context) v3.Vec {
	x, y, z := n.Params.point(lookupPoint(ctx, n.Input(0)))
	a := float64(n.Params.Amplitude)
	return v3.Vec{
		X: a * float64(fbm(n.gen[0], x, y, z, n.Params)),
		Y: a * float64(fbm(n.gen[1], x, y, z, n.Params)),
		Z: a * float64(fbm(n.gen[2], x, y, z, n.Params)),
	}
}
