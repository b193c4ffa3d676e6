package nodes

import (
	"math"

	"github.com/chazu/voxgraph/pkg/engine"
	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/graph"
	"github.com/chazu/voxgraph/pkg/reduce"
	"github.com/chazu/voxgraph/pkg/sampler"
	"github.com/chewxy/math32"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Input slots of ParticleSurface.
const (
	ParticleSize = iota
	ParticleCutoff
)

// ParticleSurface rasterizes one sphere per particle into a narrow-band
// level-set whose half width is the cutoff, then converts the union to a
// fog volume with a solid interior. The sphere radius is the size input,
// scaled by the particle's radius when the object carries radii.
type ParticleSurface struct {
	graph.Base
	fog *field.ScalarField
}

func NewParticleSurface(size, cutoff graph.Node) *ParticleSurface {
	n := &ParticleSurface{fog: field.NewFog(field.Linear(1))}
	n.Init("particle-surface", size, cutoff)
	return n
}

func (n *ParticleSurface) Evaluate(in *graph.Input) error {
	n.fog = field.NewFog(in.Transform)
	ps, ok := objectAs[*graph.ParticleSystem](in, n)
	if !ok || ps.Len() == 0 {
		return nil
	}
	ctx := in.Sample(nil, v3.Vec{})
	size := float64(engine.ScalarOr(&ctx, n.Input(ParticleSize), 1))
	vs := in.Transform.Voxel()
	width := math.Max(float64(engine.ScalarOr(&ctx, n.Input(ParticleCutoff), float32(vs))), vs)
	rmin, rmax := in.RadiusRange()
	perParticle := len(ps.Radii) == ps.Len()

	radius := func(i int) float64 {
		r := size
		if perParticle {
			r *= float64(ps.Radii[i])
		}
		rv := r / vs
		if rv < rmin || rv > rmax {
			n.WarnOnce(in.Logger(), "particle size outside rasterizer range, clamped",
				"radius_voxels", rv, "min", rmin, "max", rmax)
			rv = math.Max(rmin, math.Min(rmax, rv))
		}
		return rv * vs
	}

	in.Logger().Debug("rasterizing particle spheres", "node", n.Label(), "particles", ps.Len())
	ls := field.NewScalar(in.Transform, field.ClassLevelSet, float32(width))
	err := reduce.Deposit(in.Driver, ls, nil, ps.Len(), field.OpMin, nil,
		func(acc *reduce.Accum[struct{}], i int) error {
			rasterizeSphere(acc.Scalar, ps.Positions[i], radius(i), width)
			return nil
		})
	if err != nil {
		return err
	}

	in.Logger().Debug("converting fog volume", "node", n.Label(), "active", ls.ActiveCount())
	field.SdfToFog(ls, float32(width))
	n.fog = ls
	return nil
}

// rasterizeSphere writes the signed distance to a sphere into every voxel
// closer than width to its surface or inside it, keeping the smaller value
// where out already holds one. Interior values are clamped at -width.
func rasterizeSphere(out *field.ScalarField, c v3.Vec, r, width float64) {
	ext := r + width
	box := out.Transform.CoordRange(
		c.Sub(v3.Vec{X: ext, Y: ext, Z: ext}),
		c.Add(v3.Vec{X: ext, Y: ext, Z: ext}),
	)
	for z := box.Min.Z; z <= box.Max.Z; z++ {
		for y := box.Min.Y; y <= box.Max.Y; y++ {
			for x := box.Min.X; x <= box.Max.X; x++ {
				at := field.Coord{X: x, Y: y, Z: z}
				d := out.Transform.IndexToWorld(at).Sub(c).Length() - r
				if d >= width {
					continue
				}
				v := float32(math.Max(d, -width))
				if cur, on := out.Get(at); on && cur <= v {
					continue
				}
				out.Set(at, v)
			}
		}
	}
}

func (n *ParticleSurface) Output() graph.Output { return graph.FogOutput(n.fog) }
func (n *ParticleSurface) Clear()               { n.fog.Clear() }

// Input slots of ParticleField.
const (
	ParticleResolution = iota
	ParticleWeight
)

// ParticleField deposits particle weights into a density field and
// weighted particle velocities into a velocity field, with trilinear
// splatting. The velocity is then divided by the accumulated weight. When
// the resolution input is coarser than the pass voxel, deposition happens
// on an auxiliary grid of that voxel size that is resampled afterwards.
type ParticleField struct {
	graph.Base
	fog *field.ScalarField
	vel *field.VectorField
}

func NewParticleField(resolution, weight graph.Node) *ParticleField {
	n := &ParticleField{fog: field.NewFog(field.Linear(1)), vel: field.NewVector(field.Linear(1))}
	n.Init("particle-field", resolution, weight)
	return n
}

func (n *ParticleField) Evaluate(in *graph.Input) error {
	n.fog = field.NewFog(in.Transform)
	n.vel = field.NewVector(in.Transform)
	ps, ok := objectAs[*graph.ParticleSystem](in, n)
	if !ok || ps.Len() == 0 {
		return nil
	}

	ctx := in.Sample(nil, v3.Vec{})
	work := in.Transform
	res := float64(engine.ScalarOr(&ctx, n.Input(ParticleResolution), 0))
	aux := work.Voxel() < res
	if aux {
		work = field.Linear(res)
	}
	withVel := len(ps.Velocities) == ps.Len()
	if !withVel && len(ps.Velocities) > 0 {
		n.WarnOnce(in.Logger(), "velocity count does not match particle count, velocity skipped",
			"particles", ps.Len(), "velocities", len(ps.Velocities))
	}

	in.Logger().Debug("rasterizing particle fields", "node", n.Label(),
		"particles", ps.Len(), "voxel", work.Voxel(), "auxiliary", aux)
	fog, vel := field.NewFog(work), field.NewVector(work)
	var velDst *field.VectorField
	if withVel {
		velDst = vel
	}
	err := reduce.Deposit(in.Driver, fog, velDst, ps.Len(), field.OpSum,
		func(int) *graph.Memo { return in.NewMemo() },
		func(w *reduce.Accum[*graph.Memo], i int) error {
			p := ps.Positions[i]
			c := in.Sample(w.State, p)
			weight := engine.ScalarOr(&c, n.Input(ParticleWeight), 1)
			sampler.Splat(w.Scalar, p, weight)
			if w.Vector != nil {
				sampler.SplatVector(w.Vector, p, ps.Velocities[i].MulScalar(float64(weight)))
			}
			return nil
		})
	if err != nil {
		return err
	}
	if withVel {
		if excluded := normalize(vel, fog); excluded > 0 {
			in.Logger().Debug("voxels without weight left out of velocity normalization",
				"node", n.Label(), "voxels", excluded)
		}
	}

	if aux {
		in.Logger().Debug("upsampling particle fog", "node", n.Label())
		sampler.Resample(fog, n.fog, 0)
		sampler.ResampleVector(vel, n.vel, 0)
	} else {
		n.fog, n.vel = fog, vel
	}
	field.DeactivateBackground(n.fog, 0)
	n.vel.Prune(isZeroVec)
	return nil
}

// normalize divides each active velocity by the weight accumulated at the
// same voxel. Voxels whose weight magnitude is at most weightEpsilon are
// deactivated. It returns how many were.
func normalize(vel *field.VectorField, weight *field.ScalarField) int {
	excluded := 0
	for _, c := range vel.ActiveCoords() {
		w := weight.Value(c)
		if math32.Abs(w) <= weightEpsilon {
			vel.SetOff(c, v3.Vec{})
			excluded++
			continue
		}
		vel.Set(c, vel.Value(c).MulScalar(1/float64(w)))
	}
	return excluded
}

func (n *ParticleField) Output() graph.Output {
	return graph.Output{Kind: graph.OutputScalar | graph.OutputVector, Scalar: n.fog, Vector: n.vel}
}

func (n *ParticleField) Clear() {
	n.fog.Clear()
	n.vel.Clear()
}
