package graph

import (
	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Object is the scene object an evaluation pass runs over. Input producers
// check for the concrete type they need.
type Object interface {
	ObjectKind() string
}

// ParticleSystem is a set of particles. Velocities and Radii are optional;
// when present they have one entry per position. Radii scale the radius
// parameter of particle producers.
type ParticleSystem struct {
	Positions  []v3.Vec
	Velocities []v3.Vec
	Radii      []float32
}

func (*ParticleSystem) ObjectKind() string { return "particles" }

// Len returns the number of particles.
func (p *ParticleSystem) Len() int { return len(p.Positions) }

// SurfaceObject is a polygon mesh in world space.
type SurfaceObject struct {
	Mesh *mesh.Mesh
}

func (*SurfaceObject) ObjectKind() string { return "surface" }

// SmokeCache names grids stored in an asset file. An empty grid name skips
// that grid.
type SmokeCache struct {
	Path         string
	DensityGrid  string
	VelocityGrid string
}

func (*SmokeCache) ObjectKind() string { return "smoke-cache" }

// PostFog carries an already computed fog volume into a post-processing
// pass.
type PostFog struct {
	Fog *field.ScalarField
}

func (*PostFog) ObjectKind() string { return "post-fog" }
