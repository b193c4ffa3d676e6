// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library for surface extraction and
// analytic solids, and gonum's r3 geometry for mesh rasterization.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/kernel"
	"github.com/chazu/voxgraph/pkg/mesh"
	"github.com/chazu/voxgraph/pkg/reduce"
	"github.com/chazu/voxgraph/pkg/sampler"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

// sphereCells controls marching cubes resolution for analytic solids.
const sphereCells = 48

// maxMeshCells caps marching cubes resolution along the longest axis.
const maxMeshCells = 1024

// Kernel implements kernel.Kernel using sdfx.
type Kernel struct {
	driver reduce.Driver
}

// New returns a Kernel that rasterizes meshes with d.
func New(d reduce.Driver) *Kernel {
	return &Kernel{driver: d}
}

// levelSetSDF adapts a sampled level-set to sdf.SDF3 so the sdfx renderers
// can extract its iso surface.
type levelSetSDF struct {
	ls  *field.ScalarField
	iso float32
	bb  sdf.Box3
}

func (s *levelSetSDF) Evaluate(p v3.Vec) float64 {
	return float64(sampler.Scalar(s.ls, p) - s.iso)
}

func (s *levelSetSDF) BoundingBox() sdf.Box3 {
	return s.bb
}

// MeshFromLevelSet extracts the iso surface with marching cubes at roughly
// one cell per voxel and welds the resulting triangle soup.
func (k *Kernel) MeshFromLevelSet(ls *field.ScalarField, iso float32) (*mesh.Mesh, error) {
	b := ls.Bounds()
	if b.Empty() {
		return &mesh.Mesh{}, nil
	}
	if !ls.Transform.Valid() {
		return nil, fmt.Errorf("sdfx: invalid level-set transform %+v", ls.Transform)
	}
	b.Min = b.Min.Offset(-1, -1, -1)
	b.Max = b.Max.Offset(1, 1, 1)
	lo, hi := ls.Transform.WorldBounds(b)
	d := b.Dim()
	cells := min(max(d.X, d.Y, d.Z), maxMeshCells)

	s := &levelSetSDF{ls: ls, iso: iso, bb: sdf.Box3{Min: lo, Max: hi}}
	triangles := render.ToTriangles(s, render.NewMarchingCubesUniform(cells))
	return soupToMesh(triangles, ls.Transform.Voxel()*1e-4), nil
}

// Solid returns an analytic unit solid.
func (k *Kernel) Solid(shape kernel.Shape) (*mesh.Mesh, error) {
	switch shape {
	case kernel.ShapeCube:
		return kernel.UnitCube(), nil
	case kernel.ShapeSphere:
		s, err := sdf.Sphere3D(1)
		if err != nil {
			return nil, fmt.Errorf("sdfx: sphere: %w", err)
		}
		triangles := render.ToTriangles(s, render.NewMarchingCubesUniform(sphereCells))
		return soupToMesh(triangles, 1e-6), nil
	}
	return nil, fmt.Errorf("sdfx: unsupported shape %v", shape)
}

func soupToMesh(triangles []*sdf.Triangle3, eps float64) *mesh.Mesh {
	corners := make([][3]v3.Vec, 0, len(triangles))
	for _, tri := range triangles {
		c := [3]v3.Vec{tri[0], tri[1], tri[2]}
		if math.IsNaN(c[0].X + c[1].X + c[2].X) {
			continue
		}
		corners = append(corners, c)
	}
	return mesh.FromTriangles(corners, eps)
}
