// Package kernel defines the mesh reconstruction service used by surface
// nodes: conversion between polygon meshes and narrow-band level-sets.
// Implementations (sdfx) sit behind this interface so the rest of the system
// can swap backends without change.
package kernel

import (
	"fmt"

	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Shape selects an analytic solid.
type Shape int

const (
	ShapeCube Shape = iota
	ShapeSphere
)

func (s Shape) String() string {
	switch s {
	case ShapeCube:
		return "cube"
	case ShapeSphere:
		return "sphere"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// ParseShape accepts a shape name or its code (C cube, S sphere).
func ParseShape(s string) (Shape, error) {
	switch s {
	case "cube", "C", "c", "box":
		return ShapeCube, nil
	case "sphere", "S", "s":
		return ShapeSphere, nil
	}
	return 0, fmt.Errorf("kernel: unknown shape %q", s)
}

// Kernel is the mesh reconstruction service.
type Kernel interface {
	// SignedDistance rasterizes a closed mesh into a level-set on tr. The
	// band widths are in voxels; the interior beyond the band is flood
	// filled with the negative background.
	SignedDistance(m *mesh.Mesh, tr field.Transform, exterior, interior float64) (*field.ScalarField, error)

	// MeshFromLevelSet extracts the iso surface of a level-set.
	MeshFromLevelSet(ls *field.ScalarField, iso float32) (*mesh.Mesh, error)

	// Solid returns a closed unit solid centered at the origin: a cube
	// spanning [-1,1] on every axis or a sphere of radius 1.
	Solid(s Shape) (*mesh.Mesh, error)
}

// UnitCube returns the cube [-1,1]^3 as 8 vertices and 6 outward-facing
// quads.
func UnitCube() *mesh.Mesh {
	return &mesh.Mesh{
		Vertices: []v3.Vec{
			{X: -1, Y: -1, Z: -1},
			{X: +1, Y: -1, Z: -1},
			{X: +1, Y: -1, Z: +1},
			{X: -1, Y: -1, Z: +1},
			{X: -1, Y: +1, Z: -1},
			{X: +1, Y: +1, Z: -1},
			{X: +1, Y: +1, Z: +1},
			{X: -1, Y: +1, Z: +1},
		},
		Quads: [][4]uint32{
			{1, 0, 4, 5},
			{2, 1, 5, 6},
			{3, 2, 6, 7},
			{0, 3, 7, 4},
			{2, 3, 0, 1},
			{5, 4, 7, 6},
		},
	}
}
