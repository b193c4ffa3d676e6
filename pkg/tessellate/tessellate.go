// Package tessellate gathers the evaluated surfaces of a graph into named
// triangle meshes for rendering and export. Mesh outputs are taken as they
// are; fog outputs are meshed at an iso density through a kernel.
package tessellate

import (
	"fmt"

	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/graph"
	"github.com/chazu/voxgraph/pkg/kernel"
	"github.com/chazu/voxgraph/pkg/mesh"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
)

// DefaultFogIso is the density at which fog volumes are meshed.
const DefaultFogIso = 0.5

// Part is one named surface.
type Part struct {
	Name string
	Mesh *mesh.Mesh
}

// Options controls Collect.
type Options struct {
	// Kernel meshes fog outputs. Without one, fog-only roots are skipped.
	Kernel kernel.Kernel
	// FogIso is the meshing density; zero uses DefaultFogIso.
	FogIso float32
}

// Collect returns one part per graph root that carries a surface after an
// evaluation pass. Roots with neither a mesh nor a fog output, and roots
// whose surface came out empty, are skipped. The graph is not modified.
func Collect(g *graph.Graph, opts Options) ([]Part, error) {
	if g == nil {
		return nil, nil
	}
	iso := opts.FogIso
	if iso == 0 {
		iso = DefaultFogIso
	}

	var parts []Part
	for _, root := range g.Roots() {
		p, ok := root.(graph.Producer)
		if !ok {
			continue
		}
		out := p.Output()
		name := root.Info().Label()
		switch {
		case out.Has(graph.OutputMesh):
			if !out.Mesh.IsEmpty() {
				parts = append(parts, Part{Name: name, Mesh: out.Mesh})
			}
		case out.Has(graph.OutputScalar) && opts.Kernel != nil:
			m, err := fogMesh(opts.Kernel, out.Scalar, iso)
			if err != nil {
				return nil, fmt.Errorf("tessellate: root %s: %w", name, err)
			}
			if !m.IsEmpty() {
				parts = append(parts, Part{Name: name, Mesh: m})
			}
		}
	}
	return parts, nil
}

// fogMesh meshes the iso density surface of a fog volume, or the zero
// surface of a level-set.
func fogMesh(k kernel.Kernel, f *field.ScalarField, iso float32) (*mesh.Mesh, error) {
	if f.Empty() {
		return &mesh.Mesh{}, nil
	}
	if f.Class == field.ClassLevelSet {
		return k.MeshFromLevelSet(f, 0)
	}
	// Density above iso is inside: iso - density is negative there.
	ls := field.NewScalar(f.Transform, field.ClassLevelSet, iso)
	f.ForEachActive(func(c field.Coord, v float32) {
		ls.Set(c, iso-v)
	})
	return k.MeshFromLevelSet(ls, 0)
}

// Buffers flattens parts into render buffers.
func Buffers(parts []Part) []*mesh.Buffers {
	out := make([]*mesh.Buffers, len(parts))
	for i, p := range parts {
		out[i] = p.Mesh.Flatten(p.Name)
	}
	return out
}

// Triangles returns every face of parts as an sdfx triangle soup, quads
// split in two.
func Triangles(parts []Part) []*sdf.Triangle3 {
	var tris []*sdf.Triangle3
	for _, p := range parts {
		for _, t := range p.Mesh.Triangulated() {
			tris = append(tris, &sdf.Triangle3{
				p.Mesh.Vertices[t[0]],
				p.Mesh.Vertices[t[1]],
				p.Mesh.Vertices[t[2]],
			})
		}
	}
	return tris
}

// SaveSTL writes parts to one binary STL file.
func SaveSTL(path string, parts []Part) error {
	tris := Triangles(parts)
	if len(tris) == 0 {
		return fmt.Errorf("tessellate: nothing to export")
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return fmt.Errorf("tessellate: %w", err)
	}
	return nil
}
