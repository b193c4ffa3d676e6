package tessellate_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/voxgraph/pkg/engine"
	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/graph"
	"github.com/chazu/voxgraph/pkg/kernel"
	"github.com/chazu/voxgraph/pkg/kernel/sdfx"
	"github.com/chazu/voxgraph/pkg/nodes"
	"github.com/chazu/voxgraph/pkg/reduce"
	"github.com/chazu/voxgraph/pkg/tessellate"
	"github.com/chazu/voxgraph/pkg/value"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// newKernel returns a fresh sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.New(reduce.Serial)
}

// evaluate runs one pass over g and fails the test on any producer error.
func evaluate(t *testing.T, g *graph.Graph, obj graph.Object) {
	t.Helper()
	in := &graph.Input{
		Object:    obj,
		Transform: field.Linear(0.1),
		Kernel:    newKernel(),
		Driver:    reduce.Serial,
	}
	r, err := engine.New(nil).Run(context.Background(), g, in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !r.OK() {
		t.Fatalf("pass failed: %v", r.Err())
	}
}

func TestSolidRoot(t *testing.T) {
	g := graph.New()
	box := nodes.NewSolidInput(kernel.ShapeCube, nil, value.NewVectorConst(v3.Vec{X: 0.5, Y: 0.5, Z: 0.5}))
	box.Name = "box"
	g.AddRoot(box)
	evaluate(t, g, nil)

	parts, err := tessellate.Collect(g, tessellate.Options{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	if parts[0].Name != "box" {
		t.Errorf("expected part name 'box', got %q", parts[0].Name)
	}
	if n := len(parts[0].Mesh.Triangulated()); n != 12 {
		t.Errorf("expected 12 triangles, got %d", n)
	}

	bufs := tessellate.Buffers(parts)
	if len(bufs) != 1 || bufs[0].TriangleCount() != 12 || bufs[0].Name != "box" {
		t.Errorf("unexpected buffers %+v", bufs)
	}
}

func TestFogRootNeedsKernel(t *testing.T) {
	g := graph.New()
	sphere := nodes.NewParticleSurface(value.NewConst(0.5), value.NewConst(0.2))
	g.AddRoot(sphere)
	evaluate(t, g, &graph.ParticleSystem{Positions: []v3.Vec{{}}})

	parts, err := tessellate.Collect(g, tessellate.Options{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(parts) != 0 {
		t.Fatalf("fog root without a kernel should be skipped, got %d parts", len(parts))
	}

	parts, err = tessellate.Collect(g, tessellate.Options{Kernel: newKernel()})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	for _, v := range parts[0].Mesh.Vertices {
		if r := v.Length(); r < 0.25 || r > 0.55 {
			t.Errorf("vertex %v at radius %g is off the sphere", v, r)
			break
		}
	}
}

func TestEmptyOutputsSkipped(t *testing.T) {
	g := graph.New()
	g.AddRoot(nodes.NewSurfaceInput())
	evaluate(t, g, &graph.SurfaceObject{})

	parts, err := tessellate.Collect(g, tessellate.Options{Kernel: newKernel()})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(parts) != 0 {
		t.Errorf("expected no parts, got %d", len(parts))
	}
}

func TestEmptyGraph(t *testing.T) {
	parts, err := tessellate.Collect(nil, tessellate.Options{})
	if err != nil || parts != nil {
		t.Errorf("nil graph: got %v, %v", parts, err)
	}
	if err := tessellate.SaveSTL(filepath.Join(t.TempDir(), "x.stl"), nil); err == nil {
		t.Error("expected error exporting nothing")
	}
}

func TestSaveSTL(t *testing.T) {
	parts := []tessellate.Part{{Name: "cube", Mesh: kernel.UnitCube()}}
	tris := tessellate.Triangles(parts)
	if len(tris) != 12 {
		t.Fatalf("expected 12 triangles, got %d", len(tris))
	}

	path := filepath.Join(t.TempDir(), "cube.stl")
	if err := tessellate.SaveSTL(path, parts); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	// Binary STL: 80 byte header, triangle count, 50 bytes per triangle.
	if want := int64(84 + 50*len(tris)); info.Size() != want {
		t.Errorf("file size = %d, want %d", info.Size(), want)
	}
}
