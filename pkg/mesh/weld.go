package mesh

import (
	"slices"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// weldPoint is a kept vertex in the weld tree.
type weldPoint struct {
	p     v3.Vec
	index uint32
}

func (a weldPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	b := c.(weldPoint)
	switch d {
	case 0:
		return a.p.X - b.p.X
	case 1:
		return a.p.Y - b.p.Y
	default:
		return a.p.Z - b.p.Z
	}
}

func (weldPoint) Dims() int { return 3 }

func (a weldPoint) Distance(c kdtree.Comparable) float64 {
	d := a.p.Sub(c.(weldPoint).p)
	return d.Dot(d)
}

// Weld merges every vertex lying within eps of an earlier kept vertex into
// it, remaps the faces and drops faces that collapse. Marching cubes emits
// one vertex per triangle corner; welding restores the shared topology that
// sign computation and normals rely on.
func (m *Mesh) Weld(eps float64) {
	if eps <= 0 {
		eps = 1e-9
	}
	var tree kdtree.Tree
	remap := make([]uint32, len(m.Vertices))
	verts := make([]v3.Vec, 0, len(m.Vertices))
	for i, v := range m.Vertices {
		q := weldPoint{p: v}
		if near, d2 := tree.Nearest(q); near != nil && d2 <= eps*eps {
			remap[i] = near.(weldPoint).index
			continue
		}
		q.index = uint32(len(verts))
		tree.Insert(q, false)
		verts = append(verts, v)
		remap[i] = q.index
	}
	m.Vertices = verts

	tris := m.Triangles[:0]
	for _, t := range m.Triangles {
		t = [3]uint32{remap[t[0]], remap[t[1]], remap[t[2]]}
		if t[0] != t[1] && t[1] != t[2] && t[0] != t[2] {
			tris = append(tris, t)
		}
	}
	m.Triangles = tris

	quads := m.Quads[:0]
	for _, q := range m.Quads {
		q = [4]uint32{remap[q[0]], remap[q[1]], remap[q[2]], remap[q[3]]}
		corners := distinctCorners(q)
		switch {
		case len(corners) == 4:
			quads = append(quads, q)
		case len(corners) == 3 && q[0] != q[2] && q[1] != q[3]:
			// One edge collapsed; the rest is still a triangle.
			m.Triangles = append(m.Triangles, [3]uint32{corners[0], corners[1], corners[2]})
		}
	}
	m.Quads = quads
}

// FromTriangles builds a welded mesh from a triangle soup.
func FromTriangles(corners [][3]v3.Vec, eps float64) *Mesh {
	m := &Mesh{
		Vertices:  make([]v3.Vec, 0, 3*len(corners)),
		Triangles: make([][3]uint32, 0, len(corners)),
	}
	for _, c := range corners {
		base := uint32(len(m.Vertices))
		m.Vertices = append(m.Vertices, c[0], c[1], c[2])
		m.Triangles = append(m.Triangles, [3]uint32{base, base + 1, base + 2})
	}
	m.Weld(eps)
	return m
}

func distinctCorners(q [4]uint32) []uint32 {
	out := make([]uint32, 0, 4)
	for _, v := range q {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
