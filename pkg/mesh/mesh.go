// Package mesh holds the polygon surfaces that flow between surface nodes.
package mesh

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is an indexed polygon surface in world space. Faces are either
// triangles or quads; both index into Vertices and wind counterclockwise
// when seen from outside.
type Mesh struct {
	Vertices  []v3.Vec
	Triangles [][3]uint32
	Quads     [][4]uint32
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangle faces, not counting quads.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// QuadCount returns the number of quad faces.
func (m *Mesh) QuadCount() int {
	return len(m.Quads)
}

// IsEmpty returns true if the mesh has no faces.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Triangles)+len(m.Quads) == 0
}

// Clear removes all geometry.
func (m *Mesh) Clear() {
	m.Vertices = m.Vertices[:0]
	m.Triangles = m.Triangles[:0]
	m.Quads = m.Quads[:0]
}

// Clone returns an independent copy.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Vertices:  append([]v3.Vec(nil), m.Vertices...),
		Triangles: append([][3]uint32(nil), m.Triangles...),
		Quads:     append([][4]uint32(nil), m.Quads...),
	}
}

// Validate checks that every face index refers to a vertex and that every
// vertex is finite.
func (m *Mesh) Validate() error {
	n := uint32(len(m.Vertices))
	for i, v := range m.Vertices {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z) ||
			math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) || math.IsInf(v.Z, 0) {
			return fmt.Errorf("mesh: vertex %d is not finite", i)
		}
	}
	for i, t := range m.Triangles {
		for _, idx := range t {
			if idx >= n {
				return fmt.Errorf("mesh: triangle %d references vertex %d of %d", i, idx, n)
			}
		}
	}
	for i, q := range m.Quads {
		for _, idx := range q {
			if idx >= n {
				return fmt.Errorf("mesh: quad %d references vertex %d of %d", i, idx, n)
			}
		}
	}
	return nil
}

// Triangulated returns the faces as triangles, splitting each quad
// (a,b,c,d) into (a,b,c) and (a,c,d).
func (m *Mesh) Triangulated() [][3]uint32 {
	out := make([][3]uint32, 0, len(m.Triangles)+2*len(m.Quads))
	out = append(out, m.Triangles...)
	for _, q := range m.Quads {
		out = append(out, [3]uint32{q[0], q[1], q[2]}, [3]uint32{q[0], q[2], q[3]})
	}
	return out
}

// Bounds returns the axis-aligned box of the vertices. ok is false for a
// mesh without vertices.
func (m *Mesh) Bounds() (lo, hi v3.Vec, ok bool) {
	if len(m.Vertices) == 0 {
		return lo, hi, false
	}
	lo, hi = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		lo = v3.Vec{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y), Z: math.Min(lo.Z, v.Z)}
		hi = v3.Vec{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y), Z: math.Max(hi.Z, v.Z)}
	}
	return lo, hi, true
}

// Transform scales every vertex component-wise and then translates it.
func (m *Mesh) Transform(scale, translate v3.Vec) {
	for i, v := range m.Vertices {
		m.Vertices[i] = v3.Vec{
			X: v.X*scale.X + translate.X,
			Y: v.Y*scale.Y + translate.Y,
			Z: v.Z*scale.Z + translate.Z,
		}
	}
}

// FaceNormal returns the unit normal of triangle t, or the zero vector for
// a degenerate triangle.
func (m *Mesh) FaceNormal(t [3]uint32) v3.Vec {
	a, b, c := m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Length()
	if l == 0 {
		return v3.Vec{}
	}
	return n.MulScalar(1 / l)
}
