package mesh

// Buffers is a triangle mesh flattened for rendering or export.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Buffers struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // graph output this came from
}

// VertexCount returns the number of vertices.
func (b *Buffers) VertexCount() int {
	return len(b.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (b *Buffers) TriangleCount() int {
	return len(b.Indices) / 3
}

// IsEmpty returns true if the buffers hold no geometry.
func (b *Buffers) IsEmpty() bool {
	return len(b.Vertices) == 0
}

// Flatten converts m into flat-shaded buffers: every triangle gets its own
// three vertices carrying the face normal.
func (m *Mesh) Flatten(name string) *Buffers {
	tris := m.Triangulated()
	out := &Buffers{
		Vertices: make([]float32, 0, len(tris)*9),
		Normals:  make([]float32, 0, len(tris)*9),
		Indices:  make([]uint32, 0, len(tris)*3),
		Name:     name,
	}
	for i, t := range tris {
		n := m.FaceNormal(t)
		for j := 0; j < 3; j++ {
			v := m.Vertices[t[j]]
			out.Vertices = append(out.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			out.Normals = append(out.Normals, float32(n.X), float32(n.Y), float32(n.Z))
			out.Indices = append(out.Indices, uint32(i*3+j))
		}
	}
	return out
}
