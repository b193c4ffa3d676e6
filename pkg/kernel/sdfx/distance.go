package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/mesh"
	"github.com/chazu/voxgraph/pkg/reduce"
	"github.com/chewxy/math32"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// feature identifies the part of a triangle a closest point lies on.
type feature uint8

const (
	featFace feature = iota
	featA
	featB
	featC
	featAB
	featBC
	featCA
)

type edgeKey [2]uint32

func newEdgeKey(a, b uint32) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// surface is a welded triangle mesh with angle-weighted pseudonormals on
// faces, edges and vertices. The sign of (p - q)·N, with q the closest
// point and N the pseudonormal of the feature q lies on, tells inside from
// outside for a closed mesh.
type surface struct {
	verts []r3.Vec
	tris  [][3]uint32
	faceN []r3.Vec
	vertN []r3.Vec
	edgeN map[edgeKey]r3.Vec
}

func toR3(v v3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

func newSurface(m *mesh.Mesh, eps float64) *surface {
	w := m.Clone()
	w.Weld(eps)

	s := &surface{
		verts: make([]r3.Vec, len(w.Vertices)),
		vertN: make([]r3.Vec, len(w.Vertices)),
		edgeN: make(map[edgeKey]r3.Vec),
	}
	for i, v := range w.Vertices {
		s.verts[i] = toR3(v)
	}
	for _, t := range w.Triangulated() {
		a, b, c := s.verts[t[0]], s.verts[t[1]], s.verts[t[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		l := r3.Norm(n)
		if l < 1e-12*eps {
			continue
		}
		n = r3.Scale(1/l, n)
		s.tris = append(s.tris, t)
		s.faceN = append(s.faceN, n)

		for i := 0; i < 3; i++ {
			p := s.verts[t[i]]
			u := r3.Sub(s.verts[t[(i+1)%3]], p)
			v := r3.Sub(s.verts[t[(i+2)%3]], p)
			s.vertN[t[i]] = r3.Add(s.vertN[t[i]], r3.Scale(angle(u, v), n))

			k := newEdgeKey(t[i], t[(i+1)%3])
			s.edgeN[k] = r3.Add(s.edgeN[k], n)
		}
	}
	return s
}

func angle(u, v r3.Vec) float64 {
	d := r3.Norm(u) * r3.Norm(v)
	if d == 0 {
		return 0
	}
	return math.Acos(math.Max(-1, math.Min(1, r3.Dot(u, v)/d)))
}

func (s *surface) pseudonormal(i int, f feature) r3.Vec {
	t := s.tris[i]
	switch f {
	case featA:
		return s.vertN[t[0]]
	case featB:
		return s.vertN[t[1]]
	case featC:
		return s.vertN[t[2]]
	case featAB:
		return s.edgeN[newEdgeKey(t[0], t[1])]
	case featBC:
		return s.edgeN[newEdgeKey(t[1], t[2])]
	case featCA:
		return s.edgeN[newEdgeKey(t[2], t[0])]
	}
	return s.faceN[i]
}

// closestOnTriangle returns the point of triangle abc nearest to p and the
// feature it lies on, following the Voronoi-region walk in Ericson,
// Real-Time Collision Detection, 5.1.5.
func closestOnTriangle(p, a, b, c r3.Vec) (r3.Vec, feature) {
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	ap := r3.Sub(p, a)
	d1 := r3.Dot(ab, ap)
	d2 := r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a, featA
	}

	bp := r3.Sub(p, b)
	d3 := r3.Dot(ab, bp)
	d4 := r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b, featB
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return r3.Add(a, r3.Scale(v, ab)), featAB
	}

	cp := r3.Sub(p, c)
	d5 := r3.Dot(ab, cp)
	d6 := r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c, featC
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return r3.Add(a, r3.Scale(w, ac)), featCA
	}

	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return r3.Add(b, r3.Scale(w, r3.Sub(c, b))), featBC
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac))), featFace
}

// SignedDistance rasterizes m into a narrow-band level-set. Each triangle
// writes the exact distance to every voxel within the band of its bounding
// box; the per-worker results keep the smallest magnitude and are merged
// the same way. Voxels past their side's band are deactivated and the
// interior is flood filled.
func (k *Kernel) SignedDistance(m *mesh.Mesh, tr field.Transform, exterior, interior float64) (*field.ScalarField, error) {
	if !tr.Valid() {
		return nil, fmt.Errorf("sdfx: invalid transform %+v", tr)
	}
	exterior = math.Max(exterior, 1)
	interior = math.Max(interior, 1)
	vs := tr.Voxel()
	exW, inW := exterior*vs, interior*vs
	ls := field.NewScalar(tr, field.ClassLevelSet, float32(exW))
	if m.IsEmpty() {
		return ls, nil
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("sdfx: %w", err)
	}

	s := newSurface(m, vs*1e-6)
	band := math.Max(exW, inW)
	parts, err := reduce.Map(k.driver, len(s.tris), func(int) *field.ScalarField {
		return field.NewScalar(tr, field.ClassLevelSet, float32(exW))
	}, func(part *field.ScalarField, i int) error {
		rasterizeTriangle(s, i, part, band)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sdfx: rasterize: %w", err)
	}

	for _, part := range parts {
		part.ForEachActive(func(c field.Coord, v float32) {
			if cur, on := ls.Get(c); !on || math32.Abs(v) < math32.Abs(cur) {
				ls.Set(c, v)
			}
		})
	}
	for _, c := range ls.ActiveCoords() {
		v := ls.Value(c)
		switch {
		case v >= 0 && float64(v) >= exW:
			ls.SetOff(c, float32(exW))
		case v < 0 && float64(-v) >= inW:
			ls.SetOff(c, -float32(exW))
		}
	}
	field.SignedFloodFill(ls)
	field.PruneScalar(ls, 0)
	return ls, nil
}

func rasterizeTriangle(s *surface, i int, out *field.ScalarField, band float64) {
	t := s.tris[i]
	a, b, c := s.verts[t[0]], s.verts[t[1]], s.verts[t[2]]
	lo := v3.Vec{
		X: math.Min(a.X, math.Min(b.X, c.X)) - band,
		Y: math.Min(a.Y, math.Min(b.Y, c.Y)) - band,
		Z: math.Min(a.Z, math.Min(b.Z, c.Z)) - band,
	}
	hi := v3.Vec{
		X: math.Max(a.X, math.Max(b.X, c.X)) + band,
		Y: math.Max(a.Y, math.Max(b.Y, c.Y)) + band,
		Z: math.Max(a.Z, math.Max(b.Z, c.Z)) + band,
	}
	r := out.Transform.CoordRange(lo, hi)
	for z := r.Min.Z; z <= r.Max.Z; z++ {
		for y := r.Min.Y; y <= r.Max.Y; y++ {
			for x := r.Min.X; x <= r.Max.X; x++ {
				at := field.Coord{X: x, Y: y, Z: z}
				p := toR3(out.Transform.IndexToWorld(at))
				q, f := closestOnTriangle(p, a, b, c)
				diff := r3.Sub(p, q)
				d := r3.Norm(diff)
				if d >= band {
					continue
				}
				if cur, on := out.Get(at); on && float64(math32.Abs(cur)) <= d {
					continue
				}
				if r3.Dot(diff, s.pseudonormal(i, f)) < 0 {
					d = -d
				}
				out.Set(at, float32(d))
			}
		}
	}
}

