package brep

import (
	"fmt"
	"math"

	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// Sewer builds a shell from polygons given by their corner points, merging
// coincident vertices and reusing the edge between two vertices so that
// adjacent faces share topology.
type Sewer struct {
	tol   float64
	verts map[[3]int64]int
	pts   []Shape
	edges map[[2]int]Shape
	faces []Shape
}

// NewSewer returns a sewer merging points closer than tol. A non-positive
// tol selects 1e-9.
func NewSewer(tol float64) *Sewer {
	if tol <= 0 {
		tol = 1e-9
	}
	return &Sewer{
		tol:   tol,
		verts: make(map[[3]int64]int),
		edges: make(map[[2]int]Shape),
	}
}

func (s *Sewer) vertex(p Vec3) int {
	key := [3]int64{
		int64(math.Round(p.X / s.tol)),
		int64(math.Round(p.Y / s.tol)),
		int64(math.Round(p.Z / s.tol)),
	}
	if id, ok := s.verts[key]; ok {
		return id
	}
	id := len(s.pts)
	s.pts = append(s.pts, MakeVertex(p))
	s.verts[key] = id
	return id
}

func (s *Sewer) edge(a, b int) Shape {
	key := [2]int{a, b}
	orient := Forward
	if a > b {
		key = [2]int{b, a}
		orient = Reversed
	}
	e, ok := s.edges[key]
	if !ok {
		e = newShape(kernel.Edge, s.pts[key[0]].Oriented(Forward), s.pts[key[1]].Oriented(Reversed))
		s.edges[key] = e
	}
	return e.Oriented(orient)
}

// AddFace adds the polygon through pts as a face. Points that collapse onto
// their neighbour are dropped; fewer than three remaining points is an error
// and adds nothing.
func (s *Sewer) AddFace(pts ...Vec3) (Shape, error) {
	ids := make([]int, 0, len(pts))
	for _, p := range pts {
		id := s.vertex(p)
		if len(ids) > 0 && ids[len(ids)-1] == id {
			continue
		}
		ids = append(ids, id)
	}
	for len(ids) > 1 && ids[0] == ids[len(ids)-1] {
		ids = ids[:len(ids)-1]
	}
	if len(ids) < 3 {
		return Null, fmt.Errorf("face collapses to %d vertices; %w", len(ids), ErrDegenerate)
	}
	edges := make([]Shape, len(ids))
	for i := range ids {
		edges[i] = s.edge(ids[i], ids[(i+1)%len(ids)])
	}
	f := BuildFace(newShape(kernel.Wire, edges...))
	s.faces = append(s.faces, f)
	return f, nil
}

// Len returns the number of faces added.
func (s *Sewer) Len() int {
	return len(s.faces)
}

// Shell returns a shell of every face added so far.
func (s *Sewer) Shell() (Shape, error) {
	return MakeShell(s.faces...)
}
