// Package brep is a polyhedral boundary-representation kernel: planar
// polygonal faces bounded by straight edges, assembled into shells, solids
// and compounds.
//
// A Shape is a small value referencing shared topology. Two shapes that
// reference the same underlying entity are Same, possibly with opposite
// orientations; a box's faces reference the same edge objects where they meet.
package brep

import (
	"errors"
	"fmt"

	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// Orientation of a shape relative to its underlying entity.
type Orientation uint8

// Orientations.
const (
	Forward Orientation = iota
	Reversed
)

func (o Orientation) String() string {
	if o == Reversed {
		return "reversed"
	}
	return "forward"
}

// Errors returned by constructors.
var (
	ErrNullShape      = errors.New("null shape")
	ErrWrongType      = errors.New("wrong shape type")
	ErrDegenerate     = errors.New("degenerate geometry")
	ErrNotClosed      = errors.New("wire is not closed")
	ErrNotPlanar      = errors.New("wire is not planar")
	ErrNotConnected   = errors.New("edges are not connected")
	ErrForeignShape   = errors.New("shape does not belong to this kernel")
	ErrInvalidPrimDim = errors.New("primitive dimensions must be positive")
)

// tshape is the shared topological entity behind a Shape.
type tshape struct {
	typ      kernel.ShapeType
	children []Shape
	point    Vec3
}

// Shape is a handle to a topological entity. The zero value is the null shape.
type Shape struct {
	t      *tshape
	orient Orientation
}

// Null is the null shape.
var Null Shape

var _ kernel.Shape = Shape{}

// IsNull reports whether s references nothing.
func (s Shape) IsNull() bool {
	return s.t == nil
}

// Type returns the shape kind. The null shape has an invalid type.
func (s Shape) Type() kernel.ShapeType {
	if s.t == nil {
		return kernel.ShapeType(-1)
	}
	return s.t.typ
}

// Orientation returns the orientation of s.
func (s Shape) Orientation() Orientation {
	return s.orient
}

// Reversed returns s with the opposite orientation.
func (s Shape) Reversed() Shape {
	s.orient ^= 1
	return s
}

// Oriented returns s with orientation o.
func (s Shape) Oriented(o Orientation) Shape {
	s.orient = o
	return s
}

// Same reports whether s and o reference the same entity.
func (s Shape) Same(o Shape) bool {
	return s.t != nil && s.t == o.t
}

// Equal reports whether s and o are the same entity with the same orientation.
func (s Shape) Equal(o Shape) bool {
	return s.Same(o) && s.orient == o.orient
}

// NumChildren returns the number of direct sub-shapes.
func (s Shape) NumChildren() int {
	if s.t == nil {
		return 0
	}
	return len(s.t.children)
}

// Children returns the direct sub-shapes with orientations composed with s.
func (s Shape) Children() []Shape {
	if s.t == nil {
		return nil
	}
	out := make([]Shape, len(s.t.children))
	for i, c := range s.t.children {
		out[i] = Shape{t: c.t, orient: c.orient ^ s.orient}
	}
	return out
}

// Point returns the location of a vertex. It returns the zero vector for other
// shape kinds.
func (s Shape) Point() Vec3 {
	if s.t == nil || s.t.typ != kernel.Vertex {
		return Vec3{}
	}
	return s.t.point
}

func (s Shape) String() string {
	if s.t == nil {
		return "null"
	}
	return fmt.Sprintf("%s(%p,%s)", s.t.typ, s.t, s.orient)
}

// FromKernel returns the brep shape behind a kernel handle.
func FromKernel(k kernel.Shape) (Shape, bool) {
	switch s := k.(type) {
	case Shape:
		return s, true
	case *Shape:
		if s == nil {
			return Null, false
		}
		return *s, true
	default:
		return Null, false
	}
}

func newShape(typ kernel.ShapeType, children ...Shape) Shape {
	c := make([]Shape, len(children))
	copy(c, children)
	return Shape{t: &tshape{typ: typ, children: c}}
}

// MakeVertex creates a vertex at p.
func MakeVertex(p Vec3) Shape {
	return Shape{t: &tshape{typ: kernel.Vertex, point: p}}
}

// MakeEdge creates a straight edge from v1 to v2.
func MakeEdge(v1, v2 Shape) (Shape, error) {
	if v1.Type() != kernel.Vertex || v2.Type() != kernel.Vertex {
		return Null, fmt.Errorf("edge ends must be vertices; %w", ErrWrongType)
	}
	if v1.Same(v2) || v1.Point() == v2.Point() {
		return Null, fmt.Errorf("edge has coincident ends; %w", ErrDegenerate)
	}
	return newShape(kernel.Edge, v1.Oriented(Forward), v2.Oriented(Reversed)), nil
}

// EdgeVertices returns the first and last vertex of e following its
// orientation.
func EdgeVertices(e Shape) (first, last Shape) {
	if e.Type() != kernel.Edge || len(e.t.children) != 2 {
		return Null, Null
	}
	a := e.t.children[0].Oriented(Forward)
	b := e.t.children[1].Oriented(Forward)
	if e.orient == Reversed {
		return b, a
	}
	return a, b
}

// MakeWire chains edges into a wire. Consecutive edges must share a vertex.
func MakeWire(edges ...Shape) (Shape, error) {
	if len(edges) == 0 {
		return Null, fmt.Errorf("wire needs at least one edge; %w", ErrDegenerate)
	}
	for i, e := range edges {
		if e.Type() != kernel.Edge {
			return Null, fmt.Errorf("wire member %d is a %s; %w", i, e.Type(), ErrWrongType)
		}
		if i == 0 {
			continue
		}
		_, last := EdgeVertices(edges[i-1])
		first, _ := EdgeVertices(e)
		if !joins(last, first) {
			return Null, fmt.Errorf("edge %d does not start where edge %d ends; %w", i, i-1, ErrNotConnected)
		}
	}
	return newShape(kernel.Wire, edges...), nil
}

func joins(a, b Shape) bool {
	return a.Same(b) || a.Point() == b.Point()
}

// IsClosed reports whether a wire ends where it starts.
func IsClosed(w Shape) bool {
	edges := OrderedEdges(w)
	if len(edges) == 0 {
		return false
	}
	first, _ := EdgeVertices(edges[0])
	_, last := EdgeVertices(edges[len(edges)-1])
	return joins(first, last)
}

// OrderedEdges returns the edges of a wire in traversal order, each with the
// orientation it is traversed with.
func OrderedEdges(w Shape) []Shape {
	if w.Type() != kernel.Wire {
		return nil
	}
	edges := w.Children()
	if w.orient == Reversed {
		for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
			edges[i], edges[j] = edges[j], edges[i]
		}
	}
	return edges
}

// WirePoints returns the polygon traced by a wire, one point per edge start.
func WirePoints(w Shape) []Vec3 {
	edges := OrderedEdges(w)
	pts := make([]Vec3, 0, len(edges))
	for _, e := range edges {
		first, _ := EdgeVertices(e)
		pts = append(pts, first.Point())
	}
	return pts
}

// MakePolygon creates a closed wire through pts. Each call creates new
// vertices and edges.
func MakePolygon(pts ...Vec3) (Shape, error) {
	pts = dedupeRing(pts)
	if len(pts) < 3 {
		return Null, fmt.Errorf("polygon needs 3 distinct points, got %d; %w", len(pts), ErrDegenerate)
	}
	verts := make([]Shape, len(pts))
	for i, p := range pts {
		verts[i] = MakeVertex(p)
	}
	edges := make([]Shape, len(pts))
	for i := range verts {
		e, err := MakeEdge(verts[i], verts[(i+1)%len(verts)])
		if err != nil {
			return Null, err
		}
		edges[i] = e
	}
	return MakeWire(edges...)
}

// dedupeRing removes consecutive duplicates and a closing point equal to the
// first one.
func dedupeRing(pts []Vec3) []Vec3 {
	out := make([]Vec3, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// MakeFace creates a planar face bounded by a closed wire.
func MakeFace(w Shape) (Shape, error) {
	if w.Type() != kernel.Wire {
		return Null, fmt.Errorf("face boundary is a %s; %w", w.Type(), ErrWrongType)
	}
	if !IsClosed(w) {
		return Null, ErrNotClosed
	}
	pts := WirePoints(w)
	if len(pts) < 3 {
		return Null, fmt.Errorf("face boundary has %d points; %w", len(pts), ErrDegenerate)
	}
	if !planar(pts) {
		return Null, ErrNotPlanar
	}
	return newShape(kernel.Face, w), nil
}

// BuildFace creates a face on a wire without geometric checks. Translators use
// it for boundaries read from files, which are kept as found.
func BuildFace(w Shape) Shape {
	return newShape(kernel.Face, w)
}

// OuterWire returns the boundary wire of a face with the face's orientation
// composed in.
func OuterWire(f Shape) Shape {
	if f.Type() != kernel.Face {
		return Null
	}
	for _, c := range f.Children() {
		if c.Type() == kernel.Wire {
			return c
		}
	}
	return Null
}

// FacePoints returns the boundary polygon of a face. The order is
// counter-clockwise around the face normal.
func FacePoints(f Shape) []Vec3 {
	w := OuterWire(f)
	if w.IsNull() {
		return nil
	}
	return WirePoints(w)
}

// FaceNormal returns the unit normal of a face.
func FaceNormal(f Shape) Vec3 {
	return Newell(FacePoints(f)).Normalize()
}

func planar(pts []Vec3) bool {
	n := Newell(pts).Normalize()
	if n == (Vec3{}) {
		return false
	}
	var c Vec3
	box := EmptyBox()
	for _, p := range pts {
		c = c.Add(p)
		box = box.Extend(p)
	}
	c = c.Scale(1 / float64(len(pts)))
	tol := LinearTolerance * maxf(1, box.Diagonal())
	for _, p := range pts {
		d := p.Sub(c).Dot(n)
		if d > tol || d < -tol {
			return false
		}
	}
	return true
}

// LinearTolerance is the relative distance under which points are coincident.
const LinearTolerance = 1e-7

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// MakeShell assembles faces into a shell.
func MakeShell(faces ...Shape) (Shape, error) {
	if len(faces) == 0 {
		return Null, fmt.Errorf("shell needs at least one face; %w", ErrDegenerate)
	}
	for i, f := range faces {
		if f.Type() != kernel.Face {
			return Null, fmt.Errorf("shell member %d is a %s; %w", i, f.Type(), ErrWrongType)
		}
	}
	return newShape(kernel.Shell, faces...), nil
}

// MakeSolid builds a solid from an outer shell and optional void shells.
func MakeSolid(shells ...Shape) (Shape, error) {
	if len(shells) == 0 {
		return Null, fmt.Errorf("solid needs a shell; %w", ErrDegenerate)
	}
	for i, s := range shells {
		if s.Type() != kernel.Shell {
			return Null, fmt.Errorf("solid member %d is a %s; %w", i, s.Type(), ErrWrongType)
		}
	}
	return newShape(kernel.Solid, shells...), nil
}

// MakeCompound groups shapes. Null shapes are dropped.
func MakeCompound(shapes ...Shape) Shape {
	kept := make([]Shape, 0, len(shapes))
	for _, s := range shapes {
		if !s.IsNull() {
			kept = append(kept, s)
		}
	}
	return newShape(kernel.Compound, kept...)
}

// IsClosedShell reports whether every edge of the shell bounds exactly two
// faces.
func IsClosedShell(s Shape) bool {
	if s.Type() != kernel.Shell {
		return false
	}
	uses := make(map[*tshape]int)
	for _, e := range Explore(s, kernel.Edge) {
		uses[e.t]++
	}
	if len(uses) == 0 {
		return false
	}
	for _, n := range uses {
		if n != 2 {
			return false
		}
	}
	return true
}
