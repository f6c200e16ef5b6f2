package brep

import (
	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// Explore returns every sub-shape of type t reached by a depth-first walk of
// s, in traversal order. A sub-shape shared by several parents is returned
// once per parent, so a box yields 24 edges. The walk does not descend below a
// match.
func Explore(s Shape, t kernel.ShapeType) []Shape {
	var out []Shape
	explore(s, t, &out)
	return out
}

func explore(s Shape, t kernel.ShapeType, out *[]Shape) {
	if s.IsNull() {
		return
	}
	if s.Type() == t {
		*out = append(*out, s)
		return
	}
	for _, c := range s.Children() {
		explore(c, t, out)
	}
}

// Unique drops every shape that is Same as an earlier one, ignoring
// orientation. Order is preserved.
func Unique(shapes []Shape) []Shape {
	seen := make(map[*tshape]struct{}, len(shapes))
	out := make([]Shape, 0, len(shapes))
	for _, s := range shapes {
		if s.IsNull() {
			continue
		}
		if _, ok := seen[s.t]; ok {
			continue
		}
		seen[s.t] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Count returns the number of distinct sub-shapes of type t in s.
func Count(s Shape, t kernel.ShapeType) int {
	return len(Unique(Explore(s, t)))
}

// Bounds returns the bounding box of every vertex of s.
func Bounds(s Shape) Box {
	box := EmptyBox()
	for _, v := range Unique(Explore(s, kernel.Vertex)) {
		box = box.Extend(v.Point())
	}
	return box
}

// Translate returns a copy of s moved by d. Sharing inside s is preserved in
// the copy; the copy shares nothing with s.
func Translate(s Shape, d Vec3) Shape {
	if s.IsNull() {
		return Null
	}
	memo := make(map[*tshape]*tshape)
	return Shape{t: translate(s.t, d, memo), orient: s.orient}
}

func translate(t *tshape, d Vec3, memo map[*tshape]*tshape) *tshape {
	if c, ok := memo[t]; ok {
		return c
	}
	c := &tshape{typ: t.typ}
	if t.typ == kernel.Vertex {
		c.point = t.point.Add(d)
	}
	memo[t] = c
	if len(t.children) > 0 {
		c.children = make([]Shape, len(t.children))
		for i, ch := range t.children {
			c.children[i] = Shape{t: translate(ch.t, d, memo), orient: ch.orient}
		}
	}
	return c
}

// Split flattens the compounds of s into its solids, its shells that are not
// part of a solid and its faces that are not part of a shell. Edges, wires and
// vertices are ignored.
func Split(s Shape) (solids, shells, faces []Shape) {
	var walk func(Shape)
	walk = func(x Shape) {
		switch x.Type() {
		case kernel.Solid:
			solids = append(solids, x)
		case kernel.Shell:
			shells = append(shells, x)
		case kernel.Face:
			faces = append(faces, x)
		case kernel.Compound, kernel.CompSolid:
			for _, c := range x.Children() {
				walk(c)
			}
		}
	}
	walk(s)
	return solids, shells, faces
}
