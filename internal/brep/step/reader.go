package step

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/leefowlercu/aocxchange/internal/brep"
	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// Representation item types that become shapes.
var transferable = map[string]bool{
	"MANIFOLD_SOLID_BREP":       true,
	"BREP_WITH_VOIDS":           true,
	"FACETED_BREP":              true,
	"SHELL_BASED_SURFACE_MODEL": true,
	"FACE_BASED_SURFACE_MODEL":  true,
	"CLOSED_SHELL":              true,
	"OPEN_SHELL":                true,
	"ADVANCED_FACE":             true,
	"FACE_SURFACE":              true,
}

var predefinedColours = map[string]kernel.Color{
	"red":     {R: 1},
	"green":   {G: 1},
	"blue":    {B: 1},
	"yellow":  {R: 1, G: 1},
	"magenta": {R: 1, B: 1},
	"cyan":    {G: 1, B: 1},
	"black":   {},
	"white":   {R: 1, G: 1, B: 1},
}

var errUnsupported = errors.New("unsupported entity")

// root is a transferable unit: the items of one shape representation.
type root struct {
	items []int
}

// Reader loads a STEP file. Roots are the shape representations referenced
// by a shape definition; when a file has none, every representation with
// transferable items is a root, and failing that every solid B-rep.
type Reader struct {
	file   *File
	schema string
	roots  []root
	err    error

	vertices  map[int]brep.Shape
	edges     map[int]brep.Shape
	polyEdges map[[2]int]brep.Shape
	shapes    map[int]brep.Shape
}

var (
	_ kernel.StyledReader = (*Reader)(nil)
	_ kernel.Diagnostic   = (*Reader)(nil)
)

// NewReader returns a STEP reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read parses path and locates its roots.
func (r *Reader) Read(path string) kernel.Status {
	*r = Reader{}
	fh, err := os.Open(path)
	if err != nil {
		r.err = err
		return kernel.StatusFail
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		r.err = err
		if errors.Is(err, ErrNoHeader) || errors.Is(err, ErrNoData) {
			return kernel.StatusError
		}
		return kernel.StatusFail
	}
	r.file = f
	if rec, ok := f.HeaderRecord("FILE_SCHEMA"); ok {
		if l := rec.Arg(0); l.Kind == KindList && len(l.List) > 0 {
			r.schema = l.List[0].Str
		}
	}
	r.vertices = make(map[int]brep.Shape)
	r.edges = make(map[int]brep.Shape)
	r.polyEdges = make(map[[2]int]brep.Shape)
	r.shapes = make(map[int]brep.Shape)
	r.findRoots()
	return kernel.StatusDone
}

// Schema returns the first FILE_SCHEMA entry of the last file read.
func (r *Reader) Schema() string {
	return r.schema
}

func (r *Reader) findRoots() {
	used := make(map[int]bool)
	for _, e := range r.file.Entities() {
		if e.Type() == "SHAPE_DEFINITION_REPRESENTATION" {
			if ref := e.Records[0].Arg(1); ref.Kind == KindRef {
				used[ref.Ref] = true
			}
		}
	}
	var reps []*Entity
	for _, e := range r.file.Entities() {
		if strings.HasSuffix(e.Type(), "SHAPE_REPRESENTATION") && (len(used) == 0 || used[e.ID]) {
			reps = append(reps, e)
		}
	}
	for _, rep := range reps {
		var items []int
		for _, it := range rep.Records[0].Arg(1).List {
			if it.Kind != KindRef {
				continue
			}
			if ent, ok := r.file.Get(it.Ref); ok && transferable[ent.Type()] {
				items = append(items, it.Ref)
			}
		}
		if len(items) > 0 {
			r.roots = append(r.roots, root{items: items})
		}
	}
	if len(r.roots) > 0 {
		return
	}
	for _, e := range r.file.Entities() {
		switch e.Type() {
		case "MANIFOLD_SOLID_BREP", "BREP_WITH_VOIDS", "FACETED_BREP":
			r.roots = append(r.roots, root{items: []int{e.ID}})
		}
	}
}

// RootCount returns the number of roots found by the last Read.
func (r *Reader) RootCount() int {
	return len(r.roots)
}

// Transfer builds root i (1-based). A root with several items becomes a
// compound. Roots that cannot be built give a null shape; Err tells why.
func (r *Reader) Transfer(i int) kernel.Shape {
	if i < 1 || i > len(r.roots) {
		return brep.Null
	}
	items := r.roots[i-1].items
	shapes := make([]brep.Shape, 0, len(items))
	for _, id := range items {
		s, err := r.build(id)
		if err != nil {
			r.err = fmt.Errorf("root %d: #%d; %w", i, id, err)
			return brep.Null
		}
		shapes = append(shapes, s)
	}
	if len(shapes) == 1 {
		return shapes[0]
	}
	return brep.MakeCompound(shapes...)
}

// Err returns the cause of the last failure.
func (r *Reader) Err() error {
	return r.err
}

// Style returns the colour and layer of root i when the file assigns them to
// one of its items.
func (r *Reader) Style(i int) (kernel.Style, bool) {
	if i < 1 || i > len(r.roots) {
		return kernel.Style{}, false
	}
	items := r.roots[i-1].items
	var style kernel.Style
	found := false
	for _, e := range r.file.Entities() {
		switch e.Type() {
		case "STYLED_ITEM", "OVER_RIDING_STYLED_ITEM":
			rec := e.Records[0]
			if target := rec.Arg(2); target.Kind != KindRef || !slices.Contains(items, target.Ref) {
				continue
			}
			if c, ok := r.colour(rec.Arg(1), make(map[int]bool)); ok {
				style.Color = &c
				found = true
			}
		case "PRESENTATION_LAYER_ASSIGNMENT":
			if style.Layer != "" {
				continue
			}
			rec := e.Records[0]
			for _, it := range rec.Arg(2).List {
				if it.Kind == KindRef && slices.Contains(items, it.Ref) {
					style.Layer = rec.Arg(0).Str
					found = true
					break
				}
			}
		}
	}
	return style, found
}

// colour searches the presentation graph below v for the first colour.
func (r *Reader) colour(v Value, seen map[int]bool) (kernel.Color, bool) {
	switch v.Kind {
	case KindList:
		for _, e := range v.List {
			if c, ok := r.colour(e, seen); ok {
				return c, true
			}
		}
	case KindRef:
		if seen[v.Ref] {
			return kernel.Color{}, false
		}
		seen[v.Ref] = true
		e, ok := r.file.Get(v.Ref)
		if !ok {
			return kernel.Color{}, false
		}
		switch e.Type() {
		case "COLOUR_RGB":
			rec := e.Records[0]
			cr, _ := rec.Arg(1).Number()
			cg, _ := rec.Arg(2).Number()
			cb, _ := rec.Arg(3).Number()
			return kernel.Color{R: cr, G: cg, B: cb}, true
		case "DRAUGHTING_PRE_DEFINED_COLOUR":
			c, ok := predefinedColours[e.Records[0].Arg(0).Str]
			return c, ok
		}
		for _, rec := range e.Records {
			for _, a := range rec.Args {
				if c, ok := r.colour(a, seen); ok {
					return c, true
				}
			}
		}
	}
	return kernel.Color{}, false
}

func (r *Reader) entity(id int, types ...string) (Record, error) {
	e, ok := r.file.Get(id)
	if !ok {
		return Record{}, fmt.Errorf("#%d is not defined", id)
	}
	for _, t := range types {
		if rec, ok := e.Record(t); ok {
			return rec, nil
		}
	}
	return Record{}, fmt.Errorf("#%d is %s, want %s; %w", id, e.Type(), strings.Join(types, " or "), errUnsupported)
}

func refArg(rec Record, i int) (int, error) {
	v := rec.Arg(i)
	if v.Kind != KindRef {
		return 0, fmt.Errorf("%s argument %d is not a reference", rec.Type, i+1)
	}
	return v.Ref, nil
}

func orientation(v Value) brep.Orientation {
	if b, ok := v.Logical(); ok && !b {
		return brep.Reversed
	}
	return brep.Forward
}

func (r *Reader) build(id int) (brep.Shape, error) {
	if s, ok := r.shapes[id]; ok {
		return s, nil
	}
	e, ok := r.file.Get(id)
	if !ok {
		return brep.Null, fmt.Errorf("#%d is not defined", id)
	}
	rec := e.Records[0]
	var s brep.Shape
	var err error
	switch e.Type() {
	case "MANIFOLD_SOLID_BREP", "FACETED_BREP":
		s, err = r.solid(rec, nil)
	case "BREP_WITH_VOIDS":
		s, err = r.solid(rec, rec.Arg(2).List)
	case "SHELL_BASED_SURFACE_MODEL", "FACE_BASED_SURFACE_MODEL":
		var shells []brep.Shape
		for _, it := range rec.Arg(1).List {
			sh, err := r.shell(it.Ref)
			if err != nil {
				return brep.Null, err
			}
			shells = append(shells, sh)
		}
		switch len(shells) {
		case 0:
			err = fmt.Errorf("surface model #%d is empty; %w", id, brep.ErrDegenerate)
		case 1:
			s = shells[0]
		default:
			s = brep.MakeCompound(shells...)
		}
	case "CLOSED_SHELL", "OPEN_SHELL", "CONNECTED_FACE_SET":
		s, err = r.shell(id)
	case "ADVANCED_FACE", "FACE_SURFACE":
		s, err = r.face(id)
	default:
		err = fmt.Errorf("#%d %s; %w", id, e.Type(), errUnsupported)
	}
	if err != nil {
		return brep.Null, err
	}
	r.shapes[id] = s
	return s, nil
}

func (r *Reader) solid(rec Record, voids []Value) (brep.Shape, error) {
	outerID, err := refArg(rec, 1)
	if err != nil {
		return brep.Null, err
	}
	outer, err := r.shell(outerID)
	if err != nil {
		return brep.Null, err
	}
	shells := []brep.Shape{outer}
	for _, v := range voids {
		sh, err := r.shell(v.Ref)
		if err != nil {
			return brep.Null, err
		}
		shells = append(shells, sh)
	}
	return brep.MakeSolid(shells...)
}

func (r *Reader) shell(id int) (brep.Shape, error) {
	rec, err := r.entity(id, "CLOSED_SHELL", "OPEN_SHELL", "CONNECTED_FACE_SET", "ORIENTED_CLOSED_SHELL", "ORIENTED_OPEN_SHELL")
	if err != nil {
		return brep.Null, err
	}
	if strings.HasPrefix(rec.Type, "ORIENTED_") {
		inner, err := refArg(rec, 2)
		if err != nil {
			return brep.Null, err
		}
		sh, err := r.shell(inner)
		if err != nil {
			return brep.Null, err
		}
		if orientation(rec.Arg(3)) == brep.Reversed {
			sh = sh.Reversed()
		}
		return sh, nil
	}
	var faces []brep.Shape
	for _, v := range rec.Arg(1).List {
		f, err := r.face(v.Ref)
		if err != nil {
			return brep.Null, err
		}
		faces = append(faces, f)
	}
	return brep.MakeShell(faces...)
}

// face builds a face from its outer bound. Inner bounds are not represented
// by this kernel and are dropped.
func (r *Reader) face(id int) (brep.Shape, error) {
	rec, err := r.entity(id, "ADVANCED_FACE", "FACE_SURFACE", "FACE")
	if err != nil {
		return brep.Null, err
	}
	bounds := rec.Arg(1).List
	if len(bounds) == 0 {
		return brep.Null, fmt.Errorf("face #%d has no bound; %w", id, brep.ErrDegenerate)
	}
	boundID := bounds[0].Ref
	for _, b := range bounds {
		if e, ok := r.file.Get(b.Ref); ok && e.Type() == "FACE_OUTER_BOUND" {
			boundID = b.Ref
			break
		}
	}
	brec, err := r.entity(boundID, "FACE_OUTER_BOUND", "FACE_BOUND")
	if err != nil {
		return brep.Null, err
	}
	loopID, err := refArg(brec, 1)
	if err != nil {
		return brep.Null, err
	}
	w, err := r.loop(loopID)
	if err != nil {
		return brep.Null, fmt.Errorf("face #%d: %w", id, err)
	}
	if orientation(brec.Arg(2)) == brep.Reversed {
		w = w.Reversed()
	}
	return brep.BuildFace(w), nil
}

func (r *Reader) loop(id int) (brep.Shape, error) {
	rec, err := r.entity(id, "EDGE_LOOP", "POLY_LOOP")
	if err != nil {
		return brep.Null, err
	}
	var edges []brep.Shape
	if rec.Type == "POLY_LOOP" {
		pts := rec.Arg(1).List
		if len(pts) < 3 {
			return brep.Null, fmt.Errorf("poly loop #%d has %d points; %w", id, len(pts), brep.ErrDegenerate)
		}
		for i := range pts {
			e, err := r.polyEdge(pts[i].Ref, pts[(i+1)%len(pts)].Ref)
			if err != nil {
				return brep.Null, err
			}
			edges = append(edges, e)
		}
	} else {
		for _, v := range rec.Arg(1).List {
			e, err := r.orientedEdge(v.Ref)
			if err != nil {
				return brep.Null, err
			}
			edges = append(edges, e)
		}
	}
	w, err := brep.MakeWire(edges...)
	if err != nil {
		return brep.Null, err
	}
	if !brep.IsClosed(w) {
		return brep.Null, brep.ErrNotClosed
	}
	return w, nil
}

func (r *Reader) orientedEdge(id int) (brep.Shape, error) {
	rec, err := r.entity(id, "ORIENTED_EDGE", "EDGE_CURVE")
	if err != nil {
		return brep.Null, err
	}
	if rec.Type == "EDGE_CURVE" {
		return r.edgeCurve(id)
	}
	inner, err := refArg(rec, 3)
	if err != nil {
		return brep.Null, err
	}
	e, err := r.orientedEdge(inner)
	if err != nil {
		return brep.Null, err
	}
	if orientation(rec.Arg(4)) == brep.Reversed {
		e = e.Reversed()
	}
	return e, nil
}

func (r *Reader) edgeCurve(id int) (brep.Shape, error) {
	if e, ok := r.edges[id]; ok {
		return e, nil
	}
	rec, err := r.entity(id, "EDGE_CURVE")
	if err != nil {
		return brep.Null, err
	}
	v1ID, err := refArg(rec, 1)
	if err != nil {
		return brep.Null, err
	}
	v2ID, err := refArg(rec, 2)
	if err != nil {
		return brep.Null, err
	}
	v1, err := r.vertex(v1ID)
	if err != nil {
		return brep.Null, err
	}
	v2, err := r.vertex(v2ID)
	if err != nil {
		return brep.Null, err
	}
	e, err := brep.MakeEdge(v1, v2)
	if err != nil {
		return brep.Null, fmt.Errorf("edge #%d: %w", id, err)
	}
	r.edges[id] = e
	return e, nil
}

func (r *Reader) vertex(id int) (brep.Shape, error) {
	if v, ok := r.vertices[id]; ok {
		return v, nil
	}
	rec, err := r.entity(id, "VERTEX_POINT", "CARTESIAN_POINT")
	if err != nil {
		return brep.Null, err
	}
	pid := id
	if rec.Type == "VERTEX_POINT" {
		if pid, err = refArg(rec, 1); err != nil {
			return brep.Null, err
		}
	}
	p, err := r.point(pid)
	if err != nil {
		return brep.Null, err
	}
	v := brep.MakeVertex(p)
	r.vertices[id] = v
	return v, nil
}

// polyEdge returns the edge between two cartesian points of a poly loop,
// shared with the neighbouring loop that runs along it.
func (r *Reader) polyEdge(a, b int) (brep.Shape, error) {
	key, orient := [2]int{a, b}, brep.Forward
	if a > b {
		key, orient = [2]int{b, a}, brep.Reversed
	}
	if e, ok := r.polyEdges[key]; ok {
		return e.Oriented(orient), nil
	}
	v1, err := r.vertex(key[0])
	if err != nil {
		return brep.Null, err
	}
	v2, err := r.vertex(key[1])
	if err != nil {
		return brep.Null, err
	}
	e, err := brep.MakeEdge(v1, v2)
	if err != nil {
		return brep.Null, err
	}
	r.polyEdges[key] = e
	return e.Oriented(orient), nil
}

func (r *Reader) point(id int) (brep.Vec3, error) {
	rec, err := r.entity(id, "CARTESIAN_POINT")
	if err != nil {
		return brep.Vec3{}, err
	}
	coords := rec.Arg(1).List
	var c [3]float64
	for i := 0; i < len(coords) && i < 3; i++ {
		n, ok := coords[i].Number()
		if !ok {
			return brep.Vec3{}, fmt.Errorf("point #%d has a non-numeric coordinate", id)
		}
		c[i] = n
	}
	return brep.Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
}
