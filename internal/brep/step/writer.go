// Package step reads and writes ISO 10303-21 exchange structures holding
// polyhedral boundary representations.
package step

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leefowlercu/aocxchange/internal/brep"
	"github.com/leefowlercu/aocxchange/internal/fsutil"
	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// Application protocols.
const (
	SchemaAP203   = "AP203"
	SchemaAP214CD = "AP214CD"
)

// DefaultTolerance is written when the caller gives a non-positive one.
const DefaultTolerance = 1e-4

// DefaultLayer names the layer of styled shapes that carry a colour only.
const DefaultLayer = "layer-00"

// ErrUnknownSchema is returned by NewWriter for schemas other than AP203 and
// AP214CD.
var ErrUnknownSchema = errors.New("unknown application protocol")

var errNoProducts = errors.New("no shape transferred")

type protocol struct {
	fileSchema  string
	context     string
	name        string
	year        int64
	writeStyles bool
}

var protocols = map[string]protocol{
	SchemaAP203: {
		fileSchema: "CONFIG_CONTROL_DESIGN",
		context:    "configuration controlled 3d designs of mechanical parts and assemblies",
		name:       "config_control_design",
		year:       1994,
	},
	SchemaAP214CD: {
		fileSchema:  "AUTOMOTIVE_DESIGN { 1 0 10303 214 1 1 1 1 }",
		context:     "core data for automotive mechanical design processes",
		name:        "automotive_design",
		year:        2000,
		writeStyles: true,
	},
}

type product struct {
	shape brep.Shape
	style kernel.Style
}

// Writer accumulates shapes, one product each, and writes them on Write.
// Entities are generated at Write time, so a rejected Transfer leaves no trace.
type Writer struct {
	schema   string
	proto    protocol
	tol      float64
	products []product
	now      func() time.Time
	err      error
}

var (
	_ kernel.StyledWriter = (*Writer)(nil)
	_ kernel.Diagnostic   = (*Writer)(nil)
)

// NewWriter returns a writer for opts.Schema (AP214CD when empty) and
// opts.Tolerance.
func NewWriter(opts kernel.WriterOptions) (*Writer, error) {
	schema := strings.ToUpper(opts.Schema)
	if schema == "" {
		schema = SchemaAP214CD
	}
	proto, ok := protocols[schema]
	if !ok {
		return nil, fmt.Errorf("schema %q; %w", opts.Schema, ErrUnknownSchema)
	}
	tol := opts.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return &Writer{schema: schema, proto: proto, tol: tol, now: time.Now}, nil
}

// Schema returns the application protocol written.
func (w *Writer) Schema() string {
	return w.schema
}

// Tolerance returns the uncertainty written in the representation context.
func (w *Writer) Tolerance() float64 {
	return w.tol
}

// Transfer adds s as a product.
func (w *Writer) Transfer(s kernel.Shape) kernel.Status {
	return w.TransferStyled(s, kernel.Style{})
}

// TransferStyled adds s as a product presented with style. Styles are only
// written for AP214.
func (w *Writer) TransferStyled(s kernel.Shape, style kernel.Style) kernel.Status {
	b, ok := brep.FromKernel(s)
	if !ok || b.IsNull() {
		w.err = brep.ErrForeignShape
		return kernel.StatusFail
	}
	faces := brep.Explore(b, kernel.Face)
	if len(faces) == 0 {
		w.err = fmt.Errorf("%s has no faces", b.Type())
		return kernel.StatusVoid
	}
	for i, f := range faces {
		if len(brep.FacePoints(f)) < 3 {
			w.err = fmt.Errorf("face %d has no boundary; %w", i, brep.ErrDegenerate)
			return kernel.StatusFail
		}
	}
	w.products = append(w.products, product{shape: b, style: style})
	w.err = nil
	return kernel.StatusDone
}

// Write writes every transferred product to path.
func (w *Writer) Write(path string) kernel.Status {
	if len(w.products) == 0 {
		w.err = errNoProducts
		return kernel.StatusVoid
	}
	f := w.encode(filepath.Base(path))
	err := fsutil.WriteFileAtomic(path, func(out io.Writer) error {
		_, err := f.WriteTo(out)
		return err
	})
	if err != nil {
		w.err = fmt.Errorf("failed to write %s; %w", path, err)
		return kernel.StatusFail
	}
	w.err = nil
	return kernel.StatusDone
}

// Err returns the cause of the last unsuccessful step.
func (w *Writer) Err() error {
	return w.err
}

// Encode returns the exchange structure Write would produce.
func (w *Writer) Encode(name string) *File {
	return w.encode(name)
}

func (w *Writer) encode(name string) *File {
	f := NewFile()
	f.SetHeader(
		Record{Type: "FILE_DESCRIPTION", Args: []Value{List(Str("aocx model")), Str("2;1")}},
		Record{Type: "FILE_NAME", Args: []Value{
			Str(name),
			Str(w.now().UTC().Format("2006-01-02T15:04:05")),
			List(Str("")), List(Str("")),
			Str("aocx"), Str("aocx"), Str(""),
		}},
		Record{Type: "FILE_SCHEMA", Args: []Value{List(Str(w.proto.fileSchema))}},
	)

	e := &encoder{f: f, tol: w.tol, proto: w.proto,
		points: make(map[brep.Vec3]int), vertices: make(map[brep.Shape]int), edges: make(map[brep.Shape]int)}
	e.contexts()

	var styled []int
	layers := make(map[string][]int)
	var layerOrder []string
	for i, p := range w.products {
		item := e.product(i+1, p.shape)
		if !w.proto.writeStyles {
			continue
		}
		if p.style.Color != nil {
			styled = append(styled, e.style(item, *p.style.Color))
		}
		layer := p.style.Layer
		if layer == "" && p.style.Color != nil {
			layer = DefaultLayer
		}
		if layer != "" {
			if _, seen := layers[layer]; !seen {
				layerOrder = append(layerOrder, layer)
			}
			layers[layer] = append(layers[layer], item)
		}
	}
	if len(styled) > 0 {
		f.Add("MECHANICAL_DESIGN_GEOMETRIC_PRESENTATION_REPRESENTATION", Str(""), Refs(styled...), Ref(e.ctx))
	}
	for _, l := range layerOrder {
		f.Add("PRESENTATION_LAYER_ASSIGNMENT", Str(l), Str(""), Refs(layers[l]...))
	}
	return f
}

type encoder struct {
	f     *File
	tol   float64
	proto protocol

	productCtx int
	defCtx     int
	lengthUnit int
	ctx        int

	points   map[brep.Vec3]int
	vertices map[brep.Shape]int
	edges    map[brep.Shape]int
}

func (e *encoder) contexts() {
	f := e.f
	app := f.Add("APPLICATION_CONTEXT", Str(e.proto.context))
	f.Add("APPLICATION_PROTOCOL_DEFINITION", Str("international standard"), Str(e.proto.name), Int(e.proto.year), Ref(app))
	e.productCtx = f.Add("PRODUCT_CONTEXT", Str(""), Ref(app), Str("mechanical"))
	e.defCtx = f.Add("PRODUCT_DEFINITION_CONTEXT", Str("part definition"), Ref(app), Str("design"))

	e.lengthUnit = f.AddComplex(
		Record{Type: "LENGTH_UNIT"},
		Record{Type: "NAMED_UNIT", Args: []Value{Derived}},
		Record{Type: "SI_UNIT", Args: []Value{Enum("MILLI"), Enum("METRE")}},
	)
	angle := f.AddComplex(
		Record{Type: "NAMED_UNIT", Args: []Value{Derived}},
		Record{Type: "PLANE_ANGLE_UNIT"},
		Record{Type: "SI_UNIT", Args: []Value{Unset, Enum("RADIAN")}},
	)
	solidAngle := f.AddComplex(
		Record{Type: "NAMED_UNIT", Args: []Value{Derived}},
		Record{Type: "SI_UNIT", Args: []Value{Unset, Enum("STERADIAN")}},
		Record{Type: "SOLID_ANGLE_UNIT"},
	)
	uncertainty := f.Add("UNCERTAINTY_MEASURE_WITH_UNIT",
		Typed("LENGTH_MEASURE", Real(e.tol)), Ref(e.lengthUnit),
		Str("distance_accuracy_value"), Str("confusion accuracy"))
	e.ctx = f.AddComplex(
		Record{Type: "GEOMETRIC_REPRESENTATION_CONTEXT", Args: []Value{Int(3)}},
		Record{Type: "GLOBAL_UNCERTAINTY_ASSIGNED_CONTEXT", Args: []Value{Refs(uncertainty)}},
		Record{Type: "GLOBAL_UNIT_ASSIGNED_CONTEXT", Args: []Value{Refs(e.lengthUnit, angle, solidAngle)}},
		Record{Type: "REPRESENTATION_CONTEXT", Args: []Value{Str("Context #1"), Str("3D Context with UNIT and UNCERTAINTY")}},
	)
}

// product writes the product structure and the representation of s. It
// returns the id of the representation item that styles and layers refer to.
func (e *encoder) product(n int, s brep.Shape) int {
	f := e.f
	name := fmt.Sprintf("part %d", n)
	prod := f.Add("PRODUCT", Str(uuid.NewString()), Str(name), Str(""), Refs(e.productCtx))
	if e.proto.name == "automotive_design" {
		f.Add("PRODUCT_RELATED_PRODUCT_CATEGORY", Str("part"), Unset, Refs(prod))
	}
	pdf := f.Add("PRODUCT_DEFINITION_FORMATION", Str(""), Str(""), Ref(prod))
	pd := f.Add("PRODUCT_DEFINITION", Str("design"), Str(""), Ref(pdf), Ref(e.defCtx))
	pds := f.Add("PRODUCT_DEFINITION_SHAPE", Str(""), Str(""), Ref(pd))

	solids, shells, loose := brep.Split(s)
	if len(loose) > 0 {
		if sh, err := brep.MakeShell(loose...); err == nil {
			shells = append(shells, sh)
		}
	}
	var items []int
	for _, sol := range solids {
		items = append(items, e.solid(sol))
	}
	if len(shells) > 0 {
		ids := make([]int, len(shells))
		for i, sh := range shells {
			ids[i] = e.shell(sh)
		}
		items = append(items, f.Add("SHELL_BASED_SURFACE_MODEL", Str(""), Refs(ids...)))
	}
	origin := e.placement(brep.Vec3{}, brep.V(0, 0, 1), brep.V(1, 0, 0))

	repType := "SHAPE_REPRESENTATION"
	switch {
	case len(shells) == 0:
		repType = "ADVANCED_BREP_SHAPE_REPRESENTATION"
	case len(solids) == 0:
		repType = "MANIFOLD_SURFACE_SHAPE_REPRESENTATION"
	}
	rep := f.Add(repType, Str(name), Refs(append(items, origin)...), Ref(e.ctx))
	f.Add("SHAPE_DEFINITION_REPRESENTATION", Ref(pds), Ref(rep))
	return items[0]
}

func (e *encoder) solid(s brep.Shape) int {
	shells := s.Children()
	outer := e.shell(shells[0])
	if len(shells) == 1 {
		return e.f.Add("MANIFOLD_SOLID_BREP", Str(""), Ref(outer))
	}
	voids := make([]int, 0, len(shells)-1)
	for _, v := range shells[1:] {
		voids = append(voids, e.f.Add("ORIENTED_CLOSED_SHELL", Str(""), Derived, Ref(e.shell(v)), Bool(true)))
	}
	return e.f.Add("BREP_WITH_VOIDS", Str(""), Ref(outer), Refs(voids...))
}

func (e *encoder) shell(s brep.Shape) int {
	faces := s.Children()
	ids := make([]int, len(faces))
	for i, f := range faces {
		ids[i] = e.face(f)
	}
	typ := "OPEN_SHELL"
	if brep.IsClosedShell(s) {
		typ = "CLOSED_SHELL"
	}
	return e.f.Add(typ, Str(""), Refs(ids...))
}

func (e *encoder) face(f brep.Shape) int {
	w := brep.OuterWire(f)
	var oriented []int
	for _, edge := range brep.OrderedEdges(w) {
		oriented = append(oriented, e.f.Add("ORIENTED_EDGE", Str(""), Derived, Derived,
			Ref(e.edge(edge)), Bool(edge.Orientation() == brep.Forward)))
	}
	loop := e.f.Add("EDGE_LOOP", Str(""), Refs(oriented...))
	bound := e.f.Add("FACE_OUTER_BOUND", Str(""), Ref(loop), Bool(true))

	pts := brep.FacePoints(f)
	n := brep.FaceNormal(f)
	ref := pts[1].Sub(pts[0]).Normalize()
	plane := e.f.Add("PLANE", Str(""), Ref(e.placement(pts[0], n, ref)))
	return e.f.Add("ADVANCED_FACE", Str(""), Refs(bound), Ref(plane), Bool(true))
}

// edge writes the edge curve of e once, in its forward direction.
func (e *encoder) edge(edge brep.Shape) int {
	key := edge.Oriented(brep.Forward)
	if id, ok := e.edges[key]; ok {
		return id
	}
	v1, v2 := brep.EdgeVertices(key)
	p1, p2 := v1.Point(), v2.Point()
	d := p2.Sub(p1)
	dir := e.f.Add("DIRECTION", Str(""), reals(d.Normalize()))
	vec := e.f.Add("VECTOR", Str(""), Ref(dir), Real(d.Len()))
	line := e.f.Add("LINE", Str(""), Ref(e.point(p1)), Ref(vec))
	id := e.f.Add("EDGE_CURVE", Str(""), Ref(e.vertex(v1)), Ref(e.vertex(v2)), Ref(line), Bool(true))
	e.edges[key] = id
	return id
}

func (e *encoder) vertex(v brep.Shape) int {
	key := v.Oriented(brep.Forward)
	if id, ok := e.vertices[key]; ok {
		return id
	}
	id := e.f.Add("VERTEX_POINT", Str(""), Ref(e.point(v.Point())))
	e.vertices[key] = id
	return id
}

func (e *encoder) point(p brep.Vec3) int {
	if id, ok := e.points[p]; ok {
		return id
	}
	id := e.f.Add("CARTESIAN_POINT", Str(""), reals(p))
	e.points[p] = id
	return id
}

func (e *encoder) placement(origin, axis, ref brep.Vec3) int {
	return e.f.Add("AXIS2_PLACEMENT_3D", Str(""), Ref(e.point(origin)),
		Ref(e.f.Add("DIRECTION", Str(""), reals(axis))),
		Ref(e.f.Add("DIRECTION", Str(""), reals(ref))))
}

// style writes the presentation chain giving item a surface colour.
func (e *encoder) style(item int, c kernel.Color) int {
	f := e.f
	colour := f.Add("COLOUR_RGB", Str(""), Real(c.R), Real(c.G), Real(c.B))
	fillColour := f.Add("FILL_AREA_STYLE_COLOUR", Str(""), Ref(colour))
	fill := f.Add("FILL_AREA_STYLE", Str(""), Refs(fillColour))
	area := f.Add("SURFACE_STYLE_FILL_AREA", Ref(fill))
	side := f.Add("SURFACE_SIDE_STYLE", Str(""), Refs(area))
	usage := f.Add("SURFACE_STYLE_USAGE", Enum("BOTH"), Ref(side))
	assign := f.Add("PRESENTATION_STYLE_ASSIGNMENT", Refs(usage))
	return f.Add("STYLED_ITEM", Str("color"), Refs(assign), Ref(item))
}

func reals(v brep.Vec3) Value {
	return Reals(v.X, v.Y, v.Z)
}
