package iges

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"github.com/leefowlercu/aocxchange/internal/brep"
	"github.com/leefowlercu/aocxchange/internal/fsutil"
	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// Version flags of the global section.
const (
	Version51 = 9
	Version53 = 11
)

// Entity type numbers.
const (
	typeCompositeCurve = 102
	typeCopiousData    = 106
	typePlane          = 108
	typeLine           = 110
	typePoint          = 116
	typeDirection      = 123
	typeCurveOnSurface = 142
	typeTrimmedSurface = 144
	typeMSBO           = 186
	typePlaneSurface   = 190
	typeVertexList     = 502
	typeEdgeList       = 504
	typeLoop           = 508
	typeFace           = 510
	typeShell          = 514
)

// Resolution is the minimum resolution written in the global section.
const Resolution = 1e-7

var errNothingToWrite = errors.New("no shape transferred")

// Writer accumulates shapes and writes them as bounded planes (5.1) or as
// manifold solid B-rep objects (5.3).
type Writer struct {
	brepMode bool
	shapes   []brep.Shape
	now      func() time.Time
	err      error
}

var (
	_ kernel.Writer     = (*Writer)(nil)
	_ kernel.Diagnostic = (*Writer)(nil)
)

// NewWriter returns a writer producing version 5.3 B-rep entities when
// opts.BRepMode is set and 5.1 faces otherwise.
func NewWriter(opts kernel.WriterOptions) *Writer {
	return &Writer{brepMode: opts.BRepMode, now: time.Now}
}

// Version returns the version flag written in the global section.
func (w *Writer) Version() int {
	if w.brepMode {
		return Version53
	}
	return Version51
}

// Transfer adds s to the model. Shapes without faces are refused.
func (w *Writer) Transfer(s kernel.Shape) kernel.Status {
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
	w.shapes = append(w.shapes, b)
	w.err = nil
	return kernel.StatusDone
}

// Write writes the transferred shapes to path.
func (w *Writer) Write(path string) kernel.Status {
	if len(w.shapes) == 0 {
		w.err = errNothingToWrite
		return kernel.StatusVoid
	}
	err := fsutil.WriteFileAtomic(path, func(out io.Writer) error {
		return w.encode(out, filepath.Base(path))
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

// Encode writes the file Write would produce.
func (w *Writer) Encode(out io.Writer, name string) error {
	return w.encode(out, name)
}

func (w *Writer) encode(out io.Writer, name string) error {
	m := &model{}
	if w.brepMode {
		m.brep(w.shapes)
	} else {
		m.faces(w.shapes)
	}
	return m.write(out, w.globals(name))
}

func (w *Writer) globals(name string) []any {
	box := brep.EmptyBox()
	for _, s := range w.shapes {
		b := brep.Bounds(s)
		box = box.Extend(b.Min).Extend(b.Max)
	}
	maxCoord := 0.0
	for _, v := range []float64{box.Min.X, box.Min.Y, box.Min.Z, box.Max.X, box.Max.Y, box.Max.Z} {
		maxCoord = math.Max(maxCoord, math.Abs(v))
	}
	stamp := hollerith(w.now().UTC().Format("20060102.150405"))
	g := []any{
		hollerith(","), hollerith(";"),
		hollerith(name), hollerith(name),
		hollerith("aocx"), hollerith("aocx"),
		32, 38, 6, 308, 15,
		hollerith(name),
		1.0, 2, hollerith("MM"),
		1, 1.0,
		stamp,
		Resolution, maxCoord,
		hollerith(""), hollerith(""),
		w.Version(), 0,
		stamp,
	}
	if w.brepMode {
		g = append(g, hollerith(""))
	}
	return g
}

// model is the ordered entity list of one file.
type model struct {
	entities []*entity
}

func (m *model) add(typ, form int, dependent bool, params ...any) *entity {
	status := statusIndependent
	if dependent {
		status = statusDependent
	}
	e := &entity{typ: typ, form: form, status: status, params: params}
	m.entities = append(m.entities, e)
	return e
}

// faces writes every face as a copious data boundary on a bounded plane.
func (m *model) faces(shapes []brep.Shape) {
	for _, s := range shapes {
		for _, f := range brep.Unique(brep.Explore(s, kernel.Face)) {
			pts := brep.FacePoints(f)
			params := []any{2, len(pts) + 1}
			for _, p := range append(pts, pts[0]) {
				params = append(params, p.X, p.Y, p.Z)
			}
			curve := m.add(typeCopiousData, 12, true, params...)

			n := brep.Newell(pts).Normalize()
			c := centroid(pts)
			m.add(typePlane, 1, false, n.X, n.Y, n.Z, n.Dot(pts[0]), curve, c.X, c.Y, c.Z, 0.0)
		}
	}
}

func centroid(pts []brep.Vec3) brep.Vec3 {
	var c brep.Vec3
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.Scale(1 / float64(len(pts)))
}

// brep writes one vertex list and one edge list for the whole file, then a
// manifold solid per solid and a shell per free shell. Faces outside any
// shell are gathered into one open shell per shape.
func (m *model) brep(shapes []brep.Shape) {
	vertices := m.add(typeVertexList, 1, true)
	edges := m.add(typeEdgeList, 1, true)
	bw := &brepWriter{
		m:        m,
		vertices: vertices,
		edges:    edges,
		vertexIx: make(map[brep.Shape]int),
		edgeIx:   make(map[brep.Shape]int),
		vparams:  []any{0},
		eparams:  []any{0},
	}
	for _, s := range shapes {
		solids, shells, loose := brep.Split(s)
		if len(loose) > 0 {
			if sh, err := brep.MakeShell(loose...); err == nil {
				shells = append(shells, sh)
			}
		}
		for _, so := range solids {
			bw.solid(so)
		}
		for _, sh := range shells {
			e := bw.shell(sh, false)
			e.status = statusIndependent
		}
	}
	vertices.params = bw.vparams
	vertices.params[0] = len(bw.vertexIx)
	edges.params = bw.eparams
	edges.params[0] = len(bw.edgeIx)
}

type brepWriter struct {
	m        *model
	vertices *entity
	edges    *entity
	vertexIx map[brep.Shape]int
	edgeIx   map[brep.Shape]int
	vparams  []any
	eparams  []any
}

func (b *brepWriter) vertex(v brep.Shape) int {
	key := v.Oriented(brep.Forward)
	if i, ok := b.vertexIx[key]; ok {
		return i
	}
	p := v.Point()
	b.vparams = append(b.vparams, p.X, p.Y, p.Z)
	i := len(b.vertexIx) + 1
	b.vertexIx[key] = i
	return i
}

func (b *brepWriter) edge(e brep.Shape) int {
	key := e.Oriented(brep.Forward)
	if i, ok := b.edgeIx[key]; ok {
		return i
	}
	v1, v2 := brep.EdgeVertices(key)
	p, q := v1.Point(), v2.Point()
	curve := b.m.add(typeLine, 0, true, p.X, p.Y, p.Z, q.X, q.Y, q.Z)
	b.eparams = append(b.eparams, curve, b.vertices, b.vertex(v1), b.vertices, b.vertex(v2))
	i := len(b.edgeIx) + 1
	b.edgeIx[key] = i
	return i
}

func (b *brepWriter) solid(s brep.Shape) *entity {
	shells := s.Children()
	if len(shells) == 0 {
		return nil
	}
	outer := b.shell(shells[0], true)
	params := []any{outer, true, len(shells) - 1}
	for _, v := range shells[1:] {
		params = append(params, b.shell(v, true), true)
	}
	return b.m.add(typeMSBO, 0, false, params...)
}

func (b *brepWriter) shell(s brep.Shape, dependent bool) *entity {
	form := 2
	if brep.IsClosedShell(s) {
		form = 1
	}
	faces := s.Children()
	params := []any{len(faces)}
	for _, f := range faces {
		params = append(params, b.face(f), true)
	}
	return b.m.add(typeShell, form, dependent, params...)
}

// face writes f with its orientation folded into the loop and the plane, so
// shells always reference faces with an agreeing flag.
func (b *brepWriter) face(f brep.Shape) *entity {
	w := brep.OuterWire(f)
	oriented := brep.OrderedEdges(w)
	params := []any{len(oriented)}
	for _, e := range oriented {
		agrees := e.Orientation() == brep.Forward
		params = append(params, 0, b.edges, b.edge(e), agrees, 0)
	}
	loop := b.m.add(typeLoop, 1, true, params...)

	pts := brep.WirePoints(w)
	n := brep.Newell(pts).Normalize()
	loc := b.m.add(typePoint, 0, true, pts[0].X, pts[0].Y, pts[0].Z, 0)
	dir := b.m.add(typeDirection, 0, true, n.X, n.Y, n.Z)
	surf := b.m.add(typePlaneSurface, 0, true, loc, dir)
	return b.m.add(typeFace, 1, true, surf, 1, true, loop)
}

func (m *model) write(out io.Writer, global []any) error {
	for i, e := range m.entities {
		e.de = 2*i + 1
	}
	lw := newLineWriter(out)
	lw.line(secStart, "aocx IGES export")
	for _, l := range pack(tokens(global), dataWidth) {
		lw.line(secGlobal, l)
	}

	type block struct {
		start int
		lines []string
	}
	blocks := make([]block, len(m.entities))
	next := 1
	for i, e := range m.entities {
		lines := pack(tokens(append([]any{e.typ}, e.params...)), paramWidth)
		blocks[i] = block{start: next, lines: lines}
		next += len(lines)
	}
	for i, e := range m.entities {
		lw.line(secDirectory, fmt.Sprintf("%8d%8d%8d%8d%8d%8d%8d%8d%8s",
			e.typ, blocks[i].start, 0, 0, 0, 0, 0, 0, e.status))
		lw.line(secDirectory, fmt.Sprintf("%8d%8d%8d%8d%8d%8s%8s%8s%8d",
			e.typ, 0, 0, len(blocks[i].lines), e.form, "", "", e.label, 0))
	}
	for i, e := range m.entities {
		for _, l := range blocks[i].lines {
			lw.line(secParameter, fmt.Sprintf("%-64s%8d", l, e.de))
		}
	}
	lw.line(secTerminate, fmt.Sprintf("S%7dG%7dD%7dP%7d",
		lw.seq[secStart], lw.seq[secGlobal], lw.seq[secDirectory], lw.seq[secParameter]))
	return lw.flush()
}
