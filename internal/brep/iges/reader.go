package iges

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/leefowlercu/aocxchange/internal/brep"
	"github.com/leefowlercu/aocxchange/internal/kernel"
)

var (
	errUnsupported = errors.New("unsupported entity")
	errDangling    = errors.New("pointer to a missing directory entry")
)

// rootTypes are the independent entities transferred as roots.
var rootTypes = map[int]bool{
	typeMSBO:           true,
	typeShell:          true,
	typeFace:           true,
	typePlane:          true,
	typeTrimmedSurface: true,
}

// unitScale converts the global units flag to millimetres.
var unitScale = map[int]float64{
	1:  25.4,
	2:  1,
	4:  304.8,
	6:  1000,
	10: 10,
}

type listKey struct {
	list, index int
}

// Reader loads an IGES file. Roots are the independent solids, shells,
// faces, planes and trimmed surfaces, in directory order.
type Reader struct {
	doc     *document
	roots   []int
	scale   float64
	version int
	err     error

	vertices map[listKey]brep.Shape
	edges    map[listKey]brep.Shape
}

var (
	_ kernel.Reader     = (*Reader)(nil)
	_ kernel.Diagnostic = (*Reader)(nil)
)

// NewReader returns an IGES reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read parses path and locates its roots. Files without directory entries
// read as Error.
func (r *Reader) Read(path string) kernel.Status {
	*r = Reader{}
	fh, err := os.Open(path)
	if err != nil {
		r.err = err
		return kernel.StatusFail
	}
	defer fh.Close()

	doc, err := parseDocument(fh)
	if err != nil {
		r.err = err
		return kernel.StatusFail
	}
	if len(doc.records) == 0 {
		r.err = fmt.Errorf("no directory entries; %w", ErrMalformed)
		return kernel.StatusError
	}
	r.doc = doc
	r.scale = 1
	if len(doc.global) > 13 {
		if flag, err := strconv.Atoi(strings.TrimSpace(doc.global[13])); err == nil {
			if s, ok := unitScale[flag]; ok {
				r.scale = s
			}
		}
	}
	if len(doc.global) > 22 {
		r.version, _ = strconv.Atoi(strings.TrimSpace(doc.global[22]))
	}
	r.vertices = make(map[listKey]brep.Shape)
	r.edges = make(map[listKey]brep.Shape)
	for _, de := range doc.order {
		rec := doc.records[de]
		if rootTypes[rec.typ] && rec.subordinate() == "00" {
			r.roots = append(r.roots, de)
		}
	}
	return kernel.StatusDone
}

// Version returns the version flag of the last file read.
func (r *Reader) Version() int {
	return r.version
}

// RootCount returns the number of roots found by the last Read.
func (r *Reader) RootCount() int {
	return len(r.roots)
}

// Transfer builds root i (1-based). Roots that cannot be built, such as an
// unbounded plane, give a null shape; Err tells why.
func (r *Reader) Transfer(i int) kernel.Shape {
	if i < 1 || i > len(r.roots) {
		return brep.Null
	}
	de := r.roots[i-1]
	s, err := r.build(de)
	if err != nil {
		r.err = fmt.Errorf("root %d: entity %d; %w", i, de, err)
		return brep.Null
	}
	return s
}

// Err returns the cause of the last failure.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) record(de int, types ...int) (*record, error) {
	rec, ok := r.doc.get(de)
	if !ok {
		return nil, fmt.Errorf("entity %d; %w", de, errDangling)
	}
	for _, t := range types {
		if rec.typ == t {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("entity %d is type %d; %w", de, rec.typ, errUnsupported)
}

func (r *Reader) build(de int) (brep.Shape, error) {
	rec, err := r.record(de, typeMSBO, typeShell, typeFace, typePlane, typeTrimmedSurface)
	if err != nil {
		return brep.Null, err
	}
	switch rec.typ {
	case typeMSBO:
		return r.solid(rec)
	case typeShell:
		return r.shell(rec.de)
	case typeFace:
		return r.face(rec.de)
	case typePlane:
		return r.plane(rec)
	default:
		return r.trimmed(rec)
	}
}

func (r *Reader) solid(rec *record) (brep.Shape, error) {
	outer, err := r.orientedShell(rec.int(1), rec.int(2))
	if err != nil {
		return brep.Null, err
	}
	voids, err := rec.count(3, 4, 2)
	if err != nil {
		return brep.Null, err
	}
	shells := []brep.Shape{outer}
	for k := 0; k < voids; k++ {
		v, err := r.orientedShell(rec.int(4+2*k), rec.int(5+2*k))
		if err != nil {
			return brep.Null, fmt.Errorf("void %d: %w", k+1, err)
		}
		shells = append(shells, v)
	}
	return brep.MakeSolid(shells...)
}

func (r *Reader) orientedShell(de, flag int) (brep.Shape, error) {
	s, err := r.shell(de)
	if err != nil {
		return brep.Null, err
	}
	if flag == 0 {
		s = s.Reversed()
	}
	return s, nil
}

func (r *Reader) shell(de int) (brep.Shape, error) {
	rec, err := r.record(de, typeShell)
	if err != nil {
		return brep.Null, err
	}
	n, err := rec.count(1, 2, 2)
	if err != nil {
		return brep.Null, err
	}
	faces := make([]brep.Shape, 0, n)
	for k := 0; k < n; k++ {
		f, err := r.face(rec.int(2 + 2*k))
		if err != nil {
			return brep.Null, fmt.Errorf("shell face %d: %w", k+1, err)
		}
		if rec.int(3+2*k) == 0 {
			f = f.Reversed()
		}
		faces = append(faces, f)
	}
	return brep.MakeShell(faces...)
}

// face builds a 510 face from its first loop. Inner loops are dropped.
func (r *Reader) face(de int) (brep.Shape, error) {
	rec, err := r.record(de, typeFace)
	if err != nil {
		return brep.Null, err
	}
	if rec.int(2) < 1 {
		return brep.Null, fmt.Errorf("face %d has no loop; %w", de, brep.ErrDegenerate)
	}
	w, err := r.loop(rec.int(4))
	if err != nil {
		return brep.Null, err
	}
	return brep.BuildFace(w), nil
}

func (r *Reader) loop(de int) (brep.Shape, error) {
	rec, err := r.record(de, typeLoop)
	if err != nil {
		return brep.Null, err
	}
	n, err := rec.count(1, 2, 5)
	if err != nil {
		return brep.Null, err
	}
	edges := make([]brep.Shape, 0, n)
	at := 2
	for k := 0; k < n; k++ {
		typ, list, idx, agrees := rec.int(at), rec.int(at+1), rec.int(at+2), rec.int(at+3)
		curves, err := rec.count(at+4, at+5, 2)
		if err != nil {
			return brep.Null, err
		}
		at += 5 + 2*curves
		if typ != 0 {
			continue
		}
		e, err := r.edge(list, idx)
		if err != nil {
			return brep.Null, fmt.Errorf("loop %d edge %d: %w", de, k+1, err)
		}
		if agrees == 0 {
			e = e.Reversed()
		}
		edges = append(edges, e)
	}
	w, err := brep.MakeWire(edges...)
	if err != nil {
		return brep.Null, fmt.Errorf("loop %d: %w", de, err)
	}
	if !brep.IsClosed(w) {
		return brep.Null, fmt.Errorf("loop %d: %w", de, brep.ErrNotClosed)
	}
	return w, nil
}

func (r *Reader) edge(list, idx int) (brep.Shape, error) {
	key := listKey{list, idx}
	if e, ok := r.edges[key]; ok {
		return e, nil
	}
	rec, err := r.record(list, typeEdgeList)
	if err != nil {
		return brep.Null, err
	}
	if idx < 1 || idx > rec.int(1) {
		return brep.Null, fmt.Errorf("edge index %d out of range; %w", idx, ErrMalformed)
	}
	base := 2 + 5*(idx-1)
	v1, err := r.vertex(rec.int(base+1), rec.int(base+2))
	if err != nil {
		return brep.Null, err
	}
	v2, err := r.vertex(rec.int(base+3), rec.int(base+4))
	if err != nil {
		return brep.Null, err
	}
	e, err := brep.MakeEdge(v1, v2)
	if err != nil {
		return brep.Null, err
	}
	r.edges[key] = e
	return e, nil
}

func (r *Reader) vertex(list, idx int) (brep.Shape, error) {
	key := listKey{list, idx}
	if v, ok := r.vertices[key]; ok {
		return v, nil
	}
	rec, err := r.record(list, typeVertexList)
	if err != nil {
		return brep.Null, err
	}
	if idx < 1 || idx > rec.int(1) {
		return brep.Null, fmt.Errorf("vertex index %d out of range; %w", idx, ErrMalformed)
	}
	base := 2 + 3*(idx-1)
	v := brep.MakeVertex(r.point(rec, base))
	r.vertices[key] = v
	return v, nil
}

func (r *Reader) point(rec *record, at int) brep.Vec3 {
	return brep.V(rec.real(at), rec.real(at+1), rec.real(at+2)).Scale(r.scale)
}

// plane builds a face from a bounded plane, oriented along the plane normal.
func (r *Reader) plane(rec *record) (brep.Shape, error) {
	if rec.int(5) == 0 {
		return brep.Null, fmt.Errorf("plane %d is unbounded; %w", rec.de, errUnsupported)
	}
	normal := brep.V(rec.real(1), rec.real(2), rec.real(3))
	return r.boundedFace(rec.int(5), normal)
}

// trimmed builds a face from the model space outer boundary of a trimmed
// surface. Inner boundaries are dropped.
func (r *Reader) trimmed(rec *record) (brep.Shape, error) {
	var normal brep.Vec3
	if surf, err := r.record(rec.int(1), typePlane); err == nil {
		normal = brep.V(surf.real(1), surf.real(2), surf.real(3))
	}
	if rec.int(2) == 0 {
		return brep.Null, fmt.Errorf("trimmed surface %d has no outer boundary; %w", rec.de, errUnsupported)
	}
	cos, err := r.record(rec.int(4), typeCurveOnSurface)
	if err != nil {
		return brep.Null, err
	}
	return r.boundedFace(cos.int(4), normal)
}

func (r *Reader) boundedFace(curve int, normal brep.Vec3) (brep.Shape, error) {
	pts, err := r.curve(curve, 0)
	if err != nil {
		return brep.Null, err
	}
	w, err := brep.MakePolygon(pts...)
	if err != nil {
		return brep.Null, err
	}
	if brep.Newell(brep.WirePoints(w)).Dot(normal) < 0 {
		w = w.Reversed()
	}
	return brep.BuildFace(w), nil
}

// maxDepth bounds composite curve nesting.
const maxDepth = 16

func (r *Reader) curve(de, depth int) ([]brep.Vec3, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("curves nested too deep; %w", ErrMalformed)
	}
	rec, err := r.record(de, typeCopiousData, typeLine, typeCompositeCurve)
	if err != nil {
		return nil, err
	}
	switch rec.typ {
	case typeLine:
		return []brep.Vec3{r.point(rec, 1), r.point(rec, 4)}, nil
	case typeCompositeCurve:
		n, err := rec.count(1, 2, 1)
		if err != nil {
			return nil, err
		}
		var pts []brep.Vec3
		for k := 0; k < n; k++ {
			seg, err := r.curve(rec.int(2+k), depth+1)
			if err != nil {
				return nil, err
			}
			if len(pts) > 0 && len(seg) > 0 && pts[len(pts)-1] == seg[0] {
				seg = seg[1:]
			}
			pts = append(pts, seg...)
		}
		return pts, nil
	}
	ip := rec.int(1)
	stride := 3 * (ip - 1)
	from := 3
	if ip == 1 {
		stride, from = 2, 4
	}
	if ip < 1 || ip > 3 {
		return nil, fmt.Errorf("copious data type %d; %w", ip, errUnsupported)
	}
	n, err := rec.count(2, from, stride)
	if err != nil {
		return nil, err
	}
	pts := make([]brep.Vec3, 0, n)
	switch ip {
	case 1:
		z := rec.real(3)
		for k := 0; k < n; k++ {
			pts = append(pts, brep.V(rec.real(4+2*k), rec.real(5+2*k), z).Scale(r.scale))
		}
	default:
		for k := 0; k < n; k++ {
			pts = append(pts, r.point(rec, 3+stride*k))
		}
	}
	return pts, nil
}
