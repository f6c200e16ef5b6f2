// Package stl translates between brep shapes and STL meshes. Writing
// tessellates every face; reading welds the triangles back into one shell.
package stl

import (
	"errors"
	"fmt"

	stlfile "github.com/hschendel/stl"

	"github.com/leefowlercu/aocxchange/internal/brep"
	"github.com/leefowlercu/aocxchange/internal/fsutil"
	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// SolidName is written in the header of ASCII files.
const SolidName = "aocx"

var (
	errNoShape  = errors.New("no shape transferred")
	errNoFacets = errors.New("file contains no usable facets")
)

// Writer holds a single shape. Every Transfer replaces the previous one so
// that a written file only contains the last shape.
type Writer struct {
	ascii bool
	shape brep.Shape
	err   error
}

var (
	_ kernel.Writer     = (*Writer)(nil)
	_ kernel.Diagnostic = (*Writer)(nil)
)

// NewWriter returns a writer producing ASCII files when ascii is set and
// binary files otherwise.
func NewWriter(ascii bool) *Writer {
	return &Writer{ascii: ascii}
}

// Transfer sets the shape to write.
func (w *Writer) Transfer(s kernel.Shape) kernel.Status {
	b, ok := brep.FromKernel(s)
	if !ok || b.IsNull() {
		w.err = brep.ErrForeignShape
		return kernel.StatusFail
	}
	if len(brep.Explore(b, kernel.Face)) == 0 {
		w.err = fmt.Errorf("%s has no faces to mesh", b.Type())
		return kernel.StatusVoid
	}
	w.shape = b
	w.err = nil
	return kernel.StatusDone
}

// Write meshes the current shape into path, replacing any existing file.
func (w *Writer) Write(path string) kernel.Status {
	if w.shape.IsNull() {
		w.err = errNoShape
		return kernel.StatusVoid
	}

	tris := brep.Tessellate(w.shape)
	solid := &stlfile.Solid{
		Name:      SolidName,
		IsAscii:   w.ascii,
		Triangles: make([]stlfile.Triangle, 0, len(tris)),
	}
	for _, t := range tris {
		solid.Triangles = append(solid.Triangles, stlfile.Triangle{
			Normal: vec32(t.Normal),
			Vertices: [3]stlfile.Vec3{
				vec32(t.Vertices[0]),
				vec32(t.Vertices[1]),
				vec32(t.Vertices[2]),
			},
		})
	}

	if err := fsutil.WriteFileAtomic(path, solid.WriteAll); err != nil {
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

// Reader loads an STL file as a single shell.
type Reader struct {
	shape brep.Shape
	err   error
}

var (
	_ kernel.Reader     = (*Reader)(nil)
	_ kernel.Diagnostic = (*Reader)(nil)
)

// NewReader returns an STL reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read parses path, ASCII or binary, and welds coincident vertices so that
// neighbouring facets share edges.
func (r *Reader) Read(path string) kernel.Status {
	r.shape, r.err = brep.Null, nil

	solid, err := stlfile.ReadFile(path)
	if err != nil {
		r.err = fmt.Errorf("failed to parse %s; %w", path, err)
		return kernel.StatusFail
	}

	box := brep.EmptyBox()
	for _, t := range solid.Triangles {
		for _, v := range t.Vertices {
			box = box.Extend(vec64(v))
		}
	}
	sw := brep.NewSewer(brep.LinearTolerance * max(1, box.Diagonal()))
	for _, t := range solid.Triangles {
		// Zero-area facets are dropped.
		sw.AddFace(vec64(t.Vertices[0]), vec64(t.Vertices[1]), vec64(t.Vertices[2]))
	}
	if sw.Len() == 0 {
		r.err = errNoFacets
		return kernel.StatusError
	}

	shell, err := sw.Shell()
	if err != nil {
		r.err = err
		return kernel.StatusFail
	}
	r.shape = shell
	return kernel.StatusDone
}

// RootCount is 1 after a successful Read.
func (r *Reader) RootCount() int {
	if r.shape.IsNull() {
		return 0
	}
	return 1
}

// Transfer returns the shell for root 1.
func (r *Reader) Transfer(i int) kernel.Shape {
	if i != 1 {
		return brep.Null
	}
	return r.shape
}

// Err returns the cause of the last unsuccessful Read.
func (r *Reader) Err() error {
	return r.err
}

func vec32(v brep.Vec3) stlfile.Vec3 {
	return stlfile.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

func vec64(v stlfile.Vec3) brep.Vec3 {
	return brep.Vec3{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}
