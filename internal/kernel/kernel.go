// Package kernel defines the contract between the exchange adapters and a
// geometry kernel: opaque shape handles, format readers and writers that
// report status codes, and the builder primitives used for derived views.
//
// The adapters never look inside a Shape. A kernel implementation owns the
// B-rep representation and the file grammars.
package kernel

import "fmt"

// ShapeType identifies the topological kind of a shape.
type ShapeType int

// Topological shape kinds, from the most aggregated to the simplest.
const (
	Compound ShapeType = iota
	CompSolid
	Solid
	Shell
	Face
	Wire
	Edge
	Vertex
)

var shapeTypeNames = [...]string{
	Compound:  "compound",
	CompSolid: "compsolid",
	Solid:     "solid",
	Shell:     "shell",
	Face:      "face",
	Wire:      "wire",
	Edge:      "edge",
	Vertex:    "vertex",
}

// Valid reports whether t is one of the known shape kinds.
func (t ShapeType) Valid() bool {
	return t >= Compound && t <= Vertex
}

// String returns the lower-case name of the shape kind.
func (t ShapeType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("shapetype(%d)", int(t))
	}
	return shapeTypeNames[t]
}

// Shape is an opaque handle to a kernel-owned B-rep entity.
type Shape interface {
	// IsNull reports whether the handle references nothing.
	IsNull() bool

	// Type returns the topological kind of the shape.
	Type() ShapeType
}

// Format is a CAD file format that a kernel can read and write.
type Format int

// Supported formats.
const (
	IGES Format = iota + 1
	STEP
	STL
	BREP
)

// String returns the logical format name.
func (f Format) String() string {
	switch f {
	case IGES:
		return "iges"
	case STEP:
		return "step"
	case STL:
		return "stl"
	case BREP:
		return "brep"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat returns the format for a logical name such as "step".
func ParseFormat(name string) (Format, bool) {
	switch name {
	case "iges", "igs":
		return IGES, true
	case "step", "stp":
		return STEP, true
	case "stl":
		return STL, true
	case "brep":
		return BREP, true
	default:
		return 0, false
	}
}

// Formats lists every supported format.
func Formats() []Format {
	return []Format{IGES, STEP, STL, BREP}
}

// Reader translates a file into shapes.
type Reader interface {
	// Read loads and checks the file at path.
	Read(path string) Status

	// RootCount returns the number of top-level transferable entities
	// found by the last Read.
	RootCount() int

	// Transfer converts root i (1-based) into a shape. It returns a null
	// shape when the root cannot be transferred.
	Transfer(i int) Shape
}

// Writer serializes shapes into a file.
type Writer interface {
	// Transfer adds a shape to the model being written.
	Transfer(s Shape) Status

	// Write writes the accumulated model to path.
	Write(path string) Status
}

// Style is presentation data attached to a shape in formats that carry it.
type Style struct {
	Color *Color
	Layer string
}

// Color is an RGB colour with components in [0, 1].
type Color struct {
	R, G, B float64
}

// StyledWriter is implemented by writers able to record a colour and a layer
// alongside a shape.
type StyledWriter interface {
	Writer
	TransferStyled(s Shape, style Style) Status
}

// StyledReader is implemented by readers that recover presentation data.
type StyledReader interface {
	Reader

	// Style returns the style of root i (1-based) if the file carried one.
	Style(i int) (Style, bool)
}

// WriterOptions holds format-specific writer settings. Writers ignore the
// fields that do not apply to their format.
type WriterOptions struct {
	// Schema is the STEP application protocol, "AP203" or "AP214CD".
	Schema string

	// Tolerance is the STEP uncertainty written in the representation context.
	Tolerance float64

	// BRepMode selects IGES 5.3 B-rep entities instead of 5.1 faces.
	BRepMode bool

	// ASCII selects ASCII STL output instead of binary.
	ASCII bool
}

// Builder provides the construction primitives needed by derived views.
type Builder interface {
	// MakeCompound groups shapes without implying connectivity.
	MakeCompound(shapes ...Shape) Shape

	// MakeShell assembles faces into a shell.
	MakeShell(faces ...Shape) (Shape, error)

	// MakeSolid builds a solid bounded by shell.
	MakeSolid(shell Shape) (Shape, error)

	// Explore returns every sub-shape of type t found by a depth-first
	// traversal of s. Shared sub-shapes are returned once per parent that
	// references them.
	Explore(s Shape, t ShapeType) []Shape
}

// Kernel is a geometry kernel offering format translators and builders.
type Kernel interface {
	Reader(f Format) (Reader, error)
	Writer(f Format, opts WriterOptions) (Writer, error)
	Builder() Builder
}

// Diagnostic is implemented by readers and writers that keep the cause of
// their last unsuccessful step.
type Diagnostic interface {
	Err() error
}

// Modeler is implemented by builders that also create primitive solids and
// move shapes.
type Modeler interface {
	Builder
	MakeBox(dx, dy, dz float64) (Shape, error)
	MakeCylinder(r, h float64) (Shape, error)
	MakeSphere(r float64) (Shape, error)
	Translate(s Shape, dx, dy, dz float64) (Shape, error)
}

// Inspector is implemented by builders that can measure shapes.
type Inspector interface {
	// CountUnique returns the number of distinct sub-shapes of type t in s,
	// counting a shared sub-shape once whatever its orientation.
	CountUnique(s Shape, t ShapeType) int

	// Bounds returns the axis-aligned bounding box of s. ok is false when s
	// has no vertices.
	Bounds(s Shape) (lo, hi [3]float64, ok bool)
}
