// Package native reads and writes the kernel's own .brep document: a YAML
// table of topology nodes in which every node references earlier nodes only.
package native

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leefowlercu/aocxchange/internal/brep"
	"github.com/leefowlercu/aocxchange/internal/fsutil"
	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// Document identification.
const (
	FormatName = "aocx-brep"
	Version    = 1
)

var (
	ErrFormat  = errors.New("not an aocx-brep document")
	ErrVersion = errors.New("unsupported aocx-brep version")
	ErrRef     = errors.New("invalid node reference")
)

var errNothingToWrite = errors.New("no shape transferred")

// Document is the serialized form.
type Document struct {
	Format  string `yaml:"format"`
	Version int    `yaml:"version"`
	Nodes   []Node `yaml:"nodes"`
	Roots   []Ref  `yaml:"roots"`
}

// Node is one topological entity.
type Node struct {
	Type     string      `yaml:"type"`
	Point    *[3]float64 `yaml:"point,omitempty,flow"`
	Children []Ref       `yaml:"children,omitempty,flow"`
}

// Ref points at a node by index.
type Ref struct {
	Ref      int  `yaml:"ref"`
	Reversed bool `yaml:"reversed,omitempty"`
}

// Encode builds the document of shapes. Shared sub-shapes become one node.
func Encode(shapes ...brep.Shape) *Document {
	e := &encoder{ids: make(map[brep.Shape]int)}
	doc := &Document{Format: FormatName, Version: Version}
	for _, s := range shapes {
		doc.Roots = append(doc.Roots, e.ref(s))
	}
	doc.Nodes = e.nodes
	return doc
}

type encoder struct {
	ids   map[brep.Shape]int
	nodes []Node
}

func (e *encoder) ref(s brep.Shape) Ref {
	return Ref{Ref: e.node(s), Reversed: s.Orientation() == brep.Reversed}
}

func (e *encoder) node(s brep.Shape) int {
	key := s.Oriented(brep.Forward)
	if id, ok := e.ids[key]; ok {
		return id
	}
	n := Node{Type: s.Type().String()}
	if s.Type() == kernel.Vertex {
		p := s.Point()
		n.Point = &[3]float64{p.X, p.Y, p.Z}
	}
	for _, c := range key.Children() {
		n.Children = append(n.Children, e.ref(c))
	}
	id := len(e.nodes)
	e.nodes = append(e.nodes, n)
	e.ids[key] = id
	return id
}

// Decode rebuilds the root shapes of doc.
func Decode(doc *Document) ([]brep.Shape, error) {
	if doc.Format != FormatName {
		return nil, fmt.Errorf("format %q; %w", doc.Format, ErrFormat)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("version %d; %w", doc.Version, ErrVersion)
	}
	built := make([]brep.Shape, len(doc.Nodes))
	for i, n := range doc.Nodes {
		children := make([]brep.Shape, len(n.Children))
		for j, c := range n.Children {
			if c.Ref < 0 || c.Ref >= i {
				return nil, fmt.Errorf("node %d child %d references %d; %w", i, j, c.Ref, ErrRef)
			}
			children[j] = orient(built[c.Ref], c.Reversed)
		}
		s, err := build(n, children)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		built[i] = s
	}
	roots := make([]brep.Shape, len(doc.Roots))
	for i, r := range doc.Roots {
		if r.Ref < 0 || r.Ref >= len(built) {
			return nil, fmt.Errorf("root %d references %d; %w", i, r.Ref, ErrRef)
		}
		roots[i] = orient(built[r.Ref], r.Reversed)
	}
	return roots, nil
}

func orient(s brep.Shape, reversed bool) brep.Shape {
	if reversed {
		return s.Oriented(brep.Reversed)
	}
	return s.Oriented(brep.Forward)
}

func build(n Node, children []brep.Shape) (brep.Shape, error) {
	switch n.Type {
	case kernel.Vertex.String():
		if n.Point == nil {
			return brep.Null, fmt.Errorf("vertex without point; %w", brep.ErrDegenerate)
		}
		return brep.MakeVertex(brep.V(n.Point[0], n.Point[1], n.Point[2])), nil
	case kernel.Edge.String():
		if len(children) != 2 {
			return brep.Null, fmt.Errorf("edge has %d vertices; %w", len(children), brep.ErrDegenerate)
		}
		// Edge nodes record their end vertex reversed.
		return brep.MakeEdge(children[0].Oriented(brep.Forward), children[1].Oriented(brep.Forward))
	case kernel.Wire.String():
		return brep.MakeWire(children...)
	case kernel.Face.String():
		if len(children) != 1 {
			return brep.Null, fmt.Errorf("face has %d wires; %w", len(children), brep.ErrDegenerate)
		}
		return brep.BuildFace(children[0]), nil
	case kernel.Shell.String():
		return brep.MakeShell(children...)
	case kernel.Solid.String():
		return brep.MakeSolid(children...)
	case kernel.Compound.String(), kernel.CompSolid.String():
		return brep.MakeCompound(children...), nil
	default:
		return brep.Null, fmt.Errorf("node type %q; %w", n.Type, brep.ErrWrongType)
	}
}

// Writer accumulates shapes and writes them as one document.
type Writer struct {
	shapes []brep.Shape
	err    error
}

var (
	_ kernel.Writer     = (*Writer)(nil)
	_ kernel.Reader     = (*Reader)(nil)
	_ kernel.Diagnostic = (*Writer)(nil)
	_ kernel.Diagnostic = (*Reader)(nil)
)

// NewWriter returns a .brep writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Transfer adds s as a root.
func (w *Writer) Transfer(s kernel.Shape) kernel.Status {
	b, ok := brep.FromKernel(s)
	if !ok || b.IsNull() {
		w.err = brep.ErrForeignShape
		return kernel.StatusFail
	}
	w.shapes = append(w.shapes, b)
	w.err = nil
	return kernel.StatusDone
}

// Write writes every root to path.
func (w *Writer) Write(path string) kernel.Status {
	if len(w.shapes) == 0 {
		w.err = errNothingToWrite
		return kernel.StatusVoid
	}
	doc := Encode(w.shapes...)
	err := fsutil.WriteFileAtomic(path, func(out io.Writer) error {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
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

// Reader loads a .brep document.
type Reader struct {
	roots []brep.Shape
	err   error
}

// NewReader returns a .brep reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read loads path. Unparseable YAML fails; a document of the wrong format or
// with broken references is an Error.
func (r *Reader) Read(path string) kernel.Status {
	*r = Reader{}
	data, err := os.ReadFile(path)
	if err != nil {
		r.err = err
		return kernel.StatusFail
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		r.err = fmt.Errorf("failed to parse %s; %w", path, err)
		return kernel.StatusFail
	}
	roots, err := Decode(&doc)
	if err != nil {
		r.err = err
		return kernel.StatusError
	}
	r.roots = roots
	return kernel.StatusDone
}

// RootCount returns the number of roots of the last document read.
func (r *Reader) RootCount() int {
	return len(r.roots)
}

// Transfer returns root i (1-based).
func (r *Reader) Transfer(i int) kernel.Shape {
	if i < 1 || i > len(r.roots) {
		return brep.Null
	}
	return r.roots[i-1]
}

// Err returns the cause of the last failure.
func (r *Reader) Err() error {
	return r.err
}
