// Package report summarizes the topology of an imported CAD file.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leefowlercu/aocxchange/internal/exchange"
	"github.com/leefowlercu/aocxchange/internal/fsutil"
	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// Report describes one imported file.
type Report struct {
	File       string  `json:"file" yaml:"file" toml:"file"`
	Name       string  `json:"name" yaml:"name" toml:"name"`
	Format     string  `json:"format" yaml:"format" toml:"format"`
	Size       int64   `json:"size" yaml:"size" toml:"size"`
	SHA256     string  `json:"sha256" yaml:"sha256" toml:"sha256"`
	ShapeCount int     `json:"shape_count" yaml:"shape_count" toml:"shape_count"`
	Totals     Counts  `json:"totals" yaml:"totals" toml:"totals"`
	Bounds     *Box    `json:"bounds,omitempty" yaml:"bounds,omitempty" toml:"bounds,omitempty"`
	Shapes     []Shape `json:"shapes" yaml:"shapes" toml:"shapes"`
}

// Shape describes one root shape of the file.
type Shape struct {
	Index  int    `json:"index" yaml:"index" toml:"index"`
	Type   string `json:"type" yaml:"type" toml:"type"`
	Counts Counts `json:"counts" yaml:"counts" toml:"counts"`
	Bounds *Box   `json:"bounds,omitempty" yaml:"bounds,omitempty" toml:"bounds,omitempty"`
	Color  *Color `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty"`
	Layer  string `json:"layer,omitempty" yaml:"layer,omitempty" toml:"layer,omitempty"`
}

// Counts holds topology counts. Edges counts every edge use, so an edge
// shared by two faces counts twice; UniqueEdges counts it once.
type Counts struct {
	Solids      int `json:"solids" yaml:"solids" toml:"solids"`
	Shells      int `json:"shells" yaml:"shells" toml:"shells"`
	Faces       int `json:"faces" yaml:"faces" toml:"faces"`
	Wires       int `json:"wires" yaml:"wires" toml:"wires"`
	Edges       int `json:"edges" yaml:"edges" toml:"edges"`
	UniqueEdges int `json:"unique_edges" yaml:"unique_edges" toml:"unique_edges"`
	Vertices    int `json:"vertices" yaml:"vertices" toml:"vertices"`
}

// Add returns the sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{
		Solids:      c.Solids + o.Solids,
		Shells:      c.Shells + o.Shells,
		Faces:       c.Faces + o.Faces,
		Wires:       c.Wires + o.Wires,
		Edges:       c.Edges + o.Edges,
		UniqueEdges: c.UniqueEdges + o.UniqueEdges,
		Vertices:    c.Vertices + o.Vertices,
	}
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min [3]float64 `json:"min" yaml:"min,flow" toml:"min"`
	Max [3]float64 `json:"max" yaml:"max,flow" toml:"max"`
}

// Size returns the extent of the box along each axis.
func (b Box) Size() [3]float64 {
	return [3]float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

func (b Box) union(o Box) Box {
	for i := range 3 {
		b.Min[i] = min(b.Min[i], o.Min[i])
		b.Max[i] = max(b.Max[i], o.Max[i])
	}
	return b
}

// Color is an RGB colour with components in [0, 1].
type Color struct {
	R float64 `json:"r" yaml:"r" toml:"r"`
	G float64 `json:"g" yaml:"g" toml:"g"`
	B float64 `json:"b" yaml:"b" toml:"b"`
}

type styled interface {
	Styles() []kernel.Style
}

// Build summarizes im. Unique edge and vertex counts and bounding boxes need
// a builder that also implements kernel.Inspector; otherwise vertices count
// every use and bounds are left out.
func Build(im exchange.Imported, b kernel.Builder) (*Report, error) {
	if im == nil {
		return nil, fmt.Errorf("failed to build report; nothing imported")
	}
	info, err := os.Stat(im.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s; %w", im.Path(), err)
	}
	sum, err := fsutil.HashFile(im.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s; %w", im.Path(), err)
	}

	inspector, _ := b.(kernel.Inspector)
	var styles []kernel.Style
	if s, ok := im.(styled); ok {
		styles = s.Styles()
	}

	shapes := im.Shapes()
	r := &Report{
		File:       im.Path(),
		Name:       filepath.Base(im.Path()),
		Format:     im.Format().String(),
		Size:       info.Size(),
		SHA256:     sum,
		ShapeCount: len(shapes),
		Shapes:     make([]Shape, 0, len(shapes)),
	}
	for i, s := range shapes {
		entry := Shape{
			Index:  i + 1,
			Type:   s.Type().String(),
			Counts: count(b, inspector, s),
		}
		if inspector != nil {
			if lo, hi, ok := inspector.Bounds(s); ok {
				box := Box{Min: lo, Max: hi}
				entry.Bounds = &box
				if r.Bounds == nil {
					total := box
					r.Bounds = &total
				} else {
					*r.Bounds = r.Bounds.union(box)
				}
			}
		}
		if i < len(styles) {
			if c := styles[i].Color; c != nil {
				entry.Color = &Color{R: c.R, G: c.G, B: c.B}
			}
			entry.Layer = styles[i].Layer
		}
		r.Totals = r.Totals.Add(entry.Counts)
		r.Shapes = append(r.Shapes, entry)
	}
	return r, nil
}

func count(b kernel.Builder, inspector kernel.Inspector, s kernel.Shape) Counts {
	n := func(t kernel.ShapeType) int {
		return len(b.Explore(s, t))
	}
	c := Counts{
		Solids:      n(kernel.Solid),
		Shells:      n(kernel.Shell),
		Faces:       n(kernel.Face),
		Wires:       n(kernel.Wire),
		Edges:       n(kernel.Edge),
		UniqueEdges: n(kernel.Edge),
		Vertices:    n(kernel.Vertex),
	}
	if inspector != nil {
		c.UniqueEdges = inspector.CountUnique(s, kernel.Edge)
		c.Vertices = inspector.CountUnique(s, kernel.Vertex)
	}
	return c
}
