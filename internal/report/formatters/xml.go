package formatters

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/leefowlercu/aocxchange/internal/report"
)

// XMLFormatter formats reports as XML.
type XMLFormatter struct{}

// NewXMLFormatter creates a new XML formatter.
func NewXMLFormatter() *XMLFormatter {
	return &XMLFormatter{}
}

// Name returns the formatter name.
func (f *XMLFormatter) Name() string {
	return "xml"
}

// ContentType returns the MIME content type.
func (f *XMLFormatter) ContentType() string {
	return "application/xml"
}

// FileExtension returns the typical file extension.
func (f *XMLFormatter) FileExtension() string {
	return ".xml"
}

// xmlReport is the XML representation of a report.
type xmlReport struct {
	XMLName    xml.Name   `xml:"cad-report"`
	File       string     `xml:"file,attr"`
	Format     string     `xml:"format,attr"`
	Name       string     `xml:"name"`
	Size       int64      `xml:"size"`
	SHA256     string     `xml:"sha256"`
	ShapeCount int        `xml:"shape-count"`
	Totals     xmlCounts  `xml:"totals"`
	Bounds     *xmlBox    `xml:"bounds,omitempty"`
	Shapes     []xmlShape `xml:"shapes>shape"`
}

type xmlShape struct {
	Index  int       `xml:"index,attr"`
	Type   string    `xml:"type,attr"`
	Layer  string    `xml:"layer,attr,omitempty"`
	Counts xmlCounts `xml:"counts"`
	Bounds *xmlBox   `xml:"bounds,omitempty"`
	Color  *xmlColor `xml:"color,omitempty"`
}

type xmlCounts struct {
	Solids      int `xml:"solids"`
	Shells      int `xml:"shells"`
	Faces       int `xml:"faces"`
	Wires       int `xml:"wires"`
	Edges       int `xml:"edges"`
	UniqueEdges int `xml:"unique-edges"`
	Vertices    int `xml:"vertices"`
}

type xmlBox struct {
	Min xmlPoint `xml:"min"`
	Max xmlPoint `xml:"max"`
}

type xmlPoint struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
	Z float64 `xml:"z,attr"`
}

type xmlColor struct {
	R float64 `xml:"r,attr"`
	G float64 `xml:"g,attr"`
	B float64 `xml:"b,attr"`
}

// Format converts the report to XML.
func (f *XMLFormatter) Format(r *report.Report) ([]byte, error) {
	xr := xmlReport{
		File:       r.File,
		Format:     r.Format,
		Name:       r.Name,
		Size:       r.Size,
		SHA256:     r.SHA256,
		ShapeCount: r.ShapeCount,
		Totals:     toXMLCounts(r.Totals),
		Bounds:     toXMLBox(r.Bounds),
	}
	for _, s := range r.Shapes {
		xs := xmlShape{
			Index:  s.Index,
			Type:   s.Type,
			Layer:  s.Layer,
			Counts: toXMLCounts(s.Counts),
			Bounds: toXMLBox(s.Bounds),
		}
		if s.Color != nil {
			xs.Color = &xmlColor{R: s.Color.R, G: s.Color.G, B: s.Color.B}
		}
		xr.Shapes = append(xr.Shapes, xs)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(xr); err != nil {
		return nil, fmt.Errorf("failed to encode XML; %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func toXMLCounts(c report.Counts) xmlCounts {
	return xmlCounts{
		Solids:      c.Solids,
		Shells:      c.Shells,
		Faces:       c.Faces,
		Wires:       c.Wires,
		Edges:       c.Edges,
		UniqueEdges: c.UniqueEdges,
		Vertices:    c.Vertices,
	}
}

func toXMLBox(b *report.Box) *xmlBox {
	if b == nil {
		return nil
	}
	return &xmlBox{
		Min: xmlPoint{X: b.Min[0], Y: b.Min[1], Z: b.Min[2]},
		Max: xmlPoint{X: b.Max[0], Y: b.Max[1], Z: b.Max[2]},
	}
}
