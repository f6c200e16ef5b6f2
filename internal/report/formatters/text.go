package formatters

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leefowlercu/aocxchange/internal/report"
)

// TextFormatter renders reports for a terminal.
type TextFormatter struct{}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Name returns the formatter name.
func (f *TextFormatter) Name() string {
	return "text"
}

// ContentType returns the MIME content type.
func (f *TextFormatter) ContentType() string {
	return "text/plain"
}

// FileExtension returns the typical file extension.
func (f *TextFormatter) FileExtension() string {
	return ".txt"
}

// Format renders the report as labelled lines, one block per shape.
func (f *TextFormatter) Format(r *report.Report) ([]byte, error) {
	var b strings.Builder
	b.WriteString(titleStyle.Render(r.Name))
	b.WriteString("\n\n")
	field(&b, "path", r.File)
	field(&b, "format", r.Format)
	field(&b, "size", fmt.Sprintf("%d bytes", r.Size))
	field(&b, "sha256", r.SHA256)
	field(&b, "shapes", strconv.Itoa(r.ShapeCount))
	if r.Bounds != nil {
		field(&b, "bounds", box(*r.Bounds))
	}

	for _, s := range r.Shapes {
		b.WriteString("\n")
		b.WriteString(shapeStyle.Render(fmt.Sprintf("#%d %s", s.Index, s.Type)))
		b.WriteString("\n")
		field(&b, "topology", counts(s.Counts))
		if s.Bounds != nil {
			field(&b, "bounds", box(*s.Bounds))
		}
		if s.Layer != "" {
			field(&b, "layer", s.Layer)
		}
		if s.Color != nil {
			field(&b, "color", "rgb("+num(s.Color.R)+", "+num(s.Color.G)+", "+num(s.Color.B)+")")
		}
	}

	b.WriteString("\n")
	b.WriteString(totalStyle.Render("total"))
	b.WriteString("\n")
	field(&b, "topology", counts(r.Totals))
	return []byte(b.String()), nil
}

func field(b *strings.Builder, label, value string) {
	b.WriteString("  ")
	b.WriteString(labelStyle.Render(label))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func counts(c report.Counts) string {
	return fmt.Sprintf("%d solids, %d shells, %d faces, %d wires, %d edges (%d unique), %d vertices",
		c.Solids, c.Shells, c.Faces, c.Wires, c.Edges, c.UniqueEdges, c.Vertices)
}

func box(b report.Box) string {
	size := b.Size()
	return fmt.Sprintf("%s to %s (size %s)", point(b.Min), point(b.Max), point(size))
}

func point(p [3]float64) string {
	return "[" + num(p[0]) + ", " + num(p[1]) + ", " + num(p[2]) + "]"
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
