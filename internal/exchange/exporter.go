package exchange

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// Exporter is the common view of every exporter.
type Exporter interface {
	Format() kernel.Format
	Path() string
	AddShape(s kernel.Shape) error
	WriteFile() error
}

// exporter is the write path shared by every format.
type exporter struct {
	format  kernel.Format
	path    string
	kernel  kernel.Kernel
	logger  *slog.Logger
	opts    kernel.WriterOptions
	verbose bool

	shapes []kernel.Shape
	styles []kernel.Style
}

func newExporter(f kernel.Format, path string, s *settings, opts kernel.WriterOptions) (*exporter, error) {
	if err := ValidateExport(path, extensions[f]); err != nil {
		return nil, err
	}
	WarnIfOverwrite(s.logger, path)
	return &exporter{
		format:  f,
		path:    path,
		kernel:  s.kernel,
		logger:  s.logger,
		opts:    opts,
		verbose: s.verbose,
	}, nil
}

// Format returns the format written.
func (ex *exporter) Format() kernel.Format {
	return ex.format
}

// Path returns the destination file.
func (ex *exporter) Path() string {
	return ex.path
}

func (ex *exporter) add(s kernel.Shape, style kernel.Style) error {
	if err := CheckShape(s); err != nil {
		return err
	}
	ex.shapes = append(ex.shapes, s)
	ex.styles = append(ex.styles, style)
	return nil
}

func (ex *exporter) set(s kernel.Shape) error {
	if err := CheckShape(s); err != nil {
		return err
	}
	ex.shapes = []kernel.Shape{s}
	ex.styles = []kernel.Style{{}}
	return nil
}

// Len returns the number of shapes waiting to be written.
func (ex *exporter) Len() int {
	return len(ex.shapes)
}

// WriteFile transfers every shape into a fresh kernel writer and writes the
// destination. Each call rewrites the file with the current shapes.
func (ex *exporter) WriteFile() error {
	w, err := ex.kernel.Writer(ex.format, ex.opts)
	if err != nil {
		return fmt.Errorf("failed to write %s; %w", ex.path, &StatusError{Kind: ErrWriteFailure, Status: kernel.StatusFail, Cause: err})
	}
	level := slog.LevelDebug
	if ex.verbose {
		level = slog.LevelInfo
	}
	for i, s := range ex.shapes {
		var st kernel.Status
		if sw, ok := w.(kernel.StyledWriter); ok && hasStyle(ex.styles[i]) {
			st = sw.TransferStyled(s, ex.styles[i])
		} else {
			st = w.Transfer(s)
		}
		if err := statusError(ErrTransferFailure, st, w); err != nil {
			return fmt.Errorf("failed to transfer shape %d to %s; %w", i+1, ex.path, err)
		}
		ex.logger.Log(context.Background(), level, "transferred shape", "path", ex.path, "index", i+1, "type", s.Type())
	}
	if err := statusError(ErrWriteFailure, w.Write(ex.path), w); err != nil {
		return fmt.Errorf("failed to write %s; %w", ex.path, err)
	}
	ex.logger.Log(context.Background(), level, "wrote file", "path", ex.path, "format", ex.format, "shapes", len(ex.shapes))
	return nil
}

func hasStyle(s kernel.Style) bool {
	return s.Color != nil || s.Layer != ""
}

// STEPExporter writes shapes to a STEP file, one product each.
type STEPExporter struct {
	*exporter
	schema string
}

// NewSTEPExporter validates the schema, then path.
func NewSTEPExporter(path string, opts ...Option) (*STEPExporter, error) {
	s := newSettings(opts)
	schema, err := s.stepSchema()
	if err != nil {
		return nil, err
	}
	ex, err := newExporter(kernel.STEP, path, s, kernel.WriterOptions{Schema: schema, Tolerance: s.tolerance})
	if err != nil {
		return nil, err
	}
	return &STEPExporter{exporter: ex, schema: schema}, nil
}

// Schema returns the application protocol written.
func (ex *STEPExporter) Schema() string {
	return ex.schema
}

// Tolerance returns the uncertainty written.
func (ex *STEPExporter) Tolerance() float64 {
	return ex.opts.Tolerance
}

// AddShape queues s.
func (ex *STEPExporter) AddShape(s kernel.Shape) error {
	return ex.add(s, kernel.Style{})
}

// AddStyledShape queues s with a colour and layer. Styles are only written
// for AP214CD.
func (ex *STEPExporter) AddStyledShape(s kernel.Shape, style kernel.Style) error {
	return ex.add(s, style)
}

// IGESExporter writes shapes to an IGES file.
type IGESExporter struct {
	*exporter
	version string
}

// NewIGESExporter validates the version, then path.
func NewIGESExporter(path string, opts ...Option) (*IGESExporter, error) {
	s := newSettings(opts)
	brepMode, err := s.igesBRepMode()
	if err != nil {
		return nil, err
	}
	ex, err := newExporter(kernel.IGES, path, s, kernel.WriterOptions{BRepMode: brepMode})
	if err != nil {
		return nil, err
	}
	return &IGESExporter{exporter: ex, version: s.igesVersion}, nil
}

// Version returns the IGES version written.
func (ex *IGESExporter) Version() string {
	return ex.version
}

// AddShape queues s.
func (ex *IGESExporter) AddShape(s kernel.Shape) error {
	return ex.add(s, kernel.Style{})
}

// STLExporter writes one shape to an STL file.
type STLExporter struct {
	*exporter
}

// NewSTLExporter validates path.
func NewSTLExporter(path string, opts ...Option) (*STLExporter, error) {
	s := newSettings(opts)
	ex, err := newExporter(kernel.STL, path, s, kernel.WriterOptions{ASCII: s.ascii})
	if err != nil {
		return nil, err
	}
	return &STLExporter{ex}, nil
}

// ASCII reports whether ASCII STL is written.
func (ex *STLExporter) ASCII() bool {
	return ex.opts.ASCII
}

// SetShape replaces the shape to write.
func (ex *STLExporter) SetShape(s kernel.Shape) error {
	return ex.set(s)
}

// AddShape replaces the shape to write; STL holds one shape.
func (ex *STLExporter) AddShape(s kernel.Shape) error {
	return ex.set(s)
}

// WriteFile writes the shape, replacing whatever the file held.
func (ex *STLExporter) WriteFile() error {
	if len(ex.shapes) == 0 {
		return fmt.Errorf("no shape set for %s; %w", ex.path, ErrInvalidShape)
	}
	return ex.exporter.WriteFile()
}

// BRepExporter writes shapes to a native .brep file.
type BRepExporter struct {
	*exporter
}

// NewBRepExporter validates path.
func NewBRepExporter(path string, opts ...Option) (*BRepExporter, error) {
	ex, err := newExporter(kernel.BREP, path, newSettings(opts), kernel.WriterOptions{})
	if err != nil {
		return nil, err
	}
	return &BRepExporter{ex}, nil
}

// AddShape queues s.
func (ex *BRepExporter) AddShape(s kernel.Shape) error {
	return ex.add(s, kernel.Style{})
}

// SetShape replaces every queued shape with s.
func (ex *BRepExporter) SetShape(s kernel.Shape) error {
	return ex.set(s)
}

// Create validates path and returns the exporter its extension selects.
func Create(path string, opts ...Option) (Exporter, error) {
	f, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	switch f {
	case kernel.IGES:
		ex, err := NewIGESExporter(path, opts...)
		if err != nil {
			return nil, err
		}
		return ex, nil
	case kernel.STEP:
		ex, err := NewSTEPExporter(path, opts...)
		if err != nil {
			return nil, err
		}
		return ex, nil
	case kernel.STL:
		ex, err := NewSTLExporter(path, opts...)
		if err != nil {
			return nil, err
		}
		return ex, nil
	case kernel.BREP:
		ex, err := NewBRepExporter(path, opts...)
		if err != nil {
			return nil, err
		}
		return ex, nil
	default:
		return nil, fmt.Errorf("%s; %w", f, ErrIncompatibleFormat)
	}
}
