package exchange

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/leefowlercu/aocxchange/internal/fsutil"
	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// Imported is the common view of a successful import.
type Imported interface {
	Format() kernel.Format
	Path() string
	Shapes() []kernel.Shape
}

// importer is the read path shared by every multi-root format.
type importer struct {
	format kernel.Format
	path   string
	kernel kernel.Kernel
	logger *slog.Logger

	shapes []kernel.Shape
	styles []kernel.Style
	styled bool
}

func newImporter(f kernel.Format, path string, s *settings) (*importer, error) {
	if err := ValidateImport(path, extensions[f]); err != nil {
		return nil, err
	}
	im := &importer{format: f, path: path, kernel: s.kernel, logger: s.logger}
	if err := im.read(); err != nil {
		return nil, err
	}
	return im, nil
}

func (im *importer) read() error {
	r, err := im.kernel.Reader(im.format)
	if err != nil {
		return fmt.Errorf("failed to read %s; %w", im.path, &StatusError{Kind: ErrReadFailure, Status: kernel.StatusFail, Cause: err})
	}
	if err := statusError(ErrReadFailure, r.Read(im.path), r); err != nil {
		return fmt.Errorf("failed to read %s; %w", im.path, err)
	}
	n := r.RootCount()
	if n == 0 {
		return fmt.Errorf("failed to read %s; no transferable root; %w", im.path, ErrReadFailure)
	}
	sr, styled := r.(kernel.StyledReader)
	im.styled = styled
	for i := 1; i <= n; i++ {
		s := r.Transfer(i)
		if s == nil || s.IsNull() {
			attrs := []any{"path", im.path, "root", i}
			if d, ok := r.(kernel.Diagnostic); ok && d.Err() != nil {
				attrs = append(attrs, "error", d.Err())
			}
			im.logger.Warn("skipping null root", attrs...)
			continue
		}
		im.shapes = append(im.shapes, s)
		if styled {
			st, _ := sr.Style(i)
			im.styles = append(im.styles, st)
		}
	}
	if len(im.shapes) == 0 {
		return fmt.Errorf("failed to read %s; all %d roots are null; %w", im.path, n, ErrReadFailure)
	}
	im.logger.Debug("imported file", "path", im.path, "format", im.format, "roots", n, "shapes", len(im.shapes))
	return nil
}

// Format returns the format read.
func (im *importer) Format() kernel.Format {
	return im.format
}

// Path returns the file read.
func (im *importer) Path() string {
	return im.path
}

// Shapes returns a copy of the imported shapes.
func (im *importer) Shapes() []kernel.Shape {
	return slices.Clone(im.shapes)
}

// Compound groups every imported shape. It is built on each call.
func (im *importer) Compound() kernel.Shape {
	return im.kernel.Builder().MakeCompound(im.shapes...)
}

// IGESImporter holds the shapes of an IGES file.
type IGESImporter struct {
	*importer
}

// NewIGESImporter validates path and reads it.
func NewIGESImporter(path string, opts ...Option) (*IGESImporter, error) {
	im, err := newImporter(kernel.IGES, path, newSettings(opts))
	if err != nil {
		return nil, err
	}
	return &IGESImporter{im}, nil
}

// Faces returns every face of the compound, once per parent that holds it.
func (im *IGESImporter) Faces() []kernel.Shape {
	return im.kernel.Builder().Explore(im.Compound(), kernel.Face)
}

// Shell sews every face into one shell. Faces from unrelated solids make a
// shell without topological meaning.
func (im *IGESImporter) Shell() (kernel.Shape, error) {
	faces := im.Faces()
	if len(faces) == 0 {
		return nil, fmt.Errorf("%s has no faces; %w", im.path, ErrBuildFailure)
	}
	shell, err := im.kernel.Builder().MakeShell(faces...)
	if err != nil {
		return nil, fmt.Errorf("failed to build shell; %w", joinKind(ErrBuildFailure, err))
	}
	return shell, nil
}

// Solid builds a solid on Shell.
func (im *IGESImporter) Solid() (kernel.Shape, error) {
	shell, err := im.Shell()
	if err != nil {
		return nil, err
	}
	solid, err := im.kernel.Builder().MakeSolid(shell)
	if err != nil {
		return nil, fmt.Errorf("failed to build solid; %w", joinKind(ErrBuildFailure, err))
	}
	return solid, nil
}

// STEPImporter holds the shapes of a STEP file.
type STEPImporter struct {
	*importer
}

// NewSTEPImporter validates path and reads it.
func NewSTEPImporter(path string, opts ...Option) (*STEPImporter, error) {
	im, err := newImporter(kernel.STEP, path, newSettings(opts))
	if err != nil {
		return nil, err
	}
	return &STEPImporter{im}, nil
}

// Styles returns the presentation style of each shape, aligned with Shapes.
// Shapes without colour or layer get a zero Style. It returns nil when the
// kernel reader does not recover styles.
func (im *STEPImporter) Styles() []kernel.Style {
	if !im.styled {
		return nil
	}
	return slices.Clone(im.styles)
}

// BRepImporter holds the shapes of a native .brep file.
type BRepImporter struct {
	*importer
}

// NewBRepImporter validates path and reads it.
func NewBRepImporter(path string, opts ...Option) (*BRepImporter, error) {
	im, err := newImporter(kernel.BREP, path, newSettings(opts))
	if err != nil {
		return nil, err
	}
	return &BRepImporter{im}, nil
}

// STLImporter holds the single shape of an STL file.
type STLImporter struct {
	path  string
	shape kernel.Shape
}

// NewSTLImporter validates path and reads its shape.
func NewSTLImporter(path string, opts ...Option) (*STLImporter, error) {
	s := newSettings(opts)
	if err := ValidateImport(path, extensions[kernel.STL]); err != nil {
		return nil, err
	}
	r, err := s.kernel.Reader(kernel.STL)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s; %w", path, &StatusError{Kind: ErrReadFailure, Status: kernel.StatusFail, Cause: err})
	}
	if err := statusError(ErrReadFailure, r.Read(path), r); err != nil {
		return nil, fmt.Errorf("failed to read %s; %w", path, err)
	}
	shape := r.Transfer(1)
	if shape == nil || shape.IsNull() {
		return nil, fmt.Errorf("%s produced a null shape; %w", path, ErrInvalidShape)
	}
	s.logger.Debug("imported file", "path", path, "format", kernel.STL, "type", shape.Type())
	return &STLImporter{path: path, shape: shape}, nil
}

// Shape returns the imported shape.
func (im *STLImporter) Shape() kernel.Shape {
	return im.shape
}

// Format returns kernel.STL.
func (im *STLImporter) Format() kernel.Format {
	return kernel.STL
}

// Path returns the file read.
func (im *STLImporter) Path() string {
	return im.path
}

// Shapes returns the imported shape as a one-element list.
func (im *STLImporter) Shapes() []kernel.Shape {
	return []kernel.Shape{im.shape}
}

// Open validates path and reads it with the importer its extension selects.
func Open(path string, opts ...Option) (Imported, error) {
	if !fsutil.IsRegularFile(path) {
		return nil, fmt.Errorf("%s; %w", path, ErrFileNotFound)
	}
	f, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	switch f {
	case kernel.IGES:
		im, err := NewIGESImporter(path, opts...)
		if err != nil {
			return nil, err
		}
		return im, nil
	case kernel.STEP:
		im, err := NewSTEPImporter(path, opts...)
		if err != nil {
			return nil, err
		}
		return im, nil
	case kernel.STL:
		im, err := NewSTLImporter(path, opts...)
		if err != nil {
			return nil, err
		}
		return im, nil
	case kernel.BREP:
		im, err := NewBRepImporter(path, opts...)
		if err != nil {
			return nil, err
		}
		return im, nil
	default:
		return nil, fmt.Errorf("%s; %w", f, ErrIncompatibleFormat)
	}
}

// joinKind wraps err so that it also matches kind.
func joinKind(kind, err error) error {
	return fmt.Errorf("%w: %w", kind, err)
}
