package exchange

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/aocxchange/internal/brep"
	"github.com/leefowlercu/aocxchange/internal/kernel"
)

func box(t *testing.T) brep.Shape {
	t.Helper()
	b, err := brep.MakeBox(10, 20, 30)
	require.NoError(t, err)
	return b
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
	return path
}

func TestExtractFileExtension(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"name.txt.dat", "dat"},
		{"name", ""},
		{"name.", ""},
		{"a.b/name.dat", "dat"},
		{"C:/users/user.name/name", ""},
		{`C:\users\user.name\part.STEP`, "STEP"},
		{".hidden", "hidden"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractFileExtension(tt.path), tt.path)
	}
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{"igs", "iges"}, Extensions(kernel.IGES))
	assert.Equal(t, []string{"stp", "step"}, Extensions(kernel.STEP))
	assert.Equal(t, []string{"stl"}, Extensions(kernel.STL))
	assert.Equal(t, []string{"brep"}, Extensions(kernel.BREP))

	exts := Extensions(kernel.STEP)
	exts[0] = "changed"
	assert.Equal(t, "stp", Extensions(kernel.STEP)[0])
}

func TestValidateImport(t *testing.T) {
	dir := t.TempDir()
	step := touch(t, filepath.Join(dir, "part.STP"))
	txt := touch(t, filepath.Join(dir, "part.txt"))
	bare := touch(t, filepath.Join(dir, "part"))

	assert.NoError(t, ValidateImport(step, Extensions(kernel.STEP)))
	assert.ErrorIs(t, ValidateImport(txt, Extensions(kernel.STEP)), ErrIncompatibleFormat)
	assert.ErrorIs(t, ValidateImport(bare, Extensions(kernel.STEP)), ErrIncompatibleFormat)
	assert.ErrorIs(t, ValidateImport(filepath.Join(dir, "missing.stp"), Extensions(kernel.STEP)), ErrFileNotFound)
	assert.ErrorIs(t, ValidateImport(dir, []string{""}), ErrFileNotFound)
}

func TestValidateExport(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, ValidateExport(filepath.Join(dir, "out.iges"), Extensions(kernel.IGES)))
	assert.ErrorIs(t, ValidateExport(filepath.Join(dir, "nope", "out.iges"), Extensions(kernel.IGES)), ErrDirectoryNotFound)
	assert.ErrorIs(t, ValidateExport(filepath.Join(dir, "out.stl"), Extensions(kernel.IGES)), ErrIncompatibleFormat)
}

func TestWarnIfOverwrite(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	dir := t.TempDir()

	assert.False(t, WarnIfOverwrite(logger, filepath.Join(dir, "new.stp")))
	assert.Empty(t, buf.String())

	existing := touch(t, filepath.Join(dir, "old.stp"))
	assert.True(t, WarnIfOverwrite(logger, existing))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), existing)
}

type badShape struct{}

func (badShape) IsNull() bool { return false }

func (badShape) Type() kernel.ShapeType { return kernel.ShapeType(42) }

func TestCheckShape(t *testing.T) {
	assert.NoError(t, CheckShape(box(t)))
	assert.ErrorIs(t, CheckShape(nil), ErrInvalidShape)
	assert.ErrorIs(t, CheckShape(brep.Null), ErrInvalidShape)
	assert.ErrorIs(t, CheckShape(badShape{}), ErrInvalidShape)
	var nilPtr *brep.Shape
	assert.ErrorIs(t, CheckShape(nilPtr), ErrInvalidShape)
}

func TestImportersRejectPaths(t *testing.T) {
	dir := t.TempDir()
	wrong := touch(t, filepath.Join(dir, "model.txt"))
	constructors := map[string]func(string) error{
		"iges": func(p string) error { _, err := NewIGESImporter(p); return err },
		"step": func(p string) error { _, err := NewSTEPImporter(p); return err },
		"stl":  func(p string) error { _, err := NewSTLImporter(p); return err },
		"brep": func(p string) error { _, err := NewBRepImporter(p); return err },
	}
	for name, newImporter := range constructors {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, newImporter(wrong), ErrIncompatibleFormat)
			assert.ErrorIs(t, newImporter(filepath.Join(dir, "missing."+name)), ErrFileNotFound)
		})
	}
}

func TestImportersRejectGarbage(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"g.igs", "g.stp", "g.stl", "g.brep"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte("definitely not CAD data\n"), 0600))
			_, err := Open(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrReadFailure), "error = %v", err)
		})
	}
}

func TestSTEPSingleSolid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "box.step")
	ex, err := NewSTEPExporter(path)
	require.NoError(t, err)
	require.NoError(t, ex.AddShape(box(t)))
	require.NoError(t, ex.WriteFile())

	im, err := NewSTEPImporter(path)
	require.NoError(t, err)
	shapes := im.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, kernel.Solid, shapes[0].Type())

	b := brep.Builder{}
	comp := im.Compound()
	assert.Equal(t, kernel.Compound, comp.Type())
	assert.Len(t, b.Explore(comp, kernel.Solid), len(shapes))
	assert.Len(t, b.Explore(comp, kernel.Face), 6)

	// Shapes hands out a copy; Compound is rebuilt per call.
	shapes[0] = nil
	assert.NotNil(t, im.Shapes()[0])
	c1, _ := brep.FromKernel(im.Compound())
	c2, _ := brep.FromKernel(im.Compound())
	assert.False(t, c1.Same(c2))
}

func TestIGESBoxes(t *testing.T) {
	tests := []struct {
		name      string
		boxes     int
		wantFaces int
		wantEdges int
	}{
		{"one box", 1, 6, 24},
		{"two disjoint boxes", 2, 12, 48},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "boxes.igs")
			ex, err := NewIGESExporter(path)
			require.NoError(t, err)
			assert.Equal(t, IGESVersion51, ex.Version())
			for i := 0; i < tt.boxes; i++ {
				require.NoError(t, ex.AddShape(brep.Translate(box(t), brep.V(float64(100*i), 0, 0))))
			}
			require.NoError(t, ex.WriteFile())

			im, err := NewIGESImporter(path)
			require.NoError(t, err)
			b := brep.Builder{}
			comp := im.Compound()
			assert.Len(t, b.Explore(comp, kernel.Face), tt.wantFaces)
			assert.Len(t, b.Explore(comp, kernel.Edge), tt.wantEdges)
			assert.Len(t, im.Faces(), tt.wantFaces)
			// The faces carry no solid structure.
			assert.Empty(t, b.Explore(comp, kernel.Solid))

			shell, err := im.Shell()
			require.NoError(t, err)
			assert.Equal(t, kernel.Shell, shell.Type())
			solid, err := im.Solid()
			require.NoError(t, err)
			assert.Equal(t, kernel.Solid, solid.Type())
		})
	}
}

func TestIGESBRepSingleSolid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "box.iges")
	ex, err := NewIGESExporter(path, WithIGESVersion(IGESVersion53))
	require.NoError(t, err)
	require.NoError(t, ex.AddShape(box(t)))
	require.NoError(t, ex.WriteFile())

	im, err := NewIGESImporter(path)
	require.NoError(t, err)
	require.Len(t, im.Shapes(), 1)
	s, _ := brep.FromKernel(im.Shapes()[0])
	assert.Equal(t, kernel.Solid, s.Type())
	assert.Equal(t, 12, brep.Count(s, kernel.Edge))
}

func TestSTLOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "part.stl")
	ex, err := NewSTLExporter(path, WithASCII(true))
	require.NoError(t, err)
	assert.True(t, ex.ASCII())

	require.NoError(t, ex.SetShape(box(t)))
	require.NoError(t, ex.WriteFile())
	im, err := NewSTLImporter(path)
	require.NoError(t, err)
	b := brep.Builder{}
	assert.Len(t, b.Explore(im.Shape(), kernel.Shell), 1)
	assert.Len(t, b.Explore(im.Shape(), kernel.Face), 12)

	sphere, err := brep.MakeSphere(5, 12)
	require.NoError(t, err)
	require.NoError(t, ex.SetShape(sphere))
	require.NoError(t, ex.WriteFile())

	im, err = NewSTLImporter(path)
	require.NoError(t, err)
	got, _ := brep.FromKernel(im.Shape())
	assert.Len(t, b.Explore(got, kernel.Shell), 1)
	assert.Equal(t, len(brep.Tessellate(sphere)), brep.Count(got, kernel.Face))
	bounds := brep.Bounds(got)
	for _, v := range []float64{bounds.Min.X, bounds.Min.Y, bounds.Min.Z, bounds.Max.X, bounds.Max.Y, bounds.Max.Z} {
		assert.LessOrEqual(t, math.Abs(v), 5.01, "box vertex left in the file")
	}
}

func TestSTLWriteWithoutShape(t *testing.T) {
	ex, err := NewSTLExporter(filepath.Join(t.TempDir(), "empty.stl"))
	require.NoError(t, err)
	assert.ErrorIs(t, ex.WriteFile(), ErrInvalidShape)
}

func TestWriteWithoutShapes(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"e.stp", "e.igs", "e.brep"} {
		t.Run(name, func(t *testing.T) {
			ex, err := Create(filepath.Join(dir, name))
			require.NoError(t, err)
			assert.ErrorIs(t, ex.WriteFile(), ErrWriteFailure)
			_, statErr := os.Stat(filepath.Join(dir, name))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestExporterValidation(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing")
	constructors := map[string]func(string) error{
		"step": func(p string) error { _, err := NewSTEPExporter(p); return err },
		"iges": func(p string) error { _, err := NewIGESExporter(p); return err },
		"stl":  func(p string) error { _, err := NewSTLExporter(p); return err },
		"brep": func(p string) error { _, err := NewBRepExporter(p); return err },
	}
	for name, newExporter := range constructors {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, newExporter(filepath.Join(missing, "out."+name)), ErrDirectoryNotFound)
			assert.ErrorIs(t, newExporter(filepath.Join(dir, "out.txt")), ErrIncompatibleFormat)
		})
	}
}

func TestExporterOptions(t *testing.T) {
	dir := t.TempDir()
	_, err := NewSTEPExporter(filepath.Join(dir, "a.stp"), WithSchema("AP242"))
	assert.ErrorIs(t, err, ErrUnsupportedSchema)
	// Options are checked before the path.
	_, err = NewSTEPExporter(filepath.Join(dir, "missing", "a.txt"), WithSchema("AP242"))
	assert.ErrorIs(t, err, ErrUnsupportedSchema)
	_, err = NewIGESExporter(filepath.Join(dir, "a.igs"), WithIGESVersion("6.0"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	ex, err := NewSTEPExporter(filepath.Join(dir, "a.stp"), WithSchema("ap203"), WithTolerance(1e-3))
	require.NoError(t, err)
	assert.Equal(t, SchemaAP203, ex.Schema())
	assert.Equal(t, 1e-3, ex.Tolerance())

	ex, err = NewSTEPExporter(filepath.Join(dir, "b.stp"), WithTolerance(-1))
	require.NoError(t, err)
	assert.Equal(t, SchemaAP214CD, ex.Schema())
	assert.Equal(t, DefaultTolerance, ex.Tolerance())
}

func TestAddShapeGuard(t *testing.T) {
	dir := t.TempDir()
	step, err := NewSTEPExporter(filepath.Join(dir, "a.stp"))
	require.NoError(t, err)
	assert.ErrorIs(t, step.AddShape(nil), ErrInvalidShape)
	assert.ErrorIs(t, step.AddShape(badShape{}), ErrInvalidShape)
	assert.ErrorIs(t, step.AddShape(brep.Null), ErrInvalidShape)
	assert.Equal(t, 0, step.Len())

	stl, err := NewSTLExporter(filepath.Join(dir, "a.stl"))
	require.NoError(t, err)
	assert.ErrorIs(t, stl.SetShape(nil), ErrInvalidShape)

	br, err := NewBRepExporter(filepath.Join(dir, "a.brep"))
	require.NoError(t, err)
	require.NoError(t, br.AddShape(box(t)))
	require.NoError(t, br.AddShape(box(t)))
	assert.Equal(t, 2, br.Len())
	require.NoError(t, br.SetShape(box(t)))
	assert.Equal(t, 1, br.Len())
	assert.ErrorIs(t, br.SetShape(badShape{}), ErrInvalidShape)
}

func TestExporterWarnsOnOverwrite(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	path := touch(t, filepath.Join(t.TempDir(), "old.brep"))
	_, err := NewBRepExporter(path, WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "overwrite")
}

func TestSTEPStyles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "styled.stp")
	ex, err := NewSTEPExporter(path)
	require.NoError(t, err)
	red := &kernel.Color{R: 1}
	require.NoError(t, ex.AddStyledShape(box(t), kernel.Style{Color: red, Layer: "parts"}))
	require.NoError(t, ex.AddShape(brep.Translate(box(t), brep.V(50, 0, 0))))
	require.NoError(t, ex.WriteFile())

	im, err := NewSTEPImporter(path)
	require.NoError(t, err)
	styles := im.Styles()
	require.Len(t, styles, 2)
	require.NotNil(t, styles[0].Color)
	assert.Equal(t, *red, *styles[0].Color)
	assert.Equal(t, "parts", styles[0].Layer)
	assert.Nil(t, styles[1].Color)
}

func TestBRepRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parts.brep")
	ex, err := Create(path)
	require.NoError(t, err)
	assert.Equal(t, kernel.BREP, ex.Format())
	require.NoError(t, ex.AddShape(box(t)))
	require.NoError(t, ex.WriteFile())

	im, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, kernel.BREP, im.Format())
	assert.Equal(t, path, im.Path())
	require.Len(t, im.Shapes(), 1)
	assert.Equal(t, kernel.Solid, im.Shapes()[0].Type())
}

func TestOpenAndCreateDispatch(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(filepath.Join(dir, "missing.stp"))
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = Open(touch(t, filepath.Join(dir, "notes.txt")))
	assert.ErrorIs(t, err, ErrIncompatibleFormat)
	_, err = Create(filepath.Join(dir, "notes.txt"))
	assert.ErrorIs(t, err, ErrIncompatibleFormat)

	for _, name := range []string{"a.IGES", "a.step", "a.stl", "a.brep"} {
		ex, err := Create(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Equal(t, filepath.Join(dir, name), ex.Path())
		f, _ := kernel.ParseFormat(strings.ToLower(ExtractFileExtension(name)))
		assert.Equal(t, f, ex.Format())
	}
}
