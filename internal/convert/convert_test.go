package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/aocxchange/internal/brep"
	"github.com/leefowlercu/aocxchange/internal/config"
	"github.com/leefowlercu/aocxchange/internal/exchange"
	"github.com/leefowlercu/aocxchange/internal/kernel"
	"github.com/leefowlercu/aocxchange/internal/metrics"
	"github.com/leefowlercu/aocxchange/internal/testutil"
)

func quiet() Options {
	return Options{Logger: testutil.Discard()}
}

// writeStyledPair writes a red box on layer "parts" and a plain box beside it.
func writeStyledPair(t *testing.T, path string) string {
	t.Helper()
	b, err := brep.MakeBox(10, 20, 30)
	require.NoError(t, err)
	ex, err := exchange.NewSTEPExporter(path, exchange.WithLogger(testutil.Discard()))
	require.NoError(t, err)
	require.NoError(t, ex.AddStyledShape(b, kernel.Style{Color: &kernel.Color{R: 1}, Layer: "parts"}))
	require.NoError(t, ex.AddShape(brep.Translate(b, brep.V(50, 0, 0))))
	require.NoError(t, ex.WriteFile())
	return path
}

func TestFile_STEPToIGES(t *testing.T) {
	dir := t.TempDir()
	src := writeStyledPair(t, filepath.Join(dir, "pair.stp"))
	dst := filepath.Join(dir, "pair.iges")

	opts := quiet()
	opts.IGESVersion = exchange.IGESVersion53
	res, err := File(context.Background(), src, dst, opts)
	require.NoError(t, err)
	assert.Equal(t, kernel.IGES, res.Format)
	assert.Equal(t, 2, res.Shapes)
	assert.Equal(t, dst, res.Dst)

	im, err := exchange.Open(dst)
	require.NoError(t, err)
	require.Len(t, im.Shapes(), 2)
	for _, s := range im.Shapes() {
		assert.Equal(t, kernel.Solid, s.Type())
	}
}

func TestFile_STEPKeepsStyles(t *testing.T) {
	dir := t.TempDir()
	src := writeStyledPair(t, filepath.Join(dir, "pair.stp"))
	dst := filepath.Join(dir, "copy.step")

	_, err := File(context.Background(), src, dst, quiet())
	require.NoError(t, err)

	im, err := exchange.NewSTEPImporter(dst)
	require.NoError(t, err)
	styles := im.Styles()
	require.Len(t, styles, 2)
	require.NotNil(t, styles[0].Color)
	assert.Equal(t, kernel.Color{R: 1}, *styles[0].Color)
	assert.Equal(t, "parts", styles[0].Layer)
	assert.Nil(t, styles[1].Color)
}

func TestFile_STLMergesShapes(t *testing.T) {
	dir := t.TempDir()
	src := writeStyledPair(t, filepath.Join(dir, "pair.stp"))
	dst := filepath.Join(dir, "pair.stl")

	opts := quiet()
	opts.ASCII = true
	_, err := File(context.Background(), src, dst, opts)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "solid"))
	assert.Equal(t, 24, strings.Count(string(data), "endfacet"), "two boxes of 12 triangles")
}

func TestFile_Errors(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteBox(t, filepath.Join(dir, "box.step"), 1, 1, 1)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		src  string
		dst  string
		want error
	}{
		{"same file", context.Background(), src, src, ErrSameFile},
		{"same file relative", context.Background(), src, filepath.Join(dir, ".", "box.step"), ErrSameFile},
		{"missing source", context.Background(), filepath.Join(dir, "missing.step"), filepath.Join(dir, "out.igs"), exchange.ErrFileNotFound},
		{"unknown destination", context.Background(), src, filepath.Join(dir, "out.obj"), exchange.ErrIncompatibleFormat},
		{"cancelled", cancelled, src, filepath.Join(dir, "out.igs"), context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := File(tt.ctx, tt.src, tt.dst, quiet())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "error = %v, want %v", err, tt.want)
		})
	}
}

func TestFile_BadSchema(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteBox(t, filepath.Join(dir, "box.igs"), 1, 1, 1)
	opts := quiet()
	opts.Schema = "AP242"
	_, err := File(context.Background(), src, filepath.Join(dir, "box.stp"), opts)
	assert.ErrorIs(t, err, exchange.ErrUnsupportedSchema)
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	out := testutil.CreateDir(t, "out")
	srcs := []string{
		testutil.WriteBox(t, filepath.Join(dir, "a.step"), 1, 2, 3),
		filepath.Join(dir, "missing.step"),
		testutil.WriteBox(t, filepath.Join(dir, "c.brep"), 4, 5, 6),
	}
	jobs := make([]Job, len(srcs))
	for i, src := range srcs {
		jobs[i] = Job{Src: src, Dst: Destination(src, out, kernel.IGES)}
	}

	results, err := Batch(context.Background(), jobs, 2, quiet())
	require.Error(t, err)
	assert.ErrorIs(t, err, exchange.ErrFileNotFound)
	assert.Contains(t, err.Error(), "missing.step")

	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, srcs[i], r.Src, "results keep job order")
	}
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.FileExists(t, filepath.Join(out, "a.igs"))
	assert.FileExists(t, filepath.Join(out, "c.igs"))
}

func TestBatch_Cancelled(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteBox(t, filepath.Join(dir, "a.step"), 1, 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Batch(ctx, []Job{{Src: src, Dst: filepath.Join(dir, "a.stl")}}, 0, quiet())
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.NoFileExists(t, filepath.Join(dir, "a.stl"))
}

func TestDestination(t *testing.T) {
	tests := []struct {
		src    string
		dir    string
		format kernel.Format
		want   string
	}{
		{"/parts/bracket.step", "/out", kernel.IGES, "/out/bracket.igs"},
		{"/parts/bracket.step", "", kernel.STL, "/parts/bracket.stl"},
		{"/parts/bracket.v2.igs", "/out", kernel.STEP, "/out/bracket.v2.stp"},
		{"/parts/noext", "/out", kernel.BREP, "/out/noext.brep"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.want), Destination(filepath.FromSlash(tt.src), filepath.FromSlash(tt.dir), tt.format))
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.STEP.Schema = "AP203"
	cfg.IGES.Version = "5.3"
	cfg.STL.ASCII = true

	opts := OptionsFromConfig(&cfg)
	assert.Equal(t, "AP203", opts.Schema)
	assert.Equal(t, config.DefaultSTEPTolerance, opts.Tolerance)
	assert.Equal(t, "5.3", opts.IGESVersion)
	assert.True(t, opts.ASCII)
}

func TestFile_RecordsMetrics(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteBox(t, filepath.Join(dir, "box.brep"), 1, 1, 1)
	ok := metrics.ConversionsTotal.WithLabelValues("brep", "stl", metrics.OutcomeConverted)
	failed := metrics.ConversionsTotal.WithLabelValues("unknown", "stl", metrics.OutcomeFailed)
	okBefore, failedBefore := promtest.ToFloat64(ok), promtest.ToFloat64(failed)

	_, err := File(context.Background(), src, filepath.Join(dir, "box.stl"), quiet())
	require.NoError(t, err)
	_, err = File(context.Background(), filepath.Join(dir, "part.obj"), filepath.Join(dir, "part.stl"), quiet())
	require.Error(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(ok)-okBefore)
	assert.Equal(t, 1.0, promtest.ToFloat64(failed)-failedBefore)
}
