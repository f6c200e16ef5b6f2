// Package convert translates CAD files between formats through the exchange
// adapters.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/leefowlercu/aocxchange/internal/config"
	"github.com/leefowlercu/aocxchange/internal/exchange"
	"github.com/leefowlercu/aocxchange/internal/kernel"
	"github.com/leefowlercu/aocxchange/internal/kernel/reference"
	"github.com/leefowlercu/aocxchange/internal/metrics"
)

// ErrSameFile is returned when a conversion would overwrite its source.
var ErrSameFile = errors.New("source and destination are the same file")

// Options holds writer settings and collaborators for a conversion. Settings
// that do not apply to the destination format are ignored.
type Options struct {
	Schema      string
	Tolerance   float64
	Verbose     bool
	IGESVersion string
	ASCII       bool

	Kernel kernel.Kernel
	Logger *slog.Logger
}

// OptionsFromConfig returns the options configured under step, iges and stl.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Schema:      cfg.STEP.Schema,
		Tolerance:   cfg.STEP.Tolerance,
		Verbose:     cfg.STEP.Verbose,
		IGESVersion: cfg.IGES.Version,
		ASCII:       cfg.STL.ASCII,
	}
}

func (o Options) kernel() kernel.Kernel {
	if o.Kernel == nil {
		return reference.New()
	}
	return o.Kernel
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// ExchangeOptions returns the importer and exporter options o describes.
func (o Options) ExchangeOptions() []exchange.Option {
	opts := []exchange.Option{
		exchange.WithKernel(o.kernel()),
		exchange.WithLogger(o.logger()),
		exchange.WithTolerance(o.Tolerance),
		exchange.WithVerbose(o.Verbose),
		exchange.WithASCII(o.ASCII),
	}
	if o.Schema != "" {
		opts = append(opts, exchange.WithSchema(o.Schema))
	}
	if o.IGESVersion != "" {
		opts = append(opts, exchange.WithIGESVersion(o.IGESVersion))
	}
	return opts
}

// Result describes one completed or failed conversion.
type Result struct {
	Src      string
	Dst      string
	Format   kernel.Format
	Shapes   int
	Duration time.Duration
	Err      error
}

type styled interface {
	Styles() []kernel.Style
}

// File converts src to dst. The destination format follows the extension of
// dst. STEP presentation styles carry over when both ends are STEP, and a
// multi-shape source written to STL becomes one compound.
func File(ctx context.Context, src, dst string, opts Options) (Result, error) {
	res, err := file(ctx, src, dst, opts)
	metrics.RecordConversion(formatLabel(src), formatLabel(dst), res.Shapes, res.Duration, err)
	return res, err
}

func formatLabel(path string) string {
	f, err := exchange.FormatForPath(path)
	if err != nil {
		return "unknown"
	}
	return f.String()
}

func file(ctx context.Context, src, dst string, opts Options) (Result, error) {
	start := time.Now()
	res := Result{Src: src, Dst: dst}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if same(src, dst) {
		return res, fmt.Errorf("%s; %w", dst, ErrSameFile)
	}
	format, err := exchange.FormatForPath(dst)
	if err != nil {
		return res, err
	}
	res.Format = format

	xopts := opts.ExchangeOptions()
	im, err := exchange.Open(src, xopts...)
	if err != nil {
		return res, fmt.Errorf("failed to import %s; %w", src, err)
	}
	shapes := im.Shapes()
	res.Shapes = len(shapes)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	ex, err := exchange.Create(dst, xopts...)
	if err != nil {
		return res, fmt.Errorf("failed to create exporter for %s; %w", dst, err)
	}
	if err := queue(ex, im, shapes, opts.kernel()); err != nil {
		return res, fmt.Errorf("failed to queue shapes for %s; %w", dst, err)
	}
	if err := ex.WriteFile(); err != nil {
		return res, fmt.Errorf("failed to write %s; %w", dst, err)
	}

	res.Duration = time.Since(start)
	opts.logger().Info("converted",
		"src", src,
		"dst", dst,
		"from", im.Format().String(),
		"to", format.String(),
		"shapes", res.Shapes,
		"duration", res.Duration)
	return res, nil
}

func queue(ex exchange.Exporter, im exchange.Imported, shapes []kernel.Shape, k kernel.Kernel) error {
	if step, ok := ex.(*exchange.STEPExporter); ok {
		var styles []kernel.Style
		if s, ok := im.(styled); ok {
			styles = s.Styles()
		}
		for i, s := range shapes {
			var style kernel.Style
			if i < len(styles) {
				style = styles[i]
			}
			if err := step.AddStyledShape(s, style); err != nil {
				return err
			}
		}
		return nil
	}
	if ex.Format() == kernel.STL && len(shapes) > 1 {
		return ex.AddShape(k.Builder().MakeCompound(shapes...))
	}
	for _, s := range shapes {
		if err := ex.AddShape(s); err != nil {
			return err
		}
	}
	return nil
}

// Destination returns the path src converts to in dir for format f: the
// base name of src with the first extension of f. An empty dir keeps the
// directory of src.
func Destination(src, dir string, f kernel.Format) string {
	base := filepath.Base(src)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if dir == "" {
		dir = filepath.Dir(src)
	}
	ext := f.String()
	if exts := exchange.Extensions(f); len(exts) > 0 {
		ext = exts[0]
	}
	return filepath.Join(dir, base+"."+ext)
}

func same(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
