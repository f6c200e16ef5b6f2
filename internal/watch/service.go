// Package watch converts CAD files as they change under a directory and
// keeps a ledger of what it converted.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/leefowlercu/aocxchange/internal/config"
	"github.com/leefowlercu/aocxchange/internal/convert"
	"github.com/leefowlercu/aocxchange/internal/fsutil"
	"github.com/leefowlercu/aocxchange/internal/kernel"
	"github.com/leefowlercu/aocxchange/internal/metrics"
)

// ErrNoPatterns is returned when a service is given no include patterns.
var ErrNoPatterns = errors.New("no include patterns")

// Stats counts what the service did since it started.
type Stats struct {
	Converted int64
	Skipped   int64
	Failed    int64
	Forgotten int64
}

// Option configures a Service.
type Option func(*Service)

// WithFormat sets the target format. The default is STEP.
func WithFormat(f kernel.Format) Option {
	return func(s *Service) {
		s.format = f
	}
}

// WithOutDir sets the directory converted files are written to. The default
// is the "converted" directory under the watched one.
func WithOutDir(dir string) Option {
	return func(s *Service) {
		s.outDir = dir
	}
}

// WithInclude replaces the include patterns. Patterns are doublestar globs
// matched against slash-separated paths relative to the watched directory.
func WithInclude(patterns ...string) Option {
	return func(s *Service) {
		s.include = patterns
	}
}

// WithDebounce sets how long a file must stay quiet before it is converted.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		s.debounce = d
	}
}

// WithRate limits conversions to r per second with bursts of burst.
func WithRate(r float64, burst int) Option {
	return func(s *Service) {
		s.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithConvertOptions sets the writer settings used for every conversion.
func WithConvertOptions(opts convert.Options) Option {
	return func(s *Service) {
		s.convert = opts
	}
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service watches a directory tree and converts matching files.
type Service struct {
	dir      string
	outDir   string
	format   kernel.Format
	include  []string
	debounce time.Duration
	limiter  *rate.Limiter
	convert  convert.Options
	ledger   *Ledger
	logger   *slog.Logger

	converted atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
	forgotten atomic.Int64
}

// New returns a service for dir recording outcomes in ledger. The caller
// owns the ledger.
func New(dir string, ledger *Ledger, opts ...Option) (*Service, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path; %w", err)
	}
	if !fsutil.IsDir(abs) {
		return nil, fmt.Errorf("path is not a directory: %s", abs)
	}
	if ledger == nil {
		return nil, fmt.Errorf("watch service requires a ledger")
	}

	s := &Service{
		dir:      abs,
		format:   kernel.STEP,
		include:  config.DefaultWatchInclude,
		debounce: time.Duration(config.DefaultWatchDebounceMs) * time.Millisecond,
		limiter:  rate.NewLimiter(rate.Limit(config.DefaultWatchRateLimit), config.DefaultWatchBurst),
		ledger:   ledger,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.include) == 0 {
		return nil, ErrNoPatterns
	}
	for _, p := range s.include {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern %q", p)
		}
	}
	if s.outDir == "" {
		s.outDir = filepath.Join(abs, "converted")
	}
	if s.outDir, err = filepath.Abs(s.outDir); err != nil {
		return nil, fmt.Errorf("failed to resolve output directory; %w", err)
	}
	if s.convert.Logger == nil {
		s.convert.Logger = s.logger
	}
	s.logger = s.logger.With("component", "watch")
	return s, nil
}

// NewFromConfig returns a service configured from the watch, step, iges and
// stl sections of cfg. Options override the configuration.
func NewFromConfig(dir string, ledger *Ledger, cfg *config.Config, opts ...Option) (*Service, error) {
	base := []Option{
		WithInclude(cfg.Watch.Include...),
		WithDebounce(time.Duration(cfg.Watch.DebounceMs) * time.Millisecond),
		WithRate(cfg.Watch.RateLimit, cfg.Watch.Burst),
		WithConvertOptions(convert.OptionsFromConfig(cfg)),
	}
	return New(dir, ledger, append(base, opts...)...)
}

// Dir returns the watched directory.
func (s *Service) Dir() string {
	return s.dir
}

// OutDir returns the output directory.
func (s *Service) OutDir() string {
	return s.outDir
}

// Stats returns the counters of the service.
func (s *Service) Stats() Stats {
	return Stats{
		Converted: s.converted.Load(),
		Skipped:   s.skipped.Load(),
		Failed:    s.failed.Load(),
		Forgotten: s.forgotten.Load(),
	}
}

// SetRate changes the conversion rate limit of a running service.
func (s *Service) SetRate(r float64, burst int) {
	s.limiter.SetLimit(rate.Limit(r))
	s.limiter.SetBurst(burst)
}

// Run converts every matching file already present, then every file that
// changes, until ctx is cancelled. Conversion errors are logged and
// recorded; Run only fails when the directory cannot be watched.
func (s *Service) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory; %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher; %w", err)
	}
	defer fsw.Close()

	deb := newDebouncer(s.debounce)
	defer deb.stop()

	dirs := 0
	existing, err := s.walk(func(dir string) {
		if err := fsw.Add(dir); err != nil {
			s.logger.Warn("failed to add watch", "path", dir, "error", err)
			return
		}
		dirs++
	})
	if err != nil {
		return err
	}
	metrics.SetWatchDirectories(dirs)

	s.logger.Info("watching", "dir", s.dir, "out_dir", s.outDir, "format", s.format.String(), "include", s.include)
	for _, p := range existing {
		if ctx.Err() != nil {
			return nil
		}
		s.Process(ctx, p)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("watch stopped", "converted", s.converted.Load(), "failed", s.failed.Load())
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			s.handle(fsw, deb, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("fsnotify error", "error", err)
		case c := <-deb.changes():
			metrics.RecordWatchEvent(c.kind.String())
			if c.kind == changeRemoved {
				s.forget(ctx, c.path)
				continue
			}
			s.Process(ctx, c.path)
		}
	}
}

// Scan converts every matching file present under the watched directory once
// and returns how many it looked at. It does not watch for changes.
func (s *Service) Scan(ctx context.Context) (int, error) {
	if err := os.MkdirAll(s.outDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory; %w", err)
	}
	files, err := s.walk(nil)
	if err != nil {
		return 0, err
	}
	for i, p := range files {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		s.Process(ctx, p)
	}
	return len(files), nil
}

// walk lists the matching files under the watched directory, calling dir
// for every directory outside the output directory.
func (s *Service) walk(dir func(string)) ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			if s.isOutput(p) {
				return fs.SkipDir
			}
			if dir != nil {
				dir(p)
			}
			return nil
		}
		if s.matches(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory; %w", err)
	}
	return files, nil
}

func (s *Service) handle(fsw *fsnotify.Watcher, deb *debouncer, ev fsnotify.Event) {
	if isEditorNoise(ev.Name) || s.isOutput(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) && fsutil.IsDir(ev.Name) {
		if err := fsw.Add(ev.Name); err != nil {
			s.logger.Warn("failed to add watch for new directory", "path", ev.Name, "error", err)
			return
		}
		metrics.WatchDirectories.Inc()
		return
	}
	if !s.matches(ev.Name) {
		return
	}

	var kind changeKind
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		kind = changeRemoved
	case ev.Has(fsnotify.Create):
		kind = changeCreated
	case ev.Has(fsnotify.Write):
		kind = changeWritten
	default:
		return
	}
	deb.add(change{path: ev.Name, kind: kind})
}

// Process converts path unless the ledger shows the same content was
// already handled for the target format. It returns the recorded entry, or
// nil when the file was skipped or could not be read.
func (s *Service) Process(ctx context.Context, path string) *Entry {
	hash, err := fsutil.HashFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to hash file", "path", path, "error", err)
		}
		return nil
	}
	dst := convert.Destination(path, s.outDir, s.format)
	if prev, err := s.ledger.Get(ctx, path); err == nil && s.unchanged(prev, hash, dst) {
		s.skipped.Add(1)
		metrics.RecordSkip()
		s.logger.Debug("unchanged, skipping", "path", path, "outcome", prev.Outcome)
		return nil
	}

	if err := os.MkdirAll(s.outDir, 0755); err != nil {
		s.logger.Error("failed to create output directory", "dir", s.outDir, "error", err)
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil
	}

	entry := Entry{Path: path, Hash: hash, Format: s.format.String(), Dst: dst}
	res, err := convert.File(ctx, path, dst, s.convert)
	entry.Shapes = res.Shapes
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.failed.Add(1)
		entry.Outcome = OutcomeFailed
		entry.Error = err.Error()
		s.logger.Error("conversion failed", "path", path, "error", err)
	} else {
		s.converted.Add(1)
		entry.Outcome = OutcomeConverted
	}

	if err := s.ledger.Record(ctx, entry); err != nil {
		s.logger.Error("failed to record conversion", "path", path, "error", err)
	}
	return &entry
}

// unchanged reports whether prev already covers content hash converted to
// dst. Failed conversions of the same content are not retried.
func (s *Service) unchanged(prev *Entry, hash, dst string) bool {
	if prev.Hash != hash || prev.Format != s.format.String() || prev.Dst != dst {
		return false
	}
	if prev.Outcome == OutcomeConverted {
		return fsutil.Exists(dst)
	}
	return prev.Outcome == OutcomeFailed
}

func (s *Service) forget(ctx context.Context, path string) {
	if err := s.ledger.Forget(ctx, path); err != nil {
		if !errors.Is(err, ErrNotRecorded) {
			s.logger.Warn("failed to forget removed file", "path", path, "error", err)
		}
		return
	}
	s.forgotten.Add(1)
	s.logger.Info("source removed", "path", path)
}

func (s *Service) matches(path string) bool {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, p := range s.include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (s *Service) isOutput(path string) bool {
	return path == s.outDir || strings.HasPrefix(path, s.outDir+string(filepath.Separator))
}

// isEditorNoise reports transient files editors create while saving.
func isEditorNoise(path string) bool {
	name := filepath.Base(path)
	switch {
	case strings.HasSuffix(name, ".swp"), strings.HasSuffix(name, ".swo"), strings.HasSuffix(name, ".swx"):
		return true
	case name == "4913":
		return true
	case strings.HasPrefix(name, "#") && strings.HasSuffix(name, "#"):
		return true
	case strings.HasSuffix(name, "~"):
		return true
	case strings.HasPrefix(name, ".~lock."):
		return true
	}
	return false
}
