package exchange

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leefowlercu/aocxchange/internal/kernel"
	"github.com/leefowlercu/aocxchange/internal/kernel/reference"
)

// STEP application protocols accepted by WithSchema.
const (
	SchemaAP203   = "AP203"
	SchemaAP214CD = "AP214CD"
)

// IGES versions accepted by WithIGESVersion.
const (
	IGESVersion51 = "5.1"
	IGESVersion53 = "5.3"
)

// DefaultTolerance is the STEP uncertainty used when none is given.
const DefaultTolerance = 1e-4

// Option configures importers and exporters. Format-specific options are
// ignored by the other formats.
type Option func(*settings)

type settings struct {
	kernel      kernel.Kernel
	logger      *slog.Logger
	schema      string
	tolerance   float64
	verbose     bool
	igesVersion string
	ascii       bool

	skipFirstLine bool
}

func newSettings(opts []Option) *settings {
	s := &settings{
		kernel:      reference.New(),
		logger:      slog.Default(),
		schema:      SchemaAP214CD,
		tolerance:   DefaultTolerance,
		igesVersion: IGESVersion51,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithKernel selects the geometry kernel. The default is the reference
// polyhedral kernel.
func WithKernel(k kernel.Kernel) Option {
	return func(s *settings) {
		if k != nil {
			s.kernel = k
		}
	}
}

// WithLogger sets the logger for warnings and progress.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSchema sets the STEP application protocol, AP203 or AP214CD.
func WithSchema(schema string) Option {
	return func(s *settings) {
		s.schema = schema
	}
}

// WithTolerance sets the STEP uncertainty. Non-positive values keep the
// default.
func WithTolerance(tol float64) Option {
	return func(s *settings) {
		if tol > 0 {
			s.tolerance = tol
		}
	}
}

// WithVerbose logs each STEP transfer at info level.
func WithVerbose(v bool) Option {
	return func(s *settings) {
		s.verbose = v
	}
}

// WithIGESVersion sets the IGES version, 5.1 or 5.3.
func WithIGESVersion(version string) Option {
	return func(s *settings) {
		s.igesVersion = version
	}
}

// WithASCII selects ASCII STL output.
func WithASCII(ascii bool) Option {
	return func(s *settings) {
		s.ascii = ascii
	}
}

func (s *settings) stepSchema() (string, error) {
	schema := strings.ToUpper(strings.TrimSpace(s.schema))
	switch schema {
	case SchemaAP203, SchemaAP214CD:
		return schema, nil
	default:
		return "", fmt.Errorf("schema %q, want %s or %s; %w", s.schema, SchemaAP203, SchemaAP214CD, ErrUnsupportedSchema)
	}
}

func (s *settings) igesBRepMode() (bool, error) {
	switch strings.TrimSpace(s.igesVersion) {
	case IGESVersion51:
		return false, nil
	case IGESVersion53:
		return true, nil
	default:
		return false, fmt.Errorf("IGES version %q, want %s or %s; %w", s.igesVersion, IGESVersion51, IGESVersion53, ErrUnsupportedFormat)
	}
}

// WithSkipFirstLine makes the DAT importer ignore the first line of the file,
// which usually holds the section name.
func WithSkipFirstLine() Option {
	return func(s *settings) {
		s.skipFirstLine = true
	}
}
