package exchange

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/leefowlercu/aocxchange/internal/fsutil"
	"github.com/leefowlercu/aocxchange/internal/kernel"
)

var extensions = map[kernel.Format][]string{
	kernel.IGES: {"igs", "iges"},
	kernel.STEP: {"stp", "step"},
	kernel.STL:  {"stl"},
	kernel.BREP: {"brep"},
}

// Extensions returns the accepted file extensions of f, lower case and
// without the dot.
func Extensions(f kernel.Format) []string {
	return slices.Clone(extensions[f])
}

// FormatForPath returns the format whose extensions include the extension of
// path.
func FormatForPath(path string) (kernel.Format, error) {
	ext := strings.ToLower(ExtractFileExtension(path))
	for _, f := range kernel.Formats() {
		if slices.Contains(extensions[f], ext) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%s has no known CAD extension; %w", path, ErrIncompatibleFormat)
}

// ExtractFileExtension returns what follows the last dot of the final path
// segment, or "" when the segment has no dot or ends with one.
func ExtractFileExtension(path string) string {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	i := strings.LastIndexByte(base, '.')
	if i < 0 {
		return ""
	}
	return base[i+1:]
}

func checkExtension(path string, allowed []string) error {
	ext := strings.ToLower(ExtractFileExtension(path))
	if ext == "" || !slices.Contains(allowed, ext) {
		return fmt.Errorf("extension %q of %s not in %v; %w", ext, path, allowed, ErrIncompatibleFormat)
	}
	return nil
}

// ValidateImport checks that path is an existing regular file with one of the
// allowed extensions.
func ValidateImport(path string, allowed []string) error {
	if !fsutil.IsRegularFile(path) {
		return fmt.Errorf("%s; %w", path, ErrFileNotFound)
	}
	return checkExtension(path, allowed)
}

// ValidateExport checks that the parent directory of path exists and that
// path has one of the allowed extensions.
func ValidateExport(path string, allowed []string) error {
	if dir := filepath.Dir(path); !fsutil.IsDir(dir) {
		return fmt.Errorf("%s; %w", dir, ErrDirectoryNotFound)
	}
	return checkExtension(path, allowed)
}

// WarnIfOverwrite logs a warning when path already exists and reports
// whether it did.
func WarnIfOverwrite(logger *slog.Logger, path string) bool {
	if !fsutil.Exists(path) {
		return false
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("export will overwrite existing file", "path", path)
	return true
}

// CheckShape rejects nil handles, null shapes and shapes of no known type.
func CheckShape(s kernel.Shape) error {
	if s == nil {
		return fmt.Errorf("nil shape; %w", ErrInvalidShape)
	}
	if v := reflect.ValueOf(s); v.Kind() == reflect.Pointer && v.IsNil() {
		return fmt.Errorf("nil %T; %w", s, ErrInvalidShape)
	}
	if s.IsNull() {
		return fmt.Errorf("null shape; %w", ErrInvalidShape)
	}
	if !s.Type().Valid() {
		return fmt.Errorf("shape type %s; %w", s.Type(), ErrInvalidShape)
	}
	return nil
}
