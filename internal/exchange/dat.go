package exchange

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DATExtensions are the extensions accepted by NewDATImporter.
var DATExtensions = []string{"dat"}

// DATImporter reads a point list such as an airfoil section: one point per
// line as "x y" or "x y z". Blank lines are ignored.
type DATImporter struct {
	path   string
	points [][3]float64
}

// NewDATImporter validates path and reads its points. Use WithSkipFirstLine
// for files that open with a title line.
func NewDATImporter(path string, opts ...Option) (*DATImporter, error) {
	s := newSettings(opts)
	if err := ValidateImport(path, DATExtensions); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s; %w", path, ErrReadFailure)
	}
	defer f.Close()

	im := &DATImporter{path: path}
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		if n == 1 && s.skipFirstLine {
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) > 3 || len(fields) < 2 {
			return nil, fmt.Errorf("%s line %d has %d values; %w", path, n, len(fields), ErrReadFailure)
		}
		var p [3]float64
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %q is not a number; %w", path, n, field, ErrReadFailure)
			}
			p[i] = v
		}
		im.points = append(im.points, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %v; %w", path, err, ErrReadFailure)
	}
	if len(im.points) == 0 {
		return nil, fmt.Errorf("%s has no points; %w", path, ErrReadFailure)
	}
	s.logger.Debug("read point list", "path", path, "points", len(im.points))
	return im, nil
}

// Path returns the source file.
func (im *DATImporter) Path() string {
	return im.path
}

// Points returns a copy of the points in file order. Two-value lines have z 0.
func (im *DATImporter) Points() [][3]float64 {
	out := make([][3]float64, len(im.points))
	copy(out, im.points)
	return out
}
