package exchange

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDAT(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func quiet() Option {
	return WithLogger(slog.New(slog.DiscardHandler))
}

// naca0006 writes a symmetric 6% section: a title line, then 35 points from
// the trailing edge over the top and back along the bottom.
func naca0006(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("NACA 0006\n")
	thickness := func(x float64) float64 {
		return 5 * 0.06 * (0.2969*math.Sqrt(x) - 0.1260*x - 0.3516*x*x + 0.2843*x*x*x - 0.1015*x*x*x*x)
	}
	for i := 17; i >= -17; i-- {
		x := (1 - math.Cos(math.Pi*math.Abs(float64(i))/17)) / 2
		y := thickness(x)
		if i < 0 {
			y = -y
		}
		fmt.Fprintf(&b, "  %.6f  %.6f\n", x, y)
	}
	return writeDAT(t, dir, "naca0006.dat", b.String())
}

func TestDATImporter(t *testing.T) {
	path := naca0006(t, t.TempDir())

	im, err := NewDATImporter(path, WithSkipFirstLine(), quiet())
	require.NoError(t, err)
	pts := im.Points()
	require.Len(t, pts, 35)
	assert.Equal(t, path, im.Path())
	assert.InDelta(t, 1.0, pts[0][0], 1e-9)
	assert.InDelta(t, 0.0, pts[17][0], 1e-9)
	assert.Zero(t, pts[10][2])

	pts[0][0] = 42
	assert.InDelta(t, 1.0, im.Points()[0][0], 1e-9, "Points returns a copy")

	_, err = NewDATImporter(path)
	assert.ErrorIs(t, err, ErrReadFailure, "title line read as data")
}

func TestDATImporterErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing", filepath.Join(dir, "missing.dat"), ErrFileNotFound},
		{"extension", writeDAT(t, dir, "points.txt", "0 0\n"), ErrIncompatibleFormat},
		{"empty", writeDAT(t, dir, "empty.dat", "\n\n"), ErrReadFailure},
		{"one value", writeDAT(t, dir, "short.dat", "0 0\n1\n"), ErrReadFailure},
		{"four values", writeDAT(t, dir, "long.dat", "0 0 0 0\n"), ErrReadFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDATImporter(tt.path, quiet())
			assert.ErrorIs(t, err, tt.want)
		})
	}

	threeD := writeDAT(t, dir, "space.dat", "0 0 1\n\n1 2 3\n")
	im, err := NewDATImporter(threeD, quiet())
	require.NoError(t, err)
	assert.Equal(t, [][3]float64{{0, 0, 1}, {1, 2, 3}}, im.Points())
}
