// Package reference wires the polyhedral brep kernel and its codecs into the
// kernel contract.
package reference

import (
	"errors"
	"fmt"

	"github.com/leefowlercu/aocxchange/internal/brep"
	"github.com/leefowlercu/aocxchange/internal/brep/iges"
	"github.com/leefowlercu/aocxchange/internal/brep/native"
	"github.com/leefowlercu/aocxchange/internal/brep/step"
	"github.com/leefowlercu/aocxchange/internal/brep/stl"
	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// ErrUnknownFormat is returned for formats the kernel has no codec for.
var ErrUnknownFormat = errors.New("unknown format")

// Kernel is the pure-Go kernel.
type Kernel struct{}

var _ kernel.Kernel = Kernel{}

// New returns the reference kernel.
func New() Kernel {
	return Kernel{}
}

// Reader returns a fresh reader for f.
func (Kernel) Reader(f kernel.Format) (kernel.Reader, error) {
	switch f {
	case kernel.IGES:
		return iges.NewReader(), nil
	case kernel.STEP:
		return step.NewReader(), nil
	case kernel.STL:
		return stl.NewReader(), nil
	case kernel.BREP:
		return native.NewReader(), nil
	default:
		return nil, fmt.Errorf("%s; %w", f, ErrUnknownFormat)
	}
}

// Writer returns a fresh writer for f configured with opts.
func (Kernel) Writer(f kernel.Format, opts kernel.WriterOptions) (kernel.Writer, error) {
	switch f {
	case kernel.IGES:
		return iges.NewWriter(opts), nil
	case kernel.STEP:
		w, err := step.NewWriter(opts)
		if err != nil {
			return nil, err
		}
		return w, nil
	case kernel.STL:
		return stl.NewWriter(opts.ASCII), nil
	case kernel.BREP:
		return native.NewWriter(), nil
	default:
		return nil, fmt.Errorf("%s; %w", f, ErrUnknownFormat)
	}
}

// Builder returns the brep builder.
func (Kernel) Builder() kernel.Builder {
	return brep.Builder{}
}
