package exchange

import (
	"errors"
	"fmt"

	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// Error kinds. Every failure returned by this package matches exactly one of
// them with errors.Is.
var (
	ErrFileNotFound       = errors.New("file not found")
	ErrDirectoryNotFound  = errors.New("directory not found")
	ErrIncompatibleFormat = errors.New("incompatible format")
	ErrUnsupportedSchema  = errors.New("unsupported schema")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrInvalidShape       = errors.New("invalid shape")
	ErrReadFailure        = errors.New("read failure")
	ErrBuildFailure       = errors.New("build failure")
	ErrTransferFailure    = errors.New("transfer failure")
	ErrWriteFailure       = errors.New("write failure")
)

// StatusError reports a kernel step that did not finish with StatusDone.
type StatusError struct {
	// Kind is one of ErrReadFailure, ErrTransferFailure or ErrWriteFailure.
	Kind error

	// Status is what the kernel returned.
	Status kernel.Status

	// Cause is the kernel diagnostic, if it kept one.
	Cause error
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%v: kernel status %s (%s)", e.Kind, e.Status, describe(e.Status))
	if e.Cause != nil {
		msg += "; " + e.Cause.Error()
	}
	return msg
}

func (e *StatusError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func describe(st kernel.Status) string {
	switch st {
	case kernel.StatusDone:
		return "succeeded"
	case kernel.StatusVoid:
		return "nothing to process"
	case kernel.StatusError:
		return "invalid input"
	case kernel.StatusFail:
		return "step failed"
	case kernel.StatusStop:
		return "interrupted"
	default:
		return "unrecognized status"
	}
}

// statusError returns nil for StatusDone and a *StatusError of kind
// otherwise. src is asked for a diagnostic when it keeps one.
func statusError(kind error, st kernel.Status, src any) error {
	if st.OK() {
		return nil
	}
	var cause error
	if d, ok := src.(kernel.Diagnostic); ok {
		cause = d.Err()
	}
	return &StatusError{Kind: kind, Status: st, Cause: cause}
}
