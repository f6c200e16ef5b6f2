package kernel

// Status is the return status of a kernel translation step.
type Status int

// Translation statuses.
const (
	// StatusVoid means nothing was done, for example no entity to transfer.
	StatusVoid Status = iota
	// StatusDone means the step succeeded.
	StatusDone
	// StatusError means the input was invalid; nothing was produced.
	StatusError
	// StatusFail means the step was attempted and failed.
	StatusFail
	// StatusStop means the step was interrupted.
	StatusStop
)

// OK reports whether the status is StatusDone.
func (s Status) OK() bool {
	return s == StatusDone
}

func (s Status) String() string {
	switch s {
	case StatusVoid:
		return "void"
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	case StatusFail:
		return "fail"
	case StatusStop:
		return "stop"
	default:
		return "unknown"
	}
}
