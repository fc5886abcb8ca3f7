package vm

import (
	"errors"
	"fmt"

	"github.com/deepnoodle-ai/hostbridge/object"
)

// Status is the result code of a protected call.
type Status int

const (
	StatusOK        Status = 0
	StatusYield     Status = 1
	StatusErrRun    Status = 2
	StatusErrSyntax Status = 3
	StatusErrMem    Status = 4
	StatusErrErr    Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusYield:
		return "yield"
	case StatusErrRun:
		return "runtime error"
	case StatusErrSyntax:
		return "syntax error"
	case StatusErrMem:
		return "memory error"
	case StatusErrErr:
		return "error in error handling"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

var (
	// Preallocated so that reporting an out-of-memory condition never needs
	// to allocate.
	memErrMsg     = object.NewString("not enough memory")
	errInHandling = object.NewString("error in error handling")
)

// Raise is a script error in flight. It carries the error value and the
// status the enclosing protected call will report. Functions propagate a
// Raise by returning it; the nearest PCall catches it.
type Raise struct {
	Status Status
	Value  object.Object
}

func (r *Raise) Error() string {
	if msg, ok := object.ToString(r.Value); ok {
		return msg
	}
	return fmt.Sprintf("(error object is a %s value)", r.Value.Type())
}

// AsRaise returns the Raise wrapped by err, if any.
func AsRaise(err error) (*Raise, bool) {
	var r *Raise
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
