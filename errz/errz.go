// Package errz defines the error record produced when a script call fails.
package errz

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind represents the category of a failed script call.
type Kind int

const (
	// Runtime indicates an error raised while running script code.
	Runtime Kind = iota
	// OOM indicates the script heap could not grow.
	OOM
	// DoubleFault indicates an error raised while handling another error.
	DoubleFault
	// Unknown indicates a result code the bridge does not recognize.
	Unknown
)

const (
	// Placeholder stands in for an unknown module or callback name.
	Placeholder = "??"

	// NoDescription stands in for a missing or non-string error object.
	NoDescription = "<no description>"
)

// String returns the label used at the start of composed messages.
func (k Kind) String() string {
	switch k {
	case Runtime:
		return "Runtime"
	case OOM:
		return "OOM"
	case DoubleFault:
		return "Double fault"
	default:
		return "Unknown"
	}
}

// ScriptError is the uniform error returned to native code when a script
// call fails. Callers distinguish failures by Kind, not by Go type.
//
// The message is composed on demand by Error, so constructing a ScriptError
// on the out-of-memory path costs a single allocation.
type ScriptError struct {
	Kind        Kind
	Module      string
	Callback    string
	Description string

	// MemoryMB is the script heap usage at the time of failure. It is only
	// reported for OOM errors.
	MemoryMB int64
}

// New returns a ScriptError with empty names replaced by Placeholder and an
// empty description replaced by NoDescription.
func New(kind Kind, module, callback, description string) *ScriptError {
	if module == "" {
		module = Placeholder
	}
	if callback == "" {
		callback = Placeholder
	}
	if description == "" {
		description = NoDescription
	}
	return &ScriptError{
		Kind:        kind,
		Module:      module,
		Callback:    callback,
		Description: description,
	}
}

// Header returns the message without the description, e.g.
// "Runtime error from mod 'default' in callback on_step(): ".
func (e *ScriptError) Header() string {
	return fmt.Sprintf("%s error from mod '%s' in callback %s(): ",
		e.Kind, e.Module, e.Callback)
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	msg := e.Header() + e.Description
	if e.Kind == OOM {
		msg += "\nCurrent Lua memory usage: " + strconv.FormatInt(e.MemoryMB, 10) + " MB"
	}
	return msg
}

// IsKind reports whether err wraps a ScriptError of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *ScriptError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// As returns the ScriptError wrapped by err, if any.
func As(err error) (*ScriptError, bool) {
	var se *ScriptError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
