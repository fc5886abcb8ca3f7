package bridge

import (
	"github.com/deepnoodle-ai/hostbridge/errz"
	"github.com/deepnoodle-ai/hostbridge/vm"
)

// CheckResult converts the result of a protected call into an error. It
// returns nil for vm.StatusOK without touching the stack. For any other
// status the error object on top of the stack is popped and described in
// the returned *errz.ScriptError; mod and fxn name the module and callback
// that failed, and may be empty when unknown.
func (b *Bridge) CheckResult(status vm.Status, mod, fxn string) error {
	if status == vm.StatusOK {
		return nil
	}
	s := b.state

	var kind errz.Kind
	switch status {
	case vm.StatusErrRun:
		kind = errz.Runtime
	case vm.StatusErrMem:
		kind = errz.OOM
	case vm.StatusErrErr:
		kind = errz.DoubleFault
	default:
		kind = errz.Unknown
	}

	var descr string
	if s.Top() > 0 {
		descr, _ = s.ToString(-1)
		s.Pop(1)
	}
	err := errz.New(kind, mod, fxn, descr)
	if kind == errz.OOM {
		err.MemoryMB = s.MemoryKB() >> 10
	}
	return err
}
