package bridge

import (
	"fmt"

	"github.com/deepnoodle-ai/hostbridge/corelib"
)

// RunCallbacks runs a callback list through core.run_callbacks. The caller
// pushes the list and then nargs arguments. On success they are replaced by
// the single result mode selects. On failure they are removed and the error
// is returned as an *errz.ScriptError naming fxn as the callback.
//
// RunCallbacks panics if fewer than nargs+1 values are on the stack.
func (b *Bridge) RunCallbacks(nargs int, mode corelib.Mode, fxn string) error {
	s := b.state
	if nargs < 0 || s.Top() < nargs+1 {
		panic(fmt.Sprintf("bridge: run_callbacks needs %d values, stack has %d", nargs+1, s.Top()))
	}

	s.Push(s.Registry().GetField(ErrorHandlerKey))
	handler := s.Top() - nargs - 1
	s.Insert(handler)

	s.GetGlobal(corelib.GlobalName)
	s.GetField(-1, "run_callbacks")
	s.Remove(-2)
	s.Insert(handler + 1)

	s.PushInt(int64(mode))
	s.Insert(handler + 3)

	// ... <handler> <run_callbacks> <list> <mode> <arg 1> ... <arg n>
	status := s.PCall(nargs+2, 1, handler)
	if err := b.CheckResult(status, "", fxn); err != nil {
		s.Remove(handler)
		return err
	}
	s.Remove(handler)
	return nil
}
