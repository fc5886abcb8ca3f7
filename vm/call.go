package vm

import (
	"fmt"

	"github.com/deepnoodle-ai/hostbridge/object"
)

// Call calls a function in unprotected mode. The function and then nargs
// arguments must have been pushed. On success they are replaced by nresults
// results (all of them when nresults is MultRet).
//
// If the callee raises, Call returns a *Raise and the stack above the
// function slot is left in an unspecified state. Functions running under a
// State should return that error unchanged so it reaches the enclosing PCall.
func (s *State) Call(nargs, nresults int) error {
	return s.call(s.functionSlot(nargs), nresults)
}

// PCall calls a function in protected mode. The function and then nargs
// arguments must have been pushed.
//
// On success the function and its arguments are replaced by nresults results
// and StatusOK is returned. On failure they are replaced by a single error
// value and the failure status is returned.
//
// If msgh is not 0 it is the stack index of a message handler. For runtime
// errors the handler is called with the error value at the point the error
// was raised, before any frame is unwound, and its result becomes the error
// value. The handler is not called for memory errors. An error raised while
// running the handler yields StatusErrErr.
func (s *State) PCall(nargs, nresults, msgh int) Status {
	fnSlot := s.functionSlot(nargs)

	savedErrfunc := s.errfunc
	savedHandling := s.handling
	savedFrames := len(s.frames)
	savedBase := s.base

	s.errfunc = 0
	s.handling = false
	if msgh != 0 {
		if msgh <= RegistryIndex {
			panic("pseudo-indexed message handler")
		}
		s.errfunc = s.slot(msgh) + 1
	}

	err := s.call(fnSlot, nresults)
	s.errfunc = savedErrfunc
	s.handling = savedHandling
	if err == nil {
		return StatusOK
	}

	r, ok := AsRaise(err)
	if !ok {
		r = &Raise{Status: StatusErrRun, Value: object.NewString(err.Error())}
	}
	s.frames = s.frames[:savedFrames]
	s.base = savedBase
	s.setLen(fnSlot)
	s.Push(r.Value)
	return r.Status
}

// Error raises the value on top of the stack as a runtime error. The value
// is popped. Functions raise by returning the result:
//
//	return 0, s.Error()
func (s *State) Error() error {
	var value object.Object = object.Nil
	if s.Top() > 0 {
		value = s.Get(-1)
		s.Pop(1)
	}
	return s.raise(value)
}

// Errorf raises a formatted runtime error message. The message is prefixed
// with the position of the nearest script frame, if it has one.
func (s *State) Errorf(format string, args ...any) error {
	where := s.Where(0)
	if where == "" {
		where = s.Where(1)
	}
	s.PushString(where + fmt.Sprintf(format, args...))
	return s.Error()
}

func (s *State) functionSlot(nargs int) int {
	if nargs < 0 {
		panic("negative arguments")
	}
	fnSlot := len(s.stack) - nargs - 1
	if fnSlot < s.base {
		panic("not enough elements in the stack")
	}
	return fnSlot
}

// raise builds the error in flight for value, running the active message
// handler first.
func (s *State) raise(value object.Object) *Raise {
	if s.observer != nil {
		s.observer.OnRaise(RaiseEvent{Value: value, FrameDepth: len(s.frames)})
	}
	if s.errfunc == 0 {
		return &Raise{Status: StatusErrRun, Value: value}
	}
	if s.handling {
		return &Raise{Status: StatusErrErr, Value: errInHandling}
	}
	s.handling = true
	defer func() { s.handling = false }()

	s.Push(s.stack[s.errfunc-1])
	s.Push(value)
	if err := s.call(len(s.stack)-2, 1); err != nil {
		if r, ok := AsRaise(err); ok && r.Status == StatusErrMem {
			return r
		}
		return &Raise{Status: StatusErrErr, Value: errInHandling}
	}
	result := s.Get(-1)
	s.Pop(1)
	return &Raise{Status: StatusErrRun, Value: result}
}

func (s *State) call(fnSlot, nresults int) error {
	fn, ok := s.stack[fnSlot].(Callable)
	if !ok {
		return s.raisef("attempt to call a %s value", s.stack[fnSlot].Type())
	}
	if len(s.frames) >= MaxFrameDepth {
		return s.raisef("stack overflow")
	}

	callerBase := s.base
	s.frames = append(s.frames, frame{fn: fn, base: fnSlot + 1, currentLine: -1})
	s.base = fnSlot + 1
	if s.observer != nil {
		if !s.observer.OnCall(CallEvent{Function: fn, ArgCount: s.Top(), FrameDepth: len(s.frames)}) {
			s.popFrame(callerBase)
			return s.raisef("execution halted by observer")
		}
	}

	popped := false
	defer func() {
		// A Go panic is unwinding through this call.
		if !popped {
			s.popFrame(callerBase)
		}
	}()

	n, err := s.invoke(fn)
	if err != nil {
		if _, ok := AsRaise(err); !ok {
			err = s.raise(object.NewString(err.Error()))
		}
		s.popFrame(callerBase)
		popped = true
		return err
	}
	if n < 0 || n > s.Top() {
		panic(fmt.Sprintf("function returned %d results with %d values on the stack", n, s.Top()))
	}

	first := len(s.stack) - n
	copy(s.stack[fnSlot:], s.stack[first:])
	s.setLen(fnSlot + n)
	if nresults != MultRet {
		s.setLen(fnSlot + nresults)
	}
	s.popFrame(callerBase)
	popped = true

	if s.observer != nil {
		s.observer.OnReturn(ReturnEvent{Function: fn, ResultCount: n, FrameDepth: len(s.frames)})
	}
	return nil
}

// invoke runs fn, turning raise panics from allocation failures into
// returned errors. Any other panic propagates.
func (s *State) invoke(fn Callable) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			if raise, ok := r.(*Raise); ok {
				n, err = 0, raise
				return
			}
			panic(r)
		}
	}()
	return fn.invoke(s)
}

func (s *State) popFrame(callerBase int) {
	s.frames[len(s.frames)-1] = frame{}
	s.frames = s.frames[:len(s.frames)-1]
	s.base = callerBase
}

func (s *State) raisef(format string, args ...any) *Raise {
	return s.raise(object.NewString(s.Where(0) + fmt.Sprintf(format, args...)))
}
