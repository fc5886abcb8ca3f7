package bridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/hostbridge/object"
	"github.com/deepnoodle-ai/hostbridge/vm"
)

const (
	// Tracebacks longer than headFrames+tailFrames show the first headFrames
	// frames, a "..." line, then the last tailFrames frames.
	headFrames = 12
	tailFrames = 10

	// searchDepth bounds the table nesting followed when naming a native
	// function, e.g. depth 2 finds "string.format".
	searchDepth = 2

	// ErrorHandlerKey is the registry key of the message handler that
	// appends a traceback to runtime errors.
	ErrorHandlerKey = "error_handler"

	// BacktraceKey is the registry key of the function that returns a
	// traceback of its caller.
	BacktraceKey = "backtrace"
)

// Traceback describes the call stack of l1 starting at level, one frame per
// line:
//
//	stack traceback:
//		init.lua:12: in function 'on_step'
//		[C]: in function 'core.run_callbacks'
//
// A non-empty msg is placed on a line of its own before the header.
// Traceback only reads l1.
func Traceback(l1 *vm.State, msg string, level int) string {
	if level < 0 {
		level = 0
	}
	var b strings.Builder
	if msg != "" {
		b.WriteString(msg)
		b.WriteByte('\n')
	}
	b.WriteString("stack traceback:")

	count := l1.FrameCount() - level
	truncate := count > headFrames+tailFrames
	for i := level; ; i++ {
		if truncate && i == level+headFrames {
			b.WriteString("\n\t...")
			i = l1.FrameCount() - tailFrames
		}
		d, ok := l1.GetStack(i)
		if !ok {
			break
		}
		b.WriteString("\n\t")
		b.WriteString(d.ShortSrc)
		b.WriteByte(':')
		if d.CurrentLine > 0 {
			b.WriteString(strconv.Itoa(d.CurrentLine))
			b.WriteByte(':')
		}
		b.WriteString(" in ")
		b.WriteString(funcName(l1, d))
	}
	return b.String()
}

// funcName describes the function of a frame.
func funcName(s *vm.State, d vm.Debug) string {
	switch {
	case d.NameWhat != "":
		return fmt.Sprintf("function '%s'", d.Name)
	case d.What == "main":
		return "main chunk"
	case d.What == "C":
		if name, ok := globalFuncName(s, d.Func); ok {
			return fmt.Sprintf("function '%s'", name)
		}
		return "?"
	default:
		return fmt.Sprintf("function <%s:%d>", d.ShortSrc, d.LineDefined)
	}
}

// globalFuncName looks for fn among the globals and then among the loaded
// modules, returning a dotted path such as "core.run_callbacks".
func globalFuncName(s *vm.State, fn object.Object) (string, bool) {
	if fn == nil {
		return "", false
	}
	if name, ok := findField(s.Globals(), fn, searchDepth); ok {
		return name, true
	}
	return findField(s.Loaded(), fn, searchDepth)
}

// findField searches t for a string key bound to target, descending into
// nested tables up to level-1 more times. Keys are visited in table order.
func findField(t *object.Table, target object.Object, level int) (string, bool) {
	if level == 0 || t == nil {
		return "", false
	}
	var (
		found string
		ok    bool
	)
	t.ForEach(func(key, value object.Object) bool {
		k, isString := key.(*object.String)
		if !isString {
			return true
		}
		if value.Equals(target) {
			found, ok = k.Value(), true
			return false
		}
		if nested, isTable := value.(*object.Table); isTable && nested != t {
			if name, hit := findField(nested, target, level-1); hit {
				found, ok = k.Value()+"."+name, true
				return false
			}
		}
		return true
	})
	return found, ok
}

// Install stores the error handler and backtrace functions in the registry
// of s. New calls it; calling it again is harmless.
func Install(s *vm.State) {
	s.Registry().SetField(ErrorHandlerKey, vm.NewGoFunction(ErrorHandlerKey, errorHandler))
	s.Registry().SetField(BacktraceKey, vm.NewGoFunction(BacktraceKey, backtrace))
}

// errorHandler appends a traceback to string error values. Other error
// values are returned unchanged.
func errorHandler(s *vm.State) (int, error) {
	msg, ok := s.ToString(1)
	if !ok {
		s.SetTop(1)
		return 1, nil
	}
	s.PushString(Traceback(s, msg, 1))
	return 1, nil
}

func backtrace(s *vm.State) (int, error) {
	s.PushString(Traceback(s, "", 1))
	return 1, nil
}

// Backtrace returns a traceback of the function currently running on the
// bridged State.
func (b *Bridge) Backtrace() (string, error) {
	s := b.state
	s.Push(s.Registry().GetField(BacktraceKey))
	if err := s.Call(0, 1); err != nil {
		return "", err
	}
	trace, _ := s.ToString(-1)
	s.Pop(1)
	return trace, nil
}
