package bridge

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/hostbridge/object"
	"github.com/deepnoodle-ai/hostbridge/vm"
)

// nest runs inner inside depth nested script frames. The frame at nesting
// level n, counting the outermost as 1, reports line n.
func nest(s *vm.State, depth int, inner func(s *vm.State)) error {
	var level func(n int) *vm.ScriptFunction
	level = func(n int) *vm.ScriptFunction {
		return vm.NewScriptFunction("@deep.lua", 1, func(s *vm.State) (int, error) {
			s.SetLine(n)
			if n == depth {
				inner(s)
				return 0, nil
			}
			s.Push(level(n + 1))
			return 0, s.Call(0, 0)
		})
	}
	s.Push(level(1))
	return s.Call(0, 0)
}

func frameLines(trace string) []string {
	parts := strings.Split(trace, "\n\t")
	return parts[1:]
}

func deepLine(n int) string {
	return fmt.Sprintf("deep.lua:%d: in function <deep.lua:1>", n)
}

func TestTracebackShallowStacks(t *testing.T) {
	for _, depth := range []int{1, 12, 21, 22} {
		t.Run(fmt.Sprint(depth), func(t *testing.T) {
			s := vm.New()
			var trace string
			require.NoError(t, nest(s, depth, func(s *vm.State) {
				trace = Traceback(s, "", 0)
			}))
			require.True(t, strings.HasPrefix(trace, "stack traceback:\n\t"))
			lines := frameLines(trace)
			require.Len(t, lines, depth)
			require.NotContains(t, lines, "...")
			require.Equal(t, deepLine(depth), lines[0])
			require.Equal(t, deepLine(1), lines[depth-1])
		})
	}
}

func TestTracebackDeepStackIsTruncated(t *testing.T) {
	for _, depth := range []int{23, 30, 150} {
		t.Run(fmt.Sprint(depth), func(t *testing.T) {
			s := vm.New()
			var trace string
			require.NoError(t, nest(s, depth, func(s *vm.State) {
				trace = Traceback(s, "", 0)
			}))
			lines := frameLines(trace)
			require.Len(t, lines, 12+1+10)
			for i := 0; i < 12; i++ {
				require.Equal(t, deepLine(depth-i), lines[i])
			}
			require.Equal(t, "...", lines[12])
			// The tail is the outermost ten frames of the real stack.
			for i := 0; i < 10; i++ {
				require.Equal(t, deepLine(10-i), lines[13+i])
			}
		})
	}
}

func TestTracebackStartLevel(t *testing.T) {
	s := vm.New()
	var trace string
	require.NoError(t, nest(s, 5, func(s *vm.State) {
		trace = Traceback(s, "", 2)
	}))
	lines := frameLines(trace)
	require.Equal(t, []string{deepLine(3), deepLine(2), deepLine(1)}, lines)

	// Counting starts at the requested level, so 22 frames above it are
	// still shown in full.
	require.NoError(t, nest(s, 25, func(s *vm.State) {
		trace = Traceback(s, "", 3)
	}))
	require.Len(t, frameLines(trace), 22)
}

func TestTracebackMessage(t *testing.T) {
	s := vm.New()
	require.Equal(t, "stack traceback:", Traceback(s, "", 0))
	require.Equal(t, "boom\nstack traceback:", Traceback(s, "boom", 0))
	require.Equal(t, "stack traceback:", Traceback(s, "", -3))
}

func TestTracebackFunctionNames(t *testing.T) {
	s := vm.New()
	var trace string

	script := vm.NewScriptFunction("@lib.lua", 40, func(s *vm.State) (int, error) {
		s.SetLine(41)
		trace = Traceback(s, "", 0)
		return 0, nil
	})
	callNext := func(next object.Object) vm.Function {
		return func(s *vm.State) (int, error) {
			s.Push(next)
			return 0, s.Call(0, 0)
		}
	}
	anonymous := vm.NewGoFunction("anonymous", callNext(script))
	format := vm.NewGoFunction("format", callNext(anonymous))
	helper := vm.NewGoFunction("helper", callNext(format))
	onStep := vm.NewScriptFunction("@init.lua", 4, func(s *vm.State) (int, error) {
		s.SetLine(5)
		s.Push(helper)
		return 0, s.Call(0, 0)
	}).Named("on_step")
	chunk := vm.NewChunk("@init.lua", func(s *vm.State) (int, error) {
		s.SetLine(2)
		s.Push(onStep)
		return 0, s.Call(0, 0)
	})

	str := object.NewTable()
	str.SetField("format", format)
	s.Globals().SetField("string", str)
	mod := object.NewTable()
	mod.SetField("helper", helper)
	s.Loaded().SetField("mymod", mod)

	s.Push(chunk)
	require.NoError(t, s.Call(0, 0))
	require.Equal(t, strings.Join([]string{
		"stack traceback:",
		"\tlib.lua:41: in function <lib.lua:40>",
		"\t[C]: in ?",
		"\t[C]: in function 'string.format'",
		"\t[C]: in function 'mymod.helper'",
		"\tinit.lua:5: in function 'on_step'",
		"\tinit.lua:2: in main chunk",
	}, "\n"), trace)
}

func TestTracebackNameSearchFollowsTableOrder(t *testing.T) {
	s := vm.New()
	var trace string
	fn := vm.NewGoFunction("print", func(s *vm.State) (int, error) {
		trace = Traceback(s, "", 0)
		return 0, nil
	})
	lib := object.NewTable()
	lib.SetField("alias", fn)
	s.Globals().SetField("lib", lib)
	s.Globals().SetField("print", fn)

	s.Push(fn)
	require.NoError(t, s.Call(0, 0))
	require.Equal(t, "stack traceback:\n\t[C]: in function 'lib.alias'", trace)
}

func TestBacktrace(t *testing.T) {
	b, s := newBridge(t, "ignore")

	trace, err := b.Backtrace()
	require.NoError(t, err)
	require.Equal(t, "stack traceback:", trace)

	b.Register("where", func(s *vm.State) (int, error) {
		trace, err = b.Backtrace()
		return 0, err
	})
	s.Push(vm.NewChunk("@init.lua", func(s *vm.State) (int, error) {
		s.SetLine(3)
		s.GetGlobal("where")
		return 0, s.Call(0, 0)
	}))
	require.NoError(t, s.Call(0, 0))
	require.NoError(t, err)
	require.Equal(t, "stack traceback:\n\t[C]: in function 'where'\n\tinit.lua:3: in main chunk", trace)
	require.Equal(t, 0, s.Top())
}

func TestErrorHandlerPassesNonStrings(t *testing.T) {
	_, s := newBridge(t, "ignore")
	errValue := object.NewTable()

	s.Push(s.Registry().GetField(ErrorHandlerKey))
	s.Push(vm.NewGoFunction("throw", func(s *vm.State) (int, error) {
		s.Push(errValue)
		return 0, s.Error()
	}))
	require.Equal(t, vm.StatusErrRun, s.PCall(0, 0, 1))
	require.Same(t, errValue, s.Get(-1))
}

func TestErrorHandlerAppendsTraceback(t *testing.T) {
	_, s := newBridge(t, "ignore")
	s.Push(s.Registry().GetField(ErrorHandlerKey))
	s.Push(vm.NewScriptFunction("@init.lua", 8, func(s *vm.State) (int, error) {
		s.SetLine(9)
		return 0, s.Errorf("attempt to call a nil value")
	}))
	require.Equal(t, vm.StatusErrRun, s.PCall(0, 0, 1))
	msg, ok := s.ToString(-1)
	require.True(t, ok)
	require.Equal(t, "init.lua:9: attempt to call a nil value\n"+
		"stack traceback:\n"+
		"\tinit.lua:9: in function <init.lua:8>", msg)
}
