package bridge

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/hostbridge/errz"
	"github.com/deepnoodle-ai/hostbridge/object"
	"github.com/deepnoodle-ai/hostbridge/settings"
	"github.com/deepnoodle-ai/hostbridge/vm"
)

func TestParseDeprecationMode(t *testing.T) {
	require.Equal(t, DeprecationLog, ParseDeprecationMode("log"))
	require.Equal(t, DeprecationError, ParseDeprecationMode("error"))
	require.Equal(t, DeprecationIgnore, ParseDeprecationMode("ignore"))
	require.Equal(t, DeprecationIgnore, ParseDeprecationMode(""))
	require.Equal(t, DeprecationIgnore, ParseDeprecationMode("LOG"))
	require.Equal(t, "error", DeprecationError.String())
	require.Equal(t, "ignore", DeprecationMode(7).String())
}

func TestDeprecationModeIsFixedAtConstruction(t *testing.T) {
	source := settings.New()
	source.Set(settings.KeyDeprecatedHandling, "error")
	b := New(vm.New(), WithSettings(source))

	source.Set(settings.KeyDeprecatedHandling, "ignore")
	require.Equal(t, DeprecationError, b.DeprecationMode())
	require.Error(t, b.LogDeprecated("still an error", 1))

	// A second bridge sees the new value.
	require.Equal(t, DeprecationIgnore, New(vm.New(), WithSettings(source)).DeprecationMode())
}

// callDeprecated runs a chunk at init.lua:7 that calls the deprecated global
// old_api and returns the status of the protected call.
func callDeprecated(b *Bridge, s *vm.State, ran *bool) vm.Status {
	b.Register("old_api", b.Deprecated("old_api is deprecated, use new_api", func(s *vm.State) (int, error) {
		*ran = true
		return 0, nil
	}))
	s.Push(vm.NewChunk("@init.lua", func(s *vm.State) (int, error) {
		s.SetLine(7)
		s.GetGlobal("old_api")
		return 0, s.Call(0, 0)
	}))
	return s.PCall(0, 0, 0)
}

func TestLogDeprecatedLogMode(t *testing.T) {
	var buf bytes.Buffer
	b, s := newBridge(t, "log", WithLogger(zerolog.New(&buf)))

	var ran bool
	require.Equal(t, vm.StatusOK, callDeprecated(b, s, &ran))
	require.True(t, ran)

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	require.Equal(t, "warn", lines[0]["level"])
	require.Equal(t, "old_api is deprecated, use new_api (at init.lua:7)", lines[0]["message"])
	require.Equal(t, "info", lines[1]["level"])
	require.Equal(t, "stack traceback:\n"+
		"\t[C]: in function 'old_api'\n"+
		"\tinit.lua:7: in main chunk", lines[1]["message"])
}

func TestLogDeprecatedErrorMode(t *testing.T) {
	var buf bytes.Buffer
	b, s := newBridge(t, "error", WithLogger(zerolog.New(&buf)))

	var ran bool
	status := callDeprecated(b, s, &ran)
	require.Equal(t, vm.StatusErrRun, status)
	require.False(t, ran)
	require.Empty(t, buf.String())

	msg, _ := s.ToString(-1)
	require.Equal(t, "Runtime error from mod '??' in callback ??(): "+
		"old_api is deprecated, use new_api (at init.lua:7)", msg)
}

func TestLogDeprecatedIgnoreMode(t *testing.T) {
	var buf bytes.Buffer
	b, s := newBridge(t, "bogus", WithLogger(zerolog.New(&buf)))
	require.Equal(t, DeprecationIgnore, b.DeprecationMode())

	var ran bool
	require.Equal(t, vm.StatusOK, callDeprecated(b, s, &ran))
	require.True(t, ran)
	require.Empty(t, buf.String())
}

func TestLogDeprecatedErrorModeIsClassified(t *testing.T) {
	b, s := newBridge(t, "error")
	s.PushString("below")
	err := b.LogDeprecated("get_node is deprecated", 1)

	se, ok := errz.As(err)
	require.True(t, ok)
	require.Equal(t, errz.Runtime, se.Kind)
	require.Equal(t, errz.Placeholder, se.Module)
	require.Equal(t, errz.Placeholder, se.Callback)
	require.Equal(t, "get_node is deprecated (at ?:?)", se.Description)
	require.Equal(t, 1, s.Top())
	require.Equal(t, object.NewString("below"), s.Get(-1))
}

func TestLogDeprecatedUnknownCallSite(t *testing.T) {
	b, _ := newBridge(t, "error")
	err := b.LogDeprecated("minetest.env is deprecated", 3)
	require.True(t, errz.IsKind(err, errz.Runtime))
	require.EqualError(t, err, "Runtime error from mod '??' in callback ??(): "+
		"minetest.env is deprecated (at ?:?)")

	var buf bytes.Buffer
	b, _ = newBridge(t, "log", WithLogger(zerolog.New(&buf)))
	require.NoError(t, b.LogDeprecated("minetest.env is deprecated", 3))
	lines := logLines(t, &buf)
	require.Equal(t, "minetest.env is deprecated (at ?:?)", lines[0]["message"])
	require.Equal(t, "stack traceback:", lines[1]["message"])
}
