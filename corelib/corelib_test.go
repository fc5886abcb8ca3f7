package corelib

import (
	"testing"

	"github.com/deepnoodle-ai/hostbridge/object"
	"github.com/deepnoodle-ai/hostbridge/vm"
	"github.com/stretchr/testify/require"
)

// returning builds a callback that records that it ran and returns value.
func returning(value object.Object, ran *[]object.Object) *vm.GoFunction {
	return vm.NewGoFunction("cb", func(s *vm.State) (int, error) {
		*ran = append(*ran, value)
		s.Push(value)
		return 1, nil
	})
}

func run(t *testing.T, s *vm.State, list *object.Table, mode Mode, args ...object.Object) object.Object {
	t.Helper()
	s.Push(Core(s).GetField("run_callbacks"))
	s.Push(list)
	s.PushInt(int64(mode))
	for _, arg := range args {
		s.Push(arg)
	}
	require.NoError(t, s.Call(2+len(args), 1))
	result := s.Get(-1)
	s.Pop(1)
	return result
}

func TestRunCallbacksModes(t *testing.T) {
	one, two := object.NewInt(1), object.NewInt(2)
	tests := []struct {
		name    string
		mode    Mode
		values  []object.Object
		want    object.Object
		wantRan int
	}{
		{"first", First, []object.Object{one, two}, one, 2},
		{"last", Last, []object.Object{one, two}, two, 2},
		{"and all truthy", And, []object.Object{one, two}, one, 2},
		{"and falsy", And, []object.Object{one, object.False, two}, object.False, 3},
		{"and_sc stops", AndSC, []object.Object{one, object.Nil, two}, object.Nil, 2},
		{"and_sc all truthy", AndSC, []object.Object{one, two}, two, 2},
		{"or first truthy", Or, []object.Object{object.False, one, two}, one, 3},
		{"or all falsy", Or, []object.Object{object.Nil, object.False}, object.Nil, 2},
		{"or_sc stops", OrSC, []object.Object{object.False, one, two}, one, 2},
		{"or_sc all falsy", OrSC, []object.Object{object.Nil, object.False}, object.Nil, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := vm.New()
			Open(s)
			var ran []object.Object
			list := object.NewTable()
			for _, v := range tt.values {
				list.Append(returning(v, &ran))
			}
			require.Equal(t, tt.want, run(t, s, list, tt.mode))
			require.Len(t, ran, tt.wantRan)
		})
	}
}

func TestRunCallbacksAllFalsy(t *testing.T) {
	tests := []struct {
		mode    Mode
		want    object.Object
		wantRan int
	}{
		{First, object.Nil, 2},
		{Last, object.False, 2},
		{And, object.False, 2},
		{AndSC, object.Nil, 1},
		{Or, object.Nil, 2},
		{OrSC, object.Nil, 2},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			s := vm.New()
			Open(s)
			var ran []object.Object
			list := object.NewList(returning(object.Nil, &ran), returning(object.False, &ran))
			require.Equal(t, tt.want, run(t, s, list, tt.mode))
			require.Len(t, ran, tt.wantRan)
		})
	}
}

func TestRunCallbacksEmptyList(t *testing.T) {
	s := vm.New()
	Open(s)
	empty := object.NewTable()
	require.Equal(t, object.True, run(t, s, empty, And))
	require.Equal(t, object.True, run(t, s, empty, AndSC))
	require.Equal(t, object.False, run(t, s, empty, Or))
	require.Equal(t, object.False, run(t, s, empty, OrSC))
	require.Equal(t, object.Nil, run(t, s, empty, First))
	require.Equal(t, object.Nil, run(t, s, empty, Last))
}

func TestRunCallbacksPassesArguments(t *testing.T) {
	s := vm.New()
	Open(s)
	var seen [][]object.Object
	cb := vm.NewGoFunction("cb", func(s *vm.State) (int, error) {
		var args []object.Object
		for i := 1; i <= s.Top(); i++ {
			args = append(args, s.Get(i))
		}
		seen = append(seen, args)
		return 0, nil
	})
	list := object.NewList(cb, cb)
	run(t, s, list, Last, object.NewString("pos"), object.NewInt(7))

	require.Len(t, seen, 2)
	for _, args := range seen {
		require.Equal(t, []object.Object{object.NewString("pos"), object.NewInt(7)}, args)
	}
}

func TestRunCallbacksBadArguments(t *testing.T) {
	s := vm.New()
	Open(s)
	s.Push(Core(s).GetField("run_callbacks"))
	s.PushString("not a table")
	s.PushInt(0)
	require.Equal(t, vm.StatusErrRun, s.PCall(2, 1, 0))
	msg, _ := s.ToString(-1)
	require.Equal(t, "bad argument #1 to 'run_callbacks' (table expected, got string)", msg)
}

func TestRegisterCallbackTracksOrigin(t *testing.T) {
	s := vm.New()
	Open(s)

	var mods []string
	probe := func(s *vm.State) (int, error) {
		mods = append(mods, LastRunMod(s))
		return 0, nil
	}
	_, err := RegisterCallback(s, "on_step", "alpha", vm.NewGoFunction("a", probe))
	require.NoError(t, err)
	list, err := RegisterCallback(s, "on_step", "beta", vm.NewGoFunction("b", probe))
	require.NoError(t, err)
	require.Equal(t, 2, list.Len())
	require.Same(t, list, Callbacks(s, "on_step"))

	run(t, s, list, First)
	require.Equal(t, []string{"alpha", "beta"}, mods)
	require.Equal(t, "beta", LastRunMod(s))
}

func TestRegisterCallbackErrors(t *testing.T) {
	s := vm.New()
	_, err := RegisterCallback(s, "on_step", "alpha", vm.NewGoFunction("a", nil))
	require.EqualError(t, err, "core library is not open")

	Open(s)
	_, err = RegisterCallback(s, "on_step", "alpha", object.NewInt(1))
	require.EqualError(t, err, `callback for "on_step" is a number value`)
	require.Nil(t, Callbacks(s, "on_join"))
}

func TestLastRunModFunctions(t *testing.T) {
	s := vm.New()
	core := Open(s)

	s.Push(core.GetField("set_last_run_mod"))
	s.PushString("gamma")
	require.NoError(t, s.Call(1, 0))

	s.Push(core.GetField("get_last_run_mod"))
	require.NoError(t, s.Call(0, 1))
	require.Equal(t, object.NewString("gamma"), s.Get(-1))
}

func TestOpenInstallsModeConstants(t *testing.T) {
	s := vm.New()
	core := Open(s)
	require.Equal(t, object.NewInt(0), core.GetField("RUN_CALLBACKS_MODE_FIRST"))
	require.Equal(t, object.NewInt(5), core.GetField("RUN_CALLBACKS_MODE_OR_SC"))
	require.Same(t, core, s.Loaded().GetField(GlobalName))
}

func TestParseMode(t *testing.T) {
	for mode := First; mode <= OrSC; mode++ {
		parsed, err := ParseMode(mode.String())
		require.NoError(t, err)
		require.Equal(t, mode, parsed)
	}
	mode, err := ParseMode(" AND_SC ")
	require.NoError(t, err)
	require.Equal(t, AndSC, mode)

	_, err = ParseMode("sometimes")
	require.Error(t, err)
	require.Equal(t, "mode(9)", Mode(9).String())
}
