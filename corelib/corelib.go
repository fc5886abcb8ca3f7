// Package corelib provides the "core" script library: callback registration
// and the run_callbacks dispatcher that reduces a callback list to a single
// result.
package corelib

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/hostbridge/object"
	"github.com/deepnoodle-ai/hostbridge/vm"
)

// Mode is the aggregation policy run_callbacks applies to callback results.
type Mode int

const (
	// First returns the result of the first callback.
	First Mode = iota
	// Last returns the result of the last callback.
	Last
	// And returns the first result, replaced by any later falsy result.
	And
	// AndSC is And, stopping at the first falsy result.
	AndSC
	// Or returns the first result, replaced by the first truthy result.
	Or
	// OrSC returns the first truthy result, stopping there, or nil when
	// there is none.
	OrSC
)

const (
	// GlobalName is the name of the library table.
	GlobalName = "core"

	// lastRunModKey is the registry key holding the mod that owns the most
	// recently dispatched callback.
	lastRunModKey = "core.last_run_mod"
)

var modeNames = map[Mode]string{
	First: "first",
	Last:  "last",
	And:   "and",
	AndSC: "and_sc",
	Or:    "or",
	OrSC:  "or_sc",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode converts a mode name such as "and_sc" to a Mode.
func ParseMode(name string) (Mode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for mode, modeName := range modeNames {
		if modeName == name {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("unknown callback mode %q", name)
}

// Open installs the core table as a global and as a loaded module, and
// returns it.
func Open(s *vm.State) *object.Table {
	core := object.NewTable()
	origins := object.NewTable()
	core.SetField("callback_origins", origins)
	core.SetField("run_callbacks", vm.NewGoFunction("run_callbacks", func(s *vm.State) (int, error) {
		return runCallbacks(s, origins)
	}))
	core.SetField("get_last_run_mod", vm.NewGoFunction("get_last_run_mod", getLastRunMod))
	core.SetField("set_last_run_mod", vm.NewGoFunction("set_last_run_mod", setLastRunMod))
	for mode := First; mode <= OrSC; mode++ {
		core.SetField("RUN_CALLBACKS_MODE_"+strings.ToUpper(modeNames[mode]), object.NewInt(int64(mode)))
	}
	s.Globals().SetField(GlobalName, core)
	s.Loaded().SetField(GlobalName, core)
	return core
}

// Core returns the core table installed by Open, or nil.
func Core(s *vm.State) *object.Table {
	core, _ := s.Globals().GetField(GlobalName).(*object.Table)
	return core
}

// RegisterCallback appends fn to the core.registered_<hook> list on behalf
// of mod and records mod as the callback's origin. It returns the list.
func RegisterCallback(s *vm.State, hook, mod string, fn object.Object) (*object.Table, error) {
	core := Core(s)
	if core == nil {
		return nil, fmt.Errorf("%s library is not open", GlobalName)
	}
	if !vm.IsFunction(fn) {
		return nil, fmt.Errorf("callback for %q is a %s value", hook, fn.Type())
	}
	key := "registered_" + hook
	list, ok := core.GetField(key).(*object.Table)
	if !ok {
		list = object.NewTable()
		core.SetField(key, list)
	}
	list.Append(fn)
	if origins, ok := core.GetField("callback_origins").(*object.Table); ok {
		origin := object.NewTable()
		origin.SetField("mod", object.NewString(mod))
		origin.SetField("name", object.NewString(hook))
		if err := origins.Set(fn, origin); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// Callbacks returns the core.registered_<hook> list, or nil.
func Callbacks(s *vm.State, hook string) *object.Table {
	core := Core(s)
	if core == nil {
		return nil
	}
	list, _ := core.GetField("registered_" + hook).(*object.Table)
	return list
}

// LastRunMod returns the mod that owns the most recently dispatched callback.
func LastRunMod(s *vm.State) string {
	name, _ := object.ToString(s.Registry().GetField(lastRunModKey))
	return name
}

func getLastRunMod(s *vm.State) (int, error) {
	s.Push(s.Registry().GetField(lastRunModKey))
	return 1, nil
}

func setLastRunMod(s *vm.State) (int, error) {
	name, ok := s.ToString(1)
	if !ok {
		return 0, s.Errorf("bad argument #1 to 'set_last_run_mod' (string expected, got %s)", s.Type(1))
	}
	s.Registry().SetField(lastRunModKey, object.NewString(name))
	return 0, nil
}

// runCallbacks implements core.run_callbacks(callbacks, mode, ...).
func runCallbacks(s *vm.State, origins *object.Table) (int, error) {
	callbacks, ok := s.Get(1).(*object.Table)
	if !ok {
		return 0, s.Errorf("bad argument #1 to 'run_callbacks' (table expected, got %s)", s.Type(1))
	}
	modeArg, ok := s.Get(2).(*object.Int)
	if !ok {
		return 0, s.Errorf("bad argument #2 to 'run_callbacks' (number expected, got %s)", s.Type(2))
	}
	mode := Mode(modeArg.Value())
	nargs := s.Top() - 2

	count := callbacks.Len()
	if count == 0 {
		switch mode {
		case And, AndSC:
			s.PushBool(true)
		case Or, OrSC:
			s.PushBool(false)
		default:
			s.PushNil()
		}
		return 1, nil
	}

	var ret object.Object = object.Nil
	for i := 1; i <= count; i++ {
		cb := callbacks.Get(object.NewInt(int64(i)))
		if origin, ok := origins.Get(cb).(*object.Table); ok {
			s.Registry().SetField(lastRunModKey, origin.GetField("mod"))
		}

		s.Push(cb)
		for arg := 3; arg < 3+nargs; arg++ {
			s.PushValue(arg)
		}
		if err := s.Call(nargs, 1); err != nil {
			return 0, err
		}
		result := s.Get(-1)
		s.Pop(1)

		switch mode {
		case First:
			if i == 1 {
				ret = result
			}
		case Last:
			ret = result
		case And:
			if !result.IsTruthy() || i == 1 {
				ret = result
			}
		case AndSC:
			if !result.IsTruthy() {
				s.Push(result)
				return 1, nil
			}
			ret = result
		case Or:
			if (result.IsTruthy() && !ret.IsTruthy()) || i == 1 {
				ret = result
			}
		case OrSC:
			if result.IsTruthy() {
				s.Push(result)
				return 1, nil
			}
		}
	}
	s.Push(ret)
	return 1, nil
}
