// Package vm provides the execution state that hosts script callbacks.
//
// A State owns a value stack shared between native Go code and script
// functions. Stack indices follow the usual embedded-scripting convention:
// positive indices count up from the bottom of the running frame (starting at
// 1), negative indices count down from the top (-1 is the top value), and
// indices at or below RegistryIndex are pseudo-indices that address the
// registry and the globals table rather than stack slots.
//
// A State is not safe for concurrent use. Give each worker goroutine its own.
package vm

import (
	"errors"
	"fmt"

	"github.com/deepnoodle-ai/hostbridge/object"
)

const (
	// RegistryIndex is the pseudo-index of the registry table. Any index at
	// or below this value is a pseudo-index.
	RegistryIndex = -10000

	// GlobalsIndex is the pseudo-index of the globals table.
	GlobalsIndex = -10002

	// MultRet requests that a call keep every result.
	MultRet = -1

	// MaxFrameDepth bounds nested calls. Exceeding it raises a stack
	// overflow error.
	MaxFrameDepth = 200

	// DefaultStackLimit is the default maximum number of stack slots.
	DefaultStackLimit = 8000

	// LoadedKey is the registry key of the loaded-module table.
	LoadedKey = "_LOADED"
)

var ErrInvalidIndex = errors.New("invalid stack index")

// State is a single script execution context.
type State struct {
	stack        []object.Object
	base         int // slice index of the running frame's first slot
	frames       []frame
	registry     *object.Table
	globals      *object.Table
	loaded       *object.Table
	memory       Memory
	stackLimit   int
	errfunc      int // slice index of the message handler plus one, 0 for none
	handling     bool
	observer     Observer
	inputGlobals map[string]object.Object
}

// New creates a new State with empty globals, an empty loaded-module table,
// and an unlimited memory budget unless options say otherwise.
func New(options ...Option) *State {
	s := &State{
		registry:     object.NewTable(),
		globals:      object.NewTable(),
		loaded:       object.NewTable(),
		stackLimit:   DefaultStackLimit,
		inputGlobals: map[string]object.Object{},
	}
	for _, opt := range options {
		opt(s)
	}
	if s.memory == nil {
		s.memory = NewBudget(0)
	}
	s.registry.SetField(LoadedKey, s.loaded)
	for name, value := range s.inputGlobals {
		s.globals.SetField(name, value)
	}
	return s
}

// Globals returns the globals table.
func (s *State) Globals() *object.Table {
	return s.globals
}

// Registry returns the registry table, which is reserved for native code.
func (s *State) Registry() *object.Table {
	return s.registry
}

// Loaded returns the loaded-module table.
func (s *State) Loaded() *object.Table {
	return s.loaded
}

// MemoryKB returns the script heap usage in kilobytes.
func (s *State) MemoryKB() int64 {
	return s.memory.InUse() >> 10
}

// Top returns the index of the top element in the running frame. Because
// indices start at 1, this is also the number of elements in the frame.
func (s *State) Top() int {
	return len(s.stack) - s.base
}

// SetTop sets the stack top to idx. Growing the stack fills the new slots
// with nil; idx 0 empties the running frame.
func (s *State) SetTop(idx int) {
	var n int
	switch {
	case idx >= 0:
		n = s.base + idx
	case idx > RegistryIndex:
		n = len(s.stack) + idx + 1
		if n < s.base {
			panic("stack underflow")
		}
	default:
		panic("pseudo-index invalid for top")
	}
	s.setLen(n)
}

func (s *State) setLen(n int) {
	for len(s.stack) < n {
		s.stack = append(s.stack, object.Nil)
	}
	for i := n; i < len(s.stack); i++ {
		s.stack[i] = nil
	}
	s.stack = s.stack[:n]
}

// CheckStack reports whether n more values can be pushed without exceeding
// the stack limit.
func (s *State) CheckStack(n int) bool {
	return len(s.stack)+n <= s.stackLimit
}

// slot converts a non-pseudo index into a slice index.
func (s *State) slot(idx int) int {
	switch {
	case idx > 0:
		return s.base + idx - 1
	case idx < 0 && idx > RegistryIndex:
		if -idx > s.Top() {
			panic(fmt.Sprintf("%v: %d", ErrInvalidIndex, idx))
		}
		return len(s.stack) + idx
	default:
		panic(fmt.Sprintf("%v: %d", ErrInvalidIndex, idx))
	}
}

// Get returns the value at idx. Acceptable indices above the top yield Nil.
func (s *State) Get(idx int) object.Object {
	switch idx {
	case RegistryIndex:
		return s.registry
	case GlobalsIndex:
		return s.globals
	}
	i := s.slot(idx)
	if i >= len(s.stack) {
		return object.Nil
	}
	return s.stack[i]
}

// Type returns the type of the value at idx.
func (s *State) Type(idx int) object.Type {
	return s.Get(idx).Type()
}

// Push pushes obj onto the stack. A Go nil is pushed as Nil.
func (s *State) Push(obj object.Object) {
	if obj == nil {
		obj = object.Nil
	}
	s.stack = append(s.stack, obj)
}

// PushNil pushes Nil.
func (s *State) PushNil() {
	s.Push(object.Nil)
}

// PushBool pushes a boolean.
func (s *State) PushBool(value bool) {
	s.Push(object.NewBool(value))
}

// PushInt pushes an integer.
func (s *State) PushInt(value int64) {
	s.Push(object.NewInt(value))
}

// PushString pushes a string, charging it to the memory budget.
func (s *State) PushString(value string) {
	str := object.NewString(value)
	s.alloc(str.Size())
	s.Push(str)
}

// PushValue pushes a copy of the value at idx.
func (s *State) PushValue(idx int) {
	s.Push(s.Get(idx))
}

// Pop removes n values from the top of the stack.
func (s *State) Pop(n int) {
	s.SetTop(-n - 1)
}

// Replace moves the top value into idx, replacing the value there, and pops
// the top.
func (s *State) Replace(idx int) {
	value := s.Get(-1)
	i := s.slot(idx)
	s.Pop(1)
	if i >= len(s.stack) {
		panic(fmt.Sprintf("%v: %d", ErrInvalidIndex, idx))
	}
	s.stack[i] = value
}

// Insert moves the top value into idx, shifting the values above idx up.
func (s *State) Insert(idx int) {
	i := s.slot(idx)
	top := len(s.stack) - 1
	if i > top {
		panic(fmt.Sprintf("%v: %d", ErrInvalidIndex, idx))
	}
	value := s.stack[top]
	copy(s.stack[i+1:], s.stack[i:top])
	s.stack[i] = value
}

// Remove removes the value at idx, shifting the values above it down.
func (s *State) Remove(idx int) {
	i := s.slot(idx)
	if i >= len(s.stack) {
		panic(fmt.Sprintf("%v: %d", ErrInvalidIndex, idx))
	}
	copy(s.stack[i:], s.stack[i+1:])
	s.setLen(len(s.stack) - 1)
}

// RawEqual reports whether the values at the two indices are primitively
// equal, without consulting any script-level equality hooks.
func (s *State) RawEqual(idx1, idx2 int) bool {
	return s.Get(idx1).Equals(s.Get(idx2))
}

// IsString reports whether the value at idx is a string or a number, which
// ToString can convert.
func (s *State) IsString(idx int) bool {
	_, ok := object.ToString(s.Get(idx))
	return ok
}

// ToString returns the value at idx as a string. Numbers are converted; any
// other type yields ("", false).
func (s *State) ToString(idx int) (string, bool) {
	return object.ToString(s.Get(idx))
}

// NewTable creates an empty table and pushes it.
func (s *State) NewTable() *object.Table {
	t := object.NewTable()
	s.alloc(t.Size())
	s.Push(t)
	return t
}

// GetGlobal pushes the value of the global name.
func (s *State) GetGlobal(name string) {
	s.Push(s.globals.GetField(name))
}

// SetGlobal pops a value and stores it as the global name.
func (s *State) SetGlobal(name string) {
	value := s.Get(-1)
	s.Pop(1)
	s.globals.SetField(name, value)
}

// GetField pushes t[name] where t is the value at idx. Nil is pushed when
// the value at idx is not a table.
func (s *State) GetField(idx int, name string) {
	t, ok := s.Get(idx).(*object.Table)
	if !ok {
		s.PushNil()
		return
	}
	s.Push(t.GetField(name))
}

// SetField pops a value and stores it as t[name] where t is the value at
// idx. Nothing is stored when the value at idx is not a table.
func (s *State) SetField(idx int, name string) {
	target := s.Get(idx)
	value := s.Get(-1)
	s.Pop(1)
	if t, ok := target.(*object.Table); ok {
		t.SetField(name, value)
	}
}

// Register stores a Go function as the global name.
func (s *State) Register(name string, fn Function) {
	s.globals.SetField(name, NewGoFunction(name, fn))
}

// alloc charges n bytes to the memory budget, raising an out-of-memory
// error when the budget is exhausted.
func (s *State) alloc(n int64) {
	if err := s.memory.Allocate(n); err != nil {
		panic(&Raise{Status: StatusErrMem, Value: memErrMsg})
	}
}
