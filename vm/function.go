package vm

import (
	"fmt"

	"github.com/deepnoodle-ai/hostbridge/object"
)

// functionSize approximates the allocation cost of a function value.
const functionSize = 40

// Function is the calling convention for code run by a State. The function's
// arguments are at indices 1..Top() of its frame. It pushes its results and
// returns how many there are. Returning an error raises it as a script error.
type Function func(s *State) (int, error)

// Callable is implemented by the function values a State can call.
type Callable interface {
	object.Object
	invoke(s *State) (int, error)
	describe(d *Debug)
}

var (
	_ Callable = (*GoFunction)(nil)
	_ Callable = (*ScriptFunction)(nil)
)

// GoFunction is a native function exposed to scripts.
type GoFunction struct {
	name string
	fn   Function
}

// NewGoFunction wraps fn. The name is used for display only; frames of
// native functions do not carry a call-site name.
func NewGoFunction(name string, fn Function) *GoFunction {
	return &GoFunction{name: name, fn: fn}
}

func (f *GoFunction) Type() object.Type {
	return object.FUNCTION
}

func (f *GoFunction) Name() string {
	return f.name
}

func (f *GoFunction) Inspect() string {
	return fmt.Sprintf("builtin: %p", f)
}

func (f *GoFunction) String() string {
	return f.Inspect()
}

func (f *GoFunction) Equals(other object.Object) bool {
	otherFn, ok := other.(*GoFunction)
	return ok && f == otherFn
}

func (f *GoFunction) IsTruthy() bool {
	return true
}

func (f *GoFunction) Size() int64 {
	return functionSize
}

func (f *GoFunction) invoke(s *State) (int, error) {
	return f.fn(s)
}

func (f *GoFunction) describe(d *Debug) {
	d.Source = "=[C]"
	d.What = "C"
	d.LineDefined = -1
}

// ScriptFunction is a function defined by script source. Its body runs
// against the State like any other function and reports its progress with
// State.SetLine.
type ScriptFunction struct {
	name        string
	source      string
	lineDefined int
	main        bool
	body        Function
}

// NewScriptFunction creates an anonymous script function defined at the
// given source line.
func NewScriptFunction(source string, lineDefined int, body Function) *ScriptFunction {
	return &ScriptFunction{source: source, lineDefined: lineDefined, body: body}
}

// NewChunk creates the main function of a chunk loaded from source.
func NewChunk(source string, body Function) *ScriptFunction {
	return &ScriptFunction{source: source, main: true, body: body}
}

// Named returns f after giving it a global name, which frames running it
// report as their call-site name.
func (f *ScriptFunction) Named(name string) *ScriptFunction {
	f.name = name
	return f
}

func (f *ScriptFunction) Name() string {
	return f.name
}

func (f *ScriptFunction) Source() string {
	return f.source
}

func (f *ScriptFunction) LineDefined() int {
	return f.lineDefined
}

func (f *ScriptFunction) Type() object.Type {
	return object.FUNCTION
}

func (f *ScriptFunction) Inspect() string {
	return fmt.Sprintf("function: %p", f)
}

func (f *ScriptFunction) String() string {
	return f.Inspect()
}

func (f *ScriptFunction) Equals(other object.Object) bool {
	otherFn, ok := other.(*ScriptFunction)
	return ok && f == otherFn
}

func (f *ScriptFunction) IsTruthy() bool {
	return true
}

func (f *ScriptFunction) Size() int64 {
	return functionSize
}

func (f *ScriptFunction) invoke(s *State) (int, error) {
	return f.body(s)
}

func (f *ScriptFunction) describe(d *Debug) {
	d.Source = f.source
	d.LineDefined = f.lineDefined
	if f.main {
		d.What = "main"
	} else {
		d.What = "Lua"
	}
	if f.name != "" {
		d.Name = f.name
		d.NameWhat = "global"
	}
}

// IsFunction reports whether obj can be called by a State.
func IsFunction(obj object.Object) bool {
	_, ok := obj.(Callable)
	return ok
}
