package vm

import "github.com/deepnoodle-ai/hostbridge/object"

// Option is a configuration function for a State.
type Option func(*State)

// WithGlobals provides global variables with the given names.
func WithGlobals(globals map[string]object.Object) Option {
	return func(s *State) {
		for name, value := range globals {
			s.inputGlobals[name] = value
		}
	}
}

// WithMemory sets the memory accountant charged for script allocations.
func WithMemory(memory Memory) Option {
	return func(s *State) {
		s.memory = memory
	}
}

// WithMemoryLimit limits the script heap to the given number of bytes. A
// limit of 0 means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(s *State) {
		s.memory = NewBudget(bytes)
	}
}

// WithStackLimit sets the maximum number of stack slots. Values below 1 are
// ignored.
func WithStackLimit(slots int) Option {
	return func(s *State) {
		if slots > 0 {
			s.stackLimit = slots
		}
	}
}

// WithObserver sets an observer for execution events.
func WithObserver(observer Observer) Option {
	return func(s *State) {
		s.observer = observer
	}
}
