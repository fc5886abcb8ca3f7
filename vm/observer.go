package vm

import "github.com/deepnoodle-ai/hostbridge/object"

// Observer is an interface for observing State execution events.
// Implementations can be used for profiling, tracing, or collecting error
// statistics without modifying the runtime.
//
// All methods are optional - implementations can embed NoOpObserver
// to provide default no-op implementations for methods they don't need.
//
// Observer methods are called synchronously during execution.
// Implementations should be fast to avoid impacting performance.
type Observer interface {
	// OnCall is called when a function is invoked, after its frame is
	// pushed. Returns false to halt execution with a runtime error.
	OnCall(event CallEvent) bool

	// OnReturn is called when a function returns normally.
	OnReturn(event ReturnEvent)

	// OnRaise is called when a runtime error is raised, before any message
	// handler runs.
	OnRaise(event RaiseEvent)
}

// CallEvent contains information about a function call.
type CallEvent struct {
	// Function is the function being called.
	Function object.Object

	// ArgCount is the number of arguments passed to the function.
	ArgCount int

	// FrameDepth is the call stack depth after the call.
	FrameDepth int
}

// ReturnEvent contains information about a function return.
type ReturnEvent struct {
	// Function is the function returning.
	Function object.Object

	// ResultCount is the number of values the function returned.
	ResultCount int

	// FrameDepth is the call stack depth after returning.
	FrameDepth int
}

// RaiseEvent contains information about a raised error.
type RaiseEvent struct {
	// Value is the error value.
	Value object.Object

	// FrameDepth is the call stack depth at the raise point.
	FrameDepth int
}

// NoOpObserver is an Observer implementation that does nothing.
// Embed this in your observer to provide default implementations
// for methods you don't need.
type NoOpObserver struct{}

func (NoOpObserver) OnCall(CallEvent) bool { return true }
func (NoOpObserver) OnReturn(ReturnEvent)  {}
func (NoOpObserver) OnRaise(RaiseEvent)    {}

// Ensure NoOpObserver implements Observer.
var _ Observer = NoOpObserver{}
