package bridge

import "github.com/deepnoodle-ai/hostbridge/vm"

// AbsIndex converts idx into an index that does not depend on the stack top.
// Negative indices above vm.RegistryIndex become top+1+idx. Non-negative
// indices and pseudo-indices are returned unchanged.
func AbsIndex(idx, top int) int {
	if idx < 0 && idx > vm.RegistryIndex {
		return top + 1 + idx
	}
	return idx
}

// AbsIndex converts idx against the current top of the bridged State.
func (b *Bridge) AbsIndex(idx int) int {
	return AbsIndex(idx, b.state.Top())
}

// Copy overwrites the value at to with the value at from, leaving the stack
// height unchanged. It needs one free slot and raises a stack overflow error
// when there is none.
func (b *Bridge) Copy(from, to int) error {
	s := b.state
	absTo := AbsIndex(to, s.Top())
	if !s.CheckStack(1) {
		return s.Errorf("stack overflow (not enough stack slots)")
	}
	s.PushValue(from)
	s.Replace(absTo)
	return nil
}
