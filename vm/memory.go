package vm

import "errors"

var ErrMemoryLimit = errors.New("memory limit exceeded")

// Memory accounts for the script heap.
type Memory interface {
	// Allocate charges n bytes, failing when the heap cannot grow.
	Allocate(n int64) error

	// Release returns n bytes to the heap.
	Release(n int64)

	// InUse returns the number of bytes currently charged.
	InUse() int64
}

// Budget is a Memory with an optional fixed limit. It is not safe for
// concurrent use, matching the State that owns it.
type Budget struct {
	limit int64
	used  int64
}

// NewBudget returns a Budget that allows up to limit bytes. A limit of 0
// means unlimited.
func NewBudget(limit int64) *Budget {
	return &Budget{limit: limit}
}

func (b *Budget) Allocate(n int64) error {
	if b.limit > 0 && b.used+n > b.limit {
		return ErrMemoryLimit
	}
	b.used += n
	return nil
}

func (b *Budget) Release(n int64) {
	b.used -= n
	if b.used < 0 {
		b.used = 0
	}
}

func (b *Budget) InUse() int64 {
	return b.used
}

// Limit returns the configured limit, 0 when unlimited.
func (b *Budget) Limit() int64 {
	return b.limit
}

// Reset releases everything charged so far, as a full collection would.
func (b *Budget) Reset() {
	b.used = 0
}
