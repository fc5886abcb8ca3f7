package object

import (
	"errors"
	"fmt"
	"math"
)

// tableOverhead approximates the allocation cost of an empty table.
const tableOverhead = 56

var (
	ErrNilKey = errors.New("table index is nil")
	ErrNaNKey = errors.New("table index is NaN")
)

// Table is the single structured type of the runtime. Consecutive integer
// keys starting at 1 live in the array part; everything else lives in the hash
// part. Iteration visits the array part in order, then the hash part in
// insertion order, so traversal is deterministic.
type Table struct {
	array []Object
	keys  []any
	hash  map[any]*tableEntry
}

type tableEntry struct {
	key   Object
	value Object
}

func NewTable() *Table {
	return &Table{hash: map[any]*tableEntry{}}
}

// NewList returns a table whose array part holds the given items.
func NewList(items ...Object) *Table {
	t := NewTable()
	for _, item := range items {
		t.Append(item)
	}
	return t
}

func (t *Table) Type() Type {
	return TABLE
}

func (t *Table) Inspect() string {
	return fmt.Sprintf("table: %p", t)
}

func (t *Table) String() string {
	return t.Inspect()
}

func (t *Table) Equals(other Object) bool {
	otherTable, ok := other.(*Table)
	if !ok {
		return false
	}
	return t == otherTable
}

func (t *Table) IsTruthy() bool {
	return true
}

func (t *Table) Size() int64 {
	return tableOverhead
}

// Len returns the length of the array part, i.e. the border used by the
// length operator.
func (t *Table) Len() int {
	return len(t.array)
}

// Get returns the value stored under key, or Nil.
func (t *Table) Get(key Object) Object {
	if idx, ok := arrayIndex(key); ok && idx >= 1 && idx <= int64(len(t.array)) {
		return t.array[idx-1]
	}
	hk, err := hashKey(key)
	if err != nil {
		return Nil
	}
	if entry, ok := t.hash[hk]; ok {
		return entry.value
	}
	return Nil
}

// GetField returns the value stored under the string key name, or Nil.
func (t *Table) GetField(name string) Object {
	if entry, ok := t.hash[name]; ok {
		return entry.value
	}
	return Nil
}

// SetField stores value under the string key name.
func (t *Table) SetField(name string, value Object) {
	// String keys are never nil or NaN.
	_ = t.Set(NewString(name), value)
}

// Append stores value at index Len()+1.
func (t *Table) Append(value Object) {
	_ = t.Set(NewInt(int64(len(t.array)+1)), value)
}

// Set stores value under key. Storing Nil removes the key.
func (t *Table) Set(key Object, value Object) error {
	if value == nil {
		value = Nil
	}
	if idx, ok := arrayIndex(key); ok {
		n := int64(len(t.array))
		switch {
		case idx >= 1 && idx <= n:
			t.array[idx-1] = value
			if idx == n && IsNil(value) {
				t.trimArray()
			}
			return nil
		case idx == n+1 && !IsNil(value):
			t.array = append(t.array, value)
			t.removeHashKey(idx)
			t.migrate()
			return nil
		}
	}
	hk, err := hashKey(key)
	if err != nil {
		return err
	}
	if IsNil(value) {
		t.removeHashKey(hk)
		return nil
	}
	if entry, ok := t.hash[hk]; ok {
		entry.value = value
		return nil
	}
	t.hash[hk] = &tableEntry{key: key, value: value}
	t.keys = append(t.keys, hk)
	return nil
}

// ForEach calls fn for each key/value pair until fn returns false.
func (t *Table) ForEach(fn func(key, value Object) bool) {
	for i, value := range t.array {
		if IsNil(value) {
			continue
		}
		if !fn(NewInt(int64(i+1)), value) {
			return
		}
	}
	for _, hk := range t.keys {
		entry, ok := t.hash[hk]
		if !ok {
			continue
		}
		if !fn(entry.key, entry.value) {
			return
		}
	}
}

// Values returns the array part as a slice.
func (t *Table) Values() []Object {
	values := make([]Object, len(t.array))
	copy(values, t.array)
	return values
}

func (t *Table) trimArray() {
	n := len(t.array)
	for n > 0 && IsNil(t.array[n-1]) {
		n--
	}
	for i := n; i < len(t.array); i++ {
		t.array[i] = nil
	}
	t.array = t.array[:n]
}

// migrate moves integer keys that now continue the array part out of the
// hash part.
func (t *Table) migrate() {
	for {
		next := int64(len(t.array) + 1)
		entry, ok := t.hash[next]
		if !ok {
			return
		}
		t.array = append(t.array, entry.value)
		t.removeHashKey(next)
	}
}

func (t *Table) removeHashKey(hk any) {
	if _, ok := t.hash[hk]; !ok {
		return
	}
	delete(t.hash, hk)
	for i, k := range t.keys {
		if k == hk {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
}

func arrayIndex(key Object) (int64, bool) {
	switch key := key.(type) {
	case *Int:
		return key.value, true
	case *Float:
		if key.value == math.Trunc(key.value) && !math.IsInf(key.value, 0) {
			return int64(key.value), true
		}
	}
	return 0, false
}

// hashKey maps a script value onto a comparable Go value so that equal
// strings and numbers share a slot while tables and functions key by
// identity.
func hashKey(key Object) (any, error) {
	switch key := key.(type) {
	case nil, *NilType:
		return nil, ErrNilKey
	case *String:
		return key.value, nil
	case *Int:
		return key.value, nil
	case *Float:
		if math.IsNaN(key.value) {
			return nil, ErrNaNKey
		}
		if idx, ok := arrayIndex(key); ok {
			return idx, nil
		}
		return key.value, nil
	case *Bool:
		return key.value, nil
	default:
		return key, nil
	}
}
