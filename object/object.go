// Package object provides the value types that live on a script state's
// execution stack.
//
// Callers usually type switch on an object.Object to get at the concrete
// value:
//
//	switch obj := obj.(type) {
//	case *object.String:
//		// do something with obj.Value()
//	case *object.Table:
//		// do something with obj.Get(...)
//	}
//
// Function values are defined by the vm package, since calling them requires
// a running state.
package object

// Type of an object as a string.
type Type string

// Type constants
const (
	NIL      Type = "nil"
	BOOL     Type = "boolean"
	INT      Type = "number"
	FLOAT    Type = "number"
	STRING   Type = "string"
	TABLE    Type = "table"
	FUNCTION Type = "function"
)

var (
	Nil   = &NilType{}
	True  = &Bool{value: true}
	False = &Bool{value: false}
)

// Object is the interface that all script values must implement.
type Object interface {
	// Type of the object.
	Type() Type

	// Inspect returns a string representation of the given object.
	Inspect() string

	// Equals returns true if the given object is equal to this object.
	// This is raw equality: tables and functions compare by identity.
	Equals(other Object) bool

	// IsTruthy returns true if the object is considered "truthy". Only nil
	// and false are falsy.
	IsTruthy() bool
}

// Sized is implemented by objects that report an approximate heap footprint
// in bytes. The state charges this amount against its memory budget when the
// object is created through it.
type Sized interface {
	Size() int64
}

// NewBool returns the shared True or False object.
func NewBool(value bool) *Bool {
	if value {
		return True
	}
	return False
}

// IsNil returns true if obj is nil or the Nil object.
func IsNil(obj Object) bool {
	if obj == nil {
		return true
	}
	_, ok := obj.(*NilType)
	return ok
}

// ToString converts strings and numbers to their string form. The second
// return value is false for any other type.
func ToString(obj Object) (string, bool) {
	switch obj := obj.(type) {
	case *String:
		return obj.value, true
	case *Int:
		return obj.Inspect(), true
	case *Float:
		return obj.Inspect(), true
	default:
		return "", false
	}
}
