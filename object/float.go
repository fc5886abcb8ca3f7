package object

import "strconv"

type Float struct {
	value float64
}

func NewFloat(value float64) *Float {
	return &Float{value: value}
}

func (f *Float) Type() Type {
	return FLOAT
}

func (f *Float) Value() float64 {
	return f.value
}

func (f *Float) Inspect() string {
	return strconv.FormatFloat(f.value, 'g', 14, 64)
}

func (f *Float) String() string {
	return f.Inspect()
}

func (f *Float) Equals(other Object) bool {
	switch other := other.(type) {
	case *Float:
		return f.value == other.value
	case *Int:
		return f.value == float64(other.value)
	default:
		return false
	}
}

func (f *Float) IsTruthy() bool {
	return true
}
