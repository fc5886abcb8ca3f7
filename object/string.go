package object

import "strconv"

// stringOverhead approximates the header cost of a string value.
const stringOverhead = 24

type String struct {
	value string
}

func NewString(s string) *String {
	return &String{value: s}
}

func (s *String) Type() Type {
	return STRING
}

func (s *String) Value() string {
	return s.value
}

func (s *String) Inspect() string {
	return strconv.Quote(s.value)
}

func (s *String) String() string {
	return s.value
}

func (s *String) Equals(other Object) bool {
	otherStr, ok := other.(*String)
	if !ok {
		return false
	}
	return s.value == otherStr.value
}

func (s *String) IsTruthy() bool {
	return true
}

func (s *String) Size() int64 {
	return int64(stringOverhead + len(s.value))
}
