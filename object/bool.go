package object

type Bool struct {
	value bool
}

func (b *Bool) Type() Type {
	return BOOL
}

func (b *Bool) Value() bool {
	return b.value
}

func (b *Bool) Inspect() string {
	if b.value {
		return "true"
	}
	return "false"
}

func (b *Bool) String() string {
	return b.Inspect()
}

func (b *Bool) Equals(other Object) bool {
	otherBool, ok := other.(*Bool)
	if !ok {
		return false
	}
	return b.value == otherBool.value
}

func (b *Bool) IsTruthy() bool {
	return b.value
}
