package bridge

import "github.com/deepnoodle-ai/hostbridge/vm"

// WrapNative returns fn guarded so that a panic carrying a string or an
// error inside fn becomes a script error with that text, visible to the
// enclosing protected call. Panics of any other type are not intercepted.
func WrapNative(fn vm.Function) vm.Function {
	return func(s *vm.State) (n int, err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			var msg string
			switch v := r.(type) {
			case *vm.Raise:
				// Allocation failures travel as panics; let the State see them.
				panic(v)
			case string:
				msg = v
			case error:
				msg = v.Error()
			default:
				panic(r)
			}
			s.PushString(msg)
			n, err = 0, s.Error()
		}()
		return fn(s)
	}
}

// Register makes fn callable from scripts as the global name, guarded by
// WrapNative.
func (b *Bridge) Register(name string, fn vm.Function) {
	b.state.Register(name, WrapNative(fn))
}
