package bridge

import (
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/hostbridge/vm"
)

// DeprecationMode selects what happens when a script uses a deprecated API.
type DeprecationMode int

const (
	// DeprecationIgnore reports nothing.
	DeprecationIgnore DeprecationMode = iota
	// DeprecationLog logs a warning and a traceback.
	DeprecationLog
	// DeprecationError raises a runtime error.
	DeprecationError
)

func (m DeprecationMode) String() string {
	switch m {
	case DeprecationLog:
		return "log"
	case DeprecationError:
		return "error"
	default:
		return "ignore"
	}
}

// ParseDeprecationMode maps a deprecated_lua_api_handling value to a mode.
// "log" and "error" are recognized; anything else means DeprecationIgnore.
func ParseDeprecationMode(value string) DeprecationMode {
	switch value {
	case "log":
		return DeprecationLog
	case "error":
		return DeprecationError
	default:
		return DeprecationIgnore
	}
}

// LogDeprecated reports a use of a deprecated API according to the Bridge's
// deprecation mode. depth is the stack level whose position is reported as
// the call site; 1 is the caller of the running native function.
//
// In error mode the returned error is an *errz.ScriptError of kind Runtime.
// In log mode an error is only returned if the traceback cannot be built.
func (b *Bridge) LogDeprecated(msg string, depth int) error {
	if b.deprecationMode == DeprecationIgnore {
		return nil
	}
	line := msg + " " + b.callSite(depth)
	if b.deprecationMode == DeprecationError {
		b.state.PushString(line)
		return b.CheckResult(vm.StatusErrRun, "", "")
	}
	b.logger.Warn().Msg(line)
	trace, err := b.Backtrace()
	if err != nil {
		return err
	}
	b.logger.Info().Msg(trace)
	return nil
}

// Deprecated wraps a script-visible function so each call is reported with
// LogDeprecated before fn runs. In error mode the call fails with msg.
func (b *Bridge) Deprecated(msg string, fn vm.Function) vm.Function {
	return func(s *vm.State) (int, error) {
		if err := b.LogDeprecated(msg, 1); err != nil {
			s.PushString(err.Error())
			return 0, s.Error()
		}
		return fn(s)
	}
}

func (b *Bridge) callSite(depth int) string {
	d, ok := b.state.GetStack(depth)
	if !ok {
		return "(at ?:?)"
	}
	var sb strings.Builder
	sb.WriteString("(at ")
	sb.WriteString(d.ShortSrc)
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(d.CurrentLine))
	sb.WriteByte(')')
	return sb.String()
}
