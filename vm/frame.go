package vm

import (
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/hostbridge/object"
)

// idSize bounds the length of a short source name, including room for a
// terminator in the original convention.
const idSize = 60

type frame struct {
	fn          Callable
	base        int
	currentLine int
}

// Debug describes one level of the call stack.
type Debug struct {
	// Name is the call-site name of the function, if one is known.
	Name string

	// NameWhat explains Name: "global", or empty when there is no name.
	NameWhat string

	// What is "main" for the main function of a chunk, "Lua" for other
	// script functions, and "C" for native functions.
	What string

	// Source is the chunk name the function was defined in.
	Source string

	// ShortSrc is a printable version of Source.
	ShortSrc string

	// CurrentLine is the line being executed, or -1 when unknown.
	CurrentLine int

	// LineDefined is the line where the function definition starts.
	LineDefined int

	// Func is the running function.
	Func object.Object
}

// FrameCount returns the number of active call frames.
func (s *State) FrameCount() int {
	return len(s.frames)
}

// GetStack describes the function running at the given level. Level 0 is the
// running function, level 1 the function that called it, and so on. The
// second return value is false when the stack is not that deep.
func (s *State) GetStack(level int) (Debug, bool) {
	idx := len(s.frames) - 1 - level
	if level < 0 || idx < 0 {
		return Debug{}, false
	}
	f := &s.frames[idx]
	d := Debug{
		CurrentLine: f.currentLine,
		Func:        f.fn,
	}
	f.fn.describe(&d)
	d.ShortSrc = ChunkID(d.Source)
	return d, true
}

// SetLine records the line the running script function is executing. It has
// no effect outside a script frame.
func (s *State) SetLine(line int) {
	if len(s.frames) == 0 {
		return
	}
	f := &s.frames[len(s.frames)-1]
	if _, ok := f.fn.(*ScriptFunction); ok {
		f.currentLine = line
	}
}

// Where returns "short_src:line: " for the script function at the given
// level, or an empty string when that level is native or has no line.
func (s *State) Where(level int) string {
	d, ok := s.GetStack(level)
	if !ok || d.What == "C" || d.CurrentLine <= 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(d.ShortSrc)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(d.CurrentLine))
	b.WriteString(": ")
	return b.String()
}

// ChunkID converts a chunk name into a short printable source name:
// "=name" prints as name, "@file" prints as the file name (keeping its tail
// when too long), and anything else is treated as source text and printed as
// [string "first line..."].
func ChunkID(source string) string {
	const maxLen = idSize - 1
	switch {
	case strings.HasPrefix(source, "="):
		s := source[1:]
		if len(s) > maxLen {
			s = s[:maxLen]
		}
		return s
	case strings.HasPrefix(source, "@"):
		s := source[1:]
		if len(s) > maxLen {
			s = "..." + s[len(s)-(maxLen-3):]
		}
		return s
	default:
		text := source
		truncated := false
		if i := strings.IndexAny(text, "\r\n"); i >= 0 {
			text = text[:i]
			truncated = true
		}
		room := maxLen - len(`[string "..."]`)
		if len(text) > room {
			text = text[:room]
			truncated = true
		}
		if truncated {
			return `[string "` + text + `..."]`
		}
		return `[string "` + text + `"]`
	}
}
