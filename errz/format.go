package errz

import (
	"errors"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Formatter renders errors for terminal display.
type Formatter struct {
	// UseColor enables ANSI color codes in output.
	UseColor bool

	header *color.Color
	where  *color.Color
	trace  *color.Color
	note   *color.Color
}

// NewFormatter creates a new error formatter.
func NewFormatter(useColor bool) *Formatter {
	f := &Formatter{
		UseColor: useColor,
		header:   color.New(color.FgHiRed, color.Bold),
		where:    color.New(color.FgCyan),
		trace:    color.New(color.FgHiBlack),
		note:     color.New(color.FgHiYellow),
	}
	for _, c := range []*color.Color{f.header, f.where, f.trace, f.note} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return f
}

// Format renders err. ScriptErrors get a header line naming the kind, a
// location line naming the mod and callback, and the description with any
// traceback dimmed. Other errors are rendered as plain text.
func (f *Formatter) Format(err error) string {
	var se *ScriptError
	if !errors.As(err, &se) {
		return f.header.Sprint("error") + ": " + err.Error() + "\n"
	}

	var b strings.Builder
	b.WriteString(f.header.Sprint(se.Kind.String() + " error"))
	b.WriteString("\n  ")
	b.WriteString(f.where.Sprint("--> mod '" + se.Module + "', callback " + se.Callback + "()"))
	b.WriteString("\n")

	inTrace := false
	for _, line := range strings.Split(se.Description, "\n") {
		if line == "stack traceback:" {
			inTrace = true
		}
		b.WriteString("   | ")
		if inTrace {
			b.WriteString(f.trace.Sprint(line))
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	if se.Kind == OOM {
		b.WriteString("   = ")
		b.WriteString(f.note.Sprint("note: "))
		b.WriteString("current Lua memory usage: ")
		b.WriteString(formatMB(se.MemoryMB))
		b.WriteString("\n")
	}
	return b.String()
}

func formatMB(mb int64) string {
	return strconv.FormatInt(mb, 10) + " MB"
}
