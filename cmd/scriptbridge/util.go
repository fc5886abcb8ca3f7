package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/hostbridge/errz"
)

func fatal(err error) {
	fmt.Fprint(os.Stderr, errz.NewFormatter(useColor(os.Stderr)).Format(err))
	os.Exit(1)
}

// useColor reports whether w is a terminal and color has not been disabled.
func useColor(w io.Writer) bool {
	if color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func marshalJSON(value any, colored bool) ([]byte, error) {
	if colored {
		return prettyjson.Marshal(value)
	}
	return json.MarshalIndent(value, "", "  ")
}

// newLogger returns a console logger writing to w at the given level.
func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !useColor(w),
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Logger()
}
