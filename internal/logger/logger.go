package logger

import (
	"io"
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Log writes to stderr so it never interleaves with the batch rendering on stdout.
var Log = zerolog.New(os.Stderr).With().Timestamp().Logger()

// enable pretty printing for interactive terminals and json otherwise.
func init() {
	if isatty.IsTerminal(os.Stderr.Fd()) && runtime.GOOS != "windows" {
		Log = Log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		zerolog.TimeFieldFormat = ""
	}
	// by default only log warnings and errors
	SetLogLevel(zerolog.WarnLevel)
}

func SetLogLevel(l zerolog.Level) {
	Log = Log.Level(l)
}

func SetLogOutput(w io.Writer) {
	Log = Log.Output(w)
}

// ParseLevel accepts zerolog level names; an empty string keeps the current level.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return Log.GetLevel(), nil
	}
	return zerolog.ParseLevel(s)
}
