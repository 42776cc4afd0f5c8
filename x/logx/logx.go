// Package logx holds the process logger. Drivers and services take a
// *zerolog.Logger; this package supplies the default one and the level plumbing.
package logx

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

func init() { zerolog.SetGlobalLevel(zerolog.InfoLevel) }

// ParseLevel maps a zerolog level name to its level. Empty or unknown names
// give info.
func ParseLevel(s string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// Init reconfigures the process logger. pretty selects the console writer.
func Init(level string, pretty bool) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	var out io.Writer = os.Stderr
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	logger = zerolog.New(out).With().Timestamp().Logger()
}

// Get returns the process logger.
func Get() *zerolog.Logger { return &logger }

// WithComponent returns a child logger tagged with component.
func WithComponent(component string) *zerolog.Logger {
	l := logger.With().Str("component", component).Logger()
	return &l
}

// Nop is a logger that discards everything. Tests use it.
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
