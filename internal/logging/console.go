// Package logging builds the operator console logger and the durable error log.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewConsole returns a logger for progress output. format is "console"
// (human readable, the default) or "json".
func NewConsole(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if strings.EqualFold(format, "json") {
		return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	}

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
