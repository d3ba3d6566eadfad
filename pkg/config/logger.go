package config

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// NewLogger builds the process-wide root logger: console-pretty when stdout
// is a terminal, structured JSON otherwise. Every subsystem derives its own
// child logger from this one with a "component" field.
func NewLogger() zerolog.Logger {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
