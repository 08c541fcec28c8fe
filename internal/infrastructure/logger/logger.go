// Package logger configures the process-wide structured logger.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Setup builds a zerolog.Logger writing JSON to stdout and sets zerolog's
// global level to the given level (info if it does not parse).
func Setup(level string) zerolog.Logger {
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		l = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(l)

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	return log
}

// Logger returns a default info-level logger, for callers that have not
// gone through Setup (tests, one-off tools).
func Logger() zerolog.Logger {
	return Setup("info")
}
