// Package logger builds the process-wide zerolog root.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const consoleTimeFormat = "15:04:05"

// New returns the root logger. Pretty output goes through a console writer
// for humans; otherwise lines are plain JSON for log shippers. The zerolog
// global is pointed at the same logger so package-level logging matches.
func New(level string, pretty bool) zerolog.Logger {
	lvl := parseLevel(level, zerolog.InfoLevel)

	var logger zerolog.Logger
	if pretty {
		cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: consoleTimeFormat}
		logger = zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
		logger = zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
	}
	log.Logger = logger
	return logger
}

func parseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return def
	}
}
