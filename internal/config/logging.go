package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"git.home.luguber.info/inful/presenced/internal/foundation"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevels = map[string]LogLevel{
	"debug": LogLevelDebug,
	"info":  LogLevelInfo,
	"warn":  LogLevelWarn,
	"error": LogLevelError,
}

// ParseLogLevel converts a raw string into a LogLevel, rejecting unknown
// values.
func ParseLogLevel(raw string) foundation.Result[LogLevel, error] {
	if lvl, ok := logLevels[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return foundation.Ok[LogLevel, error](lvl)
	}
	return foundation.Err[LogLevel, error](fmt.Errorf("unknown log level %q", raw))
}

// NormalizeLogLevel maps a raw string to a supported level, defaulting to info.
func NormalizeLogLevel(raw string) LogLevel {
	return ParseLogLevel(raw).UnwrapOr(LogLevelInfo)
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormats = map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}

// ParseLogFormat converts a raw string into a LogFormat, rejecting unknown
// values.
func ParseLogFormat(raw string) foundation.Result[LogFormat, error] {
	if f, ok := logFormats[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return foundation.Ok[LogFormat, error](f)
	}
	return foundation.Err[LogFormat, error](fmt.Errorf("unknown log format %q", raw))
}

// NormalizeLogFormat maps a raw string to a supported format, defaulting to text.
func NormalizeLogFormat(raw string) LogFormat {
	return ParseLogFormat(raw).UnwrapOr(LogFormatText)
}

// NewLogger builds a slog.Logger from the logging config.
func (lc LoggingConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch NormalizeLogLevel(lc.Level) {
	case LogLevelDebug:
		level = slog.LevelDebug
	case LogLevelWarn:
		level = slog.LevelWarn
	case LogLevelError:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if NormalizeLogFormat(lc.Format) == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
