package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger handles structured logging
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a new logger. format is "json" or "text".
func NewLogger(format, level string, output io.Writer) *Logger {
	var w io.Writer = output
	if format != "json" {
		w = zerolog.ConsoleWriter{
			Out:        output,
			NoColor:    true,
			TimeFormat: time.RFC3339Nano,
			FormatLevel: func(i interface{}) string {
				return fmt.Sprintf("%-7s", fmt.Sprintf("[%v]", i))
			},
		}
	}

	zl := zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// parseLevel converts string to a zerolog level, defaulting to info
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// log writes a log entry
func (l *Logger) log(e *zerolog.Event, component, event string, fields map[string]interface{}) {
	// e is nil when the level is disabled
	if e == nil {
		return
	}
	e.Str("component", component).Str("event", event).Fields(fields).Send()
}

// Enabled reports whether entries at level would be written
func (l *Logger) Enabled(level string) bool {
	return parseLevel(level) >= l.zl.GetLevel()
}

// Trace logs at trace level
func (l *Logger) Trace(component, event string, fields map[string]interface{}) {
	l.log(l.zl.Trace(), component, event, fields)
}

// Debug logs at debug level
func (l *Logger) Debug(component, event string, fields map[string]interface{}) {
	l.log(l.zl.Debug(), component, event, fields)
}

// Info logs at info level
func (l *Logger) Info(component, event string, fields map[string]interface{}) {
	l.log(l.zl.Info(), component, event, fields)
}

// Warn logs at warn level
func (l *Logger) Warn(component, event string, fields map[string]interface{}) {
	l.log(l.zl.Warn(), component, event, fields)
}

// Error logs at error level
func (l *Logger) Error(component, event string, fields map[string]interface{}) {
	l.log(l.zl.Error(), component, event, fields)
}

// Slog returns an slog.Logger writing through this logger, for libraries
// such as sutureslog that only speak slog.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(newSlogHandler(l.zl))
}
