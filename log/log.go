// Package log provides the structured logger used across cipherpool. It is a
// thin wrapper around zerolog with a small API surface: leveled printf-style
// functions plus "w" variants that take alternating key-value pairs.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log levels supported by Init.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const logTestWriterName = "logTest"

// logTestWriter lets the tests and benchmarks redirect the output.
var logTestWriter io.Writer = io.Discard

// panicOnInvalidChars is set via the LOG_PANIC_ON_INVALIDCHARS env var. When
// enabled, logging a string containing invalid UTF-8 panics, to catch raw
// bytes being logged without %x during testing.
var panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"

var (
	log   zerolog.Logger
	level string
)

type invalidCharChecker struct{}

func (invalidCharChecker) Write(p []byte) (int, error) {
	for _, b := range p {
		if b >= 0x80 {
			panic(fmt.Sprintf("log line with invalid char %q: %q", b, p))
		}
	}
	return len(p), nil
}

// Init initializes the logger with the given level and output. The output
// can be "stdout", "stderr" or a file path. An optional errorWriter receives
// a copy of every message logged at error level or above.
func Init(logLevel, output string, errorWriter io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}
	case "stderr":
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339Nano}
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot open log output %q: %v", output, err))
		}
		out = f
	}
	if errorWriter != nil {
		out = zerolog.MultiLevelWriter(out, errLevelWriter{errorWriter})
	}
	if panicOnInvalidChars {
		out = zerolog.MultiLevelWriter(out, invalidCharChecker{})
	}
	zl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		panic(fmt.Sprintf("invalid log level %q: %v", logLevel, err))
	}
	level = logLevel
	log = zerolog.New(out).Level(zl).With().Timestamp().Logger()
	Infof("logger construction succeeded at level %s with output %s", logLevel, output)
}

// errLevelWriter forwards only error-or-above messages to the wrapped writer.
type errLevelWriter struct {
	w io.Writer
}

func (w errLevelWriter) Write(p []byte) (int, error) { return len(p), nil }

func (w errLevelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l >= zerolog.ErrorLevel {
		return w.w.Write(p)
	}
	return len(p), nil
}

// Level returns the current log level as passed to Init.
func Level() string { return level }

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger { return &log }

func logw(ev *zerolog.Event, msg string, keyvals []any) {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keyvals[i])
		}
		ev = ev.Interface(key, keyvals[i+1])
	}
	ev.Msg(msg)
}

// Debug logs a debug message with the default format for its arguments.
func Debug(args ...any) { log.Debug().Msg(fmt.Sprint(args...)) }

// Debugf logs a formatted debug message.
func Debugf(format string, args ...any) { log.Debug().Msgf(format, args...) }

// Debugw logs a debug message with alternating key-value pairs.
func Debugw(msg string, keyvals ...any) { logw(log.Debug(), msg, keyvals) }

// Info logs an info message with the default format for its arguments.
func Info(args ...any) { log.Info().Msg(fmt.Sprint(args...)) }

// Infof logs a formatted info message.
func Infof(format string, args ...any) { log.Info().Msgf(format, args...) }

// Infow logs an info message with alternating key-value pairs.
func Infow(msg string, keyvals ...any) { logw(log.Info(), msg, keyvals) }

// Warn logs a warning message with the default format for its arguments.
func Warn(args ...any) { log.Warn().Msg(fmt.Sprint(args...)) }

// Warnf logs a formatted warning message.
func Warnf(format string, args ...any) { log.Warn().Msgf(format, args...) }

// Warnw logs a warning message with alternating key-value pairs.
func Warnw(msg string, keyvals ...any) { logw(log.Warn(), msg, keyvals) }

// Error logs an error message with the default format for its arguments.
func Error(args ...any) { log.Error().Msg(fmt.Sprint(args...)) }

// Errorf logs a formatted error message.
func Errorf(format string, args ...any) { log.Error().Msgf(format, args...) }

// Errorw logs an error with an additional message.
func Errorw(err error, msg string) { log.Error().Err(err).Msg(msg) }

// Fatal logs a message and exits with a non-zero status code.
func Fatal(args ...any) { log.Fatal().Msg(fmt.Sprint(args...)) }

// Fatalf logs a formatted message and exits with a non-zero status code.
func Fatalf(format string, args ...any) { log.Fatal().Msgf(format, args...) }

func init() {
	// A sane default so packages can log before Init is called.
	if strings.TrimSpace(level) == "" {
		level = LogLevelInfo
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339Nano}).
			Level(zerolog.InfoLevel).With().Timestamp().Logger()
	}
}
