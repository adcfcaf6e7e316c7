package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultPerms = 0o0600

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

//nolint:gochecknoglobals
var loggerSetTimeFormat sync.Once

// Logger extends zerolog's Logger.
type Logger struct {
	zerolog.Logger
}

// NewLogger returns a JSON logger writing to output, or to stdout when output is empty.
func NewLogger(level, output string) Logger {
	return NewLoggerWithFormat(level, output, FormatJSON)
}

// NewLoggerWithFormat is NewLogger with a selectable encoding, console output is meant for CI job logs.
func NewLoggerWithFormat(level, output, format string) Logger {
	return newLogger(level, openOutput(output), format, output != "")
}

// NewWriterLogger logs JSON lines to an arbitrary writer.
func NewWriterLogger(level string, writer io.Writer) Logger {
	return newLogger(level, writer, FormatJSON, true)
}

func NewWriterLoggerWithFormat(level, format string, writer io.Writer) Logger {
	return newLogger(level, writer, format, true)
}

func newLogger(level string, writer io.Writer, format string, noColor bool) Logger {
	lvl := parseLevel(level)

	if format == FormatConsole {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339, NoColor: noColor}
	}

	log := zerolog.New(writer).Level(lvl)

	return Logger{Logger: log.With().Timestamp().Logger()}
}

// NewAuditLogger returns the logger recording every retention decision.
func NewAuditLogger(level, output string) *Logger {
	lvl := parseLevel(level)

	auditLog := zerolog.New(openOutput(output)).Level(lvl)

	return &Logger{Logger: auditLog.With().Timestamp().Logger()}
}

// NewNopLogger discards everything.
func NewNopLogger() Logger {
	return Logger{Logger: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	loggerSetTimeFormat.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
	})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		panic(err)
	}

	return lvl
}

func openOutput(output string) io.Writer {
	if output == "" {
		return os.Stdout
	}

	file, err := os.OpenFile(output, os.O_APPEND|os.O_WRONLY|os.O_CREATE, defaultPerms)
	if err != nil {
		panic(err)
	}

	return file
}
