package common

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/phuslu/log"
)

// Logger wraps phuslu/log.Logger to provide a consistent interface
type Logger struct {
	log.Logger
}

// parseLevel maps a config level name onto a phuslu level.
func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// NewLogger creates a console logger on stderr with the specified level
func NewLogger(level string) *Logger {
	return &Logger{Logger: log.Logger{
		Level:      parseLevel(level),
		TimeFormat: "15:04:05.000",
		Writer:     &log.ConsoleWriter{Writer: os.Stderr, ColorOutput: true},
	}}
}

// NewLoggerWithOutput creates a JSON logger writing to a specific output
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	return &Logger{Logger: log.Logger{
		Level:  parseLevel(level),
		Writer: &log.IOWriter{Writer: w},
	}}
}

// NewLoggerFromConfig builds a logger from the [logging] section.
// Level "disabled" discards everything.
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	if strings.EqualFold(cfg.Level, "disabled") {
		return NewSilentLogger()
	}

	var writers []io.Writer
	for _, out := range cfg.Outputs {
		switch out {
		case "console":
			writers = append(writers, os.Stderr)
		case "file":
			if cfg.FilePath == "" {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
				continue
			}
			writers = append(writers, &log.FileWriter{
				Filename:   cfg.FilePath,
				MaxSize:    100 << 20,
				MaxBackups: 3,
			})
		}
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}
	dest := io.MultiWriter(writers...)

	if cfg.Format == "json" {
		return NewLoggerWithOutput(cfg.Level, dest)
	}
	return &Logger{Logger: log.Logger{
		Level:      parseLevel(cfg.Level),
		TimeFormat: "15:04:05.000",
		Writer:     &log.ConsoleWriter{Writer: dest, ColorOutput: len(writers) == 1 && writers[0] == os.Stderr},
	}}
}

// NewDefaultLogger creates a logger with default settings
func NewDefaultLogger() *Logger {
	return NewLogger("info")
}

// NewSilentLogger creates a logger that discards all output
func NewSilentLogger() *Logger {
	return &Logger{Logger: log.Logger{
		Level:  log.ErrorLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}}
}
