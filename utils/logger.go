package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configures where and how much the service logs.
type LogOptions struct {
	Dir        string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    bool
}

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// InitLogger initializes the logger with a rotated file and stdout output
func InitLogger(opts LogOptions) error {
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %v", err)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, "app.log"),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}

	var stdout io.Writer = os.Stdout
	if opts.Console {
		stdout = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	logger = zerolog.New(zerolog.MultiLevelWriter(file, stdout)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return nil
}

// LogInfo logs an informational message
func LogInfo(format string, v ...interface{}) {
	logger.Info().Msgf(format, v...)
}

// LogWarn logs a warning message
func LogWarn(format string, v ...interface{}) {
	logger.Warn().Msgf(format, v...)
}

// LogError logs an error message
func LogError(format string, v ...interface{}) {
	logger.Error().Msgf(format, v...)
}

// LogDebug logs a debug message
func LogDebug(format string, v ...interface{}) {
	logger.Debug().Msgf(format, v...)
}

// LogRequest logs HTTP request details
func LogRequest(requestID, method, path, ip string, status int, duration time.Duration) {
	logger.Info().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Str("ip", ip).
		Int("status", status).
		Dur("duration", duration).
		Msg("request")
}

// LogErrorWithStack logs an error with stack trace
func LogErrorWithStack(err error, stack []byte) {
	logger.Error().Err(err).Str("stack", string(stack)).Msg("panic recovered")
}
