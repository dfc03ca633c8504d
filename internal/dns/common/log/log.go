package log

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global Logger = newZapLogger(false, zapcore.InfoLevel) // default to prod/info

// SetLogger replaces the global logger instance.
// Useful for testing or overriding behavior.
func SetLogger(l Logger) {
	global = l
}

// GetLogger returns the current global logger instance.
func GetLogger() Logger {
	return global
}

// Logger defines the rr-zoned logging interface.
type Logger interface {
	Info(fields map[string]any, msg string)
	Error(fields map[string]any, msg string)
	Debug(fields map[string]any, msg string)
	Warn(fields map[string]any, msg string)
	Panic(fields map[string]any, msg string)
	Fatal(fields map[string]any, msg string)
}

// Configure sets up the global logger based on env and level.
func Configure(env, level string) error {
	isDev := env != "prod"

	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	global = newZapLogger(isDev, lvl)
	return nil
}

// FromZap wraps an existing zap logger. Tests use it with zaptest/observer
// to assert on emitted entries.
func FromZap(base *zap.Logger) Logger {
	if base == nil {
		return NewNoopLogger()
	}
	return &zapLogger{base: base}
}

// Info logs at info level using the global logger.
func Info(fields map[string]any, msg string) {
	global.Info(fields, msg)
}

// Error logs at error level using the global logger.
func Error(fields map[string]any, msg string) {
	global.Error(fields, msg)
}

// Debug logs at debug level using the global logger.
func Debug(fields map[string]any, msg string) {
	global.Debug(fields, msg)
}

// Warn logs at warn level using the global logger.
func Warn(fields map[string]any, msg string) {
	global.Warn(fields, msg)
}

// Panic logs at panic level using the global logger.
func Panic(fields map[string]any, msg string) {
	global.Panic(fields, msg)
}

// Fatal logs at fatal level using the global logger.
func Fatal(fields map[string]any, msg string) {
	global.Fatal(fields, msg)
}

// zapLogger implements Logger using Uber's zap.
type zapLogger struct {
	base *zap.Logger
}

// newZapLogger returns a logger configured for dev or prod mode with the given level.
func newZapLogger(dev bool, level zapcore.Level) Logger {
	var config zap.Config
	if dev {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.MessageKey = "msg"
	config.EncoderConfig.LevelKey = "level"

	logger, err := config.Build()
	if err != nil {
		return NewNoopLogger()
	}
	return &zapLogger{base: logger}
}

func (l *zapLogger) Info(fields map[string]any, msg string) {
	l.base.Info(msg, zapFields(fields)...)
}

func (l *zapLogger) Error(fields map[string]any, msg string) {
	l.base.Error(msg, zapFields(fields)...)
}

func (l *zapLogger) Debug(fields map[string]any, msg string) {
	l.base.Debug(msg, zapFields(fields)...)
}

func (l *zapLogger) Warn(fields map[string]any, msg string) {
	l.base.Warn(msg, zapFields(fields)...)
}

func (l *zapLogger) Panic(fields map[string]any, msg string) {
	l.base.Panic(msg, zapFields(fields)...)
}

func (l *zapLogger) Fatal(fields map[string]any, msg string) {
	l.base.Fatal(msg, zapFields(fields)...)
}

// zapFields converts a field map to zap fields, sorted by key so output is stable.
// Errors are attached with zap.NamedError to keep their message instead of a reflected struct.
func zapFields(m map[string]any) []zap.Field {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(m))
	for _, k := range keys {
		if err, ok := m[k].(error); ok {
			fields = append(fields, zap.NamedError(k, err))
			continue
		}
		fields = append(fields, zap.Any(k, m[k]))
	}
	return fields
}

// noopLogger is a Logger implementation that discards all log messages.
type noopLogger struct{}

func (n *noopLogger) Info(map[string]any, string)  {}
func (n *noopLogger) Error(map[string]any, string) {}
func (n *noopLogger) Debug(map[string]any, string) {}
func (n *noopLogger) Warn(map[string]any, string)  {}
func (n *noopLogger) Panic(map[string]any, string) {}
func (n *noopLogger) Fatal(map[string]any, string) {}

// NewNoopLogger returns a Logger that discards all log messages.
func NewNoopLogger() Logger {
	return &noopLogger{}
}
