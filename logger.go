package ldapmap

import (
	"sort"

	"github.com/hashicorp/go-hclog"
)

// Logger interface for mapper operations.
type Logger interface {
	Trace(msg string, fields map[string]any)
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// HCLogger wraps hclog for use as the package Logger.
type HCLogger struct {
	logger hclog.Logger
}

// NewHCLogger creates a logger backed by the given hclog.Logger.
func NewHCLogger(logger hclog.Logger) *HCLogger {
	return &HCLogger{logger: logger}
}

func (l *HCLogger) Trace(msg string, fields map[string]any) {
	l.logger.Trace(msg, fieldsToArgs(fields)...)
}

func (l *HCLogger) Debug(msg string, fields map[string]any) {
	l.logger.Debug(msg, fieldsToArgs(fields)...)
}

func (l *HCLogger) Info(msg string, fields map[string]any) {
	l.logger.Info(msg, fieldsToArgs(fields)...)
}

func (l *HCLogger) Warn(msg string, fields map[string]any) {
	l.logger.Warn(msg, fieldsToArgs(fields)...)
}

func (l *HCLogger) Error(msg string, fields map[string]any) {
	l.logger.Error(msg, fieldsToArgs(fields)...)
}

// fieldsToArgs flattens a field map into hclog key/value pairs.
// Keys are sorted so log output is deterministic.
func fieldsToArgs(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return args
}

// NopLogger discards all log output. It is the default for every
// component that accepts a Logger.
type NopLogger struct{}

func (NopLogger) Trace(string, map[string]any) {}
func (NopLogger) Debug(string, map[string]any) {}
func (NopLogger) Info(string, map[string]any)  {}
func (NopLogger) Warn(string, map[string]any)  {}
func (NopLogger) Error(string, map[string]any) {}

// loggable is implemented by components that accept a Logger option.
type loggable interface {
	setLogger(Logger)
}

// Option configures a component that accepts options.
type Option func(loggable)

// WithLogger sets the logger used by a Registry or LDAPDirectory.
func WithLogger(logger Logger) Option {
	return func(l loggable) {
		if logger != nil {
			l.setLogger(logger)
		}
	}
}
