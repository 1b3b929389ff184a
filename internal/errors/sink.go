package errors

import (
	"context"
	"log/slog"
)

// Sink receives errors caught inside the engine.
//
// Report returns a non-nil error when the caught error must escalate to the
// caller of the public operation that triggered it. Returning nil swallows it.
type Sink interface {
	Report(err *Error) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(err *Error) error

// Report implements Sink.
func (f SinkFunc) Report(err *Error) error { return f(err) }

// DefaultSink logs every error and escalates only fatal, non-recoverable ones.
type DefaultSink struct {
	Logger *slog.Logger
}

// NewDefaultSink returns a DefaultSink logging to logger (slog.Default if nil).
func NewDefaultSink(logger *slog.Logger) *DefaultSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultSink{Logger: logger}
}

// Report implements Sink.
func (s *DefaultSink) Report(err *Error) error {
	if err == nil {
		return nil
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	level := slog.LevelError
	if err.Severity == SeverityWarning {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("code", err.Code),
		slog.String("category", string(err.Category)),
		slog.Bool("recoverable", err.Recoverable),
	}
	if err.Severity == SeverityFatal {
		attrs = append(attrs, slog.Bool("fatal", true))
	}
	if err.Atom != "" {
		attrs = append(attrs, slog.String("atom", err.Atom))
	}
	if len(err.Path) > 0 {
		attrs = append(attrs, slog.Any("path", err.Path))
	}
	if len(err.Cycle) > 0 {
		attrs = append(attrs, slog.String("cycle", FormatCycle(err.Cycle)))
	}
	if err.Wrapped != nil {
		attrs = append(attrs, slog.String("cause", err.Wrapped.Error()))
	}
	logger.LogAttrs(context.Background(), level, err.Message, attrs...)

	if err.Fatal() {
		return err
	}
	return nil
}

// Collector is a Sink that records every report. Useful in tests and for
// aggregating errors over a scenario run.
type Collector struct {
	Errors []*Error

	// Escalate mirrors DefaultSink's escalation rule when true.
	Escalate bool
}

// Report implements Sink.
func (c *Collector) Report(err *Error) error {
	c.Errors = append(c.Errors, err)
	if c.Escalate && err.Fatal() {
		return err
	}
	return nil
}

// Codes returns the codes of the collected errors in report order.
func (c *Collector) Codes() []string {
	out := make([]string, len(c.Errors))
	for i, e := range c.Errors {
		out[i] = e.Code
	}
	return out
}
