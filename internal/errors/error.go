package errors

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryState        Category = "state"
	CategoryPath         Category = "path"
	CategoryDependency   Category = "dependency"
	CategoryCircular     Category = "circular"
	CategoryDerivation   Category = "derivation"
	CategoryTransaction  Category = "transaction"
	CategorySubscription Category = "subscription"
	CategoryEffect       Category = "effect"
	CategoryConfig       Category = "config"
	CategoryScenario     Category = "scenario"
	CategoryHistory      Category = "history"
)

// Severity ranks how serious a reported error is.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Error is a structured engine error.
type Error struct {
	// Code is a unique error identifier (e.g., "R030").
	Code string

	// Category is the error type (state, path, circular, etc.).
	Category Category

	// Severity is fatal, error or warning.
	Severity Severity

	// Recoverable reports whether the engine state is still consistent.
	Recoverable bool

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Atom names the reactive entity involved, if any.
	Atom string

	// Path is the offending path for path errors.
	Path []string

	// Cycle is the ordered cycle for circular dependency errors.
	// The first and last element are the same id.
	Cycle []uint64

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Stack is the goroutine stack captured when a panic was recovered.
	Stack string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Atom != "" {
		b.WriteString(" (")
		b.WriteString(e.Atom)
		b.WriteString(")")
	}
	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}
	if len(e.Cycle) > 0 {
		b.WriteString(": ")
		b.WriteString(FormatCycle(e.Cycle))
	}
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches another *Error with the same code, so registered errors can be
// used as sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// Fatal reports whether the default sink escalates this error.
func (e *Error) Fatal() bool {
	return e.Severity == SeverityFatal && !e.Recoverable
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detail.
func (e *Error) WithDetailf(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithAtom names the reactive entity involved.
func (e *Error) WithAtom(name string) *Error {
	e.Atom = name
	return e
}

// WithPath records the offending path.
func (e *Error) WithPath(p []string) *Error {
	e.Path = append([]string(nil), p...)
	return e
}

// WithCycle records the ordered cycle.
func (e *Error) WithCycle(cycle []uint64) *Error {
	e.Cycle = append([]uint64(nil), cycle...)
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:     code,
			Severity: SeverityError,
			Message:  "Unknown error",
		}
	}
	return &Error{
		Code:        code,
		Category:    template.Category,
		Severity:    template.Severity,
		Recoverable: template.Recoverable,
		Message:     template.Message,
		Detail:      template.Detail,
	}
}

// Newf creates an Error from a registered code with a formatted detail.
func Newf(code string, format string, args ...any) *Error {
	return New(code).WithDetailf(format, args...)
}

// FromError wraps a standard error in an Error.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*Error); ok {
		return re
	}
	return New(code).Wrap(err)
}

// FromPanic converts a recovered panic value into an Error with the given
// code. A recovered *Error is returned unchanged.
func FromPanic(code string, r any) *Error {
	switch v := r.(type) {
	case *Error:
		return v
	case error:
		e := New(code).Wrap(v)
		e.Stack = string(debug.Stack())
		return e
	default:
		e := New(code).Wrap(fmt.Errorf("panic: %v", v))
		e.Stack = string(debug.Stack())
		return e
	}
}

// FormatCycle renders a cycle as "#1 -> #2 -> #1".
func FormatCycle(cycle []uint64) string {
	parts := make([]string, len(cycle))
	for i, id := range cycle {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, " -> ")
}
