package reactive

import "github.com/vango-dev/reactor/internal/errors"

// Error is the structured error returned and reported by the engine.
type Error = errors.Error

// Sink receives errors caught inside the engine. Report returns a non-nil
// error when the error must escalate to the caller of the public operation.
type Sink = errors.Sink

// SinkFunc adapts a function to Sink.
type SinkFunc = errors.SinkFunc

// ErrorCollector is a Sink that records every report.
type ErrorCollector = errors.Collector

// Sentinels for errors.Is. Matching is by code, so details may differ.
var (
	ErrPrimitivePath      = errors.New(errors.CodePrimitivePath)
	ErrDerivedReadOnly    = errors.New(errors.CodeDerivedReadOnly)
	ErrNotComposite       = errors.New(errors.CodeNotComposite)
	ErrUpdaterFailed      = errors.New(errors.CodeUpdaterFailed)
	ErrUnresolvablePath   = errors.New(errors.CodeUnresolvablePath)
	ErrIndexRange         = errors.New(errors.CodeIndexRange)
	ErrMissingAtom        = errors.New(errors.CodeMissingAtom)
	ErrForeignGoroutine   = errors.New(errors.CodeForeignGoroutine)
	ErrDisposed           = errors.New(errors.CodeDisposed)
	ErrCircularDependency = errors.New(errors.CodeCircular)
	ErrComputeFailed      = errors.New(errors.CodeComputeFailed)
	ErrTransaction        = errors.New(errors.CodeTransaction)
	ErrSubscriber         = errors.New(errors.CodeSubscriber)
	ErrEffectFailed       = errors.New(errors.CodeEffectFailed)
	ErrCleanupFailed      = errors.New(errors.CodeCleanupFailed)
	ErrEffectRunaway      = errors.New(errors.CodeEffectRunaway)
)
