// Package errors provides the structured error taxonomy of the reactive engine.
//
// Every error carries a code, a category, a severity and a recoverable flag:
//   - state: wrong-shape operations (path access on a primitive, writing a derived)
//   - path: unresolvable segments, carrying the offending path
//   - dependency: tracking-stack misuse, missing atoms, foreign goroutines
//   - circular: dependency cycles, fatal and non-recoverable, carrying the cycle
//   - derivation: compute failures, the previous cached value is retained
//   - transaction: failures escaping a batch body
//   - subscription and effect: panicking user callbacks
//
// # Error Codes
//
// Each code (e.g., "R030") maps to a registered template with the default
// message, category, severity and recoverability.
//
// # Sinks
//
// Errors caught from user callbacks are handed to a Sink instead of aborting
// sibling work. DefaultSink logs through log/slog and escalates only fatal,
// non-recoverable errors back to the caller:
//
//	sink := errors.NewDefaultSink(slog.Default())
//	if err := sink.Report(errors.New(errors.CodeCircular).WithCycle(ids)); err != nil {
//	    return err
//	}
package errors
