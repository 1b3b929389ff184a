// Package devtools serves an HTTP and WebSocket inspector for a reactive
// universe.
//
// The server observes the universe and mirrors every atom created with
// reactive.Devtools() (or every atom with WithAllAtoms). The mirror is
// written on the universe goroutine and read by HTTP handlers, so the
// universe itself is never touched from another goroutine.
//
// Routes:
//
//	GET /atoms        list of mirrored atoms
//	GET /atoms/{id}   one atom with its current value
//	GET /ws           stream of change messages
//	GET /metrics      Prometheus metrics, when a gatherer is configured
package devtools
