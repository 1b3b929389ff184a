package reactive

import (
	"context"
	"sync"
)

var (
	defaultMu       sync.Mutex
	defaultUniverse *Universe
)

// Default returns the process default universe used by the package-level
// helpers. It is created on first use with default options.
func Default() *Universe {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultUniverse == nil {
		defaultUniverse = New()
	}
	return defaultUniverse
}

// SetDefault replaces the default universe. Intended for program setup
// and tests.
func SetDefault(u *Universe) {
	defaultMu.Lock()
	defaultUniverse = u
	defaultMu.Unlock()
}

// CreateAtom creates an atom in the default universe.
func CreateAtom(initial any, opts ...Option) *Atom {
	return Default().CreateAtom(initial, opts...)
}

// CreateDerived creates a derived value in the default universe.
func CreateDerived(compute func() any, opts ...Option) (*Derived, error) {
	return Default().CreateDerived(compute, opts...)
}

// CreateEffect creates an effect in the default universe.
func CreateEffect(fn func() Cleanup, opts ...Option) (*Effect, error) {
	return Default().CreateEffect(fn, opts...)
}

// Transaction runs fn as a transaction of the default universe.
func Transaction(fn func() error) error {
	return Default().Transaction(fn)
}

// TransactionNamed runs a named transaction of the default universe.
func TransactionNamed(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return Default().TransactionNamed(ctx, name, fn)
}

// Untracked runs fn without tracking in the default universe.
func Untracked(fn func()) {
	Default().Untracked(fn)
}

// Flush drains deferred work of the default universe.
func Flush() error {
	return Default().Flush()
}
