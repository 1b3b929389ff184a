package reactive

import "github.com/vango-dev/reactor/pkg/path"

// State is implemented by *Atom and *Derived.
type State interface {
	ID() ID
	Name() string
	Kind() Kind
	Hash() string

	// Devtools reports whether the value was created with Devtools().
	Devtools() bool

	// Get returns the current value and records a whole-value dependency
	// when called inside a tracked computation.
	Get() any

	// Peek returns the current value without tracking.
	Peek() any

	// GetPath returns the value at p and records a dependency on p.
	GetPath(p path.Path) (any, error)

	Set(v any) error
	Update(fn func(current any) any) error
	SetPath(p path.Path, v any) error
	UpdatePath(p path.Path, fn func(current any) any) error

	// At returns an accessor for the child at key.
	At(key any) *PathAccessor

	Subscribe(fn func()) (unsubscribe func())
	SubscribePath(p path.Path, fn func()) (unsubscribe func())

	Dispose()

	base() *cell
}

var (
	_ State = (*Atom)(nil)
	_ State = (*Derived)(nil)
)
