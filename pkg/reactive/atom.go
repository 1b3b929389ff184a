package reactive

import (
	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/path"
)

// Atom is a mutable reactive value. Every accepted write replaces the
// frozen value; unchanged branches keep their identity.
type Atom struct {
	c *cell
}

// CreateAtom creates an atom holding a frozen copy of initial.
func (u *Universe) CreateAtom(initial any, opts ...Option) *Atom {
	a := &Atom{c: u.newCell(KindAtom, initial, applyOptions(opts))}
	a.c.register(a)
	return a
}

func (a *Atom) base() *cell { return a.c }

// ID returns the atom id.
func (a *Atom) ID() ID { return a.c.id }

// Name returns the atom name.
func (a *Atom) Name() string { return a.c.name }

// Kind returns KindAtom.
func (a *Atom) Kind() Kind { return KindAtom }

// Hash returns the structural hash of the current value.
func (a *Atom) Hash() string { return a.c.node.Hash() }

// Devtools reports whether the atom is exposed to devtools.
func (a *Atom) Devtools() bool { return a.c.devtools }

// Get returns the current value, tracking the whole atom.
func (a *Atom) Get() any { return a.c.get() }

// Peek returns the current value without tracking.
func (a *Atom) Peek() any { return a.c.node.Value() }

// GetPath returns the value at p, tracking p.
func (a *Atom) GetPath(p path.Path) (any, error) { return a.c.getPath(p) }

// Set replaces the value. Writing a structurally equal value notifies
// nobody.
func (a *Atom) Set(v any) error {
	return a.c.u.op(func() error {
		if a.c.disposed {
			return a.c.disposedErr()
		}
		next, changed := a.c.node.Replace(v)
		return a.c.commit("set", next, changed)
	})
}

// Update sets the value to fn(current). A panicking fn is reported and
// leaves the value untouched.
func (a *Atom) Update(fn func(current any) any) error {
	return a.c.u.op(func() error {
		if a.c.disposed {
			return a.c.disposedErr()
		}
		candidate, ok, err := a.c.callUpdater(fn, a.c.node.Value(), path.Root)
		if !ok {
			return err
		}
		next, changed := a.c.node.Replace(candidate)
		return a.c.commit("update", next, changed)
	})
}

// SetPath writes v at p. Only the containers along p are reallocated.
func (a *Atom) SetPath(p path.Path, v any) error {
	return a.c.u.op(func() error {
		if a.c.disposed {
			return a.c.disposedErr()
		}
		next, changed, err := a.c.node.SetPath(p, v)
		if err != nil {
			return a.c.annotate(err)
		}
		return a.c.commit("set_path", next, changed)
	})
}

// UpdatePath writes fn(current value at p) at p.
func (a *Atom) UpdatePath(p path.Path, fn func(current any) any) error {
	return a.c.u.op(func() error {
		if a.c.disposed {
			return a.c.disposedErr()
		}
		cur, err := a.c.node.GetPath(p)
		if err != nil {
			return a.c.annotate(err)
		}
		candidate, ok, err := a.c.callUpdater(fn, cur, p)
		if !ok {
			return err
		}
		next, changed, err := a.c.node.SetPath(p, candidate)
		if err != nil {
			return a.c.annotate(err)
		}
		return a.c.commit("update_path", next, changed)
	})
}

// At returns an accessor for key. If the atom does not hold a map or list,
// every terminal call on the accessor returns ErrNotComposite.
func (a *Atom) At(key any) *PathAccessor { return a.c.at(a, key) }

// Subscribe registers fn for every change.
func (a *Atom) Subscribe(fn func()) func() { return a.c.subscribe(fn) }

// SubscribePath registers fn for changes at, above or below p.
func (a *Atom) SubscribePath(p path.Path, fn func()) func() { return a.c.subscribePath(p, fn) }

// Dispose removes the atom from its universe. Later writes fail with
// ErrDisposed; reads keep returning the last value.
func (a *Atom) Dispose() {
	a.c.release()
}

// callUpdater runs fn. A panic is reported and ok is false; err is then
// the escalated error, if any.
func (c *cell) callUpdater(fn func(any) any, current any, at path.Path) (candidate any, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			e := errors.FromPanic(errors.CodeUpdaterFailed, r).WithAtom(c.name)
			if len(at) > 0 {
				e = e.WithPath(at)
			}
			candidate, ok, err = nil, false, c.u.report(e)
		}
	}()
	return fn(current), true, nil
}
