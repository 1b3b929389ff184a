package reactive

import (
	stderrors "errors"

	"github.com/vango-dev/reactor/internal/batch"
	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/internal/graph"
	"github.com/vango-dev/reactor/internal/notify"
	"github.com/vango-dev/reactor/pkg/path"
	"github.com/vango-dev/reactor/pkg/value"
)

// Status is the cache state of a derived value.
type Status uint8

const (
	// Clean means the cached value is current.
	Clean Status = iota
	// Dirty means a dependency changed since the last computation.
	Dirty
)

// String returns "clean" or "dirty".
func (s Status) String() string {
	if s == Dirty {
		return "dirty"
	}
	return "clean"
}

// Derived is a read-only value computed from other states.
//
// It recomputes when a path it read changes: synchronously outside a
// transaction, on first read or at the outermost exit inside one. A
// compute function that panics is reported and the previous value kept.
type Derived struct {
	c       *cell
	compute func() any

	status       Status
	computing    bool
	recomputes   int
	retrackEvery int

	deps   *graph.Deps
	unsubs []func()
}

// CreateDerived computes compute once under tracking and subscribes to
// what it read. The returned error is an escalated compute error; the
// derived value is usable either way.
func (u *Universe) CreateDerived(compute func() any, opts ...Option) (*Derived, error) {
	o := applyOptions(opts)
	d := &Derived{
		c:            u.newCell(KindDerived, nil, o),
		compute:      compute,
		status:       Dirty,
		retrackEvery: o.retrackEvery,
	}
	if d.retrackEvery < 1 {
		d.retrackEvery = u.retrackEvery
	}
	d.c.register(d)

	var err error
	opErr := u.op(func() error {
		err = d.refresh()
		return nil
	})
	return d, stderrors.Join(err, opErr)
}

func (d *Derived) base() *cell { return d.c }

// ID returns the derived id.
func (d *Derived) ID() ID { return d.c.id }

// Name returns the derived name.
func (d *Derived) Name() string { return d.c.name }

// Kind returns KindDerived.
func (d *Derived) Kind() Kind { return KindDerived }

// Hash returns the structural hash of the cached value.
func (d *Derived) Hash() string { return d.c.node.Hash() }

// Devtools reports whether the derived value is exposed to devtools.
func (d *Derived) Devtools() bool { return d.c.devtools }

// Status returns whether the cached value is current.
func (d *Derived) Status() Status { return d.status }

// Recomputes returns how many times compute has run.
func (d *Derived) Recomputes() int { return d.recomputes }

// Get returns the value, recomputing first when dirty, and tracks the
// whole derived value.
func (d *Derived) Get() any {
	d.ensure()
	return d.c.get()
}

// Peek returns the value without tracking. A dirty value is still
// recomputed.
func (d *Derived) Peek() any {
	d.ensure()
	return d.c.node.Value()
}

// GetPath returns the value at p and tracks p.
func (d *Derived) GetPath(p path.Path) (any, error) {
	d.ensure()
	return d.c.getPath(p)
}

// Set always fails with ErrDerivedReadOnly.
func (d *Derived) Set(any) error { return d.readOnly("set") }

// Update always fails with ErrDerivedReadOnly.
func (d *Derived) Update(func(any) any) error { return d.readOnly("update") }

// SetPath always fails with ErrDerivedReadOnly.
func (d *Derived) SetPath(path.Path, any) error { return d.readOnly("set") }

// UpdatePath always fails with ErrDerivedReadOnly.
func (d *Derived) UpdatePath(path.Path, func(any) any) error { return d.readOnly("update") }

// At returns an accessor for key. Writes through it fail.
func (d *Derived) At(key any) *PathAccessor {
	d.ensure()
	return d.c.at(d, key)
}

// Subscribe registers fn for every change of the derived value.
func (d *Derived) Subscribe(fn func()) func() { return d.c.subscribe(fn) }

// SubscribePath registers fn for changes related to p.
func (d *Derived) SubscribePath(p path.Path, fn func()) func() { return d.c.subscribePath(p, fn) }

// Dispose unsubscribes from the sources and removes the derived value from
// the graph and registry. The last value stays readable.
func (d *Derived) Dispose() {
	if !d.c.release() {
		return
	}
	unsubscribeAll(d.unsubs)
	d.unsubs = nil
	d.status = Clean
}

func (d *Derived) readOnly(op string) error {
	return errors.New(errors.CodeDerivedReadOnly).
		WithAtom(d.c.name).
		WithDetailf("cannot %s %s: derived values are computed from their sources", op, d.c.name)
}

func (d *Derived) ensure() {
	if d.status == Dirty && !d.c.disposed {
		_ = d.c.u.op(d.refresh)
	}
}

// invalidate is the dependency handler. It runs inline even inside a
// transaction so a read in the same transaction sees fresh values.
func (d *Derived) invalidate() error {
	if d.c.disposed {
		return nil
	}
	d.status = Dirty
	if d.c.u.sched.Batching() {
		d.c.u.sched.Schedule(batch.Task{
			Key: batch.Key{Owner: d.c.id},
			Run: d.refresh,
		})
		return nil
	}
	return d.refresh()
}

// refresh recomputes a dirty value and publishes it when it differs.
func (d *Derived) refresh() error {
	if d.status == Clean || d.computing || d.c.disposed {
		return nil
	}
	u := d.c.u
	d.computing = true
	defer func() { d.computing = false }()

	retrack := d.deps == nil || d.recomputes%d.retrackEvery == 0
	d.recomputes++
	u.metrics.RecordRecompute()

	var next any
	run := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.FromPanic(errors.CodeComputeFailed, r).WithAtom(d.c.name)
			}
		}()
		next = d.compute()
		return nil
	}

	var deps *graph.Deps
	var err error
	if retrack {
		deps, err = u.graph.WithTracking(d.c.id, run)
	} else {
		u.graph.Untracked(func() { err = run() })
	}
	d.status = Clean

	if err != nil {
		var re *errors.Error
		if stderrors.As(err, &re) && re.Code == errors.CodeCircular {
			// The graph rolled back; keep the old edges and subscriptions.
			return u.report(re.WithAtom(d.c.name))
		}
		escalated := u.reportErr(err, errors.CodeComputeFailed)
		if deps != nil {
			// Also listen to what the failed run read so it can recover.
			deps.Merge(d.deps)
			return stderrors.Join(escalated, d.resubscribe(deps))
		}
		return escalated
	}

	var subErr error
	if retrack {
		d.deps = deps
		subErr = d.resubscribe(deps)
	}

	frozen := value.Freeze(next)
	node, changed := d.c.node.Replace(frozen)
	return stderrors.Join(subErr, d.c.commit("recompute", node, changed))
}

func (d *Derived) resubscribe(deps *graph.Deps) error {
	unsubscribeAll(d.unsubs)
	unsubs, err := d.c.u.subscribeDeps(d.c.id, deps, d.invalidate, notify.Eager())
	d.unsubs = unsubs
	return err
}
