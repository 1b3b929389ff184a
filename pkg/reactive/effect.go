package reactive

import (
	stderrors "errors"
	"strconv"

	"github.com/vango-dev/reactor/internal/errors"
)

// Cleanup is returned by an effect body. It runs before the next run and
// when the effect is disposed.
type Cleanup func()

// Effect runs a side-effecting function and re-runs it when anything it
// read changes.
type Effect struct {
	u    *Universe
	id   ID
	name string
	fn   func() Cleanup

	cleanup Cleanup
	unsubs  []func()

	active  bool
	running bool
	rerun   bool
	runs    int
}

// CreateEffect runs fn immediately and subscribes it to what it read.
// The returned error is any escalated error from the first run.
func (u *Universe) CreateEffect(fn func() Cleanup, opts ...Option) (*Effect, error) {
	o := applyOptions(opts)
	e := &Effect{
		u:      u,
		id:     nextID(),
		name:   o.name,
		fn:     fn,
		active: true,
	}
	if e.name == "" {
		e.name = string(KindEffect) + "#" + strconv.FormatUint(e.id, 10)
	}
	u.metrics.NodeCreated(string(KindEffect))
	return e, u.op(e.run)
}

// ID returns the effect id.
func (e *Effect) ID() ID { return e.id }

// Name returns the effect name.
func (e *Effect) Name() string { return e.name }

// Active reports whether the effect has not been disposed.
func (e *Effect) Active() bool { return e.active }

// Runs returns how many times the body has run.
func (e *Effect) Runs() int { return e.runs }

// Dispose stops the effect and runs the last cleanup. Runs already queued
// in a transaction become no-ops. Dispose is idempotent.
func (e *Effect) Dispose() {
	if !e.active {
		return
	}
	e.active = false
	e.teardown()
	if c := e.cleanup; c != nil && !e.running {
		e.cleanup = nil
		_ = e.guard(errors.CodeCleanupFailed, c)
	}
	e.u.metrics.NodeDisposed(string(KindEffect))
}

// run is the subscription handler. Notifications arriving while the body
// runs are coalesced into one more run.
func (e *Effect) run() error {
	if !e.active {
		return nil
	}
	if e.running {
		e.rerun = true
		return nil
	}
	e.running = true
	defer func() { e.running = false }()

	var errs []error
	for reruns := 0; ; reruns++ {
		e.rerun = false
		errs = append(errs, e.runOnce())
		if !e.rerun || !e.active {
			break
		}
		if reruns+1 >= e.u.maxEffectReruns {
			errs = append(errs, e.u.report(errors.New(errors.CodeEffectRunaway).
				WithAtom(e.name).
				WithDetailf("%s re-ran %d times in a row", e.name, reruns+1)))
			break
		}
	}
	if !e.active && e.cleanup != nil {
		// Disposed from inside its own body.
		c := e.cleanup
		e.cleanup = nil
		errs = append(errs, e.guard(errors.CodeCleanupFailed, c))
	}
	return stderrors.Join(errs...)
}

func (e *Effect) runOnce() error {
	u := e.u
	e.runs++
	u.metrics.RecordEffectRun()

	var errs []error
	if c := e.cleanup; c != nil {
		e.cleanup = nil
		errs = append(errs, e.guard(errors.CodeCleanupFailed, c))
	}

	var next Cleanup
	deps, err := u.graph.WithTracking(0, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.FromPanic(errors.CodeEffectFailed, r).WithAtom(e.name)
			}
		}()
		next = e.fn()
		return nil
	})
	if err != nil {
		errs = append(errs, u.reportErr(err, errors.CodeEffectFailed))
	}
	e.cleanup = next

	e.teardown()
	if e.active {
		unsubs, err := u.subscribeDeps(e.id, deps, e.run)
		e.unsubs = unsubs
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}

func (e *Effect) teardown() {
	for _, un := range e.unsubs {
		_ = e.guard(errors.CodeEffectFailed, un)
	}
	e.unsubs = nil
}

// guard runs fn, reporting a panic under code.
func (e *Effect) guard(code string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = e.u.report(errors.FromPanic(code, r).WithAtom(e.name))
		}
	}()
	fn()
	return nil
}
