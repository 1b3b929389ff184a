// Package batch implements the reentrant batch scheduler.
//
// Work scheduled while a batch is open is collected into one ordered,
// deduplicated pending set and run when the outermost batch exits. Work
// scheduled outside a batch is flushed through a deferred callback so that
// several schedules in the same synchronous stretch coalesce into one pass.
package batch

import (
	stderrors "errors"

	"github.com/vango-dev/reactor/internal/errors"
)

// MaxFlushPasses bounds how many times a flush may restart because tasks
// scheduled more tasks.
const MaxFlushPasses = 100

// Key deduplicates pending tasks. Tasks owned by a derived value or an
// effect use the owner's id with Sub 0; plain subscribers use Owner 0 and a
// unique Sub.
type Key struct {
	Owner uint64
	Sub   uint64
}

// Task is one unit of pending work. Run returns only errors that must
// escalate; everything else is reported by the task itself.
type Task struct {
	Key Key
	Run func() error
}

// Reporter receives errors caught while flushing and returns the ones that
// must escalate.
type Reporter func(err *errors.Error) error

// Scheduler is not safe for concurrent use.
type Scheduler struct {
	depth    int
	pending  []Task
	index    map[Key]int
	upcoming map[Key]bool
	flushing bool
	queued   bool

	deferFn func(func() error)
	report  Reporter
	onFlush func(tasks int)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDefer sets the function used to queue a flush outside a batch.
// Without it such flushes run synchronously.
func WithDefer(fn func(func() error)) Option {
	return func(s *Scheduler) { s.deferFn = fn }
}

// WithReporter sets where panics from tasks are reported.
func WithReporter(r Reporter) Option {
	return func(s *Scheduler) { s.report = r }
}

// WithFlushHook registers fn to observe the size of every flush pass.
func WithFlushHook(fn func(tasks int)) Option {
	return func(s *Scheduler) { s.onFlush = fn }
}

// New creates a scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{index: make(map[Key]int)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Batching reports whether a batch is open.
func (s *Scheduler) Batching() bool { return s.depth > 0 }

// Deferring reports whether scheduled tasks will run later in the current
// batch or flush rather than needing a flush of their own.
func (s *Scheduler) Deferring() bool { return s.depth > 0 || s.flushing }

// Depth returns the batch nesting depth.
func (s *Scheduler) Depth() int { return s.depth }

// Pending returns the number of tasks waiting to run.
func (s *Scheduler) Pending() int { return len(s.pending) }

// Schedule adds t to the pending set. A task whose key is already pending,
// or still to run in the current flush pass, is dropped; the first
// schedule keeps its position. Tasks without a Run func are ignored.
func (s *Scheduler) Schedule(t Task) {
	if t.Run == nil {
		return
	}
	if _, ok := s.index[t.Key]; ok || s.upcoming[t.Key] {
		return
	}
	s.index[t.Key] = len(s.pending)
	s.pending = append(s.pending, t)

	if s.depth == 0 && !s.flushing && !s.queued {
		s.queued = true
		if s.deferFn == nil {
			s.queued = false
			_ = s.Flush()
			return
		}
		s.deferFn(func() error {
			s.queued = false
			return s.Flush()
		})
	}
}

// ExecuteBatch runs fn with the batch depth raised. When the outermost batch
// exits, pending tasks are flushed before fn's error is returned or its
// panic is re-raised.
func (s *Scheduler) ExecuteBatch(fn func() error) (err error) {
	s.depth++
	panicked := true
	defer func() {
		s.depth--
		if s.depth > 0 {
			return
		}
		flushErr := s.Flush()
		if panicked {
			if r := recover(); r != nil {
				panic(r)
			}
		}
		err = stderrors.Join(err, flushErr)
	}()

	err = fn()
	panicked = false
	return err
}

// Flush runs pending tasks in schedule order until none remain. Tasks
// scheduled during a pass run in a following pass.
func (s *Scheduler) Flush() error {
	if s.flushing {
		return nil
	}
	s.flushing = true
	defer func() {
		s.flushing = false
		s.upcoming = nil
	}()

	var errs []error
	for pass := 0; len(s.pending) > 0; pass++ {
		if pass == MaxFlushPasses {
			dropped := len(s.pending)
			s.pending = nil
			s.index = make(map[Key]int)
			if err := s.reportErr(errors.New(errors.CodeEffectRunaway).
				WithDetailf("flush did not settle after %d passes, %d tasks dropped", MaxFlushPasses, dropped)); err != nil {
				errs = append(errs, err)
			}
			break
		}

		tasks := s.pending
		s.pending = nil
		s.index = make(map[Key]int)
		s.upcoming = make(map[Key]bool, len(tasks))
		for _, t := range tasks {
			s.upcoming[t.Key] = true
		}
		if s.onFlush != nil {
			s.onFlush(len(tasks))
		}
		for _, t := range tasks {
			delete(s.upcoming, t.Key)
			if err := s.run(t); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return stderrors.Join(errs...)
}

func (s *Scheduler) run(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = s.reportErr(errors.FromPanic(errors.CodeEffectFailed, r))
		}
	}()
	return t.Run()
}

func (s *Scheduler) reportErr(e *errors.Error) error {
	if s.report == nil {
		if e.Fatal() {
			return e
		}
		return nil
	}
	return s.report(e)
}
