package reactive

import (
	stderrors "errors"
	"log/slog"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/reactor/internal/batch"
	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/internal/graph"
	"github.com/vango-dev/reactor/internal/metrics"
)

// TracerName is the instrumentation name used for transaction spans.
const TracerName = "github.com/vango-dev/reactor"

// DefaultMaxEffectReruns bounds how often an effect re-runs because of its
// own writes before the loop is reported and stopped.
const DefaultMaxEffectReruns = 100

// Universe is an independent reactive world: dependency graph, registry,
// batch scheduler, deferred queue, error sink and instrumentation.
//
// A Universe is not safe for concurrent use.
type Universe struct {
	graph    *graph.Graph
	sched    *batch.Scheduler
	registry map[ID]State

	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer

	observers []*observer

	// microtasks holds deferred flushes; drained when the outermost
	// operation returns.
	microtasks []func() error
	ops        int
	writes     uint64

	owner          uint64
	checkGoroutine bool

	retrackEvery    int
	maxEffectReruns int
}

// UniverseOption configures a Universe.
type UniverseOption func(*universeConfig)

type universeConfig struct {
	logger          *slog.Logger
	sink            Sink
	registerer      prometheus.Registerer
	namespace       string
	tracer          trace.Tracer
	checkGoroutine  bool
	retrackEvery    int
	maxEffectReruns int
}

// WithLogger sets the logger used by the default sink and named
// transactions.
func WithLogger(logger *slog.Logger) UniverseOption {
	return func(c *universeConfig) { c.logger = logger }
}

// WithSink replaces the default error sink.
func WithSink(sink Sink) UniverseOption {
	return func(c *universeConfig) { c.sink = sink }
}

// WithPrometheus registers the engine metrics with reg. Without it no
// metrics are recorded.
func WithPrometheus(reg prometheus.Registerer) UniverseOption {
	return func(c *universeConfig) { c.registerer = reg }
}

// WithMetricsNamespace sets the metrics namespace (default "reactor").
func WithMetricsNamespace(ns string) UniverseOption {
	return func(c *universeConfig) { c.namespace = ns }
}

// WithTracer sets the tracer for named transactions. The default comes from
// the global otel tracer provider.
func WithTracer(t trace.Tracer) UniverseOption {
	return func(c *universeConfig) { c.tracer = t }
}

// WithGoroutineCheck makes operations from a goroutine other than the one
// that created the universe fail with ErrForeignGoroutine.
func WithGoroutineCheck() UniverseOption {
	return func(c *universeConfig) { c.checkGoroutine = true }
}

// WithRetrackEvery sets the default re-tracking cadence of derived values.
func WithRetrackEvery(n int) UniverseOption {
	return func(c *universeConfig) { c.retrackEvery = n }
}

// WithMaxEffectReruns sets the coalesced re-run limit for effects.
func WithMaxEffectReruns(n int) UniverseOption {
	return func(c *universeConfig) { c.maxEffectReruns = n }
}

// New creates a universe.
func New(opts ...UniverseOption) *Universe {
	cfg := universeConfig{
		retrackEvery:    1,
		maxEffectReruns: DefaultMaxEffectReruns,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.sink == nil {
		cfg.sink = errors.NewDefaultSink(cfg.logger)
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(TracerName)
	}
	if cfg.retrackEvery < 1 {
		cfg.retrackEvery = 1
	}
	if cfg.maxEffectReruns < 1 {
		cfg.maxEffectReruns = DefaultMaxEffectReruns
	}

	u := &Universe{
		graph:           graph.New(),
		registry:        make(map[ID]State),
		sink:            cfg.sink,
		logger:          cfg.logger,
		tracer:          cfg.tracer,
		owner:           goroutineID(),
		checkGoroutine:  cfg.checkGoroutine,
		retrackEvery:    cfg.retrackEvery,
		maxEffectReruns: cfg.maxEffectReruns,
	}
	if cfg.registerer != nil {
		mopts := []metrics.Option{metrics.WithRegistry(cfg.registerer)}
		if cfg.namespace != "" {
			mopts = append(mopts, metrics.WithNamespace(cfg.namespace))
		}
		u.metrics = metrics.New(mopts...)
	}
	u.sched = batch.New(
		batch.WithDefer(u.enqueue),
		batch.WithReporter(u.report),
		batch.WithFlushHook(u.metrics.RecordFlush),
	)
	return u
}

// Logger returns the universe logger.
func (u *Universe) Logger() *slog.Logger { return u.logger }

// Batching reports whether a transaction is open.
func (u *Universe) Batching() bool { return u.sched.Batching() }

// Lookup returns the atom or derived value registered under id.
func (u *Universe) Lookup(id ID) (State, error) {
	st, ok := u.registry[id]
	if !ok {
		return nil, errors.Newf(errors.CodeMissingAtom, "no atom with id #%d", id)
	}
	return st, nil
}

// States returns every live atom and derived value ordered by id.
func (u *Universe) States() []State {
	out := make([]State, 0, len(u.registry))
	for _, st := range u.registry {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Dependencies returns the ids a derived value read on its last tracked
// computation.
func (u *Universe) Dependencies(id ID) []ID {
	return u.graph.Dependencies(id)
}

// Dependents returns the ids of derived values that read id.
func (u *Universe) Dependents(id ID) []ID {
	return u.graph.Dependents(id)
}

// Untracked runs fn without recording dependencies.
func (u *Universe) Untracked(fn func()) {
	u.graph.Untracked(fn)
}

// Schedule queues fn for the next flush. Inside a transaction it runs when
// the outermost transaction exits; otherwise once the current operation
// returns. Scheduling the same pending fn value twice is not deduplicated.
func (u *Universe) Schedule(fn func()) error {
	if fn == nil {
		return nil
	}
	return u.op(func() error {
		u.sched.Schedule(batch.Task{
			Key: batch.Key{Sub: nextID()},
			Run: func() error { fn(); return nil },
		})
		return nil
	})
}

// Flush runs every deferred flush now.
func (u *Universe) Flush() error {
	return u.op(u.drain)
}

// op brackets a public operation. When the outermost one returns outside
// a transaction the deferred queue is drained.
func (u *Universe) op(fn func() error) (err error) {
	if u.checkGoroutine && goroutineID() != u.owner {
		e := errors.New(errors.CodeForeignGoroutine)
		u.metrics.RecordError(e)
		return e
	}
	u.ops++
	done := false
	defer func() {
		u.ops--
		if done && u.ops == 0 && !u.sched.Batching() {
			err = stderrors.Join(err, u.drain())
		}
	}()
	err = fn()
	done = true
	return err
}

func (u *Universe) enqueue(flush func() error) {
	u.microtasks = append(u.microtasks, flush)
}

func (u *Universe) drain() error {
	var errs []error
	for len(u.microtasks) > 0 {
		queue := u.microtasks
		u.microtasks = nil
		for _, task := range queue {
			errs = append(errs, task())
		}
	}
	return stderrors.Join(errs...)
}

// report records e and hands it to the sink. The result is the error to
// escalate, if any.
func (u *Universe) report(e *errors.Error) error {
	if e == nil {
		return nil
	}
	u.metrics.RecordError(e)
	return u.sink.Report(e)
}

// reportErr reports err as an *Error, wrapping foreign errors in code.
func (u *Universe) reportErr(err error, code string) error {
	if err == nil {
		return nil
	}
	var re *errors.Error
	if !stderrors.As(err, &re) {
		re = errors.FromError(err, code)
	}
	return u.report(re)
}
