// Package metrics exposes Prometheus instrumentation for a reactive universe.
//
// A nil *Collector is valid and records nothing, so the engine can call the
// recording methods unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/reactor/internal/errors"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "reactor").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for transaction duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the transaction duration buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "reactor",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector holds the engine metrics.
type Collector struct {
	atoms               *prometheus.GaugeVec
	writes              *prometheus.CounterVec
	notifications       prometheus.Counter
	recomputes          prometheus.Counter
	effectRuns          prometheus.Counter
	flushSize           prometheus.Histogram
	transactions        *prometheus.CounterVec
	transactionDuration prometheus.Histogram
	errors              *prometheus.CounterVec
}

// New registers the engine metrics and returns the collector.
//
// Metrics collected:
//   - reactor_atoms: Gauge of live atoms by kind (atom, derived, effect)
//   - reactor_writes_total: Counter of writes by op and result (changed, noop)
//   - reactor_notifications_total: Counter of subscriber invocations
//   - reactor_recomputes_total: Counter of derived recomputations
//   - reactor_effect_runs_total: Counter of effect runs
//   - reactor_flush_tasks: Histogram of tasks per batch flush pass
//   - reactor_transactions_total: Counter of transactions by status
//   - reactor_transaction_duration_seconds: Histogram of transaction duration
//   - reactor_errors_total: Counter of reported errors by code and severity
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		atoms: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "atoms",
			Help:        "Number of live reactive nodes",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "writes_total",
			Help:        "Total number of atom writes",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "result"}),

		notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of subscriber notifications",
			ConstLabels: config.ConstLabels,
		}),

		recomputes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recomputes_total",
			Help:        "Total number of derived value recomputations",
			ConstLabels: config.ConstLabels,
		}),

		effectRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total number of effect runs",
			ConstLabels: config.ConstLabels,
		}),

		flushSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_tasks",
			Help:        "Tasks run per batch flush pass",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),

		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transactions_total",
			Help:        "Total number of transactions",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		transactionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transaction_duration_seconds",
			Help:        "Transaction duration in seconds, flush included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "errors_total",
			Help:        "Total number of reported engine errors",
			ConstLabels: config.ConstLabels,
		}, []string{"code", "severity"}),
	}
}

// NodeCreated records a new atom, derived value or effect.
func (c *Collector) NodeCreated(kind string) {
	if c != nil {
		c.atoms.WithLabelValues(kind).Inc()
	}
}

// NodeDisposed records a disposed node.
func (c *Collector) NodeDisposed(kind string) {
	if c != nil {
		c.atoms.WithLabelValues(kind).Dec()
	}
}

// RecordWrite records a write through op ("set", "update", "set_path").
func (c *Collector) RecordWrite(op string, changed bool) {
	if c == nil {
		return
	}
	result := "noop"
	if changed {
		result = "changed"
	}
	c.writes.WithLabelValues(op, result).Inc()
}

// RecordNotifications records n subscriber invocations.
func (c *Collector) RecordNotifications(n int) {
	if c != nil && n > 0 {
		c.notifications.Add(float64(n))
	}
}

// RecordRecompute records one derived recomputation.
func (c *Collector) RecordRecompute() {
	if c != nil {
		c.recomputes.Inc()
	}
}

// RecordEffectRun records one effect run.
func (c *Collector) RecordEffectRun() {
	if c != nil {
		c.effectRuns.Inc()
	}
}

// RecordFlush records the size of one flush pass.
func (c *Collector) RecordFlush(tasks int) {
	if c != nil {
		c.flushSize.Observe(float64(tasks))
	}
}

// RecordTransaction records a finished outermost transaction.
func (c *Collector) RecordTransaction(d time.Duration, err error) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.transactions.WithLabelValues(status).Inc()
	c.transactionDuration.Observe(d.Seconds())
}

// RecordError records a reported engine error.
func (c *Collector) RecordError(e *errors.Error) {
	if c == nil || e == nil {
		return
	}
	c.errors.WithLabelValues(e.Code, string(e.Severity)).Inc()
}
