package metrics

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/vango-dev/reactor/internal/errors"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg), WithNamespace("test"))

	c.NodeCreated("atom")
	c.NodeCreated("atom")
	c.NodeDisposed("atom")
	if got := gaugeValue(t, c.atoms.WithLabelValues("atom")); got != 1 {
		t.Errorf("atoms{atom} = %v, want 1", got)
	}

	c.RecordWrite("set", true)
	c.RecordWrite("set", false)
	c.RecordWrite("set", false)
	if got := counterValue(t, c.writes.WithLabelValues("set", "noop")); got != 2 {
		t.Errorf("writes{set,noop} = %v, want 2", got)
	}

	c.RecordNotifications(3)
	c.RecordNotifications(0)
	if got := counterValue(t, c.notifications); got != 3 {
		t.Errorf("notifications = %v, want 3", got)
	}

	c.RecordRecompute()
	c.RecordEffectRun()
	c.RecordFlush(4)
	if histogramCount(t, c.flushSize) != 1 {
		t.Error("flush histogram should have one sample")
	}

	c.RecordTransaction(time.Millisecond, nil)
	c.RecordTransaction(time.Millisecond, stderrors.New("x"))
	if got := counterValue(t, c.transactions.WithLabelValues("error")); got != 1 {
		t.Errorf("transactions{error} = %v, want 1", got)
	}
	if histogramCount(t, c.transactionDuration) != 2 {
		t.Error("transaction duration should have two samples")
	}

	c.RecordError(errors.New(errors.CodeCircular))
	if got := counterValue(t, c.errors.WithLabelValues(errors.CodeCircular, "fatal")); got != 1 {
		t.Errorf("errors{R030,fatal} = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "test_writes_total" {
			found = true
		}
	}
	if !found {
		t.Error("namespace should prefix registered metrics")
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.NodeCreated("atom")
	c.NodeDisposed("atom")
	c.RecordWrite("set", true)
	c.RecordNotifications(1)
	c.RecordRecompute()
	c.RecordEffectRun()
	c.RecordFlush(1)
	c.RecordTransaction(time.Second, nil)
	c.RecordError(errors.New(errors.CodeSubscriber))
}
