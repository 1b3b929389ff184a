package reactive

import (
	"io"
	"log/slog"
	"testing"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/value"
)

func newTestUniverse(t *testing.T, opts ...UniverseOption) *Universe {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(append([]UniverseOption{WithLogger(logger)}, opts...)...)
}

// collecting returns a universe whose sink records reports and escalates
// like the default sink.
func collecting(t *testing.T, opts ...UniverseOption) (*Universe, *errors.Collector) {
	t.Helper()
	c := &errors.Collector{Escalate: true}
	return newTestUniverse(t, append([]UniverseOption{WithSink(c)}, opts...)...), c
}

func field(t *testing.T, v any, key string) any {
	t.Helper()
	m, ok := v.(*value.Map)
	if !ok {
		t.Fatalf("value %v is %T, want *value.Map", v, v)
	}
	return m.Value(key)
}
