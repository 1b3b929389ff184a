package scenario

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/reactive"
)

const cartScenario = `
name: cart
atoms:
  - name: cart
    value: {items: [], total: 0}
    devtools: true
derived:
  - name: total
    source: cart
    path: total
effects:
  - name: log-total
    source: total
history: [cart]
steps:
  - set: {atom: cart, path: total, value: 5}
  - transaction:
      - set: {atom: cart, path: total, value: 6}
      - set: {atom: cart, path: total, value: 7}
  - expect: {atom: total, value: 7}
  - set: {atom: cart, path: items.0, value: {sku: a1, qty: 2}}
  - expect: {atom: cart, path: items, value: [{sku: a1, qty: 2}]}
  - undo: cart
  - expect: {atom: total, value: 7}
  - undo: cart
  - expect: {atom: total, value: 5}
  - redo: cart
  - expect: {atom: cart, path: total, value: 7}
`

func newUniverse() *reactive.Universe {
	return reactive.New(reactive.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestRunCartScenario(t *testing.T) {
	sc, err := Parse([]byte(cartScenario))
	if err != nil {
		t.Fatal(err)
	}

	var log bytes.Buffer
	res, err := Run(context.Background(), sc, newUniverse(), &log)
	if err != nil {
		t.Fatalf("Run() error: %v\nlog:\n%s", err, log.String())
	}
	if res.Steps != 13 || res.Expectations != 5 {
		t.Errorf("Steps=%d Expectations=%d, want 13 and 5", res.Steps, res.Expectations)
	}
	// initial, 5, the transaction once, then undo to 5 and redo to 7
	if got := res.Effects["log-total"]; got != 5 {
		t.Errorf("effect runs = %d, want 5", got)
	}
	for _, want := range []string{
		"atom cart = {\"items\":[],\"total\":0}",
		"effect log-total: 7",
		"expect total = 7: ok",
		"undo cart: true",
		"ok cart: 13 steps, 5 expectations",
	} {
		if !strings.Contains(log.String(), want) {
			t.Errorf("log missing %q:\n%s", want, log.String())
		}
	}
}

func TestFailedExpectation(t *testing.T) {
	sc, err := Parse([]byte(`
atoms:
  - name: n
    value: 1
steps:
  - set: {atom: n, value: 2}
  - expect: {atom: n, value: 3}
  - set: {atom: n, value: 4}
`))
	if err != nil {
		t.Fatal(err)
	}
	u := newUniverse()
	res, err := Run(context.Background(), sc, u, nil)
	if !stderrors.Is(err, errors.New(errors.CodeScenarioExpect)) {
		t.Fatalf("err = %v, want scenario expectation error", err)
	}
	var re *errors.Error
	if stderrors.As(err, &re) && !strings.Contains(re.Detail, "want 3") {
		t.Errorf("Detail = %q", re.Detail)
	}
	if res.Steps != 2 {
		t.Errorf("Steps = %d, run must stop at the failed expectation", res.Steps)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bad yaml", "atoms: [\n"},
		{"unnamed atom", "atoms:\n  - value: 1\n"},
		{"duplicate", "atoms:\n  - name: a\n  - name: a\n"},
		{"unknown source", "derived:\n  - name: d\n    source: nope\n"},
		{"unknown effect source", "effects:\n  - name: e\n    source: nope\n"},
		{"history of unknown", "history: [nope]\n"},
		{"set unknown", "steps:\n  - set: {atom: nope, value: 1}\n"},
		{"two actions", "atoms:\n  - name: a\nhistory: [a]\nsteps:\n  - undo: a\n    redo: a\n"},
		{"no action", "steps:\n  - {}\n"},
		{"undo without history", "atoms:\n  - name: a\nsteps:\n  - undo: a\n"},
		{"set on derived", "atoms:\n  - name: a\nderived:\n  - name: d\n    source: a\nsteps:\n  - set: {atom: d, value: 1}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			if !stderrors.Is(err, errors.New(errors.CodeScenarioParse)) {
				t.Errorf("err = %v, want scenario parse error", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cart.yaml")
	if err := os.WriteFile(file, []byte("atoms:\n  - name: a\n    value: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	sc, err := Load(file)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != file || len(sc.Atoms) != 1 {
		t.Errorf("scenario = %+v", sc)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); !stderrors.Is(err, errors.New(errors.CodeScenarioParse)) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestRunHonorsContext(t *testing.T) {
	sc, _ := Parse([]byte("atoms:\n  - name: a\n    value: 1\nsteps:\n  - set: {atom: a, value: 2}\n"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, sc, newUniverse(), nil); !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestWithHistoryLimit(t *testing.T) {
	sc, err := Parse([]byte(`
atoms:
  - name: n
    value: 0
history: [n]
steps:
  - set: {atom: n, value: 1}
  - set: {atom: n, value: 2}
  - undo: n
  - undo: n
  - expect: {atom: n, value: 1}
`))
	if err != nil {
		t.Fatal(err)
	}
	var log bytes.Buffer
	if _, err := Run(context.Background(), sc, newUniverse(), &log, WithHistoryLimit(2)); err != nil {
		t.Fatalf("Run() error: %v\n%s", err, log.String())
	}
	if !strings.Contains(log.String(), "undo n: false") {
		t.Errorf("second undo should be a no-op with a limit of 2:\n%s", log.String())
	}
}

func TestUndoInsideTransactionKeepsRedo(t *testing.T) {
	sc, err := Parse([]byte(`
atoms:
  - name: n
    value: 0
history: [n]
steps:
  - set: {atom: n, value: 1}
  - set: {atom: n, value: 2}
  - transaction:
      - undo: n
  - expect: {atom: n, value: 1}
  - redo: n
  - expect: {atom: n, value: 2}
`))
	if err != nil {
		t.Fatal(err)
	}
	var log bytes.Buffer
	if _, err := Run(context.Background(), sc, newUniverse(), &log); err != nil {
		t.Fatalf("Run() error: %v\n%s", err, log.String())
	}
	if !strings.Contains(log.String(), "redo n: true") {
		t.Errorf("redo after a batched undo should succeed:\n%s", log.String())
	}
}
