package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/history"
	"github.com/vango-dev/reactor/pkg/path"
	"github.com/vango-dev/reactor/pkg/reactive"
	"github.com/vango-dev/reactor/pkg/value"
)

// Result summarizes a run.
type Result struct {
	Steps        int
	Expectations int
	Effects      map[string]int
}

// Env is what a run created. The caller can keep serving it after Run
// returns, e.g. through devtools.
type Env struct {
	States    map[string]reactive.State
	Histories map[string]*history.History
	Effects   map[string]*reactive.Effect
}

// Close disposes the effects and stops the histories.
func (e *Env) Close() {
	for _, eff := range e.Effects {
		eff.Dispose()
	}
	for _, h := range e.Histories {
		h.Close()
	}
}

type runner struct {
	ctx     context.Context
	u       *reactive.Universe
	w       io.Writer
	env     *Env
	result  *Result
	history []history.Option
}

// Option configures a run.
type Option func(*runner)

// WithHistoryLimit bounds the snapshots kept per tracked atom.
func WithHistoryLimit(n int) Option {
	return func(r *runner) {
		r.history = append(r.history, history.WithLimit(n))
	}
}

// Run executes sc in u and writes an event log to w. It stops at the first
// failed expectation, returned as a scenario error.
func Run(ctx context.Context, sc *Scenario, u *reactive.Universe, w io.Writer, opts ...Option) (*Result, error) {
	env, res, err := Start(ctx, sc, u, w, opts...)
	if env != nil {
		env.Close()
	}
	return res, err
}

// Start is Run without tearing down: the returned Env stays live.
func Start(ctx context.Context, sc *Scenario, u *reactive.Universe, w io.Writer, opts ...Option) (*Env, *Result, error) {
	r := &runner{
		ctx: ctx,
		u:   u,
		w:   w,
		env: &Env{
			States:    make(map[string]reactive.State),
			Histories: make(map[string]*history.History),
			Effects:   make(map[string]*reactive.Effect),
		},
		result: &Result{Effects: make(map[string]int)},
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.setup(sc); err != nil {
		return r.env, r.result, err
	}
	if err := r.steps(sc.Steps); err != nil {
		return r.env, r.result, err
	}
	for name, eff := range r.env.Effects {
		r.result.Effects[name] = eff.Runs()
	}
	r.logf("ok %s: %d steps, %d expectations", sc.Name, r.result.Steps, r.result.Expectations)
	return r.env, r.result, nil
}

func (r *runner) setup(sc *Scenario) error {
	for _, a := range sc.Atoms {
		var opts []reactive.Option
		opts = append(opts, reactive.Name(a.Name))
		if a.Devtools {
			opts = append(opts, reactive.Devtools())
		}
		r.env.States[a.Name] = r.u.CreateAtom(a.Value, opts...)
		r.logf("atom %s = %s", a.Name, encode(r.env.States[a.Name].Peek()))
	}

	for _, d := range sc.Derived {
		src, p := r.env.States[d.Source], path.Parse(d.Path)
		opts := []reactive.Option{reactive.Name(d.Name)}
		if d.Devtools {
			opts = append(opts, reactive.Devtools())
		}
		dv, err := r.u.CreateDerived(func() any { return project(src, p) }, opts...)
		if err != nil {
			return err
		}
		r.env.States[d.Name] = dv
		r.logf("derived %s = %s", d.Name, encode(dv.Peek()))
	}

	for _, e := range sc.Effects {
		src, p, name := r.env.States[e.Source], path.Parse(e.Path), e.Name
		eff, err := r.u.CreateEffect(func() reactive.Cleanup {
			r.logf("effect %s: %s", name, encode(project(src, p)))
			return nil
		}, reactive.Name(name))
		if err != nil {
			return err
		}
		r.env.Effects[name] = eff
	}

	for _, name := range sc.History {
		r.env.Histories[name] = history.New(r.env.States[name], r.history...)
	}
	return nil
}

// project reads p of src; an unresolvable path panics so that derived
// values report it and keep their previous value.
func project(src reactive.State, p path.Path) any {
	v, err := read(src, p)
	if err != nil {
		panic(err)
	}
	return v
}

func read(src reactive.State, p path.Path) (any, error) {
	if p.IsRoot() {
		return src.Get(), nil
	}
	return src.GetPath(p)
}

func (r *runner) steps(steps []Step) error {
	for _, st := range steps {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		r.result.Steps++
		if err := r.step(st); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) step(st Step) error {
	switch {
	case st.Set != nil:
		s := st.Set
		r.logf("set %s%s = %s", s.Atom, suffix(s.Path), encode(s.Value))
		target, p := r.env.States[s.Atom], path.Parse(s.Path)
		if p.IsRoot() {
			return target.Set(s.Value)
		}
		return target.SetPath(p, s.Value)

	case st.Transaction != nil:
		r.logf("begin transaction")
		err := r.u.TransactionNamed(r.ctx, "scenario", func(context.Context) error {
			return r.steps(st.Transaction)
		})
		r.logf("end transaction")
		return err

	case st.Expect != nil:
		return r.expect(st.Expect)

	case st.Undo != "":
		ok, err := r.env.Histories[st.Undo].Undo()
		r.logf("undo %s: %v", st.Undo, ok)
		return err

	case st.Redo != "":
		ok, err := r.env.Histories[st.Redo].Redo()
		r.logf("redo %s: %v", st.Redo, ok)
		return err
	}
	return nil
}

func (r *runner) expect(e *ExpectStep) error {
	r.result.Expectations++
	got, err := read(r.env.States[e.Atom], path.Parse(e.Path))
	if err != nil {
		return errors.New(errors.CodeScenarioExpect).
			WithAtom(e.Atom).
			WithPath(path.Parse(e.Path)).
			Wrap(err)
	}
	want := value.Freeze(e.Value)
	if !value.Equal(got, want) {
		return errors.New(errors.CodeScenarioExpect).
			WithAtom(e.Atom).
			WithPath(path.Parse(e.Path)).
			WithDetailf("%s%s = %s, want %s", e.Atom, suffix(e.Path), encode(got), encode(want))
	}
	r.logf("expect %s%s = %s: ok", e.Atom, suffix(e.Path), encode(got))
	return nil
}

func (r *runner) logf(format string, args ...any) {
	if r.w != nil {
		fmt.Fprintf(r.w, format+"\n", args...)
	}
}

func suffix(p string) string {
	if p == "" {
		return ""
	}
	return "." + p
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
