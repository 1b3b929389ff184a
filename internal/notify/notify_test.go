package notify

import (
	"reflect"
	"sort"
	"testing"

	"github.com/vango-dev/reactor/internal/batch"
	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/path"
)

type recorder struct {
	calls []string
}

func (r *recorder) handler(name string) Handler {
	return func() error {
		r.calls = append(r.calls, name)
		return nil
	}
}

func (r *recorder) sorted() []string {
	out := append([]string(nil), r.calls...)
	sort.Strings(out)
	return out
}

func TestDispatchMatching(t *testing.T) {
	tests := []struct {
		name    string
		changed []string
		want    []string
	}{
		{"leaf change reaches ancestors", []string{"user.name"}, []string{"global", "user", "user.name"}},
		{"wholesale parent reaches descendants", []string{"user"}, []string{"deep", "global", "user", "user.name"}},
		{"unrelated branch", []string{"count"}, []string{"count", "global"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			s := New()
			s.Subscribe(0, r.handler("global"))
			s.SubscribePath(path.Parse("user"), 0, r.handler("user"))
			s.SubscribePath(path.Parse("user.name"), 0, r.handler("user.name"))
			s.SubscribePath(path.Parse("user.profile.name"), 0, r.handler("deep"))
			s.SubscribePath(path.Parse("count"), 0, r.handler("count"))

			var changed []path.Path
			for _, c := range tt.changed {
				changed = append(changed, path.Parse(c))
			}
			if _, err := Dispatch(changed, s, nil, nil); err != nil {
				t.Fatal(err)
			}
			if got := r.sorted(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("calls = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDispatchNoop(t *testing.T) {
	r := &recorder{}
	s := New()
	s.Subscribe(0, r.handler("g"))
	_, _ = Dispatch(nil, s, nil, nil)
	_, _ = Dispatch([]path.Path{path.Root}, New(), nil, nil)
	if len(r.calls) != 0 {
		t.Errorf("calls = %v, want none", r.calls)
	}
}

func TestOwnerDedupe(t *testing.T) {
	r := &recorder{}
	s := New()
	s.SubscribePath(path.Parse("a"), 7, r.handler("effect"))
	s.SubscribePath(path.Parse("b"), 7, r.handler("effect"))
	_, _ = Dispatch([]path.Path{path.Parse("a"), path.Parse("b")}, s, nil, nil)
	if len(r.calls) != 1 {
		t.Errorf("owner ran %d times, want 1", len(r.calls))
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	r := &recorder{}
	s := New()
	un := s.SubscribePath(path.Parse("a"), 0, r.handler("a"))
	s.Subscribe(0, r.handler("g"))
	un()
	un()
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if len(s.Paths()) != 0 {
		t.Errorf("Paths() = %v, want none", s.Paths())
	}
	_, _ = Dispatch([]path.Path{path.Parse("a")}, s, nil, nil)
	if !reflect.DeepEqual(r.calls, []string{"g"}) {
		t.Errorf("calls = %v", r.calls)
	}
}

func TestDispatchInBatch(t *testing.T) {
	r := &recorder{}
	s := New()
	un := s.Subscribe(0, r.handler("g"))
	s.SubscribePath(path.Parse("x"), 0, r.handler("x"))
	sched := batch.New()

	_ = sched.ExecuteBatch(func() error {
		for i := 0; i < 3; i++ {
			_, _ = Dispatch([]path.Path{path.Parse("x")}, s, sched, nil)
		}
		if len(r.calls) != 0 {
			t.Error("dispatch inside a batch must be deferred")
		}
		return nil
	})
	if got := r.sorted(); !reflect.DeepEqual(got, []string{"g", "x"}) {
		t.Errorf("calls = %v, want one each", got)
	}

	r.calls = nil
	_ = sched.ExecuteBatch(func() error {
		_, _ = Dispatch([]path.Path{path.Root}, s, sched, nil)
		un()
		return nil
	})
	if !reflect.DeepEqual(r.calls, []string{"x"}) {
		t.Errorf("calls = %v, unsubscribed handler must not run from the queue", r.calls)
	}
}

func TestPanickingHandlerIsReported(t *testing.T) {
	c := &errors.Collector{}
	r := &recorder{}
	s := New()
	s.Subscribe(0, func() error { panic("bad") })
	s.Subscribe(0, r.handler("after"))

	if _, err := Dispatch([]path.Path{path.Root}, s, nil, c.Report); err != nil {
		t.Errorf("recoverable panic escalated: %v", err)
	}
	if !reflect.DeepEqual(r.calls, []string{"after"}) {
		t.Errorf("sibling handler should run, calls = %v", r.calls)
	}
	if got := c.Codes(); !reflect.DeepEqual(got, []string{errors.CodeSubscriber}) {
		t.Errorf("reported = %v", got)
	}
}

func TestHandlerEscalation(t *testing.T) {
	fatal := errors.New(errors.CodeCircular)
	s := New()
	s.Subscribe(3, func() error { return fatal })
	_, err := Dispatch([]path.Path{path.Root}, s, nil, nil)
	if err == nil {
		t.Error("returned handler error should escalate")
	}
}

func TestEagerRunsInsideBatch(t *testing.T) {
	r := &recorder{}
	s := New()
	s.Subscribe(4, r.handler("eager"), Eager())
	s.Subscribe(0, r.handler("lazy"))
	sched := batch.New()

	_ = sched.ExecuteBatch(func() error {
		n, _ := Dispatch([]path.Path{path.Root}, s, sched, nil)
		if n != 2 {
			t.Errorf("Dispatch() = %d, want 2", n)
		}
		if !reflect.DeepEqual(r.calls, []string{"eager"}) {
			t.Errorf("calls inside batch = %v, want [eager]", r.calls)
		}
		return nil
	})
	if !reflect.DeepEqual(r.calls, []string{"eager", "lazy"}) {
		t.Errorf("calls = %v", r.calls)
	}
}

func TestMatchTasks(t *testing.T) {
	s := New()
	s.SubscribePath(path.Parse("a.b"), 0, func() error { return nil })
	if got := len(s.Match([]path.Path{path.Parse("a")})); got != 1 {
		t.Errorf("Match() = %d tasks, want 1", got)
	}
	if got := len(s.Match([]path.Path{path.Parse("c")})); got != 0 {
		t.Errorf("Match() = %d tasks, want 0", got)
	}
}

func TestEmptySegmentIsNotRoot(t *testing.T) {
	r := &recorder{}
	s := New()
	s.SubscribePath(path.Path{""}, 0, r.handler("empty"))

	if _, err := Dispatch([]path.Path{path.Parse("b")}, s, nil, nil); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 0 {
		t.Errorf("unrelated write reached the empty-key subscriber: %v", r.calls)
	}

	if _, err := Dispatch([]path.Path{{""}}, s, nil, nil); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r.calls, []string{"empty"}) {
		t.Errorf("calls = %v, want [empty]", r.calls)
	}
}
