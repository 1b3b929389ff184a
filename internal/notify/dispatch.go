package notify

import (
	stderrors "errors"

	"github.com/vango-dev/reactor/internal/batch"
	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/path"
)

// Match returns the subscriptions affected by changed, whole-value
// subscribers first, each owner at most once.
//
// A path subscription matches when its path is the root, a changed path or
// a proper prefix of one, or when it is a descendant of a changed path.
func (s *Subscriptions) Match(changed []path.Path) []batch.Task {
	entries := s.match(changed)
	tasks := make([]batch.Task, len(entries))
	for i, e := range entries {
		tasks[i] = batch.Task{Key: e.key, Run: e.run}
	}
	return tasks
}

func (s *Subscriptions) match(changed []path.Path) []*entry {
	if len(changed) == 0 || s.Empty() {
		return nil
	}

	affected := make(map[string]bool, len(changed)*2+1)
	affected[path.Root.Key()] = true
	for _, c := range changed {
		affected[c.Key()] = true
		for _, pre := range path.Prefixes(c) {
			affected[pre.Key()] = true
		}
	}

	var out []*entry
	seen := make(map[batch.Key]bool)
	add := func(e *entry) {
		if !e.active || seen[e.key] {
			return
		}
		seen[e.key] = true
		out = append(out, e)
	}

	for _, e := range s.global {
		add(e)
	}
	for _, k := range s.order {
		pe := s.byPath[k]
		if !affected[k] && !relatedToAny(pe.path, changed) {
			continue
		}
		for _, e := range pe.entries {
			add(e)
		}
	}
	return out
}

func relatedToAny(p path.Path, changed []path.Path) bool {
	for _, c := range changed {
		if path.IsRelated(p, c) {
			return true
		}
	}
	return false
}

// run skips entries unsubscribed after they were queued.
func (e *entry) run() error {
	if !e.active {
		return nil
	}
	return e.fn()
}

// Dispatch notifies the subscriptions matching changed and returns how many
// handlers were invoked or queued. Outside a batch the handlers run inline;
// inside one, or during its flush, they are handed to sched, except eager
// ones which always run inline. Panics are reported through report with code R060 and never stop
// sibling handlers. The returned error joins every escalated error.
func Dispatch(changed []path.Path, subs *Subscriptions, sched *batch.Scheduler, report batch.Reporter) (int, error) {
	entries := subs.match(changed)
	if len(entries) == 0 {
		return 0, nil
	}

	batching := sched != nil && sched.Deferring()
	var errs []error
	for _, e := range entries {
		if batching && !e.eager {
			run := e.run
			sched.Schedule(batch.Task{Key: e.key, Run: func() error {
				return guard(run, report)
			}})
			continue
		}
		if err := guard(e.run, report); err != nil {
			errs = append(errs, err)
		}
	}
	return len(entries), stderrors.Join(errs...)
}

func guard(run func() error, report batch.Reporter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e := errors.FromPanic(errors.CodeSubscriber, r)
			if report != nil {
				err = report(e)
			} else if e.Fatal() {
				err = e
			}
		}
	}()
	return run()
}
