// Package notify keeps the subscribers of one atom and dispatches change
// notifications to the ones affected by a set of changed paths.
package notify

import (
	"sync/atomic"

	"github.com/vango-dev/reactor/internal/batch"
	"github.com/vango-dev/reactor/pkg/path"
)

// Handler is invoked when a subscription matches. A returned error must
// escalate to the writer; panics are recovered and reported.
type Handler func() error

var subCounter uint64

// nextSub returns a process-unique key for a plain subscriber.
func nextSub() uint64 {
	return atomic.AddUint64(&subCounter, 1)
}

type entry struct {
	key    batch.Key
	fn     Handler
	active bool
	eager  bool
}

type pathEntries struct {
	path    path.Path
	entries []*entry
}

// Subscriptions holds the whole-value and path-scoped subscribers of one
// atom. It is not safe for concurrent use.
type Subscriptions struct {
	global []*entry
	byPath map[string]*pathEntries
	order  []string
}

// New returns an empty subscription table.
func New() *Subscriptions {
	return &Subscriptions{byPath: make(map[string]*pathEntries)}
}

// Subscribe registers fn for every change. Owner is the id of the derived
// value or effect that owns the subscription, or 0 for a plain subscriber.
// Subscriptions sharing a non-zero owner run at most once per dispatch.
func (s *Subscriptions) Subscribe(owner uint64, fn Handler, opts ...SubscribeOption) (unsubscribe func()) {
	e := newEntry(owner, fn, opts)
	s.global = append(s.global, e)
	return s.remover(e, func() {
		s.global = removeEntry(s.global, e)
	})
}

// SubscribePath registers fn for changes related to p. The root path is
// the same as Subscribe.
func (s *Subscriptions) SubscribePath(p path.Path, owner uint64, fn Handler, opts ...SubscribeOption) (unsubscribe func()) {
	if p.IsRoot() {
		return s.Subscribe(owner, fn, opts...)
	}
	e := newEntry(owner, fn, opts)
	k := p.Key()
	pe, ok := s.byPath[k]
	if !ok {
		pe = &pathEntries{path: p.Clone()}
		s.byPath[k] = pe
		s.order = append(s.order, k)
	}
	pe.entries = append(pe.entries, e)
	return s.remover(e, func() {
		pe.entries = removeEntry(pe.entries, e)
		if len(pe.entries) == 0 {
			delete(s.byPath, k)
			s.order = removeKey(s.order, k)
		}
	})
}

// Len returns the number of live subscriptions.
func (s *Subscriptions) Len() int {
	n := len(s.global)
	for _, pe := range s.byPath {
		n += len(pe.entries)
	}
	return n
}

// Empty reports whether there are no subscriptions.
func (s *Subscriptions) Empty() bool {
	return len(s.global) == 0 && len(s.byPath) == 0
}

// Paths returns the subscribed paths in first-subscription order.
func (s *Subscriptions) Paths() []path.Path {
	out := make([]path.Path, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byPath[k].path.Clone())
	}
	return out
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*entry)

// Eager makes the handler run inline even while a batch is open. Derived
// values use it to mark themselves dirty as soon as a source changes.
func Eager() SubscribeOption {
	return func(e *entry) { e.eager = true }
}

func newEntry(owner uint64, fn Handler, opts []SubscribeOption) *entry {
	key := batch.Key{Owner: owner}
	if owner == 0 {
		key.Sub = nextSub()
	}
	e := &entry{key: key, fn: fn, active: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// remover wraps detach into an idempotent unsubscribe that also deactivates
// the entry, so runs already queued in a batch become no-ops.
func (s *Subscriptions) remover(e *entry, detach func()) func() {
	return func() {
		if !e.active {
			return
		}
		e.active = false
		detach()
	}
}

func removeEntry(list []*entry, e *entry) []*entry {
	for i, x := range list {
		if x == e {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

func removeKey(list []string, k string) []string {
	for i, x := range list {
		if x == k {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
