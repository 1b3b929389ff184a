package reactive

import (
	"time"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/path"
)

// EventType is the kind of a universe event.
type EventType string

const (
	EventCreated  EventType = "created"
	EventChanged  EventType = "changed"
	EventDisposed EventType = "disposed"
)

// Event describes a lifecycle change of an atom or derived value.
type Event struct {
	Type     EventType
	ID       ID
	Name     string
	Kind     Kind
	Paths    []path.Path
	Value    any
	Hash     string
	Devtools bool
	Time     time.Time
}

type observer struct {
	fn     func(Event)
	active bool
}

// Observe registers fn for every event of the universe. Observers run
// synchronously on the universe goroutine; a panicking observer is
// reported and skipped.
func (u *Universe) Observe(fn func(Event)) (unobserve func()) {
	o := &observer{fn: fn, active: true}
	u.observers = append(u.observers, o)
	return func() {
		if !o.active {
			return
		}
		o.active = false
		for i, x := range u.observers {
			if x == o {
				u.observers = append(u.observers[:i:i], u.observers[i+1:]...)
				break
			}
		}
	}
}

func (u *Universe) emit(typ EventType, c *cell, changed []path.Path) {
	if len(u.observers) == 0 {
		return
	}
	ev := Event{
		Type:     typ,
		ID:       c.id,
		Name:     c.name,
		Kind:     c.kind,
		Paths:    changed,
		Value:    c.node.Value(),
		Hash:     c.node.Hash(),
		Devtools: c.devtools,
		Time:     time.Now(),
	}
	for _, o := range append([]*observer(nil), u.observers...) {
		if o.active {
			u.notifyObserver(o, ev)
		}
	}
}

func (u *Universe) notifyObserver(o *observer, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			_ = u.report(errors.FromPanic(errors.CodeSubscriber, r).WithAtom(ev.Name))
		}
	}()
	o.fn(ev)
}
