// Package history keeps a bounded undo/redo history of a reactive value.
//
// It only needs Get, Set and Subscribe, so it works with any atom without
// access to engine internals.
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/value"
)

// DefaultLimit is the default number of retained snapshots.
const DefaultLimit = 100

// Store is the part of an atom the history needs.
type Store interface {
	Get() any
	Set(v any) error
	Subscribe(fn func()) (unsubscribe func())
}

// Snapshot is one recorded value.
type Snapshot struct {
	ID        uuid.UUID `json:"id"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Option configures a History.
type Option func(*History)

// WithLimit bounds the number of snapshots; the oldest are dropped first.
func WithLimit(n int) Option {
	return func(h *History) {
		if n > 0 {
			h.limit = n
		}
	}
}

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(h *History) { h.now = now }
}

// History records every change of a store. Writes it makes itself while
// undoing or redoing are not recorded, also when the store delivers the
// notification later from a batch flush; a new change after an undo
// discards the redo branch.
//
// History is not safe for concurrent use.
type History struct {
	store     Store
	snapshots []Snapshot
	cursor    int
	limit     int
	now       func() time.Time

	unsub func()
}

// New records the current value of store and starts following it.
func New(store Store, opts ...Option) *History {
	h := &History{
		store: store,
		limit: DefaultLimit,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.record()
	h.unsub = store.Subscribe(h.onChange)
	return h
}

// onChange skips values equal to the snapshot under the cursor: those are
// the writes apply made, whenever their notification arrives.
func (h *History) onChange() {
	if value.Equal(h.store.Get(), h.snapshots[h.cursor].Value) {
		return
	}
	h.record()
}

func (h *History) record() {
	if len(h.snapshots) > 0 {
		h.snapshots = h.snapshots[:h.cursor+1]
	}
	h.snapshots = append(h.snapshots, Snapshot{
		ID:        uuid.New(),
		Value:     h.store.Get(),
		Timestamp: h.now(),
	})
	if over := len(h.snapshots) - h.limit; over > 0 {
		h.snapshots = append([]Snapshot(nil), h.snapshots[over:]...)
	}
	h.cursor = len(h.snapshots) - 1
}

// Current returns the snapshot the store is at.
func (h *History) Current() Snapshot {
	return h.snapshots[h.cursor]
}

// Snapshots returns every retained snapshot, oldest first.
func (h *History) Snapshots() []Snapshot {
	out := make([]Snapshot, len(h.snapshots))
	copy(out, h.snapshots)
	return out
}

// Len returns the number of retained snapshots.
func (h *History) Len() int { return len(h.snapshots) }

// CanUndo reports whether an older snapshot exists.
func (h *History) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether a newer snapshot exists.
func (h *History) CanRedo() bool { return h.cursor < len(h.snapshots)-1 }

// Undo restores the previous snapshot. It reports false when there is
// nothing to undo.
func (h *History) Undo() (bool, error) {
	if !h.CanUndo() {
		return false, nil
	}
	return true, h.apply(h.cursor - 1)
}

// Redo restores the next snapshot. It reports false when there is nothing
// to redo.
func (h *History) Redo() (bool, error) {
	if !h.CanRedo() {
		return false, nil
	}
	return true, h.apply(h.cursor + 1)
}

// Jump restores the snapshot with id.
func (h *History) Jump(id uuid.UUID) error {
	for i, s := range h.snapshots {
		if s.ID == id {
			return h.apply(i)
		}
	}
	return errors.Newf(errors.CodeSnapshotMissing, "no snapshot %s", id)
}

// Clear drops every snapshot except the current one.
func (h *History) Clear() {
	h.snapshots = []Snapshot{h.snapshots[h.cursor]}
	h.cursor = 0
}

// Close stops following the store.
func (h *History) Close() {
	if h.unsub != nil {
		h.unsub()
		h.unsub = nil
	}
}

func (h *History) apply(i int) error {
	prev := h.cursor
	h.cursor = i
	if err := h.store.Set(h.snapshots[i].Value); err != nil {
		h.cursor = prev
		return err
	}
	return nil
}
