package reactive

import (
	"strconv"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/internal/notify"
	"github.com/vango-dev/reactor/internal/state"
	"github.com/vango-dev/reactor/pkg/path"
	"github.com/vango-dev/reactor/pkg/value"
)

// cell is the value holder shared by atoms and derived values.
type cell struct {
	u        *Universe
	id       ID
	name     string
	kind     Kind
	node     *state.Node
	subs     *notify.Subscriptions
	equals   func(a, b any) bool
	devtools bool
	disposed bool
}

func (u *Universe) newCell(kind Kind, initial any, o options) *cell {
	c := &cell{
		u:        u,
		id:       nextID(),
		name:     o.name,
		kind:     kind,
		node:     state.New(initial),
		subs:     notify.New(),
		equals:   o.equals,
		devtools: o.devtools,
	}
	if c.name == "" {
		c.name = string(kind) + "#" + strconv.FormatUint(c.id, 10)
	}
	return c
}

func (c *cell) get() any {
	c.u.graph.Track(c.id, path.Root)
	return c.node.Value()
}

func (c *cell) getPath(p path.Path) (any, error) {
	v, err := c.node.GetPath(p)
	if err != nil {
		return nil, c.annotate(err)
	}
	c.u.graph.Track(c.id, p)
	return v, nil
}

// commit installs next and notifies subscribers of changed. Empty changes
// and values the custom equality accepts are dropped.
func (c *cell) commit(op string, next *state.Node, changed []path.Path) error {
	u := c.u
	if len(changed) == 0 || next == c.node {
		u.metrics.RecordWrite(op, false)
		return nil
	}
	if c.equals != nil && c.equals(c.node.Value(), next.Value()) {
		u.metrics.RecordWrite(op, false)
		return nil
	}

	c.node = next
	u.writes++
	u.metrics.RecordWrite(op, true)
	u.emit(EventChanged, c, changed)

	// Handlers must not leak reads into a computation that wrote.
	var n int
	var err error
	u.graph.Untracked(func() {
		n, err = notify.Dispatch(changed, c.subs, u.sched, u.report)
	})
	u.metrics.RecordNotifications(n)
	return err
}

func (c *cell) subscribe(fn func()) func() {
	return c.subs.Subscribe(0, func() error {
		fn()
		return nil
	})
}

func (c *cell) subscribePath(p path.Path, fn func()) func() {
	return c.subs.SubscribePath(p, 0, func() error {
		fn()
		return nil
	})
}

// at validates that the value can hold children.
func (c *cell) at(st State, key any) *PathAccessor {
	acc := &PathAccessor{state: st, path: path.New(key)}
	if !value.IsComposite(c.node.Value()) {
		acc.err = errors.New(errors.CodeNotComposite).
			WithAtom(c.name).
			WithDetailf("%s holds %s", c.name, value.Describe(c.node.Value()))
	}
	return acc
}

func (c *cell) annotate(err error) error {
	if e, ok := err.(*errors.Error); ok && e.Atom == "" {
		return e.WithAtom(c.name)
	}
	return err
}

func (c *cell) register(st State) {
	u := c.u
	u.registry[c.id] = st
	u.metrics.NodeCreated(string(c.kind))
	u.emit(EventCreated, c, nil)
}

// release detaches the cell from the universe. Reports whether it was live.
func (c *cell) release() bool {
	if c.disposed {
		return false
	}
	c.disposed = true
	u := c.u
	delete(u.registry, c.id)
	u.graph.RemoveNode(c.id)
	u.metrics.NodeDisposed(string(c.kind))
	u.emit(EventDisposed, c, nil)
	return true
}

func (c *cell) disposedErr() error {
	return errors.New(errors.CodeDisposed).WithAtom(c.name)
}
