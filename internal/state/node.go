// Package state implements the immutable state node behind every atom.
//
// A Node wraps one frozen value together with its canonical hash. Nodes are
// never mutated: Update and SetPath return a successor node plus the set of
// paths that changed, or the receiver itself and no paths when the write is
// a no-op.
package state

import (
	"fmt"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/path"
	"github.com/vango-dev/reactor/pkg/value"
)

// Kind distinguishes composite (map/list) nodes from primitive ones.
type Kind uint8

const (
	KindPrimitive Kind = iota + 1
	KindComposite
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// Node is an immutable value plus hash.
type Node struct {
	kind  Kind
	value any
	hash  string
}

// New freezes v and wraps it in a node.
func New(v any) *Node {
	frozen := value.Freeze(v)
	kind := KindPrimitive
	if value.IsComposite(frozen) {
		kind = KindComposite
	}
	return &Node{kind: kind, value: frozen, hash: value.Hash(frozen)}
}

// Value returns the wrapped frozen value.
func (n *Node) Value() any { return n.value }

// Hash returns the canonical hash of the value.
func (n *Node) Hash() string { return n.hash }

// Kind returns the node kind.
func (n *Node) Kind() Kind { return n.kind }

// Update computes fn(current). An unchanged hash returns (n, nil).
// Otherwise it returns the successor node and the compacted changed paths.
func (n *Node) Update(fn func(current any) any) (*Node, []path.Path) {
	return n.Replace(fn(n.value))
}

// Replace installs candidate as the next value.
func (n *Node) Replace(candidate any) (*Node, []path.Path) {
	next := New(candidate)
	if next.hash == n.hash {
		return n, nil
	}
	if n.kind == KindPrimitive || next.kind == KindPrimitive {
		return next, []path.Path{path.Root}
	}
	return next, Diff(n.value, next.value)
}

// GetPath resolves p inside the node's value.
func (n *Node) GetPath(p path.Path) (any, error) {
	if n.kind == KindPrimitive {
		return nil, errors.New(errors.CodePrimitivePath).WithPath(p)
	}
	cur := n.value
	for i, seg := range p {
		next, err := child(cur, seg, p[:i+1])
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// SetPath writes v at p, reallocating only the containers along p.
// Siblings keep their identity. An unchanged hash at p is a no-op.
func (n *Node) SetPath(p path.Path, v any) (*Node, []path.Path, error) {
	if n.kind == KindPrimitive {
		return n, nil, errors.New(errors.CodePrimitivePath).WithPath(p)
	}
	if p.IsRoot() {
		next, changed := n.Replace(v)
		return next, changed, nil
	}

	frozen := value.Freeze(v)
	if old, err := n.GetPath(p); err == nil && value.Hash(old) == value.Hash(frozen) {
		return n, nil, nil
	}

	root, changed, err := setIn(n.value, p, 0, frozen)
	if err != nil {
		return n, nil, err
	}
	next := &Node{kind: KindComposite, value: root, hash: value.Hash(root)}
	if next.hash == n.hash {
		return n, nil, nil
	}
	return next, changed, nil
}

// setIn rebuilds the branch from container down to p[depth:].
func setIn(container any, p path.Path, depth int, v any) (any, []path.Path, error) {
	seg := p[depth]
	last := depth == len(p)-1

	switch c := container.(type) {
	case *value.Map:
		old, exists := c.Get(seg)
		if last {
			return c.With(seg, v), leafChange(old, exists, v, p), nil
		}
		if !exists || old == nil {
			old = value.EmptyMap()
		}
		if !value.IsComposite(old) {
			return nil, nil, unresolvable(p[:depth+2], old)
		}
		sub, changed, err := setIn(old, p, depth+1, v)
		if err != nil {
			return nil, nil, err
		}
		return c.With(seg, sub), changed, nil

	case *value.List:
		i, ok := value.ParseIndex(seg)
		if !ok || i > c.Len() {
			return nil, nil, errors.New(errors.CodeIndexRange).
				WithPath(p[:depth+1]).
				WithDetailf("index %q on list of length %d", seg, c.Len())
		}
		var old any
		exists := i < c.Len()
		if exists {
			old = c.At(i)
		}
		if last {
			return c.With(i, v), leafChange(old, exists, v, p), nil
		}
		if !exists || old == nil {
			old = value.EmptyMap()
		}
		if !value.IsComposite(old) {
			return nil, nil, unresolvable(p[:depth+2], old)
		}
		sub, changed, err := setIn(old, p, depth+1, v)
		if err != nil {
			return nil, nil, err
		}
		return c.With(i, sub), changed, nil
	}
	return nil, nil, unresolvable(p[:depth+1], container)
}

// leafChange reports the paths changed by replacing old with v at p.
func leafChange(old any, exists bool, v any, p path.Path) []path.Path {
	if exists && value.IsComposite(old) && value.IsComposite(v) {
		var out []path.Path
		d := differ{base: len(p) - 1}
		d.diff(old, v, p.Clone(), &out)
		return path.Compact(out)
	}
	return []path.Path{p.Clone()}
}

func child(cur any, seg string, at path.Path) (any, error) {
	switch c := cur.(type) {
	case *value.Map:
		v, ok := c.Get(seg)
		if !ok {
			return nil, errors.New(errors.CodeUnresolvablePath).
				WithPath(at).
				WithDetailf("property %q does not exist", seg)
		}
		return v, nil
	case *value.List:
		i, ok := value.ParseIndex(seg)
		if !ok || i >= c.Len() {
			return nil, errors.New(errors.CodeIndexRange).
				WithPath(at).
				WithDetailf("index %q on list of length %d", seg, c.Len())
		}
		return c.At(i), nil
	}
	return nil, unresolvable(at, cur)
}

func unresolvable(at path.Path, parent any) *errors.Error {
	if parent == nil {
		return errors.New(errors.CodeUnresolvablePath).
			WithPath(at).
			WithDetailf("cannot read %q of nil", at.Last())
	}
	return errors.New(errors.CodeUnresolvablePath).
		WithPath(at).
		WithDetailf("cannot read %q of %s", at.Last(), describeKind(parent))
}

func describeKind(v any) string {
	return fmt.Sprintf("%T", v)
}
