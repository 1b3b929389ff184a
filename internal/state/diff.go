package state

import (
	"github.com/vango-dev/reactor/pkg/path"
	"github.com/vango-dev/reactor/pkg/value"
)

// Diff compares two frozen values in lock step and returns the changed paths
// below base.
//
// A path is changed when the kinds differ, exactly one side is nil, a leaf
// differs, or list lengths differ. When every child of a nested container
// changed, the container itself is reported in place of its children; the
// root is never rolled up this way. The result is compacted so that no
// reported path is a descendant of another.
func Diff(a, b any, base ...string) []path.Path {
	var out []path.Path
	d := differ{base: len(base)}
	d.diff(a, b, path.Path(base).Clone(), &out)
	return path.Compact(out)
}

type differ struct {
	base int
}

func (d differ) diff(a, b any, at path.Path, out *[]path.Path) {
	if value.Identical(a, b) {
		return
	}
	if (a == nil) != (b == nil) {
		*out = append(*out, at)
		return
	}

	switch av := a.(type) {
	case *value.Map:
		bv, ok := b.(*value.Map)
		if !ok {
			*out = append(*out, at)
			return
		}
		if av.Hash() == bv.Hash() {
			return
		}
		d.diffMaps(av, bv, at, out)
	case *value.List:
		bv, ok := b.(*value.List)
		if !ok || av.Len() != bv.Len() {
			*out = append(*out, at)
			return
		}
		if av.Hash() == bv.Hash() {
			return
		}
		d.diffLists(av, bv, at, out)
	default:
		if value.IsComposite(b) || value.Hash(a) != value.Hash(b) {
			*out = append(*out, at)
		}
	}
}

func (d differ) diffMaps(a, b *value.Map, at path.Path, out *[]path.Path) {
	keys := unionKeys(a, b)
	var children []path.Path
	changedKeys := 0
	for _, k := range keys {
		av, aok := a.Get(k)
		bv, bok := b.Get(k)
		before := len(children)
		switch {
		case aok != bok:
			children = append(children, at.Append(k))
		default:
			d.diff(av, bv, at.Append(k), &children)
		}
		if len(children) > before {
			changedKeys++
		}
	}
	d.rollUp(at, children, changedKeys, len(keys), out)
}

func (d differ) diffLists(a, b *value.List, at path.Path, out *[]path.Path) {
	var children []path.Path
	changed := 0
	for i := 0; i < a.Len(); i++ {
		before := len(children)
		d.diff(a.At(i), b.At(i), at.Append(path.Segment(i)), &children)
		if len(children) > before {
			changed++
		}
	}
	d.rollUp(at, children, changed, a.Len(), out)
}

// rollUp reports the container itself when all of its children changed.
func (d differ) rollUp(at path.Path, children []path.Path, changed, total int, out *[]path.Path) {
	if len(at) > d.base && total > 0 && changed == total {
		*out = append(*out, at)
		return
	}
	*out = append(*out, children...)
}

func unionKeys(a, b *value.Map) []string {
	keys := a.Keys()
	for _, k := range b.Keys() {
		if !a.Has(k) {
			keys = append(keys, k)
		}
	}
	return keys
}
