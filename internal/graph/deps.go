package graph

import (
	"sort"

	"github.com/vango-dev/reactor/pkg/path"
)

// ID identifies a node in the graph. Zero is never assigned to a node and
// means "no source".
type ID = uint64

// Deps records which paths of which atoms were read during one tracking
// session. IDs keep first-read order.
type Deps struct {
	order []ID
	paths map[ID]*path.Set
}

// NewDeps returns an empty dependency set.
func NewDeps() *Deps {
	return &Deps{paths: make(map[ID]*path.Set)}
}

// Add records a read of p on id.
func (d *Deps) Add(id ID, p path.Path) {
	set, ok := d.paths[id]
	if !ok {
		set = path.NewSet()
		d.paths[id] = set
		d.order = append(d.order, id)
	}
	set.Add(p)
}

// Remove forgets every read of id.
func (d *Deps) Remove(id ID) {
	if _, ok := d.paths[id]; !ok {
		return
	}
	delete(d.paths, id)
	for i, o := range d.order {
		if o == id {
			d.order = append(d.order[:i:i], d.order[i+1:]...)
			break
		}
	}
}

// Has reports whether id was read.
func (d *Deps) Has(id ID) bool {
	if d == nil {
		return false
	}
	_, ok := d.paths[id]
	return ok
}

// IDs returns the read atoms in first-read order.
func (d *Deps) IDs() []ID {
	if d == nil {
		return nil
	}
	out := make([]ID, len(d.order))
	copy(out, d.order)
	return out
}

// Paths returns the paths read on id in first-read order.
func (d *Deps) Paths(id ID) []path.Path {
	if d == nil {
		return nil
	}
	return d.paths[id].Paths()
}

// Len returns the number of distinct atoms read.
func (d *Deps) Len() int {
	if d == nil {
		return 0
	}
	return len(d.order)
}

// Merge adds every read in o.
func (d *Deps) Merge(o *Deps) {
	if o == nil {
		return
	}
	for _, id := range o.order {
		for _, p := range o.paths[id].Paths() {
			d.Add(id, p)
		}
	}
}

// Clone returns an independent copy.
func (d *Deps) Clone() *Deps {
	out := NewDeps()
	out.Merge(d)
	return out
}

func sortedIDs(set map[ID]struct{}) []ID {
	out := make([]ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
