// Package graph maintains the dependency graph between reactive nodes and
// the stack of tracking sessions used to discover dependencies at run time.
//
// A Graph is confined to the goroutine that owns its universe and is not
// safe for concurrent use.
package graph

import (
	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/path"
)

// session is one frame of the tracking stack.
type session struct {
	source    ID
	deps      *Deps
	untracked bool
}

// Graph stores symmetric dependency edges plus the last set of paths each
// source read on each dependency.
type Graph struct {
	dependencies map[ID]map[ID]struct{}
	dependents   map[ID]map[ID]struct{}
	accessed     map[ID]*Deps

	stack []*session
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		dependencies: make(map[ID]map[ID]struct{}),
		dependents:   make(map[ID]map[ID]struct{}),
		accessed:     make(map[ID]*Deps),
	}
}

// Start pushes a tracking session for source. Source 0 tracks anonymously.
func (g *Graph) Start(source ID) {
	g.stack = append(g.stack, &session{source: source, deps: NewDeps()})
}

// Suspend pushes a session that ignores every read. Pair it with Stop.
func (g *Graph) Suspend() {
	g.stack = append(g.stack, &session{untracked: true, deps: NewDeps()})
}

// Stop pops the current session and returns what it read.
func (g *Graph) Stop() (*Deps, error) {
	n := len(g.stack)
	if n == 0 {
		return nil, errors.New(errors.CodeNoTracking)
	}
	top := g.stack[n-1]
	g.stack[n-1] = nil
	g.stack = g.stack[:n-1]
	return top.deps, nil
}

// Tracking reports whether reads are currently being recorded.
func (g *Graph) Tracking() bool {
	n := len(g.stack)
	return n > 0 && !g.stack[n-1].untracked
}

// Depth returns the number of open sessions.
func (g *Graph) Depth() int { return len(g.stack) }

// Current returns the source of the innermost session, or 0.
func (g *Graph) Current() ID {
	n := len(g.stack)
	if n == 0 {
		return 0
	}
	return g.stack[n-1].source
}

// Track records a read of p on id in the innermost session. It is a no-op
// without an active session and for self-dependencies.
func (g *Graph) Track(id ID, p path.Path) {
	n := len(g.stack)
	if n == 0 {
		return
	}
	top := g.stack[n-1]
	if top.untracked || (top.source != 0 && top.source == id) {
		return
	}
	top.deps.Add(id, p)
}

// WithTracking runs fn inside a session for source and, when source is
// non-zero and fn succeeds, installs the discovered dependencies with Update.
//
// The reads collected so far are returned even when fn fails. A panic in fn
// unwinds the session before propagating.
func (g *Graph) WithTracking(source ID, fn func() error) (*Deps, error) {
	g.Start(source)
	depth := len(g.stack)
	var deps *Deps
	defer func() {
		if deps == nil {
			g.unwind(depth)
		}
	}()

	ferr := fn()
	deps = g.unwind(depth)
	if ferr != nil {
		return deps, ferr
	}
	if source != 0 {
		if err := g.Update(source, deps); err != nil {
			return deps, err
		}
	}
	return deps, nil
}

// unwind pops sessions down to and including the one at depth and returns
// what that session read.
func (g *Graph) unwind(depth int) *Deps {
	if len(g.stack) < depth {
		return NewDeps()
	}
	for len(g.stack) > depth {
		_, _ = g.Stop()
	}
	deps, _ := g.Stop()
	return deps
}

// Untracked runs fn with tracking suspended.
func (g *Graph) Untracked(fn func()) {
	g.Suspend()
	depth := len(g.stack)
	defer g.unwind(depth)
	fn()
}

// Update replaces the dependency edges of source with deps and rejects the
// change when it closes a cycle. On rejection the previous edges are restored
// and a circular-dependency error carrying the ordered cycle is returned.
func (g *Graph) Update(source ID, deps *Deps) error {
	prevEdges := g.dependencies[source]
	prevAccessed := g.accessed[source]

	g.install(source, deps)

	if cycle := g.findCycle(source); cycle != nil {
		g.detach(source)
		g.restore(source, prevEdges, prevAccessed)
		return errors.New(errors.CodeCircular).
			WithCycle(cycle).
			WithDetail(errors.FormatCycle(cycle))
	}
	return nil
}

func (g *Graph) install(source ID, deps *Deps) {
	g.detach(source)

	edges := make(map[ID]struct{}, deps.Len())
	for _, id := range deps.IDs() {
		if id == source {
			continue
		}
		edges[id] = struct{}{}
		back := g.dependents[id]
		if back == nil {
			back = make(map[ID]struct{})
			g.dependents[id] = back
		}
		back[source] = struct{}{}
	}
	if len(edges) > 0 {
		g.dependencies[source] = edges
		g.accessed[source] = deps.Clone()
	}
}

// restore reinstalls a previously detached edge set.
func (g *Graph) restore(source ID, edges map[ID]struct{}, accessed *Deps) {
	if len(edges) == 0 {
		return
	}
	g.dependencies[source] = edges
	if accessed != nil {
		g.accessed[source] = accessed
	}
	for id := range edges {
		back := g.dependents[id]
		if back == nil {
			back = make(map[ID]struct{})
			g.dependents[id] = back
		}
		back[source] = struct{}{}
	}
}

// detach removes every outgoing edge of source.
func (g *Graph) detach(source ID) {
	for id := range g.dependencies[source] {
		if back := g.dependents[id]; back != nil {
			delete(back, source)
			if len(back) == 0 {
				delete(g.dependents, id)
			}
		}
	}
	delete(g.dependencies, source)
	delete(g.accessed, source)
}

// RemoveNode excises id together with every edge touching it.
func (g *Graph) RemoveNode(id ID) {
	g.detach(id)
	for dependent := range g.dependents[id] {
		if edges := g.dependencies[dependent]; edges != nil {
			delete(edges, id)
			if len(edges) == 0 {
				delete(g.dependencies, dependent)
				delete(g.accessed, dependent)
			} else if acc := g.accessed[dependent]; acc != nil {
				acc.Remove(id)
			}
		}
	}
	delete(g.dependents, id)
}

// Dependencies returns the ids id depends on, sorted.
func (g *Graph) Dependencies(id ID) []ID {
	return sortedIDs(g.dependencies[id])
}

// Dependents returns the ids that depend on id, sorted.
func (g *Graph) Dependents(id ID) []ID {
	return sortedIDs(g.dependents[id])
}

// Accessed returns the paths source last read on each dependency.
func (g *Graph) Accessed(source ID) *Deps {
	if d := g.accessed[source]; d != nil {
		return d.Clone()
	}
	return NewDeps()
}

// Len returns the number of nodes with at least one edge.
func (g *Graph) Len() int {
	nodes := make(map[ID]struct{}, len(g.dependencies)+len(g.dependents))
	for id := range g.dependencies {
		nodes[id] = struct{}{}
	}
	for id := range g.dependents {
		nodes[id] = struct{}{}
	}
	return len(nodes)
}
