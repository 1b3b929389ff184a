package reactive

import (
	stderrors "errors"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/internal/graph"
	"github.com/vango-dev/reactor/internal/notify"
	"github.com/vango-dev/reactor/internal/state"
	"github.com/vango-dev/reactor/pkg/path"
)

// subscribeDeps subscribes h on behalf of owner to everything in deps.
// A source holding a primitive, read without a path or read whole gets one
// whole-value subscription; otherwise one subscription per read path.
func (u *Universe) subscribeDeps(owner ID, deps *graph.Deps, h notify.Handler, opts ...notify.SubscribeOption) ([]func(), error) {
	var unsubs []func()
	var errs []error
	for _, id := range deps.IDs() {
		st, ok := u.registry[id]
		if !ok {
			errs = append(errs, u.report(errors.Newf(errors.CodeMissingAtom,
				"dependency #%d of #%d is not registered", id, owner)))
			continue
		}
		c := st.base()
		paths := deps.Paths(id)
		if c.node.Kind() == state.KindPrimitive || wholeRead(paths) {
			unsubs = append(unsubs, c.subs.Subscribe(owner, h, opts...))
			continue
		}
		for _, p := range path.Compact(paths) {
			unsubs = append(unsubs, c.subs.SubscribePath(p, owner, h, opts...))
		}
	}
	return unsubs, stderrors.Join(errs...)
}

func wholeRead(paths []path.Path) bool {
	if len(paths) == 0 {
		return true
	}
	for _, p := range paths {
		if p.IsRoot() {
			return true
		}
	}
	return false
}

func unsubscribeAll(unsubs []func()) {
	for _, un := range unsubs {
		un()
	}
}
