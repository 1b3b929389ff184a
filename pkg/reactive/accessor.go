package reactive

import "github.com/vango-dev/reactor/pkg/path"

// PathAccessor addresses one position inside a state. Accessors are cheap
// values; they resolve the path on every call.
type PathAccessor struct {
	state State
	path  path.Path
	err   error
}

// At returns an accessor for key below the current position.
func (p *PathAccessor) At(key any) *PathAccessor {
	return &PathAccessor{
		state: p.state,
		path:  path.New(p.path, key),
		err:   p.err,
	}
}

// Path returns the addressed path.
func (p *PathAccessor) Path() path.Path { return p.path.Clone() }

// Get returns the value at the path and tracks it.
func (p *PathAccessor) Get() (any, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.state.GetPath(p.path)
}

// Set writes v at the path.
func (p *PathAccessor) Set(v any) error {
	if p.err != nil {
		return p.err
	}
	return p.state.SetPath(p.path, v)
}

// Update writes fn(current) at the path.
func (p *PathAccessor) Update(fn func(current any) any) error {
	if p.err != nil {
		return p.err
	}
	return p.state.UpdatePath(p.path, fn)
}

// Subscribe registers fn for changes related to the path.
func (p *PathAccessor) Subscribe(fn func()) (func(), error) {
	if p.err != nil {
		return func() {}, p.err
	}
	return p.state.SubscribePath(p.path, fn), nil
}
