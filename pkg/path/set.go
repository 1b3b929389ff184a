package path

// Set is an insertion-ordered set of paths.
// The zero value is ready to use.
type Set struct {
	index map[string]int
	paths []Path
}

// NewSet returns a set containing the given paths.
func NewSet(paths ...Path) *Set {
	s := &Set{}
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add inserts p if absent and reports whether it was added.
func (s *Set) Add(p Path) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	k := p.Key()
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.paths)
	s.paths = append(s.paths, p.Clone())
	return true
}

// Has reports whether p is in the set.
func (s *Set) Has(p Path) bool {
	if s == nil || s.index == nil {
		return false
	}
	_, ok := s.index[p.Key()]
	return ok
}

// HasRoot reports whether the root path is in the set.
func (s *Set) HasRoot() bool {
	return s.Has(Root)
}

// Len returns the number of paths.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.paths)
}

// Paths returns the paths in insertion order. The slice is a copy.
func (s *Set) Paths() []Path {
	if s == nil {
		return nil
	}
	out := make([]Path, len(s.paths))
	copy(out, s.paths)
	return out
}

// Merge adds every path of o.
func (s *Set) Merge(o *Set) {
	if o == nil {
		return
	}
	for _, p := range o.paths {
		s.Add(p)
	}
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	out := &Set{}
	if s != nil {
		out.Merge(s)
	}
	return out
}

// Strings returns the dotted forms in insertion order.
func (s *Set) Strings() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.paths))
	for i, p := range s.paths {
		out[i] = p.String()
	}
	return out
}
