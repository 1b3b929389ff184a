// Package value provides the immutable value representation used by atoms.
//
// Raw Go containers handed to the engine are converted by Freeze into *Map and
// *List nodes. Both are immutable: every modification returns a new node that
// shares all unchanged children with the original (structural sharing), and
// each node carries its canonical hash computed once at construction.
//
// Scalars, time.Time, funcs, pointers and structs are leaves and are kept as-is.
package value

import (
	"encoding/json"
	"sort"

	"github.com/vango-dev/reactor/pkg/path"
)

// Map is an immutable string-keyed container.
type Map struct {
	keys    []string
	entries map[string]any
	hash    string
}

// List is an immutable ordered container.
type List struct {
	items []any
	hash  string
}

// EmptyMap returns a map with no entries.
func EmptyMap() *Map {
	return finishMap(&Map{entries: map[string]any{}})
}

// NewMap freezes a raw map.
func NewMap(m map[string]any) *Map {
	return Freeze(m).(*Map)
}

// NewList freezes the given items into a list.
func NewList(items ...any) *List {
	if items == nil {
		items = []any{}
	}
	return Freeze(items).(*List)
}

// finishMap sorts keys and computes the hash. It runs exactly once per node.
func finishMap(m *Map) *Map {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m.keys = keys
	m.hash = hashMap(m)
	return m
}

func finishList(l *List) *List {
	l.hash = hashList(l)
	return l
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.entries) }

// Keys returns the keys in sorted order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	v, ok := m.entries[path.NormalizeKey(key)]
	return v, ok
}

// Value returns the value stored under key, or nil.
func (m *Map) Value(key string) any {
	v, _ := m.Get(key)
	return v
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Range calls fn for each entry in key order until fn returns false.
func (m *Map) Range(fn func(key string, v any) bool) {
	for _, k := range m.keys {
		if !fn(k, m.entries[k]) {
			return
		}
	}
}

// With returns a map with key set to v. All other entries are shared.
func (m *Map) With(key string, v any) *Map {
	key = path.NormalizeKey(key)
	entries := make(map[string]any, len(m.entries)+1)
	for k, e := range m.entries {
		entries[k] = e
	}
	entries[key] = Freeze(v)
	return finishMap(&Map{entries: entries})
}

// Without returns a map with key removed.
func (m *Map) Without(key string) *Map {
	key = path.NormalizeKey(key)
	if _, ok := m.entries[key]; !ok {
		return m
	}
	entries := make(map[string]any, len(m.entries))
	for k, e := range m.entries {
		if k != key {
			entries[k] = e
		}
	}
	return finishMap(&Map{entries: entries})
}

// Hash returns the canonical hash of the map.
func (m *Map) Hash() string { return m.hash }

// ToGo returns a fresh mutable copy built from map[string]any and []any.
func (m *Map) ToGo() map[string]any {
	return ToGo(m).(map[string]any)
}

// MarshalJSON encodes the map as a JSON object.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToGo(m))
}

// Len returns the number of items.
func (l *List) Len() int { return len(l.items) }

// At returns the item at index i. It panics if i is out of range.
func (l *List) At(i int) any { return l.items[i] }

// Items returns a copy of the item slice. Items themselves are shared.
func (l *List) Items() []any {
	out := make([]any, len(l.items))
	copy(out, l.items)
	return out
}

// With returns a list with index i replaced by v. i == Len() appends.
func (l *List) With(i int, v any) *List {
	n := len(l.items)
	if i == n {
		return l.Append(v)
	}
	items := make([]any, n)
	copy(items, l.items)
	items[i] = Freeze(v)
	return finishList(&List{items: items})
}

// Append returns a list with v added at the end.
func (l *List) Append(v any) *List {
	items := make([]any, len(l.items), len(l.items)+1)
	copy(items, l.items)
	items = append(items, Freeze(v))
	return finishList(&List{items: items})
}

// Hash returns the canonical hash of the list.
func (l *List) Hash() string { return l.hash }

// ToGo returns a fresh mutable copy.
func (l *List) ToGo() []any {
	return ToGo(l).([]any)
}

// MarshalJSON encodes the list as a JSON array.
func (l *List) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToGo(l))
}

// IsComposite reports whether v is a frozen container.
func IsComposite(v any) bool {
	switch v.(type) {
	case *Map, *List:
		return true
	}
	return false
}

// Lookup walks p through frozen containers. It does not freeze v.
func Lookup(v any, p path.Path) (any, bool) {
	cur := v
	for _, seg := range p {
		switch c := cur.(type) {
		case *Map:
			next, ok := c.entries[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case *List:
			i, ok := ParseIndex(seg)
			if !ok || i >= len(c.items) {
				return nil, false
			}
			cur = c.items[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// ParseIndex parses a non-negative decimal list index.
func ParseIndex(seg string) (int, bool) {
	if seg == "" || len(seg) > 18 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if len(seg) > 1 && seg[0] == '0' {
		return 0, false
	}
	return n, true
}
