// Package path provides the pure path utilities used by the reactive engine.
//
// A Path is an ordered sequence of keys locating a position inside a nested
// value. Map keys are used as-is; list positions are written as decimal
// indices. The empty path is the root.
//
//	p := path.Parse("user.profile.name")
//	p.String()                              // "user.profile.name"
//	path.IsAncestor(path.Parse("user"), p)  // true
//	path.IsRelated(p, path.Parse("user"))   // true
package path

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Separator joins segments in the display form of a path.
const Separator = "."

// Path is an ordered list of keys. A nil or empty Path is the root.
type Path []string

// Root is the empty path.
var Root = Path{}

// New builds a normalized path from segments. Strings are NFC-normalized,
// integers become decimal indices, and nested Paths are flattened.
func New(segments ...any) Path {
	p := make(Path, 0, len(segments))
	for _, seg := range segments {
		switch s := seg.(type) {
		case Path:
			p = append(p, s...)
		case []string:
			for _, k := range s {
				p = append(p, NormalizeKey(k))
			}
		default:
			p = append(p, Segment(seg))
		}
	}
	return p
}

// Segment converts a single key to its normalized string form.
func Segment(key any) string {
	switch k := key.(type) {
	case string:
		return NormalizeKey(k)
	case int:
		return strconv.Itoa(k)
	case int8:
		return strconv.FormatInt(int64(k), 10)
	case int16:
		return strconv.FormatInt(int64(k), 10)
	case int32:
		return strconv.FormatInt(int64(k), 10)
	case int64:
		return strconv.FormatInt(k, 10)
	case uint:
		return strconv.FormatUint(uint64(k), 10)
	case uint8:
		return strconv.FormatUint(uint64(k), 10)
	case uint16:
		return strconv.FormatUint(uint64(k), 10)
	case uint32:
		return strconv.FormatUint(uint64(k), 10)
	case uint64:
		return strconv.FormatUint(k, 10)
	case fmt.Stringer:
		return NormalizeKey(k.String())
	default:
		return NormalizeKey(fmt.Sprint(k))
	}
}

// NormalizeKey returns the NFC form of a key.
func NormalizeKey(k string) string {
	if norm.NFC.IsNormalString(k) {
		return k
	}
	return norm.NFC.String(k)
}

// Parse splits a dotted string into a path. The empty string is the root.
func Parse(s string) Path {
	if s == "" {
		return Root
	}
	parts := strings.Split(s, Separator)
	p := make(Path, len(parts))
	for i, part := range parts {
		p[i] = NormalizeKey(part)
	}
	return p
}

// String returns the dotted display form. The root renders as "".
func (p Path) String() string {
	return strings.Join(p, Separator)
}

// Key returns an unambiguous map key for the path. Each segment is length
// prefixed, so the root, an empty segment and segments containing
// Separator all get distinct keys.
func (p Path) Key() string {
	var b strings.Builder
	for _, seg := range p {
		b.WriteString(strconv.Itoa(len(seg)))
		b.WriteByte(':')
		b.WriteString(seg)
	}
	return b.String()
}

// IsRoot reports whether p is the empty path.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Equal reports whether p and o contain the same segments.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Append returns a new path with the segments appended. p is never modified.
func (p Path) Append(segments ...string) Path {
	out := make(Path, len(p), len(p)+len(segments))
	copy(out, p)
	for _, s := range segments {
		out = append(out, NormalizeKey(s))
	}
	return out
}

// Parent returns the path without its last segment. The root's parent is root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Root
	}
	return p[:len(p)-1:len(p)-1]
}

// Last returns the final segment, or "" for the root.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Clone returns a copy that shares no backing array with p.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// IsAncestor reports whether a is a proper prefix of b.
func IsAncestor(a, b Path) bool {
	if len(a) >= len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsRelated reports whether a and b are equal, or one is an ancestor of the other.
func IsRelated(a, b Path) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Prefixes returns every proper prefix of p, root first.
func Prefixes(p Path) []Path {
	out := make([]Path, 0, len(p))
	for i := 0; i < len(p); i++ {
		out = append(out, p[:i:i])
	}
	return out
}

// Compact removes duplicates and every path that is a descendant of another
// path in the input. Shorter paths are processed first so a parent always
// wins over its children. Input order is otherwise preserved.
func Compact(paths []Path) []Path {
	if len(paths) <= 1 {
		return paths
	}

	order := make([]int, len(paths))
	for i := range order {
		order[i] = i
	}
	// Stable insertion sort by length; path sets are small.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && len(paths[order[j]]) < len(paths[order[j-1]]); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	kept := make([]bool, len(paths))
	var accepted []Path
	seen := make(map[string]bool, len(paths))
	for _, idx := range order {
		p := paths[idx]
		if seen[p.Key()] {
			continue
		}
		covered := false
		for _, a := range accepted {
			if IsAncestor(a, p) {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		seen[p.Key()] = true
		accepted = append(accepted, p)
		kept[idx] = true
	}

	out := make([]Path, 0, len(accepted))
	for i, p := range paths {
		if kept[i] {
			out = append(out, p)
		}
	}
	return out
}
