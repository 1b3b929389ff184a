package value

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/vango-dev/reactor/pkg/path"
)

// Freeze converts v into its immutable form.
//
// String-keyed maps (and maps whose keys format to strings) become *Map,
// slices and arrays other than []byte become *List, and nested containers are
// converted recursively. Already frozen nodes are returned unchanged, so
// Freeze is idempotent. Raw input is never retained: every raw container is
// copied. Nil maps and slices freeze to empty containers. Cyclic raw input
// yields a cyclic frozen graph.
func Freeze(v any) any {
	f := &freezer{seen: make(map[identity]any)}
	return f.freeze(v)
}

type identity struct {
	typ reflect.Type
	ptr uintptr
	len int
}

type freezer struct {
	seen map[identity]any
}

func (f *freezer) freeze(v any) any {
	switch t := v.(type) {
	case nil, *Map, *List, bool, string, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64, time.Time:
		return v
	case []byte:
		out := make([]byte, len(t))
		copy(out, t)
		return out
	case map[string]any:
		id := identity{typ: reflect.TypeOf(t), ptr: reflect.ValueOf(t).Pointer()}
		if done, ok := f.seen[id]; ok {
			return done
		}
		m := &Map{entries: make(map[string]any, len(t))}
		f.seen[id] = m
		// Sorted traversal keeps hashes of cyclic input deterministic.
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.entries[path.NormalizeKey(k)] = f.freeze(t[k])
		}
		return finishMap(m)
	case []any:
		id := identity{typ: reflect.TypeOf(t), ptr: reflect.ValueOf(t).Pointer(), len: len(t)}
		if done, ok := f.seen[id]; ok {
			return done
		}
		l := &List{items: make([]any, len(t))}
		f.seen[id] = l
		for i, e := range t {
			l.items[i] = f.freeze(e)
		}
		return finishList(l)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		id := identity{typ: rv.Type(), ptr: rv.Pointer()}
		if done, ok := f.seen[id]; ok {
			return done
		}
		m := &Map{entries: make(map[string]any, rv.Len())}
		f.seen[id] = m
		type entry struct {
			key string
			val reflect.Value
		}
		entries := make([]entry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, entry{key: mapKey(iter.Key()), val: iter.Value()})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
		for _, e := range entries {
			m.entries[e.key] = f.freeze(e.val.Interface())
		}
		return finishMap(m)
	case reflect.Slice:
		id := identity{typ: rv.Type(), ptr: rv.Pointer(), len: rv.Len()}
		if done, ok := f.seen[id]; ok {
			return done
		}
		l := &List{items: make([]any, rv.Len())}
		f.seen[id] = l
		for i := 0; i < rv.Len(); i++ {
			l.items[i] = f.freeze(rv.Index(i).Interface())
		}
		return finishList(l)
	case reflect.Array:
		l := &List{items: make([]any, rv.Len())}
		for i := 0; i < rv.Len(); i++ {
			l.items[i] = f.freeze(rv.Index(i).Interface())
		}
		return finishList(l)
	}
	return v
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return path.NormalizeKey(k.String())
	}
	return path.Segment(k.Interface())
}

// IsFrozen reports whether v needs no conversion by Freeze.
func IsFrozen(v any) bool {
	switch v.(type) {
	case nil, *Map, *List:
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return false
	}
	return true
}

// ToGo converts frozen containers back into map[string]any and []any.
// Leaves are returned unchanged. The result shares nothing mutable with v.
func ToGo(v any) any {
	return toGo(v, make(map[any]any))
}

func toGo(v any, seen map[any]any) any {
	switch t := v.(type) {
	case *Map:
		if done, ok := seen[t]; ok {
			return done
		}
		out := make(map[string]any, len(t.entries))
		seen[t] = out
		for k, e := range t.entries {
			out[k] = toGo(e, seen)
		}
		return out
	case *List:
		if done, ok := seen[t]; ok {
			return done
		}
		out := make([]any, len(t.items))
		seen[t] = out
		for i, e := range t.items {
			out[i] = toGo(e, seen)
		}
		return out
	case []byte:
		out := make([]byte, len(t))
		copy(out, t)
		return out
	}
	return v
}

// Describe returns a short human-readable form of v for logs.
func Describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case *Map:
		return fmt.Sprintf("map[%d]", t.Len())
	case *List:
		return fmt.Sprintf("list[%d]", t.Len())
	case string:
		if len(t) > 32 {
			return fmt.Sprintf("%q...", t[:32])
		}
		return fmt.Sprintf("%q", t)
	}
	return fmt.Sprintf("%v", v)
}
