package value

import (
	"reflect"
)

// Clone returns a deep copy of v with no aliasing of mutable containers.
//
// Maps, slices and arrays are copied with their original types; frozen
// containers are immutable and returned as-is; funcs, channels and pointers
// pass by reference. Cyclic input is copied into an equally cyclic result.
func Clone(v any) any {
	if v == nil {
		return nil
	}
	c := &cloner{seen: make(map[identity]reflect.Value)}
	return c.clone(reflect.ValueOf(v)).Interface()
}

type cloner struct {
	seen map[identity]reflect.Value
}

func (c *cloner) clone(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		inner := c.clone(rv.Elem())
		out := reflect.New(rv.Type()).Elem()
		out.Set(inner)
		return out
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		id := identity{typ: rv.Type(), ptr: rv.Pointer()}
		if done, ok := c.seen[id]; ok {
			return done
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		c.seen[id] = out
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), c.clone(iter.Value()))
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		id := identity{typ: rv.Type(), ptr: rv.Pointer(), len: rv.Len()}
		if done, ok := c.seen[id]; ok {
			return done
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		c.seen[id] = out
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(c.clone(rv.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(c.clone(rv.Index(i)))
		}
		return out
	}
	return rv
}
