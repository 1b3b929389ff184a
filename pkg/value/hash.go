package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Domain prefix for value hashes. The version suffix allows the encoding to
// change without silently colliding with stored hashes.
const hashDomain = "reactor/value/v1"

// Hash returns the canonical hash of v.
//
// Two values hash equal iff they are deeply equal: map key order is
// irrelevant, list order and length are significant, all integer kinds share
// one encoding and floats another. Frozen containers return their cached
// hash; raw input is frozen first, so cyclic input terminates.
func Hash(v any) string {
	switch t := v.(type) {
	case *Map:
		return t.hash
	case *List:
		return t.hash
	}
	if !IsFrozen(v) {
		return Hash(Freeze(v))
	}
	return hashWithDomain(leafToken(v))
}

// Equal reports whether a and b are deeply equal.
func Equal(a, b any) bool {
	if Identical(a, b) {
		return true
	}
	return Hash(a) == Hash(b)
}

// Identical reports whether a and b are the same value by identity:
// pointer equality for containers and funcs, == for comparable leaves.
func Identical(a, b any) bool {
	switch at := a.(type) {
	case *Map:
		bt, ok := b.(*Map)
		return ok && at == bt
	case *List:
		bt, ok := b.(*List)
		return ok && at == bt
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	switch ta.Kind() {
	case reflect.Func, reflect.Map, reflect.Slice:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return false
}

func hashWithDomain(token string) string {
	h := sha256.New()
	h.Write([]byte(hashDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

// hashMap encodes sorted keys with child tokens. Children that are still
// under construction (cyclic input) encode as a back-reference marker.
func hashMap(m *Map) string {
	var b strings.Builder
	b.WriteByte('{')
	for _, k := range m.keys {
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(childToken(m.entries[k]))
		b.WriteByte(';')
	}
	b.WriteByte('}')
	return hashWithDomain(b.String())
}

func hashList(l *List) string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(strconv.Itoa(len(l.items)))
	b.WriteByte('|')
	for _, item := range l.items {
		b.WriteString(childToken(item))
		b.WriteByte(';')
	}
	b.WriteByte(']')
	return hashWithDomain(b.String())
}

func childToken(v any) string {
	switch t := v.(type) {
	case *Map:
		if t.hash == "" {
			return "@cycle"
		}
		return "#" + t.hash
	case *List:
		if t.hash == "" {
			return "@cycle"
		}
		return "#" + t.hash
	}
	return leafToken(v)
}

// leafToken is the type-tagged canonical encoding of a non-container value.
func leafToken(v any) string {
	switch t := v.(type) {
	case nil:
		return "n"
	case bool:
		if t {
			return "b1"
		}
		return "b0"
	case string:
		return "s" + strconv.Itoa(len(t)) + ":" + t
	case int:
		return "i" + strconv.FormatInt(int64(t), 10)
	case int8:
		return "i" + strconv.FormatInt(int64(t), 10)
	case int16:
		return "i" + strconv.FormatInt(int64(t), 10)
	case int32:
		return "i" + strconv.FormatInt(int64(t), 10)
	case int64:
		return "i" + strconv.FormatInt(t, 10)
	case uint:
		return "i" + strconv.FormatUint(uint64(t), 10)
	case uint8:
		return "i" + strconv.FormatUint(uint64(t), 10)
	case uint16:
		return "i" + strconv.FormatUint(uint64(t), 10)
	case uint32:
		return "i" + strconv.FormatUint(uint64(t), 10)
	case uint64:
		return "i" + strconv.FormatUint(t, 10)
	case float32:
		return floatToken(float64(t))
	case float64:
		return floatToken(t)
	case time.Time:
		return "t" + t.UTC().Format(time.RFC3339Nano)
	case []byte:
		return "y" + hex.EncodeToString(t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Chan, reflect.UnsafePointer, reflect.Map, reflect.Slice:
		// Reference leaves compare by identity.
		return fmt.Sprintf("p%s@%x", rv.Type(), rv.Pointer())
	}
	return fmt.Sprintf("x%s:%#v", rv.Type(), v)
}

func floatToken(f float64) string {
	if math.IsNaN(f) {
		return "fNaN"
	}
	return "f" + strconv.FormatFloat(f, 'g', -1, 64)
}
