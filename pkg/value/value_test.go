package value

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vango-dev/reactor/pkg/path"
)

func TestFreezeConvertsContainers(t *testing.T) {
	raw := map[string]any{
		"user": map[string]any{"name": "J", "tags": []string{"a", "b"}},
		"n":    1,
	}
	frozen := Freeze(raw)

	m, ok := frozen.(*Map)
	if !ok {
		t.Fatalf("Freeze() returned %T, want *Map", frozen)
	}
	user, ok := m.Value("user").(*Map)
	if !ok {
		t.Fatalf("user is %T, want *Map", m.Value("user"))
	}
	tags, ok := user.Value("tags").(*List)
	if !ok || tags.Len() != 2 || tags.At(1) != "b" {
		t.Errorf("tags not frozen into a list: %#v", user.Value("tags"))
	}

	// Raw input is copied, not retained.
	raw["n"] = 2
	if m.Value("n") != 1 {
		t.Errorf("frozen map observed mutation of raw input")
	}
}

func TestFreezeIsIdempotent(t *testing.T) {
	m := NewMap(map[string]any{"a": 1})
	if Freeze(m) != any(m) {
		t.Errorf("Freeze of frozen map must return the same node")
	}
	if Freeze(42) != 42 {
		t.Errorf("Freeze of a scalar must return it unchanged")
	}
}

func TestFreezeNilContainers(t *testing.T) {
	var m map[string]any
	var s []any
	if got, ok := Freeze(m).(*Map); !ok || got.Len() != 0 {
		t.Errorf("nil map should freeze to empty *Map, got %#v", Freeze(m))
	}
	if got, ok := Freeze(s).(*List); !ok || got.Len() != 0 {
		t.Errorf("nil slice should freeze to empty *List, got %#v", Freeze(s))
	}
}

func TestHashKeyOrderIndependent(t *testing.T) {
	a := map[string]any{"x": 1, "y": map[string]any{"p": true, "q": "s"}}
	b := map[string]any{"y": map[string]any{"q": "s", "p": true}, "x": 1}
	if Hash(a) != Hash(b) {
		t.Errorf("hash must not depend on key order")
	}
}

func TestHashDistinguishes(t *testing.T) {
	tests := []struct {
		name string
		a, b any
	}{
		{"list order", []any{1, 2}, []any{2, 1}},
		{"list length", []any{1}, []any{1, nil}},
		{"int vs float", 1, 1.0},
		{"int vs string", 1, "1"},
		{"nil vs empty map", nil, map[string]any{}},
		{"empty map vs empty list", map[string]any{}, []any{}},
		{"nested leaf", map[string]any{"a": map[string]any{"b": 1}}, map[string]any{"a": map[string]any{"b": 2}}},
		{"string boundary", []any{"ab", "c"}, []any{"a", "bc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Hash(tt.a) == Hash(tt.b) {
				t.Errorf("Hash(%v) == Hash(%v)", tt.a, tt.b)
			}
		})
	}
}

func TestHashIntegerKindsAgree(t *testing.T) {
	if Hash(int64(5)) != Hash(5) || Hash(uint8(5)) != Hash(5) {
		t.Errorf("integer kinds with the same value must hash equal")
	}
}

func TestHashTerminatesOnCycles(t *testing.T) {
	a := map[string]any{"name": "a"}
	b := map[string]any{"name": "b", "peer": a}
	a["peer"] = b

	done := make(chan string, 1)
	go func() { done <- Hash(a) }()

	select {
	case h := <-done:
		if h == "" {
			t.Errorf("expected a hash for cyclic input")
		}
		if h != Hash(a) {
			t.Errorf("hash of cyclic input must be deterministic")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Hash did not terminate on cyclic input")
	}
}

func TestWithSharesSiblings(t *testing.T) {
	m := NewMap(map[string]any{
		"a": map[string]any{"b": 1},
		"c": map[string]any{"d": 2},
	})
	next := m.With("a", map[string]any{"b": 9})

	if next == m {
		t.Fatal("With must return a new node")
	}
	if next.Value("c") != m.Value("c") {
		t.Errorf("unchanged sibling must be shared by reference")
	}
	if m.Value("a").(*Map).Value("b") != 1 {
		t.Errorf("original map was modified")
	}
}

func TestListOperations(t *testing.T) {
	l := NewList(1, 2)
	l2 := l.Append(3)
	l3 := l2.With(0, "x")

	if l.Len() != 2 || l2.Len() != 3 || l3.At(0) != "x" || l2.At(0) != 1 {
		t.Errorf("unexpected list contents: %v %v %v", l.Items(), l2.Items(), l3.Items())
	}
	if l.With(2, 9).Len() != 3 {
		t.Errorf("With(Len()) should append")
	}
}

func TestLookup(t *testing.T) {
	v := Freeze(map[string]any{"items": []any{map[string]any{"id": 7}}})

	got, ok := Lookup(v, path.Parse("items.0.id"))
	if !ok || got != 7 {
		t.Errorf("Lookup = %v, %v; want 7, true", got, ok)
	}
	if _, ok := Lookup(v, path.Parse("items.3")); ok {
		t.Errorf("out of range index should not resolve")
	}
	if _, ok := Lookup(v, path.Parse("items.01")); ok {
		t.Errorf("non-canonical index should not resolve")
	}
}

func TestCloneNoAliasing(t *testing.T) {
	orig := map[string]any{"list": []any{1, map[string]any{"x": 1}}}
	cp := Clone(orig).(map[string]any)

	cp["list"].([]any)[1].(map[string]any)["x"] = 99
	if orig["list"].([]any)[1].(map[string]any)["x"] != 1 {
		t.Errorf("Clone shares nested containers with the original")
	}
}

func TestCloneCyclic(t *testing.T) {
	a := map[string]any{}
	a["self"] = a
	cp := Clone(a).(map[string]any)
	inner := cp["self"].(map[string]any)
	inner["marker"] = true
	if _, ok := cp["marker"]; !ok {
		t.Errorf("clone of a self-cycle must be self-referential")
	}
	if _, ok := a["marker"]; ok {
		t.Errorf("clone aliased the original")
	}
}

func TestCloneFuncByReference(t *testing.T) {
	called := false
	fn := func() { called = true }
	cp := Clone(map[string]any{"fn": fn}).(map[string]any)
	cp["fn"].(func())()
	if !called {
		t.Errorf("funcs must be copied by reference")
	}
}

func TestToGoAndJSON(t *testing.T) {
	m := NewMap(map[string]any{"a": []any{1, "x"}})
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"a":[1,"x"]}` {
		t.Errorf("json = %s", data)
	}

	g := m.ToGo()
	g["a"].([]any)[0] = 5
	if m.Value("a").(*List).At(0) != 1 {
		t.Errorf("ToGo result must not alias the frozen value")
	}
}

func TestIdentical(t *testing.T) {
	m := NewMap(map[string]any{"a": 1})
	fn := func() {}
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same map", m, m, true},
		{"equal maps", m, NewMap(map[string]any{"a": 1}), false},
		{"ints", 3, 3, true},
		{"different types", 3, int64(3), false},
		{"nils", nil, nil, true},
		{"same func", fn, fn, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Identical(tt.a, tt.b); got != tt.want {
				t.Errorf("Identical = %v, want %v", got, tt.want)
			}
		})
	}

	if !Equal(m, NewMap(map[string]any{"a": 1})) {
		t.Errorf("structurally equal maps must be Equal")
	}
}
