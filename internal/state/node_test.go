package state

import (
	stderrors "errors"
	"testing"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/path"
	"github.com/vango-dev/reactor/pkg/value"
)

func paths(ps []path.Path) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func codeOf(err error) string {
	var re *errors.Error
	if stderrors.As(err, &re) {
		return re.Code
	}
	return ""
}

func TestNewKind(t *testing.T) {
	if New(42).Kind() != KindPrimitive {
		t.Error("int should be primitive")
	}
	if New(map[string]any{"a": 1}).Kind() != KindComposite {
		t.Error("map should be composite")
	}
	if New([]any{1}).Kind() != KindComposite {
		t.Error("slice should be composite")
	}
	if KindComposite.String() != "composite" {
		t.Errorf("String() = %q", KindComposite.String())
	}
}

func TestUpdateNoop(t *testing.T) {
	n := New(map[string]any{"count": 0})
	next, changed := n.Update(func(any) any { return map[string]any{"count": 0} })
	if next != n {
		t.Error("unchanged hash should return the same node")
	}
	if changed != nil {
		t.Errorf("changed = %v, want nil", changed)
	}

	p := New("x")
	if next, changed := p.Replace("x"); next != p || changed != nil {
		t.Error("primitive no-op should return receiver")
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name string
		from any
		to   any
		want []string
	}{
		{
			name: "all children changed rolls up to parent",
			from: map[string]any{"a": map[string]any{"b": 1, "c": 2}},
			to:   map[string]any{"a": map[string]any{"b": 9, "c": 9}},
			want: []string{"a"},
		},
		{
			name: "single leaf",
			from: map[string]any{"a": map[string]any{"b": 1, "c": 2}},
			to:   map[string]any{"a": map[string]any{"b": 9, "c": 2}},
			want: []string{"a.b"},
		},
		{
			name: "added key",
			from: map[string]any{"a": 1},
			to:   map[string]any{"a": 1, "b": 2},
			want: []string{"b"},
		},
		{
			name: "removed key",
			from: map[string]any{"a": 1, "b": 2},
			to:   map[string]any{"a": 1},
			want: []string{"b"},
		},
		{
			name: "list length",
			from: map[string]any{"items": []any{1, 2}, "x": 1},
			to:   map[string]any{"items": []any{1, 2, 3}, "x": 1},
			want: []string{"items"},
		},
		{
			name: "list element",
			from: map[string]any{"items": []any{1, 2}, "x": 1},
			to:   map[string]any{"items": []any{1, 5}, "x": 1},
			want: []string{"items.1"},
		},
		{
			name: "kind change",
			from: map[string]any{"a": map[string]any{"b": 1}, "x": 1},
			to:   map[string]any{"a": []any{1}, "x": 1},
			want: []string{"a"},
		},
		{
			name: "nil on one side",
			from: map[string]any{"a": nil, "x": 1},
			to:   map[string]any{"a": 1, "x": 1},
			want: []string{"a"},
		},
		{
			name: "root with single key is not rolled up",
			from: map[string]any{"n": 0},
			to:   map[string]any{"n": 1},
			want: []string{"n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, changed := New(tt.from).Replace(tt.to)
			if got := paths(changed); !equalStrings(got, tt.want) {
				t.Errorf("changed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReplacePrimitive(t *testing.T) {
	_, changed := New(1).Replace(2)
	if len(changed) != 1 || !changed[0].IsRoot() {
		t.Errorf("changed = %v, want [root]", changed)
	}

	_, changed = New(map[string]any{"a": 1}).Replace(3)
	if len(changed) != 1 || !changed[0].IsRoot() {
		t.Errorf("composite to primitive changed = %v, want [root]", changed)
	}
}

func TestGetPath(t *testing.T) {
	n := New(map[string]any{
		"user":  map[string]any{"name": "J"},
		"items": []any{"x", "y"},
		"leaf":  1,
	})

	got, err := n.GetPath(path.Parse("user.name"))
	if err != nil || got != "J" {
		t.Errorf("GetPath(user.name) = %v, %v", got, err)
	}
	got, err = n.GetPath(path.New("items", 1))
	if err != nil || got != "y" {
		t.Errorf("GetPath(items.1) = %v, %v", got, err)
	}
	root, err := n.GetPath(path.Root)
	if err != nil || root != n.Value() {
		t.Error("GetPath(root) should return the node value")
	}

	tests := []struct {
		name string
		p    path.Path
		code string
	}{
		{"missing property", path.Parse("user.age"), errors.CodeUnresolvablePath},
		{"through leaf", path.Parse("leaf.x"), errors.CodeUnresolvablePath},
		{"index out of range", path.New("items", 5), errors.CodeIndexRange},
		{"non numeric index", path.Parse("items.first"), errors.CodeIndexRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.GetPath(tt.p)
			if got := codeOf(err); got != tt.code {
				t.Errorf("code = %q, want %q (err=%v)", got, tt.code, err)
			}
		})
	}

	if _, err := New(5).GetPath(path.Parse("a")); codeOf(err) != errors.CodePrimitivePath {
		t.Errorf("primitive GetPath err = %v", err)
	}
}

func TestSetPathStructuralSharing(t *testing.T) {
	n := New(map[string]any{
		"a": map[string]any{"b": 1},
		"c": map[string]any{"d": 1},
	})
	before := n.Value().(*value.Map).Value("c")

	next, changed, err := n.SetPath(path.Parse("a.b"), 2)
	if err != nil {
		t.Fatalf("SetPath: %v", err)
	}
	if got := paths(changed); !equalStrings(got, []string{"a.b"}) {
		t.Errorf("changed = %v", got)
	}
	after := next.Value().(*value.Map).Value("c")
	if before != after {
		t.Error("sibling branch should keep its identity")
	}
	if n.Value().(*value.Map).Value("a").(*value.Map).Value("b") != 1 {
		t.Error("original node was mutated")
	}
	if next.Hash() == n.Hash() {
		t.Error("hash should change")
	}
}

func TestSetPathNoop(t *testing.T) {
	n := New(map[string]any{"u": map[string]any{"name": "J"}})
	next, changed, err := n.SetPath(path.Parse("u"), map[string]any{"name": "J"})
	if err != nil || next != n || changed != nil {
		t.Errorf("SetPath no-op = %p, %v, %v", next, changed, err)
	}
}

func TestSetPathShapes(t *testing.T) {
	n := New(map[string]any{"l": []any{1}, "leaf": 1})

	next, changed, err := n.SetPath(path.Parse("x.y"), 1)
	if err != nil {
		t.Fatalf("missing intermediates: %v", err)
	}
	if got, _ := next.GetPath(path.Parse("x.y")); got != 1 {
		t.Errorf("x.y = %v", got)
	}
	if got := paths(changed); !equalStrings(got, []string{"x.y"}) {
		t.Errorf("changed = %v", got)
	}

	next, _, err = n.SetPath(path.New("l", 1), 2)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if l, _ := next.GetPath(path.Parse("l")); l.(*value.List).Len() != 2 {
		t.Error("index == len should append")
	}

	if _, _, err := n.SetPath(path.New("l", 5), 2); codeOf(err) != errors.CodeIndexRange {
		t.Errorf("out of range err = %v", err)
	}
	if _, _, err := n.SetPath(path.Parse("leaf.x"), 2); codeOf(err) != errors.CodeUnresolvablePath {
		t.Errorf("through leaf err = %v", err)
	}
	if _, _, err := New(1).SetPath(path.Parse("a"), 2); codeOf(err) != errors.CodePrimitivePath {
		t.Errorf("primitive err = %v", err)
	}
}

func TestSetPathCompositeRollUp(t *testing.T) {
	n := New(map[string]any{"a": map[string]any{"b": 1, "c": 2}, "z": 0})
	_, changed, err := n.SetPath(path.Parse("a"), map[string]any{"b": 9, "c": 9})
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(changed); !equalStrings(got, []string{"a"}) {
		t.Errorf("changed = %v, want [a]", got)
	}

	_, changed, _ = n.SetPath(path.Parse("a"), map[string]any{"b": 9, "c": 2})
	if got := paths(changed); !equalStrings(got, []string{"a.b"}) {
		t.Errorf("changed = %v, want [a.b]", got)
	}
}
