package pathexpr

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestResolve_NestedPath(t *testing.T) {
	t.Parallel()

	ctx := Context{"0": map[string]any{"foo": map[string]any{"bar": []any{10, 20}}}}
	got, err := NewResolver(nil).Resolve("$.0.foo.bar[1]", ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != 20 {
		t.Errorf("got %v, want 20", got)
	}
}

func TestResolve_DotIndexOnArray(t *testing.T) {
	t.Parallel()

	ctx := Context{"0": map[string]any{"items": []any{"a", "b"}}}
	got, err := NewResolver(nil).Resolve("$.0.items.1", ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "b" {
		t.Errorf("got %v, want b", got)
	}
}

func TestResolve_TypedContainers(t *testing.T) {
	t.Parallel()

	ctx := Context{"0": map[string]any{
		"rows": []map[string]string{{"name": "x"}},
	}}
	got, err := NewResolver(nil).Resolve("$.0.rows[0].name", ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "x" {
		t.Errorf("got %v, want x", got)
	}
}

func TestResolve_Recursive(t *testing.T) {
	t.Parallel()

	ctx := Context{"0": map[string]any{"id": 7}, "1": map[string]any{"path": "/tmp"}}
	in := map[string]any{
		"ids":    []any{"$.0.id", 8},
		"nested": map[string]any{"where": "$.1.path", "n": 3},
		"plain":  "hello",
		"flag":   true,
	}
	got, err := NewResolver(nil).Resolve(in, ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := map[string]any{
		"ids":    []any{7, 8},
		"nested": map[string]any{"where": "/tmp", "n": 3},
		"plain":  "hello",
		"flag":   true,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}
	if in["plain"] != "hello" || in["ids"].([]any)[0] != "$.0.id" {
		t.Error("input was modified")
	}
}

func TestResolve_MissingSegmentNamesWholeExpression(t *testing.T) {
	t.Parallel()

	ctx := Context{"0": map[string]any{"foo": map[string]any{}}}
	_, err := NewResolver(nil).Resolve("$.0.foo.bar[1]", ctx)

	var re *ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("expected *ResolutionError, got %v", err)
	}
	if !errors.Is(err, ErrResolution) {
		t.Error("does not unwrap to ErrResolution")
	}
	if re.Expression != "$.0.foo.bar[1]" {
		t.Errorf("Expression = %q", re.Expression)
	}
	if re.Segment != ".bar" {
		t.Errorf("Segment = %q", re.Segment)
	}
	if !strings.Contains(err.Error(), "$.0.foo.bar[1]") {
		t.Errorf("message does not name the expression: %v", err)
	}
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()

	ctx := Context{"0": map[string]any{"list": []any{1}, "nothing": nil, "n": 5}}
	for _, expr := range []string{
		"$.1.id",
		"$.0.list[4]",
		"$.0.list.name",
		"$.0.nothing.x",
		"$.0.n.x",
	} {
		t.Run(expr, func(t *testing.T) {
			t.Parallel()

			if _, err := NewResolver(nil).Resolve(expr, ctx); !errors.Is(err, ErrResolution) {
				t.Fatalf("expected ErrResolution, got %v", err)
			}
		})
	}
}

func TestResolve_MalformedIsResolutionError(t *testing.T) {
	t.Parallel()

	_, err := NewResolver(nil).Resolve("$.0[", Context{})
	if !errors.Is(err, ErrResolution) || !errors.Is(err, ErrSyntax) {
		t.Fatalf("expected ErrResolution and ErrSyntax, got %v", err)
	}
}

func TestResolveParams_PluralCoercion(t *testing.T) {
	t.Parallel()

	ctx := Context{"0": map[string]any{"instanceId": 42, "ids": []any{1, 2}}}
	r := NewResolver(nil)

	tests := []struct {
		name    string
		mapping map[string]any
		want    map[string]any
	}{
		{
			name:    "scalar wrapped",
			mapping: map[string]any{"instanceIds": "$.0.instanceId"},
			want:    map[string]any{"instanceIds": []any{42}},
		},
		{
			name:    "sequence kept",
			mapping: map[string]any{"instanceIds": "$.0.ids"},
			want:    map[string]any{"instanceIds": []any{1, 2}},
		},
		{
			name:    "literal scalar wrapped",
			mapping: map[string]any{"file_paths": "/a"},
			want:    map[string]any{"file_paths": []any{"/a"}},
		},
		{
			name:    "singular untouched",
			mapping: map[string]any{"instanceId": "$.0.instanceId"},
			want:    map[string]any{"instanceId": 42},
		},
		{
			name:    "nil not wrapped",
			mapping: map[string]any{"tagNames": nil},
			want:    map[string]any{"tagNames": nil},
		},
		{
			name:    "nested keys not coerced",
			mapping: map[string]any{"opts": map[string]any{"userIds": 1}},
			want:    map[string]any{"opts": map[string]any{"userIds": 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.ResolveParams(tt.mapping, ctx)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestResolver_IsPlural(t *testing.T) {
	t.Parallel()

	r := NewResolver(nil)
	for name, want := range map[string]bool{
		"instanceIds": true,
		"userIDs":     true,
		"file_paths":  true,
		"tagNames":    true,
		"itemList":    true,
		"Ids":         false,
		"id":          false,
		"name":        false,
	} {
		if got := r.IsPlural(name); got != want {
			t.Errorf("IsPlural(%q) = %v, want %v", name, got, want)
		}
	}

	if NewResolver([]string{}).IsPlural("instanceIds") {
		t.Error("empty suffix list should disable coercion")
	}
}
