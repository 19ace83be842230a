package pathexpr

import (
	"slices"
	"strings"
	"testing"
)

func TestValidate_ReportsOnlyUnavailableSteps(t *testing.T) {
	t.Parallel()

	rep := Validate(map[string]any{"a": "$.1.x", "b": "$.5.y"}, []string{"0", "1"})
	if rep.Valid {
		t.Fatal("expected invalid report")
	}
	if len(rep.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one", rep.Errors)
	}
	if !strings.Contains(rep.Errors[0], `"5"`) || strings.Contains(rep.Errors[0], `"1"`) {
		t.Errorf("error = %q, want a reference to step 5 only", rep.Errors[0])
	}
}

func TestValidate_CollectsEverything(t *testing.T) {
	t.Parallel()

	rep := Validate(map[string]any{
		"z":      "$.9.a",
		"list":   []any{"$.0.ok", "$.7.b"},
		"nested": map[string]any{"deep": "$.8.c", "bad": "$.0["},
		"lit":    "plain",
	}, []string{"0"})

	if rep.Valid {
		t.Fatal("expected invalid report")
	}
	if len(rep.Errors) != 4 {
		t.Fatalf("Errors = %v, want 4", rep.Errors)
	}
	prefixes := make([]string, 0, len(rep.Errors))
	for _, e := range rep.Errors {
		prefixes = append(prefixes, e[:strings.Index(e, ":")])
	}
	if want := []string{"list[1]", "nested.bad", "nested.deep", "z"}; !slices.Equal(prefixes, want) {
		t.Errorf("error locations = %v, want %v", prefixes, want)
	}
}

func TestValidate_Clean(t *testing.T) {
	t.Parallel()

	rep := Validate(map[string]any{"a": "$.0.x", "b": 3}, []string{"0"})
	if !rep.Valid || len(rep.Errors) != 0 {
		t.Errorf("report = %+v", rep)
	}
	if rep.Errors == nil {
		t.Error("Errors should be empty, not nil")
	}
}

func TestStepLabels(t *testing.T) {
	t.Parallel()

	if got := StepLabels(3); !slices.Equal(got, []string{"0", "1", "2"}) {
		t.Errorf("StepLabels(3) = %v", got)
	}
	if got := StepLabels(0); len(got) != 0 {
		t.Errorf("StepLabels(0) = %v", got)
	}
}
