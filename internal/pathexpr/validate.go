package pathexpr

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Report is the outcome of a static validation pass.
type Report struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate checks every expression in mapping, recursing into nested slices
// and maps, without evaluating anything. It reports every malformed
// expression and every reference to a label not in available, in one pass.
func Validate(mapping map[string]any, available []string) Report {
	v := validator{labels: make(map[string]struct{}, len(available)), errs: []string{}}
	for _, l := range available {
		v.labels[l] = struct{}{}
	}
	v.walkMap("", mapping)
	return Report{Valid: len(v.errs) == 0, Errors: v.errs}
}

// StepLabels returns the labels of the first n steps: "0" .. n-1.
func StepLabels(n int) []string {
	out := make([]string, n)
	for i := range n {
		out[i] = strconv.Itoa(i)
	}
	return out
}

type validator struct {
	labels map[string]struct{}
	errs   []string
}

func (v *validator) walk(path string, val any) {
	switch t := val.(type) {
	case string:
		v.check(path, t)
	case []any:
		for i, el := range t {
			v.walk(fmt.Sprintf("%s[%d]", path, i), el)
		}
	case map[string]any:
		v.walkMap(path, t)
	}
}

func (v *validator) walkMap(prefix string, m map[string]any) {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		v.walk(path, m[k])
	}
}

func (v *validator) check(path, s string) {
	if !IsExpression(s) {
		return
	}
	expr, err := Parse(s)
	if err != nil {
		v.errs = append(v.errs, fmt.Sprintf("%s: %v", path, err))
		return
	}
	if _, ok := v.labels[expr.Step]; !ok {
		v.errs = append(v.errs, fmt.Sprintf("%s: %q references step %q, which is not available", path, s, expr.Step))
	}
}
