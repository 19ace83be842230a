package pathexpr

import (
	"reflect"
	"strings"
)

// DefaultPluralSuffixes are the parameter-name endings that mark a
// collection-valued parameter.
var DefaultPluralSuffixes = []string{"Ids", "IDs", "_ids", "Names", "_names", "Paths", "_paths", "List", "_list"}

// Resolver substitutes path expressions inside parameter values.
type Resolver struct {
	suffixes []string
}

// NewResolver creates a resolver. A nil suffix list selects
// DefaultPluralSuffixes; an empty non-nil list disables coercion.
func NewResolver(pluralSuffixes []string) *Resolver {
	if pluralSuffixes == nil {
		pluralSuffixes = DefaultPluralSuffixes
	}
	return &Resolver{suffixes: pluralSuffixes}
}

// Resolve returns v with every expression string replaced by the value it
// references in ctx. Slices and maps are resolved recursively; any other
// value is a literal and returned as is. The input is never modified.
func (r *Resolver) Resolve(v any, ctx Context) (any, error) {
	switch t := v.(type) {
	case string:
		if !IsExpression(t) {
			return t, nil
		}
		expr, err := Parse(t)
		if err != nil {
			return nil, &ResolutionError{Expression: t, Reason: "malformed expression", Err: err}
		}
		return expr.Evaluate(ctx)
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			res, err := r.Resolve(el, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = res
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, el := range t {
			res, err := r.Resolve(el, ctx)
			if err != nil {
				return nil, err
			}
			out[k] = res
		}
		return out, nil
	default:
		return v, nil
	}
}

// ResolveParams resolves a parameter mapping and then applies the plural
// coercion rule to its top-level entries: a non-nil scalar bound to a
// plural-named key is wrapped in a one-element slice.
func (r *Resolver) ResolveParams(mapping map[string]any, ctx Context) (map[string]any, error) {
	out := make(map[string]any, len(mapping))
	for k, v := range mapping {
		res, err := r.Resolve(v, ctx)
		if err != nil {
			return nil, err
		}
		if res != nil && r.IsPlural(k) && !isSequence(res) {
			res = []any{res}
		}
		out[k] = res
	}
	return out, nil
}

// IsPlural reports whether a parameter name ends with a plural suffix.
func (r *Resolver) IsPlural(name string) bool {
	for _, s := range r.suffixes {
		if len(name) > len(s) && strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

func isSequence(v any) bool {
	if _, ok := v.([]any); ok {
		return true
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}
