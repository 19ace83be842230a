package pathexpr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrResolution is wrapped by every *ResolutionError.
var ErrResolution = errors.New("cannot resolve path expression")

// ResolutionError names the full expression that failed, the segment where
// evaluation stopped and why.
type ResolutionError struct {
	Expression string
	Segment    string
	Reason     string
	Err        error
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %q", ErrResolution, e.Expression)
	if e.Segment != "" {
		fmt.Fprintf(&b, " at %s", e.Segment)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *ResolutionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrResolution, e.Err}
	}
	return []error{ErrResolution}
}

// Context maps step labels ("0", "1", ...) to raw step results.
type Context map[string]any

// Evaluate walks the expression through ctx.
func (e *Expr) Evaluate(ctx Context) (any, error) {
	cur, ok := ctx[e.Step]
	if !ok {
		return nil, &ResolutionError{
			Expression: e.Raw,
			Segment:    "step " + e.Step,
			Reason:     "no result for step",
		}
	}
	for _, seg := range e.Path {
		next, err := child(cur, seg)
		if err != nil {
			return nil, &ResolutionError{Expression: e.Raw, Segment: seg.String(), Reason: err.Error()}
		}
		cur = next
	}
	return cur, nil
}

func child(v any, seg Segment) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, errors.New("value is null")
	case map[string]any:
		val, ok := t[seg.key()]
		if !ok {
			return nil, fmt.Errorf("key %q not found", seg.key())
		}
		return val, nil
	case []any:
		i, ok := seg.index()
		if !ok {
			return nil, fmt.Errorf("field %q on an array", seg.Key)
		}
		if i >= len(t) {
			return nil, fmt.Errorf("index %d out of range (length %d)", i, len(t))
		}
		return t[i], nil
	}

	// Backends and tests may hand over typed containers.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		kt := rv.Type().Key()
		if kt.Kind() != reflect.String {
			return nil, fmt.Errorf("map with %s keys", kt)
		}
		val := rv.MapIndex(reflect.ValueOf(seg.key()).Convert(kt))
		if !val.IsValid() {
			return nil, fmt.Errorf("key %q not found", seg.key())
		}
		return val.Interface(), nil
	case reflect.Slice, reflect.Array:
		i, ok := seg.index()
		if !ok {
			return nil, fmt.Errorf("field %q on an array", seg.Key)
		}
		if i >= rv.Len() {
			return nil, fmt.Errorf("index %d out of range (length %d)", i, rv.Len())
		}
		return rv.Index(i).Interface(), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, errors.New("value is null")
		}
		return child(rv.Elem().Interface(), seg)
	}
	return nil, fmt.Errorf("cannot descend into %T", v)
}
