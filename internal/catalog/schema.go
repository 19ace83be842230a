package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
)

// JSONSchema renders the parameter schema as a JSON Schema object. Alias
// fields are included so that legacy names validate; unknown properties are
// allowed and left for the backend to interpret.
func (s ParameterSchema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s))
	var required []string
	for _, f := range s {
		prop := map[string]any{}
		if f.Type != "" && f.Type != TypeAny {
			prop["type"] = string(f.Type)
		}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		if f.Default != nil {
			prop["default"] = f.Default
		}
		props[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}

	doc := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

// compileSchema validates field declarations and compiles the rendered JSON
// Schema once, at registration.
func compileSchema(tool string, params ParameterSchema) (*jsonschema.Schema, error) {
	seen := make(map[string]struct{}, len(params))
	for _, f := range params {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: %s: field with empty name", ErrInvalidSchema, tool)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%w: %s: field %q declared twice", ErrInvalidSchema, tool, f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Type != "" && !f.Type.Valid() {
			return nil, fmt.Errorf("%w: %s: field %q has unknown type %q", ErrInvalidSchema, tool, f.Name, f.Type)
		}
	}

	doc, err := toJSONValue(params.JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, tool, err)
	}

	url := "mem://toolgate/tools/" + tool + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, tool, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, tool, err)
	}
	return sch, nil
}

// Validate checks params against the tool's schema: required fields must be
// present and values must conform to the declared types. The returned
// *ValidationError lists the offending field names.
func (d *Descriptor) Validate(params map[string]any) error {
	if params == nil {
		params = map[string]any{}
	}
	if d.compiled == nil {
		return nil
	}

	inst, err := toJSONValue(params)
	if err != nil {
		return &ValidationError{Tool: d.Name, Detail: "parameters are not JSON-serializable: " + err.Error()}
	}

	err = d.compiled.Validate(inst)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		return &ValidationError{Tool: d.Name, Fields: offendingFields(ve), Detail: ve.Error()}
	}
	return &ValidationError{Tool: d.Name, Detail: err.Error()}
}

// WithDefaults returns a copy of params with defaults filled in for absent
// fields. Alias fields never receive defaults.
func (d *Descriptor) WithDefaults(params map[string]any) map[string]any {
	out := make(map[string]any, len(params)+len(d.Params))
	maps.Copy(out, params)
	for _, f := range d.Params {
		if f.IsAlias || f.Default == nil {
			continue
		}
		if _, ok := out[f.Name]; !ok {
			out[f.Name] = f.Default
		}
	}
	return out
}

// offendingFields collects the top-level property names a validation error
// points at, including the names listed by "required" failures.
func offendingFields(root *jsonschema.ValidationError) []string {
	set := make(map[string]struct{})
	var walk func(ve *jsonschema.ValidationError)
	walk = func(ve *jsonschema.ValidationError) {
		if req, ok := ve.ErrorKind.(*kind.Required); ok {
			for _, name := range req.Missing {
				set[name] = struct{}{}
			}
		} else if len(ve.InstanceLocation) > 0 {
			set[ve.InstanceLocation[0]] = struct{}{}
		}
		for _, cause := range ve.Causes {
			walk(cause)
		}
	}
	walk(root)

	fields := slices.Collect(maps.Keys(set))
	slices.Sort(fields)
	return fields
}

// toJSONValue converts an arbitrary Go value into the plain JSON value tree
// the validator expects (numbers become json.Number).
func toJSONValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}
