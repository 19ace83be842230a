package catalog

import (
	"errors"
	"slices"
	"testing"
)

func colorThing(t *testing.T) *Descriptor {
	t.Helper()

	r := NewRegistry()
	err := r.Register(Descriptor{
		Name:     "colorThing",
		Category: "things",
		Params: ParameterSchema{
			{Name: "targetId", Type: TypeInteger, Required: true},
			{Name: "color", Type: TypeString, Required: true},
			{Name: "finish", Type: TypeString, Default: "matte"},
			{Name: "target_id", Type: TypeInteger, IsAlias: true},
			{Name: "extra", Type: TypeAny},
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	d, err := r.Get("colorThing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return d
}

func TestDescriptorValidate(t *testing.T) {
	t.Parallel()

	d := colorThing(t)

	tests := []struct {
		name       string
		params     map[string]any
		wantFields []string
	}{
		{
			name:   "valid",
			params: map[string]any{"targetId": 7, "color": "red"},
		},
		{
			name:   "float integral value is an integer",
			params: map[string]any{"targetId": 7.0, "color": "red"},
		},
		{
			name:   "alias accepted",
			params: map[string]any{"targetId": 7, "color": "red", "target_id": 7},
		},
		{
			name:   "unknown properties pass through",
			params: map[string]any{"targetId": 7, "color": "red", "note": "hi"},
		},
		{
			name:   "any type accepts objects",
			params: map[string]any{"targetId": 7, "color": "red", "extra": map[string]any{"a": 1}},
		},
		{
			name:       "missing required",
			params:     map[string]any{"color": "red"},
			wantFields: []string{"targetId"},
		},
		{
			name:       "nil params reports every required field",
			params:     nil,
			wantFields: []string{"color", "targetId"},
		},
		{
			name:       "wrong type",
			params:     map[string]any{"targetId": "seven", "color": "red"},
			wantFields: []string{"targetId"},
		},
		{
			name:       "missing and wrong type together",
			params:     map[string]any{"targetId": 1.5},
			wantFields: []string{"color", "targetId"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := d.Validate(tt.params)
			if tt.wantFields == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("ValidationError does not unwrap to ErrValidation")
			}
			if !slices.Equal(ve.Fields, tt.wantFields) {
				t.Errorf("Fields = %v, want %v", ve.Fields, tt.wantFields)
			}
		})
	}
}

func TestDescriptorWithDefaults(t *testing.T) {
	t.Parallel()

	d := colorThing(t)
	in := map[string]any{"targetId": 7, "color": "red"}

	out := d.WithDefaults(in)
	if out["finish"] != "matte" {
		t.Errorf("finish = %v, want matte", out["finish"])
	}
	if _, ok := in["finish"]; ok {
		t.Error("WithDefaults mutated its input")
	}

	out = d.WithDefaults(map[string]any{"finish": "gloss"})
	if out["finish"] != "gloss" {
		t.Errorf("explicit value overwritten: %v", out["finish"])
	}
}

func TestParameterSchemaJSONSchema(t *testing.T) {
	t.Parallel()

	s := ParameterSchema{
		{Name: "a", Type: TypeString, Required: true, Description: "first"},
		{Name: "b", Type: TypeAny, Default: 3},
	}
	doc := s.JSONSchema()

	props, ok := doc["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing: %v", doc)
	}
	a := props["a"].(map[string]any)
	if a["type"] != "string" || a["description"] != "first" {
		t.Errorf("a = %v", a)
	}
	b := props["b"].(map[string]any)
	if _, hasType := b["type"]; hasType {
		t.Errorf("any-typed field should not declare a type: %v", b)
	}
	if b["default"] != 3 {
		t.Errorf("b default = %v", b["default"])
	}
	if req, _ := doc["required"].([]string); !slices.Equal(req, []string{"a"}) {
		t.Errorf("required = %v", doc["required"])
	}
}

func TestParameterSchemaPublic(t *testing.T) {
	t.Parallel()

	s := ParameterSchema{{Name: "a"}, {Name: "legacy", IsAlias: true}, {Name: "b"}}
	var names []string
	for _, f := range s.Public() {
		names = append(names, f.Name)
	}
	if want := []string{"a", "b"}; !slices.Equal(names, want) {
		t.Errorf("Public() = %v, want %v", names, want)
	}
}
