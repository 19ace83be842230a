// Package catalog holds the immutable tool catalog: descriptors grouped by
// category, their parameter schemas, and the read-only query surface the
// gateway exposes for discovery. The registry is populated by one explicit
// registration pass at startup and sealed with Freeze.
package catalog

import "github.com/santhosh-tekuri/jsonschema/v6"

// FieldType is the declared type of a tool parameter.
type FieldType string

// Supported parameter types. TypeAny accepts every JSON value.
const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
	TypeAny     FieldType = "any"
)

// Valid reports whether t is a known parameter type.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeArray, TypeObject, TypeAny:
		return true
	default:
		return false
	}
}

// Field describes one parameter of a tool.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Default     any
	Description string

	// IsAlias marks a legacy parameter name. Alias fields are accepted at
	// execution time but hidden from catalog output.
	IsAlias bool
}

// ParameterSchema is the ordered list of a tool's parameters.
type ParameterSchema []Field

// Lookup returns the field with the given name.
func (s ParameterSchema) Lookup(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Public returns the schema without alias fields.
func (s ParameterSchema) Public() ParameterSchema {
	out := make(ParameterSchema, 0, len(s))
	for _, f := range s {
		if f.IsAlias {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Descriptor is a registered tool. Descriptors are immutable once registered;
// the registry hands out pointers that callers must not modify.
type Descriptor struct {
	Name        string
	Category    string
	Description string
	Version     string
	Params      ParameterSchema

	compiled *jsonschema.Schema
}
