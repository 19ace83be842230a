package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrToolNotFound is returned when a tool is not found in the registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrDuplicateTool is returned when registering a tool with a name that
	// already exists in the registry.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrEmptyToolName is returned when a tool name is empty.
	ErrEmptyToolName = errors.New("tool name must not be empty")

	// ErrEmptyCategory is returned when a tool declares no category.
	ErrEmptyCategory = errors.New("tool category must not be empty")

	// ErrRegistryFrozen is returned by Register once the startup pass is over.
	ErrRegistryFrozen = errors.New("registry is frozen")

	// ErrInvalidSchema is returned when a parameter schema cannot be compiled.
	ErrInvalidSchema = errors.New("invalid parameter schema")

	// ErrValidation is the sentinel wrapped by every ValidationError.
	ErrValidation = errors.New("parameter validation failed")
)

// ValidationError reports parameters that do not conform to a tool's schema.
type ValidationError struct {
	Tool   string
	Fields []string
	Detail string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Tool, e.Detail)
	}
	return fmt.Sprintf("%s: %s: invalid fields [%s]", ErrValidation, e.Tool, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
