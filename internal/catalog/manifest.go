package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the declarative catalog definition loaded at startup.
// Registration follows document order: categories first to last, tools in
// the order they are listed.
type Manifest struct {
	Categories []ManifestCategory `yaml:"categories"`
}

// ManifestCategory groups tools under a category key.
type ManifestCategory struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Tools       []ManifestTool `yaml:"tools"`
}

// ManifestTool declares one tool.
type ManifestTool struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Version     string         `yaml:"version"`
	Params      manifestParams `yaml:"params"`
}

// ManifestField declares one parameter.
type ManifestField struct {
	Type        FieldType `yaml:"type"`
	Required    bool      `yaml:"required"`
	Default     any       `yaml:"default"`
	Description string    `yaml:"description"`
	Alias       bool      `yaml:"alias"`
}

// manifestParams decodes a YAML mapping of field name to ManifestField while
// keeping the document order of the keys.
type manifestParams ParameterSchema

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *manifestParams) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: params must be a mapping", node.Line)
	}
	out := make(manifestParams, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var mf ManifestField
		if err := val.Decode(&mf); err != nil {
			return fmt.Errorf("line %d: param %q: %w", key.Line, key.Value, err)
		}
		if mf.Type == "" {
			mf.Type = TypeAny
		}
		out = append(out, Field{
			Name:        key.Value,
			Type:        mf.Type,
			Required:    mf.Required,
			Default:     mf.Default,
			Description: mf.Description,
			IsAlias:     mf.Alias,
		})
	}
	*p = out
	return nil
}

// LoadManifest reads and parses a YAML catalog manifest.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	return ParseManifest(raw)
}

// ParseManifest parses a YAML catalog manifest.
func ParseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("catalog: parsing manifest: %w", err)
	}
	return &m, nil
}

// Build runs the registration pass and returns a frozen registry. Every
// problem is reported, not just the first; a duplicate tool name wraps
// ErrDuplicateTool.
func (m *Manifest) Build() (*Registry, error) {
	reg := NewRegistry()
	var errs []error

	for _, c := range m.Categories {
		if c.Description != "" {
			if err := reg.DescribeCategory(c.Name, c.Description); err != nil {
				errs = append(errs, fmt.Errorf("catalog: category %q: %w", c.Name, err))
				continue
			}
		}
		for _, t := range c.Tools {
			err := reg.Register(Descriptor{
				Name:        t.Name,
				Category:    c.Name,
				Description: t.Description,
				Version:     t.Version,
				Params:      ParameterSchema(t.Params),
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("catalog: category %q: %w", c.Name, err))
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if reg.Len() == 0 {
		return nil, errors.New("catalog: manifest declares no tools")
	}

	reg.Freeze()
	return reg, nil
}
