package catalog

import (
	"bytes"
	"encoding/json"
)

// AccessRecorder receives catalog access events. The workflow gate
// implements it so that discovery unlocks execution.
type AccessRecorder interface {
	RecordCatalogAccess(resourceKey string)
}

// Query is the read-only discovery surface over a Registry. Queries never
// fail as a whole: unknown names are reported in side-channel lists next to
// the valid results.
type Query struct {
	registry *Registry
	recorder AccessRecorder
}

// NewQuery creates a query surface. recorder may be nil.
func NewQuery(reg *Registry, recorder AccessRecorder) *Query {
	return &Query{registry: reg, recorder: recorder}
}

func (q *Query) record(key string) {
	if q.recorder != nil {
		q.recorder.RecordCatalogAccess(key)
	}
}

// CategorySummary describes one category in ListCategories output.
type CategorySummary struct {
	Name        string `json:"-"`
	Description string `json:"description"`
	ToolCount   int    `json:"toolCount"`
}

// CategoryList is the result of ListCategories.
type CategoryList struct {
	Categories     []CategorySummary
	TotalToolCount int
}

// MarshalJSON renders categories as an object keyed by name, in catalog order.
func (l CategoryList) MarshalJSON() ([]byte, error) {
	var obj orderedObject
	for _, c := range l.Categories {
		obj = append(obj, member{Key: c.Name, Value: c})
	}
	return json.Marshal(struct {
		Categories     orderedObject `json:"categories"`
		TotalToolCount int           `json:"totalToolCount"`
	}{obj, l.TotalToolCount})
}

// ListCategories returns every non-empty category with its tool count.
func (q *Query) ListCategories() CategoryList {
	var out CategoryList
	for _, name := range q.registry.Categories() {
		n := len(q.registry.ByCategory(name))
		out.Categories = append(out.Categories, CategorySummary{
			Name:        name,
			Description: q.registry.CategoryDescription(name),
			ToolCount:   n,
		})
		out.TotalToolCount += n
	}
	q.record(ResourceCategories)
	return out
}

// ToolSummary is the short form of a tool in ListToolNames output.
type ToolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CategoryTools lists the tools of one category.
type CategoryTools struct {
	Category string
	Tools    []ToolSummary
}

// ToolNames is the result of ListToolNames.
type ToolNames struct {
	Categories []CategoryTools
	Invalid    []string
}

// Lookup returns the tools listed for a category.
func (t ToolNames) Lookup(category string) ([]ToolSummary, bool) {
	for _, c := range t.Categories {
		if c.Category == category {
			return c.Tools, true
		}
	}
	return nil, false
}

// MarshalJSON renders one key per requested category plus "invalid" when
// some names were unknown.
func (t ToolNames) MarshalJSON() ([]byte, error) {
	obj := make(orderedObject, 0, len(t.Categories)+1)
	for _, c := range t.Categories {
		tools := c.Tools
		if tools == nil {
			tools = []ToolSummary{}
		}
		obj = append(obj, member{Key: c.Category, Value: tools})
	}
	if len(t.Invalid) > 0 {
		obj = append(obj, member{Key: "invalid", Value: t.Invalid})
	}
	return json.Marshal(obj)
}

// ListToolNames returns the tools of each requested category. Unknown
// category names are collected in Invalid; duplicates are ignored.
func (q *Query) ListToolNames(categories []string) ToolNames {
	var out ToolNames
	q.record(ResourceCategories)
	for _, name := range dedupe(categories) {
		tools := q.registry.ByCategory(name)
		if len(tools) == 0 {
			out.Invalid = append(out.Invalid, name)
			continue
		}
		summaries := make([]ToolSummary, 0, len(tools))
		for _, d := range tools {
			summaries = append(summaries, ToolSummary{Name: d.Name, Description: d.Description})
		}
		out.Categories = append(out.Categories, CategoryTools{Category: name, Tools: summaries})
		q.record(CategoryResource(name))
	}
	return out
}

// FieldView is the catalog rendering of a parameter.
type FieldView struct {
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
	Default     any       `json:"default,omitempty"`
}

// ToolSchema is the public parameter schema of one tool.
type ToolSchema struct {
	Name    string
	Version string
	Params  ParameterSchema
}

// MarshalJSON renders the fields as an object in declaration order.
func (s ToolSchema) MarshalJSON() ([]byte, error) {
	obj := make(orderedObject, 0, len(s.Params))
	for _, f := range s.Params {
		obj = append(obj, member{Key: f.Name, Value: FieldView{
			Type:        f.Type,
			Required:    f.Required,
			Description: f.Description,
			Default:     f.Default,
		}})
	}
	return json.Marshal(obj)
}

// Schemas is the result of GetToolSchemas.
type Schemas struct {
	Schemas  []ToolSchema
	NotFound []string
}

// Lookup returns the schema returned for a tool.
func (s Schemas) Lookup(tool string) (ToolSchema, bool) {
	for _, ts := range s.Schemas {
		if ts.Name == tool {
			return ts, true
		}
	}
	return ToolSchema{}, false
}

// MarshalJSON renders {"schemas": {...}, "notFound": [...]}.
func (s Schemas) MarshalJSON() ([]byte, error) {
	obj := make(orderedObject, 0, len(s.Schemas))
	for _, ts := range s.Schemas {
		obj = append(obj, member{Key: ts.Name, Value: ts})
	}
	return json.Marshal(struct {
		Schemas  orderedObject `json:"schemas"`
		NotFound []string      `json:"notFound,omitempty"`
	}{obj, s.NotFound})
}

// GetToolSchemas returns the public schema (aliases removed) of each
// requested tool. Unknown names are collected in NotFound.
func (q *Query) GetToolSchemas(tools []string) Schemas {
	var out Schemas
	q.record(ResourceSchemas)
	for _, name := range dedupe(tools) {
		d, err := q.registry.Get(name)
		if err != nil {
			out.NotFound = append(out.NotFound, name)
			continue
		}
		out.Schemas = append(out.Schemas, ToolSchema{
			Name:    d.Name,
			Version: d.Version,
			Params:  d.Params.Public(),
		})
		q.record(SchemaResource(name))
	}
	return out
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// orderedObject marshals as a JSON object preserving member order.
type orderedObject []member

type member struct {
	Key   string
	Value any
}

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
