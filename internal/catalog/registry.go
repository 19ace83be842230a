package catalog

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry holds tool descriptors indexed by name and grouped by category.
// Categories keep their tools in registration order, and categories
// themselves are ordered by first registration.
// It is instance-based (not global) for better testability.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]*Descriptor
	categories map[string]*category
	order      []string
	frozen     bool
}

type category struct {
	description string
	tools       []*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]*Descriptor),
		categories: make(map[string]*category),
	}
}

// Register adds a descriptor to the registry. The descriptor is copied and
// its parameter schema compiled; the caller's value is not retained.
// It returns ErrDuplicateTool if the name is taken, leaving the registry
// unchanged, and ErrRegistryFrozen after Freeze.
func (r *Registry) Register(d Descriptor) error {
	d.Name = strings.TrimSpace(d.Name)
	d.Category = strings.TrimSpace(d.Category)
	if d.Name == "" {
		return ErrEmptyToolName
	}
	if d.Category == "" {
		return fmt.Errorf("%w: %s", ErrEmptyCategory, d.Name)
	}

	compiled, err := compileSchema(d.Name, d.Params)
	if err != nil {
		return err
	}
	d.Params = slices.Clone(d.Params)
	d.compiled = compiled

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot register %s", ErrRegistryFrozen, d.Name)
	}
	if _, exists := r.tools[d.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, d.Name)
	}

	r.tools[d.Name] = &d
	cat := r.categoryLocked(d.Category)
	cat.tools = append(cat.tools, &d)
	return nil
}

// DescribeCategory sets the human-readable description of a category.
// The category is only exposed once at least one tool is registered in it.
func (r *Registry) DescribeCategory(name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyCategory
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot describe category %s", ErrRegistryFrozen, name)
	}
	r.categoryLocked(name).description = description
	return nil
}

func (r *Registry) categoryLocked(name string) *category {
	cat, ok := r.categories[name]
	if !ok {
		cat = &category{}
		r.categories[name] = cat
		r.order = append(r.order, name)
	}
	return cat
}

// Freeze ends the registration pass. Later Register calls fail.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Get returns the descriptor with the given name, or ErrToolNotFound.
func (r *Registry) Get(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return d, nil
}

// ByCategory returns the tools of a category in registration order.
// An unknown category yields an empty list, not an error.
func (r *Registry) ByCategory(name string) []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cat, ok := r.categories[name]
	if !ok {
		return nil
	}
	return slices.Clone(cat.tools)
}

// Categories returns the names of categories holding at least one tool.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if len(r.categories[name].tools) > 0 {
			names = append(names, name)
		}
	}
	return names
}

// CategoryDescription returns the description set with DescribeCategory.
func (r *Registry) CategoryDescription(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cat, ok := r.categories[name]; ok {
		return cat.description
	}
	return ""
}

// CategoryOf returns the category of a registered tool.
func (r *Registry) CategoryOf(tool string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.tools[tool]
	if !ok {
		return "", false
	}
	return d.Category, true
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
