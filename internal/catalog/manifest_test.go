package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

const testManifest = `
categories:
  - name: things
    description: Create and modify things
    tools:
      - name: createThing
        description: Create a thing
        version: "2"
        params:
          name: {type: string, required: true, description: Display name}
          size: {type: number, default: 1}
      - name: colorThing
        description: Paint a thing
        params:
          targetId: {type: integer, required: true}
          color: {type: string, required: true}
          target_id: {type: integer, alias: true}
  - name: files
    tools:
      - name: readFile
        params:
          paths: {type: array, required: true}
          options: {}
`

func TestParseManifest_Build(t *testing.T) {
	t.Parallel()

	m, err := ParseManifest([]byte(testManifest))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	reg, err := m.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if !reg.Frozen() {
		t.Error("built registry is not frozen")
	}
	if reg.Len() != 3 {
		t.Errorf("Len() = %d, want 3", reg.Len())
	}
	if got, want := reg.Categories(), []string{"things", "files"}; !slices.Equal(got, want) {
		t.Errorf("Categories() = %v, want %v", got, want)
	}
	if got := reg.CategoryDescription("things"); got != "Create and modify things" {
		t.Errorf("description = %q", got)
	}

	d, err := reg.Get("colorThing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var names []string
	for _, f := range d.Params {
		names = append(names, f.Name)
	}
	if want := []string{"targetId", "color", "target_id"}; !slices.Equal(names, want) {
		t.Errorf("param order = %v, want %v", names, want)
	}
	if !d.Params[2].IsAlias {
		t.Error("target_id should be an alias")
	}

	create, _ := reg.Get("createThing")
	if create.Version != "2" {
		t.Errorf("version = %q", create.Version)
	}
	if f, ok := create.Params.Lookup("size"); !ok || f.Default != 1 {
		t.Errorf("size field = %+v, %v", f, ok)
	}

	read, _ := reg.Get("readFile")
	if f, _ := read.Params.Lookup("options"); f.Type != TypeAny {
		t.Errorf("untyped field type = %q, want any", f.Type)
	}
}

func TestManifestBuild_DuplicateAcrossCategories(t *testing.T) {
	t.Parallel()

	m, err := ParseManifest([]byte(`
categories:
  - name: a
    tools:
      - name: dup
  - name: b
    tools:
      - name: dup
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := m.Build(); !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestManifestBuild_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	m, err := ParseManifest([]byte(`
categories:
  - name: a
    tools:
      - name: ok
      - name: ok
      - name: bad
        params:
          x: {type: uuid}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = m.Build()
	if !errors.Is(err, ErrDuplicateTool) {
		t.Errorf("expected ErrDuplicateTool in %v", err)
	}
	if !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("expected ErrInvalidSchema in %v", err)
	}
}

func TestManifestBuild_Empty(t *testing.T) {
	t.Parallel()

	m, err := ParseManifest([]byte("categories: []\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := m.Build(); err == nil {
		t.Fatal("expected error for empty manifest")
	}
}

func TestParseManifest_ParamsMustBeMapping(t *testing.T) {
	t.Parallel()

	_, err := ParseManifest([]byte(`
categories:
  - name: a
    tools:
      - name: t
        params: [x, y]
`))
	if err == nil {
		t.Fatal("expected error for list-shaped params")
	}
}

func TestLoadManifest(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(testManifest), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(m.Categories) != 2 {
		t.Errorf("categories = %d, want 2", len(m.Categories))
	}

	if _, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
