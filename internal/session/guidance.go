package session

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/flemzord/toolgate/internal/catalog"
)

// Hint maps a tool-name pattern to the category a caller should browse.
type Hint struct {
	Pattern  string `yaml:"pattern"`
	Category string `yaml:"category"`
}

type compiledHint struct {
	re       *regexp.Regexp
	category string
}

func compileHints(hints []Hint) ([]compiledHint, error) {
	out := make([]compiledHint, 0, len(hints))
	for _, h := range hints {
		re, err := regexp.Compile(h.Pattern)
		if err != nil {
			return nil, fmt.Errorf("session: hint %q: %w", h.Pattern, err)
		}
		out = append(out, compiledHint{re: re, category: h.Category})
	}
	return out, nil
}

// suggestCategory derives the category to browse from the tool name: the
// first matching hint wins, then the tool's own catalog category.
func (g *Gate) suggestCategory(tool string) string {
	for _, h := range g.hints {
		if h.re.MatchString(tool) {
			return h.category
		}
	}
	if g.categoryOf != nil {
		if cat, ok := g.categoryOf(tool); ok {
			return cat
		}
	}
	return ""
}

func (g *Gate) firstWarning(tool string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s was blocked: no catalog discovery has happened in this session. ", tool)
	if cat := g.suggestCategory(tool); cat != "" {
		fmt.Fprintf(&b, "Call %s with categories [%q], then %s for %q, and retry.",
			catalog.OpListToolNames, cat, catalog.OpGetToolSchemas, tool)
	} else {
		fmt.Fprintf(&b, "Call %s to find the right category, then %s for %q, and retry.",
			catalog.OpListCategories, catalog.OpGetToolSchemas, tool)
	}
	return b.String()
}

func repeatWarning(tool string) string {
	return fmt.Sprintf("%s is still blocked. Query the catalog (%s, %s or %s) before executing tools.",
		tool, catalog.OpListCategories, catalog.OpListToolNames, catalog.OpGetToolSchemas)
}

func staleTip(window string) string {
	return fmt.Sprintf("Catalog data was last queried more than %s ago; consider refreshing with %s.",
		window, catalog.OpGetToolSchemas)
}
