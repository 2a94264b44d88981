package extraction

import (
	"embed"
	"fmt"

	"github.com/leapstack-labs/leapextract/internal/query"
	"github.com/leapstack-labs/leapextract/pkg/dialect"
)

//go:embed templates
var templateFS embed.FS

// readTemplate returns the source of an embedded template.
func readTemplate(path string) (string, error) {
	b, err := templateFS.ReadFile("templates/" + path)
	if err != nil {
		return "", fmt.Errorf("template %s not found: %w", path, err)
	}
	return string(b), nil
}

// loadTemplate parses an embedded template into a fresh document.
func loadTemplate(path string, d *dialect.Dialect) (*query.Document, error) {
	src, err := readTemplate(path)
	if err != nil {
		return nil, err
	}
	return query.Parse(src, query.WithName(path), query.WithDialect(d))
}
