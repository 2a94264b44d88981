package core

import (
	"fmt"
	"strings"
)

// Category separates formats computed on the fly from persisted products.
type Category string

// Category constants.
const (
	CategoryLive    Category = "LIVE"
	CategoryProduct Category = "PRODUCT"
)

// ParseCategory parses a category name case-insensitively.
// An empty string yields an empty category (no filter).
func ParseCategory(s string) (Category, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case string(CategoryLive):
		return CategoryLive, nil
	case string(CategoryProduct):
		return CategoryProduct, nil
	default:
		return "", fmt.Errorf("unknown format category %q (expected LIVE or PRODUCT)", s)
	}
}

// Format is one entry of the extraction format catalogue.
// (Label, Version, Category) identifies a format; SheetNames is never empty.
type Format struct {
	Label      string   `json:"label" yaml:"label"`
	Version    string   `json:"version" yaml:"version"`
	Category   Category `json:"category" yaml:"category"`
	SheetNames []string `json:"sheetNames" yaml:"sheetNames"`
}

// String returns a compact "LABEL VERSION (CATEGORY)" representation.
func (f Format) String() string {
	return fmt.Sprintf("%s %s (%s)", f.Label, f.Version, f.Category)
}

// Key returns the normalized identity of the format.
func (f Format) Key() string {
	return strings.ToUpper(f.Label) + "|" + strings.ToUpper(f.Version) + "|" + string(f.Category)
}

// IsProduct reports whether the format is a persisted product.
func (f Format) IsProduct() bool {
	return f.Category == CategoryProduct
}

// HasSheet reports whether the format declares the given sheet (case-insensitive).
func (f Format) HasSheet(name string) bool {
	for _, s := range f.SheetNames {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// FormatRef is a requested format: only Label is mandatory.
// Empty Version or Category means "any".
type FormatRef struct {
	Label    string   `json:"label"`
	Version  string   `json:"version,omitempty"`
	Category Category `json:"category,omitempty"`
}

// String renders the reference as LABEL[:VERSION[:CATEGORY]].
func (r FormatRef) String() string {
	var b strings.Builder
	b.WriteString(r.Label)
	if r.Version != "" || r.Category != "" {
		b.WriteString(":")
		b.WriteString(r.Version)
	}
	if r.Category != "" {
		b.WriteString(":")
		b.WriteString(string(r.Category))
	}
	return b.String()
}

// ParseFormatRef parses LABEL[:VERSION[:CATEGORY]].
func ParseFormatRef(s string) (FormatRef, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 || parts[0] == "" {
		return FormatRef{}, fmt.Errorf("invalid format reference %q (expected LABEL[:VERSION[:CATEGORY]])", s)
	}
	ref := FormatRef{Label: parts[0]}
	if len(parts) > 1 {
		ref.Version = parts[1]
	}
	if len(parts) > 2 {
		cat, err := ParseCategory(parts[2])
		if err != nil {
			return FormatRef{}, err
		}
		ref.Category = cat
	}
	return ref, nil
}
