// Package registry provides the catalogue of extraction formats and the
// rules resolving a requested format and naming the tables it produces.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapextract/pkg/core"
)

// ErrUnsupportedFormat is matched by every *UnknownFormatError.
var ErrUnsupportedFormat = errors.New("unsupported extraction format")

// UnknownFormatError is returned when a requested format cannot be resolved,
// even through family fallback.
type UnknownFormatError struct {
	Label   string
	Version string
}

func (e *UnknownFormatError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("unsupported extraction format %s %s", e.Label, e.Version)
	}
	return fmt.Sprintf("unsupported extraction format %s", e.Label)
}

// Is makes errors.Is(err, ErrUnsupportedFormat) hold.
func (e *UnknownFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// DuplicateFormatError is returned when (label, version, category) is already registered.
type DuplicateFormatError struct {
	Format core.Format
}

func (e *DuplicateFormatError) Error() string {
	return fmt.Sprintf("format %s is already registered", e.Format)
}

// DefaultFallbackFamilies are the family names matched as substrings of
// unknown labels.
var DefaultFallbackFamilies = []string{"RDB", "COST", "AGG_RDB", "AGG_COST"}

// FormatRegistry is the read-mostly catalogue of extraction formats.
type FormatRegistry struct {
	mu sync.RWMutex

	// formats keeps registration order, which drives resolution order.
	formats []core.Format

	// byKey maps Format.Key() to the index in formats.
	byKey map[string]int

	// families are the fallback family names, upper-cased.
	families []string

	logger *slog.Logger
}

// Option configures a FormatRegistry.
type Option func(*FormatRegistry)

// WithFallbackFamilies replaces the fallback family names.
func WithFallbackFamilies(families ...string) Option {
	return func(r *FormatRegistry) {
		r.families = r.families[:0]
		for _, f := range families {
			if f = strings.ToUpper(strings.TrimSpace(f)); f != "" {
				r.families = append(r.families, f)
			}
		}
	}
}

// New creates an empty registry.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger, opts ...Option) *FormatRegistry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &FormatRegistry{
		byKey:    make(map[string]int),
		families: slices.Clone(DefaultFallbackFamilies),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDefault creates a registry holding the built-in catalogue.
func NewDefault(logger *slog.Logger, opts ...Option) *FormatRegistry {
	r := New(logger, opts...)
	for _, f := range Builtin() {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a format to the catalogue.
func (r *FormatRegistry) Register(f core.Format) error {
	if strings.TrimSpace(f.Label) == "" {
		return fmt.Errorf("format label is required")
	}
	if len(f.SheetNames) == 0 {
		return fmt.Errorf("format %s declares no sheet", f)
	}
	if f.Category != core.CategoryLive && f.Category != core.CategoryProduct {
		return fmt.Errorf("format %s has invalid category %q", f.Label, f.Category)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := f.Key()
	if _, dup := r.byKey[key]; dup {
		return &DuplicateFormatError{Format: f}
	}
	f.SheetNames = slices.Clone(f.SheetNames)
	r.byKey[key] = len(r.formats)
	r.formats = append(r.formats, f)
	return nil
}

// Resolve returns the format matching a request.
//
//  1. Label matches case-insensitively, category matches when requested and
//     version matches case-insensitively when requested; the first match in
//     registration order wins.
//  2. Otherwise, when the upper-cased label contains a fallback family name,
//     the family's entry is resolved the same way (longest family first).
//  3. Otherwise *UnknownFormatError.
func (r *FormatRegistry) Resolve(ref core.FormatRef) (core.Format, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// 1. Direct match
	if f, ok := r.find(ref.Label, ref.Version, ref.Category); ok {
		return f, nil
	}

	// 2. Family fallback (last resort)
	label := strings.ToUpper(strings.TrimSpace(ref.Label))
	families := slices.Clone(r.families)
	slices.SortStableFunc(families, func(a, b string) int { return len(b) - len(a) })
	for _, family := range families {
		if !strings.Contains(label, family) {
			continue
		}
		if f, ok := r.find(family, "", ref.Category); ok {
			r.logger.Warn("extraction format resolved by family fallback",
				slog.String("requested", ref.String()),
				slog.String("family", family),
				slog.String("resolved", f.String()))
			return f, nil
		}
	}

	// 3. Unknown
	return core.Format{}, &UnknownFormatError{Label: ref.Label, Version: ref.Version}
}

func (r *FormatRegistry) find(label, version string, category core.Category) (core.Format, bool) {
	for _, f := range r.formats {
		if !strings.EqualFold(f.Label, strings.TrimSpace(label)) {
			continue
		}
		if category != "" && f.Category != category {
			continue
		}
		if version != "" && !strings.EqualFold(f.Version, strings.TrimSpace(version)) {
			continue
		}
		return f, true
	}
	return core.Format{}, false
}

// Lookup returns the format registered under exactly (label, version, category).
func (r *FormatRegistry) Lookup(label, version string, category core.Category) (core.Format, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byKey[core.Format{Label: label, Version: version, Category: category}.Key()]
	if !ok {
		return core.Format{}, false
	}
	return r.formats[i], true
}

// List returns registered formats in registration order.
// An empty category lists every format.
func (r *FormatRegistry) List(category core.Category) []core.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]core.Format, 0, len(r.formats))
	for _, f := range r.formats {
		if category == "" || f.Category == category {
			formats = append(formats, f)
		}
	}
	return formats
}

// Count returns the number of registered formats.
func (r *FormatRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.formats)
}
