package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapextract/pkg/adapter"
	"github.com/leapstack-labs/leapextract/pkg/dialect"
)

var validOutputs = []string{"auto", "table", "json", "yaml"}

// Validate checks the loaded configuration. Adapter and dialect names are
// checked against the registries, so the packages registering them must be
// linked in.
func (c *Config) Validate() error {
	var errs []error
	if err := ValidateTarget(c.Target); err != nil {
		errs = append(errs, fmt.Errorf("invalid target configuration: %w", err))
	}
	if name := c.DialectName(); name != "" {
		if _, err := dialect.Resolve(name); err != nil {
			errs = append(errs, err)
		}
	}
	if !slices.Contains(validOutputs, c.OutputFormat) {
		errs = append(errs, fmt.Errorf("invalid output %q (valid: %s)", c.OutputFormat, strings.Join(validOutputs, ", ")))
	}
	if c.Extraction.PreviewLimit < 0 {
		errs = append(errs, fmt.Errorf("extraction.preview_limit must not be negative"))
	}
	if c.Extraction.MaxConcurrentJobs < 0 {
		errs = append(errs, fmt.Errorf("extraction.max_concurrent_jobs must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateTarget checks that the target names a registered adapter.
func ValidateTarget(t *TargetConfig) error {
	if t == nil || t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}
