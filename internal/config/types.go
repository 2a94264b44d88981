// Package config loads LeapExtract configuration.
//
// Values are layered, highest priority last: built-in defaults, the
// leapextract.yaml project file, LEAPEXTRACT_* environment variables and
// explicitly set command-line flags.
package config

import "github.com/leapstack-labs/leapextract/pkg/core"

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = core.TargetConfig

// Config holds all configuration options.
type Config struct {
	// Target is the datastore extractions run against.
	Target *TargetConfig `koanf:"target"`
	// Environment selects an entry of Environments.
	Environment  string               `koanf:"environment"`
	Environments map[string]EnvConfig `koanf:"environments"`

	StatePath    string `koanf:"state_path"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`

	Extraction ExtractionConfig `koanf:"extraction"`
	Formats    FormatsConfig    `koanf:"formats"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	Target    *TargetConfig `koanf:"target"`
	StatePath string        `koanf:"state_path"`
}

// ExtractionConfig holds run defaults.
type ExtractionConfig struct {
	// ExcludedPmfmIDs are never exposed as PMFM columns.
	ExcludedPmfmIDs []int64 `koanf:"excluded_pmfm_ids"`
	// PreviewLimit caps the rows of every sheet when positive.
	PreviewLimit int `koanf:"preview_limit"`
	// KeepFailedTables keeps the tables of a failed run for inspection.
	KeepFailedTables bool `koanf:"keep_failed_tables"`
	// MaxConcurrentJobs bounds the background jobs running at once.
	MaxConcurrentJobs int64 `koanf:"max_concurrent_jobs"`
}

// FormatsConfig holds format registry settings.
type FormatsConfig struct {
	// FallbackFamilies are the family names a format label falls back to
	// when no exact label is registered.
	FallbackFamilies []string `koanf:"fallback_families"`
}

// DialectName returns the dialect literals are rendered with: the target
// override when set, otherwise the target type.
func (c *Config) DialectName() string {
	if c.Target == nil {
		return ""
	}
	if c.Target.Dialect != "" {
		return c.Target.Dialect
	}
	return c.Target.Type
}

// ApplyFilterDefaults fills unset filter fields from the extraction defaults.
func (c *Config) ApplyFilterDefaults(f *core.Filter) {
	if f == nil {
		return
	}
	if len(f.ExcludedPmfmIDs) == 0 && len(c.Extraction.ExcludedPmfmIDs) > 0 {
		f.ExcludedPmfmIDs = append([]int64(nil), c.Extraction.ExcludedPmfmIDs...)
	}
	if f.PreviewLimit == 0 {
		f.PreviewLimit = c.Extraction.PreviewLimit
	}
}

// Default configuration values.
const (
	ConfigFileName    = "leapextract.yaml"
	ConfigFileNameAlt = "leapextract.yml"
	DefaultStateFile  = ".leapextract/state.db"
	DefaultTargetType = "duckdb"
	DefaultOutput     = "auto" // Auto-detect: TTY=table, non-TTY=json
	DefaultMaxJobs    = 2
)
