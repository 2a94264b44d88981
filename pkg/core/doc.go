// Package core defines the shared language of the LeapExtract system.
//
// This package contains:
//   - Extraction formats (Format, FormatRef, Category)
//   - Run inputs and outputs (Filter, Strata, ExtractionContext)
//   - Job and product records (Job, JobSheet, Product)
//   - Service interfaces (Datastore, Adapter)
//   - Configuration types (TargetConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
