package registry

import (
	"strings"

	"github.com/leapstack-labs/leapextract/pkg/core"
)

// Table name prefixes.
const (
	LiveTablePrefix    = "P_"
	SheetTablePrefix   = "EXT_"
	ProductTablePrefix = "p_"
)

// DeriveTableName names the table produced for a sheet of a format.
//
// Live formats produce P_<LABEL> without sheet and the run-scoped
// EXT_<SHEET>_<RUN> with one. Products produce p_<label> or
// p_<label>_<sheet> in lower case, where label is the context label when set;
// a table already recorded for the sheet in ctx takes precedence.
func DeriveTableName(f core.Format, sheet string, ctx *core.ExtractionContext) string {
	if f.IsProduct() {
		if sheet != "" {
			if explicit, ok := ctx.TableName(sheet); ok && explicit != "" {
				return explicit
			}
		}
		label := f.Label
		if ctx != nil && ctx.Label != "" {
			label = ctx.Label
		}
		name := ProductTablePrefix + sanitize(label)
		if sheet != "" {
			name += "_" + sanitize(sheet)
		}
		return strings.ToLower(name)
	}

	if sheet == "" {
		return LiveTablePrefix + strings.ToUpper(sanitize(f.Label))
	}
	name := SheetTablePrefix + strings.ToUpper(sanitize(sheet))
	if ctx != nil && ctx.ID != "" {
		name += "_" + strings.ToUpper(sanitize(ctx.ID))
	}
	return name
}

// sanitize keeps letters, digits and underscores; anything else becomes '_'.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(s))
}
