package extraction

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/leapstack-labs/leapextract/internal/query"
	"github.com/leapstack-labs/leapextract/pkg/core"
	"github.com/leapstack-labs/leapextract/pkg/dialect"
)

// AcquisitionLevel is the data level a PMFM is measured at.
type AcquisitionLevel string

// AcquisitionLevel constants.
const (
	LevelTrip      AcquisitionLevel = "TRIP"
	LevelOperation AcquisitionLevel = "OPERATION"
)

// measurementJoin returns the measurement foreign key and the parent id
// expression used by the PMFM fragment at this level.
func (l AcquisitionLevel) measurementJoin() (fk, parent string, ok bool) {
	switch l {
	case LevelTrip:
		return "TRIP_FK", "T.ID", true
	case LevelOperation:
		return "OPERATION_FK", "O.ID", true
	}
	return "", "", false
}

// ValueType is the declared type of a PMFM value.
type ValueType string

// ValueType constants.
const (
	TypeInteger          ValueType = "integer"
	TypeDouble           ValueType = "double"
	TypeBoolean          ValueType = "boolean"
	TypeString           ValueType = "string"
	TypeDate             ValueType = "date"
	TypeQualitativeValue ValueType = "qualitative_value"
)

// Value-type branches declared by the PMFM fragment.
const (
	branchNumeric     = "numeric"
	branchQualitative = "qualitative_value"
	branchText        = "text"
)

var valueBranches = []string{branchNumeric, branchQualitative, branchText}

// branch returns the fragment branch rendering values of this type.
func (t ValueType) branch() string {
	switch ValueType(strings.ToLower(string(t))) {
	case TypeInteger, TypeDouble, TypeBoolean:
		return branchNumeric
	case TypeQualitativeValue:
		return branchQualitative
	default:
		return branchText
	}
}

// Pmfm is a measurement column defined by program configuration.
type Pmfm struct {
	ID    int64
	Label string
	Type  ValueType
}

// PmfmSource discovers the PMFMs measured at a level for the programs of a filter.
type PmfmSource interface {
	ListPmfms(ctx context.Context, filter *core.Filter, level AcquisitionLevel) ([]Pmfm, error)
}

// PmfmSourceFunc adapts a function to PmfmSource.
type PmfmSourceFunc func(ctx context.Context, filter *core.Filter, level AcquisitionLevel) ([]Pmfm, error)

// ListPmfms calls fn.
func (fn PmfmSourceFunc) ListPmfms(ctx context.Context, filter *core.Filter, level AcquisitionLevel) ([]Pmfm, error) {
	return fn(ctx, filter, level)
}

// SQLPmfmSource reads PMFM definitions from the PROGRAM_PMFM and PMFM tables.
type SQLPmfmSource struct {
	ds      core.Datastore
	dialect *dialect.Dialect
	logger  *slog.Logger
}

// NewSQLPmfmSource creates a PmfmSource over a datastore.
// If logger is nil, a discard logger is used.
func NewSQLPmfmSource(ds core.Datastore, d *dialect.Dialect, logger *slog.Logger) *SQLPmfmSource {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if d == nil {
		d = dialect.Default
	}
	return &SQLPmfmSource{ds: ds, dialect: d, logger: logger}
}

// ListPmfms implements PmfmSource. Results are ordered by PMFM id.
func (s *SQLPmfmSource) ListPmfms(ctx context.Context, filter *core.Filter, level AcquisitionLevel) ([]Pmfm, error) {
	doc, err := loadTemplate("ext/pmfm_discovery.xml", s.dialect)
	if err != nil {
		return nil, err
	}
	doc = doc.Bind("acquisitionLevel", query.String(string(level))).
		WithGroup(groupProgram, filter.HasPrograms())
	if filter.HasPrograms() {
		doc = doc.Bind("progLabels", query.Strings(filter.ProgramLabels...))
	}
	sqlText, err := doc.Render()
	if err != nil {
		return nil, err
	}

	rows, err := s.ds.Query(ctx, sqlText)
	if err != nil {
		return nil, &DatastoreExecutionError{SQL: sqlText, Cause: err}
	}
	defer func() { _ = rows.Close() }()

	var pmfms []Pmfm
	for rows.Next() {
		var (
			p     Pmfm
			label sql.NullString
			typ   sql.NullString
		)
		if err := rows.Scan(&p.ID, &label, &typ); err != nil {
			return nil, &DatastoreExecutionError{SQL: sqlText, Cause: err}
		}
		p.Label, p.Type = label.String, ValueType(strings.ToLower(typ.String))
		pmfms = append(pmfms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &DatastoreExecutionError{SQL: sqlText, Cause: err}
	}

	s.logger.Debug("pmfms discovered", slog.String("level", string(level)), slog.Int("count", len(pmfms)))
	return pmfms, nil
}

// pmfmColumn is a PMFM bound to its output column alias.
type pmfmColumn struct {
	Pmfm
	Alias string
}

// pmfmColumns orders pmfms by id, drops excluded ids and assigns aliases
// unique against taken (upper-cased aliases already in the document).
func pmfmColumns(pmfms []Pmfm, excluded []int64, taken map[string]struct{}) []pmfmColumn {
	sorted := slices.Clone(pmfms)
	slices.SortStableFunc(sorted, func(a, b Pmfm) int { return cmp.Compare(a.ID, b.ID) })

	used := make(map[string]struct{}, len(taken)+len(sorted))
	for k := range taken {
		used[k] = struct{}{}
	}

	cols := make([]pmfmColumn, 0, len(sorted))
	seen := make(map[int64]struct{}, len(sorted))
	for _, p := range sorted {
		if _, dup := seen[p.ID]; dup || slices.Contains(excluded, p.ID) {
			continue
		}
		seen[p.ID] = struct{}{}

		base := normalizeAlias(p.Label)
		if base == "" {
			base = "PMFM_" + strconv.FormatInt(p.ID, 10)
		}
		alias := base
		for n := 2; ; n++ {
			if _, dup := used[alias]; !dup {
				break
			}
			alias = fmt.Sprintf("%s_%d", base, n)
		}
		used[alias] = struct{}{}
		cols = append(cols, pmfmColumn{Pmfm: p, Alias: alias})
	}
	return cols
}

// normalizeAlias turns a PMFM label into an SQL-safe upper-case alias:
// accents are stripped, other characters collapse to single underscores and
// a leading digit gets a PMFM_ prefix.
func normalizeAlias(label string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, label)
	if err != nil {
		s = label
	}

	var b strings.Builder
	sep := false
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			sep = false
			continue
		}
		sep = true
	}
	alias := b.String()
	if alias != "" && alias[0] >= '0' && alias[0] <= '9' {
		alias = "PMFM_" + alias
	}
	return alias
}

// injectPmfms injects one column per PMFM at anchor and enables, for each
// alias, exactly the value-type branch matching the PMFM type.
func injectPmfms(doc *query.Document, anchor string, level AcquisitionLevel, cols []pmfmColumn) (*query.Document, error) {
	if len(cols) == 0 {
		return doc, nil
	}
	fk, parent, ok := level.measurementJoin()
	if !ok {
		return nil, fmt.Errorf("unsupported acquisition level %q", level)
	}
	src, err := readTemplate("ext/pmfm.xml")
	if err != nil {
		return nil, err
	}

	for _, c := range cols {
		frag := query.ExpandVars(src, map[string]string{
			"pmfmalias": c.Alias,
			"parentfk":  fk,
			"parentid":  parent,
		})
		doc, err = doc.Inject(anchor, frag, query.After)
		if err != nil {
			return nil, err
		}

		active := c.Type.branch()
		states := make(map[string]bool, len(valueBranches))
		for _, b := range valueBranches {
			states[c.Alias+"_"+b] = b == active
		}
		doc = doc.WithGroups(states).BindAll(map[string]query.Value{
			"pmfmId" + c.Alias:    query.Int(c.ID),
			"pmfmLabel" + c.Alias: query.String(c.Label),
		})
	}
	return doc, nil
}

// aliasSet returns the upper-cased aliases declared by doc.
func aliasSet(doc *query.Document) map[string]struct{} {
	set := make(map[string]struct{})
	for _, c := range doc.Columns() {
		set[strings.ToUpper(c.Alias)] = struct{}{}
	}
	return set
}
