// Package extraction builds the sheets of an extraction format from the
// embedded query templates and materializes them as tables in a datastore.
//
// A run resolves the requested format, builds one fresh query document per
// sheet (format extensions, PMFM columns, filter bindings), renders it and
// creates the sheet table with CREATE TABLE ... AS. Sheets are produced in
// declared order and a failing sheet fails the whole run.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapextract/internal/query"
	"github.com/leapstack-labs/leapextract/internal/registry"
	"github.com/leapstack-labs/leapextract/pkg/core"
	"github.com/leapstack-labs/leapextract/pkg/dialect"
)

// ProductStore persists product metadata.
type ProductStore interface {
	SaveProduct(ctx context.Context, p *core.Product) error
}

// Config holds extractor configuration.
type Config struct {
	// Datastore runs the rendered statements (required).
	Datastore core.Datastore
	// Dialect renders literals; dialect.Default when nil.
	Dialect *dialect.Dialect
	// Registry resolves formats; the built-in catalogue when nil.
	Registry *registry.FormatRegistry
	// Specifications are the format recipes; the built-in ones when nil.
	Specifications Specifications
	// Pmfms discovers PMFM columns; a SQLPmfmSource over Datastore when nil.
	Pmfms PmfmSource
	// Products stores product metadata (optional).
	Products ProductStore
	// Observer receives run state changes (optional).
	Observer Observer
	// KeepFailedTables keeps the tables of a failed run for inspection.
	KeepFailedTables bool
	// NewRunID generates run ids (optional).
	NewRunID func() string
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Extractor runs extractions. It is safe for concurrent use: every run owns
// its documents and context.
type Extractor struct {
	ds         core.Datastore
	dialect    *dialect.Dialect
	registry   *registry.FormatRegistry
	specs      Specifications
	pmfms      PmfmSource
	products   ProductStore
	observer   Observer
	keepFailed bool
	newRunID   func() string
	logger     *slog.Logger
}

// New creates an extractor.
func New(cfg Config) (*Extractor, error) {
	if cfg.Datastore == nil {
		return nil, errors.New("extraction: datastore is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := cfg.Dialect
	if d == nil {
		d = dialect.Default
	}
	reg := cfg.Registry
	if reg == nil {
		reg = registry.NewDefault(logger)
	}
	specs := cfg.Specifications
	if specs == nil {
		specs = DefaultSpecifications()
	} else if err := specs.Validate(); err != nil {
		return nil, err
	}
	pmfms := cfg.Pmfms
	if pmfms == nil {
		pmfms = NewSQLPmfmSource(cfg.Datastore, d, logger)
	}
	newRunID := cfg.NewRunID
	if newRunID == nil {
		newRunID = defaultRunID
	}

	return &Extractor{
		ds:         cfg.Datastore,
		dialect:    d,
		registry:   reg,
		specs:      specs,
		pmfms:      pmfms,
		products:   cfg.Products,
		observer:   cfg.Observer,
		keepFailed: cfg.KeepFailedTables,
		newRunID:   newRunID,
		logger:     logger,
	}, nil
}

// defaultRunID returns a short random id usable inside table names.
func defaultRunID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// Registry returns the format registry.
func (e *Extractor) Registry() *registry.FormatRegistry {
	return e.registry
}

// Dialect returns the SQL dialect.
func (e *Extractor) Dialect() *dialect.Dialect {
	return e.dialect
}

// Specification returns the recipe of a resolved format.
func (e *Extractor) Specification(f core.Format) (*Specification, error) {
	return e.specs.For(f)
}

// RunOption configures one run.
type RunOption func(*runOptions)

type runOptions struct {
	runID  string
	label  string
	strata *core.Strata
}

// WithRunID sets the run id used in run-scoped table names.
func WithRunID(id string) RunOption {
	return func(o *runOptions) { o.runID = id }
}

// WithLabel sets the product label, which names product tables.
func WithLabel(label string) RunOption {
	return func(o *runOptions) { o.label = label }
}

// WithStrata sets the aggregation strata of a product run.
func WithStrata(s core.Strata) RunOption {
	return func(o *runOptions) { o.strata = &s }
}

// request is a validated run request.
type request struct {
	format core.Format
	spec   *Specification
	filter *core.Filter
	opts   runOptions
}

func (e *Extractor) prepare(ref core.FormatRef, filter *core.Filter, opts []RunOption) (*request, error) {
	if filter == nil {
		filter = &core.Filter{}
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	f, err := e.registry.Resolve(ref)
	if err != nil {
		return nil, err
	}
	spec, err := e.specs.For(f)
	if err != nil {
		return nil, err
	}

	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = e.newRunID()
	}
	return &request{format: f, spec: spec, filter: filter, opts: o}, nil
}

// sheetRun is one pass over a list of sheet plans.
type sheetRun struct {
	spec    *Specification
	plans   []SheetPlan
	filter  *core.Filter
	sources *core.ExtractionContext // resolves SheetPlan.Sources
	target  *core.ExtractionContext // records produced tables
	groups  map[string]bool
	limit   int
}

func (r *sheetRun) tableName(sheet string) string {
	return registry.DeriveTableName(r.target.Format, sheet, r.target)
}

// productRun is the preparation of a product run: the live pass over the
// source format followed by the product pass.
type productRun struct {
	live    sheetRun
	product sheetRun
	strata  *core.Strata
}

func (e *Extractor) prepareProduct(req *request, ectx *core.ExtractionContext) (*productRun, error) {
	source, err := e.specs.For(*req.spec.Source)
	if err != nil {
		return nil, err
	}
	var wanted []string
	if req.filter.Sheet != "" {
		wanted = []string{req.filter.Sheet}
	}
	plans, err := req.spec.closure(wanted, false)
	if err != nil {
		return nil, err
	}
	livePlans, err := source.closure(sourceSheets(plans), true)
	if err != nil {
		return nil, err
	}

	var (
		groups map[string]bool
		strata *core.Strata
	)
	if req.spec.Aggregated {
		s := core.DefaultStrata()
		if req.opts.strata != nil {
			s = *req.opts.strata
		}
		if groups, err = strataGroups(s); err != nil {
			return nil, err
		}
		strata = &s
	}

	liveFilter := *req.filter
	liveFilter.Sheet = ""
	liveFilter.PreviewLimit = 0
	raw := core.NewExtractionContext(ectx.ID, source.Format, "")

	return &productRun{
		live:    sheetRun{spec: source, plans: livePlans, filter: &liveFilter, sources: raw, target: raw},
		product: sheetRun{spec: req.spec, plans: plans, filter: &liveFilter, sources: raw, target: ectx, groups: groups},
		strata:  strata,
	}, nil
}

// Run extracts every sheet of the requested format (or the sheet named by
// filter.Sheet and the sheets it reads from) into datastore tables.
//
// On failure the run is FAILED, its tables are dropped unless the extractor
// keeps failed tables, and the partial result is returned with the error.
func (e *Extractor) Run(ctx context.Context, ref core.FormatRef, filter *core.Filter, opts ...RunOption) (*Result, error) {
	req, err := e.prepare(ref, filter, opts)
	if err != nil {
		return nil, err
	}

	ectx := core.NewExtractionContext(req.opts.runID, req.format, req.opts.label)
	res := &Result{RunID: req.opts.runID, Format: req.format, Context: ectx}
	t := newTracker(req.opts.runID, req.format, e.observer, e.logger)

	e.logger.Info("extraction started",
		slog.String("run_id", res.RunID),
		slog.String("format", req.format.String()))

	if req.spec.Source != nil {
		err = e.runProduct(ctx, t, req, res)
	} else {
		err = e.runLive(ctx, t, req, res)
	}

	if err != nil {
		var sheetErr *SheetError
		sheet := ""
		if errors.As(err, &sheetErr) {
			sheet = sheetErr.Sheet
		}
		t.fail(sheet, err)
		res.State = StateFailed
		if !e.keepFailed {
			_ = e.dropTables(context.WithoutCancel(ctx), ectx.TableNames())
			res.Sheets = nil
		}
		e.logger.Error("extraction failed",
			slog.String("run_id", res.RunID),
			slog.String("format", req.format.String()),
			slog.String("error", err.Error()))
		return res, err
	}

	if err := t.advance(StateChange{State: StateCompleted}); err != nil {
		return res, err
	}
	res.State = StateCompleted
	e.logger.Info("extraction completed",
		slog.String("run_id", res.RunID),
		slog.Int("sheets", len(res.Sheets)),
		slog.Bool("stopped", res.Stopped))
	return res, nil
}

func (e *Extractor) runLive(ctx context.Context, t *tracker, req *request, res *Result) error {
	var wanted []string
	if req.filter.Sheet != "" {
		wanted = []string{req.filter.Sheet}
	}
	plans, err := req.spec.closure(wanted, true)
	if err != nil {
		return err
	}

	run := sheetRun{
		spec:    req.spec,
		plans:   plans,
		filter:  req.filter,
		sources: res.Context,
		target:  res.Context,
		limit:   req.filter.PreviewLimit,
	}
	results, stopped, err := e.execute(ctx, t, &run)
	res.Sheets, res.Stopped = results, stopped
	if err != nil {
		return err
	}

	if req.filter.Sheet != "" {
		return e.keepOnly(ctx, res, req.filter.Sheet)
	}
	return nil
}

// keepOnly drops the tables of the sheets read by sheet.
func (e *Extractor) keepOnly(ctx context.Context, res *Result, sheet string) error {
	var (
		kept    []SheetResult
		dropped []string
	)
	for _, s := range res.Sheets {
		if strings.EqualFold(s.Sheet, sheet) {
			kept = append(kept, s)
			continue
		}
		dropped = append(dropped, s.Table)
		res.Context.RemoveTable(s.Sheet)
	}
	res.Sheets = kept
	return e.dropTables(ctx, dropped)
}

// runProduct runs the source format into run-scoped tables, builds the
// product sheets from them and drops them.
func (e *Extractor) runProduct(ctx context.Context, t *tracker, req *request, res *Result) (err error) {
	pr, err := e.prepareProduct(req, res.Context)
	if err != nil {
		return err
	}
	res.Context.Strata = pr.strata

	raw := pr.live.target
	defer func() {
		if err != nil && e.keepFailed {
			return
		}
		_ = e.dropTables(context.WithoutCancel(ctx), raw.TableNames())
	}()

	rawResults, stopped, err := e.execute(ctx, t, &pr.live)
	if err != nil {
		return err
	}
	if stopped {
		e.logger.Warn("source extraction is empty, no product produced",
			slog.String("run_id", res.RunID),
			slog.String("source", pr.live.spec.Format.String()))
		res.Stopped = true
		return nil
	}

	results, _, err := e.execute(ctx, t, &pr.product)
	res.Sheets = results
	if err != nil {
		return err
	}

	// Copied sheets select *, so their columns are the source's.
	for i := range res.Sheets {
		if len(res.Sheets[i].Columns) > 0 {
			continue
		}
		plan, _ := pr.product.spec.Plan(res.Sheets[i].Sheet)
		if deps := plan.dependencies(); len(deps) == 1 {
			for _, r := range rawResults {
				if strings.EqualFold(r.Sheet, deps[0]) {
					res.Sheets[i].Columns = r.Columns
				}
			}
		}
	}

	if e.products != nil {
		if err := e.products.SaveProduct(ctx, res.Product()); err != nil {
			return fmt.Errorf("failed to save product %s: %w", res.Context.Label, err)
		}
	}
	return nil
}

// execute produces the sheets of run in order. It reports whether the run
// stopped on an empty sheet.
func (e *Extractor) execute(ctx context.Context, t *tracker, run *sheetRun) ([]SheetResult, bool, error) {
	var results []SheetResult
	for _, plan := range run.plans {
		if err := ctx.Err(); err != nil {
			return results, false, &SheetError{Sheet: plan.Sheet, Err: err}
		}
		res, err := e.executeSheet(ctx, t, run, plan)
		if err != nil {
			return results, false, &SheetError{Sheet: plan.Sheet, Err: err}
		}
		results = append(results, res)

		if res.RowCount == 0 && plan.StopIfEmpty {
			e.logger.Info("sheet is empty, skipping remaining sheets",
				slog.String("run_id", run.target.ID),
				slog.String("sheet", plan.Sheet))
			return results, true, nil
		}
	}
	return results, false, nil
}

func (e *Extractor) executeSheet(ctx context.Context, t *tracker, run *sheetRun, plan SheetPlan) (SheetResult, error) {
	if err := t.advance(StateChange{State: StateBuilding, Sheet: plan.Sheet}); err != nil {
		return SheetResult{}, err
	}

	doc, err := e.buildSheet(ctx, run, plan)
	if err != nil {
		return SheetResult{}, err
	}
	sqlText, err := doc.Render()
	if err != nil {
		return SheetResult{}, err
	}
	table := run.tableName(plan.Sheet)
	if err := t.advance(StateChange{State: StateRendered, Sheet: plan.Sheet, Table: table}); err != nil {
		return SheetResult{}, err
	}

	if _, err := e.exec(ctx, "CREATE TABLE "+table+" AS "+e.dialect.WithLimit(sqlText, run.limit)); err != nil {
		return SheetResult{}, err
	}
	run.target.AddTable(plan.Sheet, table)

	count, err := e.countRows(ctx, table)
	if err != nil {
		return SheetResult{}, err
	}
	if err := t.advance(StateChange{State: StateExecuted, Sheet: plan.Sheet, Table: table, Rows: count}); err != nil {
		return SheetResult{}, err
	}

	e.logger.Debug("sheet extracted",
		slog.String("sheet", plan.Sheet),
		slog.String("table", table),
		slog.Int64("rows", count))

	return SheetResult{
		Sheet:    plan.Sheet,
		Table:    table,
		SQL:      sqlText,
		Columns:  doc.OutputColumns(),
		RowCount: count,
	}, nil
}

// buildSheet assembles the document of one sheet: base template, format
// extensions, PMFM columns, group states and bindings.
func (e *Extractor) buildSheet(ctx context.Context, run *sheetRun, plan SheetPlan) (*query.Document, error) {
	doc, err := loadTemplate(plan.Template, e.dialect)
	if err != nil {
		return nil, err
	}

	for _, x := range plan.Extensions {
		src, err := readTemplate(x.Template)
		if err != nil {
			return nil, err
		}
		if doc, err = doc.Inject(x.Anchor, src, x.Position); err != nil {
			return nil, err
		}
	}

	if plan.PmfmLevel != "" && run.filter.HasPrograms() {
		pmfms, err := e.pmfms.ListPmfms(ctx, run.filter, plan.PmfmLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s pmfms: %w", plan.PmfmLevel, err)
		}
		cols := pmfmColumns(pmfms, run.filter.ExcludedPmfmIDs, aliasSet(doc))
		if doc, err = injectPmfms(doc, plan.PmfmAnchor, plan.PmfmLevel, cols); err != nil {
			return nil, err
		}
		e.logger.Debug("pmfm columns injected",
			slog.String("sheet", plan.Sheet),
			slog.Int("count", len(cols)))
	}

	groups, values := filterParams(run.filter)
	doc = doc.WithGroups(groups).
		WithGroups(run.spec.Groups).
		WithGroups(run.groups).
		WithLowercase(run.spec.Lowercase).
		BindAll(values)

	for placeholder, sheet := range plan.Sources {
		table, ok := run.sources.TableName(sheet)
		if !ok {
			return nil, fmt.Errorf("source sheet %s of %s has not been produced", sheet, plan.Sheet)
		}
		doc = doc.Bind(placeholder, query.Raw(table))
	}
	return doc, nil
}

// Render returns the SQL of every sheet the run would produce, without
// executing anything. PMFM discovery still queries the PMFM source.
func (e *Extractor) Render(ctx context.Context, ref core.FormatRef, filter *core.Filter, opts ...RunOption) ([]SheetResult, error) {
	req, err := e.prepare(ref, filter, opts)
	if err != nil {
		return nil, err
	}
	ectx := core.NewExtractionContext(req.opts.runID, req.format, req.opts.label)

	if req.spec.Source == nil {
		var wanted []string
		if req.filter.Sheet != "" {
			wanted = []string{req.filter.Sheet}
		}
		plans, err := req.spec.closure(wanted, true)
		if err != nil {
			return nil, err
		}
		return e.render(ctx, &sheetRun{
			spec:    req.spec,
			plans:   plans,
			filter:  req.filter,
			sources: ectx,
			target:  ectx,
			limit:   req.filter.PreviewLimit,
		})
	}

	pr, err := e.prepareProduct(req, ectx)
	if err != nil {
		return nil, err
	}
	live, err := e.render(ctx, &pr.live)
	if err != nil {
		return nil, err
	}
	product, err := e.render(ctx, &pr.product)
	if err != nil {
		return nil, err
	}
	return append(live, product...), nil
}

func (e *Extractor) render(ctx context.Context, run *sheetRun) ([]SheetResult, error) {
	var out []SheetResult
	for _, plan := range run.plans {
		doc, err := e.buildSheet(ctx, run, plan)
		if err != nil {
			return nil, &SheetError{Sheet: plan.Sheet, Err: err}
		}
		sqlText, err := doc.Render()
		if err != nil {
			return nil, &SheetError{Sheet: plan.Sheet, Err: err}
		}
		table := run.tableName(plan.Sheet)
		run.target.AddTable(plan.Sheet, table)
		out = append(out, SheetResult{
			Sheet:   plan.Sheet,
			Table:   table,
			SQL:     e.dialect.WithLimit(sqlText, run.limit),
			Columns: doc.OutputColumns(),
		})
	}
	return out, nil
}
