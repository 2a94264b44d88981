package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapextract/internal/cli/output"
	"github.com/leapstack-labs/leapextract/internal/extraction"
	"github.com/leapstack-labs/leapextract/internal/job"
	"github.com/leapstack-labs/leapextract/pkg/core"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	filters  filterFlags
	products productFlags

	// Preview prints the first rows of every sheet.
	Preview int
	// Drop drops the produced tables once reported.
	Drop bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <format>...",
		Short: "Run extractions",
		Long: `Run one or more extractions against the target.

Every extraction is recorded as a job in the state store. Formats given
together run concurrently, bounded by extraction.max_concurrent_jobs.
Live extractions leave one table per sheet; products are registered under
their label and can be read back with the products command.`,
		Example: `  # Extract RDB trips of a program for 2020
  leapextract run RDB --program SIH-OBSMER --start 2020-01-01 --end 2020-12-31

  # Build an aggregated product by rectangle and quarter
  leapextract run AGG_RDB --label obsmer_2020 --space rect --time quarter

  # Run two formats and preview their rows
  leapextract run RDB COST --preview 5 --drop`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), RuntimeFrom(cmd.Context()), args, opts)
		},
	}

	opts.filters.register(cmd.Flags())
	opts.products.register(cmd.Flags())
	cmd.Flags().IntVar(&opts.Preview, "preview", 0, "Print the first N rows of every sheet")
	cmd.Flags().BoolVar(&opts.Drop, "drop", false, "Drop the produced tables after reporting them")

	return cmd
}

func runRun(ctx context.Context, rt *Runtime, args []string, opts *RunOptions) error {
	refs, err := parseFormatRefs(args)
	if err != nil {
		return err
	}
	filter, err := opts.filters.filter(rt.Config)
	if err != nil {
		return err
	}
	if opts.products.label != "" && len(refs) > 1 {
		return fmt.Errorf("--label names a single product, got %d formats", len(refs))
	}

	s, err := rt.openSession(ctx, true)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	runner, err := job.New(job.Config{
		Extractor:     s.extractor,
		Store:         s.store,
		MaxConcurrent: rt.Config.Extraction.MaxConcurrentJobs,
		Logger:        rt.Logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	var jobOpts []job.Option
	if opts.products.label != "" {
		jobOpts = append(jobOpts, job.WithLabel(opts.products.label))
	}
	if strata := opts.products.strata(); strata != nil {
		jobOpts = append(jobOpts, job.WithStrata(*strata))
	}

	submitted := make([]*core.Job, len(refs))
	for i, ref := range refs {
		if submitted[i], err = runner.Submit(ctx, ref, filter, jobOpts...); err != nil {
			return err
		}
		rt.Out.Infof("submitted job %s (%s)", submitted[i].ID, ref)
	}

	done := make([]*core.Job, len(submitted))
	g, gctx := errgroup.WithContext(ctx)
	for i, j := range submitted {
		g.Go(func() error {
			var err error
			done[i], err = runner.Wait(gctx, j.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := rt.Out.Render(jobSheetsTable(rt.Out, done)); err != nil {
		return err
	}

	var errs []error
	for _, j := range done {
		if j.Status != core.JobStatusSuccess {
			errs = append(errs, fmt.Errorf("%s: %s", j.Format, j.Error))
			continue
		}
		res := extraction.JobResult(j)
		if opts.Preview > 0 {
			if err := previewSheets(ctx, rt, s.extractor, res, opts.Preview); err != nil {
				errs = append(errs, err)
			}
		}
		if opts.Drop {
			if err := s.extractor.Drop(ctx, res); err != nil {
				errs = append(errs, err)
			} else {
				rt.Out.Successf("dropped tables of job %s", j.ID)
			}
		}
	}
	return errors.Join(errs...)
}

// previewSheets prints the first rows of every sheet of res.
func previewSheets(ctx context.Context, rt *Runtime, e *extraction.Extractor, res *extraction.Result, limit int) error {
	for _, sheet := range res.Sheets {
		rt.Out.Headingf("%s (%s)", sheet.Sheet, sheet.Table)
		rows, err := e.Read(ctx, res, sheet.Sheet, limit)
		if err != nil {
			return err
		}
		err = rt.Out.Rows(rows.Rows)
		_ = rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func jobSheetsTable(r *output.Renderer, jobs []*core.Job) output.Table {
	var rows [][]any
	for _, j := range jobs {
		if len(j.Sheets) == 0 {
			rows = append(rows, []any{j.ID, j.Format.Label, r.Status(string(j.Status)), "", "", "", ""})
			continue
		}
		for _, s := range j.Sheets {
			rows = append(rows, []any{j.ID, j.Format.Label, r.Status(string(j.Status)), s.Sheet, s.TableName, s.RowCount, strings.Join(s.Columns, ", ")})
		}
	}
	return output.Table{
		Header: []string{"Job", "Format", "Status", "Sheet", "Table", "Rows", "Columns"},
		Rows:   rows,
		Value:  jobs,
	}
}
