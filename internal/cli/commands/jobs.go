package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapextract/internal/cli/output"
	"github.com/leapstack-labs/leapextract/internal/extraction"
	"github.com/leapstack-labs/leapextract/pkg/core"
)

// NewJobsCommand creates the jobs command.
func NewJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect recorded extraction jobs",
	}
	cmd.AddCommand(newJobsListCommand(), newJobsShowCommand(), newJobsReadCommand(), newJobsDropCommand())
	return cmd
}

func newJobsListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt := RuntimeFrom(cmd.Context())
			store, err := rt.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			jobs, err := store.ListJobs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return rt.Out.Render(jobsTable(rt.Out, jobs))
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs (0 for all)")
	return cmd
}

func newJobsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job and the sheets it produced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := RuntimeFrom(cmd.Context())
			store, err := rt.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			j, err := store.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if j.Error != "" {
				rt.Out.Errorf("error: %s", j.Error)
			}
			if !j.Status.IsFinal() {
				rt.Out.Warnf("job %s is still %s", j.ID, j.Status)
			}
			return rt.Out.Render(jobSheetsTable(rt.Out, []*core.Job{j}))
		},
	}
}

func newJobsReadCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "read <job-id> <sheet>",
		Short: "Print the rows of a sheet produced by a job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := RuntimeFrom(cmd.Context())
			s, err := rt.openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			j, err := s.store.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows, err := s.extractor.Read(cmd.Context(), extraction.JobResult(j), args[1], limit)
			if err != nil {
				return err
			}
			defer func() { _ = rows.Close() }()
			return rt.Out.Rows(rows.Rows)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum number of rows (0 for all)")
	return cmd
}

func newJobsDropCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drop <job-id>",
		Short: "Drop the tables produced by a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := RuntimeFrom(cmd.Context())
			s, err := rt.openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			j, err := s.store.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := s.extractor.Drop(cmd.Context(), extraction.JobResult(j)); err != nil {
				return err
			}
			rt.Out.Successf("dropped %d tables of job %s", len(j.Sheets), j.ID)
			return nil
		},
	}
}

func jobsTable(r *output.Renderer, jobs []*core.Job) output.Table {
	if jobs == nil {
		jobs = []*core.Job{}
	}
	rows := make([][]any, len(jobs))
	for i, j := range jobs {
		duration := ""
		if j.StartedAt != nil && j.CompletedAt != nil {
			duration = j.CompletedAt.Sub(*j.StartedAt).Round(time.Millisecond).String()
		}
		rows[i] = []any{j.ID, j.Format.String(), j.Label, r.Status(string(j.Status)), j.CreatedAt, duration, len(j.Sheets), j.Error}
	}
	return output.Table{
		Header: []string{"ID", "Format", "Label", "Status", "Created", "Duration", "Sheets", "Error"},
		Rows:   rows,
		Value:  jobs,
		Footer: fmt.Sprintf("(%d jobs)", len(jobs)),
	}
}
