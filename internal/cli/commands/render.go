package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapextract/internal/cli/output"
)

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	var (
		filters  filterFlags
		products productFlags
	)

	cmd := &cobra.Command{
		Use:   "render <format>",
		Short: "Show the SQL of an extraction without running it",
		Long: `Render the SQL statement of every sheet an extraction would produce.

Nothing is executed, except the PMFM lookup of formats with measurement
columns, which reads the PMFM referential of the target.`,
		Example: `  # Render every sheet of the RDB format
  leapextract render RDB --program SIH-OBSMER --start 2020-01-01

  # Render a single sheet
  leapextract render COST --sheet HL`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := RuntimeFrom(cmd.Context())
			refs, err := parseFormatRefs(args)
			if err != nil {
				return err
			}
			filter, err := filters.filter(rt.Config)
			if err != nil {
				return err
			}

			s, err := rt.openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			sheets, err := s.extractor.Render(cmd.Context(), refs[0], filter, products.runOptions()...)
			if err != nil {
				return err
			}

			if rt.Out.Mode() != output.ModeTable {
				return rt.Out.Render(output.Table{Value: sheets})
			}
			w := rt.Out.Out()
			for _, sheet := range sheets {
				_, _ = fmt.Fprintf(w, "-- %s (%s)\n%s;\n\n", sheet.Sheet, sheet.Table, sheet.SQL)
			}
			return nil
		},
	}

	filters.register(cmd.Flags())
	products.register(cmd.Flags())

	return cmd
}
