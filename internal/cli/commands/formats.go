package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapextract/internal/cli/output"
	"github.com/leapstack-labs/leapextract/internal/registry"
	"github.com/leapstack-labs/leapextract/pkg/core"
)

// NewFormatsCommand creates the formats command.
func NewFormatsCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "formats [format]",
		Short: "List extraction formats",
		Long: `List the registered extraction formats and their sheets.

With an argument, resolve a format reference the way run and render do,
including the fallback to a format family.`,
		Example: `  # List every format
  leapextract formats

  # List products only, as YAML
  leapextract formats --category product -o yaml

  # Show which format a label resolves to
  leapextract formats RDB_OBSMER`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := RuntimeFrom(cmd.Context())
			reg := rt.newRegistry()

			cat, err := core.ParseCategory(category)
			if err != nil {
				return err
			}

			formats := reg.List(cat)
			if len(args) == 1 {
				ref, err := core.ParseFormatRef(args[0])
				if err != nil {
					return err
				}
				if ref.Category == "" {
					ref.Category = cat
				}
				f, err := reg.Resolve(ref)
				if err != nil {
					return err
				}
				formats = []core.Format{f}
			}
			return rt.Out.Render(formatsTable(formats))
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list formats of this category (live|product)")
	_ = cmd.RegisterFlagCompletionFunc("category", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"live", "product"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func formatsTable(formats []core.Format) output.Table {
	rows := make([][]any, len(formats))
	for i, f := range formats {
		source := ""
		if f.IsProduct() {
			if live, ok := registry.SourceOf(f); ok {
				source = live.Label + " " + live.Version
			}
		}
		rows[i] = []any{f.Label, f.Version, f.Category, strings.Join(f.SheetNames, ", "), source}
	}
	return output.Table{
		Header: []string{"Label", "Version", "Category", "Sheets", "Source"},
		Rows:   rows,
		Value:  formats,
		Footer: fmt.Sprintf("(%d formats)", len(formats)),
	}
}
