package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapextract/internal/cli/output"
	"github.com/leapstack-labs/leapextract/internal/extraction"
	"github.com/leapstack-labs/leapextract/pkg/core"
)

// NewProductsCommand creates the products command.
func NewProductsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Manage persisted extraction products",
	}
	cmd.AddCommand(newProductsListCommand(), newProductsShowCommand(), newProductsReadCommand(), newProductsDropCommand())
	return cmd
}

func newProductsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt := RuntimeFrom(cmd.Context())
			store, err := rt.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			products, err := store.ListProducts(cmd.Context())
			if err != nil {
				return err
			}
			return rt.Out.Render(productsTable(products))
		},
	}
}

func newProductsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <label>",
		Short: "Show the sheets and tables of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := RuntimeFrom(cmd.Context())
			store, err := rt.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			p, err := store.GetProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			res := extraction.ProductResult(p)
			rows := make([][]any, len(res.Sheets))
			for i, s := range res.Sheets {
				rows[i] = []any{s.Sheet, s.Table, strings.Join(s.Columns, ", ")}
			}
			return rt.Out.Render(output.Table{
				Header: []string{"Sheet", "Table", "Columns"},
				Rows:   rows,
				Value:  p,
				Footer: fmt.Sprintf("%s, %s", p.Label, p.Format),
			})
		},
	}
}

func newProductsReadCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "read <label> <sheet>",
		Short: "Print the rows of a product sheet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := RuntimeFrom(cmd.Context())
			s, err := rt.openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			p, err := s.store.GetProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows, err := s.extractor.Read(cmd.Context(), extraction.ProductResult(p), args[1], limit)
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

func newProductsDropCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drop <label>",
		Short: "Drop the tables of a product and forget it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := RuntimeFrom(cmd.Context())
			s, err := rt.openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			p, err := s.store.GetProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := s.extractor.Drop(cmd.Context(), extraction.ProductResult(p)); err != nil {
				return err
			}
			if err := s.store.DeleteProduct(cmd.Context(), p.Label); err != nil {
				return err
			}
			rt.Out.Successf("dropped product %s", p.Label)
			return nil
		},
	}
}

func productsTable(products []*core.Product) output.Table {
	if products == nil {
		products = []*core.Product{}
	}
	rows := make([][]any, len(products))
	for i, p := range products {
		strata := ""
		if p.Strata != nil {
			parts := []string{p.Strata.SpaceColumn, p.Strata.TimeColumn}
			if p.Strata.TechColumn != "" {
				parts = append(parts, p.Strata.TechColumn)
			}
			strata = strings.Join(parts, "/")
		}
		rows[i] = []any{p.Label, p.Format.String(), len(p.SheetTables), strata, p.CreatedAt}
	}
	return output.Table{
		Header: []string{"Label", "Format", "Sheets", "Strata", "Created"},
		Rows:   rows,
		Value:  products,
		Footer: fmt.Sprintf("(%d products)", len(products)),
	}
}
