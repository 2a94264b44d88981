package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapextract/pkg/core"
)

const productColumns = `label, format_label, format_version, format_category,
	sheet_names, sheet_tables, sheet_columns, strata, created_at`

// SaveProduct registers a product or replaces the product with the same label.
func (s *SQLiteStore) SaveProduct(ctx context.Context, p *core.Product) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if p.Label == "" {
		return fmt.Errorf("product label is required")
	}

	sheetNames, err := serializeJSON(p.Format.SheetNames)
	if err != nil {
		return fmt.Errorf("failed to encode product sheets: %w", err)
	}
	sheetTables, err := serializeJSON(p.SheetTables)
	if err != nil {
		return fmt.Errorf("failed to encode product tables: %w", err)
	}
	sheetColumns, err := serializeJSON(p.SheetColumns)
	if err != nil {
		return fmt.Errorf("failed to encode product columns: %w", err)
	}
	strata, err := serializeJSONPtr(p.Strata)
	if err != nil {
		return fmt.Errorf("failed to encode product strata: %w", err)
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(label) DO UPDATE SET
			format_label = excluded.format_label,
			format_version = excluded.format_version,
			format_category = excluded.format_category,
			sheet_names = excluded.sheet_names,
			sheet_tables = excluded.sheet_tables,
			sheet_columns = excluded.sheet_columns,
			strata = excluded.strata,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		p.Label, p.Format.Label, p.Format.Version, string(p.Format.Category),
		sheetNames, sheetTables, sheetColumns, strata, formatTime(createdAt), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save product %s: %w", p.Label, err)
	}

	s.logger.Debug("product saved", slog.String("label", p.Label), slog.String("format", p.Format.String()))
	return nil
}

// GetProduct retrieves a product by label.
func (s *SQLiteStore) GetProduct(ctx context.Context, label string) (*core.Product, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE label = ?`, label))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", label, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// ListProducts returns every product ordered by label.
func (s *SQLiteStore) ListProducts(ctx context.Context) ([]*core.Product, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []*core.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// DeleteProduct removes a product record. Its tables are left untouched.
func (s *SQLiteStore) DeleteProduct(ctx context.Context, label string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE label = ?`, label)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("product %s: %w", label, ErrNotFound)
	}
	return nil
}

func scanProduct(row rowScanner) (*core.Product, error) {
	var (
		p                       core.Product
		category, createdAt     string
		sheetNames, sheetTables string
		sheetColumns            string
		strata                  sql.NullString
	)
	err := row.Scan(&p.Label, &p.Format.Label, &p.Format.Version, &category,
		&sheetNames, &sheetTables, &sheetColumns, &strata, &createdAt)
	if err != nil {
		return nil, err
	}

	p.Format.Category = core.Category(category)
	if err := json.Unmarshal([]byte(sheetNames), &p.Format.SheetNames); err != nil {
		return nil, fmt.Errorf("invalid product sheets: %w", err)
	}
	if err := json.Unmarshal([]byte(sheetTables), &p.SheetTables); err != nil {
		return nil, fmt.Errorf("invalid product tables: %w", err)
	}
	if err := json.Unmarshal([]byte(sheetColumns), &p.SheetColumns); err != nil {
		return nil, fmt.Errorf("invalid product columns: %w", err)
	}
	if p.Strata, err = deserializeJSONPtr[core.Strata](strata); err != nil {
		return nil, fmt.Errorf("invalid product strata: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
