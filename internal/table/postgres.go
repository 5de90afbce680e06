package table

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kode4food/vellum/pkg/api"
)

// PostgresStore implements RowStore on a relational schema: one metadata
// row per table, one row record per data row, and one cell per column
// value stored as JSONB
type PostgresStore struct {
	db *sql.DB
}

const createRowSchema = `
	CREATE TABLE IF NOT EXISTS data_tables (
		id        TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name      TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS table_rows (
		id         TEXT PRIMARY KEY,
		table_id   TEXT NOT NULL REFERENCES data_tables(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS row_cells (
		row_id    TEXT NOT NULL REFERENCES table_rows(id) ON DELETE CASCADE,
		column_id TEXT NOT NULL,
		value     JSONB,
		PRIMARY KEY (row_id, column_id)
	);
	CREATE INDEX IF NOT EXISTS idx_table_rows_table
		ON table_rows(table_id);
	CREATE INDEX IF NOT EXISTS idx_row_cells_column
		ON row_cells(column_id);
`

var filterOperatorSQL = map[api.FilterOperator]string{
	api.FilterEquals:    "c.value = $%d::jsonb",
	api.FilterNotEquals: "c.value <> $%d::jsonb",
	api.FilterGt:        "(c.value #>> '{}')::numeric > ($%d::jsonb #>> '{}')::numeric",
	api.FilterGte:       "(c.value #>> '{}')::numeric >= ($%d::jsonb #>> '{}')::numeric",
	api.FilterLt:        "(c.value #>> '{}')::numeric < ($%d::jsonb #>> '{}')::numeric",
	api.FilterLte:       "(c.value #>> '{}')::numeric <= ($%d::jsonb #>> '{}')::numeric",
	api.FilterContains:  "c.value #>> '{}' LIKE '%%' || ($%d::jsonb #>> '{}') || '%%'",
}

// NewPostgresStore opens a Postgres-backed row store and ensures its
// schema exists
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if _, err := db.Exec(createRowSchema); err != nil {
		return nil, fmt.Errorf("failed to create row store schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// OpenPostgresStore connects with the given DSN and ensures the schema
func OpenPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return NewPostgresStore(db)
}

func (s *PostgresStore) CheckOwnership(
	ctx context.Context, tableID, tenantID string,
) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM data_tables WHERE id = $1 AND tenant_id = $2`,
		tableID, tenantID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrTableNotOwned, tableID)
	}
	return err
}

func (s *PostgresStore) CreateRow(
	ctx context.Context, tableID string, values map[string]any,
) (string, error) {
	rowID := uuid.NewString()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO table_rows (id, table_id) VALUES ($1, $2)`,
			rowID, tableID,
		)
		if err != nil {
			return err
		}
		return insertCells(ctx, tx, rowID, values)
	})
	if err != nil {
		return "", err
	}
	return rowID, nil
}

func (s *PostgresStore) FindRowByColumn(
	ctx context.Context, tableID, columnID string, value any,
) (string, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", err
	}

	var rowID string
	err = s.db.QueryRowContext(ctx,
		`SELECT r.id FROM table_rows r
		 JOIN row_cells c ON c.row_id = r.id
		 WHERE r.table_id = $1 AND c.column_id = $2 AND c.value = $3::jsonb
		 LIMIT 1`,
		tableID, columnID, string(encoded),
	).Scan(&rowID)
	if err == sql.ErrNoRows {
		return "", ErrRowNotFound
	}
	if err != nil {
		return "", err
	}
	return rowID, nil
}

func (s *PostgresStore) UpdateRow(
	ctx context.Context, tableID, rowID string, values map[string]any,
) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx,
			`SELECT table_id FROM table_rows WHERE id = $1`, rowID,
		).Scan(&owner)
		if err == sql.ErrNoRows || (err == nil && owner != tableID) {
			return ErrRowNotFound
		}
		if err != nil {
			return err
		}
		return insertCells(ctx, tx, rowID, values)
	})
}

func (s *PostgresStore) QueryRowIDs(
	ctx context.Context, tableID string, filters []api.QueryFilter,
	sort *api.QuerySort, limit int,
) ([]string, error) {
	query, args, err := buildRowIDQuery(tableID, filters, sort, limit)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) HydrateRows(
	ctx context.Context, tableID string, rowIDs []string,
) ([]map[string]any, error) {
	if len(rowIDs) == 0 {
		return []map[string]any{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT row_id, column_id, value FROM row_cells
		 WHERE row_id = ANY($1)`,
		pq.Array(rowIDs),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]map[string]any, len(rowIDs))
	for rows.Next() {
		var (
			rowID, columnID string
			raw             []byte
		)
		if err := rows.Scan(&rowID, &columnID, &raw); err != nil {
			return nil, err
		}
		cells, ok := byID[rowID]
		if !ok {
			cells = map[string]any{"_rowId": rowID}
			byID[rowID] = cells
		}
		var value any
		if raw != nil {
			if err := json.Unmarshal(raw, &value); err != nil {
				return nil, err
			}
		}
		cells[columnID] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(rowIDs))
	for _, id := range rowIDs {
		if cells, ok := byID[id]; ok {
			out = append(out, cells)
		}
	}
	return out, nil
}

// RegisterTable records table ownership metadata. Tables are otherwise
// administered outside the engine
func (s *PostgresStore) RegisterTable(
	ctx context.Context, tableID, tenantID, name string,
) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO data_tables (id, tenant_id, name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET tenant_id = EXCLUDED.tenant_id, name = EXCLUDED.name`,
		tableID, tenantID, name,
	)
	return err
}

func (s *PostgresStore) withTx(
	ctx context.Context, fn func(tx *sql.Tx) error,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertCells(
	ctx context.Context, tx *sql.Tx, rowID string, values map[string]any,
) error {
	for columnID, value := range values {
		encoded, err := json.Marshal(value)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO row_cells (row_id, column_id, value)
			 VALUES ($1, $2, $3::jsonb)
			 ON CONFLICT (row_id, column_id)
			 DO UPDATE SET value = EXCLUDED.value`,
			rowID, columnID, string(encoded),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// buildRowIDQuery assembles the id query honoring filters, sort, and
// limit. Filter values are passed as JSON parameters, never interpolated
func buildRowIDQuery(
	tableID string, filters []api.QueryFilter, sort *api.QuerySort,
	limit int,
) (string, []any, error) {
	var b strings.Builder
	args := []any{tableID}

	b.WriteString(`SELECT r.id FROM table_rows r WHERE r.table_id = $1`)

	for _, f := range filters {
		clause, ok := filterOperatorSQL[f.Operator]
		if !ok {
			return "", nil, fmt.Errorf(
				"unsupported filter operator: %s", f.Operator,
			)
		}
		encoded, err := json.Marshal(f.Value)
		if err != nil {
			return "", nil, err
		}
		args = append(args, f.ColumnID)
		colParam := len(args)
		args = append(args, string(encoded))
		valParam := len(args)

		fmt.Fprintf(&b,
			` AND EXISTS (SELECT 1 FROM row_cells c
			 WHERE c.row_id = r.id AND c.column_id = $%d AND %s)`,
			colParam, fmt.Sprintf(clause, valParam),
		)
	}

	if sort != nil {
		args = append(args, sort.ColumnID)
		dir := "ASC"
		if sort.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&b,
			` ORDER BY (SELECT c.value #>> '{}' FROM row_cells c
			 WHERE c.row_id = r.id AND c.column_id = $%d) %s`,
			len(args), dir,
		)
	} else {
		b.WriteString(` ORDER BY r.created_at`)
	}

	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}

	return b.String(), args, nil
}
