package table

import (
	"context"
	"errors"

	"github.com/kode4food/vellum/pkg/api"
)

// RowStore is the row-oriented external data store targeted by write and
// query nodes. A write is atomic with respect to its own row; the runner
// never spans a transaction across rows or graph nodes
type RowStore interface {
	// CheckOwnership verifies the table belongs to the tenant, returning
	// ErrTableNotOwned otherwise. It runs before any mutation
	CheckOwnership(ctx context.Context, tableID, tenantID string) error

	// CreateRow inserts a row with the given column values inside one
	// transaction and returns the new row id
	CreateRow(
		ctx context.Context, tableID string, values map[string]any,
	) (string, error)

	// FindRowByColumn returns the id of the row whose column exactly
	// matches value, or ErrRowNotFound
	FindRowByColumn(
		ctx context.Context, tableID, columnID string, value any,
	) (string, error)

	// UpdateRow overwrites the given column values of an existing row
	// inside one transaction
	UpdateRow(
		ctx context.Context, tableID, rowID string, values map[string]any,
	) error

	// QueryRowIDs returns matching row ids honoring sort and limit
	QueryRowIDs(
		ctx context.Context, tableID string, filters []api.QueryFilter,
		sort *api.QuerySort, limit int,
	) ([]string, error)

	// HydrateRows fetches full column values for the given ids in one
	// batch call, preserving id order
	HydrateRows(
		ctx context.Context, tableID string, rowIDs []string,
	) ([]map[string]any, error)
}

var (
	ErrTableNotOwned = errors.New("table not owned by tenant")
	ErrRowNotFound   = errors.New("row not found")
)
