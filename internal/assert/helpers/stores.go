package helpers

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/kode4food/vellum/internal/table"
	"github.com/kode4food/vellum/pkg/api"
)

type (
	// MemoryRowStore is an in-memory table.RowStore for runner tests. It
	// applies equals filters only; tests exercising SQL operators use the
	// Postgres store directly
	MemoryRowStore struct {
		tables map[string]*memoryTable
		owners map[string]string
		nextID int
		mu     sync.Mutex
	}

	memoryTable struct {
		rows  map[string]map[string]any
		order []string
	}

	// CapturingSink records every bound template handed to it
	CapturingSink struct {
		Bound []*api.BoundTemplate
		mu    sync.Mutex
	}
)

// NewMemoryRowStore creates an empty in-memory row store
func NewMemoryRowStore() *MemoryRowStore {
	return &MemoryRowStore{
		tables: map[string]*memoryTable{},
		owners: map[string]string{},
	}
}

// AddTable registers a table owned by the given tenant
func (s *MemoryRowStore) AddTable(tableID, tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[tableID] = tenantID
	s.tables[tableID] = &memoryTable{rows: map[string]map[string]any{}}
}

func (s *MemoryRowStore) CheckOwnership(
	_ context.Context, tableID, tenantID string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.owners[tableID]; !ok || owner != tenantID {
		return table.ErrTableNotOwned
	}
	return nil
}

func (s *MemoryRowStore) CreateRow(
	_ context.Context, tableID string, values map[string]any,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[tableID]
	s.nextID++
	rowID := fmt.Sprintf("row-%d", s.nextID)
	t.rows[rowID] = values
	t.order = append(t.order, rowID)
	return rowID, nil
}

func (s *MemoryRowStore) FindRowByColumn(
	_ context.Context, tableID, columnID string, value any,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[tableID]
	for _, rowID := range t.order {
		if reflect.DeepEqual(t.rows[rowID][columnID], value) {
			return rowID, nil
		}
	}
	return "", table.ErrRowNotFound
}

func (s *MemoryRowStore) UpdateRow(
	_ context.Context, tableID, rowID string, values map[string]any,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.tables[tableID].rows[rowID]
	if !ok {
		return table.ErrRowNotFound
	}
	for col, val := range values {
		row[col] = val
	}
	return nil
}

func (s *MemoryRowStore) QueryRowIDs(
	_ context.Context, tableID string, filters []api.QueryFilter,
	_ *api.QuerySort, limit int,
) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[tableID]
	var out []string
	for _, rowID := range t.order {
		if matchesFilters(t.rows[rowID], filters) {
			out = append(out, rowID)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryRowStore) HydrateRows(
	_ context.Context, tableID string, rowIDs []string,
) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[tableID]
	rows := make([]map[string]any, 0, len(rowIDs))
	for _, rowID := range rowIDs {
		row := map[string]any{"_rowId": rowID}
		for col, val := range t.rows[rowID] {
			row[col] = val
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Row returns a copy-free view of a stored row for assertions
func (s *MemoryRowStore) Row(tableID, rowID string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[tableID].rows[rowID]
}

func matchesFilters(row map[string]any, filters []api.QueryFilter) bool {
	for _, f := range filters {
		if f.Operator != api.FilterEquals {
			continue
		}
		if !reflect.DeepEqual(row[f.ColumnID], f.Value) {
			return false
		}
	}
	return true
}

func (c *CapturingSink) RenderTemplate(
	_ context.Context, bound *api.BoundTemplate,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Bound = append(c.Bound, bound)
	return nil
}
