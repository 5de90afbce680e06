package api

type (
	// WriteMode selects between creating a new row and updating one
	WriteMode string

	// FilterOperator names a query filter comparison
	FilterOperator string

	// ColumnMapping resolves a value (literal or template expression)
	// into a column of the target row
	ColumnMapping struct {
		Value    any    `json:"value"`
		ColumnID string `json:"column_id"`
	}

	// WriteConfig describes a write node's target table and row values
	WriteConfig struct {
		PrimaryKeyValue    any             `json:"primary_key_value,omitempty"`
		OutputKey          Name            `json:"output_key,omitempty"`
		TableID            string          `json:"table_id"`
		Mode               WriteMode       `json:"mode"`
		PrimaryKeyColumnID string          `json:"primary_key_column_id,omitempty"`
		ColumnMappings     []ColumnMapping `json:"column_mappings"`
	}

	// WriteResult is the structured outcome of a table write. A missing
	// update target is reported here, not raised
	WriteResult struct {
		RowID   string `json:"row_id,omitempty"`
		Error   string `json:"error,omitempty"`
		Success bool   `json:"success"`
	}

	// QueryFilter restricts query results by a column comparison. A
	// string value matching {{path}} is resolved against the execution
	// context before the query runs
	QueryFilter struct {
		Value    any            `json:"value"`
		ColumnID string         `json:"column_id"`
		Operator FilterOperator `json:"operator"`
	}

	// QuerySort orders query results by a column
	QuerySort struct {
		ColumnID   string `json:"column_id"`
		Descending bool   `json:"descending,omitempty"`
	}

	// QueryConfig describes a query node's table read
	QueryConfig struct {
		Sort      *QuerySort    `json:"sort,omitempty"`
		OutputKey Name          `json:"output_key,omitempty"`
		TableID   string        `json:"table_id"`
		Filters   []QueryFilter `json:"filters,omitempty"`
		Limit     int           `json:"limit,omitempty"`
	}

	// ListVariable is the hydrated result of a table query
	ListVariable struct {
		ID   string           `json:"id"`
		Rows []map[string]any `json:"rows"`
	}
)

const (
	WriteModeCreate WriteMode = "create"
	WriteModeUpdate WriteMode = "update"

	FilterEquals    FilterOperator = "equals"
	FilterNotEquals FilterOperator = "notEquals"
	FilterGt        FilterOperator = "gt"
	FilterGte       FilterOperator = "gte"
	FilterLt        FilterOperator = "lt"
	FilterLte       FilterOperator = "lte"
	FilterContains  FilterOperator = "contains"
)
