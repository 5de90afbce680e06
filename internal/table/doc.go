// Package table implements the external-table read and write runners
//
// Filter and column-mapping values are resolved against live execution
// state before touching the row store. Queries fail loudly on unresolved
// variables; a missing update target is reported structured, never raised
package table
