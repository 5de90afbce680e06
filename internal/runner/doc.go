// Package runner implements the workflow graph runner
//
// A run walks nodes from the start node by following edges, applies
// per-node conditions, mutates a per-run variable store, and produces an
// optional trace with variable lineage. Nodes execute strictly
// sequentially within one run; concurrency exists only across independent
// runs, which share no mutable state
package runner
