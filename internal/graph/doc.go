// Package graph implements static validation of workflow graph definitions
//
// Structural checks (duplicate ids, dangling edges, unresolved start node)
// and a semantic identifier heuristic run before execution; both collect
// every problem found rather than failing fast
package graph
