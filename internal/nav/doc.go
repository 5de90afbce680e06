// Package nav implements the page and question visibility resolvers used
// by the progressive intake UI
//
// Both resolvers share the condition-tree grammar with the graph runner
// but source their variables from persisted step values keyed by alias,
// not from a live execution. Evaluation failures never hide content: the
// resolvers fail open and record a diagnostic reason instead
package nav
