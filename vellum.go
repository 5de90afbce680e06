// Package vellum is a workflow execution engine for multi-step intake
// forms: conditional graph traversal, expression evaluation, sandboxed
// scripting, page and question visibility, and external table access.
package vellum

const (
	// Name identifies the application in logs and diagnostics
	Name = "vellum"

	// Version is the application version reported at startup
	Version = "0.1.0"
)
