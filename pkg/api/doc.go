// Package api defines the core data types for the intake workflow engine
//
// This package contains all the shared types used across the engine,
// including graph definitions, condition trees, run results, script
// parameters, table read/write configurations, and page navigation state
package api
