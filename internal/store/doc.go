// Package store provides the Redis-backed persistence for intake pages,
// steps, and per-run step values
//
// The engine reads and writes these records but does not own their
// durability; the store is deliberately thin. Layout: page and step
// definitions as JSON documents, run values as one hash per run keyed by
// step alias
package store
