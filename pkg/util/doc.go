// Package util provides common utility data structures
//
// This package includes a generic set implementation and a thread-safe LRU
// cache used throughout the workflow engine
package util
