// Package script implements the sandboxed multi-language scripting engine
//
// Two language backends (JavaScript and Python) sit behind one environment
// interface selected by language. The input whitelist, helpers merge, emit
// contract, console capture, and timeout are enforced once at the Engine
// boundary, never per backend. Execution never raises; every outcome is an
// in-band result
package script
