// Package observe provides observability primitives for the sync engine.
//
// It is a pure instrumentation library: no network, no cache access, no I/O
// beyond exporter setup. The engine packages take a Logger and Metrics by
// injection; nothing here is a global.
package observe
