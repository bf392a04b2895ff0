// Package observe provides observability primitives for guarded calls.
//
// It is a pure instrumentation library: no execution policies, no
// transport, no I/O beyond exporter setup. Consumers wrap their
// operations with a Middleware, or bridge circuit breaker state
// changes into telemetry with StateChangeHook.
package observe
