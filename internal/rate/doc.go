// Package rate provides a Redis-backed fixed-window rate limiter for
// ceremony endpoints.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// caller-defined and stored under the "rl:" prefix.
//
// # What this package must NOT do
//
//   - Decide which requests to throttle (the transport layer picks keys).
//   - Be imported outside the goPasskey module.
package rate
