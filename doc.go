// Package goPasskey provides a passwordless authentication engine built on
// WebAuthn-style public-key credentials: one-time challenges, attestation and
// assertion verification, monotonic signature counters for clone detection,
// and Redis-backed opaque sessions.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goPasskey is the public surface. It exposes [Engine], [Builder], [Config],
// the [CredentialRegistry] storage interface, and value types
// (RegistrationOptions, CeremonyResult, SessionInfo, MetricsSnapshot). Wire
// parsing and signature verification live in the webauthn subpackage; session
// persistence in session; the SQLite registry reference implementation in
// registry. Challenge storage and rate limiting live under internal/ and are
// never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its
//     public API.
//   - Distinguish "unknown user" from "bad signature" anywhere a caller can
//     observe it on the authentication path.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//
// # Performance contract
//
// ValidateSession is the hot path: one Redis GET plus a binary decode.
// Ceremony operations are allowed one registry round-trip and one challenge
// store round-trip per call.
package goPasskey
