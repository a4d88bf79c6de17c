// Package stores provides the Redis-backed store for pending ceremony
// challenges.
//
// # Design
//
// Challenges are versioned, binary-encoded records persisted with a TTL and
// keyed by subject (a handle for registration, an identity id for
// authentication). They are strictly single-use: Consume fetches and deletes
// in one GETDEL round trip, so no verification outcome can leave the
// challenge behind for a second attempt.
//
// # Architecture boundaries
//
// This package owns persistence for transient challenge records. It does NOT
// generate challenge bytes, verify signatures, or make ceremony decisions.
//
// # What this package must NOT do
//
//   - Import goPasskey or any sibling internal package.
//   - Distinguish "never existed" from "expired" in its error surface.
package stores
