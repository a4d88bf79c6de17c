// Package session provides Redis-backed session persistence and compact
// binary session encoding for the authentication hot path.
//
// # Binary encoding
//
// Sessions are stored in Redis as a versioned binary format. The encoder is
// append-only: new versions add fields but never reinterpret old ones.
//
// # Expiry model
//
// Sessions are non-renewing. ExpiresAt is fixed at issuance; Get never
// touches the TTL. A record found past its expiry before Redis reaped it is
// deleted lazily and reported as missing.
//
// # What this package must NOT do
//
//   - Import goPasskey (no upward imports).
//   - Decide who gets a session. The engine issues; this package persists.
package session
