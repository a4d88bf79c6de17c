// Package middleware exposes HTTP adapters for goPasskey.Engine: session
// guarding, session cookies, per-IP rate limiting, and trace propagation.
//
// # Guards
//
//   - [SessionGuard] — reads the session cookie, calls Engine.ValidateSession,
//     and injects the result into the request context.
//   - [RateLimit] — per-IP fixed-window throttle ahead of ceremony endpoints.
//   - [Trace] — assigns trace ids and threads request metadata into context
//     for audit events.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Verify ceremonies or sessions directly (delegates to Engine).
//   - Distinguish unknown from expired sessions in its responses.
package middleware
