// Package internal contains helper utilities that are intentionally private
// to goPasskey, including secure random generation for challenges, identity
// ids, and session ids.
//
// # Sub-packages
//
//   - rate — Redis-backed fixed-window rate limit primitives
//   - stores — Redis-backed pending challenge store
//
// # What this package must NOT do
//
//   - Export types that appear in the public goPasskey API.
//   - Be imported by any package outside the goPasskey module.
package internal
