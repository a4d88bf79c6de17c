// Package registry provides the SQLite-backed reference implementation of
// the goPasskey CredentialRegistry interface.
//
// # Design
//
// One identity row per account plus one credential row per registered
// passkey. Identities are soft-deleted (deleted_at timestamp) and handle
// uniqueness is enforced by a partial unique index over live rows only, so
// a deleted account frees its handle.
//
// # What this package must NOT do
//
//   - Apply counter policy. AdvanceCounter is a strict CAS; the permissive
//     zero-counter carve-out is decided by the engine.
//   - Hard-delete rows.
package registry
