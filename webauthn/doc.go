// Package webauthn implements the wire formats of WebAuthn-style public-key
// credential ceremonies: client data JSON, CBOR attestation objects,
// authenticator data, COSE public keys, and assertion signatures.
//
// # Architecture boundaries
//
// This package is pure parsing and verification. It holds no state, performs
// no I/O, and makes no policy decisions beyond the structural and
// cryptographic checks each Verify method documents. Challenge lifecycle,
// counter policy, and persistence belong to the engine.
//
// # What this package must NOT do
//
//   - Import goPasskey or touch Redis or SQLite.
//   - Accept attestation formats other than "none" (the engine only requests
//     "none"; packed or TPM statements are ignored, not validated).
package webauthn
