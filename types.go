package goPasskey

import (
	"context"
	"time"

	"github.com/karmoybt/goPasskey/webauthn"
)

// Identity is a durable account record owned by the [CredentialRegistry].
// Identities are immutable once created except for soft deletion; they are
// never hard-deleted so session and audit references stay resolvable.
type Identity struct {
	ID        string
	Handle    string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Credential is a registered public key bound to an [Identity]. The
// credential id maps to exactly one (identity, public key) pair for its
// lifetime. SignatureCounter is advanced only by the engine after a
// successful assertion and never decreases.
type Credential struct {
	IdentityID       string
	CredentialID     []byte
	PublicKey        []byte
	SignatureCounter uint32
	Transports       []string
	CreatedAt        time.Time
}

// CreateIdentityInput is the input for
// [CredentialRegistry.CreateIdentityAndCredential].
type CreateIdentityInput struct {
	Handle         string
	CredentialID   []byte
	PublicKey      []byte
	InitialCounter uint32
	Transports     []string
}

// CredentialRegistry is the interface callers implement to persist
// identities and credentials. The registry package ships a SQLite-backed
// implementation; any store satisfying the atomicity contracts below works.
//
// Contracts:
//   - CreateIdentityAndCredential is atomic: either the identity and its
//     first credential are both persisted or neither is. It returns
//     [ErrConflict] when the handle maps to a non-deleted identity or the
//     credential id already exists.
//   - AdvanceCounter is an atomic compare-and-swap: it succeeds only when
//     newCounter is strictly greater than the stored value, and returns
//     [ErrCounterRegression] otherwise. The zero-counter carve-out is the
//     engine's responsibility, not the registry's.
//   - Lookup misses return [ErrIdentityNotFound] / [ErrCredentialNotFound];
//     transient store failures wrap [ErrUnavailable].
type CredentialRegistry interface {
	FindIdentityByHandle(ctx context.Context, handle string) (*Identity, error)
	CreateIdentityAndCredential(ctx context.Context, input CreateIdentityInput) (*Identity, error)
	FindCredential(ctx context.Context, identityID string, credentialID []byte) (*Credential, error)
	AdvanceCounter(ctx context.Context, identityID string, credentialID []byte, newCounter uint32) error
	DeleteIdentity(ctx context.Context, identityID string) error
}

// RegistrationOptions is returned by [Engine.BeginRegistration] for
// transmission to the client authenticator.
type RegistrationOptions struct {
	PublicKey webauthn.PublicKeyCredentialCreationOptions `json:"publicKey"`
}

// AuthenticationOptions is returned by [Engine.BeginAuthentication].
// Its shape is identical whether or not the handle resolves to an identity.
type AuthenticationOptions struct {
	PublicKey webauthn.PublicKeyCredentialRequestOptions `json:"publicKey"`
}

// SessionToken is an issued opaque session: the token value for cookie
// transport plus its absolute expiry.
type SessionToken struct {
	Token     string
	ExpiresAt time.Time
}

// SessionInfo is returned by [Engine.ValidateSession].
type SessionInfo struct {
	SessionID  string
	IdentityID string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// CeremonyResult is returned by Finish* operations on success.
type CeremonyResult struct {
	Identity     *Identity
	CredentialID []byte
	Session      SessionToken
}
