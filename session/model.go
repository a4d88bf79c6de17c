package session

// Session is the server-side record backing one opaque session token.
// Expiry is absolute: ExpiresAt is fixed at issuance and never extended.
type Session struct {
	SessionID  string
	IdentityID string

	CreatedAt int64
	ExpiresAt int64
}
