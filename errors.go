package goPasskey

import "errors"

var (
	// ErrChallengeExpired is returned by Finish* operations when the pending
	// challenge is missing, already consumed, or past its TTL. The three cases
	// are deliberately indistinguishable.
	ErrChallengeExpired = errors.New("ceremony challenge expired")
	// ErrInvalidCredential is the single error surfaced for every
	// authentication failure: unknown handle, unknown credential, bad
	// signature, wrong origin, or counter regression.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrVerificationFailed is returned when a registration response fails
	// cryptographic or relying-party checks. Registration errors may be
	// specific because the handle is caller-supplied.
	ErrVerificationFailed = errors.New("credential verification failed")
	// ErrConflict is returned when a registration targets a handle or
	// credential id that already exists.
	ErrConflict = errors.New("handle or credential already registered")
	// ErrMalformed is returned when a client payload is structurally invalid
	// and is rejected before any store mutation.
	ErrMalformed = errors.New("malformed ceremony payload")
	// ErrUnauthorized is returned for missing, unknown, and expired sessions
	// alike.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable wraps transient backend failures (timeouts, connection
	// errors). Callers may retry the whole ceremony step; the engine never
	// retries internally.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrIdentityNotFound is a registry-level error. The engine folds it into
	// ErrInvalidCredential on authentication paths.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrCredentialNotFound is a registry-level error. The engine folds it
	// into ErrInvalidCredential on authentication paths.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrCounterRegression is a registry-level error signaling a signature
	// counter that did not advance, the clone-detection trigger. Never shown
	// to callers directly.
	ErrCounterRegression = errors.New("signature counter regression")
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or incompletely built engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
