package goPasskey

import (
	"context"
	"errors"
	"time"

	"github.com/karmoybt/goPasskey/internal/rate"
	"github.com/karmoybt/goPasskey/internal/stores"
)

const (
	auditEventRegistrationStarted   = "REGISTRATION_STARTED"
	auditEventRegistrationSucceeded = "REGISTRATION_SUCCEEDED"
	auditEventRegistrationFailed    = "REGISTRATION_FAILED"
	auditEventLoginChallengeIssued  = "LOGIN_CHALLENGE_ISSUED"
	auditEventLoginSucceeded        = "LOGIN_SUCCEEDED"
	auditEventLoginFailed           = "LOGIN_FAILED"
	auditEventLoginNonexistent      = "LOGIN_ATTEMPT_NONEXISTENT"
	auditEventSessionValidated      = "SESSION_VALIDATED"
	auditEventSessionRevoked        = "SESSION_REVOKED"
	auditEventRateLimitExceeded     = "RATE_LIMIT_EXCEEDED"
)

// AuditErrorCode is the stable error vocabulary carried in audit events.
type AuditErrorCode string

const (
	auditErrChallengeExpired   AuditErrorCode = "challenge_expired"
	auditErrInvalidCredential  AuditErrorCode = "invalid_credential"
	auditErrVerificationFailed AuditErrorCode = "verification_failed"
	auditErrConflict           AuditErrorCode = "conflict"
	auditErrMalformed          AuditErrorCode = "malformed"
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrCounterRegression  AuditErrorCode = "counter_regression"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identityID string,
	handle string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		TraceID:    traceIDFromContext(ctx),
		IdentityID: identityID,
		Handle:     handle,
		SessionID:  sessionID,
		IP:         clientIPFromContext(ctx),
		UserAgent:  userAgentFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrChallengeExpired),
		errors.Is(err, stores.ErrChallengeNotFound):
		return auditErrChallengeExpired
	case errors.Is(err, ErrCounterRegression):
		return auditErrCounterRegression
	case errors.Is(err, ErrInvalidCredential),
		errors.Is(err, ErrIdentityNotFound),
		errors.Is(err, ErrCredentialNotFound):
		return auditErrInvalidCredential
	case errors.Is(err, ErrVerificationFailed):
		return auditErrVerificationFailed
	case errors.Is(err, ErrConflict):
		return auditErrConflict
	case errors.Is(err, ErrMalformed):
		return auditErrMalformed
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, rate.ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, stores.ErrChallengeBackend),
		errors.Is(err, rate.ErrRedisUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
