package goPasskey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/karmoybt/goPasskey/internal"
)

// ValidateSession resolves an opaque session token. Missing, malformed, and
// expired tokens all return [ErrUnauthorized]; only backend failures are
// reported separately.
//
// This is the hot path: one Redis GET plus a binary decode.
func (e *Engine) ValidateSession(ctx context.Context, token string) (*SessionInfo, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()

	sid, err := internal.ParseSessionID(token)
	if err != nil {
		e.metricInc(MetricSessionRejected)
		return nil, ErrUnauthorized
	}

	sess, err := e.sessions.Get(ctx, sid.String())
	if err != nil {
		if errors.Is(err, redis.Nil) {
			e.metricInc(MetricSessionRejected)
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	e.metricInc(MetricSessionValidated)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}
	e.emitAudit(ctx, auditEventSessionValidated, true, sess.IdentityID, "", sess.SessionID, nil, nil)

	return &SessionInfo{
		SessionID:  sess.SessionID,
		IdentityID: sess.IdentityID,
		IssuedAt:   time.Unix(sess.CreatedAt, 0),
		ExpiresAt:  time.Unix(sess.ExpiresAt, 0),
	}, nil
}

// Logout revokes a single session. Revoking an unknown or already expired
// token succeeds silently.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}

	sid, err := internal.ParseSessionID(token)
	if err != nil {
		return nil
	}

	if err := e.sessions.Delete(ctx, sid.String()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventSessionRevoked, true, "", "", sid.String(), nil, func() map[string]string {
		return map[string]string{
			"scope": "single",
		}
	})
	return nil
}

// LogoutAll revokes every session belonging to an identity.
func (e *Engine) LogoutAll(ctx context.Context, identityID string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if identityID == "" {
		return ErrMalformed
	}

	if err := e.sessions.DeleteAllForIdentity(ctx, identityID); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventSessionRevoked, true, identityID, "", "", nil, func() map[string]string {
		return map[string]string{
			"scope": "all",
		}
	})
	return nil
}

// ActiveSessions returns the session ids currently indexed for an identity.
func (e *Engine) ActiveSessions(ctx context.Context, identityID string) ([]string, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	ids, err := e.sessions.ActiveSessionIDs(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ids, nil
}
