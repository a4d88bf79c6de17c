package goPasskey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/karmoybt/goPasskey/internal"
	"github.com/karmoybt/goPasskey/internal/stores"
	"github.com/karmoybt/goPasskey/session"
)

// Engine runs passkey registration and authentication ceremonies and manages
// the sessions they produce. Construct through [Builder]; a built Engine is
// safe for concurrent use.
type Engine struct {
	config     Config
	challenges *stores.ChallengeStore
	sessions   *session.Store
	registry   CredentialRegistry
	audit      *auditDispatcher
	metrics    *Metrics
}

// Close flushes and stops the audit dispatcher. Ceremony methods called
// after Close still work; their audit events are discarded.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine's counters and
// histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// ReportRateLimit records a throttled request against metrics and audit. The
// transport layer calls this when its limiter rejects a request; the engine
// itself never throttles.
func (e *Engine) ReportRateLimit(ctx context.Context, scope string) {
	if e == nil {
		return
	}
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitExceeded, false, "", "", "", nil, func() map[string]string {
		return map[string]string{
			"scope": scope,
		}
	})
}

// issueChallenge creates and stores a fresh challenge under subject,
// replacing any pending one.
func (e *Engine) issueChallenge(ctx context.Context, subject string, purpose stores.ChallengePurpose) ([]byte, error) {
	value, err := internal.NewChallenge(e.config.Challenge.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	now := time.Now()
	record := &stores.Challenge{
		Purpose:   purpose,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(e.config.Challenge.TTL).Unix(),
		Value:     value,
	}
	if err := e.challenges.Save(ctx, subject, record, e.config.Challenge.TTL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return value, nil
}

// consumeChallenge fetches and destroys the pending challenge for subject,
// checking its purpose. A purpose mismatch is reported identically to a
// missing challenge.
func (e *Engine) consumeChallenge(ctx context.Context, subject string, purpose stores.ChallengePurpose) (*stores.Challenge, error) {
	record, err := e.challenges.Consume(ctx, subject)
	if err != nil {
		if errors.Is(err, stores.ErrChallengeNotFound) {
			return nil, ErrChallengeExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if record.Purpose != purpose {
		return nil, ErrChallengeExpired
	}
	return record, nil
}

// issueSession creates an opaque session for identityID with the configured
// absolute TTL.
func (e *Engine) issueSession(ctx context.Context, identityID string) (SessionToken, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return SessionToken{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	now := time.Now()
	expiresAt := now.Add(e.config.Session.TTL)
	sess := &session.Session{
		SessionID:  sid.String(),
		IdentityID: identityID,
		CreatedAt:  now.Unix(),
		ExpiresAt:  expiresAt.Unix(),
	}
	if err := e.sessions.Save(ctx, sess); err != nil {
		return SessionToken{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	e.metricInc(MetricSessionCreated)

	return SessionToken{
		Token:     sess.SessionID,
		ExpiresAt: expiresAt,
	}, nil
}

// Ping reports storage backend availability and Redis round-trip latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	latency, err := e.sessions.Ping(ctx)
	if err != nil {
		return latency, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return latency, nil
}
