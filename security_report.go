package goPasskey

import "time"

// SecurityReport summarizes the security posture the engine is running with.
// Intended for startup logging and operational review, not for clients.
type SecurityReport struct {
	ProductionMode         bool
	RelyingPartyID         string
	Origin                 string
	ChallengeTTL           time.Duration
	ChallengeSize          int
	SessionTTL             time.Duration
	UserVerificationForced bool
	ZeroCounterAccepted    bool
	AllowedAlgorithms      []int64
	AuditEnabled           bool
	MetricsEnabled         bool
	SecureCookiesRequired  bool
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	algorithms := make([]int64, len(e.config.Credential.AllowedAlgorithms))
	copy(algorithms, e.config.Credential.AllowedAlgorithms)

	return SecurityReport{
		ProductionMode:         e.config.Security.ProductionMode,
		RelyingPartyID:         e.config.RelyingParty.ID,
		Origin:                 e.config.RelyingParty.Origin,
		ChallengeTTL:           e.config.Challenge.TTL,
		ChallengeSize:          e.config.Challenge.Size,
		SessionTTL:             e.config.Session.TTL,
		UserVerificationForced: e.config.Credential.RequireUserVerification,
		ZeroCounterAccepted:    e.config.Credential.AllowZeroCounter,
		AllowedAlgorithms:      algorithms,
		AuditEnabled:           e.config.Audit.Enabled,
		MetricsEnabled:         e.config.Metrics.Enabled,
		SecureCookiesRequired:  e.config.Security.RequireSecureCookies,
	}
}
