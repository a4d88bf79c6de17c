package goPasskey

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/karmoybt/goPasskey/webauthn"
)

// Config defines the engine configuration.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	RelyingParty RelyingPartyConfig
	Challenge    ChallengeConfig
	Session      SessionConfig
	Credential   CredentialConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
	Security     SecurityConfig
}

// RelyingPartyConfig identifies the service credentials are scoped to.
// ID must be a registrable domain suffix of the Origin host; authenticators
// sign over its SHA-256 hash.
type RelyingPartyConfig struct {
	Name   string
	ID     string
	Origin string
}

// ChallengeConfig controls pending-challenge issuance.
type ChallengeConfig struct {
	TTL         time.Duration
	Size        int
	RedisPrefix string
}

// SessionConfig controls opaque session issuance. Sessions are non-renewing:
// the TTL is absolute from issuance, never extended by validation.
type SessionConfig struct {
	TTL         time.Duration
	RedisPrefix string
}

// CredentialConfig controls credential acceptance policy.
//
// AllowZeroCounter covers authenticators that report a signature counter of
// zero on every assertion. When true, an assertion carrying counter zero
// against a stored counter of zero is accepted without advancing; any other
// non-increasing counter is still rejected as a likely clone.
type CredentialConfig struct {
	AllowZeroCounter        bool
	RequireUserVerification bool
	AllowedAlgorithms       []int64
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SecurityConfig holds transport-facing policy the engine reports but does
// not enforce itself (cookie delivery is the transport's job).
type SecurityConfig struct {
	ProductionMode       bool
	RequireSecureCookies bool
	SameSitePolicy       http.SameSite
}

// DefaultConfig returns the baseline configuration: 60 second challenges of
// 32 bytes, 7 day non-renewing sessions, permissive zero-counter policy,
// ES256 and RS256 accepted.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Challenge: ChallengeConfig{
			TTL:         60 * time.Second,
			Size:        32,
			RedisPrefix: "pkc",
		},
		Session: SessionConfig{
			TTL:         7 * 24 * time.Hour,
			RedisPrefix: "pks",
		},
		Credential: CredentialConfig{
			AllowZeroCounter:        true,
			RequireUserVerification: false,
			AllowedAlgorithms: []int64{
				webauthn.AlgorithmES256,
				webauthn.AlgorithmRS256,
			},
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode:       false,
			RequireSecureCookies: true,
			SameSitePolicy:       http.SameSiteStrictMode,
		},
	}
}

// HardenedConfig returns DefaultConfig with production posture: user
// verification required, zero-counter carve-out disabled, secure cookies.
func HardenedConfig() Config {
	cfg := defaultConfig()
	cfg.Credential.RequireUserVerification = true
	cfg.Credential.AllowZeroCounter = false
	cfg.Security.ProductionMode = true
	cfg.Security.RequireSecureCookies = true
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if len(cfg.Credential.AllowedAlgorithms) > 0 {
		out.Credential.AllowedAlgorithms = make([]int64, len(cfg.Credential.AllowedAlgorithms))
		copy(out.Credential.AllowedAlgorithms, cfg.Credential.AllowedAlgorithms)
	}
	return out
}

// Validate checks the configuration for internal consistency. Build calls
// it; callers constructing configs by hand may call it early.
func (c *Config) Validate() error {
	// Relying party
	if c.RelyingParty.Name == "" {
		return errors.New("RelyingParty Name is required")
	}
	if c.RelyingParty.ID == "" {
		return errors.New("RelyingParty ID is required")
	}
	if c.RelyingParty.Origin == "" {
		return errors.New("RelyingParty Origin is required")
	}
	origin, err := url.Parse(c.RelyingParty.Origin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return errors.New("RelyingParty Origin must be a scheme://host origin")
	}
	if c.Security.ProductionMode && origin.Scheme != "https" {
		return errors.New("ProductionMode requires an https Origin")
	}

	// Challenge
	if c.Challenge.TTL <= 0 {
		return errors.New("Challenge TTL must be > 0")
	}
	if c.Challenge.TTL > 10*time.Minute {
		return errors.New("Challenge TTL must be <= 10m")
	}
	if c.Challenge.Size < 16 {
		return errors.New("Challenge Size must be >= 16 bytes")
	}

	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Security.ProductionMode && c.Session.TTL > 30*24*time.Hour {
		return errors.New("ProductionMode requires Session TTL <= 30d")
	}

	// Credential
	if len(c.Credential.AllowedAlgorithms) == 0 {
		return errors.New("Credential AllowedAlgorithms must not be empty")
	}
	for _, alg := range c.Credential.AllowedAlgorithms {
		switch alg {
		case webauthn.AlgorithmES256, webauthn.AlgorithmRS256:
			// supported
		default:
			return errors.New("Credential AllowedAlgorithms contains an unsupported algorithm")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
