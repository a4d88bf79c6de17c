package goPasskey

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/karmoybt/goPasskey/internal/stores"
	"github.com/karmoybt/goPasskey/session"
)

// Builder assembles an [Engine]. Builders are single-use: Build succeeds at
// most once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	registry  CredentialRegistry
	auditSink AuditSink

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing challenges and sessions.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRegistry sets the credential registry implementation.
func (b *Builder) WithRegistry(registry CredentialRegistry) *Builder {
	b.registry = registry
	return b
}

// WithAuditSink sets the destination for audit events. Only effective when
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the session validation latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.registry == nil {
		return nil, errors.New("credential registry required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		challenges: stores.NewChallengeStore(b.redis, cfg.Challenge.RedisPrefix),
		sessions:   session.NewStore(b.redis, cfg.Session.RedisPrefix),
		registry:   b.registry,
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:    NewMetrics(cfg.Metrics),
	}

	b.built = true

	return engine, nil
}
