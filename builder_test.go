package goPasskey

import (
	"testing"
)

func TestBuilderRequiresRedisAndRegistry(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected error without redis client")
	}

	_, rdb := newTestRedis(t)
	if _, err := New().WithConfig(testConfig()).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected error without registry")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.RelyingParty.Origin = ""

	_, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithRegistry(newMockRegistry()).
		Build()
	if err == nil {
		t.Fatal("expected config validation error")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)
	builder := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithRegistry(newMockRegistry())

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	defer engine.Close()

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected error on second Build")
	}
}

func TestBuilderConfigIsolation(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()

	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithRegistry(newMockRegistry())

	// Mutating the caller's slice after WithConfig must not affect the
	// engine.
	cfg.Credential.AllowedAlgorithms[0] = 0

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer engine.Close()

	if engine.config.Credential.AllowedAlgorithms[0] == 0 {
		t.Fatal("expected builder to deep-copy AllowedAlgorithms")
	}
}

func TestBuilderMetricsToggles(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithRegistry(newMockRegistry()).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer engine.Close()

	if !engine.metrics.Enabled() || !engine.metrics.LatencyEnabled() {
		t.Fatal("expected metrics and latency histograms enabled")
	}
}
