package goPasskey

import (
	"testing"
	"time"

	"github.com/karmoybt/goPasskey/webauthn"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Challenge.TTL != 60*time.Second || cfg.Challenge.Size != 32 {
		t.Fatalf("unexpected challenge defaults: %+v", cfg.Challenge)
	}
	if cfg.Session.TTL != 7*24*time.Hour {
		t.Fatalf("unexpected session TTL: %v", cfg.Session.TTL)
	}
	if !cfg.Credential.AllowZeroCounter {
		t.Fatal("expected permissive zero counter policy by default")
	}
}

func TestHardenedConfigPosture(t *testing.T) {
	cfg := HardenedConfig()
	cfg.RelyingParty = RelyingPartyConfig{
		Name:   "Example",
		ID:     "example.com",
		Origin: "https://example.com",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("hardened config should validate: %v", err)
	}
	if !cfg.Credential.RequireUserVerification {
		t.Fatal("expected user verification required")
	}
	if cfg.Credential.AllowZeroCounter {
		t.Fatal("expected zero counter carve-out disabled")
	}
	if !cfg.Security.ProductionMode || !cfg.Security.RequireSecureCookies {
		t.Fatal("expected production security posture")
	}
}

func TestConfigValidateRejections(t *testing.T) {
	mutate := func(f func(*Config)) Config {
		cfg := testConfig()
		f(&cfg)
		return cfg
	}

	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing rp name", mutate(func(c *Config) { c.RelyingParty.Name = "" })},
		{"missing rp id", mutate(func(c *Config) { c.RelyingParty.ID = "" })},
		{"missing origin", mutate(func(c *Config) { c.RelyingParty.Origin = "" })},
		{"origin without scheme", mutate(func(c *Config) { c.RelyingParty.Origin = "example.com" })},
		{"production with http origin", mutate(func(c *Config) {
			c.Security.ProductionMode = true
			c.RelyingParty.Origin = "http://example.com"
		})},
		{"zero challenge ttl", mutate(func(c *Config) { c.Challenge.TTL = 0 })},
		{"excessive challenge ttl", mutate(func(c *Config) { c.Challenge.TTL = time.Hour })},
		{"small challenge", mutate(func(c *Config) { c.Challenge.Size = 8 })},
		{"zero session ttl", mutate(func(c *Config) { c.Session.TTL = 0 })},
		{"production long sessions", mutate(func(c *Config) {
			c.Security.ProductionMode = true
			c.RelyingParty.Origin = "https://example.com"
			c.Session.TTL = 90 * 24 * time.Hour
		})},
		{"no algorithms", mutate(func(c *Config) { c.Credential.AllowedAlgorithms = nil })},
		{"unsupported algorithm", mutate(func(c *Config) { c.Credential.AllowedAlgorithms = []int64{-8} })},
		{"audit without buffer", mutate(func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestConfigValidateAcceptsSupportedAlgorithms(t *testing.T) {
	cfg := testConfig()
	cfg.Credential.AllowedAlgorithms = []int64{webauthn.AlgorithmES256}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("ES256-only config should validate: %v", err)
	}

	cfg.Credential.AllowedAlgorithms = []int64{webauthn.AlgorithmRS256}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("RS256-only config should validate: %v", err)
	}
}

func TestCloneConfigCopiesAlgorithms(t *testing.T) {
	cfg := testConfig()
	clone := cloneConfig(cfg)
	clone.Credential.AllowedAlgorithms[0] = 99

	if cfg.Credential.AllowedAlgorithms[0] == 99 {
		t.Fatal("expected clone to own its algorithm slice")
	}
}
