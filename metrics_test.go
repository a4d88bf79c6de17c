package goPasskey

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/karmoybt/goPasskey/webauthn"
)

func TestMetricsDisabledRecordsNothing(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)

	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("expected disabled metrics to stay at zero")
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("expected zero from nil metrics")
	}
	if m.Enabled() || m.LatencyEnabled() {
		t.Fatal("expected nil metrics to report disabled")
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 16
	const perWorker = 1000
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				m.Inc(MetricSessionValidated)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricSessionValidated); got != workers*perWorker {
		t.Fatalf("expected %d, got %d", workers*perWorker, got)
	}
}

func TestMetricsLatencyBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	samples := []struct {
		d      time.Duration
		bucket int
	}{
		{time.Millisecond, 0},
		{8 * time.Millisecond, 1},
		{20 * time.Millisecond, 2},
		{40 * time.Millisecond, 3},
		{80 * time.Millisecond, 4},
		{200 * time.Millisecond, 5},
		{400 * time.Millisecond, 6},
		{2 * time.Second, 7},
	}
	for _, s := range samples {
		if got := bucketIndex(s.d); got != s.bucket {
			t.Fatalf("bucketIndex(%v) = %d, want %d", s.d, got, s.bucket)
		}
		m.Observe(MetricValidateLatency, s.d)
	}

	snap := m.Snapshot()
	buckets, ok := snap.Histograms[MetricValidateLatency]
	if !ok {
		t.Fatal("expected latency histogram in snapshot")
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("expected one sample in bucket %d, got %d", i, v)
		}
	}
}

func TestEngineCountersAcrossCeremonies(t *testing.T) {
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

	auth := newTestAuthenticator(t)
	ctx := context.Background()

	result := registerIdentity(t, engine, auth, "alice@example.com")

	// Unknown-handle probe.
	if _, err := engine.BeginAuthentication(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("begin for unknown handle failed: %v", err)
	}

	// Successful login.
	options, err := engine.BeginAuthentication(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	payload := auth.assert(t, options.PublicKey.Challenge, "example.com", "https://example.com", webauthn.FlagUserPresent, 1)
	if _, err := engine.FinishAuthentication(ctx, "alice@example.com", payload); err != nil {
		t.Fatalf("finish failed: %v", err)
	}

	// Session validation and logout.
	if _, err := engine.ValidateSession(ctx, result.Session.Token); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if err := engine.Logout(ctx, result.Session.Token); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := engine.ValidateSession(ctx, result.Session.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	snap := engine.MetricsSnapshot()
	expect := map[MetricID]uint64{
		MetricRegistrationStarted:  1,
		MetricRegistrationSuccess:  1,
		MetricLoginChallengeIssued: 2,
		MetricUnknownHandleProbe:   1,
		MetricLoginSuccess:         1,
		MetricSessionCreated:       2,
		MetricSessionValidated:     1,
		MetricSessionRejected:      1,
		MetricLogout:               1,
	}
	for id, want := range expect {
		if got := snap.Counters[id]; got != want {
			t.Fatalf("counter %d: expected %d, got %d", id, want, got)
		}
	}

	buckets := snap.Histograms[MetricValidateLatency]
	var total uint64
	for _, v := range buckets {
		total += v
	}
	if total != 1 {
		t.Fatalf("expected one latency sample, got %d", total)
	}
}

func TestRateLimitReporting(t *testing.T) {
	_, rdb := newTestRedis(t)
	sink := NewChannelSink(4)
	cfg := testConfig()
	cfg.Audit.Enabled = true

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithRegistry(newMockRegistry()).
		WithAuditSink(sink).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer engine.Close()

	engine.ReportRateLimit(context.Background(), "http")

	if got := engine.MetricsSnapshot().Counters[MetricRateLimitHit]; got != 1 {
		t.Fatalf("expected rate limit counter 1, got %d", got)
	}

	select {
	case ev := <-sink.Events():
		if ev.EventType != "RATE_LIMIT_EXCEEDED" {
			t.Fatalf("unexpected event type %q", ev.EventType)
		}
		if ev.Metadata["scope"] != "http" {
			t.Fatalf("unexpected scope %q", ev.Metadata["scope"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected rate limit audit event")
	}
}
