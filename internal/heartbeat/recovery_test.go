package heartbeat

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/traylinx/integrationhub/internal/config"
	"github.com/traylinx/integrationhub/internal/provider"
	"github.com/traylinx/integrationhub/internal/registry"
)

// flakyProvider fails its first failures pings with a server error.
type flakyProvider struct {
	failures int32
	pings    int32
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) Invoke(context.Context, string, string) (string, error) {
	return "", provider.ErrUnsupported
}

func (f *flakyProvider) Ping(context.Context) error {
	if atomic.AddInt32(&f.pings, 1) <= f.failures {
		return &provider.Error{StatusCode: 503}
	}
	return nil
}

type flakyFactory struct{ p *flakyProvider }

func (f flakyFactory) ForEntry(registry.Entry) (provider.Provider, error) { return f.p, nil }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestRecovery_Delay(t *testing.T) {
	r := newRecovery(&Monitor{now: time.Now}, config.HeartbeatConfig{
		Interval:            5 * time.Minute,
		RecoveryBackoff:     30 * time.Second,
		MaxRecoveryAttempts: 3,
	})

	want := []time.Duration{30 * time.Second, time.Minute, 2 * time.Minute, 4 * time.Minute, 5 * time.Minute, 5 * time.Minute}
	for n, d := range want {
		if got := r.delay(n); got != d {
			t.Errorf("delay(%d): expected %s, got %s", n, d, got)
		}
	}
	if got := r.delay(40); got != 5*time.Minute {
		t.Errorf("delay should stay capped at the interval, got %s", got)
	}
}

func TestRecovery_ObserveSchedules(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := &Monitor{now: func() time.Time { return now }}
	r := newRecovery(m, config.HeartbeatConfig{
		Interval:            time.Hour,
		RecoveryBackoff:     time.Minute,
		MaxRecoveryAttempts: 2,
	})

	r.Observe(Result{APIID: "a", Status: registry.StatusUnavailable})
	r.Observe(Result{APIID: "b", Status: registry.StatusDegraded})
	if r.Pending() != 2 {
		t.Fatalf("Expected 2 pending entries, got %d", r.Pending())
	}
	if wait := r.nextWait(); wait != time.Minute {
		t.Errorf("Expected next wait of 1m, got %s", wait)
	}

	r.Observe(Result{APIID: "b", Status: registry.StatusHealthy})
	if r.Pending() != 1 {
		t.Errorf("Healthy result should clear the schedule, got %d pending", r.Pending())
	}

	r.Observe(Result{Status: registry.StatusUnavailable})
	if r.Pending() != 1 {
		t.Errorf("Results without an id should be ignored")
	}
}

func TestRecovery_DisabledByNegativeBackoff(t *testing.T) {
	m := &Monitor{now: time.Now}
	r := newRecovery(m, config.HeartbeatConfig{Interval: time.Hour, RecoveryBackoff: time.Minute, MaxRecoveryAttempts: 3})
	r.Observe(Result{APIID: "a", Status: registry.StatusUnavailable})

	r.configure(config.HeartbeatConfig{Interval: time.Hour, RecoveryBackoff: -1, MaxRecoveryAttempts: 3})
	if r.Pending() != 0 {
		t.Errorf("Disabling recovery should drop the schedule, got %d pending", r.Pending())
	}
	r.Observe(Result{APIID: "a", Status: registry.StatusUnavailable})
	if r.Pending() != 0 {
		t.Errorf("Disabled recovery should not schedule, got %d pending", r.Pending())
	}
}

func TestRecovery_ForgetsRemovedEntries(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	p := &MockProvider{}
	m := NewMonitor(reg, &MockFactory{fallback: p}, testConfig())
	m.now = func() time.Time { return now }

	m.Recovery().Observe(Result{APIID: "gone", Status: registry.StatusUnavailable})
	now = now.Add(time.Hour)
	m.Recovery().checkDue(ctx)

	if n := m.Recovery().Attempts("gone"); n != 0 {
		t.Errorf("Removed entry should have no attempts, got %d", n)
	}
	if m.Recovery().Pending() != 0 {
		t.Errorf("Removed entry should not stay scheduled")
	}
	if atomic.LoadInt32(&p.pings) != 0 {
		t.Errorf("Removed entry should not be pinged")
	}
}

func TestMonitor_RecoveryGivesUp(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t)
	down, _ := reg.Add(ctx, "down", "sk-1")

	p := &MockProvider{err: &provider.Error{StatusCode: 503}}
	cfg := testConfig()
	cfg.RecoveryBackoff = 10 * time.Millisecond
	cfg.MaxRecoveryAttempts = 2

	m := NewMonitor(reg, &MockFactory{fallback: p}, cfg)
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop()

	if !waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&p.pings) >= 3 }) {
		t.Fatalf("Expected a cycle check plus 2 recovery checks, got %d pings", atomic.LoadInt32(&p.pings))
	}
	time.Sleep(100 * time.Millisecond)

	if n := atomic.LoadInt32(&p.pings); n != 3 {
		t.Errorf("Recovery should stop after 2 attempts, got %d pings", n)
	}
	if n := m.Recovery().Attempts(down.ID); n != 2 {
		t.Errorf("Expected 2 attempts, got %d", n)
	}
	stats := m.Stats()
	if stats.RecoveryChecks != 2 || stats.RecoveryPending != 0 {
		t.Errorf("Unexpected recovery stats %+v", stats)
	}
	if stats.TotalCycles != 1 {
		t.Errorf("Recovery checks should not count as cycles, got %d", stats.TotalCycles)
	}
}

func TestMonitor_RecoveryRestoresHealth(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t)
	flaky, _ := reg.Add(ctx, "flaky", "sk-1")

	p := &flakyProvider{failures: 2}
	cfg := testConfig()
	cfg.RecoveryBackoff = 10 * time.Millisecond
	cfg.MaxRecoveryAttempts = 5

	m := NewMonitor(reg, flakyFactory{p}, cfg)
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop()

	healthy := func() bool {
		got, err := reg.Get(ctx, flaky.ID)
		return err == nil && got.Status == registry.StatusHealthy
	}
	if !waitFor(t, 2*time.Second, healthy) {
		t.Fatalf("Entry never recovered, %d pings", atomic.LoadInt32(&p.pings))
	}
	time.Sleep(50 * time.Millisecond)

	if n := atomic.LoadInt32(&p.pings); n != 3 {
		t.Errorf("Expected 3 pings, got %d", n)
	}
	if n := m.Recovery().Attempts(flaky.ID); n != 0 {
		t.Errorf("Healthy result should reset attempts, got %d", n)
	}
	if m.Recovery().Pending() != 0 {
		t.Errorf("Nothing should stay scheduled after recovery")
	}
}
