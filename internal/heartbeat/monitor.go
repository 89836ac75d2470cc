package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/integrationhub/internal/config"
	"github.com/traylinx/integrationhub/internal/provider"
	"github.com/traylinx/integrationhub/internal/registry"
)

// Monitor periodically pings every registry entry.
type Monitor struct {
	entries  EntryStore
	factory  ProviderFactory
	now      func() time.Time
	recovery *Recovery

	mu      sync.RWMutex
	cfg     config.HeartbeatConfig
	stats   Stats
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	reset   chan time.Duration
}

// NewMonitor creates a stopped monitor.
func NewMonitor(entries EntryStore, factory ProviderFactory, cfg config.HeartbeatConfig) *Monitor {
	m := &Monitor{
		entries: entries,
		factory: factory,
		cfg:     cfg,
		now:     time.Now,
	}
	m.recovery = newRecovery(m, cfg)
	return m
}

// Recovery returns the between-cycle re-check scheduler.
func (m *Monitor) Recovery() *Recovery {
	return m.recovery
}

// Start begins the monitoring loop. It runs one check immediately.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if !m.cfg.Enabled {
		m.mu.Unlock()
		return fmt.Errorf("heartbeat monitoring is disabled")
	}
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("heartbeat monitor is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.reset = make(chan time.Duration, 1)
	m.running = true
	m.stats.StartTime = m.now()
	interval := m.cfg.Interval
	done, reset := m.done, m.reset
	m.mu.Unlock()

	log.Infof("heartbeat monitor started (interval %s)", interval)
	go m.loop(loopCtx, interval, done, reset)
	return nil
}

// Stop shuts the loop down and waits for the in-flight cycle.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Warn("heartbeat monitor stop timed out waiting for loop")
	}

	m.mu.Lock()
	m.running = false
	m.cancel = nil
	m.mu.Unlock()
	log.Info("heartbeat monitor stopped")
	return nil
}

// Running reports whether the loop is active.
func (m *Monitor) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// SetConfig applies a new configuration. A changed interval takes effect on
// the running loop; Enabled is honoured on the next Start.
func (m *Monitor) SetConfig(cfg config.HeartbeatConfig) {
	m.mu.Lock()
	changed := cfg.Interval != m.cfg.Interval
	m.cfg = cfg
	reset := m.reset
	running := m.running
	m.mu.Unlock()
	m.recovery.configure(cfg)

	if running && changed && reset != nil {
		select {
		case reset <- cfg.Interval:
		default:
		}
	}
}

// Stats returns a copy of the statistics.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	stats := m.stats
	m.mu.RUnlock()
	stats.RecoveryChecks = m.recovery.totalChecks()
	stats.RecoveryPending = m.recovery.Pending()
	return stats
}

func (m *Monitor) loop(ctx context.Context, interval time.Duration, done chan struct{}, reset chan time.Duration) {
	defer close(done)

	recovered := make(chan struct{})
	go func() {
		defer close(recovered)
		m.recovery.run(ctx)
	}()
	defer func() { <-recovered }()

	m.CheckAll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-reset:
			ticker.Reset(d)
			log.Debugf("heartbeat interval changed to %s", d)
		case <-ticker.C:
			m.CheckAll(ctx)
		}
	}
}

// CheckAll pings every entry, bounded by MaxConcurrentChecks, writes each
// outcome back to the registry and returns the results in registry order.
func (m *Monitor) CheckAll(ctx context.Context) []Result {
	m.mu.RLock()
	cfg := m.cfg
	m.mu.RUnlock()

	entries := m.entries.LoadAll(ctx)
	results := make([]Result, len(entries))
	if len(entries) == 0 {
		m.recordCycle(results)
		return results
	}

	limit := cfg.MaxConcurrentChecks
	if limit <= 0 {
		limit = 1
	}
	semaphore := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry registry.Entry) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("panic in health check for api %s: %v", entry.ID, r)
					results[i] = Result{APIID: entry.ID, Status: registry.StatusUnavailable, CheckedAt: m.now(), Error: fmt.Sprint(r)}
				}
			}()

			checkCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
			results[i] = m.check(checkCtx, entry)
		}(i, entry)
	}
	wg.Wait()

	for _, res := range results {
		if ctx.Err() != nil {
			break
		}
		m.record(ctx, res)
	}
	m.recordCycle(results)
	return results
}

// CheckEntry pings one entry and records the outcome.
func (m *Monitor) CheckEntry(ctx context.Context, entry registry.Entry) Result {
	m.mu.RLock()
	timeout := m.cfg.Timeout
	m.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	res := m.check(checkCtx, entry)
	cancel()

	m.record(ctx, res)
	return res
}

func (m *Monitor) check(ctx context.Context, entry registry.Entry) Result {
	start := m.now()
	res := Result{APIID: entry.ID}

	p, err := m.factory.ForEntry(entry)
	if err == nil {
		err = p.Ping(ctx)
	}

	finished := m.now()
	res.CheckedAt = finished
	res.LatencyMs = finished.Sub(start).Milliseconds()
	res.Status, res.Error = Classify(err)
	return res
}

// Classify maps a ping error onto a health status and a message.
func Classify(err error) (registry.Status, string) {
	if err == nil {
		return registry.StatusHealthy, ""
	}
	var perr *provider.Error
	if errors.As(err, &perr) {
		switch {
		case perr.IsAuth():
			return registry.StatusDegraded, "Authentication failed"
		case perr.StatusCode == http.StatusTooManyRequests:
			return registry.StatusDegraded, "Rate limited"
		case perr.StatusCode >= 500:
			return registry.StatusUnavailable, fmt.Sprintf("Server error: %d", perr.StatusCode)
		default:
			return registry.StatusDegraded, perr.Error()
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return registry.StatusUnavailable, "Health check timed out"
	}
	return registry.StatusUnavailable, err.Error()
}

func (m *Monitor) record(ctx context.Context, res Result) {
	if res.APIID == "" {
		return
	}
	m.recovery.Observe(res)

	checked := res.CheckedAt
	status := res.Status
	lastErr := res.Error
	latency := res.LatencyMs
	_, err := m.entries.Update(ctx, res.APIID, registry.Fields{
		Status:        &status,
		LastCheckedAt: &checked,
		LastError:     &lastErr,
		LatencyMs:     &latency,
	})
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			m.recovery.Drop(res.APIID)
			log.WithField("api_id", res.APIID).Debug("heartbeat: api removed during check")
			return
		}
		log.WithField("api_id", res.APIID).Warnf("heartbeat: failed to record status: %v", err)
	}
}

func (m *Monitor) recordCycle(results []Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.TotalCycles++
	m.stats.LastCycleTime = m.now()
	for _, r := range results {
		m.stats.TotalChecks++
		switch r.Status {
		case registry.StatusHealthy:
			m.stats.HealthyChecks++
		case registry.StatusDegraded:
			m.stats.DegradedChecks++
		case registry.StatusUnavailable:
			m.stats.UnavailableChecks++
		}
	}
}
