package heartbeat

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/integrationhub/internal/config"
	"github.com/traylinx/integrationhub/internal/registry"
)

// Recovery re-checks unhealthy entries between monitor cycles. The delay
// doubles after every failed attempt until MaxRecoveryAttempts is reached;
// after that the entry waits for the regular cycle. A healthy result clears
// the streak.
type Recovery struct {
	monitor *Monitor

	mu          sync.Mutex
	backoff     time.Duration
	maxBackoff  time.Duration
	maxAttempts int
	attempts    map[string]int
	exhausted   map[string]bool
	due         map[string]time.Time
	checks      int64
	wake        chan struct{}
}

func newRecovery(m *Monitor, cfg config.HeartbeatConfig) *Recovery {
	r := &Recovery{
		monitor:   m,
		attempts:  make(map[string]int),
		exhausted: make(map[string]bool),
		due:       make(map[string]time.Time),
		wake:      make(chan struct{}, 1),
	}
	r.configure(cfg)
	return r
}

func (r *Recovery) configure(cfg config.HeartbeatConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backoff = cfg.RecoveryBackoff
	r.maxBackoff = cfg.Interval
	r.maxAttempts = cfg.MaxRecoveryAttempts
	if r.backoff <= 0 {
		r.due = make(map[string]time.Time)
	}
}

// delay returns the wait before attempt n (zero based).
func (r *Recovery) delay(n int) time.Duration {
	d := r.backoff
	for i := 0; i < n && (r.maxBackoff <= 0 || d < r.maxBackoff); i++ {
		d *= 2
	}
	if r.maxBackoff > 0 && d > r.maxBackoff {
		d = r.maxBackoff
	}
	return d
}

// Observe records a check outcome and schedules the next recovery attempt.
func (r *Recovery) Observe(res Result) {
	if res.APIID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.Status == registry.StatusHealthy {
		if n := r.attempts[res.APIID]; n > 0 {
			log.WithField("api_id", res.APIID).Infof("heartbeat: api recovered after %d attempts", n)
		}
		r.forget(res.APIID)
		return
	}
	if r.backoff <= 0 {
		return
	}

	n := r.attempts[res.APIID]
	if n >= r.maxAttempts {
		delete(r.due, res.APIID)
		if !r.exhausted[res.APIID] {
			r.exhausted[res.APIID] = true
			log.WithField("api_id", res.APIID).Warnf("heartbeat: giving up recovery after %d attempts: %s", n, res.Error)
		}
		return
	}
	r.due[res.APIID] = r.monitor.now().Add(r.delay(n))
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Recovery) forget(id string) {
	delete(r.attempts, id)
	delete(r.exhausted, id)
	delete(r.due, id)
}

// Drop discards any recovery state for id.
func (r *Recovery) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forget(id)
}

// Pending returns the number of entries waiting for a recovery check.
func (r *Recovery) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.due)
}

// Attempts returns the recovery checks made in the current streak of id.
func (r *Recovery) Attempts(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[id]
}

func (r *Recovery) totalChecks() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checks
}

// run checks due entries until ctx is done.
func (r *Recovery) run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		timer.Reset(r.nextWait())
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		case <-timer.C:
			r.checkDue(ctx)
		}
	}
}

func (r *Recovery) nextWait() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	wait := time.Hour
	now := r.monitor.now()
	for _, at := range r.due {
		if d := at.Sub(now); d < wait {
			wait = d
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (r *Recovery) checkDue(ctx context.Context) {
	r.mu.Lock()
	now := r.monitor.now()
	var ids []string
	for id, at := range r.due {
		if !at.After(now) {
			ids = append(ids, id)
			delete(r.due, id)
			r.attempts[id]++
			r.checks++
		}
	}
	r.mu.Unlock()

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		entry, err := r.monitor.entries.Get(ctx, id)
		if err != nil {
			if !errors.Is(err, registry.ErrNotFound) {
				log.WithField("api_id", id).Warnf("heartbeat: recovery check skipped: %v", err)
			}
			r.Drop(id)
			continue
		}
		log.WithField("api_id", id).Debugf("heartbeat: recovery check attempt %d", r.Attempts(id))
		r.monitor.CheckEntry(ctx, entry)
	}
}
