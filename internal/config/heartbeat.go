package config

import (
	"strings"
	"time"
)

const (
	minHeartbeatInterval = 30 * time.Second
	minHeartbeatTimeout  = time.Second
	maxConcurrentChecks  = 50
	minRecoveryBackoff   = 5 * time.Second
)

// HeartbeatConfig holds the background health check configuration.
// Each cycle pings every registry entry and records the outcome as status metadata.
type HeartbeatConfig struct {
	// Enabled toggles background monitoring.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Interval is the time between cycles.
	// Default: 5m. Minimum: 30s.
	Interval time.Duration `yaml:"interval" json:"interval"`

	// Timeout is the maximum time to wait for a single entry check.
	// Default: 5s. Minimum: 1s.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// MaxConcurrentChecks limits simultaneous checks.
	// Default: 4. Minimum: 1. Maximum: 50.
	MaxConcurrentChecks int `yaml:"max-concurrent-checks" json:"max-concurrent-checks"`

	// RecheckOnChange checks an entry as soon as it is added or its
	// connection settings change, without waiting for the next cycle.
	RecheckOnChange bool `yaml:"recheck-on-change" json:"recheck-on-change"`

	// RecoveryBackoff is the delay before an unhealthy entry is checked again
	// between cycles. It doubles after each failed attempt and is capped at
	// Interval. Default: 30s. Negative disables recovery checks.
	RecoveryBackoff time.Duration `yaml:"recovery-backoff" json:"recovery-backoff"`

	// MaxRecoveryAttempts bounds the recovery checks per unhealthy streak.
	// Default: 3.
	MaxRecoveryAttempts int `yaml:"max-recovery-attempts" json:"max-recovery-attempts"`
}

// ModelTestConfig configures the model test orchestrator.
type ModelTestConfig struct {
	// Timeout bounds a single provider invocation.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// DefaultPrompt is used when a test request carries no prompt.
	DefaultPrompt string `yaml:"default-prompt" json:"default-prompt"`
}

func (h *HeartbeatConfig) sanitize() {
	if h.Interval <= 0 {
		h.Interval = 5 * time.Minute
	} else if h.Interval < minHeartbeatInterval {
		h.Interval = minHeartbeatInterval
	}
	if h.Timeout <= 0 {
		h.Timeout = 5 * time.Second
	} else if h.Timeout < minHeartbeatTimeout {
		h.Timeout = minHeartbeatTimeout
	}
	if h.MaxConcurrentChecks <= 0 {
		h.MaxConcurrentChecks = 4
	} else if h.MaxConcurrentChecks > maxConcurrentChecks {
		h.MaxConcurrentChecks = maxConcurrentChecks
	}
	switch {
	case h.RecoveryBackoff < 0:
		h.RecoveryBackoff = -1
	case h.RecoveryBackoff == 0:
		h.RecoveryBackoff = 30 * time.Second
	case h.RecoveryBackoff < minRecoveryBackoff:
		h.RecoveryBackoff = minRecoveryBackoff
	}
	if h.MaxRecoveryAttempts <= 0 {
		h.MaxRecoveryAttempts = 3
	}
}

func (m *ModelTestConfig) sanitize() {
	if m.Timeout <= 0 {
		m.Timeout = 60 * time.Second
	}
	m.DefaultPrompt = strings.TrimSpace(m.DefaultPrompt)
	if m.DefaultPrompt == "" {
		m.DefaultPrompt = "This is a test. Reply with just 'OK'."
	}
}
