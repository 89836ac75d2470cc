// Package heartbeat provides background health monitoring of registry entries.
// Each cycle pings every configured API and records the outcome on the entry
// itself, so views refresh through the change bus like any other mutation.
package heartbeat

import (
	"context"
	"time"

	"github.com/traylinx/integrationhub/internal/provider"
	"github.com/traylinx/integrationhub/internal/registry"
)

// EntryStore is the slice of the registry the monitor needs.
type EntryStore interface {
	LoadAll(ctx context.Context) []registry.Entry
	Get(ctx context.Context, id string) (registry.Entry, error)
	Update(ctx context.Context, id string, fields registry.Fields) (registry.Entry, error)
}

// ProviderFactory builds a provider for an entry.
type ProviderFactory interface {
	ForEntry(entry registry.Entry) (provider.Provider, error)
}

// Result is the outcome of one entry check.
type Result struct {
	// APIID is the checked entry.
	APIID string `json:"apiId"`

	// Status is the health derived from the ping.
	Status registry.Status `json:"status"`

	// CheckedAt is when the ping finished.
	CheckedAt time.Time `json:"checkedAt"`

	// LatencyMs is the ping duration.
	LatencyMs int64 `json:"latencyMs"`

	// Error holds the failure description when Status is not healthy.
	Error string `json:"error,omitempty"`
}

// Stats contains statistics about the monitor.
type Stats struct {
	// StartTime is when the monitor was last started
	StartTime time.Time `json:"start_time"`

	// LastCycleTime is when the last full cycle completed
	LastCycleTime time.Time `json:"last_cycle_time"`

	// TotalCycles is the number of completed cycles
	TotalCycles int64 `json:"total_cycles"`

	// TotalChecks is the total number of entry checks performed
	TotalChecks int64 `json:"total_checks"`

	HealthyChecks     int64 `json:"healthy_checks"`
	DegradedChecks    int64 `json:"degraded_checks"`
	UnavailableChecks int64 `json:"unavailable_checks"`

	// RecoveryChecks counts checks made between cycles for unhealthy entries.
	RecoveryChecks int64 `json:"recovery_checks"`

	// RecoveryPending is the number of entries waiting for a recovery check.
	RecoveryPending int `json:"recovery_pending"`
}
