// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package management implements the management API handlers for the
// integration registry, the model test orchestrator and the health monitor.
package management

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/integrationhub/internal/events"
	"github.com/traylinx/integrationhub/internal/heartbeat"
	"github.com/traylinx/integrationhub/internal/modeltest"
	"github.com/traylinx/integrationhub/internal/registry"
)

// Registry is the mutation side of the API registry.
type Registry interface {
	Get(ctx context.Context, id string) (registry.Entry, error)
	Add(ctx context.Context, name, credential string, opts ...registry.AddOption) (registry.Entry, error)
	Update(ctx context.Context, id string, fields registry.Fields) (registry.Entry, error)
	Remove(ctx context.Context, id string) error
	LoadAllStrict(ctx context.Context) ([]registry.Entry, error)
}

// Snapshotter is the read side served to clients.
type Snapshotter interface {
	Snapshot() []registry.Entry
	Loading() bool
	Version() uint64
}

// ModelTester runs model tests.
type ModelTester interface {
	StartTest(ctx context.Context, providerName, modelID, prompt string) (string, error)
	StartTestAsync(providerName, modelID, prompt string) uint64
	State() modeltest.State
	Reset()
}

// HealthChecker runs health checks on demand.
type HealthChecker interface {
	CheckAll(ctx context.Context) []heartbeat.Result
	Stats() heartbeat.Stats
	Running() bool
}

// Handler serves the management endpoints.
type Handler struct {
	registry Registry
	view     Snapshotter
	tester   ModelTester
	health   HealthChecker
	bus      events.Subscriber
}

// Options bundles the handler's collaborators. Health and Bus may be nil.
type Options struct {
	Registry Registry
	View     Snapshotter
	Tester   ModelTester
	Health   HealthChecker
	Bus      events.Subscriber
}

// NewHandler creates a management handler.
func NewHandler(opts Options) *Handler {
	return &Handler{
		registry: opts.Registry,
		view:     opts.View,
		tester:   opts.Tester,
		health:   opts.Health,
		bus:      opts.Bus,
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, registry.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
	case errors.Is(err, registry.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
	case errors.Is(err, registry.ErrStorageRead):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage_unavailable", "message": err.Error()})
	default:
		log.Errorf("management: request failed: %v", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "internal server error"})
	}
}
