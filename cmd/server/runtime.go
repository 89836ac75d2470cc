// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/integrationhub/internal/config"
	"github.com/traylinx/integrationhub/internal/events"
	"github.com/traylinx/integrationhub/internal/heartbeat"
	"github.com/traylinx/integrationhub/internal/modeltest"
	"github.com/traylinx/integrationhub/internal/provider"
	"github.com/traylinx/integrationhub/internal/registry"
	"github.com/traylinx/integrationhub/internal/store"
	"github.com/traylinx/integrationhub/internal/util"
)

// hub holds the wired components shared by the server and the CLI commands.
type hub struct {
	store    store.Store
	bus      *events.Bus
	registry *registry.Registry
	factory  *provider.Factory
	tester   *modeltest.Orchestrator
	monitor  *heartbeat.Monitor
	changes  *heartbeat.ChangeHandler
}

func openHub(ctx context.Context, cfg *config.Config, sb *util.StateBox) (*hub, error) {
	st, err := store.Open(ctx, cfg.Store, sb)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Type, err)
	}

	sealer, err := registry.NewSealerFromBase64(cfg.EncryptionKey)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	if sealer == nil {
		log.Warn("no encryption key configured, credentials are stored unencrypted")
	}

	bus := events.NewBus()
	reg := registry.New(st, bus, registry.WithSealer(sealer))
	factory := provider.NewFactory(cfg.Providers, nil)

	monitor := heartbeat.NewMonitor(reg, factory, cfg.Heartbeat)
	return &hub{
		store:    st,
		bus:      bus,
		registry: reg,
		factory:  factory,
		tester:   modeltest.New(provider.NewRegistryResolver(reg, factory), cfg.ModelTest),
		monitor:  monitor,
		changes:  heartbeat.NewChangeHandler(monitor),
	}, nil
}

// startHeartbeat starts the monitor and, when configured, the change handler.
func (h *hub) startHeartbeat(ctx context.Context, cfg config.HeartbeatConfig) error {
	if err := h.monitor.Start(ctx); err != nil {
		return err
	}
	if cfg.RecheckOnChange {
		h.changes.Start(ctx, h.bus)
	}
	return nil
}

func (h *hub) stopHeartbeat() {
	h.changes.Stop()
	if err := h.monitor.Stop(); err != nil {
		log.Warnf("failed to stop heartbeat monitor: %v", err)
	}
}

// applyConfig pushes reloadable settings into running components.
func (h *hub) applyConfig(ctx context.Context, cfg *config.Config) {
	h.factory.SetOverrides(cfg.Providers)
	h.monitor.SetConfig(cfg.Heartbeat)

	switch {
	case cfg.Heartbeat.Enabled && !h.monitor.Running():
		if err := h.startHeartbeat(ctx, cfg.Heartbeat); err != nil {
			log.Warnf("failed to start heartbeat monitor: %v", err)
		}
	case !cfg.Heartbeat.Enabled && h.monitor.Running():
		h.stopHeartbeat()
	case h.monitor.Running() && cfg.Heartbeat.RecheckOnChange:
		h.changes.Start(ctx, h.bus)
	case h.monitor.Running():
		h.changes.Stop()
	}
}

func (h *hub) Close() {
	if h.monitor.Running() {
		h.stopHeartbeat()
	}
	h.bus.Close()
	if err := h.store.Close(); err != nil {
		log.Warnf("failed to close store: %v", err)
	}
}
