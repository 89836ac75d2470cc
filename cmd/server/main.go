// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the integration hub server.
// The server keeps a registry of third-party API integrations, streams
// registry changes to clients, checks integration health and runs model tests.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/integrationhub/internal/api"
	"github.com/traylinx/integrationhub/internal/api/handlers/management"
	"github.com/traylinx/integrationhub/internal/config"
	"github.com/traylinx/integrationhub/internal/logging"
	"github.com/traylinx/integrationhub/internal/registry"
	"github.com/traylinx/integrationhub/internal/util"
	"github.com/traylinx/integrationhub/internal/view"
	"github.com/traylinx/integrationhub/internal/watcher"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = ""
)

const shutdownTimeout = 10 * time.Second

func init() {
	logging.SetupBaseLogger()
}

func main() {
	var (
		configPath string
		keygen     bool
		version    bool
	)
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.BoolVar(&keygen, "keygen", false, "Print a new base64 encryption key and exit")
	flag.BoolVar(&version, "version", false, "Print version information and exit")
	flag.Parse()

	if version {
		fmt.Printf("integrationhub %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		return
	}
	if keygen {
		key, err := registry.GenerateKey(32)
		if err != nil {
			log.Fatalf("failed to generate key: %v", err)
		}
		fmt.Println(key)
		return
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to get working directory: %v", err)
	}
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil && !errors.Is(errLoad, os.ErrNotExist) {
		log.WithError(errLoad).Warn("failed to load .env file")
	}

	configFilePath := configPath
	optional := configPath == ""
	if configFilePath == "" {
		configFilePath = filepath.Join(wd, "config.yaml")
	}
	cfg, err := config.LoadConfigOptional(configFilePath, optional)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err = cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	sb, err := util.NewStateBox(cfg.StateDir)
	if err != nil {
		log.Fatalf("failed to initialize state directory: %v", err)
	}
	if err = sb.EnsureDir(sb.RootPath()); err != nil && !errors.Is(err, util.ErrReadOnlyMode) {
		log.Fatalf("failed to create state directory: %v", err)
	}

	if !sb.IsReadOnly() {
		if _, errHarden := util.HardenPermissions(sb); errHarden != nil {
			log.Warnf("failed to harden state directory permissions: %v", errHarden)
		}
	}

	if cfg.LoggingToFile {
		if err = logging.ConfigureLogOutput(sb, logging.OutputOptions{
			ToFile:     true,
			MaxSizeMB:  cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
		}); err != nil {
			log.Fatalf("failed to configure log output: %v", err)
		}
	}
	defer logging.Close()
	logging.SetDebug(cfg.Debug)

	if len(flag.Args()) > 0 && flag.Arg(0) == "heartbeat" {
		os.Exit(runHeartbeatCLI(cfg, sb, flag.Args()[1:], os.Stdout))
	}

	if err = run(cfg, configFilePath, sb); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// runHeartbeatCLI runs a heartbeat subcommand and closes log outputs before
// the caller exits, since os.Exit skips deferred calls.
func runHeartbeatCLI(cfg *config.Config, sb *util.StateBox, args []string, out io.Writer) int {
	defer logging.Close()
	return handleHeartbeatCommand(cfg, sb, args, out)
}

func run(cfg *config.Config, configFilePath string, sb *util.StateBox) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := openHub(ctx, cfg, sb)
	if err != nil {
		return err
	}
	defer h.Close()

	v := view.New(h.registry, h.bus)
	v.OnChange(func(entries []registry.Entry) {
		log.Debugf("registry view refreshed: %d integrations", len(entries))
	})
	v.Activate(ctx)
	defer v.Deactivate()
	log.Infof("loaded %d integrations from %s store", len(v.Snapshot()), cfg.Store.Type)

	if cfg.Heartbeat.Enabled {
		if err = h.startHeartbeat(ctx, cfg.Heartbeat); err != nil {
			return fmt.Errorf("failed to start heartbeat monitor: %w", err)
		}
	}

	server := api.NewServer(cfg, management.NewHandler(management.Options{
		Registry: h.registry,
		View:     v,
		Tester:   h.tester,
		Health:   h.monitor,
		Bus:      h.bus,
	}), sb)

	if _, statErr := os.Stat(configFilePath); statErr == nil {
		cw, errWatch := watcher.NewConfigWatcher(configFilePath, func(next *config.Config) {
			if errValidate := next.Validate(); errValidate != nil {
				log.Warnf("ignoring invalid config: %v", errValidate)
				return
			}
			logging.SetDebug(next.Debug)
			h.applyConfig(ctx, next)
			server.UpdateConfig(next)
			log.Info("configuration reloaded")
		})
		if errWatch == nil {
			errWatch = cw.Start()
		}
		if errWatch != nil {
			log.Warnf("config hot reload disabled: %v", errWatch)
		} else {
			defer func() { _ = cw.Stop() }()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("starting integration hub %s", Version)
		errCh <- server.Start()
	}()

	select {
	case err = <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
