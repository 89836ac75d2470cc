// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api wires the management HTTP server: routing, middleware and the
// lifecycle of the underlying http.Server.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/integrationhub/internal/api/handlers/management"
	"github.com/traylinx/integrationhub/internal/config"
	"github.com/traylinx/integrationhub/internal/logging"
	"github.com/traylinx/integrationhub/internal/util"
)

// ManagementPrefix is the root of every management route.
const ManagementPrefix = "/v0/management"

// Server is the management HTTP server.
type Server struct {
	engine  *gin.Engine
	handler *management.Handler
	sb      *util.StateBox

	cfgMu sync.RWMutex
	cfg   *config.Config

	srvMu      sync.Mutex
	server     *http.Server
	cancelBase context.CancelFunc
}

// NewServer builds the router. cfg may be replaced later with UpdateConfig.
func NewServer(cfg *config.Config, handler *management.Handler, sb *util.StateBox) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine:  gin.New(),
		handler: handler,
		sb:      sb,
		cfg:     cfg,
	}
	s.engine.Use(logging.GinLogrusLogger(), logging.GinLogrusRecovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	mgmt := s.engine.Group(ManagementPrefix, managementAuth(s.config))
	{
		mgmt.GET("/apis", s.handler.ListAPIs)
		mgmt.POST("/apis", s.handler.CreateAPI)
		mgmt.GET("/apis/events", s.handler.StreamEvents)
		mgmt.GET("/apis/:id", s.handler.GetAPI)
		mgmt.PATCH("/apis/:id", s.handler.PatchAPI)
		mgmt.DELETE("/apis/:id", s.handler.DeleteAPI)

		mgmt.POST("/model-test", s.handler.StartModelTest)
		mgmt.GET("/model-test", s.handler.GetModelTest)
		mgmt.DELETE("/model-test", s.handler.ResetModelTest)

		mgmt.GET("/health", s.handler.GetHealth)
		mgmt.POST("/health/check", s.handler.CheckHealth)

		mgmt.GET("/state-box/status", StateBoxStatusHandler(s.sb, func() string {
			return s.config().Store.Type
		}))
	}
}

func (s *Server) config() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// UpdateConfig swaps the configuration used by middleware.
func (s *Server) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured address and blocks until Stop is called.
func (s *Server) Start() error {
	cfg := s.config()
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	baseCtx, cancel := context.WithCancel(context.Background())
	s.srvMu.Lock()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	s.cancelBase = cancel
	srv := s.server
	s.srvMu.Unlock()

	log.Infof("management API listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("management server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down. Open event streams are ended first.
func (s *Server) Stop(ctx context.Context) error {
	s.srvMu.Lock()
	srv, cancel := s.server, s.cancelBase
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("management server shutdown: %w", err)
	}
	return nil
}
