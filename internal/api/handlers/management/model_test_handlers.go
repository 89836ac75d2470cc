// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package management

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/traylinx/integrationhub/internal/modeltest"
	"github.com/traylinx/integrationhub/internal/provider"
)

// ModelTestRequest defines the payload for starting a model test.
type ModelTestRequest struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Prompt   string `json:"prompt"`
	Async    bool   `json:"async"`
}

// StartModelTest runs a model test. Synchronous requests answer with the final
// state; async requests answer 202 with the session token.
func (h *Handler) StartModelTest(c *gin.Context) {
	var req ModelTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	req.Provider = strings.TrimSpace(req.Provider)
	req.Model = strings.TrimSpace(req.Model)
	if req.Provider == "" || req.Model == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "provider and model are required"})
		return
	}

	if req.Async {
		session := h.tester.StartTestAsync(req.Provider, req.Model, req.Prompt)
		c.JSON(http.StatusAccepted, gin.H{"session": session, "state": h.tester.State()})
		return
	}

	response, err := h.tester.StartTest(c.Request.Context(), req.Provider, req.Model, req.Prompt)
	state := h.tester.State()
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, provider.ErrNoProvider) {
			status = http.StatusNotFound
		} else if errors.Is(err, provider.ErrUnsupported) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"status": modeltest.StatusError, "message": err.Error(), "state": state})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": modeltest.StatusSuccess, "response": response, "state": state})
}

// GetModelTest returns the current model test state.
func (h *Handler) GetModelTest(c *gin.Context) {
	c.JSON(http.StatusOK, h.tester.State())
}

// ResetModelTest returns the orchestrator to idle.
func (h *Handler) ResetModelTest(c *gin.Context) {
	h.tester.Reset()
	c.JSON(http.StatusOK, h.tester.State())
}
