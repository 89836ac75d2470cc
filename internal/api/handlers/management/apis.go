// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package management

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/traylinx/integrationhub/internal/registry"
)

// CreateAPIRequest is the body of POST /apis.
type CreateAPIRequest struct {
	Name       string `json:"name"`
	Credential string `json:"credential"`
	Provider   string `json:"provider"`
	BaseURL    string `json:"baseUrl"`
}

// PatchAPIRequest is the body of PATCH /apis/:id. Omitted fields are kept.
type PatchAPIRequest struct {
	Name       *string `json:"name"`
	Credential *string `json:"credential"`
	Provider   *string `json:"provider"`
	BaseURL    *string `json:"baseUrl"`
}

// ListAPIs returns the view snapshot. With ?strict=true it reads the store
// directly and reports storage failures instead of an empty list.
func (h *Handler) ListAPIs(c *gin.Context) {
	if c.Query("strict") == "true" {
		entries, err := h.registry.LoadAllStrict(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		redacted := make([]registry.Entry, len(entries))
		for i, e := range entries {
			redacted[i] = e.Redacted()
		}
		c.JSON(http.StatusOK, gin.H{"apis": redacted, "loading": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"apis":    h.view.Snapshot(),
		"loading": h.view.Loading(),
		"version": h.view.Version(),
	})
}

// CreateAPI adds an integration.
func (h *Handler) CreateAPI(c *gin.Context) {
	var req CreateAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	var opts []registry.AddOption
	if req.Provider != "" {
		opts = append(opts, registry.WithProvider(req.Provider))
	}
	if req.BaseURL != "" {
		opts = append(opts, registry.WithBaseURL(req.BaseURL))
	}

	entry, err := h.registry.Add(c.Request.Context(), req.Name, req.Credential, opts...)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry.Redacted())
}

// GetAPI returns one integration.
func (h *Handler) GetAPI(c *gin.Context) {
	entry, err := h.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry.Redacted())
}

// PatchAPI updates an integration.
func (h *Handler) PatchAPI(c *gin.Context) {
	var req PatchAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	entry, err := h.registry.Update(c.Request.Context(), c.Param("id"), registry.Fields{
		Name:       req.Name,
		Credential: req.Credential,
		Provider:   req.Provider,
		BaseURL:    req.BaseURL,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry.Redacted())
}

// DeleteAPI removes an integration.
func (h *Handler) DeleteAPI(c *gin.Context) {
	if err := h.registry.Remove(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
