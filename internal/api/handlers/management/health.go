// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package management

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CheckHealth pings every integration now and returns the results.
func (h *Handler) CheckHealth(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "health_unavailable", "message": "health monitor is not configured"})
		return
	}
	results := h.health.CheckAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// GetHealth returns monitor statistics.
func (h *Handler) GetHealth(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "health_unavailable", "message": "health monitor is not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"running": h.health.Running(), "stats": h.health.Stats()})
}
