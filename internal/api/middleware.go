// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/integrationhub/internal/config"
	"github.com/traylinx/integrationhub/internal/util"
)

// ManagementKeyHeader is the alternative to a bearer token.
const ManagementKeyHeader = "X-Management-Key"

// managementAuth guards the management routes. Remote callers are refused
// unless remote management is allowed, and a configured secret must be
// presented as a bearer token or X-Management-Key.
func managementAuth(cfg func() *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := cfg()

		if !current.RemoteManagement.AllowRemote && !util.IsLocalhostDirect(c) {
			log.WithField("client", c.ClientIP()).Warn("management: remote access refused")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "remote management is disabled"})
			return
		}

		if current.RemoteManagement.SecretKey == "" {
			c.Next()
			return
		}

		key := extractManagementKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "missing management key"})
			return
		}
		if !current.VerifyManagementKey(key) {
			log.WithField("client", c.ClientIP()).Warn("management: invalid management key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid management key"})
			return
		}
		c.Next()
	}
}

func extractManagementKey(c *gin.Context) string {
	if auth := strings.TrimSpace(c.GetHeader("Authorization")); auth != "" {
		if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
			return strings.TrimSpace(auth[7:])
		}
	}
	return strings.TrimSpace(c.GetHeader(ManagementKeyHeader))
}
