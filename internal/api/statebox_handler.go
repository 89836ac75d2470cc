// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/traylinx/integrationhub/internal/util"
)

// StateBoxStatus describes the state directory for API responses.
type StateBoxStatus struct {
	RootPath         string     `json:"root_path"`
	ReadOnly         bool       `json:"read_only"`
	StoreType        string     `json:"store_type"`
	RegistryDir      *DirStatus `json:"registry_dir,omitempty"`
	LogsDir          *DirStatus `json:"logs_dir,omitempty"`
	PermissionStatus string     `json:"permission_status"` // "ok", "warning", "error"
	Warnings         []string   `json:"warnings"`
	Errors           []string   `json:"errors"`
}

// DirStatus describes one directory inside the state box.
type DirStatus struct {
	Path    string    `json:"path"`
	Exists  bool      `json:"exists"`
	Files   int       `json:"files"`
	Mode    string    `json:"mode,omitempty"`
	ModTime time.Time `json:"mod_time,omitempty"`
}

func getDirStatus(path string) *DirStatus {
	status := &DirStatus{Path: path}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return status
	}
	status.Exists = true
	status.Mode = info.Mode().Perm().String()
	status.ModTime = info.ModTime()
	if entries, errRead := os.ReadDir(path); errRead == nil {
		for _, e := range entries {
			if !e.IsDir() && !strings.HasSuffix(e.Name(), ".bak") {
				status.Files++
			}
		}
	}
	return status
}

// StateBoxStatusHandler reports where mutable data lives and whether its
// permissions are tight enough for stored credentials.
func StateBoxStatusHandler(sb *util.StateBox, storeType func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sb == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "State Box not initialized",
			})
			return
		}

		status := &StateBoxStatus{
			RootPath:         sb.RootPath(),
			ReadOnly:         sb.IsReadOnly(),
			PermissionStatus: "ok",
			Warnings:         []string{},
			Errors:           []string{},
		}
		if storeType != nil {
			status.StoreType = storeType()
		}

		if _, err := os.Stat(sb.RootPath()); err != nil {
			if os.IsNotExist(err) {
				status.Warnings = append(status.Warnings, "State Box root directory does not exist")
				status.PermissionStatus = "warning"
			} else {
				status.Errors = append(status.Errors, "Failed to access State Box root directory")
				status.PermissionStatus = "error"
			}
		}

		status.RegistryDir = getDirStatus(sb.RegistryDir())
		status.LogsDir = getDirStatus(sb.LogsDir())

		results, err := util.AuditPermissions(sb)
		if err != nil {
			status.Errors = append(status.Errors, "Failed to audit State Box permissions")
			status.PermissionStatus = "error"
		}
		loose := 0
		for _, r := range results {
			if r.NeedsCorrection() {
				loose++
			}
		}
		if loose > 0 {
			status.Warnings = append(status.Warnings, fmt.Sprintf("%d paths are readable by other users", loose))
			if status.PermissionStatus == "ok" {
				status.PermissionStatus = "warning"
			}
		}

		c.JSON(http.StatusOK, status)
	}
}
