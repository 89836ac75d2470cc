// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	dirMode       os.FileMode = 0700
	sensitiveMode os.FileMode = 0600
)

// AuditResult describes the permissions of one path in the state box.
type AuditResult struct {
	Path         string
	CurrentMode  os.FileMode
	RequiredMode os.FileMode
	WasCorrected bool
	Error        error
}

// NeedsCorrection reports whether the path is looser than required.
func (r AuditResult) NeedsCorrection() bool {
	return r.Error == nil && r.CurrentMode != r.RequiredMode
}

// AuditPermissions walks the state box without modifying it. Directories must
// be 0700 and registry records, databases and logs 0600.
func AuditPermissions(sb *StateBox) ([]AuditResult, error) {
	return walkPermissions(sb, false)
}

// HardenPermissions audits the state box and chmods anything too loose.
// Individual chmod failures are recorded in the results, not returned.
func HardenPermissions(sb *StateBox) ([]AuditResult, error) {
	if sb != nil && sb.IsReadOnly() {
		return nil, ErrReadOnlyMode
	}
	results, err := walkPermissions(sb, true)
	if err != nil {
		return results, err
	}

	corrected, failed := 0, 0
	for _, r := range results {
		switch {
		case r.WasCorrected:
			corrected++
		case r.Error != nil:
			failed++
		}
	}
	if corrected > 0 {
		log.Infof("permission hardening: corrected %d paths", corrected)
	}
	if failed > 0 {
		log.Warnf("permission hardening: %d paths could not be corrected", failed)
	}
	return results, nil
}

func walkPermissions(sb *StateBox, fix bool) ([]AuditResult, error) {
	if sb == nil {
		return nil, fmt.Errorf("StateBox cannot be nil")
	}
	root := sb.RootPath()
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var results []AuditResult
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warnf("permission audit: failed to access %s: %v", path, err)
			results = append(results, AuditResult{Path: path, Error: err})
			return nil
		}

		var required os.FileMode
		switch {
		case info.IsDir():
			required = dirMode
		case isSensitiveFile(path):
			required = sensitiveMode
		default:
			return nil
		}

		res := AuditResult{Path: path, CurrentMode: info.Mode().Perm(), RequiredMode: required}
		if fix && res.NeedsCorrection() {
			if errChmod := os.Chmod(path, required); errChmod != nil {
				res.Error = errChmod
			} else {
				log.Debugf("permission hardening: %s %04o -> %04o", path, res.CurrentMode, required)
				res.WasCorrected = true
			}
		}
		results = append(results, res)
		return nil
	})
	if err != nil {
		return results, fmt.Errorf("failed to walk State Box directory: %w", err)
	}
	return results, nil
}

func isSensitiveFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".db", ".log":
		return true
	}
	return false
}
