// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package util provides filesystem helpers shared by the integration hub.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	// EnvStateDir overrides the state directory root.
	EnvStateDir = "INTEGRATIONHUB_STATE_DIR"
	// EnvReadOnly puts the state box into read-only mode when set to "1".
	EnvReadOnly = "INTEGRATIONHUB_READONLY"

	defaultStateDir = "~/.integrationhub"
)

// StateBox manages the canonical state directory for the integration hub.
// All mutable application data (registry records, logs) resolves relative to it.
type StateBox struct {
	rootPath string
	readOnly bool
	mu       sync.RWMutex
}

// NewStateBox creates a StateBox rooted at dir. An empty dir falls back to
// INTEGRATIONHUB_STATE_DIR and then to ~/.integrationhub.
func NewStateBox(dir string) (*StateBox, error) {
	stateDir := strings.TrimSpace(dir)
	if stateDir == "" {
		stateDir = os.Getenv(EnvStateDir)
	}
	if stateDir == "" {
		stateDir = defaultStateDir
	}

	resolvedPath, err := ExpandPath(stateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state directory: %w", err)
	}

	return &StateBox{
		rootPath: resolvedPath,
		readOnly: os.Getenv(EnvReadOnly) == "1",
	}, nil
}

// RootPath returns the resolved State Box root directory.
func (sb *StateBox) RootPath() string {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.rootPath
}

// IsReadOnly returns whether the State Box is in read-only mode.
func (sb *StateBox) IsReadOnly() bool {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.readOnly
}

// SetReadOnly toggles read-only mode.
func (sb *StateBox) SetReadOnly(readOnly bool) {
	sb.mu.Lock()
	sb.readOnly = readOnly
	sb.mu.Unlock()
}

// RegistryDir returns the directory holding file-backed registry records.
func (sb *StateBox) RegistryDir() string {
	return filepath.Join(sb.RootPath(), "registry")
}

// LogsDir returns the directory used for rotating log files.
func (sb *StateBox) LogsDir() string {
	return filepath.Join(sb.RootPath(), "logs")
}

// ResolvePath joins a relative path with the State Box root.
// Absolute and tilde paths are returned cleaned.
func (sb *StateBox) ResolvePath(relativePath string) string {
	if relativePath == "" {
		return sb.RootPath()
	}
	if strings.HasPrefix(relativePath, "~") || filepath.IsAbs(relativePath) {
		cleaned, err := ExpandPath(relativePath)
		if err != nil {
			return filepath.Clean(relativePath)
		}
		return cleaned
	}
	return filepath.Join(sb.RootPath(), relativePath)
}

// EnsureDir creates a directory with 0700 permissions if it doesn't exist.
func (sb *StateBox) EnsureDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path exists but is not a directory: %s", path)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat directory %s: %w", path, err)
	}
	if sb.IsReadOnly() {
		return ErrReadOnlyMode
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// ExpandPath expands a leading tilde to the user's home directory and cleans the result.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Clean(path), nil
}
