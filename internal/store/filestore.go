// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/traylinx/integrationhub/internal/util"
)

const fileRecordExt = ".json"

// FileStore keeps one file per key inside a state box directory.
// Writes are atomic (temp file + rename) with 0600 permissions.
type FileStore struct {
	sb  *util.StateBox
	dir string
}

// NewFileStore creates a FileStore rooted at the state box registry directory.
func NewFileStore(sb *util.StateBox) (*FileStore, error) {
	if sb == nil {
		return nil, fmt.Errorf("StateBox cannot be nil")
	}
	dir := sb.RegistryDir()
	if !sb.IsReadOnly() {
		if err := sb.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("failed to prepare file store: %w", err)
		}
	}
	return &FileStore{sb: sb, dir: dir}, nil
}

// Dir returns the directory holding the record files.
func (s *FileStore) Dir() string { return s.dir }

// keyPath maps a key to a file name; keys are escaped so "/" never creates directories.
func (s *FileStore) keyPath(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+fileRecordExt)
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read record %s: %w", key, err)
	}
	return data, nil
}

func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	opts := &util.SecureWriteOptions{CreateBackup: true, Permissions: 0600}
	return util.SecureWrite(s.sb, s.keyPath(key), value, opts)
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	return util.SecureRemove(s.sb, s.keyPath(key))
}

func (s *FileStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileRecordExt) {
			continue
		}
		key, errUnescape := url.PathUnescape(strings.TrimSuffix(name, fileRecordExt))
		if errUnescape != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return sortedKeys(keys), nil
}

func (s *FileStore) Close() error { return nil }
