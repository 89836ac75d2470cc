// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrReadOnlyMode is returned when a write operation is attempted in read-only mode.
var ErrReadOnlyMode = errors.New("read-only environment: write operations disabled")

const backupSuffix = ".bak"

// SecureWriteOptions configures SecureWrite.
type SecureWriteOptions struct {
	// CreateBackup keeps the previous contents in a .bak sibling.
	CreateBackup bool
	// Permissions of the written file. Zero means 0600.
	Permissions os.FileMode
}

// SecureWrite replaces path with data so readers see either the old or the new
// contents, never a partial record. Parent directories are created 0700.
func SecureWrite(sb *StateBox, path string, data []byte, opts *SecureWriteOptions) error {
	if sb != nil && sb.IsReadOnly() {
		return ErrReadOnlyMode
	}
	perm := os.FileMode(0600)
	backup := false
	if opts != nil {
		backup = opts.CreateBackup
		if opts.Permissions != 0 {
			perm = opts.Permissions
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if backup {
		if previous, err := os.ReadFile(path); err == nil {
			if errBak := replaceFile(path+backupSuffix, previous, perm); errBak != nil {
				log.Warnf("failed to create backup of %s: %v", path, errBak)
			}
		}
	}

	if err := replaceFile(path, data, perm); err != nil {
		return err
	}
	if err := syncDir(dir); err != nil {
		log.Debugf("failed to sync directory %s: %v", dir, err)
	}
	return nil
}

// SecureRemove deletes path and its backup. A missing file is not an error.
func SecureRemove(sb *StateBox, path string) error {
	if sb != nil && sb.IsReadOnly() {
		return ErrReadOnlyMode
	}
	for _, p := range []string{path, path + backupSuffix} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// replaceFile writes a fsynced temp file next to path and renames it over path.
func replaceFile(path string, data []byte, perm os.FileMode) (err error) {
	tmp := path + ".tmp." + uuid.NewString()
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err == nil {
		err = f.Sync()
	}
	if errClose := f.Close(); err == nil {
		err = errClose
	}
	if err != nil {
		return fmt.Errorf("failed to write temp file for %s: %w", path, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
