// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSecureWrite_SuccessfulWrite(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "test.txt")

	sb, err := NewStateBox(tempDir)
	if err != nil {
		t.Fatalf("NewStateBox() failed: %v", err)
	}

	testData := []byte("test content")
	if err := SecureWrite(sb, testFile, testData, nil); err != nil {
		t.Fatalf("SecureWrite() failed: %v", err)
	}

	content, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != string(testData) {
		t.Errorf("Expected content %s, got %s", testData, content)
	}

	info, _ := os.Stat(testFile)
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %o", info.Mode().Perm())
	}

	// No temp files may remain
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != "test.txt" {
			t.Errorf("Unexpected file in directory: %s", entry.Name())
		}
	}
}

func TestSecureWrite_ReadOnlyMode(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "test.txt")

	sb, _ := NewStateBox(tempDir)
	sb.SetReadOnly(true)

	if err := SecureWrite(sb, testFile, []byte("x"), nil); err != ErrReadOnlyMode {
		t.Errorf("Expected ErrReadOnlyMode, got %v", err)
	}
	if _, err := os.Stat(testFile); err == nil {
		t.Error("File should not exist in read-only mode")
	}
}

func TestSecureWrite_Backup(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "record.json")
	sb, _ := NewStateBox(tempDir)

	opts := &SecureWriteOptions{CreateBackup: true, Permissions: 0600}
	if err := SecureWrite(sb, testFile, []byte("v1"), opts); err != nil {
		t.Fatal(err)
	}
	if err := SecureWrite(sb, testFile, []byte("v2"), opts); err != nil {
		t.Fatal(err)
	}

	backup, err := os.ReadFile(testFile + ".bak")
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(backup) != "v1" {
		t.Errorf("Expected backup v1, got %s", backup)
	}
}

func TestSecureRemove(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "record.json")
	sb, _ := NewStateBox(tempDir)

	if err := SecureWrite(sb, testFile, []byte("v1"), nil); err != nil {
		t.Fatal(err)
	}
	if err := SecureRemove(sb, testFile); err != nil {
		t.Fatalf("SecureRemove() failed: %v", err)
	}
	if _, err := os.Stat(testFile); !os.IsNotExist(err) {
		t.Error("file should be gone")
	}
	if err := SecureRemove(sb, testFile); err != nil {
		t.Errorf("removing a missing file should succeed, got %v", err)
	}

	sb.SetReadOnly(true)
	if err := SecureRemove(sb, testFile); err != ErrReadOnlyMode {
		t.Errorf("Expected ErrReadOnlyMode, got %v", err)
	}
}
