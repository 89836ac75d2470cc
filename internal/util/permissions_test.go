// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func newLooseStateBox(t *testing.T) (*StateBox, string, string) {
	t.Helper()
	sb, err := NewStateBox(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create StateBox: %v", err)
	}
	if err := os.MkdirAll(sb.RegistryDir(), 0755); err != nil {
		t.Fatalf("Failed to create registry directory: %v", err)
	}
	record := filepath.Join(sb.RegistryDir(), "api%2Fabc.json")
	if err := os.WriteFile(record, []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to write record: %v", err)
	}
	other := filepath.Join(sb.RootPath(), "README.txt")
	if err := os.WriteFile(other, []byte("hi"), 0644); err != nil {
		t.Fatalf("Failed to write other file: %v", err)
	}
	return sb, record, other
}

func TestAuditPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}
	sb, record, other := newLooseStateBox(t)

	results, err := AuditPermissions(sb)
	if err != nil {
		t.Fatalf("AuditPermissions failed: %v", err)
	}

	seen := map[string]AuditResult{}
	for _, r := range results {
		seen[r.Path] = r
	}
	if r, ok := seen[record]; !ok || r.RequiredMode != 0600 || !r.NeedsCorrection() {
		t.Errorf("record audit = %+v, want 0600 and needing correction", r)
	}
	if r, ok := seen[sb.RegistryDir()]; !ok || r.RequiredMode != 0700 {
		t.Errorf("registry dir audit = %+v, want 0700", r)
	}
	if _, ok := seen[other]; ok {
		t.Errorf("non-sensitive file %s should not be audited", other)
	}

	info, _ := os.Stat(record)
	if info.Mode().Perm() != 0644 {
		t.Errorf("audit must not modify files, mode is %04o", info.Mode().Perm())
	}
}

func TestHardenPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}
	sb, record, other := newLooseStateBox(t)

	results, err := HardenPermissions(sb)
	if err != nil {
		t.Fatalf("HardenPermissions failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}

	if info, _ := os.Stat(record); info.Mode().Perm() != 0600 {
		t.Errorf("record mode = %04o, want 0600", info.Mode().Perm())
	}
	if info, _ := os.Stat(sb.RegistryDir()); info.Mode().Perm() != 0700 {
		t.Errorf("registry dir mode = %04o, want 0700", info.Mode().Perm())
	}
	if info, _ := os.Stat(other); info.Mode().Perm() != 0644 {
		t.Errorf("other file mode = %04o, want unchanged 0644", info.Mode().Perm())
	}

	again, err := AuditPermissions(sb)
	if err != nil {
		t.Fatalf("AuditPermissions failed: %v", err)
	}
	for _, r := range again {
		if r.NeedsCorrection() {
			t.Errorf("%s still needs correction after hardening", r.Path)
		}
	}
}

func TestHardenPermissions_ReadOnly(t *testing.T) {
	sb, _, _ := newLooseStateBox(t)
	sb.SetReadOnly(true)
	if _, err := HardenPermissions(sb); err != ErrReadOnlyMode {
		t.Errorf("err = %v, want ErrReadOnlyMode", err)
	}
}

func TestPermissions_NilAndMissingRoot(t *testing.T) {
	if _, err := AuditPermissions(nil); err == nil {
		t.Error("expected error for nil StateBox")
	}
	sb, err := NewStateBox(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("Failed to create StateBox: %v", err)
	}
	results, err := AuditPermissions(sb)
	if err != nil || len(results) != 0 {
		t.Errorf("missing root: results=%v err=%v", results, err)
	}
}
