// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package store provides the key-value persistence layer behind the API registry.
// Every backend offers the same small contract: get, set, delete and list keys
// under a prefix. Values are opaque byte slices.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("store: key not found")

// Store is a string-keyed durable key-value store.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// ListKeys returns every key starting with prefix, sorted ascending.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	// Close releases backend resources.
	Close() error
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("store: key cannot be empty")
	}
	return nil
}

func sortedKeys(keys []string) []string {
	sort.Strings(keys)
	return keys
}
