// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("registry: validation failed")

	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("registry: api not found")

	// ErrStorageRead is returned by LoadAllStrict when the store cannot be listed.
	ErrStorageRead = errors.New("registry: storage read failed")

	// ErrCorruptRecord marks a stored record that cannot be decoded or unsealed.
	ErrCorruptRecord = errors.New("registry: corrupt record")
)

// ValidationError reports an input that was rejected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError reports an operation on an id that has no entry.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("api %q not found", e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
