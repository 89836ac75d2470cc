// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package registry

import (
	"fmt"
	"strings"
	"time"
)

// Status describes the last observed health of an integration.
type Status string

const (
	StatusUnknown     Status = "unknown"
	StatusHealthy     Status = "healthy"
	StatusDegraded    Status = "degraded"
	StatusUnavailable Status = "unavailable"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnknown, StatusHealthy, StatusDegraded, StatusUnavailable:
		return true
	}
	return false
}

// Entry is one registered third-party API integration.
type Entry struct {
	// ID is assigned on creation and never changes.
	ID string `json:"id"`
	// Name is a human label. Names need not be unique.
	Name string `json:"name"`
	// Credential is the secret used to call the API.
	Credential string `json:"credential"`
	// Provider is the provider kind, e.g. "openai" or "anthropic".
	Provider string `json:"provider,omitempty"`
	// BaseURL overrides the provider's default endpoint.
	BaseURL string `json:"baseUrl,omitempty"`

	Status        Status     `json:"status"`
	LastCheckedAt *time.Time `json:"lastCheckedAt,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
	LatencyMs     int64      `json:"latencyMs,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Redacted returns a copy of e with the credential masked.
func (e Entry) Redacted() Entry {
	e.Credential = MaskCredential(e.Credential)
	if e.LastCheckedAt != nil {
		t := *e.LastCheckedAt
		e.LastCheckedAt = &t
	}
	return e
}

// String implements fmt.Stringer without ever printing the credential.
func (e Entry) String() string {
	return fmt.Sprintf("Entry{ID:%s Name:%q Provider:%s Status:%s}", e.ID, e.Name, e.Provider, e.Status)
}

// MaskCredential keeps the first four and last two characters of long secrets
// and hides short ones entirely.
func MaskCredential(credential string) string {
	if credential == "" {
		return ""
	}
	if len(credential) <= 8 {
		return "****"
	}
	return credential[:4] + "..." + credential[len(credential)-2:]
}

// Fields is a partial update. A nil field keeps the current value.
type Fields struct {
	Name       *string
	Credential *string
	Provider   *string
	BaseURL    *string

	Status        *Status
	LastCheckedAt *time.Time
	LastError     *string
	LatencyMs     *int64
}

// apply merges f into e and returns the result. Name and credential are trimmed.
func (f Fields) apply(e Entry) Entry {
	if f.Name != nil {
		e.Name = strings.TrimSpace(*f.Name)
	}
	if f.Credential != nil {
		e.Credential = strings.TrimSpace(*f.Credential)
	}
	if f.Provider != nil {
		e.Provider = normalizeProvider(*f.Provider)
	}
	if f.BaseURL != nil {
		e.BaseURL = normalizeBaseURL(*f.BaseURL)
	}
	if f.Status != nil {
		e.Status = *f.Status
	}
	if f.LastCheckedAt != nil {
		t := *f.LastCheckedAt
		e.LastCheckedAt = &t
	}
	if f.LastError != nil {
		e.LastError = *f.LastError
	}
	if f.LatencyMs != nil {
		e.LatencyMs = *f.LatencyMs
	}
	return e
}

// AddOption sets optional attributes on a new entry.
type AddOption func(*Entry)

// WithProvider records the provider kind of a new entry.
func WithProvider(kind string) AddOption {
	return func(e *Entry) { e.Provider = normalizeProvider(kind) }
}

// WithBaseURL overrides the provider endpoint of a new entry.
func WithBaseURL(url string) AddOption {
	return func(e *Entry) { e.BaseURL = normalizeBaseURL(url) }
}

func normalizeProvider(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

func normalizeBaseURL(url string) string {
	return strings.TrimRight(strings.TrimSpace(url), "/")
}

func validate(e Entry) error {
	if e.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if e.Credential == "" {
		return &ValidationError{Field: "credential", Reason: "must not be empty"}
	}
	if e.Status != "" && !e.Status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", e.Status)}
	}
	if e.BaseURL != "" && !strings.HasPrefix(e.BaseURL, "http://") && !strings.HasPrefix(e.BaseURL, "https://") {
		return &ValidationError{Field: "baseUrl", Reason: "must start with http:// or https://"}
	}
	return nil
}
