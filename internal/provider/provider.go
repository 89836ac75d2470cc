// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package provider implements the outbound calls made on behalf of registry
// entries: a model invocation used by the model test orchestrator and a cheap
// ping used by the health monitor.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// Provider kinds with built-in defaults.
const (
	KindOpenAI     = "openai"
	KindOpenRouter = "openrouter"
	KindGroq       = "groq"
	KindSwitchAI   = "switchai"
	KindAnthropic  = "anthropic"
	KindDataForSEO = "dataforseo"
)

// defaultBaseURLs maps a provider kind to its public endpoint.
var defaultBaseURLs = map[string]string{
	KindOpenAI:     "https://api.openai.com/v1",
	KindOpenRouter: "https://openrouter.ai/api/v1",
	KindGroq:       "https://api.groq.com/openai/v1",
	KindSwitchAI:   "https://switchai.traylinx.com/v1",
	KindAnthropic:  "https://api.anthropic.com/v1",
	KindDataForSEO: "https://api.dataforseo.com/v3",
}

// DefaultBaseURL returns the built-in endpoint for kind, or "".
func DefaultBaseURL(kind string) string {
	return defaultBaseURLs[strings.ToLower(strings.TrimSpace(kind))]
}

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 4 << 20

// ErrUnsupported is returned by providers that cannot run a model invocation.
var ErrUnsupported = errors.New("provider: operation not supported")

// Provider calls one configured third-party API.
type Provider interface {
	// Name returns the provider kind.
	Name() string
	// Invoke sends prompt to modelID and returns the response text.
	Invoke(ctx context.Context, modelID, prompt string) (string, error)
	// Ping performs the cheapest authenticated request the API offers.
	Ping(ctx context.Context) error
}

// Error is a non-2xx answer from a provider.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Message)
}

// IsAuth reports whether the provider rejected the credential.
func (e *Error) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// newHTTPClient returns the client used when none is injected.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 120 * time.Second}
}

// readBody reads at most maxBodyBytes from resp and closes it.
func readBody(resp *http.Response) ([]byte, error) {
	defer func() {
		_ = resp.Body.Close()
	}()
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// statusError builds an *Error from a failed response body.
func statusError(statusCode int, body []byte) *Error {
	msg := ""
	if gjson.ValidBytes(body) {
		msg = gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = gjson.GetBytes(body, "error").String()
		}
		if msg == "" {
			msg = gjson.GetBytes(body, "status_message").String()
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return &Error{StatusCode: statusCode, Message: truncateMessage(msg, maxMessageRunes)}
}

const maxMessageRunes = 500

// truncateMessage cuts msg to at most limit runes, never inside a rune.
func truncateMessage(msg string, limit int) string {
	if utf8.RuneCountInString(msg) <= limit {
		return msg
	}
	n := 0
	for i := range msg {
		if n == limit {
			return msg[:i] + "..."
		}
		n++
	}
	return msg
}

// applyHeaders sets extra configured headers on req.
func applyHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}
