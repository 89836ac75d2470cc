// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 1024
)

// Anthropic calls the Messages API.
type Anthropic struct {
	baseURL string
	apiKey  string
	headers map[string]string
	client  *http.Client
}

// NewAnthropic creates an Anthropic provider. A nil client uses a default one.
func NewAnthropic(baseURL, apiKey string, headers map[string]string, client *http.Client) *Anthropic {
	if client == nil {
		client = newHTTPClient()
	}
	return &Anthropic{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		headers: headers,
		client:  client,
	}
}

func (p *Anthropic) Name() string { return KindAnthropic }

// Invoke sends prompt as a single user turn and joins the text blocks of the reply.
func (p *Anthropic) Invoke(ctx context.Context, modelID, prompt string) (string, error) {
	if strings.TrimSpace(modelID) == "" {
		return "", errors.New("model id is required")
	}

	body := []byte(`{"messages":[{"role":"user","content":""}]}`)
	body, _ = sjson.SetBytes(body, "model", modelID)
	body, _ = sjson.SetBytes(body, "max_tokens", anthropicMaxTokens)
	body, _ = sjson.SetBytes(body, "messages.0.content", prompt)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	data, err := readBody(resp)
	if err != nil {
		return "", fmt.Errorf("anthropic: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError(resp.StatusCode, data)
	}

	var parts []string
	gjson.GetBytes(data, "content").ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").String() == "text" {
			parts = append(parts, block.Get("text").String())
		}
		return true
	})
	if len(parts) == 0 {
		return "", errors.New("anthropic: response has no text content")
	}
	return strings.Join(parts, ""), nil
}

// Ping lists models.
func (p *Anthropic) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic ping failed: %w", err)
	}
	data, err := readBody(resp)
	if err != nil {
		return fmt.Errorf("anthropic: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}
	return nil
}

func (p *Anthropic) authorize(req *http.Request) {
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	applyHeaders(req, p.headers)
}
