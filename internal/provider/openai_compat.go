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

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// OpenAICompatible talks to any API exposing OpenAI's chat completions and models endpoints.
type OpenAICompatible struct {
	kind    string
	baseURL string
	apiKey  string
	headers map[string]string
	client  *http.Client
}

// NewOpenAICompatible creates a provider for baseURL. A nil client uses a default one.
func NewOpenAICompatible(kind, baseURL, apiKey string, headers map[string]string, client *http.Client) *OpenAICompatible {
	if client == nil {
		client = newHTTPClient()
	}
	return &OpenAICompatible{
		kind:    kind,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		headers: headers,
		client:  client,
	}
}

func (p *OpenAICompatible) Name() string { return p.kind }

// Invoke posts a single user message to /chat/completions.
func (p *OpenAICompatible) Invoke(ctx context.Context, modelID, prompt string) (string, error) {
	if strings.TrimSpace(modelID) == "" {
		return "", errors.New("model id is required")
	}

	body := []byte(`{"messages":[{"role":"user","content":""}]}`)
	body, _ = sjson.SetBytes(body, "model", modelID)
	body, _ = sjson.SetBytes(body, "messages.0.content", prompt)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", p.kind, err)
	}
	data, err := readBody(resp)
	if err != nil {
		return "", fmt.Errorf("%s: read response: %w", p.kind, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Debugf("%s: chat completion failed with status %d", p.kind, resp.StatusCode)
		return "", statusError(resp.StatusCode, data)
	}

	content := gjson.GetBytes(data, "choices.0.message.content")
	if !content.Exists() {
		if msg := gjson.GetBytes(data, "error.message").String(); msg != "" {
			return "", &Error{StatusCode: resp.StatusCode, Message: msg}
		}
		return "", fmt.Errorf("%s: response has no choices", p.kind)
	}
	return content.String(), nil
}

// Ping lists models, which every compatible API serves with a valid key.
func (p *OpenAICompatible) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s ping failed: %w", p.kind, err)
	}
	data, err := readBody(resp)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", p.kind, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}
	return nil
}

func (p *OpenAICompatible) authorize(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	applyHeaders(req, p.headers)
}
