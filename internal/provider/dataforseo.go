// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// DataForSEO checks SEO data API credentials. It has no models, so Invoke
// always returns ErrUnsupported.
type DataForSEO struct {
	baseURL  string
	login    string
	password string
	client   *http.Client
}

// NewDataForSEO creates a provider from a "login:password" credential.
func NewDataForSEO(baseURL, credential string, client *http.Client) *DataForSEO {
	if client == nil {
		client = newHTTPClient()
	}
	login, password, _ := strings.Cut(credential, ":")
	return &DataForSEO{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		login:    login,
		password: password,
		client:   client,
	}
}

func (p *DataForSEO) Name() string { return KindDataForSEO }

func (p *DataForSEO) Invoke(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("dataforseo: model test: %w", ErrUnsupported)
}

// Ping reads the account summary. The API answers 200 with a status_code
// field, so the body decides success.
func (p *DataForSEO) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/appendix/user_data", nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(p.login, p.password)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("dataforseo ping failed: %w", err)
	}
	data, err := readBody(resp)
	if err != nil {
		return fmt.Errorf("dataforseo: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}
	code := gjson.GetBytes(data, "status_code").Int()
	if code == 0 || code == 20000 {
		return nil
	}
	status := http.StatusBadGateway
	if c := int(code / 100); c == http.StatusUnauthorized || c == http.StatusForbidden {
		status = c
	}
	return &Error{StatusCode: status, Message: gjson.GetBytes(data, "status_message").String()}
}
