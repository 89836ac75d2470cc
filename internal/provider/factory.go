// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/traylinx/integrationhub/internal/config"
	"github.com/traylinx/integrationhub/internal/registry"
)

// ErrNoProvider is returned when no registry entry serves the requested provider.
var ErrNoProvider = errors.New("provider: no matching api configured")

// Factory builds providers from registry entries.
type Factory struct {
	mu        sync.RWMutex
	overrides map[string]config.ProviderConfig
	client    *http.Client
}

// NewFactory creates a factory. overrides are keyed by provider kind.
func NewFactory(overrides map[string]config.ProviderConfig, client *http.Client) *Factory {
	f := &Factory{client: client}
	f.SetOverrides(overrides)
	return f
}

// SetOverrides replaces the per-kind endpoint overrides, e.g. after a config reload.
func (f *Factory) SetOverrides(overrides map[string]config.ProviderConfig) {
	copied := make(map[string]config.ProviderConfig, len(overrides))
	for k, v := range overrides {
		copied[strings.ToLower(strings.TrimSpace(k))] = v
	}
	f.mu.Lock()
	f.overrides = copied
	f.mu.Unlock()
}

// ForEntry builds the provider for entry. The endpoint is the entry's BaseURL,
// then the configured override for its kind, then the built-in default.
// Unknown kinds are treated as OpenAI-compatible when an endpoint is known.
func (f *Factory) ForEntry(entry registry.Entry) (Provider, error) {
	kind := strings.ToLower(strings.TrimSpace(entry.Provider))

	f.mu.RLock()
	override := f.overrides[kind]
	f.mu.RUnlock()

	baseURL := entry.BaseURL
	if baseURL == "" {
		baseURL = override.BaseURL
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL(kind)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("api %s: no endpoint known for provider %q", entry.ID, entry.Provider)
	}

	switch kind {
	case KindAnthropic:
		return NewAnthropic(baseURL, entry.Credential, override.Headers, f.client), nil
	case KindDataForSEO:
		return NewDataForSEO(baseURL, entry.Credential, f.client), nil
	default:
		name := kind
		if name == "" {
			name = "openai-compatible"
		}
		return NewOpenAICompatible(name, baseURL, entry.Credential, override.Headers, f.client), nil
	}
}

// Lister reads registry entries.
type Lister interface {
	LoadAll(ctx context.Context) []registry.Entry
}

// RegistryResolver resolves provider names against the registry.
type RegistryResolver struct {
	entries Lister
	factory *Factory
}

// NewRegistryResolver creates a resolver over entries.
func NewRegistryResolver(entries Lister, factory *Factory) *RegistryResolver {
	return &RegistryResolver{entries: entries, factory: factory}
}

// Resolve returns a provider for name. name matches an entry ID exactly, or
// otherwise the first entry (in creation order) whose provider kind equals name.
func (r *RegistryResolver) Resolve(ctx context.Context, name string) (Provider, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty provider name", ErrNoProvider)
	}
	entries := r.entries.LoadAll(ctx)
	for _, e := range entries {
		if e.ID == name {
			return r.factory.ForEntry(e)
		}
	}
	kind := strings.ToLower(name)
	for _, e := range entries {
		if e.Provider == kind {
			return r.factory.ForEntry(e)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoProvider, name)
}
