// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package registry keeps the collection of third-party API integrations.
// Entries are persisted one per key in a store.Store under the "api/" prefix,
// and every successful mutation is announced on an events.Publisher after the
// write has returned.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/integrationhub/internal/events"
	"github.com/traylinx/integrationhub/internal/store"
)

// KeyPrefix is the store namespace holding registry records.
const KeyPrefix = "api/"

// Registry manages API integrations.
type Registry struct {
	// mu serializes mutation, write and publish so observers see events in
	// the same order as the writes.
	mu     sync.Mutex
	store  store.Store
	bus    events.Publisher
	sealer *Sealer
	now    func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithSealer encrypts credentials at rest.
func WithSealer(s *Sealer) Option {
	return func(r *Registry) { r.sealer = s }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a registry over st. bus may be nil, in which case no events are published.
func New(st store.Store, bus events.Publisher, opts ...Option) *Registry {
	r := &Registry{
		store: st,
		bus:   bus,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func storageKey(id string) string {
	return KeyPrefix + id
}

// LoadAll returns every entry. Listing failures yield an empty slice and
// undecodable records are skipped; both are logged.
func (r *Registry) LoadAll(ctx context.Context) []Entry {
	entries, err := r.LoadAllStrict(ctx)
	if err != nil {
		log.Warnf("registry: load failed, returning empty list: %v", err)
		return []Entry{}
	}
	return entries
}

// LoadAllStrict is LoadAll with listing failures reported as ErrStorageRead.
func (r *Registry) LoadAllStrict(ctx context.Context) ([]Entry, error) {
	keys, err := r.store.ListKeys(ctx, KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageRead, err)
	}

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		data, errGet := r.store.Get(ctx, key)
		if errGet != nil {
			if errors.Is(errGet, store.ErrNotFound) {
				// Removed between list and get.
				continue
			}
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrStorageRead, ctx.Err())
			}
			log.WithField("key", key).Warnf("registry: skipping unreadable record: %v", errGet)
			continue
		}
		entry, errDecode := r.decode(data)
		if errDecode != nil {
			log.WithField("key", key).Warnf("registry: skipping undecodable record: %v", errDecode)
			continue
		}
		if entry.ID == "" {
			entry.ID = strings.TrimPrefix(key, KeyPrefix)
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// Get returns the entry with id.
func (r *Registry) Get(ctx context.Context, id string) (Entry, error) {
	return r.get(ctx, id)
}

// Add validates and persists a new entry, then publishes an add event.
func (r *Registry) Add(ctx context.Context, name, credential string, opts ...AddOption) (Entry, error) {
	entry := Entry{
		Name:       strings.TrimSpace(name),
		Credential: strings.TrimSpace(credential),
		Status:     StatusUnknown,
	}
	for _, opt := range opts {
		opt(&entry)
	}
	if err := validate(entry); err != nil {
		return Entry{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	entry.ID = uuid.NewString()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	if err := r.put(ctx, entry); err != nil {
		return Entry{}, err
	}
	log.WithFields(log.Fields{"api_id": entry.ID, "provider": entry.Provider}).Info("registry: api added")
	r.publish(entry.ID, events.ActionAdd)
	return entry, nil
}

// Update merges fields into the entry with id, persists it and publishes an update event.
func (r *Registry) Update(ctx context.Context, id string, fields Fields) (Entry, error) {
	id = strings.TrimSpace(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.get(ctx, id)
	if err != nil {
		return Entry{}, err
	}

	updated := fields.apply(current)
	if err = validate(updated); err != nil {
		return Entry{}, err
	}
	updated.ID = id
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = r.now().UTC()

	if err = r.put(ctx, updated); err != nil {
		return Entry{}, err
	}
	log.WithField("api_id", id).Debug("registry: api updated")
	r.publish(id, events.ActionUpdate)
	return updated, nil
}

// Remove deletes the entry with id and publishes a remove event. A record
// that exists but cannot be decoded is still deleted.
func (r *Registry) Remove(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.get(ctx, id); err != nil {
		if !errors.Is(err, ErrCorruptRecord) {
			return err
		}
		log.WithField("api_id", id).Warnf("registry: removing corrupt record: %v", err)
	}
	if err := r.store.Delete(ctx, storageKey(id)); err != nil {
		return fmt.Errorf("registry: delete api %s: %w", id, err)
	}
	log.WithField("api_id", id).Info("registry: api removed")
	r.publish(id, events.ActionRemove)
	return nil
}

func (r *Registry) get(ctx context.Context, id string) (Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, &NotFoundError{ID: id}
	}
	data, err := r.store.Get(ctx, storageKey(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Entry{}, &NotFoundError{ID: id}
		}
		return Entry{}, fmt.Errorf("registry: read api %s: %w", id, err)
	}
	entry, err := r.decode(data)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: api %s: %w", ErrCorruptRecord, id, err)
	}
	entry.ID = id
	return entry, nil
}

func (r *Registry) put(ctx context.Context, entry Entry) error {
	data, err := r.encode(entry)
	if err != nil {
		return fmt.Errorf("registry: encode api %s: %w", entry.ID, err)
	}
	if err = r.store.Set(ctx, storageKey(entry.ID), data); err != nil {
		return fmt.Errorf("registry: persist api %s: %w", entry.ID, err)
	}
	return nil
}

func (r *Registry) encode(entry Entry) ([]byte, error) {
	sealed, err := r.sealer.Seal(entry.Credential)
	if err != nil {
		return nil, err
	}
	entry.Credential = sealed
	return json.Marshal(entry)
}

func (r *Registry) decode(data []byte) (Entry, error) {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, err
	}
	plain, err := r.sealer.Open(entry.Credential)
	if err != nil {
		return Entry{}, err
	}
	entry.Credential = plain
	if entry.Status == "" {
		entry.Status = StatusUnknown
	}
	return entry, nil
}

func (r *Registry) publish(id string, action events.Action) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(events.ChangeEvent{APIID: id, Action: action, Timestamp: r.now().UTC()})
}
