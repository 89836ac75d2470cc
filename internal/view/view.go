// Package view keeps a read-only, eventually consistent snapshot of the
// registry. It loads once on activation and reloads in full whenever the
// change bus announces a mutation.
package view

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/integrationhub/internal/events"
	"github.com/traylinx/integrationhub/internal/registry"
)

// Loader reads the full registry.
type Loader interface {
	LoadAll(ctx context.Context) []registry.Entry
}

// View is a reactive projection of the registry.
type View struct {
	loader Loader
	bus    events.Subscriber

	mu         sync.RWMutex
	snapshot   []registry.Entry
	loading    bool
	version    uint64
	generation uint64
	active     bool
	ctx        context.Context
	sub        *events.Subscription
	onChange   []func([]registry.Entry)

	// reloadMu serializes reloads so snapshots are committed in event order.
	reloadMu sync.Mutex
}

// New creates an inactive view. Call Activate to load and start listening.
func New(loader Loader, bus events.Subscriber) *View {
	return &View{
		loader:   loader,
		bus:      bus,
		snapshot: []registry.Entry{},
	}
}

// Activate loads the registry synchronously and subscribes to changes.
// Activating an active view is a no-op.
func (v *View) Activate(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	v.mu.Lock()
	if v.active {
		v.mu.Unlock()
		return
	}
	v.active = true
	v.loading = true
	v.generation++
	gen := v.generation
	v.ctx = context.WithoutCancel(ctx)
	v.mu.Unlock()

	v.reload(gen)

	if v.bus == nil {
		return
	}
	sub := v.bus.Subscribe(func(ev events.ChangeEvent) {
		log.WithFields(log.Fields{"api_id": ev.APIID, "action": ev.Action}).Debug("view: reloading after change")
		v.reload(gen)
	})

	v.mu.Lock()
	if v.generation != gen || !v.active {
		// Deactivated while loading.
		v.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	v.sub = sub
	v.mu.Unlock()
}

// Deactivate unsubscribes from the bus. The snapshot is kept but never updated again.
func (v *View) Deactivate() {
	v.mu.Lock()
	sub := v.sub
	v.sub = nil
	v.active = false
	v.generation++
	v.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// Active reports whether the view is listening for changes.
func (v *View) Active() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.active
}

// Snapshot returns the latest entries with credentials redacted.
func (v *View) Snapshot() []registry.Entry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return redact(v.snapshot)
}

// Loading reports whether the first load of the current activation is still running.
func (v *View) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loading
}

// Version counts completed reloads.
func (v *View) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// OnChange registers fn to run with the redacted snapshot after every reload.
func (v *View) OnChange(fn func([]registry.Entry)) {
	if fn == nil {
		return
	}
	v.mu.Lock()
	v.onChange = append(v.onChange, fn)
	v.mu.Unlock()
}

func (v *View) reload(gen uint64) {
	v.reloadMu.Lock()
	defer v.reloadMu.Unlock()

	v.mu.RLock()
	current := v.generation == gen && v.active
	ctx := v.ctx
	v.mu.RUnlock()
	if !current {
		return
	}

	entries := v.loader.LoadAll(ctx)
	if entries == nil {
		entries = []registry.Entry{}
	}

	v.mu.Lock()
	if v.generation != gen || !v.active {
		v.mu.Unlock()
		return
	}
	v.snapshot = entries
	v.loading = false
	v.version++
	callbacks := append([]func([]registry.Entry){}, v.onChange...)
	out := redact(entries)
	v.mu.Unlock()

	for _, fn := range callbacks {
		fn(out)
	}
}

func redact(entries []registry.Entry) []registry.Entry {
	out := make([]registry.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Redacted()
	}
	return out
}
