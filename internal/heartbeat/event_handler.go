package heartbeat

import (
	"context"
	"crypto/sha256"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/integrationhub/internal/events"
	"github.com/traylinx/integrationhub/internal/registry"
)

const changeQueueSize = 256

// ChangeHandler checks an entry as soon as it is added or its connection
// settings change. Bus listeners run under the registry lock, so the listener
// only queues the id and a worker goroutine reads the entry and pings it.
// Status writes leave the fingerprint untouched and never trigger a check.
type ChangeHandler struct {
	monitor *Monitor

	mu      sync.Mutex
	queue   chan string
	pending map[string]bool
	seen    map[string][sha256.Size]byte
	sub     *events.Subscription
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewChangeHandler creates a stopped handler that checks through m.
func NewChangeHandler(m *Monitor) *ChangeHandler {
	return &ChangeHandler{
		monitor: m,
		pending: make(map[string]bool),
		seen:    make(map[string][sha256.Size]byte),
	}
}

// Start subscribes to bus and starts the worker. Entries already present are
// fingerprinted without being checked. Calling Start twice is a no-op.
func (h *ChangeHandler) Start(ctx context.Context, bus events.Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sub != nil {
		return
	}

	h.seen = make(map[string][sha256.Size]byte)
	for _, entry := range h.monitor.entries.LoadAll(ctx) {
		h.seen[entry.ID] = fingerprint(entry)
	}
	h.pending = make(map[string]bool)
	h.queue = make(chan string, changeQueueSize)

	workerCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.work(workerCtx, h.queue, h.done)

	h.sub = bus.Subscribe(h.HandleEvent)
	log.Debug("heartbeat: checking entries on change")
}

// Stop unsubscribes and waits for the worker to exit.
func (h *ChangeHandler) Stop() {
	h.mu.Lock()
	sub, cancel, done := h.sub, h.cancel, h.done
	h.sub, h.cancel, h.done = nil, nil, nil
	h.mu.Unlock()

	if sub == nil {
		return
	}
	sub.Unsubscribe()
	cancel()
	<-done
}

// Running reports whether the handler is subscribed.
func (h *ChangeHandler) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sub != nil
}

// HandleEvent queues added and updated entries. It never blocks.
func (h *ChangeHandler) HandleEvent(ev events.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sub == nil {
		return
	}

	switch ev.Action {
	case events.ActionRemove:
		delete(h.seen, ev.APIID)
		delete(h.pending, ev.APIID)
		return
	case events.ActionAdd, events.ActionUpdate:
	default:
		return
	}

	if h.pending[ev.APIID] {
		return
	}
	select {
	case h.queue <- ev.APIID:
		h.pending[ev.APIID] = true
	default:
		log.WithField("api_id", ev.APIID).Debug("heartbeat: change queue full, leaving entry to the next cycle")
	}
}

func (h *ChangeHandler) work(ctx context.Context, queue <-chan string, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-queue:
			h.process(ctx, id)
		}
	}
}

func (h *ChangeHandler) process(ctx context.Context, id string) {
	h.mu.Lock()
	delete(h.pending, id)
	h.mu.Unlock()

	entry, err := h.monitor.entries.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, registry.ErrNotFound) {
			log.WithField("api_id", id).Warnf("heartbeat: failed to load changed api: %v", err)
		}
		return
	}

	fp := fingerprint(entry)
	h.mu.Lock()
	prev, known := h.seen[id]
	h.seen[id] = fp
	h.mu.Unlock()
	if known && prev == fp {
		return
	}

	res := h.monitor.CheckEntry(ctx, entry)
	log.WithField("api_id", id).Debugf("heartbeat: checked changed api: %s", res.Status)
}

// fingerprint covers the fields that decide whether a ping can succeed.
func fingerprint(e registry.Entry) [sha256.Size]byte {
	return sha256.Sum256([]byte(e.Provider + "\x00" + e.BaseURL + "\x00" + e.Credential))
}
