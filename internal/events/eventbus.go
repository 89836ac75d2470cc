package events

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Subscription is a handle for a registered listener.
type Subscription struct {
	ID       uint64
	listener Listener
	bus      *Bus
	once     sync.Once
}

// Unsubscribe removes the listener from the bus. Calling it again is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.once.Do(func() {
		s.bus.unsubscribe(s.ID)
	})
}

// Bus fans change events out to every subscribed listener, synchronously and in
// subscription order. It keeps no history and never deduplicates.
type Bus struct {
	mu          sync.RWMutex
	subscribers []*Subscription
	nextID      uint64
	closed      bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a listener. It sees every event published after this call.
func (b *Bus) Subscribe(listener Listener) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		ID:       b.nextID,
		listener: listener,
		bus:      b,
	}
	if b.closed || listener == nil {
		// Inert handle: nothing is registered, Unsubscribe stays safe.
		return sub
	}
	b.subscribers = append(b.subscribers, sub)
	return sub
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subscribers {
		if s.ID == id {
			// fresh slice so in-flight Publish copies are untouched
			next := make([]*Subscription, 0, len(b.subscribers)-1)
			next = append(next, b.subscribers[:i]...)
			next = append(next, b.subscribers[i+1:]...)
			b.subscribers = next
			return
		}
	}
}

// Publish delivers ev to every current listener. A panicking listener is
// recovered and logged; the remaining listeners still run.
func (b *Bus) Publish(ev ChangeEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	// Copy slice to avoid holding lock during execution
	active := make([]*Subscription, len(b.subscribers))
	copy(active, b.subscribers)
	b.mu.RUnlock()

	for _, sub := range active {
		b.deliver(sub, ev)
	}
}

func (b *Bus) deliver(sub *Subscription, ev ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"subscription": sub.ID,
				"api_id":       ev.APIID,
				"action":       ev.Action,
			}).Errorf("panic in change listener: %v", r)
		}
	}()
	sub.listener(ev)
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close drops every subscriber. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.subscribers = nil
	b.mu.Unlock()
}
