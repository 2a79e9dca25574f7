package realtime

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultSubscriberBuffer bounds how far a subscriber may fall behind.
const DefaultSubscriberBuffer = 32

// Subscription receives events for one channel plus all broadcasts.
type Subscription struct {
	channel string
	events  chan Event
	hub     *Hub
	once    sync.Once
}

// Channel returns the joined channel; empty for broadcast-only subscriptions.
func (s *Subscription) Channel() string {
	return s.channel
}

// Events is closed when the subscription is closed.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close leaves the channel. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub is the in-process registry of connected subscribers.
type Hub struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	buffer  int
	dropped atomic.Int64
}

// NewHub creates a hub whose subscribers buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{subs: make(map[*Subscription]struct{}), buffer: buffer}
}

// Subscribe joins channel. Pass Broadcast to receive only broadcasts.
func (h *Hub) Subscribe(channel string) *Subscription {
	sub := &Subscription{
		channel: channel,
		events:  make(chan Event, h.buffer),
		hub:     h,
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.events)
	}
}

// Deliver hands ev to every matching subscriber without blocking. A subscriber
// whose buffer is full misses the event.
func (h *Hub) Deliver(_ context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if !ev.IsBroadcast() && sub.channel != ev.Channel {
			continue
		}
		select {
		case sub.events <- ev:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// Subscribers counts subscriptions joined to channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for sub := range h.subs {
		if sub.channel == channel {
			n++
		}
	}
	return n
}

// Dropped is the number of per-subscriber deliveries skipped so far.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
