package progress

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// DefaultSubscriberBuffer is the per-subscriber event buffer used when none
// is configured.
const DefaultSubscriberBuffer = 32

// ErrHubClosed is returned when publishing to or subscribing on a closed hub.
var ErrHubClosed = errors.New("progress hub is closed")

// Hub is an in-process publish/subscribe broker keyed by channel name.
// Publish never blocks: an event is dropped for any subscriber whose buffer
// is full.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	closed bool
	logger *slog.Logger
}

// NewHub creates a Hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger.With("component", "progress_hub"),
	}
}

// Subscription receives the events published to one channel.
type Subscription struct {
	hub     *Hub
	channel string
	events  chan Event
	once    sync.Once
}

// Events returns the stream of events. It is closed when the subscription or
// the hub is closed.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Channel returns the subscribed channel name.
func (s *Subscription) Channel() string {
	return s.channel
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

// Subscribe registers a new subscriber on channel.
func (h *Hub) Subscribe(channel string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	sub := &Subscription{
		hub:     h,
		channel: channel,
		events:  make(chan Event, h.buffer),
	}
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[*Subscription]struct{})
	}
	h.subs[channel][sub] = struct{}{}

	h.logger.Debug("subscriber added", "channel", channel, "subscribers", len(h.subs[channel]))
	return sub, nil
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subs[sub.channel]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, sub.channel)
		}
	}
	sub.once.Do(func() { close(sub.events) })
}

// Publish delivers event to every current subscriber of channel.
func (h *Hub) Publish(ctx context.Context, channel string, event Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}

	for sub := range h.subs[channel] {
		select {
		case sub.events <- event:
		default:
			h.logger.WarnContext(ctx, "subscriber buffer full, dropping event",
				"channel", channel,
				"event", event.Name)
		}
	}
	return nil
}

// SubscriberCount returns the number of subscribers on channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}

// Close closes every subscription and rejects further use of the hub.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for channel, subs := range h.subs {
		for sub := range subs {
			sub.once.Do(func() { close(sub.events) })
		}
		delete(h.subs, channel)
	}
}

var _ Publisher = (*Hub)(nil)
