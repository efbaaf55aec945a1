// Package hub is the engine's instance-owned notification bus. Publishing
// never blocks and never requires subscribers; slow subscribers lose events.
package hub

import (
	"context"
	"sync"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

// DefaultBuffer is the channel size used when Subscribe gets a non-positive
// buffer.
const DefaultBuffer = 64

// Hook is invoked synchronously for every published event.
type Hook func(ctx context.Context, e models.Event)

// Hub fans events out to subscribers and hooks.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]chan models.Event
	hooks   []Hook
	nextID  int
	closed  bool
	dropped int

	logger *logger.Logger
}

// New creates an empty hub.
func New(log *logger.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]chan models.Event),
		logger: log,
	}
}

// Publish delivers e to every subscriber with room in its buffer and runs
// the hooks. A panicking hook is logged and skipped.
func (h *Hub) Publish(ctx context.Context, e models.Event) {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return
	}

	dropped := 0
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			dropped++
		}
	}
	hooks := h.hooks
	h.mu.RUnlock()

	if dropped > 0 {
		h.mu.Lock()
		h.dropped += dropped
		h.mu.Unlock()
		h.logger.Warn().
			Str("func", "Hub.Publish").
			Str("event", string(e.Name)).
			Int("dropped", dropped).
			Msg("subscriber buffer full, dropping event")
	}

	for _, hook := range hooks {
		h.runHook(ctx, hook, e)
	}
}

func (h *Hub) runHook(ctx context.Context, hook Hook, e models.Event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().
				Str("func", "Hub.runHook").
				Str("event", string(e.Name)).
				Interface("panic", r).
				Msg("event hook panicked")
		}
	}()
	hook(ctx, e)
}

// Subscribe returns a channel receiving future events and a cancel function
// that closes it.
func (h *Hub) Subscribe(buffer int) (<-chan models.Event, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan models.Event, buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

// OnEvent registers a hook.
func (h *Hub) OnEvent(hook Hook) {
	h.mu.Lock()
	h.hooks = append(h.hooks, hook)
	h.mu.Unlock()
}

// Dropped returns how many deliveries were dropped so far.
func (h *Hub) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Close closes every subscriber channel. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
