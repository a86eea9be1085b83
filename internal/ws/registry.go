package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Handler receives the raw data of an inbound event.
type Handler func(data json.RawMessage)

// Subscription identifies a registered handler for Off.
type Subscription struct {
	event string
	id    uint64
}

// Event returns the event name the subscription listens to.
func (s Subscription) Event() string {
	return s.event
}

type handlerEntry struct {
	id uint64
	fn Handler
}

// Registry maps event names to handlers in registration order.
type Registry struct {
	logger   *zap.Logger
	mu       sync.RWMutex
	handlers map[string][]handlerEntry
	nextID   uint64
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger, handlers: make(map[string][]handlerEntry)}
}

// On registers handler for event.
func (r *Registry) On(event string, fn Handler) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.handlers[event] = append(r.handlers[event], handlerEntry{id: r.nextID, fn: fn})
	return Subscription{event: event, id: r.nextID}
}

// Off removes the handler behind sub. It reports false for unknown or
// already removed subscriptions.
func (r *Registry) Off(sub Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, ok := r.handlers[sub.event]
	if !ok {
		return false
	}
	for i, entry := range entries {
		if entry.id != sub.id {
			continue
		}
		rest := make([]handlerEntry, 0, len(entries)-1)
		rest = append(rest, entries[:i]...)
		rest = append(rest, entries[i+1:]...)
		if len(rest) == 0 {
			delete(r.handlers, sub.event)
		} else {
			r.handlers[sub.event] = rest
		}
		return true
	}
	return false
}

// Count returns the number of handlers registered for event.
func (r *Registry) Count(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[event])
}

// Dispatch calls the handlers registered for event in registration order.
// The handler list is copied first so a handler may call On or Off.
func (r *Registry) Dispatch(event string, data json.RawMessage) {
	r.mu.RLock()
	entries := append([]handlerEntry(nil), r.handlers[event]...)
	r.mu.RUnlock()

	for _, entry := range entries {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("ws handler panicked", zap.String("event", event), zap.Any("panic", rec))
				}
			}()
			entry.fn(data)
		}()
	}
}
