package eventing

import (
	"context"
	"sync"
)

// PresenceHandler reacts to a presence event after it has been persisted.
type PresenceHandler func(ctx context.Context, logged PresenceLogged) error

// PresenceNotifier fans a logged presence event out to subscribed handlers.
type PresenceNotifier struct {
	mu       sync.RWMutex
	handlers []PresenceHandler
}

func NewPresenceNotifier() *PresenceNotifier {
	return &PresenceNotifier{}
}

// Subscribe registers a handler. Nil handlers are ignored.
func (n *PresenceNotifier) Subscribe(handler PresenceHandler) {
	if handler == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = append(n.handlers, handler)
}

// Publish delivers the event to every handler. All handlers run even when
// an earlier one fails; the first error is returned.
func (n *PresenceNotifier) Publish(ctx context.Context, logged PresenceLogged) error {
	n.mu.RLock()
	handlers := make([]PresenceHandler, len(n.handlers))
	copy(handlers, n.handlers)
	n.mu.RUnlock()

	var firstErr error
	for _, handler := range handlers {
		if err := handler(ctx, logged); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
