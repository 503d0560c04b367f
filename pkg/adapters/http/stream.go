package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/exhibit/pkg/domain"
)

// Event is one lifecycle event as sent to SSE clients.
type Event struct {
	Type domain.EventType
	Data []byte
}

// StreamManager fans lifecycle events out to the active SSE connections.
type StreamManager struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewStreamManager creates a manager without subscribers.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		logger:      logger,
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a new client. The returned function unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	sm.mu.Lock()
	sm.subscribers[ch] = struct{}{}
	sm.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			delete(sm.subscribers, ch)
			sm.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of connected clients.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

// Broadcast sends ev to every client. Slow clients lose the event.
func (sm *StreamManager) Broadcast(t domain.EventType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		sm.logger.Error("SSE: event encode failed", "type", t, "err", err)
		return
	}
	ev := Event{Type: t, Data: data}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers {
		select {
		case ch <- ev:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping event", "type", t)
		}
	}
}

// Hooks returns lifecycle hooks that broadcast every event.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeSwitch: func(_ context.Context, e *domain.TransitionEvent) {
			sm.Broadcast(e.Type, e)
		},
		OnNodeClose: func(_ context.Context, e *domain.NodeEvent) {
			sm.Broadcast(e.Type, e)
		},
		OnRegionActivate: func(_ context.Context, e *domain.RegionEvent) {
			sm.Broadcast(e.Type, e)
		},
		OnRegionExit: func(_ context.Context, e *domain.RegionEvent) {
			sm.Broadcast(e.Type, e)
		},
		OnRegionComplete: func(_ context.Context, e *domain.RegionEvent) {
			sm.Broadcast(e.Type, e)
		},
		OnHistoryClear: func(context.Context) {
			sm.Broadcast(domain.EventHistoryClear, domain.NewEventBase(domain.EventHistoryClear))
		},
	}
}
