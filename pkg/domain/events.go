package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeSwitch     EventType = "node_switch"
	EventNodeClose      EventType = "node_close"
	EventRegionActivate EventType = "region_activate"
	EventRegionExit     EventType = "region_exit"
	EventRegionComplete EventType = "region_complete"
	EventHistoryClear   EventType = "history_clear"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// NewEventBase stamps an event with the current time.
func NewEventBase(t EventType) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t}
}

// TransitionEvent is fired after the navigator committed a node switch.
type TransitionEvent struct {
	EventBase
	FromNodeID   string `json:"from_node_id,omitempty"`
	ToNodeID     string `json:"to_node_id"`
	HistoryDepth int    `json:"history_depth"`
}

// NodeEvent represents the close of a node.
type NodeEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	Region   string        `json:"region,omitempty"`
	Kind     TriggerKind   `json:"kind"`
	Outcome  Outcome       `json:"outcome"`
	Duration time.Duration `json:"duration"`
}

// RegionEvent represents a region activation, exit or completion.
type RegionEvent struct {
	EventBase
	Region   string        `json:"region"`
	Nodes    int           `json:"nodes"`
	Duration time.Duration `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeSwitch     func(context.Context, *TransitionEvent)
	OnNodeClose      func(context.Context, *NodeEvent)
	OnRegionActivate func(context.Context, *RegionEvent)
	OnRegionExit     func(context.Context, *RegionEvent)
	OnRegionComplete func(context.Context, *RegionEvent)
	OnHistoryClear   func(context.Context)
}

// CombineHooks fans every callback out to all given hook sets, in order.
func CombineHooks(sets ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range sets {
		out.OnNodeSwitch = chain(out.OnNodeSwitch, h.OnNodeSwitch)
		out.OnNodeClose = chain(out.OnNodeClose, h.OnNodeClose)
		out.OnRegionActivate = chain(out.OnRegionActivate, h.OnRegionActivate)
		out.OnRegionExit = chain(out.OnRegionExit, h.OnRegionExit)
		out.OnRegionComplete = chain(out.OnRegionComplete, h.OnRegionComplete)
		if h.OnHistoryClear != nil {
			prev, next := out.OnHistoryClear, h.OnHistoryClear
			out.OnHistoryClear = func(ctx context.Context) {
				if prev != nil {
					prev(ctx)
				}
				next(ctx)
			}
		}
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
