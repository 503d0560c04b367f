// Package trigger models spatial trigger volumes: the host reports actors entering,
// staying in and leaving a volume, and the volume forwards those notifications for the
// single distinguished actor tag it watches.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/exhibit/internal/logging"
)

// DefaultTag is the actor tag volumes react to unless configured otherwise.
const DefaultTag = "Player"

// Actor is the opaque handle the host passes along with trigger notifications.
type Actor struct {
	ID  string `json:"id"`
	Tag string `json:"tag"`
}

// Phase is the kind of notification delivered by a volume.
type Phase string

const (
	PhaseEnter Phase = "enter"
	PhaseStay  Phase = "stay"
	PhaseExit  Phase = "exit"
)

// ParsePhase validates a phase name.
func ParsePhase(s string) (Phase, error) {
	switch p := Phase(s); p {
	case PhaseEnter, PhaseStay, PhaseExit:
		return p, nil
	}
	return "", fmt.Errorf("unknown trigger phase: %q", s)
}

// Handler reacts to an actor notification.
type Handler func(ctx context.Context, actor Actor)

type subscription struct {
	id uint64
	fn Handler
}

// Volume fans trigger notifications out to its subscribers.
type Volume struct {
	name   string
	tag    string
	logger *slog.Logger

	mu       sync.Mutex
	handlers map[Phase][]subscription
	nextID   uint64
}

// Option configures a Volume.
type Option func(*Volume)

// WithTag changes the actor tag the volume reacts to.
func WithTag(tag string) Option {
	return func(v *Volume) {
		v.tag = tag
	}
}

// WithLogger sets the volume logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Volume) {
		v.logger = logger
	}
}

// New creates a named volume.
func New(name string, opts ...Option) *Volume {
	v := &Volume{
		name:     name,
		tag:      DefaultTag,
		logger:   logging.NewNop(),
		handlers: make(map[Phase][]subscription),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With("volume", name)
	return v
}

// Name returns the volume name.
func (v *Volume) Name() string { return v.name }

// Tag returns the actor tag the volume reacts to.
func (v *Volume) Tag() string { return v.tag }

// OnEnter subscribes to enter notifications. The returned function unsubscribes.
func (v *Volume) OnEnter(h Handler) func() { return v.subscribe(PhaseEnter, h) }

// OnStay subscribes to stay notifications.
func (v *Volume) OnStay(h Handler) func() { return v.subscribe(PhaseStay, h) }

// OnExit subscribes to exit notifications.
func (v *Volume) OnExit(h Handler) func() { return v.subscribe(PhaseExit, h) }

func (v *Volume) subscribe(phase Phase, h Handler) func() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.nextID++
	id := v.nextID
	v.handlers[phase] = append(v.handlers[phase], subscription{id: id, fn: h})

	var once sync.Once
	return func() {
		once.Do(func() { v.unsubscribe(phase, id) })
	}
}

func (v *Volume) unsubscribe(phase Phase, id uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	subs := v.handlers[phase]
	next := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.id != id {
			next = append(next, s)
		}
	}
	v.handlers[phase] = next
}

// Enter reports an actor entering the volume.
func (v *Volume) Enter(ctx context.Context, actor Actor) bool {
	return v.Fire(ctx, PhaseEnter, actor)
}

// Stay reports an actor remaining inside the volume.
func (v *Volume) Stay(ctx context.Context, actor Actor) bool {
	return v.Fire(ctx, PhaseStay, actor)
}

// Exit reports an actor leaving the volume.
func (v *Volume) Exit(ctx context.Context, actor Actor) bool {
	return v.Fire(ctx, PhaseExit, actor)
}

// Fire delivers a notification to the phase subscribers in subscription order.
// It returns false when the actor is filtered out by tag.
func (v *Volume) Fire(ctx context.Context, phase Phase, actor Actor) bool {
	if actor.Tag != v.tag {
		v.logger.Debug("ignoring actor", "actor", actor.ID, "tag", actor.Tag)
		return false
	}

	v.mu.Lock()
	subs := v.handlers[phase]
	v.mu.Unlock()

	for _, s := range subs {
		s.fn(ctx, actor)
	}
	return true
}
