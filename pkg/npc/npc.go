// Package npc drives the shared guide character: appear/disappear/call animations gated on clip
// length, an endless random speak loop, and parking the character out of sight.
package npc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/aretw0/exhibit/internal/logging"
	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/ports"
	"github.com/aretw0/exhibit/pkg/scene"
)

// Animation is one of the gated NPC animations.
type Animation uint8

const (
	Appear1 Animation = iota
	Appear2
	Disappear
	Call
)

var (
	// ErrUnknownAnimation is returned for an Animation outside the defined set.
	ErrUnknownAnimation = errors.New("unknown animation")
	// ErrClipNotFound is returned when the animator has no clip with the expected name.
	ErrClipNotFound = errors.New("animation clip not found")
)

// move pairs an animator trigger with the clip whose length gates it.
type move struct {
	trigger string
	clip    string
}

var moves = map[Animation]move{
	Appear1:   {"Appear1", "TY_appear01"},
	Appear2:   {"Appear2", "TY_appear02"},
	Disappear: {"Disappear", "TY_disappear"},
	Call:      {"Call", "TY_call"},
}

var speeches = []move{
	{"IdleSpeak1", "TY_idlespeak01"},
	{"IdleSpeak2", "TY_idlespeak02"},
	{"Speak1", "TY_speak01"},
	{"Speak2", "TY_speak02"},
	{"Speak3", "TY_speak03"},
	{"Speak4", "TY_speak04"},
	{"Speak5", "TY_speak05"},
}

const (
	triggerIdle    = "Idle"
	triggerIdleFly = "IdleFly"
	triggerFlyL    = "FlyL"
	triggerFlyR    = "FlyR"
)

// DefaultTitleHold is how long the name plate stays up after an appear animation.
const DefaultTitleHold = 3 * time.Second

func (a Animation) String() string {
	if m, ok := moves[a]; ok {
		return m.trigger
	}
	return fmt.Sprintf("Animation(%d)", uint8(a))
}

// ParseAnimation resolves an animation by trigger name, case-insensitively ("appear1", "Call").
func ParseAnimation(s string) (Animation, error) {
	for a, m := range moves {
		if strings.EqualFold(s, m.trigger) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAnimation, s)
}

// Entity is the shared NPC. It implements ports.Actor.
type Entity struct {
	animator ports.Animator
	body     ports.Actor
	title    ports.Visual

	titleHold time.Duration
	pick      func(n int) int
	logger    *slog.Logger
}

// Option configures an Entity.
type Option func(*Entity)

// WithTitle sets the name plate shown after appearing.
func WithTitle(v ports.Visual) Option {
	return func(e *Entity) {
		e.title = v
	}
}

// WithTitleHold overrides DefaultTitleHold.
func WithTitleHold(d time.Duration) Option {
	return func(e *Entity) {
		e.titleHold = d
	}
}

// WithPicker replaces the random source of the speak loop. pick returns a value in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(e *Entity) {
		e.pick = pick
	}
}

// WithLogger sets the entity logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Entity) {
		e.logger = logger
	}
}

// New creates an NPC driving animator and moving body.
func New(animator ports.Animator, body ports.Actor, opts ...Option) *Entity {
	e := &Entity{
		animator:  animator,
		body:      body,
		titleHold: DefaultTitleHold,
		pick:      rand.IntN,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MoveTo relocates the NPC.
func (e *Entity) MoveTo(pos domain.Position) {
	if e.body != nil {
		e.body.MoveTo(pos)
	}
}

// Park sends the NPC to the parked position.
func (e *Entity) Park() {
	e.MoveTo(domain.ParkedPosition)
}

// PlayAnimation fires the animation trigger. When onDone is set it is called after the clip
// length, unless ctx ends first. Cancellation is reported as OutcomeCancelled, never as an error.
func (e *Entity) PlayAnimation(ctx context.Context, a Animation, onDone func()) (domain.Outcome, error) {
	m, ok := moves[a]
	if !ok {
		e.logger.Error("Cannot play animation", "animation", a.String(), "err", ErrUnknownAnimation)
		return domain.OutcomeSkipped, ErrUnknownAnimation
	}
	return e.play(ctx, m, onDone)
}

func (e *Entity) play(ctx context.Context, m move, onDone func()) (domain.Outcome, error) {
	if e.animator == nil {
		return domain.OutcomeSkipped, nil
	}
	e.animator.SetTrigger(m.trigger)

	d, ok := e.animator.ClipDuration(m.clip)
	if !ok {
		e.logger.Error("Animation clip missing", "clip", m.clip)
		return domain.OutcomeSkipped, fmt.Errorf("%w: %s", ErrClipNotFound, m.clip)
	}
	if onDone == nil {
		return domain.OutcomeApplied, nil
	}
	if d <= 0 {
		e.logger.Error("Animation clip has no length", "clip", m.clip)
		return domain.OutcomeSkipped, fmt.Errorf("%w: %s", domain.ErrInvalidClip, m.clip)
	}

	outcome := scene.After(ctx, d, onDone)
	if outcome == domain.OutcomeCancelled {
		e.logger.Warn("Animation cancelled", "clip", m.clip)
	}
	return outcome, nil
}

// PlayAppear plays one of the two appear variants (1 drops in, 2 climbs out), then shows the
// name plate for the title hold.
func (e *Entity) PlayAppear(ctx context.Context, variant int, onDone func()) (domain.Outcome, error) {
	var a Animation
	switch variant {
	case 1:
		a = Appear1
	case 2:
		a = Appear2
	default:
		e.logger.Error("Invalid appear variant", "variant", variant)
		return domain.OutcomeSkipped, fmt.Errorf("%w: appear variant %d", ErrUnknownAnimation, variant)
	}

	outcome, err := e.PlayAnimation(ctx, a, onDone)
	if err != nil || outcome == domain.OutcomeCancelled {
		return outcome, err
	}
	return e.ShowTitle(ctx), nil
}

// PlayDisappear plays the disappear animation and hides the name plate.
func (e *Entity) PlayDisappear(ctx context.Context, onDone func()) (domain.Outcome, error) {
	outcome, err := e.PlayAnimation(ctx, Disappear, onDone)
	if e.title != nil {
		e.title.Hide()
	}
	return outcome, err
}

// ShowTitle shows the name plate and hides it again after the title hold.
func (e *Entity) ShowTitle(ctx context.Context) domain.Outcome {
	if e.title == nil {
		return domain.OutcomeSkipped
	}
	e.title.Show()
	outcome := scene.After(ctx, e.titleHold, nil)
	e.title.Hide()
	return outcome
}

// PlayIdle returns the NPC to its grounded or flying idle.
func (e *Entity) PlayIdle(flying bool) {
	if e.animator == nil {
		return
	}
	if flying {
		e.animator.SetTrigger(triggerIdleFly)
		return
	}
	e.animator.SetTrigger(triggerIdle)
}

// PlayFly plays a sideways flight to the left or to the right.
func (e *Entity) PlayFly(left bool) {
	if e.animator == nil {
		return
	}
	e.animator.SetTrigger(triggerIdleFly)
	if left {
		e.animator.SetTrigger(triggerFlyL)
	} else {
		e.animator.SetTrigger(triggerFlyR)
	}
}

// PlayRandomSpeak plays random speak animations back to back, returning to idle after each one,
// until ctx ends. It only returns early when a speak clip is missing or empty.
func (e *Entity) PlayRandomSpeak(ctx context.Context, flying bool) (domain.Outcome, error) {
	if e.animator == nil {
		return domain.OutcomeSkipped, nil
	}
	for {
		if ctx.Err() != nil {
			return domain.OutcomeCancelled, nil
		}

		m := speeches[e.pick(len(speeches))]
		e.animator.SetTrigger(m.trigger)
		d, ok := e.animator.ClipDuration(m.clip)
		if !ok {
			e.logger.Error("Animation clip missing", "clip", m.clip)
			return domain.OutcomeSkipped, fmt.Errorf("%w: %s", ErrClipNotFound, m.clip)
		}
		if d <= 0 {
			return domain.OutcomeSkipped, fmt.Errorf("%w: %s", domain.ErrInvalidClip, m.clip)
		}

		if scene.After(ctx, d, nil) == domain.OutcomeCancelled {
			e.logger.Info("Speak loop cancelled")
			return domain.OutcomeCancelled, nil
		}
		e.PlayIdle(flying)
	}
}
