package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/exhibit/internal/logging"
	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/ports"
	"github.com/aretw0/exhibit/pkg/trigger"
)

// NodeConfig is the static description of a node.
type NodeConfig struct {
	ID          string
	Name        string
	Kind        domain.TriggerKind
	Description string
	Params      map[string]any
}

// CloseHook is extra work a node performs while it closes.
// Returning a cancellation error is treated as a normal completion.
type CloseHook func(ctx context.Context) error

// Node is a leaf interactive unit of a region.
type Node struct {
	cfg    NodeConfig
	region *Region

	audio  ports.AudioPlayer
	visual ports.Visual
	npc    ports.Actor
	anchor domain.Position

	logger *slog.Logger
	hooks  domain.LifecycleHooks

	mu         sync.Mutex
	active     bool
	completed  bool
	closing    bool
	scope      context.Context
	cancel     context.CancelFunc
	closeHooks []CloseHook
	onEnter    []func(context.Context, *Node)
	onLeave    []func(context.Context, *Node)
}

// NodeOption configures a Node.
type NodeOption func(*Node)

// WithAudio attaches the node's own playback source.
func WithAudio(p ports.AudioPlayer) NodeOption {
	return func(n *Node) {
		n.audio = p
	}
}

// WithVisual attaches what the node shows and hides.
func WithVisual(v ports.Visual) NodeOption {
	return func(n *Node) {
		n.visual = v
	}
}

// WithNPC references a shared NPC that is moved to anchor when the node is entered.
func WithNPC(npc ports.Actor, anchor domain.Position) NodeOption {
	return func(n *Node) {
		n.npc = npc
		n.anchor = anchor
	}
}

// WithNodeLogger sets the node logger.
func WithNodeLogger(logger *slog.Logger) NodeOption {
	return func(n *Node) {
		n.logger = logger
	}
}

// WithNodeHooks registers lifecycle callbacks fired by the node.
func WithNodeHooks(hooks domain.LifecycleHooks) NodeOption {
	return func(n *Node) {
		n.hooks = hooks
	}
}

// WithCloseHook registers a close hook at construction time.
func WithCloseHook(h CloseHook) NodeOption {
	return func(n *Node) {
		n.closeHooks = append(n.closeHooks, h)
	}
}

// NewNode creates an idle node.
func NewNode(cfg NodeConfig, opts ...NodeOption) *Node {
	n := &Node{
		cfg:    cfg,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("node_id", cfg.ID)
	return n
}

func (n *Node) ID() string { return n.cfg.ID }
func (n *Node) Name() string { return n.cfg.Name }
func (n *Node) Kind() domain.TriggerKind { return n.cfg.Kind }
func (n *Node) Description() string { return n.cfg.Description }
func (n *Node) Params() map[string]any { return n.cfg.Params }
func (n *Node) Region() *Region { return n.region }
func (n *Node) AudioPlayer() ports.AudioPlayer { return n.audio }

// Ref returns the qualified "region/node" reference of the node.
func (n *Node) Ref() string {
	if n.region == nil {
		return n.cfg.ID
	}
	return n.region.Name() + "/" + n.cfg.ID
}

// AudioPath is the resource path of the node's narration clip.
func (n *Node) AudioPath() string {
	return n.Ref()
}

func (n *Node) String() string { return n.Ref() }

// IsActive reports whether the node is the one the visitor is engaged with.
func (n *Node) IsActive() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

// IsCompleted reports whether the node finished its sequence since it was last closed.
func (n *Node) IsCompleted() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.completed
}

// IsClosing reports whether a close is in flight.
func (n *Node) IsClosing() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closing
}

// Activate marks the node active.
func (n *Node) Activate() {
	n.mu.Lock()
	n.active = true
	n.mu.Unlock()
}

// Complete marks the node completed.
func (n *Node) Complete() {
	n.mu.Lock()
	n.completed = true
	n.mu.Unlock()
}

// Show makes the node visible.
func (n *Node) Show() {
	if n.visual != nil {
		n.visual.Show()
	}
}

// Hide makes the node invisible.
func (n *Node) Hide() {
	if n.visual != nil {
		n.visual.Hide()
	}
}

// OnClose registers a close hook. Hooks run in registration order and a failing
// hook does not stop the ones after it; Close joins their errors.
// A hook must not call back into the Navigator that is closing the node.
func (n *Node) OnClose(h CloseHook) {
	n.mu.Lock()
	n.closeHooks = append(n.closeHooks, h)
	n.mu.Unlock()
}

// OnEnter registers a listener for HandleEnter.
func (n *Node) OnEnter(fn func(context.Context, *Node)) {
	n.mu.Lock()
	n.onEnter = append(n.onEnter, fn)
	n.mu.Unlock()
}

// OnLeave registers a listener for HandleLeave.
func (n *Node) OnLeave(fn func(context.Context, *Node)) {
	n.mu.Lock()
	n.onLeave = append(n.onLeave, fn)
	n.mu.Unlock()
}

// Initialize creates the node scope if there is none. A live scope is never replaced.
func (n *Node) Initialize() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.initLocked()
}

func (n *Node) initLocked() {
	if n.cancel != nil {
		return
	}
	n.scope, n.cancel = context.WithCancel(context.Background())
}

// Context returns the node scope, creating it when needed.
// Work keyed to it ends when the node is cancelled or closed.
func (n *Node) Context() context.Context {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.initLocked()
	return n.scope
}

// CancelToken cancels the node scope and forgets it.
func (n *Node) CancelToken() {
	n.mu.Lock()
	cancel := n.cancel
	n.scope, n.cancel = nil, nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Close runs the close protocol. A second call while one is in flight is skipped.
// Audio stops and the node scope is cancelled before the close hooks run.
func (n *Node) Close(ctx context.Context) (domain.Outcome, error) {
	n.mu.Lock()
	if n.closing {
		n.mu.Unlock()
		n.logger.Info("Node already closing")
		return domain.OutcomeSkipped, nil
	}
	n.closing = true
	n.active = false
	n.completed = false
	hooks := append([]CloseHook(nil), n.closeHooks...)
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		n.closing = false
		n.mu.Unlock()
	}()

	start := time.Now()
	if n.audio != nil {
		n.audio.StopClip()
	}
	n.CancelToken()

	outcome := domain.OutcomeApplied
	var errs []error
	for _, h := range hooks {
		herr := h(ctx)
		switch {
		case herr == nil:
		case IsCancellation(herr):
			n.logger.Info("Node close cancelled", "reason", herr)
			outcome = domain.OutcomeCancelled
		default:
			errs = append(errs, herr)
		}
	}
	var err error
	if len(errs) > 0 {
		err = fmt.Errorf("close node %s: %w", n.Ref(), errors.Join(errs...))
	}

	if n.hooks.OnNodeClose != nil {
		n.hooks.OnNodeClose(ctx, &domain.NodeEvent{
			EventBase: domain.NewEventBase(domain.EventNodeClose),
			NodeID:    n.cfg.ID,
			Region:    n.regionName(),
			Kind:      n.cfg.Kind,
			Outcome:   outcome,
			Duration:  time.Since(start),
		})
	}
	return outcome, err
}

// PlayAudio plays clip on the node's source. When onFinished is set it is called once the clip
// length elapsed, unless ctx or the node scope is cancelled first.
func (n *Node) PlayAudio(ctx context.Context, clip ports.Clip, onFinished func()) (domain.Outcome, error) {
	if n.audio == nil {
		n.logger.Error("Cannot play audio", "err", domain.ErrNoAudio)
		return domain.OutcomeSkipped, domain.ErrNoAudio
	}
	if clip == nil || clip.Duration() <= 0 {
		n.logger.Error("Cannot play audio", "err", domain.ErrInvalidClip)
		return domain.OutcomeSkipped, domain.ErrInvalidClip
	}

	wctx, stop := joinScope(ctx, n.Context())
	defer stop()

	n.audio.StopClip()
	if err := n.audio.PlayClip(wctx, clip); err != nil {
		if IsCancellation(err) {
			return domain.OutcomeCancelled, nil
		}
		return domain.OutcomeSkipped, fmt.Errorf("play %s: %w", clip.Name(), err)
	}
	if onFinished == nil {
		return domain.OutcomeApplied, nil
	}

	outcome := After(wctx, clip.Duration(), onFinished)
	if outcome == domain.OutcomeCancelled {
		n.logger.Info("Audio wait cancelled", "clip", clip.Name())
	}
	return outcome, nil
}

// HandleEnter reacts to the visitor entering the node: the scope is initialized, zone nodes
// become the navigator's current node, the node is marked active and enter listeners run.
func (n *Node) HandleEnter(ctx context.Context, nav *Navigator) (domain.Outcome, error) {
	n.Initialize()

	if n.cfg.Kind == domain.KindZone && nav != nil {
		if _, err := nav.SwitchToNode(ctx, n); err != nil {
			return domain.OutcomeSkipped, err
		}
	}

	n.Activate()
	if n.npc != nil {
		n.npc.MoveTo(n.anchor)
	}

	n.mu.Lock()
	listeners := append([]func(context.Context, *Node){}, n.onEnter...)
	n.mu.Unlock()
	for _, fn := range listeners {
		fn(ctx, n)
	}
	return domain.OutcomeApplied, nil
}

// HandleLeave notifies leave listeners.
func (n *Node) HandleLeave(ctx context.Context) {
	n.mu.Lock()
	listeners := append([]func(context.Context, *Node){}, n.onLeave...)
	n.mu.Unlock()
	for _, fn := range listeners {
		fn(ctx, n)
	}
}

// Bind connects trigger volumes to the node. The returned function unbinds them.
func (n *Node) Bind(nav *Navigator, enter, leave *trigger.Volume) func() {
	var unbind []func()
	if enter != nil {
		unbind = append(unbind, enter.OnEnter(func(ctx context.Context, a trigger.Actor) {
			if _, err := n.HandleEnter(ctx, nav); err != nil {
				n.logger.Error("Node enter failed", "actor", a.ID, "err", err)
			}
		}))
	}
	if leave != nil {
		unbind = append(unbind, leave.OnExit(func(ctx context.Context, _ trigger.Actor) {
			n.HandleLeave(ctx)
		}))
	}
	return func() {
		for _, u := range unbind {
			u()
		}
	}
}

func (n *Node) regionName() string {
	if n.region == nil {
		return ""
	}
	return n.region.Name()
}
