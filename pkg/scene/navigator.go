package scene

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/exhibit/internal/logging"
	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/ports"
	"github.com/aretw0/exhibit/pkg/trigger"
)

// Navigator owns the current node and the stack of previously current nodes.
// Switches are serialised: a switch awaits the close of the vacated node before it commits.
type Navigator struct {
	player trigger.Actor
	npc    ports.Actor

	logger *slog.Logger
	hooks  domain.LifecycleHooks

	// switchMu is held for the whole switch, including the close of the vacated node.
	switchMu sync.Mutex

	// mu guards the fields below for readers that must not wait on a switch.
	mu      sync.RWMutex
	current *Node
	history []*Node
	regions map[string]*Region
	order   []string
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithLogger sets the navigator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Navigator) {
		n.logger = logger
	}
}

// WithHooks registers lifecycle callbacks fired by the navigator.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(n *Navigator) {
		n.hooks = hooks
	}
}

// WithSharedNPC references the shared NPC of the scene.
func WithSharedNPC(npc ports.Actor) Option {
	return func(n *Navigator) {
		n.npc = npc
	}
}

// NewNavigator creates a navigator for the given player.
// A missing player is the one initialization error that halts the engine.
func NewNavigator(player trigger.Actor, opts ...Option) (*Navigator, error) {
	nav := &Navigator{
		player:  player,
		logger:  logging.NewNop(),
		regions: make(map[string]*Region),
	}
	for _, opt := range opts {
		opt(nav)
	}

	if player.ID == "" {
		nav.logger.Error("Navigator initialization failed", "err", domain.ErrPlayerMissing)
		return nil, domain.ErrPlayerMissing
	}
	if nav.npc == nil {
		nav.logger.Warn("No NPC configured")
	}
	return nav, nil
}

// Player returns the visitor actor.
func (nav *Navigator) Player() trigger.Actor { return nav.player }

// NPC returns the shared NPC, which may be nil.
func (nav *Navigator) NPC() ports.Actor { return nav.npc }

// AddRegion registers a region under its unique name.
func (nav *Navigator) AddRegion(r *Region) error {
	nav.mu.Lock()
	defer nav.mu.Unlock()

	if _, dup := nav.regions[r.Name()]; dup {
		nav.logger.Error("Duplicate region name", "region", r.Name())
		return fmt.Errorf("%w: %s", domain.ErrDuplicateRegion, r.Name())
	}
	nav.regions[r.Name()] = r
	nav.order = append(nav.order, r.Name())
	return nil
}

// Region looks a region up by name.
func (nav *Navigator) Region(name string) (*Region, bool) {
	nav.mu.RLock()
	defer nav.mu.RUnlock()
	r, ok := nav.regions[name]
	return r, ok
}

// Regions returns the registered regions in registration order.
func (nav *Navigator) Regions() []*Region {
	nav.mu.RLock()
	defer nav.mu.RUnlock()
	out := make([]*Region, 0, len(nav.order))
	for _, name := range nav.order {
		out = append(out, nav.regions[name])
	}
	return out
}

// ActivateRegion activates a region by name.
func (nav *Navigator) ActivateRegion(ctx context.Context, name string) (domain.Outcome, error) {
	r, err := nav.lookupRegion(name)
	if err != nil {
		return domain.OutcomeSkipped, err
	}
	return r.Activate(ctx), nil
}

// CompleteRegion marks a region completed by name.
func (nav *Navigator) CompleteRegion(ctx context.Context, name string) (domain.Outcome, error) {
	r, err := nav.lookupRegion(name)
	if err != nil {
		return domain.OutcomeSkipped, err
	}
	return r.Complete(ctx), nil
}

func (nav *Navigator) lookupRegion(name string) (*Region, error) {
	r, ok := nav.Region(name)
	if !ok {
		nav.logger.Warn("Region not found", "region", name)
		return nil, fmt.Errorf("%w: %s", domain.ErrRegionNotFound, name)
	}
	return r, nil
}

// Resolve finds a node by its "region/node" reference.
func (nav *Navigator) Resolve(ref string) (*Node, error) {
	regionName, nodeID, ok := strings.Cut(ref, "/")
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a region/node reference", domain.ErrNodeNotFound, ref)
	}
	r, ok := nav.Region(regionName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRegionNotFound, regionName)
	}
	n, ok := r.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, ref)
	}
	return n, nil
}

// CurrentNode returns the current node or nil.
func (nav *Navigator) CurrentNode() *Node {
	nav.mu.RLock()
	defer nav.mu.RUnlock()
	return nav.current
}

// PreviousNode returns the top of the history stack or nil.
func (nav *Navigator) PreviousNode() *Node {
	nav.mu.RLock()
	defer nav.mu.RUnlock()
	if len(nav.history) == 0 {
		return nil
	}
	return nav.history[len(nav.history)-1]
}

// History returns the previously current nodes, oldest first.
func (nav *Navigator) History() []*Node {
	nav.mu.RLock()
	defer nav.mu.RUnlock()
	return append([]*Node(nil), nav.history...)
}

// SwitchToNode makes n the current node. The vacated node is closed first and pushed onto the
// history once its close completed or was cancelled. A failed close leaves the state untouched.
func (nav *Navigator) SwitchToNode(ctx context.Context, n *Node) (domain.Outcome, error) {
	if n == nil {
		nav.logger.Error("Cannot switch", "err", domain.ErrNilNode)
		return domain.OutcomeSkipped, domain.ErrNilNode
	}

	nav.switchMu.Lock()
	defer nav.switchMu.Unlock()
	return nav.switchLocked(ctx, n)
}

func (nav *Navigator) switchLocked(ctx context.Context, n *Node) (domain.Outcome, error) {
	from := nav.CurrentNode()
	if from == n {
		nav.logger.Info("Node already current", "node", n.Ref())
		return domain.OutcomeSkipped, nil
	}

	if from != nil {
		if _, err := from.Close(ctx); err != nil {
			return domain.OutcomeSkipped, fmt.Errorf("switch to %s: %w", n.Ref(), err)
		}
	}

	nav.mu.Lock()
	if from != nil {
		nav.history = append(nav.history, from)
	}
	nav.current = n
	depth := len(nav.history)
	nav.mu.Unlock()

	event := &domain.TransitionEvent{
		EventBase:    domain.NewEventBase(domain.EventNodeSwitch),
		ToNodeID:     n.Ref(),
		HistoryDepth: depth,
	}
	if from != nil {
		event.FromNodeID = from.Ref()
	}
	nav.logger.Debug("Switched node", "from", event.FromNodeID, "to", event.ToNodeID, "depth", depth)
	if nav.hooks.OnNodeSwitch != nil {
		nav.hooks.OnNodeSwitch(ctx, event)
	}
	return domain.OutcomeApplied, nil
}

// BackToPreviousNode pops the top of the history and switches to it.
// The vacated node is pushed as usual; the popped node is not re-pushed.
func (nav *Navigator) BackToPreviousNode(ctx context.Context) (domain.Outcome, error) {
	nav.switchMu.Lock()
	defer nav.switchMu.Unlock()

	nav.mu.Lock()
	if len(nav.history) == 0 {
		nav.mu.Unlock()
		nav.logger.Warn("No previous node")
		return domain.OutcomeSkipped, nil
	}
	top := len(nav.history) - 1
	prev := nav.history[top]
	nav.history = nav.history[:top:top]
	nav.mu.Unlock()

	outcome, err := nav.switchLocked(ctx, prev)
	if err != nil {
		nav.mu.Lock()
		nav.history = append(nav.history, prev)
		nav.mu.Unlock()
	}
	return outcome, err
}

// ClearHistory empties the history. The current node is kept.
func (nav *Navigator) ClearHistory(ctx context.Context) {
	nav.mu.Lock()
	nav.history = nil
	nav.mu.Unlock()

	if nav.hooks.OnHistoryClear != nil {
		nav.hooks.OnHistoryClear(ctx)
	}
}

// Snapshot captures the navigation state under the given tour id.
func (nav *Navigator) Snapshot(tourID string) *domain.Snapshot {
	nav.mu.RLock()
	snap := &domain.Snapshot{
		TourID:    tourID,
		History:   make([]string, 0, len(nav.history)),
		UpdatedAt: time.Now(),
	}
	if nav.current != nil {
		snap.CurrentNodeID = nav.current.Ref()
	}
	for _, n := range nav.history {
		snap.History = append(snap.History, n.Ref())
	}
	regions := make([]*Region, 0, len(nav.order))
	for _, name := range nav.order {
		regions = append(regions, nav.regions[name])
	}
	nav.mu.RUnlock()

	for _, r := range regions {
		if r.IsActive() {
			snap.ActiveRegions = append(snap.ActiveRegions, r.Name())
		}
	}
	return snap
}

// Restore replaces the current node and history with the ones of snap.
// Nodes are not closed or activated; Restore is meant for a freshly loaded scene.
func (nav *Navigator) Restore(ctx context.Context, snap *domain.Snapshot) error {
	var current *Node
	if snap.CurrentNodeID != "" {
		n, err := nav.Resolve(snap.CurrentNodeID)
		if err != nil {
			return fmt.Errorf("restore current node: %w", err)
		}
		current = n
	}

	history := make([]*Node, 0, len(snap.History))
	for _, ref := range snap.History {
		n, err := nav.Resolve(ref)
		if err != nil {
			return fmt.Errorf("restore history: %w", err)
		}
		history = append(history, n)
	}

	for _, name := range snap.ActiveRegions {
		if _, err := nav.ActivateRegion(ctx, name); err != nil {
			return fmt.Errorf("restore regions: %w", err)
		}
	}

	nav.switchMu.Lock()
	defer nav.switchMu.Unlock()
	nav.mu.Lock()
	nav.current = current
	nav.history = history
	nav.mu.Unlock()

	if current != nil {
		current.Initialize()
		current.Activate()
	}
	return nil
}

// Close exits every active region concurrently and forgets the navigation state.
func (nav *Navigator) Close(ctx context.Context) error {
	nav.switchMu.Lock()
	defer nav.switchMu.Unlock()

	var g errgroup.Group
	for _, r := range nav.Regions() {
		g.Go(func() error {
			return r.Close(ctx)
		})
	}
	err := g.Wait()

	nav.mu.Lock()
	nav.current = nil
	nav.history = nil
	nav.mu.Unlock()
	return err
}
