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

// RegionConfig is the static description of a region.
type RegionConfig struct {
	Name         string
	ID           string
	AmbientAudio string
	Description  string
}

// Region aggregates nodes and owns their visibility, highlight and ambient audio.
type Region struct {
	cfg RegionConfig

	nodes []*Node
	index map[string]*Node

	mixer     ports.Mixer
	highlight ports.Visual
	npc       ports.Actor

	logger *slog.Logger
	hooks  domain.LifecycleHooks

	mu          sync.Mutex
	active      bool
	exiting     bool
	completed   bool
	activatedAt time.Time
	ambient     *ambientTask
}

type ambientTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *ambientTask) stop() {
	t.cancel()
	<-t.done
}

// RegionOption configures a Region.
type RegionOption func(*Region)

// WithMixer sets the shared channel mixer used for ambient audio and the guide channel.
func WithMixer(m ports.Mixer) RegionOption {
	return func(r *Region) {
		r.mixer = m
	}
}

// WithHighlight sets the highlight effect toggled on activation.
func WithHighlight(v ports.Visual) RegionOption {
	return func(r *Region) {
		r.highlight = v
	}
}

// WithParkedNPC references a shared NPC that is parked when the region is exited.
func WithParkedNPC(npc ports.Actor) RegionOption {
	return func(r *Region) {
		r.npc = npc
	}
}

// WithRegionLogger sets the region logger.
func WithRegionLogger(logger *slog.Logger) RegionOption {
	return func(r *Region) {
		r.logger = logger
	}
}

// WithRegionHooks registers lifecycle callbacks fired by the region.
func WithRegionHooks(hooks domain.LifecycleHooks) RegionOption {
	return func(r *Region) {
		r.hooks = hooks
	}
}

// NewRegion creates an inactive region without nodes.
func NewRegion(cfg RegionConfig, opts ...RegionOption) *Region {
	r := &Region{
		cfg:    cfg,
		index:  make(map[string]*Node),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("region", cfg.Name)
	return r
}

func (r *Region) Name() string { return r.cfg.Name }
func (r *Region) ID() string { return r.cfg.ID }
func (r *Region) Description() string { return r.cfg.Description }

// AmbientPath is the resource path of the ambient clip, or "" when none is configured.
func (r *Region) AmbientPath() string {
	if r.cfg.AmbientAudio == "" {
		return ""
	}
	return r.cfg.ID + "/" + r.cfg.AmbientAudio
}

// AddNode appends a node. Node ids are unique within a region.
func (r *Region) AddNode(n *Node) error {
	if n == nil {
		return domain.ErrNilNode
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.index[n.ID()]; dup {
		return fmt.Errorf("region %s: %w: %s", r.cfg.Name, domain.ErrDuplicateNode, n.ID())
	}
	n.region = r
	n.logger = n.logger.With("region", r.cfg.Name)
	r.nodes = append(r.nodes, n)
	r.index[n.ID()] = n
	return nil
}

// Nodes returns the nodes in insertion order.
func (r *Region) Nodes() []*Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Node(nil), r.nodes...)
}

// Node looks a node up by id.
func (r *Region) Node(id string) (*Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.index[id]
	return n, ok
}

// IsActive reports whether the region is active.
func (r *Region) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// IsCompleted reports whether the region was marked completed.
func (r *Region) IsCompleted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// Initialize puts the region in its resting state: nodes and highlight hidden.
func (r *Region) Initialize() {
	nodes := r.Nodes()
	if len(nodes) == 0 {
		r.logger.Info("Region has no nodes")
	}
	for _, n := range nodes {
		n.Hide()
	}
	if r.highlight != nil {
		r.highlight.Hide()
	}
}

// Activate shows the nodes, turns the highlight on and starts the ambient audio in the background.
func (r *Region) Activate(ctx context.Context) domain.Outcome {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		r.logger.Info("Region already active")
		return domain.OutcomeSkipped
	}
	r.active = true
	r.activatedAt = time.Now()
	r.ambient = r.startAmbient(ctx)
	nodes := append([]*Node(nil), r.nodes...)
	r.mu.Unlock()

	for _, n := range nodes {
		n.Show()
	}
	if r.highlight != nil {
		r.highlight.Show()
	}

	if r.hooks.OnRegionActivate != nil {
		r.hooks.OnRegionActivate(ctx, &domain.RegionEvent{
			EventBase: domain.NewEventBase(domain.EventRegionActivate),
			Region:    r.cfg.Name,
			Nodes:     len(nodes),
		})
	}
	return domain.OutcomeApplied
}

func (r *Region) startAmbient(ctx context.Context) *ambientTask {
	path := r.AmbientPath()
	if path == "" || r.mixer == nil {
		return nil
	}

	actx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	task := &ambientTask{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(task.done)
		if err := r.mixer.PlayOn(actx, ports.ChannelGuide, path); err != nil && !IsCancellation(err) {
			r.logger.Warn("Ambient audio failed", "path", path, "err", err)
		}
	}()
	return task
}

// Exit turns the highlight off, silences the guide channel, then closes and hides every node one
// at a time in insertion order. Close errors do not stop the cascade; they are joined and returned.
func (r *Region) Exit(ctx context.Context) (domain.Outcome, error) {
	r.mu.Lock()
	if !r.active || r.exiting {
		r.mu.Unlock()
		r.logger.Info("Region not active")
		return domain.OutcomeSkipped, nil
	}
	r.exiting = true
	ambient := r.ambient
	r.ambient = nil
	nodes := append([]*Node(nil), r.nodes...)
	since := r.activatedAt
	r.mu.Unlock()

	if r.highlight != nil {
		r.highlight.Hide()
	}
	if ambient != nil {
		ambient.stop()
	}
	if r.mixer != nil {
		r.mixer.StopChannel(ports.ChannelGuide)
	}

	var errs []error
	for _, n := range nodes {
		if _, err := n.Close(ctx); err != nil {
			r.logger.Error("Node close failed", "node_id", n.ID(), "err", err)
			errs = append(errs, err)
		}
		n.Hide()
	}

	if r.npc != nil {
		r.npc.MoveTo(domain.ParkedPosition)
	}

	r.mu.Lock()
	r.active = false
	r.exiting = false
	r.mu.Unlock()

	if r.hooks.OnRegionExit != nil {
		r.hooks.OnRegionExit(ctx, &domain.RegionEvent{
			EventBase: domain.NewEventBase(domain.EventRegionExit),
			Region:    r.cfg.Name,
			Nodes:     len(nodes),
			Duration:  time.Since(since),
		})
	}
	return domain.OutcomeApplied, errors.Join(errs...)
}

// Complete marks the region completed.
func (r *Region) Complete(ctx context.Context) domain.Outcome {
	r.mu.Lock()
	if r.completed {
		r.mu.Unlock()
		return domain.OutcomeSkipped
	}
	r.completed = true
	n := len(r.nodes)
	r.mu.Unlock()

	if r.hooks.OnRegionComplete != nil {
		r.hooks.OnRegionComplete(ctx, &domain.RegionEvent{
			EventBase: domain.NewEventBase(domain.EventRegionComplete),
			Region:    r.cfg.Name,
			Nodes:     n,
		})
	}
	return domain.OutcomeApplied
}

// Close tears the region down, exiting it first when it is active.
func (r *Region) Close(ctx context.Context) error {
	var err error
	if r.IsActive() {
		_, err = r.Exit(ctx)
	}
	for _, n := range r.Nodes() {
		n.CancelToken()
	}
	return err
}

// BindTriggers wires an enter volume to Activate and an exit volume to Exit.
// The returned function unbinds them.
func (r *Region) BindTriggers(enter, exit *trigger.Volume) func() {
	var unbind []func()
	if enter != nil {
		unbind = append(unbind, enter.OnEnter(func(ctx context.Context, _ trigger.Actor) {
			r.Activate(ctx)
		}))
	}
	if exit != nil {
		unbind = append(unbind, exit.OnExit(func(ctx context.Context, _ trigger.Actor) {
			if _, err := r.Exit(ctx); err != nil {
				r.logger.Error("Region exit failed", "err", err)
			}
		}))
	}
	return func() {
		for _, u := range unbind {
			u()
		}
	}
}
