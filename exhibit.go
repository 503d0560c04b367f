package exhibit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/exhibit/internal/logging"
	"github.com/aretw0/exhibit/pkg/adapters/memory"
	"github.com/aretw0/exhibit/pkg/dispatch"
	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/loader"
	"github.com/aretw0/exhibit/pkg/npc"
	"github.com/aretw0/exhibit/pkg/observability"
	"github.com/aretw0/exhibit/pkg/ports"
	"github.com/aretw0/exhibit/pkg/scene"
	"github.com/aretw0/exhibit/pkg/trigger"
)

// ClipResolver loads the clip stored at a resource path.
type ClipResolver func(ctx context.Context, path string) (ports.Clip, error)

// Exhibit is the high-level entry point of the library.
// It builds the regions, nodes and navigator of a scene and binds them to named trigger volumes.
type Exhibit struct {
	scene      *loader.Scene
	nav        *scene.Navigator
	dispatcher *dispatch.Dispatcher
	npc        *npc.Entity
	volumes    map[string]*trigger.Volume
	unbind     []func()

	journal  *memory.Journal
	visuals  func(name string) ports.Visual
	players  func(ref string) ports.AudioPlayer
	mixer    ports.Mixer
	clips    ClipResolver
	animator ports.Animator
	body     ports.Actor

	metrics *observability.Metrics
	hooks   domain.LifecycleHooks
	logger  *slog.Logger

	// sequences tracks the enter sequences running in the background.
	sequences sync.WaitGroup

	// running maps a node to the scope its enter sequence was started on.
	runMu   sync.Mutex
	running map[*scene.Node]context.Context
}

// Option defines a functional option for configuring the Exhibit.
type Option func(*Exhibit)

// WithScene uses an already loaded scene instead of reading scenePath.
func WithScene(s *loader.Scene) Option {
	return func(e *Exhibit) {
		e.scene = s
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exhibit) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Exhibit) {
		e.hooks = hooks
	}
}

// WithDispatcher publishes navigation messages on d instead of a private dispatcher.
func WithDispatcher(d *dispatch.Dispatcher) Option {
	return func(e *Exhibit) {
		e.dispatcher = d
	}
}

// WithMetrics records lifecycle events and broadcasts into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Exhibit) {
		e.metrics = m
	}
}

// WithJournal records every host call of the built-in headless host into j.
func WithJournal(j *memory.Journal) Option {
	return func(e *Exhibit) {
		e.journal = j
	}
}

// WithVisuals sets the factory for node visuals and region highlights.
// Nodes are named by their reference, highlights "<region>.highlight".
func WithVisuals(factory func(name string) ports.Visual) Option {
	return func(e *Exhibit) {
		e.visuals = factory
	}
}

// WithPlayers sets the factory for the per-node audio sources.
func WithPlayers(factory func(ref string) ports.AudioPlayer) Option {
	return func(e *Exhibit) {
		e.players = factory
	}
}

// WithMixer sets the shared channel mixer.
func WithMixer(m ports.Mixer) Option {
	return func(e *Exhibit) {
		e.mixer = m
	}
}

// WithClips sets how narration clips are loaded.
func WithClips(r ClipResolver) Option {
	return func(e *Exhibit) {
		e.clips = r
	}
}

// WithNPC drives the shared NPC through the given animator and body.
func WithNPC(animator ports.Animator, body ports.Actor) Option {
	return func(e *Exhibit) {
		e.animator = animator
		e.body = body
	}
}

// New builds an exhibit from the scene file at scenePath.
// Regions with configuration problems are logged and skipped; a missing player is fatal.
func New(scenePath string, opts ...Option) (*Exhibit, error) {
	e := &Exhibit{
		volumes: make(map[string]*trigger.Volume),
		running: make(map[*scene.Node]context.Context),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.scene == nil {
		if scenePath == "" {
			return nil, fmt.Errorf("scenePath is required when no scene is provided")
		}
		s, err := loader.Load(scenePath)
		if err != nil {
			return nil, err
		}
		e.scene = s
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.scene.Name != "" {
		e.logger = e.logger.With("scene", e.scene.Name)
	}
	e.defaults()

	problems := e.scene.Check()
	if err := loader.Fatal(problems); err != nil {
		e.logger.Error("Scene rejected", "err", err)
		return nil, err
	}
	for _, p := range problems {
		e.logger.Error("Scene configuration problem", "err", p)
	}

	hooks := []domain.LifecycleHooks{observability.LogHooks(e.logger), e.messageHooks()}
	if e.metrics != nil {
		hooks = append(hooks, e.metrics.Hooks())
	}
	hooks = append(hooks, e.hooks)
	combined := domain.CombineHooks(hooks...)

	var shared ports.Actor
	if e.animator != nil || e.body != nil {
		e.npc = npc.New(e.animator, e.body,
			npc.WithTitle(e.visuals("npc.title")),
			npc.WithLogger(e.logger.With("component", "npc")),
		)
		shared = e.npc
	}

	navOpts := []scene.Option{scene.WithLogger(e.logger), scene.WithHooks(combined)}
	if shared != nil {
		navOpts = append(navOpts, scene.WithSharedNPC(shared))
	}
	nav, err := scene.NewNavigator(trigger.Actor{ID: e.scene.Player.ID, Tag: e.scene.Player.Tag}, navOpts...)
	if err != nil {
		return nil, err
	}
	e.nav = nav

	for _, spec := range e.scene.Usable() {
		if err := e.buildRegion(spec, shared, combined); err != nil {
			e.logger.Error("Region skipped", "region", spec.Name, "err", err)
		}
	}
	return e, nil
}

// defaults fills every unset host collaborator with the headless memory host.
func (e *Exhibit) defaults() {
	j := e.journal
	if e.dispatcher == nil {
		opts := []dispatch.Option{dispatch.WithLogger(e.logger.With("component", "dispatch"))}
		if e.metrics != nil {
			opts = append(opts, dispatch.WithRecorder(e.metrics))
		}
		e.dispatcher = dispatch.New(opts...)
	}
	if e.visuals == nil {
		e.visuals = func(name string) ports.Visual { return memory.NewVisual(name, j) }
	}
	if e.players == nil {
		e.players = func(ref string) ports.AudioPlayer { return memory.NewPlayer(ref, j) }
	}
	if e.mixer == nil {
		e.mixer = memory.NewMixer(j)
	}
	if e.animator == nil && e.body == nil && e.scene.NPC != nil {
		e.animator = memory.NewAnimator(j, e.scene.NPC.Clips)
		e.body = memory.NewActor(e.scene.NPC.Name, j)
	}
}

func (e *Exhibit) buildRegion(spec loader.RegionSpec, shared ports.Actor, hooks domain.LifecycleHooks) error {
	r := scene.NewRegion(scene.RegionConfig{
		Name:         spec.Name,
		ID:           spec.ID,
		AmbientAudio: spec.AmbientAudio,
		Description:  spec.Description,
	},
		scene.WithMixer(e.mixer),
		scene.WithHighlight(e.visuals(spec.Name+".highlight")),
		scene.WithParkedNPC(shared),
		scene.WithRegionLogger(e.logger),
		scene.WithRegionHooks(hooks),
	)

	for _, ns := range spec.Nodes {
		params, err := ns.DecodedParams()
		if err != nil {
			return fmt.Errorf("node %s: %w", ns.ID, err)
		}

		ref := spec.Name + "/" + ns.ID
		opts := []scene.NodeOption{
			scene.WithAudio(e.players(ref)),
			scene.WithVisual(e.visuals(ref)),
			scene.WithNodeLogger(e.logger),
			scene.WithNodeHooks(hooks),
		}
		if shared != nil && ns.Anchor != nil {
			opts = append(opts, scene.WithNPC(shared, *ns.Anchor))
		}
		n := scene.NewNode(scene.NodeConfig{
			ID:          ns.ID,
			Name:        ns.Name,
			Kind:        ns.Kind,
			Description: ns.Description,
			Params:      ns.Params,
		}, opts...)
		if err := r.AddNode(n); err != nil {
			return err
		}
		n.OnEnter(func(ctx context.Context, n *scene.Node) {
			e.enterSequence(ctx, n, params)
		})
	}

	if err := e.nav.AddRegion(r); err != nil {
		return err
	}
	r.Initialize()
	e.bind(r)
	return nil
}

func (e *Exhibit) bind(r *scene.Region) {
	enter := e.volume(r.Name() + ".enter")
	exit := e.volume(r.Name() + ".exit")
	e.unbind = append(e.unbind, r.BindTriggers(enter, exit))

	for _, n := range r.Nodes() {
		e.unbind = append(e.unbind, n.Bind(e.nav, e.volume(n.Ref()+".enter"), e.volume(n.Ref()+".exit")))
	}
}

func (e *Exhibit) volume(name string) *trigger.Volume {
	v := trigger.New(name,
		trigger.WithTag(e.scene.Player.Tag),
		trigger.WithLogger(e.logger),
	)
	e.volumes[name] = v
	return v
}

// enterSequence broadcasts the node's messages and runs its animation, speak loop and narration
// in the background, keyed to the node scope so that closing the node unwinds it.
// Entering a node again while its sequence runs on the same scope only re-broadcasts.
func (e *Exhibit) enterSequence(ctx context.Context, n *scene.Node, p loader.NodeParams) {
	for _, key := range p.Messages {
		if err := dispatch.Send1(e.dispatcher, key, n.Ref()); err != nil {
			e.logger.Warn("Node message dropped", "node", n.Ref(), "key", key, "err", err)
		}
	}

	speak, flying, err := p.SpeakMode()
	if err != nil {
		e.logger.Warn("Node speak ignored", "node", n.Ref(), "err", err)
	}
	speak = speak && e.npc != nil
	if p.Animation == "" && p.Clip == "" && p.ClipLength <= 0 && !speak {
		return
	}

	scope := n.Context()
	if !e.claim(n, scope) {
		e.logger.Debug("Node sequence already running", "node", n.Ref())
		return
	}
	e.sequences.Add(1)
	go func() {
		defer e.sequences.Done()
		defer e.release(n, scope)

		if p.Animation != "" && e.npc != nil {
			if !e.animate(scope, n, p.Animation) {
				return
			}
		}
		if speak {
			e.sequences.Add(1)
			go func() {
				defer e.sequences.Done()
				if _, err := e.npc.PlayRandomSpeak(scope, flying); err != nil {
					e.logger.Warn("Node speak failed", "node", n.Ref(), "err", err)
				}
			}()
		}

		clip, err := e.narration(scope, n, p)
		if err != nil {
			e.logger.Warn("Narration unavailable", "node", n.Ref(), "err", err)
			return
		}
		if clip == nil {
			return
		}
		var onFinished func()
		if p.CompleteOnFinish {
			onFinished = func() { e.completeNode(context.WithoutCancel(ctx), n) }
		}
		if _, err := n.PlayAudio(scope, clip, onFinished); err != nil {
			e.logger.Warn("Narration failed", "node", n.Ref(), "err", err)
		}
	}()
}

// claim marks n as running a sequence on scope. It fails while one runs on the same scope;
// a sequence left over from a closed scope is unwinding and does not block a new one.
func (e *Exhibit) claim(n *scene.Node, scope context.Context) bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if cur, ok := e.running[n]; ok && cur == scope {
		return false
	}
	e.running[n] = scope
	return true
}

func (e *Exhibit) release(n *scene.Node, scope context.Context) {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.running[n] == scope {
		delete(e.running, n)
	}
}

type played struct {
	outcome domain.Outcome
	err     error
}

// animate plays a gated NPC animation and reports whether the sequence should go on.
// It returns once the clip length elapsed; the appear title plate keeps showing in the
// background until its hold ends or the node closes.
func (e *Exhibit) animate(ctx context.Context, n *scene.Node, name string) bool {
	a, err := npc.ParseAnimation(name)
	if err != nil {
		e.logger.Warn("Node animation ignored", "node", n.Ref(), "err", err)
		return true
	}

	finished := make(chan struct{})
	onDone := func() { close(finished) }
	result := make(chan played, 1)

	e.sequences.Add(1)
	go func() {
		defer e.sequences.Done()
		var p played
		switch a {
		case npc.Appear1:
			p.outcome, p.err = e.npc.PlayAppear(ctx, 1, onDone)
		case npc.Appear2:
			p.outcome, p.err = e.npc.PlayAppear(ctx, 2, onDone)
		case npc.Disappear:
			p.outcome, p.err = e.npc.PlayDisappear(ctx, onDone)
		default:
			p.outcome, p.err = e.npc.PlayAnimation(ctx, a, onDone)
		}
		result <- p
	}()

	select {
	case <-finished:
		return true
	case p := <-result:
		select {
		case <-finished:
			return true
		default:
		}
		if p.err != nil {
			e.logger.Warn("Node animation failed", "node", n.Ref(), "err", p.err)
			return true
		}
		return p.outcome != domain.OutcomeCancelled
	}
}

func (e *Exhibit) narration(ctx context.Context, n *scene.Node, p loader.NodeParams) (ports.Clip, error) {
	path := n.AudioPath()
	if p.Clip != "" {
		path = n.Region().Name() + "/" + p.Clip
	}
	if e.clips != nil {
		c, err := e.clips(ctx, path)
		if err == nil {
			return c, nil
		}
		if p.ClipLength <= 0 {
			return nil, err
		}
	}
	if p.ClipLength <= 0 {
		return nil, nil
	}
	return memory.Clip{ClipName: path, Length: p.ClipLength}, nil
}

// completeNode marks n completed and its region too once every node of it completed.
func (e *Exhibit) completeNode(ctx context.Context, n *scene.Node) {
	n.Complete()
	r := n.Region()
	for _, sibling := range r.Nodes() {
		if !sibling.IsCompleted() {
			return
		}
	}
	r.Complete(ctx)
}

func (e *Exhibit) messageHooks() domain.LifecycleHooks {
	send := func(key, region string) {
		if err := dispatch.Send1(e.dispatcher, key, region); err != nil {
			e.logger.Debug("Navigation message dropped", "key", key, "err", err)
		}
	}
	return domain.LifecycleHooks{
		OnNodeSwitch: func(_ context.Context, ev *domain.TransitionEvent) {
			if err := dispatch.Send2(e.dispatcher, domain.MsgNodeSwitched, ev.FromNodeID, ev.ToNodeID); err != nil {
				e.logger.Debug("Navigation message dropped", "key", domain.MsgNodeSwitched, "err", err)
			}
		},
		OnRegionActivate: func(_ context.Context, ev *domain.RegionEvent) {
			send(domain.MsgRegionActivated, ev.Region)
		},
		OnRegionExit: func(_ context.Context, ev *domain.RegionEvent) {
			send(domain.MsgRegionExited, ev.Region)
		},
		OnRegionComplete: func(_ context.Context, ev *domain.RegionEvent) {
			send(domain.MsgRegionCompleted, ev.Region)
		},
	}
}

// Scene returns the loaded scene description.
func (e *Exhibit) Scene() *loader.Scene { return e.scene }

// Navigator returns the underlying navigator.
func (e *Exhibit) Navigator() *scene.Navigator { return e.nav }

// Dispatcher returns the dispatcher navigation messages are published on.
func (e *Exhibit) Dispatcher() *dispatch.Dispatcher { return e.dispatcher }

// NPC returns the shared NPC, or nil when the scene has none.
func (e *Exhibit) NPC() *npc.Entity { return e.npc }

// Volumes returns the names of the bound trigger volumes, sorted.
func (e *Exhibit) Volumes() []string {
	names := make([]string, 0, len(e.volumes))
	for name := range e.volumes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Player is the visitor actor that trigger volumes react to.
func (e *Exhibit) Player() trigger.Actor { return e.nav.Player() }

// Fire delivers a trigger event to the named volume. It reports whether the actor passed the
// volume's tag filter.
func (e *Exhibit) Fire(ctx context.Context, volume string, phase trigger.Phase, actor trigger.Actor) (bool, error) {
	v, ok := e.volumes[volume]
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrVolumeNotFound, volume)
	}
	return v.Fire(ctx, phase, actor), nil
}

// SwitchTo makes the referenced node current and marks it active.
func (e *Exhibit) SwitchTo(ctx context.Context, ref string) (domain.Outcome, error) {
	n, err := e.nav.Resolve(ref)
	if err != nil {
		return domain.OutcomeSkipped, err
	}
	n.Initialize()
	outcome, err := e.nav.SwitchToNode(ctx, n)
	if err == nil && outcome == domain.OutcomeApplied {
		n.Activate()
	}
	return outcome, err
}

// Back returns to the previous node and marks it active.
func (e *Exhibit) Back(ctx context.Context) (domain.Outcome, error) {
	outcome, err := e.nav.BackToPreviousNode(ctx)
	if err == nil && outcome == domain.OutcomeApplied {
		if n := e.nav.CurrentNode(); n != nil {
			n.Initialize()
			n.Activate()
		}
	}
	return outcome, err
}

// ClearHistory empties the navigation history.
func (e *Exhibit) ClearHistory(ctx context.Context) {
	e.nav.ClearHistory(ctx)
}

// Close unbinds every volume, tears the regions down and waits for running sequences.
func (e *Exhibit) Close(ctx context.Context) error {
	for _, u := range e.unbind {
		u()
	}
	e.unbind = nil

	err := e.nav.Close(ctx)
	e.sequences.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
