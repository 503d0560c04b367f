package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/ports"
)

// Journal is an ordered, concurrency-safe record of host side effects.
// The in-memory host doubles below write to it so a headless run can be inspected.
type Journal struct {
	mu      sync.Mutex
	entries []string
	watch   func(string)
}

// NewJournal creates an empty journal. watch, when set, sees every entry as it is recorded.
func NewJournal(watch func(string)) *Journal {
	return &Journal{watch: watch}
}

// Record appends an entry. Recording on a nil journal is a no-op.
func (j *Journal) Record(format string, args ...any) {
	if j == nil {
		return
	}
	entry := fmt.Sprintf(format, args...)
	j.mu.Lock()
	j.entries = append(j.entries, entry)
	watch := j.watch
	j.mu.Unlock()
	if watch != nil {
		watch(entry)
	}
}

// Entries returns a copy of the recorded entries.
func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// Reset forgets all entries.
func (j *Journal) Reset() {
	j.mu.Lock()
	j.entries = nil
	j.mu.Unlock()
}

// Visual records Show and Hide calls.
type Visual struct {
	Name    string
	journal *Journal

	mu      sync.Mutex
	visible bool
}

// NewVisual creates a hidden visual.
func NewVisual(name string, journal *Journal) *Visual {
	return &Visual{Name: name, journal: journal}
}

func (v *Visual) Show() { v.set(true) }
func (v *Visual) Hide() { v.set(false) }

// Visible reports the last requested visibility.
func (v *Visual) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

func (v *Visual) set(on bool) {
	v.mu.Lock()
	v.visible = on
	v.mu.Unlock()
	if on {
		v.journal.Record("%s:show", v.Name)
	} else {
		v.journal.Record("%s:hide", v.Name)
	}
}

// Actor records relocations.
type Actor struct {
	Name    string
	journal *Journal

	mu  sync.Mutex
	pos domain.Position
}

// NewActor creates an actor at the origin.
func NewActor(name string, journal *Journal) *Actor {
	return &Actor{Name: name, journal: journal}
}

// MoveTo implements ports.Actor.
func (a *Actor) MoveTo(pos domain.Position) {
	a.mu.Lock()
	a.pos = pos
	a.mu.Unlock()
	a.journal.Record("%s:move:%g,%g,%g", a.Name, pos.X, pos.Y, pos.Z)
}

// Position returns the last position.
func (a *Actor) Position() domain.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pos
}

// Clip is a named clip of fixed length.
type Clip struct {
	ClipName string
	Length   time.Duration
}

func (c Clip) Name() string { return c.ClipName }
func (c Clip) Duration() time.Duration { return c.Length }

// Player is an AudioPlayer that only records what it was asked to play.
type Player struct {
	Name    string
	journal *Journal

	mu      sync.Mutex
	playing string
	started chan string
}

// NewPlayer creates an idle player.
func NewPlayer(name string, journal *Journal) *Player {
	return &Player{Name: name, journal: journal, started: make(chan string, 16)}
}

// PlayClip implements ports.AudioPlayer.
func (p *Player) PlayClip(ctx context.Context, clip ports.Clip) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.playing = clip.Name()
	p.mu.Unlock()
	p.journal.Record("%s:play:%s", p.Name, clip.Name())

	select {
	case p.started <- clip.Name():
	default:
	}
	return nil
}

// StopClip implements ports.AudioPlayer.
func (p *Player) StopClip() {
	p.mu.Lock()
	was := p.playing
	p.playing = ""
	p.mu.Unlock()
	if was != "" {
		p.journal.Record("%s:stop:%s", p.Name, was)
	}
}

// Playing returns the clip currently playing, or "".
func (p *Player) Playing() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Started delivers clip names as playback starts.
func (p *Player) Started() <-chan string { return p.started }

// Mixer records channel playback. When Hold is set, PlayOn blocks until its context ends,
// mimicking a long streaming load.
type Mixer struct {
	Hold    bool
	journal *Journal

	mu      sync.Mutex
	playing map[ports.Channel]string
}

// NewMixer creates a silent mixer.
func NewMixer(journal *Journal) *Mixer {
	return &Mixer{journal: journal, playing: make(map[ports.Channel]string)}
}

// PlayOn implements ports.Mixer.
func (m *Mixer) PlayOn(ctx context.Context, ch ports.Channel, path string) error {
	m.mu.Lock()
	m.playing[ch] = path
	m.mu.Unlock()
	m.journal.Record("mixer:play:%s:%s", ch, path)

	if m.Hold {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

// StopChannel implements ports.Mixer.
func (m *Mixer) StopChannel(ch ports.Channel) {
	m.mu.Lock()
	delete(m.playing, ch)
	m.mu.Unlock()
	m.journal.Record("mixer:stop:%s", ch)
}

// Playing returns the path on a channel, or "".
func (m *Mixer) Playing(ch ports.Channel) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing[ch]
}

// Animator records triggers and resolves clip lengths from a fixed table.
type Animator struct {
	journal *Journal
	clips   map[string]time.Duration
}

// NewAnimator creates an animator with the given clip lengths.
func NewAnimator(journal *Journal, clips map[string]time.Duration) *Animator {
	return &Animator{journal: journal, clips: clips}
}

// SetTrigger implements ports.Animator.
func (a *Animator) SetTrigger(trigger string) {
	a.journal.Record("anim:%s", trigger)
}

// ClipDuration implements ports.Animator.
func (a *Animator) ClipDuration(clip string) (time.Duration, bool) {
	d, ok := a.clips[clip]
	return d, ok
}
