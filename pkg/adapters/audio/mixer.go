package audio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"

	"github.com/aretw0/exhibit/pkg/ports"
)

// track identifies one stream in the mix: a whole channel when name is empty, or a named voice
// sharing the channel volume.
type track struct {
	ch   ports.Channel
	name string
}

type playing struct {
	ctrl   *beep.Ctrl
	volume *effects.Volume
	path   string
}

// Mixer plays clips on the fixed channels. It implements ports.Mixer, and beep.Streamer so the
// host can hand it to a speaker or drain it headless with Run.
type Mixer struct {
	lib *Library

	mu      sync.Mutex
	out     *beep.Mixer
	tracks  map[track]*playing
	volumes map[ports.Channel]float64
}

// NewMixer creates a silent mixer reading clips from lib.
func NewMixer(lib *Library) *Mixer {
	m := &Mixer{
		lib:     lib,
		out:     &beep.Mixer{},
		tracks:  make(map[track]*playing),
		volumes: make(map[ports.Channel]float64),
	}
	for _, ch := range ports.Channels {
		m.volumes[ch] = 1
	}
	return m
}

// PlayOn implements ports.Mixer. The BGM channel loops; the others play once.
func (m *Mixer) PlayOn(ctx context.Context, ch ports.Channel, path string) error {
	clip, err := m.lib.Load(ctx, path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.play(track{ch: ch}, path, clip)
}

// play replaces whatever t was playing. Other tracks, named voices on the same channel
// included, keep playing.
func (m *Mixer) play(t track, path string, clip *Clip) error {
	var src beep.Streamer = clip.Streamer()
	if t.ch == ports.ChannelBGM {
		src = beep.Loop(-1, clip.Streamer())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	level, ok := m.volumes[t.ch]
	if !ok {
		return fmt.Errorf("unknown channel %q", t.ch)
	}
	m.stopLocked(t)
	vol := volumeEffect(nil, level)
	ctrl := &beep.Ctrl{Streamer: src}
	vol.Streamer = ctrl
	m.tracks[t] = &playing{ctrl: ctrl, volume: vol, path: path}
	m.out.Add(vol)
	return nil
}

// StopChannel implements ports.Mixer. It silences the channel and every named voice on it.
func (m *Mixer) StopChannel(ch ports.Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for t := range m.tracks {
		if t.ch == ch {
			m.stopLocked(t)
		}
	}
}

func (m *Mixer) stopLocked(t track) {
	p, ok := m.tracks[t]
	if !ok {
		return
	}
	// A nil streamer makes the Ctrl report exhaustion, so the mixer drops it.
	p.ctrl.Streamer = nil
	delete(m.tracks, t)
}

// Playing returns the path playing on ch itself, or "". Named voices are reported by VoicePlaying.
func (m *Mixer) Playing(ch ports.Channel) string {
	return m.pathOf(track{ch: ch})
}

// VoicePlaying returns the path the named voice on ch is playing, or "".
func (m *Mixer) VoicePlaying(ch ports.Channel, name string) string {
	return m.pathOf(track{ch: ch, name: name})
}

func (m *Mixer) pathOf(t track) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.tracks[t]; ok {
		return p.path
	}
	return ""
}

// SetVolume sets a channel volume in [0, 1]. Zero mutes.
func (m *Mixer) SetVolume(ch ports.Channel, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("volume %.2f out of range [0, 1]", v)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.volumes[ch]; !ok {
		return fmt.Errorf("unknown channel %q", ch)
	}
	m.volumes[ch] = v
	for t, p := range m.tracks {
		if t.ch == ch {
			volumeEffect(p.volume, v)
		}
	}
	return nil
}

// Volume returns a channel volume.
func (m *Mixer) Volume(ch ports.Channel) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volumes[ch]
}

// volumeEffect configures v (or a new effect when v is nil) for a linear volume.
func volumeEffect(v *effects.Volume, linear float64) *effects.Volume {
	if v == nil {
		v = &effects.Volume{Base: 2}
	}
	if linear <= 0 {
		v.Volume, v.Silent = 0, true
		return v
	}
	v.Volume, v.Silent = math.Log2(linear), false
	return v
}

// Stream implements beep.Streamer. The mixer never runs dry; silence fills idle channels.
func (m *Mixer) Stream(samples [][2]float64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out.Stream(samples)
}

// Err implements beep.Streamer.
func (m *Mixer) Err() error { return nil }

// Run drains the mixer in real time without an output device, so clips advance and finish in
// headless deployments. It returns when ctx ends.
func (m *Mixer) Run(ctx context.Context, tick time.Duration) {
	rate := m.lib.SampleRate()
	buf := make([][2]float64, rate.N(tick))
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Stream(buf)
		}
	}
}

// Voice returns an AudioPlayer bound to one channel. Playing on it replaces the channel content.
func (m *Mixer) Voice(ch ports.Channel) ports.AudioPlayer {
	return &voice{mixer: m, track: track{ch: ch}}
}

// NamedVoice returns an AudioPlayer with its own stream on ch, so voices with different names
// play over each other and stopping one leaves the others running. The channel volume applies.
func (m *Mixer) NamedVoice(ch ports.Channel, name string) ports.AudioPlayer {
	return &voice{mixer: m, track: track{ch: ch, name: name}}
}

type voice struct {
	mixer *Mixer
	track track
}

// PlayClip plays clip on the voice's track. Clips not decoded by this package are resolved
// by name through the library.
func (v *voice) PlayClip(ctx context.Context, clip ports.Clip) error {
	path := clip.Name()
	c, ok := clip.(*Clip)
	if !ok {
		var err error
		if c, err = v.mixer.lib.Load(ctx, path); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return v.mixer.play(v.track, path, c)
}

func (v *voice) StopClip() {
	if v.track.name == "" {
		v.mixer.StopChannel(v.track.ch)
		return
	}
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()
	v.mixer.stopLocked(v.track)
}
