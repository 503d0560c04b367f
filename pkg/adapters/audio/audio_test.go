package audio_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/exhibit/pkg/adapters/audio"
	"github.com/aretw0/exhibit/pkg/ports"
)

var format = beep.Format{SampleRate: 1000, NumChannels: 2, Precision: 2}

func silence(name string, d time.Duration) *audio.Clip {
	return audio.NewClip(name, format, beep.Silence(format.SampleRate.N(d)))
}

func TestClip_Duration(t *testing.T) {
	c := silence("amb", 500*time.Millisecond)
	assert.Equal(t, "amb", c.Name())
	assert.Equal(t, 500*time.Millisecond, c.Duration())
}

func TestLibrary_DecodesAndCachesWAV(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "hall-01"), 0o755))

	f, err := os.Create(filepath.Join(root, "hall-01", "amb.wav"))
	require.NoError(t, err)
	require.NoError(t, wav.Encode(f, beep.Silence(250), format))
	require.NoError(t, f.Close())

	lib := audio.NewLibrary(root, audio.WithSampleRate(format.SampleRate))
	c, err := lib.Load(context.Background(), "hall-01/amb")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, c.Duration())

	// Served from the cache once the file is gone.
	require.NoError(t, os.RemoveAll(filepath.Join(root, "hall-01")))
	again, err := lib.Load(context.Background(), "hall-01/amb")
	require.NoError(t, err)
	assert.Same(t, c, again)
}

func TestLibrary_NotFound(t *testing.T) {
	lib := audio.NewLibrary(t.TempDir())
	_, err := lib.Load(context.Background(), "hall-01/missing")
	assert.ErrorIs(t, err, audio.ErrNotFound)

	_, err = audio.NewLibrary("").Load(context.Background(), "x")
	assert.ErrorIs(t, err, audio.ErrNotFound)
}

func TestLibrary_CancelledLoad(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := audio.NewLibrary(t.TempDir()).Load(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func newMixer(t *testing.T) *audio.Mixer {
	t.Helper()
	lib := audio.NewLibrary("", audio.WithSampleRate(format.SampleRate))
	lib.Add("hall-01/amb", silence("amb", time.Second))
	lib.Add("Hall/A", silence("A", 100*time.Millisecond))
	return audio.NewMixer(lib)
}

func TestMixer_PlayAndStop(t *testing.T) {
	m := newMixer(t)
	ctx := context.Background()

	require.NoError(t, m.PlayOn(ctx, ports.ChannelGuide, "hall-01/amb"))
	assert.Equal(t, "hall-01/amb", m.Playing(ports.ChannelGuide))
	assert.Empty(t, m.Playing(ports.ChannelBGM))

	buf := make([][2]float64, 100)
	n, ok := m.Stream(buf)
	assert.Equal(t, 100, n)
	assert.True(t, ok)
	assert.NoError(t, m.Err())

	m.StopChannel(ports.ChannelGuide)
	assert.Empty(t, m.Playing(ports.ChannelGuide))

	// Stopping an idle channel is harmless.
	m.StopChannel(ports.ChannelSFX)
}

func TestMixer_ReplacesChannelContent(t *testing.T) {
	m := newMixer(t)
	ctx := context.Background()

	require.NoError(t, m.PlayOn(ctx, ports.ChannelBGM, "hall-01/amb"))
	require.NoError(t, m.PlayOn(ctx, ports.ChannelBGM, "Hall/A"))
	assert.Equal(t, "Hall/A", m.Playing(ports.ChannelBGM))
}

func TestMixer_Errors(t *testing.T) {
	m := newMixer(t)

	err := m.PlayOn(context.Background(), ports.ChannelGuide, "nope")
	assert.ErrorIs(t, err, audio.ErrNotFound)

	assert.Error(t, m.PlayOn(context.Background(), ports.Channel("Voice"), "Hall/A"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.PlayOn(ctx, ports.ChannelGuide, "Hall/A"), context.Canceled)
	assert.Empty(t, m.Playing(ports.ChannelGuide))
}

func TestMixer_Volume(t *testing.T) {
	m := newMixer(t)
	assert.InDelta(t, 1.0, m.Volume(ports.ChannelSFX), 1e-9)

	require.NoError(t, m.SetVolume(ports.ChannelSFX, 0.25))
	assert.InDelta(t, 0.25, m.Volume(ports.ChannelSFX), 1e-9)

	require.NoError(t, m.PlayOn(context.Background(), ports.ChannelSFX, "Hall/A"))
	require.NoError(t, m.SetVolume(ports.ChannelSFX, 0))

	assert.Error(t, m.SetVolume(ports.ChannelSFX, 1.5))
	assert.Error(t, m.SetVolume(ports.Channel("Voice"), 0.5))
}

func TestMixer_Voice(t *testing.T) {
	m := newMixer(t)
	v := m.Voice(ports.ChannelGuide)
	ctx := context.Background()

	require.NoError(t, v.PlayClip(ctx, silence("direct", time.Second)))
	assert.Equal(t, "direct", m.Playing(ports.ChannelGuide))

	v.StopClip()
	assert.Empty(t, m.Playing(ports.ChannelGuide))
}

func TestMixer_NamedVoicesPlayTogether(t *testing.T) {
	m := newMixer(t)
	ctx := context.Background()
	a := m.NamedVoice(ports.ChannelSFX, "Hall/A")
	b := m.NamedVoice(ports.ChannelSFX, "Hall/B")

	require.NoError(t, a.PlayClip(ctx, silence("a", time.Second)))
	require.NoError(t, b.PlayClip(ctx, silence("b", time.Second)))
	assert.Equal(t, "a", m.VoicePlaying(ports.ChannelSFX, "Hall/A"))
	assert.Equal(t, "b", m.VoicePlaying(ports.ChannelSFX, "Hall/B"))
	assert.Empty(t, m.Playing(ports.ChannelSFX), "named voices leave the channel track alone")

	// Stopping one voice, or playing on the channel track, leaves the other voice running.
	a.StopClip()
	require.NoError(t, m.PlayOn(ctx, ports.ChannelSFX, "Hall/A"))
	assert.Empty(t, m.VoicePlaying(ports.ChannelSFX, "Hall/A"))
	assert.Equal(t, "b", m.VoicePlaying(ports.ChannelSFX, "Hall/B"))

	n, ok := m.Stream(make([][2]float64, 100))
	assert.Equal(t, 100, n)
	assert.True(t, ok)

	require.NoError(t, m.SetVolume(ports.ChannelSFX, 0.5))
	m.StopChannel(ports.ChannelSFX)
	assert.Empty(t, m.VoicePlaying(ports.ChannelSFX, "Hall/B"), "stopping the channel silences its voices")
	assert.Empty(t, m.Playing(ports.ChannelSFX))
}

func TestMixer_NamedVoiceResolvesByName(t *testing.T) {
	m := newMixer(t)
	v := m.NamedVoice(ports.ChannelGuide, "Hall/A")

	require.NoError(t, v.PlayClip(context.Background(), namedClip("Hall/A")))
	assert.Equal(t, "Hall/A", m.VoicePlaying(ports.ChannelGuide, "Hall/A"))

	assert.ErrorIs(t, v.PlayClip(context.Background(), namedClip("nope")), audio.ErrNotFound)
}

type namedClip string

func (c namedClip) Name() string { return string(c) }
func (c namedClip) Duration() time.Duration { return time.Second }

func TestMixer_RunStopsWithContext(t *testing.T) {
	m := newMixer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
