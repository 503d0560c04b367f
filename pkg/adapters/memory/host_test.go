package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/exhibit/pkg/adapters/memory"
	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_RecordsInOrder(t *testing.T) {
	var watched []string
	j := memory.NewJournal(func(e string) { watched = append(watched, e) })

	v := memory.NewVisual("hall", j)
	v.Show()
	v.Hide()
	memory.NewActor("npc", j).MoveTo(domain.ParkedPosition)

	want := []string{"hall:show", "hall:hide", "npc:move:1000,1000,1000"}
	assert.Equal(t, want, j.Entries())
	assert.Equal(t, want, watched)
	assert.False(t, v.Visible())

	j.Reset()
	assert.Empty(t, j.Entries())
}

func TestJournal_NilIsSilent(t *testing.T) {
	var j *memory.Journal
	assert.NotPanics(t, func() { j.Record("x") })
}

func TestPlayer_RecordsPlaybackAndStop(t *testing.T) {
	j := memory.NewJournal(nil)
	p := memory.NewPlayer("guide", j)

	require.NoError(t, p.PlayClip(context.Background(), memory.Clip{ClipName: "intro", Length: time.Second}))
	assert.Equal(t, "intro", <-p.Started())
	assert.Equal(t, "intro", p.Playing())

	p.StopClip()
	p.StopClip()
	assert.Equal(t, []string{"guide:play:intro", "guide:stop:intro"}, j.Entries())
}

func TestPlayer_RejectsEndedContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := memory.NewPlayer("guide", nil)
	assert.ErrorIs(t, p.PlayClip(ctx, memory.Clip{ClipName: "intro", Length: time.Second}), context.Canceled)
}

func TestMixer_HoldBlocksUntilCancelled(t *testing.T) {
	m := memory.NewMixer(nil)
	m.Hold = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.PlayOn(ctx, ports.ChannelGuide, "hall/amb") }()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, "hall/amb", m.Playing(ports.ChannelGuide))

	m.StopChannel(ports.ChannelGuide)
	assert.Empty(t, m.Playing(ports.ChannelGuide))
}

func TestAnimator_ClipDuration(t *testing.T) {
	a := memory.NewAnimator(nil, map[string]time.Duration{"TY_call": time.Second})
	d, ok := a.ClipDuration("TY_call")
	assert.True(t, ok)
	assert.Equal(t, time.Second, d)

	_, ok = a.ClipDuration("missing")
	assert.False(t, ok)
}
