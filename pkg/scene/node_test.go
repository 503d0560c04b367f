package scene_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/exhibit/pkg/adapters/memory"
	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_ConcurrentCloseRunsHookOnce(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})

	n := scene.NewNode(scene.NodeConfig{ID: "a"}, scene.WithCloseHook(func(ctx context.Context) error {
		calls.Add(1)
		close(entered)
		<-release
		return nil
	}))

	first := make(chan domain.Outcome, 1)
	go func() {
		outcome, _ := n.Close(context.Background())
		first <- outcome
	}()

	<-entered
	assert.True(t, n.IsClosing())

	outcome, err := n.Close(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, outcome)

	close(release)
	assert.Equal(t, domain.OutcomeApplied, <-first)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, n.IsClosing())
}

func TestNode_CloseResetsStateAndStopsAudio(t *testing.T) {
	j := memory.NewJournal(nil)
	player := memory.NewPlayer("a", j)
	n := scene.NewNode(scene.NodeConfig{ID: "a"}, scene.WithAudio(player))

	_, err := n.PlayAudio(context.Background(), memory.Clip{ClipName: "intro", Length: time.Hour}, nil)
	require.NoError(t, err)
	n.Activate()
	n.Complete()
	scope := n.Context()

	outcome, err := n.Close(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, outcome)
	assert.False(t, n.IsActive())
	assert.False(t, n.IsCompleted())
	assert.Empty(t, player.Playing())
	assert.Error(t, scope.Err(), "closing cancels the node scope")
}

func TestNode_CloseCancellationIsNotAnError(t *testing.T) {
	n := scene.NewNode(scene.NodeConfig{ID: "a"}, scene.WithCloseHook(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := n.Close(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCancelled, outcome)
	assert.False(t, n.IsClosing())
}

func TestNode_CloseErrorClearsGuard(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	n := scene.NewNode(scene.NodeConfig{ID: "a"})
	n.OnClose(func(context.Context) error {
		calls++
		return boom
	})

	_, err := n.Close(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, n.IsClosing())

	_, err = n.Close(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestNode_CloseRunsEveryHook(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	var ran []string
	n := scene.NewNode(scene.NodeConfig{ID: "a"})
	n.OnClose(func(context.Context) error {
		ran = append(ran, "first")
		return first
	})
	n.OnClose(func(context.Context) error {
		ran = append(ran, "cancelled")
		return context.Canceled
	})
	n.OnClose(func(context.Context) error {
		ran = append(ran, "second")
		return second
	})
	n.OnClose(func(context.Context) error {
		ran = append(ran, "last")
		return nil
	})

	outcome, err := n.Close(context.Background())
	assert.Equal(t, []string{"first", "cancelled", "second", "last"}, ran)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.NotErrorIs(t, err, context.Canceled, "cancellation is an outcome, not an error")
	assert.Equal(t, domain.OutcomeCancelled, outcome)
	assert.False(t, n.IsClosing())
}

func TestNode_InitializeKeepsLiveScope(t *testing.T) {
	n := scene.NewNode(scene.NodeConfig{ID: "a"})
	n.Initialize()
	first := n.Context()
	n.Initialize()
	assert.True(t, first == n.Context())

	n.CancelToken()
	n.CancelToken()
	assert.Error(t, first.Err())
	assert.NoError(t, n.Context().Err(), "a fresh scope is created lazily")
}

func TestNode_PlayAudioValidation(t *testing.T) {
	ctx := context.Background()

	bare := scene.NewNode(scene.NodeConfig{ID: "a"})
	_, err := bare.PlayAudio(ctx, memory.Clip{ClipName: "x", Length: time.Second}, nil)
	assert.ErrorIs(t, err, domain.ErrNoAudio)

	n := scene.NewNode(scene.NodeConfig{ID: "a"}, scene.WithAudio(memory.NewPlayer("a", nil)))
	_, err = n.PlayAudio(ctx, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidClip)
	_, err = n.PlayAudio(ctx, memory.Clip{ClipName: "empty"}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidClip)
}

func TestNode_PlayAudioCallsBackAfterClip(t *testing.T) {
	player := memory.NewPlayer("a", nil)
	n := scene.NewNode(scene.NodeConfig{ID: "a"}, scene.WithAudio(player))

	finished := false
	outcome, err := n.PlayAudio(context.Background(), memory.Clip{ClipName: "intro", Length: 5 * time.Millisecond}, func() {
		finished = true
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, outcome)
	assert.True(t, finished)
}

func TestNode_CancelTokenStopsAudioWait(t *testing.T) {
	player := memory.NewPlayer("a", nil)
	n := scene.NewNode(scene.NodeConfig{ID: "a"}, scene.WithAudio(player))

	var finished atomic.Bool
	result := make(chan domain.Outcome, 1)
	go func() {
		outcome, _ := n.PlayAudio(context.Background(), memory.Clip{ClipName: "intro", Length: time.Hour}, func() {
			finished.Store(true)
		})
		result <- outcome
	}()

	<-player.Started()
	n.CancelToken()

	select {
	case outcome := <-result:
		assert.Equal(t, domain.OutcomeCancelled, outcome)
	case <-time.After(time.Second):
		t.Fatal("audio wait did not observe cancellation")
	}
	assert.False(t, finished.Load())
}

func TestNode_HandleEnter(t *testing.T) {
	ctx := context.Background()
	j := memory.NewJournal(nil)
	npc := memory.NewActor("npc", j)
	anchor := domain.Position{X: 1, Y: 2, Z: 3}

	nav, err := scene.NewNavigator(player)
	require.NoError(t, err)
	hall := scene.NewRegion(scene.RegionConfig{Name: "hall", ID: "hall-01"})
	require.NoError(t, nav.AddRegion(hall))

	zone := scene.NewNode(scene.NodeConfig{ID: "zone", Kind: domain.KindZone}, scene.WithNPC(npc, anchor))
	audio := scene.NewNode(scene.NodeConfig{ID: "audio", Kind: domain.KindAudio})
	require.NoError(t, hall.AddNode(zone))
	require.NoError(t, hall.AddNode(audio))

	var entered []string
	zone.OnEnter(func(_ context.Context, n *scene.Node) { entered = append(entered, n.Ref()) })

	_, err = zone.HandleEnter(ctx, nav)
	require.NoError(t, err)
	assert.Same(t, zone, nav.CurrentNode())
	assert.True(t, zone.IsActive())
	assert.Equal(t, anchor, npc.Position())
	assert.Equal(t, []string{"hall/zone"}, entered)

	_, err = audio.HandleEnter(ctx, nav)
	require.NoError(t, err)
	assert.Same(t, zone, nav.CurrentNode(), "only zone nodes drive navigation")
	assert.True(t, audio.IsActive())
}

func TestNode_RefAndAudioPath(t *testing.T) {
	n := scene.NewNode(scene.NodeConfig{ID: "a"})
	assert.Equal(t, "a", n.Ref())

	r := scene.NewRegion(scene.RegionConfig{Name: "hall"})
	require.NoError(t, r.AddNode(n))
	assert.Equal(t, "hall/a", n.Ref())
	assert.Equal(t, "hall/a", n.AudioPath())
	assert.Same(t, r, n.Region())
}
