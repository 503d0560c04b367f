package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/exhibit"
	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/loader"
)

func newTestServer(t *testing.T) (*Server, *exhibit.Exhibit) {
	t.Helper()
	s, err := loader.Parse([]byte(`
name: Gallery
player: {id: visitor}
regions:
  - name: East
    nodes:
      - {id: Vase, kind: zone}
      - {id: Mask, kind: zone}
`))
	require.NoError(t, err)
	ex, err := exhibit.New("", exhibit.WithScene(s))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ex.Close(context.Background()) })
	return NewServer(ex, nil), ex
}

func TestTools_Navigation(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	resp, err := srv.handleSwitch(ctx, req, SwitchArgs{Node: "East/Vase"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, resp.Outcome)

	resp, err = srv.handleSwitch(ctx, req, SwitchArgs{Node: "East/Mask"})
	require.NoError(t, err)
	assert.Equal(t, []string{"East/Vase"}, resp.State.History)

	resp, err = srv.handleBack(ctx, req, nil)
	require.NoError(t, err)
	assert.Equal(t, "East/Vase", resp.State.Current)

	state, err := srv.handleGetState(ctx, req, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"East/Mask"}, state.History)

	_, err = srv.handleSwitch(ctx, req, SwitchArgs{})
	assert.Error(t, err)

	_, err = srv.handleSwitch(ctx, req, SwitchArgs{Node: "East/Bowl"})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestTools_FireTrigger(t *testing.T) {
	srv, ex := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	resp, err := srv.handleFireTrigger(ctx, req, TriggerArgs{Volume: "East.enter", Phase: "enter"})
	require.NoError(t, err)
	assert.True(t, resp.Delivered)
	assert.True(t, resp.State.Regions[0].Active)

	resp, err = srv.handleFireTrigger(ctx, req, TriggerArgs{Volume: "East/Vase.enter", Phase: "enter", ActorTag: "Animal"})
	require.NoError(t, err)
	assert.False(t, resp.Delivered)
	assert.Empty(t, ex.State().Current)

	_, err = srv.handleFireTrigger(ctx, req, TriggerArgs{Volume: "East.enter", Phase: "hover"})
	assert.Error(t, err)

	_, err = srv.handleFireTrigger(ctx, req, TriggerArgs{Volume: "West.enter", Phase: "enter"})
	assert.ErrorIs(t, err, domain.ErrVolumeNotFound)
}
