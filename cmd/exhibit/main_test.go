package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/exhibit/internal/config"
	"github.com/aretw0/exhibit/internal/logging"
	"github.com/aretw0/exhibit/internal/testutils"
	"github.com/aretw0/exhibit/pkg/adapters/redis"
	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/loader"
)

// newTestCmd returns a command carrying the root flags, writing to out.
func newTestCmd(in string, out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("scene", "scene.yaml", "")
	cmd.Flags().String("log-level", "error", "")
	cmd.SetIn(strings.NewReader(in))
	cmd.SetOut(out)
	cmd.SetContext(context.Background())
	return cmd
}

func TestValidate(t *testing.T) {
	path := testutils.WriteScene(t, "gallery.yaml", testutils.GalleryScene)

	var out bytes.Buffer
	require.NoError(t, runValidate(newTestCmd("", &out), path, false))
	assert.Contains(t, out.String(), `region "Broken" node "X"`)
	assert.Contains(t, out.String(), `Scene "Gallery": 1 of 2 regions usable`)

	out.Reset()
	err := runValidate(newTestCmd("", &out), path, true)
	assert.ErrorIs(t, err, errInvalidScene)
}

func TestValidate_MissingPlayer(t *testing.T) {
	path := testutils.WriteScene(t, "lonely.yaml", "name: Lonely\nregions: []\n")

	var out bytes.Buffer
	err := runValidate(newTestCmd("", &out), path, false)
	assert.ErrorIs(t, err, domain.ErrPlayerMissing)
}

func TestSceneMarkdown(t *testing.T) {
	s, err := loader.Parse([]byte(testutils.GalleryScene))
	require.NoError(t, err)

	md, err := sceneMarkdown(s, "")
	require.NoError(t, err)
	assert.Contains(t, md, "# Gallery")
	assert.Contains(t, md, "## East")
	assert.Contains(t, md, "- **Vase** (zone): A blue vase.")
	assert.NotContains(t, md, "Broken")

	md, err = sceneMarkdown(s, "East")
	require.NoError(t, err)
	assert.NotContains(t, md, "# Gallery")

	_, err = sceneMarkdown(s, "West")
	assert.ErrorIs(t, err, domain.ErrRegionNotFound)
}

func TestSimulate_Script(t *testing.T) {
	path := testutils.WriteScene(t, "gallery.yaml", testutils.GalleryScene)
	script := "enter East.enter\nenter East/Vase.enter\nenter East/Mask.enter\nback\nstate\nquit\n"

	var out bytes.Buffer
	cmd := newTestCmd(script, &out)
	require.NoError(t, runSimulate(cmd.Context(), cmd, []string{path}, false, true))

	got := out.String()
	assert.Contains(t, got, "back: applied")
	assert.Contains(t, got, `"current": "East/Vase"`)
	assert.Contains(t, got, "East/Vase -> East/Mask (history 1)")
	assert.Contains(t, got, "~ East.highlight:show")
	// Input is not a terminal, so the run is headless.
	assert.NotContains(t, got, "--- Gallery ---")
}

func TestSimulate_MissingScene(t *testing.T) {
	var out bytes.Buffer
	cmd := newTestCmd("", &out)
	err := runSimulate(cmd.Context(), cmd, []string{"does-not-exist.yaml"}, true, false)
	assert.ErrorContains(t, err, "failed to load scene")
}

func TestSession_RequiresRedis(t *testing.T) {
	t.Setenv("EXHIBIT_REDIS_ADDR", "")

	var out bytes.Buffer
	err := sessionLsCmd.RunE(newTestCmd("", &out), nil)
	assert.ErrorIs(t, err, errNoPersistence)
}

func TestSession_Commands(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("EXHIBIT_REDIS_ADDR", mr.Addr())

	store := redis.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = store.Client().Close() })
	require.NoError(t, store.Save(context.Background(), "tour-1", &domain.Snapshot{
		TourID:        "tour-1",
		CurrentNodeID: "East/Mask",
		History:       []string{"East/Vase"},
		UpdatedAt:     time.Now(),
	}))

	var out bytes.Buffer
	require.NoError(t, sessionLsCmd.RunE(newTestCmd("", &out), nil))
	assert.Contains(t, out.String(), "- tour-1")

	out.Reset()
	require.NoError(t, sessionInspectCmd.RunE(newTestCmd("", &out), []string{"tour-1"}))
	assert.Contains(t, out.String(), `"current_node_id": "East/Mask"`)

	out.Reset()
	require.NoError(t, sessionRmCmd.RunE(newTestCmd("", &out), []string{"tour-1"}))
	assert.Contains(t, out.String(), "Removed tour 'tour-1'")

	out.Reset()
	require.NoError(t, sessionLsCmd.RunE(newTestCmd("", &out), nil))
	assert.Contains(t, out.String(), "No persisted tours found.")
}

func TestNewSessions_Sealed(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	mgr, closeStore, err := newSessions(config.Server{SnapshotKeys: []string{key}}, logging.NewNop())
	require.NoError(t, err)
	defer closeStore()

	ctx := context.Background()
	require.NoError(t, mgr.Save(ctx, "tour", &domain.Snapshot{TourID: "tour", CurrentNodeID: "East/Vase"}))
	snap, err := mgr.Load(ctx, "tour")
	require.NoError(t, err)
	assert.Equal(t, "East/Vase", snap.CurrentNodeID)

	_, _, err = newSessions(config.Server{SnapshotKeys: []string{"c2hvcnQ="}}, logging.NewNop())
	assert.ErrorContains(t, err, "EXHIBIT_SNAPSHOT_KEYS[0]")
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	versionCmd.Run(newTestCmd("", &out), nil)
	assert.True(t, strings.HasPrefix(out.String(), "exhibit version "))
}
