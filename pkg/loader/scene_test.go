package loader_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAML(t *testing.T) {
	s, err := loader.Load(filepath.Join("testdata", "museum.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "Museum", s.Name)
	assert.Equal(t, "visitor", s.Player.ID)
	assert.Equal(t, "Player", s.Player.Tag, "tag defaults to Player")
	require.NotNil(t, s.NPC)
	assert.Equal(t, 1500*time.Millisecond, s.NPC.Clips["TY_appear01"])

	require.Len(t, s.Regions, 2)
	hall := s.Regions[0]
	assert.Equal(t, "hall-01", hall.ID)
	assert.Equal(t, "amb", hall.AmbientAudio)
	require.Len(t, hall.Nodes, 3)
	assert.Equal(t, domain.KindZone, hall.Nodes[0].Kind)
	assert.Equal(t, domain.KindAudio, hall.Nodes[1].Kind)
	assert.Equal(t, domain.KindVisualEffect, hall.Nodes[2].Kind)
	assert.Equal(t, "B", hall.Nodes[1].Name, "name defaults to id")
	assert.Equal(t, &domain.Position{X: 1, Z: 2}, hall.Nodes[0].Anchor)

	assert.Equal(t, "Garden", s.Regions[1].ID, "id defaults to name")
	assert.NoError(t, s.Validate())
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.json")
	data := `{"name":"J","player":{"id":"p","tag":"Visitor"},"regions":[{"name":"R","nodes":[{"id":"n","kind":"timed"}]}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	s, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Visitor", s.Player.Tag)
	assert.Equal(t, domain.KindTimed, s.Regions[0].Nodes[0].Kind)
}

func TestLoad_Errors(t *testing.T) {
	_, err := loader.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loader.Parse([]byte("regions: [nodes: {"))
	assert.Error(t, err)

	_, err = loader.Parse([]byte("regions:\n  - name: R\n    nodes:\n      - id: n\n        kind: teleport\n"))
	assert.Error(t, err, "unknown node kinds are rejected")
}

func TestScene_DegradedMode(t *testing.T) {
	s, err := loader.Parse([]byte(`
player: {id: visitor}
regions:
  - name: Hall
    nodes: [{id: A}, {id: A}]
  - name: Garden
    nodes: [{id: G}]
  - name: Garden
    nodes: [{id: X}]
  - nodes: [{id: Y}]
  - name: Attic
    nodes: [{name: nameless}]
`))
	require.NoError(t, err)

	problems := s.Check()
	require.Len(t, problems, 4)
	assert.ErrorIs(t, problems[0], domain.ErrDuplicateNode)
	assert.ErrorIs(t, problems[1], domain.ErrDuplicateRegion)
	assert.NoError(t, loader.Fatal(problems))
	assert.Error(t, s.Validate())

	usable := s.Usable()
	require.Len(t, usable, 1)
	assert.Equal(t, "Garden", usable[0].Name)
	assert.Equal(t, "G", usable[0].Nodes[0].ID)
}

func TestScene_MissingPlayerIsFatal(t *testing.T) {
	s, err := loader.Parse([]byte("regions: []\n"))
	require.NoError(t, err)
	fatal := loader.Fatal(s.Check())
	assert.ErrorIs(t, fatal, domain.ErrPlayerMissing)
}
