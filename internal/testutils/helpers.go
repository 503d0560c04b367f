package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// GalleryScene is a small two-zone scene shared by command and adapter tests.
const GalleryScene = `
name: Gallery
description: A short walk.
player: {id: visitor}
regions:
  - name: East
    description: Masks and vases.
    nodes:
      - {id: Vase, kind: zone, description: A blue vase.}
      - {id: Mask, kind: zone}
  - name: Broken
    nodes:
      - {id: X}
      - {id: X}
`

// WriteScene writes content to a scene file in a fresh temporary directory and returns its path.
// It fails the test immediately on error.
func WriteScene(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "Failed to write scene")
	return path
}
