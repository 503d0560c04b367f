package exhibit_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/exhibit"
)

func TestRunner_Script(t *testing.T) {
	ex, _ := newExhibit(t)

	script := strings.Join([]string{
		"# walk the hall",
		"enter Hall.enter",
		"enter Hall/A.enter",
		"switch Hall/B",
		"switch Hall/B",
		"back",
		"state",
		"dance",
		"enter Nowhere.enter",
		"quit",
		"switch Hall/C",
	}, "\n")

	var out bytes.Buffer
	r := exhibit.NewRunner()
	r.Input = strings.NewReader(script)
	r.Output = &out
	r.Headless = true
	require.NoError(t, r.Run(context.Background(), ex))

	got := out.String()
	assert.Contains(t, got, "switch Hall/B: applied")
	assert.Contains(t, got, "switch Hall/B: skipped")
	assert.Contains(t, got, "back: applied")
	assert.Contains(t, got, `"current": "Hall/A"`)
	assert.Contains(t, got, "unknown command")
	assert.Contains(t, got, "trigger volume not found")
	assert.NotContains(t, got, "Hall/C")
	assert.NotContains(t, got, ">")

	assert.Equal(t, "Hall/A", ex.State().Current)
}

func TestRunner_DescribeUsesRenderer(t *testing.T) {
	ex, _ := newExhibit(t)

	var out bytes.Buffer
	r := exhibit.NewRunner()
	r.Input = strings.NewReader("describe Hall\ndescribe Attic\n")
	r.Output = &out
	r.Headless = true
	r.Renderer = func(s string) (string, error) { return strings.ToUpper(s), nil }
	require.NoError(t, r.Run(context.Background(), ex))

	assert.Contains(t, out.String(), "# HALL")
	assert.Contains(t, out.String(), `unknown region "Attic"`)
}

func TestRunner_Prompt(t *testing.T) {
	ex, _ := newExhibit(t)

	var out bytes.Buffer
	r := exhibit.NewRunner()
	r.Input = strings.NewReader("volumes\n")
	r.Output = &out
	require.NoError(t, r.Run(context.Background(), ex))

	assert.True(t, strings.HasPrefix(out.String(), "--- Museum ---\n> "))
	assert.Contains(t, out.String(), "Hall/A.enter")
}

func TestRunner_RequiresIO(t *testing.T) {
	ex, _ := newExhibit(t)
	assert.Error(t, exhibit.NewRunner().Run(context.Background(), ex))
}
