package discussions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
discussions:
  - id: the-ferry
    title: The ferry crossing
    chapter: 3
    messages:
      - speaker: Ada
        text: Why did she stay on the deck?
      - speaker: Rui
        text: Because the shore was the thing she feared.
      - speaker: Ada
        text: Then the storm is a relief.
  - id: epilogue
    title: Reading the epilogue
    messages:
      - speaker: Rui
        text: It closes the circle.
`

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	n, ok := c.Length("the-ferry")
	require.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = c.Length("missing")
	assert.False(t, ok)

	d, ok := c.Get("epilogue")
	require.True(t, ok)
	assert.Equal(t, "Rui", d.Messages[0].Speaker)

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "the-ferry", list[0].ID)
	assert.Equal(t, 3, list[0].Chapter)
	assert.Equal(t, 1, list[1].Messages)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad id":        "discussions:\n  - id: Bad ID\n    messages: [{speaker: a, text: b}]\n",
		"duplicate":     "discussions:\n  - id: a\n    messages: [{speaker: a, text: b}]\n  - id: a\n    messages: [{speaker: a, text: b}]\n",
		"no messages":   "discussions:\n  - id: a\n",
		"unknown field": "discussions:\n  - id: a\n    colour: red\n    messages: [{speaker: a, text: b}]\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Empty(t, c.List())

	path := filepath.Join(t.TempDir(), "discussions.yml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	c, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, c.List(), 2)
}
