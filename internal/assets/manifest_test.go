package assets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func readManifest(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries map[string]string
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func TestManifest(t *testing.T) {
	m := NewManifest()
	m.Set("main.js", "main.abc123.js")
	m.Set("style.css", "style.def456.css")
	m.Set("main.js", "main.fff000.js")

	require.Equal(t, 2, m.Len())

	got, ok := m.Lookup("main.js")
	require.True(t, ok)
	require.Equal(t, "main.fff000.js", got)

	_, ok = m.Lookup("other.js")
	require.False(t, ok)

	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, m.Write(path))
	require.Equal(t, map[string]string{
		"main.js":   "main.fff000.js",
		"style.css": "style.def456.css",
	}, readManifest(t, path))
}
