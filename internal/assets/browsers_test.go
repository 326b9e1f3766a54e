package assets

import (
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/require"
)

func TestBrowsers(t *testing.T) {
	engines, skipped := Browsers([]string{"> 0.25%", "ie >= 11"})
	require.Equal(t, []string{"ie >= 11"}, skipped)
	require.Len(t, engines, len(baselineEngines))

	for _, e := range engines {
		require.NotEqual(t, api.EngineIE, e.Name)
	}
}

func TestBrowsers_Versions(t *testing.T) {
	tests := []struct {
		name     string
		queries  []string
		expected []api.Engine
		skipped  []string
	}{
		{
			name:     "explicit minimum",
			queries:  []string{"safari >= 12"},
			expected: []api.Engine{{Name: api.EngineSafari, Version: "12"}},
		},
		{
			name:     "greater than bumps major",
			queries:  []string{"Firefox > 60"},
			expected: []api.Engine{{Name: api.EngineFirefox, Version: "61"}},
		},
		{
			name:     "lowest version wins",
			queries:  []string{"chrome >= 90", "chrome >= 70.1"},
			expected: []api.Engine{{Name: api.EngineChrome, Version: "70.1"}},
		},
		{
			name:    "unknown browser",
			queries: []string{"netscape >= 4", "not dead"},
			skipped: []string{"netscape >= 4", "not dead"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engines, skipped := Browsers(tt.queries)
			if tt.expected == nil {
				require.Empty(t, engines)
			} else {
				require.Equal(t, tt.expected, engines)
			}
			require.Equal(t, tt.skipped, skipped)
		})
	}
}

func TestVersionLess(t *testing.T) {
	require.True(t, versionLess("9", "10"))
	require.True(t, versionLess("10.1", "10.2"))
	require.False(t, versionLess("10", "10.0"))
	require.False(t, versionLess("11", "10.9"))
}
