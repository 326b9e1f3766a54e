package assets

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupSassProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"src/index.js":     "import './theme.scss';\nconsole.log('ready');\n",
		"src/_colors.scss": "$accent: #ff0000;\n",
		"src/theme.scss":   "@use 'colors';\n\n.card {\n  .title { color: colors.$accent; }\n}\n.orphan { color: blue; }\n",
		"src/index.html":   `<html><head></head><body><div class="card"><h1 class="title">x</h1></div></body></html>`,
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return root
}

func TestPipeline_BuildSass(t *testing.T) {
	sass, err := exec.LookPath("sass")
	if err != nil {
		t.Skip("dart sass not installed")
	}

	for _, mode := range []string{"development", "production"} {
		t.Run(mode, func(t *testing.T) {
			root := setupSassProject(t)

			cfg := newTestPipeline(t, mode, root).BuildConfig()
			config := DefaultConfig()
			config.SassBinary = sass

			p, err := New(cfg, config)
			require.NoError(t, err)

			res, err := p.Build(context.Background())
			require.NoError(t, err)
			require.Len(t, res.Stylesheets, 1)

			css := readOutput(t, root, res.Stylesheets[0])
			require.Regexp(t, `\.card \.title\s*\{\s*color:\s*(#ff0000|#f00|red)`, css)
			require.NotContains(t, css, "orphan")
			require.NotContains(t, css, "$accent")
		})
	}
}

func TestPipeline_SassMissingBinary(t *testing.T) {
	root := setupSassProject(t)

	cfg := newTestPipeline(t, "development", root).BuildConfig()
	config := DefaultConfig()
	config.SassBinary = filepath.Join(root, "no-such-sass")

	p, err := New(cfg, config)
	require.NoError(t, err)

	_, err = p.Build(context.Background())

	var buildErr *BuildError
	require.True(t, errors.As(err, &buildErr))
	require.Contains(t, err.Error(), "theme.scss")
}
