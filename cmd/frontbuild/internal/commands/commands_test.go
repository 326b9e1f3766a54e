package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
	"github.com/wolfeidau/frontbuild/internal/devserver"
	"gopkg.in/yaml.v3"
)

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"src/index.js":   "import './style.css';\nconsole.log('ready');\n",
		"src/style.css":  ".app { color: red; }\n",
		"src/index.html": `<html><head></head><body><div class="app"></div></body></html>`,
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return root
}

func project(root string) ProjectFlags {
	return ProjectFlags{Root: root, Src: "src", Dist: "dist"}
}

func TestProjectFlags_Paths(t *testing.T) {
	root := t.TempDir()
	pathsFile := filepath.Join(root, "paths.yaml")
	require.NoError(t, os.WriteFile(pathsFile, []byte("src_path: app\nprod_path: public\n"), 0o600))

	tests := []struct {
		name    string
		flags   ProjectFlags
		want    buildconfig.Paths
		wantErr bool
	}{
		{
			name:  "flags",
			flags: ProjectFlags{Root: root, Src: "web", Dist: "out"},
			want:  buildconfig.Paths{Root: root, Src: "web", Dist: "out"},
		},
		{
			name:  "paths file wins over flags",
			flags: ProjectFlags{Root: root, Src: "web", Dist: "out", PathsFile: pathsFile},
			want:  buildconfig.Paths{Root: root, Src: "app", Dist: "public"},
		},
		{
			name:    "same source and output",
			flags:   ProjectFlags{Root: root, Src: "src", Dist: "./src"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.paths()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildCmd_UnknownMode(t *testing.T) {
	root := writeProject(t)

	cmd := &BuildCmd{Mode: "staging", Project: project(root)}
	err := cmd.Run(context.Background(), &Globals{})

	var notFound *buildconfig.ConfigNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "staging", notFound.Mode)
	assert.NoDirExists(t, filepath.Join(root, "dist"))
}

func TestBuildCmd_MissingMode(t *testing.T) {
	cmd := &BuildCmd{Project: project(writeProject(t))}
	err := cmd.Run(context.Background(), &Globals{})

	var notFound *buildconfig.ConfigNotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestBuildCmd_Development(t *testing.T) {
	root := writeProject(t)

	cmd := &BuildCmd{
		Mode:    "development",
		Project: project(root),
		Assets:  AssetFlags{Manifest: "manifest.json"},
	}
	require.NoError(t, cmd.Run(context.Background(), &Globals{Debug: true}))

	for _, name := range []string{"main.js", "style.css", "index.html", "manifest.json"} {
		assert.FileExists(t, filepath.Join(root, "dist", name))
	}
}

func TestBuildCmd_BuildError(t *testing.T) {
	root := writeProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "index.js"), []byte("let = ;"), 0o600))

	cmd := &BuildCmd{Mode: "development", Project: project(root)}
	require.Error(t, cmd.Run(context.Background(), &Globals{}))
}

func TestConfigCmd(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name       string
		mode       string
		candidates bool
		check      func(t *testing.T, out []byte)
	}{
		{
			name: "development",
			mode: "development",
			check: func(t *testing.T, out []byte) {
				var doc map[string]any
				require.NoError(t, yaml.Unmarshal(out, &doc))
				assert.Equal(t, "development", doc["mode"])
				assert.Equal(t, "config.development", doc["source"])
				assert.Equal(t, "[name].js", doc["output"].(map[string]any)["filename"])
			},
		},
		{
			name:       "production candidates",
			mode:       "production",
			candidates: true,
			check: func(t *testing.T, out []byte) {
				var rows []map[string]any
				require.NoError(t, yaml.Unmarshal(out, &rows))
				require.Len(t, rows, 2)
				assert.Equal(t, "canonical", rows[0]["name"])
				assert.Equal(t, true, rows[0]["canonical"])
				assert.Equal(t, "superseded", rows[1]["name"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cmd := &ConfigCmd{Mode: tt.mode, Candidates: tt.candidates, Project: project(root), Out: &buf}
			require.NoError(t, cmd.Run(context.Background(), &Globals{}))
			tt.check(t, buf.Bytes())
		})
	}
}

func TestConfigCmd_UnknownMode(t *testing.T) {
	var buf bytes.Buffer
	cmd := &ConfigCmd{Mode: "test", Project: project(t.TempDir()), Out: &buf}

	var notFound *buildconfig.ConfigNotFoundError
	require.True(t, errors.As(cmd.Run(context.Background(), &Globals{}), &notFound))
	assert.Empty(t, buf.String())
}

func TestServeCmd_Options(t *testing.T) {
	base := devserver.Options{Host: "localhost", Port: 8080, Open: true, LiveReload: true}

	tests := []struct {
		name string
		cmd  ServeCmd
		want devserver.Options
	}{
		{
			name: "configuration port",
			cmd:  ServeCmd{Host: "localhost"},
			want: base,
		},
		{
			name: "overrides",
			cmd:  ServeCmd{Host: "0.0.0.0", Port: 9000, NoOpen: true},
			want: devserver.Options{Host: "0.0.0.0", Port: 9000, LiveReload: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.options(base))
		})
	}
}
