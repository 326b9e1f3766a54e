package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
)

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	require.NoError(t, enc.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func TestImageminOptionsFrom(t *testing.T) {
	cfg := buildconfig.DefaultPaths("/p")
	rows, err := buildconfig.Candidates("production", cfg)
	require.NoError(t, err)

	plugin, ok := rows[0].Config.Plugin(buildconfig.PluginImagemin)
	require.True(t, ok)

	opts := ImageminOptionsFrom(plugin.Options)
	require.Equal(t, ImageminOptions{Bail: false, JPEGQuality: 80, PNG: true, GIF: true, SVG: true}, opts)
}

func TestOptimizeImages(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "images", "red.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "images", "broken.jpg"), []byte("not a jpeg"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "icon.svg"),
		[]byte(`<svg xmlns="http://www.w3.org/2000/svg"   viewBox="0 0 10 10">
  <!-- comment -->
  <rect x="0" y="0" width="10" height="10" />
</svg>`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.js"), []byte("console.log(1)"), 0o600))

	opts := ImageminOptions{JPEGQuality: 80, PNG: true, GIF: true, SVG: true}

	before, err := os.Stat(filepath.Join(dir, "images", "red.png"))
	require.NoError(t, err)

	report, err := OptimizeImages(context.Background(), dir, opts)
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"images/red.png", "icon.svg"}, report.Optimized)
	require.Equal(t, []string{"images/broken.jpg"}, report.Failed)
	require.Positive(t, report.BytesSaved)

	after, err := os.Stat(filepath.Join(dir, "images", "red.png"))
	require.NoError(t, err)
	require.Less(t, after.Size(), before.Size())

	svg, err := os.ReadFile(filepath.Join(dir, "icon.svg"))
	require.NoError(t, err)
	require.Contains(t, string(svg), "viewBox")
	require.NotContains(t, string(svg), "comment")
}

func TestOptimizeImages_Bail(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("garbage"), 0o600))

	_, err := OptimizeImages(context.Background(), dir, ImageminOptions{Bail: true, PNG: true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken.png")
}

func TestOptimizeImages_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "a.png"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := OptimizeImages(ctx, dir, ImageminOptions{PNG: true})
	require.ErrorIs(t, err, context.Canceled)
}
