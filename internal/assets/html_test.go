package assets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const pageTemplate = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <link rel="icon" href="favicon.png">
  </head>
  <body>
    <img src="images/logo.png" alt="logo">
    <img src="https://cdn.example.com/remote.png">
    <img src="data:image/png;base64,AAAA">
  </body>
</html>`

func TestRenderHTML(t *testing.T) {
	var resolved []string
	page, err := RenderHTML([]byte(pageTemplate), HTMLOptions{
		Attrs:       []string{"img:src", "link:href"},
		Scripts:     []string{"main.js"},
		Stylesheets: []string{"style.css"},
		Title:       "Home",
		Resolve: func(ref string) (string, bool, error) {
			resolved = append(resolved, ref)
			return "images/out-" + strings.TrimPrefix(ref, "images/"), true, nil
		},
	})
	require.NoError(t, err)

	out := string(page)
	require.Equal(t, []string{"images/logo.png", "favicon.png"}, resolved)
	require.Contains(t, out, `src="images/out-logo.png"`)
	require.Contains(t, out, `href="images/out-favicon.png"`)
	require.Contains(t, out, `src="https://cdn.example.com/remote.png"`)
	require.Contains(t, out, `<title>Home</title>`)
	require.Contains(t, out, `<link href="style.css" rel="stylesheet"/>`)
	require.Contains(t, out, `<script src="main.js"></script>`)
	require.Less(t, strings.Index(out, "style.css"), strings.Index(out, "</head>"))
	require.Less(t, strings.Index(out, "main.js"), strings.Index(out, "</body>"))
}

func TestRenderHTML_Minify(t *testing.T) {
	plain, err := RenderHTML([]byte(pageTemplate), HTMLOptions{Scripts: []string{"main.js"}})
	require.NoError(t, err)

	minified, err := RenderHTML([]byte(pageTemplate), HTMLOptions{Scripts: []string{"main.js"}, Minify: true})
	require.NoError(t, err)

	require.Less(t, len(minified), len(plain))
	require.Contains(t, string(minified), "main.js")
	require.Contains(t, string(minified), "</body>")
}

func TestRenderHTML_InvalidAttr(t *testing.T) {
	_, err := RenderHTML([]byte(pageTemplate), HTMLOptions{
		Attrs:   []string{"img"},
		Resolve: func(string) (string, bool, error) { return "", false, nil },
	})
	require.Error(t, err)
}

func TestIsLocalReference(t *testing.T) {
	tests := []struct {
		ref      string
		expected bool
	}{
		{ref: "images/a.png", expected: true},
		{ref: "./a.png", expected: true},
		{ref: "../shared/a.png", expected: true},
		{ref: "/static/a.png", expected: false},
		{ref: "//cdn.example.com/a.png", expected: false},
		{ref: "https://example.com/a.png", expected: false},
		{ref: "data:image/png;base64,AA", expected: false},
		{ref: "#top", expected: false},
		{ref: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			require.Equal(t, tt.expected, isLocalReference(tt.ref))
		})
	}
}
