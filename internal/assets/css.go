package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
)

var sourceMappingURL = regexp.MustCompile(`/\*# sourceMappingURL=[^*]*\*/\s*$`)

// extractCSS writes the stylesheets esbuild produced under the filename
// template of the extract-css plugin. Bundles are merged into one file
// unless the template contains [name]. Purging already happened while
// esbuild loaded each stylesheet.
func (p *Pipeline) extractCSS(ctx context.Context, options buildconfig.Options, bundles []cssBundle, manifest *Manifest) ([]string, error) {
	log := zerolog.Ctx(ctx)

	if len(bundles) == 0 {
		return nil, nil
	}

	template := options.String("filename", "[name].css")
	minify := p.build.Mode == buildconfig.Production

	var sheets []string
	for _, group := range groupBundles(template, bundles) {
		content, err := p.readBundles(group)
		if err != nil {
			return nil, err
		}

		before := len(content)
		if minify {
			if content, err = minifyCSS(content); err != nil {
				return nil, err
			}
		}

		name := ExpandFilename(template, FilenameVars{Name: group[0].entry, Ext: "css", Content: content})
		target := filepath.Join(p.OutputDir(), filepath.FromSlash(name))

		// esbuild's map only describes a single bundle copied as is
		keepMap := p.build.SourceMaps() && len(group) == 1 && !minify
		if keepMap {
			if err := p.moveSourceMap(group[0].path, target); err != nil {
				return nil, err
			}
			content = append(content, []byte(fmt.Sprintf("/*# sourceMappingURL=%s.map */\n", filepath.Base(target)))...)
		}

		for _, b := range group {
			if !keepMap {
				if err := removeIfExists(b.path + ".map"); err != nil {
					return nil, err
				}
			}
			if b.path != target {
				if err := removeIfExists(b.path); err != nil {
					return nil, err
				}
			}
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(target, content, 0o644); err != nil { //nolint:gosec
			return nil, fmt.Errorf("failed to write stylesheet: %w", err)
		}

		log.Info().Str("file", target).Int("bytes", len(content)).Int("before", before).Bool("source_map", keepMap).Msg("Extracted stylesheet")

		manifest.Set(group[0].entry+".css", filepath.ToSlash(name))
		sheets = append(sheets, filepath.ToSlash(name))
	}

	return sheets, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func groupBundles(template string, bundles []cssBundle) [][]cssBundle {
	if strings.Contains(template, "[name]") {
		groups := make([][]cssBundle, 0, len(bundles))
		for _, b := range bundles {
			groups = append(groups, []cssBundle{b})
		}
		return groups
	}
	return [][]cssBundle{bundles}
}

func (p *Pipeline) readBundles(group []cssBundle) ([]byte, error) {
	var buf bytes.Buffer
	for _, b := range group {
		data, err := os.ReadFile(b.path)
		if err != nil {
			return nil, err
		}
		buf.Write(sourceMappingURL.ReplaceAll(data, nil))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// moveSourceMap renames the map esbuild wrote next to a bundle so it follows the stylesheet
func (p *Pipeline) moveSourceMap(bundle, target string) error {
	if bundle == target {
		return nil
	}
	err := os.Rename(bundle+".map", target+".map")
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func minifyCSS(content []byte) ([]byte, error) {
	m := minify.New()
	m.AddFunc("text/css", mincss.Minify)
	return m.Bytes("text/css", content)
}
