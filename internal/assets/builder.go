package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
)

// Build runs esbuild with the configured settings followed by the post-build plugins
func (p *Pipeline) Build(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	log := zerolog.Ctx(ctx)

	if len(p.build.EntryPoints) == 0 {
		return nil, ErrNoEntryPoints
	}

	outDir := p.OutputDir()

	if plugin, ok := p.build.Plugin(buildconfig.PluginClean); ok {
		if err := p.clean(outDir, plugin.Options); err != nil {
			return nil, err
		}
		log.Debug().Str("dir", outDir).Msg("Cleaned output directory")
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	options, err := p.buildOptions(ctx)
	if err != nil {
		return nil, err
	}

	entryPoints := make([]string, 0, len(p.build.EntryPoints))
	for _, e := range p.build.EntryPoints {
		entryPoints = append(entryPoints, e.Path)
	}
	log.Info().Strs("entrypoints", entryPoints).Str("mode", string(p.build.Mode)).Msg("Building assets")

	result := api.Build(options)

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("error", formatMessage(msg)).Msg("Build error")
		}
		return nil, newBuildError(result.Errors)
	}

	res := &Result{
		Scripts:  map[string]string{},
		Manifest: NewManifest(),
	}

	for _, msg := range result.Warnings {
		log.Warn().Str("warning", formatMessage(msg)).Msg("Build warning")
		res.Warnings = append(res.Warnings, formatMessage(msg))
	}

	for _, file := range result.OutputFiles {
		log.Info().Str("file", file.Path).Msg("Built file")
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}
	p.metadata = &metadata

	bundles, err := p.collectOutputs(res)
	if err != nil {
		return nil, err
	}

	for _, plugin := range p.build.Plugins {
		switch plugin.Name {
		case buildconfig.PluginClean:
			// runs before bundling
		case buildconfig.PluginExtractCSS:
			sheets, err := p.extractCSS(ctx, plugin.Options, bundles, res.Manifest)
			if err != nil {
				return nil, fmt.Errorf("extract-css: %w", err)
			}
			res.Stylesheets = sheets
		case buildconfig.PluginHTML:
			page, err := p.renderHTML(ctx, plugin.Options, res)
			if err != nil {
				return nil, fmt.Errorf("html: %w", err)
			}
			res.HTML = page
		case buildconfig.PluginImagemin:
			report, err := OptimizeImages(ctx, outDir, ImageminOptionsFrom(plugin.Options))
			if err != nil {
				return nil, fmt.Errorf("imagemin: %w", err)
			}
			res.Images = report
		default:
			return nil, fmt.Errorf("unknown plugin %q", plugin.Name)
		}
	}

	if p.config.ManifestName != "" {
		if err := res.Manifest.Write(filepath.Join(outDir, p.config.ManifestName)); err != nil {
			return nil, fmt.Errorf("failed to write manifest: %w", err)
		}
	}

	return res, nil
}

// cssBundle is a stylesheet esbuild emitted for an entry point
type cssBundle struct {
	entry string
	path  string
}

// collectOutputs maps entry points to their emitted scripts and stylesheets
func (p *Pipeline) collectOutputs(res *Result) ([]cssBundle, error) {
	names := map[string]string{}
	for _, e := range p.build.EntryPoints {
		names[p.metaPath(p.abs(e.Path))] = e.Name
	}

	var bundles []cssBundle
	seen := map[string]bool{}
	addBundle := func(entry, path string) {
		if !seen[path] {
			seen[path] = true
			bundles = append(bundles, cssBundle{entry: entry, path: path})
		}
	}

	for outputPath, info := range p.metadata.Outputs {
		name, ok := names[info.EntryPoint]
		if !ok || strings.HasSuffix(outputPath, ".map") {
			continue
		}

		rel, err := p.outputRel(outputPath)
		if err != nil {
			return nil, err
		}

		switch filepath.Ext(outputPath) {
		case ".js":
			res.Scripts[name] = rel
			res.Manifest.Set(name+".js", rel)
		case ".css":
			addBundle(name, p.abs(outputPath))
		}

		if info.CSSBundle != "" {
			addBundle(name, p.abs(info.CSSBundle))
		}
	}

	order := map[string]int{}
	for i, e := range p.build.EntryPoints {
		order[e.Name] = i
	}
	sort.SliceStable(bundles, func(i, j int) bool {
		return order[bundles[i].entry] < order[bundles[j].entry]
	})

	return bundles, nil
}

// metaPath converts an absolute path into the form used in the metafile
func (p *Pipeline) metaPath(path string) string {
	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// clean removes the output directory, refusing anything outside the configured root
func (p *Pipeline) clean(outDir string, options buildconfig.Options) error {
	root := p.abs(options.String("root", p.root))

	rel, err := filepath.Rel(root, outDir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to clean %s: not inside %s", outDir, root)
	}

	if err := os.RemoveAll(outDir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clean output directory: %w", err)
	}
	return nil
}

// entryScripts returns the scripts an entry point needs relative to the
// output directory, imported chunks before the entry bundle itself.
func (p *Pipeline) entryScripts(entry buildconfig.EntryPoint) ([]string, error) {
	if p.metadata == nil {
		return nil, errors.New("assets not built yet")
	}

	want := p.metaPath(p.abs(entry.Path))

	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint != want || filepath.Ext(outputPath) != ".js" {
			continue
		}

		var scripts []string
		visited := map[string]bool{outputPath: true}
		p.addImports(info, visited, &scripts)

		rel, err := p.outputRel(outputPath)
		if err != nil {
			return nil, err
		}
		return append(scripts, rel), nil
	}

	return nil, fmt.Errorf("entry point %s not found in metafile", entry.Name)
}

// addImports walks the chunks imported by output depth first so that every
// chunk is listed after its own imports.
func (p *Pipeline) addImports(output OutputInfo, visited map[string]bool, scripts *[]string) {
	for _, imp := range output.Imports {
		if visited[imp.Path] {
			continue
		}
		visited[imp.Path] = true

		chunk, ok := p.metadata.Outputs[imp.Path]
		if !ok || filepath.Ext(imp.Path) != ".js" {
			continue
		}
		p.addImports(chunk, visited, scripts)

		if rel, err := p.outputRel(imp.Path); err == nil {
			*scripts = append(*scripts, rel)
		}
	}
}

// outputRel converts a metafile output path into a slash separated path
// relative to the output directory.
func (p *Pipeline) outputRel(outputPath string) (string, error) {
	rel, err := filepath.Rel(p.OutputDir(), p.abs(filepath.FromSlash(outputPath)))
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
