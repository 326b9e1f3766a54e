package assets

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
)

// BuildMetadata is the part of the esbuild metafile the pipeline reads
type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	Bytes      int          `json:"bytes"`
	EntryPoint string       `json:"entryPoint"`
	CSSBundle  string       `json:"cssBundle"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// Result describes the files written by one build.
type Result struct {
	// Entry bundles keyed by entry point name, paths relative to the output directory
	Scripts map[string]string
	// Extracted stylesheets relative to the output directory, in entry point order
	Stylesheets []string
	// HTML page relative to the output directory
	HTML string
	// Logical name to emitted file
	Manifest *Manifest
	// Image optimization summary, nil when imagemin is not configured
	Images *ImageReport
	// Warnings reported by esbuild
	Warnings []string
}

// Pipeline runs a build configuration through esbuild and the post-build plugins
type Pipeline struct {
	build    *buildconfig.BuildConfig
	config   Config
	rules    buildconfig.Rules
	root     string
	metadata *BuildMetadata
	plugins  []api.Plugin
	mu       sync.Mutex
}

// New creates a new asset pipeline for the given build configuration
func New(build *buildconfig.BuildConfig, config Config) (*Pipeline, error) {
	rules, err := buildconfig.CompileRules(build.Rules)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cond(build.Root == "", ".", build.Root))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	p := &Pipeline{
		build:  build,
		config: config,
		rules:  rules,
		root:   root,
	}

	var purge *purger
	if plugin, ok := build.PostCSSPlugin(buildconfig.PostCSSPurge); ok && build.HasTool(buildconfig.ToolPostCSS) {
		purge = &purger{root: root, patterns: plugin.Options.Strings("content"), rules: rules}
		p.plugins = append(p.plugins, purge.plugin())
	}

	if step, ok := build.Step(buildconfig.ToolSass); ok {
		p.plugins = append(p.plugins, sassPlugin(config, step.Options.Bool("sourceMap", false), purge))
	}

	return p, nil
}

// BuildConfig returns the configuration the pipeline was created with
func (p *Pipeline) BuildConfig() *buildconfig.BuildConfig {
	return p.build
}

// OutputDir returns the absolute output directory
func (p *Pipeline) OutputDir() string {
	return p.abs(p.build.Output.Path)
}

// SrcDirs returns the directories holding entry points and templates
func (p *Pipeline) SrcDirs() []string {
	seen := map[string]bool{}
	var dirs []string
	for _, e := range p.build.EntryPoints {
		dir := filepath.Dir(p.abs(e.Path))
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func (p *Pipeline) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(p.root, path)
}
