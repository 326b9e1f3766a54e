package assets

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
)

// buildOptions translates the build configuration into esbuild options
func (p *Pipeline) buildOptions(ctx context.Context) (api.BuildOptions, error) {
	log := zerolog.Ctx(ctx)

	minify := p.build.Mode == buildconfig.Production

	entryPoints := make([]api.EntryPoint, 0, len(p.build.EntryPoints))
	for _, e := range p.build.EntryPoints {
		entryPoints = append(entryPoints, api.EntryPoint{InputPath: e.Path, OutputPath: e.Name})
	}

	entryNames, err := EntryNames(p.build.Output.Filename)
	if err != nil {
		return api.BuildOptions{}, err
	}

	var engines []api.Engine
	if _, ok := p.build.PostCSSPlugin(buildconfig.PostCSSAutoprefixer); ok && p.build.HasTool(buildconfig.ToolPostCSS) {
		var skipped []string
		engines, skipped = Browsers(p.build.PostCSS.Browsers)
		for _, q := range skipped {
			log.Warn().Str("query", q).Msg("Browser query has no esbuild target, skipped")
		}
	}

	return api.BuildOptions{
		EntryPointsAdvanced: entryPoints,
		AbsWorkingDir:       p.root,
		Bundle:              true,
		Write:               true,
		Outdir:              p.OutputDir(),
		EntryNames:          entryNames,
		AssetNames:          p.assetNames(),
		Loader:              p.loaders(),
		Format:              api.FormatIIFE,
		Target:              cond(p.build.HasTool(buildconfig.ToolTranspile), api.ES2015, api.ESNext),
		Engines:             engines,
		MinifyWhitespace:    minify,
		MinifyIdentifiers:   minify,
		MinifySyntax:        minify,
		TreeShaking:         api.TreeShakingTrue,
		Sourcemap:           cond(p.build.SourceMaps(), api.SourceMapLinked, api.SourceMapNone),
		Define:              map[string]string{"process.env.NODE_ENV": fmt.Sprintf("%q", p.build.Mode)},
		Metafile:            true,
		Plugins:             p.plugins,
		LogLevel:            api.LogLevelSilent,
	}, nil
}

// loaders maps the extensions matched by file and css rules to esbuild loaders
func (p *Pipeline) loaders() map[string]api.Loader {
	loaders := map[string]api.Loader{}
	for _, ext := range p.rules.Extensions(buildconfig.ToolFile) {
		loaders[ext] = api.LoaderFile
	}
	for _, ext := range p.rules.Extensions(buildconfig.ToolCSS) {
		loaders[ext] = api.LoaderCSS
	}
	return loaders
}

// assetNames places files handled by the file step under its outputPath
func (p *Pipeline) assetNames() string {
	step, ok := p.build.Step(buildconfig.ToolFile)
	if !ok {
		return ""
	}
	name := strings.TrimSuffix(step.Options.String("name", "[name]-[hash]"), ".[ext]")
	return path.Join(step.Options.String("outputPath", ""), replaceHashTokens(name))
}

// EntryNames converts an output filename template into an esbuild entry
// names template: the extension is dropped and every hash token becomes
// esbuild's content hash.
func EntryNames(filename string) (string, error) {
	if !strings.Contains(filename, "[name]") {
		return "", fmt.Errorf("output filename %q must contain [name]", filename)
	}
	name := strings.TrimSuffix(filename, path.Ext(filename))
	return replaceHashTokens(name), nil
}

func replaceHashTokens(s string) string {
	return strings.NewReplacer(
		"[contenthash]", "[hash]",
		"[chunkhash]", "[hash]",
	).Replace(s)
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}
