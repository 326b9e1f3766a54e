package buildconfig

func production(paths Paths) *BuildConfig {
	return &BuildConfig{
		Mode:   Production,
		Source: Production.source(),
		Root:   paths.Root,
		EntryPoints: []EntryPoint{
			{Name: "main", Path: paths.relSrc("index.js")},
		},
		Output: Output{
			Path:     paths.OutputDir(),
			Filename: "[name].[contenthash].js",
		},
		Rules: []Rule{
			{
				Test:    `\.js$`,
				Exclude: `node_modules`,
				Chain: []Step{
					{Tool: ToolTranspile, Options: Options{
						"presets": []any{[]any{"env", Options{"useBuiltIns": "entry"}}},
					}},
				},
			},
			htmlRule(),
			{
				Test: `\.(sass|scss|css)$`,
				Chain: []Step{
					{Tool: ToolExtractCSS},
					{Tool: ToolCSS},
					{Tool: ToolPostCSS},
					{Tool: ToolSass},
				},
			},
			imageRule(),
		},
		Plugins: []Plugin{
			{Name: PluginClean, Options: Options{"root": paths.Root}},
			{Name: PluginExtractCSS, Options: Options{"filename": "style.[contenthash].css"}},
			{Name: PluginHTML, Options: Options{"template": paths.relSrc("index.html"), "minify": true}},
			imagemin(),
		},
		PostCSS: postcss(),
	}
}

// productionBuildHash is the second production definition found in the
// history of the project. It hashes per build instead of per file and does
// not minify HTML. Kept as a candidate until one of the two is retired.
func productionBuildHash(paths Paths) *BuildConfig {
	cfg := production(paths)
	cfg.Output.Filename = "[name].[hash].js"
	cfg.Plugins = []Plugin{
		{Name: PluginClean, Options: Options{"root": paths.Root}},
		{Name: PluginExtractCSS, Options: Options{"filename": "style.[hash].css"}},
		{Name: PluginHTML, Options: Options{"template": paths.relSrc("index.html")}},
		imagemin(),
	}
	return cfg
}

// imagemin ignores corrupted images rather than failing the build.
func imagemin() Plugin {
	return Plugin{
		Name: PluginImagemin,
		Options: Options{
			"bail": false,
			"plugins": []Plugin{
				{Name: "gifsicle", Options: Options{"interlaced": true}},
				{Name: "mozjpeg", Options: Options{"quality": 80, "progressive": true}},
				{Name: "pngquant", Options: Options{"strip": true}},
				{Name: "svgo", Options: Options{"removeViewBox": false}},
			},
		},
	}
}
