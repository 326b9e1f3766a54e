package buildconfig

func development(paths Paths) *BuildConfig {
	return &BuildConfig{
		Mode:   Development,
		Source: Development.source(),
		Root:   paths.Root,
		EntryPoints: []EntryPoint{
			{Name: "main", Path: paths.relSrc("index.js")},
		},
		Output: Output{
			Path:     paths.OutputDir(),
			Filename: "[name].js",
		},
		DevTool: "source-map",
		DevServer: &DevServer{
			Open:       true,
			LiveReload: true,
			Port:       8080,
		},
		Rules: []Rule{
			htmlRule(),
			{
				Test: `\.(sass|scss|css)$`,
				Chain: []Step{
					{Tool: ToolExtractCSS, Options: Options{"hmr": true, "reloadAll": true}},
					{Tool: ToolCSS, Options: Options{"sourceMap": true}},
					{Tool: ToolPostCSS, Options: Options{"sourceMap": true}},
					{Tool: ToolSass, Options: Options{"sourceMap": true}},
				},
			},
			imageRule(),
		},
		Plugins: []Plugin{
			{Name: PluginExtractCSS, Options: Options{"filename": "style.css"}},
			{Name: PluginHTML, Options: Options{"template": paths.relSrc("index.html")}},
		},
		PostCSS: postcss(),
	}
}

// htmlRule resolves <img src> and <link href> references in HTML templates.
func htmlRule() Rule {
	return Rule{
		Test: `\.html$`,
		Chain: []Step{
			{Tool: ToolHTML, Options: Options{"attrs": []string{"img:src", "link:href"}}},
		},
	}
}

// imageRule copies images into the images/ output directory.
func imageRule() Rule {
	return Rule{
		Test: `(?i)\.(png|jpe?g|gif|svg)$`,
		Chain: []Step{
			{Tool: ToolFile, Options: Options{"outputPath": "images"}},
		},
	}
}

func postcss() PostCSS {
	return PostCSS{
		Plugins: []Plugin{
			{Name: PostCSSAutoprefixer},
			{Name: PostCSSPurge, Options: Options{"content": []string{"./**/*.html"}}},
		},
		Browsers: []string{"> 0.25%", "ie >= 11"},
	}
}
