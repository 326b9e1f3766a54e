package assets

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bep/godartsass/v2"
	"github.com/evanw/esbuild/pkg/api"
)

const defaultSassBinary = "sass"

// sassPlugin compiles .sass and .scss imports with Dart Sass before esbuild
// parses them as CSS. One Dart Sass process serves a whole build. When purge
// is set the compiled CSS is purged and the Dart Sass source map, which no
// longer matches it, is left out.
func sassPlugin(config Config, sourceMap bool, purge *purger) api.Plugin {
	return api.Plugin{
		Name: "sass",
		Setup: func(build api.PluginBuild) {
			var (
				mu         sync.Mutex
				transpiler *godartsass.Transpiler
			)

			start := func() (*godartsass.Transpiler, error) {
				mu.Lock()
				defer mu.Unlock()

				if transpiler == nil {
					t, err := godartsass.Start(godartsass.Options{
						DartSassEmbeddedFilename: cond(config.SassBinary == "", defaultSassBinary, config.SassBinary),
						Timeout:                  config.SassTimeout,
					})
					if err != nil {
						return nil, fmt.Errorf("failed to start dart sass: %w", err)
					}
					transpiler = t
				}
				return transpiler, nil
			}

			// OnLoad callbacks run concurrently
			build.OnLoad(api.OnLoadOptions{Filter: `\.(sass|scss)$`}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				t, err := start()
				if err != nil {
					return api.OnLoadResult{}, fmt.Errorf("%s: %w", args.Path, err)
				}

				contents, err := compileSass(t, args.Path, sourceMap, purge)
				if err != nil {
					return api.OnLoadResult{}, err
				}

				return api.OnLoadResult{
					Contents:   &contents,
					Loader:     api.LoaderCSS,
					ResolveDir: filepath.Dir(args.Path),
				}, nil
			})

			build.OnEnd(func(*api.BuildResult) (api.OnEndResult, error) {
				mu.Lock()
				defer mu.Unlock()

				if transpiler != nil {
					err := transpiler.Close()
					transpiler = nil
					return api.OnEndResult{}, err
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}

func compileSass(transpiler *godartsass.Transpiler, path string, sourceMap bool, purge *purger) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	res, err := transpiler.Execute(godartsass.Args{
		Source:          string(src),
		URL:             "file://" + filepath.ToSlash(path),
		IncludePaths:    []string{filepath.Dir(path)},
		SourceSyntax:    cond(strings.HasSuffix(path, ".sass"), godartsass.SourceSyntaxSASS, godartsass.SourceSyntaxSCSS),
		OutputStyle:     godartsass.OutputStyleExpanded,
		EnableSourceMap: sourceMap,
	})
	if err != nil {
		return "", fmt.Errorf("sass: %s: %w", path, err)
	}

	css := res.CSS
	if purge != nil && purge.applies(path) {
		purged, err := purge.purge([]byte(css))
		if err != nil {
			return "", fmt.Errorf("purge %s: %w", path, err)
		}
		return string(purged), nil
	}

	if sourceMap && res.SourceMap != "" {
		css += "\n/*# sourceMappingURL=data:application/json;base64," +
			base64.StdEncoding.EncodeToString([]byte(res.SourceMap)) + " */\n"
	}
	return css, nil
}
