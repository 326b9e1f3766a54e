package commands

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/frontbuild/internal/assets"
)

type AssetFlags struct {
	Sass        string        `help:"Dart Sass executable, looked up on PATH when empty" env:"FRONTBUILD_SASS"`
	SassTimeout time.Duration `help:"timeout for a single Sass compilation" default:"30s"`
	Manifest    string        `help:"manifest file name written to the output directory, empty disables it" default:"manifest.json"`
	Title       string        `help:"page title used when the HTML template has none"`
}

func (a AssetFlags) config() assets.Config {
	cfg := assets.DefaultConfig()
	cfg.SassBinary = a.Sass
	if a.SassTimeout > 0 {
		cfg.SassTimeout = a.SassTimeout
	}
	cfg.ManifestName = a.Manifest
	cfg.Title = a.Title
	return cfg
}

type BuildCmd struct {
	Mode    string       `help:"build mode (development, production)" env:"NODE_ENV"`
	Project ProjectFlags `embed:""`
	Assets  AssetFlags   `embed:""`
}

func (b *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, cfg, err := selectConfig(ctx, globals, b.Project, b.Mode)
	if err != nil {
		return err
	}

	pipeline, err := assets.New(cfg, b.Assets.config())
	if err != nil {
		return err
	}

	started := time.Now()
	res, err := pipeline.Build(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Build failed")
		return err
	}

	ev := zerolog.Ctx(ctx).Info().
		Str("mode", string(cfg.Mode)).
		Str("output", pipeline.OutputDir()).
		Int("files", res.Manifest.Len()).
		Dur("duration", time.Since(started))
	if res.Images != nil {
		ev = ev.Int("images_optimized", len(res.Images.Optimized)).
			Int("images_failed", len(res.Images.Failed))
	}
	ev.Msg("Build finished")

	return nil
}
