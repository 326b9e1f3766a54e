package commands

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/frontbuild/internal/assets"
	"github.com/wolfeidau/frontbuild/internal/devserver"
)

type ServeCmd struct {
	Mode     string        `help:"build mode (development, production)" default:"development" env:"NODE_ENV"`
	Host     string        `help:"listen host" default:"localhost" env:"FRONTBUILD_HOST"`
	Port     int           `help:"listen port, the devServer port of the configuration when zero" default:"0" env:"FRONTBUILD_PORT"`
	NoOpen   bool          `help:"do not open a browser even when the configuration asks for it"`
	Debounce time.Duration `help:"delay before rebuilding after a change" default:"100ms"`
	Project  ProjectFlags  `embed:""`
	Assets   AssetFlags    `embed:""`
}

func (s *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, cfg, err := selectConfig(ctx, globals, s.Project, s.Mode)
	if err != nil {
		return err
	}
	log := zerolog.Ctx(ctx)

	pipeline, err := assets.New(cfg, s.Assets.config())
	if err != nil {
		return err
	}

	// a broken first build still starts the server so fixes get picked up
	if _, err := pipeline.Build(ctx); err != nil {
		log.Error().Err(err).Msg("Initial build failed")
	}

	return devserver.New(pipeline, s.options(devserver.OptionsFrom(cfg)), *log).Run(ctx)
}

func (s *ServeCmd) options(opts devserver.Options) devserver.Options {
	opts.Host = s.Host
	if s.Port != 0 {
		opts.Port = s.Port
	}
	if s.NoOpen {
		opts.Open = false
	}
	opts.Debounce = s.Debounce
	return opts
}
