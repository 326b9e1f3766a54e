package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
	"github.com/wolfeidau/frontbuild/internal/logger"
)

type Globals struct {
	Debug   bool
	Version string
}

// ProjectFlags locate the project and its source and output directories.
type ProjectFlags struct {
	Root      string `help:"project root directory" default:"." env:"FRONTBUILD_ROOT"`
	Src       string `help:"source directory, relative to the root" default:"src" env:"FRONTBUILD_SRC"`
	Dist      string `help:"output directory, relative to the root" default:"dist" env:"FRONTBUILD_DIST"`
	PathsFile string `help:"YAML path definitions file (src_path, prod_path), overrides --src and --dist" type:"path" env:"FRONTBUILD_PATHS_FILE"`
}

func (p ProjectFlags) paths() (buildconfig.Paths, error) {
	root, err := filepath.Abs(p.Root)
	if err != nil {
		return buildconfig.Paths{}, fmt.Errorf("failed to resolve root: %w", err)
	}

	if p.PathsFile != "" {
		return buildconfig.LoadPaths(root, p.PathsFile)
	}

	paths := buildconfig.Paths{Root: root, Src: p.Src, Dist: p.Dist}
	if err := paths.Validate(); err != nil {
		return buildconfig.Paths{}, err
	}
	return paths, nil
}

// selectConfig resolves the flags and mode into a build configuration, with
// the logger attached to the returned context.
func selectConfig(ctx context.Context, globals *Globals, project ProjectFlags, mode string) (context.Context, *buildconfig.BuildConfig, error) {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	paths, err := project.paths()
	if err != nil {
		return ctx, nil, err
	}

	cfg, err := buildconfig.Select(ctx, mode, paths)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Unable to select build configuration")
		return ctx, nil, err
	}

	return ctx, cfg, nil
}
