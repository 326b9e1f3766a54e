package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/wolfeidau/frontbuild/internal/buildconfig"
	"gopkg.in/yaml.v3"
)

type ConfigCmd struct {
	Mode       string       `help:"build mode (development, production)" env:"NODE_ENV"`
	Candidates bool         `help:"print every known definition for the mode, not only the selected one"`
	Project    ProjectFlags `embed:""`

	Out io.Writer `kong:"-"`
}

func (c *ConfigCmd) Run(ctx context.Context, globals *Globals) error {
	_, cfg, err := selectConfig(ctx, globals, c.Project, c.Mode)
	if err != nil {
		return err
	}

	var doc any = cfg
	if c.Candidates {
		paths, err := c.Project.paths()
		if err != nil {
			return err
		}
		rows, err := buildconfig.Candidates(string(cfg.Mode), paths)
		if err != nil {
			return err
		}
		doc = rows
	}

	out := c.Out
	if out == nil {
		out = os.Stdout
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}
