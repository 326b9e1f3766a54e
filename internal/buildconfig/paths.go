package buildconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSrcPath  = "src"
	DefaultProdPath = "dist"
)

// Paths locates the source tree and the build output relative to Root.
type Paths struct {
	Root string `yaml:"-"`
	Src  string `yaml:"src_path"`
	Dist string `yaml:"prod_path"`
}

// DefaultPaths returns the layout used when no path definitions are given.
func DefaultPaths(root string) Paths {
	return Paths{
		Root: root,
		Src:  DefaultSrcPath,
		Dist: DefaultProdPath,
	}
}

// LoadPaths reads a YAML path definitions file. Keys missing from the file
// keep their default values.
func LoadPaths(root, file string) (Paths, error) {
	paths := DefaultPaths(root)

	data, err := os.ReadFile(file)
	if err != nil {
		return Paths{}, fmt.Errorf("failed to read path definitions: %w", err)
	}

	if err := yaml.Unmarshal(data, &paths); err != nil {
		return Paths{}, fmt.Errorf("failed to parse path definitions %s: %w", file, err)
	}

	if err := paths.Validate(); err != nil {
		return Paths{}, fmt.Errorf("invalid path definitions %s: %w", file, err)
	}

	return paths, nil
}

func (p Paths) Validate() error {
	if p.Src == "" {
		return errors.New("src_path must not be empty")
	}
	if p.Dist == "" {
		return errors.New("prod_path must not be empty")
	}
	if filepath.Clean(p.Src) == filepath.Clean(p.Dist) {
		return errors.New("src_path and prod_path must differ")
	}
	return nil
}

// SrcDir is the source directory joined to Root.
func (p Paths) SrcDir() string {
	return filepath.Join(p.Root, p.Src)
}

// OutputDir is the output directory joined to Root.
func (p Paths) OutputDir() string {
	return filepath.Join(p.Root, p.Dist)
}

// relSrc returns a "./"-prefixed path inside the source tree.
func (p Paths) relSrc(name string) string {
	return "./" + filepath.ToSlash(filepath.Join(p.Src, name))
}
