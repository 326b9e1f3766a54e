// Package buildconfig holds the per-mode build configuration tables and the
// selector that picks one of them.
package buildconfig

import (
	"context"

	"github.com/rs/zerolog"
)

// Select resolves mode to its configuration table. Unknown modes fail with
// ConfigNotFoundError before anything is constructed.
func Select(ctx context.Context, mode string, paths Paths) (*BuildConfig, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("mode", string(m)).
		Str("source", m.source()).
		Msgf("Building with %s mode using %s", m, m.source())

	return constructorFor(m)(paths), nil
}

func constructorFor(m Mode) func(Paths) *BuildConfig {
	switch m {
	case Development:
		return development
	case Production:
		return production
	}
	panic("buildconfig: mode without constructor: " + string(m))
}

// Candidate is one row of a mode's configuration table. Modes with more than
// one row have conflicting definitions that still need a decision; Select
// always returns the canonical one.
type Candidate struct {
	Name      string       `yaml:"name"`
	Canonical bool         `yaml:"canonical"`
	Config    *BuildConfig `yaml:"config"`
}

// Candidates returns every known definition for mode.
func Candidates(mode string, paths Paths) ([]Candidate, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	rows := []Candidate{
		{Name: "canonical", Canonical: true, Config: constructorFor(m)(paths)},
	}
	if m == Production {
		rows = append(rows, Candidate{Name: "superseded", Config: productionBuildHash(paths)})
	}
	return rows, nil
}
