package buildconfig

import "fmt"

// Mode selects which build configuration is used.
type Mode string

const (
	Development Mode = "development"
	Production  Mode = "production"
)

// Modes returns every mode with a configuration table.
func Modes() []Mode {
	return []Mode{Development, Production}
}

// ConfigNotFoundError is returned when a mode has no configuration table.
type ConfigNotFoundError struct {
	Mode string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("no build configuration found for mode %q (known modes: %s, %s)", e.Mode, Development, Production)
}

// ParseMode converts an externally supplied string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Development, Production:
		return m, nil
	default:
		return "", &ConfigNotFoundError{Mode: s}
	}
}

// source is the name of the table a mode resolves to, reported in diagnostics.
func (m Mode) source() string {
	return "config." + string(m)
}
