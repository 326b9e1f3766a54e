package assets

import "time"

type Config struct {
	// Path to the Dart Sass executable used by the sass step. Looked up on
	// PATH when empty.
	SassBinary string
	// Timeout for a single Sass compilation
	SassTimeout time.Duration
	// Name of the manifest written to the output directory, empty disables it
	ManifestName string
	// Title passed to the HTML template
	Title string
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		SassBinary:   "",
		SassTimeout:  30 * time.Second,
		ManifestName: "manifest.json",
		Title:        "",
	}
}
