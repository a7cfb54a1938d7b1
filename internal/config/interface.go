package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the file at path and applies every setting it contains
	// onto into. Settings absent from the file keep their current value.
	Load(ctx context.Context, path string, into *Model) error
}
