package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads pipeline configuration from the given paths (files or
	// directories), translates it into the format-agnostic model, and
	// validates its structure.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
