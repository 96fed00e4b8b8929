package config

import "context"

// Loader is the format-agnostic contract for turning a definition path into
// a Model. The hcl package provides the concrete implementation.
type Loader interface {
	Load(ctx context.Context, path string) (*Model, error)
}
