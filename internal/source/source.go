// Package source loads raw contract tables from files, URLs or the demo
// generator. Providers register themselves by name in init.
package source

import (
	"context"

	"github.com/crimson-sun/clientpulse/internal/model"
)

// Source defines the interface every table provider must implement.
type Source interface {
	// Load reads the raw table. Column names are returned exactly as found.
	Load(ctx context.Context, cfg Config, params LoadParams) (*model.Table, error)
}

// Identifier is implemented by sources that can name the exact content they
// would load without loading it. The identity changes whenever the content
// may have changed; callers use it as a cache key.
type Identifier interface {
	Identity(ctx context.Context, cfg Config) (string, error)
}

// Config holds provider-specific settings.
type Config struct {
	Provider  string
	Path      string // csv: local file
	URL       string // http: absolute URL of the CSV
	Token     string // http: Bearer token, optional
	Encoding  string // utf-8 (default), latin1, windows-1252
	Delimiter string // single character; empty means detect
	Rows      int    // demo: number of generated rows
	Seed      int64  // demo: generator seed
}

// LoadParams bounds a single load.
type LoadParams struct {
	Limit int // maximum data rows; <= 0 means no limit
}
