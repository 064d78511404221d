// Package csvtable writes the annotated canonical table of each report to a
// delimited file. Each Write replaces the file atomically, so readers never
// observe a half-written table.
package csvtable

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/crimson-sun/clientpulse/internal/model"
	"github.com/crimson-sun/clientpulse/internal/source/csvfile"
)

// Option configures a csvtable Output.
type Option func(*Output)

// WithDelimiter sets the field delimiter. Default: ','.
func WithDelimiter(r rune) Option {
	return func(o *Output) { o.delimiter = r }
}

// Output writes model.ToTable(report.Records) to a single path.
type Output struct {
	mu        sync.Mutex
	path      string
	delimiter rune
}

// New creates a csvtable output. The parent directory is created if needed.
func New(path string, opts ...Option) (*Output, error) {
	if path == "" {
		return nil, fmt.Errorf("csvtable: path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("csvtable: %w", err)
	}
	o := &Output{path: path, delimiter: ','}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Write renders the report's records, including attributes, and swaps the
// file into place.
func (o *Output) Write(_ context.Context, report model.Report) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(o.path), "."+filepath.Base(o.path)+".*")
	if err != nil {
		return fmt.Errorf("csvtable: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := csvfile.Encode(tmp, model.ToTable(report.Records), o.delimiter); err != nil {
		tmp.Close()
		return fmt.Errorf("csvtable: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csvtable: %w", err)
	}
	if err := os.Rename(tmp.Name(), o.path); err != nil {
		return fmt.Errorf("csvtable: %w", err)
	}
	return nil
}

// Close is a no-op; every Write leaves a complete file.
func (o *Output) Close() error {
	return nil
}
