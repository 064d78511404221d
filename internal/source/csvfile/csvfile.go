// Package csvfile loads contract exports from local delimited files.
package csvfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/crimson-sun/clientpulse/internal/model"
	"github.com/crimson-sun/clientpulse/internal/source"
)

// DefaultLimit caps rows read when the caller sets no limit.
const DefaultLimit = 10000

func init() {
	source.Register("csv", func() source.Source {
		return &Source{}
	})
}

// Source implements source.Source for local files.
type Source struct{}

// Load reads cfg.Path. A zero params.Limit means DefaultLimit; a negative one
// reads every row.
func (s *Source) Load(ctx context.Context, cfg source.Config, params source.LoadParams) (*model.Table, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("csv source: missing path")
	}
	delim, err := ParseDelimiter(cfg.Delimiter)
	if err != nil {
		return nil, fmt.Errorf("csv source: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("csv source: open %s: %w", cfg.Path, err)
	}
	defer f.Close()

	limit := params.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	t, err := Decode(f, Options{Encoding: cfg.Encoding, Delimiter: delim, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("csv source: %s: %w", cfg.Path, err)
	}
	return t, nil
}

// Identity names the file by absolute path, size and modification time.
func (s *Source) Identity(_ context.Context, cfg source.Config) (string, error) {
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return "", fmt.Errorf("csv source: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("csv source: stat %s: %w", abs, err)
	}
	return abs + ":" + strconv.FormatInt(info.Size(), 10) + ":" + strconv.FormatInt(info.ModTime().UnixNano(), 10), nil
}

// ParseDelimiter accepts a single character, "tab" or "\t". Empty means detect.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
