// Package remote loads contract exports over HTTP.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/crimson-sun/clientpulse/internal/model"
	"github.com/crimson-sun/clientpulse/internal/source"
	"github.com/crimson-sun/clientpulse/internal/source/csvfile"
	"github.com/crimson-sun/clientpulse/internal/source/httpclient"
)

const defaultTimeout = 60 * time.Second

func init() {
	source.Register("http", func() source.Source {
		return &Source{}
	})
}

// Source implements source.Source for a CSV served at cfg.URL.
// It does not implement source.Identifier: every run downloads again.
type Source struct{}

// Load downloads cfg.URL and decodes it like a local file.
func (s *Source) Load(ctx context.Context, cfg source.Config, params source.LoadParams) (*model.Table, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("http source: missing url")
	}
	delim, err := csvfile.ParseDelimiter(cfg.Delimiter)
	if err != nil {
		return nil, fmt.Errorf("http source: %w", err)
	}

	client := httpclient.New(cfg.URL, cfg.Token, httpclient.WithTimeout(defaultTimeout))
	body, err := client.Get(ctx, "", nil)
	if err != nil {
		return nil, fmt.Errorf("http source: get %s: %w", cfg.URL, err)
	}

	limit := params.Limit
	if limit == 0 {
		limit = csvfile.DefaultLimit
	}
	t, err := csvfile.Decode(bytes.NewReader(body), csvfile.Options{
		Encoding:  cfg.Encoding,
		Delimiter: delim,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("http source: %w", err)
	}
	return t, nil
}
