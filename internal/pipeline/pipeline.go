// Package pipeline connects a source, the engine and an output: load a raw
// table, process it into a segmented dataset, aggregate and emit a report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/clientpulse/internal/model"
	"github.com/crimson-sun/clientpulse/internal/output"
	"github.com/crimson-sun/clientpulse/internal/source"
)

// ErrNoDataset is returned by Summary before the first successful load.
var ErrNoDataset = errors.New("pipeline: no dataset loaded")

// Processor turns raw tables into datasets and aggregates them.
// *engine.Engine satisfies it.
type Processor interface {
	Process(source string, t *model.Table) *model.Dataset
	Summarize(ds *model.Dataset, f model.Filter) (model.Metrics, []model.Fallback)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCache memoizes loads and aggregations. Without it every Run reloads.
func WithCache(c *Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithLimit caps the number of rows loaded from the source.
func WithLimit(n int) Option {
	return func(p *Pipeline) { p.params.Limit = n }
}

// WithVerbosity controls whether reports carry the annotated records.
// Default: Standard (records included).
func WithVerbosity(v output.Verbosity) Option {
	return func(p *Pipeline) { p.verbosity = v }
}

// WithClock sets the time stamped on reports.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline is safe for concurrent use: Run may reload while Dataset and
// Summary are served to other goroutines.
type Pipeline struct {
	src       source.Source
	cfg       source.Config
	params    source.LoadParams
	proc      Processor
	out       output.Output
	cache     *Cache
	verbosity output.Verbosity
	now       func() time.Time

	mu      sync.RWMutex
	current *model.Dataset
}

// New creates a Pipeline. out may be nil when the caller only reads
// Dataset and Summary (the HTTP server).
func New(src source.Source, cfg source.Config, proc Processor, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		src:       src,
		cfg:       cfg,
		proc:      proc,
		out:       out,
		verbosity: output.Standard,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load fetches and processes the source, reusing the cached dataset when the
// source reports the same identity as last time.
func (p *Pipeline) Load(ctx context.Context) (*model.Dataset, error) {
	identity := ""
	if id, ok := p.src.(source.Identifier); ok && p.cache != nil {
		var err error
		identity, err = id.Identity(ctx, p.cfg)
		if err != nil {
			return nil, fmt.Errorf("pipeline load: %w", err)
		}
		if ds, ok := p.cache.Dataset(identity, p.params.Limit); ok {
			slog.Debug("dataset cache hit", "dataset_id", ds.ID, "source", p.cfg.Provider)
			p.setCurrent(ds)
			return ds, nil
		}
	}

	t, err := p.src.Load(ctx, p.cfg, p.params)
	if err != nil {
		return nil, fmt.Errorf("pipeline load: %w", err)
	}
	ds := p.proc.Process(p.cfg.Provider, t)
	slog.Info("dataset loaded",
		"dataset_id", ds.ID,
		"source", p.cfg.Provider,
		"records", len(ds.Records),
		"fallbacks", len(ds.Fallbacks),
	)
	if identity != "" {
		p.cache.StoreDataset(identity, p.params.Limit, ds)
	}
	p.setCurrent(ds)
	return ds, nil
}

// Run loads the source, aggregates the subset selected by f and writes one
// report to the output.
func (p *Pipeline) Run(ctx context.Context, f model.Filter) (model.Report, error) {
	ds, err := p.Load(ctx)
	if err != nil {
		return model.Report{}, err
	}
	m, fallbacks := p.summarize(ds, f)

	report := model.Report{
		RunID:       uuid.NewString(),
		DatasetID:   ds.ID,
		Source:      ds.Source,
		GeneratedAt: p.now(),
		Filter:      f,
		Metrics:     m,
		Fallbacks:   append(append([]model.Fallback(nil), ds.Fallbacks...), fallbacks...),
	}
	if p.verbosity != output.Summary {
		report.Records = f.Apply(ds.Records)
	}

	if p.out != nil {
		if err := p.out.Write(ctx, report); err != nil {
			return report, fmt.Errorf("pipeline output: %w", err)
		}
	}
	return report, nil
}

// Watch runs once per signal on changes until ctx is done or changes is
// closed. A failed run is logged and watching continues.
func (p *Pipeline) Watch(ctx context.Context, changes <-chan struct{}, f model.Filter) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			report, err := p.Run(ctx, f)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Error("watch run failed", "error", err)
				continue
			}
			slog.Info("report refreshed", "run_id", report.RunID, "dataset_id", report.DatasetID)
		}
	}
}

// Dataset returns the most recently loaded dataset, or nil.
// Callers must treat it as read-only.
func (p *Pipeline) Dataset() *model.Dataset {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Summary aggregates the current dataset for f.
func (p *Pipeline) Summary(f model.Filter) (model.Metrics, []model.Fallback, error) {
	ds := p.Dataset()
	if ds == nil {
		return model.Metrics{}, nil, ErrNoDataset
	}
	m, fallbacks := p.summarize(ds, f)
	return m, fallbacks, nil
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	if p.out == nil {
		return nil
	}
	return p.out.Close()
}

func (p *Pipeline) summarize(ds *model.Dataset, f model.Filter) (model.Metrics, []model.Fallback) {
	if p.cache != nil {
		if m, fallbacks, ok := p.cache.Summary(ds.ID, f); ok {
			slog.Debug("summary cache hit", "dataset_id", ds.ID, "filter", f)
			return m, fallbacks
		}
	}
	m, fallbacks := p.proc.Summarize(ds, f)
	if p.cache != nil {
		p.cache.StoreSummary(ds.ID, f, m, fallbacks)
	}
	return m, fallbacks
}

func (p *Pipeline) setCurrent(ds *model.Dataset) {
	p.mu.Lock()
	p.current = ds
	p.mu.Unlock()
}
