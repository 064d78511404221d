package engine

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/clientpulse/internal/engine/aggregator"
	"github.com/crimson-sun/clientpulse/internal/engine/categorizer"
	"github.com/crimson-sun/clientpulse/internal/engine/coercer"
	"github.com/crimson-sun/clientpulse/internal/engine/dedup"
	"github.com/crimson-sun/clientpulse/internal/engine/resolver"
	"github.com/crimson-sun/clientpulse/internal/engine/segmenter"
	"github.com/crimson-sun/clientpulse/internal/model"
)

// Option configures an Engine.
type Option func(*Engine)

// WithDedup drops duplicate raw rows, keyed on the given columns (all
// columns when empty), before anything else runs.
func WithDedup(d *dedup.Deduplicator) Option {
	return func(e *Engine) { e.dedup = d }
}

// WithDemoInflation overwrites client counts with showcase numbers after
// every aggregation. The resulting metrics carry synthetic_demo=true.
func WithDemoInflation(floor aggregator.DemoFloor) Option {
	return func(e *Engine) { e.demo = &floor }
}

// WithClock sets the time stamped on datasets.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine orchestrates the resolve → coerce → categorize → segment → aggregate pipeline.
type Engine struct {
	aliases    resolver.Aliases
	coercer    *coercer.Coercer
	segmenter  *segmenter.Segmenter
	aggregator *aggregator.Aggregator
	dedup      *dedup.Deduplicator
	demo       *aggregator.DemoFloor
	now        func() time.Time
}

// New creates an Engine with the provided components.
func New(aliases resolver.Aliases, coe *coercer.Coercer, seg *segmenter.Segmenter, agg *aggregator.Aggregator, opts ...Option) *Engine {
	e := &Engine{
		aliases:    aliases,
		coercer:    coe,
		segmenter:  seg,
		aggregator: agg,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Normalize resolves column names, types every field and attaches score
// categories. t is modified in place. Never fails: every recovered problem
// comes back as a Fallback and is logged.
func (e *Engine) Normalize(t *model.Table) ([]model.Record, []model.Fallback) {
	if e.dedup != nil {
		if n := e.dedup.DeduplicateTable(t); n > 0 {
			slog.Info("dropped duplicate rows", "count", n, "remaining", t.Len())
		}
	}

	res := e.aliases.Apply(t)
	for _, f := range resolver.Fields() {
		if col, ok := res[f]; ok && col != string(f) {
			slog.Debug("resolved column", "field", f, "column", col)
		}
	}

	recs, fallbacks := e.coercer.Coerce(t)
	categorizer.Apply(recs)
	for _, fb := range fallbacks {
		slog.Warn("synthetic fallback", "field", fb.Field, "kind", fb.Kind, "detail", fb.Detail)
	}
	return recs, fallbacks
}

// Process normalizes and segments a raw table into a new Dataset.
func (e *Engine) Process(source string, t *model.Table) *model.Dataset {
	recs, fallbacks := e.Normalize(t)
	res := e.segmenter.Segment(recs)
	if res.ChurnBackfilled > 0 || res.UpsellBackfilled > 0 {
		slog.Info("segment quotas backfilled",
			"churn_added", res.ChurnBackfilled,
			"upsell_added", res.UpsellBackfilled,
		)
	}
	return &model.Dataset{
		ID:        uuid.NewString(),
		Source:    source,
		LoadedAt:  e.now(),
		Records:   recs,
		Fallbacks: fallbacks,
	}
}

// Summarize aggregates the records of ds selected by f.
func (e *Engine) Summarize(ds *model.Dataset, f model.Filter) (model.Metrics, []model.Fallback) {
	m, fallbacks := e.aggregator.Aggregate(f.Apply(ds.Records))
	for _, fb := range fallbacks {
		slog.Warn("synthetic fallback", "field", fb.Field, "kind", fb.Kind, "detail", fb.Detail)
	}
	if e.demo != nil {
		aggregator.Inflate(&m, *e.demo)
	}
	return m, fallbacks
}

// Resegment runs the segmenter again on a copy of recs. Percentiles are
// recomputed on recs alone, so segmenting an already filtered subset can
// move records to a different cluster than the full dataset gave them.
func (e *Engine) Resegment(recs []model.Record) []model.Record {
	out := make([]model.Record, len(recs))
	copy(out, recs)
	e.segmenter.Segment(out)
	return out
}
