package clientpulse

import (
	"fmt"
	"io"
	"sync"

	"github.com/crimson-sun/clientpulse/internal/engine"
	"github.com/crimson-sun/clientpulse/internal/engine/aggregator"
	"github.com/crimson-sun/clientpulse/internal/engine/coercer"
	"github.com/crimson-sun/clientpulse/internal/engine/dedup"
	"github.com/crimson-sun/clientpulse/internal/engine/resolver"
	"github.com/crimson-sun/clientpulse/internal/engine/segmenter"
	"github.com/crimson-sun/clientpulse/internal/engine/taxonomy"
	"github.com/crimson-sun/clientpulse/internal/model"
	"github.com/crimson-sun/clientpulse/internal/source/csvfile"
)

type (
	// Record is one contract after normalization and segmentation.
	Record = model.Record
	// Metrics is the summary of a set of records.
	Metrics = model.Metrics
	// Fallback describes a synthetic substitute applied while processing.
	Fallback = model.Fallback
	// Cluster is a behavioral segment.
	Cluster = model.Cluster
	// ScoreCategory is the satisfaction bucket of a 0-10 score.
	ScoreCategory = model.ScoreCategory
)

const (
	Regular         = model.Regular
	ChurnRisk       = model.ChurnRisk
	UpsellPotential = model.UpsellPotential

	Detractor = model.Detractor
	Neutral   = model.Neutral
	Promoter  = model.Promoter
)

// Client analyzes contract tables. Safe for concurrent use; analyses are
// serialized because synthetic substitutes share one seeded generator.
type Client struct {
	mu        sync.Mutex
	engine    *engine.Engine
	encoding  string
	delimiter rune
}

// New creates a Client.
func New(opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	tax := taxonomy.Default()
	var engOpts []engine.Option
	engOpts = append(engOpts, engine.WithClock(o.now))
	if o.dedup {
		engOpts = append(engOpts, engine.WithDedup(dedup.New(dedup.Config{Columns: o.dedupColumns})))
	}
	if o.demo {
		engOpts = append(engOpts, engine.WithDemoInflation(aggregator.DefaultDemoFloor()))
	}
	eng := engine.New(
		resolver.DefaultAliases().Merge(o.columns),
		coercer.New(coercer.WithSeed(o.seed), coercer.WithClock(o.now), coercer.WithStatuses(tax.Synthetic())),
		segmenter.New(o.rules),
		aggregator.New(tax, aggregator.WithClock(o.now)),
		engOpts...,
	)
	return &Client{engine: eng, encoding: o.encoding, delimiter: o.delimiter}
}

// Analyze normalizes and segments a raw table. rows may be ragged; short
// rows are treated as padded with empty cells. The input is not modified.
func (c *Client) Analyze(columns []string, rows [][]string) *Analysis {
	t := &model.Table{Columns: append([]string(nil), columns...), Rows: make([][]string, len(rows))}
	for i, r := range rows {
		row := make([]string, len(columns))
		copy(row, r)
		t.Rows[i] = row
	}
	return c.process("table", t)
}

// ReadCSV decodes a delimited export and analyzes it.
func (c *Client) ReadCSV(r io.Reader) (*Analysis, error) {
	t, err := csvfile.Decode(r, csvfile.Options{Encoding: c.encoding, Delimiter: c.delimiter})
	if err != nil {
		return nil, fmt.Errorf("clientpulse: %w", err)
	}
	return c.process("csv", t), nil
}

func (c *Client) process(src string, t *model.Table) *Analysis {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &Analysis{ds: c.engine.Process(src, t), client: c}
}

// Analysis is the segmented result of one table. Read-only.
type Analysis struct {
	ds     *model.Dataset
	client *Client
}

// ID identifies this analysis.
func (a *Analysis) ID() string {
	return a.ds.ID
}

// Records returns every record with its cluster and category assigned.
func (a *Analysis) Records() []Record {
	return a.ds.Records
}

// Fallbacks lists the synthetic substitutes applied while processing.
func (a *Analysis) Fallbacks() []Fallback {
	return a.ds.Fallbacks
}

// Metrics aggregates the records of one cluster, or all of them for "All"
// or "". Cluster names match case-insensitively.
func (a *Analysis) Metrics(cluster string) (Metrics, error) {
	f, err := model.ParseFilter(cluster)
	if err != nil {
		return Metrics{}, fmt.Errorf("clientpulse: %w", err)
	}
	m, _ := a.client.engine.Summarize(a.ds, f)
	return m, nil
}

// Top returns the first n distinct clients of cluster c, in input order.
func (a *Analysis) Top(c Cluster, n int) []Record {
	return aggregator.Top(a.ds.Records, c, n)
}

// WriteCSV writes the annotated canonical table: canonical and derived
// columns first, then every unmapped source column.
func (a *Analysis) WriteCSV(w io.Writer, delimiter rune) error {
	if err := csvfile.Encode(w, model.ToTable(a.ds.Records), delimiter); err != nil {
		return fmt.Errorf("clientpulse: %w", err)
	}
	return nil
}
