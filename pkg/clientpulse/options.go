package clientpulse

import (
	"time"

	"github.com/crimson-sun/clientpulse/internal/engine/segmenter"
)

// Rules holds the segmentation thresholds. Start from DefaultRules.
type Rules = segmenter.Rules

// DefaultRules returns the built-in segmentation thresholds.
func DefaultRules() Rules {
	return segmenter.DefaultRules()
}

type options struct {
	seed         int64
	now          func() time.Time
	columns      map[string][]string
	rules        Rules
	dedup        bool
	dedupColumns []string
	demo         bool
	encoding     string
	delimiter    rune
}

// Option configures a Client.
type Option func(*options)

// WithSeed seeds synthetic substitutes for missing columns. Default: 42.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithClock sets the reference time for tenure and churn-rate windows.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithColumns replaces the candidate column names of individual fields
// (client_id, value, signed_at, status, score). Order is priority.
func WithColumns(aliases map[string][]string) Option {
	return func(o *options) { o.columns = aliases }
}

// WithRules sets the segmentation thresholds.
func WithRules(r Rules) Option {
	return func(o *options) { o.rules = r }
}

// WithDedup drops duplicate rows before analysis, comparing only the named
// columns, or whole rows when none are given.
func WithDedup(columns ...string) Option {
	return func(o *options) {
		o.dedup = true
		o.dedupColumns = columns
	}
}

// WithDemoInflation raises client counts to showcase levels. The metrics
// are marked Synthetic. Never use it for real reporting.
func WithDemoInflation() Option {
	return func(o *options) { o.demo = true }
}

// WithEncoding sets the text encoding ReadCSV expects: "utf-8" (default),
// "latin1" or "windows-1252".
func WithEncoding(enc string) Option {
	return func(o *options) { o.encoding = enc }
}

// WithDelimiter fixes the ReadCSV field delimiter. Default: detected.
func WithDelimiter(r rune) Option {
	return func(o *options) { o.delimiter = r }
}

func defaultOptions() options {
	return options{
		seed:  42,
		now:   time.Now,
		rules: segmenter.DefaultRules(),
	}
}
