// Package coercer converts a canonically named raw table into typed records,
// substituting synthetic columns wherever a field is missing or unusable.
package coercer

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/crimson-sun/clientpulse/internal/model"
)

const (
	defaultSeed         = 42
	defaultValueMin     = 1000
	defaultValueMax     = 100000
	defaultDateSpanDays = 1000
)

// Option configures a Coercer.
type Option func(*Coercer)

// WithSeed seeds the generator used for synthetic values. Default: 42.
func WithSeed(seed int64) Option {
	return func(c *Coercer) { c.rng = rand.New(rand.NewSource(seed)) }
}

// WithClock sets the reference "now" for tenure and synthetic dates.
func WithClock(now func() time.Time) Option {
	return func(c *Coercer) { c.now = now }
}

// WithStatuses sets the vocabulary drawn from when no status column exists.
func WithStatuses(statuses []string) Option {
	return func(c *Coercer) {
		if len(statuses) > 0 {
			c.statuses = statuses
		}
	}
}

// WithValueRange sets the uniform range of synthetic contract values.
func WithValueRange(min, max float64) Option {
	return func(c *Coercer) { c.valueMin, c.valueMax = min, max }
}

// WithDateSpan sets how many days back synthetic signature dates reach.
func WithDateSpan(days int) Option {
	return func(c *Coercer) {
		if days > 1 {
			c.dateSpanDays = days
		}
	}
}

// Coercer types canonical columns and fills the gaps.
// Not safe for concurrent use: it owns a single random source.
type Coercer struct {
	rng          *rand.Rand
	now          func() time.Time
	statuses     []string
	valueMin     float64
	valueMax     float64
	dateSpanDays int
}

// New creates a Coercer with the given options.
func New(opts ...Option) *Coercer {
	c := &Coercer{
		rng:          rand.New(rand.NewSource(defaultSeed)),
		now:          time.Now,
		statuses:     []string{"ATIVO", "CANCELADO", "TROCADO", "GRATUITO"},
		valueMin:     defaultValueMin,
		valueMax:     defaultValueMax,
		dateSpanDays: defaultDateSpanDays,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Coerce builds one record per row of t. Columns must already carry their
// canonical names. Every field consumed downstream comes back populated for
// every record: a missing or fully unusable column is replaced by synthetic
// values and reported as a Fallback.
func (c *Coercer) Coerce(t *model.Table) ([]model.Record, []model.Fallback) {
	n := t.Len()
	recs := make([]model.Record, n)
	var fallbacks []model.Fallback

	c.clientIDs(t, recs, &fallbacks)
	c.values(t, recs, &fallbacks)
	c.dates(t, recs, &fallbacks)
	c.statusColumn(t, recs, &fallbacks)
	c.scores(t, recs, &fallbacks)
	c.attributes(t, recs)
	c.Derive(recs)

	return recs, fallbacks
}

// Derive recomputes tenure_days and month_signed from signed_at.
func (c *Coercer) Derive(recs []model.Record) {
	now := c.now()
	for i := range recs {
		recs[i].TenureDays = nil
		recs[i].MonthSigned = ""
		if recs[i].SignedAt == nil {
			continue
		}
		signed := *recs[i].SignedAt
		days := int(math.Floor(now.Sub(signed).Hours() / 24))
		recs[i].TenureDays = &days
		recs[i].MonthSigned = signed.Format("2006-01")
	}
}

func (c *Coercer) clientIDs(t *model.Table, recs []model.Record, fb *[]model.Fallback) {
	col, ok := t.Column(model.ColClientID)
	if !ok {
		*fb = append(*fb, model.Fallback{Field: model.ColClientID, Kind: model.MissingColumn, Detail: "row index used as identifier"})
		for i := range recs {
			recs[i].ClientID = strconv.Itoa(i)
		}
		return
	}
	for i, v := range col {
		recs[i].ClientID = strings.TrimSpace(v)
	}
}

func (c *Coercer) values(t *model.Table, recs []model.Record, fb *[]model.Fallback) {
	col, ok := t.Column(model.ColValue)
	if !ok {
		*fb = append(*fb, model.Fallback{Field: model.ColValue, Kind: model.MissingColumn, Detail: "synthetic uniform values"})
		c.syntheticValues(recs)
		return
	}
	parsed := 0
	for i, v := range col {
		if f, ok := ParseValue(v); ok {
			recs[i].Value = model.Float(f)
			parsed++
		}
	}
	if parsed == 0 && len(recs) > 0 {
		*fb = append(*fb, model.Fallback{Field: model.ColValue, Kind: model.UnparseableColumn, Detail: "no cell parsed as a number; synthetic uniform values"})
		c.syntheticValues(recs)
	}
}

func (c *Coercer) syntheticValues(recs []model.Record) {
	for i := range recs {
		recs[i].Value = model.Float(c.valueMin + c.rng.Float64()*(c.valueMax-c.valueMin))
	}
}

func (c *Coercer) dates(t *model.Table, recs []model.Record, fb *[]model.Fallback) {
	col, ok := t.Column(model.ColSignedAt)
	if !ok {
		*fb = append(*fb, model.Fallback{Field: model.ColSignedAt, Kind: model.MissingColumn, Detail: "synthetic dates over the last " + strconv.Itoa(c.dateSpanDays) + " days"})
		c.syntheticDates(recs)
		return
	}
	parsed := 0
	for i, v := range col {
		if d, ok := ParseDate(v); ok {
			recs[i].SignedAt = model.Time(d)
			parsed++
		}
	}
	if parsed == 0 && len(recs) > 0 {
		*fb = append(*fb, model.Fallback{Field: model.ColSignedAt, Kind: model.UnparseableColumn, Detail: "no cell parsed as a date; synthetic dates"})
		c.syntheticDates(recs)
	}
}

func (c *Coercer) syntheticDates(recs []model.Record) {
	today := c.now().UTC().Truncate(24 * time.Hour)
	for i := range recs {
		back := 1 + c.rng.Intn(c.dateSpanDays-1)
		recs[i].SignedAt = model.Time(today.AddDate(0, 0, -back))
	}
}

func (c *Coercer) statusColumn(t *model.Table, recs []model.Record, fb *[]model.Fallback) {
	col, ok := t.Column(model.ColStatus)
	if ok {
		filled := 0
		for i, v := range col {
			recs[i].Status = strings.TrimSpace(v)
			if recs[i].Status != "" {
				filled++
			}
		}
		if filled > 0 || len(recs) == 0 {
			return
		}
		*fb = append(*fb, model.Fallback{Field: model.ColStatus, Kind: model.UnparseableColumn, Detail: "every status empty; synthetic statuses"})
	} else {
		*fb = append(*fb, model.Fallback{Field: model.ColStatus, Kind: model.MissingColumn, Detail: "synthetic statuses"})
	}
	for i := range recs {
		recs[i].Status = c.statuses[c.rng.Intn(len(c.statuses))]
	}
}

func (c *Coercer) scores(t *model.Table, recs []model.Record, fb *[]model.Fallback) {
	col, ok := t.Column(model.ColScore)
	if ok {
		parsed := 0
		for i, v := range col {
			if s, ok := ParseScore(v); ok {
				recs[i].Score = model.Int(s)
				parsed++
			}
		}
		if parsed > 0 || len(recs) == 0 {
			return
		}
		*fb = append(*fb, model.Fallback{Field: model.ColScore, Kind: model.UnparseableColumn, Detail: "no cell parsed as a 0-10 score; synthetic scores"})
	} else {
		*fb = append(*fb, model.Fallback{Field: model.ColScore, Kind: model.MissingColumn, Detail: "synthetic scores"})
	}
	for i := range recs {
		recs[i].Score = model.Int(c.rng.Intn(11))
	}
}

// attributes carries every non-canonical, non-derived column along untouched.
func (c *Coercer) attributes(t *model.Table, recs []model.Record) {
	for ci, name := range t.Columns {
		if isCanonical(name) || model.IsDerived(name) {
			continue
		}
		for ri, row := range t.Rows {
			if ci >= len(row) || row[ci] == "" {
				continue
			}
			if recs[ri].Attributes == nil {
				recs[ri].Attributes = make(map[string]string)
			}
			recs[ri].Attributes[name] = row[ci]
		}
	}
}

func isCanonical(name string) bool {
	switch name {
	case model.ColClientID, model.ColValue, model.ColSignedAt, model.ColStatus, model.ColScore:
		return true
	}
	return false
}
