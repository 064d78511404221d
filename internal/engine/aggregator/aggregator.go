// Package aggregator reduces a segmented record set to the metrics mapping
// the dashboard displays. Every aggregate is zero-filled: an empty subset or
// an absent field yields 0, never a missing key.
package aggregator

import (
	"time"

	"github.com/crimson-sun/clientpulse/internal/engine/stats"
	"github.com/crimson-sun/clientpulse/internal/engine/taxonomy"
	"github.com/crimson-sun/clientpulse/internal/model"
)

// churnWindowDays is how old a contract must be to enter the churn-rate denominator.
const churnWindowDays = 365

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock sets the reference time for the churn-rate window.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// Aggregator computes Metrics. It holds no per-run state.
type Aggregator struct {
	statuses *taxonomy.Taxonomy
	now      func() time.Time
}

// New creates an Aggregator that classifies statuses with tax.
func New(tax *taxonomy.Taxonomy, opts ...Option) *Aggregator {
	a := &Aggregator{statuses: tax, now: time.Now}
	if a.statuses == nil {
		a.statuses = taxonomy.Default()
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate computes the metrics for recs. The only fallback it can report is
// EmptyActiveSubset, when no record passes the active-status heuristic and the
// whole set is counted as active instead.
func (a *Aggregator) Aggregate(recs []model.Record) (model.Metrics, []model.Fallback) {
	m := empty()
	m.Records = len(recs)
	m.TotalClients = distinct(recs, nil)

	var fallbacks []model.Fallback
	m.ActiveClients = distinct(recs, func(r model.Record) bool { return a.statuses.IsActive(r.Status) })
	if m.ActiveClients == 0 && len(recs) > 0 {
		m.ActiveClients = m.TotalClients
		fallbacks = append(fallbacks, model.Fallback{
			Field:  model.ColStatus,
			Kind:   model.EmptyActiveSubset,
			Detail: "no status matched the active heuristic; every client counted as active",
		})
	}
	m.ChurnRate = a.churnRate(recs)

	byClusterScores := make(map[model.Cluster][]float64)
	byClusterValues := make(map[model.Cluster][]float64)
	var allScores, allValues []float64
	for _, r := range recs {
		if r.Score != nil {
			allScores = append(allScores, float64(*r.Score))
			byClusterScores[r.Cluster] = append(byClusterScores[r.Cluster], float64(*r.Score))
		}
		if r.Value != nil {
			allValues = append(allValues, *r.Value)
			byClusterValues[r.Cluster] = append(byClusterValues[r.Cluster], *r.Value)
		}
		if r.Category != "" {
			m.Distribution[r.Category]++
		}
		if r.MonthSigned != "" {
			m.SignedByMonth[r.MonthSigned]++
		}
	}

	for _, c := range model.Clusters() {
		m.TotalByCluster[c] = distinct(recs, func(r model.Record) bool { return r.Cluster == c })
		m.ScoreByCluster[c] = stats.Mean(byClusterScores[c])
		m.ValueByCluster[c] = stats.Mean(byClusterValues[c])
	}
	m.MeanScore = stats.Mean(allScores)
	m.MeanValue = stats.Mean(allValues)
	m.ChurnRiskClients = m.TotalByCluster[model.ChurnRisk]
	m.UpsellClients = m.TotalByCluster[model.UpsellPotential]
	m.NPS = NPS(m.Distribution)

	return m, fallbacks
}

// NPS returns Promoter% - Detractor% over the categorized records in dist,
// in [-100, 100]; 0 when nothing is categorized.
func NPS(dist map[model.ScoreCategory]int) float64 {
	total := 0
	for _, c := range model.ScoreCategories() {
		total += dist[c]
	}
	if total == 0 {
		return 0
	}
	return float64(dist[model.Promoter]-dist[model.Detractor]) / float64(total) * 100
}

// churnRate is distinct cancelled clients over distinct clients signed more
// than a year ago, as a percentage.
func (a *Aggregator) churnRate(recs []model.Record) float64 {
	cutoff := a.now().AddDate(0, 0, -churnWindowDays)
	aged := distinct(recs, func(r model.Record) bool {
		return r.SignedAt != nil && r.SignedAt.Before(cutoff)
	})
	if aged == 0 {
		return 0
	}
	cancelled := distinct(recs, func(r model.Record) bool { return a.statuses.IsCancelled(r.Status) })
	return float64(cancelled) / float64(aged) * 100
}

// Top returns the first n records of cluster c in input order, one per client.
func Top(recs []model.Record, c model.Cluster, n int) []model.Record {
	out := make([]model.Record, 0, n)
	seen := make(map[string]struct{})
	for _, r := range recs {
		if len(out) >= n {
			break
		}
		if r.Cluster != c {
			continue
		}
		if _, dup := seen[r.ClientID]; dup {
			continue
		}
		seen[r.ClientID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// empty returns Metrics with every map allocated and every key present.
func empty() model.Metrics {
	m := model.Metrics{
		TotalByCluster: make(map[model.Cluster]int),
		ScoreByCluster: make(map[model.Cluster]float64),
		ValueByCluster: make(map[model.Cluster]float64),
		Distribution:   make(map[model.ScoreCategory]int),
		SignedByMonth:  make(map[string]int),
	}
	for _, c := range model.Clusters() {
		m.TotalByCluster[c] = 0
		m.ScoreByCluster[c] = 0
		m.ValueByCluster[c] = 0
	}
	for _, c := range model.ScoreCategories() {
		m.Distribution[c] = 0
	}
	return m
}

// distinct counts distinct client IDs among records accepted by keep
// (all records when keep is nil).
func distinct(recs []model.Record, keep func(model.Record) bool) int {
	seen := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		if keep != nil && !keep(r) {
			continue
		}
		seen[r.ClientID] = struct{}{}
	}
	return len(seen)
}
