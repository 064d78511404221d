// Package segmenter assigns every record to exactly one behavioral cluster.
//
// The rules run in a fixed order: churn predicates, churn quota backfill,
// upsell predicates over the non-churn records, upsell quota backfill, then
// assignment. Percentiles are computed on whatever records are passed in, so
// segmenting a filtered subset can move records between clusters.
package segmenter

import (
	"github.com/crimson-sun/clientpulse/internal/engine/stats"
	"github.com/crimson-sun/clientpulse/internal/model"
)

// Rules holds the thresholds of every predicate and quota.
type Rules struct {
	ChurnLowScore       int     // score <= this ...
	ChurnNewTenureDays  int     // ... and tenure < this
	ChurnCriticalScore  int     // score <= this, any tenure
	ChurnAgedScore      int     // score < this ...
	LongTenureDays      int     // ... and tenure > this (also used by upsell)
	ChurnQuota          float64 // minimum churn share before backfill
	ChurnQuantile       float64 // backfill marks score <= this quantile
	UpsellHighScore     int     // score >= this ...
	UpsellValueQuantile float64 // ... and value < this quantile (median)
	UpsellAgedQuantile  float64 // tenure > LongTenureDays and value < this quantile
	UpsellPromoterScore int     // score >= this, any value
	UpsellQuota         float64 // minimum upsell share of non-churn records
	UpsellQuantile      float64 // backfill marks score >= this quantile of non-churn scores
}

// DefaultRules returns the production thresholds.
func DefaultRules() Rules {
	return Rules{
		ChurnLowScore:       5,
		ChurnNewTenureDays:  365,
		ChurnCriticalScore:  3,
		ChurnAgedScore:      7,
		LongTenureDays:      730,
		ChurnQuota:          0.10,
		ChurnQuantile:       0.10,
		UpsellHighScore:     8,
		UpsellValueQuantile: 0.50,
		UpsellAgedQuantile:  0.25,
		UpsellPromoterScore: 9,
		UpsellQuota:         0.15,
		UpsellQuantile:      0.85,
	}
}

// Mask flags records by position.
type Mask []bool

// Count returns the number of set flags.
func (m Mask) Count() int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

// Fraction returns Count()/len(m), or 0 for an empty mask.
func (m Mask) Fraction() float64 {
	if len(m) == 0 {
		return 0
	}
	return float64(m.Count()) / float64(len(m))
}

// Result reports what one segmentation pass did.
type Result struct {
	Churn            Mask
	Upsell           Mask
	ChurnBackfilled  int
	UpsellBackfilled int
}

// Segmenter is stateless apart from its rules.
type Segmenter struct {
	rules Rules
}

// New creates a Segmenter with the given rules.
func New(rules Rules) *Segmenter {
	return &Segmenter{rules: rules}
}

// Rules returns the thresholds in use.
func (s *Segmenter) Rules() Rules {
	return s.rules
}

// Segment runs every step and writes Cluster on each record.
func (s *Segmenter) Segment(recs []model.Record) Result {
	churn := s.ApplyChurnRules(recs)
	churnAdded := s.BackfillChurnQuota(recs, churn)
	upsell := s.ApplyUpsellRules(recs, churn)
	upsellAdded := s.BackfillUpsellQuota(recs, churn, upsell)
	Assign(recs, churn, upsell)
	return Result{
		Churn:            churn,
		Upsell:           upsell,
		ChurnBackfilled:  churnAdded,
		UpsellBackfilled: upsellAdded,
	}
}

// ApplyChurnRules flags a record when any of:
//   - score <= ChurnLowScore and tenure < ChurnNewTenureDays
//   - score <= ChurnCriticalScore
//   - score < ChurnAgedScore and tenure > LongTenureDays
//
// A null operand makes its predicate false.
func (s *Segmenter) ApplyChurnRules(recs []model.Record) Mask {
	r := s.rules
	churn := make(Mask, len(recs))
	for i, rec := range recs {
		if rec.Score == nil {
			continue
		}
		score := *rec.Score
		if score <= r.ChurnCriticalScore {
			churn[i] = true
			continue
		}
		if rec.TenureDays == nil {
			continue
		}
		tenure := *rec.TenureDays
		if score <= r.ChurnLowScore && tenure < r.ChurnNewTenureDays {
			churn[i] = true
		} else if score < r.ChurnAgedScore && tenure > r.LongTenureDays {
			churn[i] = true
		}
	}
	return churn
}

// BackfillChurnQuota marks every record with score <= the ChurnQuantile of
// all scores when fewer than ChurnQuota of the records are flagged.
// Returns how many records it newly flagged.
func (s *Segmenter) BackfillChurnQuota(recs []model.Record, churn Mask) int {
	if len(recs) == 0 || churn.Fraction() >= s.rules.ChurnQuota {
		return 0
	}
	limit, ok := stats.Quantile(scores(recs, nil), s.rules.ChurnQuantile)
	if !ok {
		return 0
	}
	added := 0
	for i, rec := range recs {
		if rec.Score != nil && float64(*rec.Score) <= limit && !churn[i] {
			churn[i] = true
			added++
		}
	}
	return added
}

// ApplyUpsellRules flags a non-churn record when any of:
//   - score >= UpsellHighScore and value < the UpsellValueQuantile of values
//   - tenure > LongTenureDays and value < the UpsellAgedQuantile of values
//   - score >= UpsellPromoterScore
//
// Value quantiles are taken over all records. Churn-flagged records are never
// flagged, which is what makes ChurnRisk take precedence.
func (s *Segmenter) ApplyUpsellRules(recs []model.Record, churn Mask) Mask {
	r := s.rules
	upsell := make(Mask, len(recs))
	vals := values(recs)
	median, hasMedian := stats.Quantile(vals, r.UpsellValueQuantile)
	lowQuartile, hasQuartile := stats.Quantile(vals, r.UpsellAgedQuantile)

	for i, rec := range recs {
		if churn[i] {
			continue
		}
		if rec.Score != nil {
			score := *rec.Score
			if score >= r.UpsellPromoterScore {
				upsell[i] = true
				continue
			}
			if score >= r.UpsellHighScore && hasMedian && rec.Value != nil && *rec.Value < median {
				upsell[i] = true
				continue
			}
		}
		if rec.TenureDays != nil && *rec.TenureDays > r.LongTenureDays &&
			hasQuartile && rec.Value != nil && *rec.Value < lowQuartile {
			upsell[i] = true
		}
	}
	return upsell
}

// BackfillUpsellQuota marks every non-churn record with score >= the
// UpsellQuantile of non-churn scores when fewer than UpsellQuota of the
// non-churn records are flagged. Returns how many records it newly flagged.
func (s *Segmenter) BackfillUpsellQuota(recs []model.Record, churn, upsell Mask) int {
	eligible := 0
	flagged := 0
	for i := range recs {
		if churn[i] {
			continue
		}
		eligible++
		if upsell[i] {
			flagged++
		}
	}
	if eligible == 0 || float64(flagged)/float64(eligible) >= s.rules.UpsellQuota {
		return 0
	}
	limit, ok := stats.Quantile(scores(recs, churn), s.rules.UpsellQuantile)
	if !ok {
		return 0
	}
	added := 0
	for i, rec := range recs {
		if churn[i] || upsell[i] || rec.Score == nil {
			continue
		}
		if float64(*rec.Score) >= limit {
			upsell[i] = true
			added++
		}
	}
	return added
}

// Assign writes the final cluster: Regular by default, ChurnRisk where churn
// is set, UpsellPotential where upsell is set.
func Assign(recs []model.Record, churn, upsell Mask) {
	for i := range recs {
		recs[i].Cluster = model.Regular
		if churn[i] {
			recs[i].Cluster = model.ChurnRisk
		}
		if upsell[i] {
			recs[i].Cluster = model.UpsellPotential
		}
	}
}

// scores collects non-null scores, skipping positions set in exclude.
func scores(recs []model.Record, exclude Mask) []float64 {
	out := make([]float64, 0, len(recs))
	for i, r := range recs {
		if r.Score == nil || (exclude != nil && exclude[i]) {
			continue
		}
		out = append(out, float64(*r.Score))
	}
	return out
}

func values(recs []model.Record) []float64 {
	out := make([]float64, 0, len(recs))
	for _, r := range recs {
		if r.Value != nil {
			out = append(out, *r.Value)
		}
	}
	return out
}
