package model

import (
	"errors"
	"fmt"
	"strings"
)

// ScoreCategory is the satisfaction bucket derived from a 0–10 score.
// The zero value means the score was null.
type ScoreCategory string

const (
	Detractor ScoreCategory = "Detractor"
	Neutral   ScoreCategory = "Neutral"
	Promoter  ScoreCategory = "Promoter"
)

// ScoreCategories returns all categories in ascending order.
func ScoreCategories() []ScoreCategory {
	return []ScoreCategory{Detractor, Neutral, Promoter}
}

// Cluster is the behavioral segment a record is assigned to.
type Cluster string

const (
	Regular         Cluster = "Regular"
	ChurnRisk       Cluster = "ChurnRisk"
	UpsellPotential Cluster = "UpsellPotential"
)

// Clusters returns every cluster in assignment-precedence order.
func Clusters() []Cluster {
	return []Cluster{Regular, ChurnRisk, UpsellPotential}
}

// Filter selects the active subset for aggregation: All or a single cluster.
type Filter string

// FilterAll keeps every record.
const FilterAll Filter = "All"

// ErrUnknownFilter is returned by ParseFilter for unrecognized selections.
var ErrUnknownFilter = errors.New("unknown cluster filter")

// ParseFilter accepts "All" or a cluster name, case-insensitively.
// An empty string selects All.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(FilterAll)) {
		return FilterAll, nil
	}
	for _, c := range Clusters() {
		if strings.EqualFold(s, string(c)) {
			return Filter(c), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFilter, s)
}

// Apply returns the records matching the filter. All returns recs unchanged.
func (f Filter) Apply(recs []Record) []Record {
	if f == FilterAll || f == "" {
		return recs
	}
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if r.Cluster == Cluster(f) {
			out = append(out, r)
		}
	}
	return out
}
