package model

import "time"

// Record is one contract snapshot after normalization.
// Pointer fields are nil when the source cell could not be parsed.
type Record struct {
	ClientID    string            `json:"client_id"`
	Value       *float64          `json:"value"`
	SignedAt    *time.Time        `json:"signed_at"`
	Status      string            `json:"status"`
	Score       *int              `json:"score"`
	Category    ScoreCategory     `json:"categoria_nps,omitempty"`
	TenureDays  *int              `json:"tenure_days"`
	MonthSigned string            `json:"month_signed,omitempty"`
	Cluster     Cluster           `json:"cluster"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Dataset is an ordered set of records loaded from one source in one run.
type Dataset struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	LoadedAt  time.Time  `json:"loaded_at"`
	Records   []Record   `json:"records"`
	Fallbacks []Fallback `json:"fallbacks,omitempty"`
}

// FallbackKind names the recovered failure that produced a synthetic substitute.
type FallbackKind string

const (
	MissingColumn     FallbackKind = "missing_column"
	UnparseableColumn FallbackKind = "unparseable_column"
	EmptyActiveSubset FallbackKind = "empty_active_subset"
)

// Fallback records one degrade-to-synthetic decision taken while processing.
type Fallback struct {
	Field  string       `json:"field"`
	Kind   FallbackKind `json:"kind"`
	Detail string       `json:"detail,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Time returns a pointer to v.
func Time(v time.Time) *time.Time { return &v }
