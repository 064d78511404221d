package model

import (
	"sort"
	"strconv"
	"time"
)

// Canonical column names of the annotated output table.
const (
	ColClientID    = "client_id"
	ColValue       = "value"
	ColSignedAt    = "signed_at"
	ColStatus      = "status"
	ColScore       = "score"
	ColCategory    = "categoria_nps"
	ColTenureDays  = "tenure_days"
	ColMonthSigned = "month_signed"
	ColCluster     = "cluster"
)

// DateLayout is used for signature dates that carry no time of day.
const DateLayout = "2006-01-02"

// AnnotatedColumns lists the canonical and derived columns in output order.
func AnnotatedColumns() []string {
	return []string{
		ColClientID, ColValue, ColSignedAt, ColStatus, ColScore,
		ColCategory, ColTenureDays, ColMonthSigned, ColCluster,
	}
}

// IsDerived reports whether name is a column the engine computes itself.
// Derived columns found in an input table are dropped, never carried as attributes.
func IsDerived(name string) bool {
	switch name {
	case ColCategory, ColTenureDays, ColMonthSigned, ColCluster:
		return true
	}
	return false
}

// ToTable renders records back into a Table: canonical columns first, then
// every attribute key seen, sorted. Null fields become empty cells.
func ToTable(recs []Record) *Table {
	extraSet := make(map[string]struct{})
	for _, r := range recs {
		for k := range r.Attributes {
			extraSet[k] = struct{}{}
		}
	}
	extras := make([]string, 0, len(extraSet))
	for k := range extraSet {
		extras = append(extras, k)
	}
	sort.Strings(extras)

	t := &Table{Columns: append(AnnotatedColumns(), extras...)}
	t.Rows = make([][]string, len(recs))
	for i, r := range recs {
		row := []string{
			r.ClientID,
			formatFloat(r.Value),
			FormatDate(r.SignedAt),
			r.Status,
			formatInt(r.Score),
			string(r.Category),
			formatInt(r.TenureDays),
			r.MonthSigned,
			string(r.Cluster),
		}
		for _, k := range extras {
			row = append(row, r.Attributes[k])
		}
		t.Rows[i] = row
	}
	return t
}

// FormatDate renders a signature date, dropping the clock when it is midnight UTC.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	u := t.UTC()
	if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
		return u.Format(DateLayout)
	}
	return t.Format(time.RFC3339)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
