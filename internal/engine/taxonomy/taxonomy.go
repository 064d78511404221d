// Package taxonomy classifies free-text contract statuses into the
// lifecycle classes the metrics need.
package taxonomy

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Class is the lifecycle class of a contract status.
type Class string

const (
	Active    Class = "active"
	Cancelled Class = "cancelled"
	Unknown   Class = "unknown"
)

// Taxonomy holds the folded status vocabulary.
type Taxonomy struct {
	activeKeywords []string
	cancelled      map[string]struct{}
	synthetic      []string
}

// New creates a Taxonomy. Keywords and statuses are folded once here so
// lookups compare folded forms.
func New(activeKeywords, cancelled, synthetic []string) *Taxonomy {
	t := &Taxonomy{
		cancelled: make(map[string]struct{}, len(cancelled)),
		synthetic: append([]string(nil), synthetic...),
	}
	for _, k := range activeKeywords {
		if f := Fold(k); f != "" {
			t.activeKeywords = append(t.activeKeywords, f)
		}
	}
	for _, s := range cancelled {
		t.cancelled[Fold(s)] = struct{}{}
	}
	return t
}

// Classify returns Cancelled for explicitly cancelled statuses, Active when
// the status contains an active keyword, Unknown otherwise.
// An explicit active keyword wins over the cancelled list.
func (t *Taxonomy) Classify(status string) Class {
	f := Fold(status)
	for _, k := range t.activeKeywords {
		if strings.Contains(f, k) {
			return Active
		}
	}
	if _, ok := t.cancelled[f]; ok {
		return Cancelled
	}
	return Unknown
}

// IsCancelled reports whether status is in the cancelled list.
func (t *Taxonomy) IsCancelled(status string) bool {
	_, ok := t.cancelled[Fold(status)]
	return ok
}

// IsActive reports whether status counts as active: it either carries an
// active keyword or is not explicitly cancelled.
func (t *Taxonomy) IsActive(status string) bool {
	return t.Classify(status) != Cancelled
}

// Synthetic returns the vocabulary used to fill a missing status column.
func (t *Taxonomy) Synthetic() []string {
	return t.synthetic
}

// Fold strips accents, surrounding space and case so "Ativá " and "ATIVA"
// compare equal.
func Fold(s string) string {
	tr := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(tr, strings.TrimSpace(s))
	if err != nil {
		out = strings.TrimSpace(s)
	}
	return cases.Upper(language.Und).String(out)
}
