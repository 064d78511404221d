package output

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/clientpulse/internal/model"
)

// Verbosity controls how much of a report a sink emits.
type Verbosity int

const (
	// Summary emits metrics and fallbacks only.
	Summary Verbosity = iota
	// Standard adds the annotated records without their extra attributes.
	Standard
	// Full emits everything.
	Full
)

func (v Verbosity) String() string {
	switch v {
	case Summary:
		return "summary"
	case Standard:
		return "standard"
	case Full:
		return "full"
	}
	return fmt.Sprintf("Verbosity(%d)", int(v))
}

// ParseVerbosity maps a config string to a Verbosity. Empty means Standard.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "summary":
		return Summary, nil
	case "", "standard":
		return Standard, nil
	case "full":
		return Full, nil
	}
	return Standard, fmt.Errorf("unknown verbosity %q", s)
}

// FormatReport returns a copy of the report with fields stripped according to verbosity.
// At Summary: Records is dropped. At Standard: record attributes are dropped.
// At Full: all fields preserved. The input report is never modified.
func FormatReport(r model.Report, verbosity Verbosity) model.Report {
	switch verbosity {
	case Summary:
		r.Records = nil
	case Standard:
		if len(r.Records) > 0 {
			recs := make([]model.Record, len(r.Records))
			copy(recs, r.Records)
			for i := range recs {
				recs[i].Attributes = nil
			}
			r.Records = recs
		}
	}
	return r
}
