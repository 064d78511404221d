package categorizer

import "github.com/crimson-sun/clientpulse/internal/model"

// Upper bounds (inclusive) of the Detractor and Neutral buckets.
const (
	DetractorMax = 6
	NeutralMax   = 8
	PromoterMax  = 10
)

// Categorize buckets a score using closed ranges:
// (-inf,6] Detractor, (6,8] Neutral, (8,10] Promoter.
// Scores above 10 are outside the domain and report ok=false.
func Categorize(score int) (model.ScoreCategory, bool) {
	switch {
	case score <= DetractorMax:
		return model.Detractor, true
	case score <= NeutralMax:
		return model.Neutral, true
	case score <= PromoterMax:
		return model.Promoter, true
	default:
		return "", false
	}
}

// Apply sets Category on every record with a score; records without one
// are left uncategorized.
func Apply(recs []model.Record) {
	for i := range recs {
		recs[i].Category = ""
		if recs[i].Score == nil {
			continue
		}
		if cat, ok := Categorize(*recs[i].Score); ok {
			recs[i].Category = cat
		}
	}
}
