package coercer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/clientpulse/internal/model"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestCoercer() *Coercer {
	return New(WithSeed(7), WithClock(func() time.Time { return fixedNow }))
}

func TestParseValue(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1234.5", 1234.5, true},
		{"1234,5", 1234.5, true},
		{"1.234,56", 1234.56, true},
		{"1,234.56", 1234.56, true},
		{"R$ 12.000,00", 12000, true},
		{"1.234.567", 1234567, true},
		{" 250 ", 250, true},
		{"", 0, false},
		{"abc", 0, false},
		{"-10", 0, false},
		{"NaN", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseValue(c.in)
		assert.Equal(t, c.ok, ok, "ParseValue(%q) ok", c.in)
		if c.ok {
			assert.InDelta(t, c.want, got, 1e-9, "ParseValue(%q)", c.in)
		}
	}
}

func TestParseScore(t *testing.T) {
	ok := map[string]int{"0": 0, "7": 7, "10": 10, "7.0": 7, " 9 ": 9}
	for in, want := range ok {
		got, parsed := ParseScore(in)
		require.True(t, parsed, "ParseScore(%q)", in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"", "11", "-1", "7.5", "x"} {
		_, parsed := ParseScore(in)
		assert.False(t, parsed, "ParseScore(%q) should fail", in)
	}
}

func TestParseDate(t *testing.T) {
	cases := map[string]time.Time{
		"2024-03-05":           time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		"2024-03-05 10:20:30":  time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC),
		"05/03/2024":           time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		"2024-03-05T10:20:30Z": time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC),
		"2024/03/05":           time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, ok := ParseDate(in)
		require.True(t, ok, "ParseDate(%q)", in)
		assert.True(t, want.Equal(got), "ParseDate(%q) = %v, want %v", in, got, want)
	}
	_, ok := ParseDate("not a date")
	assert.False(t, ok)
}

func TestCoerceTypesCanonicalColumns(t *testing.T) {
	tbl := &model.Table{
		Columns: []string{"client_id", "value", "signed_at", "status", "score", "UF"},
		Rows: [][]string{
			{"C1", "1.500,50", "2025-06-05", " ATIVO ", "9", "SP"},
			{"C2", "oops", "garbage", "CANCELADO", "", ""},
		},
	}
	recs, fallbacks := newTestCoercer().Coerce(tbl)

	require.Empty(t, fallbacks)
	require.Len(t, recs, 2)

	r := recs[0]
	assert.Equal(t, "C1", r.ClientID)
	require.NotNil(t, r.Value)
	assert.InDelta(t, 1500.5, *r.Value, 1e-9)
	require.NotNil(t, r.TenureDays)
	assert.Equal(t, 10, *r.TenureDays)
	assert.Equal(t, "2025-06", r.MonthSigned)
	assert.Equal(t, "ATIVO", r.Status)
	require.NotNil(t, r.Score)
	assert.Equal(t, 9, *r.Score)
	assert.Equal(t, map[string]string{"UF": "SP"}, r.Attributes)

	// Per-cell failures become nulls; the column survives because other cells parsed.
	assert.Nil(t, recs[1].Value)
	assert.Nil(t, recs[1].SignedAt)
	assert.Nil(t, recs[1].TenureDays)
	assert.Nil(t, recs[1].Score)
	assert.Nil(t, recs[1].Attributes)
}

// Degrade-to-synthetic is a demo-friendly policy: a production report would
// rather fail loudly than invent contract values.
func TestCoerceMissingValueColumnIsSynthetic(t *testing.T) {
	tbl := &model.Table{
		Columns: []string{"client_id", "score"},
		Rows:    [][]string{{"a", "5"}, {"b", "6"}, {"c", "7"}},
	}
	recs, fallbacks := newTestCoercer().Coerce(tbl)

	for _, r := range recs {
		require.NotNil(t, r.Value)
		assert.GreaterOrEqual(t, *r.Value, 1000.0)
		assert.LessOrEqual(t, *r.Value, 100000.0)
		require.NotNil(t, r.SignedAt)
		require.NotNil(t, r.TenureDays)
		assert.GreaterOrEqual(t, *r.TenureDays, 1)
		assert.Less(t, *r.TenureDays, 1000)
		assert.Contains(t, []string{"ATIVO", "CANCELADO", "TROCADO", "GRATUITO"}, r.Status)
	}

	kinds := map[string]model.FallbackKind{}
	for _, fb := range fallbacks {
		kinds[fb.Field] = fb.Kind
	}
	assert.Equal(t, model.MissingColumn, kinds[model.ColValue])
	assert.Equal(t, model.MissingColumn, kinds[model.ColSignedAt])
	assert.Equal(t, model.MissingColumn, kinds[model.ColStatus])
	_, scoreFellBack := kinds[model.ColScore]
	assert.False(t, scoreFellBack)
}

func TestCoerceAllUnparseableValuesEscalate(t *testing.T) {
	tbl := &model.Table{
		Columns: []string{"value"},
		Rows:    [][]string{{"n/a"}, {"-"}, {""}},
	}
	recs, fallbacks := newTestCoercer().Coerce(tbl)

	var found bool
	for _, fb := range fallbacks {
		if fb.Field == model.ColValue {
			found = true
			assert.Equal(t, model.UnparseableColumn, fb.Kind)
		}
	}
	require.True(t, found, "expected a value fallback")
	for _, r := range recs {
		require.NotNil(t, r.Value)
		assert.GreaterOrEqual(t, *r.Value, 1000.0)
	}
}

func TestCoerceMissingClientIDUsesRowIndex(t *testing.T) {
	tbl := &model.Table{Columns: []string{"score"}, Rows: [][]string{{"1"}, {"2"}}}
	recs, _ := newTestCoercer().Coerce(tbl)
	assert.Equal(t, "0", recs[0].ClientID)
	assert.Equal(t, "1", recs[1].ClientID)
}

func TestCoerceSyntheticScoresInRange(t *testing.T) {
	rows := make([][]string, 200)
	for i := range rows {
		rows[i] = []string{"x"}
	}
	recs, _ := newTestCoercer().Coerce(&model.Table{Columns: []string{"client_id"}, Rows: rows})
	for _, r := range recs {
		require.NotNil(t, r.Score)
		assert.GreaterOrEqual(t, *r.Score, 0)
		assert.LessOrEqual(t, *r.Score, 10)
	}
}

func TestCoerceIsDeterministicForASeed(t *testing.T) {
	tbl := &model.Table{Columns: []string{"client_id"}, Rows: [][]string{{"a"}, {"b"}}}
	first, _ := newTestCoercer().Coerce(tbl)
	second, _ := newTestCoercer().Coerce(tbl)
	for i := range first {
		assert.Equal(t, *first[i].Value, *second[i].Value)
		assert.Equal(t, *first[i].Score, *second[i].Score)
		assert.True(t, first[i].SignedAt.Equal(*second[i].SignedAt))
	}
}

func TestCoerceDropsDerivedColumns(t *testing.T) {
	tbl := &model.Table{
		Columns: []string{"client_id", "cluster", "tenure_days", "segment"},
		Rows:    [][]string{{"a", "ChurnRisk", "12", "RETAIL"}},
	}
	recs, _ := newTestCoercer().Coerce(tbl)
	assert.Equal(t, map[string]string{"segment": "RETAIL"}, recs[0].Attributes)
	assert.Equal(t, model.Cluster(""), recs[0].Cluster)
}

func TestCoerceEmptyTable(t *testing.T) {
	recs, fallbacks := newTestCoercer().Coerce(&model.Table{Columns: []string{"client_id", "value", "signed_at", "status", "score"}})
	assert.Empty(t, recs)
	assert.Empty(t, fallbacks)
}
