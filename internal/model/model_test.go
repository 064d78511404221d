package model

import (
	"errors"
	"testing"
	"time"
)

func TestParseFilter(t *testing.T) {
	cases := map[string]Filter{
		"":                FilterAll,
		"all":             FilterAll,
		"All":             FilterAll,
		"churnrisk":       Filter(ChurnRisk),
		"UpsellPotential": Filter(UpsellPotential),
		" Regular ":       Filter(Regular),
	}
	for in, want := range cases {
		got, err := ParseFilter(in)
		if err != nil {
			t.Fatalf("ParseFilter(%q): unexpected error %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseFilter(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := ParseFilter("Todos"); !errors.Is(err, ErrUnknownFilter) {
		t.Fatalf("expected ErrUnknownFilter, got %v", err)
	}
}

func TestFilterApply(t *testing.T) {
	recs := []Record{
		{ClientID: "a", Cluster: Regular},
		{ClientID: "b", Cluster: ChurnRisk},
		{ClientID: "c", Cluster: ChurnRisk},
	}
	if got := FilterAll.Apply(recs); len(got) != 3 {
		t.Fatalf("All: got %d records, want 3", len(got))
	}
	got := Filter(ChurnRisk).Apply(recs)
	if len(got) != 2 || got[0].ClientID != "b" || got[1].ClientID != "c" {
		t.Fatalf("ChurnRisk: got %+v", got)
	}
	if got := Filter(UpsellPotential).Apply(recs); len(got) != 0 {
		t.Fatalf("UpsellPotential: got %d records, want 0", len(got))
	}
}

func TestTableColumnPadsShortRows(t *testing.T) {
	tbl := &Table{
		Columns: []string{"a", "b"},
		Rows:    [][]string{{"1", "2"}, {"3"}},
	}
	col, ok := tbl.Column("b")
	if !ok {
		t.Fatal("expected column b")
	}
	if col[0] != "2" || col[1] != "" {
		t.Fatalf("got %q", col)
	}
	if _, ok := tbl.Column("missing"); ok {
		t.Fatal("expected missing column to report false")
	}
	if !tbl.Rename("a", "x") || tbl.Has("a") || !tbl.Has("x") {
		t.Fatalf("rename failed: %v", tbl.Columns)
	}
}

func TestToTable(t *testing.T) {
	signed := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	recs := []Record{
		{
			ClientID:    "C1",
			Value:       Float(1234.5),
			SignedAt:    &signed,
			Status:      "ATIVO",
			Score:       Int(9),
			Category:    Promoter,
			TenureDays:  Int(40),
			MonthSigned: "2024-03",
			Cluster:     UpsellPotential,
			Attributes:  map[string]string{"UF": "SP"},
		},
		{ClientID: "C2", Cluster: Regular},
	}

	tbl := ToTable(recs)

	wantCols := append(AnnotatedColumns(), "UF")
	if len(tbl.Columns) != len(wantCols) {
		t.Fatalf("columns = %v, want %v", tbl.Columns, wantCols)
	}
	for i := range wantCols {
		if tbl.Columns[i] != wantCols[i] {
			t.Fatalf("column %d = %q, want %q", i, tbl.Columns[i], wantCols[i])
		}
	}
	want := []string{"C1", "1234.5", "2024-03-05", "ATIVO", "9", "Promoter", "40", "2024-03", "UpsellPotential", "SP"}
	for i, cell := range want {
		if tbl.Rows[0][i] != cell {
			t.Fatalf("row 0 cell %d = %q, want %q", i, tbl.Rows[0][i], cell)
		}
	}
	if tbl.Rows[1][1] != "" || tbl.Rows[1][2] != "" || tbl.Rows[1][4] != "" {
		t.Fatalf("null fields should render empty: %q", tbl.Rows[1])
	}
}

func TestFormatDateKeepsClock(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	if got := FormatDate(&ts); got != "2024-03-05T14:30:00Z" {
		t.Fatalf("got %q", got)
	}
	if got := FormatDate(nil); got != "" {
		t.Fatalf("nil date: got %q", got)
	}
}
