package output

import (
	"testing"

	"github.com/crimson-sun/clientpulse/internal/model"
)

func testReport() model.Report {
	return model.Report{
		RunID:  "run-1",
		Filter: model.FilterAll,
		Metrics: model.Metrics{
			TotalClients: 2,
		},
		Records: []model.Record{
			{ClientID: "a", Cluster: model.Regular, Attributes: map[string]string{"UF": "SP"}},
			{ClientID: "b", Cluster: model.ChurnRisk},
		},
	}
}

func TestFormatReportSummary(t *testing.T) {
	got := FormatReport(testReport(), Summary)
	if got.Records != nil {
		t.Fatalf("expected no records at Summary, got %d", len(got.Records))
	}
	if got.Metrics.TotalClients != 2 {
		t.Fatalf("metrics must survive, got %+v", got.Metrics)
	}
}

func TestFormatReportStandardDropsAttributes(t *testing.T) {
	in := testReport()
	got := FormatReport(in, Standard)
	if len(got.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got.Records))
	}
	if got.Records[0].Attributes != nil {
		t.Fatalf("expected attributes stripped, got %v", got.Records[0].Attributes)
	}
	if in.Records[0].Attributes["UF"] != "SP" {
		t.Fatal("FormatReport must not modify its input")
	}
}

func TestFormatReportFull(t *testing.T) {
	got := FormatReport(testReport(), Full)
	if got.Records[0].Attributes["UF"] != "SP" {
		t.Fatalf("expected attributes at Full, got %v", got.Records[0].Attributes)
	}
}

func TestParseVerbosity(t *testing.T) {
	tests := map[string]Verbosity{"summary": Summary, "": Standard, "Standard": Standard, "FULL": Full}
	for in, want := range tests {
		got, err := ParseVerbosity(in)
		if err != nil || got != want {
			t.Errorf("ParseVerbosity(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseVerbosity("loud"); err == nil {
		t.Error("expected error for unknown verbosity")
	}
}
