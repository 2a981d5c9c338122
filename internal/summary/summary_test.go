package summary

import (
	"strings"
	"testing"

	"github.com/Dan9191/ledger-monitor/internal/models"
)

var tracked = []models.TrackedAccount{
	{Number: 6000, Label: "Expense Account"},
	{Number: 1910, Label: "Bank Account"},
	{Number: 4000, Label: "Revenue Account"},
}

func TestSummarizeOrderAndFlags(t *testing.T) {
	comparison := map[int]models.ComparisonTable{
		1910: {
			{Month: "2024-04", Actual: 1234.5, Forecast: 1000, DeviationPct: models.Finite(23.45)},
			{Month: "2024-05", Actual: 110, Forecast: 100, DeviationPct: models.Finite(10)},
			{Month: "2024-06", Actual: 50, Forecast: 0, DeviationPct: models.Unbounded()},
			{Month: "2024-07", Actual: 70, Forecast: 100, DeviationPct: models.Finite(-30)},
		},
		4000: {},
	}

	out := Summarize(comparison, tracked)

	if !strings.HasPrefix(out, Title) {
		t.Errorf("expected summary to start with title, got %q", out)
	}
	expense := strings.Index(out, "### Expense Account (6000)")
	bank := strings.Index(out, "### Bank Account (1910)")
	revenue := strings.Index(out, "### Revenue Account (4000)")
	if expense < 0 || bank < 0 || revenue < 0 {
		t.Fatalf("missing section header in %q", out)
	}
	if !(expense < bank && bank < revenue) {
		t.Errorf("sections not in caller order: %d %d %d", expense, bank, revenue)
	}
	if strings.Count(out, NoData) != 2 {
		t.Errorf("expected 2 no data lines, got %q", out)
	}

	lines := strings.Split(out, "\n")
	want := map[string]bool{
		"- 2024-04: Actual=1,234.50, Forecast=1,000.00, Deviation=23.45% 🚨": true,
		"- 2024-05: Actual=110.00, Forecast=100.00, Deviation=10.00%":        true,
		"- 2024-06: Actual=50.00, Forecast=0.00, Deviation=inf% 🚨":           true,
		"- 2024-07: Actual=70.00, Forecast=100.00, Deviation=-30.00% 🚨":      true,
	}
	for _, line := range lines {
		delete(want, line)
	}
	for line := range want {
		t.Errorf("missing line %q in\n%s", line, out)
	}
}

func TestSummarizeDoesNotAlterTable(t *testing.T) {
	row := models.ComparisonRow{Month: "2024-01", Actual: 1.005, Forecast: 2.5, DeviationPct: models.Finite(-59.8)}
	comparison := map[int]models.ComparisonTable{1910: {row}}
	Summarize(comparison, tracked)
	if comparison[1910][0] != row {
		t.Errorf("row was modified: %+v", comparison[1910][0])
	}
}

func TestCountAnomalies(t *testing.T) {
	comparison := map[int]models.ComparisonTable{
		1: {{DeviationPct: models.Finite(20)}, {DeviationPct: models.Finite(-20.01)}},
		2: {{DeviationPct: models.Unbounded()}, {DeviationPct: models.Finite(0)}},
	}
	if got := CountAnomalies(comparison); got != 2 {
		t.Errorf("expected 2 anomalies, got %d", got)
	}
}
