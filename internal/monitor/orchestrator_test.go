package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/ledger-monitor/internal/forecast"
	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/Dan9191/ledger-monitor/internal/reconcile"
	"github.com/sirupsen/logrus/hooks/test"
)

type memorySource map[string]*models.Snapshot

func (m memorySource) Snapshot(_ context.Context, companyID string) (*models.Snapshot, error) {
	snap, ok := m[companyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCompanyNotFound, companyID)
	}
	return snap, nil
}

// constantModel predicts the same sample set for every step
type constantModel struct {
	value float64
	err   error
	calls int
	batch [][]float64
}

func (m *constantModel) Predict(_ context.Context, batch [][]float64, horizon int) ([]forecast.Prediction, error) {
	m.calls++
	m.batch = batch
	if m.err != nil {
		return nil, m.err
	}
	preds := make([]forecast.Prediction, len(batch))
	for i := range batch {
		steps := make([][]float64, horizon)
		for s := range steps {
			steps[s] = []float64{m.value - 10, m.value + 10}
		}
		preds[i] = forecast.Prediction{Samples: steps}
	}
	return preds, nil
}

var tracked = []models.TrackedAccount{
	{Number: 6000, Label: "Expense Account"},
	{Number: 1910, Label: "Bank Account"},
	{Number: 4000, Label: "Revenue Account"},
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fixture: 1910 has 14 complete months before June 2024 plus activity in June,
// 4000 has two months, 6000 has nothing.
func fixture() *models.Snapshot {
	var bank []models.LedgerEntry
	start := date(2023, 4, 5)
	for i := 0; i < 14; i++ {
		bank = append(bank, models.LedgerEntry{AccountNumber: 1910, Date: start.AddDate(0, i, 0), Credit: 300})
	}
	bank = append(bank, models.LedgerEntry{AccountNumber: 1910, Date: date(2024, 6, 3), Credit: 130})
	bank = append(bank, models.LedgerEntry{AccountNumber: 1910, Date: date(2024, 6, 25), Credit: 999}) // after now

	return &models.Snapshot{
		CompanyID: "RetailGiant",
		Accounts: []models.LedgerAccount{
			{Number: 1910, Name: "Bank", Entries: bank},
			{Number: 4000, Name: "Revenue", Entries: []models.LedgerEntry{
				{AccountNumber: 4000, Date: date(2024, 4, 2), Credit: 50},
				{AccountNumber: 4000, Date: date(2024, 5, 2), Credit: 60},
			}},
			{Number: 6000, Name: "Expense"},
		},
	}
}

func newOrchestrator(model forecast.Model) *Orchestrator {
	logger, _ := test.NewNullLogger()
	gateway := forecast.NewGateway(model, forecast.DefaultMinHistory, logger)
	reconciler := reconcile.NewReconciler(reconcile.WindowJoint, logger)
	src := memorySource{"RetailGiant": fixture()}
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	return NewOrchestrator(src, gateway, reconciler, tracked, 3, logger).WithClock(func() time.Time { return now })
}

func TestRunEndToEnd(t *testing.T) {
	model := &constantModel{value: 300}
	report, err := newOrchestrator(model).Run(context.Background(), "RetailGiant")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if model.calls != 1 || len(model.batch) != 1 || len(model.batch[0]) != 14 {
		t.Fatalf("expected one model call with the 14-month bank series, got calls=%d batch=%v", model.calls, model.batch)
	}
	if len(report.ComparisonData) != 3 {
		t.Fatalf("expected 3 tables, got %d", len(report.ComparisonData))
	}
	for acc, table := range report.ComparisonData {
		if len(table) != 3 {
			t.Errorf("account %d: expected 3 rows, got %d", acc, len(table))
		}
	}

	bank := report.ComparisonData[1910]
	if bank[0].Month != "2024-04" || bank[2].Month != "2024-06" {
		t.Errorf("unexpected window %s..%s", bank[0].Month, bank[2].Month)
	}
	if bank[2].Actual != 130 || bank[2].Forecast != 100 {
		t.Errorf("expected June actual 130 vs prorated forecast 100, got %+v", bank[2])
	}
	if pct, _ := bank[2].DeviationPct.Percent(); pct != 30 {
		t.Errorf("expected 30%% deviation, got %v", bank[2].DeviationPct)
	}

	revenue := report.ComparisonData[4000]
	if revenue[2].Forecast != 0 || !revenue[0].DeviationPct.IsUnbounded() {
		t.Errorf("expected degraded revenue forecast, got %+v", revenue)
	}
	expense := report.ComparisonData[6000]
	for _, row := range expense {
		if pct, ok := row.DeviationPct.Percent(); !ok || pct != 0 {
			t.Errorf("expected zero deviation for empty expense account, got %v", row.DeviationPct)
		}
	}

	e := strings.Index(report.Summary, "### Expense Account (6000)")
	b := strings.Index(report.Summary, "### Bank Account (1910)")
	r := strings.Index(report.Summary, "### Revenue Account (4000)")
	if e < 0 || b < 0 || r < 0 || !(e < b && b < r) {
		t.Errorf("sections missing or out of order in\n%s", report.Summary)
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("report should serialize: %v", err)
	}
	if !strings.Contains(string(data), `"1910":[`) || !strings.Contains(string(data), `"deviation_pct":"inf"`) {
		t.Errorf("unexpected JSON %s", data)
	}
}

func TestRunNoActuals(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := memorySource{"Quiet": {CompanyID: "Quiet"}}
	o := NewOrchestrator(src,
		forecast.NewGateway(&constantModel{}, forecast.DefaultMinHistory, logger),
		reconcile.NewReconciler(reconcile.WindowJoint, logger),
		tracked, 3, logger)

	report, err := o.Run(context.Background(), "Quiet")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for acc, table := range report.ComparisonData {
		if len(table) != 0 {
			t.Errorf("account %d: expected empty table", acc)
		}
	}
	if strings.Count(report.Summary, "No data for comparison.") != 3 {
		t.Errorf("expected a no data line per account, got\n%s", report.Summary)
	}
}

func TestRunHardFailures(t *testing.T) {
	_, err := newOrchestrator(&constantModel{}).Run(context.Background(), "Unknown")
	if !errors.Is(err, models.ErrCompanyNotFound) {
		t.Errorf("expected ErrCompanyNotFound, got %v", err)
	}

	report, err := newOrchestrator(&constantModel{err: context.DeadlineExceeded}).Run(context.Background(), "RetailGiant")
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
	if errors.Is(err, models.ErrCompanyNotFound) {
		t.Error("model failure must not look like an unknown company")
	}
	if report != nil {
		t.Error("expected no partial report")
	}
}

func TestForecastAccount(t *testing.T) {
	o := newOrchestrator(&constantModel{value: 300})

	got, err := o.ForecastAccount(context.Background(), "RetailGiant", 1910, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Label != "Bank Account" || got.HistoryStart != "2023-04" || got.ForecastStart != "2024-07" {
		t.Errorf("unexpected metadata %+v", got)
	}
	if len(got.Historical) != 15 || len(got.Forecast) != 2 {
		t.Errorf("unexpected lengths history=%d forecast=%d", len(got.Historical), len(got.Forecast))
	}
	if got.Forecast[0] != 300 || got.Low[0] >= got.Forecast[0] || got.High[0] <= got.Forecast[0] {
		t.Errorf("unexpected curves low=%v mid=%v high=%v", got.Low, got.Forecast, got.High)
	}

	if _, err := o.ForecastAccount(context.Background(), "RetailGiant", 4000, 2); !errors.Is(err, models.ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestForecastAccountRejectsUntracked(t *testing.T) {
	model := &constantModel{value: 300}
	o := newOrchestrator(model)

	_, err := o.ForecastAccount(context.Background(), "RetailGiant", 2400, 2)
	if !errors.Is(err, models.ErrAccountNotTracked) {
		t.Fatalf("expected ErrAccountNotTracked, got %v", err)
	}
	if model.calls != 0 {
		t.Errorf("model should not be called for an untracked account")
	}
}
