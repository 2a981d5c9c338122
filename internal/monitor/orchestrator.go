package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/ledger-monitor/internal/forecast"
	"github.com/Dan9191/ledger-monitor/internal/ledger"
	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/Dan9191/ledger-monitor/internal/reconcile"
	"github.com/Dan9191/ledger-monitor/internal/summary"
	"github.com/sirupsen/logrus"
)

// MinMetricHistory is the number of monthly points required by ForecastAccount
const MinMetricHistory = 10

// LedgerSource returns the ledger snapshot of a company.
// Unknown companies are reported as models.ErrCompanyNotFound.
type LedgerSource interface {
	Snapshot(ctx context.Context, companyID string) (*models.Snapshot, error)
}

// Orchestrator runs the monitoring pipeline for one company at a time.
// It holds no per-run state, so concurrent runs for different companies are safe.
type Orchestrator struct {
	source     LedgerSource
	gateway    *forecast.Gateway
	reconciler *reconcile.Reconciler
	tracked    []models.TrackedAccount
	horizon    int
	now        func() time.Time
	log        *logrus.Logger
}

// NewOrchestrator initializes a new orchestrator
func NewOrchestrator(source LedgerSource, gateway *forecast.Gateway, reconciler *reconcile.Reconciler, tracked []models.TrackedAccount, horizon int, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		source:     source,
		gateway:    gateway,
		reconciler: reconciler,
		tracked:    tracked,
		horizon:    horizon,
		now:        time.Now,
		log:        log,
	}
}

// WithClock replaces the clock used to split history from actuals
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Tracked returns the monitored accounts in report order
func (o *Orchestrator) Tracked() []models.TrackedAccount {
	return o.tracked
}

// Run aggregates the company ledger, forecasts the tracked accounts from complete months,
// reconciles the forecast against the last horizon months and renders the report.
func (o *Orchestrator) Run(ctx context.Context, companyID string) (*models.MonitoringReport, error) {
	now := o.now()
	log := o.log.WithFields(logrus.Fields{"company_id": companyID, "horizon": o.horizon})

	snap, err := o.source.Snapshot(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	entries := snap.Entries()
	accounts := models.AccountNumbers(o.tracked)

	historyEnd, actualsStart, actualsEnd := ledger.SplitWindows(now, o.horizon)
	history := ledger.Aggregate(ledger.Between(entries, time.Time{}, historyEnd), accounts)
	actuals := ledger.Aggregate(ledger.Between(entries, actualsStart, actualsEnd), accounts)
	log.WithField("entries", len(entries)).Debug("Ledger aggregated")

	predicted, err := o.gateway.Forecast(ctx, history, o.horizon)
	if err != nil {
		log.WithError(err).Error("Forecast failed")
		return nil, fmt.Errorf("failed to forecast %s: %w", companyID, err)
	}
	log.Debug("Forecast received")

	comparison := o.reconciler.Reconcile(predicted, actuals, o.horizon, now)
	report := &models.MonitoringReport{
		CompanyID:      companyID,
		GeneratedAt:    now,
		Summary:        summary.Summarize(comparison, o.tracked),
		ComparisonData: comparison,
	}

	log.WithField("anomalies", summary.CountAnomalies(comparison)).Info("Monitoring finished")
	return report, nil
}

// ForecastAccount returns the full monthly history of one tracked account with a median forecast
// and a 10-90% interval for the next periods months.
func (o *Orchestrator) ForecastAccount(ctx context.Context, companyID string, account, periods int) (*models.MetricForecast, error) {
	label, ok := o.labelOf(account)
	if !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrAccountNotTracked, account)
	}

	snap, err := o.source.Snapshot(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	series := ledger.Aggregate(snap.Entries(), []int{account})[account]
	if series.Len() < MinMetricHistory {
		return nil, fmt.Errorf("%w: account %d has %d months, need %d", models.ErrInsufficientHistory, account, series.Len(), MinMetricHistory)
	}

	curves, err := o.gateway.Quantiles(ctx, series, periods, 0.1, forecast.MedianLevel, 0.9)
	if err != nil {
		return nil, fmt.Errorf("failed to forecast account %d: %w", account, err)
	}

	return &models.MetricForecast{
		AccountNumber: account,
		Label:         label,
		HistoryStart:  series.Start.Format("2006-01"),
		Historical:    series.Values,
		ForecastStart: series.End().AddDate(0, 1, 0).Format("2006-01"),
		Low:           curves[0],
		Forecast:      curves[1],
		High:          curves[2],
	}, nil
}

func (o *Orchestrator) labelOf(account int) (string, bool) {
	for _, acc := range o.tracked {
		if acc.Number == account {
			return acc.Label, true
		}
	}
	return "", false
}
