package reconcile

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

// WindowMode selects how the first compared month is chosen
type WindowMode string

const (
	// WindowJoint starts every account at the earliest actual month across all accounts
	WindowJoint WindowMode = "joint"
	// WindowPerAccount starts each account at its own earliest actual month,
	// falling back to the joint start for accounts without actuals
	WindowPerAccount WindowMode = "per-account"
)

// ParseWindowMode validates a window mode name
func ParseWindowMode(s string) (WindowMode, error) {
	switch WindowMode(s) {
	case WindowJoint, WindowPerAccount:
		return WindowMode(s), nil
	}
	return "", fmt.Errorf("unknown window mode %q", s)
}

// Reconciler aligns forecasts with realized actuals
type Reconciler struct {
	mode WindowMode
	log  *logrus.Logger
}

// NewReconciler initializes a new reconciler
func NewReconciler(mode WindowMode, log *logrus.Logger) *Reconciler {
	return &Reconciler{mode: mode, log: log}
}

// Reconcile builds one comparison table per account found in forecast or actuals.
// Row i compares the forecast at index i with the actuals of window start + i months.
// When no account has actuals every table is empty.
func (r *Reconciler) Reconcile(forecast map[int][]float64, actuals map[int]models.MonthlySeries, horizon int, now time.Time) map[int]models.ComparisonTable {
	accounts := accountsOf(forecast, actuals)
	result := make(map[int]models.ComparisonTable, len(accounts))

	jointStart, ok := earliestMonth(actuals)
	if !ok {
		r.log.Warn("No actuals available for comparison")
		for _, acc := range accounts {
			result[acc] = models.ComparisonTable{}
		}
		return result
	}

	for _, acc := range accounts {
		start := jointStart
		if series := actuals[acc]; r.mode == WindowPerAccount && !series.Empty() {
			start = series.Start
		}
		result[acc] = compareAccount(forecast[acc], actuals[acc], start, horizon, now)
	}
	return result
}

func compareAccount(forecast []float64, actuals models.MonthlySeries, start time.Time, horizon int, now time.Time) models.ComparisonTable {
	table := make(models.ComparisonTable, 0, horizon)
	for i := 0; i < horizon; i++ {
		month := start.AddDate(0, i, 0)
		var predicted float64
		if i < len(forecast) {
			predicted = forecast[i]
		}
		actual, _ := actuals.Value(month)
		adjusted := Prorate(predicted, month, now)

		table = append(table, models.ComparisonRow{
			Month:        month.Format("2006-01"),
			MonthStart:   month,
			Actual:       actual,
			Forecast:     adjusted,
			DeviationPct: DeviationOf(actual, adjusted),
		})
	}
	return table
}

// Prorate scales a full-month forecast by the elapsed share of month when month is
// the current calendar month of now. Other months are returned unchanged.
func Prorate(value float64, month, now time.Time) float64 {
	if month.Year() != now.Year() || month.Month() != now.Month() {
		return value
	}
	return value * float64(now.Day()) / float64(DaysIn(now.Year(), now.Month()))
}

// DaysIn returns the number of days in the given month
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DeviationOf returns (actual - forecast) / forecast * 100 rounded to 2 decimals.
// A zero forecast yields Unbounded when actual is non-zero and 0 otherwise.
func DeviationOf(actual, forecast float64) models.Deviation {
	if forecast == 0 {
		if actual != 0 {
			return models.Unbounded()
		}
		return models.Finite(0)
	}
	pct := (actual - forecast) / forecast * 100
	return models.Finite(math.Round(pct*100) / 100)
}

func earliestMonth(actuals map[int]models.MonthlySeries) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, s := range actuals {
		if s.Empty() {
			continue
		}
		if !found || s.Start.Before(earliest) {
			earliest = s.Start
			found = true
		}
	}
	return earliest, found
}

func accountsOf(forecast map[int][]float64, actuals map[int]models.MonthlySeries) []int {
	seen := make(map[int]struct{}, len(forecast)+len(actuals))
	for acc := range forecast {
		seen[acc] = struct{}{}
	}
	for acc := range actuals {
		seen[acc] = struct{}{}
	}
	accounts := make([]int, 0, len(seen))
	for acc := range seen {
		accounts = append(accounts, acc)
	}
	sort.Ints(accounts)
	return accounts
}
