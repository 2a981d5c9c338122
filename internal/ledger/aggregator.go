package ledger

import (
	"time"

	"github.com/Dan9191/ledger-monitor/internal/models"
)

// MonthOf truncates t to the first day of its calendar month
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthsBetween returns the number of whole months from a to b
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()-a.Month())
}

// Aggregate builds a gap-free monthly net flow series for every tracked account.
// Accounts without entries get an empty series. Entries with a zero date are skipped.
func Aggregate(entries []models.LedgerEntry, tracked []int) map[int]models.MonthlySeries {
	sums := make(map[int]map[time.Time]float64, len(tracked))
	for _, acc := range tracked {
		sums[acc] = make(map[time.Time]float64)
	}

	for _, e := range entries {
		bucket, ok := sums[e.AccountNumber]
		if !ok || e.Date.IsZero() {
			continue
		}
		bucket[MonthOf(e.Date)] += e.NetFlow()
	}

	result := make(map[int]models.MonthlySeries, len(tracked))
	for acc, bucket := range sums {
		result[acc] = densify(bucket)
	}
	return result
}

// densify reindexes monthly sums over every month between the min and max observed month
func densify(bucket map[time.Time]float64) models.MonthlySeries {
	if len(bucket) == 0 {
		return models.MonthlySeries{}
	}

	var first, last time.Time
	for month := range bucket {
		if first.IsZero() || month.Before(first) {
			first = month
		}
		if last.IsZero() || month.After(last) {
			last = month
		}
	}

	values := make([]float64, MonthsBetween(first, last)+1)
	for i := range values {
		values[i] = bucket[first.AddDate(0, i, 0)]
	}
	return models.MonthlySeries{Start: first, Values: values}
}

// Between returns the entries dated within [from, to], both inclusive.
// A zero from leaves the range open at the start.
func Between(entries []models.LedgerEntry, from, to time.Time) []models.LedgerEntry {
	var out []models.LedgerEntry
	for _, e := range entries {
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		if e.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SplitWindows returns the history cut-off and the actuals window for a monitoring run.
// History covers every entry up to the end of the previous complete month; actuals cover
// the last horizon months including the current, partially elapsed, one, up to the end of
// today. Calendar fields are taken from now and laid out in UTC like entry dates.
func SplitWindows(now time.Time, horizon int) (historyEnd, actualsStart, actualsEnd time.Time) {
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	historyEnd = current.Add(-time.Nanosecond)
	actualsStart = current.AddDate(0, -(horizon - 1), 0)
	actualsEnd = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return historyEnd, actualsStart, actualsEnd
}
