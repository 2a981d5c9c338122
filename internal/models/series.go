package models

import "time"

// MonthlySeries holds net flow per month for one account.
// Values[i] belongs to the month Start shifted by i months, so the axis has no gaps.
type MonthlySeries struct {
	Start  time.Time `json:"start"`
	Values []float64 `json:"values"`
}

// Len returns the number of months in the series
func (s MonthlySeries) Len() int {
	return len(s.Values)
}

// Empty reports whether the series has no observed months
func (s MonthlySeries) Empty() bool {
	return len(s.Values) == 0
}

// MonthAt returns the month start for index i
func (s MonthlySeries) MonthAt(i int) time.Time {
	return s.Start.AddDate(0, i, 0)
}

// End returns the last month of the series, zero time when empty
func (s MonthlySeries) End() time.Time {
	if s.Empty() {
		return time.Time{}
	}
	return s.MonthAt(len(s.Values) - 1)
}

// Value returns the net flow for the given month start
func (s MonthlySeries) Value(month time.Time) (float64, bool) {
	if s.Empty() {
		return 0, false
	}
	i := (month.Year()-s.Start.Year())*12 + int(month.Month()-s.Start.Month())
	if i < 0 || i >= len(s.Values) {
		return 0, false
	}
	return s.Values[i], true
}
