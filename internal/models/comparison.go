package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Deviation is the relative difference between actual and forecast.
// It is either a finite percentage or unbounded (no baseline but real movement).
type Deviation struct {
	pct       float64
	unbounded bool
}

// Finite builds a finite deviation
func Finite(pct float64) Deviation {
	return Deviation{pct: pct}
}

// Unbounded builds the deviation used when the forecast is zero and the actual is not
func Unbounded() Deviation {
	return Deviation{unbounded: true}
}

// IsUnbounded reports whether the deviation has no finite value
func (d Deviation) IsUnbounded() bool {
	return d.unbounded
}

// Percent returns the finite percentage; ok is false for an unbounded deviation
func (d Deviation) Percent() (pct float64, ok bool) {
	if d.unbounded {
		return 0, false
	}
	return d.pct, true
}

// Exceeds reports whether |deviation| is strictly greater than threshold
func (d Deviation) Exceeds(threshold float64) bool {
	if d.unbounded {
		return true
	}
	return math.Abs(d.pct) > threshold
}

func (d Deviation) String() string {
	if d.unbounded {
		return "inf%"
	}
	return fmt.Sprintf("%.2f%%", d.pct)
}

// MarshalJSON encodes a finite deviation as a number and an unbounded one as "inf"
func (d Deviation) MarshalJSON() ([]byte, error) {
	if d.unbounded {
		return []byte(`"inf"`), nil
	}
	return json.Marshal(d.pct)
}

// UnmarshalJSON accepts a number or the string "inf"
func (d *Deviation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "inf" {
			return fmt.Errorf("invalid deviation %q", s)
		}
		*d = Unbounded()
		return nil
	}
	var pct float64
	if err := json.Unmarshal(data, &pct); err != nil {
		return fmt.Errorf("invalid deviation: %w", err)
	}
	*d = Finite(pct)
	return nil
}

// ComparisonRow compares actual and forecast net flow for one account and month
type ComparisonRow struct {
	Month        string    `json:"month"` // Format: YYYY-MM
	MonthStart   time.Time `json:"-"`
	Actual       float64   `json:"actual"`
	Forecast     float64   `json:"forecast"`
	DeviationPct Deviation `json:"deviation_pct"`
}

// ComparisonTable is the month-ordered comparison for one account
type ComparisonTable []ComparisonRow

// MonitoringReport is the result of one monitoring run
type MonitoringReport struct {
	CompanyID      string                  `json:"company_id"`
	GeneratedAt    time.Time               `json:"generated_at"`
	Summary        string                  `json:"summary"`
	ComparisonData map[int]ComparisonTable `json:"comparison_data"`
}
