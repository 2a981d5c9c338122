// Package summary renders comparison tables into a short markdown report.
package summary

import (
	"fmt"
	"strings"

	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/dustin/go-humanize"
)

// AnomalyThreshold is the absolute deviation percentage above which a row is flagged
const AnomalyThreshold = 20.0

// AnomalyMarker is appended to flagged rows
const AnomalyMarker = "🚨"

// Title heads every summary
const Title = "## Monthly Financial Health Summary"

// NoData is rendered for accounts with an empty comparison table
const NoData = "No data for comparison."

// Summarize renders one section per tracked account, in the order given
func Summarize(comparison map[int]models.ComparisonTable, tracked []models.TrackedAccount) string {
	var b strings.Builder
	b.WriteString(Title)
	b.WriteString("\n")

	for _, acc := range tracked {
		fmt.Fprintf(&b, "\n%s\n", SectionHeader(acc))
		rows := comparison[acc.Number]
		if len(rows) == 0 {
			b.WriteString(NoData)
			b.WriteString("\n")
			continue
		}
		for _, row := range rows {
			b.WriteString(renderRow(row))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// SectionHeader returns the markdown header for an account section
func SectionHeader(acc models.TrackedAccount) string {
	return fmt.Sprintf("### %s (%d)", acc.Label, acc.Number)
}

func renderRow(row models.ComparisonRow) string {
	line := fmt.Sprintf("- %s: Actual=%s, Forecast=%s, Deviation=%s",
		row.Month, money(row.Actual), money(row.Forecast), row.DeviationPct)
	if row.DeviationPct.Exceeds(AnomalyThreshold) {
		line += " " + AnomalyMarker
	}
	return line
}

func money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// CountAnomalies returns the number of flagged rows across all tables
func CountAnomalies(comparison map[int]models.ComparisonTable) int {
	var n int
	for _, rows := range comparison {
		for _, row := range rows {
			if row.DeviationPct.Exceeds(AnomalyThreshold) {
				n++
			}
		}
	}
	return n
}
