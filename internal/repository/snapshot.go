package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/ledger-monitor/internal/models"
)

// dateLayouts are the accepted entry date formats
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// flexNumber decodes a JSON number, a numeric string or null
type flexNumber struct {
	value float64
	set   bool
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", s, err)
		}
		n.value, n.set = v, true
		return nil
	}
	if err := json.Unmarshal(data, &n.value); err != nil {
		return err
	}
	n.set = true
	return nil
}

type rawEntry struct {
	Date   *string    `json:"date"`
	Debit  flexNumber `json:"debit"`
	Debet  flexNumber `json:"debet"`
	Credit flexNumber `json:"credit"`
}

type rawAccount struct {
	AccountNumber flexNumber `json:"account_number"`
	AccountName   string     `json:"account_name"`
	Entries       []rawEntry `json:"entries"`
}

// parseDate accepts the date layouts found in ledger exports
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// buildSnapshot validates raw ledger records. Entries without a parseable date and
// accounts without a usable number are quarantined instead of failing the load.
func buildSnapshot(companyID string, raw []rawAccount, reports map[string]json.RawMessage) *models.Snapshot {
	snap := &models.Snapshot{CompanyID: companyID, Reports: reports}
	for _, acc := range raw {
		if !acc.AccountNumber.set {
			snap.Quarantined += len(acc.Entries)
			continue
		}
		number := int(acc.AccountNumber.value)
		account := models.LedgerAccount{Number: number, Name: acc.AccountName}
		for _, e := range acc.Entries {
			if e.Date == nil {
				snap.Quarantined++
				continue
			}
			date, err := parseDate(*e.Date)
			if err != nil {
				snap.Quarantined++
				continue
			}
			debit := e.Debit.value
			if !e.Debit.set {
				debit = e.Debet.value
			}
			account.Entries = append(account.Entries, models.LedgerEntry{
				AccountNumber: number,
				Date:          date,
				Debit:         debit,
				Credit:        e.Credit.value,
			})
		}
		snap.Accounts = append(snap.Accounts, account)
	}
	return snap
}
