package models

import (
	"encoding/json"
	"time"
)

// LedgerEntry represents one bookkeeping movement on an account
type LedgerEntry struct {
	AccountNumber int       `json:"account_number"`
	Date          time.Time `json:"date"`
	Debit         float64   `json:"debit"`
	Credit        float64   `json:"credit"`
}

// NetFlow returns credit minus debit
func (e LedgerEntry) NetFlow() float64 {
	return e.Credit - e.Debit
}

// LedgerAccount groups the entries booked on one account
type LedgerAccount struct {
	Number  int           `json:"account_number"`
	Name    string        `json:"account_name"`
	Entries []LedgerEntry `json:"entries"`
}

// Snapshot is a validated ledger for a single company
type Snapshot struct {
	CompanyID string          `json:"company_id"`
	Accounts  []LedgerAccount `json:"ledger"`
	// Quarantined counts entries rejected at load time (missing or malformed date)
	Quarantined int `json:"-"`
	// Reports holds the free-form report sections (balance_sheet, journal, ...) as loaded
	Reports map[string]json.RawMessage `json:"-"`
}

// Entries flattens the entries of every account
func (s *Snapshot) Entries() []LedgerEntry {
	var n int
	for _, acc := range s.Accounts {
		n += len(acc.Entries)
	}
	entries := make([]LedgerEntry, 0, n)
	for _, acc := range s.Accounts {
		entries = append(entries, acc.Entries...)
	}
	return entries
}

// TrackedAccount is an account the caller wants monitored
type TrackedAccount struct {
	Number int    `json:"account_number"`
	Label  string `json:"label"`
}

// AccountNumbers returns the numbers of the tracked accounts in caller order
func AccountNumbers(tracked []TrackedAccount) []int {
	numbers := make([]int, len(tracked))
	for i, acc := range tracked {
		numbers[i] = acc.Number
	}
	return numbers
}
