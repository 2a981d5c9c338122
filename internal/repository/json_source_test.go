package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/sirupsen/logrus/hooks/test"
)

const snapshotFixture = `{
  "RetailGiant": {
    "ledger": [
      {
        "account_number": "1910",
        "account_name": "Bank Account",
        "entries": [
          {"date": "2024-01-15", "debit": 0, "credit": 100},
          {"date": "2024-02-03T10:00:00Z", "debet": 40, "credit": 0},
          {"date": null, "debit": 5, "credit": 0},
          {"debit": 5},
          {"date": "not-a-date", "credit": 1}
        ]
      },
      {
        "account_number": 4000,
        "account_name": "Revenue Account",
        "entries": [
          {"date": "2024-01-20 08:30:00", "credit": "250.50"}
        ]
      },
      {
        "account_name": "Broken",
        "entries": [{"date": "2024-01-01", "credit": 1}]
      }
    ],
    "balance_sheet": {"assets": 1000}
  },
  "Empty": {}
}`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestJSONSourceSnapshot(t *testing.T) {
	logger, hook := test.NewNullLogger()
	src := NewJSONSource(writeFixture(t, snapshotFixture), logger)

	snap, err := src.Snapshot(context.Background(), "RetailGiant")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Accounts) != 2 {
		t.Fatalf("expected 2 valid accounts, got %d", len(snap.Accounts))
	}
	if snap.Quarantined != 4 {
		t.Errorf("expected 4 quarantined entries, got %d", snap.Quarantined)
	}
	if hook.LastEntry() == nil || hook.LastEntry().Data["quarantined"] != 4 {
		t.Errorf("expected quarantine warning, got %v", hook.LastEntry())
	}

	bank := snap.Accounts[0]
	if bank.Number != 1910 || len(bank.Entries) != 2 {
		t.Fatalf("unexpected bank account %+v", bank)
	}
	if bank.Entries[1].Debit != 40 {
		t.Errorf("expected debet alias to fill debit, got %v", bank.Entries[1].Debit)
	}
	if !bank.Entries[1].Date.Equal(time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %v", bank.Entries[1].Date)
	}
	if got := snap.Accounts[1].Entries[0].Credit; got != 250.5 {
		t.Errorf("expected numeric string credit 250.5, got %v", got)
	}
	if len(snap.Entries()) != 3 {
		t.Errorf("expected 3 flattened entries, got %d", len(snap.Entries()))
	}
	if _, ok := snap.Reports["balance_sheet"]; !ok {
		t.Error("expected balance_sheet report to be kept")
	}
}

func TestJSONSourceUnknownCompany(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := NewJSONSource(writeFixture(t, snapshotFixture), logger)

	_, err := src.Snapshot(context.Background(), "Nobody")
	if !errors.Is(err, models.ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}

	snap, err := src.Snapshot(context.Background(), "Empty")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Entries()) != 0 {
		t.Errorf("expected no entries, got %d", len(snap.Entries()))
	}
}

func TestJSONSourceCompanies(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ids, err := NewJSONSource(writeFixture(t, snapshotFixture), logger).Companies(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 companies, got %v", ids)
	}
}

func TestJSONUserStore(t *testing.T) {
	path := writeFixture(t, `[{"username":"alice","company_id":"RetailGiant","password_hash":"x"}]`)
	store := NewJSONUserStore(path)

	user, err := store.FindUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.CompanyID != "RetailGiant" {
		t.Errorf("unexpected company %s", user.CompanyID)
	}
	if _, err := store.FindUserByUsername(context.Background(), "bob"); err == nil {
		t.Error("expected error for unknown user")
	}
}
