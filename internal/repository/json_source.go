package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

// JSONSource reads company snapshots from a ledger export file keyed by company id.
// The file is read on every call so each run works on its own copy.
type JSONSource struct {
	path string
	log  *logrus.Logger
}

// NewJSONSource initializes a snapshot source backed by the file at path
func NewJSONSource(path string, log *logrus.Logger) *JSONSource {
	return &JSONSource{path: path, log: log}
}

func (s *JSONSource) load() (map[string]map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	var companies map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &companies); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot file: %w", err)
	}
	return companies, nil
}

// Snapshot returns the validated ledger of a company
func (s *JSONSource) Snapshot(ctx context.Context, companyID string) (*models.Snapshot, error) {
	companies, err := s.load()
	if err != nil {
		return nil, err
	}
	sections, ok := companies[companyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCompanyNotFound, companyID)
	}

	var raw []rawAccount
	if ledger, ok := sections["ledger"]; ok {
		if err := json.Unmarshal(ledger, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse ledger of %s: %w", companyID, err)
		}
	}

	snap := buildSnapshot(companyID, raw, sections)
	if snap.Quarantined > 0 {
		s.log.WithFields(logrus.Fields{
			"company_id":  companyID,
			"quarantined": snap.Quarantined,
		}).Warn("Skipped malformed ledger entries")
	}
	return snap, nil
}

// Companies lists the company ids present in the file
func (s *JSONSource) Companies(ctx context.Context) ([]string, error) {
	companies, err := s.load()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(companies))
	for id := range companies {
		ids = append(ids, id)
	}
	return ids, nil
}
