package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/lib/pq"
)

// Schema creates the tables used by Repository
const Schema = `
CREATE SCHEMA IF NOT EXISTS ledger;

CREATE TABLE IF NOT EXISTS ledger.companies (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS ledger.accounts (
    company_id      TEXT NOT NULL REFERENCES ledger.companies(id) ON DELETE CASCADE,
    account_number  INTEGER NOT NULL,
    account_name    TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (company_id, account_number)
);

CREATE TABLE IF NOT EXISTS ledger.entries (
    id              BIGSERIAL PRIMARY KEY,
    company_id      TEXT NOT NULL,
    account_number  INTEGER NOT NULL,
    entry_date      DATE,
    debit           NUMERIC(18, 2) NOT NULL DEFAULT 0,
    credit          NUMERIC(18, 2) NOT NULL DEFAULT 0,
    FOREIGN KEY (company_id, account_number) REFERENCES ledger.accounts(company_id, account_number) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS entries_company_date ON ledger.entries (company_id, account_number, entry_date);

CREATE TABLE IF NOT EXISTS ledger.reports (
    company_id   TEXT NOT NULL REFERENCES ledger.companies(id) ON DELETE CASCADE,
    report_type  TEXT NOT NULL,
    body         JSONB NOT NULL,
    PRIMARY KEY (company_id, report_type)
);

CREATE TABLE IF NOT EXISTS ledger.users (
    id             BIGSERIAL PRIMARY KEY,
    username       TEXT NOT NULL UNIQUE,
    company_id     TEXT NOT NULL REFERENCES ledger.companies(id),
    password_hash  TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the schema when missing
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Snapshot loads the ledger and reports of a company
func (r *Repository) Snapshot(ctx context.Context, companyID string) (*models.Snapshot, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM ledger.companies WHERE id = $1)`, companyID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to find company: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", models.ErrCompanyNotFound, companyID)
	}

	query := `
		SELECT a.account_number, a.account_name, e.entry_date, e.debit, e.credit, e.id IS NOT NULL
		FROM ledger.accounts a
		LEFT JOIN ledger.entries e ON e.company_id = a.company_id AND e.account_number = a.account_number
		WHERE a.company_id = $1
		ORDER BY a.account_number, e.entry_date`
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	defer rows.Close()

	snap := &models.Snapshot{CompanyID: companyID}
	index := map[int]int{}
	for rows.Next() {
		var (
			number   int
			name     string
			date     sql.NullTime
			debit    sql.NullFloat64
			credit   sql.NullFloat64
			hasEntry bool
		)
		if err := rows.Scan(&number, &name, &date, &debit, &credit, &hasEntry); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		i, ok := index[number]
		if !ok {
			snap.Accounts = append(snap.Accounts, models.LedgerAccount{Number: number, Name: name})
			i = len(snap.Accounts) - 1
			index[number] = i
		}
		if !hasEntry {
			continue
		}
		if !date.Valid {
			snap.Quarantined++
			continue
		}
		d := date.Time
		snap.Accounts[i].Entries = append(snap.Accounts[i].Entries, models.LedgerEntry{
			AccountNumber: number,
			Date:          d,
			Debit:         debit.Float64,
			Credit:        credit.Float64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	reports, err := r.reports(ctx, companyID)
	if err != nil {
		return nil, err
	}
	snap.Reports = reports
	return snap, nil
}

func (r *Repository) reports(ctx context.Context, companyID string) (map[string]json.RawMessage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT report_type, body FROM ledger.reports WHERE company_id = $1`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reports: %w", err)
	}
	defer rows.Close()

	reports := map[string]json.RawMessage{}
	for rows.Next() {
		var reportType string
		var body []byte
		if err := rows.Scan(&reportType, &body); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports[reportType] = json.RawMessage(body)
	}
	return reports, rows.Err()
}

// Companies lists every company id
func (r *Repository) Companies(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM ledger.companies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ImportSnapshot stores a company ledger, replacing the entries of the given accounts
func (r *Repository) ImportSnapshot(ctx context.Context, snap *models.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO ledger.companies (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, snap.CompanyID); err != nil {
		return fmt.Errorf("failed to upsert company: %w", err)
	}

	numbers := make([]int64, 0, len(snap.Accounts))
	for _, acc := range snap.Accounts {
		numbers = append(numbers, int64(acc.Number))
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ledger.accounts (company_id, account_number, account_name) VALUES ($1, $2, $3)
			ON CONFLICT (company_id, account_number) DO UPDATE SET account_name = EXCLUDED.account_name`,
			snap.CompanyID, acc.Number, acc.Name); err != nil {
			return fmt.Errorf("failed to upsert account %d: %w", acc.Number, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger.entries WHERE company_id = $1 AND account_number = ANY($2)`,
		snap.CompanyID, pq.Array(numbers)); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema("ledger", "entries", "company_id", "account_number", "entry_date", "debit", "credit"))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}
	for _, acc := range snap.Accounts {
		for _, e := range acc.Entries {
			if _, err := stmt.ExecContext(ctx, snap.CompanyID, e.AccountNumber, e.Date, e.Debit, e.Credit); err != nil {
				stmt.Close()
				return fmt.Errorf("failed to copy entry: %w", err)
			}
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	for reportType, body := range snap.Reports {
		if reportType == "ledger" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ledger.reports (company_id, report_type, body) VALUES ($1, $2, $3)
			ON CONFLICT (company_id, report_type) DO UPDATE SET body = EXCLUDED.body`,
			snap.CompanyID, reportType, []byte(body)); err != nil {
			return fmt.Errorf("failed to upsert report %s: %w", reportType, err)
		}
	}

	return tx.Commit()
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO ledger.users (username, company_id, password_hash, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, user.Username, user.CompanyID, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByUsername retrieves a user by username
func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, company_id, password_hash, created_at
		FROM ledger.users
		WHERE username = $1`
	err := r.db.QueryRowContext(ctx, query, username).
		Scan(&user.ID, &user.Username, &user.CompanyID, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}
