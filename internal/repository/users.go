package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Dan9191/ledger-monitor/internal/models"
)

// JSONUserStore reads users from a JSON array of {username, company_id, password_hash}
type JSONUserStore struct {
	path string
}

// NewJSONUserStore initializes a user store backed by the file at path
func NewJSONUserStore(path string) *JSONUserStore {
	return &JSONUserStore{path: path}
}

type jsonUser struct {
	Username     string `json:"username"`
	CompanyID    string `json:"company_id"`
	PasswordHash string `json:"password_hash"`
}

// FindUserByUsername retrieves a user by username
func (s *JSONUserStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}
	var users []jsonUser
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}
	for i, u := range users {
		if u.Username == username {
			return &models.User{
				ID:           int64(i + 1),
				Username:     u.Username,
				CompanyID:    u.CompanyID,
				PasswordHash: u.PasswordHash,
			}, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}
