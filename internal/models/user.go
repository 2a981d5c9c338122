package models

import "time"

// User represents a user allowed to monitor one company
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	CompanyID    string    `json:"company_id"`
	PasswordHash string    `json:"-"` // Not serialized
	CreatedAt    time.Time `json:"created_at"`
}

// Claims is the identity carried by a verified token
type Claims struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
}
