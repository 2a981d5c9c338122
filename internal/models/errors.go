package models

import "errors"

var (
	// ErrCompanyNotFound is returned when the ledger source has no snapshot for a company
	ErrCompanyNotFound = errors.New("company not found")
	// ErrModelUnavailable is returned when the forecasting model fails or times out
	ErrModelUnavailable = errors.New("forecast model unavailable")
	// ErrReportNotFound is returned for an unknown report section
	ErrReportNotFound = errors.New("report not found")
	// ErrInvalidCredentials is returned by login on a bad username or password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned for a missing, expired or malformed token
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInsufficientHistory is returned by the single-account forecast when history is too short
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrAccountNotTracked is returned by the single-account forecast for an account outside the monitored set
	ErrAccountNotTracked = errors.New("account not tracked")
)
