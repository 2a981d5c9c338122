package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Dan9191/ledger-monitor/internal/auth"
	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/Dan9191/ledger-monitor/internal/monitor"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserStore finds users for login
type UserStore interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Monitor runs monitoring and single-account forecasts
type Monitor interface {
	Run(ctx context.Context, companyID string) (*models.MonitoringReport, error)
	ForecastAccount(ctx context.Context, companyID string, account, periods int) (*models.MetricForecast, error)
}

// Registry looks up public company information
type Registry interface {
	FetchCompanyDetails(ctx context.Context, businessID string) (*models.RegistryResult, error)
	SearchCompanies(ctx context.Context, keyword string, activeOnly bool) (*models.RegistryResult, error)
}

// Service handles business logic
type Service struct {
	users    UserStore
	source   monitor.LedgerSource
	monitor  Monitor
	registry Registry
	issuer   *auth.Issuer
	log      *logrus.Logger
}

// NewService initializes a new service
func NewService(users UserStore, source monitor.LedgerSource, mon Monitor, registry Registry, issuer *auth.Issuer, log *logrus.Logger) *Service {
	return &Service{users: users, source: source, monitor: mon, registry: registry, issuer: issuer, log: log}
}

// HashPassword returns the bcrypt hash stored for a user
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Login authenticates a user and returns a token scoped to the user's company
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		return "", models.ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", models.ErrInvalidCredentials
	}

	token, err := s.issuer.Generate(user.Username, user.CompanyID)
	if err != nil {
		return "", err
	}

	s.log.Infof("User logged in: %s (%s)", user.Username, user.CompanyID)
	return token, nil
}

func companyFrom(ctx context.Context) (string, error) {
	c, ok := auth.ClaimsFrom(ctx)
	if !ok || c.CompanyID == "" {
		return "", fmt.Errorf("%w: company not found in context", models.ErrUnauthorized)
	}
	return c.CompanyID, nil
}

// Monitor runs monitoring for the authenticated user's company
func (s *Service) Monitor(ctx context.Context) (*models.MonitoringReport, error) {
	companyID, err := companyFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.monitor.Run(ctx, companyID)
}

// ForecastAccount forecasts one account of the authenticated user's company
func (s *Service) ForecastAccount(ctx context.Context, account, periods int) (*models.MetricForecast, error) {
	companyID, err := companyFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.monitor.ForecastAccount(ctx, companyID, account, periods)
}

// Report returns a raw report section of the authenticated user's company.
// "all" returns every section, "ledger" the validated ledger.
func (s *Service) Report(ctx context.Context, reportType string) (map[string]json.RawMessage, error) {
	companyID, err := companyFrom(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := s.source.Snapshot(ctx, companyID)
	if err != nil {
		return nil, err
	}

	sections := make(map[string]json.RawMessage, len(snap.Reports)+1)
	for name, body := range snap.Reports {
		sections[name] = body
	}
	ledger, err := json.Marshal(snap.Accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ledger: %w", err)
	}
	sections["ledger"] = ledger

	if reportType == "all" {
		return sections, nil
	}
	body, ok := sections[reportType]
	if !ok {
		return nil, fmt.Errorf("%w: %s for %s", models.ErrReportNotFound, reportType, companyID)
	}
	return map[string]json.RawMessage{reportType: body}, nil
}

// FetchCompanyDetails looks up a company in the public registry
func (s *Service) FetchCompanyDetails(ctx context.Context, businessID string) (*models.RegistryResult, error) {
	return s.registry.FetchCompanyDetails(ctx, businessID)
}

// SearchCompanies searches the public registry
func (s *Service) SearchCompanies(ctx context.Context, keyword string, activeOnly bool) (*models.RegistryResult, error) {
	return s.registry.SearchCompanies(ctx, keyword, activeOnly)
}
