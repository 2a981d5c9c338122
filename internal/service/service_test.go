package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Dan9191/ledger-monitor/internal/auth"
	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeUsers map[string]*models.User

func (f fakeUsers) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	u, ok := f[username]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	return u, nil
}

type fakeSource map[string]*models.Snapshot

func (f fakeSource) Snapshot(_ context.Context, companyID string) (*models.Snapshot, error) {
	s, ok := f[companyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCompanyNotFound, companyID)
	}
	return s, nil
}

type fakeMonitor struct {
	company string
}

func (f *fakeMonitor) Run(_ context.Context, companyID string) (*models.MonitoringReport, error) {
	f.company = companyID
	return &models.MonitoringReport{CompanyID: companyID, Summary: "ok"}, nil
}

func (f *fakeMonitor) ForecastAccount(_ context.Context, companyID string, account, periods int) (*models.MetricForecast, error) {
	f.company = companyID
	return &models.MetricForecast{AccountNumber: account, Forecast: make([]float64, periods)}, nil
}

func newTestService(t *testing.T) (*Service, *fakeMonitor, *auth.Issuer) {
	t.Helper()
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	users := fakeUsers{"anna": {Username: "anna", CompanyID: "RetailGiant", PasswordHash: hash}}
	source := fakeSource{"RetailGiant": {
		CompanyID: "RetailGiant",
		Accounts:  []models.LedgerAccount{{Number: 1910, Name: "Bank"}},
		Reports:   map[string]json.RawMessage{"balance_sheet": json.RawMessage(`{"assets":1}`)},
	}}
	mon := &fakeMonitor{}
	issuer := auth.NewIssuer("test-secret", time.Hour)
	logger, _ := test.NewNullLogger()
	return NewService(users, source, mon, nil, issuer, logger), mon, issuer
}

func authed(company string) context.Context {
	return auth.WithClaims(context.Background(), &models.Claims{UserID: "anna", CompanyID: company})
}

func TestLogin(t *testing.T) {
	svc, _, issuer := newTestService(t)

	token, err := svc.Login(context.Background(), "anna", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.CompanyID != "RetailGiant" {
		t.Errorf("company = %q", claims.CompanyID)
	}

	for _, tc := range []struct{ user, pass string }{{"anna", "wrong"}, {"bob", "secret"}} {
		if _, err := svc.Login(context.Background(), tc.user, tc.pass); !errors.Is(err, models.ErrInvalidCredentials) {
			t.Errorf("Login(%s, %s) error = %v, want ErrInvalidCredentials", tc.user, tc.pass, err)
		}
	}
}

func TestMonitorUsesCompanyFromClaims(t *testing.T) {
	svc, mon, _ := newTestService(t)

	if _, err := svc.Monitor(context.Background()); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("error without claims = %v, want ErrUnauthorized", err)
	}
	report, err := svc.Monitor(authed("RetailGiant"))
	if err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if report.CompanyID != "RetailGiant" || mon.company != "RetailGiant" {
		t.Errorf("ran for %q, report for %q", mon.company, report.CompanyID)
	}

	fc, err := svc.ForecastAccount(authed("RetailGiant"), 1910, 6)
	if err != nil {
		t.Fatalf("ForecastAccount: %v", err)
	}
	if fc.AccountNumber != 1910 || len(fc.Forecast) != 6 {
		t.Errorf("forecast = %+v", fc)
	}
}

func TestReport(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := authed("RetailGiant")

	all, err := svc.Report(ctx, "all")
	if err != nil {
		t.Fatalf("Report(all): %v", err)
	}
	if _, ok := all["balance_sheet"]; !ok {
		t.Error("all is missing balance_sheet")
	}
	if _, ok := all["ledger"]; !ok {
		t.Error("all is missing ledger")
	}

	one, err := svc.Report(ctx, "balance_sheet")
	if err != nil {
		t.Fatalf("Report(balance_sheet): %v", err)
	}
	if len(one) != 1 || string(one["balance_sheet"]) != `{"assets":1}` {
		t.Errorf("balance_sheet = %v", one)
	}

	if _, err := svc.Report(ctx, "cash_flow"); !errors.Is(err, models.ErrReportNotFound) {
		t.Errorf("unknown report error = %v", err)
	}
	if _, err := svc.Report(authed("Nobody"), "all"); !errors.Is(err, models.ErrCompanyNotFound) {
		t.Errorf("unknown company error = %v", err)
	}
}
