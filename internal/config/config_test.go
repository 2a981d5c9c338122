package config

import (
	"testing"
	"time"
)

func TestParseAccounts(t *testing.T) {
	got, err := ParseAccounts("6000:Expense Account, 1910:Bank Account,4000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(got))
	}
	if got[0].Number != 6000 || got[0].Label != "Expense Account" {
		t.Errorf("order not kept: %+v", got[0])
	}
	if got[2].Label != "Account 4000" {
		t.Errorf("expected default label, got %q", got[2].Label)
	}

	for _, bad := range []string{"abc:Bank", "1910:A,1910:B"} {
		if _, err := ParseAccounts(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MONITOR_ACCOUNTS", DefaultAccounts)

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Horizon != 3 || cfg.MinHistory != 3 || cfg.ForecastSamples != 20 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if len(cfg.TrackedAccounts) != 3 || cfg.TrackedAccounts[0].Number != 1910 {
		t.Errorf("unexpected accounts %+v", cfg.TrackedAccounts)
	}
	if cfg.TokenTTL != 12*time.Hour {
		t.Errorf("unexpected token ttl %v", cfg.TokenTTL)
	}
}

func TestNewConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"bad horizon", map[string]string{"MONITOR_HORIZON": "0"}},
		{"horizon not a number", map[string]string{"MONITOR_HORIZON": "three"}},
		{"bad source", map[string]string{"SNAPSHOT_SOURCE": "csv"}},
		{"bad backend", map[string]string{"FORECAST_BACKEND": "magic"}},
		{"bad timeout", map[string]string{"FORECAST_TIMEOUT": "soon"}},
		{"schedule without companies", map[string]string{"SCHEDULE_CRON": "@daily", "SCHEDULE_COMPANIES": ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "secret")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := NewConfig(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
