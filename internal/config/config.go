package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     string
	LogLevel string

	JWTSecret string
	TokenTTL  time.Duration

	SnapshotSource string // json or postgres
	SnapshotPath   string
	UsersPath      string
	DBConn         string

	TrackedAccounts []models.TrackedAccount
	Horizon         int
	MinHistory      int
	WindowMode      string
	RunTimeout      time.Duration

	ForecastBackend string // http or arima
	ForecastURL     string
	ForecastTimeout time.Duration
	ForecastSamples int

	YTJURL        string
	YTJCustomerID string
	YTJSecret     string

	ScheduleCron        string
	ScheduleCompanies   []string
	ScheduleConcurrency int
	ReportRecipients    []string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// DefaultAccounts are the accounts monitored when MONITOR_ACCOUNTS is unset
const DefaultAccounts = "1910:Bank Account,4000:Revenue Account,6000:Expense Account"

// NewConfig loads configuration from a .env file, when present, and environment variables
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	accounts, err := ParseAccounts(getEnv("MONITOR_ACCOUNTS", DefaultAccounts))
	if err != nil {
		return nil, err
	}
	horizon, err := getEnvInt("MONITOR_HORIZON", 3)
	if err != nil {
		return nil, err
	}
	minHistory, err := getEnvInt("MONITOR_MIN_HISTORY", 3)
	if err != nil {
		return nil, err
	}
	samples, err := getEnvInt("FORECAST_SAMPLES", 20)
	if err != nil {
		return nil, err
	}
	concurrency, err := getEnvInt("SCHEDULE_CONCURRENCY", 2)
	if err != nil {
		return nil, err
	}
	tokenTTL, err := getEnvDuration("TOKEN_TTL", 12*time.Hour)
	if err != nil {
		return nil, err
	}
	forecastTimeout, err := getEnvDuration("FORECAST_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	runTimeout, err := getEnvDuration("MONITOR_RUN_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  tokenTTL,

		SnapshotSource: getEnv("SNAPSHOT_SOURCE", "json"),
		SnapshotPath:   getEnv("SNAPSHOT_PATH", "NOCFO.json"),
		UsersPath:      getEnv("USERS_PATH", "users.json"),
		DBConn:         getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=ledger sslmode=disable"),

		TrackedAccounts: accounts,
		Horizon:         horizon,
		MinHistory:      minHistory,
		WindowMode:      getEnv("MONITOR_WINDOW", "joint"),
		RunTimeout:      runTimeout,

		ForecastBackend: getEnv("FORECAST_BACKEND", "http"),
		ForecastURL:     getEnv("FORECAST_URL", "http://localhost:8500/predict"),
		ForecastTimeout: forecastTimeout,
		ForecastSamples: samples,

		YTJURL:        getEnv("YTJ_URL", "https://api.tietopalvelu.ytj.fi/yritystiedot.asmx"),
		YTJCustomerID: getEnv("YTJ_CUSTOMER_ID", ""),
		YTJSecret:     getEnv("YTJ_SECRET", ""),

		ScheduleCron:        getEnv("SCHEDULE_CRON", ""),
		ScheduleCompanies:   splitList(getEnv("SCHEDULE_COMPANIES", "")),
		ScheduleConcurrency: concurrency,
		ReportRecipients:    splitList(getEnv("REPORT_RECIPIENTS", "")),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "25"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "monitor@localhost"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and enumerations
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Horizon < 1 {
		return fmt.Errorf("MONITOR_HORIZON must be at least 1, got %d", c.Horizon)
	}
	if c.MinHistory < 0 {
		return fmt.Errorf("MONITOR_MIN_HISTORY must not be negative, got %d", c.MinHistory)
	}
	if len(c.TrackedAccounts) == 0 {
		return fmt.Errorf("MONITOR_ACCOUNTS is required")
	}
	switch c.SnapshotSource {
	case "json":
		if c.SnapshotPath == "" {
			return fmt.Errorf("SNAPSHOT_PATH is required for the json source")
		}
	case "postgres":
		if c.DBConn == "" {
			return fmt.Errorf("DB_CONN is required for the postgres source")
		}
	default:
		return fmt.Errorf("invalid SNAPSHOT_SOURCE %q: must be json or postgres", c.SnapshotSource)
	}
	switch c.ForecastBackend {
	case "http":
		if c.ForecastURL == "" {
			return fmt.Errorf("FORECAST_URL is required for the http backend")
		}
	case "arima":
	default:
		return fmt.Errorf("invalid FORECAST_BACKEND %q: must be http or arima", c.ForecastBackend)
	}
	if c.ScheduleCron != "" && len(c.ScheduleCompanies) == 0 {
		return fmt.Errorf("SCHEDULE_COMPANIES is required when SCHEDULE_CRON is set")
	}
	return nil
}

// ParseAccounts parses "number:label,number:label" keeping the given order
func ParseAccounts(s string) ([]models.TrackedAccount, error) {
	var accounts []models.TrackedAccount
	seen := map[int]bool{}
	for _, item := range splitList(s) {
		numberStr, label, ok := strings.Cut(item, ":")
		number, err := strconv.Atoi(strings.TrimSpace(numberStr))
		if err != nil {
			return nil, fmt.Errorf("invalid account %q: %w", item, err)
		}
		if seen[number] {
			return nil, fmt.Errorf("duplicate account %d", number)
		}
		seen[number] = true
		label = strings.TrimSpace(label)
		if !ok || label == "" {
			label = fmt.Sprintf("Account %d", number)
		}
		accounts = append(accounts, models.TrackedAccount{Number: number, Label: label})
	}
	return accounts, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
