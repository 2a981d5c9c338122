package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/ledger-monitor/internal/auth"
	"github.com/Dan9191/ledger-monitor/internal/config"
	"github.com/Dan9191/ledger-monitor/internal/forecast"
	"github.com/Dan9191/ledger-monitor/internal/handler"
	"github.com/Dan9191/ledger-monitor/internal/integrations/ytj"
	"github.com/Dan9191/ledger-monitor/internal/monitor"
	"github.com/Dan9191/ledger-monitor/internal/notify"
	"github.com/Dan9191/ledger-monitor/internal/reconcile"
	"github.com/Dan9191/ledger-monitor/internal/repository"
	"github.com/Dan9191/ledger-monitor/internal/scheduler"
	"github.com/Dan9191/ledger-monitor/internal/service"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Ledger source and user store
	var (
		source monitor.LedgerSource
		users  service.UserStore
	)
	switch cfg.SnapshotSource {
	case "postgres":
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		repo := repository.NewRepository(db)
		if err := repo.Migrate(context.Background()); err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
		source, users = repo, repo
	default:
		source = repository.NewJSONSource(cfg.SnapshotPath, logger)
		users = repository.NewJSONUserStore(cfg.UsersPath)
	}

	// Forecast model
	var model forecast.Model
	switch cfg.ForecastBackend {
	case "arima":
		model = forecast.NewARIMAModel(logger)
	default:
		model = forecast.NewHTTPModel(cfg.ForecastURL, cfg.ForecastTimeout, cfg.ForecastSamples, logger)
	}

	mode, err := reconcile.ParseWindowMode(cfg.WindowMode)
	if err != nil {
		logger.Fatalf("Invalid window mode: %v", err)
	}

	// Initialize layers
	gateway := forecast.NewGateway(model, cfg.MinHistory, logger)
	orchestrator := monitor.NewOrchestrator(source, gateway, reconcile.NewReconciler(mode, logger), cfg.TrackedAccounts, cfg.Horizon, logger)
	registry := ytj.NewClient(cfg.YTJURL, cfg.YTJCustomerID, cfg.YTJSecret, 15*time.Second, logger)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	svc := service.NewService(users, source, orchestrator, registry, issuer, logger)
	h := handler.NewHandler(svc, cfg.RunTimeout, logger)

	// Scheduled monitoring
	if cfg.ScheduleCron != "" {
		sender := notify.NewSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SenderEmail,
		}, logger)
		sched := scheduler.New(orchestrator, sender, cfg.ScheduleCompanies, cfg.ReportRecipients, cfg.RunTimeout, cfg.ScheduleConcurrency, logger)
		if err := sched.Start(cfg.ScheduleCron); err != nil {
			logger.Fatalf("Failed to start scheduler: %v", err)
		}
		defer sched.Stop()
	}

	// Setup router
	r := mux.NewRouter()
	h.Routes(r, issuer)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RunTimeout + 10*time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}
