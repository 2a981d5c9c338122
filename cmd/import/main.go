// Command import loads the JSON ledger snapshot into postgres and manages login users.
//
//	import                               import every company from SNAPSHOT_PATH
//	import -user anna -company X -password s   create a user
//	import -hash s                       print a bcrypt hash for users.json
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/Dan9191/ledger-monitor/internal/config"
	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/Dan9191/ledger-monitor/internal/repository"
	"github.com/Dan9191/ledger-monitor/internal/service"
	"github.com/dustin/go-humanize"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	username := flag.String("user", "", "username to create")
	companyID := flag.String("company", "", "company of the created user")
	password := flag.String("password", "", "password of the created user")
	hash := flag.String("hash", "", "print the bcrypt hash of a password and exit")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if *hash != "" {
		hashed, err := service.HashPassword(*hash)
		if err != nil {
			logger.Fatal(err)
		}
		fmt.Println(hashed)
		return
	}

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	repo := repository.NewRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	if *username != "" {
		if err := createUser(ctx, repo, *username, *companyID, *password); err != nil {
			logger.Fatal(err)
		}
		logger.Infof("User created: %s (%s)", *username, *companyID)
		return
	}

	if err := importAll(ctx, repo, repository.NewJSONSource(cfg.SnapshotPath, logger), logger); err != nil {
		logger.Fatal(err)
	}
}

func createUser(ctx context.Context, repo *repository.Repository, username, companyID, password string) error {
	if companyID == "" || password == "" {
		return fmt.Errorf("-company and -password are required with -user")
	}
	hashed, err := service.HashPassword(password)
	if err != nil {
		return err
	}
	return repo.CreateUser(ctx, &models.User{Username: username, CompanyID: companyID, PasswordHash: hashed})
}

func importAll(ctx context.Context, repo *repository.Repository, src *repository.JSONSource, logger *logrus.Logger) error {
	companies, err := src.Companies(ctx)
	if err != nil {
		return err
	}
	for _, companyID := range companies {
		snap, err := src.Snapshot(ctx, companyID)
		if err != nil {
			return err
		}
		if err := repo.ImportSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("import %s: %w", companyID, err)
		}
		logger.WithFields(logrus.Fields{
			"company_id":  companyID,
			"entries":     humanize.Comma(int64(len(snap.Entries()))),
			"quarantined": snap.Quarantined,
		}).Info("Company imported")
	}
	if len(companies) == 0 {
		fmt.Fprintln(os.Stderr, "no companies in snapshot")
	}
	return nil
}
