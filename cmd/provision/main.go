// Command provision seeds the reserved admin pool account. The ledger
// refuses fee-bearing and loan operations until this has run once.
// Idempotent: an already-provisioned database is left untouched.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/kbanson/bankcore/internal/config"
	"github.com/kbanson/bankcore/internal/domain"
	"github.com/kbanson/bankcore/internal/ledger"
	"github.com/kbanson/bankcore/internal/logging"
	"github.com/kbanson/bankcore/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("bankcore-provision", cfg.LogLevel, cfg.AppEnv)

	adminSecret := os.Getenv("ADMIN_SECRET")
	if adminSecret == "" {
		slog.Error("ADMIN_SECRET is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := ledger.NewService(
		repository.NewAccountRepository(db),
		repository.NewMovementRepository(db),
		db,
		ledger.Rules{
			TransactionFeeCents: cfg.TransactionFeeCents,
			LoanInterestRate:    cfg.LoanInterestRate,
			MaxTxRetries:        cfg.MaxTxRetries,
		},
	)

	if err := svc.Register(ctx, domain.AdminUsername, adminSecret); err != nil {
		if errors.Is(err, domain.ErrDuplicateAccount) {
			slog.Info("admin account already provisioned")
			return
		}
		slog.Error("failed to provision admin account", "error", err)
		os.Exit(1)
	}

	slog.Info("admin account provisioned")
}
