package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	// Ledger business rules. Immutable after load; the ledger core receives
	// them at construction and never reads the environment itself.
	TransactionFeeCents  int64   `env:"TRANSACTION_FEE_CENTS" envDefault:"99"`
	LoanInterestRate     float64 `env:"LOAN_INTEREST_RATE" envDefault:"0.1"`
	MaxTxRetries         int     `env:"MAX_TX_RETRIES" envDefault:"3"`
	AllowUnsettledDelete bool    `env:"ALLOW_UNSETTLED_DELETE" envDefault:"true"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
