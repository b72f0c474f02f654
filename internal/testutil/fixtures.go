package testutil

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kbanson/bankcore/internal/domain"
)

// SeedAccount inserts an account directly, bypassing the ledger service, so
// tests can start from arbitrary balances. bcrypt.MinCost keeps seeding fast.
func SeedAccount(t *testing.T, db *sql.DB, username, secret string, funds, debt int64) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	_, err = db.Exec(
		`INSERT INTO accounts (username, password_hash, funds, debt, version)
		 VALUES ($1, $2, $3, $4, 1)
		 ON CONFLICT (username) DO NOTHING`,
		username, string(hash), funds, debt,
	)
	if err != nil {
		t.Fatalf("seed account %s: %v", username, err)
	}
}

// SeedAdmin provisions the fee/loan pool account with the given balance.
func SeedAdmin(t *testing.T, db *sql.DB, secret string, funds int64) {
	t.Helper()
	SeedAccount(t, db, domain.AdminUsername, secret, funds, 0)
}

func GetFunds(t *testing.T, db *sql.DB, username string) int64 {
	t.Helper()

	var funds int64
	if err := db.QueryRow(`SELECT funds FROM accounts WHERE username = $1`, username).Scan(&funds); err != nil {
		t.Fatalf("get funds for %s: %v", username, err)
	}
	return funds
}

func GetDebt(t *testing.T, db *sql.DB, username string) int64 {
	t.Helper()

	var debt int64
	if err := db.QueryRow(`SELECT debt FROM accounts WHERE username = $1`, username).Scan(&debt); err != nil {
		t.Fatalf("get debt for %s: %v", username, err)
	}
	return debt
}

func TotalFunds(t *testing.T, db *sql.DB) int64 {
	t.Helper()

	var total int64
	if err := db.QueryRow(`SELECT COALESCE(SUM(funds), 0) FROM accounts`).Scan(&total); err != nil {
		t.Fatalf("sum funds: %v", err)
	}
	return total
}

func CountMovements(t *testing.T, db *sql.DB, username string, kind domain.MovementKind) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM movements WHERE username = $1 AND kind = $2`,
		username, kind,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count movements for %s: %v", username, err)
	}
	return count
}

// InsertMovement appends a raw movement row, for tests that only exercise
// the history query.
func InsertMovement(t *testing.T, db *sql.DB, username string, kind domain.MovementKind, amount int64) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO movements (id, username, kind, amount) VALUES ($1, $2, $3, $4)`,
		uuid.New(), username, kind, amount,
	)
	if err != nil {
		t.Fatalf("insert movement for %s: %v", username, err)
	}
}
