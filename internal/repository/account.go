package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kbanson/bankcore/internal/domain"
)

const accountColumns = `username, password_hash, funds, debt, version, created_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByUsername reads a consistent snapshot of one account; funds and debt
// come from the same row version.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByUsername: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByUsername: %w", err)
	}
	return a, nil
}

// Create inserts a new account inside tx. A username collision surfaces as
// domain.ErrDuplicateAccount; the unique constraint makes concurrent
// registrations of the same name resolve to exactly one winner.
func (r *AccountRepository) Create(ctx context.Context, tx *sql.Tx, account *domain.Account) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (username, password_hash, funds, debt, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		account.Username, account.PasswordHash,
		account.Funds, account.Debt, account.Version, account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateAccount)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, username string) (*domain.Account, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1 FOR UPDATE`, username,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return a, nil
}

// UpdateBalances writes new funds and debt with a version compare-and-swap.
// Zero rows affected means another transaction committed first; the caller
// retries the whole operation.
func (r *AccountRepository) UpdateBalances(ctx context.Context, tx *sql.Tx, username string, funds, debt, newVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET funds = $1, debt = $2, version = $3
		 WHERE username = $4 AND version = $5`,
		funds, debt, newVersion, username, newVersion-1,
	)
	if err != nil {
		return fmt.Errorf("UpdateBalances: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateBalances: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateBalances: %w", domain.ErrVersionConflict)
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, tx *sql.Tx, username string) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM accounts WHERE username = $1`, username,
	)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(
		&a.Username, &a.PasswordHash,
		&a.Funds, &a.Debt, &a.Version, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
