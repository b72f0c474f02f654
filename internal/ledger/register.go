package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/kbanson/bankcore/internal/auth"
	"github.com/kbanson/bankcore/internal/domain"
	"github.com/kbanson/bankcore/internal/logging"
)

// Register creates a new account with zero funds and zero debt and appends
// its Init movement in the same transaction. Two concurrent registrations of
// the same username resolve through the store's unique constraint: exactly
// one wins, the other observes ErrDuplicateAccount.
func (s *Service) Register(ctx context.Context, username, secret string) error {
	hash, err := auth.HashSecret(secret)
	if err != nil {
		return fmt.Errorf("Register: %w", err)
	}

	now := time.Now().UTC()
	account := &domain.Account{
		Username:     username,
		PasswordHash: hash,
		Funds:        0,
		Debt:         0,
		Version:      1,
		CreatedAt:    now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Register: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.accounts.Create(ctx, tx, account); err != nil {
		return fmt.Errorf("Register: %w", err)
	}
	if err := s.logMovement(ctx, tx, username, domain.MovementInit, 0, now); err != nil {
		return fmt.Errorf("Register: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Register: commit: %w", err)
	}

	logging.FromContext(ctx).Info("account registered", "username", username)
	return nil
}
