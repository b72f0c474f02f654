package ledger

import (
	"context"
	"fmt"

	"github.com/kbanson/bankcore/internal/domain"
	"github.com/kbanson/bankcore/internal/logging"
)

// DeleteAccount irreversibly removes an account. Administrator-only. The
// admin pool itself cannot be deleted. When AllowUnsettledDelete is off,
// accounts with nonzero funds or debt are refused instead of having their
// balances silently discarded. Movements are retained for audit either way.
func (s *Service) DeleteAccount(ctx context.Context, username, adminSecret string) error {
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.deleteAccount(ctx, username, adminSecret)
	})
	if err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}

	logging.FromContext(ctx).Info("account deleted", "username", username)
	return nil
}

func (s *Service) deleteAccount(ctx context.Context, username, adminSecret string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("deleteAccount: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.lockAccounts(ctx, tx, username, domain.AdminUsername)
	if err != nil {
		return fmt.Errorf("deleteAccount: %w", err)
	}

	target, ok := locked[username]
	if !ok {
		return fmt.Errorf("deleteAccount: %w", domain.ErrAccountNotFound)
	}
	admin, ok := locked[domain.AdminUsername]
	if !ok {
		return fmt.Errorf("deleteAccount: %w", domain.ErrSystemNotProvisioned)
	}
	if err := verifySecret(admin, adminSecret); err != nil {
		return fmt.Errorf("deleteAccount: %w", err)
	}
	if target.IsAdmin() {
		return fmt.Errorf("deleteAccount: %w", domain.ErrProtectedAccount)
	}
	if !s.rules.AllowUnsettledDelete && !target.Settled() {
		return fmt.Errorf("deleteAccount: %w", domain.ErrUnsettledAccount)
	}

	if err := s.accounts.Delete(ctx, tx, username); err != nil {
		return fmt.Errorf("deleteAccount: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("deleteAccount: commit: %w", err)
	}
	return nil
}
