package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/kbanson/bankcore/internal/domain"
	"github.com/kbanson/bankcore/internal/logging"
)

// Deposit credits amountCents to the target account. Administrator-only:
// the presented secret is verified against the admin account, not the
// target (cash handed over at a teller window).
func (s *Service) Deposit(ctx context.Context, username, adminSecret string, amountCents int64) error {
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.deposit(ctx, username, adminSecret, amountCents)
	})
	if err != nil {
		return fmt.Errorf("Deposit: %w", err)
	}

	logging.FromContext(ctx).Info("deposit applied",
		"username", username,
		"amount_cents", amountCents,
	)
	return nil
}

func (s *Service) deposit(ctx context.Context, username, adminSecret string, amountCents int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("deposit: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.lockAccounts(ctx, tx, username, domain.AdminUsername)
	if err != nil {
		return fmt.Errorf("deposit: %w", err)
	}

	target, ok := locked[username]
	if !ok {
		return fmt.Errorf("deposit: %w", domain.ErrAccountNotFound)
	}
	admin, ok := locked[domain.AdminUsername]
	if !ok {
		return fmt.Errorf("deposit: %w", domain.ErrSystemNotProvisioned)
	}
	if err := verifySecret(admin, adminSecret); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	if amountCents <= 0 {
		return fmt.Errorf("deposit: %w", domain.ErrInvalidAmount)
	}

	now := time.Now().UTC()
	if err := s.applyBalances(ctx, tx, target, target.Funds+amountCents, target.Debt); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	if err := s.logMovement(ctx, tx, username, domain.MovementDeposit, amountCents, now); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("deposit: commit: %w", err)
	}
	return nil
}
