package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/kbanson/bankcore/internal/domain"
	"github.com/kbanson/bankcore/internal/logging"
)

// Withdraw debits amountCents plus the transaction fee from the owner's
// account and credits the fee to the admin pool, all-or-nothing. The owner
// authenticates with their own secret.
func (s *Service) Withdraw(ctx context.Context, username, secret string, amountCents int64) error {
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.withdraw(ctx, username, secret, amountCents)
	})
	if err != nil {
		return fmt.Errorf("Withdraw: %w", err)
	}

	logging.FromContext(ctx).Info("withdrawal applied",
		"username", username,
		"amount_cents", amountCents,
		"fee_cents", s.rules.TransactionFeeCents,
	)
	return nil
}

func (s *Service) withdraw(ctx context.Context, username, secret string, amountCents int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("withdraw: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.lockAccounts(ctx, tx, username, domain.AdminUsername)
	if err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}

	owner, ok := locked[username]
	if !ok {
		return fmt.Errorf("withdraw: %w", domain.ErrAccountNotFound)
	}
	if err := verifySecret(owner, secret); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	if amountCents <= 0 {
		return fmt.Errorf("withdraw: %w", domain.ErrInvalidAmount)
	}
	admin, ok := locked[domain.AdminUsername]
	if !ok {
		return fmt.Errorf("withdraw: %w", domain.ErrSystemNotProvisioned)
	}

	fee := s.rules.TransactionFeeCents
	totalDebit := amountCents + fee
	if owner.Funds < totalDebit {
		return fmt.Errorf("withdraw: %w", domain.ErrInsufficientFunds)
	}

	now := time.Now().UTC()
	if owner.IsAdmin() {
		// Withdrawing from the pool itself: the fee flows back to the same
		// row, so the net change is just the withdrawn amount.
		if err := s.applyBalances(ctx, tx, owner, owner.Funds-amountCents, owner.Debt); err != nil {
			return fmt.Errorf("withdraw: %w", err)
		}
	} else {
		if err := s.applyBalances(ctx, tx, owner, owner.Funds-totalDebit, owner.Debt); err != nil {
			return fmt.Errorf("withdraw: %w", err)
		}
		if err := s.applyBalances(ctx, tx, admin, admin.Funds+fee, admin.Debt); err != nil {
			return fmt.Errorf("withdraw: %w", err)
		}
	}
	if err := s.logMovement(ctx, tx, username, domain.MovementWithdrawal, -totalDebit, now); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	if err := s.logMovement(ctx, tx, domain.AdminUsername, domain.MovementTransFee, fee, now); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("withdraw: commit: %w", err)
	}
	return nil
}
