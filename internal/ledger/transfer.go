package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/kbanson/bankcore/internal/domain"
	"github.com/kbanson/bankcore/internal/logging"
)

// Transfer moves amountCents from source to target and the transaction fee
// to the admin pool, atomically across all three accounts. When the source
// or target is the admin account itself the overlapping deltas collapse onto
// the single locked row, keeping the arithmetic exact. Self-transfer is
// rejected.
func (s *Service) Transfer(ctx context.Context, username, secret, targetUsername string, amountCents int64) error {
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.transfer(ctx, username, secret, targetUsername, amountCents)
	})
	if err != nil {
		return fmt.Errorf("Transfer: %w", err)
	}

	logging.FromContext(ctx).Info("transfer applied",
		"source", username,
		"target", targetUsername,
		"amount_cents", amountCents,
		"fee_cents", s.rules.TransactionFeeCents,
	)
	return nil
}

func (s *Service) transfer(ctx context.Context, username, secret, targetUsername string, amountCents int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("transfer: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.lockAccounts(ctx, tx, username, targetUsername, domain.AdminUsername)
	if err != nil {
		return fmt.Errorf("transfer: %w", err)
	}

	source, ok := locked[username]
	if !ok {
		return fmt.Errorf("transfer: source: %w", domain.ErrAccountNotFound)
	}
	if err := verifySecret(source, secret); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	if amountCents <= 0 {
		return fmt.Errorf("transfer: %w", domain.ErrInvalidAmount)
	}
	if _, ok := locked[targetUsername]; !ok {
		return fmt.Errorf("transfer: target: %w", domain.ErrAccountNotFound)
	}
	if username == targetUsername {
		return fmt.Errorf("transfer: %w", domain.ErrSelfTransfer)
	}
	if _, ok := locked[domain.AdminUsername]; !ok {
		return fmt.Errorf("transfer: %w", domain.ErrSystemNotProvisioned)
	}

	fee := s.rules.TransactionFeeCents
	totalDebit := amountCents + fee
	if source.Funds < totalDebit {
		return fmt.Errorf("transfer: %w", domain.ErrInsufficientFunds)
	}

	// Net funds delta per distinct account; overlapping roles (admin as
	// source or target) sum into one entry so each row is written once.
	deltas := map[string]int64{}
	deltas[username] -= totalDebit
	deltas[domain.AdminUsername] += fee
	deltas[targetUsername] += amountCents

	for u, delta := range deltas {
		acct := locked[u]
		if err := s.applyBalances(ctx, tx, acct, acct.Funds+delta, acct.Debt); err != nil {
			return fmt.Errorf("transfer: %w", err)
		}
	}

	now := time.Now().UTC()
	if err := s.logMovement(ctx, tx, username, domain.MovementTransfer, -totalDebit, now); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	if err := s.logMovement(ctx, tx, domain.AdminUsername, domain.MovementTransFee, fee, now); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	if err := s.logMovement(ctx, tx, targetUsername, domain.MovementTransfer, amountCents, now); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transfer: commit: %w", err)
	}
	return nil
}
