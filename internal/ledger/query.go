package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbanson/bankcore/internal/domain"
)

// BalanceResult is a single consistent snapshot of one account's monetary
// state, in minor units.
type BalanceResult struct {
	FundsCents int64
	DebtCents  int64
}

// Balance returns the account's funds and debt as read from one row
// version: funds and debt can never come from different points in time.
// Pure read, no movement is logged.
func (s *Service) Balance(ctx context.Context, username, secret string) (*BalanceResult, error) {
	acct, err := s.authenticate(ctx, username, secret)
	if err != nil {
		return nil, fmt.Errorf("Balance: %w", err)
	}
	return &BalanceResult{FundsCents: acct.Funds, DebtCents: acct.Debt}, nil
}

// Movements returns the account's full operation history, oldest first.
// Re-requesting yields the same prefix, plus anything appended meanwhile.
func (s *Service) Movements(ctx context.Context, username, secret string) ([]domain.Movement, error) {
	if _, err := s.authenticate(ctx, username, secret); err != nil {
		return nil, fmt.Errorf("Movements: %w", err)
	}

	movements, err := s.movements.ListByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("Movements: %w", err)
	}
	return movements, nil
}

func (s *Service) authenticate(ctx context.Context, username, secret string) (*domain.Account, error) {
	acct, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	if err := verifySecret(acct, secret); err != nil {
		return nil, err
	}
	return acct, nil
}
