package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/kbanson/bankcore/internal/domain"
	"github.com/kbanson/bankcore/internal/logging"
)

// PaymentResult reports how much of a loan payment was actually applied.
// Clamped is set when the requested amount exceeded the outstanding debt and
// only the debt was debited.
type PaymentResult struct {
	AppliedCents int64
	Clamped      bool
}

// IssueLoan moves amountCents of capital from the admin pool to the target
// and books amount plus the interest surcharge as debt, atomically.
// Administrator-only. The interest is added in full at issuance; there is no
// accrual over time.
func (s *Service) IssueLoan(ctx context.Context, username, adminSecret string, amountCents int64) error {
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.issueLoan(ctx, username, adminSecret, amountCents)
	})
	if err != nil {
		return fmt.Errorf("IssueLoan: %w", err)
	}

	logging.FromContext(ctx).Info("loan issued",
		"username", username,
		"amount_cents", amountCents,
		"interest_rate", s.rules.LoanInterestRate,
	)
	return nil
}

func (s *Service) issueLoan(ctx context.Context, username, adminSecret string, amountCents int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("issueLoan: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.lockAccounts(ctx, tx, username, domain.AdminUsername)
	if err != nil {
		return fmt.Errorf("issueLoan: %w", err)
	}

	target, ok := locked[username]
	if !ok {
		return fmt.Errorf("issueLoan: %w", domain.ErrAccountNotFound)
	}
	admin, ok := locked[domain.AdminUsername]
	if !ok {
		return fmt.Errorf("issueLoan: %w", domain.ErrSystemNotProvisioned)
	}
	if err := verifySecret(admin, adminSecret); err != nil {
		return fmt.Errorf("issueLoan: %w", err)
	}
	if amountCents <= 0 {
		return fmt.Errorf("issueLoan: %w", domain.ErrInvalidAmount)
	}

	surcharge, err := domain.InterestSurcharge(amountCents, s.rules.LoanInterestRate)
	if err != nil {
		return fmt.Errorf("issueLoan: %w", err)
	}
	newDebt := target.Debt + amountCents + surcharge

	now := time.Now().UTC()
	if target.IsAdmin() {
		// Loan from the pool to itself: funds net to zero, only debt moves.
		if err := s.applyBalances(ctx, tx, target, target.Funds, newDebt); err != nil {
			return fmt.Errorf("issueLoan: %w", err)
		}
	} else {
		if admin.Funds < amountCents {
			return fmt.Errorf("issueLoan: pool: %w", domain.ErrInsufficientFunds)
		}
		if err := s.applyBalances(ctx, tx, target, target.Funds+amountCents, newDebt); err != nil {
			return fmt.Errorf("issueLoan: %w", err)
		}
		if err := s.applyBalances(ctx, tx, admin, admin.Funds-amountCents, admin.Debt); err != nil {
			return fmt.Errorf("issueLoan: %w", err)
		}
	}

	// Only the borrower's side is logged; the pool debit shows up in the
	// admin balance but gets no movement of its own.
	if err := s.logMovement(ctx, tx, username, domain.MovementLoanIssue, amountCents, now); err != nil {
		return fmt.Errorf("issueLoan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("issueLoan: commit: %w", err)
	}
	return nil
}

// PayLoan debits a loan payment from the payer and returns it to the admin
// pool, reducing the payer's debt. A request exceeding the outstanding debt
// is clamped: only the debt amount is taken and the result says so.
func (s *Service) PayLoan(ctx context.Context, username, secret string, amountCents int64) (*PaymentResult, error) {
	var result *PaymentResult
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.payLoan(ctx, username, secret, amountCents)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("PayLoan: %w", err)
	}

	logging.FromContext(ctx).Info("loan payment applied",
		"username", username,
		"requested_cents", amountCents,
		"applied_cents", result.AppliedCents,
		"clamped", result.Clamped,
	)
	return result, nil
}

func (s *Service) payLoan(ctx context.Context, username, secret string, amountCents int64) (*PaymentResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("payLoan: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.lockAccounts(ctx, tx, username, domain.AdminUsername)
	if err != nil {
		return nil, fmt.Errorf("payLoan: %w", err)
	}

	payer, ok := locked[username]
	if !ok {
		return nil, fmt.Errorf("payLoan: %w", domain.ErrAccountNotFound)
	}
	if err := verifySecret(payer, secret); err != nil {
		return nil, fmt.Errorf("payLoan: %w", err)
	}
	if amountCents <= 0 {
		return nil, fmt.Errorf("payLoan: %w", domain.ErrInvalidAmount)
	}
	admin, ok := locked[domain.AdminUsername]
	if !ok {
		return nil, fmt.Errorf("payLoan: %w", domain.ErrSystemNotProvisioned)
	}
	if payer.Funds < amountCents {
		return nil, fmt.Errorf("payLoan: %w", domain.ErrInsufficientFunds)
	}

	applied := amountCents
	clamped := false
	if payer.Debt < applied {
		applied = payer.Debt
		clamped = true
	}

	now := time.Now().UTC()
	if payer.IsAdmin() {
		if err := s.applyBalances(ctx, tx, payer, payer.Funds, payer.Debt-applied); err != nil {
			return nil, fmt.Errorf("payLoan: %w", err)
		}
	} else {
		if err := s.applyBalances(ctx, tx, payer, payer.Funds-applied, payer.Debt-applied); err != nil {
			return nil, fmt.Errorf("payLoan: %w", err)
		}
		if err := s.applyBalances(ctx, tx, admin, admin.Funds+applied, admin.Debt); err != nil {
			return nil, fmt.Errorf("payLoan: %w", err)
		}
	}
	if err := s.logMovement(ctx, tx, username, domain.MovementLoanPayment, -applied, now); err != nil {
		return nil, fmt.Errorf("payLoan: %w", err)
	}
	if err := s.logMovement(ctx, tx, domain.AdminUsername, domain.MovementLoanPayment, applied, now); err != nil {
		return nil, fmt.Errorf("payLoan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("payLoan: commit: %w", err)
	}

	return &PaymentResult{AppliedCents: applied, Clamped: clamped}, nil
}
