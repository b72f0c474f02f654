// Package ledger is the core of the bank: it validates and applies the nine
// account operations, enforcing the non-negativity and conservation
// invariants. Every mutation runs inside a single database transaction with
// all involved accounts locked in lexicographic order and committed through a
// version compare-and-swap, so no partial state is ever observable.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kbanson/bankcore/internal/auth"
	"github.com/kbanson/bankcore/internal/domain"
	"github.com/kbanson/bankcore/internal/repository"
)

type accountRepo interface {
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	Create(ctx context.Context, tx *sql.Tx, account *domain.Account) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, username string) (*domain.Account, error)
	UpdateBalances(ctx context.Context, tx *sql.Tx, username string, funds, debt, newVersion int64) error
	Delete(ctx context.Context, tx *sql.Tx, username string) error
}

type movementRepo interface {
	Create(ctx context.Context, tx *sql.Tx, m *domain.Movement) error
	ListByUsername(ctx context.Context, username string) ([]domain.Movement, error)
}

// Rules are the business constants of the ledger, injected at construction
// and immutable afterwards.
type Rules struct {
	TransactionFeeCents  int64
	LoanInterestRate     float64
	MaxTxRetries         int
	AllowUnsettledDelete bool
}

type Service struct {
	accounts  accountRepo
	movements movementRepo
	db        *sql.DB
	rules     Rules
}

func NewService(accounts accountRepo, movements movementRepo, db *sql.DB, rules Rules) *Service {
	if rules.MaxTxRetries < 1 {
		rules.MaxTxRetries = 1
	}
	return &Service{
		accounts:  accounts,
		movements: movements,
		db:        db,
		rules:     rules,
	}
}

// withRetry runs op up to MaxTxRetries times, retrying only on transient
// store conflicts (version CAS misses, serialization failures, deadlock
// aborts). Validation and business errors pass through on the first attempt.
// Exhausted retries surface as domain.ErrTransientStorage.
func (s *Service) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < s.rules.MaxTxRetries; attempt++ {
		err = op(ctx)
		if err == nil || !repository.IsRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("withRetry: %w", ctx.Err())
		}
	}
	return fmt.Errorf("withRetry: attempts exhausted: %w (%w)", domain.ErrTransientStorage, err)
}

// lockAccounts acquires row locks for the given usernames in lexicographic
// order, which keeps lock acquisition deterministic across overlapping
// operations and rules out deadlock by ordering. Duplicates collapse to one
// lock. Missing rows are not an error here; they are simply absent from the
// result so the caller can map absence to the operation's own error.
func (s *Service) lockAccounts(ctx context.Context, tx *sql.Tx, usernames ...string) (map[string]*domain.Account, error) {
	sorted := make([]string, 0, len(usernames))
	seen := make(map[string]bool, len(usernames))
	for _, u := range usernames {
		if !seen[u] {
			seen[u] = true
			sorted = append(sorted, u)
		}
	}
	sort.Strings(sorted)

	locked := make(map[string]*domain.Account, len(sorted))
	for _, u := range sorted {
		acct, err := s.accounts.GetForUpdate(ctx, tx, u)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("lockAccounts: %w", err)
		}
		locked[u] = acct
	}
	return locked, nil
}

// verifySecret checks the presented secret against a locked account row.
func verifySecret(acct *domain.Account, secret string) error {
	if !auth.VerifySecret(secret, acct.PasswordHash) {
		return domain.ErrAuthFailed
	}
	return nil
}

// applyBalances commits new funds/debt for one locked account via the
// version CAS, guarding the non-negativity invariant first. A negative
// computed balance here means a validation bug, not a caller mistake; the
// transaction aborts with ErrInvariantViolation and nothing is committed.
func (s *Service) applyBalances(ctx context.Context, tx *sql.Tx, acct *domain.Account, funds, debt int64) error {
	if funds < 0 || debt < 0 {
		return fmt.Errorf("applyBalances: %s funds=%d debt=%d: %w",
			acct.Username, funds, debt, domain.ErrInvariantViolation)
	}
	if err := s.accounts.UpdateBalances(ctx, tx, acct.Username, funds, debt, acct.Version+1); err != nil {
		return fmt.Errorf("applyBalances: %s: %w", acct.Username, err)
	}
	return nil
}

func (s *Service) logMovement(ctx context.Context, tx *sql.Tx, username string, kind domain.MovementKind, amount int64, at time.Time) error {
	m := &domain.Movement{
		ID:        uuid.New(),
		Username:  username,
		Kind:      kind,
		Amount:    amount,
		CreatedAt: at,
	}
	if err := s.movements.Create(ctx, tx, m); err != nil {
		return fmt.Errorf("logMovement: %s %s: %w", username, kind, err)
	}
	return nil
}
