package ledger_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbanson/bankcore/internal/domain"
	"github.com/kbanson/bankcore/internal/ledger"
	"github.com/kbanson/bankcore/internal/repository"
	"github.com/kbanson/bankcore/internal/testutil"
)

const (
	feeCents     = int64(99)
	interestRate = 0.1
	adminSecret  = "admin-secret"
)

func newService(t *testing.T, db *sql.DB) *ledger.Service {
	t.Helper()
	return ledger.NewService(
		repository.NewAccountRepository(db),
		repository.NewMovementRepository(db),
		db,
		ledger.Rules{
			TransactionFeeCents:  feeCents,
			LoanInterestRate:     interestRate,
			MaxTxRetries:         3,
			AllowUnsettledDelete: true,
		},
	)
}

func TestRegister_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "secret"))

	assert.Equal(t, int64(0), testutil.GetFunds(t, db, "alice"))
	assert.Equal(t, int64(0), testutil.GetDebt(t, db, "alice"))
	assert.Equal(t, 1, testutil.CountMovements(t, db, "alice", domain.MovementInit))

	balance, err := svc.Balance(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.FundsCents)
	assert.Equal(t, int64(0), balance.DebtCents)
}

func TestRegister_Duplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "secret"))

	err := svc.Register(ctx, "alice", "other-secret")
	require.ErrorIs(t, err, domain.ErrDuplicateAccount)

	// The first account keeps its credential and its single Init entry.
	_, err = svc.Balance(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.CountMovements(t, db, "alice", domain.MovementInit))
}

func TestDeposit_AdminGated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	testutil.SeedAdmin(t, db, adminSecret, 0)
	testutil.SeedAccount(t, db, "alice", "secret", 0, 0)

	require.NoError(t, svc.Deposit(ctx, "alice", adminSecret, 100_000))
	assert.Equal(t, int64(100_000), testutil.GetFunds(t, db, "alice"))
	assert.Equal(t, 1, testutil.CountMovements(t, db, "alice", domain.MovementDeposit))

	// The target's own secret does not authorize a deposit.
	err := svc.Deposit(ctx, "alice", "secret", 100)
	require.ErrorIs(t, err, domain.ErrAuthFailed)

	err = svc.Deposit(ctx, "nobody", adminSecret, 100)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	err = svc.Deposit(ctx, "alice", adminSecret, 0)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Equal(t, int64(100_000), testutil.GetFunds(t, db, "alice"))
}

func TestDeposit_AdminNotProvisioned(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	testutil.SeedAccount(t, db, "alice", "secret", 0, 0)

	err := svc.Deposit(ctx, "alice", adminSecret, 100)
	require.ErrorIs(t, err, domain.ErrSystemNotProvisioned)
}

func TestWithdraw_FeeGoesToAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	testutil.SeedAdmin(t, db, adminSecret, 0)
	testutil.SeedAccount(t, db, "alice", "secret", 100_000, 0)

	require.NoError(t, svc.Withdraw(ctx, "alice", "secret", 20_000))

	assert.Equal(t, int64(100_000-20_000-feeCents), testutil.GetFunds(t, db, "alice"))
	assert.Equal(t, feeCents, testutil.GetFunds(t, db, domain.AdminUsername))
	assert.Equal(t, 1, testutil.CountMovements(t, db, "alice", domain.MovementWithdrawal))
	assert.Equal(t, 1, testutil.CountMovements(t, db, domain.AdminUsername, domain.MovementTransFee))
}

func TestWithdraw_InsufficientIncludesFee(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	testutil.SeedAdmin(t, db, adminSecret, 0)
	// Enough for the amount alone, not for amount plus fee.
	testutil.SeedAccount(t, db, "alice", "secret", 20_050, 0)

	err := svc.Withdraw(ctx, "alice", "secret", 20_000)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, int64(20_050), testutil.GetFunds(t, db, "alice"))
	assert.Equal(t, int64(0), testutil.GetFunds(t, db, domain.AdminUsername))
	assert.Equal(t, 0, testutil.CountMovements(t, db, "alice", domain.MovementWithdrawal))
}

func TestTransfer_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	testutil.SeedAdmin(t, db, adminSecret, 0)
	testutil.SeedAccount(t, db, "alice", "secret", 50_000, 0)
	testutil.SeedAccount(t, db, "bob", "hunter2", 1_000, 0)

	totalBefore := testutil.TotalFunds(t, db)

	require.NoError(t, svc.Transfer(ctx, "alice", "secret", "bob", 10_000))

	assert.Equal(t, int64(50_000-10_000-feeCents), testutil.GetFunds(t, db, "alice"))
	assert.Equal(t, int64(11_000), testutil.GetFunds(t, db, "bob"))
	assert.Equal(t, feeCents, testutil.GetFunds(t, db, domain.AdminUsername))

	// A transfer moves money around but never creates or destroys it.
	assert.Equal(t, totalBefore, testutil.TotalFunds(t, db))

	assert.Equal(t, 1, testutil.CountMovements(t, db, "alice", domain.MovementTransfer))
	assert.Equal(t, 1, testutil.CountMovements(t, db, "bob", domain.MovementTransfer))
	assert.Equal(t, 1, testutil.CountMovements(t, db, domain.AdminUsername, domain.MovementTransFee))
}

func TestTransfer_Failures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	testutil.SeedAdmin(t, db, adminSecret, 0)
	testutil.SeedAccount(t, db, "alice", "secret", 5_000, 0)
	testutil.SeedAccount(t, db, "bob", "hunter2", 0, 0)

	require.ErrorIs(t, svc.Transfer(ctx, "nobody", "secret", "bob", 100), domain.ErrAccountNotFound)
	require.ErrorIs(t, svc.Transfer(ctx, "alice", "wrong", "bob", 100), domain.ErrAuthFailed)
	require.ErrorIs(t, svc.Transfer(ctx, "alice", "secret", "bob", 0), domain.ErrInvalidAmount)
	require.ErrorIs(t, svc.Transfer(ctx, "alice", "secret", "nobody", 100), domain.ErrAccountNotFound)
	require.ErrorIs(t, svc.Transfer(ctx, "alice", "secret", "alice", 100), domain.ErrSelfTransfer)
	require.ErrorIs(t, svc.Transfer(ctx, "alice", "secret", "bob", 5_000), domain.ErrInsufficientFunds)

	assert.Equal(t, int64(5_000), testutil.GetFunds(t, db, "alice"))
	assert.Equal(t, int64(0), testutil.GetFunds(t, db, "bob"))
}

func TestTransfer_AdminAsTarget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	testutil.SeedAdmin(t, db, adminSecret, 0)
	testutil.SeedAccount(t, db, "alice", "secret", 10_000, 0)

	require.NoError(t, svc.Transfer(ctx, "alice", "secret", domain.AdminUsername, 1_000))

	assert.Equal(t, int64(10_000-1_000-feeCents), testutil.GetFunds(t, db, "alice"))
	assert.Equal(t, 1_000+feeCents, testutil.GetFunds(t, db, domain.AdminUsername))
}

func TestTransfer_ConcurrentOverdraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	const (
		workers = 5
		amount  = int64(10_000)
	)
	perTransfer := amount + feeCents

	testutil.SeedAdmin(t, db, adminSecret, 0)
	// Funded for exactly workers-1 transfers.
	testutil.SeedAccount(t, db, "alice", "secret", perTransfer*(workers-1), 0)
	testutil.SeedAccount(t, db, "bob", "hunter2", 0, 0)

	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = svc.Transfer(ctx, "alice", "secret", "bob", amount)
		}()
	}
	wg.Wait()

	var failed int
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, domain.ErrInsufficientFunds)
			failed++
		}
	}
	assert.Equal(t, 1, failed)

	assert.Equal(t, int64(0), testutil.GetFunds(t, db, "alice"))
	assert.Equal(t, amount*(workers-1), testutil.GetFunds(t, db, "bob"))
	assert.Equal(t, feeCents*(workers-1), testutil.GetFunds(t, db, domain.AdminUsername))
	assert.Equal(t, workers-1, testutil.CountMovements(t, db, "bob", domain.MovementTransfer))
}

func TestIssueLoan_InterestAddedUpFront(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	testutil.SeedAdmin(t, db, adminSecret, 100_000)
	testutil.SeedAccount(t, db, "alice", "secret", 0, 0)

	require.NoError(t, svc.IssueLoan(ctx, "alice", adminSecret, 10_000))

	assert.Equal(t, int64(10_000), testutil.GetFunds(t, db, "alice"))
	assert.Equal(t, int64(11_000), testutil.GetDebt(t, db, "alice")) // 10% surcharge
	assert.Equal(t, int64(90_000), testutil.GetFunds(t, db, domain.AdminUsername))

	// Only the borrower's side is logged.
	assert.Equal(t, 1, testutil.CountMovements(t, db, "alice", domain.MovementLoanIssue))
	assert.Equal(t, 0, testutil.CountMovements(t, db, domain.AdminUsername, domain.MovementLoanIssue))
}

func TestIssueLoan_InterestFloors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	testutil.SeedAdmin(t, db, adminSecret, 100_000)
	testutil.SeedAccount(t, db, "alice", "secret", 0, 0)

	// floor(15 * 0.1) = 1 cent of interest.
	require.NoError(t, svc.IssueLoan(ctx, "alice", adminSecret, 15))
	assert.Equal(t, int64(16), testutil.GetDebt(t, db, "alice"))
}

func TestIssueLoan_PoolExhausted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	testutil.SeedAdmin(t, db, adminSecret, 5_000)
	testutil.SeedAccount(t, db, "alice", "secret", 0, 0)

	err := svc.IssueLoan(ctx, "alice", adminSecret, 10_000)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, int64(0), testutil.GetFunds(t, db, "alice"))
	assert.Equal(t, int64(0), testutil.GetDebt(t, db, "alice"))
	assert.Equal(t, int64(5_000), testutil.GetFunds(t, db, domain.AdminUsername))
}

func TestPayLoan_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	testutil.SeedAdmin(t, db, adminSecret, 0)
	testutil.SeedAccount(t, db, "alice", "secret", 10_000, 5_000)

	result, err := svc.PayLoan(ctx, "alice", "secret", 2_000)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000), result.AppliedCents)
	assert.False(t, result.Clamped)

	assert.Equal(t, int64(8_000), testutil.GetFunds(t, db, "alice"))
	assert.Equal(t, int64(3_000), testutil.GetDebt(t, db, "alice"))
	assert.Equal(t, int64(2_000), testutil.GetFunds(t, db, domain.AdminUsername))
	assert.Equal(t, 1, testutil.CountMovements(t, db, "alice", domain.MovementLoanPayment))
	assert.Equal(t, 1, testutil.CountMovements(t, db, domain.AdminUsername, domain.MovementLoanPayment))
}

func TestPayLoan_ClampsToDebt(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	testutil.SeedAdmin(t, db, adminSecret, 0)
	testutil.SeedAccount(t, db, "alice", "secret", 1_000, 500)

	result, err := svc.PayLoan(ctx, "alice", "secret", 800)
	require.NoError(t, err)
	assert.Equal(t, int64(500), result.AppliedCents)
	assert.True(t, result.Clamped)

	assert.Equal(t, int64(500), testutil.GetFunds(t, db, "alice"))
	assert.Equal(t, int64(0), testutil.GetDebt(t, db, "alice"))
	assert.Equal(t, int64(500), testutil.GetFunds(t, db, domain.AdminUsername))
}

func TestPayLoan_InsufficientForRequested(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	testutil.SeedAdmin(t, db, adminSecret, 0)
	testutil.SeedAccount(t, db, "alice", "secret", 300, 500)

	// The check runs against the requested amount even though the clamp
	// would have reduced it.
	_, err := svc.PayLoan(ctx, "alice", "secret", 800)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, int64(300), testutil.GetFunds(t, db, "alice"))
	assert.Equal(t, int64(500), testutil.GetDebt(t, db, "alice"))
}

func TestDeleteAccount_Policies(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	testutil.SeedAdmin(t, db, adminSecret, 0)
	testutil.SeedAccount(t, db, "alice", "secret", 1_000, 0)
	testutil.SeedAccount(t, db, "bob", "hunter2", 0, 0)

	svc := newService(t, db)
	require.ErrorIs(t, svc.DeleteAccount(ctx, "alice", "wrong"), domain.ErrAuthFailed)
	require.ErrorIs(t, svc.DeleteAccount(ctx, "nobody", adminSecret), domain.ErrAccountNotFound)
	require.ErrorIs(t, svc.DeleteAccount(ctx, domain.AdminUsername, adminSecret), domain.ErrProtectedAccount)

	// Default policy: unsettled balances are discarded.
	require.NoError(t, svc.DeleteAccount(ctx, "alice", adminSecret))
	_, err := svc.Balance(ctx, "alice", "secret")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	strict := ledger.NewService(
		repository.NewAccountRepository(db),
		repository.NewMovementRepository(db),
		db,
		ledger.Rules{
			TransactionFeeCents:  feeCents,
			LoanInterestRate:     interestRate,
			MaxTxRetries:         3,
			AllowUnsettledDelete: false,
		},
	)
	testutil.SeedAccount(t, db, "carol", "secret", 0, 700)
	require.ErrorIs(t, strict.DeleteAccount(ctx, "carol", adminSecret), domain.ErrUnsettledAccount)
	require.NoError(t, strict.DeleteAccount(ctx, "bob", adminSecret))
}

func TestMovements_OrderedOldestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	testutil.SeedAccount(t, db, "alice", "secret", 0, 0)
	testutil.InsertMovement(t, db, "alice", domain.MovementInit, 0)
	testutil.InsertMovement(t, db, "alice", domain.MovementDeposit, 100_000)
	testutil.InsertMovement(t, db, "alice", domain.MovementWithdrawal, -20_099)

	movements, err := svc.Movements(ctx, "alice", "secret")
	require.NoError(t, err)
	require.Len(t, movements, 3)

	assert.Equal(t, domain.MovementInit, movements[0].Kind)
	assert.Equal(t, domain.MovementDeposit, movements[1].Kind)
	assert.Equal(t, domain.MovementWithdrawal, movements[2].Kind)
	assert.Equal(t, int64(-20_099), movements[2].Amount)
	assert.Less(t, movements[0].Seq, movements[1].Seq)

	_, err = svc.Movements(ctx, "alice", "wrong")
	require.ErrorIs(t, err, domain.ErrAuthFailed)
}

// Mirrors the full customer journey: register, teller deposit, withdrawal
// with fee, loan with 10% surcharge, partial repayment.
func TestEndToEndScenario(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	testutil.SeedAdmin(t, db, adminSecret, 100_000)
	require.NoError(t, svc.Register(ctx, "alice", "secret"))

	require.NoError(t, svc.Deposit(ctx, "alice", adminSecret, 100_000))
	balance, err := svc.Balance(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), balance.FundsCents)
	assert.Equal(t, int64(0), balance.DebtCents)

	adminBefore := testutil.GetFunds(t, db, domain.AdminUsername)
	require.NoError(t, svc.Withdraw(ctx, "alice", "secret", 20_000))
	balance, err = svc.Balance(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(79_901), balance.FundsCents) // 1000.00 - 200.00 - 0.99 fee
	assert.Equal(t, adminBefore+feeCents, testutil.GetFunds(t, db, domain.AdminUsername))

	require.NoError(t, svc.IssueLoan(ctx, "alice", adminSecret, 10_000))
	balance, err = svc.Balance(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(89_901), balance.FundsCents)
	assert.Equal(t, int64(11_000), balance.DebtCents)

	result, err := svc.PayLoan(ctx, "alice", "secret", 5_000)
	require.NoError(t, err)
	assert.False(t, result.Clamped)
	balance, err = svc.Balance(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(84_901), balance.FundsCents)
	assert.Equal(t, int64(6_000), balance.DebtCents)
}
