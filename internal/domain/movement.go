package domain

import (
	"time"

	"github.com/google/uuid"
)

type MovementKind string

const (
	MovementInit        MovementKind = "Init"
	MovementDeposit     MovementKind = "Deposit"
	MovementWithdrawal  MovementKind = "Withdrawal"
	MovementTransfer    MovementKind = "Transfer"
	MovementTransFee    MovementKind = "TransFee"
	MovementLoanIssue   MovementKind = "LoanIssue"
	MovementLoanPayment MovementKind = "LoanPayment"
)

// Movement is one append-only operation-log entry. Amount is signed minor
// units: negative for debits, positive for credits. Seq is the authoritative
// ordering; CreatedAt is informational only.
type Movement struct {
	ID        uuid.UUID
	Seq       int64
	Username  string
	Kind      MovementKind
	Amount    int64
	CreatedAt time.Time
}
