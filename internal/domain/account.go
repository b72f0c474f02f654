package domain

import "time"

// AdminUsername is the reserved account that collects transaction fees and
// backs loan capital. It must be provisioned before any fee-bearing or loan
// operation can succeed.
const AdminUsername = "admin"

// Account holds one customer's monetary state. Funds and Debt are integer
// minor units (cents) and are never negative at the end of an operation.
// Version backs the compare-and-swap update discipline in the repository.
type Account struct {
	Username     string
	PasswordHash string
	Funds        int64
	Debt         int64
	Version      int64
	CreatedAt    time.Time
}

func (a *Account) IsAdmin() bool {
	return a.Username == AdminUsername
}

// Settled reports whether the account carries no funds and no debt.
func (a *Account) Settled() bool {
	return a.Funds == 0 && a.Debt == 0
}
