package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrDuplicateAccount     = errors.New("username already taken")
	ErrAuthFailed           = errors.New("invalid credentials")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrSelfTransfer         = errors.New("cannot transfer to the same account")
	ErrUnsettledAccount     = errors.New("account has outstanding funds or debt")
	ErrProtectedAccount     = errors.New("the admin account cannot be deleted")
	ErrSystemNotProvisioned = errors.New("admin account not provisioned")
	ErrVersionConflict      = errors.New("optimistic lock conflict")
	ErrTransientStorage     = errors.New("storage contention, retry the operation")
	ErrInvariantViolation   = errors.New("balance invariant violation")
)
