package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "MISSING_FIELD", "Required fields are missing"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrAccountNotFound      = &AppError{http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrDuplicateAccount     = &AppError{http.StatusConflict, "DUPLICATE_ACCOUNT", "Username is already taken"}
	ErrAuthFailed           = &AppError{http.StatusUnauthorized, "AUTH_FAILED", "Invalid credentials"}
	ErrInvalidAmount        = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInsufficientFunds    = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrSelfTransfer         = &AppError{http.StatusUnprocessableEntity, "SELF_TRANSFER_NOT_ALLOWED", "Cannot transfer to the same account"}
	ErrUnsettledAccount     = &AppError{http.StatusUnprocessableEntity, "UNSETTLED_ACCOUNT", "Account has outstanding funds or debt"}
	ErrProtectedAccount     = &AppError{http.StatusUnprocessableEntity, "PROTECTED_ACCOUNT", "The admin account cannot be deleted"}
	ErrSystemNotProvisioned = &AppError{http.StatusServiceUnavailable, "SYSTEM_NOT_PROVISIONED", "Admin account is not provisioned"}
	ErrTransientStorage     = &AppError{http.StatusServiceUnavailable, "TRANSIENT_STORAGE", "Storage contention, please retry"}
)
