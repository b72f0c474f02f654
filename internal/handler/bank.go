package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kbanson/bankcore/internal/domain"
	"github.com/kbanson/bankcore/internal/ledger"
	"github.com/kbanson/bankcore/internal/logging"
)

type ledgerService interface {
	Register(ctx context.Context, username, secret string) error
	Deposit(ctx context.Context, username, adminSecret string, amountCents int64) error
	Withdraw(ctx context.Context, username, secret string, amountCents int64) error
	Transfer(ctx context.Context, username, secret, targetUsername string, amountCents int64) error
	Balance(ctx context.Context, username, secret string) (*ledger.BalanceResult, error)
	IssueLoan(ctx context.Context, username, adminSecret string, amountCents int64) error
	PayLoan(ctx context.Context, username, secret string, amountCents int64) (*ledger.PaymentResult, error)
	DeleteAccount(ctx context.Context, username, adminSecret string) error
	Movements(ctx context.Context, username, secret string) ([]domain.Movement, error)
}

type BankHandler struct {
	ledger ledgerService
}

func NewBankHandler(l ledgerService) *BankHandler {
	return &BankHandler{ledger: l}
}

// Routes exposes the operation catalog on the same paths the service has
// always used.
func (h *BankHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /signup", h.Register)
	mux.HandleFunc("POST /deposit", h.Deposit)
	mux.HandleFunc("POST /withdraw", h.Withdraw)
	mux.HandleFunc("POST /transfer", h.Transfer)
	mux.HandleFunc("POST /balance", h.Balance)
	mux.HandleFunc("POST /issueLoan", h.IssueLoan)
	mux.HandleFunc("POST /payLoan", h.PayLoan)
	mux.HandleFunc("POST /delete", h.Delete)
	mux.HandleFunc("POST /movements", h.Movements)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r credentialsRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Username == "" {
		errs = append(errs, FieldError{Field: "username", Message: "required"})
	}
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "required"})
	}
	return errs
}

type amountRequest struct {
	credentialsRequest
	Amount *decimal.Decimal `json:"amount"`
}

func (r amountRequest) Validate() []FieldError {
	errs := r.credentialsRequest.Validate()
	if r.Amount == nil {
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	}
	return errs
}

type transferRequest struct {
	amountRequest
	TargetUsername string `json:"target_username"`
}

func (r transferRequest) Validate() []FieldError {
	errs := r.amountRequest.Validate()
	if r.TargetUsername == "" {
		errs = append(errs, FieldError{Field: "target_username", Message: "required"})
	}
	return errs
}

type confirmationResponse struct {
	Message string `json:"message"`
}

type balanceResponse struct {
	Funds decimal.Decimal `json:"funds"`
	Debt  decimal.Decimal `json:"debt"`
}

type paymentResponse struct {
	Message string          `json:"message"`
	Applied decimal.Decimal `json:"applied"`
	Clamped bool            `json:"clamped"`
}

type movementDTO struct {
	Kind      string          `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

func decode[T interface{ Validate() []FieldError }](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return req, false
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return req, false
	}
	return req, true
}

func (h *BankHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[credentialsRequest](w, r)
	if !ok {
		return
	}

	if err := h.ledger.Register(r.Context(), req.Username, req.Password); err != nil {
		logging.FromContext(r.Context()).Warn("registration failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, confirmationResponse{Message: "Your registration was successful."})
}

func (h *BankHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[amountRequest](w, r)
	if !ok {
		return
	}

	err := h.ledger.Deposit(r.Context(), req.Username, req.Password, domain.MinorUnits(*req.Amount))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, confirmationResponse{Message: "Your deposit was accepted."})
}

func (h *BankHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[amountRequest](w, r)
	if !ok {
		return
	}

	err := h.ledger.Withdraw(r.Context(), req.Username, req.Password, domain.MinorUnits(*req.Amount))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, confirmationResponse{Message: "Your withdrawal was successful."})
}

func (h *BankHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[transferRequest](w, r)
	if !ok {
		return
	}

	err := h.ledger.Transfer(r.Context(), req.Username, req.Password, req.TargetUsername, domain.MinorUnits(*req.Amount))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, confirmationResponse{Message: "Your transfer was successful."})
}

func (h *BankHandler) Balance(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[credentialsRequest](w, r)
	if !ok {
		return
	}

	balance, err := h.ledger.Balance(r.Context(), req.Username, req.Password)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, balanceResponse{
		Funds: domain.MajorUnits(balance.FundsCents),
		Debt:  domain.MajorUnits(balance.DebtCents),
	})
}

func (h *BankHandler) IssueLoan(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[amountRequest](w, r)
	if !ok {
		return
	}

	err := h.ledger.IssueLoan(r.Context(), req.Username, req.Password, domain.MinorUnits(*req.Amount))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, confirmationResponse{Message: "Your loan was issued."})
}

func (h *BankHandler) PayLoan(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[amountRequest](w, r)
	if !ok {
		return
	}

	result, err := h.ledger.PayLoan(r.Context(), req.Username, req.Password, domain.MinorUnits(*req.Amount))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	message := "Your payment was successful."
	if result.Clamped {
		message = "Payment exceeded the outstanding debt; only the outstanding amount was taken."
	}
	RespondSuccess(w, http.StatusOK, paymentResponse{
		Message: message,
		Applied: domain.MajorUnits(result.AppliedCents),
		Clamped: result.Clamped,
	})
}

func (h *BankHandler) Delete(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[credentialsRequest](w, r)
	if !ok {
		return
	}

	if err := h.ledger.DeleteAccount(r.Context(), req.Username, req.Password); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, confirmationResponse{Message: "The account was deleted successfully."})
}

func (h *BankHandler) Movements(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[credentialsRequest](w, r)
	if !ok {
		return
	}

	movements, err := h.ledger.Movements(r.Context(), req.Username, req.Password)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]movementDTO, 0, len(movements))
	for _, m := range movements {
		dtos = append(dtos, movementDTO{
			Kind:      string(m.Kind),
			Amount:    domain.MajorUnits(m.Amount),
			Timestamp: m.CreatedAt,
		})
	}
	RespondSuccess(w, http.StatusOK, dtos)
}
