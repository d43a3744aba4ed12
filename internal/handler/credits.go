package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"creatorhub-api/internal/middleware"
	"creatorhub-api/internal/model"
	"creatorhub-api/internal/service"
	"creatorhub-api/pkg/apierror"
	"creatorhub-api/pkg/response"
)

// creditOp is either Ledger.AddCredits or Ledger.SubtractCredits.
type creditOp func(ctx context.Context, identity model.Identity, amount int64, reason string) (int64, error)

// CreditsHandler exposes the credit ledger over HTTP.
type CreditsHandler struct {
	ledger *service.Ledger
}

// NewCreditsHandler creates a new credits handler.
func NewCreditsHandler(ledger *service.Ledger) *CreditsHandler {
	return &CreditsHandler{ledger: ledger}
}

// BalanceResponse represents the balance answer.
type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

// GetBalance handles GET /api/v1/credits
func (h *CreditsHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	balance, err := h.ledger.Balance(r.Context(), identity)
	if err != nil {
		response.Error(w, creditsError(err))
		return
	}
	response.OK(w, BalanceResponse{Balance: balance})
}

// MutateRequest represents a credit mutation body. Amount is decoded as
// json.Number so fractional or non-numeric input is rejected instead of
// silently truncated.
type MutateRequest struct {
	Amount json.Number `json:"amount"`
	Reason string      `json:"reason"`
}

func (req *MutateRequest) amount() (int64, *apierror.Error) {
	amount, err := req.Amount.Int64()
	if err != nil {
		return 0, apierror.BadRequest("amount must be an integer")
	}
	if amount <= 0 {
		return 0, apierror.BadRequest("amount must be a positive integer")
	}
	return amount, nil
}

// Add handles POST /api/v1/credits/add
func (h *CreditsHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.ledger.AddCredits)
}

// Subtract handles POST /api/v1/credits/subtract
func (h *CreditsHandler) Subtract(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.ledger.SubtractCredits)
}

func (h *CreditsHandler) mutate(w http.ResponseWriter, r *http.Request, op creditOp) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	var req MutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	amount, apiErr := req.amount()
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	balance, err := op(r.Context(), identity, amount, req.Reason)
	if err != nil {
		response.Error(w, creditsError(err))
		return
	}
	response.OK(w, BalanceResponse{Balance: balance})
}

// creditsError maps ledger errors onto API errors.
func creditsError(err error) *apierror.Error {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		return apierror.BadRequest(err.Error())
	case errors.Is(err, service.ErrInsufficientCredits):
		return apierror.InsufficientCredits("")
	case errors.Is(err, service.ErrGuestNotFound):
		return apierror.Unauthorized("Guest session not found or expired")
	case errors.Is(err, service.ErrAccountRequired):
		return apierror.Forbidden("This operation requires an account")
	default:
		return apierror.InternalError("")
	}
}
