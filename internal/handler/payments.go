package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"creatorhub-api/internal/funcs"
	"creatorhub-api/internal/middleware"
	"creatorhub-api/internal/model"
	"creatorhub-api/internal/service"
	"creatorhub-api/pkg/apierror"
	"creatorhub-api/pkg/response"
)

// PaymentsHandler bridges HTTP to the remote settlement functions. The
// gateway is authoritative for money movement; on an approved settlement
// the local balance cache is force-refreshed, never locally adjusted.
type PaymentsHandler struct {
	funcs  *funcs.Client
	ledger *service.Ledger
}

// NewPaymentsHandler creates a new payments handler.
func NewPaymentsHandler(client *funcs.Client, ledger *service.Ledger) *PaymentsHandler {
	return &PaymentsHandler{funcs: client, ledger: ledger}
}

// requireAccount resolves the caller as an account identity.
func requireAccount(r *http.Request) (model.Identity, *apierror.Error) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		return model.Identity{}, apierror.Unauthorized("")
	}
	if !identity.IsAccount() {
		return model.Identity{}, apierror.Forbidden("payments require an account")
	}
	return identity, nil
}

// funcsError maps settlement client errors onto API errors.
func funcsError(err error) *apierror.Error {
	if errors.Is(err, funcs.ErrNotConfigured) {
		return apierror.ServiceUnavailable("payments are not configured")
	}
	return apierror.PaymentFailed("")
}

// PixRequest represents the body for creating a PIX charge.
type PixRequest struct {
	Amount json.Number `json:"amount"`
}

// GeneratePix handles POST /api/v1/payments/pix
func (h *PaymentsHandler) GeneratePix(w http.ResponseWriter, r *http.Request) {
	identity, apiErr := requireAccount(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req PixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	amount, err := req.Amount.Int64()
	if err != nil || amount <= 0 {
		response.Error(w, apierror.BadRequest("amount must be a positive integer"))
		return
	}

	data := middleware.GetTokenDataFromContext(r.Context())
	email := ""
	if data != nil {
		email = data.Email
	}

	pix, err := h.funcs.GeneratePix(r.Context(), funcs.PixRequest{
		UserID: identity.ID,
		Amount: amount,
		Email:  email,
	})
	if err != nil {
		response.Error(w, funcsError(err))
		return
	}
	response.OK(w, pix)
}

// ConfirmPixRequest represents the body for confirming a PIX charge.
type ConfirmPixRequest struct {
	PaymentID string `json:"payment_id"`
}

// ConfirmPix handles POST /api/v1/payments/pix/confirm
func (h *PaymentsHandler) ConfirmPix(w http.ResponseWriter, r *http.Request) {
	identity, apiErr := requireAccount(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req ConfirmPixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.PaymentID == "" {
		response.Error(w, apierror.BadRequest("payment_id is required"))
		return
	}

	result, err := h.funcs.ProcessPixPayment(r.Context(), req.PaymentID)
	if err != nil {
		response.Error(w, funcsError(err))
		return
	}
	if !result.Approved() {
		response.Error(w, apierror.PaymentFailed(result.Error))
		return
	}

	// The gateway settled the credits out of band; displays must re-read.
	h.ledger.ForceRefresh(identity)
	response.OK(w, result)
}

// CardRequest represents the body for a card charge.
type CardRequest struct {
	Amount       json.Number `json:"amount"`
	CardToken    string      `json:"card_token"`
	Installments int         `json:"installments"`
}

// ProcessCard handles POST /api/v1/payments/card
func (h *PaymentsHandler) ProcessCard(w http.ResponseWriter, r *http.Request) {
	identity, apiErr := requireAccount(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req CardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	amount, err := req.Amount.Int64()
	if err != nil || amount <= 0 {
		response.Error(w, apierror.BadRequest("amount must be a positive integer"))
		return
	}
	if req.CardToken == "" {
		response.Error(w, apierror.BadRequest("card_token is required"))
		return
	}

	result, err := h.funcs.ProcessCardPayment(r.Context(), funcs.CardPaymentRequest{
		UserID:    identity.ID,
		Amount:    amount,
		CardToken: req.CardToken,
		Installs:  req.Installments,
	})
	if err != nil {
		response.Error(w, funcsError(err))
		return
	}
	if !result.Approved() {
		response.Error(w, apierror.PaymentFailed(result.Error))
		return
	}

	h.ledger.ForceRefresh(identity)
	response.OK(w, result)
}

// PublicKey handles GET /api/v1/payments/public-key
func (h *PaymentsHandler) PublicKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.funcs.GetMPPublicKey(r.Context())
	if err != nil {
		response.Error(w, funcsError(err))
		return
	}
	response.OK(w, key)
}

// Subscription handles GET /api/v1/subscription
func (h *PaymentsHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	identity, apiErr := requireAccount(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	status, err := h.funcs.CheckSubscription(r.Context(), identity.ID)
	if err != nil {
		response.Error(w, funcsError(err))
		return
	}
	response.OK(w, status)
}

// CheckoutRequest represents the body for starting a checkout.
type CheckoutRequest struct {
	PriceID string `json:"price_id"`
}

// Checkout handles POST /api/v1/subscription/checkout
func (h *PaymentsHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	identity, apiErr := requireAccount(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	redirect, err := h.funcs.CreateCheckout(r.Context(), identity.ID, req.PriceID)
	if err != nil {
		response.Error(w, funcsError(err))
		return
	}
	response.OK(w, redirect)
}

// Portal handles POST /api/v1/subscription/portal
func (h *PaymentsHandler) Portal(w http.ResponseWriter, r *http.Request) {
	identity, apiErr := requireAccount(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	redirect, err := h.funcs.CustomerPortal(r.Context(), identity.ID)
	if err != nil {
		response.Error(w, funcsError(err))
		return
	}
	response.OK(w, redirect)
}

// CancelSubscription handles POST /api/v1/subscription/cancel
func (h *PaymentsHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	identity, apiErr := requireAccount(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	result, err := h.funcs.CancelSubscription(r.Context(), identity.ID)
	if err != nil {
		response.Error(w, funcsError(err))
		return
	}
	response.OK(w, result)
}

// UpdateKeysRequest represents the body for rotating gateway credentials.
type UpdateKeysRequest struct {
	PublicKey    string `json:"public_key"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// UpdateMPKey handles PUT /api/v1/payments/keys/mp
func (h *PaymentsHandler) UpdateMPKey(w http.ResponseWriter, r *http.Request) {
	if _, apiErr := requireAccount(r); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req UpdateKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.PublicKey == "" {
		response.Error(w, apierror.BadRequest("public_key is required"))
		return
	}

	result, err := h.funcs.UpdateMPPublicKey(r.Context(), req.PublicKey)
	if err != nil {
		response.Error(w, funcsError(err))
		return
	}
	response.OK(w, result)
}

// UpdateLivePixKeys handles PUT /api/v1/payments/keys/livepix
func (h *PaymentsHandler) UpdateLivePixKeys(w http.ResponseWriter, r *http.Request) {
	identity, apiErr := requireAccount(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req UpdateKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.ClientID == "" || req.ClientSecret == "" {
		response.Error(w, apierror.BadRequest("client_id and client_secret are required"))
		return
	}

	result, err := h.funcs.UpdateLivePixKeys(r.Context(), funcs.LivePixKeys{
		UserID:       identity.ID,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
	})
	if err != nil {
		response.Error(w, funcsError(err))
		return
	}
	response.OK(w, result)
}

// RecoveryCodeRequest represents the body for requesting a recovery code.
type RecoveryCodeRequest struct {
	Email string `json:"email"`
}

// RecoveryCode handles POST /api/v1/auth/recovery-code. Always answers
// with a generic status so the endpoint cannot be used to probe accounts.
func (h *PaymentsHandler) RecoveryCode(w http.ResponseWriter, r *http.Request) {
	var req RecoveryCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Email == "" {
		response.Error(w, apierror.BadRequest("email is required"))
		return
	}

	if _, err := h.funcs.SendRecoveryCode(r.Context(), req.Email); err != nil && errors.Is(err, funcs.ErrNotConfigured) {
		response.Error(w, apierror.ServiceUnavailable("recovery is not configured"))
		return
	}
	response.OK(w, map[string]string{"status": "sent"})
}
