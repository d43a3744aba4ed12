// Package funcs is the remote settlement boundary: named serverless
// functions invoked with a JSON body and an opaque JSON answer. Request
// and response shapes are fixed contracts; the gateway's internals are
// out of scope, this service only reacts to results.
package funcs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when no functions endpoint is configured.
var ErrNotConfigured = errors.New("functions endpoint not configured")

// Function names, invoked by name with a JSON body.
const (
	FnUpdateUserCredits  = "update-user-credits"
	FnGeneratePix        = "generate-pix"
	FnProcessPixPayment  = "process-pix-payment"
	FnProcessCardPayment = "process-card-payment"
	FnGetMPPublicKey     = "get-mp-public-key"
	FnUpdateMPPublicKey  = "update-mp-public-key"
	FnUpdateLivePixKeys  = "update-livepix-keys"
	FnCheckSubscription  = "check-subscription"
	FnCreateCheckout     = "create-checkout"
	FnCustomerPortal     = "customer-portal"
	FnCancelSubscription = "cancel-subscription"
	FnSendRecoveryCode   = "send-recovery-code"
)

// Client invokes settlement functions over HTTP.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// New creates a functions client. An empty baseURL yields a client whose
// calls fail with ErrNotConfigured, so payment routes degrade cleanly.
func New(baseURL, serviceKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// Invoke calls a function by name and decodes the JSON answer into out.
func (c *Client) Invoke(ctx context.Context, name string, body any, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to serialize %s request: %w", name, err)
	}

	url := c.baseURL + "/functions/v1/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("function %s failed: %w", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("function %s: failed to read response: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("function %s returned status %d: %s", name, resp.StatusCode, truncate(data, 256))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("function %s: failed to parse response: %w", name, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// PixRequest asks the gateway for a PIX charge.
type PixRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
	Email  string `json:"email,omitempty"`
}

// PixResponse is the gateway's PIX charge answer.
type PixResponse struct {
	PixCode   string `json:"pixCode"`
	QRCodeURL string `json:"qrCodeUrl"`
	PaymentID string `json:"payment_id,omitempty"`
}

// GeneratePix creates a PIX charge.
func (c *Client) GeneratePix(ctx context.Context, req PixRequest) (*PixResponse, error) {
	var out PixResponse
	if err := c.Invoke(ctx, FnGeneratePix, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SettlementResult is the common `{status, new_credits}` answer shape.
type SettlementResult struct {
	Status     string `json:"status"`
	NewCredits int64  `json:"new_credits,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Approved reports whether the settlement went through.
func (r *SettlementResult) Approved() bool {
	return r.Status == "approved" || r.Status == "success" || r.Status == "paid"
}

// ProcessPixPayment confirms a pending PIX charge.
func (c *Client) ProcessPixPayment(ctx context.Context, paymentID string) (*SettlementResult, error) {
	var out SettlementResult
	err := c.Invoke(ctx, FnProcessPixPayment, map[string]string{"payment_id": paymentID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CardPaymentRequest carries an opaque card token to the gateway.
type CardPaymentRequest struct {
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	CardToken string `json:"card_token"`
	Installs  int    `json:"installments,omitempty"`
}

// ProcessCardPayment charges a card through the gateway.
func (c *Client) ProcessCardPayment(ctx context.Context, req CardPaymentRequest) (*SettlementResult, error) {
	var out SettlementResult
	if err := c.Invoke(ctx, FnProcessCardPayment, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUserCredits settles a credit change server-side and returns the
// authoritative new balance.
func (c *Client) UpdateUserCredits(ctx context.Context, userID string, delta int64) (*SettlementResult, error) {
	var out SettlementResult
	err := c.Invoke(ctx, FnUpdateUserCredits, map[string]any{"user_id": userID, "delta": delta}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SubscriptionStatus is the `check-subscription` answer.
type SubscriptionStatus struct {
	Subscribed bool   `json:"subscribed"`
	Status     string `json:"status,omitempty"`
	ExpiresAt  string `json:"expires_at,omitempty"`
}

// CheckSubscription queries the buyer's subscription state.
func (c *Client) CheckSubscription(ctx context.Context, userID string) (*SubscriptionStatus, error) {
	var out SubscriptionStatus
	if err := c.Invoke(ctx, FnCheckSubscription, map[string]string{"user_id": userID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RedirectResponse is the answer shape of checkout/portal functions.
type RedirectResponse struct {
	URL string `json:"url"`
}

// CreateCheckout starts a hosted subscription checkout.
func (c *Client) CreateCheckout(ctx context.Context, userID, priceID string) (*RedirectResponse, error) {
	var out RedirectResponse
	err := c.Invoke(ctx, FnCreateCheckout, map[string]string{"user_id": userID, "price_id": priceID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CustomerPortal opens the hosted billing portal.
func (c *Client) CustomerPortal(ctx context.Context, userID string) (*RedirectResponse, error) {
	var out RedirectResponse
	if err := c.Invoke(ctx, FnCustomerPortal, map[string]string{"user_id": userID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelSubscription cancels the user's subscription.
func (c *Client) CancelSubscription(ctx context.Context, userID string) (*SettlementResult, error) {
	var out SettlementResult
	err := c.Invoke(ctx, FnCancelSubscription, map[string]string{"user_id": userID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PublicKeyResponse is the gateway public key answer.
type PublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// GetMPPublicKey fetches the card tokenization public key.
func (c *Client) GetMPPublicKey(ctx context.Context) (*PublicKeyResponse, error) {
	var out PublicKeyResponse
	if err := c.Invoke(ctx, FnGetMPPublicKey, map[string]string{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMPPublicKey rotates the card tokenization public key.
func (c *Client) UpdateMPPublicKey(ctx context.Context, publicKey string) (*SettlementResult, error) {
	var out SettlementResult
	err := c.Invoke(ctx, FnUpdateMPPublicKey, map[string]string{"public_key": publicKey}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LivePixKeys carries the creator's LivePix API credentials.
type LivePixKeys struct {
	UserID       string `json:"user_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// UpdateLivePixKeys stores the creator's LivePix credentials gateway-side.
func (c *Client) UpdateLivePixKeys(ctx context.Context, keys LivePixKeys) (*SettlementResult, error) {
	var out SettlementResult
	if err := c.Invoke(ctx, FnUpdateLivePixKeys, keys, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendRecoveryCode asks the gateway to email a recovery code.
func (c *Client) SendRecoveryCode(ctx context.Context, email string) (*SettlementResult, error) {
	var out SettlementResult
	if err := c.Invoke(ctx, FnSendRecoveryCode, map[string]string{"email": email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
