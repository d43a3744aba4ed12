package funcs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvokeSendsAuthAndPath(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"status": "approved"})
	}))
	defer srv.Close()

	client := New(srv.URL, "secret-key", 0)
	var out SettlementResult
	err := client.Invoke(context.Background(), FnProcessPixPayment, map[string]string{"payment_id": "p1"}, &out)
	require.NoError(t, err)

	require.Equal(t, "/functions/v1/process-pix-payment", gotPath)
	require.Equal(t, "Bearer secret-key", gotAuth)
	require.Equal(t, "p1", gotBody["payment_id"])
	require.True(t, out.Approved())
}

func TestInvokeNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"insufficient funds"}`, http.StatusPaymentRequired)
	}))
	defer srv.Close()

	client := New(srv.URL, "", 0)
	err := client.Invoke(context.Background(), FnProcessCardPayment, map[string]string{}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "402")
}

func TestUnconfiguredClient(t *testing.T) {
	client := New("", "", 0)
	require.False(t, client.Configured())

	_, err := client.GeneratePix(context.Background(), PixRequest{UserID: "u1", Amount: 100})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestGeneratePixDecodesAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/functions/v1/generate-pix", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"pixCode":    "00020126",
			"qrCodeUrl":  "https://example.com/qr.png",
			"payment_id": "p42",
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "k", 0)
	pix, err := client.GeneratePix(context.Background(), PixRequest{UserID: "u1", Amount: 500})
	require.NoError(t, err)
	require.Equal(t, "00020126", pix.PixCode)
	require.Equal(t, "https://example.com/qr.png", pix.QRCodeURL)
	require.Equal(t, "p42", pix.PaymentID)
}

func TestSettlementResultApproved(t *testing.T) {
	for _, status := range []string{"approved", "success", "paid"} {
		r := SettlementResult{Status: status}
		require.True(t, r.Approved(), status)
	}
	for _, status := range []string{"pending", "rejected", ""} {
		r := SettlementResult{Status: status}
		require.False(t, r.Approved(), status)
	}
}
