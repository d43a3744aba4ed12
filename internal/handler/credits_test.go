package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"creatorhub-api/internal/cache"
	"creatorhub-api/internal/events"
	"creatorhub-api/internal/middleware"
	"creatorhub-api/internal/service"

	"github.com/stretchr/testify/require"
)

// guest-only fixture: the profile and notification repositories are never
// touched on guest paths.
func newGuestCreditsFixture(t *testing.T) (http.Handler, string) {
	t.Helper()
	guests := cache.NewMemoryStore(cache.RedisStoreConfig{StartingCredits: 40})
	bus := events.NewBus()
	t.Cleanup(bus.Close)

	session, err := guests.Create(context.Background())
	require.NoError(t, err)

	ledger := service.NewLedger(nil, guests, nil, bus)
	h := NewCreditsHandler(ledger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/credits", h.GetBalance)
	mux.HandleFunc("POST /api/v1/credits/add", h.Add)
	mux.HandleFunc("POST /api/v1/credits/subtract", h.Subtract)

	mw := middleware.NewIdentityMiddleware(middleware.IdentityConfig{Guests: guests})
	return mw(mux), session.SessionID
}

func doJSON(t *testing.T, h http.Handler, method, path, sessionID, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-Guest-Session", sessionID)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestCreditsEndpointsGuestFlow(t *testing.T) {
	h, sessionID := newGuestCreditsFixture(t)

	rec, body := doJSON(t, h, "GET", "/api/v1/credits", sessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(40), body["data"].(map[string]any)["balance"])

	rec, body = doJSON(t, h, "POST", "/api/v1/credits/add", sessionID, `{"amount": 10, "reason": "gift"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(50), body["data"].(map[string]any)["balance"])

	rec, body = doJSON(t, h, "POST", "/api/v1/credits/subtract", sessionID, `{"amount": 20, "reason": "unlock"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(30), body["data"].(map[string]any)["balance"])
}

func TestCreditsEndpointRejectsUnderflow(t *testing.T) {
	h, sessionID := newGuestCreditsFixture(t)

	rec, body := doJSON(t, h, "POST", "/api/v1/credits/subtract", sessionID, `{"amount": 100}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "INSUFFICIENT_CREDITS", body["error"].(map[string]any)["code"])

	// The failed attempt must not have changed the balance.
	rec, body = doJSON(t, h, "GET", "/api/v1/credits", sessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(40), body["data"].(map[string]any)["balance"])
}

func TestCreditsEndpointRejectsBadAmounts(t *testing.T) {
	h, sessionID := newGuestCreditsFixture(t)

	for _, body := range []string{
		`{"amount": 1.5}`,
		`{"amount": 0}`,
		`{"amount": -3}`,
		`{"amount": "ten"}`,
		`not json`,
	} {
		rec, _ := doJSON(t, h, "POST", "/api/v1/credits/add", sessionID, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestCreditsEndpointRejectsUnknownSession(t *testing.T) {
	h, _ := newGuestCreditsFixture(t)

	rec, _ := doJSON(t, h, "GET", "/api/v1/credits", "bogus", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
