package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"creatorhub-api/internal/cache"
	"creatorhub-api/internal/model"
)

func TestIdentityMiddlewareResolvesGuest(t *testing.T) {
	guests := cache.NewMemoryStore(cache.RedisStoreConfig{StartingCredits: 40})
	session, err := guests.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var gotIdentity model.Identity
	var gotSession *model.GuestSession
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdentity, _ = GetIdentityFromContext(r.Context())
		gotSession = GetGuestSessionFromContext(r.Context())
	})

	mw := NewIdentityMiddleware(IdentityConfig{Guests: guests})
	req := httptest.NewRequest("GET", "/api/v1/credits", nil)
	req.Header.Set("X-Guest-Session", session.SessionID)
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotIdentity.Kind != model.IdentityGuest || gotIdentity.ID != session.SessionID {
		t.Fatalf("unexpected identity: %+v", gotIdentity)
	}
	if gotSession == nil || gotSession.Credits != 40 {
		t.Fatalf("unexpected session in context: %+v", gotSession)
	}
}

func TestIdentityMiddlewareRejectsDeadGuestSession(t *testing.T) {
	guests := cache.NewMemoryStore(cache.RedisStoreConfig{})

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	mw := NewIdentityMiddleware(IdentityConfig{Guests: guests})
	req := httptest.NewRequest("GET", "/api/v1/credits", nil)
	req.Header.Set("X-Guest-Session", "expired-or-bogus")
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if called {
		t.Fatal("handler must not run without an identity")
	}
}

func TestIdentityMiddlewareRejectsMissingCredentials(t *testing.T) {
	guests := cache.NewMemoryStore(cache.RedisStoreConfig{})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	mw := NewIdentityMiddleware(IdentityConfig{Guests: guests})
	req := httptest.NewRequest("GET", "/api/v1/credits", nil)
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
