package middleware

import (
	"context"
	"net/http"

	"creatorhub-api/internal/cache"
	"creatorhub-api/internal/model"
	"creatorhub-api/internal/service"
	"creatorhub-api/pkg/apierror"
)

// IdentityKey is the key for storing the resolved identity in request context.
const IdentityKey contextKey = "identity"

// TokenDataKey is the key for storing token data in request context.
const TokenDataKey contextKey = "token_data"

// GuestSessionKey is the key for storing the guest session in request context.
const GuestSessionKey contextKey = "guest_session"

// IdentityConfig holds configuration for the identity middleware.
type IdentityConfig struct {
	TokenService *service.TokenService
	Guests       cache.GuestStore
}

// NewIdentityMiddleware resolves the caller's identity for every request.
// An X-Token header takes precedence and yields an account identity; an
// X-Guest-Session header yields a guest identity if the session is still
// live. Requests with neither, or with only dead credentials, are
// rejected.
func NewIdentityMiddleware(cfg IdentityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Token")
			if token != "" && cfg.TokenService != nil {
				tokenData, err := cfg.TokenService.ValidateToken(r.Context(), token)
				if err != nil {
					writeError(w, apierror.Unauthorized("Invalid or expired token"))
					return
				}

				ctx := context.WithValue(r.Context(), TokenDataKey, tokenData)
				ctx = context.WithValue(ctx, IdentityKey, model.AccountIdentity(tokenData.AccountID))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			sessionID := r.Header.Get("X-Guest-Session")
			if sessionID != "" && cfg.Guests != nil {
				session, err := cfg.Guests.Get(r.Context(), sessionID)
				if err != nil {
					writeError(w, apierror.InternalError("Failed to load guest session"))
					return
				}
				if session == nil {
					writeError(w, apierror.Unauthorized("Guest session not found or expired"))
					return
				}

				ctx := context.WithValue(r.Context(), GuestSessionKey, session)
				ctx = context.WithValue(ctx, IdentityKey, model.GuestIdentity(session.SessionID))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			writeError(w, apierror.Unauthorized("Authentication required. Use X-Token or X-Guest-Session header."))
		})
	}
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}

// GetIdentityFromContext retrieves the resolved identity from request context.
func GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(model.Identity)
	return identity, ok
}

// GetTokenDataFromContext retrieves token data from request context.
func GetTokenDataFromContext(ctx context.Context) *model.TokenData {
	if data, ok := ctx.Value(TokenDataKey).(*model.TokenData); ok {
		return data
	}
	return nil
}

// GetGuestSessionFromContext retrieves the guest session from request context.
func GetGuestSessionFromContext(ctx context.Context) *model.GuestSession {
	if session, ok := ctx.Value(GuestSessionKey).(*model.GuestSession); ok {
		return session
	}
	return nil
}
