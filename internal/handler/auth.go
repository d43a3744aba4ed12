package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"creatorhub-api/internal/cache"
	"creatorhub-api/internal/model"
	"creatorhub-api/internal/repository"
	"creatorhub-api/internal/service"
	"creatorhub-api/pkg/apierror"
	"creatorhub-api/pkg/response"
	"creatorhub-api/pkg/uid"

	"golang.org/x/crypto/bcrypt"
)

// AuthHandler handles registration, login and session lifecycle. Login
// runs the guest merge when a guest session accompanies the request, and
// every identity switch goes through the isolation registry before any
// new data is served.
type AuthHandler struct {
	tokenService *service.TokenService
	profiles     repository.ProfileRepository
	guests       cache.GuestStore
	merge        *service.MergeService
	isolation    *service.IsolationRegistry
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(
	tokenService *service.TokenService,
	profiles repository.ProfileRepository,
	guests cache.GuestStore,
	merge *service.MergeService,
	isolation *service.IsolationRegistry,
) *AuthHandler {
	return &AuthHandler{
		tokenService: tokenService,
		profiles:     profiles,
		guests:       guests,
		merge:        merge,
		isolation:    isolation,
	}
}

// RegisterRequest represents the request body for account registration.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse represents the response for login and registration.
type AuthResponse struct {
	Token     string               `json:"token"`
	ExpiresIn int                  `json:"expires_in"`
	Profile   *model.Profile       `json:"profile"`
	Merge     *service.MergeResult `json:"merge,omitempty"`
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		response.Error(w, apierror.BadRequest("a valid email is required"))
		return
	}
	if req.Username == "" {
		response.Error(w, apierror.BadRequest("username is required"))
		return
	}
	if len(req.Password) < 8 {
		response.Error(w, apierror.BadRequest("password must be at least 8 characters"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to hash password"))
		return
	}

	now := time.Now()
	profile := &model.Profile{
		ID:           uid.New(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		Credits:      0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.profiles.Create(r.Context(), profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			response.Error(w, apierror.Conflict("an account with this email already exists"))
			return
		}
		response.Error(w, apierror.InternalError("failed to create account"))
		return
	}

	h.issueSession(w, r, profile)
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		response.Error(w, apierror.BadRequest("email and password are required"))
		return
	}

	profile, err := h.profiles.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(w, apierror.Unauthorized("invalid credentials"))
			return
		}
		response.Error(w, apierror.InternalError("failed to load account"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)) != nil {
		response.Error(w, apierror.Unauthorized("invalid credentials"))
		return
	}

	h.issueSession(w, r, profile)
}

// issueSession merges an accompanying guest session and returns a fresh
// token. The merge isolates the guest identity itself once everything
// migrated; a partial merge keeps the session blob and never blocks login.
func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, profile *model.Profile) {
	var mergeResult *service.MergeResult
	if guestSessionID := r.Header.Get("X-Guest-Session"); guestSessionID != "" {
		result, err := h.merge.Merge(r.Context(), profile.ID, guestSessionID)
		if err != nil {
			log.Printf("[AuthHandler] Partial guest merge for account %s: %v", profile.ID, err)
		}
		if result != nil && result.Merged() {
			mergeResult = result
		}
	}

	token, err := h.tokenService.GenerateToken(r.Context(), model.TokenData{
		AccountID: profile.ID,
		Email:     profile.Email,
		Username:  profile.Username,
	})
	if err != nil {
		response.Error(w, apierror.InternalError("failed to generate token"))
		return
	}

	// Re-read so a merged balance shows up in the login answer.
	if fresh, err := h.profiles.GetByID(r.Context(), profile.ID); err == nil {
		profile = fresh
	}

	response.OK(w, AuthResponse{
		Token:     token,
		ExpiresIn: int(service.TokenTTL.Seconds()),
		Profile:   profile,
		Merge:     mergeResult,
	})
}

// Logout handles POST /api/v1/auth/logout. The account token is revoked,
// the account's cached state is isolated, and a fresh guest session is
// issued so the caller never continues on stale identity data.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Token")
	if token == "" {
		response.Error(w, apierror.BadRequest("X-Token header required"))
		return
	}

	if data, err := h.tokenService.ValidateToken(r.Context(), token); err == nil {
		h.isolation.Isolate(r.Context(), model.AccountIdentity(data.AccountID))
	}

	if err := h.tokenService.RevokeToken(r.Context(), token); err != nil {
		response.Error(w, apierror.InternalError("failed to revoke token"))
		return
	}

	session, err := h.guests.Create(r.Context())
	if err != nil {
		response.Error(w, apierror.InternalError("failed to issue guest session"))
		return
	}

	response.OK(w, map[string]interface{}{
		"status":        "logged_out",
		"guest_session": session,
	})
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Token")
	if token == "" {
		response.Error(w, apierror.BadRequest("X-Token header required"))
		return
	}

	if err := h.tokenService.RefreshToken(r.Context(), token); err != nil {
		response.Error(w, apierror.Unauthorized(err.Error()))
		return
	}

	response.OK(w, map[string]interface{}{
		"status":     "refreshed",
		"expires_in": int(service.TokenTTL.Seconds()),
	})
}

// SessionResponse represents the resolved identity for the caller.
type SessionResponse struct {
	Identity model.Identity      `json:"identity"`
	Profile  *model.Profile      `json:"profile,omitempty"`
	Guest    *model.GuestSession `json:"guest,omitempty"`
}

// Session handles GET /api/v1/session. With valid credentials it resolves
// the current identity; with none (or a dead guest session) it issues a
// fresh guest session with the starting balance.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	if token := r.Header.Get("X-Token"); token != "" {
		data, err := h.tokenService.ValidateToken(r.Context(), token)
		if err != nil {
			response.Error(w, apierror.Unauthorized("Invalid or expired token"))
			return
		}
		profile, err := h.profiles.GetByID(r.Context(), data.AccountID)
		if err != nil {
			response.Error(w, apierror.InternalError("failed to load account"))
			return
		}
		response.OK(w, SessionResponse{
			Identity: model.AccountIdentity(data.AccountID),
			Profile:  profile,
		})
		return
	}

	if sessionID := r.Header.Get("X-Guest-Session"); sessionID != "" {
		session, err := h.guests.Get(r.Context(), sessionID)
		if err != nil {
			response.Error(w, apierror.InternalError("failed to load guest session"))
			return
		}
		if session != nil {
			response.OK(w, SessionResponse{
				Identity: model.GuestIdentity(session.SessionID),
				Guest:    session,
			})
			return
		}
		// Expired session: every trace of it is gone with the blob, the
		// caller starts over as a fresh guest.
	}

	session, err := h.guests.Create(r.Context())
	if err != nil {
		response.Error(w, apierror.InternalError("failed to issue guest session"))
		return
	}
	response.Created(w, SessionResponse{
		Identity: model.GuestIdentity(session.SessionID),
		Guest:    session,
	})
}
