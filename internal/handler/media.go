package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"creatorhub-api/internal/middleware"
	"creatorhub-api/internal/model"
	"creatorhub-api/internal/repository"
	"creatorhub-api/internal/service"
	"creatorhub-api/pkg/apierror"
	"creatorhub-api/pkg/response"
	"creatorhub-api/pkg/uid"

	"github.com/go-chi/chi/v5"
)

// MediaHandler exposes showcase media and the unlock purchase flow.
type MediaHandler struct {
	media       repository.MediaRepository
	entitlement *service.EntitlementService
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(media repository.MediaRepository, entitlement *service.EntitlementService) *MediaHandler {
	return &MediaHandler{media: media, entitlement: entitlement}
}

// CreateMediaRequest represents the body for publishing a media item.
type CreateMediaRequest struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	CreditPrice int64  `json:"credit_price"`
	Premium     bool   `json:"premium"`
}

// Create handles POST /api/v1/media
func (h *MediaHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok || !identity.IsAccount() {
		response.Error(w, apierror.Forbidden("publishing media requires an account"))
		return
	}

	var req CreateMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Title == "" {
		response.Error(w, apierror.BadRequest("title is required"))
		return
	}
	if req.CreditPrice < 0 {
		response.Error(w, apierror.BadRequest("credit_price cannot be negative"))
		return
	}

	m := &model.Media{
		ID:          uid.New(),
		OwnerID:     identity.ID,
		Title:       req.Title,
		URL:         req.URL,
		CreditPrice: req.CreditPrice,
		Premium:     req.Premium,
		CreatedAt:   time.Now(),
	}
	if err := h.media.Insert(r.Context(), m); err != nil {
		response.Error(w, apierror.InternalError("failed to create media"))
		return
	}
	response.Created(w, m)
}

// List handles GET /api/v1/media (the caller's own items).
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok || !identity.IsAccount() {
		response.OK(w, []model.Media{})
		return
	}

	items, err := h.media.ListByOwner(r.Context(), identity.ID)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to list media"))
		return
	}
	response.OK(w, items)
}

// Get handles GET /api/v1/media/{media_id}
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.media.GetByID(r.Context(), chi.URLParam(r, "media_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(w, apierror.NotFound("media not found"))
			return
		}
		response.Error(w, apierror.InternalError("failed to load media"))
		return
	}
	response.OK(w, m)
}

// Purchase handles POST /api/v1/media/{media_id}/purchase
func (h *MediaHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	unlock, err := h.entitlement.Purchase(r.Context(), identity, chi.URLParam(r, "media_id"))
	if err != nil {
		response.Error(w, purchaseError(err))
		return
	}
	response.Created(w, unlock)
}

// UnlockedResponse represents the entitlement check answer.
type UnlockedResponse struct {
	Unlocked bool `json:"unlocked"`
}

// Unlocked handles GET /api/v1/media/{media_id}/unlocked
func (h *MediaHandler) Unlocked(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	unlocked, err := h.entitlement.IsUnlocked(r.Context(), identity, chi.URLParam(r, "media_id"))
	if err != nil {
		response.Error(w, apierror.InternalError("failed to check unlock"))
		return
	}
	response.OK(w, UnlockedResponse{Unlocked: unlocked})
}

// Unlocks handles GET /api/v1/unlocks
func (h *MediaHandler) Unlocks(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	unlocks, err := h.entitlement.ListUnlocks(r.Context(), identity)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to list unlocks"))
		return
	}
	if unlocks == nil {
		unlocks = []model.Unlock{}
	}
	response.OK(w, unlocks)
}

// Sales handles GET /api/v1/sales
func (h *MediaHandler) Sales(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok || !identity.IsAccount() {
		response.Error(w, apierror.Forbidden("sales history requires an account"))
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	sales, err := h.entitlement.ListSales(r.Context(), identity.ID, limit)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to list sales"))
		return
	}
	if sales == nil {
		sales = []model.Sale{}
	}
	response.OK(w, sales)
}

// purchaseError maps entitlement errors onto API errors.
func purchaseError(err error) *apierror.Error {
	switch {
	case errors.Is(err, service.ErrMediaNotFound):
		return apierror.NotFound("media not found")
	case errors.Is(err, service.ErrOwnPurchase):
		return apierror.BadRequest("cannot purchase your own media")
	case errors.Is(err, service.ErrAccountRequired):
		return apierror.Forbidden("purchasing requires an account")
	case errors.Is(err, service.ErrInsufficientCredits):
		return apierror.InsufficientCredits("")
	default:
		return apierror.InternalError("")
	}
}
