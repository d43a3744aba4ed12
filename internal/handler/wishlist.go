package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"creatorhub-api/internal/cache"
	"creatorhub-api/internal/middleware"
	"creatorhub-api/internal/model"
	"creatorhub-api/internal/repository"
	"creatorhub-api/pkg/apierror"
	"creatorhub-api/pkg/response"
	"creatorhub-api/pkg/uid"

	"github.com/go-chi/chi/v5"
)

// WishlistHandler serves wishlists for both identity kinds: durable rows
// for accounts, the session blob for guests.
type WishlistHandler struct {
	wishlist repository.WishlistRepository
	guests   cache.GuestStore
}

// NewWishlistHandler creates a new wishlist handler.
func NewWishlistHandler(wishlist repository.WishlistRepository, guests cache.GuestStore) *WishlistHandler {
	return &WishlistHandler{wishlist: wishlist, guests: guests}
}

// List handles GET /api/v1/wishlist
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	if identity.IsAccount() {
		items, err := h.wishlist.ListByOwner(r.Context(), identity.ID)
		if err != nil {
			response.Error(w, apierror.InternalError("failed to list wishlist"))
			return
		}
		if items == nil {
			items = []model.WishlistItem{}
		}
		response.OK(w, items)
		return
	}

	session := middleware.GetGuestSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized("Guest session not found or expired"))
		return
	}
	items := session.Wishlist
	if items == nil {
		items = []model.WishlistItem{}
	}
	response.OK(w, items)
}

// AddWishlistRequest represents the body for adding a wishlist item.
type AddWishlistRequest struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
	Price    int64  `json:"price"`
}

// Add handles POST /api/v1/wishlist
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	var req AddWishlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Title == "" {
		response.Error(w, apierror.BadRequest("title is required"))
		return
	}
	if req.Price < 0 {
		response.Error(w, apierror.BadRequest("price cannot be negative"))
		return
	}

	item := model.WishlistItem{
		ID:        uid.New(),
		Title:     req.Title,
		URL:       req.URL,
		ImageURL:  req.ImageURL,
		Price:     req.Price,
		CreatedAt: time.Now(),
	}

	if identity.IsAccount() {
		item.OwnerID = identity.ID
		if err := h.wishlist.Insert(r.Context(), &item); err != nil {
			response.Error(w, apierror.InternalError("failed to add wishlist item"))
			return
		}
		response.Created(w, item)
		return
	}

	session := middleware.GetGuestSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized("Guest session not found or expired"))
		return
	}
	session.Wishlist = append(session.Wishlist, item)
	if err := h.guests.Save(r.Context(), session); err != nil {
		response.Error(w, apierror.InternalError("failed to save guest wishlist"))
		return
	}
	response.Created(w, item)
}

// Delete handles DELETE /api/v1/wishlist/{item_id}
func (h *WishlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apierror.Unauthorized(""))
		return
	}
	itemID := chi.URLParam(r, "item_id")

	if identity.IsAccount() {
		if err := h.wishlist.Delete(r.Context(), identity.ID, itemID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				response.Error(w, apierror.NotFound("wishlist item not found"))
				return
			}
			response.Error(w, apierror.InternalError("failed to delete wishlist item"))
			return
		}
		response.NoContent(w)
		return
	}

	session := middleware.GetGuestSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized("Guest session not found or expired"))
		return
	}

	found := false
	kept := session.Wishlist[:0]
	for _, item := range session.Wishlist {
		if item.ID == itemID {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		response.Error(w, apierror.NotFound("wishlist item not found"))
		return
	}
	session.Wishlist = kept
	if err := h.guests.Save(r.Context(), session); err != nil {
		response.Error(w, apierror.InternalError("failed to save guest wishlist"))
		return
	}
	response.NoContent(w)
}
