package handler

import (
	"net/http"
	"strconv"

	"creatorhub-api/internal/cache"
	"creatorhub-api/internal/middleware"
	"creatorhub-api/internal/model"
	"creatorhub-api/internal/repository"
	"creatorhub-api/pkg/apierror"
	"creatorhub-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// NotificationsHandler serves notifications for both identity kinds.
type NotificationsHandler struct {
	notifs repository.NotificationRepository
	guests cache.GuestStore
}

// NewNotificationsHandler creates a new notifications handler.
func NewNotificationsHandler(notifs repository.NotificationRepository, guests cache.GuestStore) *NotificationsHandler {
	return &NotificationsHandler{notifs: notifs, guests: guests}
}

// List handles GET /api/v1/notifications
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	if identity.IsAccount() {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}
		items, err := h.notifs.ListByOwner(r.Context(), identity.ID, limit)
		if err != nil {
			response.Error(w, apierror.InternalError("failed to list notifications"))
			return
		}
		if items == nil {
			items = []model.Notification{}
		}
		response.OK(w, items)
		return
	}

	session := middleware.GetGuestSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized("Guest session not found or expired"))
		return
	}
	items := session.Notifications
	if items == nil {
		items = []model.Notification{}
	}
	response.OK(w, items)
}

// MarkRead handles POST /api/v1/notifications/{notification_id}/read
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apierror.Unauthorized(""))
		return
	}
	id := chi.URLParam(r, "notification_id")

	if identity.IsAccount() {
		if err := h.notifs.MarkRead(r.Context(), identity.ID, id); err != nil {
			response.Error(w, apierror.NotFound("notification not found"))
			return
		}
		response.OK(w, map[string]string{"status": "read"})
		return
	}

	session := middleware.GetGuestSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized("Guest session not found or expired"))
		return
	}
	for i := range session.Notifications {
		if session.Notifications[i].ID == id {
			session.Notifications[i].Read = true
			if err := h.guests.Save(r.Context(), session); err != nil {
				response.Error(w, apierror.InternalError("failed to save guest session"))
				return
			}
			response.OK(w, map[string]string{"status": "read"})
			return
		}
	}
	response.Error(w, apierror.NotFound("notification not found"))
}
