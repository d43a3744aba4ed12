package handler

import (
	"encoding/json"
	"net/http"

	"creatorhub-api/internal/middleware"
	"creatorhub-api/internal/model"
	"creatorhub-api/internal/service"
	"creatorhub-api/pkg/apierror"
	"creatorhub-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// RoomsHandler exposes room presence and the single-occupancy queue.
type RoomsHandler struct {
	rooms *service.RoomService
}

// NewRoomsHandler creates a new rooms handler.
func NewRoomsHandler(rooms *service.RoomService) *RoomsHandler {
	return &RoomsHandler{rooms: rooms}
}

// PresenceRequest represents the body for joining room presence.
type PresenceRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// displayName falls back to guest session fields when the body omits one.
func displayName(r *http.Request, name string) string {
	if name != "" {
		return name
	}
	if session := middleware.GetGuestSessionFromContext(r.Context()); session != nil && session.Name != "" {
		return session.Name
	}
	if data := middleware.GetTokenDataFromContext(r.Context()); data != nil {
		return data.Username
	}
	return "Anonymous"
}

// JoinPresence handles POST /api/v1/rooms/{room}/presence/join
func (h *RoomsHandler) JoinPresence(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	var req PresenceRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
		defer r.Body.Close()
	}

	room := chi.URLParam(r, "room")
	err := h.rooms.JoinPresence(r.Context(), room, identity, displayName(r, req.Name), req.Avatar)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to join presence"))
		return
	}
	response.OK(w, map[string]string{"status": "online"})
}

// HeartbeatPresence handles POST /api/v1/rooms/{room}/presence/heartbeat
func (h *RoomsHandler) HeartbeatPresence(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	room := chi.URLParam(r, "room")
	if err := h.rooms.HeartbeatPresence(r.Context(), room, identity); err != nil {
		response.Error(w, apierror.InternalError("failed to heartbeat"))
		return
	}
	response.OK(w, map[string]string{"status": "online"})
}

// LeavePresence handles POST /api/v1/rooms/{room}/presence/leave
func (h *RoomsHandler) LeavePresence(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	room := chi.URLParam(r, "room")
	if err := h.rooms.LeavePresence(r.Context(), room, identity); err != nil {
		response.Error(w, apierror.InternalError("failed to leave presence"))
		return
	}
	response.OK(w, map[string]string{"status": "offline"})
}

// Online handles GET /api/v1/rooms/{room}/presence
func (h *RoomsHandler) Online(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	entries, err := h.rooms.Online(r.Context(), room)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to list presence"))
		return
	}
	if entries == nil {
		entries = []model.PresenceEntry{}
	}
	response.OK(w, entries)
}

// EnterQueue handles POST /api/v1/rooms/{room}/queue/enter
func (h *RoomsHandler) EnterQueue(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	var req PresenceRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
		defer r.Body.Close()
	}

	room := chi.URLParam(r, "room")
	result, err := h.rooms.RequestEntry(r.Context(), room, identity, displayName(r, req.Name))
	if err != nil {
		response.Error(w, apierror.InternalError("failed to request entry"))
		return
	}
	response.OK(w, result)
}

// LeaveQueue handles POST /api/v1/rooms/{room}/queue/leave
func (h *RoomsHandler) LeaveQueue(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	room := chi.URLParam(r, "room")
	if err := h.rooms.LeaveRoom(r.Context(), room, identity); err != nil {
		response.Error(w, apierror.InternalError("failed to leave room"))
		return
	}
	response.OK(w, map[string]string{"status": "left"})
}

// QueueStatus handles GET /api/v1/rooms/{room}/queue
func (h *RoomsHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	status, err := h.rooms.Status(r.Context(), room)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to load queue status"))
		return
	}
	response.OK(w, status)
}
