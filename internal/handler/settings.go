package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"creatorhub-api/internal/middleware"
	"creatorhub-api/internal/model"
	"creatorhub-api/internal/repository"
	"creatorhub-api/pkg/apierror"
	"creatorhub-api/pkg/response"
	"creatorhub-api/pkg/uid"

	"github.com/go-chi/chi/v5"
)

// SettingsHandler serves per-creator settings and block lists. Writes are
// restricted to the creator themselves.
type SettingsHandler struct {
	settings           repository.SettingsRepository
	blocks             repository.BlockRepository
	defaultWaitMinutes int
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings repository.SettingsRepository, blocks repository.BlockRepository, defaultWaitMinutes int) *SettingsHandler {
	if defaultWaitMinutes <= 0 {
		defaultWaitMinutes = 5
	}
	return &SettingsHandler{
		settings:           settings,
		blocks:             blocks,
		defaultWaitMinutes: defaultWaitMinutes,
	}
}

// requireCreator rejects callers that are not the creator in the path.
func requireCreator(r *http.Request) (string, *apierror.Error) {
	creatorID := chi.URLParam(r, "creator_id")
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		return "", apierror.Unauthorized("")
	}
	if !identity.IsAccount() || identity.ID != creatorID {
		return "", apierror.Forbidden("only the creator can manage this resource")
	}
	return creatorID, nil
}

// GetSettings handles GET /api/v1/creators/{creator_id}/settings. Readable
// by anyone; records from older schema versions are migrated on read.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	creatorID := chi.URLParam(r, "creator_id")

	settings, err := h.settings.Get(r.Context(), creatorID)
	if errors.Is(err, repository.ErrNotFound) {
		response.OK(w, model.DefaultCreatorSettings(creatorID, h.defaultWaitMinutes))
		return
	}
	if err != nil {
		response.Error(w, apierror.InternalError("failed to load settings"))
		return
	}
	settings.Migrate(h.defaultWaitMinutes)
	response.OK(w, settings)
}

// PutSettingsRequest represents the settings update body.
type PutSettingsRequest struct {
	ChatEnabled      bool     `json:"chat_enabled"`
	QueueEnabled     bool     `json:"queue_enabled"`
	WaitTimeMinutes  int      `json:"wait_time_minutes"`
	ContactEmail     string   `json:"contact_email"`
	BypassIdentities []string `json:"bypass_identities"`
}

// PutSettings handles PUT /api/v1/creators/{creator_id}/settings
func (h *SettingsHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	creatorID, apiErr := requireCreator(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req PutSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.WaitTimeMinutes <= 0 {
		req.WaitTimeMinutes = h.defaultWaitMinutes
	}
	if req.WaitTimeMinutes > 120 {
		response.Error(w, apierror.BadRequest("wait_time_minutes cannot exceed 120"))
		return
	}

	settings := &model.CreatorSettings{
		Version:          model.SettingsVersion,
		CreatorID:        creatorID,
		ChatEnabled:      req.ChatEnabled,
		QueueEnabled:     req.QueueEnabled,
		WaitTimeMinutes:  req.WaitTimeMinutes,
		ContactEmail:     req.ContactEmail,
		BypassIdentities: req.BypassIdentities,
		UpdatedAt:        time.Now(),
	}
	if err := h.settings.Put(r.Context(), settings); err != nil {
		response.Error(w, apierror.InternalError("failed to save settings"))
		return
	}
	response.OK(w, settings)
}

// ListBlocks handles GET /api/v1/creators/{creator_id}/blocks
func (h *SettingsHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	creatorID, apiErr := requireCreator(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	blocks, err := h.blocks.ListActive(r.Context(), creatorID, time.Now())
	if err != nil {
		response.Error(w, apierror.InternalError("failed to list blocks"))
		return
	}
	if blocks == nil {
		blocks = []model.Block{}
	}
	response.OK(w, blocks)
}

// AddBlockRequest represents the body for blocking a visitor.
type AddBlockRequest struct {
	BlockedID   string `json:"blocked_id"`
	Reason      string `json:"reason"`
	DurationMin int    `json:"duration_minutes"`
}

// AddBlock handles POST /api/v1/creators/{creator_id}/blocks. A zero
// duration makes the block permanent.
func (h *SettingsHandler) AddBlock(w http.ResponseWriter, r *http.Request) {
	creatorID, apiErr := requireCreator(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req AddBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.BlockedID == "" {
		response.Error(w, apierror.BadRequest("blocked_id is required"))
		return
	}
	if req.BlockedID == creatorID {
		response.Error(w, apierror.BadRequest("cannot block yourself"))
		return
	}

	block := &model.Block{
		ID:        uid.New(),
		CreatorID: creatorID,
		BlockedID: req.BlockedID,
		Reason:    req.Reason,
		CreatedAt: time.Now(),
	}
	if req.DurationMin > 0 {
		expires := block.CreatedAt.Add(time.Duration(req.DurationMin) * time.Minute)
		block.ExpiresAt = &expires
	}

	if err := h.blocks.Insert(r.Context(), block); err != nil {
		response.Error(w, apierror.InternalError("failed to add block"))
		return
	}
	response.Created(w, block)
}

// DeleteBlock handles DELETE /api/v1/creators/{creator_id}/blocks/{block_id}
func (h *SettingsHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	creatorID, apiErr := requireCreator(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	if err := h.blocks.Delete(r.Context(), creatorID, chi.URLParam(r, "block_id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(w, apierror.NotFound("block not found"))
			return
		}
		response.Error(w, apierror.InternalError("failed to delete block"))
		return
	}
	response.NoContent(w)
}
