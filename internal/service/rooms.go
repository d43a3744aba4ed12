package service

import (
	"context"
	"errors"
	"time"

	"creatorhub-api/internal/cache"
	"creatorhub-api/internal/model"
	"creatorhub-api/internal/repository"
)

// EntryResult is the answer to a room entry request.
type EntryResult struct {
	Granted   bool       `json:"granted"`
	Position  int        `json:"position,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// QueueStatus describes a room's occupancy and wait queue.
type QueueStatus struct {
	Enabled  bool               `json:"enabled"`
	Occupant *model.Occupancy   `json:"occupant,omitempty"`
	Waiting  []model.QueueEntry `json:"waiting,omitempty"`
	WaitTime int                `json:"wait_time_minutes"`
}

// RoomService coordinates presence membership and the single-occupancy
// turn queue. Occupancy expiry is always recomputed from the wall clock
// against the stored absolute timestamp.
type RoomService struct {
	presence cache.PresenceStore
	queue    cache.QueueStore
	settings repository.SettingsRepository

	defaultWaitMinutes int
	now                func() time.Time
}

// NewRoomService creates the presence & queue coordinator.
func NewRoomService(
	presence cache.PresenceStore,
	queue cache.QueueStore,
	settings repository.SettingsRepository,
	defaultWaitMinutes int,
) *RoomService {
	if defaultWaitMinutes <= 0 {
		defaultWaitMinutes = 5
	}
	return &RoomService{
		presence:           presence,
		queue:              queue,
		settings:           settings,
		defaultWaitMinutes: defaultWaitMinutes,
		now:                time.Now,
	}
}

// roomSettings loads the creator's settings, applying defaults and the
// version migration.
func (s *RoomService) roomSettings(ctx context.Context, room string) (*model.CreatorSettings, error) {
	settings, err := s.settings.Get(ctx, room)
	if errors.Is(err, repository.ErrNotFound) {
		return model.DefaultCreatorSettings(room, s.defaultWaitMinutes), nil
	}
	if err != nil {
		return nil, err
	}
	settings.Migrate(s.defaultWaitMinutes)
	return settings, nil
}

// activeOccupant returns the occupant if the slot has not lapsed, clearing
// a lapsed slot as a side effect.
func (s *RoomService) activeOccupant(ctx context.Context, room string) (*model.Occupancy, error) {
	occ, err := s.queue.Occupant(ctx, room)
	if err != nil {
		return nil, err
	}
	if occ == nil {
		return nil, nil
	}
	if occ.Expired(s.now()) {
		if err := s.queue.ClearOccupant(ctx, room); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return occ, nil
}

// RequestEntry asks for the room slot. When the queue is disabled entry is
// always granted. An open room admits the first eligible requester; an
// occupied room queues the requester FIFO by JoinedAt unless they hold the
// operator-granted bypass flag, which admits them immediately.
func (s *RoomService) RequestEntry(ctx context.Context, room string, identity model.Identity, name string) (*EntryResult, error) {
	settings, err := s.roomSettings(ctx, room)
	if err != nil {
		return nil, err
	}
	if !settings.QueueEnabled {
		return &EntryResult{Granted: true}, nil
	}

	bypass := settings.HasBypass(identity.ID)
	occ, err := s.activeOccupant(ctx, room)
	if err != nil {
		return nil, err
	}

	if occ != nil && occ.IdentityID == identity.ID {
		// Already holding the slot; report the remaining window.
		expires := occ.ExpiresAt
		return &EntryResult{Granted: true, ExpiresAt: &expires}, nil
	}

	if occ == nil || bypass {
		// Open room: the first waiting identity has priority over a
		// fresh requester; bypass overrides both queue and occupancy.
		if !bypass {
			waiting, err := s.queue.Waiting(ctx, room)
			if err != nil {
				return nil, err
			}
			if len(waiting) > 0 && waiting[0].IdentityID != identity.ID {
				return s.enqueue(ctx, room, identity, name, bypass)
			}
		}
		return s.grant(ctx, room, identity, settings)
	}

	return s.enqueue(ctx, room, identity, name, bypass)
}

func (s *RoomService) grant(ctx context.Context, room string, identity model.Identity, settings *model.CreatorSettings) (*EntryResult, error) {
	if err := s.queue.Dequeue(ctx, room, identity.ID); err != nil {
		return nil, err
	}

	expires := s.now().Add(time.Duration(settings.WaitTimeMinutes) * time.Minute)
	occ := model.Occupancy{IdentityID: identity.ID, ExpiresAt: expires}
	if err := s.queue.SetOccupant(ctx, room, occ); err != nil {
		return nil, err
	}
	return &EntryResult{Granted: true, ExpiresAt: &expires}, nil
}

func (s *RoomService) enqueue(ctx context.Context, room string, identity model.Identity, name string, bypass bool) (*EntryResult, error) {
	entry := model.QueueEntry{
		IdentityID: identity.ID,
		Name:       name,
		JoinedAt:   s.now(),
		Bypass:     bypass,
	}
	if err := s.queue.Enqueue(ctx, room, entry); err != nil {
		return nil, err
	}

	position, err := s.position(ctx, room, identity.ID)
	if err != nil {
		return nil, err
	}
	return &EntryResult{Granted: false, Position: position}, nil
}

// position returns the identity's 1-based place in the wait queue.
func (s *RoomService) position(ctx context.Context, room, identityID string) (int, error) {
	waiting, err := s.queue.Waiting(ctx, room)
	if err != nil {
		return 0, err
	}
	for i, entry := range waiting {
		if entry.IdentityID == identityID {
			return i + 1, nil
		}
	}
	return 0, nil
}

// LeaveRoom releases the slot if held and removes the identity from the
// wait queue.
func (s *RoomService) LeaveRoom(ctx context.Context, room string, identity model.Identity) error {
	occ, err := s.queue.Occupant(ctx, room)
	if err != nil {
		return err
	}
	if occ != nil && occ.IdentityID == identity.ID {
		if err := s.queue.ClearOccupant(ctx, room); err != nil {
			return err
		}
	}
	return s.queue.Dequeue(ctx, room, identity.ID)
}

// Status reports the room's occupancy and wait queue.
func (s *RoomService) Status(ctx context.Context, room string) (*QueueStatus, error) {
	settings, err := s.roomSettings(ctx, room)
	if err != nil {
		return nil, err
	}

	status := &QueueStatus{
		Enabled:  settings.QueueEnabled,
		WaitTime: settings.WaitTimeMinutes,
	}
	if !settings.QueueEnabled {
		return status, nil
	}

	if status.Occupant, err = s.activeOccupant(ctx, room); err != nil {
		return nil, err
	}
	if status.Waiting, err = s.queue.Waiting(ctx, room); err != nil {
		return nil, err
	}
	return status, nil
}

// JoinPresence publishes the identity into the room's live member set.
func (s *RoomService) JoinPresence(ctx context.Context, room string, identity model.Identity, name, avatar string) error {
	return s.presence.Join(ctx, room, model.PresenceEntry{
		IdentityID: identity.ID,
		Name:       name,
		Avatar:     avatar,
		OnlineAt:   s.now(),
	})
}

// HeartbeatPresence refreshes the identity's liveness.
func (s *RoomService) HeartbeatPresence(ctx context.Context, room string, identity model.Identity) error {
	return s.presence.Heartbeat(ctx, room, identity.ID)
}

// LeavePresence removes the identity from the live member set.
func (s *RoomService) LeavePresence(ctx context.Context, room string, identity model.Identity) error {
	return s.presence.Leave(ctx, room, identity.ID)
}

// Online lists the room's live members.
func (s *RoomService) Online(ctx context.Context, room string) ([]model.PresenceEntry, error) {
	return s.presence.Online(ctx, room)
}
