package cache

import (
	"context"

	"creatorhub-api/internal/model"
)

// GuestStore manages anonymous guest session blobs. Sessions carry their
// own TTL; Get returns (nil, nil) for a missing or expired session.
type GuestStore interface {
	// Create issues a fresh guest session with the default starting balance.
	Create(ctx context.Context) (*model.GuestSession, error)

	// Get retrieves a live session, or nil if absent/expired.
	Get(ctx context.Context, sessionID string) (*model.GuestSession, error)

	// Save persists a mutated session without extending its TTL.
	Save(ctx context.Context, session *model.GuestSession) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error
}

// PresenceStore tracks ephemeral room membership. Entries are
// eventually-consistent and have no durability guarantee.
type PresenceStore interface {
	// Join publishes the entry into the room's live set.
	Join(ctx context.Context, room string, entry model.PresenceEntry) error

	// Heartbeat refreshes an entry's OnlineAt. Unknown entries are ignored;
	// the client is expected to rejoin.
	Heartbeat(ctx context.Context, room, identityID string) error

	// Leave removes the entry.
	Leave(ctx context.Context, room, identityID string) error

	// Online lists live entries, dropping stale ones.
	Online(ctx context.Context, room string) ([]model.PresenceEntry, error)
}

// QueueStore holds single-occupancy room state. Expiry of the occupant is
// decided by the caller against the wall clock; the store only keeps the
// absolute timestamps.
type QueueStore interface {
	// Occupant returns the stored occupancy, or nil when the room is open.
	Occupant(ctx context.Context, room string) (*model.Occupancy, error)

	// SetOccupant records the current occupant.
	SetOccupant(ctx context.Context, room string, occ model.Occupancy) error

	// ClearOccupant opens the room.
	ClearOccupant(ctx context.Context, room string) error

	// Enqueue appends a waiting entry. Re-enqueueing the same identity
	// keeps the original JoinedAt.
	Enqueue(ctx context.Context, room string, entry model.QueueEntry) error

	// Dequeue removes a waiting entry.
	Dequeue(ctx context.Context, room, identityID string) error

	// Waiting lists entries ordered by JoinedAt ascending.
	Waiting(ctx context.Context, room string) ([]model.QueueEntry, error)
}
