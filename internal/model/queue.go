package model

import "time"

// PresenceEntry is ephemeral room membership. It lives only in the live
// presence store and disappears when the heartbeat stops.
type PresenceEntry struct {
	IdentityID string    `json:"identity_id"`
	Name       string    `json:"name"`
	Avatar     string    `json:"avatar,omitempty"`
	OnlineAt   time.Time `json:"online_at"`
}

// QueueEntry is a waiting visitor in a single-occupancy room, ordered by
// JoinedAt ascending.
type QueueEntry struct {
	IdentityID string    `json:"identity_id"`
	Name       string    `json:"name"`
	JoinedAt   time.Time `json:"joined_at"`
	Bypass     bool      `json:"bypass"`
}

// Occupancy marks the current occupant of a room. ExpiresAt is an absolute
// wall-clock timestamp; checks recompute from the clock rather than
// counting down, so suspended clients self-correct.
type Occupancy struct {
	IdentityID string    `json:"identity_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the occupancy slot has lapsed.
func (o *Occupancy) Expired(now time.Time) bool {
	return !o.ExpiresAt.After(now)
}
