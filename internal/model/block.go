package model

import "time"

// Block is a per-creator blocked visitor entry. A nil ExpiresAt means the
// block is permanent; expired rows are swept by the cleanup scheduler.
type Block struct {
	ID        string     `json:"id"`
	CreatorID string     `json:"creator_id"`
	BlockedID string     `json:"blocked_id"`
	Reason    string     `json:"reason,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Active reports whether the block is still in force.
func (b *Block) Active(now time.Time) bool {
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}
