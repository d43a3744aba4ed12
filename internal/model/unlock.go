package model

import "time"

// UnlockDuration is the fixed lifetime of a purchased unlock.
const UnlockDuration = 7 * 24 * time.Hour

// SellerShareNumerator over 100 is the content owner's cut of each
// purchase, rounded down.
const SellerShareNumerator = 70

// Unlock is a time-bounded grant of access to one media item for one
// account. Expiration is passive: reads filter on ExpiresAt, nothing
// deletes the row.
type Unlock struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	MediaID      string    `json:"media_id"`
	UnlockType   string    `json:"unlock_type"`
	CreditsSpent int64     `json:"credits_spent"`
	UnlockedAt   time.Time `json:"unlocked_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Active reports whether the unlock still grants access.
func (u *Unlock) Active(now time.Time) bool {
	return u.ExpiresAt.After(now)
}

// SellerShare returns the owner's cut for a given price.
func SellerShare(price int64) int64 {
	return price * SellerShareNumerator / 100
}

// Media is a showcase item that can be gated behind a credit price.
type Media struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	CreditPrice int64     `json:"credit_price"`
	Premium     bool      `json:"premium"`
	CreatedAt   time.Time `json:"created_at"`
}
