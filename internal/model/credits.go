package model

import "time"

// Notification types emitted by credit mutations and gifts.
const (
	NotificationCreditsAdded      = "credits_added"
	NotificationCreditsSubtracted = "credits_subtracted"
	NotificationGift              = "gift"
	NotificationMergeCompleted    = "merge_completed"
	NotificationUnlock            = "unlock"
)

// GuestNotificationCap is the maximum number of notifications retained
// inside a guest session blob; oldest entries are dropped first.
const GuestNotificationCap = 50

// Notification is created as a side effect of credit mutations and gifts.
type Notification struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id,omitempty"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	CreditsAmount *int64    `json:"credits_amount,omitempty"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"created_at"`
}

// Sale records the seller side of a completed unlock purchase.
type Sale struct {
	ID            string    `json:"id"`
	SellerID      string    `json:"seller_id"`
	BuyerID       string    `json:"buyer_id"`
	MediaID       string    `json:"media_id"`
	Price         int64     `json:"price"`
	CreditsEarned int64     `json:"credits_earned"`
	SoldAt        time.Time `json:"sold_at"`
}
