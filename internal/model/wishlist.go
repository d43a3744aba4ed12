package model

import "time"

// WishlistItem is a single wishlist entry. Guest items live inside the
// session blob; account items are durable rows.
type WishlistItem struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Price     int64     `json:"price,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
