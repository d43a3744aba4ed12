package model

import "time"

// IdentityKind discriminates authenticated accounts from anonymous guests.
type IdentityKind string

const (
	IdentityAccount IdentityKind = "account"
	IdentityGuest   IdentityKind = "guest"
)

// Identity is the current visitor: exactly one is active per request.
type Identity struct {
	Kind IdentityKind `json:"kind"`
	ID   string       `json:"id"`
}

// AccountIdentity builds an account identity.
func AccountIdentity(id string) Identity {
	return Identity{Kind: IdentityAccount, ID: id}
}

// GuestIdentity builds a guest identity.
func GuestIdentity(sessionID string) Identity {
	return Identity{Kind: IdentityGuest, ID: sessionID}
}

// IsAccount reports whether the identity is an authenticated account.
func (i Identity) IsAccount() bool {
	return i.Kind == IdentityAccount
}

// Key returns a stable map key for identity-scoped caches.
func (i Identity) Key() string {
	return string(i.Kind) + ":" + i.ID
}

// Profile represents an account row in the profile store.
type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Credits      int64     `json:"credits"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GuestSession is the anonymous visitor blob kept in Redis with a TTL.
// All guest-scoped collections live inside it so that deleting the session
// is the isolation sweep.
type GuestSession struct {
	SessionID     string         `json:"session_id"`
	Credits       int64          `json:"credits"`
	Name          string         `json:"name,omitempty"`
	Avatar        string         `json:"avatar,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
	Wishlist      []WishlistItem `json:"wishlist,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	ExpiresAt     time.Time      `json:"expires_at"`
}

// Expired reports whether the session TTL has passed.
func (g *GuestSession) Expired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}

// TokenData contains the data stored with an account session token.
type TokenData struct {
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
