package repository

import (
	"context"
	"errors"
	"time"

	"creatorhub-api/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrInsufficientCredits is returned by guarded debits when the balance
// cannot cover the amount. Nothing is mutated in that case.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ErrDuplicate is returned on unique-constraint violations.
var ErrDuplicate = errors.New("already exists")

// ProfileRepository defines account profile and balance access.
type ProfileRepository interface {
	// Create inserts a new account profile.
	Create(ctx context.Context, p *model.Profile) error

	// GetByID retrieves a profile by account id.
	GetByID(ctx context.Context, id string) (*model.Profile, error)

	// GetByEmail retrieves a profile by email.
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)

	// Credits reads the authoritative stored balance.
	Credits(ctx context.Context, id string) (int64, error)

	// AddCredits atomically increments the balance and returns the new value.
	AddCredits(ctx context.Context, id string, amount int64) (int64, error)

	// SubtractCredits atomically decrements the balance, guarded so it can
	// never go negative. Returns ErrInsufficientCredits without mutating
	// when the balance cannot cover the amount.
	SubtractCredits(ctx context.Context, id string, amount int64) (int64, error)

	// Close closes the repository connection.
	Close() error
}

// UnlockRepository defines entitlement row access. Expiration is passive:
// reads filter on expires_at, no sweep deletes rows.
type UnlockRepository interface {
	Insert(ctx context.Context, u *model.Unlock) error

	// Active returns the live unlock for a user/media pair, or nil.
	Active(ctx context.Context, userID, mediaID string, now time.Time) (*model.Unlock, error)

	// ListActive returns all live unlocks for a user.
	ListActive(ctx context.Context, userID string, now time.Time) ([]model.Unlock, error)
}

// MediaRepository defines showcase media access.
type MediaRepository interface {
	Insert(ctx context.Context, m *model.Media) error
	GetByID(ctx context.Context, id string) (*model.Media, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Media, error)
}

// WishlistRepository defines durable wishlist access for accounts.
type WishlistRepository interface {
	Insert(ctx context.Context, item *model.WishlistItem) error

	// BatchInsert inserts items in one transaction; all or nothing.
	BatchInsert(ctx context.Context, items []model.WishlistItem) error

	ListByOwner(ctx context.Context, ownerID string) ([]model.WishlistItem, error)
	Delete(ctx context.Context, ownerID, itemID string) error
}

// NotificationRepository defines durable notification access for accounts.
type NotificationRepository interface {
	Insert(ctx context.Context, n *model.Notification) error
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, ownerID, id string) error
}

// SaleRepository defines seller history access.
type SaleRepository interface {
	Insert(ctx context.Context, s *model.Sale) error
	ListBySeller(ctx context.Context, sellerID string, limit int) ([]model.Sale, error)
}

// BlockRepository defines per-creator block list access.
type BlockRepository interface {
	Insert(ctx context.Context, b *model.Block) error
	Delete(ctx context.Context, creatorID, blockID string) error

	// ListActive returns blocks still in force at now.
	ListActive(ctx context.Context, creatorID string, now time.Time) ([]model.Block, error)

	// DeleteExpired removes lapsed blocks and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SettingsRepository defines versioned creator settings access.
type SettingsRepository interface {
	// Get returns the creator's settings, or ErrNotFound.
	Get(ctx context.Context, creatorID string) (*model.CreatorSettings, error)

	// Put upserts the settings record.
	Put(ctx context.Context, s *model.CreatorSettings) error
}
