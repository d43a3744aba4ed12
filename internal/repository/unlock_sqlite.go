package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"creatorhub-api/internal/model"
)

// SQLiteUnlockRepository implements UnlockRepository on the shared SQLite
// store. Reads filter on expires_at; nothing here deletes expired rows.
type SQLiteUnlockRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteUnlockRepository creates a SQLite unlock repository.
func NewSQLiteUnlockRepository(db *sql.DB) *SQLiteUnlockRepository {
	return &SQLiteUnlockRepository{db: db}
}

// Insert records a new unlock.
func (r *SQLiteUnlockRepository) Insert(ctx context.Context, u *model.Unlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO user_unlocks (id, user_id, media_id, unlock_type, credits_spent, unlocked_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.UserID, u.MediaID, u.UnlockType, u.CreditsSpent, u.UnlockedAt, u.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert unlock: %w", err)
	}
	return nil
}

// Active returns the live unlock for a user/media pair, or nil.
func (r *SQLiteUnlockRepository) Active(ctx context.Context, userID, mediaID string, now time.Time) (*model.Unlock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, user_id, media_id, unlock_type, credits_spent, unlocked_at, expires_at
		FROM user_unlocks
		WHERE user_id = ? AND media_id = ? AND expires_at > ?
		ORDER BY expires_at DESC LIMIT 1`

	var u model.Unlock
	err := r.db.QueryRowContext(ctx, query, userID, mediaID, now).Scan(
		&u.ID, &u.UserID, &u.MediaID, &u.UnlockType, &u.CreditsSpent, &u.UnlockedAt, &u.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unlock: %w", err)
	}
	return &u, nil
}

// ListActive returns all live unlocks for a user.
func (r *SQLiteUnlockRepository) ListActive(ctx context.Context, userID string, now time.Time) ([]model.Unlock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, user_id, media_id, unlock_type, credits_spent, unlocked_at, expires_at
		FROM user_unlocks
		WHERE user_id = ? AND expires_at > ?
		ORDER BY unlocked_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocks: %w", err)
	}
	defer rows.Close()

	var unlocks []model.Unlock
	for rows.Next() {
		var u model.Unlock
		if err := rows.Scan(&u.ID, &u.UserID, &u.MediaID, &u.UnlockType, &u.CreditsSpent, &u.UnlockedAt, &u.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan unlock: %w", err)
		}
		unlocks = append(unlocks, u)
	}
	return unlocks, rows.Err()
}

var _ UnlockRepository = (*SQLiteUnlockRepository)(nil)
