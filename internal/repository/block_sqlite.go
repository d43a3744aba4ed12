package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"creatorhub-api/internal/model"
)

// SQLiteBlockRepository implements BlockRepository on the shared SQLite
// store. Expired rows are removed by the cleanup scheduler.
type SQLiteBlockRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteBlockRepository creates a SQLite block list repository.
func NewSQLiteBlockRepository(db *sql.DB) *SQLiteBlockRepository {
	return &SQLiteBlockRepository{db: db}
}

// Insert records a block.
func (r *SQLiteBlockRepository) Insert(ctx context.Context, b *model.Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO blocked_users (id, creator_id, blocked_id, reason, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.CreatorID, b.BlockedID, b.Reason, b.CreatedAt, b.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert block: %w", err)
	}
	return nil
}

// Delete removes a block owned by the creator.
func (r *SQLiteBlockRepository) Delete(ctx context.Context, creatorID, blockID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM blocked_users WHERE id = ? AND creator_id = ?`, blockID, creatorID)
	if err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActive returns blocks still in force at now.
func (r *SQLiteBlockRepository) ListActive(ctx context.Context, creatorID string, now time.Time) ([]model.Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, creator_id, blocked_id, reason, created_at, expires_at
		FROM blocked_users
		WHERE creator_id = ? AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, creatorID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	defer rows.Close()

	var blocks []model.Block
	for rows.Next() {
		var b model.Block
		if err := rows.Scan(&b.ID, &b.CreatorID, &b.BlockedID, &b.Reason, &b.CreatedAt, &b.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// DeleteExpired removes lapsed blocks and returns the count.
func (r *SQLiteBlockRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM blocked_users WHERE expires_at IS NOT NULL AND expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired blocks: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Printf("[SQLiteBlockRepository] Removed %d expired blocks", deleted)
	}
	return deleted, nil
}

var _ BlockRepository = (*SQLiteBlockRepository)(nil)
