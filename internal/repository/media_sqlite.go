package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"creatorhub-api/internal/model"
)

// SQLiteMediaRepository implements MediaRepository on the shared SQLite
// store.
type SQLiteMediaRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteMediaRepository creates a SQLite media repository.
func NewSQLiteMediaRepository(db *sql.DB) *SQLiteMediaRepository {
	return &SQLiteMediaRepository{db: db}
}

// Insert records a new media item.
func (r *SQLiteMediaRepository) Insert(ctx context.Context, m *model.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO media (id, owner_id, title, url, credit_price, premium, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.OwnerID, m.Title, m.URL, m.CreditPrice, m.Premium, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert media: %w", err)
	}
	return nil
}

// GetByID retrieves a media item.
func (r *SQLiteMediaRepository) GetByID(ctx context.Context, id string) (*model.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT id, owner_id, title, url, credit_price, premium, created_at FROM media WHERE id = ?`

	var m model.Media
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.OwnerID, &m.Title, &m.URL, &m.CreditPrice, &m.Premium, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media: %w", err)
	}
	return &m, nil
}

// ListByOwner lists a creator's media items.
func (r *SQLiteMediaRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT id, owner_id, title, url, credit_price, premium, created_at FROM media WHERE owner_id = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()

	var items []model.Media
	for rows.Next() {
		var m model.Media
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Title, &m.URL, &m.CreditPrice, &m.Premium, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

var _ MediaRepository = (*SQLiteMediaRepository)(nil)
