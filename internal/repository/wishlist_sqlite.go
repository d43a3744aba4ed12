package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"creatorhub-api/internal/model"
)

// SQLiteWishlistRepository implements WishlistRepository on the shared
// SQLite store.
type SQLiteWishlistRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteWishlistRepository creates a SQLite wishlist repository.
func NewSQLiteWishlistRepository(db *sql.DB) *SQLiteWishlistRepository {
	return &SQLiteWishlistRepository{db: db}
}

// Insert records a single wishlist item.
func (r *SQLiteWishlistRepository) Insert(ctx context.Context, item *model.WishlistItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO wishlist_items (id, owner_id, title, url, image_url, price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.OwnerID, item.Title, item.URL, item.ImageURL, item.Price, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert wishlist item: %w", err)
	}
	return nil
}

// BatchInsert inserts items in one transaction; all or nothing. Used by
// the guest merge so a partial batch never leaves orphans.
func (r *SQLiteWishlistRepository) BatchInsert(ctx context.Context, items []model.WishlistItem) error {
	if len(items) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO wishlist_items (id, owner_id, title, url, image_url, price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		_, err := stmt.ExecContext(ctx,
			item.ID, item.OwnerID, item.Title, item.URL, item.ImageURL, item.Price, item.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to batch insert item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListByOwner lists wishlist items for an account.
func (r *SQLiteWishlistRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.WishlistItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT id, owner_id, title, url, image_url, price, created_at FROM wishlist_items WHERE owner_id = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	defer rows.Close()

	var items []model.WishlistItem
	for rows.Next() {
		var item model.WishlistItem
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Title, &item.URL, &item.ImageURL, &item.Price, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Delete removes a single wishlist item owned by the account.
func (r *SQLiteWishlistRepository) Delete(ctx context.Context, ownerID, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM wishlist_items WHERE id = ? AND owner_id = ?`, itemID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete wishlist item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ WishlistRepository = (*SQLiteWishlistRepository)(nil)
