package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"creatorhub-api/internal/model"
)

// SQLiteSaleRepository implements SaleRepository on the shared SQLite
// store.
type SQLiteSaleRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteSaleRepository creates a SQLite sales history repository.
func NewSQLiteSaleRepository(db *sql.DB) *SQLiteSaleRepository {
	return &SQLiteSaleRepository{db: db}
}

// Insert records a completed sale.
func (r *SQLiteSaleRepository) Insert(ctx context.Context, s *model.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO sales_history (id, seller_id, buyer_id, media_id, price, credits_earned, sold_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.SellerID, s.BuyerID, s.MediaID, s.Price, s.CreditsEarned, s.SoldAt)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

// ListBySeller lists the most recent sales for a creator.
func (r *SQLiteSaleRepository) ListBySeller(ctx context.Context, sellerID string, limit int) ([]model.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, seller_id, buyer_id, media_id, price, credits_earned, sold_at
		FROM sales_history
		WHERE seller_id = ?
		ORDER BY sold_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, sellerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	var sales []model.Sale
	for rows.Next() {
		var s model.Sale
		if err := rows.Scan(&s.ID, &s.SellerID, &s.BuyerID, &s.MediaID, &s.Price, &s.CreditsEarned, &s.SoldAt); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

var _ SaleRepository = (*SQLiteSaleRepository)(nil)
