package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"creatorhub-api/internal/model"
)

// SQLiteNotificationRepository implements NotificationRepository on the
// shared SQLite store. Guest notifications never reach this repository;
// they live inside the session blob.
type SQLiteNotificationRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteNotificationRepository creates a SQLite notification repository.
func NewSQLiteNotificationRepository(db *sql.DB) *SQLiteNotificationRepository {
	return &SQLiteNotificationRepository{db: db}
}

// Insert records a notification.
func (r *SQLiteNotificationRepository) Insert(ctx context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO notifications (id, owner_id, type, title, message, credits_amount, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.OwnerID, n.Type, n.Title, n.Message, n.CreditsAmount, n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListByOwner lists the most recent notifications for an account.
func (r *SQLiteNotificationRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, owner_id, type, title, message, credits_amount, read, created_at
		FROM notifications
		WHERE owner_id = ?
		ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Type, &n.Title, &n.Message, &n.CreditsAmount, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead flags a notification as read.
func (r *SQLiteNotificationRepository) MarkRead(ctx context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ NotificationRepository = (*SQLiteNotificationRepository)(nil)
