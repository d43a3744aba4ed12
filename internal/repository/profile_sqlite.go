package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"creatorhub-api/internal/model"
)

// SQLiteProfileRepository implements ProfileRepository on the shared
// SQLite store. Thread-safe; the mutex serializes writer transactions.
type SQLiteProfileRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteProfileRepository creates a SQLite profile repository.
func NewSQLiteProfileRepository(db *sql.DB) *SQLiteProfileRepository {
	return &SQLiteProfileRepository{db: db}
}

// Create inserts a new account profile.
func (r *SQLiteProfileRepository) Create(ctx context.Context, p *model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO profiles (id, email, username, password_hash, credits, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Email, p.Username, p.PasswordHash, p.Credits, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

func (r *SQLiteProfileRepository) scanProfile(row *sql.Row) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Email, &p.Username, &p.PasswordHash, &p.Credits, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	return &p, nil
}

// GetByID retrieves a profile by account id.
func (r *SQLiteProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT id, email, username, password_hash, credits, created_at, updated_at FROM profiles WHERE id = ?`
	return r.scanProfile(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a profile by email.
func (r *SQLiteProfileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT id, email, username, password_hash, credits, created_at, updated_at FROM profiles WHERE email = ?`
	return r.scanProfile(r.db.QueryRowContext(ctx, query, email))
}

// Credits reads the authoritative stored balance.
func (r *SQLiteProfileRepository) Credits(ctx context.Context, id string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var credits int64
	err := r.db.QueryRowContext(ctx, `SELECT credits FROM profiles WHERE id = ?`, id).Scan(&credits)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read credits: %w", err)
	}
	return credits, nil
}

// AddCredits atomically increments the balance and returns the new value.
func (r *SQLiteProfileRepository) AddCredits(ctx context.Context, id string, amount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE profiles SET credits = credits + ?, updated_at = ? WHERE id = ?`,
		amount, time.Now().UTC(), id)
	if err != nil {
		return 0, fmt.Errorf("failed to add credits: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}

	var credits int64
	if err := tx.QueryRowContext(ctx, `SELECT credits FROM profiles WHERE id = ?`, id).Scan(&credits); err != nil {
		return 0, fmt.Errorf("failed to read credits: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return credits, nil
}

// SubtractCredits atomically decrements the balance. The WHERE guard keeps
// the balance non-negative even under concurrent writers.
func (r *SQLiteProfileRepository) SubtractCredits(ctx context.Context, id string, amount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE profiles SET credits = credits - ?, updated_at = ? WHERE id = ? AND credits >= ?`,
		amount, time.Now().UTC(), id, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to subtract credits: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM profiles WHERE id = ?`, id).Scan(&exists); err != nil {
			return 0, fmt.Errorf("failed to check profile: %w", err)
		}
		if exists == 0 {
			return 0, ErrNotFound
		}
		return 0, ErrInsufficientCredits
	}

	var credits int64
	if err := tx.QueryRowContext(ctx, `SELECT credits FROM profiles WHERE id = ?`, id).Scan(&credits); err != nil {
		return 0, fmt.Errorf("failed to read credits: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return credits, nil
}

// Close is a no-op; the shared handle is closed by the owner.
func (r *SQLiteProfileRepository) Close() error {
	return nil
}

var _ ProfileRepository = (*SQLiteProfileRepository)(nil)
