package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"creatorhub-api/internal/model"
)

// MySQLProfileRepository implements ProfileRepository using MySQL. Chosen
// via STORE_DB_TYPE=mysql; the remaining collections stay on SQLite.
type MySQLProfileRepository struct {
	db *sql.DB
}

// NewMySQLProfileRepository creates a MySQL profile repository and ensures
// the schema exists.
func NewMySQLProfileRepository(db *sql.DB) (*MySQLProfileRepository, error) {
	query := `
		CREATE TABLE IF NOT EXISTS profiles (
			id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			username VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			credits BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`
	if _, err := db.Exec(query); err != nil {
		return nil, fmt.Errorf("failed to create profiles table: %w", err)
	}

	log.Printf("[MySQLProfileRepository] Initialized")
	return &MySQLProfileRepository{db: db}, nil
}

// Create inserts a new account profile.
func (r *MySQLProfileRepository) Create(ctx context.Context, p *model.Profile) error {
	query := `
		INSERT INTO profiles (id, email, username, password_hash, credits, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Email, p.Username, p.PasswordHash, p.Credits, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

func (r *MySQLProfileRepository) scanProfile(row *sql.Row) (*model.Profile, error) {
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
func (r *MySQLProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	query := `SELECT id, email, username, password_hash, credits, created_at, updated_at FROM profiles WHERE id = ?`
	return r.scanProfile(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a profile by email.
func (r *MySQLProfileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	query := `SELECT id, email, username, password_hash, credits, created_at, updated_at FROM profiles WHERE email = ?`
	return r.scanProfile(r.db.QueryRowContext(ctx, query, email))
}

// Credits reads the authoritative stored balance.
func (r *MySQLProfileRepository) Credits(ctx context.Context, id string) (int64, error) {
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
func (r *MySQLProfileRepository) AddCredits(ctx context.Context, id string, amount int64) (int64, error) {
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
	if err := tx.QueryRowContext(ctx, `SELECT credits FROM profiles WHERE id = ? FOR UPDATE`, id).Scan(&credits); err != nil {
		return 0, fmt.Errorf("failed to read credits: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return credits, nil
}

// SubtractCredits atomically decrements the balance with a non-negative
// guard.
func (r *MySQLProfileRepository) SubtractCredits(ctx context.Context, id string, amount int64) (int64, error) {
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
	if err := tx.QueryRowContext(ctx, `SELECT credits FROM profiles WHERE id = ? FOR UPDATE`, id).Scan(&credits); err != nil {
		return 0, fmt.Errorf("failed to read credits: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return credits, nil
}

// Close closes the underlying connection.
func (r *MySQLProfileRepository) Close() error {
	return r.db.Close()
}

var _ ProfileRepository = (*MySQLProfileRepository)(nil)
