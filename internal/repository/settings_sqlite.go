package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"creatorhub-api/internal/model"
)

// SQLiteSettingsRepository implements SettingsRepository on the shared
// SQLite store. Every field of the settings record has a named column;
// only the bypass list is serialized, as a JSON array of identity ids.
type SQLiteSettingsRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteSettingsRepository creates a SQLite settings repository.
func NewSQLiteSettingsRepository(db *sql.DB) *SQLiteSettingsRepository {
	return &SQLiteSettingsRepository{db: db}
}

// Get returns the creator's settings, or ErrNotFound.
func (r *SQLiteSettingsRepository) Get(ctx context.Context, creatorID string) (*model.CreatorSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT creator_id, version, chat_enabled, queue_enabled, wait_time_minutes, contact_email, bypass_identities, updated_at
		FROM creator_settings WHERE creator_id = ?`

	var s model.CreatorSettings
	var bypassJSON string
	err := r.db.QueryRowContext(ctx, query, creatorID).Scan(
		&s.CreatorID, &s.Version, &s.ChatEnabled, &s.QueueEnabled,
		&s.WaitTimeMinutes, &s.ContactEmail, &bypassJSON, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	if bypassJSON != "" {
		if err := json.Unmarshal([]byte(bypassJSON), &s.BypassIdentities); err != nil {
			return nil, fmt.Errorf("failed to parse bypass list: %w", err)
		}
	}
	return &s, nil
}

// Put upserts the settings record.
func (r *SQLiteSettingsRepository) Put(ctx context.Context, s *model.CreatorSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bypassJSON, err := json.Marshal(s.BypassIdentities)
	if err != nil {
		return fmt.Errorf("failed to serialize bypass list: %w", err)
	}

	query := `
		INSERT INTO creator_settings (creator_id, version, chat_enabled, queue_enabled, wait_time_minutes, contact_email, bypass_identities, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(creator_id) DO UPDATE SET
			version = excluded.version,
			chat_enabled = excluded.chat_enabled,
			queue_enabled = excluded.queue_enabled,
			wait_time_minutes = excluded.wait_time_minutes,
			contact_email = excluded.contact_email,
			bypass_identities = excluded.bypass_identities,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		s.CreatorID, s.Version, s.ChatEnabled, s.QueueEnabled,
		s.WaitTimeMinutes, s.ContactEmail, string(bypassJSON), s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}
	return nil
}

var _ SettingsRepository = (*SQLiteSettingsRepository)(nil)
