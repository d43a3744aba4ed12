package repository

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// OpenSQLite opens the shared SQLite store with WAL mode and creates the
// schema. All SQLite-backed repositories share the returned handle.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return db, nil
}

func createTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		credits INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS media (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		credit_price INTEGER NOT NULL DEFAULT 0,
		premium INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_media_owner ON media(owner_id);

	CREATE TABLE IF NOT EXISTS user_unlocks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		media_id TEXT NOT NULL,
		unlock_type TEXT NOT NULL,
		credits_spent INTEGER NOT NULL,
		unlocked_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_unlocks_user_media ON user_unlocks(user_id, media_id);

	CREATE TABLE IF NOT EXISTS wishlist_items (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		price INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_wishlist_owner ON wishlist_items(owner_id);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		credits_amount INTEGER,
		read INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_owner ON notifications(owner_id, created_at);

	CREATE TABLE IF NOT EXISTS sales_history (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		buyer_id TEXT NOT NULL,
		media_id TEXT NOT NULL,
		price INTEGER NOT NULL,
		credits_earned INTEGER NOT NULL,
		sold_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sales_seller ON sales_history(seller_id, sold_at);

	CREATE TABLE IF NOT EXISTS blocked_users (
		id TEXT PRIMARY KEY,
		creator_id TEXT NOT NULL,
		blocked_id TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		expires_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_blocks_creator ON blocked_users(creator_id);

	CREATE TABLE IF NOT EXISTS creator_settings (
		creator_id TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		chat_enabled INTEGER NOT NULL DEFAULT 1,
		queue_enabled INTEGER NOT NULL DEFAULT 0,
		wait_time_minutes INTEGER NOT NULL DEFAULT 5,
		contact_email TEXT NOT NULL DEFAULT '',
		bypass_identities TEXT NOT NULL DEFAULT '[]',
		updated_at DATETIME NOT NULL
	);
	`
	_, err := db.Exec(query)
	return err
}
