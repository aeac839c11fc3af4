// Package store persists the storefront catalog (categories and NFTs) and the
// admin user/role model in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vanderheijden86/kanvas/pkg/model"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist (or is
	// disabled, for users).
	ErrNotFound = errors.New("not found")
	// ErrInvalidRoles is returned when a role list contains unknown roles.
	ErrInvalidRoles = errors.New("(partially) invalid roles")
)

const schema = `
CREATE TABLE IF NOT EXISTS nft_category (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	parent INTEGER
);

CREATE TABLE IF NOT EXISTS nft (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price REAL NOT NULL DEFAULT 0,
	category_id INTEGER NOT NULL REFERENCES nft_category(id),
	owner_address TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_nft_category ON nft(category_id);
CREATE INDEX IF NOT EXISTS idx_nft_owner ON nft(owner_address);

CREATE TABLE IF NOT EXISTS kanvas_user (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	user_name TEXT NOT NULL,
	address TEXT NOT NULL UNIQUE,
	disabled INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS user_role (
	id INTEGER PRIMARY KEY,
	role_label TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mtm_kanvas_user_user_role (
	kanvas_user_id INTEGER NOT NULL REFERENCES kanvas_user(id),
	user_role_id INTEGER NOT NULL REFERENCES user_role(id),
	PRIMARY KEY (kanvas_user_id, user_role_id)
) WITHOUT ROWID;
`

// Store is a handle on the SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and ensures the
// schema and the role table exist.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	for _, r := range model.AllRoles() {
		if _, err := db.Exec(`INSERT OR IGNORE INTO user_role (id, role_label) VALUES (?, ?)`, int(r), r.String()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed roles: %w", err)
		}
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
