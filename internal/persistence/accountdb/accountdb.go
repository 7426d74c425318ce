package accountdb

import (
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"fmt"

	_ "modernc.org/sqlite"

	"distworld.dev/internal/config"
)

// DB is the account/credential store the login manager authenticates
// against. Passwords are kept as sha-256 hex digests.
type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open account db: %w", err)
	}
	d := &DB{db: db}
	if err := d.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) ensureSchema() error {
	_, err := d.db.Exec(`
CREATE TABLE IF NOT EXISTS accounts (
  username      TEXT PRIMARY KEY,
  password_hash TEXT NOT NULL,
  created_at    INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);`)
	if err != nil {
		return fmt.Errorf("account schema: %w", err)
	}
	return nil
}

func hashPassword(pw string) string {
	sum := sha256.Sum256([]byte(pw))
	return hex.EncodeToString(sum[:])
}

// Seed upserts the configured accounts (e.g. guest/guest) at startup.
func (d *DB) Seed(accounts []config.Account) error {
	for _, a := range accounts {
		_, err := d.db.Exec(`
INSERT INTO accounts (username, password_hash) VALUES (?, ?)
ON CONFLICT(username) DO UPDATE SET password_hash=excluded.password_hash`,
			a.Username, hashPassword(a.Password))
		if err != nil {
			return fmt.Errorf("seed account %q: %w", a.Username, err)
		}
	}
	return nil
}

// Authenticate reports whether (username, password) matches a stored
// account. An unknown username is simply a false result, not an error.
func (d *DB) Authenticate(username, password string) (bool, error) {
	var stored string
	err := d.db.QueryRow(`SELECT password_hash FROM accounts WHERE username = ?`, username).Scan(&stored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup account %q: %w", username, err)
	}
	got := hashPassword(password)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(got)) == 1, nil
}
