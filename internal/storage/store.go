// Package storage persists the session record in a local SQLite database.
// The token pair is stored AES-GCM encrypted; identity fields are plain.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/inferx-io/inferx-console/internal/session"
)

// One session per profile; the console is single-user, so everything uses
// the default profile.
const defaultProfile = "default"

// tokenSet is the encrypted portion of a session row.
type tokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SQLiteStore implements session.Store backed by a SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	key []byte
	mu  sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the database at dbPath. The key
// encrypts and decrypts the token column; see DeriveKey.
func NewSQLiteStore(dbPath string, key []byte) (*SQLiteStore, error) {
	// WAL mode and a busy timeout so the console server and the refresh
	// scheduler can touch the store concurrently.
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Tighten permissions; only works once the file exists.
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to chmod session database")
	}

	store := &SQLiteStore{db: db, key: key}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		profile TEXT PRIMARY KEY,
		encrypted_tokens TEXT NOT NULL,
		user_email TEXT NOT NULL DEFAULT '',
		user_name TEXT NOT NULL DEFAULT '',
		last_updated DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

// Load returns the stored session record, or nil when none exists. A row
// that cannot be decrypted (wrong key) is reported as an error rather than
// silently dropped.
func (s *SQLiteStore) Load() (*session.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var encrypted, email, name string
	err := s.db.QueryRow(
		"SELECT encrypted_tokens, user_email, user_name FROM sessions WHERE profile = ?",
		defaultProfile,
	).Scan(&encrypted, &email, &name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	plaintext, err := Decrypt(encrypted, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session tokens: %w", err)
	}
	var tokens tokenSet
	if err := json.Unmarshal(plaintext, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session tokens: %w", err)
	}

	return &session.Record{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		UserEmail:    email,
		UserName:     name,
	}, nil
}

// Save upserts the session record for the default profile.
func (s *SQLiteStore) Save(rec *session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plaintext, err := json.Marshal(tokenSet{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session tokens: %w", err)
	}
	encrypted, err := Encrypt(plaintext, s.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt session tokens: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (profile, encrypted_tokens, user_email, user_name, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(profile) DO UPDATE SET
			encrypted_tokens = excluded.encrypted_tokens,
			user_email = excluded.user_email,
			user_name = excluded.user_name,
			last_updated = excluded.last_updated
	`, defaultProfile, encrypted, rec.UserEmail, rec.UserName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear removes the session row. Deleting a row that does not exist is not
// an error, so repeated calls are safe.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM sessions WHERE profile = ?", defaultProfile); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
