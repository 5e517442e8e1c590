package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferx-io/inferx-console/internal/session"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), DeriveKey("test-passphrase"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadWithoutSession(t *testing.T) {
	store := newTestStore(t)
	rec, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	rec := &session.Record{
		AccessToken:  "acc-token",
		RefreshToken: "ref-token",
		UserEmail:    "dev@example.com",
		UserName:     "Dev",
	}
	require.NoError(t, store.Save(rec))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, rec, loaded)
}

func TestSaveOverwrites(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(&session.Record{AccessToken: "a1", RefreshToken: "r1", UserEmail: "dev@example.com"}))
	require.NoError(t, store.Save(&session.Record{AccessToken: "a2", RefreshToken: "r2", UserEmail: "dev@example.com"}))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "a2", loaded.AccessToken)
	assert.Equal(t, "r2", loaded.RefreshToken)
}

func TestClearIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(&session.Record{AccessToken: "a", RefreshToken: "r"}))

	require.NoError(t, store.Clear())
	rec, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, rec)

	// Clearing an already-empty store is fine.
	require.NoError(t, store.Clear())
}

func TestTokensEncryptedAtRest(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sessions.db")

	store, err := NewSQLiteStore(dbPath, DeriveKey("right-key"))
	require.NoError(t, err)
	require.NoError(t, store.Save(&session.Record{AccessToken: "secret-token", RefreshToken: "r"}))
	require.NoError(t, store.Close())

	// Opening with a different key must fail to decrypt, not hand back junk.
	other, err := NewSQLiteStore(dbPath, DeriveKey("wrong-key"))
	require.NoError(t, err)
	defer other.Close()
	_, err = other.Load()
	assert.Error(t, err)
}
