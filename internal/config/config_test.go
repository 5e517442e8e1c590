package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("INFERX_API_URL", "https://api.inferx.example.com")
	t.Setenv("INFERX_TOKEN_KEY", "passphrase")
	t.Setenv("INFERX_LISTEN_ADDR", "")
	t.Setenv("INFERX_DB_PATH", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://api.inferx.example.com", cfg.APIBaseURL)
	assert.Equal(t, "127.0.0.1:8229", cfg.ListenAddr)
	assert.Equal(t, "inferx-console.db", cfg.DBPath)
}

func TestFromEnvMissingRequired(t *testing.T) {
	t.Setenv("INFERX_API_URL", "")
	t.Setenv("INFERX_TOKEN_KEY", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INFERX_API_URL")
	assert.Contains(t, err.Error(), "INFERX_TOKEN_KEY")
}
