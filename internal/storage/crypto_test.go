package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundtrip(t *testing.T) {
	key := DeriveKey("passphrase")
	plaintext := []byte(`{"access_token":"a","refresh_token":"r"}`)

	encrypted, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "access_token")

	decrypted, err := Decrypt(encrypted, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecryptWrongKey(t *testing.T) {
	encrypted, err := Encrypt([]byte("data"), DeriveKey("key-one"))
	require.NoError(t, err)

	_, err = Decrypt(encrypted, DeriveKey("key-two"))
	assert.Error(t, err)
}

func TestDecryptTampered(t *testing.T) {
	key := DeriveKey("passphrase")
	encrypted, err := Encrypt([]byte("data"), key)
	require.NoError(t, err)

	_, err = Decrypt("x"+encrypted[1:], key)
	assert.Error(t, err)

	_, err = Decrypt("%%%not base64%%%", key)
	assert.Error(t, err)
}

func TestDeriveKey(t *testing.T) {
	key := DeriveKey("passphrase")
	assert.Len(t, key, 32)
	// Deterministic: same passphrase, same key.
	assert.Equal(t, key, DeriveKey("passphrase"))
	assert.NotEqual(t, key, DeriveKey("other"))
}
