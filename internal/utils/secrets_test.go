package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKeyIsDeterministic(t *testing.T) {
	a := DeriveKey("passphrase", "salt")
	b := DeriveKey("passphrase", "salt")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)

	assert.NotEqual(t, a, DeriveKey("other", "salt"))
	assert.NotEqual(t, a, DeriveKey("passphrase", "other-salt"))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := DeriveKey("passphrase", "salt")
	plaintext := []byte(`{"token":"secret"}`)

	sealed, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "secret")

	opened, err := Decrypt(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestDecryptRejectsTamperedData(t *testing.T) {
	key := DeriveKey("passphrase", "salt")
	sealed, err := Encrypt([]byte("payload"), key)
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = Decrypt(sealed, key)
	assert.Error(t, err)

	_, err = Decrypt([]byte("short"), key)
	assert.Error(t, err)
}
