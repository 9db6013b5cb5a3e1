package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	cipher, err := NewCipher("a-passphrase")
	require.NoError(t, err)

	encrypted, err := cipher.Encrypt("EAAGpage-token-value")
	require.NoError(t, err)
	assert.NotEqual(t, "EAAGpage-token-value", encrypted)

	decrypted, err := cipher.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "EAAGpage-token-value", decrypted)
}

func TestCipherNonceUniqueness(t *testing.T) {
	cipher, err := NewCipher("a-passphrase")
	require.NoError(t, err)

	first, err := cipher.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := cipher.Encrypt("same plaintext")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCipherRejectsWrongKey(t *testing.T) {
	cipher, err := NewCipher("key-one")
	require.NoError(t, err)
	other, err := NewCipher("key-two")
	require.NoError(t, err)

	encrypted, err := cipher.Encrypt("secret")
	require.NoError(t, err)

	_, err = other.Decrypt(encrypted)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestCipherRejectsMalformedInput(t *testing.T) {
	cipher, err := NewCipher("key")
	require.NoError(t, err)

	_, err = cipher.Decrypt("not base64 !!!")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = cipher.Decrypt("c2hvcnQ=")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestNewCipherRequiresKey(t *testing.T) {
	_, err := NewCipher("")
	assert.Error(t, err)
}
