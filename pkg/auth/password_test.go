package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("hashes and verifies", func(t *testing.T) {
		hash, err := HashPassword("correct-horse-battery")
		require.NoError(t, err)
		assert.NotEqual(t, "correct-horse-battery", hash)
		assert.NoError(t, ComparePassword(hash, "correct-horse-battery"))
		assert.Error(t, ComparePassword(hash, "wrong-password"))
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		_, err := HashPassword("")
		assert.Error(t, err)
	})

	t.Run("same password yields different hashes", func(t *testing.T) {
		h1, err := HashPassword("correct-horse-battery")
		require.NoError(t, err)
		h2, err := HashPassword("correct-horse-battery")
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2)
	})
}

func TestGenerateSecret(t *testing.T) {
	s1, err := GenerateSecret()
	require.NoError(t, err)
	s2, err := GenerateSecret()
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	// URL-safe: the secret rides inside a "tokenId.secret" string
	assert.NotContains(t, s1, ".")
	assert.NotContains(t, s1, "/")
	assert.NotContains(t, s1, "+")
}

func TestHashSecret(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)

	hash, err := HashSecret(secret)
	require.NoError(t, err)

	assert.NoError(t, CompareSecret(hash, secret))
	assert.Error(t, CompareSecret(hash, "not-the-secret"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("12345678"))
	assert.NoError(t, ValidatePassword(strings.Repeat("a", MaxPasswordLen)))
	assert.Error(t, ValidatePassword("1234567"))
	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword(strings.Repeat("a", MaxPasswordLen+1)))
}

// A password at the validation cap must also be hashable, so the cap
// cannot exceed bcrypt's 72-byte input limit.
func TestMaxPasswordLenHashes(t *testing.T) {
	longest := strings.Repeat("a", MaxPasswordLen)
	require.NoError(t, ValidatePassword(longest))

	hash, err := HashPassword(longest)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, longest))
}
