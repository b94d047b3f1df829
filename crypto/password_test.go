package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	salt := []byte("0123456789abcdef")
	encoded := HashPassword("hunter2hunter2", salt)

	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=3,p=4$"))
	assert.Len(t, strings.Split(encoded, "$"), 6)

	// Deterministic for the same salt
	assert.Equal(t, encoded, HashPassword("hunter2hunter2", salt))
	assert.NotEqual(t, encoded, HashPassword("different-password", salt))
}

func TestNewPasswordHash(t *testing.T) {
	first, err := NewPasswordHash("operator-password")
	require.NoError(t, err)
	second, err := NewPasswordHash("operator-password")
	require.NoError(t, err)

	// Random salt means distinct encodings, both verifiable
	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword("operator-password", first))
	assert.True(t, VerifyPassword("operator-password", second))
}

func TestVerifyPassword(t *testing.T) {
	encoded, err := NewPasswordHash("correct horse battery staple")
	require.NoError(t, err)

	t.Run("accepts matching password", func(t *testing.T) {
		assert.True(t, VerifyPassword("correct horse battery staple", encoded))
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		assert.False(t, VerifyPassword("incorrect horse", encoded))
	})

	t.Run("rejects malformed hash", func(t *testing.T) {
		assert.False(t, VerifyPassword("anything", "not-a-hash"))
		assert.False(t, VerifyPassword("anything", ""))
	})
}
