package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret123!")
	require.NoError(t, err)
	require.NotEqual(t, "secret123!", hash)

	require.True(t, VerifyPassword(hash, "secret123!"))
	require.False(t, VerifyPassword(hash, "secret123?"))
	require.False(t, VerifyPassword("", "secret123!"))
}

func TestGenerateToken(t *testing.T) {
	first, err := GenerateToken(32)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := GenerateToken(32)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, r := range code {
		require.True(t, r >= '0' && r <= '9')
	}

	// Non-positive digit counts fall back to six digits.
	fallback, err := GenerateNumericCode(0)
	require.NoError(t, err)
	require.Len(t, fallback, 6)
}
