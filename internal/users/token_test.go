package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintResetToken(t *testing.T) {
	token, digest, err := MintResetToken()
	require.NoError(t, err)

	assert.Len(t, token, 64, "token should be 32 random bytes hex-encoded")
	assert.Len(t, digest, 64, "digest should be sha256 hex")
	assert.NotEqual(t, token, digest, "digest must not equal the raw token")
	assert.Equal(t, DigestResetToken(token), digest)
}

func TestMintResetTokenIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, _, err := MintResetToken()
		require.NoError(t, err)
		require.False(t, seen[token], "duplicate token minted")
		seen[token] = true
	}
}

func TestDigestResetTokenIsDeterministic(t *testing.T) {
	assert.Equal(t, DigestResetToken("abc"), DigestResetToken("abc"))
	assert.NotEqual(t, DigestResetToken("abc"), DigestResetToken("abd"))
}
