package users

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ResetTokenTTL is how long a password-reset token stays usable.
const ResetTokenTTL = time.Hour

// MintResetToken returns a fresh random token and the digest stored at rest.
func MintResetToken() (token, digest string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("reading random bytes: %w", err)
	}
	token = hex.EncodeToString(buf)
	return token, DigestResetToken(token), nil
}

// DigestResetToken hashes a raw token the same way the store keeps it, so a
// stolen database row cannot be replayed as a token.
func DigestResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
