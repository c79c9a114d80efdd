// Package auth issues and validates the signed identity assertions attached
// to authenticated requests.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleUser  = "CUSTOMER"
	RoleAdmin = "ADMIN"
)

// SessionTTL is how long an issued identity assertion stays valid.
const SessionTTL = 7 * 24 * time.Hour

type ctxKey int

// ClaimsKey indexes the validated claims inside a request context.
const ClaimsKey ctxKey = 1

// Claims carries the acting user's identity and role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Keys holds the HMAC signing secret.
type Keys struct {
	secret []byte
}

func NewKeys(secret string) (*Keys, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	return &Keys{secret: []byte(secret)}, nil
}

// GenerateToken signs a session token for the given user and role.
func (k *Keys) GenerateToken(userID, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "ecom-server",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a session token, returning its claims.
func (k *Keys) ValidateToken(tokenStr string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return k.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("parsing token: %w", err)
	}
	return claims, nil
}
