package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Tokens signs and verifies HS256 bearer tokens whose subject is the user id.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// Mint issues a token for userID valid for ttl.
func (t *Tokens) Mint(userID string, ttl time.Duration) (string, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return "", fmt.Errorf("mint token: user id: %w", err)
	}
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and lifetime of token and returns its user id.
func (t *Tokens) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	keyFunc := func(*jwt.Token) (any, error) { return t.secret, nil }
	_, err := jwt.ParseWithClaims(token, &claims, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return claims.Subject, nil
}
