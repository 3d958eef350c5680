package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linkfolio/linkfolio/pkg/models"
)

const issuer = "linkfolio"

// Tokens signs and verifies bearer tokens with a shared HMAC key.
type Tokens struct {
	key []byte
	ttl time.Duration
}

// Claims are the verified contents of a bearer token.
type Claims struct {
	UserID    models.UserID
	TokenID   models.AccessTokenID
	ExpiresAt time.Time
}

// NewTokens returns a signer. The key must be at least 32 bytes.
func NewTokens(key []byte, ttl time.Duration) (*Tokens, error) {
	if len(key) < 32 {
		return nil, errors.New("token signing key must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Tokens{key: key, ttl: ttl}, nil
}

func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

// Issue signs a token for userID backed by the access token row tokenID.
func (t *Tokens) Issue(userID models.UserID, tokenID models.AccessTokenID, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID.String(),
		ID:        tokenID.String(),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature, issuer and expiry of raw.
func (t *Tokens) Parse(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, errors.New("token is required")
	}

	var parsed jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(token *jwt.Token) (any, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, err
	}

	userID, err := models.ParseUserID(parsed.Subject)
	if err != nil {
		return Claims{}, fmt.Errorf("token subject: %w", err)
	}
	tokenID, err := models.ParseAccessTokenID(parsed.ID)
	if err != nil {
		return Claims{}, fmt.Errorf("token id: %w", err)
	}
	return Claims{UserID: userID, TokenID: tokenID, ExpiresAt: parsed.ExpiresAt.Time}, nil
}
