// Package auth handles passwords, bearer tokens and the authenticated user in a request
// context.
//
// A bearer token is an HS256 JWT whose subject is the user ID and whose jti is the ID of an
// [models.AccessToken] row. The row makes tokens revocable: a token authenticates only while
// its row exists, is unrevoked and unexpired.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/linkfolio/linkfolio/pkg/store"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Service registers users and issues, checks and revokes their tokens.
type Service struct {
	users  store.UserStore
	tokens *Tokens
	now    func() time.Time
}

func NewService(users store.UserStore, tokens *Tokens) *Service {
	return &Service{users: users, tokens: tokens, now: time.Now}
}

// Session is what register and login hand back to the client.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Register creates a user and signs them in.
func (s *Service) Register(ctx context.Context, email, name, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	var c apperr.Check
	c.Require("email", strings.Contains(email, "@"), "must be a valid email address")
	c.Require("name", name != "", "is required")
	c.Require("password", len(password) >= MinPasswordLength, fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	if err := c.Err(); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &apperr.Error{
			Code:    apperr.CodeValidation,
			Message: "email already registered",
			Fields:  map[string]string{"email": "is already registered"},
		}
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Email: email, Name: name, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return s.startSession(ctx, user, "register")
}

// Login checks the credentials and issues a new token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !CheckPassword(user.PasswordHash, password) {
		return nil, apperr.New(apperr.CodeUnauthenticated, "invalid email or password")
	}
	return s.startSession(ctx, user, "login")
}

func (s *Service) startSession(ctx context.Context, user *models.User, name string) (*Session, error) {
	now := s.now()
	token := &models.AccessToken{
		UserID:    user.ID,
		Name:      name,
		ExpiresAt: now.Add(s.tokens.TTL()),
	}
	if err := s.users.CreateAccessToken(ctx, token); err != nil {
		return nil, err
	}
	signed, err := s.tokens.Issue(user.ID, token.ID, now, token.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &Session{Token: signed, ExpiresAt: token.ExpiresAt, User: user}, nil
}

// Authenticate resolves a bearer token into its user and token row.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*models.User, *models.AccessToken, error) {
	claims, err := s.tokens.Parse(bearer)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.CodeUnauthenticated, "invalid token", err)
	}

	now := s.now()
	token, err := s.users.GetAccessToken(ctx, claims.TokenID)
	if err != nil {
		return nil, nil, err
	}
	if token == nil || token.UserID != claims.UserID || !token.Active(now) {
		return nil, nil, apperr.New(apperr.CodeUnauthenticated, "token revoked or expired")
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, apperr.New(apperr.CodeUnauthenticated, "user no longer exists")
	}

	if err := s.users.TouchAccessToken(ctx, token.ID, now); err != nil && !errors.Is(err, apperr.ErrReadOnly) {
		return nil, nil, err
	}
	return user, token, nil
}

// Logout revokes the token row.
func (s *Service) Logout(ctx context.Context, tokenID models.AccessTokenID) error {
	return s.users.RevokeAccessToken(ctx, tokenID, s.now())
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
