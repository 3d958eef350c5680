package gormstore

import (
	"context"
	"strings"
	"time"

	"github.com/linkfolio/linkfolio/pkg/models"
)

// User operations
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *Store) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	return get[models.User](ctx, s.db, "id = ?", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return get[models.User](ctx, s.db, "email = ?", normalizeEmail(email))
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	return translate(s.db.WithContext(ctx).Save(user).Error)
}

// Access token operations
func (s *Store) CreateAccessToken(ctx context.Context, token *models.AccessToken) error {
	return s.db.WithContext(ctx).Create(token).Error
}

func (s *Store) GetAccessToken(ctx context.Context, id models.AccessTokenID) (*models.AccessToken, error) {
	return get[models.AccessToken](ctx, s.db, "id = ?", id)
}

func (s *Store) TouchAccessToken(ctx context.Context, id models.AccessTokenID, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.AccessToken{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

func (s *Store) RevokeAccessToken(ctx context.Context, id models.AccessTokenID, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.AccessToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at).Error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
