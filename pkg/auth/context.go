package auth

import (
	"context"

	"github.com/linkfolio/linkfolio/pkg/models"
)

// identityContextKey is the context key for the authenticated identity.
type identityContextKey struct{}

type identity struct {
	user  *models.User
	token *models.AccessToken
}

// WithIdentity stores the authenticated user and token in ctx.
func WithIdentity(ctx context.Context, user *models.User, token *models.AccessToken) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityContextKey{}, identity{user: user, token: token})
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *models.User {
	if ctx == nil {
		return nil
	}
	id, _ := ctx.Value(identityContextKey{}).(identity)
	return id.user
}

// TokenFromContext returns the access token row the request authenticated with, or nil.
func TokenFromContext(ctx context.Context) *models.AccessToken {
	if ctx == nil {
		return nil
	}
	id, _ := ctx.Value(identityContextKey{}).(identity)
	return id.token
}
