package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/linkfolio/linkfolio/pkg/store/gormstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestService(t *testing.T) *Service {
	t.Helper()

	st, err := gormstore.Open(gormstore.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "auth.db")+"?_time_format=sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	tokens, err := NewTokens(testKey, time.Hour)
	require.NoError(t, err)
	return NewService(st, tokens)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "battery staple"))
}

func TestTokens(t *testing.T) {
	tokens, err := NewTokens(testKey, time.Hour)
	require.NoError(t, err)

	userID, tokenID := models.NewUserID(), models.NewAccessTokenID()
	now := time.Now()

	t.Run("should round trip the claims", func(t *testing.T) {
		raw, err := tokens.Issue(userID, tokenID, now, now.Add(time.Hour))
		require.NoError(t, err)

		claims, err := tokens.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, tokenID, claims.TokenID)
	})

	t.Run("should reject tokens signed with another key", func(t *testing.T) {
		other, err := NewTokens([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)
		require.NoError(t, err)
		raw, err := other.Issue(userID, tokenID, now, now.Add(time.Hour))
		require.NoError(t, err)

		_, err = tokens.Parse(raw)
		assert.Error(t, err)
	})

	t.Run("should reject expired tokens", func(t *testing.T) {
		raw, err := tokens.Issue(userID, tokenID, now.Add(-2*time.Hour), now.Add(-time.Hour))
		require.NoError(t, err)

		_, err = tokens.Parse(raw)
		assert.Error(t, err)
	})

	t.Run("should reject garbage", func(t *testing.T) {
		_, err := tokens.Parse("not-a-jwt")
		assert.Error(t, err)
		_, err = tokens.Parse("")
		assert.Error(t, err)
	})

	t.Run("should refuse short keys", func(t *testing.T) {
		_, err := NewTokens([]byte("short"), time.Hour)
		assert.Error(t, err)
	})
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	session, err := svc.Register(ctx, "ada@example.com", "Ada", "analytical")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)

	user, token, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, user.ID)

	t.Run("should reject a duplicate registration", func(t *testing.T) {
		_, err := svc.Register(ctx, "ADA@example.com", "Ada", "analytical")
		require.ErrorIs(t, err, apperr.ErrValidation)
		assert.Contains(t, apperr.FieldsOf(err), "email")
	})

	t.Run("should validate registration input", func(t *testing.T) {
		_, err := svc.Register(ctx, "nope", "", "short")
		require.ErrorIs(t, err, apperr.ErrValidation)
		assert.Len(t, apperr.FieldsOf(err), 3)
	})

	t.Run("should log in with the right password only", func(t *testing.T) {
		_, err := svc.Login(ctx, "ada@example.com", "wrong password")
		require.ErrorIs(t, err, apperr.ErrUnauthenticated)

		again, err := svc.Login(ctx, "ada@example.com", "analytical")
		require.NoError(t, err)
		assert.NotEqual(t, session.Token, again.Token)
	})

	t.Run("should stop authenticating after logout", func(t *testing.T) {
		require.NoError(t, svc.Logout(ctx, token.ID))

		_, _, err := svc.Authenticate(ctx, session.Token)
		require.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken("Bearer "))
	assert.Empty(t, BearerToken(""))
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, UserFromContext(ctx))

	user := &models.User{ID: models.NewUserID()}
	token := &models.AccessToken{ID: models.NewAccessTokenID()}
	ctx = WithIdentity(ctx, user, token)
	assert.Same(t, user, UserFromContext(ctx))
	assert.Same(t, token, TokenFromContext(ctx))
}
