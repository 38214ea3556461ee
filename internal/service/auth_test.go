package service

import (
	"context"
	"testing"
	"time"

	"messenger/internal/config"
	apperrors "messenger/pkg/errors"
	"messenger/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) (AuthService, *fakeUserRepo) {
	t.Helper()

	userRepo := newFakeUserRepo()
	jwtCfg := config.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}
	return NewAuthService(userRepo, jwtCfg, logger.New("error")), userRepo
}

func TestRegisterAndLogin(t *testing.T) {
	auth, _ := newAuthFixture(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "Alice@Example.com", "password123", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)

	response, err := auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, response.AccessToken)
	assert.NotEmpty(t, response.RefreshToken)
	assert.Equal(t, user.ID, response.User.ID)

	validated, err := auth.ValidateToken(ctx, response.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, validated.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	auth, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "alice@example.com", "password123", "Alice")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "alice@example.com", "password456", "Alice Again")
	assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
}

func TestRegisterValidation(t *testing.T) {
	auth, _ := newAuthFixture(t)
	ctx := context.Background()

	cases := []struct {
		name        string
		email       string
		password    string
		displayName string
	}{
		{"empty email", "", "password123", "Alice"},
		{"short password", "alice@example.com", "short", "Alice"},
		{"empty display name", "alice@example.com", "password123", ""},
		{"bad email format", "not-an-email", "password123", "Alice"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.Register(ctx, tc.email, tc.password, tc.displayName)
			assert.Error(t, err)
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	auth, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "alice@example.com", "password123", "Alice")
	require.NoError(t, err)

	_, err = auth.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = auth.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestRefreshRotatesSession(t *testing.T) {
	auth, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "alice@example.com", "password123", "Alice")
	require.NoError(t, err)

	login, err := auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	refreshed, err := auth.RefreshToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// Старый refresh-токен отозван ротацией
	_, err = auth.RefreshToken(ctx, login.RefreshToken)
	assert.Error(t, err)

	// Новый работает
	_, err = auth.RefreshToken(ctx, refreshed.RefreshToken)
	assert.NoError(t, err)
}

func TestLogoutRevokesSession(t *testing.T) {
	auth, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "alice@example.com", "password123", "Alice")
	require.NoError(t, err)

	login, err := auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx, login.RefreshToken))

	_, err = auth.RefreshToken(ctx, login.RefreshToken)
	assert.Error(t, err)
}
