package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (*AuthService, *stack) {
	t.Helper()
	s := newStack(t)
	return NewAuthService(s.users, NewOwnerDirectory(s.users, time.Minute), "test-secret", 1, logger.Discard()), s
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	auth, _ := newAuthService(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, RegisterParams{
		Email:        " Founder@Example.com ",
		Password:     "correct horse",
		Name:         "Founder",
		BusinessName: "Klya Bakery",
	})
	require.NoError(t, err)
	assert.Equal(t, "founder@example.com", user.Email)
	assert.Equal(t, "free", user.Plan)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	token, err := auth.Login(ctx, "founder@example.com", "correct horse")
	require.NoError(t, err)

	userID, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	_, err = auth.Login(ctx, "founder@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RegisterRejects(t *testing.T) {
	auth, s := newAuthService(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, RegisterParams{Email: "not-an-email", Password: "long enough"})
	assert.True(t, IsValidationError(err))

	_, err = auth.Register(ctx, RegisterParams{Email: "short@example.com", Password: "1234567"})
	assert.True(t, IsValidationError(err))

	_, err = auth.Register(ctx, RegisterParams{Email: s.owner.Email, Password: "long enough"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthService_ValidateTokenRejects(t *testing.T) {
	auth, _ := newAuthService(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	expiredToken, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	foreignToken, err := foreign.SignedString([]byte("another-secret"))
	require.NoError(t, err)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noSubjectToken, err := noSubject.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":    "not.a.token",
		"expired":    expiredToken,
		"wrong key":  foreignToken,
		"no subject": noSubjectToken,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ValidateToken(token)
			assert.Error(t, err)
		})
	}
}

func TestAuthService_EmptySecretNeverSignsOrAccepts(t *testing.T) {
	s := newStack(t)
	auth := NewAuthService(s.users, nil, "", 1, logger.Discard())
	ctx := context.Background()

	user, err := auth.Register(ctx, RegisterParams{Email: "owner@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = auth.Login(ctx, "owner@example.com", "password123")
	assert.ErrorIs(t, err, ErrNoSigningKey)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	forgedToken, err := forged.SignedString([]byte{})
	require.NoError(t, err)

	_, err = auth.ValidateToken(forgedToken)
	assert.ErrorIs(t, err, ErrNoSigningKey)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	auth, s := newAuthService(t)
	ctx := context.Background()

	name := "Renamed"
	business := "New Shop"
	user, err := auth.UpdateProfile(ctx, s.owner.ID, ProfileParams{Name: &name, BusinessName: &business})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", user.Name)
	assert.Equal(t, "New Shop", user.BusinessName)
	assert.Equal(t, s.owner.Email, user.Email)

	_, err = auth.UpdateProfile(ctx, s.owner.ID, ProfileParams{})
	assert.True(t, IsValidationError(err))

	_, err = auth.UpdateProfile(ctx, uuid.New(), ProfileParams{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}
