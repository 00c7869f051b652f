package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/provalab/provahub-backend/internal/config"
	"github.com/provalab/provahub-backend/internal/model"
	"github.com/provalab/provahub-backend/internal/repository/memory"
	"github.com/provalab/provahub-backend/internal/service"
)

func makeAuthService() *service.AuthService {
	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	return service.NewAuthService(cfg, memory.NewUserRepository())
}

func registerRequest(email, role string) *model.RegisterRequest {
	return &model.RegisterRequest{
		Name:     "Test User",
		Email:    email,
		Password: "password123",
		Role:     role,
	}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc := makeAuthService()
	ctx := context.Background()

	user, err := svc.Register(ctx, registerRequest("prof@example.com", "professor"))
	require.NoError(t, err)
	require.Equal(t, model.RoleProfessor, user.Role)
	require.NotEqual(t, "password123", user.PasswordHash)

	got, token, err := svc.Login(ctx, "prof@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, model.RoleProfessor, claims.Role)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	svc := makeAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerRequest("dup@example.com", "student"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerRequest("dup@example.com", "professor"))
	require.ErrorIs(t, err, service.ErrEmailTaken)
}

func TestAuthService_LoginRejectsBadCredentials(t *testing.T) {
	svc := makeAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerRequest("s@example.com", "student"))
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "s@example.com", "wrong-password")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "password123")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestAuthService_ValidateTokenRejectsForeignSignature(t *testing.T) {
	svc := makeAuthService()
	other := service.NewAuthService(&config.Config{
		JWTSecret:  "different-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, memory.NewUserRepository())

	user, err := other.Register(context.Background(), registerRequest("x@example.com", "student"))
	require.NoError(t, err)
	token, err := other.GenerateToken(user)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}
