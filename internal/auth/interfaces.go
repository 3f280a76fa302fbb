package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/go-contacts/internal/database/models"
)

// Authenticator defines the user authentication operations exposed over HTTP.
type Authenticator interface {
	Signup(ctx context.Context, input SignupInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ResendVerification(ctx context.Context, email string) error
	Verify(ctx context.Context, token string) (*models.User, error)
	UpdateAvatarURL(ctx context.Context, userID uuid.UUID, url string) error
	UpdateSubscription(ctx context.Context, userID uuid.UUID, tier models.Subscription) (*models.User, error)
}

// TokenService defines the interface for JWT token operations.
type TokenService interface {
	GenerateToken(userID uuid.UUID) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Notifier delivers verification tokens to users.
type Notifier interface {
	SendVerification(ctx context.Context, email, token string) error
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator = (*Service)(nil)
	_ TokenService  = (*JWTService)(nil)
)
