package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hugh/go-contacts/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound              = errors.New("user not found")
	ErrUserExists                = errors.New("user already exists")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrEmailNotVerified          = errors.New("email is not verified")
	ErrAlreadyVerified           = errors.New("verification has already been passed")
	ErrVerificationTokenNotFound = errors.New("verification token not found")
)

type Service struct {
	db       *gorm.DB
	jwt      TokenService
	notifier Notifier
}

func NewService(db *gorm.DB, jwt TokenService, notifier Notifier) *Service {
	return &Service{db: db, jwt: jwt, notifier: notifier}
}

type SignupInput struct {
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup creates an unverified user and hands its verification token to the
// notifier once the row is committed. If the notifier fails the user is
// removed again so the email can sign up later.
func (s *Service) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	email := NormalizeEmail(input.Email)

	if _, err := s.findByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	token := NewVerificationToken()
	user := models.User{
		Email:             email,
		PasswordHash:      hash,
		Subscription:      models.SubscriptionStarter,
		AvatarURL:         GravatarURL(email),
		VerificationToken: &token,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	if err := s.notifier.SendVerification(ctx, user.Email, token); err != nil {
		// The request context may already be done; the cleanup must still run.
		cleanupCtx := context.WithoutCancel(ctx)
		if delErr := s.db.WithContext(cleanupCtx).Unscoped().Delete(&models.User{}, "id = ?", user.ID).Error; delErr != nil {
			return nil, errors.Join(fmt.Errorf("sending verification: %w", err), fmt.Errorf("removing user: %w", delErr))
		}
		return nil, fmt.Errorf("sending verification: %w", err)
	}

	return &user, nil
}

// Login checks credentials and stores the freshly issued token on the user,
// replacing whatever session existed before.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	user, err := s.findByEmail(ctx, NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.Verify {
		return nil, ErrEmailNotVerified
	}

	token, err := s.jwt.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("token", token).Error; err != nil {
		return nil, err
	}
	user.Token = &token

	return &AuthResponse{
		Token: token,
		User:  user,
	}, nil
}

func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("token", gorm.Expr("NULL")).Error
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ResendVerification re-sends the pending verification token, minting and
// storing a new one only when the user holds none.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}

	if user.Verify {
		return ErrAlreadyVerified
	}

	var token string
	if user.VerificationToken != nil && *user.VerificationToken != "" {
		token = *user.VerificationToken
	} else {
		token = NewVerificationToken()
		if err := s.db.WithContext(ctx).Model(user).Update("verification_token", token).Error; err != nil {
			return err
		}
	}

	return s.notifier.SendVerification(ctx, user.Email, token)
}

// Verify consumes a verification token. The update is conditional on the
// token still being present, so only one caller can consume it.
func (s *Service) Verify(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrVerificationTokenNotFound
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("verification_token = ?", token).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVerificationTokenNotFound
			}
			return err
		}

		result := tx.Model(&models.User{}).
			Where("id = ? AND verification_token = ?", user.ID, token).
			Updates(map[string]interface{}{
				"verify":             true,
				"verification_token": gorm.Expr("NULL"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrVerificationTokenNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	user.Verify = true
	user.VerificationToken = nil
	return &user, nil
}

func (s *Service) UpdateAvatarURL(ctx context.Context, userID uuid.UUID, url string) error {
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("avatar_url", url)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) UpdateSubscription(ctx context.Context, userID uuid.UUID, tier models.Subscription) (*models.User, error) {
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("subscription", tier)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return s.GetUserByID(ctx, userID)
}

func (s *Service) findByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
