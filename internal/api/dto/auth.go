package dto

import (
	"errors"

	ozzo "github.com/go-ozzo/ozzo-validation"
	"github.com/hugh/go-contacts/internal/api/validation"
	"github.com/hugh/go-contacts/internal/database/models"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r SignupRequest) Validate() error {
	return ozzo.ValidateStruct(&r,
		ozzo.Field(&r.Email, validation.Email...),
		ozzo.Field(&r.Password, validation.Password...),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return ozzo.ValidateStruct(&r,
		ozzo.Field(&r.Email, validation.Email...),
		ozzo.Field(&r.Password, validation.Password...),
	)
}

// EmailRequest asks for the verification mail to be sent again.
type EmailRequest struct {
	Email string `json:"email"`
}

func (r EmailRequest) Validate() error {
	if r.Email == "" {
		return errors.New("missing required field email")
	}
	return ozzo.ValidateStruct(&r,
		ozzo.Field(&r.Email, validation.Email...),
	)
}

type SubscriptionRequest struct {
	Subscription string `json:"subscription"`
}

func (r SubscriptionRequest) Validate() error {
	return ozzo.ValidateStruct(&r,
		ozzo.Field(&r.Subscription, validation.Subscription...),
	)
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type SignupResponse struct {
	User UserDTO `json:"user"`
}

type UserDTO struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
	AvatarURL    string `json:"avatarURL"`
}

func NewUserDTO(u *models.User) UserDTO {
	return UserDTO{
		Email:        u.Email,
		Subscription: string(u.Subscription),
		AvatarURL:    u.AvatarURL,
	}
}

type AvatarResponse struct {
	AvatarURL string `json:"avatarURL"`
}
