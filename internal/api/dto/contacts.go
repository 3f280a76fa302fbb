package dto

import (
	"errors"
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation"
	"github.com/hugh/go-contacts/internal/api/validation"
	"github.com/hugh/go-contacts/internal/database/models"
)

var (
	ErrMissingFields   = errors.New("missing fields")
	ErrMissingFavorite = errors.New("missing field favorite")
)

type CreateContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (r CreateContactRequest) Validate() error {
	return ozzo.ValidateStruct(&r,
		ozzo.Field(&r.Name, validation.Required(validation.ContactName)...),
		ozzo.Field(&r.Email, validation.Required(validation.ContactEmail)...),
		ozzo.Field(&r.Phone, validation.Required(validation.Phone)...),
	)
}

// UpdateContactRequest is a partial update; absent fields are left alone.
type UpdateContactRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

func (r UpdateContactRequest) Validate() error {
	if r.Name == nil && r.Email == nil && r.Phone == nil {
		return ErrMissingFields
	}
	return ozzo.ValidateStruct(&r,
		ozzo.Field(&r.Name, ozzo.NilOrNotEmpty, ozzo.Length(3, 30)),
		ozzo.Field(&r.Email, append([]ozzo.Rule{ozzo.NilOrNotEmpty}, validation.ContactEmail...)...),
		ozzo.Field(&r.Phone, append([]ozzo.Rule{ozzo.NilOrNotEmpty}, validation.Phone...)...),
	)
}

type FavoriteRequest struct {
	Favorite *bool `json:"favorite"`
}

func (r FavoriteRequest) Validate() error {
	if r.Favorite == nil {
		return ErrMissingFavorite
	}
	return nil
}

type ContactDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Favorite  bool      `json:"favorite"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewContactDTO(c *models.Contact) ContactDTO {
	return ContactDTO{
		ID:        c.ID.String(),
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Favorite:  c.Favorite,
		Owner:     c.OwnerID.String(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func NewContactDTOs(contacts []models.Contact) []ContactDTO {
	out := make([]ContactDTO, len(contacts))
	for i := range contacts {
		out[i] = NewContactDTO(&contacts[i])
	}
	return out
}
