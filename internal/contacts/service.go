package contacts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hugh/go-contacts/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrContactNotFound = errors.New("contact not found")
	ErrEmptyUpdate     = errors.New("missing fields")
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Service manages contacts. Every query is scoped to the owning user, so a
// contact that belongs to someone else looks exactly like a missing one.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type ListFilter struct {
	Favorite *bool
	Page     int
	PerPage  int
}

type CreateInput struct {
	Name  string
	Email string
	Phone string
}

// UpdateInput carries only the fields present in the request.
type UpdateInput struct {
	Name  *string
	Email *string
	Phone *string
}

// Normalize applies the default page and clamps the page size.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
}

// TotalPages is the number of pages needed to show total items.
func (f ListFilter) TotalPages(total int64) int {
	if total == 0 || f.PerPage < 1 {
		return 0
	}
	return int((total + int64(f.PerPage) - 1) / int64(f.PerPage))
}

// List returns one page of the owner's contacts and the total count.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]models.Contact, int64, error) {
	filter.Normalize()

	query := s.db.WithContext(ctx).Model(&models.Contact{}).Where("owner_id = ?", ownerID)
	if filter.Favorite != nil {
		query = query.Where("favorite = ?", *filter.Favorite)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var contacts []models.Contact
	err := query.
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PerPage).
		Limit(filter.PerPage).
		Find(&contacts).Error
	if err != nil {
		return nil, 0, err
	}

	return contacts, total, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Contact, error) {
	var contact models.Contact
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	return &contact, nil
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*models.Contact, error) {
	contact := models.Contact{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		OwnerID: ownerID,
	}
	if err := s.db.WithContext(ctx).Create(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, input UpdateInput) (*models.Contact, error) {
	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Email != nil {
		updates["email"] = *input.Email
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if len(updates) == 0 {
		return nil, ErrEmptyUpdate
	}

	return s.apply(ctx, ownerID, id, updates)
}

func (s *Service) UpdateFavorite(ctx context.Context, ownerID, id uuid.UUID, favorite bool) (*models.Contact, error) {
	return s.apply(ctx, ownerID, id, map[string]interface{}{"favorite": favorite})
}

func (s *Service) Remove(ctx context.Context, ownerID, id uuid.UUID) (*models.Contact, error) {
	contact, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(contact).Error; err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *Service) apply(ctx context.Context, ownerID, id uuid.UUID, updates map[string]interface{}) (*models.Contact, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrContactNotFound
	}
	return s.Get(ctx, ownerID, id)
}
