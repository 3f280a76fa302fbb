package models

import "github.com/google/uuid"

type Contact struct {
	Base
	Name     string    `gorm:"not null" json:"name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	Favorite bool      `gorm:"default:false" json:"favorite"`
	OwnerID  uuid.UUID `gorm:"type:uuid;index;not null" json:"owner"`
}

func (Contact) TableName() string {
	return "contacts"
}
