package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing is a pawn item offered on the storefront. Only the fields the auth
// gateway's ownership checks need are modelled here; catalog metadata lives
// with the storefront service.
type Listing struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	OwnerID     string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	PriceCents  int64  `gorm:"not null" json:"price_cents"`
	Owner       *User  `gorm:"foreignKey:OwnerID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
