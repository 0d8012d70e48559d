package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmailVerification is one outstanding verification attempt. Each record
// carries both the opaque link token and the independent numeric code; either
// one consuming the record invalidates the other, because every record for
// the user is deleted on success.
type EmailVerification struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	LinkToken string    `gorm:"uniqueIndex;not null" json:"-"`
	Code      string    `gorm:"not null;index:idx_email_verifications_user_code" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (v *EmailVerification) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
