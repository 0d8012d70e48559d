package database

import (
	"gorm.io/gorm"

	"github.com/hockshop/hockshop-server/internal/models"
)

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.EmailVerification{},
		&models.PasswordResetToken{},
		&models.Listing{},
	)
}
