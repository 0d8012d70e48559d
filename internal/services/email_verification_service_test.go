package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hockshop/hockshop-server/internal/models"
)

func TestEmailVerificationIssueAndVerifyByLink(t *testing.T) {
	db := openVerificationTestDB(t)
	current := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	svc, err := NewEmailVerificationService(db, nil,
		WithVerificationClock(func() time.Time { return current }),
		WithVerificationExpiry(12*time.Hour),
	)
	require.NoError(t, err)

	ctx := context.Background()
	user := createUnverifiedUser(t, db, "broker", "broker@example.com")

	require.NoError(t, svc.IssueAndSend(ctx, user))

	var stored models.EmailVerification
	require.NoError(t, db.First(&stored).Error)
	require.Equal(t, user.ID, stored.UserID)
	require.NotEmpty(t, stored.LinkToken)
	require.Len(t, stored.Code, 6)

	verified, err := svc.VerifyByLink(ctx, stored.LinkToken)
	require.NoError(t, err)
	require.True(t, verified.Verified)

	// The record is consumed; a replay of the same token fails.
	_, err = svc.VerifyByLink(ctx, stored.LinkToken)
	require.ErrorIs(t, err, ErrVerificationInvalid)

	// The sibling code died with the record.
	_, err = svc.VerifyByCode(ctx, user.Email, stored.Code)
	require.ErrorIs(t, err, ErrVerificationInvalid)
}

func TestEmailVerificationVerifyByCode(t *testing.T) {
	db := openVerificationTestDB(t)
	svc, err := NewEmailVerificationService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()
	user := createUnverifiedUser(t, db, "broker", "broker@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, user))

	var stored models.EmailVerification
	require.NoError(t, db.First(&stored).Error)

	// Wrong code and unknown email are indistinguishable.
	_, err = svc.VerifyByCode(ctx, user.Email, "000000")
	if stored.Code == "000000" {
		t.Skip("generated code collided with the deliberately wrong one")
	}
	require.ErrorIs(t, err, ErrVerificationInvalid)

	_, err = svc.VerifyByCode(ctx, "stranger@example.com", stored.Code)
	require.ErrorIs(t, err, ErrVerificationInvalid)

	verified, err := svc.VerifyByCode(ctx, user.Email, stored.Code)
	require.NoError(t, err)
	require.True(t, verified.Verified)

	// Consumption also kills the link token.
	_, err = svc.VerifyByLink(ctx, stored.LinkToken)
	require.ErrorIs(t, err, ErrVerificationInvalid)
}

func TestEmailVerificationExpiry(t *testing.T) {
	db := openVerificationTestDB(t)
	current := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	svc, err := NewEmailVerificationService(db, nil,
		WithVerificationClock(func() time.Time { return current }),
		WithVerificationExpiry(time.Hour),
	)
	require.NoError(t, err)

	ctx := context.Background()
	user := createUnverifiedUser(t, db, "broker", "broker@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, user))

	var stored models.EmailVerification
	require.NoError(t, db.First(&stored).Error)

	current = current.Add(2 * time.Hour)

	_, err = svc.VerifyByLink(ctx, stored.LinkToken)
	require.ErrorIs(t, err, ErrVerificationInvalid)

	// The expired record was removed eagerly, not left for the sweep.
	var count int64
	require.NoError(t, db.Model(&models.EmailVerification{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEmailVerificationReissueInvalidatesOldPair(t *testing.T) {
	db := openVerificationTestDB(t)
	svc, err := NewEmailVerificationService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()
	user := createUnverifiedUser(t, db, "broker", "broker@example.com")

	require.NoError(t, svc.IssueAndSend(ctx, user))
	var first models.EmailVerification
	require.NoError(t, db.First(&first).Error)

	require.NoError(t, svc.Resend(ctx, user))

	// Only the fresh pair remains.
	var count int64
	require.NoError(t, db.Model(&models.EmailVerification{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	_, err = svc.VerifyByLink(ctx, first.LinkToken)
	require.ErrorIs(t, err, ErrVerificationInvalid)
}

func TestEmailVerificationResendAlreadyVerified(t *testing.T) {
	db := openVerificationTestDB(t)
	svc, err := NewEmailVerificationService(db, nil)
	require.NoError(t, err)

	user := createUnverifiedUser(t, db, "broker", "broker@example.com")
	require.NoError(t, db.Model(user).Update("verified", true).Error)
	user.Verified = true

	err = svc.Resend(context.Background(), user)
	require.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestEmailVerificationCleanupExpired(t *testing.T) {
	db := openVerificationTestDB(t)
	current := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	svc, err := NewEmailVerificationService(db, nil,
		WithVerificationClock(func() time.Time { return current }),
		WithVerificationExpiry(time.Hour),
	)
	require.NoError(t, err)

	ctx := context.Background()
	alice := createUnverifiedUser(t, db, "alice", "alice@example.com")
	bob := createUnverifiedUser(t, db, "bob", "bob@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, alice))

	current = current.Add(2 * time.Hour)
	require.NoError(t, svc.IssueAndSend(ctx, bob))

	removed, err := svc.CleanupExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	var remaining models.EmailVerification
	require.NoError(t, db.First(&remaining).Error)
	require.Equal(t, bob.ID, remaining.UserID)
}

func createUnverifiedUser(t *testing.T, db *gorm.DB, username, email string) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    email,
		Password: "hashed-password",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func openVerificationTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.EmailVerification{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
