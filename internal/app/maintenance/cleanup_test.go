package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hockshop/hockshop-server/internal/models"
	"github.com/hockshop/hockshop-server/internal/services"
)

func TestCleanerRunOncePurgesExpiredRecords(t *testing.T) {
	db := openCleanupTestDB(t)
	current := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	verification, err := services.NewEmailVerificationService(db, nil,
		services.WithVerificationClock(clock),
		services.WithVerificationExpiry(time.Hour),
	)
	require.NoError(t, err)

	resets, err := services.NewPasswordResetService(db, nil,
		services.WithResetClock(clock),
		services.WithResetExpiry(time.Hour),
	)
	require.NoError(t, err)

	user := &models.User{Username: "broker", Email: "broker@example.com", Password: "x", Verified: true}
	require.NoError(t, db.Create(user).Error)

	require.NoError(t, verification.IssueAndSend(context.Background(), user))
	require.NoError(t, resets.Request(context.Background(), user.Email))

	cleaner := NewCleaner(verification, resets, WithNow(clock))

	// Nothing is expired yet; the sweep removes nothing.
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var verifications, tokens int64
	require.NoError(t, db.Model(&models.EmailVerification{}).Count(&verifications).Error)
	require.NoError(t, db.Model(&models.PasswordResetToken{}).Count(&tokens).Error)
	require.Equal(t, int64(1), verifications)
	require.Equal(t, int64(1), tokens)

	current = current.Add(2 * time.Hour)

	require.NoError(t, cleaner.RunOnce(context.Background()))

	require.NoError(t, db.Model(&models.EmailVerification{}).Count(&verifications).Error)
	require.NoError(t, db.Model(&models.PasswordResetToken{}).Count(&tokens).Error)
	require.Zero(t, verifications)
	require.Zero(t, tokens)
}

func TestCleanerStartAndStop(t *testing.T) {
	db := openCleanupTestDB(t)

	verification, err := services.NewEmailVerificationService(db, nil)
	require.NoError(t, err)
	resets, err := services.NewPasswordResetService(db, nil)
	require.NoError(t, err)

	cleaner := NewCleaner(verification, resets)
	require.NoError(t, cleaner.Start())

	stopCtx := cleaner.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("cleaner did not stop in time")
	}
}

func TestCleanerWithNoServices(t *testing.T) {
	cleaner := NewCleaner(nil, nil)
	require.NoError(t, cleaner.Start())
	require.NoError(t, cleaner.RunOnce(context.Background()))
}

func openCleanupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.EmailVerification{}, &models.PasswordResetToken{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
