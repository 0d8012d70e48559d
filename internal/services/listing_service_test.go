package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hockshop/hockshop-server/internal/auth"
	"github.com/hockshop/hockshop-server/internal/models"
)

func TestListingCreateForcesOwnerOnCookiePath(t *testing.T) {
	db := openListingTestDB(t)
	svc, err := NewListingService(db)
	require.NoError(t, err)

	ctx := context.Background()
	caller := auth.AuthenticatedUser{ID: "user-1", Username: "broker"}

	// A cookie caller cannot plant a listing under someone else's account.
	listing, err := svc.Create(ctx, caller, ListingInput{
		OwnerID:    "user-2",
		Title:      "Brass pocket watch",
		PriceCents: 12500,
	})
	require.NoError(t, err)
	require.Equal(t, "user-1", listing.OwnerID)
}

func TestListingCreateServicePathRequiresOwner(t *testing.T) {
	db := openListingTestDB(t)
	svc, err := NewListingService(db)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = svc.Create(ctx, auth.TrustedService{}, ListingInput{
		Title:      "Brass pocket watch",
		PriceCents: 12500,
	})
	require.Error(t, err)

	listing, err := svc.Create(ctx, auth.TrustedService{}, ListingInput{
		OwnerID:    "user-2",
		Title:      "Brass pocket watch",
		PriceCents: 12500,
	})
	require.NoError(t, err)
	require.Equal(t, "user-2", listing.OwnerID)
}

func TestListingDeleteOwnership(t *testing.T) {
	db := openListingTestDB(t)
	svc, err := NewListingService(db)
	require.NoError(t, err)

	ctx := context.Background()
	owner := auth.AuthenticatedUser{ID: "user-1", Username: "broker"}

	listing, err := svc.Create(ctx, owner, ListingInput{Title: "Silver flute", PriceCents: 30000})
	require.NoError(t, err)

	// A different cookie caller is rejected.
	err = svc.Delete(ctx, auth.AuthenticatedUser{ID: "user-2"}, listing.ID)
	require.ErrorIs(t, err, ErrNotOwner)

	// The owner may delete.
	require.NoError(t, svc.Delete(ctx, owner, listing.ID))

	err = svc.Delete(ctx, owner, listing.ID)
	require.ErrorIs(t, err, ErrListingNotFound)
}

func TestListingDeleteServiceBypassesOwnership(t *testing.T) {
	db := openListingTestDB(t)
	svc, err := NewListingService(db)
	require.NoError(t, err)

	ctx := context.Background()
	listing, err := svc.Create(ctx, auth.AuthenticatedUser{ID: "user-1"}, ListingInput{
		Title:      "Vintage camera",
		PriceCents: 45000,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, auth.TrustedService{}, listing.ID))
}

func openListingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.Listing{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
