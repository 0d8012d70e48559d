package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/hockshop/hockshop-server/internal/auth"
	"github.com/hockshop/hockshop-server/internal/models"
)

var (
	// ErrListingNotFound indicates no listing matches the id.
	ErrListingNotFound = errors.New("listing: not found")
	// ErrNotOwner is returned when a cookie-authenticated caller targets a
	// listing they do not own. The service-key path never hits this.
	ErrNotOwner = errors.New("listing: not owner")
)

// ListingInput captures the fields required to create a listing.
type ListingInput struct {
	OwnerID     string
	Title       string
	Description string
	PriceCents  int64
}

// ListingService owns the small slice of the storefront the auth gateway's
// ownership semantics are exercised against.
type ListingService struct {
	db *gorm.DB
}

// NewListingService constructs a ListingService.
func NewListingService(db *gorm.DB) (*ListingService, error) {
	if db == nil {
		return nil, errors.New("listing service: db is required")
	}
	return &ListingService{db: db}, nil
}

// Create stores a new listing. The cookie path forces the owner to be the
// authenticated user; the service-key path must name an owner explicitly.
func (s *ListingService) Create(ctx context.Context, caller auth.Caller, input ListingInput) (*models.Listing, error) {
	ownerID := strings.TrimSpace(input.OwnerID)

	switch c := caller.(type) {
	case auth.AuthenticatedUser:
		ownerID = c.ID
	case auth.TrustedService:
		if ownerID == "" {
			return nil, errors.New("listing service: owner id is required for service callers")
		}
	default:
		return nil, errors.New("listing service: unauthenticated caller")
	}

	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.New("listing service: title is required")
	}

	listing := &models.Listing{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		PriceCents:  input.PriceCents,
	}

	if err := s.db.WithContext(ctx).Create(listing).Error; err != nil {
		return nil, fmt.Errorf("listing service: create: %w", err)
	}

	return listing, nil
}

// Delete removes a listing after the ownership check appropriate to the
// caller's authentication path.
func (s *ListingService) Delete(ctx context.Context, caller auth.Caller, listingID string) error {
	var listing models.Listing
	err := s.db.WithContext(ctx).Take(&listing, "id = ?", listingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrListingNotFound
	}
	if err != nil {
		return fmt.Errorf("listing service: find: %w", err)
	}

	if !auth.MayAct(caller, listing.OwnerID) {
		return ErrNotOwner
	}

	if err := s.db.WithContext(ctx).Delete(&models.Listing{}, "id = ?", listing.ID).Error; err != nil {
		return fmt.Errorf("listing service: delete: %w", err)
	}

	return nil
}
