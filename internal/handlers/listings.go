package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hockshop/hockshop-server/internal/middleware"
	"github.com/hockshop/hockshop-server/internal/services"
	appErrors "github.com/hockshop/hockshop-server/pkg/errors"
	"github.com/hockshop/hockshop-server/pkg/logger"
	"github.com/hockshop/hockshop-server/pkg/response"
)

// ListingHandler serves the listing endpoints behind the authentication
// gateway.
type ListingHandler struct {
	listings *services.ListingService
	log      *zap.Logger
}

// NewListingHandler constructs a ListingHandler.
func NewListingHandler(listings *services.ListingService) (*ListingHandler, error) {
	if listings == nil {
		return nil, errors.New("listing handler: listing service is required")
	}

	return &ListingHandler{
		listings: listings,
		log:      logger.WithModule("handlers.listings"),
	}, nil
}

type createListingRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents" validate:"min=0"`
	// OwnerID is honored only for service-key callers; cookie callers always
	// create listings under their own account.
	OwnerID string `json:"owner_id"`
}

// Create stores a new listing for the authenticated caller.
func (h *ListingHandler) Create(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrAccessTokenMissing)
		return
	}

	var req createListingRequest
	if !bindAndValidate(c, &req) {
		return
	}

	listing, err := h.listings.Create(requestContext(c), caller, services.ListingInput{
		OwnerID:     req.OwnerID,
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
	})
	if err != nil {
		h.log.Error("listing creation failed", zap.Error(err))
		response.Error(c, appErrors.NewBadRequest(err.Error()))
		return
	}

	response.Success(c, http.StatusCreated, listing)
}

// Delete removes a listing. Cookie callers must own it; service-key callers
// may remove any listing.
func (h *ListingHandler) Delete(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrAccessTokenMissing)
		return
	}

	err := h.listings.Delete(requestContext(c), caller, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrListingNotFound):
			response.Error(c, appErrors.ErrNotFound)
		case errors.Is(err, services.ErrNotOwner):
			response.Error(c, appErrors.ErrNotOwner)
		default:
			h.log.Error("listing deletion failed", zap.Error(err))
			response.Error(c, err)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"ok": true})
}
