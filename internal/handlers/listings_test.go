package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hockshop/hockshop-server/internal/handlers/testutil"
)

type listingPayload struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Title   string `json:"title"`
}

func createListing(t *testing.T, env *testutil.Env, body map[string]any) listingPayload {
	t.Helper()

	w := env.Request(http.MethodPost, "/api/listings", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	var listing listingPayload
	testutil.DecodeInto(t, resp.Data, &listing)
	require.NotEmpty(t, listing.ID)
	return listing
}

func TestListingCreateRequiresAuth(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/listings", map[string]any{
		"title":       "Brass pocket watch",
		"price_cents": 12500,
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "ACCESS_TOKEN_MISSING", testutil.ErrorCode(t, w))
}

func TestListingCookieCallerOwnsWhatItCreates(t *testing.T) {
	env := testutil.NewEnv(t)
	userID := env.RegisterVerifiedUser("broker", "broker@example.com", "secret123!")

	// The owner_id in the payload is ignored on the cookie path.
	listing := createListing(t, env, map[string]any{
		"title":       "Brass pocket watch",
		"price_cents": 12500,
		"owner_id":    "someone-else",
	})
	require.Equal(t, userID, listing.OwnerID)

	w := env.Request(http.MethodDelete, "/api/listings/"+listing.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestListingDeleteEnforcesOwnership(t *testing.T) {
	env := testutil.NewEnv(t)
	env.RegisterVerifiedUser("broker", "broker@example.com", "secret123!")

	listing := createListing(t, env, map[string]any{
		"title":       "Silver flute",
		"price_cents": 30000,
	})

	// A second user cannot delete the first user's listing.
	env.ClearCookies()
	env.RegisterVerifiedUser("rival", "rival@example.com", "secret123!")

	w := env.Request(http.MethodDelete, "/api/listings/"+listing.ID, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "NOT_OWNER", testutil.ErrorCode(t, w))
}

func TestListingServiceKeyBypassesOwnership(t *testing.T) {
	env := testutil.NewEnv(t)
	env.RegisterVerifiedUser("broker", "broker@example.com", "secret123!")

	listing := createListing(t, env, map[string]any{
		"title":       "Vintage camera",
		"price_cents": 45000,
	})

	env.ClearCookies()

	w := env.ServiceRequest(http.MethodDelete, "/api/listings/"+listing.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestListingServiceKeyCreateNamesOwner(t *testing.T) {
	env := testutil.NewEnv(t)
	userID := env.RegisterVerifiedUser("broker", "broker@example.com", "secret123!")
	env.ClearCookies()

	// Service callers must name the owner explicitly.
	w := env.ServiceRequest(http.MethodPost, "/api/listings", map[string]any{
		"title":       "Gold ring",
		"price_cents": 80000,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.ServiceRequest(http.MethodPost, "/api/listings", map[string]any{
		"title":       "Gold ring",
		"price_cents": 80000,
		"owner_id":    userID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	var listing listingPayload
	testutil.DecodeInto(t, resp.Data, &listing)
	require.Equal(t, userID, listing.OwnerID)
}

func TestListingDeleteUnknownID(t *testing.T) {
	env := testutil.NewEnv(t)
	env.RegisterVerifiedUser("broker", "broker@example.com", "secret123!")

	w := env.Request(http.MethodDelete, "/api/listings/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "NOT_FOUND", testutil.ErrorCode(t, w))
}
