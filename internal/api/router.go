package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/hockshop/hockshop-server/internal/app"
	iauth "github.com/hockshop/hockshop-server/internal/auth"
	"github.com/hockshop/hockshop-server/internal/handlers"
	"github.com/hockshop/hockshop-server/internal/middleware"
	"github.com/hockshop/hockshop-server/internal/services"
)

// Services bundles the domain services the router mounts handlers over.
type Services struct {
	Accounts     *services.AccountService
	Verification *services.EmailVerificationService
	Resets       *services.PasswordResetService
	Listings     *services.ListingService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, tokens *iauth.TokenService, cookies *iauth.CookieManager, cfg *app.Config, svcs Services) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service must be provided")
	}
	if cookies == nil {
		return nil, fmt.Errorf("cookie manager must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svcs.Accounts == nil || svcs.Verification == nil || svcs.Resets == nil || svcs.Listings == nil {
		return nil, fmt.Errorf("all domain services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	if cfg.Server.RateLimit.Enabled {
		requests := cfg.Server.RateLimit.Requests
		window := cfg.Server.RateLimit.Window
		if requests <= 0 {
			requests = 120
		}
		if window <= 0 {
			window = time.Minute
		}
		r.Use(middleware.RateLimit(requests, window))
	}

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	authHandler, err := handlers.NewAuthHandler(svcs.Accounts, svcs.Verification, tokens, cookies)
	if err != nil {
		return nil, err
	}
	verificationHandler, err := handlers.NewVerificationHandler(svcs.Verification, svcs.Accounts, cfg.Client.BaseURL)
	if err != nil {
		return nil, err
	}
	resetHandler, err := handlers.NewPasswordResetHandler(svcs.Resets)
	if err != nil {
		return nil, err
	}
	recoveryHandler, err := handlers.NewRecoveryHandler(svcs.Accounts)
	if err != nil {
		return nil, err
	}
	listingHandler, err := handlers.NewListingHandler(svcs.Listings)
	if err != nil {
		return nil, err
	}

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/verify-email", verificationHandler.VerifyByLink)
		auth.POST("/verify-email-code", verificationHandler.VerifyByCode)
		auth.POST("/resend-verification", verificationHandler.Resend)
		auth.POST("/forgot-password", resetHandler.Forgot)
		auth.POST("/reset-password", resetHandler.Reset)
		auth.POST("/recover-identity", recoveryHandler.Recover)
	}

	// Protected routes: valid access cookie or the pre-shared service key.
	requireAuth := middleware.Authenticate(tokens, cookies, cfg.Auth.ServiceKey)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/profile", authHandler.Profile)

	listings := api.Group("/listings")
	{
		listings.POST("", listingHandler.Create)
		listings.DELETE("/:id", listingHandler.Delete)
	}

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
