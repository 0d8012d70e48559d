package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/hockshop/hockshop-server/internal/models"
	"github.com/hockshop/hockshop-server/pkg/crypto"
)

var (
	// ErrUserExists is returned when the login or email is already taken.
	ErrUserExists = errors.New("account: user already exists")
	// ErrInvalidCredentials covers unknown identifiers and wrong passwords
	// alike so callers cannot distinguish the two.
	ErrInvalidCredentials = errors.New("account: invalid credentials")
	// ErrEmailNotVerified signals correct credentials on an unverified account.
	ErrEmailNotVerified = errors.New("account: email not verified")
	// ErrUserNotFound indicates no user matches the lookup.
	ErrUserNotFound = errors.New("account: user not found")
)

// Profile is the strict normalized shape in which user records leave this
// subsystem. Login mirrors Username for clients still reading the legacy key.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Login     string    `json:"login"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterInput captures the details required to register a new user.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AccountService manages user registration, credential checks, and profile
// lookups.
type AccountService struct {
	db *gorm.DB
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	return &AccountService{db: db}, nil
}

// Register creates a new unverified user with a hashed password. The unique
// indexes on username and email are the authoritative duplicate guard; a
// constraint violation from a concurrent insert maps to ErrUserExists just
// like the pre-insert check.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" || input.Password == "" {
		return nil, errors.New("account service: username, email and password are required")
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) = LOWER(?) OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("account service: check existing: %w", err)
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account service: hash password: %w", err)
	}

	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  hashed,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Verified:  false,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("account service: create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies a login-or-email plus password pair. Unknown
// identifiers and hash mismatches return the identical error; a matching but
// unverified account returns ErrEmailNotVerified.
func (s *AccountService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", identifier, identifier).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("account service: query user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}

	if !user.Verified {
		return nil, ErrEmailNotVerified
	}

	return &user, nil
}

// GetProfile loads a user by id and returns the normalized profile.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, ErrUserNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("account service: find user: %w", err)
	}

	return NormalizeProfile(&user), nil
}

// FindByEmail returns the user with the given (case-normalized) email.
func (s *AccountService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account service: find by email: %w", err)
	}

	return &user, nil
}

// RecoveryResult is the counterpart identifier returned by RecoverIdentity.
// Exactly one of Email or Username is set when Found is true.
type RecoveryResult struct {
	Found    bool   `json:"ok"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

// RecoverIdentity looks up a user by exact email or username match and
// returns the counterpart field. Disclosing the counterpart to anyone holding
// one identifier is intentional product behaviour, not an oversight.
func (s *AccountService) RecoverIdentity(ctx context.Context, value string) (RecoveryResult, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return RecoveryResult{}, errors.New("account service: lookup value is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", value).
		Take(&user).Error
	if err == nil {
		return RecoveryResult{Found: true, Username: user.Username}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return RecoveryResult{}, fmt.Errorf("account service: recover by email: %w", err)
	}

	err = s.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?)", value).
		Take(&user).Error
	if err == nil {
		return RecoveryResult{Found: true, Email: user.Email}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return RecoveryResult{}, fmt.Errorf("account service: recover by username: %w", err)
	}

	return RecoveryResult{Found: false}, nil
}

// NormalizeProfile converts a stored user record into the strict boundary
// schema. This is the single place legacy-shaped records are migrated.
func NormalizeProfile(user *models.User) Profile {
	return Profile{
		ID:        user.ID,
		Email:     strings.ToLower(user.Email),
		Username:  user.Username,
		Login:     user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Verified:  user.Verified,
		CreatedAt: user.CreatedAt,
	}
}
