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
	"github.com/hockshop/hockshop-server/pkg/mail"
)

const (
	defaultResetExpiry     = time.Hour
	defaultResetTokenBytes = 32
)

// ErrResetInvalid covers missing, consumed, and expired reset tokens alike.
var ErrResetInvalid = errors.New("password reset: invalid or expired token")

// ResetOption customises the PasswordResetService.
type ResetOption func(*PasswordResetService)

// WithResetLinkBase sets the base URL used in reset links.
func WithResetLinkBase(url string) ResetOption {
	return func(s *PasswordResetService) {
		s.linkBase = strings.TrimRight(url, "/")
	}
}

// WithResetExpiry overrides the token lifetime.
func WithResetExpiry(d time.Duration) ResetOption {
	return func(s *PasswordResetService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithResetClock injects a custom time source.
func WithResetClock(clock func() time.Time) ResetOption {
	return func(s *PasswordResetService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// PasswordResetService issues and consumes password reset tokens.
type PasswordResetService struct {
	db       *gorm.DB
	mailer   mail.Mailer
	linkBase string
	expiry   time.Duration
	now      func() time.Time
}

// NewPasswordResetService constructs a reset service with the provided dependencies.
func NewPasswordResetService(db *gorm.DB, mailer mail.Mailer, opts ...ResetOption) (*PasswordResetService, error) {
	if db == nil {
		return nil, errors.New("password reset service: db is required")
	}

	service := &PasswordResetService{
		db:     db,
		mailer: mailer,
		expiry: defaultResetExpiry,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Request issues a reset token for the email's account and mails it. It
// returns nil whether or not a matching verified user exists, so the caller
// can always report success; only an internal failure on a real account
// surfaces an error.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("password reset service: find user: %w", err)
	}

	if !user.Verified {
		return nil
	}

	token, err := crypto.GenerateToken(defaultResetTokenBytes)
	if err != nil {
		return fmt.Errorf("password reset service: generate token: %w", err)
	}

	record := models.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: s.now().Add(s.expiry),
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("password reset service: create record: %w", err)
	}

	if s.mailer != nil {
		message := mail.Message{
			To:      []string{user.Email},
			Subject: "Reset your Hockshop password",
			Body:    s.resetBody(user.FirstName, token),
		}
		if mailErr := s.mailer.Send(ctx, message); mailErr != nil && !errors.Is(mailErr, mail.ErrSMTPDisabled) {
			return fmt.Errorf("password reset service: send email: %w", mailErr)
		}
	}

	return nil
}

// Complete consumes a reset token and stores the new password hash. Every
// outstanding reset record for the user is purged, not just the consumed one,
// so sibling tokens from earlier requests die too. The guarded DELETE is the
// commit point under concurrent replays.
func (s *PasswordResetService) Complete(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return ErrResetInvalid
	}

	var record models.PasswordResetToken
	err := s.db.WithContext(ctx).
		Where("token = ?", token).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrResetInvalid
	}
	if err != nil {
		return fmt.Errorf("password reset service: find record: %w", err)
	}

	now := s.now()
	if !record.ExpiresAt.After(now) {
		s.db.WithContext(ctx).Delete(&models.PasswordResetToken{}, "id = ?", record.ID)
		return ErrResetInvalid
	}

	result := s.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", record.ID, now).
		Delete(&models.PasswordResetToken{})
	if result.Error != nil {
		return fmt.Errorf("password reset service: consume record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrResetInvalid
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("password reset service: hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", record.UserID).
		Update("password", hashed).Error; err != nil {
		return fmt.Errorf("password reset service: update password: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Where("user_id = ?", record.UserID).
		Delete(&models.PasswordResetToken{}).Error; err != nil {
		return fmt.Errorf("password reset service: purge siblings: %w", err)
	}

	return nil
}

// CleanupExpired removes records past their expiry, as a backstop to the
// per-request expiry checks.
func (s *PasswordResetService) CleanupExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.PasswordResetToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("password reset service: cleanup expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *PasswordResetService) resetLink(token string) string {
	if s.linkBase == "" {
		return token
	}
	return fmt.Sprintf("%s?token=%s", s.linkBase, token)
}

func (s *PasswordResetService) resetBody(firstName, token string) string {
	greeting := "Hello"
	if strings.TrimSpace(firstName) != "" {
		greeting = "Hello " + strings.TrimSpace(firstName)
	}

	return fmt.Sprintf(
		"%s,\n\nWe received a request to reset your password. Use the link below within the hour:\n%s\n\nIf you did not request a reset, you can ignore this message.\n",
		greeting, s.resetLink(token),
	)
}
