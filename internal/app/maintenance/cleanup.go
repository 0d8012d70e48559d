package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hockshop/hockshop-server/internal/services"
	"github.com/hockshop/hockshop-server/pkg/logger"
)

const (
	defaultVerificationSpec = "@hourly"
	defaultResetSpec        = "@hourly"
)

// Cleaner coordinates the background sweep that purges expired verification
// pairs and password reset tokens. The sweep is a backstop: every consumer
// checks expiry itself, so nothing depends on the sweep for correctness.
type Cleaner struct {
	verification *services.EmailVerificationService
	resets       *services.PasswordResetService
	cron         *cron.Cron
	now          func() time.Time
	log          *zap.Logger
	enabled      bool

	verificationSchedule string
	resetSchedule        string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling and cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithVerificationSchedule overrides the cron expression for verification cleanup.
func WithVerificationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.verificationSchedule = spec
		}
	}
}

// WithResetSchedule overrides the cron expression for reset token cleanup.
func WithResetSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.resetSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding cleanup job being skipped.
func NewCleaner(verification *services.EmailVerificationService, resets *services.PasswordResetService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		verification:         verification,
		resets:               resets,
		now:                  time.Now,
		verificationSchedule: defaultVerificationSpec,
		resetSchedule:        defaultResetSpec,
		log:                  logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.verification != nil || cleaner.resets != nil

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at
// least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.verification != nil {
		if _, err := c.cron.AddFunc(c.verificationSchedule, func() {
			removed, err := c.verification.CleanupExpired(context.Background())
			if err != nil {
				c.log.Warn("verification cleanup failed", zap.Error(err))
				return
			}
			if removed > 0 {
				c.log.Info("verification cleanup", zap.Int64("removed", removed))
			}
		}); err != nil {
			return err
		}
	}

	if c.resets != nil {
		if _, err := c.cron.AddFunc(c.resetSchedule, func() {
			removed, err := c.resets.CleanupExpired(context.Background())
			if err != nil {
				c.log.Warn("reset token cleanup failed", zap.Error(err))
				return
			}
			if removed > 0 {
				c.log.Info("reset token cleanup", zap.Int64("removed", removed))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.verification != nil {
		if _, err := c.verification.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.resets != nil {
		if _, err := c.resets.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
