package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hockshop_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// VerificationEvents counts email verification outcomes by path (link|code) and result.
	VerificationEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hockshop_email_verifications_total",
			Help: "Total number of email verification attempts",
		},
		[]string{"path", "result"},
	)

	// PasswordResets counts completed and failed password reset attempts.
	PasswordResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hockshop_password_resets_total",
			Help: "Total number of password reset completions",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hockshop_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
