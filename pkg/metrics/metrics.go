package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mealbox", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mealbox", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// LoginAttempts counts finished or suppressed login attempts by result:
	// authenticated, failed, cancelled, rejected.
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mealbox", Name: "login_attempts_total", Help: "Login attempts by result."},
		[]string{"result"},
	)
	// SessionRestores counts startup restores by result:
	// restored, refreshed, expired, absent, failed.
	SessionRestores = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mealbox", Name: "session_restores_total", Help: "Session restore attempts by result."},
		[]string{"result"},
	)
	ImageUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mealbox", Name: "image_uploads_total", Help: "Image uploads by result."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(LoginAttempts)
	reg.MustRegister(SessionRestores)
	reg.MustRegister(ImageUploads)
}
