package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/review-service/internal/ratelimit"
	"github.com/utafrali/review-service/internal/service"
	"github.com/utafrali/review-service/pkg/health"
	"github.com/utafrali/review-service/pkg/httputil"
	"github.com/utafrali/review-service/pkg/middleware"
)

const serviceName = "review"

// NewRouter creates a chi router with all review service routes registered.
// Guest submissions and anonymous votes are throttled per client IP by
// limiter. Forwarding headers are honoured only from proxies.
func NewRouter(
	reviewService *service.ReviewService,
	healthHandler *health.Handler,
	tokens middleware.TokenValidator,
	limiter ratelimit.Limiter,
	proxies *httputil.TrustedProxies,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.ClientIP(proxies))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	auth := middleware.Auth(tokens)
	withLogger := middleware.RequestLogger(logger)
	guestLimit := ratelimit.Middleware(limiter, "guest_review", logger)
	voteLimit := anonymousOnly(ratelimit.Middleware(limiter, "anonymous_vote", logger))

	reviewHandler := NewReviewHandler(reviewService, logger)
	adminHandler := NewAdminHandler(reviewService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products/{productId}/reviews", func(r chi.Router) {
			r.With(withLogger).Get("/", reviewHandler.ListProductReviews)
			r.With(withLogger, guestLimit).Post("/guest", reviewHandler.CreateGuestReview)

			r.Group(func(r chi.Router) {
				r.Use(auth, withLogger)
				r.Get("/eligibility", reviewHandler.CanReview)
				r.Post("/", reviewHandler.CreateReview)
			})
		})

		r.Route("/reviews/{id}", func(r chi.Router) {
			r.With(withLogger).Get("/", reviewHandler.GetReview)
			r.With(middleware.OptionalAuth(tokens), withLogger, voteLimit).Post("/helpful", reviewHandler.VoteHelpful)

			r.Group(func(r chi.Router) {
				r.Use(auth, withLogger)
				r.Put("/", reviewHandler.UpdateReview)
				r.Delete("/", reviewHandler.DeleteReview)
				r.Post("/reports", reviewHandler.ReportReview)
			})
		})

		r.Route("/admin/reviews", func(r chi.Router) {
			r.Use(auth, middleware.RequireRole(middleware.RoleAdmin), withLogger)

			r.Get("/", adminHandler.ListReviews)
			r.Get("/pending", adminHandler.PendingReviews)
			r.Post("/bulk", adminHandler.BulkModerate)
			r.Patch("/{id}", adminHandler.UpdateReview)
			r.Delete("/{id}", adminHandler.DeleteReview)
			r.Get("/{id}/history", adminHandler.History)
		})
	})

	return r
}

// anonymousOnly applies limit to requests that carry no authenticated user.
func anonymousOnly(limit func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if middleware.UserIDFromContext(r.Context()) != "" {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}
