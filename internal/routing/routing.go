package routing

import (
	"net/http"

	"flagpost/internal/handlers"
	"flagpost/internal/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Config holds the configuration needed for setting up routes
type Config struct {
	Handlers *handlers.Handler
	Logger   zerolog.Logger
}

// SetupRouter creates and configures the HTTP router with all routes and middleware
func SetupRouter(cfg Config) http.Handler {
	h := cfg.Handlers
	mux := http.NewServeMux()

	// Create CrossOriginProtection for CSRF protection on mutations
	cop := http.NewCrossOriginProtection()

	// Report submission and lookup
	mux.Handle("POST /api/reports", cop.Handler(http.HandlerFunc(h.HandleSubmitReport)))
	mux.HandleFunc("GET /api/reports", h.HandleListReports)
	mux.HandleFunc("GET /api/reports/counts", h.HandleReportCounts)

	// Report lifecycle transitions
	mux.Handle("POST /api/reports/{id}/resolve", cop.Handler(http.HandlerFunc(h.HandleResolveReport)))
	mux.Handle("POST /api/reports/{id}/dismiss", cop.Handler(http.HandlerFunc(h.HandleDismissReport)))

	// Content visibility (public read, admin write)
	mux.HandleFunc("GET /api/content/{id}/visibility", h.HandleContentVisibility)
	mux.Handle("POST /admin/hide", cop.Handler(http.HandlerFunc(h.HandleHideContent)))
	mux.Handle("POST /admin/unhide", cop.Handler(http.HandlerFunc(h.HandleUnhideContent)))
	mux.HandleFunc("GET /admin/hidden", h.HandleListHidden)

	// Reason catalog management
	mux.HandleFunc("GET /admin/reasons", h.HandleGetReasons)
	mux.Handle("PUT /admin/reasons", cop.Handler(http.HandlerFunc(h.HandleUpdateReasons)))

	// Audit log and stats
	mux.HandleFunc("GET /admin/audit", h.HandleAuditLog)
	mux.HandleFunc("GET /admin/stats", h.HandleStats)

	// Operational endpoints
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", h.HandleHealthz)

	// Apply middleware in order (outermost first, innermost last)
	var handler http.Handler = mux

	// 1. Limit request body size (innermost - runs first on request)
	handler = middleware.LimitBodyMiddleware(handler)

	// 2. Apply rate limiting
	rateLimitConfig := middleware.DefaultRateLimitConfig()
	handler = middleware.RateLimitMiddleware(rateLimitConfig)(handler)

	// 3. Apply security headers
	handler = middleware.SecurityHeadersMiddleware(handler)

	// 4. Apply logging middleware (outermost - wraps everything)
	handler = middleware.LoggingMiddleware(cfg.Logger)(handler)

	return handler
}
