package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// SecurityHeadersMiddleware sets standard security headers on every response.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		next.ServeHTTP(w, r)
	})
}

// visitor tracks request counts for one client IP within the current window.
type visitor struct {
	count    int
	windowAt time.Time
	lastSeen time.Time
}

// RateLimiter is a fixed-window per-IP rate limiter.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	cleanup  time.Duration
}

// NewRateLimiter creates a limiter allowing rate requests per window.
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		cleanup:  2 * window,
	}
	go rl.cleanupLoop()
	return rl
}

// Allow reports whether the given IP may make another request.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.windowAt) >= rl.window {
		rl.visitors[ip] = &visitor{count: 1, windowAt: now, lastSeen: now}
		return true
	}

	v.lastSeen = now
	if v.count >= rl.rate {
		return false
	}
	v.count++
	return true
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-rl.cleanup)
		for ip, v := range rl.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimitConfig holds the limiters applied per route class.
type RateLimitConfig struct {
	// SubmitLimiter guards report submission, the only unauthenticated write.
	SubmitLimiter *RateLimiter
	// GlobalLimiter guards everything else.
	GlobalLimiter *RateLimiter
}

// DefaultRateLimitConfig returns production limits.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		SubmitLimiter: NewRateLimiter(10, time.Minute),
		GlobalLimiter: NewRateLimiter(300, time.Minute),
	}
}

// RateLimitMiddleware applies per-IP rate limits by route class.
func RateLimitMiddleware(config *RateLimitConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r)

			limiter := config.GlobalLimiter
			if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/reports") {
				limiter = config.SubmitLimiter
			}

			if limiter != nil && !limiter.Allow(ip) {
				log.Warn().
					Str("client_ip", ip).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("Rate limit exceeded")
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// maxBodySize caps request bodies at 1MB. Report submissions are small.
const maxBodySize = 1 << 20

// LimitBodyMiddleware bounds request body size to protect JSON and form parsing.
func LimitBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		}
		next.ServeHTTP(w, r)
	})
}
