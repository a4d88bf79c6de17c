package middleware

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	goPasskey "github.com/karmoybt/goPasskey"
	"github.com/karmoybt/goPasskey/internal/rate"
)

// RateLimitConfig tunes the per-IP fixed-window limiter.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// RateLimit throttles requests per client IP. Throttled requests get a 429
// and are reported to the engine for metrics and audit. Limiter backend
// failures fail open: an unavailable Redis must not take authentication
// down with it.
func RateLimit(redisClient redis.UniversalClient, engine *goPasskey.Engine, cfg RateLimitConfig) func(http.Handler) http.Handler {
	limiter := rate.New(redisClient, rate.Config{
		MaxRequests: cfg.MaxRequests,
		Window:      cfg.Window,
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			if err := limiter.Allow(r.Context(), ip); err != nil {
				if errors.Is(err, rate.ErrRateLimited) {
					if engine != nil {
						engine.ReportRateLimit(goPasskey.WithClientIP(r.Context(), ip), "http")
					}
					http.Error(w, "too many requests", http.StatusTooManyRequests)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
