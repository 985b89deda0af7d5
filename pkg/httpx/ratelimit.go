package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/tasklist/pkg/limitx"
	"github.com/aussiebroadwan/tasklist/pkg/slogx"
)

// RateLimitProfile defines the shape of a fixed-window rate limit.
type RateLimitProfile struct {
	// Requests is the number of requests allowed per window
	Requests int
	// Window is the fixed time window; tokens reset wholesale at its end
	Window time.Duration
}

// Common rate limit profiles for different endpoint classes.
// These can be overridden via environment variables (see init() below)
var (
	// DefaultLimit for general API traffic
	// Allows 60 requests per minute per client
	// Override with: RATELIMIT_DEFAULT_REQUESTS, RATELIMIT_DEFAULT_WINDOW_SEC
	DefaultLimit = RateLimitProfile{
		Requests: 60,
		Window:   time.Minute,
	}

	// AuthLimit for authentication endpoints (brute force prevention)
	// Allows 10 requests per minute per client
	// Override with: RATELIMIT_AUTH_REQUESTS, RATELIMIT_AUTH_WINDOW_SEC
	AuthLimit = RateLimitProfile{
		Requests: 10,
		Window:   time.Minute,
	}
)

func init() {
	// Allow overriding rate limits via environment variables (useful for testing)
	DefaultLimit = ParseRateLimitFromEnv("DEFAULT", DefaultLimit)
	AuthLimit = ParseRateLimitFromEnv("AUTH", AuthLimit)
}

// ParseRateLimitFromEnv reads rate limit configuration from environment variables.
// Environment variables follow the pattern: RATELIMIT_{prefix}_{field}
// For example: RATELIMIT_AUTH_REQUESTS, RATELIMIT_AUTH_WINDOW_SEC
func ParseRateLimitFromEnv(prefix string, defaultProfile RateLimitProfile) RateLimitProfile {
	profile := defaultProfile

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			profile.Requests = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			profile.Window = time.Duration(windowSec) * time.Second
		}
	}

	return profile
}

// KeyExtractor is a function that extracts a unique key from the request
// for rate limiting purposes (e.g. IP address, user ID, client ID, etc.)
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	// Check X-Forwarded-For header (comma-separated list, first hop wins)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fallback to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// RateLimitMiddleware throttles requests against the per-key buckets held in
// reg. The X-RateLimit-* headers are attached to every response, allowed or
// not. onDecision, if non-nil, is invoked with the outcome of each attempt.
func RateLimitMiddleware(reg *limitx.Registry, keyExtractor KeyExtractor, onDecision func(allowed bool)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			// Extract the key for this request
			key := keyExtractor(r)
			if key == "" {
				// If we can't extract a key, allow the request but log it
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			bucket := reg.GetOrCreate(key, now)
			allowed, remaining, resetAt := bucket.Take(now)

			// Limit headers go out on every response so well-behaved
			// clients can pace themselves before hitting 429s
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(reg.Capacity()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if onDecision != nil {
				onDecision(allowed)
			}

			if !allowed {
				// Retry-After carries the full window duration, not the
				// remaining time until reset
				retryAfter := max(int(reg.Window().Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":             "rate_limit_exceeded",
					"error_description": "Too many requests. Please try again later.",
				})
				return
			}

			// Request is allowed, continue to next handler
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP creates a rate limiter that limits by client IP address.
// Place it outermost in the chain so throttling is decided before any
// authentication logic runs.
func RateLimitByIP(reg *limitx.Registry, onDecision func(allowed bool)) Middleware {
	return RateLimitMiddleware(reg, IPKeyExtractor, onDecision)
}
