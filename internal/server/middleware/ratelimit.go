package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/candidate-hub/internal/apperr"
	"github.com/jonathan/candidate-hub/internal/observability"
	"github.com/jonathan/candidate-hub/internal/server/envelope"
	"github.com/jonathan/candidate-hub/internal/server/ratelimit"
)

// RateLimit applies limiter per client IP. Store failures let the request through.
func RateLimit(limiter *ratelimit.Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := ClientIP(r)

			d, err := limiter.Allow(r.Context(), clientID, r.URL.Path, r.Method)
			if err != nil {
				logger.Warn("rate limit check failed, allowing request",
					zap.String("client", clientID),
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			if d.Blocked {
				observability.RateLimitRejected.WithLabelValues("blacklist").Inc()
				envelope.Fail(w, apperr.CodeForbidden, "client is blocked", nil)
				return
			}

			if d.Limited {
				setRateLimitHeaders(w, d.Result)
			}
			if !d.Success {
				observability.RateLimitRejected.WithLabelValues(d.Rule).Inc()
				retryAfter := int(time.Until(d.Reset).Seconds() + 0.999)
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				envelope.Fail(w, apperr.CodeRateLimitExceeded, "Rate limit exceeded. Please try again later.", map[string]any{
					"limit":      d.Limit,
					"remaining":  d.Remaining,
					"resetAt":    d.Reset.UTC().Format(time.RFC3339),
					"retryAfter": retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, res ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))
}

// ClientIP returns the host part of RemoteAddr. Forwarded headers are not trusted.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
