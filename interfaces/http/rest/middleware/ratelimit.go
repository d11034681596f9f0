package middleware

import (
	"net"
	"net/http"
	"strconv"

	"flowcanvas/pkg/common"
	pkgerrors "flowcanvas/pkg/errors"
	"flowcanvas/pkg/observability"
	"flowcanvas/pkg/ratelimit"

	"go.uber.org/zap"
)

// RateLimit throttles requests per client address. Denials answer 429
// with the standard envelope and a Retry-After hint; limiter failures
// fail open, since throttling is protection for the upstream backend,
// not an availability gate for the bridge itself.
func RateLimit(limiter *ratelimit.IPLimiter, collector *observability.Collector, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				logger.Warn("rate limiter failed, allowing request", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				if collector != nil {
					collector.RateLimitRejected()
				}
				logger.Warn("rate limit exceeded",
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("path", r.URL.Path),
				)

				rejection := pkgerrors.ErrRateLimitExceeded
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
				common.RespondError(w, rejection.StatusCode, rejection.Code, rejection.Message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds matches the limiter's one minute window.
const retryAfterSeconds = 60

// clientIP strips the port from the remote address. RealIP has already
// substituted forwarded addresses where present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
