package middleware

import (
	"net/http"

	logpkg "github.com/billminder/billminder/internal/logger"
	"github.com/billminder/billminder/internal/request"
	"go.uber.org/zap"
)

// Audit logs denied requests with the client IP so repeated auth failures
// and rate limit hits can be traced to a source.
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			var event string
			switch wrapped.status {
			case http.StatusUnauthorized, http.StatusForbidden:
				event = "security_event"
			case http.StatusTooManyRequests:
				event = "rate_limit_violation"
			default:
				return
			}

			logger.Warn(event,
				zap.Int("status_code", wrapped.status),
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.String("ip", logpkg.SanitizeString(request.ClientIP(r), logpkg.MaxGeneralStringLength)),
			)
		})
	}
}
