package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds handler execution when no explicit timeout is configured.
const DefaultRequestTimeout = 30 * time.Second

// Timeout enforces a per-request deadline. Handlers observe the deadline
// through the request context; http.TimeoutHandler writes the 503 when it fires.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		timeoutHandler := http.TimeoutHandler(next, timeout, "Request Timeout")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			timeoutHandler.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
