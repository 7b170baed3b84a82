package gateway

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

var authBypass = map[string]bool{
	"/healthz": true,
	"/version": true,
}

// apiKeyAuth gates requests on an X-API-Key header (or bearer token). An
// empty required key disables the check.
func apiKeyAuth(requiredKey string) func(http.Handler) http.Handler {
	required := strings.TrimSpace(requiredKey)
	if required == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authBypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			candidate := strings.TrimSpace(r.Header.Get("X-API-Key"))
			if candidate == "" {
				auth := strings.TrimSpace(r.Header.Get("Authorization"))
				if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
					candidate = strings.TrimSpace(auth[7:])
				}
			}
			if subtle.ConstantTimeCompare([]byte(candidate), []byte(required)) != 1 {
				writeErr(w, http.StatusUnauthorized, "unauthorized", "missing or invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs one line per completed request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
