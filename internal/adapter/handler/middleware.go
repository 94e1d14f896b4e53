package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/adapter/auth"
	"github.com/rl1809/storefront/internal/supervisor"
)

// Readiness is the view of the connection supervisor the HTTP layer needs.
type Readiness interface {
	IsReady() bool
	State() supervisor.State
}

// AvailabilityGate rejects requests while the store is not connected. The
// request is answered immediately and never reaches a handler.
func AvailabilityGate(ready Readiness, retryAfter time.Duration) func(http.Handler) http.Handler {
	seconds := strconv.Itoa(max(1, int(retryAfter.Seconds())))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ready.IsReady() {
				w.Header().Set("Retry-After", seconds)
				respondError(w, http.StatusServiceUnavailable, "service_unavailable",
					"the data store is not connected yet, try again shortly")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate resolves the bearer token, if any, and stores the result in
// the request context. It never rejects a request.
func Authenticate(gate *auth.AccessGate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := gate.Resolve(auth.BearerToken(r.Header.Get("Authorization")))
			next.ServeHTTP(w, r.WithContext(auth.WithResolution(r.Context(), res)))
		})
	}
}

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := auth.FromContext(r.Context())
		if !res.Role.Authenticated() {
			msg := "missing user authentication"
			if res.Reason == auth.InvalidCredential {
				msg = "invalid or expired token"
			}
			respondError(w, http.StatusUnauthorized, "unauthorized", msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.FromContext(r.Context()).Role.IsAdmin() {
			respondError(w, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if ww.Status() >= http.StatusInternalServerError {
				logger.Error("request failed", fields...)
				return
			}
			logger.Debug("request served", fields...)
		})
	}
}
