package http

import (
	"log/slog"
	"net/http"
	"time"

	m "github.com/go-chi/chi/v5/middleware"

	"autism-screening/internal/auth"
)

// RequireAPIToken rejects requests without "Authorization: Bearer <token>".
func RequireAPIToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok || !auth.Matches(got, token) {
				writeJSON(w, http.StatusUnauthorized, errResp{"unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per request once it completes.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := m.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", m.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
