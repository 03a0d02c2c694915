package api

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
)

// OriginSource yields the currently allowed CORS origins.
type OriginSource interface {
	Origins(ctx context.Context) ([]string, error)
}

// corsMiddleware answers with the origins allowed in settings. "*" allows
// every origin; otherwise a listed origin is echoed back.
func corsMiddleware(origins OriginSource, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := origins.Origins(r.Context())
			if err != nil {
				logger.Warn("reading cors origins", "error", err)
			}

			origin := r.Header.Get("Origin")
			switch {
			case slices.Contains(allowed, "*"):
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(allowed, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
