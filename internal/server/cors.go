package server

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/k8ika0s/optimizer-api/internal/config"
)

// withCORS answers preflight requests for the configured origins. The user
// header is allowed by default so browser clients can identify themselves.
func withCORS(cfg config.Config, next http.Handler) http.Handler {
	if len(cfg.CORSOrigins) == 0 {
		return next
	}
	allowedOrigins := cfg.CORSOrigins
	allowedMethods := cfg.CORSMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	allowedHeaders := cfg.CORSHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{"Content-Type", "Authorization", userHeader(cfg)}
	}
	allowAny := slices.Contains(allowedOrigins, "*")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAny || slices.Contains(allowedOrigins, origin)) {
			allowOrigin := origin
			if allowAny && !cfg.CORSCredentials {
				allowOrigin = "*"
			}
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", strings.Join(allowedMethods, ", "))
			h.Set("Access-Control-Allow-Headers", strings.Join(allowedHeaders, ", "))
			if cfg.CORSCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if cfg.CORSMaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.CORSMaxAge))
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func userHeader(cfg config.Config) string {
	if cfg.UserHeader == "" {
		return "X-Remote-User"
	}
	return cfg.UserHeader
}
