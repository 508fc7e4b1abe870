package main

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"mailvetter/internal/config"
)

// requireAPIKey validates the Bearer token in the Authorization header
// against cfg.HeaderSecret before allowing a request through. Grounded on
// the teacher's cmd/api/auth.go requireAPIKey, reading the secret from the
// loaded Config instead of a bare os.Getenv so the rest of the config
// validation runs before auth does. An empty HeaderSecret disables auth
// entirely, matching spec §6 (header_secret has no required tag).
func requireAPIKey(cfg config.Config, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.HeaderSecret == "" {
			next(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.HeaderSecret)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}
