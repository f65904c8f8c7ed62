package api

import (
	"crypto/subtle"
	"net/http"

	"rentloop/internal/config"
)

// HTTPAuth optionally gates the API behind static client keys.
type HTTPAuth struct {
	cfg config.APIAuthConfig
}

func NewHTTPAuth(cfg config.APIAuthConfig) *HTTPAuth {
	return &HTTPAuth{cfg: cfg}
}

// Wrap enforces the API key header when auth is enabled.
func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	if !a.cfg.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(a.cfg.HeaderAPIKey)
		if key == "" || !a.validKey(key) {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) validKey(key string) bool {
	for _, client := range a.cfg.APIKeys {
		if subtle.ConstantTimeCompare([]byte(client.Key), []byte(key)) == 1 {
			return true
		}
	}
	return false
}
