package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"rentloop/internal/config"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHTTPAuth_Disabled(t *testing.T) {
	auth := NewHTTPAuth(config.APIAuthConfig{Enabled: false})
	handler := auth.Wrap(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPAuth_Enabled(t *testing.T) {
	auth := NewHTTPAuth(config.APIAuthConfig{
		Enabled:      true,
		HeaderAPIKey: "x-api-key",
		APIKeys: []config.APIClientKey{
			{Key: "secret-key", Name: "client"},
		},
	})
	handler := auth.Wrap(okHandler())

	// No key.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong key.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("x-api-key", "wrong")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid key.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("x-api-key", "secret-key")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseApproved(t *testing.T) {
	approved, err := parseApproved("true")
	assert.NoError(t, err)
	assert.True(t, approved)

	approved, err = parseApproved("false")
	assert.NoError(t, err)
	assert.False(t, approved)

	_, err = parseApproved("")
	assert.Error(t, err)

	_, err = parseApproved("yes")
	assert.Error(t, err)
}
