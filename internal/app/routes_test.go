package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bookslot/bookslot/internal/config"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *mux.Router {
	cfg := config.Application{
		FrontendUrl: "https://book.example.org",
		Auth: config.Auth{
			JwtSecret:       "jwt-secret",
			JwtAlgo:         "HS256",
			SignedUrlSecret: "link-secret",
		},
		Booking: config.Booking{RateLimit: 0.01, RateLimitBurst: 1},
		Secret:  config.Secret{Key: "credentials"},
	}
	// Only routes rejected before reaching storage are exercised here.
	deps, err := BuildDependencies(nil, cfg)
	require.NoError(t, err)

	r := mux.NewRouter()
	SetupMiddleware(r)
	RegisterRoutes(r, deps)
	return r
}

func serve(r http.Handler, method string, path string, body string, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestRegisterRoutes(t *testing.T) {
	t.Run("should require a bearer token on private routes", func(t *testing.T) {
		r := setupRouter(t)

		for _, path := range []string{"/api/me", "/api/me/calendars", "/api/me/appointments", "/api/me/signature", "/api/apmt/1"} {
			rr := serve(r, http.MethodGet, path, "", "")
			assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
		}
	})

	t.Run("should reject malformed tokens on admin routes", func(t *testing.T) {
		r := setupRouter(t)

		rr := serve(r, http.MethodGet, "/api/admin/subscribers", "", "not-a-jwt")

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("should answer the session check without a token", func(t *testing.T) {
		r := setupRouter(t)

		rr := serve(r, http.MethodGet, "/api/auth/session", "", "")

		require.Equal(t, http.StatusOK, rr.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, false, body["authenticated"])
	})

	t.Run("should route public claims through the rate limiter", func(t *testing.T) {
		// given
		r := setupRouter(t)

		// when
		first := serve(r, http.MethodPut, "/api/apmt/public/abc", "{", "")
		second := serve(r, http.MethodPut, "/api/apmt/public/abc", "{", "")

		// then
		assert.Equal(t, http.StatusBadRequest, first.Code)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
	})

	t.Run("should return 404 for unknown paths", func(t *testing.T) {
		r := setupRouter(t)

		rr := serve(r, http.MethodGet, "/api/unknown", "", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestBuildDependencies(t *testing.T) {
	t.Run("should refuse a signed link secret equal to the jwt secret", func(t *testing.T) {
		cfg := config.Application{Auth: config.Auth{JwtSecret: "same", JwtAlgo: "HS256", SignedUrlSecret: "same"}}

		_, err := BuildDependencies(nil, cfg)

		assert.ErrorContains(t, err, "signed link")
	})

	t.Run("should refuse a missing jwt secret", func(t *testing.T) {
		_, err := BuildDependencies(nil, config.Application{Auth: config.Auth{JwtAlgo: "HS256"}})

		assert.ErrorContains(t, err, "auth configuration")
	})
}
