package google

import (
	"testing"

	"github.com/bookslot/bookslot/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestGoogleAuth_isAllowedRedirect(t *testing.T) {
	auth := NewGoogleAuth(nil, nil, config.Application{Host: "http://api.local", FrontendUrl: "https://app.example.org"})

	assert.True(t, auth.isAllowedRedirect("https://app.example.org/settings"))
	assert.False(t, auth.isAllowedRedirect("https://evil.example.org/"))
	assert.False(t, auth.isAllowedRedirect("http://app.example.org/"))
	assert.False(t, auth.isAllowedRedirect(""))
}

func TestNewGoogleAuth(t *testing.T) {
	auth := NewGoogleAuth(nil, nil, config.Application{
		Host:   "http://api.local",
		Google: config.Google{ClientId: "id", ClientSecret: "secret"},
	})

	assert.Equal(t, "http://api.local/api/integrations/google/auth/callback", auth.oauthConfig.RedirectURL)
	assert.Contains(t, auth.oauthConfig.AuthCodeURL("x"), "client_id=id")
}
