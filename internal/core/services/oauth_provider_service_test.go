package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SscSPs/auth_service/internal/core/domain"
	"github.com/SscSPs/auth_service/internal/core/services"
	"github.com/SscSPs/auth_service/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

// newProviderServer fakes a provider's token and profile endpoints.
func newProviderServer(t *testing.T, tokenBody map[string]any, profile map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tokenBody)
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if fields := r.URL.Query().Get("fields"); fields != "" {
			assert.Contains(t, fields, "email")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func providerOptions(srv *httptest.Server) []services.OAuthProviderOption {
	return []services.OAuthProviderOption{
		services.WithOAuthEndpoint(oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}),
		services.WithProfileURL(srv.URL + "/me"),
		services.WithOAuthHTTPClient(srv.Client()),
	}
}

func oauthTestConfig() *config.Config {
	cfg := newTestConfig()
	cfg.GoogleClientID = "google-client"
	cfg.GoogleClientSecret = "google-secret"
	cfg.GoogleRedirectURL = "http://localhost:8080/auth/google/callback"
	cfg.FacebookClientID = "fb-client"
	cfg.FacebookClientSecret = "fb-secret"
	cfg.FacebookRedirectURL = "http://localhost:8080/auth/facebook/callback"
	return cfg
}

func TestGoogleProvider_UserInfoFallback(t *testing.T) {
	srv := newProviderServer(t,
		map[string]any{"access_token": "provider-access-token", "token_type": "Bearer", "expires_in": 3600},
		map[string]any{
			"sub":            "g-123",
			"email":          "grace@example.com",
			"email_verified": true,
			"name":           "Grace Hopper",
			"given_name":     "Grace",
			"family_name":    "Hopper",
			"picture":        "https://lh3.example.com/p.png",
		})
	provider := services.NewGoogleProvider(oauthTestConfig(), nil, providerOptions(srv)...)

	profile, err := provider.FetchProfile(context.Background(), "good-code")

	require.NoError(t, err)
	assert.Equal(t, domain.ProviderGoogle, provider.Provider())
	assert.Equal(t, domain.ProviderGoogle, profile.Provider)
	assert.Equal(t, "g-123", profile.ExternalID)
	assert.Equal(t, "grace@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "Grace", profile.FirstName)
	assert.Equal(t, "Hopper", profile.LastName)
	assert.Equal(t, "https://lh3.example.com/p.png", profile.AvatarURL)
}

func TestGoogleProvider_ValidatesIDToken(t *testing.T) {
	srv := newProviderServer(t,
		map[string]any{"access_token": "provider-access-token", "token_type": "Bearer", "id_token": "signed-id-token"},
		map[string]any{})
	var gotAudience string
	validator := func(ctx context.Context, raw, audience string) (*idtoken.Payload, error) {
		gotAudience = audience
		assert.Equal(t, "signed-id-token", raw)
		return &idtoken.Payload{
			Subject: "g-456",
			Claims: map[string]interface{}{
				"email":          "id@example.com",
				"email_verified": true,
				"name":           "Id Token",
			},
		}, nil
	}
	provider := services.NewGoogleProvider(oauthTestConfig(), validator, providerOptions(srv)...)

	profile, err := provider.FetchProfile(context.Background(), "good-code")

	require.NoError(t, err)
	assert.Equal(t, "google-client", gotAudience)
	assert.Equal(t, "g-456", profile.ExternalID)
	assert.Equal(t, "id@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "Id Token", profile.DisplayName)
}

func TestGoogleProvider_BadCode(t *testing.T) {
	srv := newProviderServer(t, map[string]any{}, map[string]any{})
	provider := services.NewGoogleProvider(oauthTestConfig(), nil, providerOptions(srv)...)

	_, err := provider.FetchProfile(context.Background(), "bad-code")

	assert.Error(t, err)
}

func TestGoogleProvider_AuthCodeURLCarriesState(t *testing.T) {
	provider := services.NewGoogleProvider(oauthTestConfig(), nil)

	authURL := provider.AuthCodeURL("state-123")

	assert.True(t, strings.HasPrefix(authURL, "https://accounts.google.com/"))
	assert.Contains(t, authURL, "state=state-123")
	assert.Contains(t, authURL, "client_id=google-client")
}

func TestFacebookProvider_FetchProfile(t *testing.T) {
	srv := newProviderServer(t,
		map[string]any{"access_token": "provider-access-token", "token_type": "Bearer"},
		map[string]any{
			"id":         "fb-789",
			"name":       "Alan Turing",
			"email":      "alan@example.com",
			"first_name": "Alan",
			"last_name":  "Turing",
			"picture":    map[string]any{"data": map[string]any{"url": "https://fb.example.com/p.jpg"}},
		})
	provider := services.NewFacebookProvider(oauthTestConfig(), providerOptions(srv)...)

	profile, err := provider.FetchProfile(context.Background(), "good-code")

	require.NoError(t, err)
	assert.Equal(t, domain.ProviderFacebook, profile.Provider)
	assert.Equal(t, "fb-789", profile.ExternalID)
	assert.Equal(t, "alan@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "https://fb.example.com/p.jpg", profile.AvatarURL)
}

func TestFacebookProvider_ProfileRejected(t *testing.T) {
	srv := newProviderServer(t,
		map[string]any{"access_token": "wrong-token", "token_type": "Bearer"},
		map[string]any{})
	provider := services.NewFacebookProvider(oauthTestConfig(), providerOptions(srv)...)

	_, err := provider.FetchProfile(context.Background(), "good-code")

	assert.ErrorContains(t, err, "non-200")
}
