package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/SscSPs/auth_service/internal/core/domain"
	"github.com/SscSPs/auth_service/internal/dto"
	"github.com/SscSPs/auth_service/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var googleProfile = domain.OAuthProfile{
	Provider:      domain.ProviderGoogle,
	ExternalID:    "g-123",
	Email:         "ada@example.com",
	EmailVerified: true,
	FirstName:     "Ada",
	LastName:      "Lovelace",
}

// startOAuth follows the sign-in redirect and returns the state and its cookie.
func startOAuth(t *testing.T, app *testApp, provider string) (string, *http.Cookie) {
	t.Helper()
	rec := app.request(http.MethodGet, "/auth/"+provider, nil, "")
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code, rec.Body.String())

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "provider.test", loc.Host)
	state := loc.Query().Get("state")
	require.Len(t, state, 64)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/auth", cookie.Path)
	return state, cookie
}

// callbackRedirect parses the frontend redirect of a callback response.
func callbackRedirect(t *testing.T, rec *httptest.ResponseRecorder) (*url.URL, url.Values) {
	t.Helper()
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, testFrontendURL+"/auth/callback", loc.Scheme+"://"+loc.Host+loc.Path)
	assert.Empty(t, loc.Fragment)
	return loc, loc.Query()
}

func TestOAuth_SignInCreatesThenReusesUser(t *testing.T) {
	app := newTestApp(t)
	app.google.profile = googleProfile

	var userIDs []string
	for i := 0; i < 2; i++ {
		state, cookie := startOAuth(t, app, "google")
		rec := app.request(http.MethodGet, "/auth/google/callback?code=auth-code&state="+url.QueryEscape(state), nil, "", cookie)

		_, values := callbackRedirect(t, rec)
		require.NotEmpty(t, values.Get("access_token"))
		require.NotEmpty(t, values.Get("refresh_token"))
		assert.Equal(t, "google", values.Get("provider"))
		assert.Equal(t, "Bearer", values.Get("token_type"))

		profile := app.request(http.MethodGet, "/api/v1/users/profile", nil, values.Get("access_token"))
		require.Equal(t, http.StatusOK, profile.Code)
		var user dto.UserResponse
		decode(t, profile, &user)
		assert.True(t, user.IsVerified)
		assert.False(t, user.HasPassword)
		assert.Equal(t, []string{"google"}, user.LinkedProviders)
		userIDs = append(userIDs, user.UserID)
	}
	assert.Equal(t, userIDs[0], userIDs[1])
	assert.Equal(t, 1, app.repo.Len())
	assert.Equal(t, []string{"auth-code", "auth-code"}, app.google.codes)
}

func TestOAuth_LinksExistingAccount(t *testing.T) {
	app := newTestApp(t)
	session := app.register("ada@example.com")
	app.google.profile = googleProfile

	state, cookie := startOAuth(t, app, "google")
	rec := app.request(http.MethodGet, "/auth/google/callback?code=c&state="+state, nil, "", cookie)
	_, values := callbackRedirect(t, rec)
	require.NotEmpty(t, values.Get("access_token"))

	user, err := app.repo.FindUserByID(context.Background(), session.User.UserID)
	require.NoError(t, err)
	assert.Equal(t, "g-123", user.ProviderID(domain.ProviderGoogle))
	assert.True(t, user.HasPassword())
	assert.Equal(t, http.StatusOK, app.login("ada@example.com", testPassword).Code)
}

func TestOAuth_CallbackFailures(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, app *testApp)
		query  func(state string) string
		cookie bool
		reason string
	}{
		{
			name:   "state mismatch",
			query:  func(string) string { return "?code=c&state=forged" },
			cookie: true,
			reason: "invalid_state",
		},
		{
			name:   "missing cookie",
			query:  func(state string) string { return "?code=c&state=" + state },
			reason: "invalid_state",
		},
		{
			name:   "provider denied",
			query:  func(state string) string { return "?error=access_denied&state=" + state },
			cookie: true,
			reason: "provider_denied",
		},
		{
			name:   "missing code",
			query:  func(state string) string { return "?state=" + state },
			cookie: true,
			reason: "exchange_failed",
		},
		{
			name:   "exchange error",
			setup:  func(t *testing.T, app *testApp) { app.google.err = errors.New("oauth2: invalid_grant") },
			query:  func(state string) string { return "?code=c&state=" + state },
			cookie: true,
			reason: "exchange_failed",
		},
		{
			name: "suspended account",
			setup: func(t *testing.T, app *testApp) {
				session := app.register("ada@example.com")
				user, err := app.repo.FindUserByID(context.Background(), session.User.UserID)
				require.NoError(t, err)
				user.Status = domain.StatusSuspended
				require.NoError(t, app.repo.UpdateUser(context.Background(), *user))
			},
			query:  func(state string) string { return "?code=c&state=" + state },
			cookie: true,
			reason: "account_inactive",
		},
		{
			name: "email linked to another google account",
			setup: func(t *testing.T, app *testApp) {
				session := app.register("ada@example.com")
				linked, err := app.repo.LinkProvider(context.Background(), session.User.UserID, domain.ProviderGoogle, "g-other", true, nil)
				require.NoError(t, err)
				require.True(t, linked)
			},
			query:  func(state string) string { return "?code=c&state=" + state },
			cookie: true,
			reason: "account_conflict",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			app.google.profile = googleProfile
			if tc.setup != nil {
				tc.setup(t, app)
			}
			state, cookie := startOAuth(t, app, "google")
			var cookies []*http.Cookie
			if tc.cookie {
				cookies = append(cookies, cookie)
			}

			rec := app.request(http.MethodGet, "/auth/google/callback"+tc.query(state), nil, "", cookies...)

			_, values := callbackRedirect(t, rec)
			assert.Equal(t, tc.reason, values.Get("error"))
			assert.Equal(t, "google", values.Get("provider"))
			assert.Empty(t, values.Get("access_token"))
		})
	}
}

func TestOAuth_StateCookieIsBoundToProvider(t *testing.T) {
	app := newTestApp(t)
	app.google.profile = googleProfile
	state, cookie := startOAuth(t, app, "google")

	rec := app.request(http.MethodGet, "/auth/google/callback?code=c&state="+state, nil, "", cookie)
	_, values := callbackRedirect(t, rec)
	require.NotEmpty(t, values.Get("access_token"))

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "callback deletes the state cookie")
}

func TestOAuth_ProviderNotConfigured(t *testing.T) {
	app := newTestApp(t)

	rec := app.request(http.MethodGet, "/auth/facebook", nil, "")
	_, values := callbackRedirect(t, rec)
	assert.Equal(t, "provider_not_configured", values.Get("error"))
	assert.Equal(t, "facebook", values.Get("provider"))
	assert.Empty(t, rec.Result().Cookies(), "no state cookie without a provider")

	rec = app.request(http.MethodGet, "/auth/facebook/callback?code=c&state=s", nil, "")
	_, values = callbackRedirect(t, rec)
	assert.Equal(t, "provider_not_configured", values.Get("error"))
	assert.Equal(t, "facebook", values.Get("provider"))
}

func TestOAuth_RedirectToleratesTrailingSlash(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) { cfg.FrontendBaseURL = testFrontendURL + "/" })
	app.google.profile = googleProfile
	state, cookie := startOAuth(t, app, "google")

	rec := app.request(http.MethodGet, "/auth/google/callback?code=c&state="+url.QueryEscape(state), nil, "", cookie)

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth/callback", loc.Path)
	assert.NotEmpty(t, loc.Query().Get("access_token"))
}
