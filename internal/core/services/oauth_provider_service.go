package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/SscSPs/auth_service/internal/core/domain"
	portssvc "github.com/SscSPs/auth_service/internal/core/ports/services"
	"github.com/SscSPs/auth_service/internal/platform/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	facebookGraphURL  = "https://graph.facebook.com/v19.0/me"
	facebookFields    = "id,name,email,first_name,last_name,picture.type(large)"

	// maxProfileBytes caps the provider profile response we are willing to decode.
	maxProfileBytes = 1 << 20
)

// IDTokenValidator validates a Google ID token for audience.
type IDTokenValidator func(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)

// oauthClient is the part shared by every provider: the code exchange and the profile endpoint.
type oauthClient struct {
	BaseService
	oauth2Config *oauth2.Config
	profileURL   string
	httpClient   *http.Client
}

// OAuthProviderOption is a functional option for configuring a provider client.
type OAuthProviderOption func(*oauthClient)

// WithOAuthEndpoint overrides the authorization and token endpoints.
func WithOAuthEndpoint(endpoint oauth2.Endpoint) OAuthProviderOption {
	return func(c *oauthClient) {
		c.oauth2Config.Endpoint = endpoint
	}
}

// WithProfileURL overrides the profile endpoint queried after the exchange.
func WithProfileURL(profileURL string) OAuthProviderOption {
	return func(c *oauthClient) {
		c.profileURL = profileURL
	}
}

// WithOAuthHTTPClient sets the HTTP client used for the exchange and the profile request.
func WithOAuthHTTPClient(client *http.Client) OAuthProviderOption {
	return func(c *oauthClient) {
		c.httpClient = client
	}
}

func newOAuthClient(cfg *oauth2.Config, profileURL string, options []OAuthProviderOption) oauthClient {
	c := oauthClient{oauth2Config: cfg, profileURL: profileURL}
	for _, option := range options {
		option(&c)
	}
	return c
}

func (c *oauthClient) AuthCodeURL(state string) string {
	return c.oauth2Config.AuthCodeURL(state)
}

func (c *oauthClient) exchange(ctx context.Context, code string) (*oauth2.Token, context.Context, error) {
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	token, err := c.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, ctx, fmt.Errorf("failed to exchange oauth code for token: %w", err)
	}
	return token, ctx, nil
}

// getProfile fetches profileURL with the access token and decodes the JSON body into out.
func (c *oauthClient) getProfile(ctx context.Context, token *oauth2.Token, profileURL string, out any) error {
	client := c.oauth2Config.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build profile request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned non-200 status for user info: %s", resp.Status)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBytes)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode user info: %w", err)
	}
	return nil
}

// --- Google ---

type googleProvider struct {
	oauthClient
	clientID        string
	validateIDToken IDTokenValidator
}

// googleUserInfo is the subset of the OpenID userinfo response we read.
type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// NewGoogleProvider creates the Google OAuth client. The ID token returned by the
// exchange is validated with idtoken.Validate; the userinfo endpoint is the fallback.
func NewGoogleProvider(cfg *config.Config, validator IDTokenValidator, options ...OAuthProviderOption) portssvc.OAuthProviderSvc {
	if validator == nil {
		validator = idtoken.Validate
	}
	return &googleProvider{
		oauthClient: newOAuthClient(&oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}, googleUserInfoURL, options),
		clientID:        cfg.GoogleClientID,
		validateIDToken: validator,
	}
}

func (p *googleProvider) Provider() domain.AuthProvider { return domain.ProviderGoogle }

func (p *googleProvider) FetchProfile(ctx context.Context, code string) (*domain.OAuthProfile, error) {
	token, ctx, err := p.exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	if rawIDToken, ok := token.Extra("id_token").(string); ok && rawIDToken != "" {
		payload, err := p.validateIDToken(ctx, rawIDToken, p.clientID)
		if err != nil {
			return nil, fmt.Errorf("google ID token validation failed: %w", err)
		}
		return googleProfileFromClaims(payload.Subject, payload.Claims), nil
	}

	var info googleUserInfo
	if err := p.getProfile(ctx, token, p.profileURL, &info); err != nil {
		return nil, err
	}
	return &domain.OAuthProfile{
		Provider:      domain.ProviderGoogle,
		ExternalID:    info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		DisplayName:   info.Name,
		FirstName:     info.GivenName,
		LastName:      info.FamilyName,
		AvatarURL:     info.Picture,
	}, nil
}

func googleProfileFromClaims(subject string, claims map[string]interface{}) *domain.OAuthProfile {
	str := func(key string) string {
		v, _ := claims[key].(string)
		return v
	}
	verified, _ := claims["email_verified"].(bool)
	return &domain.OAuthProfile{
		Provider:      domain.ProviderGoogle,
		ExternalID:    subject,
		Email:         str("email"),
		EmailVerified: verified,
		DisplayName:   str("name"),
		FirstName:     str("given_name"),
		LastName:      str("family_name"),
		AvatarURL:     str("picture"),
	}
}

// --- Facebook ---

type facebookProvider struct {
	oauthClient
}

type facebookUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// NewFacebookProvider creates the Facebook OAuth client backed by the Graph API.
func NewFacebookProvider(cfg *config.Config, options ...OAuthProviderOption) portssvc.OAuthProviderSvc {
	return &facebookProvider{
		oauthClient: newOAuthClient(&oauth2.Config{
			ClientID:     cfg.FacebookClientID,
			ClientSecret: cfg.FacebookClientSecret,
			RedirectURL:  cfg.FacebookRedirectURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     facebook.Endpoint,
		}, facebookGraphURL, options),
	}
}

func (p *facebookProvider) Provider() domain.AuthProvider { return domain.ProviderFacebook }

func (p *facebookProvider) FetchProfile(ctx context.Context, code string) (*domain.OAuthProfile, error) {
	token, ctx, err := p.exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	profileURL, err := url.Parse(p.profileURL)
	if err != nil {
		return nil, fmt.Errorf("invalid facebook profile url: %w", err)
	}
	q := profileURL.Query()
	q.Set("fields", facebookFields)
	profileURL.RawQuery = q.Encode()

	var fb facebookUser
	if err := p.getProfile(ctx, token, profileURL.String(), &fb); err != nil {
		return nil, err
	}
	// The Graph API only returns confirmed email addresses.
	return &domain.OAuthProfile{
		Provider:      domain.ProviderFacebook,
		ExternalID:    fb.ID,
		Email:         fb.Email,
		EmailVerified: fb.Email != "",
		DisplayName:   fb.Name,
		FirstName:     fb.FirstName,
		LastName:      fb.LastName,
		AvatarURL:     fb.Picture.Data.URL,
	}, nil
}
